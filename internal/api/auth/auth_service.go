package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/crypto/bcrypt"

	"github.com/wayfarerhq/wayfarer-api/config"
	"github.com/wayfarerhq/wayfarer-api/internal/api"
)

var _ AuthService = (*AuthServiceImpl)(nil)

type AuthService interface {
	Register(ctx context.Context, username, email, password string) error
	Login(ctx context.Context, email, password string) (string, string, error)
	RefreshSession(ctx context.Context, refreshToken string) (string, string, error)
	Logout(ctx context.Context, refreshToken string) error
	UpdatePassword(ctx context.Context, userID, oldPassword, newPassword string) error
}

type AuthServiceImpl struct {
	logger *slog.Logger
	repo   AuthRepo
	cfg    *config.Config
}

func NewAuthService(repo AuthRepo, cfg *config.Config, logger *slog.Logger) *AuthServiceImpl {
	return &AuthServiceImpl{
		logger: logger,
		repo:   repo,
		cfg:    cfg,
	}
}

// Register hashes the password and creates the account.
func (s *AuthServiceImpl) Register(ctx context.Context, username, email, password string) error {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "Register")
	defer span.End()

	l := s.logger.With(slog.String("method", "Register"), slog.String("email", email))

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		l.ErrorContext(ctx, "Failed to hash password", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Password hashing failed")
		return fmt.Errorf("failed to hash password: %w", err)
	}

	userID, err := s.repo.Register(ctx, username, email, string(hashed))
	if err != nil {
		l.ErrorContext(ctx, "Failed to register user", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Registration failed")
		return fmt.Errorf("registration failed: %w", err)
	}

	l.InfoContext(ctx, "User registered", slog.String("userID", userID))
	span.SetStatus(codes.Ok, "User registered")
	return nil
}

// Login verifies credentials and issues an access/refresh token pair.
func (s *AuthServiceImpl) Login(ctx context.Context, email, password string) (string, string, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "Login")
	defer span.End()

	l := s.logger.With(slog.String("method", "Login"), slog.String("email", email))

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		l.WarnContext(ctx, "Login failed: user lookup", slog.Any("error", err))
		span.SetStatus(codes.Error, "Unknown user")
		if errors.Is(err, api.ErrNotFound) {
			// Same error as a bad password so callers can't probe for accounts
			return "", "", fmt.Errorf("invalid credentials: %w", api.ErrUnauthenticated)
		}
		return "", "", fmt.Errorf("login failed: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		l.WarnContext(ctx, "Login failed: password mismatch")
		span.SetStatus(codes.Error, "Bad password")
		return "", "", fmt.Errorf("invalid credentials: %w", api.ErrUnauthenticated)
	}

	accessToken, err := s.generateAccessToken(user)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Token generation failed")
		return "", "", err
	}

	refreshToken, err := s.issueRefreshToken(ctx, user.ID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Refresh token issue failed")
		return "", "", err
	}

	l.InfoContext(ctx, "Login successful", slog.String("userID", user.ID))
	span.SetStatus(codes.Ok, "Login successful")
	return accessToken, refreshToken, nil
}

// RefreshSession rotates the refresh token and issues a new access token.
func (s *AuthServiceImpl) RefreshSession(ctx context.Context, refreshToken string) (string, string, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "RefreshSession")
	defer span.End()

	l := s.logger.With(slog.String("method", "RefreshSession"))

	userID, err := s.repo.ValidateRefreshTokenAndGetUserID(ctx, refreshToken)
	if err != nil {
		l.WarnContext(ctx, "Refresh token rejected", slog.Any("error", err))
		span.SetStatus(codes.Error, "Refresh token rejected")
		return "", "", fmt.Errorf("refresh rejected: %w", err)
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		l.ErrorContext(ctx, "Failed to load user for refresh", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "User load failed")
		return "", "", fmt.Errorf("refresh failed: %w", err)
	}

	// Rotate: the presented token is single-use.
	if err := s.repo.InvalidateRefreshToken(ctx, refreshToken); err != nil {
		l.ErrorContext(ctx, "Failed to rotate refresh token", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Rotation failed")
		return "", "", fmt.Errorf("refresh failed: %w", err)
	}

	accessToken, err := s.generateAccessToken(user)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Token generation failed")
		return "", "", err
	}

	newRefreshToken, err := s.issueRefreshToken(ctx, user.ID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Refresh token issue failed")
		return "", "", err
	}

	l.InfoContext(ctx, "Session refreshed", slog.String("userID", user.ID))
	span.SetStatus(codes.Ok, "Session refreshed")
	return accessToken, newRefreshToken, nil
}

// Logout invalidates the presented refresh token.
func (s *AuthServiceImpl) Logout(ctx context.Context, refreshToken string) error {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "Logout")
	defer span.End()

	if err := s.repo.InvalidateRefreshToken(ctx, refreshToken); err != nil {
		s.logger.ErrorContext(ctx, "Logout failed", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Logout failed")
		return fmt.Errorf("logout failed: %w", err)
	}
	span.SetStatus(codes.Ok, "Logged out")
	return nil
}

// UpdatePassword verifies the old password, stores the new hash, and revokes
// every outstanding refresh token for the user.
func (s *AuthServiceImpl) UpdatePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "UpdatePassword")
	defer span.End()

	l := s.logger.With(slog.String("method", "UpdatePassword"), slog.String("userID", userID))

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		l.ErrorContext(ctx, "Failed to load user", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "User load failed")
		return fmt.Errorf("password update failed: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(oldPassword)); err != nil {
		l.WarnContext(ctx, "Password update rejected: old password mismatch")
		span.SetStatus(codes.Error, "Old password mismatch")
		return fmt.Errorf("old password incorrect: %w", api.ErrUnauthenticated)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Password hashing failed")
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.repo.UpdatePassword(ctx, userID, string(hashed)); err != nil {
		l.ErrorContext(ctx, "Failed to store new password", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Password store failed")
		return fmt.Errorf("password update failed: %w", err)
	}

	if err := s.repo.InvalidateAllUserRefreshTokens(ctx, userID); err != nil {
		l.WarnContext(ctx, "Failed to revoke refresh tokens after password change", slog.Any("error", err))
	}

	l.InfoContext(ctx, "Password updated")
	span.SetStatus(codes.Ok, "Password updated")
	return nil
}

func (s *AuthServiceImpl) generateAccessToken(user *User) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    s.cfg.JWT.Issuer,
			Audience:  jwt.ClaimStrings{s.cfg.JWT.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.JWT.AccessTokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWT.SecretKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

func (s *AuthServiceImpl) issueRefreshToken(ctx context.Context, userID string) (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate refresh token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(raw)

	expiresAt := time.Now().Add(s.cfg.JWT.RefreshTokenTTL)
	if err := s.repo.StoreRefreshToken(ctx, userID, token, expiresAt); err != nil {
		return "", fmt.Errorf("failed to store refresh token: %w", err)
	}
	return token, nil
}
