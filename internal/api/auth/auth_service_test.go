package auth

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"

	"github.com/wayfarerhq/wayfarer-api/config"
	"github.com/wayfarerhq/wayfarer-api/internal/api"
)

// MockAuthRepo is a mock implementation of the AuthRepo interface
type MockAuthRepo struct {
	mock.Mock
}

func (m *MockAuthRepo) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockAuthRepo) GetUserByID(ctx context.Context, userID string) (*User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockAuthRepo) Register(ctx context.Context, username, email, hashedPassword string) (string, error) {
	args := m.Called(ctx, username, email, hashedPassword)
	return args.String(0), args.Error(1)
}

func (m *MockAuthRepo) UpdatePassword(ctx context.Context, userID, newHashedPassword string) error {
	args := m.Called(ctx, userID, newHashedPassword)
	return args.Error(0)
}

func (m *MockAuthRepo) StoreRefreshToken(ctx context.Context, userID, token string, expiresAt time.Time) error {
	args := m.Called(ctx, userID, token, expiresAt)
	return args.Error(0)
}

func (m *MockAuthRepo) ValidateRefreshTokenAndGetUserID(ctx context.Context, refreshToken string) (string, error) {
	args := m.Called(ctx, refreshToken)
	return args.String(0), args.Error(1)
}

func (m *MockAuthRepo) InvalidateRefreshToken(ctx context.Context, refreshToken string) error {
	args := m.Called(ctx, refreshToken)
	return args.Error(0)
}

func (m *MockAuthRepo) InvalidateAllUserRefreshTokens(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.JWT = config.JWTConfig{
		SecretKey:       "test-access-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 7 * 24 * time.Hour,
		Issuer:          "test-issuer",
		Audience:        "test-audience",
	}
	return cfg
}

func TestLogin(t *testing.T) {
	mockRepo := new(MockAuthRepo)
	service := NewAuthService(mockRepo, testConfig(), slog.Default())

	t.Run("Success", func(t *testing.T) {
		ctx := context.Background()
		email := "test@example.com"
		password := "password123"
		hashedPassword, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)

		user := &User{
			ID:       "user123",
			Username: "testuser",
			Email:    email,
			Password: string(hashedPassword),
		}

		mockRepo.On("GetUserByEmail", ctx, email).Return(user, nil).Once()
		mockRepo.On("StoreRefreshToken", ctx, user.ID, mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).Return(nil).Once()

		accessToken, refreshToken, err := service.Login(ctx, email, password)

		assert.NoError(t, err)
		assert.NotEmpty(t, accessToken)
		assert.NotEmpty(t, refreshToken)
		mockRepo.AssertExpectations(t)
	})

	t.Run("UserNotFound", func(t *testing.T) {
		ctx := context.Background()
		email := "nonexistent@example.com"

		mockRepo.On("GetUserByEmail", ctx, email).Return(nil, api.ErrNotFound).Once()

		accessToken, refreshToken, err := service.Login(ctx, email, "password123")

		assert.Error(t, err)
		assert.Empty(t, accessToken)
		assert.Empty(t, refreshToken)
		assert.ErrorIs(t, err, api.ErrUnauthenticated)
		mockRepo.AssertExpectations(t)
	})

	t.Run("InvalidPassword", func(t *testing.T) {
		ctx := context.Background()
		email := "test@example.com"
		hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("correctpassword"), bcrypt.DefaultCost)

		user := &User{
			ID:       "user123",
			Username: "testuser",
			Email:    email,
			Password: string(hashedPassword),
		}

		mockRepo.On("GetUserByEmail", ctx, email).Return(user, nil).Once()

		accessToken, refreshToken, err := service.Login(ctx, email, "wrongpassword")

		assert.Error(t, err)
		assert.Empty(t, accessToken)
		assert.Empty(t, refreshToken)
		assert.ErrorIs(t, err, api.ErrUnauthenticated)
		mockRepo.AssertExpectations(t)
	})
}

func TestRegister(t *testing.T) {
	mockRepo := new(MockAuthRepo)
	service := NewAuthService(mockRepo, testConfig(), slog.Default())

	t.Run("Success", func(t *testing.T) {
		ctx := context.Background()

		// The exact hash is unpredictable, match on type only
		mockRepo.On("Register", ctx, "newuser", "new@example.com", mock.AnythingOfType("string")).Return("new-user-id", nil).Once()

		err := service.Register(ctx, "newuser", "new@example.com", "password123")

		assert.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})

	t.Run("EmailExists", func(t *testing.T) {
		ctx := context.Background()

		mockRepo.On("Register", ctx, "existinguser", "existing@example.com", mock.AnythingOfType("string")).Return("", api.ErrConflict).Once()

		err := service.Register(ctx, "existinguser", "existing@example.com", "password123")

		assert.Error(t, err)
		assert.ErrorIs(t, err, api.ErrConflict)
		mockRepo.AssertExpectations(t)
	})
}

func TestRefreshSession(t *testing.T) {
	mockRepo := new(MockAuthRepo)
	service := NewAuthService(mockRepo, testConfig(), slog.Default())

	t.Run("RotatesToken", func(t *testing.T) {
		ctx := context.Background()
		user := &User{ID: "user123", Username: "testuser", Email: "test@example.com"}

		mockRepo.On("ValidateRefreshTokenAndGetUserID", ctx, "old-token").Return(user.ID, nil).Once()
		mockRepo.On("GetUserByID", ctx, user.ID).Return(user, nil).Once()
		mockRepo.On("InvalidateRefreshToken", ctx, "old-token").Return(nil).Once()
		mockRepo.On("StoreRefreshToken", ctx, user.ID, mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).Return(nil).Once()

		accessToken, newRefreshToken, err := service.RefreshSession(ctx, "old-token")

		assert.NoError(t, err)
		assert.NotEmpty(t, accessToken)
		assert.NotEmpty(t, newRefreshToken)
		assert.NotEqual(t, "old-token", newRefreshToken)
		mockRepo.AssertExpectations(t)
	})

	t.Run("RejectedToken", func(t *testing.T) {
		ctx := context.Background()

		mockRepo.On("ValidateRefreshTokenAndGetUserID", ctx, "bogus").Return("", api.ErrUnauthenticated).Once()

		_, _, err := service.RefreshSession(ctx, "bogus")

		assert.ErrorIs(t, err, api.ErrUnauthenticated)
		mockRepo.AssertExpectations(t)
	})
}

func TestLogout(t *testing.T) {
	mockRepo := new(MockAuthRepo)
	service := NewAuthService(mockRepo, testConfig(), slog.Default())

	t.Run("Success", func(t *testing.T) {
		ctx := context.Background()

		mockRepo.On("InvalidateRefreshToken", ctx, "valid-refresh-token").Return(nil).Once()

		err := service.Logout(ctx, "valid-refresh-token")

		assert.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})

	t.Run("Error", func(t *testing.T) {
		ctx := context.Background()
		expectedError := errors.New("database error")

		mockRepo.On("InvalidateRefreshToken", ctx, "invalid-refresh-token").Return(expectedError).Once()

		err := service.Logout(ctx, "invalid-refresh-token")

		assert.Error(t, err)
		assert.Contains(t, err.Error(), expectedError.Error())
		mockRepo.AssertExpectations(t)
	})
}

func TestUpdatePassword(t *testing.T) {
	mockRepo := new(MockAuthRepo)
	service := NewAuthService(mockRepo, testConfig(), slog.Default())

	t.Run("RevokesTokensOnSuccess", func(t *testing.T) {
		ctx := context.Background()
		oldHash, _ := bcrypt.GenerateFromPassword([]byte("oldpassword"), bcrypt.DefaultCost)
		user := &User{ID: "user123", Password: string(oldHash)}

		mockRepo.On("GetUserByID", ctx, user.ID).Return(user, nil).Once()
		mockRepo.On("UpdatePassword", ctx, user.ID, mock.AnythingOfType("string")).Return(nil).Once()
		mockRepo.On("InvalidateAllUserRefreshTokens", ctx, user.ID).Return(nil).Once()

		err := service.UpdatePassword(ctx, user.ID, "oldpassword", "newpassword123")

		assert.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})

	t.Run("WrongOldPassword", func(t *testing.T) {
		ctx := context.Background()
		oldHash, _ := bcrypt.GenerateFromPassword([]byte("oldpassword"), bcrypt.DefaultCost)
		user := &User{ID: "user123", Password: string(oldHash)}

		mockRepo.On("GetUserByID", ctx, user.ID).Return(user, nil).Once()

		err := service.UpdatePassword(ctx, user.ID, "not-the-old-password", "newpassword123")

		assert.ErrorIs(t, err, api.ErrUnauthenticated)
		mockRepo.AssertExpectations(t)
	})
}
