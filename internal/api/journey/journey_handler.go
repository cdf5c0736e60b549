package journey

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wayfarerhq/wayfarer-api/internal/api"
	"github.com/wayfarerhq/wayfarer-api/internal/api/auth"
	"github.com/wayfarerhq/wayfarer-api/internal/types"
)

type JourneyHandler struct {
	logger  *slog.Logger
	service Service
	loader  *Loader
}

func NewJourneyHandler(service Service, loader *Loader, logger *slog.Logger) *JourneyHandler {
	return &JourneyHandler{
		logger:  logger,
		service: service,
		loader:  loader,
	}
}

// requestIDs pulls the authenticated user and the journeyID route param,
// writing the error response itself when either is unusable.
func (h *JourneyHandler) requestIDs(w http.ResponseWriter, r *http.Request, span trace.Span) (userID, journeyID string, ok bool) {
	ctx := r.Context()

	userID, found := auth.GetUserIDFromContext(ctx)
	if !found || userID == "" {
		span.SetStatus(codes.Error, "Unauthorized - User ID missing")
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return "", "", false
	}

	journeyID = chi.URLParam(r, "journeyID")
	if _, err := uuid.Parse(journeyID); err != nil {
		span.SetStatus(codes.Error, "Invalid journey ID")
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid journey ID format")
		return "", "", false
	}
	span.SetAttributes(attribute.String("journey.id", journeyID))
	return userID, journeyID, true
}

func (h *JourneyHandler) mapServiceError(w http.ResponseWriter, r *http.Request, span trace.Span, err error, fallback string) {
	span.RecordError(err)
	switch {
	case errors.Is(err, api.ErrNotFound):
		span.SetStatus(codes.Error, "Not found")
		api.ErrorResponse(w, r, http.StatusNotFound, "Journey not found")
	case errors.Is(err, api.ErrValidation):
		span.SetStatus(codes.Error, "Validation failed")
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
	default:
		span.SetStatus(codes.Error, fallback)
		api.ErrorResponse(w, r, http.StatusInternalServerError, fallback)
	}
}

func (h *JourneyHandler) CreateJourney(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("JourneyHandler").Start(r.Context(), "CreateJourney")
	defer span.End()
	l := h.logger.With(slog.String("handler", "CreateJourney"))

	userID, ok := auth.GetUserIDFromContext(ctx)
	if !ok || userID == "" {
		span.SetStatus(codes.Error, "Unauthorized - User ID missing")
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req types.CreateJourneyRequest
	if err := api.DecodeAndValidate(w, r, &req); err != nil {
		l.WarnContext(ctx, "Invalid create journey request", slog.Any("error", err))
		span.SetStatus(codes.Error, "Bad request")
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	id, err := h.service.CreateJourney(ctx, userID, req)
	if err != nil {
		l.ErrorContext(ctx, "Failed to create journey", slog.Any("error", err))
		h.mapServiceError(w, r, span, err, "Failed to create journey")
		return
	}

	span.SetStatus(codes.Ok, "Journey created")
	api.WriteJSONResponse(w, r, http.StatusCreated, map[string]string{"id": id})
}

func (h *JourneyHandler) ListJourneys(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("JourneyHandler").Start(r.Context(), "ListJourneys")
	defer span.End()
	l := h.logger.With(slog.String("handler", "ListJourneys"))

	userID, ok := auth.GetUserIDFromContext(ctx)
	if !ok || userID == "" {
		span.SetStatus(codes.Error, "Unauthorized - User ID missing")
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	summaries, err := h.service.ListJourneys(ctx, userID)
	if err != nil {
		l.ErrorContext(ctx, "Failed to list journeys", slog.Any("error", err))
		h.mapServiceError(w, r, span, err, "Failed to list journeys")
		return
	}

	span.SetStatus(codes.Ok, "Journeys listed")
	api.WriteJSONResponse(w, r, http.StatusOK, summaries)
}

func (h *JourneyHandler) GetJourney(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("JourneyHandler").Start(r.Context(), "GetJourney")
	defer span.End()
	l := h.logger.With(slog.String("handler", "GetJourney"))

	userID, journeyID, ok := h.requestIDs(w, r, span)
	if !ok {
		return
	}

	itinerary, err := h.service.GetItinerary(ctx, userID, journeyID)
	if err != nil {
		l.WarnContext(ctx, "Failed to get journey", slog.String("journeyID", journeyID), slog.Any("error", err))
		h.mapServiceError(w, r, span, err, "Failed to get journey")
		return
	}

	span.SetStatus(codes.Ok, "Journey fetched")
	api.WriteJSONResponse(w, r, http.StatusOK, itinerary)
}

// GetItinerary serves the day-indexed itinerary through the latest-wins
// loader. A load beaten by a newer request for the same journey answers
// 409 so the client retries with fresh state instead of rendering stale data.
func (h *JourneyHandler) GetItinerary(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("JourneyHandler").Start(r.Context(), "GetItinerary")
	defer span.End()
	l := h.logger.With(slog.String("handler", "GetItinerary"))

	userID, journeyID, ok := h.requestIDs(w, r, span)
	if !ok {
		return
	}

	itinerary, err := h.loader.Load(ctx, userID, journeyID)
	if err != nil {
		if errors.Is(err, ErrSuperseded) {
			span.SetStatus(codes.Error, "Superseded")
			api.ErrorResponse(w, r, http.StatusConflict, "A newer itinerary request superseded this one")
			return
		}
		l.WarnContext(ctx, "Failed to load itinerary", slog.String("journeyID", journeyID), slog.Any("error", err))
		h.mapServiceError(w, r, span, err, "Failed to load itinerary")
		return
	}

	span.SetStatus(codes.Ok, "Itinerary loaded")
	api.WriteJSONResponse(w, r, http.StatusOK, itinerary)
}

func (h *JourneyHandler) GetMarkers(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("JourneyHandler").Start(r.Context(), "GetMarkers")
	defer span.End()
	l := h.logger.With(slog.String("handler", "GetMarkers"))

	userID, journeyID, ok := h.requestIDs(w, r, span)
	if !ok {
		return
	}

	markers, err := h.service.GetMarkers(ctx, userID, journeyID)
	if err != nil {
		l.WarnContext(ctx, "Failed to get markers", slog.String("journeyID", journeyID), slog.Any("error", err))
		h.mapServiceError(w, r, span, err, "Failed to get markers")
		return
	}

	span.SetStatus(codes.Ok, "Markers fetched")
	api.WriteJSONResponse(w, r, http.StatusOK, markers)
}

func (h *JourneyHandler) UpdateJourney(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("JourneyHandler").Start(r.Context(), "UpdateJourney")
	defer span.End()
	l := h.logger.With(slog.String("handler", "UpdateJourney"))

	userID, journeyID, ok := h.requestIDs(w, r, span)
	if !ok {
		return
	}

	var req types.UpdateJourneyRequest
	if err := api.DecodeAndValidate(w, r, &req); err != nil {
		l.WarnContext(ctx, "Invalid update journey request", slog.Any("error", err))
		span.SetStatus(codes.Error, "Bad request")
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.service.UpdateJourney(ctx, userID, journeyID, req); err != nil {
		l.WarnContext(ctx, "Failed to update journey", slog.String("journeyID", journeyID), slog.Any("error", err))
		h.mapServiceError(w, r, span, err, "Failed to update journey")
		return
	}
	h.loader.Invalidate(userID, journeyID)

	span.SetStatus(codes.Ok, "Journey updated")
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]string{"message": "Journey updated"})
}

func (h *JourneyHandler) DeleteJourney(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("JourneyHandler").Start(r.Context(), "DeleteJourney")
	defer span.End()
	l := h.logger.With(slog.String("handler", "DeleteJourney"))

	userID, journeyID, ok := h.requestIDs(w, r, span)
	if !ok {
		return
	}

	if err := h.service.DeleteJourney(ctx, userID, journeyID); err != nil {
		l.WarnContext(ctx, "Failed to delete journey", slog.String("journeyID", journeyID), slog.Any("error", err))
		h.mapServiceError(w, r, span, err, "Failed to delete journey")
		return
	}
	h.loader.Invalidate(userID, journeyID)

	span.SetStatus(codes.Ok, "Journey deleted")
	w.WriteHeader(http.StatusNoContent)
}

func (h *JourneyHandler) AddDay(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("JourneyHandler").Start(r.Context(), "AddDay")
	defer span.End()
	l := h.logger.With(slog.String("handler", "AddDay"))

	userID, journeyID, ok := h.requestIDs(w, r, span)
	if !ok {
		return
	}

	itinerary, err := h.service.AddDay(ctx, userID, journeyID)
	if err != nil {
		l.WarnContext(ctx, "Failed to add day", slog.String("journeyID", journeyID), slog.Any("error", err))
		h.mapServiceError(w, r, span, err, "Failed to add day")
		return
	}
	h.loader.Invalidate(userID, journeyID)

	span.SetStatus(codes.Ok, "Day added")
	api.WriteJSONResponse(w, r, http.StatusOK, itinerary)
}

func (h *JourneyHandler) AddStop(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("JourneyHandler").Start(r.Context(), "AddStop")
	defer span.End()
	l := h.logger.With(slog.String("handler", "AddStop"))

	userID, journeyID, ok := h.requestIDs(w, r, span)
	if !ok {
		return
	}

	var req types.AddStopRequest
	if err := api.DecodeAndValidate(w, r, &req); err != nil {
		l.WarnContext(ctx, "Invalid add stop request", slog.Any("error", err))
		span.SetStatus(codes.Error, "Bad request")
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	stopID, err := h.service.AddStop(ctx, userID, journeyID, req)
	if err != nil {
		l.WarnContext(ctx, "Failed to add stop", slog.String("journeyID", journeyID), slog.Any("error", err))
		h.mapServiceError(w, r, span, err, "Failed to add stop")
		return
	}
	h.loader.Invalidate(userID, journeyID)

	span.SetStatus(codes.Ok, "Stop added")
	api.WriteJSONResponse(w, r, http.StatusCreated, map[string]string{"id": stopID})
}

func (h *JourneyHandler) UpdateStop(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("JourneyHandler").Start(r.Context(), "UpdateStop")
	defer span.End()
	l := h.logger.With(slog.String("handler", "UpdateStop"))

	userID, journeyID, ok := h.requestIDs(w, r, span)
	if !ok {
		return
	}

	stopID := chi.URLParam(r, "stopID")
	if _, err := uuid.Parse(stopID); err != nil {
		span.SetStatus(codes.Error, "Invalid stop ID")
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid stop ID format")
		return
	}

	var req types.UpdateStopRequest
	if err := api.DecodeAndValidate(w, r, &req); err != nil {
		l.WarnContext(ctx, "Invalid update stop request", slog.Any("error", err))
		span.SetStatus(codes.Error, "Bad request")
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.service.UpdateStop(ctx, userID, journeyID, stopID, req); err != nil {
		l.WarnContext(ctx, "Failed to update stop", slog.String("stopID", stopID), slog.Any("error", err))
		h.mapServiceError(w, r, span, err, "Failed to update stop")
		return
	}
	h.loader.Invalidate(userID, journeyID)

	span.SetStatus(codes.Ok, "Stop updated")
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]string{"message": "Stop updated"})
}

func (h *JourneyHandler) RemoveStop(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("JourneyHandler").Start(r.Context(), "RemoveStop")
	defer span.End()
	l := h.logger.With(slog.String("handler", "RemoveStop"))

	userID, journeyID, ok := h.requestIDs(w, r, span)
	if !ok {
		return
	}

	stopID := chi.URLParam(r, "stopID")
	if _, err := uuid.Parse(stopID); err != nil {
		span.SetStatus(codes.Error, "Invalid stop ID")
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid stop ID format")
		return
	}

	if err := h.service.RemoveStop(ctx, userID, journeyID, stopID); err != nil {
		l.WarnContext(ctx, "Failed to remove stop", slog.String("stopID", stopID), slog.Any("error", err))
		h.mapServiceError(w, r, span, err, "Failed to remove stop")
		return
	}
	h.loader.Invalidate(userID, journeyID)

	span.SetStatus(codes.Ok, "Stop removed")
	w.WriteHeader(http.StatusNoContent)
}

// ImportJourney accepts a whole raw journey payload, persists it, and
// returns the normalized itinerary. The payload is deliberately loose; the
// normalizer's defaults absorb whatever is missing or malformed.
func (h *JourneyHandler) ImportJourney(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("JourneyHandler").Start(r.Context(), "ImportJourney")
	defer span.End()
	l := h.logger.With(slog.String("handler", "ImportJourney"))

	userID, ok := auth.GetUserIDFromContext(ctx)
	if !ok || userID == "" {
		span.SetStatus(codes.Error, "Unauthorized - User ID missing")
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	var payload types.APIJourney
	if err := api.DecodeJSONBody(w, r, &payload); err != nil {
		l.WarnContext(ctx, "Invalid import payload", slog.Any("error", err))
		span.SetStatus(codes.Error, "Bad request")
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	itinerary, err := h.service.ImportJourney(ctx, userID, payload)
	if err != nil {
		l.ErrorContext(ctx, "Failed to import journey", slog.Any("error", err))
		h.mapServiceError(w, r, span, err, "Failed to import journey")
		return
	}

	span.SetStatus(codes.Ok, "Journey imported")
	api.WriteJSONResponse(w, r, http.StatusCreated, itinerary)
}
