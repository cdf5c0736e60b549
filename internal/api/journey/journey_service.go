package journey

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wayfarerhq/wayfarer-api/app/observability/metrics"
	"github.com/wayfarerhq/wayfarer-api/internal/types"
)

var _ Service = (*ServiceImpl)(nil)

// Service exposes journey planning operations. Itineraries handed out are
// always normalized: total, day-indexed, with defaults filled in.
type Service interface {
	CreateJourney(ctx context.Context, userID string, req types.CreateJourneyRequest) (string, error)
	ListJourneys(ctx context.Context, userID string) ([]types.JourneySummary, error)
	GetItinerary(ctx context.Context, userID, journeyID string) (types.Journey, error)
	GetMarkers(ctx context.Context, userID, journeyID string) ([]types.Marker, error)
	UpdateJourney(ctx context.Context, userID, journeyID string, req types.UpdateJourneyRequest) error
	DeleteJourney(ctx context.Context, userID, journeyID string) error
	AddDay(ctx context.Context, userID, journeyID string) (types.Journey, error)
	AddStop(ctx context.Context, userID, journeyID string, req types.AddStopRequest) (string, error)
	UpdateStop(ctx context.Context, userID, journeyID, stopID string, req types.UpdateStopRequest) error
	RemoveStop(ctx context.Context, userID, journeyID, stopID string) error
	ImportJourney(ctx context.Context, userID string, payload types.APIJourney) (types.Journey, error)
}

type ServiceImpl struct {
	logger *slog.Logger
	repo   Repository

	// now is the single clock read; the normalizer itself takes the
	// reference date as a parameter, so tests pin this field.
	now func() time.Time
}

func NewJourneyService(repo Repository, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger: logger,
		repo:   repo,
		now:    time.Now,
	}
}

func (s *ServiceImpl) today() types.CalendarDate {
	return types.CalendarDateOf(s.now())
}

func (s *ServiceImpl) CreateJourney(ctx context.Context, userID string, req types.CreateJourneyRequest) (string, error) {
	ctx, span := otel.Tracer("JourneyService").Start(ctx, "CreateJourney")
	defer span.End()

	l := s.logger.With(slog.String("method", "CreateJourney"), slog.String("userID", userID))

	id, err := s.repo.CreateJourney(ctx, userID, req)
	if err != nil {
		l.ErrorContext(ctx, "Failed to create journey", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Create failed")
		return "", fmt.Errorf("create journey: %w", err)
	}

	l.InfoContext(ctx, "Journey created", slog.String("journeyID", id))
	span.SetStatus(codes.Ok, "Journey created")
	return id, nil
}

func (s *ServiceImpl) ListJourneys(ctx context.Context, userID string) ([]types.JourneySummary, error) {
	ctx, span := otel.Tracer("JourneyService").Start(ctx, "ListJourneys")
	defer span.End()

	summaries, err := s.repo.ListJourneys(ctx, userID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list journeys", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "List failed")
		return nil, fmt.Errorf("list journeys: %w", err)
	}
	span.SetAttributes(attribute.Int("journeys.count", len(summaries)))
	span.SetStatus(codes.Ok, "Journeys listed")
	return summaries, nil
}

// GetItinerary fetches the raw journey and derives the normalized,
// day-indexed itinerary from it. The reference date for coercion is read
// once, here, and threaded through the pure core.
func (s *ServiceImpl) GetItinerary(ctx context.Context, userID, journeyID string) (types.Journey, error) {
	ctx, span := otel.Tracer("JourneyService").Start(ctx, "GetItinerary")
	defer span.End()
	span.SetAttributes(attribute.String("journey.id", journeyID))

	started := s.now()

	raw, err := s.repo.GetJourney(ctx, userID, journeyID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Fetch failed")
		return types.Journey{}, fmt.Errorf("get itinerary: %w", err)
	}

	itinerary := FromAPIJourney(raw, s.today())

	if m := metrics.Get(); m != nil {
		m.ItineraryBuildsTotal.Add(ctx, 1)
		m.ItineraryBuildDurationSecs.Record(ctx, time.Since(started).Seconds())
	}

	span.SetAttributes(attribute.Int("itinerary.days", len(itinerary.Days)))
	span.SetStatus(codes.Ok, "Itinerary derived")
	return itinerary, nil
}

func (s *ServiceImpl) GetMarkers(ctx context.Context, userID, journeyID string) ([]types.Marker, error) {
	ctx, span := otel.Tracer("JourneyService").Start(ctx, "GetMarkers")
	defer span.End()

	itinerary, err := s.GetItinerary(ctx, userID, journeyID)
	if err != nil {
		span.SetStatus(codes.Error, "Itinerary fetch failed")
		return nil, err
	}
	markers := BuildMarkers(itinerary)
	span.SetAttributes(attribute.Int("markers.count", len(markers)))
	span.SetStatus(codes.Ok, "Markers derived")
	return markers, nil
}

func (s *ServiceImpl) UpdateJourney(ctx context.Context, userID, journeyID string, req types.UpdateJourneyRequest) error {
	ctx, span := otel.Tracer("JourneyService").Start(ctx, "UpdateJourney")
	defer span.End()

	if err := s.repo.UpdateJourney(ctx, userID, journeyID, req); err != nil {
		s.logger.ErrorContext(ctx, "Failed to update journey", slog.String("journeyID", journeyID), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Update failed")
		return fmt.Errorf("update journey: %w", err)
	}
	span.SetStatus(codes.Ok, "Journey updated")
	return nil
}

func (s *ServiceImpl) DeleteJourney(ctx context.Context, userID, journeyID string) error {
	ctx, span := otel.Tracer("JourneyService").Start(ctx, "DeleteJourney")
	defer span.End()

	if err := s.repo.DeleteJourney(ctx, userID, journeyID); err != nil {
		s.logger.ErrorContext(ctx, "Failed to delete journey", slog.String("journeyID", journeyID), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Delete failed")
		return fmt.Errorf("delete journey: %w", err)
	}
	s.logger.InfoContext(ctx, "Journey deleted", slog.String("journeyID", journeyID))
	span.SetStatus(codes.Ok, "Journey deleted")
	return nil
}

// AddDay extends the journey's span by one day at the end. Missing dates are
// coerced to today first, the same rule the itinerary derivation applies, so
// adding a day to a dateless journey yields today..tomorrow.
func (s *ServiceImpl) AddDay(ctx context.Context, userID, journeyID string) (types.Journey, error) {
	ctx, span := otel.Tracer("JourneyService").Start(ctx, "AddDay")
	defer span.End()

	raw, err := s.repo.GetJourney(ctx, userID, journeyID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Fetch failed")
		return types.Journey{}, fmt.Errorf("add day: %w", err)
	}

	today := s.today()
	start := types.CoerceCalendarDate(deref(raw.StartDate), today)
	end := types.CoerceCalendarDate(deref(raw.EndDate), today)
	if end.Before(start) {
		start, end = end, start
	}
	end = end.AddDays(1)

	if err := s.repo.SetJourneyDates(ctx, userID, journeyID, start, end); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Date update failed")
		return types.Journey{}, fmt.Errorf("add day: %w", err)
	}

	newStart, newEnd := start.String(), end.String()
	raw.StartDate, raw.EndDate = &newStart, &newEnd
	itinerary := FromAPIJourney(raw, today)

	span.SetStatus(codes.Ok, "Day added")
	return itinerary, nil
}

func (s *ServiceImpl) AddStop(ctx context.Context, userID, journeyID string, req types.AddStopRequest) (string, error) {
	ctx, span := otel.Tracer("JourneyService").Start(ctx, "AddStop")
	defer span.End()

	stopID, err := s.repo.AddStop(ctx, userID, journeyID, req)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to add stop", slog.String("journeyID", journeyID), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Add stop failed")
		return "", fmt.Errorf("add stop: %w", err)
	}
	span.SetStatus(codes.Ok, "Stop added")
	return stopID, nil
}

func (s *ServiceImpl) UpdateStop(ctx context.Context, userID, journeyID, stopID string, req types.UpdateStopRequest) error {
	ctx, span := otel.Tracer("JourneyService").Start(ctx, "UpdateStop")
	defer span.End()

	if err := s.repo.UpdateStop(ctx, userID, journeyID, stopID, req); err != nil {
		s.logger.ErrorContext(ctx, "Failed to update stop", slog.String("stopID", stopID), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Update stop failed")
		return fmt.Errorf("update stop: %w", err)
	}
	span.SetStatus(codes.Ok, "Stop updated")
	return nil
}

func (s *ServiceImpl) RemoveStop(ctx context.Context, userID, journeyID, stopID string) error {
	ctx, span := otel.Tracer("JourneyService").Start(ctx, "RemoveStop")
	defer span.End()

	if err := s.repo.RemoveStop(ctx, userID, journeyID, stopID); err != nil {
		s.logger.ErrorContext(ctx, "Failed to remove stop", slog.String("stopID", stopID), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Remove stop failed")
		return fmt.Errorf("remove stop: %w", err)
	}
	span.SetStatus(codes.Ok, "Stop removed")
	return nil
}

// ImportJourney persists an external raw payload and returns the normalized
// itinerary derived from what was stored. Fields the database cannot hold
// as-is (dates, budget) are sanitized to NULL when unparseable; the read
// path then coerces them to defaults, which is exactly what it would have
// done with the unparseable original. Latitude/longitude stay raw.
func (s *ServiceImpl) ImportJourney(ctx context.Context, userID string, payload types.APIJourney) (types.Journey, error) {
	ctx, span := otel.Tracer("JourneyService").Start(ctx, "ImportJourney")
	defer span.End()

	l := s.logger.With(slog.String("method", "ImportJourney"), slog.String("userID", userID))

	sanitized := sanitizeImport(payload)
	journeyID, err := s.repo.ImportJourney(ctx, userID, sanitized)
	if err != nil {
		l.ErrorContext(ctx, "Failed to import journey", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Import failed")
		return types.Journey{}, fmt.Errorf("import journey: %w", err)
	}

	itinerary, err := s.GetItinerary(ctx, userID, journeyID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Post-import fetch failed")
		return types.Journey{}, err
	}

	l.InfoContext(ctx, "Journey imported", slog.String("journeyID", journeyID), slog.Int("stops", len(payload.Stops)))
	span.SetStatus(codes.Ok, "Journey imported")
	return itinerary, nil
}

// sanitizeImport clears values the typed columns would reject. Unparseable
// dates become NULL and a non-numeric budget becomes NULL.
func sanitizeImport(payload types.APIJourney) types.APIJourney {
	payload.StartDate = sanitizeDate(payload.StartDate)
	payload.EndDate = sanitizeDate(payload.EndDate)
	if payload.Budget != nil {
		if _, err := decimal.NewFromString(*payload.Budget); err != nil {
			payload.Budget = nil
		}
	}
	stops := make([]types.APIStop, len(payload.Stops))
	copy(stops, payload.Stops)
	for i := range stops {
		stops[i].StartDate = sanitizeDate(stops[i].StartDate)
		stops[i].EndDate = sanitizeDate(stops[i].EndDate)
	}
	payload.Stops = stops
	return payload
}

func sanitizeDate(raw *string) *string {
	if raw == nil {
		return nil
	}
	d := types.CoerceCalendarDate(*raw, "")
	if d.IsZero() {
		return nil
	}
	s := d.String()
	return &s
}
