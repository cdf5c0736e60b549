package journey

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/wayfarerhq/wayfarer-api/app/observability/metrics"
	"github.com/wayfarerhq/wayfarer-api/internal/api"
	"github.com/wayfarerhq/wayfarer-api/internal/types"
)

var _ Repository = (*PostgresJourneyRepo)(nil)

// Repository defines persistence operations for journeys, their stops, and
// stop media. Every operation is scoped to the owning user; a journey that
// exists but belongs to someone else reads as ErrNotFound.
type Repository interface {
	CreateJourney(ctx context.Context, userID string, req types.CreateJourneyRequest) (string, error)
	GetJourney(ctx context.Context, userID, journeyID string) (types.APIJourney, error)
	ListJourneys(ctx context.Context, userID string) ([]types.JourneySummary, error)
	UpdateJourney(ctx context.Context, userID, journeyID string, req types.UpdateJourneyRequest) error
	SetJourneyDates(ctx context.Context, userID, journeyID string, start, end types.CalendarDate) error
	DeleteJourney(ctx context.Context, userID, journeyID string) error
	AddStop(ctx context.Context, userID, journeyID string, req types.AddStopRequest) (string, error)
	UpdateStop(ctx context.Context, userID, journeyID, stopID string, req types.UpdateStopRequest) error
	RemoveStop(ctx context.Context, userID, journeyID, stopID string) error
	ImportJourney(ctx context.Context, userID string, payload types.APIJourney) (string, error)
}

// DBPool is the subset of pgxpool.Pool the repository needs.
type DBPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

type PostgresJourneyRepo struct {
	logger *slog.Logger
	pgpool DBPool
}

func NewPostgresJourneyRepo(pgpool DBPool, logger *slog.Logger) *PostgresJourneyRepo {
	return &PostgresJourneyRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

func (r *PostgresJourneyRepo) countQueryError(ctx context.Context, op string, err error) {
	r.logger.ErrorContext(ctx, "Journey repo query failed", slog.String("op", op), slog.Any("error", err))
	if m := metrics.Get(); m != nil {
		m.DbQueryErrorsTotal.Add(ctx, 1)
	}
}

func (r *PostgresJourneyRepo) CreateJourney(ctx context.Context, userID string, req types.CreateJourneyRequest) (string, error) {
	query := `
        INSERT INTO journeys (user_id, name, start_location, end_location, start_date, end_date, who, budget)
        VALUES ($1, $2, $3, $4, $5::date, $6::date, $7, $8::numeric)
        RETURNING id
    `
	var id string
	err := r.pgpool.QueryRow(ctx, query,
		userID,
		nullIfEmpty(req.Name),
		nullIfEmpty(req.StartLocation),
		nullIfEmpty(req.EndLocation),
		nullIfEmpty(req.StartDate),
		nullIfEmpty(req.EndDate),
		nullIfEmpty(req.Who),
		req.Budget,
	).Scan(&id)
	if err != nil {
		r.countQueryError(ctx, "CreateJourney", err)
		return "", fmt.Errorf("failed to create journey: %w", err)
	}
	return id, nil
}

// GetJourney hydrates the raw journey shape: the journey row, its stops in
// itinerary order, and their media. Dates and budget come back as text so
// the normalizer owns all interpretation.
func (r *PostgresJourneyRepo) GetJourney(ctx context.Context, userID, journeyID string) (types.APIJourney, error) {
	journeyQuery := `
        SELECT id, name, start_location, end_location,
               to_char(start_date, 'YYYY-MM-DD'), to_char(end_date, 'YYYY-MM-DD'),
               who, budget::text
        FROM journeys
        WHERE id = $1 AND user_id = $2
    `
	var j types.APIJourney
	err := r.pgpool.QueryRow(ctx, journeyQuery, journeyID, userID).Scan(
		&j.ID, &j.Title, &j.StartLocation, &j.EndLocation,
		&j.StartDate, &j.EndDate, &j.Who, &j.Budget,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return types.APIJourney{}, fmt.Errorf("journey %s: %w", journeyID, api.ErrNotFound)
		}
		r.countQueryError(ctx, "GetJourney", err)
		return types.APIJourney{}, fmt.Errorf("failed to get journey: %w", err)
	}

	stops, err := r.getStops(ctx, journeyID)
	if err != nil {
		return types.APIJourney{}, err
	}
	j.Stops = stops
	return j, nil
}

func (r *PostgresJourneyRepo) getStops(ctx context.Context, journeyID string) ([]types.APIStop, error) {
	stopsQuery := `
        SELECT id, title, category_name, category_id, latitude, longitude, notes, travel_mode,
               to_char(start_date, 'YYYY-MM-DD'), to_char(end_date, 'YYYY-MM-DD')
        FROM journey_stops
        WHERE journey_id = $1
        ORDER BY start_date ASC NULLS LAST, position ASC, created_at ASC
    `
	rows, err := r.pgpool.Query(ctx, stopsQuery, journeyID)
	if err != nil {
		r.countQueryError(ctx, "GetJourney.stops", err)
		return nil, fmt.Errorf("failed to get journey stops: %w", err)
	}
	defer rows.Close()

	stops := make([]types.APIStop, 0)
	for rows.Next() {
		var s types.APIStop
		if err := rows.Scan(
			&s.ID, &s.Title, &s.CategoryName, &s.CategoryID,
			&s.Latitude, &s.Longitude, &s.Notes, &s.Mode,
			&s.StartDate, &s.EndDate,
		); err != nil {
			r.countQueryError(ctx, "GetJourney.stops.scan", err)
			return nil, fmt.Errorf("failed to scan journey stop: %w", err)
		}
		stops = append(stops, s)
	}
	if err := rows.Err(); err != nil {
		r.countQueryError(ctx, "GetJourney.stops.rows", err)
		return nil, fmt.Errorf("failed reading journey stops: %w", err)
	}

	if len(stops) == 0 {
		return stops, nil
	}

	mediaQuery := `
        SELECT m.stop_id, m.url, m.mime_type
        FROM stop_media m
        JOIN journey_stops s ON s.id = m.stop_id
        WHERE s.journey_id = $1
        ORDER BY m.stop_id, m.position
    `
	mediaRows, err := r.pgpool.Query(ctx, mediaQuery, journeyID)
	if err != nil {
		r.countQueryError(ctx, "GetJourney.media", err)
		return nil, fmt.Errorf("failed to get stop media: %w", err)
	}
	defer mediaRows.Close()

	mediaByStop := make(map[string][]types.APIMedium)
	for mediaRows.Next() {
		var stopID string
		var m types.APIMedium
		if err := mediaRows.Scan(&stopID, &m.URL, &m.Type); err != nil {
			r.countQueryError(ctx, "GetJourney.media.scan", err)
			return nil, fmt.Errorf("failed to scan stop media: %w", err)
		}
		mediaByStop[stopID] = append(mediaByStop[stopID], m)
	}
	if err := mediaRows.Err(); err != nil {
		r.countQueryError(ctx, "GetJourney.media.rows", err)
		return nil, fmt.Errorf("failed reading stop media: %w", err)
	}

	for i := range stops {
		stops[i].Media = mediaByStop[stops[i].ID]
	}
	return stops, nil
}

func (r *PostgresJourneyRepo) ListJourneys(ctx context.Context, userID string) ([]types.JourneySummary, error) {
	query := `
        SELECT j.id,
               COALESCE(j.name, 'Untitled Journey'),
               COALESCE(j.start_location, 'Unknown'),
               COALESCE(j.end_location, 'Unknown'),
               to_char(j.start_date, 'YYYY-MM-DD'),
               to_char(j.end_date, 'YYYY-MM-DD'),
               COALESCE(j.who, 'couple'),
               COALESCE(j.budget, 1000)::text,
               count(s.id),
               j.created_at, j.updated_at
        FROM journeys j
        LEFT JOIN journey_stops s ON s.journey_id = j.id
        WHERE j.user_id = $1
        GROUP BY j.id
        ORDER BY j.created_at DESC
    `
	rows, err := r.pgpool.Query(ctx, query, userID)
	if err != nil {
		r.countQueryError(ctx, "ListJourneys", err)
		return nil, fmt.Errorf("failed to list journeys: %w", err)
	}
	defer rows.Close()

	summaries := make([]types.JourneySummary, 0)
	for rows.Next() {
		var s types.JourneySummary
		var startDate, endDate *string
		var budget string
		if err := rows.Scan(
			&s.ID, &s.JourneyName, &s.StartingPoint, &s.EndingPoint,
			&startDate, &endDate, &s.Who, &budget,
			&s.StopCount, &s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			r.countQueryError(ctx, "ListJourneys.scan", err)
			return nil, fmt.Errorf("failed to scan journey summary: %w", err)
		}
		if startDate != nil {
			s.StartDate = types.CalendarDate(*startDate)
		}
		if endDate != nil {
			s.EndDate = types.CalendarDate(*endDate)
		}
		if d, err := decimal.NewFromString(budget); err == nil {
			s.Budget = d
		} else {
			s.Budget = types.DefaultBudget
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		r.countQueryError(ctx, "ListJourneys.rows", err)
		return nil, fmt.Errorf("failed reading journeys: %w", err)
	}
	return summaries, nil
}

func (r *PostgresJourneyRepo) UpdateJourney(ctx context.Context, userID, journeyID string, req types.UpdateJourneyRequest) error {
	query := `
        UPDATE journeys SET
            name = COALESCE($3, name),
            start_location = COALESCE($4, start_location),
            end_location = COALESCE($5, end_location),
            start_date = COALESCE($6::date, start_date),
            end_date = COALESCE($7::date, end_date),
            who = COALESCE($8, who),
            budget = COALESCE($9::numeric, budget),
            updated_at = now()
        WHERE id = $1 AND user_id = $2
    `
	result, err := r.pgpool.Exec(ctx, query,
		journeyID, userID,
		req.Name, req.StartLocation, req.EndLocation,
		req.StartDate, req.EndDate, req.Who, req.Budget,
	)
	if err != nil {
		r.countQueryError(ctx, "UpdateJourney", err)
		return fmt.Errorf("failed to update journey: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("journey %s: %w", journeyID, api.ErrNotFound)
	}
	return nil
}

func (r *PostgresJourneyRepo) SetJourneyDates(ctx context.Context, userID, journeyID string, start, end types.CalendarDate) error {
	query := `
        UPDATE journeys SET start_date = $3::date, end_date = $4::date, updated_at = now()
        WHERE id = $1 AND user_id = $2
    `
	result, err := r.pgpool.Exec(ctx, query, journeyID, userID, start.String(), end.String())
	if err != nil {
		r.countQueryError(ctx, "SetJourneyDates", err)
		return fmt.Errorf("failed to set journey dates: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("journey %s: %w", journeyID, api.ErrNotFound)
	}
	return nil
}

func (r *PostgresJourneyRepo) DeleteJourney(ctx context.Context, userID, journeyID string) error {
	query := `DELETE FROM journeys WHERE id = $1 AND user_id = $2`
	result, err := r.pgpool.Exec(ctx, query, journeyID, userID)
	if err != nil {
		r.countQueryError(ctx, "DeleteJourney", err)
		return fmt.Errorf("failed to delete journey: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("journey %s: %w", journeyID, api.ErrNotFound)
	}
	return nil
}

func (r *PostgresJourneyRepo) verifyOwnership(ctx context.Context, tx pgx.Tx, userID, journeyID string) error {
	var one int
	err := tx.QueryRow(ctx, `SELECT 1 FROM journeys WHERE id = $1 AND user_id = $2`, journeyID, userID).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("journey %s: %w", journeyID, api.ErrNotFound)
		}
		r.countQueryError(ctx, "verifyOwnership", err)
		return fmt.Errorf("failed to verify journey ownership: %w", err)
	}
	return nil
}

func (r *PostgresJourneyRepo) AddStop(ctx context.Context, userID, journeyID string, req types.AddStopRequest) (string, error) {
	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		r.countQueryError(ctx, "AddStop.begin", err)
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := r.verifyOwnership(ctx, tx, userID, journeyID); err != nil {
		return "", err
	}

	insertStop := `
        INSERT INTO journey_stops
            (journey_id, title, category_name, category_id, latitude, longitude, notes, travel_mode, start_date, end_date, position)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::date, $10::date,
                (SELECT COALESCE(max(position), 0) + 1 FROM journey_stops WHERE journey_id = $1))
        RETURNING id
    `
	var stopID string
	err = tx.QueryRow(ctx, insertStop,
		journeyID,
		nullIfEmpty(req.Title),
		nullIfEmpty(req.CategoryName),
		req.CategoryID,
		req.Latitude,
		req.Longitude,
		nullIfEmpty(req.Notes),
		nullIfEmpty(string(req.Mode)),
		nullIfEmpty(req.StartDate),
		nullIfEmpty(req.EndDate),
	).Scan(&stopID)
	if err != nil {
		r.countQueryError(ctx, "AddStop.insert", err)
		return "", fmt.Errorf("failed to add stop: %w", err)
	}

	insertMedium := `INSERT INTO stop_media (stop_id, url, mime_type, position) VALUES ($1, $2, $3, $4)`
	for i, m := range req.Media {
		if _, err := tx.Exec(ctx, insertMedium, stopID, m.URL, m.Type, i); err != nil {
			r.countQueryError(ctx, "AddStop.media", err)
			return "", fmt.Errorf("failed to add stop media: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		r.countQueryError(ctx, "AddStop.commit", err)
		return "", fmt.Errorf("failed to commit stop: %w", err)
	}
	return stopID, nil
}

func (r *PostgresJourneyRepo) UpdateStop(ctx context.Context, userID, journeyID, stopID string, req types.UpdateStopRequest) error {
	query := `
        UPDATE journey_stops s SET
            title = COALESCE($4, s.title),
            category_name = COALESCE($5, s.category_name),
            category_id = COALESCE($6, s.category_id),
            latitude = COALESCE($7, s.latitude),
            longitude = COALESCE($8, s.longitude),
            notes = COALESCE($9, s.notes),
            travel_mode = COALESCE($10, s.travel_mode),
            start_date = COALESCE($11::date, s.start_date),
            end_date = COALESCE($12::date, s.end_date),
            updated_at = now()
        FROM journeys j
        WHERE s.id = $1 AND s.journey_id = $2 AND j.id = s.journey_id AND j.user_id = $3
    `
	result, err := r.pgpool.Exec(ctx, query,
		stopID, journeyID, userID,
		req.Title, req.CategoryName, req.CategoryID,
		req.Latitude, req.Longitude, req.Notes,
		req.Mode, req.StartDate, req.EndDate,
	)
	if err != nil {
		r.countQueryError(ctx, "UpdateStop", err)
		return fmt.Errorf("failed to update stop: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("stop %s: %w", stopID, api.ErrNotFound)
	}
	return nil
}

func (r *PostgresJourneyRepo) RemoveStop(ctx context.Context, userID, journeyID, stopID string) error {
	query := `
        DELETE FROM journey_stops s
        USING journeys j
        WHERE s.id = $1 AND s.journey_id = $2 AND j.id = s.journey_id AND j.user_id = $3
    `
	result, err := r.pgpool.Exec(ctx, query, stopID, journeyID, userID)
	if err != nil {
		r.countQueryError(ctx, "RemoveStop", err)
		return fmt.Errorf("failed to remove stop: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("stop %s: %w", stopID, api.ErrNotFound)
	}
	return nil
}

// ImportJourney persists a whole raw payload in one transaction. Values are
// stored exactly as the caller sanitized them; latitude/longitude in
// particular stay as received.
func (r *PostgresJourneyRepo) ImportJourney(ctx context.Context, userID string, payload types.APIJourney) (string, error) {
	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		r.countQueryError(ctx, "ImportJourney.begin", err)
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	insertJourney := `
        INSERT INTO journeys (user_id, name, start_location, end_location, start_date, end_date, who, budget)
        VALUES ($1, $2, $3, $4, $5::date, $6::date, $7, $8::numeric)
        RETURNING id
    `
	var journeyID string
	err = tx.QueryRow(ctx, insertJourney,
		userID, payload.Title, payload.StartLocation, payload.EndLocation,
		payload.StartDate, payload.EndDate, payload.Who, payload.Budget,
	).Scan(&journeyID)
	if err != nil {
		r.countQueryError(ctx, "ImportJourney.journey", err)
		return "", fmt.Errorf("failed to import journey: %w", err)
	}

	insertStop := `
        INSERT INTO journey_stops
            (journey_id, title, category_name, category_id, latitude, longitude, notes, travel_mode, start_date, end_date, position)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::date, $10::date, $11)
        RETURNING id
    `
	insertMedium := `INSERT INTO stop_media (stop_id, url, mime_type, position) VALUES ($1, $2, $3, $4)`
	for i, stop := range payload.Stops {
		var stopID string
		err = tx.QueryRow(ctx, insertStop,
			journeyID, stop.Title, stop.CategoryName, stop.CategoryID,
			stop.Latitude, stop.Longitude, stop.Notes, stop.Mode,
			stop.StartDate, stop.EndDate, i+1,
		).Scan(&stopID)
		if err != nil {
			r.countQueryError(ctx, "ImportJourney.stop", err)
			return "", fmt.Errorf("failed to import stop: %w", err)
		}
		for j, m := range stop.Media {
			if _, err := tx.Exec(ctx, insertMedium, stopID, m.URL, m.Type, j); err != nil {
				r.countQueryError(ctx, "ImportJourney.media", err)
				return "", fmt.Errorf("failed to import stop media: %w", err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		r.countQueryError(ctx, "ImportJourney.commit", err)
		return "", fmt.Errorf("failed to commit import: %w", err)
	}
	return journeyID, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
