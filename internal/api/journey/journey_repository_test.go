package journey

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wayfarerhq/wayfarer-api/internal/api"
	"github.com/wayfarerhq/wayfarer-api/internal/types"
)

func newRepoUnderTest(t *testing.T) (*PostgresJourneyRepo, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)
	return NewPostgresJourneyRepo(mockPool, slog.Default()), mockPool
}

func TestGetJourney(t *testing.T) {
	t.Run("HydratesStopsAndMedia", func(t *testing.T) {
		repo, mockPool := newRepoUnderTest(t)
		ctx := context.Background()

		mockPool.ExpectQuery("SELECT id, name, start_location").
			WithArgs(testJourneyID, testUserID).
			WillReturnRows(pgxmock.NewRows([]string{
				"id", "name", "start_location", "end_location", "start_date", "end_date", "who", "budget",
			}).AddRow(testJourneyID, strPtr("Alps by rail"), nil, nil, strPtr("2025-07-01"), strPtr("2025-07-02"), nil, strPtr("1500.00")))

		stopID := "1a2b3c4d-5e6f-4a0b-8c1d-2e3f4a5b6c7d"
		mockPool.ExpectQuery("SELECT id, title, category_name").
			WithArgs(testJourneyID).
			WillReturnRows(pgxmock.NewRows([]string{
				"id", "title", "category_name", "category_id", "latitude", "longitude",
				"notes", "travel_mode", "start_date", "end_date",
			}).
				AddRow(stopID, strPtr("Zermatt"), strPtr("Village"), nil, strPtr("46.0207"), strPtr("7.7491"), nil, strPtr("train"), strPtr("2025-07-01"), nil).
				AddRow("9f8e7d6c-5b4a-4392-8170-6e5d4c3b2a19", nil, nil, int64Ptr(7), strPtr("bogus"), strPtr("text"), nil, nil, nil, nil))

		mockPool.ExpectQuery("SELECT m.stop_id, m.url, m.mime_type").
			WithArgs(testJourneyID).
			WillReturnRows(pgxmock.NewRows([]string{"stop_id", "url", "mime_type"}).
				AddRow(stopID, "https://cdn.example.com/zermatt.jpg", "image/jpeg"))

		j, err := repo.GetJourney(ctx, testUserID, testJourneyID)

		require.NoError(t, err)
		assert.Equal(t, testJourneyID, j.ID)
		assert.Equal(t, "Alps by rail", *j.Title)
		assert.Nil(t, j.StartLocation)
		require.Len(t, j.Stops, 2)
		require.Len(t, j.Stops[0].Media, 1)
		assert.Equal(t, "https://cdn.example.com/zermatt.jpg", j.Stops[0].Media[0].URL)
		// Raw coordinate text passes through untouched
		assert.Equal(t, "bogus", *j.Stops[1].Latitude)
		require.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("NotFound", func(t *testing.T) {
		repo, mockPool := newRepoUnderTest(t)
		ctx := context.Background()

		mockPool.ExpectQuery("SELECT id, name, start_location").
			WithArgs(testJourneyID, testUserID).
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.GetJourney(ctx, testUserID, testJourneyID)

		assert.ErrorIs(t, err, api.ErrNotFound)
		require.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestCreateJourney(t *testing.T) {
	repo, mockPool := newRepoUnderTest(t)
	ctx := context.Background()

	req := types.CreateJourneyRequest{
		Name:      "Baltic loop",
		StartDate: "2025-08-01",
		EndDate:   "2025-08-05",
	}

	mockPool.ExpectQuery("INSERT INTO journeys").
		WithArgs(testUserID, strPtr("Baltic loop"), (*string)(nil), (*string)(nil),
			strPtr("2025-08-01"), strPtr("2025-08-05"), (*string)(nil), (*string)(nil)).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(testJourneyID))

	id, err := repo.CreateJourney(ctx, testUserID, req)

	require.NoError(t, err)
	assert.Equal(t, testJourneyID, id)
	require.NoError(t, mockPool.ExpectationsWereMet())
}

func TestDeleteJourney(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		repo, mockPool := newRepoUnderTest(t)
		ctx := context.Background()

		mockPool.ExpectExec("DELETE FROM journeys").
			WithArgs(testJourneyID, testUserID).
			WillReturnResult(pgxmock.NewResult("DELETE", 1))

		err := repo.DeleteJourney(ctx, testUserID, testJourneyID)

		require.NoError(t, err)
		require.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("NotOwnedReadsAsNotFound", func(t *testing.T) {
		repo, mockPool := newRepoUnderTest(t)
		ctx := context.Background()

		mockPool.ExpectExec("DELETE FROM journeys").
			WithArgs(testJourneyID, testUserID).
			WillReturnResult(pgxmock.NewResult("DELETE", 0))

		err := repo.DeleteJourney(ctx, testUserID, testJourneyID)

		assert.ErrorIs(t, err, api.ErrNotFound)
		require.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestAddStop(t *testing.T) {
	t.Run("RejectsForeignJourney", func(t *testing.T) {
		repo, mockPool := newRepoUnderTest(t)
		ctx := context.Background()

		mockPool.ExpectBegin()
		mockPool.ExpectQuery("SELECT 1 FROM journeys").
			WithArgs(testJourneyID, testUserID).
			WillReturnError(pgx.ErrNoRows)
		mockPool.ExpectRollback()

		_, err := repo.AddStop(ctx, testUserID, testJourneyID, types.AddStopRequest{Title: "Louvre"})

		assert.ErrorIs(t, err, api.ErrNotFound)
		require.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("InsertsStopAndMedia", func(t *testing.T) {
		repo, mockPool := newRepoUnderTest(t)
		ctx := context.Background()
		stopID := "1a2b3c4d-5e6f-4a0b-8c1d-2e3f4a5b6c7d"

		mockPool.ExpectBegin()
		mockPool.ExpectQuery("SELECT 1 FROM journeys").
			WithArgs(testJourneyID, testUserID).
			WillReturnRows(pgxmock.NewRows([]string{"?column?"}).AddRow(1))
		mockPool.ExpectQuery("INSERT INTO journey_stops").
			WithArgs(testJourneyID, strPtr("Louvre"), (*string)(nil), (*int64)(nil),
				(*string)(nil), (*string)(nil), (*string)(nil), (*string)(nil), (*string)(nil), (*string)(nil)).
			WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(stopID))
		mockPool.ExpectExec("INSERT INTO stop_media").
			WithArgs(stopID, "https://cdn.example.com/louvre.jpg", "image/jpeg", 0).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mockPool.ExpectCommit()

		id, err := repo.AddStop(ctx, testUserID, testJourneyID, types.AddStopRequest{
			Title: "Louvre",
			Media: []types.AddStopMedium{{URL: "https://cdn.example.com/louvre.jpg", Type: "image/jpeg"}},
		})

		require.NoError(t, err)
		assert.Equal(t, stopID, id)
		require.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestListJourneys(t *testing.T) {
	repo, mockPool := newRepoUnderTest(t)
	ctx := context.Background()

	now := time.Now()
	mockPool.ExpectQuery("FROM journeys j").
		WithArgs(testUserID).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "name", "start_location", "end_location", "start_date", "end_date",
			"who", "budget", "count", "created_at", "updated_at",
		}).AddRow(uuid.MustParse(testJourneyID), "Untitled Journey", "Unknown", "Unknown",
			nil, nil, "couple", "1000", 0, now, now))

	summaries, err := repo.ListJourneys(ctx, testUserID)

	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "Untitled Journey", summaries[0].JourneyName)
	assert.True(t, summaries[0].StartDate.IsZero())
	assert.True(t, summaries[0].Budget.Equal(types.DefaultBudget))
	require.NoError(t, mockPool.ExpectationsWereMet())
}
