package journey

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wayfarerhq/wayfarer-api/internal/types"
)

func strPtr(s string) *string { return &s }

func int64Ptr(n int64) *int64 { return &n }

func TestGenerateDays(t *testing.T) {
	t.Run("InclusiveRange", func(t *testing.T) {
		days := GenerateDays("2025-01-01", "2025-01-05")
		require.Len(t, days, 5)
		for i, day := range days {
			assert.Equal(t, i+1, day.DayNumber)
			assert.Equal(t, types.CalendarDate("2025-01-01").AddDays(i), day.Date)
			assert.Empty(t, day.Steps)
			assert.False(t, day.IsOpen)
		}
	})

	t.Run("SwapInvariance", func(t *testing.T) {
		forward := GenerateDays("2025-03-10", "2025-03-14")
		reversed := GenerateDays("2025-03-14", "2025-03-10")
		assert.Equal(t, forward, reversed)
	})

	t.Run("SingleDay", func(t *testing.T) {
		days := GenerateDays("2025-06-01", "2025-06-01")
		require.Len(t, days, 1)
		assert.Equal(t, 1, days[0].DayNumber)
		assert.Equal(t, types.CalendarDate("2025-06-01"), days[0].Date)
	})

	t.Run("MissingStartDate", func(t *testing.T) {
		assert.Empty(t, GenerateDays("", "2025-01-01"))
	})

	t.Run("MissingEndDate", func(t *testing.T) {
		assert.Empty(t, GenerateDays("2025-01-01", ""))
	})

	t.Run("MonthBoundary", func(t *testing.T) {
		days := GenerateDays("2025-01-30", "2025-02-02")
		require.Len(t, days, 4)
		assert.Equal(t, types.CalendarDate("2025-01-31"), days[1].Date)
		assert.Equal(t, types.CalendarDate("2025-02-01"), days[2].Date)
	})

	t.Run("LeapDay", func(t *testing.T) {
		days := GenerateDays("2024-02-28", "2024-03-01")
		require.Len(t, days, 3)
		assert.Equal(t, types.CalendarDate("2024-02-29"), days[1].Date)
	})
}

func TestGroupStopsIntoDays(t *testing.T) {
	today := types.CalendarDate("2025-05-20")

	t.Run("NoStopsFallsBackToDaySkeleton", func(t *testing.T) {
		days := GroupStopsIntoDays(nil, "2025-01-01", "2025-01-03", today)
		require.Len(t, days, 3)
		for _, day := range days {
			assert.Empty(t, day.Steps)
		}
	})

	t.Run("GroupsByStopDate", func(t *testing.T) {
		stops := []types.APIStop{
			{Title: strPtr("Louvre"), StartDate: strPtr("2025-02-01")},
			{Title: strPtr("Musée d'Orsay"), StartDate: strPtr("2025-02-01")},
			{Title: strPtr("Versailles"), StartDate: strPtr("2025-02-02")},
		}
		days := GroupStopsIntoDays(stops, "2025-02-01", "2025-02-03", today)
		require.Len(t, days, 2)
		assert.Equal(t, 1, days[0].DayNumber)
		assert.Equal(t, types.CalendarDate("2025-02-01"), days[0].Date)
		assert.Len(t, days[0].Steps, 2)
		assert.Equal(t, 2, days[1].DayNumber)
		assert.Equal(t, types.CalendarDate("2025-02-02"), days[1].Date)
		assert.Len(t, days[1].Steps, 1)
	})

	t.Run("BucketsSortedAscending", func(t *testing.T) {
		stops := []types.APIStop{
			{StartDate: strPtr("2025-02-03")},
			{StartDate: strPtr("2025-02-01")},
			{StartDate: strPtr("2025-02-02")},
		}
		days := GroupStopsIntoDays(stops, "", "", today)
		require.Len(t, days, 3)
		assert.Equal(t, types.CalendarDate("2025-02-01"), days[0].Date)
		assert.Equal(t, types.CalendarDate("2025-02-02"), days[1].Date)
		assert.Equal(t, types.CalendarDate("2025-02-03"), days[2].Date)
	})

	t.Run("DatelessStopUsesJourneyStart", func(t *testing.T) {
		stops := []types.APIStop{{Title: strPtr("Check-in")}}
		days := GroupStopsIntoDays(stops, "2025-04-10", "2025-04-12", today)
		require.Len(t, days, 1)
		assert.Equal(t, types.CalendarDate("2025-04-10"), days[0].Date)
	})

	t.Run("DatelessStopWithoutJourneyStartUsesToday", func(t *testing.T) {
		stops := []types.APIStop{{Title: strPtr("Somewhere")}}
		days := GroupStopsIntoDays(stops, "", "", today)
		require.Len(t, days, 1)
		assert.Equal(t, today, days[0].Date)
	})

	t.Run("UnnamedStopsNumberedWithinDay", func(t *testing.T) {
		stops := []types.APIStop{
			{StartDate: strPtr("2025-02-01")},
			{StartDate: strPtr("2025-02-01")},
			{StartDate: strPtr("2025-02-02")},
		}
		days := GroupStopsIntoDays(stops, "", "", today)
		require.Len(t, days, 2)
		assert.Equal(t, "Stop 1", days[0].Steps[0].Name)
		assert.Equal(t, "Stop 2", days[0].Steps[1].Name)
		assert.Equal(t, "Stop 1", days[1].Steps[0].Name) // numbering restarts per day
	})

	t.Run("CoordsLongitudeFirst", func(t *testing.T) {
		stops := []types.APIStop{{
			StartDate: strPtr("2025-02-01"),
			Latitude:  strPtr("48.8584"),
			Longitude: strPtr("2.2945"),
		}}
		days := GroupStopsIntoDays(stops, "", "", today)
		require.Len(t, days, 1)
		require.Len(t, days[0].Steps, 1)
		assert.Equal(t, []float64{2.2945, 48.8584}, days[0].Steps[0].Location.Coords)
	})

	t.Run("MissingCoordsAreNil", func(t *testing.T) {
		stops := []types.APIStop{{StartDate: strPtr("2025-02-01")}}
		days := GroupStopsIntoDays(stops, "", "", today)
		assert.Nil(t, days[0].Steps[0].Location.Coords)
	})

	t.Run("NonNumericCoordsAreNil", func(t *testing.T) {
		stops := []types.APIStop{{
			StartDate: strPtr("2025-02-01"),
			Latitude:  strPtr("forty-eight"),
			Longitude: strPtr("2.2945"),
		}}
		days := GroupStopsIntoDays(stops, "", "", today)
		assert.Nil(t, days[0].Steps[0].Location.Coords)
	})

	t.Run("OutOfRangeCoordsAbsorbedWithNote", func(t *testing.T) {
		stops := []types.APIStop{{
			StartDate: strPtr("2025-02-01"),
			Latitude:  strPtr("95.0"),
			Longitude: strPtr("2.2945"),
		}}
		days := GroupStopsIntoDays(stops, "", "", today)
		step := days[0].Steps[0]
		assert.Nil(t, step.Location.Coords)
		assert.Equal(t, "coordinates out of range", step.ValidationError)
	})

	t.Run("CategoryResolutionOrder", func(t *testing.T) {
		stops := []types.APIStop{
			{StartDate: strPtr("2025-02-01"), CategoryName: strPtr("Museum"), CategoryID: int64Ptr(7)},
			{StartDate: strPtr("2025-02-01"), CategoryID: int64Ptr(7)},
			{StartDate: strPtr("2025-02-01")},
		}
		days := GroupStopsIntoDays(stops, "", "", today)
		steps := days[0].Steps
		assert.Equal(t, "Museum", steps[0].Category)
		assert.Equal(t, "7", steps[1].Category)
		assert.Equal(t, "", steps[2].Category)
	})

	t.Run("MediaMappedWithoutFilename", func(t *testing.T) {
		stops := []types.APIStop{{
			StartDate: strPtr("2025-02-01"),
			Media: []types.APIMedium{
				{URL: "https://cdn.example.com/a.jpg", Type: "image/jpeg"},
				{URL: "https://cdn.example.com/b.mp4", Type: "video/mp4"},
			},
		}}
		days := GroupStopsIntoDays(stops, "", "", today)
		media := days[0].Steps[0].Media
		require.Len(t, media, 2)
		assert.Equal(t, "https://cdn.example.com/a.jpg", media[0].URL)
		assert.Equal(t, "image/jpeg", media[0].Type)
		assert.Empty(t, media[0].Filename)
	})

	t.Run("UnknownModeBecomesOther", func(t *testing.T) {
		stops := []types.APIStop{{StartDate: strPtr("2025-02-01"), Mode: strPtr("teleport")}}
		days := GroupStopsIntoDays(stops, "", "", today)
		assert.Equal(t, types.TravelModeOther, days[0].Steps[0].Mode)
	})
}

func TestFromAPIJourney(t *testing.T) {
	today := types.CalendarDate("2025-05-20")

	t.Run("EmptyPayloadGetsDefaults", func(t *testing.T) {
		j := FromAPIJourney(types.APIJourney{}, today)
		assert.Equal(t, "Untitled Journey", j.JourneyName)
		assert.Equal(t, "Unknown", j.StartingPoint)
		assert.Equal(t, "Unknown", j.EndingPoint)
		assert.Equal(t, "couple", j.Who)
		assert.True(t, j.Budget.Equal(types.DefaultBudget))
		assert.Equal(t, today, j.StartDate)
		assert.Equal(t, today, j.EndDate)
		require.Len(t, j.Days, 1) // the fabricated single-day span
		assert.Equal(t, today, j.Days[0].Date)
	})

	t.Run("ReversedRangeIsSwapped", func(t *testing.T) {
		j := FromAPIJourney(types.APIJourney{
			StartDate: strPtr("2025-07-10"),
			EndDate:   strPtr("2025-07-05"),
		}, today)
		assert.Equal(t, types.CalendarDate("2025-07-05"), j.StartDate)
		assert.Equal(t, types.CalendarDate("2025-07-10"), j.EndDate)
		assert.Len(t, j.Days, 6)
	})

	t.Run("RFC3339DatesAreCoerced", func(t *testing.T) {
		j := FromAPIJourney(types.APIJourney{
			StartDate: strPtr("2025-07-01T14:30:00Z"),
			EndDate:   strPtr("2025-07-02T09:00:00Z"),
		}, today)
		assert.Equal(t, types.CalendarDate("2025-07-01"), j.StartDate)
		assert.Equal(t, types.CalendarDate("2025-07-02"), j.EndDate)
	})

	t.Run("MalformedBudgetFallsBack", func(t *testing.T) {
		j := FromAPIJourney(types.APIJourney{Budget: strPtr("lots")}, today)
		assert.True(t, j.Budget.Equal(types.DefaultBudget))
	})

	t.Run("BudgetParsed", func(t *testing.T) {
		j := FromAPIJourney(types.APIJourney{Budget: strPtr("2450.50")}, today)
		assert.Equal(t, "2450.5", j.Budget.String())
	})

	t.Run("RoundTripNoStopLostOrDuplicated", func(t *testing.T) {
		stops := []types.APIStop{
			{Title: strPtr("A"), StartDate: strPtr("2025-02-01")},
			{Title: strPtr("B"), StartDate: strPtr("2025-02-01")},
			{Title: strPtr("C"), StartDate: strPtr("2025-02-02")},
			{Title: strPtr("D"), StartDate: strPtr("2025-02-04")},
			{Title: strPtr("E"), StartDate: strPtr("2025-02-04")},
		}
		j := FromAPIJourney(types.APIJourney{
			StartDate: strPtr("2025-02-01"),
			EndDate:   strPtr("2025-02-05"),
			Stops:     stops,
		}, today)

		require.Len(t, j.Days, 3) // K distinct dates
		total := 0
		for _, day := range j.Days {
			total += len(day.Steps)
		}
		assert.Equal(t, len(stops), total)
	})
}

func TestBuildMarkers(t *testing.T) {
	today := types.CalendarDate("2025-05-20")
	j := FromAPIJourney(types.APIJourney{
		StartDate: strPtr("2025-02-01"),
		EndDate:   strPtr("2025-02-02"),
		Stops: []types.APIStop{
			{Title: strPtr("Eiffel Tower"), StartDate: strPtr("2025-02-01"), Latitude: strPtr("48.8584"), Longitude: strPtr("2.2945")},
			{Title: strPtr("No coords"), StartDate: strPtr("2025-02-01")},
			{Title: strPtr("Notre-Dame"), StartDate: strPtr("2025-02-02"), Latitude: strPtr("48.8530"), Longitude: strPtr("2.3499")},
		},
	}, today)

	markers := BuildMarkers(j)
	require.Len(t, markers, 2)
	assert.Equal(t, "Eiffel Tower", markers[0].StepName)
	assert.Equal(t, 1, markers[0].DayNumber)
	assert.Equal(t, 2.2945, markers[0].Longitude)
	assert.Equal(t, 48.8584, markers[0].Latitude)
	assert.Equal(t, 2, markers[1].DayNumber)
}
