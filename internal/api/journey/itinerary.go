package journey

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wayfarerhq/wayfarer-api/internal/types"
)

// The itinerary normalizer converts between the two representations of a
// multi-day trip: the flat list of dated stops held in storage (or arriving
// in an import payload) and the day-indexed structure the clients render.
// Every function here is pure; the reference date is always an explicit
// parameter so re-deriving an itinerary is deterministic regardless of when
// it runs.
//
// Error policy (deliberate, availability over correctness): malformed or
// missing fields are absorbed into defaults, never raised. Reversed date
// ranges are silently swapped. Unusable coordinates become nil coords, which
// map consumers must treat as "no marker".

// GenerateDays expands a date range into one empty Day per calendar day,
// inclusive, numbered 1..N. A reversed range is swapped; an absent endpoint
// yields an empty slice.
func GenerateDays(start, end types.CalendarDate) []types.Day {
	if start.IsZero() || end.IsZero() {
		return []types.Day{}
	}
	if end.Before(start) {
		start, end = end, start
	}
	n := start.DaysUntil(end) + 1
	days := make([]types.Day, 0, n)
	for i := 0; i < n; i++ {
		days = append(days, types.Day{
			DayNumber: i + 1,
			Date:      start.AddDays(i),
			Steps:     []types.Step{},
		})
	}
	return days
}

// GroupStopsIntoDays buckets stops by effective date and converts each
// bucket into a Day. With no stops at all it falls back to the bare day
// skeleton for the journey's range, so a journey always has visible days.
//
// The effective date of a stop is its own start date when present, else
// journeyStart, else today. Buckets are keyed by exact string equality on
// the YYYY-MM-DD form and sorted ascending; the lexicographic sort is
// date-correct.
func GroupStopsIntoDays(stops []types.APIStop, journeyStart, journeyEnd, today types.CalendarDate) []types.Day {
	if len(stops) == 0 {
		return GenerateDays(journeyStart, journeyEnd)
	}

	buckets := make(map[string][]types.APIStop)
	keys := make([]string, 0)
	for _, stop := range stops {
		key := effectiveDate(stop, journeyStart, today)
		if _, seen := buckets[key]; !seen {
			keys = append(keys, key)
		}
		buckets[key] = append(buckets[key], stop)
	}
	sort.Strings(keys)

	days := make([]types.Day, 0, len(keys))
	for i, key := range keys {
		group := buckets[key]
		day := types.Day{
			DayNumber: i + 1,
			Date:      types.CalendarDate(key),
			Steps:     make([]types.Step, 0, len(group)),
		}
		for pos, stop := range group {
			day.Steps = append(day.Steps, stopToStep(stop, pos+1))
		}
		days = append(days, day)
	}
	return days
}

// FromAPIJourney maps a raw journey payload to a total Journey. Missing
// scalars get fixed defaults, missing dates coerce to today, and the day
// sequence is derived from the stops.
func FromAPIJourney(in types.APIJourney, today types.CalendarDate) types.Journey {
	start := types.CoerceCalendarDate(deref(in.StartDate), today)
	end := types.CoerceCalendarDate(deref(in.EndDate), today)
	if end.Before(start) {
		start, end = end, start
	}

	j := types.Journey{
		JourneyName:   defaultString(in.Title, "Untitled Journey"),
		StartingPoint: defaultString(in.StartLocation, "Unknown"),
		EndingPoint:   defaultString(in.EndLocation, "Unknown"),
		StartDate:     start,
		EndDate:       end,
		Who:           defaultString(in.Who, "couple"),
		Budget:        parseBudget(in.Budget),
		Days:          GroupStopsIntoDays(in.Stops, start, end, today),
	}
	if id, err := uuid.Parse(in.ID); err == nil {
		j.ID = id
	}
	return j
}

// BuildMarkers flattens an itinerary into map pins, skipping every step
// without usable coordinates.
func BuildMarkers(j types.Journey) []types.Marker {
	markers := make([]types.Marker, 0)
	for _, day := range j.Days {
		for _, step := range day.Steps {
			if len(step.Location.Coords) != 2 {
				continue
			}
			markers = append(markers, types.Marker{
				StepName:  step.Name,
				DayNumber: day.DayNumber,
				Longitude: step.Location.Coords[0],
				Latitude:  step.Location.Coords[1],
				Category:  step.Category,
			})
		}
	}
	return markers
}

func effectiveDate(stop types.APIStop, journeyStart, today types.CalendarDate) string {
	if stop.StartDate != nil && *stop.StartDate != "" {
		return *stop.StartDate
	}
	if !journeyStart.IsZero() {
		return journeyStart.String()
	}
	return today.String()
}

func stopToStep(stop types.APIStop, position int) types.Step {
	step := types.Step{
		Name:     defaultString(stop.Title, fmt.Sprintf("Stop %d", position)),
		Notes:    deref(stop.Notes),
		Category: stopCategory(stop),
		Media:    make([]types.MediaRef, 0, len(stop.Media)),
	}
	if id, err := uuid.Parse(stop.ID); err == nil {
		step.ID = id
	}
	if stop.StartDate != nil {
		step.StartDate, _ = types.ParseCalendarDate(*stop.StartDate)
	}
	if stop.EndDate != nil {
		step.EndDate, _ = types.ParseCalendarDate(*stop.EndDate)
	}
	if stop.Mode != nil && *stop.Mode != "" {
		step.Mode = normalizeMode(*stop.Mode)
	}

	coords, note := parseCoords(stop.Latitude, stop.Longitude)
	step.Location = types.Location{Coords: coords}
	step.ValidationError = note

	for _, m := range stop.Media {
		// filename and file handle are not retrievable for persisted stops
		step.Media = append(step.Media, types.MediaRef{URL: m.URL, Type: m.Type})
	}
	return step
}

// parseCoords returns a [longitude, latitude] pair only when both inputs
// are present and numeric. Out-of-range values are absorbed to nil coords
// with a note instead of failing the whole itinerary.
func parseCoords(lat, lng *string) ([]float64, string) {
	if lat == nil || lng == nil {
		return nil, ""
	}
	latF, latErr := strconv.ParseFloat(*lat, 64)
	lngF, lngErr := strconv.ParseFloat(*lng, 64)
	if latErr != nil || lngErr != nil {
		return nil, ""
	}
	if lngF < -180 || lngF > 180 || latF < -90 || latF > 90 {
		return nil, "coordinates out of range"
	}
	return []float64{lngF, latF}, ""
}

func stopCategory(stop types.APIStop) string {
	if stop.CategoryName != nil && *stop.CategoryName != "" {
		return *stop.CategoryName
	}
	if stop.CategoryID != nil {
		return strconv.FormatInt(*stop.CategoryID, 10)
	}
	return ""
}

func normalizeMode(raw string) types.TravelMode {
	switch m := types.TravelMode(raw); m {
	case types.TravelModePlane, types.TravelModeTrain, types.TravelModeBus,
		types.TravelModeWalk, types.TravelModeBike, types.TravelModeCar:
		return m
	default:
		return types.TravelModeOther
	}
}

func parseBudget(raw *string) decimal.Decimal {
	if raw == nil || *raw == "" {
		return types.DefaultBudget
	}
	d, err := decimal.NewFromString(*raw)
	if err != nil {
		return types.DefaultBudget
	}
	return d
}

func defaultString(s *string, fallback string) string {
	if s == nil || *s == "" {
		return fallback
	}
	return *s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
