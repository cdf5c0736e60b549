package metrics

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	ItineraryBuildsTotal       metric.Int64Counter
	ItineraryBuildDurationSecs metric.Float64Histogram
	LoaderCacheHitsTotal       metric.Int64Counter
	LoaderSupersededTotal      metric.Int64Counter
	DbQueryErrorsTotal         metric.Int64Counter
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics initializes the global metric instruments exactly once,
// using the meter from the globally configured MeterProvider.
func InitAppMetrics() {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("wayfarer-api")
		var err error
		m := &AppMetrics{}

		m.ItineraryBuildsTotal, err = meter.Int64Counter(
			"itinerary_builds_total",
			metric.WithDescription("Total number of itineraries derived from stored journeys"),
			metric.WithUnit("{itinerary}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create itinerary_builds_total: %v", err)
		}

		m.ItineraryBuildDurationSecs, err = meter.Float64Histogram(
			"itinerary_build_duration_seconds",
			metric.WithDescription("Duration of itinerary derivation including storage reads"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create itinerary_build_duration_seconds: %v", err)
		}

		m.LoaderCacheHitsTotal, err = meter.Int64Counter(
			"itinerary_loader_cache_hits_total",
			metric.WithDescription("Itinerary loads served from the TTL cache"),
			metric.WithUnit("{load}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create itinerary_loader_cache_hits_total: %v", err)
		}

		m.LoaderSupersededTotal, err = meter.Int64Counter(
			"itinerary_loader_superseded_total",
			metric.WithDescription("Itinerary loads discarded because a newer load started"),
			metric.WithUnit("{load}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create itinerary_loader_superseded_total: %v", err)
		}

		m.DbQueryErrorsTotal, err = meter.Int64Counter(
			"db_query_errors_total",
			metric.WithDescription("Total number of database query errors"),
			metric.WithUnit("{error}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create db_query_errors_total: %v", err)
		}

		appMetrics = m
	})
}

// Get returns the initialized metrics, or nil when InitAppMetrics has not
// run (tests).
func Get() *AppMetrics {
	return appMetrics
}
