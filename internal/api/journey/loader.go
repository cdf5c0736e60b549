package journey

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/wayfarerhq/wayfarer-api/app/observability/metrics"
	"github.com/wayfarerhq/wayfarer-api/internal/types"
)

// ErrSuperseded is returned when an itinerary load finishes after a newer
// load for the same journey has started. The stale result is discarded
// instead of delivered.
var ErrSuperseded = errors.New("itinerary load superseded by a newer request")

const (
	loaderCacheTTL     = 30 * time.Second
	loaderCacheCleanup = time.Minute
)

// Loader serves itinerary reads with three guarantees: concurrent identical
// fetches collapse to one storage read, recent results are served from a TTL
// cache, and only the latest request per journey ever sees a result.
type Loader struct {
	logger *slog.Logger
	svc    Service
	cache  *gocache.Cache
	group  singleflight.Group

	seq    atomic.Uint64
	latest sync.Map // cache key -> sequence of the most recent Load
}

func NewLoader(svc Service, logger *slog.Logger) *Loader {
	return &Loader{
		logger: logger,
		svc:    svc,
		cache:  gocache.New(loaderCacheTTL, loaderCacheCleanup),
	}
}

func loaderKey(userID, journeyID string) string {
	return userID + ":" + journeyID
}

// Load fetches the normalized itinerary for a journey. If a newer Load for
// the same journey starts while this one is in flight, this one returns
// ErrSuperseded once the underlying fetch completes.
func (l *Loader) Load(ctx context.Context, userID, journeyID string) (types.Journey, error) {
	key := loaderKey(userID, journeyID)
	seq := l.seq.Add(1)
	l.latest.Store(key, seq)

	if cached, ok := l.cache.Get(key); ok {
		if m := metrics.Get(); m != nil {
			m.LoaderCacheHitsTotal.Add(ctx, 1)
		}
		return cached.(types.Journey), nil
	}

	result, err, shared := l.group.Do(key, func() (any, error) {
		return l.svc.GetItinerary(ctx, userID, journeyID)
	})
	if err != nil {
		return types.Journey{}, err
	}

	if current, ok := l.latest.Load(key); ok && current.(uint64) != seq {
		if m := metrics.Get(); m != nil {
			m.LoaderSupersededTotal.Add(ctx, 1)
		}
		l.logger.DebugContext(ctx, "Discarding superseded itinerary load",
			slog.String("journeyID", journeyID), slog.Bool("shared", shared))
		return types.Journey{}, ErrSuperseded
	}

	itinerary := result.(types.Journey)
	l.cache.Set(key, itinerary, gocache.DefaultExpiration)
	return itinerary, nil
}

// Invalidate drops the cached itinerary for a journey. Call it after any
// mutation of the journey or its stops.
func (l *Loader) Invalidate(userID, journeyID string) {
	l.cache.Delete(loaderKey(userID, journeyID))
}
