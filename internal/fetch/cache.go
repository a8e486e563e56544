package fetch

import (
	"context"
	"time"

	"github.com/wonny/stockpick/internal/contracts"
	"github.com/wonny/stockpick/pkg/logger"
	"github.com/wonny/stockpick/pkg/metrics"
	"github.com/wonny/stockpick/pkg/redis"
)

const cacheTypeSeries = "series"

// CachedSource puts the Redis cache in front of a SeriesSource.
// Entries are keyed by the transport that served them; lookups try the
// transports in priority order.
type CachedSource struct {
	source     contracts.SeriesSource
	transports []string
	cache      *redis.Cache
	ttl        time.Duration
	metrics    *metrics.Registry
	logger     *logger.Logger
	loc        *time.Location
}

// NewCachedSource wraps source; transports lists the names source may return
func NewCachedSource(source contracts.SeriesSource, transports []string, cache *redis.Cache, ttl time.Duration, m *metrics.Registry, log *logger.Logger) *CachedSource {
	if ttl <= 0 {
		ttl = redis.TTLSeries
	}
	return &CachedSource{
		source:     source,
		transports: transports,
		cache:      cache,
		ttl:        ttl,
		metrics:    m,
		logger:     log.WithComponent("fetch.cache"),
	}
}

// InLocation dates cache keys in loc so they follow the market calendar day
func (s *CachedSource) InLocation(loc *time.Location) *CachedSource {
	s.loc = loc
	return s
}

// dayKey is the calendar day of to in the market location (to's own when unset)
func (s *CachedSource) dayKey(to time.Time) string {
	if s.loc != nil {
		to = to.In(s.loc)
	}
	return to.Format("2006-01-02")
}

// FetchSeries serves from cache when possible, else fetches and stores
func (s *CachedSource) FetchSeries(ctx context.Context, code string, from, to time.Time) (contracts.Series, string, error) {
	if !s.cache.Enabled() {
		return s.source.FetchSeries(ctx, code, from, to)
	}

	day := s.dayKey(to)

	for _, name := range s.transports {
		var cached contracts.Series
		found, err := s.cache.Get(ctx, redis.SeriesKey(name, code, day), &cached)
		if err != nil {
			s.logger.WithError(err).Warn("Series cache read failed")
			break
		}
		if found && len(cached) > 0 {
			s.metrics.ObserveCache(cacheTypeSeries, true)
			return cached, name, nil
		}
	}
	s.metrics.ObserveCache(cacheTypeSeries, false)

	series, transport, err := s.source.FetchSeries(ctx, code, from, to)
	if err != nil {
		return nil, "", err
	}

	if err := s.cache.Set(ctx, redis.SeriesKey(transport, code, day), series, s.ttl); err != nil {
		s.logger.WithError(err).Warn("Series cache write failed")
	}
	return series, transport, nil
}
