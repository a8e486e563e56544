package fetch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/wonny/stockpick/internal/contracts"
	"github.com/wonny/stockpick/pkg/logger"
	"github.com/wonny/stockpick/pkg/metrics"
)

// ChainOptions tunes the per-transport guards
type ChainOptions struct {
	RatePerSecond float64 // 0 = unlimited
	Burst         int
	Metrics       *metrics.Registry

	// Breaker trip rule: consecutive failures before opening, and how long it stays open
	MaxConsecutiveFailures uint32
	OpenTimeout            time.Duration
}

// DefaultChainOptions returns the guards used by the service
func DefaultChainOptions() ChainOptions {
	return ChainOptions{
		RatePerSecond:          5,
		Burst:                  1,
		MaxConsecutiveFailures: 3,
		OpenTimeout:            60 * time.Second,
	}
}

type link struct {
	transport Transport
	breaker   *gobreaker.CircuitBreaker
	limiter   *rate.Limiter
}

// Chain tries transports in order; the first non-empty series wins
// ⭐ SSOT: 시세 소스 우선순위 / fallback 은 여기서만
type Chain struct {
	links   []*link
	metrics *metrics.Registry
	logger  *logger.Logger
}

// NewChain wraps each transport in a circuit breaker and a rate limiter
func NewChain(transports []Transport, opts ChainOptions, log *logger.Logger) *Chain {
	log = log.WithComponent("fetch")

	limit := rate.Inf
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
	}
	burst := opts.Burst
	if burst < 1 {
		burst = 1
	}
	maxFailures := opts.MaxConsecutiveFailures
	if maxFailures == 0 {
		maxFailures = 3
	}

	c := &Chain{metrics: opts.Metrics, logger: log}
	for _, t := range transports {
		name := t.Name()
		settings := gobreaker.Settings{
			Name:     name,
			Interval: 60 * time.Second,
			Timeout:  opts.OpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= maxFailures
			},
			// 빈 응답은 소스 장애가 아님
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, ErrNoData) || errors.Is(err, context.Canceled)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.WithFields(map[string]interface{}{
					"transport": name,
					"from":      from.String(),
					"to":        to.String(),
				}).Warn("Circuit breaker state changed")
				opts.Metrics.SetBreakerState(name, int(to))
			},
		}

		c.links = append(c.links, &link{
			transport: t,
			breaker:   gobreaker.NewCircuitBreaker(settings),
			limiter:   rate.NewLimiter(limit, burst),
		})
	}
	return c
}

// Names returns the transport names in priority order
func (c *Chain) Names() []string {
	names := make([]string, len(c.links))
	for i, l := range c.links {
		names[i] = l.transport.Name()
	}
	return names
}

// FetchSeries returns the first usable series and the transport that served it
func (c *Chain) FetchSeries(ctx context.Context, code string, from, to time.Time) (contracts.Series, string, error) {
	if len(c.links) == 0 {
		return nil, "", fmt.Errorf("%w: no transports configured", ErrAllTransportsFailed)
	}

	var errs []error
	for _, l := range c.links {
		if err := ctx.Err(); err != nil {
			return nil, "", err
		}

		name := l.transport.Name()
		series, err := c.fetchFrom(ctx, l, code, from, to)
		if err == nil {
			return series, name, nil
		}

		c.logger.WithStock(code).WithFields(map[string]interface{}{
			"transport": name,
			"error":     err.Error(),
		}).Debug("Transport failed, trying next")
		errs = append(errs, fmt.Errorf("%s: %w", name, err))
	}

	return nil, "", fmt.Errorf("%w for %s: %w", ErrAllTransportsFailed, code, errors.Join(errs...))
}

func (c *Chain) fetchFrom(ctx context.Context, l *link, code string, from, to time.Time) (contracts.Series, error) {
	name := l.transport.Name()

	if err := l.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := l.breaker.Execute(func() (interface{}, error) {
		series, err := l.transport.FetchSeries(ctx, code, from, to)
		if err != nil {
			return nil, err
		}
		series = series.Valid()
		if len(series) == 0 {
			return nil, ErrNoData
		}
		return series, nil
	})
	c.metrics.ObserveFetch(name, err == nil, time.Since(start))
	if err != nil {
		return nil, err
	}

	return result.(contracts.Series), nil
}
