package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "stockpick"

// Pick run outcomes
const (
	OutcomeReal      = "real"
	OutcomeSimulated = "simulated"
	OutcomeCached    = "cached"
	OutcomeError     = "error"
)

// Registry holds the Prometheus collectors of the service.
// A nil *Registry is valid and records nothing.
// ⭐ SSOT: 메트릭 정의는 여기서만
type Registry struct {
	reg *prometheus.Registry

	FetchAttempts  *prometheus.CounterVec
	FetchDuration  *prometheus.HistogramVec
	BreakerState   *prometheus.GaugeVec
	CacheHits      *prometheus.CounterVec
	CacheMisses    *prometheus.CounterVec
	PickRuns       *prometheus.CounterVec
	PickDuration   prometheus.Histogram
	LastTotalScore prometheus.Gauge
	CandidatesSeen prometheus.Gauge
	JobRuns        *prometheus.CounterVec
	HTTPRequests   *prometheus.CounterVec
}

// New creates a registry with all collectors registered
func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		FetchAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fetch_attempts_total",
				Help:      "Price series fetch attempts by transport and result",
			},
			[]string{"transport", "result"},
		),

		FetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "fetch_duration_seconds",
				Help:      "Price series fetch latency by transport",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"transport"},
		),

		BreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "transport_breaker_state",
				Help:      "Circuit breaker state per transport (0=closed, 1=half-open, 2=open)",
			},
			[]string{"transport"},
		),

		CacheHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_hits_total",
				Help:      "Cache hits by cache type",
			},
			[]string{"cache_type"},
		),

		CacheMisses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_misses_total",
				Help:      "Cache misses by cache type",
			},
			[]string{"cache_type"},
		),

		PickRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pick_runs_total",
				Help:      "Daily pick runs by outcome (real, simulated, cached, error)",
			},
			[]string{"outcome"},
		),

		PickDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "pick_duration_seconds",
				Help:      "Duration of a full pick run",
				Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
		),

		LastTotalScore: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_pick_total_score",
				Help:      "Total score of the most recent pick",
			},
		),

		CandidatesSeen: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_pick_candidates",
				Help:      "Number of candidates ranked in the most recent pick",
			},
		),

		JobRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scheduler_job_runs_total",
				Help:      "Scheduler job runs by job and result",
			},
			[]string{"job", "result"},
		),

		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "API requests by route template and status code",
			},
			[]string{"route", "code"},
		),
	}

	r.reg.MustRegister(
		r.FetchAttempts,
		r.FetchDuration,
		r.BreakerState,
		r.CacheHits,
		r.CacheMisses,
		r.PickRuns,
		r.PickDuration,
		r.LastTotalScore,
		r.CandidatesSeen,
		r.JobRuns,
		r.HTTPRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return r
}

// Handler serves the registry in the Prometheus text format
func (r *Registry) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// Gatherer exposes the underlying registry (tests)
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// ObserveFetch records one transport attempt
func (r *Registry) ObserveFetch(transport string, ok bool, d time.Duration) {
	if r == nil {
		return
	}
	result := "success"
	if !ok {
		result = "failure"
	}
	r.FetchAttempts.WithLabelValues(transport, result).Inc()
	r.FetchDuration.WithLabelValues(transport).Observe(d.Seconds())
}

// SetBreakerState records a breaker transition
func (r *Registry) SetBreakerState(transport string, state int) {
	if r == nil {
		return
	}
	r.BreakerState.WithLabelValues(transport).Set(float64(state))
}

// ObserveCache records a cache lookup
func (r *Registry) ObserveCache(cacheType string, hit bool) {
	if r == nil {
		return
	}
	if hit {
		r.CacheHits.WithLabelValues(cacheType).Inc()
		return
	}
	r.CacheMisses.WithLabelValues(cacheType).Inc()
}

// ObservePick records a finished pick run
func (r *Registry) ObservePick(outcome string, totalScore float64, candidates int, d time.Duration) {
	if r == nil {
		return
	}
	r.PickRuns.WithLabelValues(outcome).Inc()
	if outcome == OutcomeCached || outcome == OutcomeError {
		return
	}
	r.PickDuration.Observe(d.Seconds())
	r.LastTotalScore.Set(totalScore)
	r.CandidatesSeen.Set(float64(candidates))
}

// ObserveJob records a scheduler job run
func (r *Registry) ObserveJob(job string, ok bool) {
	if r == nil {
		return
	}
	result := "success"
	if !ok {
		result = "failure"
	}
	r.JobRuns.WithLabelValues(job, result).Inc()
}

// ObserveHTTP records one API request
func (r *Registry) ObserveHTTP(route string, status int) {
	if r == nil {
		return
	}
	r.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
}
