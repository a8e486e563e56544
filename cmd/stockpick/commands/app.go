package commands

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/wonny/stockpick/internal/api/stream"
	"github.com/wonny/stockpick/internal/contracts"
	"github.com/wonny/stockpick/internal/external/alphavantage"
	"github.com/wonny/stockpick/internal/external/kis"
	"github.com/wonny/stockpick/internal/external/naver"
	"github.com/wonny/stockpick/internal/external/yahoo"
	"github.com/wonny/stockpick/internal/fetch"
	"github.com/wonny/stockpick/internal/indicators"
	"github.com/wonny/stockpick/internal/picker"
	"github.com/wonny/stockpick/internal/scoring"
	"github.com/wonny/stockpick/internal/selection"
	"github.com/wonny/stockpick/internal/store"
	"github.com/wonny/stockpick/internal/strategyconfig"
	"github.com/wonny/stockpick/internal/theme"
	"github.com/wonny/stockpick/pkg/config"
	"github.com/wonny/stockpick/pkg/httputil"
	"github.com/wonny/stockpick/pkg/logger"
	"github.com/wonny/stockpick/pkg/metrics"
	"github.com/wonny/stockpick/pkg/redis"
)

// appOptions adjusts wiring per command
type appOptions struct {
	simulate bool // 네트워크 없이 시뮬레이션 데이터만 사용
	withHub  bool // api 명령: 선정 결과를 websocket 으로 전송
}

// app holds every wired component of one CLI invocation
type app struct {
	cfg        *config.Config
	strategy   *strategyconfig.Config
	configHash string
	log        *logger.Logger
	metrics    *metrics.Registry

	redis      *redis.Client
	cache      *redis.Cache
	chain      *fetch.Chain
	engine     *indicators.Engine
	repository contracts.PickRepository
	hub        *stream.Hub // withHub 일 때만
	picker     *picker.Service
}

// newApp loads configuration and wires the pick pipeline
// ⭐ SSOT: 컴포넌트 조립은 여기서만
func newApp(ctx context.Context, opts appOptions) (*app, error) {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if env != "" {
		cfg.Env = env
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	if strategyFile == "" {
		strategyFile = cfg.StrategyFile
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	// 3. Strategy
	strat, err := strategyconfig.LoadOrDefault(strategyFile)
	if err != nil {
		return nil, fmt.Errorf("load strategy: %w", err)
	}
	hash, err := strategyconfig.Hash(strat)
	if err != nil {
		return nil, fmt.Errorf("hash strategy: %w", err)
	}
	for _, w := range strategyconfig.CheckWarnings(strat) {
		log.WithFields(map[string]interface{}{
			"code":    w.Code,
			"message": w.Message,
		}).Warn("Strategy warning")
	}

	a := &app{
		cfg:        cfg,
		strategy:   strat,
		configHash: hash,
		log:        log,
	}
	if cfg.MetricsEnabled {
		a.metrics = metrics.New()
	}

	// 4. Redis (optional)
	a.redis, err = redis.New(ctx, cfg.Redis)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, continuing without cache")
		a.redis = redis.NewFromRedis(nil)
	}
	a.cache = redis.NewCache(a.redis, "stockpick")
	limiter := redis.NewRateLimiter(a.redis, "stockpick")

	// 5. Transports
	naverClient := naver.NewClient(transportHTTP(cfg, log, limiter, config.TransportNaver), cfg.Naver, log)

	var transports []fetch.Transport
	if !opts.simulate {
		transports = buildTransports(cfg, log, limiter, naverClient)
	}

	chainOpts := fetch.DefaultChainOptions()
	chainOpts.RatePerSecond = cfg.Fetch.RatePerSecond
	chainOpts.Metrics = a.metrics
	a.chain = fetch.NewChain(transports, chainOpts, log)

	source := fetch.NewCachedSource(a.chain, a.chain.Names(), a.cache, cfg.Fetch.CacheTTL, a.metrics, log).
		InLocation(cfg.Scheduler.Location())
	collector := fetch.NewCollector(source, cfg.Fetch.Concurrency, cfg.Fetch.LookbackDays, log)

	// 6. Scoring
	a.engine = indicators.NewEngine(indicators.ParseMACDMode(strat.Indicators.MACDMode), log)
	provider, err := theme.New(strat.Theme.Provider, strat.Theme.SectorWeightMap(), themeRand(strat.Theme.Seed))
	if err != nil {
		return nil, err
	}

	var simulator *fetch.Simulator
	if strat.Fallback.Simulate || opts.simulate {
		simulator = fetch.NewSimulator(strat.Fallback.Seed)
	}

	// 7. Store
	a.repository, err = openRepository(ctx, cfg, log, opts)
	if err != nil {
		return nil, err
	}

	var publisher contracts.PickPublisher
	if opts.withHub {
		a.hub = stream.NewHub(log)
		publisher = a.hub
	}

	a.picker = picker.New(picker.Deps{
		Universe:   universeFunc(strat, naverClient, log),
		Collector:  collector,
		Scorer:     scoring.NewScorer(a.engine),
		Ranker:     selection.NewRanker(log),
		Theme:      provider,
		Simulator:  simulator,
		Names:      naverClient,
		Repository: a.repository,
		Cache:      a.cache,
		Publisher:  publisher,
		Metrics:    a.metrics,
		ConfigHash: hash,
		Location:   cfg.Scheduler.Location(),
	}, log)

	log.WithFields(map[string]interface{}{
		"strategy":   strat.Meta.StrategyID,
		"transports": a.chain.Names(),
		"store":      cfg.Store.Driver,
		"macd_mode":  a.engine.Mode(),
		"redis":      a.redis.Enabled(),
	}).Debug("Application wired")

	return a, nil
}

// Close releases the store and Redis connections
func (a *app) Close() {
	if err := a.repository.Close(); err != nil {
		a.log.WithError(err).Warn("Failed to close pick store")
	}
	if err := a.redis.Close(); err != nil {
		a.log.WithError(err).Warn("Failed to close redis")
	}
}

// buildTransports creates the price transports in FETCH_TRANSPORTS order.
// Unknown names and transports without credentials are skipped.
func buildTransports(cfg *config.Config, log *logger.Logger, limiter *redis.RateLimiter, naverClient *naver.Client) []fetch.Transport {
	var transports []fetch.Transport
	for _, name := range cfg.Fetch.Transports {
		switch name {
		case config.TransportNaver:
			transports = append(transports, naverClient)
		case config.TransportYahoo:
			transports = append(transports, yahoo.NewClient(log))
		case config.TransportKIS:
			if !cfg.KIS.Enabled() {
				log.Debug("KIS credentials not set, skipping transport")
				continue
			}
			transports = append(transports, kis.NewClient(cfg.KIS, transportHTTP(cfg, log, limiter, name), log))
		case config.TransportAlphaVantage:
			if !cfg.AlphaVantage.Enabled() {
				log.Debug("Alpha Vantage API key not set, skipping transport")
				continue
			}
			transports = append(transports, alphavantage.NewClient(cfg.AlphaVantage, cfg.Fetch.Timeout, log))
		default:
			log.WithField("transport", name).Warn("Unknown transport, skipping")
		}
	}
	return transports
}

// transportHTTP returns an HTTP client sharing the Redis-backed limit of a transport.
// The chain retries through other transports, so per-request retries stay off.
func transportHTTP(cfg *config.Config, log *logger.Logger, limiter *redis.RateLimiter, name string) *httputil.Client {
	client := httputil.NewWithTimeout(cfg, log, cfg.Fetch.Timeout).DisableRetry()
	if limit, ok := redis.RateLimitFor(name); ok {
		client.WithRateLimiter(limiter, limit)
	}
	return client
}

// universeFunc resolves candidates from the strategy; a failing ranking falls back to the static list
func universeFunc(strat *strategyconfig.Config, naverClient *naver.Client, log *logger.Logger) picker.UniverseFunc {
	static := strat.Universe.StaticUniverse()
	if strat.Universe.Source != strategyconfig.UniverseNaverRanking {
		return picker.StaticUniverse(static)
	}

	category, err := naver.ParseRankingCategory(strat.Universe.Ranking.Category)
	if err != nil {
		// Validate 에서 이미 걸러짐
		return picker.StaticUniverse(static)
	}
	ranking := strat.Universe.Ranking

	return func(ctx context.Context) (*contracts.Universe, error) {
		u, err := naverClient.RankingUniverse(ctx, category, ranking.Market, ranking.Size)
		if err == nil && len(u.Stocks) > 0 {
			return u, nil
		}
		if err == nil {
			err = fmt.Errorf("empty %s ranking", category)
		}
		if len(static.Stocks) == 0 {
			return nil, fmt.Errorf("ranking universe: %w", err)
		}
		log.WithError(err).Warn("Ranking universe unavailable, using static stocks")
		return static, nil
	}
}

func openRepository(ctx context.Context, cfg *config.Config, log *logger.Logger, opts appOptions) (contracts.PickRepository, error) {
	// 시뮬레이션 실행은 저장소를 오염시키지 않음
	if opts.simulate {
		return store.NewMemoryRepository(), nil
	}
	return store.Open(ctx, cfg, log)
}

func themeRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}
