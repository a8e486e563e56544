// Package picker runs the daily "stock of the day" selection.
package picker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wonny/stockpick/internal/contracts"
	"github.com/wonny/stockpick/internal/fetch"
	"github.com/wonny/stockpick/internal/scoring"
	"github.com/wonny/stockpick/internal/selection"
	"github.com/wonny/stockpick/internal/theme"
	"github.com/wonny/stockpick/pkg/logger"
	"github.com/wonny/stockpick/pkg/metrics"
	"github.com/wonny/stockpick/pkg/redis"
)

// ErrNoSelection is returned when neither real nor simulated candidates produced a pick
var ErrNoSelection = errors.New("no candidate selected")

// UniverseFunc resolves the universe for one run
type UniverseFunc func(ctx context.Context) (*contracts.Universe, error)

// StaticUniverse returns a UniverseFunc for a fixed universe
func StaticUniverse(u *contracts.Universe) UniverseFunc {
	return func(context.Context) (*contracts.Universe, error) {
		return u, nil
	}
}

// Deps are the collaborators of a Service
type Deps struct {
	Universe   UniverseFunc
	Collector  *fetch.Collector
	Scorer     *scoring.Scorer
	Ranker     *selection.Ranker
	Theme      contracts.ThemeScoreProvider
	Simulator  *fetch.Simulator       // nil 이면 fallback 없음
	Names      contracts.NameResolver // optional, 유니버스 밖 종목명 조회
	Repository contracts.PickRepository
	Cache      *redis.Cache            // optional
	Publisher  contracts.PickPublisher // optional
	Metrics    *metrics.Registry       // optional
	ConfigHash string
	Location   *time.Location
}

// Service selects, stores and publishes the pick of the day
// ⭐ SSOT: 오늘의 종목 선정 흐름은 여기서만
type Service struct {
	deps   Deps
	now    func() time.Time
	mu     sync.Mutex // 동시 선정 방지
	logger *logger.Logger
}

// New creates a picker service
func New(deps Deps, log *logger.Logger) *Service {
	if deps.Location == nil {
		deps.Location = time.FixedZone("KST", 9*60*60)
	}
	if deps.Cache == nil {
		deps.Cache = redis.NewCache(redis.NewFromRedis(nil), "") // disabled
	}
	return &Service{
		deps:   deps,
		now:    time.Now,
		logger: log.WithComponent("picker"),
	}
}

// Day returns today's calendar day (midnight) in the market timezone
func (s *Service) Day() time.Time {
	t := s.now().In(s.deps.Location)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, s.deps.Location)
}

// Today returns today's pick, running the selection once per day
func (s *Service) Today(ctx context.Context) (*contracts.Pick, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	day := s.Day()
	if pick, ok := s.stored(ctx, day); ok {
		s.deps.Metrics.ObservePick(metrics.OutcomeCached, pick.TotalScore, 0, 0)
		return pick, nil
	}
	return s.run(ctx, day)
}

// Refresh discards today's pick and selects again
func (s *Service) Refresh(ctx context.Context) (*contracts.Pick, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	day := s.Day()
	if err := s.deps.Cache.Delete(ctx, redis.TodayPickKey(dayKey(day))); err != nil {
		s.logger.WithError(err).Warn("Failed to drop cached pick")
	}
	return s.run(ctx, day)
}

// History returns up to limit stored picks, newest first
func (s *Service) History(ctx context.Context, limit int) ([]*contracts.Pick, error) {
	return s.deps.Repository.History(ctx, limit)
}

// Prune keeps the newest keep picks
func (s *Service) Prune(ctx context.Context, keep int) (int, error) {
	removed, err := s.deps.Repository.PruneHistory(ctx, keep)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.logger.WithFields(map[string]interface{}{
			"removed": removed,
			"keep":    keep,
		}).Info("Pruned pick history")
	}
	return removed, nil
}

// Leaderboard scores and ranks the current universe without storing anything
func (s *Service) Leaderboard(ctx context.Context) ([]contracts.RankedCandidate, []fetch.FailedCode, error) {
	universe, err := s.deps.Universe(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve universe: %w", err)
	}

	candidates, failed := s.evaluate(ctx, universe)
	return s.deps.Ranker.Rank(candidates), failed, nil
}

// Analyze scores the given codes; names and sectors come from the universe when known
func (s *Service) Analyze(ctx context.Context, codes []string) ([]contracts.Candidate, []fetch.FailedCode, error) {
	known, err := s.deps.Universe(ctx)
	if err != nil {
		s.logger.WithError(err).Warn("Universe unavailable, names and sectors fall back to lookups")
		known = &contracts.Universe{}
	}

	u := &contracts.Universe{Stocks: make([]contracts.Stock, 0, len(codes))}
	for _, code := range codes {
		stock, ok := known.Find(code)
		if !ok {
			stock = contracts.Stock{Code: code, Name: s.companyName(ctx, code)}
		}
		u.Stocks = append(u.Stocks, stock)
	}

	candidates, failed := s.evaluate(ctx, u)
	return candidates, failed, nil
}

// companyName resolves a name through the cache, falling back to the code itself
func (s *Service) companyName(ctx context.Context, code string) string {
	if s.deps.Names == nil {
		return code
	}

	var name string
	err := s.deps.Cache.GetOrSet(ctx, redis.CompanyNameKey(code), &name, redis.TTLName, func() (interface{}, error) {
		return s.deps.Names.FetchCompanyName(ctx, code)
	})
	if err != nil || name == "" {
		s.logger.WithFields(map[string]interface{}{
			"code":  code,
			"error": err,
		}).Debug("Company name unavailable")
		return code
	}
	return name
}

// stored looks up today's pick in the cache, then the repository
func (s *Service) stored(ctx context.Context, day time.Time) (*contracts.Pick, bool) {
	key := redis.TodayPickKey(dayKey(day))

	var cached contracts.Pick
	found, err := s.deps.Cache.Get(ctx, key, &cached)
	if err != nil {
		s.logger.WithError(err).Warn("Pick cache read failed")
	}
	if found {
		s.deps.Metrics.ObserveCache("pick", true)
		return &cached, true
	}
	if s.deps.Cache.Enabled() {
		s.deps.Metrics.ObserveCache("pick", false)
	}

	pick, err := s.deps.Repository.GetByDate(ctx, day)
	if err != nil {
		if !errors.Is(err, contracts.ErrNotFound) {
			s.logger.WithError(err).Warn("Pick repository read failed")
		}
		return nil, false
	}

	s.cachePick(ctx, pick)
	return pick, true
}

// run selects, stores and publishes; caller holds s.mu
func (s *Service) run(ctx context.Context, day time.Time) (*contracts.Pick, error) {
	start := time.Now()

	universe, err := s.deps.Universe(ctx)
	if err != nil {
		s.deps.Metrics.ObservePick(metrics.OutcomeError, 0, 0, time.Since(start))
		return nil, fmt.Errorf("resolve universe: %w", err)
	}

	candidates, failed := s.evaluate(ctx, universe)
	result := s.deps.Ranker.SelectTop(candidates)
	outcome := metrics.OutcomeReal

	if result.Empty() && s.deps.Simulator != nil {
		s.logger.WithFields(map[string]interface{}{
			"universe": len(universe.Stocks),
			"failed":   len(failed),
		}).Warn("No real candidates, falling back to simulated data")

		candidates = s.score(ctx, s.deps.Simulator.Candidates(universe, day))
		result = s.deps.Ranker.SelectTop(candidates)
		outcome = metrics.OutcomeSimulated
	}

	if result.Empty() {
		s.deps.Metrics.ObservePick(metrics.OutcomeError, 0, 0, time.Since(start))
		return nil, ErrNoSelection
	}

	pick := newPick(result, day, s.deps.ConfigHash)
	if err := s.deps.Repository.Save(ctx, pick); err != nil {
		s.deps.Metrics.ObservePick(metrics.OutcomeError, 0, len(candidates), time.Since(start))
		return nil, fmt.Errorf("save pick: %w", err)
	}
	s.cachePick(ctx, pick)

	if s.deps.Publisher != nil {
		s.deps.Publisher.Publish(pick)
	}
	s.deps.Metrics.ObservePick(outcome, pick.TotalScore, len(candidates), time.Since(start))

	s.logger.WithFields(map[string]interface{}{
		"date":        dayKey(day),
		"code":        pick.Code,
		"name":        pick.Name,
		"total_score": pick.TotalScore,
		"source":      pick.Source,
		"candidates":  len(candidates),
	}).Info("Selected stock of the day")

	return pick, nil
}

// evaluate collects and scores a universe
func (s *Service) evaluate(ctx context.Context, universe *contracts.Universe) ([]contracts.Candidate, []fetch.FailedCode) {
	candidates, failed := s.deps.Collector.Collect(ctx, universe)
	return s.score(ctx, candidates), failed
}

func (s *Service) score(ctx context.Context, candidates []contracts.Candidate) []contracts.Candidate {
	theme.Apply(ctx, s.deps.Theme, candidates)
	return s.deps.Scorer.ScoreAll(candidates)
}

func (s *Service) cachePick(ctx context.Context, pick *contracts.Pick) {
	if err := s.deps.Cache.Set(ctx, redis.TodayPickKey(dayKey(pick.Date)), pick, redis.TTLPick); err != nil {
		s.logger.WithError(err).Warn("Pick cache write failed")
	}
}

// newPick converts the selected candidate into a stored pick
func newPick(result contracts.RankingResult, day time.Time, configHash string) *contracts.Pick {
	c := result.Selected
	series := c.Series.Valid()

	var price float64
	if last, ok := series.Last(); ok {
		price = last.Close
	}

	return &contracts.Pick{
		Date:           day,
		Code:           c.Code,
		Name:           c.Name,
		Sector:         c.Sector,
		Price:          price,
		ChangePercent:  series.ChangePercent(),
		TotalScore:     result.TotalScore,
		TechnicalScore: c.TechnicalScore,
		ThemeScore:     c.ThemeScore,
		Indicators:     c.Derived,
		Source:         c.Source,
		ConfigHash:     configHash,
	}
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}
