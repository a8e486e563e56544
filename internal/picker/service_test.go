package picker

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/stockpick/internal/contracts"
	"github.com/wonny/stockpick/internal/fetch"
	"github.com/wonny/stockpick/internal/indicators"
	"github.com/wonny/stockpick/internal/scoring"
	"github.com/wonny/stockpick/internal/selection"
	"github.com/wonny/stockpick/internal/store"
	"github.com/wonny/stockpick/internal/theme"
	"github.com/wonny/stockpick/pkg/logger"
	"github.com/wonny/stockpick/pkg/metrics"
)

var kst = time.FixedZone("KST", 9*60*60)

type sourceFunc func(ctx context.Context, code string, from, to time.Time) (contracts.Series, string, error)

func (f sourceFunc) FetchSeries(ctx context.Context, code string, from, to time.Time) (contracts.Series, string, error) {
	return f(ctx, code, from, to)
}

type recordingPublisher struct {
	mu    sync.Mutex
	picks []*contracts.Pick
}

func (p *recordingPublisher) Publish(pick *contracts.Pick) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.picks = append(p.picks, pick)
}

func (p *recordingPublisher) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.picks)
}

// series of 70 rising closes; lastVolume sets the final day's volume
func series(lastVolume int64) contracts.Series {
	s := make(contracts.Series, 70)
	for i := range s {
		s[i] = contracts.PricePoint{
			Date:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i),
			Close:  10000 + float64(i)*10 + float64(i%3)*5,
			Volume: 1000,
		}
	}
	s[len(s)-1].Volume = lastVolume
	return s
}

var testUniverse = &contracts.Universe{Stocks: []contracts.Stock{
	{Code: "000001", Name: "가", Sector: "IT"},
	{Code: "000002", Name: "나", Sector: "IT"},
	{Code: "000003", Name: "다", Sector: "IT"},
}}

type fixture struct {
	svc       *Service
	calls     *int32
	publisher *recordingPublisher
	metrics   *metrics.Registry
	repo      *store.MemoryRepository
}

func newFixture(t *testing.T, source sourceFunc, simulate bool) fixture {
	t.Helper()

	var calls int32
	counted := sourceFunc(func(ctx context.Context, code string, from, to time.Time) (contracts.Series, string, error) {
		atomic.AddInt32(&calls, 1)
		return source(ctx, code, from, to)
	})

	log := logger.Nop()
	m := metrics.New()
	pub := &recordingPublisher{}
	repo := store.NewMemoryRepository()

	deps := Deps{
		Universe:   StaticUniverse(testUniverse),
		Collector:  fetch.NewCollector(counted, 2, 120, log),
		Scorer:     scoring.NewScorer(indicators.NewEngine(indicators.MACDParity, log)),
		Ranker:     selection.NewRanker(log),
		Theme:      theme.StaticProvider{"000001": 10, "000002": 10, "000003": 10},
		Repository: repo,
		Publisher:  pub,
		Metrics:    m,
		ConfigHash: "hash",
		Location:   kst,
	}
	if simulate {
		deps.Simulator = fetch.NewSimulator(1)
	}

	svc := New(deps, log)
	svc.now = func() time.Time { return time.Date(2024, 3, 4, 15, 30, 0, 0, time.UTC) } // 3/5 00:30 KST

	return fixture{svc: svc, calls: &calls, publisher: pub, metrics: m, repo: repo}
}

func realSource(ctx context.Context, code string, from, to time.Time) (contracts.Series, string, error) {
	if code == "000002" {
		return series(3000), "naver", nil // 거래량 급증
	}
	return series(1000), "naver", nil
}

func failingSource(ctx context.Context, code string, from, to time.Time) (contracts.Series, string, error) {
	return nil, "", fetch.ErrAllTransportsFailed
}

func TestService_Day(t *testing.T) {
	f := newFixture(t, realSource, false)
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, kst), f.svc.Day())
}

func TestService_TodaySelectsOncePerDay(t *testing.T) {
	f := newFixture(t, realSource, false)
	ctx := context.Background()

	pick, err := f.svc.Today(ctx)
	require.NoError(t, err)
	assert.Equal(t, "000002", pick.Code)
	assert.Equal(t, "나", pick.Name)
	assert.Equal(t, "naver", pick.Source)
	assert.Equal(t, "hash", pick.ConfigHash)
	assert.Equal(t, 10.0, pick.ThemeScore)
	assert.Greater(t, pick.Price, 0.0)
	assert.True(t, pick.Date.Equal(f.svc.Day()))
	assert.NotEmpty(t, pick.ID)
	require.NotNil(t, pick.Indicators.VolumeRatio)
	assert.Greater(t, *pick.Indicators.VolumeRatio, 150.0)

	again, err := f.svc.Today(ctx)
	require.NoError(t, err)
	assert.Equal(t, pick.ID, again.ID)
	assert.Equal(t, int32(3), atomic.LoadInt32(f.calls), "second call served from the store")
	assert.Equal(t, 1, f.publisher.Count())

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.PickRuns.WithLabelValues(metrics.OutcomeReal)))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.PickRuns.WithLabelValues(metrics.OutcomeCached)))
}

func TestService_FallsBackToSimulated(t *testing.T) {
	f := newFixture(t, failingSource, true)

	pick, err := f.svc.Today(context.Background())
	require.NoError(t, err)
	assert.True(t, pick.IsSimulated())
	assert.Contains(t, []string{"000001", "000002", "000003"}, pick.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.PickRuns.WithLabelValues(metrics.OutcomeSimulated)))
}

func TestService_NoSelectionWithoutFallback(t *testing.T) {
	f := newFixture(t, failingSource, false)

	_, err := f.svc.Today(context.Background())
	assert.ErrorIs(t, err, ErrNoSelection)
	assert.Equal(t, 0, f.publisher.Count())

	_, err = f.repo.GetByDate(context.Background(), f.svc.Day())
	assert.ErrorIs(t, err, contracts.ErrNotFound)
}

func TestService_UniverseError(t *testing.T) {
	f := newFixture(t, realSource, true)
	f.svc.deps.Universe = func(context.Context) (*contracts.Universe, error) {
		return nil, errors.New("ranking unavailable")
	}

	_, err := f.svc.Today(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ranking unavailable")
}

func TestService_RefreshRunsAgain(t *testing.T) {
	f := newFixture(t, realSource, false)
	ctx := context.Background()

	_, err := f.svc.Today(ctx)
	require.NoError(t, err)
	_, err = f.svc.Refresh(ctx)
	require.NoError(t, err)

	assert.Equal(t, int32(6), atomic.LoadInt32(f.calls))
	assert.Equal(t, 2, f.publisher.Count())

	history, err := f.svc.History(ctx, 30)
	require.NoError(t, err)
	assert.Len(t, history, 1, "refresh replaces the day's pick")
}

func TestService_ConcurrentTodayRunsOnce(t *testing.T) {
	f := newFixture(t, realSource, false)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Today(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, f.publisher.Count())
	assert.Equal(t, int32(3), atomic.LoadInt32(f.calls))
}

func TestService_Leaderboard(t *testing.T) {
	f := newFixture(t, func(ctx context.Context, code string, from, to time.Time) (contracts.Series, string, error) {
		if code == "000003" {
			return nil, "", fetch.ErrAllTransportsFailed
		}
		return realSource(ctx, code, from, to)
	}, false)

	ranked, failed, err := f.svc.Leaderboard(context.Background())
	require.NoError(t, err)
	require.Len(t, ranked, 2)
	assert.Equal(t, "000002", ranked[0].Code)
	assert.Equal(t, 1, ranked[0].Rank)
	assert.Equal(t, "000001", ranked[1].Code)
	require.Len(t, failed, 1)
	assert.Equal(t, "000003", failed[0].Code)
	assert.Equal(t, 0, f.publisher.Count(), "leaderboard does not store or publish")
}

func TestService_Analyze(t *testing.T) {
	f := newFixture(t, realSource, false)

	candidates, failed, err := f.svc.Analyze(context.Background(), []string{"000002", "999999"})
	require.NoError(t, err)
	assert.Empty(t, failed)
	require.Len(t, candidates, 2)
	assert.Equal(t, "나", candidates[0].Name)
	assert.Equal(t, "999999", candidates[1].Name, "unknown codes are named by code")
	assert.Greater(t, candidates[0].TotalScore, candidates[1].TotalScore)
}

func TestService_AnalyzeLogsUniverseFailure(t *testing.T) {
	f := newFixture(t, realSource, false)
	f.svc.deps.Universe = func(context.Context) (*contracts.Universe, error) {
		return nil, errors.New("krx listing unavailable")
	}
	var buf bytes.Buffer
	f.svc.logger = logger.NewWithWriter(&buf, "test")

	candidates, failed, err := f.svc.Analyze(context.Background(), []string{"000002"})
	require.NoError(t, err)
	assert.Empty(t, failed)
	require.Len(t, candidates, 1)
	assert.Equal(t, "000002", candidates[0].Name, "without a universe the code names the stock")

	out := buf.String()
	assert.Contains(t, out, `"level":"warn"`)
	assert.Contains(t, out, "Universe unavailable")
	assert.Contains(t, out, "krx listing unavailable")
}

type nameResolver map[string]string

func (r nameResolver) FetchCompanyName(ctx context.Context, code string) (string, error) {
	if name, ok := r[code]; ok {
		return name, nil
	}
	return "", errors.New("not listed")
}

func TestService_AnalyzeResolvesNames(t *testing.T) {
	f := newFixture(t, realSource, false)
	f.svc.deps.Names = nameResolver{"005930": "삼성전자"}

	candidates, _, err := f.svc.Analyze(context.Background(), []string{"005930", "999999", "000001"})
	require.NoError(t, err)
	require.Len(t, candidates, 3)
	assert.Equal(t, "삼성전자", candidates[0].Name)
	assert.Equal(t, "999999", candidates[1].Name, "lookup failure falls back to code")
	assert.Equal(t, "가", candidates[2].Name, "universe names win")
}

func TestService_Prune(t *testing.T) {
	f := newFixture(t, realSource, false)
	ctx := context.Background()

	for d := 0; d < 5; d++ {
		require.NoError(t, f.repo.Save(ctx, &contracts.Pick{Date: time.Date(2024, 1, 1+d, 0, 0, 0, 0, kst), Code: "000001"}))
	}

	removed, err := f.svc.Prune(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
}
