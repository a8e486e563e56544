package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/stockpick/internal/contracts"
	"github.com/wonny/stockpick/pkg/logger"
	"github.com/wonny/stockpick/pkg/metrics"
	"github.com/wonny/stockpick/pkg/redis"
)

type fakeTransport struct {
	name string

	mu     sync.Mutex
	calls  int
	series map[string]contracts.Series
	err    error
}

func (f *fakeTransport) Name() string { return f.name }

func (f *fakeTransport) FetchSeries(ctx context.Context, code string, from, to time.Time) (contracts.Series, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.series[code], nil
}

func (f *fakeTransport) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func points(closes ...float64) contracts.Series {
	s := make(contracts.Series, len(closes))
	for i, c := range closes {
		s[i] = contracts.PricePoint{
			Date:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i),
			Close:  c,
			Volume: 1000,
		}
	}
	return s
}

func unlimited() ChainOptions {
	opts := DefaultChainOptions()
	opts.RatePerSecond = 0
	return opts
}

func TestChain_FirstSuccessWins(t *testing.T) {
	down := &fakeTransport{name: "naver", err: errors.New("connection refused")}
	yahoo := &fakeTransport{name: "yahoo", series: map[string]contracts.Series{"005930": points(100, 101)}}
	kis := &fakeTransport{name: "kis", series: map[string]contracts.Series{"005930": points(1, 2)}}

	chain := NewChain([]Transport{down, yahoo, kis}, unlimited(), logger.Nop())
	assert.Equal(t, []string{"naver", "yahoo", "kis"}, chain.Names())

	series, transport, err := chain.FetchSeries(context.Background(), "005930", time.Time{}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "yahoo", transport)
	assert.Len(t, series, 2)
	assert.Equal(t, 0, kis.Calls(), "later transports are not called after a success")
}

func TestChain_EmptySeriesFallsThrough(t *testing.T) {
	empty := &fakeTransport{name: "naver", series: map[string]contracts.Series{"005930": points(0, -1)}}
	yahoo := &fakeTransport{name: "yahoo", series: map[string]contracts.Series{"005930": points(100)}}

	chain := NewChain([]Transport{empty, yahoo}, unlimited(), logger.Nop())
	_, transport, err := chain.FetchSeries(context.Background(), "005930", time.Time{}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "yahoo", transport)
}

func TestChain_AllFailed(t *testing.T) {
	chain := NewChain([]Transport{
		&fakeTransport{name: "naver", err: errors.New("boom")},
		&fakeTransport{name: "yahoo", series: map[string]contracts.Series{}},
	}, unlimited(), logger.Nop())

	_, _, err := chain.FetchSeries(context.Background(), "005930", time.Time{}, time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAllTransportsFailed)
	assert.ErrorIs(t, err, ErrNoData)
	assert.Contains(t, err.Error(), "naver: boom")

	_, _, err = NewChain(nil, unlimited(), logger.Nop()).FetchSeries(context.Background(), "005930", time.Time{}, time.Now())
	assert.ErrorIs(t, err, ErrAllTransportsFailed)
}

func TestChain_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	flaky := &fakeTransport{name: "naver", err: errors.New("503")}
	backup := &fakeTransport{name: "yahoo", series: map[string]contracts.Series{"005930": points(100)}}

	m := metrics.New()
	opts := unlimited()
	opts.MaxConsecutiveFailures = 2
	opts.OpenTimeout = time.Hour
	opts.Metrics = m
	chain := NewChain([]Transport{flaky, backup}, opts, logger.Nop())

	for i := 0; i < 5; i++ {
		_, transport, err := chain.FetchSeries(context.Background(), "005930", time.Time{}, time.Now())
		require.NoError(t, err)
		assert.Equal(t, "yahoo", transport)
	}
	assert.Equal(t, 2, flaky.Calls(), "open breaker short-circuits the transport")
}

func TestChain_NoDataDoesNotTripBreaker(t *testing.T) {
	empty := &fakeTransport{name: "naver", series: map[string]contracts.Series{}}
	opts := unlimited()
	opts.MaxConsecutiveFailures = 1
	chain := NewChain([]Transport{empty}, opts, logger.Nop())

	for i := 0; i < 3; i++ {
		_, _, err := chain.FetchSeries(context.Background(), "005930", time.Time{}, time.Now())
		assert.ErrorIs(t, err, ErrNoData)
	}
	assert.Equal(t, 3, empty.Calls())
}

func TestChain_CanceledContext(t *testing.T) {
	ok := &fakeTransport{name: "naver", series: map[string]contracts.Series{"005930": points(100)}}
	chain := NewChain([]Transport{ok}, unlimited(), logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := chain.FetchSeries(ctx, "005930", time.Time{}, time.Now())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, ok.Calls())
}

type sourceFunc func(ctx context.Context, code string, from, to time.Time) (contracts.Series, string, error)

func (f sourceFunc) FetchSeries(ctx context.Context, code string, from, to time.Time) (contracts.Series, string, error) {
	return f(ctx, code, from, to)
}

func TestCachedSource_MissThenStore(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := redis.NewCache(redis.NewFromRedis(db), "stockpick")
	to := time.Date(2024, 1, 16, 15, 0, 0, 0, time.UTC)
	series := points(100, 101)

	calls := 0
	source := sourceFunc(func(ctx context.Context, code string, from, to time.Time) (contracts.Series, string, error) {
		calls++
		return series, "yahoo", nil
	})

	mock.ExpectGet("stockpick:cache:series:naver:005930:2024-01-16").RedisNil()
	mock.ExpectGet("stockpick:cache:series:yahoo:005930:2024-01-16").RedisNil()
	data, err := json.Marshal(series)
	require.NoError(t, err)
	mock.ExpectSet("stockpick:cache:series:yahoo:005930:2024-01-16", data, 5*time.Minute).SetVal("OK")

	m := metrics.New()
	s := NewCachedSource(source, []string{"naver", "yahoo"}, cache, 5*time.Minute, m, logger.Nop())
	got, transport, err := s.FetchSeries(context.Background(), "005930", to.AddDate(0, 0, -120), to)
	require.NoError(t, err)
	assert.Equal(t, "yahoo", transport)
	assert.Len(t, got, 2)
	assert.Equal(t, 1, calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedSource_Hit(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := redis.NewCache(redis.NewFromRedis(db), "stockpick")
	to := time.Date(2024, 1, 16, 15, 0, 0, 0, time.UTC)

	data, err := json.Marshal(points(100, 101, 102))
	require.NoError(t, err)
	mock.ExpectGet("stockpick:cache:series:naver:005930:2024-01-16").RedisNil()
	mock.ExpectGet("stockpick:cache:series:yahoo:005930:2024-01-16").SetVal(string(data))

	source := sourceFunc(func(ctx context.Context, code string, from, to time.Time) (contracts.Series, string, error) {
		t.Fatal("source must not be called on a cache hit")
		return nil, "", nil
	})

	s := NewCachedSource(source, []string{"naver", "yahoo"}, cache, 0, nil, logger.Nop())
	got, transport, err := s.FetchSeries(context.Background(), "005930", to.AddDate(0, 0, -120), to)
	require.NoError(t, err)
	assert.Equal(t, "yahoo", transport)
	assert.Len(t, got, 3)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedSource_KeysUseMarketDay(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := redis.NewCache(redis.NewFromRedis(db), "stockpick")
	kst := time.FixedZone("KST", 9*60*60)

	// 16:00 UTC is already the next morning in Seoul
	to := time.Date(2024, 1, 16, 16, 0, 0, 0, time.UTC)

	data, err := json.Marshal(points(100, 101))
	require.NoError(t, err)
	mock.ExpectGet("stockpick:cache:series:naver:005930:2024-01-17").SetVal(string(data))

	source := sourceFunc(func(ctx context.Context, code string, from, to time.Time) (contracts.Series, string, error) {
		t.Fatal("source must not be called on a cache hit")
		return nil, "", nil
	})

	s := NewCachedSource(source, []string{"naver"}, cache, 0, nil, logger.Nop()).InLocation(kst)
	got, transport, err := s.FetchSeries(context.Background(), "005930", to.AddDate(0, 0, -120), to)
	require.NoError(t, err)
	assert.Equal(t, "naver", transport)
	assert.Len(t, got, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedSource_DisabledPassesThrough(t *testing.T) {
	cache := redis.NewCache(redis.NewFromRedis(nil), "stockpick")
	source := sourceFunc(func(ctx context.Context, code string, from, to time.Time) (contracts.Series, string, error) {
		return points(100), "naver", nil
	})

	s := NewCachedSource(source, []string{"naver"}, cache, time.Minute, nil, logger.Nop())
	got, transport, err := s.FetchSeries(context.Background(), "005930", time.Time{}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "naver", transport)
	assert.Len(t, got, 1)
}

func TestCollector_PreservesUniverseOrder(t *testing.T) {
	universe := &contracts.Universe{Stocks: []contracts.Stock{
		{Code: "A", Name: "에이"},
		{Code: "B", Name: "비"},
		{Code: "C", Name: "씨"},
		{Code: "D", Name: "디"},
	}}

	source := sourceFunc(func(ctx context.Context, code string, from, to time.Time) (contracts.Series, string, error) {
		switch code {
		case "A":
			time.Sleep(20 * time.Millisecond) // finishes last
			return points(1, 2), "naver", nil
		case "C":
			return nil, "", fmt.Errorf("%w for C", ErrAllTransportsFailed)
		default:
			return points(3, 4), "yahoo", nil
		}
	})

	collector := NewCollector(source, 4, 120, logger.Nop())
	candidates, failed := collector.Collect(context.Background(), universe)

	require.Len(t, candidates, 3)
	assert.Equal(t, "A", candidates[0].Code)
	assert.Equal(t, "B", candidates[1].Code)
	assert.Equal(t, "D", candidates[2].Code)
	assert.Equal(t, "에이", candidates[0].Name)
	assert.Equal(t, "naver", candidates[0].Source)

	require.Len(t, failed, 1)
	assert.Equal(t, "C", failed[0].Code)
}

func TestCollector_Window(t *testing.T) {
	c := NewCollector(nil, 0, 120, logger.Nop())
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	from, to := c.Window()
	assert.Equal(t, now, to)
	assert.Equal(t, now.AddDate(0, 0, -120), from)
	assert.Equal(t, 1, c.concurrency)
}

func TestSimulator_Deterministic(t *testing.T) {
	universe := &contracts.Universe{Stocks: []contracts.Stock{
		{Code: "005930", Name: "삼성전자"},
		{Code: "000660", Name: "SK하이닉스"},
	}}
	end := time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC)

	a := NewSimulator(42).Candidates(universe, end)
	b := NewSimulator(42).Candidates(universe, end)
	require.Len(t, a, 2)
	assert.Equal(t, a, b)

	c := NewSimulator(42).Candidates(universe, end.AddDate(0, 0, 1))
	assert.NotEqual(t, a[0].Series, c[0].Series, "a different day yields a different walk")

	for _, cand := range a {
		assert.Equal(t, contracts.SourceSimulated, cand.Source)
		require.Len(t, cand.Series, SimulatedDays)
		assert.Len(t, cand.Series.Valid(), SimulatedDays, "all closes positive")
		for i := 1; i < len(cand.Series); i++ {
			assert.True(t, cand.Series[i-1].Date.Before(cand.Series[i].Date))
			wd := cand.Series[i].Date.Weekday()
			assert.NotEqual(t, time.Saturday, wd)
			assert.NotEqual(t, time.Sunday, wd)
		}
	}
}
