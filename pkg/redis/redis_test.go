package redis

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/stockpick/pkg/config"
)

func disabledClient(t *testing.T) *Client {
	t.Helper()
	client, err := New(context.Background(), config.RedisConfig{Enabled: false})
	require.NoError(t, err)
	return client
}

func TestNewClient_Disabled(t *testing.T) {
	client := disabledClient(t)
	assert.False(t, client.Enabled())
	assert.NoError(t, client.Ping(context.Background()))
	assert.NoError(t, client.Close())
}

func TestRateLimiter_Disabled(t *testing.T) {
	limiter := NewRateLimiter(disabledClient(t), "test")

	// When Redis is disabled, all requests should be allowed
	d, err := limiter.Allow(context.Background(), KISRateLimit)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, KISRateLimit.Limit, d.Remaining)
	assert.NoError(t, limiter.Wait(context.Background(), NaverRateLimit))
}

func TestNewClient_Unreachable(t *testing.T) {
	// 닫힌 포트: 연결 실패는 에러로 보고되고 호출자가 비활성 클라이언트로 대체
	_, err := New(context.Background(), config.RedisConfig{Enabled: true, Host: "127.0.0.1", Port: "1"})
	assert.Error(t, err)
	assert.False(t, NewFromRedis(nil).Enabled())
}

func TestCache_Disabled(t *testing.T) {
	cache := NewCache(disabledClient(t), "test")
	ctx := context.Background()

	var result string
	found, err := cache.Get(ctx, "key", &result)
	require.NoError(t, err)
	assert.False(t, found)

	assert.NoError(t, cache.Set(ctx, "key", "v", time.Minute))

	keys, err := cache.Keys(ctx, "*")
	require.NoError(t, err)
	assert.Empty(t, keys)

	n, err := cache.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestCache_GetOrSet_DisabledCallsFn(t *testing.T) {
	cache := NewCache(disabledClient(t), "test")

	calls := 0
	var out []int
	err := cache.GetOrSet(context.Background(), "k", &out, time.Minute, func() (interface{}, error) {
		calls++
		return []int{1, 2}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, []int{1, 2}, out)
}

func TestCache_GetHitAndMiss(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewCache(NewFromRedis(db), "stockpick")
	ctx := context.Background()

	key := SeriesKey("naver", "005930", "2024-01-02")
	mock.ExpectGet("stockpick:cache:" + key).SetVal(`{"close":71000}`)

	var hit struct {
		Close float64 `json:"close"`
	}
	found, err := cache.Get(ctx, key, &hit)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 71000.0, hit.Close)

	mock.ExpectGet("stockpick:cache:missing").RedisNil()
	found, err = cache.Get(ctx, "missing", &hit)
	require.NoError(t, err)
	assert.False(t, found)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCache_KeysAndClear(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewCache(NewFromRedis(db), "stockpick")
	ctx := context.Background()

	full := []string{
		"stockpick:cache:series:naver:005930:2024-01-02",
		"stockpick:cache:pick:today:2024-01-02",
	}

	mock.ExpectScan(0, "stockpick:cache:series:*", 100).SetVal(full[:1], 0)
	keys, err := cache.Keys(ctx, "series:*")
	require.NoError(t, err)
	assert.Equal(t, []string{"series:naver:005930:2024-01-02"}, keys)

	mock.ExpectScan(0, "stockpick:cache:*", 100).SetVal(full, 0)
	mock.ExpectDel(full...).SetVal(2)
	n, err := cache.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRateLimitFor(t *testing.T) {
	for _, name := range []string{"kis", "naver", "yahoo", "alphavantage"} {
		cfg, ok := RateLimitFor(name)
		assert.True(t, ok, name)
		assert.Equal(t, name, cfg.Key)
	}

	_, ok := RateLimitFor("bloomberg")
	assert.False(t, ok)
}

func TestCacheKeys(t *testing.T) {
	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"SeriesKey", SeriesKey("yahoo", "005930", "2024-01-15"), "series:yahoo:005930:2024-01-15"},
		{"TodayPickKey", TodayPickKey("2024-01-15"), "pick:today:2024-01-15"},
		{"CompanyNameKey", CompanyNameKey("000660"), "stock:name:000660"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.got)
		})
	}
}
