package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// minBackoff keeps Wait from spinning when Redis reports an immediate retry
const minBackoff = 10 * time.Millisecond

// RateLimiter is a sliding-window limiter shared by every process on the same Redis
// ⭐ SSOT: 레이트 리밋은 여기서만
type RateLimiter struct {
	client *Client
	prefix string
}

// RateLimitConfig is the budget of one upstream
type RateLimitConfig struct {
	Key    string        // transport name
	Limit  int           // requests per window
	Window time.Duration
}

// Decision is the outcome of one admission check
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration // 거절 시 가장 오래된 요청이 창을 벗어날 때까지
}

// NewRateLimiter creates a limiter whose keys live under prefix
func NewRateLimiter(client *Client, prefix string) *RateLimiter {
	return &RateLimiter{client: client, prefix: prefix}
}

func (r *RateLimiter) key(cfg RateLimitConfig) string {
	return fmt.Sprintf("%s:ratelimit:%s", r.prefix, cfg.Key)
}

// Allow admits one request if the window has room.
// Without Redis every request is admitted.
func (r *RateLimiter) Allow(ctx context.Context, cfg RateLimitConfig) (Decision, error) {
	if !r.client.Enabled() {
		return Decision{Allowed: true, Remaining: cfg.Limit}, nil
	}

	res, err := slidingWindow.Run(ctx, r.client.Redis(), []string{r.key(cfg)},
		time.Now().UnixMilli(),
		cfg.Window.Milliseconds(),
		cfg.Limit,
		uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit %s: %w", cfg.Key, err)
	}
	if len(res) != 3 {
		return Decision{}, fmt.Errorf("rate limit %s: unexpected reply %v", cfg.Key, res)
	}

	return Decision{
		Allowed:    res[0] == 1,
		Remaining:  int(res[1]),
		RetryAfter: time.Duration(res[2]) * time.Millisecond,
	}, nil
}

// slidingWindow keeps one sorted-set member per admitted request.
// Members are unique so requests within the same millisecond all count.
// Reply: {allowed, remaining, retry_after_ms}
var slidingWindow = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)

local count = redis.call('ZCARD', key)
if count < limit then
	redis.call('ZADD', key, now, ARGV[4])
	redis.call('PEXPIRE', key, window)
	return {1, limit - count - 1, 0}
end

local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
local retry = 0
if oldest[2] then
	retry = tonumber(oldest[2]) + window - now
end
return {0, 0, retry}
`)

// Wait blocks until a request is admitted or ctx ends
func (r *RateLimiter) Wait(ctx context.Context, cfg RateLimitConfig) error {
	for {
		d, err := r.Allow(ctx, cfg)
		if err != nil {
			return err
		}
		if d.Allowed {
			return nil
		}

		backoff := d.RetryAfter
		if backoff < minBackoff {
			backoff = minBackoff
		}
		t := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

// Shared upstream budgets
var (
	// KIS API: 초당 5회 제한
	KISRateLimit = RateLimitConfig{Key: "kis", Limit: 5, Window: time.Second}

	// Naver Finance: 초당 10회 (보수적)
	NaverRateLimit = RateLimitConfig{Key: "naver", Limit: 10, Window: time.Second}

	// Yahoo chart API: 비공식 API 라 초당 2회
	YahooRateLimit = RateLimitConfig{Key: "yahoo", Limit: 2, Window: time.Second}

	// Alpha Vantage free tier: 분당 5회
	AlphaVantageRateLimit = RateLimitConfig{Key: "alphavantage", Limit: 5, Window: time.Minute}
)

var rateLimits = map[string]RateLimitConfig{
	KISRateLimit.Key:          KISRateLimit,
	NaverRateLimit.Key:        NaverRateLimit,
	YahooRateLimit.Key:        YahooRateLimit,
	AlphaVantageRateLimit.Key: AlphaVantageRateLimit,
}

// RateLimitFor returns the budget of a transport name
func RateLimitFor(transport string) (RateLimitConfig, bool) {
	cfg, ok := rateLimits[transport]
	return cfg, ok
}
