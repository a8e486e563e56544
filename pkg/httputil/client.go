package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/wonny/stockpick/pkg/config"
	"github.com/wonny/stockpick/pkg/logger"
	"github.com/wonny/stockpick/pkg/redis"
)

// DefaultUserAgent is sent when a request has no User-Agent.
// Naver Finance rejects the Go default agent.
const DefaultUserAgent = "Mozilla/5.0 (compatible; stockpick/1.0)"

const defaultTimeout = 30 * time.Second

// RetryPolicy is an exponential backoff over 5xx, 429 and transport errors
type RetryPolicy struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Enabled      bool
}

// attempts is the total number of tries including the first
func (p RetryPolicy) attempts() int {
	if !p.Enabled || p.MaxRetries < 0 {
		return 1
	}
	return p.MaxRetries + 1
}

// backoff returns the wait before retry n (1-based)
func (p RetryPolicy) backoff(n int) time.Duration {
	d := p.InitialDelay
	for i := 1; i < n; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	return d
}

// Client is the shared outbound HTTP client of the price transports
// ⭐ SSOT: 모든 HTTP 요청은 이 클라이언트를 통해서만 수행
type Client struct {
	http    *http.Client
	logger  *logger.Logger
	retry   RetryPolicy
	limiter *redis.RateLimiter
	limit   *redis.RateLimitConfig
}

// New creates a client using FETCH_TIMEOUT (30s when unset)
// ⭐ SSOT: http.Client 인스턴스는 여기서만 생성
func New(cfg *config.Config, log *logger.Logger) *Client {
	timeout := cfg.Fetch.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		http:   &http.Client{Timeout: timeout},
		logger: log.WithComponent("httputil"),
		retry: RetryPolicy{
			MaxRetries:   2,
			InitialDelay: 500 * time.Millisecond,
			MaxDelay:     5 * time.Second,
			Enabled:      true,
		},
	}
}

// NewWithTimeout creates a client with a custom timeout
func NewWithTimeout(cfg *config.Config, log *logger.Logger, timeout time.Duration) *Client {
	c := New(cfg, log)
	c.http.Timeout = timeout
	return c
}

// WithRetry enables retries with the given budget
func (c *Client) WithRetry(maxRetries int, initialDelay time.Duration) *Client {
	c.retry.MaxRetries = maxRetries
	c.retry.InitialDelay = initialDelay
	c.retry.Enabled = true
	return c
}

// DisableRetry sends every request exactly once
func (c *Client) DisableRetry() *Client {
	c.retry.Enabled = false
	return c
}

// WithRateLimiter makes every request wait for the shared budget of limit
func (c *Client) WithRateLimiter(limiter *redis.RateLimiter, limit redis.RateLimitConfig) *Client {
	c.limiter = limiter
	c.limit = &limit
	return c
}

// Get performs a GET request
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build GET %s: %w", url, err)
	}
	return c.send(req)
}

// PostJSON posts data encoded as JSON
func (c *Client) PostJSON(ctx context.Context, url string, data interface{}) (*http.Response, error) {
	body, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build POST %s: %w", url, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.send(req)
}

// Do sends a prepared request (custom headers such as KIS tr_id) bound to ctx
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	return c.send(req.WithContext(ctx))
}

// GetJSON decodes a 2xx JSON body into dest
func (c *Client) GetJSON(ctx context.Context, url string, dest interface{}) error {
	resp, err := c.Get(ctx, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{StatusCode: resp.StatusCode, URL: url}
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}

// StatusError is returned for non-2xx responses by GetJSON
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.URL)
}

// send applies the user agent and rate limit, then runs the retry loop
func (c *Client) send(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", DefaultUserAgent)
	}

	if c.limiter != nil && c.limit != nil {
		if err := c.limiter.Wait(req.Context(), *c.limit); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	log := c.logger.WithFields(map[string]interface{}{
		"method": req.Method,
		"url":    req.URL.Redacted(),
	})
	start := time.Now()

	resp, err := c.roundTrips(req, log)
	if err != nil {
		log.WithFields(map[string]interface{}{
			"duration": time.Since(start).String(),
			"error":    err.Error(),
		}).Warn("HTTP request failed")
		return nil, err
	}

	log.WithFields(map[string]interface{}{
		"status_code": resp.StatusCode,
		"duration":    time.Since(start).String(),
	}).Debug("HTTP request completed")
	return resp, nil
}

// roundTrips tries req up to retry.attempts() times.
// The last response is returned as is, even when it is retryable.
func (c *Client) roundTrips(req *http.Request, log *logger.Logger) (*http.Response, error) {
	total := c.retry.attempts()

	for n := 1; ; n++ {
		if n > 1 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("rewind body: %w", err)
			}
			req.Body = body
		}

		resp, err := c.http.Do(req)
		if n == total || (err == nil && !IsRetryableError(resp.StatusCode)) {
			return resp, err
		}

		if resp != nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}

		wait := c.retry.backoff(n)
		log.WithFields(map[string]interface{}{
			"attempt": n,
			"delay":   wait.String(),
		}).Debug("Retrying HTTP request")

		t := time.NewTimer(wait)
		select {
		case <-req.Context().Done():
			t.Stop()
			return nil, req.Context().Err()
		case <-t.C:
		}
	}
}

// IsRetryableError reports whether a status is worth retrying (5xx or 429)
func IsRetryableError(statusCode int) bool {
	return statusCode >= 500 || statusCode == http.StatusTooManyRequests
}
