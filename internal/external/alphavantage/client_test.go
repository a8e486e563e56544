package alphavantage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/stockpick/pkg/config"
	"github.com/wonny/stockpick/pkg/logger"
)

const dailyJSON = `{
  "Meta Data": {"2. Symbol": "005930.KRX"},
  "Time Series (Daily)": {
    "2024-01-16": {"1. open": "72500", "2. high": "73500", "3. low": "72300", "4. close": "73000", "5. volume": "1200000"},
    "2024-01-15": {"1. open": "72300", "2. high": "73000", "3. low": "72000", "4. close": "72500", "5. volume": "1000000"},
    "2023-06-01": {"1. open": "1", "2. high": "1", "3. low": "1", "4. close": "1", "5. volume": "1"}
  }
}`

func newTestClient(baseURL, key string) *Client {
	return NewClient(config.AlphaVantageConfig{APIKey: key, BaseURL: baseURL}, 5*time.Second, logger.Nop())
}

func TestFetchSeries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/query", r.URL.Path)
		assert.Equal(t, "TIME_SERIES_DAILY", r.URL.Query().Get("function"))
		assert.Equal(t, "005930.KRX", r.URL.Query().Get("symbol"))
		assert.Equal(t, "compact", r.URL.Query().Get("outputsize"))
		assert.Equal(t, "demo", r.URL.Query().Get("apikey"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(dailyJSON))
	}))
	defer server.Close()

	c := newTestClient(server.URL, "demo")
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	series, err := c.FetchSeries(context.Background(), "005930", from, to)
	require.NoError(t, err)
	require.Len(t, series, 2, "out-of-range bar dropped")
	assert.Equal(t, 72500.0, series[0].Close)
	assert.Equal(t, 73000.0, series[1].Close)
	assert.Equal(t, int64(1200000), series[1].Volume)
}

func TestFetchSeries_RateLimitNote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"Note": "Thank you for using Alpha Vantage! Our standard API call frequency is 5 calls per minute"}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL, "demo").FetchSeries(context.Background(), "005930", time.Now().AddDate(0, 0, -30), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestFetchSeries_NoKey(t *testing.T) {
	c := newTestClient("http://127.0.0.1:0", "")
	_, err := c.FetchSeries(context.Background(), "005930", time.Now(), time.Now())
	assert.ErrorIs(t, err, ErrNoAPIKey)
	assert.Equal(t, "alphavantage", c.Name())
}
