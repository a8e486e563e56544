package naver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/stockpick/pkg/config"
	"github.com/wonny/stockpick/pkg/httputil"
	"github.com/wonny/stockpick/pkg/logger"
)

const siseBody = `[['날짜', '시가', '고가', '저가', '종가', '거래량', '외국인소진율'],
["20240115", 72300, 73000, 72000, 72500, 1000000, 53.5],
["20240116", 72500, 73500, 72300, 73000, 1200000, 53.6],
]`

func newTestClient(baseURL string) *Client {
	httpClient := httputil.New(&config.Config{Env: "test"}, logger.Nop()).DisableRetry()
	return NewClient(httpClient, config.NaverConfig{BaseURL: baseURL, ChartURL: baseURL}, logger.Nop()).
		WithRankingURLs(baseURL, baseURL)
}

func TestParsePriceResponse(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"sise with trailing comma", siseBody, 2},
		{"plain json with string numbers", `[["날짜","시가","고가","저가","종가","거래량"],["20240115","72300","73000","72000","72500","1000000"]]`, 1},
		{"regex fallback", `garbage ["20240115", 72300, 73000, 72000, 72500, 1000000] more`, 1},
		{"insufficient columns", `[["20240115", 72300, 73000]]`, 0},
		{"invalid format", `{"invalid": "json"}`, 0},
		{"empty string", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parsePriceResponse(tt.body)
			require.Len(t, got, tt.want)
			for _, p := range got {
				assert.False(t, p.Date.IsZero())
				assert.Greater(t, p.Close, 0.0)
			}
		})
	}
}

func TestParsePriceResponse_Values(t *testing.T) {
	got := parsePriceResponse(siseBody)
	require.Len(t, got, 2)

	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), got[0].Date)
	assert.Equal(t, 72300.0, got[0].Open)
	assert.Equal(t, 73000.0, got[0].High)
	assert.Equal(t, 72000.0, got[0].Low)
	assert.Equal(t, 72500.0, got[0].Close)
	assert.Equal(t, int64(1000000), got[0].Volume)
}

func TestToFloat64(t *testing.T) {
	tests := []struct {
		name  string
		input interface{}
		want  float64
	}{
		{"float64", 123.45, 123.45},
		{"int64", int64(123), 123},
		{"int", 123, 123},
		{"string", "72,300", 72300},
		{"invalid string", "abc", 0},
		{"nil", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, toFloat64(tt.input))
		})
	}
}

func TestFetchSeries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/siseJson.naver", r.URL.Path)
		assert.Equal(t, "005930", r.URL.Query().Get("symbol"))
		assert.Equal(t, "20240101", r.URL.Query().Get("startTime"))
		assert.Equal(t, "day", r.URL.Query().Get("timeframe"))
		_, _ = w.Write([]byte(siseBody))
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	assert.Equal(t, "naver", c.Name())

	series, err := c.FetchSeries(context.Background(), "005930",
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Len(t, series, 2)
}

func TestFetchSeries_BadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).FetchSeries(context.Background(), "005930", time.Now(), time.Now())
	assert.Error(t, err)
}

func TestFetchCompanyName(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/item/main.naver", r.URL.Path)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if r.URL.Query().Get("code") == "000000" {
			_, _ = w.Write([]byte(`<html><head><title></title></head><body></body></html>`))
			return
		}
		_, _ = w.Write([]byte(`<html><head><title>삼성전자 : 네이버 증권</title></head>
<body><div class="wrap_company"><h2><a href="#">삼성전자</a></h2></div></body></html>`))
	}))
	defer server.Close()

	c := newTestClient(server.URL)

	name, err := c.FetchCompanyName(context.Background(), "005930")
	require.NoError(t, err)
	assert.Equal(t, "삼성전자", name)

	_, err = c.FetchCompanyName(context.Background(), "000000")
	assert.Error(t, err)
}

func TestParseCompanyName_TitleFallback(t *testing.T) {
	assert.Equal(t, "SK하이닉스", parseCompanyName(`<html><head><title>SK하이닉스 : 네이버 증권</title></head></html>`))
}

func TestGetRanking(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/stock/exchange/KOSPI"):
			assert.Equal(t, "ACC_TRADING_VOLUME", r.URL.Query().Get("sortType"))
			_, _ = w.Write([]byte(`{"stocks":[{"itemCode":"005930","stockName":"삼성전자"},{"itemCode":"000660","stockName":"SK하이닉스"}]}`))
		case r.URL.Path == "/api/stocks/marketValue/KOSPI":
			_, _ = w.Write([]byte(`{"stocks":[{"itemCode":"005930","stockName":"삼성전자"}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	ctx := context.Background()

	items, err := c.GetRanking(ctx, RankingVolume, "kospi", 10)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, RankingItem{Rank: 2, Code: "000660", Name: "SK하이닉스"}, items[1])

	items, err = c.GetRanking(ctx, RankingMarketCap, "KOSPI", 10)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	_, err = c.GetRanking(ctx, RankingCategory("nope"), "KOSPI", 10)
	assert.Error(t, err)

	u, err := c.RankingUniverse(ctx, RankingVolume, "KOSPI", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"005930"}, u.Codes())
}

func TestParseRankingCategory(t *testing.T) {
	cat, err := ParseRankingCategory("quantHigh")
	require.NoError(t, err)
	assert.Equal(t, RankingVolumeSurge, cat)

	_, err = ParseRankingCategory("high52week")
	assert.Error(t, err)
}
