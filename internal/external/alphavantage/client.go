// Package alphavantage fetches KRX daily candles from Alpha Vantage.
package alphavantage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/wonny/stockpick/internal/contracts"
	"github.com/wonny/stockpick/pkg/config"
	"github.com/wonny/stockpick/pkg/logger"
)

// TransportName identifies this source in fetch chains and cache keys
const TransportName = config.TransportAlphaVantage

// compact output covers the last 100 trading days (about 140 calendar days)
const compactSpan = 140 * 24 * time.Hour

// ErrNoAPIKey is returned when the client is used without a key
var ErrNoAPIKey = errors.New("alpha vantage API key not configured")

// Client fetches TIME_SERIES_DAILY for <code>.KRX symbols
type Client struct {
	client *resty.Client
	apiKey string
	logger *logger.Logger
}

// NewClient creates an Alpha Vantage client
func NewClient(cfg config.AlphaVantageConfig, timeout time.Duration, log *logger.Logger) *Client {
	client := resty.New()
	client.SetBaseURL(cfg.BaseURL)
	client.SetTimeout(timeout)
	client.SetRetryCount(1)

	return &Client{
		client: client,
		apiKey: cfg.APIKey,
		logger: log.WithComponent("alphavantage"),
	}
}

// Name returns the transport name
func (c *Client) Name() string {
	return TransportName
}

type dailyBar struct {
	Open   string `json:"1. open"`
	High   string `json:"2. high"`
	Low    string `json:"3. low"`
	Close  string `json:"4. close"`
	Volume string `json:"5. volume"`
}

type dailyResponse struct {
	TimeSeries   map[string]dailyBar `json:"Time Series (Daily)"`
	ErrorMessage string              `json:"Error Message"`
	Note         string              `json:"Note"`
	Information  string              `json:"Information"`
}

// FetchSeries returns the daily series for a KRX code within [from, to]
func (c *Client) FetchSeries(ctx context.Context, code string, from, to time.Time) (contracts.Series, error) {
	if c.apiKey == "" {
		return nil, ErrNoAPIKey
	}

	outputSize := "compact"
	if to.Sub(from) > compactSpan {
		outputSize = "full"
	}

	var result dailyResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"function":   "TIME_SERIES_DAILY",
			"symbol":     code + ".KRX",
			"outputsize": outputSize,
			"apikey":     c.apiKey,
		}).
		SetResult(&result).
		Get("/query")
	if err != nil {
		return nil, fmt.Errorf("alpha vantage request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("alpha vantage status %d", resp.StatusCode())
	}

	// 한도 초과 시 200 OK + Note/Information
	switch {
	case result.ErrorMessage != "":
		return nil, fmt.Errorf("alpha vantage: %s", result.ErrorMessage)
	case result.Note != "":
		return nil, fmt.Errorf("alpha vantage rate limited: %s", result.Note)
	case result.TimeSeries == nil && result.Information != "":
		return nil, fmt.Errorf("alpha vantage: %s", result.Information)
	}

	series := toSeries(result.TimeSeries, from, to)

	c.logger.WithFields(map[string]interface{}{
		"code":  code,
		"count": len(series),
	}).Debug("Fetched prices")

	return series, nil
}

// toSeries keeps bars inside [from, to] by calendar day, ascending
func toSeries(bars map[string]dailyBar, from, to time.Time) contracts.Series {
	fromDay := from.Format("2006-01-02")
	toDay := to.Format("2006-01-02")

	series := make(contracts.Series, 0, len(bars))
	for day, bar := range bars {
		if day < fromDay || day > toDay {
			continue
		}
		date, err := time.Parse("2006-01-02", day)
		if err != nil {
			continue
		}

		series = append(series, contracts.PricePoint{
			Date:   date,
			Open:   parseFloat(bar.Open),
			High:   parseFloat(bar.High),
			Low:    parseFloat(bar.Low),
			Close:  parseFloat(bar.Close),
			Volume: int64(parseFloat(bar.Volume)),
		})
	}

	sort.Slice(series, func(i, j int) bool {
		return series[i].Date.Before(series[j].Date)
	})
	return series
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
