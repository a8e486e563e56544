package yahoo

import (
	"context"
	"fmt"
	"time"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"

	"github.com/wonny/stockpick/internal/contracts"
	"github.com/wonny/stockpick/pkg/config"
	"github.com/wonny/stockpick/pkg/logger"
)

// TransportName identifies this source in fetch chains and cache keys
const TransportName = config.TransportYahoo

// Exchange suffixes. KOSPI first; KOSDAQ names (에코프로비엠 등) only resolve with .KQ
var suffixes = []string{".KS", ".KQ"}

// barFetcher returns daily bars for a Yahoo symbol
type barFetcher func(ctx context.Context, symbol string, from, to time.Time) ([]finance.ChartBar, error)

// Client fetches daily candles from the Yahoo Finance chart API
type Client struct {
	fetch  barFetcher
	logger *logger.Logger
}

// NewClient creates a Yahoo Finance client backed by finance-go
func NewClient(log *logger.Logger) *Client {
	return &Client{
		fetch:  fetchChart,
		logger: log.WithComponent("yahoo"),
	}
}

// Name returns the transport name
func (c *Client) Name() string {
	return TransportName
}

// FetchSeries returns the daily series for a KRX code
func (c *Client) FetchSeries(ctx context.Context, code string, from, to time.Time) (contracts.Series, error) {
	var lastErr error
	for _, suffix := range suffixes {
		symbol := code + suffix

		bars, err := c.fetch(ctx, symbol, from, to)
		if err != nil {
			lastErr = err
			continue
		}

		series := toSeries(bars)
		if len(series) == 0 {
			continue
		}

		c.logger.WithFields(map[string]interface{}{
			"symbol": symbol,
			"count":  len(series),
		}).Debug("Fetched prices")
		return series, nil
	}

	if lastErr != nil {
		return nil, fmt.Errorf("yahoo chart %s: %w", code, lastErr)
	}
	return contracts.Series{}, nil
}

// fetchChart calls the chart endpoint through finance-go
func fetchChart(ctx context.Context, symbol string, from, to time.Time) ([]finance.ChartBar, error) {
	params := &chart.Params{
		Symbol:   symbol,
		Start:    datetime.New(&from),
		End:      datetime.New(&to),
		Interval: datetime.OneDay,
	}
	params.Context = &ctx

	iter := chart.Get(params)

	bars := make([]finance.ChartBar, 0)
	for iter.Next() {
		bars = append(bars, *iter.Bar())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return bars, nil
}

// toSeries converts decimal bars to float points, dropping null bars
// (Yahoo returns nulls as zero prices on halted days)
func toSeries(bars []finance.ChartBar) contracts.Series {
	series := make(contracts.Series, 0, len(bars))
	for _, bar := range bars {
		if !bar.Close.IsPositive() {
			continue
		}

		series = append(series, contracts.PricePoint{
			Date:   dayOf(bar.Timestamp),
			Open:   bar.Open.InexactFloat64(),
			High:   bar.High.InexactFloat64(),
			Low:    bar.Low.InexactFloat64(),
			Close:  bar.Close.InexactFloat64(),
			Volume: int64(bar.Volume),
		})
	}
	return series
}

// dayOf truncates a bar timestamp to its calendar day in KST
func dayOf(ts int) time.Time {
	kst := time.FixedZone("KST", 9*60*60)
	t := time.Unix(int64(ts), 0).In(kst)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
