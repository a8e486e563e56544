package fetch

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/stockpick/internal/contracts"
	"github.com/wonny/stockpick/pkg/logger"
)

// FailedCode reports a universe entry that produced no series
type FailedCode struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

// Collector fetches the series of every universe entry in parallel
type Collector struct {
	source      contracts.SeriesSource
	concurrency int
	lookback    time.Duration
	now         func() time.Time
	logger      *logger.Logger
}

// NewCollector creates a collector with bounded concurrency.
// lookbackDays is in calendar days; 120 covers SMA60 with margin for holidays.
func NewCollector(source contracts.SeriesSource, concurrency, lookbackDays int, log *logger.Logger) *Collector {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Collector{
		source:      source,
		concurrency: concurrency,
		lookback:    time.Duration(lookbackDays) * 24 * time.Hour,
		now:         time.Now,
		logger:      log.WithComponent("collector"),
	}
}

// Window returns the [from, to] range requested for each series
func (c *Collector) Window() (time.Time, time.Time) {
	to := c.now()
	return to.Add(-c.lookback), to
}

// Collect returns one candidate per universe entry with a series, in universe order.
// Entries whose fetch failed are dropped and reported in failed.
func (c *Collector) Collect(ctx context.Context, universe *contracts.Universe) ([]contracts.Candidate, []FailedCode) {
	stocks := universe.Stocks
	from, to := c.Window()

	type slot struct {
		series    contracts.Series
		transport string
		err       error
	}
	slots := make([]slot, len(stocks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for i, stock := range stocks {
		i, stock := i, stock
		g.Go(func() error {
			series, transport, err := c.source.FetchSeries(gctx, stock.Code, from, to)
			slots[i] = slot{series: series, transport: transport, err: err}
			return nil // 개별 실패는 slot 에 기록
		})
	}
	_ = g.Wait()

	candidates := make([]contracts.Candidate, 0, len(stocks))
	var failed []FailedCode

	for i, stock := range stocks {
		s := slots[i]
		if s.err == nil && len(s.series) == 0 {
			s.err = ErrNoData
		}
		if s.err != nil {
			failed = append(failed, FailedCode{Code: stock.Code, Error: s.err.Error()})
			continue
		}

		candidates = append(candidates, contracts.Candidate{
			Code:   stock.Code,
			Name:   stock.Name,
			Sector: stock.Sector,
			Series: s.series,
			Source: s.transport,
		})
	}

	c.logger.WithFields(map[string]interface{}{
		"universe":  len(stocks),
		"collected": len(candidates),
		"failed":    len(failed),
	}).Info("Collected price series")

	return candidates, failed
}
