// Package fetch collects daily price series for the ranking pipeline.
//
// Transports are tried in a configured order (first success wins), each
// behind its own circuit breaker and rate limiter. A Redis cache sits in
// front of the chain and the Collector fans out over the universe.
package fetch

import (
	"context"
	"errors"
	"time"

	"github.com/wonny/stockpick/internal/contracts"
)

// Transport is one upstream price source (naver, yahoo, kis, alphavantage)
type Transport interface {
	Name() string
	FetchSeries(ctx context.Context, code string, from, to time.Time) (contracts.Series, error)
}

var (
	// ErrNoData is returned when a transport answered without usable points
	ErrNoData = errors.New("no price data")
	// ErrAllTransportsFailed is returned when every transport in the chain failed
	ErrAllTransportsFailed = errors.New("all transports failed")
)
