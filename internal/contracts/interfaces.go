package contracts

import (
	"context"
	"time"
)

// SeriesSource supplies an OHLCV series for one stock code
// ⭐ SSOT: fetch collaborator 인터페이스
type SeriesSource interface {
	FetchSeries(ctx context.Context, code string, from, to time.Time) (Series, string, error)
}

// ThemeScoreProvider supplies the opaque theme score of a candidate
// ⭐ SSOT: 테마 점수 collaborator 인터페이스
type ThemeScoreProvider interface {
	Score(ctx context.Context, stock Stock) float64
}

// PickPublisher is notified of every new daily pick
type PickPublisher interface {
	Publish(pick *Pick)
}

// NameResolver looks up the company name of a stock code
type NameResolver interface {
	FetchCompanyName(ctx context.Context, code string) (string, error)
}
