package contracts

import (
	"context"
	"errors"
	"time"
)

// ⭐ SSOT: Repository 인터페이스 정의는 여기서만

// ErrNotFound is returned by repositories when no record matches
var ErrNotFound = errors.New("not found")

// PickRepository persists the daily pick and its history
type PickRepository interface {
	GetByDate(ctx context.Context, date time.Time) (*Pick, error)
	Save(ctx context.Context, pick *Pick) error
	History(ctx context.Context, limit int) ([]*Pick, error)
	PruneHistory(ctx context.Context, keep int) (int, error)
	Close() error
}

// Pick is the stored stock of the day
type Pick struct {
	ID             string       `json:"id"`
	Date           time.Time    `json:"date"` // calendar day, midnight in the market timezone
	Code           string       `json:"code"`
	Name           string       `json:"name"`
	Sector         string       `json:"sector,omitempty"`
	Price          float64      `json:"price"`
	ChangePercent  float64      `json:"change_percent"`
	TotalScore     float64      `json:"total_score"`
	TechnicalScore float64      `json:"technical_score"`
	ThemeScore     float64      `json:"theme_score"`
	Indicators     IndicatorSet `json:"indicators"`
	Source         string       `json:"source"`
	ConfigHash     string       `json:"config_hash"`
	CreatedAt      time.Time    `json:"created_at"`
}

// IsSimulated reports whether the pick came from the simulated fallback
func (p *Pick) IsSimulated() bool {
	return p.Source == SourceSimulated
}
