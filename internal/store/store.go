// Package store persists the daily pick and its history.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/stockpick/internal/contracts"
	"github.com/wonny/stockpick/pkg/config"
	"github.com/wonny/stockpick/pkg/database"
	"github.com/wonny/stockpick/pkg/logger"
)

// ErrNotFound is returned when no pick exists for the requested day
var ErrNotFound = contracts.ErrNotFound

const dayLayout = "2006-01-02"

// Open builds the repository selected by PICK_STORE
// ⭐ SSOT: 저장소 드라이버 선택은 여기서만
func Open(ctx context.Context, cfg *config.Config, log *logger.Logger) (contracts.PickRepository, error) {
	loc := cfg.Scheduler.Location()

	switch cfg.Store.Driver {
	case "", config.StoreMemory:
		return NewMemoryRepository(), nil

	case config.StorePostgres:
		db, err := database.New(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		repo := NewPostgresRepository(db, loc)
		if err := repo.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
		stats := db.Stats()
		log.WithFields(map[string]interface{}{
			"max_conns":   stats.MaxConns,
			"total_conns": stats.TotalConns,
		}).Info("PostgreSQL pick store opened")
		return repo, nil

	case config.StoreSQLite:
		db, err := database.OpenSQLite(ctx, cfg.Store.SQLitePath)
		if err != nil {
			return nil, err
		}
		repo := NewSQLiteRepository(db, loc)
		if err := repo.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
		log.WithField("path", cfg.Store.SQLitePath).Info("SQLite pick store opened")
		return repo, nil

	default:
		return nil, fmt.Errorf("unknown pick store %q", cfg.Store.Driver)
	}
}

// prepare fills ID and CreatedAt on a pick about to be saved
func prepare(pick *contracts.Pick) {
	if pick.ID == "" {
		pick.ID = uuid.NewString()
	}
	if pick.CreatedAt.IsZero() {
		pick.CreatedAt = time.Now()
	}
}

// dayKey is the calendar day of t in its own location
func dayKey(t time.Time) string {
	return t.Format(dayLayout)
}

// atMidnight rebuilds a stored day in loc
func atMidnight(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
