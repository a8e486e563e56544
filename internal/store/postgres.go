package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/wonny/stockpick/internal/contracts"
	"github.com/wonny/stockpick/pkg/database"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS daily_picks (
	id              UUID PRIMARY KEY,
	pick_date       DATE NOT NULL UNIQUE,
	stock_code      VARCHAR(12) NOT NULL,
	stock_name      TEXT NOT NULL,
	sector          TEXT NOT NULL DEFAULT '',
	price           DOUBLE PRECISION NOT NULL,
	change_percent  DOUBLE PRECISION NOT NULL,
	total_score     DOUBLE PRECISION NOT NULL,
	technical_score DOUBLE PRECISION NOT NULL,
	theme_score     DOUBLE PRECISION NOT NULL,
	indicators      JSONB NOT NULL,
	source          VARCHAR(32) NOT NULL,
	config_hash     VARCHAR(64) NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

const pgColumns = `id, pick_date, stock_code, stock_name, sector, price, change_percent,
	total_score, technical_score, theme_score, indicators, source, config_hash, created_at`

// PostgresRepository implements contracts.PickRepository on pgx
// ⭐ SSOT: 오늘의 종목 저장소 (PostgreSQL)
type PostgresRepository struct {
	db  *database.DB
	loc *time.Location
}

// NewPostgresRepository creates a repository; loc is the market timezone
func NewPostgresRepository(db *database.DB, loc *time.Location) *PostgresRepository {
	return &PostgresRepository{db: db, loc: loc}
}

// Migrate creates the picks table
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.Pool.Exec(ctx, pgSchema); err != nil {
		return fmt.Errorf("migrate daily_picks: %w", err)
	}
	return nil
}

// GetByDate retrieves the pick of a calendar day
func (r *PostgresRepository) GetByDate(ctx context.Context, date time.Time) (*contracts.Pick, error) {
	query := `SELECT ` + pgColumns + ` FROM daily_picks WHERE pick_date = $1`

	p, err := r.scan(r.db.Pool.QueryRow(ctx, query, pgDay(date)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get pick: %w", err)
	}
	return p, nil
}

// Save upserts the pick of its day
func (r *PostgresRepository) Save(ctx context.Context, pick *contracts.Pick) error {
	prepare(pick)

	indicators, err := json.Marshal(pick.Indicators)
	if err != nil {
		return fmt.Errorf("marshal indicators: %w", err)
	}

	query := `
		INSERT INTO daily_picks (` + pgColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (pick_date) DO UPDATE SET
			id = EXCLUDED.id,
			stock_code = EXCLUDED.stock_code,
			stock_name = EXCLUDED.stock_name,
			sector = EXCLUDED.sector,
			price = EXCLUDED.price,
			change_percent = EXCLUDED.change_percent,
			total_score = EXCLUDED.total_score,
			technical_score = EXCLUDED.technical_score,
			theme_score = EXCLUDED.theme_score,
			indicators = EXCLUDED.indicators,
			source = EXCLUDED.source,
			config_hash = EXCLUDED.config_hash,
			created_at = EXCLUDED.created_at
	`

	_, err = r.db.Pool.Exec(ctx, query,
		pick.ID, pgDay(pick.Date), pick.Code, pick.Name, pick.Sector, pick.Price, pick.ChangePercent,
		pick.TotalScore, pick.TechnicalScore, pick.ThemeScore, indicators, pick.Source, pick.ConfigHash, pick.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save pick: %w", err)
	}
	return nil
}

// History returns up to limit picks, newest day first
func (r *PostgresRepository) History(ctx context.Context, limit int) ([]*contracts.Pick, error) {
	query := `SELECT ` + pgColumns + ` FROM daily_picks ORDER BY pick_date DESC LIMIT $1`

	rows, err := r.db.Pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var picks []*contracts.Pick
	for rows.Next() {
		p, err := r.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pick: %w", err)
		}
		picks = append(picks, p)
	}
	return picks, rows.Err()
}

// PruneHistory keeps the newest keep picks
func (r *PostgresRepository) PruneHistory(ctx context.Context, keep int) (int, error) {
	query := `
		DELETE FROM daily_picks
		WHERE pick_date NOT IN (
			SELECT pick_date FROM daily_picks ORDER BY pick_date DESC LIMIT $1
		)
	`

	tag, err := r.db.Pool.Exec(ctx, query, keep)
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// Close closes the pool
func (r *PostgresRepository) Close() error {
	r.db.Close()
	return nil
}

func (r *PostgresRepository) scan(row pgx.Row) (*contracts.Pick, error) {
	var (
		p          contracts.Pick
		indicators []byte
	)
	err := row.Scan(
		&p.ID, &p.Date, &p.Code, &p.Name, &p.Sector, &p.Price, &p.ChangePercent,
		&p.TotalScore, &p.TechnicalScore, &p.ThemeScore, &indicators, &p.Source, &p.ConfigHash, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(indicators, &p.Indicators); err != nil {
		return nil, fmt.Errorf("unmarshal indicators: %w", err)
	}
	p.Date = atMidnight(p.Date, r.loc)
	return &p, nil
}

// pgDay maps a calendar day to the UTC midnight pgx encodes as DATE
func pgDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
