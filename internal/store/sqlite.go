package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/wonny/stockpick/internal/contracts"
)

// migrations are applied in order; user_version tracks progress
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS daily_picks (
		id              TEXT PRIMARY KEY,
		pick_date       TEXT NOT NULL UNIQUE,
		stock_code      TEXT NOT NULL,
		stock_name      TEXT NOT NULL,
		sector          TEXT NOT NULL DEFAULT '',
		price           REAL NOT NULL,
		change_percent  REAL NOT NULL,
		total_score     REAL NOT NULL,
		technical_score REAL NOT NULL,
		theme_score     REAL NOT NULL,
		indicators      TEXT NOT NULL,
		source          TEXT NOT NULL,
		config_hash     TEXT NOT NULL,
		created_at      TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_daily_picks_code ON daily_picks(stock_code)`,
}

const sqliteColumns = `id, pick_date, stock_code, stock_name, sector, price, change_percent,
	total_score, technical_score, theme_score, indicators, source, config_hash, created_at`

// SQLiteRepository implements contracts.PickRepository on modernc sqlite
type SQLiteRepository struct {
	db  *sql.DB
	loc *time.Location
}

// NewSQLiteRepository wraps an open database; loc is the market timezone
func NewSQLiteRepository(db *sql.DB, loc *time.Location) *SQLiteRepository {
	return &SQLiteRepository{db: db, loc: loc}
}

// Migrate applies pending migrations
func (r *SQLiteRepository) Migrate(ctx context.Context) error {
	var version int
	if err := r.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}

	for i := version; i < len(migrations); i++ {
		if _, err := r.db.ExecContext(ctx, migrations[i]); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
		if _, err := r.db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", i+1)); err != nil {
			return fmt.Errorf("set user_version: %w", err)
		}
	}
	return nil
}

// GetByDate retrieves the pick of a calendar day
func (r *SQLiteRepository) GetByDate(ctx context.Context, date time.Time) (*contracts.Pick, error) {
	query := `SELECT ` + sqliteColumns + ` FROM daily_picks WHERE pick_date = ?`

	p, err := r.scan(r.db.QueryRowContext(ctx, query, dayKey(date)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get pick: %w", err)
	}
	return p, nil
}

// Save upserts the pick of its day
func (r *SQLiteRepository) Save(ctx context.Context, pick *contracts.Pick) error {
	prepare(pick)

	indicators, err := json.Marshal(pick.Indicators)
	if err != nil {
		return fmt.Errorf("marshal indicators: %w", err)
	}

	query := `
		INSERT INTO daily_picks (` + sqliteColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (pick_date) DO UPDATE SET
			id = excluded.id,
			stock_code = excluded.stock_code,
			stock_name = excluded.stock_name,
			sector = excluded.sector,
			price = excluded.price,
			change_percent = excluded.change_percent,
			total_score = excluded.total_score,
			technical_score = excluded.technical_score,
			theme_score = excluded.theme_score,
			indicators = excluded.indicators,
			source = excluded.source,
			config_hash = excluded.config_hash,
			created_at = excluded.created_at
	`

	_, err = r.db.ExecContext(ctx, query,
		pick.ID, dayKey(pick.Date), pick.Code, pick.Name, pick.Sector, pick.Price, pick.ChangePercent,
		pick.TotalScore, pick.TechnicalScore, pick.ThemeScore, string(indicators), pick.Source, pick.ConfigHash,
		pick.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save pick: %w", err)
	}
	return nil
}

// History returns up to limit picks, newest day first
func (r *SQLiteRepository) History(ctx context.Context, limit int) ([]*contracts.Pick, error) {
	query := `SELECT ` + sqliteColumns + ` FROM daily_picks ORDER BY pick_date DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, limit)
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
func (r *SQLiteRepository) PruneHistory(ctx context.Context, keep int) (int, error) {
	query := `
		DELETE FROM daily_picks
		WHERE pick_date NOT IN (
			SELECT pick_date FROM daily_picks ORDER BY pick_date DESC LIMIT ?
		)
	`

	res, err := r.db.ExecContext(ctx, query, keep)
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// Close closes the database
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *SQLiteRepository) scan(row rowScanner) (*contracts.Pick, error) {
	var (
		p          contracts.Pick
		day        string
		indicators string
		createdAt  string
	)
	err := row.Scan(
		&p.ID, &day, &p.Code, &p.Name, &p.Sector, &p.Price, &p.ChangePercent,
		&p.TotalScore, &p.TechnicalScore, &p.ThemeScore, &indicators, &p.Source, &p.ConfigHash, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	date, err := time.ParseInLocation(dayLayout, day, r.loc)
	if err != nil {
		return nil, fmt.Errorf("parse pick_date: %w", err)
	}
	p.Date = date

	if p.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if err := json.Unmarshal([]byte(indicators), &p.Indicators); err != nil {
		return nil, fmt.Errorf("unmarshal indicators: %w", err)
	}
	return &p, nil
}
