package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/wonny/stockpick/internal/contracts"
)

// MemoryRepository keeps picks in process memory (default, tests)
type MemoryRepository struct {
	mu    sync.RWMutex
	picks map[string]*contracts.Pick // key: YYYY-MM-DD
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{picks: make(map[string]*contracts.Pick)}
}

// GetByDate returns the pick of a calendar day
func (r *MemoryRepository) GetByDate(_ context.Context, date time.Time) (*contracts.Pick, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.picks[dayKey(date)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// Save upserts the pick of its day
func (r *MemoryRepository) Save(_ context.Context, pick *contracts.Pick) error {
	prepare(pick)

	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *pick
	r.picks[dayKey(pick.Date)] = &cp
	return nil
}

// History returns up to limit picks, newest day first
func (r *MemoryRepository) History(_ context.Context, limit int) ([]*contracts.Pick, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	picks := r.sorted()
	if limit > 0 && len(picks) > limit {
		picks = picks[:limit]
	}

	out := make([]*contracts.Pick, len(picks))
	for i, p := range picks {
		cp := *p
		out[i] = &cp
	}
	return out, nil
}

// PruneHistory keeps the newest keep picks and returns how many were removed
func (r *MemoryRepository) PruneHistory(_ context.Context, keep int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	picks := r.sorted()
	if keep < 0 || len(picks) <= keep {
		return 0, nil
	}

	for _, p := range picks[keep:] {
		delete(r.picks, dayKey(p.Date))
	}
	return len(picks) - keep, nil
}

// Close is a no-op
func (r *MemoryRepository) Close() error {
	return nil
}

// sorted returns the stored picks newest first; caller holds the lock
func (r *MemoryRepository) sorted() []*contracts.Pick {
	picks := make([]*contracts.Pick, 0, len(r.picks))
	for _, p := range r.picks {
		picks = append(picks, p)
	}
	sort.Slice(picks, func(i, j int) bool {
		return dayKey(picks[i].Date) > dayKey(picks[j].Date)
	})
	return picks
}
