package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/wonny/stockpick/pkg/logger"
)

// CacheStore is the cache surface used by the API
type CacheStore interface {
	Enabled() bool
	Keys(ctx context.Context, pattern string) ([]string, error)
	Clear(ctx context.Context) (int, error)
}

// CacheHandler handles cache inspection endpoints
type CacheHandler struct {
	cache  CacheStore
	ttl    time.Duration
	logger *logger.Logger
}

// NewCacheHandler creates a new cache handler
func NewCacheHandler(cache CacheStore, ttl time.Duration, log *logger.Logger) *CacheHandler {
	return &CacheHandler{cache: cache, ttl: ttl, logger: log}
}

// CacheStatus summarizes the cache contents
type CacheStatus struct {
	Enabled    bool     `json:"enabled"`
	Size       int      `json:"size"`
	Keys       []string `json:"keys"`
	TTLSeconds int      `json:"ttl_seconds"`
}

// GetStatus returns the cached keys
// GET /api/cache/status
func (h *CacheHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	keys, err := h.cache.Keys(r.Context(), "*")
	if err != nil {
		h.logger.WithError(err).Error("Failed to list cache keys")
		respondError(w, http.StatusInternalServerError, "Failed to read cache")
		return
	}
	if keys == nil {
		keys = []string{}
	}

	respondData(w, CacheStatus{
		Enabled:    h.cache.Enabled(),
		Size:       len(keys),
		Keys:       keys,
		TTLSeconds: int(h.ttl.Seconds()),
	})
}

// Clear removes every cached entry
// DELETE /api/cache/clear
func (h *CacheHandler) Clear(w http.ResponseWriter, r *http.Request) {
	n, err := h.cache.Clear(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to clear cache")
		respondError(w, http.StatusInternalServerError, "Failed to clear cache")
		return
	}

	h.logger.WithField("removed", n).Info("Cache cleared")
	respondData(w, map[string]int{"removed": n})
}
