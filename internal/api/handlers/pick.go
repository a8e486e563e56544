package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/wonny/stockpick/internal/contracts"
	"github.com/wonny/stockpick/internal/fetch"
	"github.com/wonny/stockpick/internal/picker"
	"github.com/wonny/stockpick/pkg/logger"
)

// Picker is the picker service surface used by the API
type Picker interface {
	Today(ctx context.Context) (*contracts.Pick, error)
	Refresh(ctx context.Context) (*contracts.Pick, error)
	History(ctx context.Context, limit int) ([]*contracts.Pick, error)
	Leaderboard(ctx context.Context) ([]contracts.RankedCandidate, []fetch.FailedCode, error)
	Analyze(ctx context.Context, codes []string) ([]contracts.Candidate, []fetch.FailedCode, error)
}

// PickHandler handles stock-of-the-day endpoints
// ⭐ SSOT: 오늘의 종목 API 핸들러는 이 구조체에서만
type PickHandler struct {
	picker       Picker
	historyLimit int
	logger       *logger.Logger
}

// NewPickHandler creates a new pick handler
func NewPickHandler(p Picker, historyLimit int, log *logger.Logger) *PickHandler {
	return &PickHandler{
		picker:       p,
		historyLimit: historyLimit,
		logger:       log,
	}
}

// GetToday returns today's pick, selecting it on first request
// GET /api/pick/today
func (h *PickHandler) GetToday(w http.ResponseWriter, r *http.Request) {
	pick, err := h.picker.Today(r.Context())
	if err != nil {
		h.pickError(w, err, "Failed to get today's pick")
		return
	}
	respondData(w, pick)
}

// Refresh forces a new selection for today
// POST /api/pick/refresh
func (h *PickHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	pick, err := h.picker.Refresh(r.Context())
	if err != nil {
		h.pickError(w, err, "Failed to refresh pick")
		return
	}
	respondData(w, pick)
}

// GetHistory returns stored picks, newest first
// GET /api/pick/history?limit=30
func (h *PickHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	limit := h.historyLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if n < limit {
			limit = n
		}
	}

	picks, err := h.picker.History(r.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get pick history")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve history")
		return
	}
	if picks == nil {
		picks = []*contracts.Pick{}
	}
	respondData(w, picks)
}

// GetRanking returns the full leaderboard of the current universe
// GET /api/ranking
func (h *PickHandler) GetRanking(w http.ResponseWriter, r *http.Request) {
	ranked, failed, err := h.picker.Leaderboard(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to build leaderboard")
		respondError(w, http.StatusBadGateway, "Failed to build ranking")
		return
	}

	// 시계열은 응답에서 제외
	for i := range ranked {
		ranked[i].Series = nil
	}
	respondJSON(w, http.StatusOK, Response{Success: true, Data: ranked, Failed: failed})
}

func (h *PickHandler) pickError(w http.ResponseWriter, err error, msg string) {
	h.logger.WithError(err).Error(msg)
	if errors.Is(err, picker.ErrNoSelection) {
		respondError(w, http.StatusServiceUnavailable, "No stock could be selected")
		return
	}
	respondError(w, http.StatusInternalServerError, msg)
}
