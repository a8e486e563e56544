package handlers

import (
	"net/http"
	"time"
)

// StatusInfo describes the running service
type StatusInfo struct {
	Service       string   `json:"service"`
	Env           string   `json:"env"`
	Transports    []string `json:"transports"`
	Store         string   `json:"store"`
	MACDMode      string   `json:"macd_mode"`
	UniverseSize  int      `json:"universe_size"`
	CacheTTL      string   `json:"cache_ttl"`
	UptimeSeconds int64    `json:"uptime_seconds"`
	StartedAt     string   `json:"started_at"`
}

// StatusHandler reports service status
type StatusHandler struct {
	info    StatusInfo
	started time.Time
}

// NewStatusHandler creates a status handler; info is static apart from uptime
func NewStatusHandler(info StatusInfo) *StatusHandler {
	return &StatusHandler{info: info, started: time.Now()}
}

// GetStatus returns the service status
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	info := h.info
	info.UptimeSeconds = int64(time.Since(h.started).Seconds())
	info.StartedAt = h.started.Format(time.RFC3339)
	respondData(w, info)
}
