package api

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/wonny/stockpick/internal/api/handlers"
	"github.com/wonny/stockpick/pkg/logger"
	"github.com/wonny/stockpick/pkg/metrics"
)

const requestIDHeader = "X-Request-ID"

// Handlers groups the endpoint handlers mounted by NewRouter
type Handlers struct {
	Pick    *handlers.PickHandler
	Stock   *handlers.StockHandler
	Cache   *handlers.CacheHandler
	Status  *handlers.StatusHandler
	Stream  http.Handler      // GET /ws/pick, optional
	Metrics *metrics.Registry // GET /metrics, optional
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(h Handlers, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	// API 라우트는 루트 라우터에 전체 경로로 등록 (서브라우터는 405 대신 404 를 반환)
	r.HandleFunc("/api/status", h.Status.GetStatus).Methods("GET")

	// Stock of the day
	r.HandleFunc("/api/pick/today", h.Pick.GetToday).Methods("GET")
	r.HandleFunc("/api/pick/refresh", h.Pick.Refresh).Methods("POST")
	r.HandleFunc("/api/pick/history", h.Pick.GetHistory).Methods("GET")
	r.HandleFunc("/api/ranking", h.Pick.GetRanking).Methods("GET")

	// Stocks
	r.HandleFunc("/api/stocks/{code}", h.Stock.GetStock).Methods("GET")
	r.HandleFunc("/api/stocks", h.Stock.PostStocks).Methods("POST")

	// Cache
	r.HandleFunc("/api/cache/status", h.Cache.GetStatus).Methods("GET")
	r.HandleFunc("/api/cache/clear", h.Cache.Clear).Methods("DELETE")

	if h.Stream != nil {
		r.Handle("/ws/pick", h.Stream).Methods("GET")
	}
	if h.Metrics != nil {
		r.Handle("/metrics", h.Metrics.Handler()).Methods("GET")
	}

	r.Use(requestLog(log, h.Metrics))
	r.Use(recoverPanic(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "stockpick-api",
	})
}

// statusRecorder remembers the response status.
// It keeps http.Hijacker so /ws/pick can still upgrade.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	if rec.status == 0 {
		rec.status = code
	}
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Write(b []byte) (int, error) {
	if rec.status == 0 {
		rec.status = http.StatusOK
	}
	return rec.ResponseWriter.Write(b)
}

func (rec *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := rec.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	rec.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

// routeName is the mux path template, so /api/stocks/{code} counts as one route
func routeName(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

// requestLog tags each request with an id, then logs and counts it
func requestLog(log *logger.Logger, m *metrics.Registry) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			id := r.Header.Get(requestIDHeader)
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, id)

			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)
			if rec.status == 0 {
				rec.status = http.StatusOK
			}

			route := routeName(r)
			m.ObserveHTTP(route, rec.status)

			log.WithFields(map[string]interface{}{
				"request_id": id,
				"method":     r.Method,
				"route":      route,
				"status":     rec.status,
				"duration":   time.Since(start).String(),
			}).Debug("HTTP request")
		})
	}
}

// recoverPanic turns a handler panic into a 500 envelope
func recoverPanic(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				p := recover()
				if p == nil {
					return
				}
				if p == http.ErrAbortHandler {
					panic(p)
				}

				log.WithFields(map[string]interface{}{
					"panic": fmt.Sprint(p),
					"path":  r.URL.Path,
				}).Error("Panic recovered")

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				json.NewEncoder(w).Encode(handlers.Response{
					Success: false,
					Error:   "Internal server error",
				})
			}()

			next.ServeHTTP(w, r)
		})
	}
}
