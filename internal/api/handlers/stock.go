package handlers

import (
	"encoding/json"
	"net/http"
	"regexp"

	"github.com/gorilla/mux"

	"github.com/wonny/stockpick/internal/contracts"
	"github.com/wonny/stockpick/internal/scoring"
	"github.com/wonny/stockpick/pkg/logger"
)

// MaxBatchCodes bounds POST /api/stocks
const MaxBatchCodes = 50

var codePattern = regexp.MustCompile(`^\d{6}$`)

// StockHandler handles per-stock indicator endpoints
// ⭐ SSOT: 종목 지표 API 핸들러는 이 구조체에서만
type StockHandler struct {
	picker Picker
	logger *logger.Logger
}

// NewStockHandler creates a new stock handler
func NewStockHandler(p Picker, log *logger.Logger) *StockHandler {
	return &StockHandler{
		picker: p,
		logger: log,
	}
}

// StockResponse is one analyzed stock
type StockResponse struct {
	Code           string                 `json:"code"`
	Name           string                 `json:"name"`
	Sector         string                 `json:"sector,omitempty"`
	Source         string                 `json:"source"`
	Price          float64                `json:"price"`
	ChangePercent  float64                `json:"change_percent"`
	Indicators     contracts.IndicatorSet `json:"indicators"`
	TechnicalScore float64                `json:"technical_score"`
	ThemeScore     float64                `json:"theme_score"`
	TotalScore     float64                `json:"total_score"`
	Breakdown      scoring.Breakdown      `json:"breakdown"`
	Series         contracts.Series       `json:"series,omitempty"`
}

func toStockResponse(c contracts.Candidate, withSeries bool) StockResponse {
	resp := StockResponse{
		Code:           c.Code,
		Name:           c.Name,
		Sector:         c.Sector,
		Source:         c.Source,
		ChangePercent:  c.Series.ChangePercent(),
		Indicators:     c.Derived,
		TechnicalScore: c.TechnicalScore,
		ThemeScore:     c.ThemeScore,
		TotalScore:     c.TotalScore,
		Breakdown:      scoring.Explain(c),
	}
	if last, ok := c.Series.Last(); ok {
		resp.Price = last.Close
	}
	if withSeries {
		resp.Series = c.Series
	}
	return resp
}

// GetStock returns series, indicators and scores for one code
// GET /api/stocks/{code}
func (h *StockHandler) GetStock(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	if !codePattern.MatchString(code) {
		respondError(w, http.StatusBadRequest, "stock code must be 6 digits")
		return
	}

	candidates, failed, err := h.picker.Analyze(r.Context(), []string{code})
	if err != nil {
		h.logger.WithError(err).WithField("code", code).Error("Failed to analyze stock")
		respondError(w, http.StatusInternalServerError, "Failed to analyze stock")
		return
	}
	if len(candidates) == 0 {
		msg := "No price data"
		if len(failed) > 0 {
			msg = failed[0].Error
		}
		h.logger.WithFields(map[string]interface{}{
			"code":  code,
			"error": msg,
		}).Warn("No series for stock")
		respondError(w, http.StatusBadGateway, "Failed to fetch price data for "+code)
		return
	}

	respondData(w, toStockResponse(candidates[0], true))
}

// batchRequest is the body of POST /api/stocks
type batchRequest struct {
	Codes []string `json:"codes"`
}

// PostStocks analyzes several codes at once
// POST /api/stocks {"codes": ["005930", "000660"]}
func (h *StockHandler) PostStocks(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Codes) == 0 {
		respondError(w, http.StatusBadRequest, "codes must not be empty")
		return
	}
	if len(req.Codes) > MaxBatchCodes {
		respondError(w, http.StatusBadRequest, "too many codes")
		return
	}
	for _, code := range req.Codes {
		if !codePattern.MatchString(code) {
			respondError(w, http.StatusBadRequest, "invalid stock code: "+code)
			return
		}
	}

	candidates, failed, err := h.picker.Analyze(r.Context(), req.Codes)
	if err != nil {
		h.logger.WithError(err).Error("Failed to analyze stocks")
		respondError(w, http.StatusInternalServerError, "Failed to analyze stocks")
		return
	}

	data := make([]StockResponse, len(candidates))
	for i, c := range candidates {
		data[i] = toStockResponse(c, false)
	}
	respondJSON(w, http.StatusOK, Response{Success: true, Data: data, Failed: failed})
}
