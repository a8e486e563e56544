package strategyconfig

import (
	"fmt"
	"math"
	"regexp"

	"github.com/wonny/stockpick/internal/external/naver"
	"github.com/wonny/stockpick/internal/indicators"
	"github.com/wonny/stockpick/internal/theme"
)

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning 권장 위반 (경고만)
type Warning struct {
	Code    string
	Message string
}

var stockCodePattern = regexp.MustCompile(`^\d{6}$`)

// Validate checks all required constraints
// 실패 시 error 반환 (프로그램 중단)
func Validate(cfg *Config) error {
	// === Meta ===
	if cfg.Meta.StrategyID == "" {
		return ValidationError{"meta.strategy_id", "required"}
	}

	// === Universe ===
	switch cfg.Universe.Source {
	case UniverseStatic:
		if len(cfg.Universe.Stocks) == 0 {
			return ValidationError{"universe.stocks", "must not be empty for static universe"}
		}
	case UniverseNaverRanking:
		if _, err := naver.ParseRankingCategory(cfg.Universe.Ranking.Category); err != nil {
			return ValidationError{"universe.ranking.category", err.Error()}
		}
		if cfg.Universe.Ranking.Market != "KOSPI" && cfg.Universe.Ranking.Market != "KOSDAQ" {
			return ValidationError{"universe.ranking.market", "must be KOSPI or KOSDAQ"}
		}
		if cfg.Universe.Ranking.Size < 1 || cfg.Universe.Ranking.Size > 100 {
			return ValidationError{"universe.ranking.size", "must be in [1, 100]"}
		}
	default:
		return ValidationError{"universe.source", fmt.Sprintf("unknown source %q", cfg.Universe.Source)}
	}

	seen := make(map[string]bool, len(cfg.Universe.Stocks))
	for i, s := range cfg.Universe.Stocks {
		field := fmt.Sprintf("universe.stocks[%d]", i)
		if !stockCodePattern.MatchString(s.Code) {
			return ValidationError{field + ".code", "must be a 6 digit KRX code"}
		}
		if s.Name == "" {
			return ValidationError{field + ".name", "required"}
		}
		if seen[s.Code] {
			return ValidationError{field + ".code", "duplicate " + s.Code}
		}
		seen[s.Code] = true
	}

	// === Indicators ===
	switch indicators.MACDMode(cfg.Indicators.MACDMode) {
	case indicators.MACDParity, indicators.MACDFull:
	default:
		return ValidationError{"indicators.macd_mode", "must be parity or full"}
	}

	// === Theme ===
	switch cfg.Theme.Provider {
	case theme.ProviderRandom, theme.ProviderSector:
	default:
		return ValidationError{"theme.provider", "must be random or sector"}
	}
	for i, w := range cfg.Theme.SectorWeights {
		field := fmt.Sprintf("theme.sector_weights[%d]", i)
		if w.Sector == "" {
			return ValidationError{field + ".sector", "required"}
		}
		if math.IsNaN(w.Score) || math.IsInf(w.Score, 0) || w.Score < 0 {
			return ValidationError{field + ".score", "must be a finite value >= 0"}
		}
	}

	return nil
}

// CheckWarnings returns non-fatal recommendations
func CheckWarnings(cfg *Config) []Warning {
	var warnings []Warning

	if cfg.Universe.Source == UniverseStatic && len(cfg.Universe.Stocks) == 1 {
		warnings = append(warnings, Warning{
			Code:    "SINGLE_STOCK_UNIVERSE",
			Message: "유니버스 1종목: 매일 같은 종목이 선정됨",
		})
	}

	if cfg.Theme.Provider == theme.ProviderSector && len(cfg.Theme.SectorWeights) == 0 {
		warnings = append(warnings, Warning{
			Code:    "NO_SECTOR_WEIGHTS",
			Message: "sector 공급자인데 가중치 없음: 모든 종목이 기본 점수",
		})
	}

	if !cfg.Fallback.Simulate {
		warnings = append(warnings, Warning{
			Code:    "NO_FALLBACK",
			Message: "시뮬레이션 fallback 비활성: 시세 장애 시 오늘의 종목 없음",
		})
	}

	return warnings
}
