package scoring

import (
	"github.com/wonny/stockpick/internal/contracts"
	"github.com/wonny/stockpick/internal/indicators"
)

// Total score weights
// ⭐ SSOT: 종합 점수 가중치는 여기서만 (정규화하지 않은 휴리스틱 합산)
const (
	WeightVolatility  = 0.3
	WeightVolumeRatio = 0.4
	WeightTheme       = 0.2
	WeightTechnical   = 0.1
)

// TotalScore blends the four inputs with fixed weights.
// Inputs are used as-is on their own scales.
func TotalScore(volatility, volumeRatio, themeScore, technicalScore float64) float64 {
	return volatility*WeightVolatility +
		volumeRatio*WeightVolumeRatio +
		themeScore*WeightTheme +
		technicalScore*WeightTechnical
}

// Breakdown is the weighted contribution of each input to a total score
type Breakdown struct {
	Volatility  float64 `json:"volatility"`
	VolumeRatio float64 `json:"volume_ratio"`
	Theme       float64 `json:"theme"`
	Technical   float64 `json:"technical"`
}

// Total returns the sum of the contributions
func (b Breakdown) Total() float64 {
	return b.Volatility + b.VolumeRatio + b.Theme + b.Technical
}

// Explain returns the per-input contributions of a scored candidate
func Explain(c contracts.Candidate) Breakdown {
	return Breakdown{
		Volatility:  c.Derived.VolatilityOrZero() * WeightVolatility,
		VolumeRatio: c.Derived.VolumeRatioOrZero() * WeightVolumeRatio,
		Theme:       c.ThemeScore * WeightTheme,
		Technical:   c.TechnicalScore * WeightTechnical,
	}
}

// Score returns a copy of c with indicators, technical score and total score filled
func Score(c contracts.Candidate) contracts.Candidate {
	return score(c, indicators.Compute(c.Series))
}

// Scorer scores candidates through an indicator engine
type Scorer struct {
	engine *indicators.Engine
}

// NewScorer creates a scorer backed by engine
func NewScorer(engine *indicators.Engine) *Scorer {
	return &Scorer{engine: engine}
}

// Score is Score with the engine's MACD mode applied
func (s *Scorer) Score(c contracts.Candidate) contracts.Candidate {
	return score(c, s.engine.Calculate(c.Code, c.Series))
}

// ScoreAll scores every candidate, preserving order
func (s *Scorer) ScoreAll(candidates []contracts.Candidate) []contracts.Candidate {
	scored := make([]contracts.Candidate, len(candidates))
	for i, c := range candidates {
		scored[i] = s.Score(c)
	}
	return scored
}

func score(c contracts.Candidate, set contracts.IndicatorSet) contracts.Candidate {
	c.Derived = set
	c.TechnicalScore = TechnicalScore(set)
	c.TotalScore = TotalScore(
		set.VolatilityOrZero(),
		set.VolumeRatioOrZero(),
		c.ThemeScore,
		c.TechnicalScore,
	)
	return c
}
