package contracts

// IndicatorSet holds the technical indicators of one candidate
// ⭐ SSOT: indicator engine → scorer 지표 전달
//
// A nil field means the series was too short for that indicator. This is a
// normal state and scores as zero contribution.
type IndicatorSet struct {
	SMA20       *float64 `json:"sma20"`
	SMA60       *float64 `json:"sma60"`
	RSI14       *float64 `json:"rsi14"`
	MACD        *MACD    `json:"macd"`
	VolumeRatio *float64 `json:"volume_ratio"` // percent
	Volatility  *float64 `json:"volatility"`   // annualized, percent
}

// MACD is the moving average convergence-divergence triple
type MACD struct {
	Line      float64 `json:"line"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

// Float returns a pointer to v, for building IndicatorSet values
func Float(v float64) *float64 {
	return &v
}

// VolatilityOrZero returns the volatility or 0 when absent
func (s IndicatorSet) VolatilityOrZero() float64 {
	if s.Volatility == nil {
		return 0
	}
	return *s.Volatility
}

// VolumeRatioOrZero returns the volume ratio or 0 when absent
func (s IndicatorSet) VolumeRatioOrZero() float64 {
	if s.VolumeRatio == nil {
		return 0
	}
	return *s.VolumeRatio
}

// PresentCount returns how many indicators were computable
func (s IndicatorSet) PresentCount() int {
	n := 0
	for _, p := range []*float64{s.SMA20, s.SMA60, s.RSI14, s.VolumeRatio, s.Volatility} {
		if p != nil {
			n++
		}
	}
	if s.MACD != nil {
		n++
	}
	return n
}
