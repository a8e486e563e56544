package scoring

import "github.com/wonny/stockpick/internal/contracts"

// MaxTechnicalScore caps the technical score
const MaxTechnicalScore = 10.0

// RSI bands. 30 and 70 themselves are neutral.
const (
	RSIOversold   = 30.0
	RSIOverbought = 70.0
)

// Volume ratio thresholds (percent of the 20 day mean)
const (
	VolumeSurgeRatio    = 150.0
	VolumeIncreaseRatio = 100.0
)

// TechnicalScore maps an indicator set to [0, MaxTechnicalScore].
// Absent indicators contribute nothing.
func TechnicalScore(set contracts.IndicatorSet) float64 {
	score := 0.0

	if set.RSI14 != nil {
		switch rsi := *set.RSI14; {
		case rsi < RSIOversold:
			score += 3 // 과매도
		case rsi > RSIOverbought:
			score += 1 // 과매수
		default:
			score += 2
		}
	}

	if set.MACD != nil {
		if set.MACD.Line > 0 {
			score += 2
		} else {
			score++
		}
	}

	if set.SMA20 != nil && set.SMA60 != nil {
		if *set.SMA20 > *set.SMA60 {
			score += 2 // 정배열
		} else {
			score++
		}
	}

	if set.VolumeRatio != nil {
		switch vr := *set.VolumeRatio; {
		case vr > VolumeSurgeRatio:
			score += 2
		case vr > VolumeIncreaseRatio:
			score++
		}
	}

	return clamp(score, 0, MaxTechnicalScore)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
