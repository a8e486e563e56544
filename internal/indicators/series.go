package indicators

import "math"

// SMA returns the arithmetic mean of the trailing period values of closes.
// ok is false when closes is shorter than period.
func SMA(closes []float64, period int) (float64, bool) {
	if period <= 0 || len(closes) < period {
		return 0, false
	}

	var sum float64
	for _, c := range closes[len(closes)-period:] {
		sum += c
	}
	return sum / float64(period), true
}

// EMA returns the exponential moving average of closes.
// Seeded from closes[0] and run over the whole series, not an SMA-seeded warm-up.
// ok is false when closes is shorter than period.
func EMA(closes []float64, period int) (float64, bool) {
	if period <= 0 || len(closes) < period {
		return 0, false
	}

	m := 2.0 / (float64(period) + 1.0)
	ema := closes[0]
	for i := 1; i < len(closes); i++ {
		ema = closes[i]*m + ema*(1-m)
	}
	return ema, true
}

// LogReturns returns ln(closes[i]/closes[i-1]) for i = 1..len-1
func LogReturns(closes []float64) []float64 {
	if len(closes) < 2 {
		return []float64{}
	}

	returns := make([]float64, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		returns[i-1] = math.Log(closes[i] / closes[i-1])
	}
	return returns
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
