package indicators

import (
	"math"

	"github.com/markcheno/go-talib"

	"github.com/wonny/stockpick/internal/contracts"
	"github.com/wonny/stockpick/pkg/logger"
)

// Indicator windows
const (
	SMAShortPeriod     = 20
	SMALongPeriod      = 60
	RSIPeriod          = 14
	MACDFastPeriod     = 12
	MACDSlowPeriod     = 26
	MACDSignalPeriod   = 9
	VolumeWindow       = 20
	VolatilityPeriod   = 20
	TradingDaysPerYear = 252
)

// MACDMode selects how the MACD signal line is produced
type MACDMode string

const (
	// MACDParity keeps signal and histogram at zero
	MACDParity MACDMode = "parity"
	// MACDFull computes signal (EMA9 of the MACD series) and histogram
	MACDFull MACDMode = "full"
)

// ParseMACDMode maps a config string to a MACDMode, defaulting to parity
func ParseMACDMode(s string) MACDMode {
	if MACDMode(s) == MACDFull {
		return MACDFull
	}
	return MACDParity
}

// Compute derives the full IndicatorSet from a price series.
// Each indicator is independent: a short series leaves only the indicators
// whose window it cannot fill absent.
func Compute(series contracts.Series) contracts.IndicatorSet {
	series = series.Valid()
	closes := series.Closes()
	volumes := series.Volumes()

	var set contracts.IndicatorSet

	if v, ok := SMA(closes, SMAShortPeriod); ok {
		set.SMA20 = contracts.Float(v)
	}
	if v, ok := SMA(closes, SMALongPeriod); ok {
		set.SMA60 = contracts.Float(v)
	}
	if v, ok := RSI(closes, RSIPeriod); ok {
		set.RSI14 = contracts.Float(v)
	}
	set.MACD = ComputeMACD(closes)
	if v, ok := VolumeRatio(volumes); ok {
		set.VolumeRatio = contracts.Float(v)
	}
	if v, ok := Volatility(closes, VolatilityPeriod); ok {
		set.Volatility = contracts.Float(v)
	}

	return set
}

// RSI computes the relative strength index from the simple mean of the
// trailing period gains and losses (not Wilder smoothing).
// Requires len(closes) >= period+1. A window without losses yields 100.
func RSI(closes []float64, period int) (float64, bool) {
	if period <= 0 || len(closes) < period+1 {
		return 0, false
	}

	var gains, losses float64
	for i := len(closes) - period; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gains += change
		} else {
			losses += -change
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)

	if avgLoss == 0 {
		return 100.0, true
	}

	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs)), true
}

// ComputeMACD returns EMA12 - EMA26 with signal and histogram fixed at zero.
// nil when either EMA is absent.
func ComputeMACD(closes []float64) *contracts.MACD {
	fast, ok := EMA(closes, MACDFastPeriod)
	if !ok {
		return nil
	}
	slow, ok := EMA(closes, MACDSlowPeriod)
	if !ok {
		return nil
	}

	return &contracts.MACD{
		Line:      fast - slow,
		Signal:    0,
		Histogram: 0,
	}
}

// VolumeRatio returns the last volume as a percentage of the mean of the
// trailing min(20, n) volumes. 0 when that mean is not positive.
func VolumeRatio(volumes []float64) (float64, bool) {
	if len(volumes) < 2 {
		return 0, false
	}

	window := VolumeWindow
	if len(volumes) < window {
		window = len(volumes)
	}

	recent := volumes[len(volumes)-1]
	avg := mean(volumes[len(volumes)-window:])
	if avg <= 0 {
		return 0, true
	}
	return recent / avg * 100, true
}

// Volatility returns the annualized volatility in percent: the population
// standard deviation of the trailing period log-returns times sqrt(252) times 100.
// Requires len(closes) >= period+1.
func Volatility(closes []float64, period int) (float64, bool) {
	if period <= 0 || len(closes) < period+1 {
		return 0, false
	}

	returns := LogReturns(closes)
	recent := returns[len(returns)-period:]
	m := mean(recent)

	var variance float64
	for _, r := range recent {
		variance += (r - m) * (r - m)
	}
	variance /= float64(period)

	return math.Sqrt(variance) * math.Sqrt(TradingDaysPerYear) * 100, true
}

// Engine computes indicator sets for the ranking pipeline
// ⭐ SSOT: 기술적 지표 계산은 여기서만
type Engine struct {
	mode   MACDMode
	logger *logger.Logger
}

// NewEngine creates a new indicator engine
func NewEngine(mode MACDMode, log *logger.Logger) *Engine {
	return &Engine{
		mode:   mode,
		logger: log,
	}
}

// Mode returns the configured MACD mode
func (e *Engine) Mode() MACDMode {
	return e.mode
}

// Calculate computes the indicator set for one stock
func (e *Engine) Calculate(code string, series contracts.Series) contracts.IndicatorSet {
	set := Compute(series)

	if e.mode == MACDFull && set.MACD != nil {
		set.MACD = e.fullMACD(series.Valid().Closes(), set.MACD.Line)
	}

	e.logger.WithFields(map[string]interface{}{
		"code":    code,
		"points":  len(series),
		"present": set.PresentCount(),
	}).Debug("Calculated indicators")

	return set
}

// fullMACD fills the signal line and histogram from go-talib.
// The MACD line stays the full-series EMA difference; talib's SMA-seeded line
// is only used to derive the signal.
func (e *Engine) fullMACD(closes []float64, line float64) *contracts.MACD {
	macd := &contracts.MACD{Line: line}
	if len(closes) < MACDSlowPeriod+MACDSignalPeriod-1 {
		return macd
	}

	_, signal, _ := talib.Macd(closes, MACDFastPeriod, MACDSlowPeriod, MACDSignalPeriod)
	if len(signal) == 0 {
		return macd
	}

	macd.Signal = signal[len(signal)-1]
	macd.Histogram = line - macd.Signal
	return macd
}
