package indicators

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/stockpick/internal/contracts"
	"github.com/wonny/stockpick/pkg/logger"
)

func constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func ramp(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

func seriesOf(closes []float64, volume int64) contracts.Series {
	base := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	s := make(contracts.Series, len(closes))
	for i, c := range closes {
		s[i] = contracts.PricePoint{
			Date:   base.AddDate(0, 0, i),
			Open:   c,
			High:   c,
			Low:    c,
			Close:  c,
			Volume: volume,
		}
	}
	return s
}

func TestSMA(t *testing.T) {
	v, ok := SMA([]float64{1, 2, 3, 4, 5}, 5)
	require.True(t, ok)
	assert.InDelta(t, 3.0, v, 1e-12)

	v, ok = SMA([]float64{1, 2, 3, 4, 5}, 2)
	require.True(t, ok)
	assert.InDelta(t, 4.5, v, 1e-12)

	_, ok = SMA([]float64{1, 2, 3}, 5)
	assert.False(t, ok, "short input must be absent")

	v, ok = SMA(constant(20, 7), 20)
	require.True(t, ok)
	assert.InDelta(t, 7.0, v, 1e-12)
}

func TestEMA(t *testing.T) {
	// m = 0.5: 1 -> 1.5 -> 2.25
	v, ok := EMA([]float64{1, 2, 3}, 3)
	require.True(t, ok)
	assert.InDelta(t, 2.25, v, 1e-12)

	v, ok = EMA(constant(30, 50), 12)
	require.True(t, ok)
	assert.InDelta(t, 50.0, v, 1e-9, "constant series EMA equals the constant")

	_, ok = EMA(constant(11, 50), 12)
	assert.False(t, ok)
}

func TestLogReturns(t *testing.T) {
	assert.Empty(t, LogReturns(nil))
	assert.Empty(t, LogReturns([]float64{100}))

	r := LogReturns([]float64{100, 110, 99})
	require.Len(t, r, 2)
	assert.InDelta(t, math.Log(1.1), r[0], 1e-12)
	assert.InDelta(t, math.Log(0.9), r[1], 1e-12)
}

func TestRSI(t *testing.T) {
	tests := []struct {
		name    string
		closes  []float64
		want    float64
		present bool
	}{
		{"too short", ramp(14, 100, 1), 0, false},
		{"strictly increasing", ramp(15, 100, 1), 100, true},
		{"flat has no losses", constant(15, 100), 100, true},
		{"strictly decreasing", ramp(15, 200, -1), 0, true},
		{"equal gains and losses", []float64{
			100, 101, 100, 101, 100, 101, 100, 101, 100, 101, 100, 101, 100, 101, 100,
		}, 50, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := RSI(tt.closes, RSIPeriod)
			assert.Equal(t, tt.present, ok)
			if tt.present {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}

func TestRSI_OnlyTrailingWindowCounts(t *testing.T) {
	// a crash before the trailing 15 closes must not affect the value
	closes := append([]float64{1000, 10}, ramp(15, 100, 1)...)
	got, ok := RSI(closes, RSIPeriod)
	require.True(t, ok)
	assert.InDelta(t, 100.0, got, 1e-9)
}

func TestRSI_Bounded(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 50; i++ {
		closes := make([]float64, 40)
		price := 100.0
		for j := range closes {
			price *= 1 + (rng.Float64()-0.5)*0.1
			closes[j] = price
		}
		got, ok := RSI(closes, RSIPeriod)
		require.True(t, ok)
		assert.GreaterOrEqual(t, got, 0.0)
		assert.LessOrEqual(t, got, 100.0)
	}
}

func TestComputeMACD(t *testing.T) {
	assert.Nil(t, ComputeMACD(constant(25, 100)), "needs 26 closes")

	m := ComputeMACD(constant(26, 100))
	require.NotNil(t, m)
	assert.InDelta(t, 0.0, m.Line, 1e-9)
	assert.Equal(t, 0.0, m.Signal)
	assert.Equal(t, 0.0, m.Histogram)

	up := ComputeMACD(ramp(40, 100, 1))
	require.NotNil(t, up)
	assert.Greater(t, up.Line, 0.0, "rising prices give a positive MACD line")

	down := ComputeMACD(ramp(40, 200, -1))
	require.NotNil(t, down)
	assert.Less(t, down.Line, 0.0)
}

func TestVolumeRatio(t *testing.T) {
	tests := []struct {
		name    string
		volumes []float64
		want    float64
		present bool
	}{
		{"single point", []float64{100}, 0, false},
		{"flat volume", constant(25, 1000), 100, true},
		{"short window", []float64{100, 300}, 150, true},
		{"zero average", []float64{0, 0, 0}, 0, true},
		{"spike over 20 day mean", append(constant(19, 100), 2100), 2100 / 200.0 * 100, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := VolumeRatio(tt.volumes)
			assert.Equal(t, tt.present, ok)
			if tt.present {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}

func TestVolatility(t *testing.T) {
	_, ok := Volatility(constant(20, 100), VolatilityPeriod)
	assert.False(t, ok, "needs 21 closes")

	v, ok := Volatility(constant(21, 100), VolatilityPeriod)
	require.True(t, ok)
	assert.InDelta(t, 0.0, v, 1e-12)

	// alternating +r / -r log returns: population stdev is r
	r := 0.01
	closes := []float64{100}
	for i := 0; i < 20; i++ {
		sign := 1.0
		if i%2 == 1 {
			sign = -1.0
		}
		closes = append(closes, closes[len(closes)-1]*math.Exp(sign*r))
	}
	v, ok = Volatility(closes, VolatilityPeriod)
	require.True(t, ok)
	assert.InDelta(t, r*math.Sqrt(252)*100, v, 1e-9)
}

func TestCompute_IndependentPresence(t *testing.T) {
	set := Compute(seriesOf(ramp(30, 100, 1), 1000))

	assert.NotNil(t, set.SMA20)
	assert.Nil(t, set.SMA60, "30 points cannot fill SMA60")
	assert.NotNil(t, set.RSI14)
	assert.NotNil(t, set.MACD)
	assert.NotNil(t, set.VolumeRatio)
	assert.NotNil(t, set.Volatility)
}

func TestRSI_Fixture(t *testing.T) {
	closes := []float64{100, 102, 101, 105, 107, 106, 110, 108, 112, 115, 114, 118, 117, 120, 122}

	// gains 28, losses 6 over the trailing 14 changes
	got, ok := RSI(closes, RSIPeriod)
	require.True(t, ok)
	assert.InDelta(t, 100-100/(1+28.0/6), got, 1e-9)
	assert.InDelta(t, 82.3529, got, 1e-4)
	assert.Greater(t, got, 50.0)

	reversed := make([]float64, len(closes))
	for i, c := range closes {
		reversed[len(closes)-1-i] = c
	}
	got, ok = RSI(reversed, RSIPeriod)
	require.True(t, ok)
	assert.InDelta(t, 17.6471, got, 1e-4)
	assert.Less(t, got, 50.0)
}

func TestCompute_ValuesMatchStandalone(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	s := make(contracts.Series, 30)
	base := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	price := 50000.0
	for i := range s {
		price *= 1 + (rng.Float64()-0.5)*0.06
		s[i] = contracts.PricePoint{
			Date:   base.AddDate(0, 0, i),
			Open:   price,
			High:   price,
			Low:    price,
			Close:  price,
			Volume: int64(1000 + rng.Intn(9000)),
		}
	}
	closes := s.Closes()
	volumes := s.Volumes()

	set := Compute(s)

	sma, ok := SMA(closes, SMAShortPeriod)
	require.True(t, ok)
	require.NotNil(t, set.SMA20)
	assert.Equal(t, sma, *set.SMA20)

	rsi, ok := RSI(closes, RSIPeriod)
	require.True(t, ok)
	require.NotNil(t, set.RSI14)
	assert.Equal(t, rsi, *set.RSI14)

	ratio, ok := VolumeRatio(volumes)
	require.True(t, ok)
	require.NotNil(t, set.VolumeRatio)
	assert.Equal(t, ratio, *set.VolumeRatio)

	vol, ok := Volatility(closes, VolatilityPeriod)
	require.True(t, ok)
	require.NotNil(t, set.Volatility)
	assert.Equal(t, vol, *set.Volatility)

	assert.Nil(t, set.SMA60, "SMA60 stays absent without changing the others")
}

func TestCompute_ShortSeries(t *testing.T) {
	set := Compute(seriesOf([]float64{100}, 10))
	assert.Equal(t, 0, set.PresentCount())

	set = Compute(seriesOf(nil, 10))
	assert.Equal(t, 0, set.PresentCount())

	set = Compute(seriesOf([]float64{100, 101}, 10))
	assert.Equal(t, 1, set.PresentCount(), "only volume ratio fits two points")
	require.NotNil(t, set.VolumeRatio)
	assert.InDelta(t, 100.0, *set.VolumeRatio, 1e-9)
}

func TestCompute_DropsNonPositiveCloses(t *testing.T) {
	s := seriesOf(ramp(21, 100, 1), 1000)
	s[5].Close = 0

	set := Compute(s)
	assert.Nil(t, set.Volatility, "one dropped point leaves 20 closes")
	assert.NotNil(t, set.SMA20)
}

func TestEngine_ParityMode(t *testing.T) {
	e := NewEngine(ParseMACDMode("anything"), logger.Nop())
	assert.Equal(t, MACDParity, e.Mode())

	set := e.Calculate("005930", seriesOf(ramp(60, 100, 1), 1000))
	require.NotNil(t, set.MACD)
	assert.Equal(t, 0.0, set.MACD.Signal)
	assert.Equal(t, 0.0, set.MACD.Histogram)
	assert.NotNil(t, set.SMA60)
}

func TestEngine_FullMode(t *testing.T) {
	e := NewEngine(ParseMACDMode("full"), logger.Nop())
	assert.Equal(t, MACDFull, e.Mode())

	closes := ramp(60, 100, 1)
	set := e.Calculate("005930", seriesOf(closes, 1000))
	require.NotNil(t, set.MACD)

	parity := ComputeMACD(closes)
	assert.InDelta(t, parity.Line, set.MACD.Line, 1e-12, "line is unchanged by full mode")
	assert.NotEqual(t, 0.0, set.MACD.Signal)
	assert.InDelta(t, set.MACD.Line-set.MACD.Signal, set.MACD.Histogram, 1e-9)
}

func TestEngine_FullModeShortSeries(t *testing.T) {
	e := NewEngine(MACDFull, logger.Nop())

	set := e.Calculate("005930", seriesOf(ramp(30, 100, 1), 1000))
	require.NotNil(t, set.MACD)
	assert.Equal(t, 0.0, set.MACD.Signal, "signal needs 34 closes")

	set = e.Calculate("005930", seriesOf(ramp(20, 100, 1), 1000))
	assert.Nil(t, set.MACD)
}
