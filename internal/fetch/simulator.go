package fetch

import (
	"math"
	"math/rand"
	"time"

	"github.com/wonny/stockpick/internal/contracts"
)

// SimulatedDays is the length of every simulated series (enough for SMA60)
const SimulatedDays = 80

// Simulator produces synthetic candidates when no real data is available.
// The same seed and end date always produce the same series.
type Simulator struct {
	seed int64
	days int
}

// NewSimulator creates a simulator; seed 0 is valid
func NewSimulator(seed int64) *Simulator {
	return &Simulator{seed: seed, days: SimulatedDays}
}

// Candidates returns one simulated candidate per universe entry ending at end
func (s *Simulator) Candidates(universe *contracts.Universe, end time.Time) []contracts.Candidate {
	rng := rand.New(rand.NewSource(s.seed + dayNumber(end)))

	candidates := make([]contracts.Candidate, 0, len(universe.Stocks))
	for _, stock := range universe.Stocks {
		candidates = append(candidates, contracts.Candidate{
			Code:   stock.Code,
			Name:   stock.Name,
			Sector: stock.Sector,
			Series: s.walk(rng, end),
			Source: contracts.SourceSimulated,
		})
	}
	return candidates
}

// walk is a geometric random walk over weekdays ending at end
func (s *Simulator) walk(rng *rand.Rand, end time.Time) contracts.Series {
	dates := tradingDays(end, s.days)

	price := roundTick(10000 + rng.Float64()*190000)
	baseVolume := 100000 + rng.Float64()*4900000
	sigma := 0.01 + rng.Float64()*0.03 // 일간 변동성 1~4%

	series := make(contracts.Series, len(dates))
	for i, date := range dates {
		open := price
		price = roundTick(price * math.Exp(rng.NormFloat64()*sigma))
		if price <= 0 {
			price = open
		}

		high := math.Max(open, price) * (1 + rng.Float64()*sigma/2)
		low := math.Min(open, price) * (1 - rng.Float64()*sigma/2)
		volume := baseVolume * math.Exp(rng.NormFloat64()*0.4)

		series[i] = contracts.PricePoint{
			Date:   date,
			Open:   open,
			High:   roundTick(high),
			Low:    roundTick(low),
			Close:  price,
			Volume: int64(volume),
		}
	}
	return series
}

// tradingDays returns n weekdays ending at (and including, if a weekday) end
func tradingDays(end time.Time, n int) []time.Time {
	day := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	dates := make([]time.Time, n)
	for i := n - 1; i >= 0; {
		if wd := day.Weekday(); wd != time.Saturday && wd != time.Sunday {
			dates[i] = day
			i--
		}
		day = day.AddDate(0, 0, -1)
	}
	return dates
}

func dayNumber(t time.Time) int64 {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC).Unix() / 86400
}

// roundTick rounds to the 10원 tick
func roundTick(v float64) float64 {
	return math.Round(v/10) * 10
}
