// Package theme supplies the theme score of a candidate.
//
// The score is an opaque number roughly in [5, 15). No market data backs it;
// it stands in for an external "hot sector" signal.
package theme

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/wonny/stockpick/internal/contracts"
)

// Provider names accepted by the strategy file
const (
	ProviderRandom = "random"
	ProviderSector = "sector"
)

// Random score range
const (
	RandomMin = 5.0
	RandomMax = 15.0
)

// DefaultSectorScore is used for sectors without a configured weight
const DefaultSectorScore = 10.0

// RandomProvider draws a score uniformly from [5, 15)
type RandomProvider struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomProvider creates a provider; a nil rng is seeded from the clock
func NewRandomProvider(rng *rand.Rand) *RandomProvider {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &RandomProvider{rng: rng}
}

// Score returns a random theme score
func (p *RandomProvider) Score(_ context.Context, _ contracts.Stock) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return RandomMin + p.rng.Float64()*(RandomMax-RandomMin)
}

// SectorProvider scores by sector weight
type SectorProvider struct {
	weights  map[string]float64
	fallback float64
}

// NewSectorProvider creates a provider from sector → score weights
func NewSectorProvider(weights map[string]float64) *SectorProvider {
	return &SectorProvider{weights: weights, fallback: DefaultSectorScore}
}

// Score returns the sector's weight or DefaultSectorScore
func (p *SectorProvider) Score(_ context.Context, stock contracts.Stock) float64 {
	if w, ok := p.weights[stock.Sector]; ok {
		return w
	}
	return p.fallback
}

// StaticProvider returns fixed scores by code (tests and CLI overrides)
type StaticProvider map[string]float64

// Score returns the configured score or 0
func (p StaticProvider) Score(_ context.Context, stock contracts.Stock) float64 {
	return p[stock.Code]
}

// New builds the provider named in the strategy file
func New(name string, sectorWeights map[string]float64, rng *rand.Rand) (contracts.ThemeScoreProvider, error) {
	switch name {
	case "", ProviderRandom:
		return NewRandomProvider(rng), nil
	case ProviderSector:
		return NewSectorProvider(sectorWeights), nil
	default:
		return nil, fmt.Errorf("unknown theme provider %q", name)
	}
}

// Apply fills ThemeScore on every candidate in place
func Apply(ctx context.Context, p contracts.ThemeScoreProvider, candidates []contracts.Candidate) {
	for i := range candidates {
		c := &candidates[i]
		c.ThemeScore = p.Score(ctx, contracts.Stock{Code: c.Code, Name: c.Name, Sector: c.Sector})
	}
}
