package selection

import (
	"sort"

	"github.com/wonny/stockpick/internal/contracts"
	"github.com/wonny/stockpick/pkg/logger"
)

// Ranker orders scored candidates
// ⭐ SSOT: 랭킹/선정 로직은 여기서만
type Ranker struct {
	logger *logger.Logger
}

// NewRanker creates a new ranker
func NewRanker(logger *logger.Logger) *Ranker {
	return &Ranker{
		logger: logger,
	}
}

// Rank sorts candidates by total score (descending) and assigns 1-based ranks.
// The sort is stable: among equal scores the earlier input wins.
// The input slice is not modified.
func (r *Ranker) Rank(candidates []contracts.Candidate) []contracts.RankedCandidate {
	ranked := rank(candidates)

	if len(ranked) == 0 {
		r.logger.Warn("Ranking skipped: no candidates")
		return ranked
	}

	r.logger.WithFields(map[string]interface{}{
		"total_stocks": len(ranked),
		"top_score":    ranked[0].TotalScore,
		"top_code":     ranked[0].Code,
	}).Info("Ranking completed")

	return ranked
}

// SelectTop returns the ranking result for the first-ranked candidate
func (r *Ranker) SelectTop(candidates []contracts.Candidate) contracts.RankingResult {
	return top(r.Rank(candidates))
}

// SelectTop picks the highest total score, first of ties.
// An empty input yields the empty (no selection) result.
func SelectTop(candidates []contracts.Candidate) contracts.RankingResult {
	return top(rank(candidates))
}

func rank(candidates []contracts.Candidate) []contracts.RankedCandidate {
	ranked := make([]contracts.RankedCandidate, len(candidates))
	for i, c := range candidates {
		ranked[i] = contracts.RankedCandidate{Candidate: c}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].TotalScore > ranked[j].TotalScore
	})

	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}

func top(ranked []contracts.RankedCandidate) contracts.RankingResult {
	if len(ranked) == 0 {
		return contracts.RankingResult{}
	}

	selected := ranked[0].Candidate
	return contracts.RankingResult{
		Selected:   &selected,
		TotalScore: selected.TotalScore,
	}
}
