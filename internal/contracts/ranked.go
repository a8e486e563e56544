package contracts

// Candidate is one instrument evaluated in a single ranking run
// ⭐ SSOT: collector → scorer → ranker 후보 종목 전달
//
// Candidates are built fresh per run and are not mutated after scoring.
type Candidate struct {
	Code           string       `json:"code"`
	Name           string       `json:"name"`
	Sector         string       `json:"sector,omitempty"`
	Series         Series       `json:"series,omitempty"`
	ThemeScore     float64      `json:"theme_score"`
	Derived        IndicatorSet `json:"indicators"`
	TechnicalScore float64      `json:"technical_score"`
	TotalScore     float64      `json:"total_score"`
	Source         string       `json:"source"` // transport name or "simulated"
}

// RankedCandidate is a scored candidate with its 1-based rank
type RankedCandidate struct {
	Candidate
	Rank int `json:"rank"`
}

// RankingResult is the outcome of selecting the top candidate.
// The zero value is the "no selection" state.
type RankingResult struct {
	Selected   *Candidate `json:"selected"`
	TotalScore float64    `json:"total_score"`
}

// Empty reports whether no candidate was selected
func (r RankingResult) Empty() bool {
	return r.Selected == nil
}

// Source labels
const (
	SourceSimulated = "simulated"
)
