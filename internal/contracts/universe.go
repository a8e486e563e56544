package contracts

// Stock is a universe entry: an instrument eligible for the daily pick
type Stock struct {
	Code   string `json:"code" yaml:"code"`
	Name   string `json:"name" yaml:"name"`
	Sector string `json:"sector" yaml:"sector"`
}

// Universe is the ordered list of stocks for one ranking run.
// Order matters: the ranker breaks ties in favor of the earlier entry.
type Universe struct {
	Stocks []Stock `json:"stocks"`
}

// Codes returns the stock codes in universe order
func (u *Universe) Codes() []string {
	codes := make([]string, len(u.Stocks))
	for i, s := range u.Stocks {
		codes[i] = s.Code
	}
	return codes
}

// Find looks up a stock by code
func (u *Universe) Find(code string) (Stock, bool) {
	for _, s := range u.Stocks {
		if s.Code == code {
			return s, true
		}
	}
	return Stock{}, false
}
