package strategyconfig

import "github.com/wonny/stockpick/internal/contracts"

// Universe sources
const (
	UniverseStatic       = "static"        // stocks 목록 고정
	UniverseNaverRanking = "naver_ranking" // 네이버 순위 상위 N
)

// Config는 오늘의 종목 선정 전략 설정
type Config struct {
	Meta       Meta       `yaml:"meta" json:"meta"`
	Universe   Universe   `yaml:"universe" json:"universe"`
	Indicators Indicators `yaml:"indicators" json:"indicators"`
	Theme      Theme      `yaml:"theme" json:"theme"`
	Fallback   Fallback   `yaml:"fallback" json:"fallback"`
}

// Meta 메타 정보
type Meta struct {
	StrategyID string `yaml:"strategy_id" json:"strategy_id"`
	Version    string `yaml:"version" json:"version"`
}

// Universe 후보 종목 풀
type Universe struct {
	Source  string            `yaml:"source" json:"source"`
	Ranking RankingUniverse   `yaml:"ranking" json:"ranking"`
	Stocks  []contracts.Stock `yaml:"stocks" json:"stocks"`
}

// RankingUniverse 네이버 순위 기반 동적 유니버스
type RankingUniverse struct {
	Category string `yaml:"category" json:"category"` // upper, trading, tradingValue, quantHigh, top
	Market   string `yaml:"market" json:"market"`     // KOSPI, KOSDAQ
	Size     int    `yaml:"size" json:"size"`
}

// Indicators 지표 계산 옵션
type Indicators struct {
	MACDMode string `yaml:"macd_mode" json:"macd_mode"` // parity, full
}

// Theme 테마 점수 공급자
type Theme struct {
	Provider      string         `yaml:"provider" json:"provider"` // random, sector
	Seed          int64          `yaml:"seed" json:"seed"`         // 0 = 시계 기반
	SectorWeights []SectorWeight `yaml:"sector_weights" json:"sector_weights"`
}

// SectorWeight 섹터별 테마 점수
// 주의: map 대신 slice 사용으로 해시 재현성 보장
type SectorWeight struct {
	Sector string  `yaml:"sector" json:"sector"`
	Score  float64 `yaml:"score" json:"score"`
}

// Fallback 실데이터가 없을 때의 동작
type Fallback struct {
	Simulate bool  `yaml:"simulate" json:"simulate"`
	Seed     int64 `yaml:"seed" json:"seed"`
}

// SectorWeightMap returns sector weights keyed by sector
func (t Theme) SectorWeightMap() map[string]float64 {
	m := make(map[string]float64, len(t.SectorWeights))
	for _, w := range t.SectorWeights {
		m[w.Sector] = w.Score
	}
	return m
}

// StaticUniverse returns the configured stock list as a Universe
func (u Universe) StaticUniverse() *contracts.Universe {
	stocks := make([]contracts.Stock, len(u.Stocks))
	copy(stocks, u.Stocks)
	return &contracts.Universe{Stocks: stocks}
}

// Default returns the built-in strategy: 10 KOSPI large caps, parity MACD,
// random theme scores, simulated fallback
func Default() *Config {
	return &Config{
		Meta: Meta{
			StrategyID: "stock_of_the_day",
			Version:    "1",
		},
		Universe: Universe{
			Source: UniverseStatic,
			Stocks: []contracts.Stock{
				{Code: "005930", Name: "삼성전자", Sector: "전자"},
				{Code: "000660", Name: "SK하이닉스", Sector: "반도체"},
				{Code: "035420", Name: "NAVER", Sector: "IT"},
				{Code: "051910", Name: "LG화학", Sector: "화학"},
				{Code: "005490", Name: "POSCO홀딩스", Sector: "철강"},
				{Code: "068270", Name: "셀트리온", Sector: "바이오"},
				{Code: "028260", Name: "삼성물산", Sector: "무역"},
				{Code: "373220", Name: "LG에너지솔루션", Sector: "전지"},
				{Code: "247540", Name: "에코프로비엠", Sector: "전지소재"},
				{Code: "086520", Name: "에코프로", Sector: "전지소재"},
			},
		},
		Indicators: Indicators{MACDMode: "parity"},
		Theme:      Theme{Provider: "random"},
		Fallback:   Fallback{Simulate: true},
	}
}
