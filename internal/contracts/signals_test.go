package contracts

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestIndicatorSet_OrZero(t *testing.T) {
	var empty IndicatorSet
	if empty.VolatilityOrZero() != 0 || empty.VolumeRatioOrZero() != 0 {
		t.Error("absent indicators should read as zero")
	}

	set := IndicatorSet{Volatility: Float(12.5), VolumeRatio: Float(140)}
	if set.VolatilityOrZero() != 12.5 {
		t.Errorf("VolatilityOrZero() = %v", set.VolatilityOrZero())
	}
	if set.VolumeRatioOrZero() != 140 {
		t.Errorf("VolumeRatioOrZero() = %v", set.VolumeRatioOrZero())
	}
}

func TestIndicatorSet_PresentCount(t *testing.T) {
	set := IndicatorSet{
		SMA20: Float(1),
		RSI14: Float(50),
		MACD:  &MACD{Line: 1},
	}
	if got := set.PresentCount(); got != 3 {
		t.Errorf("PresentCount() = %d, want 3", got)
	}
}

func TestIndicatorSet_JSONAbsentIsNull(t *testing.T) {
	data, err := json.Marshal(IndicatorSet{RSI14: Float(42)})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	s := string(data)
	if !strings.Contains(s, `"sma20":null`) {
		t.Errorf("absent sma20 should encode as null: %s", s)
	}
	if !strings.Contains(s, `"rsi14":42`) {
		t.Errorf("rsi14 missing: %s", s)
	}
}

func TestRankingResult_Empty(t *testing.T) {
	var r RankingResult
	if !r.Empty() {
		t.Error("zero RankingResult should be empty")
	}

	r = RankingResult{Selected: &Candidate{Code: "005930"}, TotalScore: 1}
	if r.Empty() {
		t.Error("RankingResult with a candidate should not be empty")
	}
}

func TestPick_IsSimulated(t *testing.T) {
	p := &Pick{Source: SourceSimulated}
	if !p.IsSimulated() {
		t.Error("expected simulated pick")
	}
	p.Source = "naver"
	if p.IsSimulated() {
		t.Error("naver pick reported as simulated")
	}
}
