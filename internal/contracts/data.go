package contracts

import "time"

// PricePoint is one trading day of OHLCV data
// ⭐ SSOT: fetch layer → indicator engine 가격 데이터 전달
type PricePoint struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// Series is a chronologically ascending sequence of PricePoint, one per trading day
type Series []PricePoint

// Valid returns a copy of the series without points whose close is not positive.
// Return and volatility math requires close > 0 on every point.
func (s Series) Valid() Series {
	out := make(Series, 0, len(s))
	for _, p := range s {
		if p.Close > 0 {
			out = append(out, p)
		}
	}
	return out
}

// Closes extracts close prices in series order
func (s Series) Closes() []float64 {
	closes := make([]float64, len(s))
	for i, p := range s {
		closes[i] = p.Close
	}
	return closes
}

// Volumes extracts volumes in series order
func (s Series) Volumes() []float64 {
	volumes := make([]float64, len(s))
	for i, p := range s {
		volumes[i] = float64(p.Volume)
	}
	return volumes
}

// Last returns the most recent point
func (s Series) Last() (PricePoint, bool) {
	if len(s) == 0 {
		return PricePoint{}, false
	}
	return s[len(s)-1], true
}

// ChangePercent returns the last close versus the previous close in percent.
// 0 when fewer than two points exist.
func (s Series) ChangePercent() float64 {
	if len(s) < 2 {
		return 0
	}
	prev := s[len(s)-2].Close
	if prev == 0 {
		return 0
	}
	return (s[len(s)-1].Close - prev) / prev * 100
}
