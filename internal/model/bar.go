package model

import "time"

// Bar represents a single OHLCV sample for a fixed interval.
// Bars for one instrument form a strictly time-ascending sequence and are
// immutable once produced by the market data provider.
type Bar struct {
	Ticker string    `json:"ticker"`
	TS     time.Time `json:"ts"` // bar open time
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Series is an ordered bar history for one instrument.
type Series []Bar

// Last returns the most recent bar. ok is false for an empty series.
func (s Series) Last() (Bar, bool) {
	if len(s) == 0 {
		return Bar{}, false
	}
	return s[len(s)-1], true
}

// Closes extracts the close column.
func (s Series) Closes() []float64 {
	out := make([]float64, len(s))
	for i := range s {
		out[i] = s[i].Close
	}
	return out
}

// Before returns the prefix of the series with TS <= t.
// The series is time-ordered, so a binary cut would work, but histories
// here are small enough that a linear scan from the end is fine.
func (s Series) Before(t time.Time) Series {
	for i := len(s) - 1; i >= 0; i-- {
		if !s[i].TS.After(t) {
			return s[:i+1]
		}
	}
	return nil
}
