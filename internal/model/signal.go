package model

import "time"

// Direction is the side of a trade signal.
type Direction string

const (
	// None is the zero direction: the generator (or a veto stage)
	// produced no actionable signal.
	None Direction = ""

	Buy  Direction = "BUY"
	Sell Direction = "SELL"
)

// Sign returns +1 for BUY and -1 for SELL.
func (d Direction) Sign() float64 {
	if d == Sell {
		return -1
	}
	return 1
}

// Signal is a vetoed, confidence-scored trade decision produced by the
// pipeline. It is immutable and consumed exactly once by the risk manager.
type Signal struct {
	Ticker     string    `json:"ticker"`
	Direction  Direction `json:"direction"`
	Strategy   string    `json:"strategy"`
	Price      float64   `json:"price"`
	ATR        float64   `json:"atr"`
	Confidence float64   `json:"confidence"`
	Sentiment  float64   `json:"sentiment"`
	TS         time.Time `json:"ts"`
}
