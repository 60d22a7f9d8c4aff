package model

import "time"

// Position is a single open position. The engine holds at most one open
// position per instrument (no pyramiding); a position is created by an
// accepted signal and destroyed on exit, never partially closed.
type Position struct {
	Ticker     string    `json:"ticker"`
	Direction  Direction `json:"direction"`
	Qty        int64     `json:"qty"`
	EntryPrice float64   `json:"entry_price"`
	StopLoss   float64   `json:"stop_loss"`
	Strategy   string    `json:"strategy"`
	EntryTime  time.Time `json:"entry_time"`
}

// PnL returns the realized profit for closing the whole position at exit.
func (p *Position) PnL(exit float64) float64 {
	return (exit - p.EntryPrice) * float64(p.Qty) * p.Direction.Sign()
}

// ExitReason explains why a position was closed. Exit priority is fixed:
// forced end-of-day close, then kill switch, then stop loss.
type ExitReason string

const (
	ExitSquareOff  ExitReason = "EOD_SQUARE_OFF"
	ExitKillSwitch ExitReason = "KILL_SWITCH"
	ExitStopLoss   ExitReason = "STOP_LOSS"
)

// Trade is a closed round trip, recorded for the journal and reports.
type Trade struct {
	ID        string     `json:"id"`
	Ticker    string     `json:"ticker"`
	Direction Direction  `json:"direction"`
	Qty       int64      `json:"qty"`
	Entry     float64    `json:"entry"`
	Exit      float64    `json:"exit"`
	PnL       float64    `json:"pnl"`
	Strategy  string     `json:"strategy"`
	Reason    ExitReason `json:"reason"`
	EntryTime time.Time  `json:"entry_time"`
	ExitTime  time.Time  `json:"exit_time"`
}
