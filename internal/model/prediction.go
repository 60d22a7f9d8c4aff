package model

import "time"

// PredictionOutcome classifies a validated prediction.
type PredictionOutcome string

const (
	OutcomePending PredictionOutcome = "PENDING"
	OutcomeCorrect PredictionOutcome = "CORRECT"
	OutcomeWrong   PredictionOutcome = "WRONG"
	OutcomeNeutral PredictionOutcome = "NEUTRAL"
)

// Prediction is one logged confidence-model decision. Outcome, ExitPrice
// and PnLPct start empty and are set exactly once by the validator.
type Prediction struct {
	ID         string            `json:"id"`
	Ticker     string            `json:"ticker"`
	TS         time.Time         `json:"ts"`
	Direction  Direction         `json:"direction"`
	Confidence float64           `json:"confidence"`
	Price      float64           `json:"price"` // close at prediction time
	Strategy   string            `json:"strategy"`
	Outcome    PredictionOutcome `json:"outcome"`
	ExitPrice  float64           `json:"exit_price"`
	PnLPct     float64           `json:"pnl_pct"`
}

// StrategyStats is the per-strategy trust record maintained by the
// validator. TrustScore is a running reliability estimate nudged by each
// validated outcome; it is observability-only for now but exposed so a
// future build can use it as a confidence multiplier.
type StrategyStats struct {
	Strategy    string    `json:"strategy"`
	Total       int64     `json:"total"`
	Wins        int64     `json:"wins"`
	Losses      int64     `json:"losses"`
	WinRate     float64   `json:"win_rate"`
	AvgPnL      float64   `json:"avg_pnl"`
	TrustScore  float64   `json:"trust_score"`
	LastUpdated time.Time `json:"last_updated"`
}

// AccuracyStats summarizes prediction outcomes across all strategies.
type AccuracyStats struct {
	Correct        int64   `json:"correct"`
	Wrong          int64   `json:"wrong"`
	Pending        int64   `json:"pending"`
	TotalValidated int64   `json:"total_validated"`
	WinRate        float64 `json:"win_rate"`
}
