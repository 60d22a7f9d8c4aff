package model

import "context"

// ── Collaborator Port Interfaces ──
// These interfaces decouple the decision core from concrete collaborators
// (HTTP market data, RSS sentiment, SQLite persistence, Telegram alerts).
// Each implementation satisfies one or more of these interfaces.

// MarketData fetches OHLCV history for an instrument. Implementations
// retry transient failures internally and return an empty series (never an
// error) once retries are exhausted; callers treat empty as "skip".
type MarketData interface {
	// Fetch returns bars for period/interval strings such as "5d"/"5m".
	Fetch(ctx context.Context, ticker, period, interval string) (Series, error)

	// LatestPrice returns the most recent traded price, or ok=false when
	// no data is available.
	LatestPrice(ctx context.Context, ticker string) (float64, bool)
}

// SentimentProvider scores news sentiment for an instrument in [-1, 1].
// 0 means neutral or no data. Implementations cache per instrument.
type SentimentProvider interface {
	Score(ctx context.Context, ticker string) float64
}

// TradeStore is the persistence surface for the paper account: a cash
// balance row, one open-position row per held instrument, and an
// append-only trade log. Holding and balance always move together, so
// the mutating operations are atomic pairs.
type TradeStore interface {
	Balance() (float64, error)
	Holdings() ([]Holding, error)

	// ExecuteBuy writes the holding's new totals (not deltas; callers
	// compute the blended average) and debits cost from the balance in
	// one transaction.
	ExecuteBuy(ticker string, qty int64, avgPrice, cost float64) error

	// ExecuteSell reduces the holding by qty, deleting it at zero, and
	// credits the proceeds in one transaction.
	ExecuteSell(ticker string, qty int64, proceeds float64) error

	LogTrade(ticker string, side Direction, price float64, qty int64, strategy string, pnl *float64) error
	TradeHistory(limit int) ([]TradeRecord, error)
}

// PredictionStore is the append-only prediction log plus the per-strategy
// aggregates the validator maintains.
type PredictionStore interface {
	LogPrediction(p Prediction) error
	PendingPredictions() ([]Prediction, error)
	ResolvePrediction(id string, outcome PredictionOutcome, exitPrice, pnlPct float64) error
	AccuracyStats() (AccuracyStats, error)
	StrategyStats() ([]StrategyStats, error)
	UpdateStrategyStats(strategy string, outcome PredictionOutcome, pnlPct float64) error
}

// Notifier delivers trade alerts. Delivery is best-effort: callers log and
// swallow errors, never propagate them into the pipeline.
type Notifier interface {
	SendSignalAlert(ctx context.Context, sig Signal) error
}

// Holding is one open paper-account position row.
type Holding struct {
	Ticker   string  `json:"ticker"`
	Qty      int64   `json:"qty"`
	AvgPrice float64 `json:"avg_price"`
}

// TradeRecord is one row from the trade history log.
type TradeRecord struct {
	ID        int64    `json:"id"`
	Ticker    string   `json:"ticker"`
	Side      string   `json:"side"`
	Price     float64  `json:"price"`
	Qty       int64    `json:"qty"`
	Strategy  string   `json:"strategy"`
	Timestamp string   `json:"timestamp"`
	PnL       *float64 `json:"pnl"`
}
