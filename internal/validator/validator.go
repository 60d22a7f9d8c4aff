// Package validator grades logged predictions once they are old enough
// to judge, then feeds the outcome back into per-strategy trust stats.
package validator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ironclad/internal/model"
)

const (
	// Horizon is how long a prediction must age before grading.
	Horizon = 15 * time.Minute

	CorrectPct = 0.1
	WrongPct   = -0.5
)

type Validator struct {
	preds model.PredictionStore
	md    model.MarketData
	log   *slog.Logger

	// OnGrade, when set, is called with each resolved outcome. The
	// scanner binary wires it to a counter.
	OnGrade func(outcome model.PredictionOutcome)
}

func New(preds model.PredictionStore, md model.MarketData, log *slog.Logger) *Validator {
	if log == nil {
		log = slog.Default()
	}
	return &Validator{preds: preds, md: md, log: log}
}

// DirectionalPnLPct is the percent move from the prediction's entry to
// current, signed by the predicted side: a falling price is profit for
// a SELL call.
func DirectionalPnLPct(p model.Prediction, current float64) float64 {
	if p.Price == 0 {
		return 0
	}
	return (current - p.Price) / p.Price * 100 * p.Direction.Sign()
}

// Classify buckets a graded PnL. The band between the thresholds is
// NEUTRAL so noise does not swing the trust score.
func Classify(pnlPct float64) model.PredictionOutcome {
	switch {
	case pnlPct > CorrectPct:
		return model.OutcomeCorrect
	case pnlPct < WrongPct:
		return model.OutcomeWrong
	default:
		return model.OutcomeNeutral
	}
}

// RunOnce grades every pending prediction older than the horizon,
// returning how many were resolved. Instruments whose price cannot be
// fetched stay pending for the next pass.
func (v *Validator) RunOnce(ctx context.Context, now time.Time) (int, error) {
	pending, err := v.preds.PendingPredictions()
	if err != nil {
		return 0, fmt.Errorf("load pending predictions: %w", err)
	}

	resolved := 0
	for _, p := range pending {
		if now.Sub(p.TS) < Horizon {
			continue
		}
		price, ok := v.md.LatestPrice(ctx, p.Ticker)
		if !ok {
			v.log.Warn("no price for pending prediction", "ticker", p.Ticker, "id", p.ID)
			continue
		}
		pnl := DirectionalPnLPct(p, price)
		outcome := Classify(pnl)
		if err := v.preds.ResolvePrediction(p.ID, outcome, price, pnl); err != nil {
			v.log.Error("resolve prediction failed", "id", p.ID, "err", err)
			continue
		}
		if err := v.preds.UpdateStrategyStats(p.Strategy, outcome, pnl); err != nil {
			v.log.Error("strategy stats update failed", "strategy", p.Strategy, "err", err)
		}
		v.log.Info("prediction graded",
			"ticker", p.Ticker, "strategy", p.Strategy,
			"outcome", string(outcome), "pnl_pct", pnl)
		if v.OnGrade != nil {
			v.OnGrade(outcome)
		}
		resolved++
	}
	return resolved, nil
}

// Loop runs RunOnce on the interval until ctx is cancelled.
func (v *Validator) Loop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := v.RunOnce(ctx, time.Now()); err != nil {
				v.log.Error("validation pass failed", "err", err)
			}
		}
	}
}
