package validator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ironclad/internal/model"
)

type fakeStore struct {
	pending  []model.Prediction
	resolved map[string]model.PredictionOutcome
	pnls     map[string]float64
	stats    []string
}

func newFakeStore(pending ...model.Prediction) *fakeStore {
	return &fakeStore{
		pending:  pending,
		resolved: make(map[string]model.PredictionOutcome),
		pnls:     make(map[string]float64),
	}
}

func (f *fakeStore) LogPrediction(model.Prediction) error          { return nil }
func (f *fakeStore) PendingPredictions() ([]model.Prediction, error) { return f.pending, nil }
func (f *fakeStore) ResolvePrediction(id string, outcome model.PredictionOutcome, exit, pnl float64) error {
	f.resolved[id] = outcome
	f.pnls[id] = pnl
	return nil
}
func (f *fakeStore) AccuracyStats() (model.AccuracyStats, error)   { return model.AccuracyStats{}, nil }
func (f *fakeStore) StrategyStats() ([]model.StrategyStats, error) { return nil, nil }
func (f *fakeStore) UpdateStrategyStats(strategy string, _ model.PredictionOutcome, _ float64) error {
	f.stats = append(f.stats, strategy)
	return nil
}

type fakePrices map[string]float64

func (f fakePrices) Fetch(context.Context, string, string, string) (model.Series, error) {
	return nil, nil
}
func (f fakePrices) LatestPrice(_ context.Context, ticker string) (float64, bool) {
	p, ok := f[ticker]
	return p, ok
}

func pred(id, ticker string, dir model.Direction, price float64, age time.Duration, now time.Time) model.Prediction {
	return model.Prediction{
		ID: id, Ticker: ticker, Direction: dir, Price: price,
		Strategy: "composite", TS: now.Add(-age), Outcome: model.OutcomePending,
	}
}

func TestClassify(t *testing.T) {
	assert.Equal(t, model.OutcomeCorrect, Classify(0.2))
	assert.Equal(t, model.OutcomeWrong, Classify(-0.8))
	assert.Equal(t, model.OutcomeNeutral, Classify(0.05))
	assert.Equal(t, model.OutcomeNeutral, Classify(-0.3))
}

func TestDirectionalPnL(t *testing.T) {
	buy := model.Prediction{Direction: model.Buy, Price: 100}
	sell := model.Prediction{Direction: model.Sell, Price: 100}

	assert.InDelta(t, 1.0, DirectionalPnLPct(buy, 101), 1e-9)
	assert.InDelta(t, -1.0, DirectionalPnLPct(buy, 99), 1e-9)
	// A falling price is profit for a SELL call.
	assert.InDelta(t, 1.0, DirectionalPnLPct(sell, 99), 1e-9)
	assert.InDelta(t, -1.0, DirectionalPnLPct(sell, 101), 1e-9)
}

func TestRunOnceGradesAgedPredictions(t *testing.T) {
	now := time.Now()
	store := newFakeStore(
		pred("p1", "SBIN.NS", model.Buy, 100, 20*time.Minute, now),   // +0.5% -> CORRECT
		pred("p2", "INFY.NS", model.Buy, 100, 20*time.Minute, now),   // -1% -> WRONG
		pred("p3", "TCS.NS", model.Sell, 100, 20*time.Minute, now),   // price fell -> CORRECT for SELL
		pred("p4", "HDFC.NS", model.Buy, 100, 5*time.Minute, now),    // too young
		pred("p5", "WIPRO.NS", model.Buy, 100, 20*time.Minute, now),  // no price, stays pending
	)
	prices := fakePrices{"SBIN.NS": 100.5, "INFY.NS": 99, "TCS.NS": 99.2, "HDFC.NS": 105}

	v := New(store, prices, nil)
	graded := map[model.PredictionOutcome]int{}
	v.OnGrade = func(o model.PredictionOutcome) { graded[o]++ }

	n, err := v.RunOnce(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, map[model.PredictionOutcome]int{
		model.OutcomeCorrect: 2,
		model.OutcomeWrong:   1,
	}, graded)

	assert.Equal(t, model.OutcomeCorrect, store.resolved["p1"])
	assert.Equal(t, model.OutcomeWrong, store.resolved["p2"])
	assert.Equal(t, model.OutcomeCorrect, store.resolved["p3"])
	assert.NotContains(t, store.resolved, "p4")
	assert.NotContains(t, store.resolved, "p5")
	assert.Len(t, store.stats, 3)
}
