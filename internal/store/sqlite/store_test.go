package sqlite

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ironclad/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.EnsureAccount(DefaultStartingBalance))
	return s
}

func TestAccountBalance(t *testing.T) {
	s := openTestStore(t)

	bal, err := s.Balance()
	require.NoError(t, err)
	assert.Equal(t, float64(DefaultStartingBalance), bal)

	require.NoError(t, s.ExecuteBuy("SBIN.NS", 10, 5_000, 50_000))
	bal, err = s.Balance()
	require.NoError(t, err)
	assert.Equal(t, float64(DefaultStartingBalance)-50_000, bal)

	// Re-seeding must not reset an existing balance.
	require.NoError(t, s.EnsureAccount(DefaultStartingBalance))
	bal, err = s.Balance()
	require.NoError(t, err)
	assert.Equal(t, float64(DefaultStartingBalance)-50_000, bal)
}

func TestHoldingsLifecycle(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.ExecuteBuy("SBIN.NS", 10, 620.5, 6_205))
	require.NoError(t, s.ExecuteBuy("INFY.NS", 5, 1500, 7_500))

	holdings, err := s.Holdings()
	require.NoError(t, err)
	require.Len(t, holdings, 2)
	assert.Equal(t, "INFY.NS", holdings[0].Ticker)

	// Partial sell keeps the row and credits proceeds.
	require.NoError(t, s.ExecuteSell("SBIN.NS", 4, 2_600))
	holdings, err = s.Holdings()
	require.NoError(t, err)
	assert.Equal(t, int64(6), holdings[1].Qty)

	// Selling down to zero deletes it.
	require.NoError(t, s.ExecuteSell("SBIN.NS", 6, 3_900))
	holdings, err = s.Holdings()
	require.NoError(t, err)
	require.Len(t, holdings, 1)

	bal, err := s.Balance()
	require.NoError(t, err)
	assert.Equal(t, float64(DefaultStartingBalance)-6_205-7_500+2_600+3_900, bal)

	err = s.ExecuteSell("SBIN.NS", 1, 650)
	assert.ErrorContains(t, err, "no position to sell")

	// A rejected sell must not credit the balance.
	err = s.ExecuteSell("INFY.NS", 100, 150_000)
	assert.ErrorContains(t, err, "insufficient quantity")
	bal, err = s.Balance()
	require.NoError(t, err)
	assert.Equal(t, float64(DefaultStartingBalance)-6_205-7_500+2_600+3_900, bal)
}

func TestTradeLog(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.LogTrade("SBIN.NS", model.Buy, 620.5, 10, "composite", nil))
	pnl := 250.0
	require.NoError(t, s.LogTrade("SBIN.NS", model.Sell, 645.5, 10, "composite", &pnl))

	trades, err := s.TradeHistory(10)
	require.NoError(t, err)
	require.Len(t, trades, 2)

	// Newest first.
	assert.Equal(t, "SELL", trades[0].Side)
	require.NotNil(t, trades[0].PnL)
	assert.Equal(t, 250.0, *trades[0].PnL)
	assert.Nil(t, trades[1].PnL)
}

func newPrediction(ticker string, dir model.Direction, age time.Duration) model.Prediction {
	return model.Prediction{
		ID:         uuid.NewString(),
		Ticker:     ticker,
		TS:         time.Now().Add(-age),
		Direction:  dir,
		Confidence: 0.7,
		Price:      100,
		Strategy:   "composite",
		Outcome:    model.OutcomePending,
	}
}

func TestPredictionLifecycle(t *testing.T) {
	s := openTestStore(t)

	p1 := newPrediction("SBIN.NS", model.Buy, 20*time.Minute)
	p2 := newPrediction("INFY.NS", model.Sell, 20*time.Minute)
	require.NoError(t, s.LogPrediction(p1))
	require.NoError(t, s.LogPrediction(p2))

	pending, err := s.PendingPredictions()
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, model.Sell, pending[1].Direction)

	require.NoError(t, s.ResolvePrediction(p1.ID, model.OutcomeCorrect, 100.5, 0.5))

	pending, err = s.PendingPredictions()
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, p2.ID, pending[0].ID)

	// The outcome triple is set exactly once; a second resolve is a no-op.
	require.NoError(t, s.ResolvePrediction(p1.ID, model.OutcomeWrong, 90, -10))
	stats, err := s.AccuracyStats()
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Correct)
	assert.Equal(t, int64(0), stats.Wrong)
	assert.Equal(t, int64(1), stats.Pending)
	assert.Equal(t, 100.0, stats.WinRate)
}

func TestStrategyStatsTrustScore(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.UpdateStrategyStats("composite", model.OutcomeCorrect, 0.5))
	all, err := s.StrategyStats()
	require.NoError(t, err)
	require.Len(t, all, 1)
	st := all[0]
	assert.Equal(t, int64(1), st.Total)
	assert.Equal(t, int64(1), st.Wins)
	assert.InDelta(t, 0.55, st.TrustScore, 1e-9)
	assert.Equal(t, 100.0, st.WinRate)

	// Neutral counts toward totals, leaves trust alone.
	require.NoError(t, s.UpdateStrategyStats("composite", model.OutcomeNeutral, 0.0))
	all, _ = s.StrategyStats()
	assert.Equal(t, int64(2), all[0].Total)
	assert.InDelta(t, 0.55, all[0].TrustScore, 1e-9)

	// Trust never drops below the floor.
	for i := 0; i < 20; i++ {
		require.NoError(t, s.UpdateStrategyStats("composite", model.OutcomeWrong, -1))
	}
	all, _ = s.StrategyStats()
	assert.InDelta(t, 0.1, all[0].TrustScore, 1e-9)
	assert.Equal(t, int64(20), all[0].Losses)
}
