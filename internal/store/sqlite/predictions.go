package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ironclad/internal/model"
)

var (
	_ model.TradeStore      = (*Store)(nil)
	_ model.PredictionStore = (*Store)(nil)
)

// Trust score bounds and per-outcome nudge.
const (
	trustStep    = 0.05
	trustFloor   = 0.1
	trustCeiling = 1.0
	trustInitial = 0.5
)

func (s *Store) LogPrediction(p model.Prediction) error {
	_, err := s.db.Exec(`
		INSERT INTO predictions (id, ticker, ts, direction, confidence, price, strategy, outcome)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.Ticker, p.TS.Unix(), string(p.Direction), p.Confidence, p.Price,
		p.Strategy, string(model.OutcomePending))
	if err != nil {
		return fmt.Errorf("log prediction %s: %w", p.Ticker, err)
	}
	return nil
}

func (s *Store) PendingPredictions() ([]model.Prediction, error) {
	rows, err := s.db.Query(`
		SELECT id, ticker, ts, direction, confidence, price, strategy
		FROM predictions WHERE outcome = ? ORDER BY ts ASC
	`, string(model.OutcomePending))
	if err != nil {
		return nil, fmt.Errorf("query pending predictions: %w", err)
	}
	defer rows.Close()

	var out []model.Prediction
	for rows.Next() {
		var p model.Prediction
		var ts int64
		var dir string
		if err := rows.Scan(&p.ID, &p.Ticker, &ts, &dir, &p.Confidence, &p.Price, &p.Strategy); err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		p.TS = time.Unix(ts, 0)
		p.Direction = model.Direction(dir)
		p.Outcome = model.OutcomePending
		out = append(out, p)
	}
	return out, rows.Err()
}

// ResolvePrediction sets the outcome triple exactly once; a second
// resolve for the same id is a no-op at the WHERE clause.
func (s *Store) ResolvePrediction(id string, outcome model.PredictionOutcome, exitPrice, pnlPct float64) error {
	_, err := s.db.Exec(`
		UPDATE predictions SET outcome = ?, exit_price = ?, pnl_pct = ?
		WHERE id = ? AND outcome = ?
	`, string(outcome), exitPrice, pnlPct, id, string(model.OutcomePending))
	if err != nil {
		return fmt.Errorf("resolve prediction %s: %w", id, err)
	}
	return nil
}

func (s *Store) AccuracyStats() (model.AccuracyStats, error) {
	var stats model.AccuracyStats
	err := s.db.QueryRow(`
		SELECT
			COALESCE(SUM(outcome = 'CORRECT'), 0),
			COALESCE(SUM(outcome = 'WRONG'), 0),
			COALESCE(SUM(outcome = 'PENDING'), 0),
			COALESCE(SUM(outcome != 'PENDING'), 0)
		FROM predictions
	`).Scan(&stats.Correct, &stats.Wrong, &stats.Pending, &stats.TotalValidated)
	if err != nil {
		return stats, fmt.Errorf("accuracy stats: %w", err)
	}
	if graded := stats.Correct + stats.Wrong; graded > 0 {
		stats.WinRate = float64(stats.Correct) / float64(graded) * 100
	}
	return stats, nil
}

func (s *Store) StrategyStats() ([]model.StrategyStats, error) {
	rows, err := s.db.Query(`
		SELECT strategy, total, wins, losses, win_rate, avg_pnl, trust_score, last_updated
		FROM strategy_stats ORDER BY strategy
	`)
	if err != nil {
		return nil, fmt.Errorf("query strategy stats: %w", err)
	}
	defer rows.Close()

	var out []model.StrategyStats
	for rows.Next() {
		var st model.StrategyStats
		var updated int64
		if err := rows.Scan(&st.Strategy, &st.Total, &st.Wins, &st.Losses,
			&st.WinRate, &st.AvgPnL, &st.TrustScore, &updated); err != nil {
			return nil, fmt.Errorf("scan strategy stats: %w", err)
		}
		st.LastUpdated = time.Unix(updated, 0)
		out = append(out, st)
	}
	return out, rows.Err()
}

// UpdateStrategyStats folds one graded outcome into the strategy's
// aggregate row. The trust score moves 0.05 per graded outcome and is
// clamped to [0.1, 1.0]; NEUTRAL outcomes count toward totals but leave
// wins, losses and trust untouched.
func (s *Store) UpdateStrategyStats(strategy string, outcome model.PredictionOutcome, pnlPct float64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("update strategy stats: %w", err)
	}
	defer tx.Rollback()

	var st model.StrategyStats
	err = tx.QueryRow(`
		SELECT total, wins, losses, avg_pnl, trust_score
		FROM strategy_stats WHERE strategy = ?
	`, strategy).Scan(&st.Total, &st.Wins, &st.Losses, &st.AvgPnL, &st.TrustScore)
	if errors.Is(err, sql.ErrNoRows) {
		st.TrustScore = trustInitial
	} else if err != nil {
		return fmt.Errorf("read strategy stats %s: %w", strategy, err)
	}

	st.Total++
	switch outcome {
	case model.OutcomeCorrect:
		st.Wins++
		st.TrustScore += trustStep
	case model.OutcomeWrong:
		st.Losses++
		st.TrustScore -= trustStep
	}
	if st.TrustScore > trustCeiling {
		st.TrustScore = trustCeiling
	}
	if st.TrustScore < trustFloor {
		st.TrustScore = trustFloor
	}
	if graded := st.Wins + st.Losses; graded > 0 {
		st.WinRate = float64(st.Wins) / float64(graded) * 100
	}
	st.AvgPnL += (pnlPct - st.AvgPnL) / float64(st.Total)

	_, err = tx.Exec(`
		INSERT INTO strategy_stats (strategy, total, wins, losses, win_rate, avg_pnl, trust_score, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(strategy) DO UPDATE SET
			total = excluded.total, wins = excluded.wins, losses = excluded.losses,
			win_rate = excluded.win_rate, avg_pnl = excluded.avg_pnl,
			trust_score = excluded.trust_score, last_updated = excluded.last_updated
	`, strategy, st.Total, st.Wins, st.Losses, st.WinRate, st.AvgPnL, st.TrustScore, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("write strategy stats %s: %w", strategy, err)
	}
	return tx.Commit()
}
