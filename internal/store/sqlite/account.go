package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ironclad/internal/model"
)

// DefaultStartingBalance seeds the paper account on first open.
const DefaultStartingBalance = 1_000_000

// EnsureAccount inserts the balance row if the account is brand new.
func (s *Store) EnsureAccount(startingBalance float64) error {
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO account (id, balance) VALUES (1, ?)`, startingBalance)
	if err != nil {
		return fmt.Errorf("seed account: %w", err)
	}
	return nil
}

func (s *Store) Balance() (float64, error) {
	var bal float64
	err := s.db.QueryRow(`SELECT balance FROM account WHERE id = 1`).Scan(&bal)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("account not seeded")
	}
	if err != nil {
		return 0, fmt.Errorf("read balance: %w", err)
	}
	return bal, nil
}

func adjustBalanceTx(tx *sql.Tx, delta float64) error {
	res, err := tx.Exec(`UPDATE account SET balance = balance + ? WHERE id = 1`, delta)
	if err != nil {
		return fmt.Errorf("adjust balance: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("account not seeded")
	}
	return nil
}

func (s *Store) Holdings() ([]model.Holding, error) {
	rows, err := s.db.Query(`SELECT ticker, qty, avg_price FROM holdings ORDER BY ticker`)
	if err != nil {
		return nil, fmt.Errorf("query holdings: %w", err)
	}
	defer rows.Close()

	var out []model.Holding
	for rows.Next() {
		var h model.Holding
		if err := rows.Scan(&h.Ticker, &h.Qty, &h.AvgPrice); err != nil {
			return nil, fmt.Errorf("scan holding: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// ExecuteBuy sets the holding row to the new totals and debits the cost
// in one transaction. Qty and avgPrice are totals, not deltas; callers
// compute the blended average price.
func (s *Store) ExecuteBuy(ticker string, qty int64, avgPrice, cost float64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("buy %s: %w", ticker, err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO holdings (ticker, qty, avg_price) VALUES (?, ?, ?)
		ON CONFLICT(ticker) DO UPDATE SET qty = excluded.qty, avg_price = excluded.avg_price
	`, ticker, qty, avgPrice)
	if err != nil {
		return fmt.Errorf("upsert holding %s: %w", ticker, err)
	}
	if err := adjustBalanceTx(tx, -cost); err != nil {
		return err
	}
	return tx.Commit()
}

// ExecuteSell subtracts qty from the holding, deleting it at zero, and
// credits the proceeds in the same transaction.
func (s *Store) ExecuteSell(ticker string, qty int64, proceeds float64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("sell %s: %w", ticker, err)
	}
	defer tx.Rollback()

	var have int64
	err = tx.QueryRow(`SELECT qty FROM holdings WHERE ticker = ?`, ticker).Scan(&have)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("no position to sell: %s", ticker)
	}
	if err != nil {
		return fmt.Errorf("reduce holding %s: %w", ticker, err)
	}
	if have < qty {
		return fmt.Errorf("insufficient quantity: have %d, want %d", have, qty)
	}
	if have == qty {
		_, err = tx.Exec(`DELETE FROM holdings WHERE ticker = ?`, ticker)
	} else {
		_, err = tx.Exec(`UPDATE holdings SET qty = qty - ? WHERE ticker = ?`, qty, ticker)
	}
	if err != nil {
		return fmt.Errorf("reduce holding %s: %w", ticker, err)
	}
	if err := adjustBalanceTx(tx, proceeds); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) LogTrade(ticker string, side model.Direction, price float64, qty int64, strategy string, pnl *float64) error {
	_, err := s.db.Exec(`
		INSERT INTO trades (ticker, side, price, qty, strategy, pnl, ts)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, ticker, string(side), price, qty, strategy, pnl, time.Now().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("log trade %s: %w", ticker, err)
	}
	return nil
}

func (s *Store) TradeHistory(limit int) ([]model.TradeRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(`
		SELECT id, ticker, side, price, qty, COALESCE(strategy, ''), pnl, ts
		FROM trades ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	var out []model.TradeRecord
	for rows.Next() {
		var t model.TradeRecord
		if err := rows.Scan(&t.ID, &t.Ticker, &t.Side, &t.Price, &t.Qty, &t.Strategy, &t.PnL, &t.Timestamp); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
