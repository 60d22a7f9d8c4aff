package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"ironclad/internal/model"
)

// AutoTradeConfidenceFloor gates the auto-trading hook.
const AutoTradeConfidenceFloor = 0.60

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNoPosition        = errors.New("no position to sell")
)

// Trader executes paper trades against the persisted account. All
// validation happens here so the API and the auto-trade hook share the
// same rejection rules.
type Trader struct {
	store model.TradeStore
	log   *slog.Logger

	// OnTrade, when set, is called with the side of every executed
	// trade. The scanner wires it to a counter.
	OnTrade func(side model.Direction)

	// OnRealized, when set, receives each sell's realized PnL. The
	// scanner binary wires it to the risk manager so live losses count
	// toward the daily kill switch.
	OnRealized func(pnl float64)
}

func NewTrader(store model.TradeStore, log *slog.Logger) *Trader {
	if log == nil {
		log = slog.Default()
	}
	return &Trader{store: store, log: log}
}

// Buy debits the account and adds to (or opens) the holding at a
// blended average price.
func (t *Trader) Buy(ticker string, price float64, qty int64, strategy string) error {
	if qty <= 0 || price <= 0 {
		return fmt.Errorf("invalid order: qty=%d price=%v", qty, price)
	}
	cost := price * float64(qty)
	balance, err := t.store.Balance()
	if err != nil {
		return fmt.Errorf("buy %s: %w", ticker, err)
	}
	if cost > balance {
		return ErrInsufficientFunds
	}

	newQty, newAvg := qty, price
	for _, h := range t.held(ticker) {
		newQty = h.Qty + qty
		newAvg = (h.AvgPrice*float64(h.Qty) + cost) / float64(newQty)
	}
	if err := t.store.ExecuteBuy(ticker, newQty, newAvg, cost); err != nil {
		return fmt.Errorf("buy %s: %w", ticker, err)
	}
	if err := t.store.LogTrade(ticker, model.Buy, price, qty, strategy, nil); err != nil {
		t.log.Error("trade log write failed", "ticker", ticker, "err", err)
	}
	if t.OnTrade != nil {
		t.OnTrade(model.Buy)
	}
	t.log.Info("paper buy", "ticker", ticker, "qty", qty, "price", price, "strategy", strategy)
	return nil
}

// Sell reduces (or closes) the holding and credits the proceeds. The
// realized PnL against the blended average price goes on the trade row.
func (t *Trader) Sell(ticker string, price float64, qty int64, strategy string) error {
	if qty <= 0 || price <= 0 {
		return fmt.Errorf("invalid order: qty=%d price=%v", qty, price)
	}
	held := t.held(ticker)
	if len(held) == 0 {
		return ErrNoPosition
	}
	avg := held[0].AvgPrice

	if err := t.store.ExecuteSell(ticker, qty, price*float64(qty)); err != nil {
		return err
	}
	pnl := (price - avg) * float64(qty)
	if err := t.store.LogTrade(ticker, model.Sell, price, qty, strategy, &pnl); err != nil {
		t.log.Error("trade log write failed", "ticker", ticker, "err", err)
	}
	if t.OnRealized != nil {
		t.OnRealized(pnl)
	}
	if t.OnTrade != nil {
		t.OnTrade(model.Sell)
	}
	t.log.Info("paper sell", "ticker", ticker, "qty", qty, "price", price, "pnl", pnl)
	return nil
}

func (t *Trader) held(ticker string) []model.Holding {
	holdings, err := t.store.Holdings()
	if err != nil {
		t.log.Error("holdings read failed", "err", err)
		return nil
	}
	for _, h := range holdings {
		if h.Ticker == ticker {
			return []model.Holding{h}
		}
	}
	return nil
}

// QtyForConfidence maps model confidence to an order size band.
func QtyForConfidence(conf float64) int64 {
	switch {
	case conf > 0.9:
		return 20
	case conf > 0.8:
		return 15
	case conf > 0.7:
		return 10
	default:
		return 5
	}
}

// AutoTrade executes a surviving composite signal: BUY opens a banded
// position when the instrument is not already held, SELL closes the
// whole holding. Other strategies and low-confidence signals are
// ignored; rejections are logged, never fatal.
func (t *Trader) AutoTrade(ctx context.Context, sig model.Signal) {
	if sig.Strategy != "composite" || sig.Confidence <= AutoTradeConfidenceFloor {
		return
	}
	switch sig.Direction {
	case model.Buy:
		if len(t.held(sig.Ticker)) > 0 {
			return
		}
		if err := t.Buy(sig.Ticker, sig.Price, QtyForConfidence(sig.Confidence), sig.Strategy); err != nil {
			t.log.Warn("auto-trade buy rejected", "ticker", sig.Ticker, "err", err)
		}
	case model.Sell:
		held := t.held(sig.Ticker)
		if len(held) == 0 {
			return
		}
		if err := t.Sell(sig.Ticker, sig.Price, held[0].Qty, sig.Strategy); err != nil {
			t.log.Warn("auto-trade sell rejected", "ticker", sig.Ticker, "err", err)
		}
	}
}
