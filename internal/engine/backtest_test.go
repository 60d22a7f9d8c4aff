package engine

import (
	"context"
	"testing"
	"time"

	"ironclad/internal/markethours"
	"ironclad/internal/model"
	"ironclad/internal/risk"
)

func sessionBar(day time.Time, minuteOffset int, close float64) model.Bar {
	ts := day.Add(time.Duration(minuteOffset) * time.Minute)
	return model.Bar{
		Ticker: "SBIN.NS", TS: ts,
		Open: close, High: close * 1.001, Low: close * 0.999,
		Close: close, Volume: 1000,
	}
}

func openPosition(dir model.Direction, entry, stop float64, qty int64) *simInstrument {
	return &simInstrument{
		ticker: "SBIN.NS",
		position: &model.Position{
			Ticker: "SBIN.NS", Direction: dir, Qty: qty,
			EntryPrice: entry, StopLoss: stop, Strategy: "composite",
			EntryTime: time.Date(2026, 2, 2, 10, 0, 0, 0, markethours.IST),
		},
	}
}

func TestExitPriorityForcedCloseFirst(t *testing.T) {
	b := NewBacktester(nil, nil)
	rm := risk.NewManager(risk.DefaultConfig(), 1_000_000, nil)
	day := time.Date(2026, 2, 2, 0, 0, 0, 0, markethours.IST)

	// 15:15 bar that also pierces the stop: the forced close wins.
	inst := openPosition(model.Buy, 100, 98, 10)
	bar := sessionBar(day, 15*60+15, 97)
	trade, closed := b.evalExit(inst, bar, rm)
	if !closed {
		t.Fatal("expected a close")
	}
	if trade.Reason != model.ExitSquareOff {
		t.Errorf("reason = %s, want EOD_SQUARE_OFF", trade.Reason)
	}
	if trade.Exit != bar.Close {
		t.Errorf("forced close exits at the bar close, got %v", trade.Exit)
	}
	if inst.position != nil {
		t.Error("position not cleared")
	}
}

func TestExitPriorityKillSwitchBeforeStop(t *testing.T) {
	b := NewBacktester(nil, nil)
	rm := risk.NewManager(risk.DefaultConfig(), 1_000_000, nil)
	rm.ApplyPnL(-30_000) // trip the switch
	day := time.Date(2026, 2, 2, 0, 0, 0, 0, markethours.IST)

	inst := openPosition(model.Buy, 100, 98, 10)
	bar := sessionBar(day, 11*60, 97) // stop also hit
	trade, closed := b.evalExit(inst, bar, rm)
	if !closed {
		t.Fatal("expected a close")
	}
	if trade.Reason != model.ExitKillSwitch {
		t.Errorf("reason = %s, want KILL_SWITCH", trade.Reason)
	}
}

func TestStopLossExit(t *testing.T) {
	b := NewBacktester(nil, nil)
	rm := risk.NewManager(risk.DefaultConfig(), 1_000_000, nil)
	day := time.Date(2026, 2, 2, 0, 0, 0, 0, markethours.IST)

	inst := openPosition(model.Buy, 100, 98, 10)
	bar := sessionBar(day, 11*60, 97.9) // low ~97.8, below the stop
	trade, closed := b.evalExit(inst, bar, rm)
	if !closed {
		t.Fatal("expected a stop-loss close")
	}
	if trade.Reason != model.ExitStopLoss {
		t.Errorf("reason = %s", trade.Reason)
	}
	if trade.Exit != 98 {
		t.Errorf("stop fills at the stop price, got %v", trade.Exit)
	}
	if trade.PnL != (98-100)*10 {
		t.Errorf("pnl = %v, want -20", trade.PnL)
	}

	// Short side: a high at/above the stop triggers.
	inst = openPosition(model.Sell, 100, 102, 10)
	bar = sessionBar(day, 11*60, 102.5)
	trade, closed = b.evalExit(inst, bar, rm)
	if !closed || trade.Reason != model.ExitStopLoss {
		t.Fatalf("short stop not triggered: %+v", trade)
	}
	if trade.PnL != (100-102)*10 {
		t.Errorf("short pnl = %v, want -20", trade.PnL)
	}
}

func TestNoExitHoldsPosition(t *testing.T) {
	b := NewBacktester(nil, nil)
	rm := risk.NewManager(risk.DefaultConfig(), 1_000_000, nil)
	day := time.Date(2026, 2, 2, 0, 0, 0, 0, markethours.IST)

	inst := openPosition(model.Buy, 100, 98, 10)
	bar := sessionBar(day, 11*60, 101)
	if _, closed := b.evalExit(inst, bar, rm); closed {
		t.Error("position closed without a trigger")
	}
	if inst.position == nil {
		t.Error("position dropped")
	}
}

// syntheticMD serves deterministic bar histories keyed by ticker.
type syntheticMD struct {
	series map[string]model.Series
}

func (s *syntheticMD) Fetch(_ context.Context, ticker, _, _ string) (model.Series, error) {
	return s.series[ticker], nil
}
func (s *syntheticMD) LatestPrice(_ context.Context, ticker string) (float64, bool) {
	bars := s.series[ticker]
	if len(bars) == 0 {
		return 0, false
	}
	return bars[len(bars)-1].Close, true
}

// twoDayUptrend builds two full sessions of 5-minute bars drifting up.
func twoDayUptrend(ticker string) model.Series {
	var bars model.Series
	price := 100.0
	for _, d := range []int{2, 3} { // Mon and Tue 2026-02
		open := time.Date(2026, 2, d, 9, 15, 0, 0, markethours.IST)
		for i := 0; i < 74; i++ {
			b := sessionBar(open, i*5, price)
			b.Ticker = ticker
			bars = append(bars, b)
			price *= 1.001
		}
	}
	return bars
}

func TestBacktestDeterministic(t *testing.T) {
	md := &syntheticMD{series: map[string]model.Series{
		"SBIN.NS": twoDayUptrend("SBIN.NS"),
		"INFY.NS": twoDayUptrend("INFY.NS"),
	}}
	b := NewBacktester(md, nil)
	cfg := BacktestConfig{
		Tickers:         []string{"INFY.NS", "SBIN.NS"},
		StartingCapital: 1_000_000,
		Period:          "5d",
		Interval:        "5m",
	}

	run := func() BacktestResult {
		res, err := b.Run(context.Background(), cfg)
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		return res
	}
	a, c := run(), run()

	if len(a.Trades) != len(c.Trades) {
		t.Fatalf("trade counts differ: %d vs %d", len(a.Trades), len(c.Trades))
	}
	for i := range a.Trades {
		x, y := a.Trades[i], c.Trades[i]
		if x.Ticker != y.Ticker || x.Strategy != y.Strategy || x.PnL != y.PnL ||
			x.Entry != y.Entry || x.Exit != y.Exit || !x.EntryTime.Equal(y.EntryTime) {
			t.Errorf("trade %d differs: %+v vs %+v", i, x, y)
		}
	}
	if a.FinalCapital != c.FinalCapital {
		t.Errorf("final capital differs: %v vs %v", a.FinalCapital, c.FinalCapital)
	}

	// Capital must reconcile with the trade log exactly.
	total := 0.0
	for _, tr := range a.Trades {
		total += tr.PnL
	}
	if got := a.StartingCapital + total; got != a.FinalCapital {
		t.Errorf("capital %v does not reconcile with pnl sum %v", a.FinalCapital, total)
	}
}
