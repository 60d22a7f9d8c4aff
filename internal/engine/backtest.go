package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"ironclad/internal/brain"
	"ironclad/internal/indicator"
	"ironclad/internal/markethours"
	"ironclad/internal/model"
	"ironclad/internal/risk"
	"ironclad/internal/strategy"
	"ironclad/internal/veto"
)

// minSimBars is the shortest indicator prefix worth evaluating.
const minSimBars = 60

// BacktestConfig describes one deterministic replay.
type BacktestConfig struct {
	Tickers         []string
	StartingCapital float64
	Period          string // e.g. "30d"
	Interval        string // e.g. "5m"
	RiskConfig      risk.Config
}

// BacktestResult is the realized outcome of a replay.
type BacktestResult struct {
	Trades          []model.Trade
	StartingCapital float64
	FinalCapital    float64
	Wins            int
	Losses          int
	WinRate         float64
}

// Backtester replays history through the exact live pipeline, minus the
// live-only collaborators: no sentiment, no prediction log, no alerts.
// It is single-threaded and fully deterministic: one synchronous pass
// over a master time axis built from the union of all bar timestamps.
type Backtester struct {
	md  model.MarketData
	log *slog.Logger
}

func NewBacktester(md model.MarketData, log *slog.Logger) *Backtester {
	if log == nil {
		log = slog.Default()
	}
	return &Backtester{md: md, log: log}
}

type simInstrument struct {
	ticker   string
	bars     model.Series
	byTS     map[int64]int // unix ts -> bar index in bars
	position *model.Position
}

// Run fetches history for every ticker, trains the confidence model on
// the first half and simulates the second half.
func (b *Backtester) Run(ctx context.Context, cfg BacktestConfig) (BacktestResult, error) {
	if cfg.StartingCapital <= 0 {
		cfg.StartingCapital = 1_000_000
	}
	if cfg.RiskConfig == (risk.Config{}) {
		cfg.RiskConfig = risk.DefaultConfig()
	}

	reg := brain.NewRegistry(b.log)
	riskMgr := risk.NewManager(cfg.RiskConfig, cfg.StartingCapital, b.log)
	pipeline := veto.NewPipeline(reg, nil, b.log)

	instruments, axis, err := b.load(ctx, cfg, reg)
	if err != nil {
		return BacktestResult{}, err
	}
	if len(axis) == 0 {
		return BacktestResult{}, fmt.Errorf("backtest: no bars to simulate")
	}

	res := BacktestResult{StartingCapital: cfg.StartingCapital}
	var currentDay time.Time
	for _, ts := range axis {
		day := markethours.SessionOpen(ts)
		if day.After(currentDay) {
			currentDay = day
			riskMgr.ResetDay()
		}
		for _, inst := range instruments {
			idx, ok := inst.byTS[ts.Unix()]
			if !ok {
				continue
			}
			bar := inst.bars[idx]
			if inst.position != nil {
				if trade, closed := b.evalExit(inst, bar, riskMgr); closed {
					res.Trades = append(res.Trades, trade)
				}
				continue
			}
			if !riskMgr.EntryAllowed(bar.TS) {
				continue
			}
			b.evalEntry(inst, idx, pipeline, riskMgr)
		}
	}

	// Anything still open closes on the last bar of its own series.
	for _, inst := range instruments {
		if inst.position == nil {
			continue
		}
		last := inst.bars[len(inst.bars)-1]
		res.Trades = append(res.Trades, b.close(inst, last.Close, last.TS, model.ExitSquareOff, riskMgr))
	}

	res.FinalCapital = riskMgr.Capital()
	for _, t := range res.Trades {
		if t.PnL > 0 {
			res.Wins++
		} else if t.PnL < 0 {
			res.Losses++
		}
	}
	if graded := res.Wins + res.Losses; graded > 0 {
		res.WinRate = float64(res.Wins) / float64(graded) * 100
	}
	return res, nil
}

// load fetches each ticker, trains on the first half of its history and
// keeps the second half for simulation. The master axis is the sorted
// union of simulated timestamps.
func (b *Backtester) load(ctx context.Context, cfg BacktestConfig, reg *brain.Registry) ([]*simInstrument, []time.Time, error) {
	tickers := append([]string(nil), cfg.Tickers...)
	sort.Strings(tickers)

	var instruments []*simInstrument
	seen := make(map[int64]struct{})
	for _, ticker := range tickers {
		bars, err := b.md.Fetch(ctx, ticker, cfg.Period, cfg.Interval)
		if err != nil {
			return nil, nil, fmt.Errorf("backtest fetch %s: %w", ticker, err)
		}
		if len(bars) < 2*minSimBars {
			b.log.Warn("not enough history, skipping", "ticker", ticker, "bars", len(bars))
			continue
		}
		half := len(bars) / 2
		if err := reg.Train(ticker, indicator.Enrich(bars[:half])); err != nil {
			b.log.Warn("training failed, instrument trades at neutral confidence",
				"ticker", ticker, "err", err)
		}

		sim := bars[half:]
		inst := &simInstrument{ticker: ticker, bars: sim, byTS: make(map[int64]int, len(sim))}
		for i, bar := range sim {
			inst.byTS[bar.TS.Unix()] = i
			seen[bar.TS.Unix()] = struct{}{}
		}
		instruments = append(instruments, inst)
	}

	axis := make([]time.Time, 0, len(seen))
	for ts := range seen {
		axis = append(axis, time.Unix(ts, 0))
	}
	sort.Slice(axis, func(i, j int) bool { return axis[i].Before(axis[j]) })
	return instruments, axis, nil
}

// evalExit applies the fixed exit priority: forced end-of-day close,
// then kill switch, then stop loss. Exactly one applies per step.
func (b *Backtester) evalExit(inst *simInstrument, bar model.Bar, riskMgr *risk.Manager) (model.Trade, bool) {
	pos := inst.position
	switch {
	case markethours.MustSquareOff(bar.TS):
		return b.close(inst, bar.Close, bar.TS, model.ExitSquareOff, riskMgr), true
	case riskMgr.CheckKillSwitch():
		return b.close(inst, bar.Close, bar.TS, model.ExitKillSwitch, riskMgr), true
	case pos.Direction == model.Buy && bar.Low <= pos.StopLoss:
		return b.close(inst, pos.StopLoss, bar.TS, model.ExitStopLoss, riskMgr), true
	case pos.Direction == model.Sell && bar.High >= pos.StopLoss:
		return b.close(inst, pos.StopLoss, bar.TS, model.ExitStopLoss, riskMgr), true
	}
	return model.Trade{}, false
}

func (b *Backtester) close(inst *simInstrument, exit float64, ts time.Time, reason model.ExitReason, riskMgr *risk.Manager) model.Trade {
	pos := inst.position
	pnl := pos.PnL(exit)
	riskMgr.ApplyPnL(pnl)
	inst.position = nil

	trade := model.Trade{
		ID:        uuid.NewString(),
		Ticker:    pos.Ticker,
		Direction: pos.Direction,
		Qty:       pos.Qty,
		Entry:     pos.EntryPrice,
		Exit:      exit,
		PnL:       pnl,
		Strategy:  pos.Strategy,
		Reason:    reason,
		EntryTime: pos.EntryTime,
		ExitTime:  ts,
	}
	b.log.Info("backtest exit",
		"ticker", trade.Ticker, "reason", string(reason), "pnl", pnl)
	return trade
}

// evalEntry runs the generator set and the veto pipeline on the history
// prefix ending at idx; the first surviving signal opens a position.
func (b *Backtester) evalEntry(inst *simInstrument, idx int, pipeline *veto.Pipeline, riskMgr *risk.Manager) {
	if idx+1 < minSimBars {
		return
	}
	snap := indicator.Enrich(inst.bars[:idx+1])
	bar := inst.bars[idx]
	in := veto.Input{Snap: snap}

	for _, spec := range strategy.All() {
		dir := spec.Generate(strategy.Input{Snap: snap})
		if dir == model.None {
			continue
		}
		sig := model.Signal{
			Ticker:    inst.ticker,
			Direction: dir,
			Strategy:  string(spec.ID),
			Price:     bar.Close,
			ATR:       snap.LatestATR(),
			TS:        bar.TS,
		}
		sig, verdict := pipeline.Apply(sig, in)
		if verdict != nil {
			continue
		}
		qty := riskMgr.PositionSize(sig.Price, sig.ATR)
		if qty == 0 {
			continue
		}
		stop := sig.Price - riskMgr.StopDistance(sig.ATR)*sig.Direction.Sign()
		inst.position = &model.Position{
			Ticker:     inst.ticker,
			Direction:  sig.Direction,
			Qty:        qty,
			EntryPrice: sig.Price,
			StopLoss:   stop,
			Strategy:   sig.Strategy,
			EntryTime:  bar.TS,
		}
		b.log.Info("backtest entry",
			"ticker", inst.ticker, "strategy", sig.Strategy,
			"direction", string(sig.Direction), "qty", qty, "stop", stop)
		return
	}
}
