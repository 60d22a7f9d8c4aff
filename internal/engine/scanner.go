package engine

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"ironclad/internal/brain"
	"ironclad/internal/indicator"
	"ironclad/internal/marketdata"
	"ironclad/internal/markethours"
	"ironclad/internal/metrics"
	"ironclad/internal/model"
	"ironclad/internal/risk"
	"ironclad/internal/strategy"
	"ironclad/internal/veto"
)

const (
	DefaultScanInterval = 5 * time.Minute
	DefaultWorkers      = 4

	intradayPeriod   = "5d"
	intradayInterval = "5m"
	hourlyPeriod     = "1mo"
	hourlyInterval   = "60m"
	dailyPeriod      = "1y"
	dailyInterval    = "1d"
	trainingPeriod   = "30d"
)

// SnapshotPublisher mirrors the scan cache into a shared store so other
// processes can read it. Optional.
type SnapshotPublisher interface {
	PublishSignals(ctx context.Context, signals []model.Signal, at time.Time) error
}

// ScannerConfig describes the universe and cadence of the live loop.
type ScannerConfig struct {
	Tickers      []string
	MarketIndex  string            // broad market index, e.g. "^NSEI"
	SectorIndex  map[string]string // ticker -> sector index
	ScanInterval time.Duration
	Workers      int
	AutoTrade    bool
}

// Scanner runs the live decision loop: fetch, enrich, generate, veto,
// act. One sweep runs to completion before the loop sleeps; per-ticker
// work fans out to a bounded worker pool but only the loop goroutine
// writes the cache.
type Scanner struct {
	cfg      ScannerConfig
	md       model.MarketData
	sent     model.SentimentProvider
	pipeline *veto.Pipeline
	brain    *brain.Registry
	riskMgr  *risk.Manager
	trader   *Trader
	notifier model.Notifier
	cache    *ScanCache
	pub      SnapshotPublisher
	metrics  *metrics.Metrics
	health   *metrics.HealthStatus
	log      *slog.Logger

	lastReset time.Time // session-open day of the last risk reset
	lastSweep time.Time // day of the last EOD square-off sweep
}

type ScannerDeps struct {
	MarketData model.MarketData
	Sentiment  model.SentimentProvider
	Pipeline   *veto.Pipeline
	Brain      *brain.Registry
	Risk       *risk.Manager
	Trader     *Trader
	Notifier   model.Notifier
	Cache      *ScanCache
	Publisher  SnapshotPublisher
	Metrics    *metrics.Metrics
	Health     *metrics.HealthStatus
	Log        *slog.Logger
}

func NewScanner(cfg ScannerConfig, deps ScannerDeps) *Scanner {
	if cfg.ScanInterval <= 0 {
		cfg.ScanInterval = DefaultScanInterval
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	log := deps.Log
	if log == nil {
		log = slog.Default()
	}
	return &Scanner{
		cfg:      cfg,
		md:       deps.MarketData,
		sent:     deps.Sentiment,
		pipeline: deps.Pipeline,
		brain:    deps.Brain,
		riskMgr:  deps.Risk,
		trader:   deps.Trader,
		notifier: deps.Notifier,
		cache:    deps.Cache,
		pub:      deps.Publisher,
		metrics:  deps.Metrics,
		health:   deps.Health,
		log:      log,
	}
}

// TrainModels fits a confidence model per instrument from recent
// history. Instruments with too little history stay untrained and score
// a neutral 0.5 until the next training pass.
func (s *Scanner) TrainModels(ctx context.Context) {
	trained := 0
	for _, ticker := range s.cfg.Tickers {
		bars, err := s.md.Fetch(ctx, ticker, trainingPeriod, intradayInterval)
		if err != nil || len(bars) == 0 {
			s.log.Warn("no training data", "ticker", ticker)
			continue
		}
		if err := s.brain.Train(ticker, indicator.Enrich(bars)); err != nil {
			s.log.Warn("model training skipped", "ticker", ticker, "err", err)
			continue
		}
		trained++
	}
	if s.metrics != nil {
		s.metrics.ModelsTrained.Set(float64(trained))
	}
	s.log.Info("model training complete", "trained", trained, "universe", len(s.cfg.Tickers))
}

// Run drives the scan loop until ctx is cancelled. A sweep in progress
// finishes before the loop exits.
func (s *Scanner) Run(ctx context.Context) {
	s.log.Info("scanner started",
		"universe", len(s.cfg.Tickers), "interval", s.cfg.ScanInterval.String())
	ticker := time.NewTicker(s.cfg.ScanInterval)
	defer ticker.Stop()

	s.tick(ctx, time.Now())
	for {
		select {
		case <-ctx.Done():
			s.log.Info("scanner stopped")
			return
		case now := <-ticker.C:
			s.tick(ctx, now)
		}
	}
}

func (s *Scanner) tick(ctx context.Context, now time.Time) {
	s.maybeResetDay(now)
	s.maybeSquareOff(ctx, now)
	if !markethours.IsMarketOpen(now) {
		s.log.Debug("market closed", "status", markethours.StatusString(now))
		return
	}
	s.ScanOnce(ctx, now)
}

func (s *Scanner) maybeResetDay(now time.Time) {
	day := markethours.SessionOpen(now)
	if !now.Before(day) && day.After(s.lastReset) {
		s.riskMgr.ResetDay()
		s.lastReset = day
	}
}

// maybeSquareOff force-closes every paper holding once per day at the
// 15:15 cutoff, ahead of any signal or stop evaluation.
func (s *Scanner) maybeSquareOff(ctx context.Context, now time.Time) {
	if s.trader == nil || !markethours.MustSquareOff(now) || !markethours.IsTradingDay(now) {
		return
	}
	day := markethours.SessionOpen(now)
	if !day.After(s.lastSweep) {
		return
	}
	s.lastSweep = day

	holdings, err := s.trader.store.Holdings()
	if err != nil {
		s.log.Error("square-off sweep: holdings read failed", "err", err)
		return
	}
	for _, h := range holdings {
		price, ok := s.md.LatestPrice(ctx, h.Ticker)
		if !ok {
			s.log.Warn("square-off skipped, no price", "ticker", h.Ticker)
			continue
		}
		if err := s.trader.Sell(h.Ticker, price, h.Qty, "eod_square_off"); err != nil {
			s.log.Error("square-off sell failed", "ticker", h.Ticker, "err", err)
		}
	}
}

type scanResult struct {
	ticker  string
	signals []model.Signal
}

// ScanOnce sweeps the whole universe and replaces the cache snapshot.
// Per-instrument failures are isolated: a dead ticker yields no signals
// and the sweep continues.
func (s *Scanner) ScanOnce(ctx context.Context, now time.Time) []model.Signal {
	start := time.Now()

	market := s.fetchIndex(ctx, s.cfg.MarketIndex)
	sectors := make(map[string]model.Series)
	for _, idx := range s.cfg.SectorIndex {
		if _, ok := sectors[idx]; !ok {
			sectors[idx] = s.fetchIndex(ctx, idx)
		}
	}

	jobs := make(chan string)
	results := make(chan scanResult)
	var wg sync.WaitGroup
	for i := 0; i < s.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ticker := range jobs {
				results <- scanResult{ticker, s.scanInstrument(ctx, ticker, now, market, sectors)}
			}
		}()
	}
	go func() {
		defer close(jobs)
		for _, t := range s.cfg.Tickers {
			select {
			case jobs <- t:
			case <-ctx.Done():
				return
			}
		}
	}()
	go func() {
		wg.Wait()
		close(results)
	}()

	var signals []model.Signal
	for res := range results {
		signals = append(signals, res.signals...)
	}
	sort.Slice(signals, func(i, j int) bool {
		if signals[i].Ticker != signals[j].Ticker {
			return signals[i].Ticker < signals[j].Ticker
		}
		return signals[i].Strategy < signals[j].Strategy
	})

	s.cache.Set(signals, now)
	if s.pub != nil {
		if err := s.pub.PublishSignals(ctx, signals, now); err != nil {
			s.log.Warn("snapshot publish failed", "err", err)
		}
	}
	if s.metrics != nil {
		s.metrics.ScanCyclesTotal.Inc()
		s.metrics.ScanDuration.Observe(time.Since(start).Seconds())
	}
	if s.health != nil {
		s.health.SetScannerOK(true)
		s.health.SetLastScanTime(now)
	}
	s.log.Info("scan complete",
		"signals", len(signals), "took", time.Since(start).Round(time.Millisecond).String())
	return signals
}

func (s *Scanner) fetchIndex(ctx context.Context, symbol string) model.Series {
	if symbol == "" {
		return nil
	}
	bars, err := s.md.Fetch(ctx, symbol, intradayPeriod, intradayInterval)
	if err != nil || len(bars) == 0 {
		s.log.Warn("index fetch failed", "symbol", symbol)
		return nil
	}
	return bars
}

// scanInstrument runs the full pipeline for one ticker and returns its
// surviving signals.
func (s *Scanner) scanInstrument(ctx context.Context, ticker string, now time.Time, market model.Series, sectors map[string]model.Series) []model.Signal {
	bars, err := s.md.Fetch(ctx, ticker, intradayPeriod, intradayInterval)
	if err != nil || len(bars) == 0 {
		if s.metrics != nil {
			s.metrics.FetchFailures.Inc()
		}
		return nil
	}
	if marketdata.IsStale(bars, now) {
		s.log.Warn("stale data, skipping", "ticker", ticker)
		if s.metrics != nil {
			s.metrics.InstrumentsSkipped.Inc()
		}
		return nil
	}

	snap := indicator.Enrich(bars)
	var hourly *indicator.Snapshot
	if hb, err := s.md.Fetch(ctx, ticker, hourlyPeriod, hourlyInterval); err == nil && len(hb) > 0 {
		hourly = indicator.Enrich(hb)
	}
	daily, _ := s.md.Fetch(ctx, ticker, dailyPeriod, dailyInterval)

	sentScore := 0.0
	if s.sent != nil {
		sentScore = s.sent.Score(ctx, ticker)
	}
	in := veto.Input{
		Snap:      snap,
		Daily:     daily,
		Market:    market,
		Sector:    sectors[s.cfg.SectorIndex[ticker]],
		Sentiment: sentScore,
	}

	last := bars[len(bars)-1]
	var out []model.Signal
	for _, spec := range strategy.All() {
		dir := spec.Generate(strategy.Input{Snap: snap, Hourly: hourly})
		if dir == model.None {
			continue
		}
		sig := model.Signal{
			Ticker:    ticker,
			Direction: dir,
			Strategy:  string(spec.ID),
			Price:     last.Close,
			ATR:       snap.LatestATR(),
			TS:        last.TS,
		}
		sig, verdict := s.pipeline.Apply(sig, in)
		// A prediction row is written for every signal reaching the
		// confidence stage, vetoed there or not.
		if s.metrics != nil && (verdict == nil || verdict.Stage == veto.StageConfidence) {
			s.metrics.PredictionsTotal.Inc()
		}
		if verdict != nil {
			continue
		}
		if s.metrics != nil {
			s.metrics.SignalsTotal.WithLabelValues(sig.Strategy, string(sig.Direction)).Inc()
		}
		s.act(ctx, sig, now)
		out = append(out, sig)
	}
	return out
}

// act delivers alerts and runs the auto-trade hook for one survivor.
// New BUY entries obey the risk manager's entry gate; SELLs close an
// existing holding and are never blocked.
func (s *Scanner) act(ctx context.Context, sig model.Signal, now time.Time) {
	if s.notifier != nil && sig.Strategy == string(strategy.Composite) {
		if err := s.notifier.SendSignalAlert(ctx, sig); err != nil {
			s.log.Warn("alert failed", "ticker", sig.Ticker, "err", err)
		}
	}
	if !s.cfg.AutoTrade || s.trader == nil {
		return
	}
	if sig.Direction == model.Buy && s.riskMgr != nil && !s.riskMgr.EntryAllowed(now) {
		s.log.Info("auto-trade entry blocked", "ticker", sig.Ticker, "kill_switch", s.riskMgr.KillSwitchActive())
		return
	}
	s.trader.AutoTrade(ctx, sig)
}
