// Package veto runs a proposed signal through an ordered chain of risk
// filters. Each stage may zero the signal's direction; the first veto
// short-circuits the rest. The final confidence stage also logs a
// prediction row for every signal that reaches it, vetoed or not, so the
// validation loop can grade the model later.
package veto

import (
	"log/slog"

	"github.com/google/uuid"

	"ironclad/internal/brain"
	"ironclad/internal/indicator"
	"ironclad/internal/markethours"
	"ironclad/internal/model"
	"ironclad/internal/strategy"
)

const (
	SentimentLevel  = 0.2
	ADXTrending     = 25.0
	ADXRanging      = 20.0
	MarketDropPct   = 1.0
	SectorWindow    = 6
	SectorDropPct   = 0.2
	ConfidenceFloor = 0.60
	MacroEMAPeriod  = 200
)

// Stage names, used for logging and per-stage veto counters.
const (
	StageSentiment   = "sentiment"
	StageMacro       = "macro_trend"
	StageRegime      = "regime"
	StageCorrelation = "correlation"
	StageConfidence  = "confidence"
)

// Input carries the per-instrument context a scan cycle assembles before
// running the pipeline. Daily, Market and Sector are optional; a stage
// with missing context passes the signal through rather than guessing.
type Input struct {
	Snap      *indicator.Snapshot
	Daily     model.Series // daily bars for the EMA200 macro filter
	Market    model.Series // broad market index, intraday
	Sector    model.Series // mapped sector index, intraday; nil if unmapped
	Sentiment float64
}

// Verdict records which stage killed a signal and why.
type Verdict struct {
	Stage  string
	Reason string
}

// Pipeline is the ordered filter chain. OnVeto, when set, is invoked with
// the stage name for every veto; the scanner wires it to a counter.
type Pipeline struct {
	brain  *brain.Registry
	preds  model.PredictionStore
	log    *slog.Logger
	OnVeto func(stage string)
}

func NewPipeline(b *brain.Registry, preds model.PredictionStore, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{brain: b, preds: preds, log: log}
}

// Apply runs sig through all five stages in order. It returns the signal
// with Sentiment and Confidence filled in, plus a non-nil Verdict if any
// stage vetoed it. A vetoed signal has Direction set to None.
func (p *Pipeline) Apply(sig model.Signal, in Input) (model.Signal, *Verdict) {
	if sig.Direction == model.None {
		return sig, nil
	}
	sig.Sentiment = in.Sentiment

	checks := []struct {
		stage string
		fn    func(model.Signal, Input) string
	}{
		{StageSentiment, checkSentiment},
		{StageMacro, checkMacroTrend},
		{StageRegime, checkRegime},
		{StageCorrelation, checkCorrelation},
	}
	for _, c := range checks {
		if reason := c.fn(sig, in); reason != "" {
			return p.veto(sig, c.stage, reason)
		}
	}

	sig.Confidence = brain.NeutralConfidence
	if p.brain != nil {
		sig.Confidence = p.brain.Confidence(sig.Ticker, in.Snap)
	}
	p.logPrediction(sig)
	if sig.Confidence < ConfidenceFloor {
		return p.veto(sig, StageConfidence, "below confidence floor")
	}
	return sig, nil
}

func (p *Pipeline) veto(sig model.Signal, stage, reason string) (model.Signal, *Verdict) {
	p.log.Info("signal vetoed",
		"ticker", sig.Ticker, "strategy", sig.Strategy,
		"direction", string(sig.Direction), "stage", stage, "reason", reason)
	if p.OnVeto != nil {
		p.OnVeto(stage)
	}
	sig.Direction = model.None
	return sig, &Verdict{Stage: stage, Reason: reason}
}

func checkSentiment(sig model.Signal, in Input) string {
	switch {
	case sig.Direction == model.Buy && in.Sentiment < -SentimentLevel:
		return "negative sentiment"
	case sig.Direction == model.Sell && in.Sentiment > SentimentLevel:
		return "positive sentiment"
	}
	return ""
}

// checkMacroTrend vetoes BUY when the daily close sits below its EMA200.
// The asymmetry is deliberate: a bullish macro trend never blocks a SELL.
func checkMacroTrend(sig model.Signal, in Input) string {
	if sig.Direction != model.Buy || len(in.Daily) < MacroEMAPeriod {
		return ""
	}
	closes := in.Daily.Closes()
	ema := indicator.EMA(closes, MacroEMAPeriod)
	last := len(closes) - 1
	if indicator.Defined(ema[last]) && closes[last] < ema[last] {
		return "daily close below EMA200"
	}
	return ""
}

func checkRegime(sig model.Signal, in Input) string {
	snap := in.Snap
	if snap == nil || snap.Len() == 0 {
		return ""
	}
	last := snap.Len() - 1
	adx := snap.DM.ADX[last]
	if !indicator.Defined(adx) {
		return ""
	}
	id := strategy.ID(sig.Strategy)
	switch {
	case adx > ADXTrending && strategy.IsMeanReversion(id):
		bullish := snap.DM.PlusDI[last] > snap.DM.MinusDI[last]
		if bullish && sig.Direction == model.Sell {
			return "mean reversion against +DI trend"
		}
		if !bullish && sig.Direction == model.Buy {
			return "mean reversion against -DI trend"
		}
	case adx < ADXRanging && strategy.IsTrendFollowing(id):
		return "trend strategy in ranging regime"
	}
	return ""
}

func checkCorrelation(sig model.Signal, in Input) string {
	if pct, ok := intradayPct(in.Market); ok {
		if sig.Direction == model.Buy && pct < -MarketDropPct {
			return "broad market down intraday"
		}
		if sig.Direction == model.Sell && pct > MarketDropPct {
			return "broad market up intraday"
		}
	}
	if pct, ok := windowPct(in.Sector, SectorWindow); ok {
		if sig.Direction == model.Buy && pct < -SectorDropPct {
			return "sector weak over last 30m"
		}
		if sig.Direction == model.Sell && pct > SectorDropPct {
			return "sector strong over last 30m"
		}
	}
	return ""
}

// intradayPct is the percent move of the series from its session-open bar
// to its latest bar, both on the latest bar's trading day.
func intradayPct(bars model.Series) (float64, bool) {
	n := len(bars)
	if n == 0 {
		return 0, false
	}
	day := bars[n-1].TS.In(markethours.IST)
	first := n - 1
	for i := n - 1; i >= 0; i-- {
		ts := bars[i].TS.In(markethours.IST)
		if ts.Year() != day.Year() || ts.YearDay() != day.YearDay() {
			break
		}
		first = i
	}
	base := bars[first].Open
	if base == 0 {
		return 0, false
	}
	return (bars[n-1].Close - base) / base * 100, true
}

// windowPct is the percent return over the trailing window bars.
func windowPct(bars model.Series, window int) (float64, bool) {
	n := len(bars)
	if n <= window {
		return 0, false
	}
	base := bars[n-1-window].Close
	if base == 0 {
		return 0, false
	}
	return (bars[n-1].Close - base) / base * 100, true
}

func (p *Pipeline) logPrediction(sig model.Signal) {
	if p.preds == nil {
		return
	}
	pred := model.Prediction{
		ID:         uuid.NewString(),
		Ticker:     sig.Ticker,
		TS:         sig.TS,
		Direction:  sig.Direction,
		Confidence: sig.Confidence,
		Price:      sig.Price,
		Strategy:   sig.Strategy,
		Outcome:    model.OutcomePending,
	}
	if err := p.preds.LogPrediction(pred); err != nil {
		p.log.Warn("prediction log failed", "ticker", sig.Ticker, "err", err)
	}
}
