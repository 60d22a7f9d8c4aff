// Package strategy provides the signal generators of the trading pipeline.
//
// Each generator is a pure function from an indicator-enriched bar history
// (plus, for some strategies, a higher-timeframe context) to BUY, SELL or
// no signal. The strategy set is a closed enumeration resolved through a
// single dispatch table; parameters (RSI periods, thresholds) live on the
// table entries, never in string branching.
package strategy

import (
	"math"

	"ironclad/internal/indicator"
	"ironclad/internal/model"
)

// nanValue marks undefined intermediate values inside generators.
var nanValue = math.NaN()

// ID identifies one strategy of the fixed set.
type ID string

const (
	Composite         ID = "composite"
	ORB               ID = "orb"
	SupertrendFollow  ID = "supertrend"
	MACrossover       ID = "ma_crossover"
	MACD              ID = "macd"
	Bollinger         ID = "bollinger"
	Candlestick       ID = "candlestick_pattern"
	RSI14             ID = "rsi_14"
	RSI9Aggressive    ID = "rsi_9_aggressive"
	RSI21Conservative ID = "rsi_21_conservative"
)

// Style classifies a strategy for the market-regime veto.
type Style int

const (
	StyleOther Style = iota
	StyleTrendFollowing
	StyleMeanReversion
)

// Input is everything a generator may look at for one decision:
// the enriched intraday history and the enriched 1-hour context.
// Hourly may be nil for strategies that do not use it.
type Input struct {
	Snap   *indicator.Snapshot
	Hourly *indicator.Snapshot
}

// Func is a signal generator. It returns model.None when nothing fires.
type Func func(in Input) model.Direction

// Spec is one entry of the dispatch table.
type Spec struct {
	ID       ID
	Style    Style
	Generate Func
}

// table is the closed strategy set. Regime classification follows the
// veto pipeline's rules: rsi_21_conservative is deliberately absent from
// the mean-reversion group.
var table = []Spec{
	{Composite, StyleOther, generateComposite},
	{ORB, StyleOther, generateORB},
	{SupertrendFollow, StyleTrendFollowing, generateSupertrend},
	{MACrossover, StyleTrendFollowing, generateMACrossover},
	{MACD, StyleTrendFollowing, generateMACD},
	{Bollinger, StyleMeanReversion, generateBollinger},
	{Candlestick, StyleOther, generateCandlestick},
	{RSI14, StyleMeanReversion, rsiStrategy(14, 30, 70)},
	{RSI9Aggressive, StyleMeanReversion, rsiStrategy(9, 25, 75)},
	{RSI21Conservative, StyleOther, rsiStrategy(21, 30, 70)},
}

// All returns the full dispatch table in a stable order.
func All() []Spec {
	return table
}

// Lookup resolves a strategy by ID. ok is false for unknown IDs.
func Lookup(id ID) (Spec, bool) {
	for _, s := range table {
		if s.ID == id {
			return s, true
		}
	}
	return Spec{}, false
}

// IsMeanReversion reports whether the ID belongs to the mean-reversion
// group vetoed against the dominant DI in trending regimes.
func IsMeanReversion(id ID) bool {
	s, ok := Lookup(id)
	return ok && s.Style == StyleMeanReversion
}

// IsTrendFollowing reports whether the ID belongs to the trend-following
// group vetoed outright in ranging regimes.
func IsTrendFollowing(id ID) bool {
	s, ok := Lookup(id)
	return ok && s.Style == StyleTrendFollowing
}

// TrendBias is the higher-timeframe trend classification.
type TrendBias string

const (
	Bullish  TrendBias = "BULLISH"
	Bearish  TrendBias = "BEARISH"
	Sideways TrendBias = "SIDEWAYS"
)

// HourlyTrend classifies the 1-hour structure: BULLISH if the latest close
// is above SMA50, BEARISH below, SIDEWAYS otherwise (including when SMA50
// is still warming up or the context is missing).
func HourlyTrend(hourly *indicator.Snapshot) TrendBias {
	if hourly == nil || hourly.Len() == 0 {
		return Sideways
	}
	i := hourly.Len() - 1
	sma := hourly.SMA50[i]
	if !indicator.Defined(sma) {
		return Sideways
	}
	close := hourly.Bars[i].Close
	switch {
	case close > sma:
		return Bullish
	case close < sma:
		return Bearish
	default:
		return Sideways
	}
}
