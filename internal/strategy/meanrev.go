package strategy

import (
	"ironclad/internal/indicator"
	"ironclad/internal/model"
)

// Bollinger parameters: 20-period mean, 2 standard deviations.
const (
	bollingerPeriod = 20
	bollingerWidth  = 2.0
)

// generateBollinger signals on a close breaking outside the bands:
// above the upper band BUY (breakout reading), below the lower band SELL.
func generateBollinger(in Input) model.Direction {
	closes := in.Snap.Bars.Closes()
	n := len(closes)
	if n < bollingerPeriod {
		return model.None
	}
	mean := in.Snap.SMA20[n-1]
	std := indicator.RollingStd(closes, bollingerPeriod)[n-1]
	if !indicator.Defined(mean) || !indicator.Defined(std) {
		return model.None
	}

	last := closes[n-1]
	switch {
	case last > mean+bollingerWidth*std:
		return model.Buy
	case last < mean-bollingerWidth*std:
		return model.Sell
	default:
		return model.None
	}
}

// generateCandlestick recognizes two single-bar reversal patterns on the
// latest bar: a hammer (long lower wick, small upper wick) is a BUY, a
// shooting star (long upper wick, small lower wick) is a SELL.
func generateCandlestick(in Input) model.Direction {
	last, ok := in.Snap.Bars.Last()
	if !ok {
		return model.None
	}

	body := last.Close - last.Open
	if body < 0 {
		body = -body
	}
	if body == 0 {
		return model.None // doji, wick ratios are meaningless
	}
	high := last.High
	low := last.Low
	upperWick := high - max64(last.Open, last.Close)
	lowerWick := min64(last.Open, last.Close) - low

	if lowerWick > 2*body && upperWick < body {
		return model.Buy
	}
	if upperWick > 2*body && lowerWick < body {
		return model.Sell
	}
	return model.None
}

// rsiStrategy builds an RSI threshold generator: BUY below the low
// threshold, SELL above the high one. The period and thresholds are fixed
// per table entry (14/30/70, 9/25/75, 21/30/70).
func rsiStrategy(period int, low, high float64) Func {
	return func(in Input) model.Direction {
		closes := in.Snap.Bars.Closes()
		if len(closes) == 0 {
			return model.None
		}
		rsi := indicator.RSI(closes, period)
		v := rsi[len(rsi)-1]
		if !indicator.Defined(v) {
			return model.None
		}
		switch {
		case v < low:
			return model.Buy
		case v > high:
			return model.Sell
		default:
			return model.None
		}
	}
}

func max64(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func min64(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
