package strategy

import (
	"ironclad/internal/indicator"
	"ironclad/internal/model"
)

// generateSupertrend follows the Supertrend flag directly: BUY while the
// trend is bullish, SELL while bearish, nothing during warm-up.
func generateSupertrend(in Input) model.Direction {
	snap := in.Snap
	if snap.Len() == 0 {
		return model.None
	}
	switch snap.Supertrend.Trend[snap.Len()-1] {
	case 1:
		return model.Buy
	case -1:
		return model.Sell
	default:
		return model.None
	}
}

// generateMACrossover signals on SMA20 crossing SMA50 between the previous
// and current bar: golden cross BUY, death cross SELL. Both averages must
// be defined on both bars, so nothing fires during warm-up.
func generateMACrossover(in Input) model.Direction {
	snap := in.Snap
	n := snap.Len()
	if n < 2 {
		return model.None
	}
	prevFast, prevSlow := snap.SMA20[n-2], snap.SMA50[n-2]
	currFast, currSlow := snap.SMA20[n-1], snap.SMA50[n-1]
	for _, v := range []float64{prevFast, prevSlow, currFast, currSlow} {
		if !indicator.Defined(v) {
			return model.None
		}
	}

	if prevFast <= prevSlow && currFast > currSlow {
		return model.Buy
	}
	if prevFast >= prevSlow && currFast < currSlow {
		return model.Sell
	}
	return model.None
}

// MACD parameters (12/26/9).
const (
	macdFast   = 12
	macdSlow   = 26
	macdSignal = 9
)

// generateMACD signals on the MACD line (EMA12-EMA26) crossing its
// 9-period EMA signal line.
func generateMACD(in Input) model.Direction {
	closes := in.Snap.Bars.Closes()
	n := len(closes)
	if n < macdSlow+macdSignal {
		return model.None
	}

	fast := indicator.EMA(closes, macdFast)
	slow := indicator.EMA(closes, macdSlow)

	macd := make([]float64, n)
	for i := range macd {
		if indicator.Defined(fast[i]) && indicator.Defined(slow[i]) {
			macd[i] = fast[i] - slow[i]
		} else {
			macd[i] = nanValue
		}
	}

	// The signal line is an EMA of the defined MACD tail.
	start := macdSlow - 1
	signal := indicator.EMA(macd[start:], macdSignal)

	mi := n - 1 - start
	if mi < 1 || !indicator.Defined(signal[mi]) || !indicator.Defined(signal[mi-1]) {
		return model.None
	}
	prevDiff := macd[n-2] - signal[mi-1]
	currDiff := macd[n-1] - signal[mi]

	if prevDiff <= 0 && currDiff > 0 {
		return model.Buy
	}
	if prevDiff >= 0 && currDiff < 0 {
		return model.Sell
	}
	return model.None
}
