package indicator

import "ironclad/internal/model"

// SupertrendResult holds the Supertrend overlay: the active band value and
// the trend flag (+1 bullish, -1 bearish, 0 undefined/warm-up) per bar.
type SupertrendResult struct {
	Line  []float64
	Trend []int
}

// Supertrend computes the Supertrend indicator with volatility bands at
// (high+low)/2 ± multiplier*ATR(period).
//
// The final bands ratchet toward price and never retreat: the upper band
// only moves down (or resets after a close above it), the lower band only
// moves up (or resets after a close below it). The trend flips when the
// close crosses the active band. The recurrence is inherently sequential —
// each step depends on the previous final band — so this is an explicit
// index loop, not a windowed transform.
func Supertrend(bars model.Series, period int, multiplier float64) SupertrendResult {
	n := len(bars)
	res := SupertrendResult{
		Line:  undefined(n),
		Trend: make([]int, n),
	}

	atr := rollingMean(TrueRange(bars), period)

	// First index with a defined ATR seeds the recurrence.
	start := -1
	for i := range atr {
		if Defined(atr[i]) {
			start = i
			break
		}
	}
	if start == -1 {
		return res
	}

	basicUpper := func(i int) float64 {
		return (bars[i].High+bars[i].Low)/2 + multiplier*atr[i]
	}
	basicLower := func(i int) float64 {
		return (bars[i].High+bars[i].Low)/2 - multiplier*atr[i]
	}

	finalUpper := basicUpper(start)
	finalLower := basicLower(start)
	trend := 1 // seed bullish, matching the recurrence's prev_trend default
	res.Line[start] = finalLower
	res.Trend[start] = trend

	for i := start + 1; i < n; i++ {
		bu, bl := basicUpper(i), basicLower(i)
		prevClose := bars[i-1].Close

		if bu < finalUpper || prevClose > finalUpper {
			finalUpper = bu
		}
		if bl > finalLower || prevClose < finalLower {
			finalLower = bl
		}

		close := bars[i].Close
		if trend == 1 {
			if close < finalLower {
				trend = -1
			}
		} else {
			if close > finalUpper {
				trend = 1
			}
		}

		if trend == 1 {
			res.Line[i] = finalLower
		} else {
			res.Line[i] = finalUpper
		}
		res.Trend[i] = trend
	}
	return res
}
