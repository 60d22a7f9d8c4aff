package indicator

import "math"

// RSI computes the Relative Strength Index from close prices using rolling
// means of positive and negative deltas (Cutler's variant): the average
// gain over the window divided by the average loss feeds 100 - 100/(1+RS).
// A window whose average loss is zero yields exactly 100. Indices before
// the first full delta window are NaN.
func RSI(closes []float64, period int) []float64 {
	out := undefined(len(closes))
	if period <= 0 || len(closes) < period+1 {
		return out
	}

	gains := undefined(len(closes))
	losses := undefined(len(closes))
	for i := 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gains[i], losses[i] = delta, 0
		} else {
			gains[i], losses[i] = 0, -delta
		}
	}

	avgGain := rollingMean(gains, period)
	avgLoss := rollingMean(losses, period)

	for i := range closes {
		if !Defined(avgGain[i]) || !Defined(avgLoss[i]) {
			continue
		}
		if avgLoss[i] == 0 {
			out[i] = 100
			continue
		}
		rs := avgGain[i] / avgLoss[i]
		out[i] = 100 - 100/(1+rs)
	}
	return out
}

// wilderSmooth applies Wilder's exponential smoothing (alpha = 1/period):
// the first output is the mean of the first full window of defined inputs,
// after which each step folds one new value in. Used by ADX.
func wilderSmooth(values []float64, period int) []float64 {
	out := undefined(len(values))
	if period <= 0 {
		return out
	}

	// Find the first index with `period` consecutive defined values.
	start := -1
	run := 0
	for i, v := range values {
		if math.IsNaN(v) {
			run = 0
			continue
		}
		run++
		if run == period {
			start = i
			break
		}
	}
	if start == -1 {
		return out
	}

	sum := 0.0
	for i := start - period + 1; i <= start; i++ {
		sum += values[i]
	}
	prev := sum / float64(period)
	out[start] = prev
	p := float64(period)
	for i := start + 1; i < len(values); i++ {
		prev = (prev*(p-1) + values[i]) / p
		out[i] = prev
	}
	return out
}
