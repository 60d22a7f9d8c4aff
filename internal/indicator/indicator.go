// Package indicator provides technical indicator calculations over bar data.
//
// All functions are pure: they take a bar history and return a value series
// aligned index-for-index with the input. A value computed over a window
// larger than the available history is undefined and reported as NaN —
// never zero, never clamped — so that warm-up bars can never leak a default
// into a trading decision. The value at index i depends only on bars at
// indices <= i.
package indicator

import "math"

// Defined reports whether an indicator value is usable (not warm-up NaN).
func Defined(v float64) bool {
	return !math.IsNaN(v)
}

// undefined returns a slice of n NaNs.
func undefined(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// SMA computes a simple rolling mean over fixed windows using a running
// sum. Indices before period-1 are NaN.
func SMA(values []float64, period int) []float64 {
	out := undefined(len(values))
	if period <= 0 || len(values) < period {
		return out
	}
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// EMA computes an exponential moving average seeded with the SMA of the
// first period values. Indices before period-1 are NaN.
func EMA(values []float64, period int) []float64 {
	out := undefined(len(values))
	if period <= 0 || len(values) < period {
		return out
	}
	mult := 2.0 / float64(period+1)
	seed := 0.0
	for i := 0; i < period; i++ {
		seed += values[i]
	}
	prev := seed / float64(period)
	out[period-1] = prev
	for i := period; i < len(values); i++ {
		prev = values[i]*mult + prev*(1-mult)
		out[i] = prev
	}
	return out
}

// RollingStd computes the rolling sample standard deviation. Entries of
// the input that are themselves NaN poison their window.
func RollingStd(values []float64, period int) []float64 {
	out := undefined(len(values))
	if period <= 1 || len(values) < period {
		return out
	}
	for i := period - 1; i < len(values); i++ {
		window := values[i-period+1 : i+1]
		mean, ok := meanOf(window)
		if !ok {
			continue
		}
		var ss float64
		for _, v := range window {
			d := v - mean
			ss += d * d
		}
		out[i] = math.Sqrt(ss / float64(period-1))
	}
	return out
}

func meanOf(window []float64) (float64, bool) {
	var sum float64
	for _, v := range window {
		if math.IsNaN(v) {
			return 0, false
		}
		sum += v
	}
	return sum / float64(len(window)), true
}

// rollingMean is like SMA but tolerates a NaN prefix in the input (as
// produced by true-range or delta series): a window containing any NaN is
// undefined.
func rollingMean(values []float64, period int) []float64 {
	out := undefined(len(values))
	if period <= 0 || len(values) < period {
		return out
	}
	for i := period - 1; i < len(values); i++ {
		if m, ok := meanOf(values[i-period+1 : i+1]); ok {
			out[i] = m
		}
	}
	return out
}
