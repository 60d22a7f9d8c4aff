package indicator

import "ironclad/internal/model"

// VWAP computes the cumulative volume-weighted average price from the start
// of the supplied series (session-relative when the caller resets the
// series daily). A zero cumulative volume yields NaN.
func VWAP(bars model.Series) []float64 {
	out := undefined(len(bars))
	var pv, vol float64
	for i, b := range bars {
		pv += b.Close * b.Volume
		vol += b.Volume
		if vol > 0 {
			out[i] = pv / vol
		}
	}
	return out
}

// VWAPZScore computes Dist_VWAP = close - VWAP and its z-score against the
// rolling standard deviation of the distance over stdPeriod bars. A zero
// rolling deviation yields NaN for the z-score at that index.
func VWAPZScore(bars model.Series, stdPeriod int) (dist, z []float64) {
	vwap := VWAP(bars)
	dist = undefined(len(bars))
	for i, b := range bars {
		if Defined(vwap[i]) {
			dist[i] = b.Close - vwap[i]
		}
	}
	std := RollingStd(dist, stdPeriod)
	z = undefined(len(bars))
	for i := range bars {
		if Defined(dist[i]) && Defined(std[i]) && std[i] != 0 {
			z[i] = dist[i] / std[i]
		}
	}
	return dist, z
}
