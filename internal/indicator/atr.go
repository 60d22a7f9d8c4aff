package indicator

import (
	"math"

	"ironclad/internal/model"
)

// TrueRange computes per-bar true range:
// max(high-low, |high-prevClose|, |low-prevClose|).
// The first bar has no previous close, so its true range is high-low.
func TrueRange(bars model.Series) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		tr := b.High - b.Low
		if i > 0 {
			prev := bars[i-1].Close
			tr = math.Max(tr, math.Max(math.Abs(b.High-prev), math.Abs(b.Low-prev)))
		}
		out[i] = tr
	}
	return out
}

// ATR computes the Average True Range as a rolling mean of true range.
func ATR(bars model.Series, period int) []float64 {
	return rollingMean(TrueRange(bars), period)
}
