package indicator

import (
	"math"

	"ironclad/internal/model"
)

// ADXResult holds the directional movement family for one series.
type ADXResult struct {
	ADX     []float64
	PlusDI  []float64
	MinusDI []float64
}

// ADX computes Wilder's Average Directional Index: +DM/-DM and true range
// are smoothed with alpha = 1/period, producing +DI/-DI, then
// DX = 100*|+DI - -DI| / (+DI + -DI), and ADX is the smoothed DX. The ADX
// itself needs roughly two warm-up windows before it is defined.
func ADX(bars model.Series, period int) ADXResult {
	n := len(bars)
	res := ADXResult{
		ADX:     undefined(n),
		PlusDI:  undefined(n),
		MinusDI: undefined(n),
	}
	if n < 2 {
		return res
	}

	plusDM := undefined(n)
	minusDM := undefined(n)
	tr := TrueRange(bars)
	tr[0] = math.NaN() // no prior close, keep warm-up honest for smoothing

	for i := 1; i < n; i++ {
		up := bars[i].High - bars[i-1].High
		down := bars[i-1].Low - bars[i].Low
		plusDM[i], minusDM[i] = 0, 0
		if up > down && up > 0 {
			plusDM[i] = up
		}
		if down > up && down > 0 {
			minusDM[i] = down
		}
	}

	smTR := wilderSmooth(tr, period)
	smPlus := wilderSmooth(plusDM, period)
	smMinus := wilderSmooth(minusDM, period)

	dx := undefined(n)
	for i := range bars {
		if !Defined(smTR[i]) || !Defined(smPlus[i]) || !Defined(smMinus[i]) || smTR[i] == 0 {
			continue
		}
		res.PlusDI[i] = 100 * smPlus[i] / smTR[i]
		res.MinusDI[i] = 100 * smMinus[i] / smTR[i]
		sum := res.PlusDI[i] + res.MinusDI[i]
		if sum != 0 {
			dx[i] = 100 * math.Abs(res.PlusDI[i]-res.MinusDI[i]) / sum
		}
	}

	res.ADX = wilderSmooth(dx, period)
	return res
}
