package indicator

import (
	"math"

	"ironclad/internal/model"
)

// Standard periods used across the signal pipeline.
const (
	FastSMAPeriod  = 20
	SlowSMAPeriod  = 50
	LongSMAPeriod  = 200
	RSIPeriod      = 14
	ATRPeriod      = 14
	VWAPStdPeriod  = 20
	SupertrendLen  = 10
	SupertrendMult = 3.0
	ADXPeriod      = 14
)

// Snapshot is the indicator-enriched view of one bar history. Every column
// is aligned index-for-index with Bars; warm-up entries are NaN (Trend
// entries are 0). A snapshot is computed once per scan step and shared
// read-only by the signal generators and the veto pipeline.
type Snapshot struct {
	Bars model.Series

	SMA20  []float64
	SMA50  []float64
	SMA200 []float64

	RSI14 []float64
	ATR14 []float64

	VWAP      []float64
	DistVWAP  []float64
	ZScore    []float64
	VolumeSMA []float64

	Supertrend SupertrendResult
	DM         ADXResult
}

// Enrich computes the standard indicator set over a bar history.
func Enrich(bars model.Series) *Snapshot {
	closes := bars.Closes()
	volumes := make([]float64, len(bars))
	for i := range bars {
		volumes[i] = bars[i].Volume
	}

	snap := &Snapshot{
		Bars:       bars,
		SMA20:      SMA(closes, FastSMAPeriod),
		SMA50:      SMA(closes, SlowSMAPeriod),
		SMA200:     SMA(closes, LongSMAPeriod),
		RSI14:      RSI(closes, RSIPeriod),
		ATR14:      ATR(bars, ATRPeriod),
		VolumeSMA:  SMA(volumes, VWAPStdPeriod),
		Supertrend: Supertrend(bars, SupertrendLen, SupertrendMult),
		DM:         ADX(bars, ADXPeriod),
	}
	snap.VWAP = VWAP(bars)
	snap.DistVWAP, snap.ZScore = VWAPZScore(bars, VWAPStdPeriod)
	return snap
}

// Len returns the number of bars in the snapshot.
func (s *Snapshot) Len() int { return len(s.Bars) }

// last returns column[len-1], or NaN when the snapshot is empty.
func (s *Snapshot) last(col []float64) float64 {
	if len(col) == 0 {
		return math.NaN()
	}
	return col[len(col)-1]
}

// LatestRSI returns the most recent RSI value (NaN during warm-up).
func (s *Snapshot) LatestRSI() float64 { return s.last(s.RSI14) }

// LatestATR returns the most recent ATR value (NaN during warm-up).
func (s *Snapshot) LatestATR() float64 { return s.last(s.ATR14) }

// LatestZScore returns the most recent VWAP z-score (NaN during warm-up).
func (s *Snapshot) LatestZScore() float64 { return s.last(s.ZScore) }

// LatestDistVWAP returns the most recent close-to-VWAP distance.
func (s *Snapshot) LatestDistVWAP() float64 { return s.last(s.DistVWAP) }
