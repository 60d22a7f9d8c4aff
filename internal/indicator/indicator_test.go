package indicator

import (
	"math"
	"testing"
	"time"

	"ironclad/internal/model"
)

func makeBars(closes []float64) model.Series {
	bars := make(model.Series, len(closes))
	ts := time.Date(2026, 2, 2, 9, 15, 0, 0, time.UTC)
	for i, c := range closes {
		bars[i] = model.Bar{
			Ticker: "TEST",
			TS:     ts.Add(time.Duration(i) * 5 * time.Minute),
			Open:   c,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 1000,
		}
	}
	return bars
}

func TestSMA_WarmupUndefined(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6}
	sma := SMA(values, 4)

	for i := 0; i < 3; i++ {
		if !math.IsNaN(sma[i]) {
			t.Errorf("index %d: expected NaN during warm-up, got %v", i, sma[i])
		}
	}
	if math.Abs(sma[3]-2.5) > 1e-9 {
		t.Errorf("expected SMA[3]=2.5, got %v", sma[3])
	}
	if math.Abs(sma[5]-4.5) > 1e-9 {
		t.Errorf("expected SMA[5]=4.5, got %v", sma[5])
	}
}

func TestSMA_ShortHistoryAllUndefined(t *testing.T) {
	sma := SMA([]float64{1, 2, 3}, 20)
	for i, v := range sma {
		if !math.IsNaN(v) {
			t.Errorf("index %d: history shorter than window must stay NaN, got %v", i, v)
		}
	}
}

func TestEMA_SeededWithSMA(t *testing.T) {
	values := []float64{10, 10, 10, 10, 20}
	ema := EMA(values, 4)
	if math.Abs(ema[3]-10) > 1e-9 {
		t.Fatalf("expected seed EMA=10, got %v", ema[3])
	}
	// multiplier = 2/5 = 0.4 → 20*0.4 + 10*0.6 = 14
	if math.Abs(ema[4]-14) > 1e-9 {
		t.Errorf("expected EMA[4]=14, got %v", ema[4])
	}
}

func TestRSI_Bounds(t *testing.T) {
	closes := []float64{100, 102, 99, 104, 97, 105, 96, 106, 95, 107,
		94, 108, 93, 109, 92, 110, 91, 111, 90, 112}
	rsi := RSI(closes, 14)
	for i, v := range rsi {
		if math.IsNaN(v) {
			continue
		}
		if v < 0 || v > 100 {
			t.Errorf("index %d: RSI out of [0,100]: %v", i, v)
		}
	}
}

func TestRSI_AllGainsIs100(t *testing.T) {
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	rsi := RSI(closes, 14)
	last := rsi[len(rsi)-1]
	if last != 100 {
		t.Errorf("monotonic uptrend must give RSI=100, got %v", last)
	}
}

func TestRSI_WarmupUndefined(t *testing.T) {
	closes := []float64{100, 101, 102, 103, 104}
	rsi := RSI(closes, 14)
	for i, v := range rsi {
		if !math.IsNaN(v) {
			t.Errorf("index %d: expected NaN, got %v", i, v)
		}
	}
}

func TestATR_ConstantRange(t *testing.T) {
	bars := makeBars([]float64{100, 100, 100, 100, 100, 100})
	atr := ATR(bars, 3)
	// High-low is always 2 and the close never moves, so TR=2 throughout.
	if math.Abs(atr[len(atr)-1]-2) > 1e-9 {
		t.Errorf("expected ATR=2, got %v", atr[len(atr)-1])
	}
	if !math.IsNaN(atr[1]) {
		t.Errorf("expected NaN before window fills, got %v", atr[1])
	}
}

func TestVWAP_Cumulative(t *testing.T) {
	bars := makeBars([]float64{10, 20})
	vwap := VWAP(bars)
	if math.Abs(vwap[0]-10) > 1e-9 {
		t.Errorf("expected VWAP[0]=10, got %v", vwap[0])
	}
	// Equal volumes: (10+20)/2
	if math.Abs(vwap[1]-15) > 1e-9 {
		t.Errorf("expected VWAP[1]=15, got %v", vwap[1])
	}
}

func TestVWAPZScore_UndefinedOnZeroStd(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100
	}
	_, z := VWAPZScore(makeBars(closes), 20)
	for i, v := range z {
		if !math.IsNaN(v) {
			t.Errorf("index %d: flat series must have undefined z-score, got %v", i, v)
		}
	}
}

// TestSupertrend_RatchetInvariant builds a path with a known reversal and
// verifies the final upper band never loosens while the trend is bearish:
// it may only rise after price closed above it.
func TestSupertrend_RatchetInvariant(t *testing.T) {
	closes := make([]float64, 0, 60)
	// 30 bars trending down, then 30 trending up through the band.
	for i := 0; i < 30; i++ {
		closes = append(closes, 200-float64(i)*2)
	}
	for i := 0; i < 30; i++ {
		closes = append(closes, 140+float64(i)*3)
	}
	bars := makeBars(closes)
	st := Supertrend(bars, 10, 3)

	sawBear, sawBull := false, false
	for i := 1; i < len(bars); i++ {
		if st.Trend[i] == -1 {
			sawBear = true
		}
		if sawBear && st.Trend[i] == 1 {
			sawBull = true
		}
		if st.Trend[i-1] == -1 && st.Trend[i] == -1 {
			// While bearish the line is the final upper band; it must not
			// rise unless the previous close broke above it.
			if st.Line[i] > st.Line[i-1]+1e-9 && bars[i-1].Close <= st.Line[i-1] {
				t.Errorf("bar %d: upper band loosened from %v to %v without a break",
					i, st.Line[i-1], st.Line[i])
			}
		}
	}
	if !sawBear || !sawBull {
		t.Fatalf("synthetic path should produce a bear phase then a bull flip (bear=%v bull=%v)", sawBear, sawBull)
	}
}

func TestSupertrend_WarmupUndefined(t *testing.T) {
	bars := makeBars([]float64{100, 101, 102, 103})
	st := Supertrend(bars, 10, 3)
	for i := range bars {
		if !math.IsNaN(st.Line[i]) || st.Trend[i] != 0 {
			t.Errorf("index %d: expected undefined supertrend, got line=%v trend=%d",
				i, st.Line[i], st.Trend[i])
		}
	}
}

func TestADX_BoundsAndWarmup(t *testing.T) {
	closes := make([]float64, 80)
	for i := range closes {
		closes[i] = 100 + 10*math.Sin(float64(i)/5) + float64(i)*0.3
	}
	res := ADX(makeBars(closes), 14)

	for i := 0; i < 14; i++ {
		if !math.IsNaN(res.ADX[i]) {
			t.Errorf("index %d: ADX defined during warm-up: %v", i, res.ADX[i])
		}
	}
	for i, v := range res.ADX {
		if math.IsNaN(v) {
			continue
		}
		if v < 0 || v > 100 {
			t.Errorf("index %d: ADX out of range: %v", i, v)
		}
	}
}

func TestEnrich_AlignedColumns(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + float64(i%7)
	}
	snap := Enrich(makeBars(closes))

	if snap.Len() != 60 {
		t.Fatalf("expected 60 bars, got %d", snap.Len())
	}
	for name, col := range map[string][]float64{
		"SMA20": snap.SMA20, "SMA50": snap.SMA50, "SMA200": snap.SMA200,
		"RSI14": snap.RSI14, "ATR14": snap.ATR14, "VWAP": snap.VWAP,
		"DistVWAP": snap.DistVWAP, "ZScore": snap.ZScore,
	} {
		if len(col) != 60 {
			t.Errorf("%s: expected 60 entries, got %d", name, len(col))
		}
	}
	// 60 bars cannot satisfy a 200 window.
	for i, v := range snap.SMA200 {
		if !math.IsNaN(v) {
			t.Errorf("SMA200[%d]: expected NaN with 60 bars, got %v", i, v)
		}
	}
}
