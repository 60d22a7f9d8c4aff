package strategy

import (
	"testing"
	"time"

	"ironclad/internal/indicator"
	"ironclad/internal/markethours"
	"ironclad/internal/model"
)

func seriesFromCloses(closes []float64) model.Series {
	bars := make(model.Series, len(closes))
	ts := time.Date(2026, 2, 2, 9, 15, 0, 0, markethours.IST)
	for i, c := range closes {
		bars[i] = model.Bar{
			Ticker: "TEST",
			TS:     ts.Add(time.Duration(i) * 5 * time.Minute),
			Open:   c,
			High:   c * 1.001,
			Low:    c * 0.999,
			Close:  c,
			Volume: 1000,
		}
	}
	return bars
}

func TestDispatchTable_Closed(t *testing.T) {
	want := []ID{Composite, ORB, SupertrendFollow, MACrossover, MACD,
		Bollinger, Candlestick, RSI14, RSI9Aggressive, RSI21Conservative}
	if len(All()) != len(want) {
		t.Fatalf("expected %d strategies, got %d", len(want), len(All()))
	}
	for _, id := range want {
		if _, ok := Lookup(id); !ok {
			t.Errorf("strategy %q missing from dispatch table", id)
		}
	}
	if _, ok := Lookup("unknown"); ok {
		t.Error("unknown ID must not resolve")
	}
}

func TestStyleClassification(t *testing.T) {
	for _, id := range []ID{Bollinger, RSI14, RSI9Aggressive} {
		if !IsMeanReversion(id) {
			t.Errorf("%s should be classified mean-reversion", id)
		}
	}
	if IsMeanReversion(RSI21Conservative) {
		t.Error("rsi_21_conservative is deliberately outside the mean-reversion group")
	}
	for _, id := range []ID{SupertrendFollow, MACD, MACrossover} {
		if !IsTrendFollowing(id) {
			t.Errorf("%s should be classified trend-following", id)
		}
	}
}

// TestMACrossover_SteadyUptrendSingleCross feeds a 300-bar +0.1%/bar
// uptrend bar-by-bar and expects at most one BUY crossover and no
// oscillating signals once SMA20 settles above SMA50.
func TestMACrossover_SteadyUptrendSingleCross(t *testing.T) {
	closes := make([]float64, 300)
	price := 100.0
	for i := range closes {
		closes[i] = price
		price *= 1.001
	}
	bars := seriesFromCloses(closes)

	buys, sells := 0, 0
	for i := 51; i <= len(bars); i++ {
		snap := indicator.Enrich(bars[:i])
		switch generateMACrossover(Input{Snap: snap}) {
		case model.Buy:
			buys++
		case model.Sell:
			sells++
		}
	}
	if buys > 1 {
		t.Errorf("steady uptrend produced %d BUY crossovers, want at most 1", buys)
	}
	if sells != 0 {
		t.Errorf("steady uptrend produced %d SELL signals, want 0", sells)
	}
}

func TestMACrossover_DetectsGoldenCross(t *testing.T) {
	// Decline long enough to hold SMA20 under SMA50, then a sharp rally.
	closes := make([]float64, 0, 120)
	price := 200.0
	for i := 0; i < 80; i++ {
		closes = append(closes, price)
		price *= 0.999
	}
	for i := 0; i < 40; i++ {
		closes = append(closes, price)
		price *= 1.01
	}
	bars := seriesFromCloses(closes)

	buys := 0
	for i := 51; i <= len(bars); i++ {
		if generateMACrossover(Input{Snap: indicator.Enrich(bars[:i])}) == model.Buy {
			buys++
		}
	}
	if buys == 0 {
		t.Error("rally after decline should produce a golden-cross BUY")
	}
}

func TestComposite_ReversionBuyNeedsBullishHourly(t *testing.T) {
	// Intraday: stable closes then a sharp drop to force z-score < -2.
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100
	}
	closes[39] = 90
	snap := indicator.Enrich(seriesFromCloses(closes))

	// Hourly context above its SMA50 → bullish.
	hourlyCloses := make([]float64, 60)
	for i := range hourlyCloses {
		hourlyCloses[i] = 100 + float64(i)*0.2
	}
	bullish := indicator.Enrich(seriesFromCloses(hourlyCloses))

	if got := generateComposite(Input{Snap: snap, Hourly: bullish}); got != model.Buy {
		t.Errorf("bullish hourly + oversold z-score should BUY, got %q", got)
	}
	if got := generateComposite(Input{Snap: snap, Hourly: nil}); got != model.None {
		t.Errorf("sideways hourly must suppress the reversion leg, got %q", got)
	}
}

func TestComposite_VolumeSpikeConfirmation(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100 + float64(i)*0.01
	}
	bars := seriesFromCloses(closes)
	last := &bars[len(bars)-1]
	last.Volume = 5000 // 5x the 1000 baseline
	last.Open = last.Close * 0.995

	hourlyCloses := make([]float64, 60)
	for i := range hourlyCloses {
		hourlyCloses[i] = 100 + float64(i)*0.2
	}
	bullish := indicator.Enrich(seriesFromCloses(hourlyCloses))

	if got := generateComposite(Input{Snap: indicator.Enrich(bars), Hourly: bullish}); got != model.Buy {
		t.Errorf("volume spike + bullish candle in bullish context should BUY, got %q", got)
	}
}

func TestORB_Breakout(t *testing.T) {
	closes := []float64{100, 101, 100.5, 103}
	bars := seriesFromCloses(closes)
	// Range high = 101*1.001; breakout close is well above it.
	if got := generateORB(Input{Snap: indicator.Enrich(bars)}); got != model.Buy {
		t.Errorf("close above opening range should BUY, got %q", got)
	}

	closes = []float64{100, 101, 100.5, 97}
	bars = seriesFromCloses(closes)
	if got := generateORB(Input{Snap: indicator.Enrich(bars)}); got != model.Sell {
		t.Errorf("close below opening range should SELL, got %q", got)
	}
}

func TestORB_NeedsFourSessionBars(t *testing.T) {
	bars := seriesFromCloses([]float64{100, 101, 110})
	if got := generateORB(Input{Snap: indicator.Enrich(bars)}); got != model.None {
		t.Errorf("fewer than 4 session bars must give no signal, got %q", got)
	}
}

func TestRSIStrategy_Thresholds(t *testing.T) {
	gen := rsiStrategy(14, 30, 70)

	up := make([]float64, 30)
	for i := range up {
		up[i] = 100 + float64(i)
	}
	if got := gen(Input{Snap: indicator.Enrich(seriesFromCloses(up))}); got != model.Sell {
		t.Errorf("RSI=100 should SELL, got %q", got)
	}

	down := make([]float64, 30)
	for i := range down {
		down[i] = 100 - float64(i)
	}
	if got := gen(Input{Snap: indicator.Enrich(seriesFromCloses(down))}); got != model.Buy {
		t.Errorf("RSI=0 should BUY, got %q", got)
	}
}

func TestCandlestick_HammerAndShootingStar(t *testing.T) {
	bars := seriesFromCloses([]float64{100})
	b := &bars[0]
	// Hammer: long lower wick, tiny upper wick.
	b.Open, b.Close, b.High, b.Low = 100, 100.5, 100.6, 98
	if got := generateCandlestick(Input{Snap: indicator.Enrich(bars)}); got != model.Buy {
		t.Errorf("hammer should BUY, got %q", got)
	}

	// Shooting star: long upper wick, tiny lower wick.
	b.Open, b.Close, b.High, b.Low = 100.5, 100, 102.5, 99.9
	if got := generateCandlestick(Input{Snap: indicator.Enrich(bars)}); got != model.Sell {
		t.Errorf("shooting star should SELL, got %q", got)
	}
}

func TestSupertrendFollow_WarmupSilent(t *testing.T) {
	bars := seriesFromCloses([]float64{100, 101, 102})
	if got := generateSupertrend(Input{Snap: indicator.Enrich(bars)}); got != model.None {
		t.Errorf("supertrend warm-up must give no signal, got %q", got)
	}
}

func TestHourlyTrend(t *testing.T) {
	up := make([]float64, 60)
	for i := range up {
		up[i] = 100 + float64(i)
	}
	if got := HourlyTrend(indicator.Enrich(seriesFromCloses(up))); got != Bullish {
		t.Errorf("rising closes above SMA50 should be BULLISH, got %s", got)
	}

	down := make([]float64, 60)
	for i := range down {
		down[i] = 200 - float64(i)
	}
	if got := HourlyTrend(indicator.Enrich(seriesFromCloses(down))); got != Bearish {
		t.Errorf("falling closes below SMA50 should be BEARISH, got %s", got)
	}

	if got := HourlyTrend(nil); got != Sideways {
		t.Errorf("missing context should be SIDEWAYS, got %s", got)
	}

	short := seriesFromCloses([]float64{100, 101})
	if got := HourlyTrend(indicator.Enrich(short)); got != Sideways {
		t.Errorf("warm-up SMA50 should be SIDEWAYS, got %s", got)
	}
}
