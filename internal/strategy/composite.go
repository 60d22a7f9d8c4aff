package strategy

import (
	"ironclad/internal/indicator"
	"ironclad/internal/model"
)

// generateComposite is the reversion + volume-price-confirmation strategy.
//
// Leg 1 (reversion): in a bullish 1-hour context, BUY a 5-minute oversold
// pullback (VWAP z-score < -2); symmetric SELL on a bearish context with
// z-score > 2. Leg 2 (confirmation fallback): a volume spike above 1.5x
// its 20-bar average combined with a candle aligned to the hourly trend.
func generateComposite(in Input) model.Direction {
	snap := in.Snap
	if snap.Len() == 0 {
		return model.None
	}
	trend := HourlyTrend(in.Hourly)
	i := snap.Len() - 1
	latest := snap.Bars[i]

	z := snap.ZScore[i]
	if indicator.Defined(z) {
		if trend == Bullish && z < -2 {
			return model.Buy
		}
		if trend == Bearish && z > 2 {
			return model.Sell
		}
	}

	volAvg := snap.VolumeSMA[i]
	if !indicator.Defined(volAvg) || latest.Volume <= 1.5*volAvg {
		return model.None
	}
	if trend == Bullish && latest.Close > latest.Open {
		return model.Buy
	}
	if trend == Bearish && latest.Close < latest.Open {
		return model.Sell
	}
	return model.None
}
