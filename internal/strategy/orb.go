package strategy

import (
	"ironclad/internal/markethours"
	"ironclad/internal/model"
)

// orbRangeBars is the number of 5-minute bars that define the opening
// range (09:15–09:30).
const orbRangeBars = 3

// generateORB trades the opening-range breakout: the high/low of the first
// fifteen minutes of the session. It needs at least one bar beyond the
// range (four session bars) before it will fire, and then signals on the
// latest close breaking the range.
func generateORB(in Input) model.Direction {
	bars := in.Snap.Bars
	last, ok := bars.Last()
	if !ok {
		return model.None
	}

	dayOpen := markethours.SessionOpen(last.TS)

	// Today's bars only.
	start := len(bars)
	for i := len(bars) - 1; i >= 0; i-- {
		if bars[i].TS.Before(dayOpen) {
			break
		}
		start = i
	}
	today := bars[start:]
	if len(today) < orbRangeBars+1 {
		return model.None
	}

	rangeHigh := today[0].High
	rangeLow := today[0].Low
	for _, b := range today[1:orbRangeBars] {
		if b.High > rangeHigh {
			rangeHigh = b.High
		}
		if b.Low < rangeLow {
			rangeLow = b.Low
		}
	}

	switch {
	case last.Close > rangeHigh:
		return model.Buy
	case last.Close < rangeLow:
		return model.Sell
	default:
		return model.None
	}
}
