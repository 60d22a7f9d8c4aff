package main

import (
	"testing"

	"ironclad/config"
)

func TestRiskConfigMapping(t *testing.T) {
	cfg := &config.Config{
		DailyLossPct:        0.03,
		RiskPerTradePct:     0.015,
		ATRStopMultiple:     2.5,
		MaxConcentrationPct: 0.25,
	}
	rc := riskConfigFrom(cfg)
	if rc.MaxDailyLossPct != 0.03 || rc.RiskPerTradePct != 0.015 ||
		rc.StopLossMult != 2.5 || rc.ConcentrationPct != 0.25 {
		t.Errorf("risk config = %+v", rc)
	}
}
