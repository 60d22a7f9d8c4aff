// Package risk owns the capital-protection state machine: the daily kill
// switch, ATR-based position sizing and the session time gates.
package risk

import (
	"log/slog"
	"math"
	"sync"
	"time"

	"ironclad/internal/markethours"
)

const (
	DefaultMaxDailyLossPct  = 0.02
	DefaultRiskPerTradePct  = 0.01
	DefaultStopLossMult     = 2.0
	DefaultConcentrationPct = 0.20
)

type Config struct {
	MaxDailyLossPct  float64
	RiskPerTradePct  float64
	StopLossMult     float64
	ConcentrationPct float64
}

func DefaultConfig() Config {
	return Config{
		MaxDailyLossPct:  DefaultMaxDailyLossPct,
		RiskPerTradePct:  DefaultRiskPerTradePct,
		StopLossMult:     DefaultStopLossMult,
		ConcentrationPct: DefaultConcentrationPct,
	}
}

// Manager tracks current capital against the day's starting capital and
// latches the kill switch when the daily loss limit is breached. The
// switch stays latched until ResetDay, called on the first bar of a new
// session; forced exits are never blocked by it.
type Manager struct {
	mu         sync.Mutex
	cfg        Config
	capital    float64
	dailyStart float64
	killSwitch bool
	log        *slog.Logger

	// OnKillSwitch, when set, is called once per latch and once per
	// reset with the new state. The scanner wires it to a gauge.
	OnKillSwitch func(active bool)
}

func NewManager(cfg Config, startingCapital float64, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		cfg:        cfg,
		capital:    startingCapital,
		dailyStart: startingCapital,
		log:        log,
	}
}

// ResetDay marks the daily boundary: the current capital becomes the
// day's reference and the kill switch re-arms.
func (m *Manager) ResetDay() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dailyStart = m.capital
	if m.killSwitch {
		m.killSwitch = false
		m.log.Info("kill switch reset for new session", "capital", m.capital)
		if m.OnKillSwitch != nil {
			m.OnKillSwitch(false)
		}
	}
}

func (m *Manager) Capital() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.capital
}

// ApplyPnL books realized profit or loss and re-evaluates the kill switch.
func (m *Manager) ApplyPnL(delta float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.capital += delta
	m.evalKillSwitch()
}

// CheckKillSwitch evaluates and latches the switch against the current
// capital, returning its state. Once latched it stays true for the rest
// of the session regardless of recovery.
func (m *Manager) CheckKillSwitch() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.evalKillSwitch()
	return m.killSwitch
}

func (m *Manager) KillSwitchActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.killSwitch
}

func (m *Manager) evalKillSwitch() {
	if m.killSwitch {
		return
	}
	loss := m.dailyStart - m.capital
	if loss >= m.dailyStart*m.cfg.MaxDailyLossPct {
		m.killSwitch = true
		m.log.Warn("kill switch engaged",
			"daily_start", m.dailyStart, "capital", m.capital, "loss", loss)
		if m.OnKillSwitch != nil {
			m.OnKillSwitch(true)
		}
	}
}

// PositionSize returns the quantity for a new entry: 1% of capital at
// risk against a 2xATR stop, capped so the position's notional stays
// within the single-name concentration limit. Returns 0 when the kill
// switch is active, the stop distance is zero, or the result rounds to
// nothing.
func (m *Manager) PositionSize(price, atr float64) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.killSwitch || price <= 0 {
		return 0
	}
	stop := atr * m.cfg.StopLossMult
	if stop <= 0 || math.IsNaN(stop) {
		return 0
	}
	qty := int64(math.Floor(m.capital * m.cfg.RiskPerTradePct / stop))
	maxQty := int64(math.Floor(m.capital * m.cfg.ConcentrationPct / price))
	if qty > maxQty {
		qty = maxQty
	}
	if qty <= 0 {
		return 0
	}
	return qty
}

// StopDistance is the stop offset for a fill at the given ATR.
func (m *Manager) StopDistance(atr float64) float64 {
	return atr * m.cfg.StopLossMult
}

// EntryAllowed gates new positions on both the session clock and the
// kill switch. Exits are never gated here.
func (m *Manager) EntryAllowed(t time.Time) bool {
	if m.KillSwitchActive() {
		return false
	}
	return markethours.CanEnter(t)
}
