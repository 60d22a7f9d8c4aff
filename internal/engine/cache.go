// Package engine drives the decision pipeline: the live scanner, the
// paper trader and the deterministic backtest loop.
package engine

import (
	"sync"
	"time"

	"ironclad/internal/model"
)

// Snapshot is one completed scan: the surviving signal set and when it
// was computed.
type Snapshot struct {
	Signals   []model.Signal `json:"signals"`
	ScannedAt time.Time      `json:"scanned_at"`
}

// ScanCache holds the latest Snapshot under a single-writer discipline:
// only the scan loop calls Set, once per completed sweep. Readers get a
// copy, never a view into the loop's state.
type ScanCache struct {
	mu   sync.RWMutex
	snap Snapshot
}

func NewScanCache() *ScanCache { return &ScanCache{} }

func (c *ScanCache) Set(signals []model.Signal, at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap = Snapshot{Signals: signals, ScannedAt: at}
}

func (c *ScanCache) Get() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := Snapshot{
		Signals:   make([]model.Signal, len(c.snap.Signals)),
		ScannedAt: c.snap.ScannedAt,
	}
	copy(out.Signals, c.snap.Signals)
	return out
}
