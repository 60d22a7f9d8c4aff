package brain

import (
	"log/slog"
	"sync"

	"ironclad/internal/indicator"
)

// NeutralConfidence is returned when no model exists for an instrument.
const NeutralConfidence = 0.5

// Registry maps instruments to trained models. It is an explicit object
// owned by whoever builds the pipeline and passed by reference — never a
// global — so tests can inject isolated instances. Safe for concurrent
// readers with a single training writer.
type Registry struct {
	mu     sync.RWMutex
	models map[string]*Model
	log    *slog.Logger
}

// NewRegistry creates an empty model registry.
func NewRegistry(log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{
		models: make(map[string]*Model),
		log:    log,
	}
}

// Has reports whether a trained model exists for the ticker.
func (r *Registry) Has(ticker string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.models[ticker] != nil
}

// Train builds a dataset from the enriched history and fits a model for
// the ticker. Insufficient history is not an error for callers: the
// ticker simply stays untrained and keeps scoring neutral.
func (r *Registry) Train(ticker string, snap *indicator.Snapshot) error {
	ds := BuildDataset(snap)
	m, err := Train(ds)
	if err != nil {
		r.log.Debug("model not trained", "ticker", ticker, "rows", len(ds.Rows), "err", err)
		return err
	}

	r.mu.Lock()
	r.models[ticker] = m
	r.mu.Unlock()

	r.log.Info("confidence model trained", "ticker", ticker, "rows", len(ds.Rows))
	return nil
}

// Confidence returns P(upward continuation) for the newest bar of the
// snapshot. Untrained instruments and warm-up feature rows both yield the
// neutral 0.5 so one missing model never blocks the rest of the pipeline.
func (r *Registry) Confidence(ticker string, snap *indicator.Snapshot) float64 {
	row, ok := LatestFeatures(snap)
	if !ok {
		return NeutralConfidence
	}

	r.mu.RLock()
	m := r.models[ticker]
	r.mu.RUnlock()
	if m == nil {
		return NeutralConfidence
	}
	return m.Predict(row)
}
