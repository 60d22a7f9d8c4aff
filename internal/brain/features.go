// Package brain holds the per-instrument confidence models that gate
// trade signals. A model is a small binary classifier predicting
// short-horizon upward continuation from indicator features; its output in
// [0,1] is used only as a veto threshold, never as a signal generator.
package brain

import (
	"math"

	"ironclad/internal/indicator"
)

// Feature vector layout: RSI, Dist_VWAP, Z-Score_VWAP, volume.
const NumFeatures = 4

// Label horizon and threshold: the label is 1 when the close 5 bars ahead
// exceeds the current close by more than 0.1%.
const (
	labelHorizon   = 5
	labelThreshold = 0.001
)

// FeatureRow is one training/inference input.
type FeatureRow [NumFeatures]float64

// valid reports whether every feature is finite and defined.
func (r FeatureRow) valid() bool {
	for _, v := range r {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// LatestFeatures extracts the inference row for the newest bar. ok is
// false while any feature is still warming up.
func LatestFeatures(snap *indicator.Snapshot) (FeatureRow, bool) {
	if snap.Len() == 0 {
		return FeatureRow{}, false
	}
	i := snap.Len() - 1
	row := FeatureRow{
		snap.RSI14[i],
		snap.DistVWAP[i],
		snap.ZScore[i],
		snap.Bars[i].Volume,
	}
	return row, row.valid()
}

// Dataset is a labelled feature matrix in bar order.
type Dataset struct {
	Rows   []FeatureRow
	Labels []float64 // 0 or 1
}

// BuildDataset converts an enriched history into training rows. Rows with
// undefined or non-finite features are dropped together with their labels;
// the last labelHorizon bars have no label and are excluded. Order is
// preserved so time-respecting splits stay valid.
func BuildDataset(snap *indicator.Snapshot) Dataset {
	var ds Dataset
	n := snap.Len()
	for i := 0; i+labelHorizon < n; i++ {
		row := FeatureRow{
			snap.RSI14[i],
			snap.DistVWAP[i],
			snap.ZScore[i],
			snap.Bars[i].Volume,
		}
		if !row.valid() {
			continue
		}
		ret := snap.Bars[i+labelHorizon].Close/snap.Bars[i].Close - 1
		label := 0.0
		if ret > labelThreshold {
			label = 1.0
		}
		ds.Rows = append(ds.Rows, row)
		ds.Labels = append(ds.Labels, label)
	}
	return ds
}
