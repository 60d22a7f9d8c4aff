package brain

import (
	"errors"
	"math"
)

// MinTrainingSamples is the minimum number of valid labelled rows needed
// before a model is trained; below this the instrument stays untrained and
// inference returns the neutral 0.5.
const MinTrainingSamples = 100

// hyperParams is one candidate in the small training grid.
type hyperParams struct {
	learnRate float64
	epochs    int
	l2        float64
}

var searchGrid = []hyperParams{
	{0.1, 200, 0.0},
	{0.1, 200, 0.01},
	{0.05, 400, 0.001},
	{0.01, 800, 0.0},
}

// Model is a logistic-regression classifier over standardized features.
// Standardization parameters are learned from the training fold only.
type Model struct {
	weights [NumFeatures]float64
	bias    float64
	mean    [NumFeatures]float64
	std     [NumFeatures]float64
}

// ErrInsufficientData is returned when the dataset is below
// MinTrainingSamples after row screening.
var ErrInsufficientData = errors.New("brain: not enough valid training rows")

// Train fits a model on the dataset using a time-respecting split: the
// earliest 75% of rows train each grid candidate, the final 25% validate
// it. Rows are never shuffled — validating on the chronological tail is
// what keeps future information out of the training folds.
func Train(ds Dataset) (*Model, error) {
	if len(ds.Rows) < MinTrainingSamples {
		return nil, ErrInsufficientData
	}

	cut := len(ds.Rows) * 3 / 4
	trainRows, trainLabels := ds.Rows[:cut], ds.Labels[:cut]
	valRows, valLabels := ds.Rows[cut:], ds.Labels[cut:]

	best := searchGrid[0]
	bestScore := -1.0
	for _, hp := range searchGrid {
		m := fit(trainRows, trainLabels, hp)
		if score := m.accuracy(valRows, valLabels); score > bestScore {
			best, bestScore = hp, score
		}
	}

	// Refit the winning candidate on the full history so the deployed
	// model has seen the most recent regime.
	return fit(ds.Rows, ds.Labels, best), nil
}

// fit trains a logistic regression with batch gradient descent.
func fit(rows []FeatureRow, labels []float64, hp hyperParams) *Model {
	m := &Model{}
	m.fitScaler(rows)

	n := float64(len(rows))
	scaled := make([]FeatureRow, len(rows))
	for i, r := range rows {
		scaled[i] = m.scale(r)
	}

	for epoch := 0; epoch < hp.epochs; epoch++ {
		var gradW [NumFeatures]float64
		gradB := 0.0
		for i, r := range scaled {
			err := sigmoid(m.raw(r)) - labels[i]
			for j := 0; j < NumFeatures; j++ {
				gradW[j] += err * r[j]
			}
			gradB += err
		}
		for j := 0; j < NumFeatures; j++ {
			m.weights[j] -= hp.learnRate * (gradW[j]/n + hp.l2*m.weights[j])
		}
		m.bias -= hp.learnRate * gradB / n
	}
	return m
}

func (m *Model) fitScaler(rows []FeatureRow) {
	n := float64(len(rows))
	for j := 0; j < NumFeatures; j++ {
		sum := 0.0
		for _, r := range rows {
			sum += r[j]
		}
		m.mean[j] = sum / n

		var ss float64
		for _, r := range rows {
			d := r[j] - m.mean[j]
			ss += d * d
		}
		m.std[j] = math.Sqrt(ss / n)
		if m.std[j] == 0 {
			m.std[j] = 1 // constant column, leave it centered
		}
	}
}

func (m *Model) scale(r FeatureRow) FeatureRow {
	var out FeatureRow
	for j := 0; j < NumFeatures; j++ {
		out[j] = (r[j] - m.mean[j]) / m.std[j]
	}
	return out
}

func (m *Model) raw(scaled FeatureRow) float64 {
	z := m.bias
	for j := 0; j < NumFeatures; j++ {
		z += m.weights[j] * scaled[j]
	}
	return z
}

// Predict returns P(label=1) for one feature row.
func (m *Model) Predict(r FeatureRow) float64 {
	return sigmoid(m.raw(m.scale(r)))
}

func (m *Model) accuracy(rows []FeatureRow, labels []float64) float64 {
	if len(rows) == 0 {
		return 0
	}
	correct := 0
	for i, r := range rows {
		pred := 0.0
		if m.Predict(r) >= 0.5 {
			pred = 1.0
		}
		if pred == labels[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(rows))
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}
