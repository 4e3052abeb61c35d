package diagnosis

import (
	"sort"
	"sync/atomic"

	"github.com/Skufu/MedPro/internal/features"
)

// Prediction is the most likely disease for a symptom vector.
type Prediction struct {
	Disease string
	Label   int
	// Confidence is the winning class probability as a percentage in [0,100].
	Confidence float64
}

// Predict runs model on vector. Ties between classes go to the disease that
// comes first in the registry.
func Predict(vector features.Vector, model *Model) (Prediction, error) {
	if model == nil {
		return Prediction{}, ErrModelUnavailable
	}
	label, p, err := model.forest.Predict(vector)
	if err != nil {
		return Prediction{}, err
	}
	name, _ := model.registry.Disease(label)
	return Prediction{Disease: name, Label: label, Confidence: percent(p)}, nil
}

// Rank returns up to k diseases ordered by decreasing probability, ties by
// registry order. Diseases with zero probability are omitted, except that
// the top prediction is always present.
func Rank(vector features.Vector, model *Model, k int) ([]Prediction, error) {
	if model == nil {
		return nil, ErrModelUnavailable
	}
	proba, err := model.forest.PredictProba(vector)
	if err != nil {
		return nil, err
	}

	out := make([]Prediction, 0, len(proba))
	for label, p := range proba {
		name, _ := model.registry.Disease(label)
		out = append(out, Prediction{Disease: name, Label: label, Confidence: percent(p)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })

	n := 1
	for n < len(out) && n < k && out[n].Confidence > 0 {
		n++
	}
	return out[:n], nil
}

func percent(p float64) float64 {
	return min(max(p*100, 0), 100)
}

// Engine serves predictions from the currently installed model. Models are
// immutable, so swapping in a retrained one needs no locking on the read
// path.
type Engine struct {
	model atomic.Pointer[Model]
}

// NewEngine returns an Engine serving m. m may be nil.
func NewEngine(m *Model) *Engine {
	e := &Engine{}
	e.model.Store(m)
	return e
}

// Model returns the installed model, or nil.
func (e *Engine) Model() *Model { return e.model.Load() }

// Ready reports whether a model is installed.
func (e *Engine) Ready() bool { return e.model.Load() != nil }

// Install replaces the served model. A nil m is ignored so a failed retrain
// never disables a working engine.
func (e *Engine) Install(m *Model) {
	if m != nil {
		e.model.Store(m)
	}
}

// Predict runs the installed model on vector.
func (e *Engine) Predict(vector features.Vector) (Prediction, error) {
	return Predict(vector, e.model.Load())
}

// Rank ranks diseases for vector with the installed model.
func (e *Engine) Rank(vector features.Vector, k int) ([]Prediction, error) {
	return Rank(vector, e.model.Load(), k)
}
