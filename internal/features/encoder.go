package features

import (
	"errors"
	"strings"

	"github.com/Skufu/MedPro/internal/taxonomy"
)

// NoneSelected is the placeholder value the selection form submits for an
// unused symptom slot.
const NoneSelected = "None"

// ErrEmptySelection is returned when a selection holds no recognized symptom.
var ErrEmptySelection = errors.New("no recognized symptoms selected")

// Vector is a binary symptom encoding. Index i is 1 when symptom i of the
// registry was reported.
type Vector []uint8

// Ones returns how many features are set.
func (v Vector) Ones() int {
	n := 0
	for _, b := range v {
		if b != 0 {
			n++
		}
	}
	return n
}

// Encoding is the result of encoding one selection.
type Encoding struct {
	Vector Vector
	// Matched lists recognized symptoms in submission order, deduplicated.
	Matched []string
	// Ignored lists submitted names not present in the registry.
	Ignored []string
}

// Encoder maps symptom names onto a registry's feature layout.
type Encoder struct {
	registry *taxonomy.Registry
}

// NewEncoder returns an Encoder over registry.
func NewEncoder(registry *taxonomy.Registry) *Encoder {
	return &Encoder{registry: registry}
}

// Encode builds the feature vector for selected. Blank entries and the
// NoneSelected placeholder are dropped, unknown names are skipped and reported
// in Encoding.Ignored. It fails with ErrEmptySelection when nothing is left.
func (e *Encoder) Encode(selected []string) (Encoding, error) {
	vec := make(Vector, e.registry.NumSymptoms())
	enc := Encoding{Vector: vec}

	for _, raw := range selected {
		name := strings.TrimSpace(raw)
		if name == "" || name == NoneSelected {
			continue
		}
		i, ok := e.registry.SymptomIndex(name)
		if !ok {
			enc.Ignored = append(enc.Ignored, name)
			continue
		}
		if vec[i] == 1 {
			continue
		}
		vec[i] = 1
		enc.Matched = append(enc.Matched, name)
	}

	if len(enc.Matched) == 0 {
		return enc, ErrEmptySelection
	}
	return enc, nil
}
