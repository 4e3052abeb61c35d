package taxonomy

import (
	"fmt"
	"strings"
)

// Registry is the ordered symptom and disease lists that define the
// feature-vector layout and the label space. It is immutable once built.
type Registry struct {
	symptoms     []string
	diseases     []string
	symptomIndex map[string]int
	diseaseIndex map[string]int
}

// New builds a Registry. Names must be non-blank and unique within each list.
func New(symptoms, diseases []string) (*Registry, error) {
	if len(symptoms) == 0 {
		return nil, fmt.Errorf("taxonomy: no symptoms")
	}
	if len(diseases) == 0 {
		return nil, fmt.Errorf("taxonomy: no diseases")
	}

	symptomIndex, err := indexOf("symptom", symptoms)
	if err != nil {
		return nil, err
	}
	diseaseIndex, err := indexOf("disease", diseases)
	if err != nil {
		return nil, err
	}

	return &Registry{
		symptoms:     append([]string(nil), symptoms...),
		diseases:     append([]string(nil), diseases...),
		symptomIndex: symptomIndex,
		diseaseIndex: diseaseIndex,
	}, nil
}

// MustNew is like New but panics on error. Intended for package-level tables.
func MustNew(symptoms, diseases []string) *Registry {
	r, err := New(symptoms, diseases)
	if err != nil {
		panic(err)
	}
	return r
}

func indexOf(kind string, names []string) (map[string]int, error) {
	idx := make(map[string]int, len(names))
	for i, name := range names {
		if strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("taxonomy: blank %s at position %d", kind, i)
		}
		if prev, ok := idx[name]; ok {
			return nil, fmt.Errorf("taxonomy: duplicate %s %q at positions %d and %d", kind, name, prev, i)
		}
		idx[name] = i
	}
	return idx, nil
}

// NumSymptoms is N, the feature-vector length.
func (r *Registry) NumSymptoms() int { return len(r.symptoms) }

// NumDiseases is M, the number of classes.
func (r *Registry) NumDiseases() int { return len(r.diseases) }

// Symptoms returns a copy of the symptom list in index order.
func (r *Registry) Symptoms() []string { return append([]string(nil), r.symptoms...) }

// Diseases returns a copy of the disease list in label order.
func (r *Registry) Diseases() []string { return append([]string(nil), r.diseases...) }

// SymptomIndex reports the feature index of name.
func (r *Registry) SymptomIndex(name string) (int, bool) {
	i, ok := r.symptomIndex[name]
	return i, ok
}

// DiseaseIndex reports the class label of name.
func (r *Registry) DiseaseIndex(name string) (int, bool) {
	i, ok := r.diseaseIndex[name]
	return i, ok
}

// Symptom returns the symptom at index i.
func (r *Registry) Symptom(i int) (string, bool) {
	if i < 0 || i >= len(r.symptoms) {
		return "", false
	}
	return r.symptoms[i], true
}

// Disease returns the disease with class label i.
func (r *Registry) Disease(i int) (string, bool) {
	if i < 0 || i >= len(r.diseases) {
		return "", false
	}
	return r.diseases[i], true
}
