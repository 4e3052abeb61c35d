package diagnosis

import (
	"time"

	"github.com/Skufu/MedPro/internal/forest"
	"github.com/Skufu/MedPro/internal/taxonomy"
)

// Model is a trained classifier bound to the registry it was trained
// against. It is never modified after training. A nil *Model means no model
// is available.
type Model struct {
	forest    *forest.Forest
	registry  *taxonomy.Registry
	records   int
	trainedAt time.Time
	took      time.Duration
}

// Registry returns the taxonomy the model encodes and decodes with.
func (m *Model) Registry() *taxonomy.Registry { return m.registry }

// Summary describes a trained model for logs and status endpoints.
type Summary struct {
	Records   int           `json:"records"`
	Symptoms  int           `json:"symptoms"`
	Diseases  int           `json:"diseases"`
	Trees     int           `json:"trees"`
	Nodes     int           `json:"nodes"`
	MaxDepth  int           `json:"maxDepth"`
	TrainedAt time.Time     `json:"trainedAt"`
	Took      time.Duration `json:"took"`
}

// Summary describes the model for logs and status endpoints.
func (m *Model) Summary() Summary {
	st := m.forest.Stats()
	return Summary{
		Records:   m.records,
		Symptoms:  m.registry.NumSymptoms(),
		Diseases:  m.registry.NumDiseases(),
		Trees:     st.Trees,
		Nodes:     st.Nodes,
		MaxDepth:  st.MaxDepth,
		TrainedAt: m.trainedAt,
		Took:      m.took,
	}
}
