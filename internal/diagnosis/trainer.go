package diagnosis

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Skufu/MedPro/internal/forest"
	"github.com/Skufu/MedPro/internal/taxonomy"
	"github.com/Skufu/MedPro/internal/trainingdata"
)

// DefaultLabelColumn is the label column name in the training table.
const DefaultLabelColumn = "prognosis"

// Trainer fits a Model from labeled records.
type Trainer struct {
	Registry *taxonomy.Registry
	Forest   forest.Config
	// LabelColumn defaults to DefaultLabelColumn.
	LabelColumn       string
	AllowExtraColumns bool
	Logger            logrus.FieldLogger
}

func (t *Trainer) logger() logrus.FieldLogger {
	if t.Logger == nil {
		return logrus.StandardLogger()
	}
	return t.Logger
}

// Schema returns the column layout TrainFile expects.
func (t *Trainer) Schema() trainingdata.Schema {
	label := t.LabelColumn
	if label == "" {
		label = DefaultLabelColumn
	}
	return trainingdata.Schema{
		Symptoms:          t.Registry.Symptoms(),
		LabelColumn:       label,
		AllowExtraColumns: t.AllowExtraColumns,
	}
}

// TrainFile loads the table at path and trains on it. Any failure is
// returned as a *TrainingDataError together with a nil model.
func (t *Trainer) TrainFile(path string) (*Model, error) {
	records, err := trainingdata.Load(path, t.Schema())
	if err != nil {
		return nil, &TrainingDataError{Source: path, Err: err}
	}

	m, err := t.Train(records)
	if err != nil {
		var tde *TrainingDataError
		if errors.As(err, &tde) {
			tde.Source = path
		}
		return nil, err
	}
	return m, nil
}

// Train fits a model on records. Labels are trimmed before being matched
// against the disease list; an unmatched label fails the whole run.
func (t *Trainer) Train(records []trainingdata.Record) (*Model, error) {
	start := time.Now()

	d, err := t.dataset(records)
	if err != nil {
		return nil, &TrainingDataError{Err: err}
	}

	f, err := forest.Fit(d, t.Forest)
	if err != nil {
		return nil, &TrainingDataError{Err: err}
	}

	m := &Model{
		forest:    f,
		registry:  t.Registry,
		records:   len(records),
		trainedAt: time.Now(),
		took:      time.Since(start),
	}

	s := m.Summary()
	t.logger().WithFields(logrus.Fields{
		"records":   s.Records,
		"trees":     s.Trees,
		"nodes":     s.Nodes,
		"max_depth": s.MaxDepth,
		"took":      s.Took,
	}).Debug("forest trained")
	return m, nil
}

func (t *Trainer) dataset(records []trainingdata.Record) (forest.Dataset, error) {
	if len(records) == 0 {
		return forest.Dataset{}, trainingdata.ErrNoRecords
	}

	d := forest.Dataset{
		X:       make([][]uint8, len(records)),
		Y:       make([]int, len(records)),
		Classes: t.Registry.NumDiseases(),
	}
	for i, rec := range records {
		if len(rec.Flags) != t.Registry.NumSymptoms() {
			return forest.Dataset{}, fmt.Errorf("record %d: %d flags, want %d", i, len(rec.Flags), t.Registry.NumSymptoms())
		}
		y, err := labelOf(t.Registry, rec.Label)
		if err != nil {
			return forest.Dataset{}, fmt.Errorf("record %d: %w", i, err)
		}
		d.X[i] = rec.Flags
		d.Y[i] = y
	}
	return d, nil
}

func labelOf(r *taxonomy.Registry, raw string) (int, error) {
	name := strings.TrimSpace(raw)
	y, ok := r.DiseaseIndex(name)
	if !ok {
		return 0, fmt.Errorf("%w %q", ErrUnknownLabel, name)
	}
	return y, nil
}

// Accuracy is the fraction of records whose label the model predicts.
func (m *Model) Accuracy(records []trainingdata.Record) (float64, error) {
	if len(records) == 0 {
		return 0, trainingdata.ErrNoRecords
	}
	hits := 0
	for i, rec := range records {
		y, err := labelOf(m.registry, rec.Label)
		if err != nil {
			return 0, fmt.Errorf("record %d: %w", i, err)
		}
		got, _, err := m.forest.Predict(rec.Flags)
		if err != nil {
			return 0, fmt.Errorf("record %d: %w", i, err)
		}
		if got == y {
			hits++
		}
	}
	return float64(hits) / float64(len(records)), nil
}
