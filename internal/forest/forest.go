// Package forest implements a random-forest classifier over binary features:
// bootstrap-aggregated Gini decision trees whose leaf class distributions are
// averaged at prediction time.
package forest

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"golang.org/x/sync/errgroup"
)

// ErrFeatureMismatch is returned when an input's length differs from the
// feature count the forest was fitted on.
var ErrFeatureMismatch = errors.New("feature vector length mismatch")

// Dataset is a labeled training matrix. Y holds class labels in [0, Classes).
type Dataset struct {
	X       [][]uint8
	Y       []int
	Classes int
}

// Features returns the row width, or 0 for an empty dataset.
func (d Dataset) Features() int {
	if len(d.X) == 0 {
		return 0
	}
	return len(d.X[0])
}

func (d Dataset) validate() error {
	if len(d.X) == 0 {
		return fmt.Errorf("forest: empty dataset")
	}
	if len(d.X) != len(d.Y) {
		return fmt.Errorf("forest: %d rows but %d labels", len(d.X), len(d.Y))
	}
	if d.Classes <= 0 {
		return fmt.Errorf("forest: class count must be positive")
	}
	width := d.Features()
	if width == 0 {
		return fmt.Errorf("forest: rows have no features")
	}
	for i, row := range d.X {
		if len(row) != width {
			return fmt.Errorf("forest: row %d has %d features, want %d", i, len(row), width)
		}
		if d.Y[i] < 0 || d.Y[i] >= d.Classes {
			return fmt.Errorf("forest: row %d label %d outside [0,%d)", i, d.Y[i], d.Classes)
		}
	}
	return nil
}

// Config controls forest induction.
type Config struct {
	Trees int
	// MaxFeatures is the number of candidate features per split; 0 selects
	// floor(sqrt(features)).
	MaxFeatures int
	// MaxDepth bounds tree depth; 0 grows until leaves are pure.
	MaxDepth int
	Seed     int64
	// Workers bounds concurrent tree construction; values below 1 mean 1.
	Workers int
}

// Forest is a fitted ensemble. It is read-only and safe for concurrent use.
type Forest struct {
	trees    []*Tree
	classes  int
	features int
}

// Fit trains a forest on d. Each tree gets its own RNG seeded from a master
// RNG in tree order, so the result depends only on d and cfg, not on
// scheduling.
func Fit(d Dataset, cfg Config) (*Forest, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}
	if cfg.Trees <= 0 {
		return nil, fmt.Errorf("forest: tree count must be positive, got %d", cfg.Trees)
	}

	width := d.Features()
	maxFeatures := cfg.MaxFeatures
	if maxFeatures <= 0 {
		maxFeatures = int(math.Sqrt(float64(width)))
	}
	if maxFeatures < 1 {
		maxFeatures = 1
	}
	if maxFeatures > width {
		maxFeatures = width
	}

	master := rand.New(rand.NewSource(cfg.Seed))
	seeds := make([]int64, cfg.Trees)
	for i := range seeds {
		seeds[i] = master.Int63()
	}

	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}

	trees := make([]*Tree, cfg.Trees)
	var g errgroup.Group
	g.SetLimit(workers)
	for i := range trees {
		g.Go(func() error {
			rng := rand.New(rand.NewSource(seeds[i]))
			weights, samples := bootstrap(len(d.X), rng)
			trees[i] = newGrower(d, weights, maxFeatures, cfg.MaxDepth, rng).tree(samples)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Forest{trees: trees, classes: d.Classes, features: width}, nil
}

// bootstrap draws n indices with replacement and returns per-index draw
// counts together with the distinct drawn indices in ascending order.
func bootstrap(n int, rng *rand.Rand) ([]float64, []int) {
	weights := make([]float64, n)
	for i := 0; i < n; i++ {
		weights[rng.Intn(n)]++
	}
	samples := make([]int, 0, n)
	for i, w := range weights {
		if w > 0 {
			samples = append(samples, i)
		}
	}
	return weights, samples
}

// PredictProba returns the mean of the per-tree leaf distributions for x.
func (f *Forest) PredictProba(x []uint8) ([]float64, error) {
	if len(x) != f.features {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrFeatureMismatch, len(x), f.features)
	}
	proba := make([]float64, f.classes)
	for _, t := range f.trees {
		for c, p := range t.distribution(x) {
			proba[c] += p
		}
	}
	n := float64(len(f.trees))
	for c := range proba {
		proba[c] /= n
	}
	return proba, nil
}

// Predict returns the class with the highest probability and that
// probability. Ties go to the lowest class label.
func (f *Forest) Predict(x []uint8) (int, float64, error) {
	proba, err := f.PredictProba(x)
	if err != nil {
		return 0, 0, err
	}
	best := Argmax(proba)
	return best, proba[best], nil
}

// Argmax returns the index of the largest value, preferring the lowest index
// on ties. It returns -1 for an empty slice.
func Argmax(values []float64) int {
	best := -1
	for i, v := range values {
		if best < 0 || v > values[best] {
			best = i
		}
	}
	return best
}

// Stats summarizes the fitted ensemble.
type Stats struct {
	Trees    int
	Nodes    int
	MaxDepth int
}

// Stats reports tree, node and depth totals across the forest.
func (f *Forest) Stats() Stats {
	s := Stats{Trees: len(f.trees)}
	for _, t := range f.trees {
		s.Nodes += t.Nodes()
		if t.Depth() > s.MaxDepth {
			s.MaxDepth = t.Depth()
		}
	}
	return s
}

// Classes returns the number of classes.
func (f *Forest) Classes() int { return f.classes }

// Features returns the expected input length.
func (f *Forest) Features() int { return f.features }
