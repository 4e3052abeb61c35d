package forest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// threeClassData has one defining feature per class plus noise features that
// are shared across classes.
func threeClassData() Dataset {
	var d Dataset
	d.Classes = 3
	add := func(y int, row []uint8, times int) {
		for i := 0; i < times; i++ {
			d.X = append(d.X, row)
			d.Y = append(d.Y, y)
		}
	}
	add(0, []uint8{1, 0, 0, 0, 0, 0}, 10)
	add(0, []uint8{1, 0, 0, 1, 0, 0}, 5)
	add(1, []uint8{0, 1, 0, 0, 0, 0}, 10)
	add(1, []uint8{0, 1, 0, 0, 1, 0}, 5)
	add(2, []uint8{0, 0, 1, 0, 0, 0}, 10)
	add(2, []uint8{0, 0, 1, 0, 1, 1}, 5)
	return d
}

func TestFitPredictsSeparableClasses(t *testing.T) {
	f, err := Fit(threeClassData(), Config{Trees: 50, Seed: 42, Workers: 4})
	require.NoError(t, err)

	cases := []struct {
		x    []uint8
		want int
	}{
		{[]uint8{1, 0, 0, 0, 0, 0}, 0},
		{[]uint8{0, 1, 0, 0, 0, 0}, 1},
		{[]uint8{0, 0, 1, 0, 0, 0}, 2},
	}
	for _, c := range cases {
		got, p, err := f.Predict(c.x)
		require.NoError(t, err)
		assert.Equal(t, c.want, got, "input %v", c.x)
		assert.Greater(t, p, 0.5)
	}
}

func TestPredictProbaSumsToOne(t *testing.T) {
	f, err := Fit(threeClassData(), Config{Trees: 25, Seed: 7})
	require.NoError(t, err)

	for _, x := range [][]uint8{
		{0, 0, 0, 0, 0, 0},
		{1, 1, 1, 1, 1, 1},
		{0, 0, 0, 1, 1, 0},
	} {
		proba, err := f.PredictProba(x)
		require.NoError(t, err)
		require.Len(t, proba, 3)
		sum := 0.0
		for _, p := range proba {
			assert.GreaterOrEqual(t, p, 0.0)
			assert.LessOrEqual(t, p, 1.0)
			sum += p
		}
		assert.InDelta(t, 1.0, sum, 1e-9)
	}
}

func TestFitIsDeterministic(t *testing.T) {
	d := threeClassData()
	a, err := Fit(d, Config{Trees: 30, Seed: 42, Workers: 1})
	require.NoError(t, err)
	b, err := Fit(d, Config{Trees: 30, Seed: 42, Workers: 8})
	require.NoError(t, err)

	x := []uint8{0, 0, 0, 1, 1, 0}
	pa, err := a.PredictProba(x)
	require.NoError(t, err)
	pb, err := b.PredictProba(x)
	require.NoError(t, err)
	assert.Equal(t, pa, pb)
	assert.Equal(t, a.Stats(), b.Stats())
}

func TestFitRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		d    Dataset
		cfg  Config
	}{
		{"empty", Dataset{Classes: 2}, Config{Trees: 1}},
		{"no trees", threeClassData(), Config{Trees: 0}},
		{"label out of range", Dataset{X: [][]uint8{{1}}, Y: []int{3}, Classes: 2}, Config{Trees: 1}},
		{"ragged rows", Dataset{X: [][]uint8{{1, 0}, {1}}, Y: []int{0, 1}, Classes: 2}, Config{Trees: 1}},
		{"label count", Dataset{X: [][]uint8{{1}}, Y: []int{0, 1}, Classes: 2}, Config{Trees: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Fit(tt.d, tt.cfg)
			assert.Error(t, err)
		})
	}
}

func TestPredictFeatureMismatch(t *testing.T) {
	f, err := Fit(threeClassData(), Config{Trees: 3, Seed: 1})
	require.NoError(t, err)

	_, err = f.PredictProba([]uint8{1, 0})
	assert.ErrorIs(t, err, ErrFeatureMismatch)
}

func TestIdenticalRowsWithMixedLabelsMakeMixedLeaf(t *testing.T) {
	d := Dataset{
		X:       [][]uint8{{1, 0}, {1, 0}, {1, 0}, {1, 0}},
		Y:       []int{0, 1, 0, 1},
		Classes: 2,
	}
	f, err := Fit(d, Config{Trees: 1, Seed: 3})
	require.NoError(t, err)

	s := f.Stats()
	assert.Equal(t, 1, s.Nodes)
	assert.Equal(t, 0, s.MaxDepth)
}

func TestMaxDepthLimitsTrees(t *testing.T) {
	f, err := Fit(threeClassData(), Config{Trees: 10, Seed: 5, MaxDepth: 1})
	require.NoError(t, err)
	assert.LessOrEqual(t, f.Stats().MaxDepth, 1)
}

func TestArgmaxTieBreak(t *testing.T) {
	assert.Equal(t, 1, Argmax([]float64{0.2, 0.4, 0.4}))
	assert.Equal(t, 0, Argmax([]float64{0.5, 0.5}))
	assert.Equal(t, -1, Argmax(nil))
}
