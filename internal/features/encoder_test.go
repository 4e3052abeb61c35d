package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skufu/MedPro/internal/taxonomy"
)

func testRegistry(t *testing.T) *taxonomy.Registry {
	t.Helper()
	r, err := taxonomy.New(
		[]string{"itching", "skin_rash", "cough", "fever", "headache", "nausea"},
		[]string{"Fungal infection", "Common Cold", "Migraine"},
	)
	require.NoError(t, err)
	return r
}

func TestEncodeSetsTaxonomyIndices(t *testing.T) {
	reg := testRegistry(t)
	enc := NewEncoder(reg)

	subsets := [][]string{
		{"itching"},
		{"cough", "fever"},
		{"nausea", "itching", "headache"},
		{"itching", "skin_rash", "cough", "fever", "headache"},
	}
	for _, s := range subsets {
		got, err := enc.Encode(s)
		require.NoError(t, err, "subset %v", s)
		require.Len(t, got.Vector, reg.NumSymptoms())
		assert.Equal(t, len(s), got.Vector.Ones())
		for _, name := range s {
			i, _ := reg.SymptomIndex(name)
			assert.Equal(t, uint8(1), got.Vector[i], "symptom %s", name)
		}
		assert.Equal(t, s, got.Matched)
		assert.Empty(t, got.Ignored)
	}
}

func TestEncodeIgnoresUnknownSymptoms(t *testing.T) {
	enc := NewEncoder(testRegistry(t))

	got, err := enc.Encode([]string{"itchng", "cough"})
	require.NoError(t, err)
	assert.Equal(t, 1, got.Vector.Ones())
	assert.Equal(t, []string{"cough"}, got.Matched)
	assert.Equal(t, []string{"itchng"}, got.Ignored)
}

func TestEncodeDeduplicates(t *testing.T) {
	enc := NewEncoder(testRegistry(t))

	got, err := enc.Encode([]string{"cough", " cough ", "cough"})
	require.NoError(t, err)
	assert.Equal(t, 1, got.Vector.Ones())
	assert.Equal(t, []string{"cough"}, got.Matched)
}

func TestEncodeEmptySelection(t *testing.T) {
	enc := NewEncoder(testRegistry(t))

	for _, in := range [][]string{nil, {}, {NoneSelected}, {"", "  ", NoneSelected}, {"unknown"}} {
		_, err := enc.Encode(in)
		assert.ErrorIs(t, err, ErrEmptySelection, "input %q", in)
	}
}

func TestEncodeAcceptsMoreThanFive(t *testing.T) {
	enc := NewEncoder(testRegistry(t))

	got, err := enc.Encode([]string{"itching", "skin_rash", "cough", "fever", "headache", "nausea"})
	require.NoError(t, err)
	assert.Equal(t, 6, got.Vector.Ones())
}

func TestEncodeDefaultRegistry(t *testing.T) {
	reg := taxonomy.Default()
	enc := NewEncoder(reg)

	got, err := enc.Encode([]string{"foul_smell_of urine", "dischromic _patches"})
	require.NoError(t, err)
	assert.Len(t, got.Vector, reg.NumSymptoms())
	assert.Equal(t, 2, got.Vector.Ones())
}
