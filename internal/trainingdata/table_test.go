package trainingdata

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var schema = Schema{
	Symptoms:    []string{"itching", "cough", "fever"},
	LabelColumn: "prognosis",
}

func TestReadReordersColumns(t *testing.T) {
	in := "fever,prognosis,itching,cough\n" +
		"1,Common Cold,0,1\n" +
		"0,  Fungal infection ,1,0\n"

	records, err := Read(strings.NewReader(in), schema)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, []uint8{0, 1, 1}, records[0].Flags)
	assert.Equal(t, "Common Cold", records[0].Label)
	assert.Equal(t, []uint8{1, 0, 0}, records[1].Flags)
	assert.Equal(t, "  Fungal infection ", records[1].Label)
}

func TestReadSchemaMismatch(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want error
	}{
		{"missing symptom", "itching,cough,prognosis\n1,0,Flu\n", ErrMissingColumn},
		{"missing label", "itching,cough,fever\n1,0,0\n", ErrMissingColumn},
		{"extra column", "itching,cough,fever,sneezing,prognosis\n1,0,0,0,Flu\n", ErrExtraColumn},
		{"bad flag", "itching,cough,fever,prognosis\n1,2,0,Flu\n", ErrBadFlag},
		{"header only", "itching,cough,fever,prognosis\n", ErrNoRecords},
		{"empty", "", ErrNoRecords},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.in), schema)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestReadBadFlagReportsLine(t *testing.T) {
	in := "itching,cough,fever,prognosis\n1,0,0,Flu\n1,x,0,Flu\n"

	_, err := Read(strings.NewReader(in), schema)
	var lerr *LineError
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, 3, lerr.Line)
}

func TestReadRaggedRow(t *testing.T) {
	in := "itching,cough,fever,prognosis\n1,0,Flu\n"

	_, err := Read(strings.NewReader(in), schema)
	assert.Error(t, err)
}

func TestReadAllowExtraColumns(t *testing.T) {
	in := "itching,skin_rash,cough,fever,prognosis,\n1,1,0,0,Fungal infection,\n"

	s := schema
	s.AllowExtraColumns = true
	records, err := Read(strings.NewReader(in), s)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, []uint8{1, 0, 0}, records[0].Flags)
}

func TestReadDuplicateHeader(t *testing.T) {
	in := "itching,fever,cough,fever,prognosis,\n1,1,0,0,Fungal infection,\n"

	_, err := Read(strings.NewReader(in), schema)
	assert.ErrorIs(t, err, ErrDuplicateColumn)

	s := schema
	s.AllowExtraColumns = true
	records, err := Read(strings.NewReader(in), s)
	require.NoError(t, err)
	require.Len(t, records, 1)
	// the first fever column wins
	assert.Equal(t, []uint8{1, 0, 1}, records[0].Flags)
	assert.Equal(t, "Fungal infection", records[0].Label)
}

func TestReadIgnoresBlankHeader(t *testing.T) {
	in := "itching,cough,fever,prognosis,\n0,0,1,Flu,\n"

	records, err := Read(strings.NewReader(in), schema)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Training.csv")
	require.NoError(t, os.WriteFile(path, []byte("itching,cough,fever,prognosis\n0,1,1,Flu\n"), 0o644))

	records, err := Load(path, schema)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	_, err = Load(filepath.Join(t.TempDir(), "missing.csv"), schema)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
