// Package trainingdata reads the labeled symptom table the classifier is
// trained on.
package trainingdata

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

var (
	ErrMissingColumn   = errors.New("missing column")
	ErrExtraColumn     = errors.New("unexpected column")
	ErrDuplicateColumn = errors.New("duplicate column")
	ErrBadFlag         = errors.New("symptom flag must be 0 or 1")
	ErrNoRecords       = errors.New("training table has no records")
)

// Schema describes the expected columns.
type Schema struct {
	// Symptoms are the flag column names; Record.Flags follows this order.
	Symptoms    []string
	LabelColumn string
	// AllowExtraColumns skips columns that are neither symptoms nor the
	// label instead of rejecting the table.
	AllowExtraColumns bool
}

// Record is one training row. Label is the raw cell value, untrimmed.
type Record struct {
	Flags []uint8
	Label string
}

// LineError locates a parse failure in the table.
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string { return fmt.Sprintf("line %d: %v", e.Line, e.Err) }

func (e *LineError) Unwrap() error { return e.Err }

// Load opens path and reads it with Read.
func Load(path string, schema Schema) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open training table: %w", err)
	}
	defer f.Close()

	records, err := Read(f, schema)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}

// Read parses a CSV table with a header row.
func Read(r io.Reader, schema Schema) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoRecords
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	flagCol, labelCol, err := mapColumns(header, schema)
	if err != nil {
		return nil, &LineError{Line: 1, Err: err}
	}

	var records []Record
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		line, _ := cr.FieldPos(0)

		rec := Record{
			Flags: make([]uint8, len(flagCol)),
			Label: row[labelCol],
		}
		for i, col := range flagCol {
			switch strings.TrimSpace(row[col]) {
			case "0":
			case "1":
				rec.Flags[i] = 1
			default:
				return nil, &LineError{Line: line, Err: fmt.Errorf("%w: column %q has %q", ErrBadFlag, schema.Symptoms[i], row[col])}
			}
		}
		records = append(records, rec)
	}

	if len(records) == 0 {
		return nil, ErrNoRecords
	}
	return records, nil
}

// mapColumns resolves each schema column to its header position.
func mapColumns(header []string, schema Schema) ([]int, int, error) {
	pos := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, dup := pos[name]; dup {
			// Lenient tables keep the first occurrence of a repeated header.
			if schema.AllowExtraColumns {
				continue
			}
			return nil, 0, fmt.Errorf("%w: %q", ErrDuplicateColumn, name)
		}
		pos[name] = i
	}

	labelCol, ok := pos[schema.LabelColumn]
	if !ok {
		return nil, 0, fmt.Errorf("%w: %q", ErrMissingColumn, schema.LabelColumn)
	}

	known := map[string]bool{schema.LabelColumn: true}
	flagCol := make([]int, len(schema.Symptoms))
	for i, s := range schema.Symptoms {
		col, ok := pos[s]
		if !ok {
			return nil, 0, fmt.Errorf("%w: %q", ErrMissingColumn, s)
		}
		flagCol[i] = col
		known[s] = true
	}

	if !schema.AllowExtraColumns {
		for _, name := range header {
			name = strings.TrimSpace(name)
			if name != "" && !known[name] {
				return nil, 0, fmt.Errorf("%w: %q", ErrExtraColumn, name)
			}
		}
	}
	return flagCol, labelCol, nil
}
