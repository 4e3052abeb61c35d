package diagnosis

import (
	"errors"
	"fmt"
)

// ErrModelUnavailable is returned by inference when no trained model is
// installed, either because training has not run or because it failed.
var ErrModelUnavailable = errors.New("prediction model not available")

// ErrUnknownLabel marks a training row whose label is not a known disease.
var ErrUnknownLabel = errors.New("unknown disease label")

// TrainingDataError reports that the training table could not be turned into
// a model. Source is the table path, or empty for in-memory records.
type TrainingDataError struct {
	Source string
	Err    error
}

func (e *TrainingDataError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("training data: %v", e.Err)
	}
	return fmt.Sprintf("training data %s: %v", e.Source, e.Err)
}

func (e *TrainingDataError) Unwrap() error { return e.Err }
