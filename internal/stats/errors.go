package stats

import (
	"errors"
	"fmt"
)

// ErrInsufficientData is returned when fewer than two observations are available.
var ErrInsufficientData = errors.New("insufficient data")

// ErrNonFinite is returned when an input series contains NaN or ±Inf.
var ErrNonFinite = errors.New("non-finite value")

// DegenerateFitError reports a regression that cannot be estimated: too few
// observations for the parameter count, or a rank-deficient design matrix.
type DegenerateFitError struct {
	Model  string
	N      int
	Params int
	Reason string
}

func (e *DegenerateFitError) Error() string {
	return fmt.Sprintf("degenerate fit for %s (n=%d, params=%d): %s", e.Model, e.N, e.Params, e.Reason)
}

// ZeroVarianceError reports a constant series where a correlation needs variation.
type ZeroVarianceError struct {
	Name string
}

func (e *ZeroVarianceError) Error() string {
	return fmt.Sprintf("%s has zero variance", e.Name)
}
