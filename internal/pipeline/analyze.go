package pipeline

import (
	"errors"
	"fmt"

	"github.com/KaramelBytes/sitelens-cli/internal/stats"
)

// Analysis holds the four read-only computations over a master table.
type Analysis struct {
	Correlation        *stats.CorrMatrix `json:"correlation"`
	Simple             *stats.Regression `json:"simple_regression"`
	Controlled         *stats.Regression `json:"controlled_regression"`
	PartialCorrelation float64           `json:"partial_correlation"`
}

// AnalysisError names the analysis step that failed.
type AnalysisError struct {
	Step string
	Err  error
}

func (e *AnalysisError) Error() string { return fmt.Sprintf("%s: %v", e.Step, e.Err) }

func (e *AnalysisError) Unwrap() error { return e.Err }

// Kind classifies the underlying statistics failure.
func (e *AnalysisError) Kind() string {
	var dfe *stats.DegenerateFitError
	var zv *stats.ZeroVarianceError
	switch {
	case errors.As(e.Err, &dfe):
		return "degenerate_fit"
	case errors.As(e.Err, &zv):
		return "zero_variance"
	case errors.Is(e.Err, stats.ErrInsufficientData):
		return "insufficient_data"
	case errors.Is(e.Err, stats.ErrNonFinite):
		return "non_finite"
	default:
		return "analysis"
	}
}

// Analysis step names.
const (
	StepCorrelation = "correlation"
	StepSimple      = "simple regression"
	StepControlled  = "controlled regression"
	StepPartial     = "partial correlation"
)

// Analyze runs both regressions, the partial correlation and the correlation
// matrix. The fits run first so a constant regressor surfaces as a
// DegenerateFitError. The first failing step aborts.
func Analyze(m *MasterTable) (*Analysis, error) {
	cols := map[string]stats.Series{}
	for _, name := range AnalysisColumns() {
		v, ok := m.Column(name)
		if !ok {
			return nil, &AnalysisError{Step: StepCorrelation, Err: fmt.Errorf("column %s not in master table", name)}
		}
		cols[name] = stats.NewSeries(name, v)
	}
	sv := cols[ColScheduleVariance]
	util := cols[ColUtilisationAvg]
	spend := cols[ColTotalSpend]
	shrink := cols[ColTotalShrinkage]

	out := &Analysis{}
	var err error
	if out.Simple, err = stats.Fit(spend, shrink); err != nil {
		return nil, &AnalysisError{Step: StepSimple, Err: err}
	}
	if out.Controlled, err = stats.Fit(shrink, sv, spend); err != nil {
		return nil, &AnalysisError{Step: StepControlled, Err: err}
	}
	if out.PartialCorrelation, err = stats.PartialCorrelation(shrink, sv, spend); err != nil {
		return nil, &AnalysisError{Step: StepPartial, Err: err}
	}
	if out.Correlation, err = stats.Correlate(sv, util, spend, shrink); err != nil {
		return nil, &AnalysisError{Step: StepCorrelation, Err: err}
	}
	return out, nil
}
