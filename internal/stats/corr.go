package stats

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// CorrMatrix holds a symmetric Pearson correlation matrix.
type CorrMatrix struct {
	Columns []string    `json:"columns"`
	Values  [][]float64 `json:"values"` // row-major, Values[i][j]
}

// At returns the coefficient for the named pair.
func (m *CorrMatrix) At(a, b string) (float64, bool) {
	i, j := -1, -1
	for k, c := range m.Columns {
		if c == a {
			i = k
		}
		if c == b {
			j = k
		}
	}
	if i < 0 || j < 0 {
		return 0, false
	}
	return m.Values[i][j], true
}

// PairCorr is a simple correlation pair summary.
type PairCorr struct {
	A string  `json:"a"`
	B string  `json:"b"`
	R float64 `json:"r"`
}

// Pairs lists the upper triangle of the matrix in column order.
func (m *CorrMatrix) Pairs() []PairCorr {
	var out []PairCorr
	for i := range m.Columns {
		for j := i + 1; j < len(m.Columns); j++ {
			out = append(out, PairCorr{A: m.Columns[i], B: m.Columns[j], R: m.Values[i][j]})
		}
	}
	return out
}

// Pearson returns the correlation coefficient of two aligned series.
func Pearson(x, y Series) (float64, error) {
	if err := validateForCorrelation(x, y); err != nil {
		return 0, err
	}
	return clamp(stat.Correlation(x.Values, y.Values, nil)), nil
}

// Correlate builds the Pearson matrix across the given series. The diagonal
// is exactly 1 and Values[i][j] == Values[j][i].
func Correlate(series ...Series) (*CorrMatrix, error) {
	if err := validateForCorrelation(series...); err != nil {
		return nil, err
	}
	k := len(series)
	m := &CorrMatrix{Columns: make([]string, k), Values: make([][]float64, k)}
	for i, s := range series {
		m.Columns[i] = s.Name
		m.Values[i] = make([]float64, k)
		m.Values[i][i] = 1
	}
	for i := 0; i < k; i++ {
		for j := i + 1; j < k; j++ {
			r := clamp(stat.Correlation(series[i].Values, series[j].Values, nil))
			m.Values[i][j] = r
			m.Values[j][i] = r
		}
	}
	return m, nil
}

// PartialCorrelation is the correlation of y and x after regressing the
// control out of both: the Pearson coefficient of the two residual vectors
// from y ~ 1 + control and x ~ 1 + control.
func PartialCorrelation(y, x, control Series) (float64, error) {
	ry, err := Fit(y, control)
	if err != nil {
		return 0, err
	}
	rx, err := Fit(x, control)
	if err != nil {
		return 0, err
	}
	resY := Series{Name: fmt.Sprintf("residual(%s | %s)", y.Name, control.Name), Values: ry.Residuals}
	resX := Series{Name: fmt.Sprintf("residual(%s | %s)", x.Name, control.Name), Values: rx.Residuals}
	return Pearson(resX, resY)
}

func validateForCorrelation(series ...Series) error {
	if len(series) == 0 {
		return fmt.Errorf("correlation: no columns: %w", ErrInsufficientData)
	}
	if err := checkAligned(series...); err != nil {
		return fmt.Errorf("correlation: %w", err)
	}
	if n := series[0].Len(); n < 2 {
		return fmt.Errorf("correlation: %d observations: %w", n, ErrInsufficientData)
	}
	for _, s := range series {
		if err := checkFinite(s); err != nil {
			return fmt.Errorf("correlation: %w", err)
		}
		if stat.Variance(s.Values, nil) == 0 {
			return &ZeroVarianceError{Name: s.Name}
		}
	}
	return nil
}

func clamp(r float64) float64 {
	if r > 1 {
		return 1
	}
	if r < -1 {
		return -1
	}
	return r
}
