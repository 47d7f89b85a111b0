package stats

import (
	"fmt"
	"math"
)

// Series is a named column of observations.
type Series struct {
	Name   string
	Values []float64
}

// NewSeries is a convenience constructor.
func NewSeries(name string, values []float64) Series {
	return Series{Name: name, Values: values}
}

// Len returns the number of observations.
func (s Series) Len() int { return len(s.Values) }

func checkFinite(s Series) error {
	for i, v := range s.Values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%s row %d: %w", s.Name, i+1, ErrNonFinite)
		}
	}
	return nil
}

func checkAligned(series ...Series) error {
	if len(series) == 0 {
		return nil
	}
	n := series[0].Len()
	for _, s := range series[1:] {
		if s.Len() != n {
			return fmt.Errorf("length mismatch: %s has %d values, %s has %d", series[0].Name, n, s.Name, s.Len())
		}
	}
	return nil
}
