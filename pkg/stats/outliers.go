package stats

import (
	"errors"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// Clipper bounds each column to percentile limits learned at fit time. Rows
// are never dropped; out-of-range values are replaced by the nearest bound.
type Clipper struct {
	Low  []float64
	High []float64
}

// FitClipper learns the lower and upper percentiles (0..100) of every column
// of X.
func FitClipper(X [][]float64, lower, upper float64) (*Clipper, error) {
	if len(X) == 0 {
		return nil, errors.New("stats: cannot fit clipper on empty matrix")
	}
	if lower < 0 || upper > 100 || lower >= upper {
		return nil, errors.New("stats: clip percentiles must satisfy 0 <= lower < upper <= 100")
	}
	cols := len(X[0])
	c := &Clipper{Low: make([]float64, cols), High: make([]float64, cols)}
	col := make([]float64, len(X))
	for j := range cols {
		for i := range X {
			col[i] = X[i][j]
		}
		slices.Sort(col)
		c.Low[j] = Percentile(col, lower)
		c.High[j] = Percentile(col, upper)
	}
	return c, nil
}

// Transform returns a clipped copy of X.
func (c *Clipper) Transform(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i, src := range X {
		row := make([]float64, len(src))
		for j, v := range src {
			row[j] = min(max(v, c.Low[j]), c.High[j])
		}
		out[i] = row
	}
	return out
}

// Percentile returns the p-th percentile (0..100) of an ascending slice.
func Percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	return stat.Quantile(p/100, stat.Empirical, sorted, nil)
}
