package stats

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Mean returns the mean of the non-NaN values of x, or 0 when none exist.
func Mean(x []float64) float64 {
	present := dropNaN(x)
	if len(present) == 0 {
		return 0
	}
	return stat.Mean(present, nil)
}

// Std returns the population standard deviation of the non-NaN values of x.
func Std(x []float64) float64 {
	present := dropNaN(x)
	if len(present) < 2 {
		return 0
	}
	_, v := stat.PopMeanVariance(present, nil)
	return math.Sqrt(v)
}

func dropNaN(x []float64) []float64 {
	out := make([]float64, 0, len(x))
	for _, v := range x {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}
