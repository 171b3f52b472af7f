package dataprep

import (
	"math"

	"github.com/jwood803/MLNET-ThriceTraining/pkg/stats"
)

// MeanImputer replaces missing numeric values with the training mean.
type MeanImputer struct {
	Mean float64
}

// FitMeanImputer computes the mean of the non-missing values of col.
func FitMeanImputer(col []float64) MeanImputer {
	return MeanImputer{Mean: stats.Mean(col)}
}

// Apply returns v, or the training mean when v is NaN.
func (m MeanImputer) Apply(v float64) float64 {
	if math.IsNaN(v) {
		return m.Mean
	}
	return v
}
