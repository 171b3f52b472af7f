package evaluate

import (
	"fmt"
	"strings"
)

// Metric names a regression metric used to rank candidates.
type Metric string

const (
	RSquared             Metric = "r2"
	MeanAbsoluteError    Metric = "mae"
	MeanSquaredError     Metric = "mse"
	RootMeanSquaredError Metric = "rmse"
)

// ParseMetric accepts the canonical names plus a few spellings an operator is
// likely to type ("RSquared", "r^2", "r_squared").
func ParseMetric(s string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "r2", "rsquared", "r_squared", "r^2":
		return RSquared, nil
	case "mae", "meanabsoluteerror":
		return MeanAbsoluteError, nil
	case "mse", "meansquarederror":
		return MeanSquaredError, nil
	case "rmse", "rootmeansquarederror":
		return RootMeanSquaredError, nil
	}
	return "", fmt.Errorf("evaluate: unknown metric %q", s)
}

func (m Metric) Valid() bool {
	switch m {
	case RSquared, MeanAbsoluteError, MeanSquaredError, RootMeanSquaredError:
		return true
	}
	return false
}

// HigherIsBetter reports the ranking direction of m.
func (m Metric) HigherIsBetter() bool { return m == RSquared }

// Better reports whether score a ranks strictly ahead of b under m.
func (m Metric) Better(a, b float64) bool {
	if m.HigherIsBetter() {
		return a > b
	}
	return a < b
}

// Of picks the value of m out of r.
func (m Metric) Of(r Metrics) float64 {
	switch m {
	case MeanAbsoluteError:
		return r.MeanAbsoluteError
	case MeanSquaredError:
		return r.MeanSquaredError
	case RootMeanSquaredError:
		return r.RootMeanSquaredError
	}
	return r.RSquared
}
