// Package evaluate scores fitted models against held-out partitions.
package evaluate

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/jwood803/MLNET-ThriceTraining/pkg/data"
	"github.com/jwood803/MLNET-ThriceTraining/pkg/schema"
)

var (
	ErrMissingLabel   = errors.New("label column missing")
	ErrSchemaMismatch = errors.New("partition schema incompatible with model")
	ErrEmptyPartition = errors.New("partition has no rows")
)

// Error is returned when a model cannot be evaluated on a partition.
type Error struct {
	Partition string
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("evaluate: partition %q: %v", e.Partition, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Metrics is the quality record of one (model, partition) pair.
type Metrics struct {
	MeanAbsoluteError    float64 `yaml:"mean_absolute_error"`
	MeanSquaredError     float64 `yaml:"mean_squared_error"`
	RootMeanSquaredError float64 `yaml:"root_mean_squared_error"`
	LossFunction         float64 `yaml:"loss_function"`
	RSquared             float64 `yaml:"r_squared"`
	Rows                 int     `yaml:"rows"`
}

// Predictor is the part of a fitted model the evaluator needs.
type Predictor interface {
	Schema() schema.Schema
	CheckCompatible(schema.Schema) error
	Predict(*data.Partition) ([]float64, error)
}

// Evaluation keeps the aligned truth and predictions behind a Metrics record.
type Evaluation struct {
	Metrics   Metrics
	Actual    []float64
	Predicted []float64
}

// Regression predicts every row of p and compares against the label column.
// It reads m and p only.
func Regression(m Predictor, p *data.Partition, label string) (Metrics, error) {
	ev, err := Score(m, p, label)
	if err != nil {
		return Metrics{}, err
	}
	return ev.Metrics, nil
}

// Score is Regression that also returns the predictions.
func Score(m Predictor, p *data.Partition, label string) (*Evaluation, error) {
	fail := func(err error) (*Evaluation, error) {
		return nil, &Error{Partition: p.Name(), Err: err}
	}
	y, ok := p.Numeric(label)
	if !ok || p.Schema().Label().Name != label {
		return fail(fmt.Errorf("%w: %q", ErrMissingLabel, label))
	}
	if want := m.Schema().Label().Name; want != label {
		return fail(fmt.Errorf("%w: model label is %q, asked for %q", ErrSchemaMismatch, want, label))
	}
	if err := m.CheckCompatible(p.Schema()); err != nil {
		return fail(fmt.Errorf("%w: %w", ErrSchemaMismatch, err))
	}
	if p.Rows() == 0 {
		return fail(ErrEmptyPartition)
	}
	pred, err := m.Predict(p)
	if err != nil {
		return fail(err)
	}
	if len(pred) != len(y) {
		return fail(fmt.Errorf("%w: %d predictions for %d rows", ErrSchemaMismatch, len(pred), len(y)))
	}
	return &Evaluation{Metrics: FromPredictions(y, pred), Actual: y, Predicted: pred}, nil
}

// FromPredictions builds a Metrics record from aligned truth and predictions.
// Empty input yields a zero record. A constant target reports an R² of 0.
func FromPredictions(y, pred []float64) Metrics {
	n := len(y)
	if n == 0 {
		return Metrics{}
	}
	mean := stat.Mean(y, nil)
	var abs, res, tot float64
	for i, v := range y {
		d := v - pred[i]
		abs += math.Abs(d)
		res += d * d
		c := v - mean
		tot += c * c
	}
	mse := res / float64(n)
	r2 := 0.0
	if tot != 0 {
		r2 = 1 - res/tot
	}
	return Metrics{
		MeanAbsoluteError:    abs / float64(n),
		MeanSquaredError:     mse,
		RootMeanSquaredError: math.Sqrt(mse),
		LossFunction:         mse,
		RSquared:             r2,
		Rows:                 n,
	}
}
