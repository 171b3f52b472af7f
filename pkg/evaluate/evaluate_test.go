package evaluate_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwood803/MLNET-ThriceTraining/pkg/data"
	"github.com/jwood803/MLNET-ThriceTraining/pkg/evaluate"
	"github.com/jwood803/MLNET-ThriceTraining/pkg/model"
	"github.com/jwood803/MLNET-ThriceTraining/pkg/pipeline"
	"github.com/jwood803/MLNET-ThriceTraining/pkg/schema"
	"github.com/jwood803/MLNET-ThriceTraining/pkg/testutil"
)

const label = "median_house_value"

func fitted(t *testing.T) (*pipeline.FittedModel, *data.Partition, schema.LoaderOptions) {
	t.Helper()
	train, _, test := testutil.HousingSplit(t, t.TempDir(), 60, 10, 20)
	inf, err := schema.Infer(train, schema.InferOptions{HasHeader: true, LabelIndex: testutil.HousingLabelIndex})
	require.NoError(t, err)
	tr, err := data.Load(inf.Options, "train", train)
	require.NoError(t, err)
	te, err := data.Load(inf.Options, "test", test)
	require.NoError(t, err)

	est := pipeline.Estimator{
		Featurizer: pipeline.FeaturizerSpec{Standardize: true},
		Learner:    model.Spec{Kind: model.KindRidge, Lambda: 0.01},
	}
	m, err := est.Fit(context.Background(), tr, label)
	require.NoError(t, err)
	return m, te, inf.Options
}

func TestRegression_Deterministic(t *testing.T) {
	m, te, _ := fitted(t)

	a, err := evaluate.Regression(m, te, label)
	require.NoError(t, err)
	b, err := evaluate.Regression(m, te, label)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, 20, a.Rows)
	assert.Greater(t, a.RSquared, 0.5)
	assert.InDelta(t, math.Sqrt(a.MeanSquaredError), a.RootMeanSquaredError, 1e-12)
	assert.Equal(t, a.MeanSquaredError, a.LossFunction)
}

func TestRegression_MissingLabel(t *testing.T) {
	m, te, _ := fitted(t)

	_, err := evaluate.Regression(m, te, "price")
	require.Error(t, err)

	var evalErr *evaluate.Error
	require.ErrorAs(t, err, &evalErr)
	assert.Equal(t, "test", evalErr.Partition)
	assert.ErrorIs(t, err, evaluate.ErrMissingLabel)
}

func TestRegression_IncompatibleSchema(t *testing.T) {
	m, _, _ := fitted(t)

	path := testutil.WriteCSV(t, t.TempDir(), "narrow.csv", []string{"rooms", label}, [][]string{{"3", "100"}, {"4", "120"}})
	inf, err := schema.Infer(path, schema.InferOptions{HasHeader: true, LabelIndex: 1})
	require.NoError(t, err)
	narrow, err := data.Load(inf.Options, "narrow", path)
	require.NoError(t, err)

	_, err = evaluate.Regression(m, narrow, label)
	assert.ErrorIs(t, err, evaluate.ErrSchemaMismatch)
	assert.ErrorIs(t, err, pipeline.ErrSchemaMismatch)
}

func TestRegression_EmptyPartition(t *testing.T) {
	m, _, opts := fitted(t)
	path := testutil.WriteCSV(t, t.TempDir(), "empty.csv", testutil.HousingHeader, nil)
	empty, err := data.Load(opts, "empty", path)
	require.NoError(t, err)

	_, err = evaluate.Regression(m, empty, label)
	assert.ErrorIs(t, err, evaluate.ErrEmptyPartition)
}

func TestFromPredictions(t *testing.T) {
	y := []float64{1, 2, 3, 4}
	perfect := evaluate.FromPredictions(y, y)
	assert.Equal(t, 1.0, perfect.RSquared)
	assert.Zero(t, perfect.MeanAbsoluteError)

	off := evaluate.FromPredictions(y, []float64{2, 3, 4, 5})
	assert.Equal(t, 1.0, off.MeanAbsoluteError)
	assert.Equal(t, 1.0, off.MeanSquaredError)
	assert.InDelta(t, 0.2, off.RSquared, 1e-12)

	last := evaluate.FromPredictions(y, []float64{1, 2, 3, 5})
	assert.InDelta(t, 0.25, last.MeanSquaredError, 1e-12)
	assert.InDelta(t, 0.25, last.MeanAbsoluteError, 1e-12)
	assert.InDelta(t, 0.5, last.RootMeanSquaredError, 1e-12)
	assert.InDelta(t, 0.8, last.RSquared, 1e-12)
	assert.Equal(t, last.MeanSquaredError, last.LossFunction)
	assert.Equal(t, 4, last.Rows)
}

func TestFromPredictions_Degenerate(t *testing.T) {
	constant := evaluate.FromPredictions([]float64{2, 2}, []float64{1, 3})
	assert.Zero(t, constant.RSquared)
	assert.Equal(t, 1.0, constant.MeanSquaredError)

	assert.Equal(t, evaluate.Metrics{}, evaluate.FromPredictions(nil, nil))
}

func TestParseMetric(t *testing.T) {
	for in, want := range map[string]evaluate.Metric{
		"RSquared": evaluate.RSquared,
		"r2":       evaluate.RSquared,
		" MAE ":    evaluate.MeanAbsoluteError,
		"mse":      evaluate.MeanSquaredError,
		"RMSE":     evaluate.RootMeanSquaredError,
	} {
		got, err := evaluate.ParseMetric(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := evaluate.ParseMetric("accuracy")
	assert.Error(t, err)

	assert.True(t, evaluate.RSquared.Better(0.9, 0.8))
	assert.True(t, evaluate.MeanAbsoluteError.Better(0.1, 0.2))
	assert.False(t, evaluate.RootMeanSquaredError.Better(0.2, 0.2))
	assert.Equal(t, 3.0, evaluate.MeanSquaredError.Of(evaluate.Metrics{MeanSquaredError: 3}))
}

func TestScore_KeepsPredictions(t *testing.T) {
	m, te, _ := fitted(t)

	ev, err := evaluate.Score(m, te, label)
	require.NoError(t, err)
	require.Len(t, ev.Predicted, 20)

	want, _ := te.Numeric(label)
	assert.Equal(t, want, ev.Actual)
	assert.Equal(t, evaluate.FromPredictions(ev.Actual, ev.Predicted), ev.Metrics)
}
