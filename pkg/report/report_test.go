package report_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwood803/MLNET-ThriceTraining/pkg/evaluate"
	"github.com/jwood803/MLNET-ThriceTraining/pkg/model"
	"github.com/jwood803/MLNET-ThriceTraining/pkg/pipeline"
	"github.com/jwood803/MLNET-ThriceTraining/pkg/refit"
	"github.com/jwood803/MLNET-ThriceTraining/pkg/report"
	"github.com/jwood803/MLNET-ThriceTraining/pkg/search"
)

func stages() []refit.StageResult {
	y := []float64{1, 2, 3, 4}
	ev1 := &evaluate.Evaluation{Actual: y, Predicted: []float64{1.5, 2, 2.5, 4}}
	ev1.Metrics = evaluate.FromPredictions(ev1.Actual, ev1.Predicted)
	ev2 := &evaluate.Evaluation{Actual: y, Predicted: y}
	ev2.Metrics = evaluate.FromPredictions(y, y)
	return []refit.StageResult{
		{Stage: 1, TrainPartition: refit.Train, TrainRows: 100, EvalPartition: refit.Test, Evaluation: ev1, Duration: time.Second},
		{Stage: 2, TrainPartition: refit.TrainValidation, TrainRows: 120, EvalPartition: refit.Test, Evaluation: ev2},
		{Stage: 3, TrainPartition: refit.TrainValidationTest, TrainRows: 140},
	}
}

func TestConsole_PrintsEvaluatedStagesOnly(t *testing.T) {
	var buf bytes.Buffer
	c := report.Console{W: &buf}
	for _, s := range stages() {
		c.Stage(s)
	}
	assert.Equal(t, "R^2: 0.9\n\nR^2: 1\n\n", buf.String())
}

func TestSummary(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, report.Summary(&buf, &refit.Result{Stages: stages()}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[1], "test (4)")
	assert.Contains(t, lines[2], "1.0000")
	assert.Contains(t, lines[3], "train+validation+test")
	assert.Contains(t, lines[3], "-")
}

func TestTrials_BestFirst(t *testing.T) {
	est := func(k model.Kind) pipeline.Estimator { return pipeline.Estimator{Learner: model.Spec{Kind: k}} }
	res := &search.Result{Trials: []search.Trial{
		{ID: 0, Estimator: est(model.KindRidge), Score: 0.7},
		{ID: 1, Estimator: est(model.KindTree), Score: 0.9},
		{ID: 2, Estimator: est(model.KindKNN), Err: errors.New("boom")},
		{ID: 3, Estimator: est(model.KindSGD), Score: 0.8},
	}}

	var buf bytes.Buffer
	require.NoError(t, report.Trials(&buf, res, evaluate.RSquared.Better, 2))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[1], "1 "))
	assert.True(t, strings.HasPrefix(lines[2], "3 "))
	assert.Contains(t, lines[3], "4 trials, 1 failed")
}

func TestPlotPredictions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pred.png")
	require.NoError(t, report.PlotPredictions(path, stages()))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	assert.Error(t, report.PlotPredictions(path, stages()[2:]))
}
