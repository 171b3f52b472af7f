package refit_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwood803/MLNET-ThriceTraining/pkg/data"
	"github.com/jwood803/MLNET-ThriceTraining/pkg/evaluate"
	"github.com/jwood803/MLNET-ThriceTraining/pkg/model"
	"github.com/jwood803/MLNET-ThriceTraining/pkg/persist"
	"github.com/jwood803/MLNET-ThriceTraining/pkg/pipeline"
	"github.com/jwood803/MLNET-ThriceTraining/pkg/refit"
	"github.com/jwood803/MLNET-ThriceTraining/pkg/schema"
	"github.com/jwood803/MLNET-ThriceTraining/pkg/search"
	"github.com/jwood803/MLNET-ThriceTraining/pkg/session"
	"github.com/jwood803/MLNET-ThriceTraining/pkg/testutil"
)

const label = "median_house_value"

// countingSearcher records calls and delegates to next.
type countingSearcher struct {
	next  refit.Searcher
	calls int
	rows  []int
}

func (c *countingSearcher) Execute(ctx context.Context, train, valid *data.Partition, label string) (*search.Result, error) {
	c.calls++
	c.rows = append(c.rows, train.Rows(), valid.Rows())
	return c.next.Execute(ctx, train, valid, label)
}

func settings() search.Settings {
	return search.Settings{
		MaxExperimentTime: 60 * time.Second,
		Metric:            evaluate.RSquared,
		MaxTrials:         5,
	}
}

type run struct {
	dir     string
	sources refit.Sources
	opts    refit.Options
	sess    *session.Session
}

func newRun(t *testing.T) run {
	t.Helper()
	dir := t.TempDir()
	train, valid, test := testutil.HousingSplit(t, dir, 100, 20, 20)
	src := refit.Sources{Train: train, Validation: valid, Test: test}
	return run{
		dir:     dir,
		sources: src,
		sess:    session.New(nil, 11),
		opts: refit.Options{
			Sources:   src,
			Infer:     schema.InferOptions{HasHeader: true, Separator: ',', LabelIndex: testutil.HousingLabelIndex},
			ModelPath: filepath.Join(dir, "house_model.zip"),
		},
	}
}

func TestRun_ThreeStages(t *testing.T) {
	r := newRun(t)
	searcher := &countingSearcher{next: search.NewExperiment(r.sess, settings())}
	var seen []refit.StageResult

	res, err := refit.New(r.sess, r.opts, search.Settings{},
		refit.WithSearcher(searcher),
		refit.WithObserver(func(s refit.StageResult) { seen = append(seen, s) }),
	).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, searcher.calls, "stages 2 and 3 never search")
	assert.Equal(t, []int{100, 20}, searcher.rows)
	require.Len(t, res.Stages, 3)
	assert.Equal(t, res.Stages, seen)

	s1, s2, s3 := res.Stages[0], res.Stages[1], res.Stages[2]

	assert.Equal(t, 100, s1.TrainRows)
	assert.Equal(t, []string{r.sources.Train}, s1.TrainSources)
	require.NotNil(t, s1.Metrics())
	assert.Equal(t, 20, s1.Metrics().Rows)
	assert.Equal(t, refit.Test, s1.EvalPartition)

	assert.Equal(t, 120, s2.TrainRows)
	assert.Equal(t, []string{r.sources.Train, r.sources.Validation}, s2.TrainSources)
	require.NotNil(t, s2.Metrics())
	assert.Equal(t, 20, s2.Metrics().Rows)
	assert.Equal(t, s1.Evaluation.Actual, s2.Evaluation.Actual, "both stages score the same test rows")

	assert.Equal(t, 140, s3.TrainRows)
	assert.Equal(t, []string{r.sources.Train, r.sources.Validation, r.sources.Test}, s3.TrainSources)
	assert.Nil(t, s3.Metrics())
	assert.Nil(t, s3.Evaluation)

	for _, s := range []refit.StageResult{s1, s2} {
		assert.NotContains(t, s.TrainSources, r.sources.Test)
	}
	assert.Equal(t, res.Search.Best.Estimator, s1.Estimator)
	assert.Equal(t, s1.Estimator, s2.Estimator)
	assert.Equal(t, s1.Estimator, s3.Estimator)
	assert.Equal(t, s1.Estimator, res.Final.Estimator())
	assert.Equal(t, 140, res.Final.TrainRows())

	a, err := persist.Load(res.ArtifactPath)
	require.NoError(t, err)
	assert.Equal(t, 10, a.Schema.Len())
	assert.Len(t, a.Schema.Features(), 9)
	assert.Equal(t, label, a.Schema.Label().Name)
	assert.Equal(t, r.sess.RunID, a.Manifest.RunID)
	assert.Equal(t, 140, a.Manifest.TrainRows)
	require.Len(t, a.Manifest.Stages, 3)
	assert.Nil(t, a.Manifest.Stages[2].Metrics)
	assert.Equal(t, s2.Metrics().RSquared, a.Manifest.Stages[1].Metrics.RSquared)
}

func TestRun_MissingTestSource(t *testing.T) {
	r := newRun(t)
	r.opts.Sources.Test = filepath.Join(r.dir, "absent.csv")
	searcher := &countingSearcher{next: search.NewExperiment(r.sess, settings())}
	var seen []refit.StageResult

	_, err := refit.New(r.sess, r.opts, search.Settings{},
		refit.WithSearcher(searcher),
		refit.WithObserver(func(s refit.StageResult) { seen = append(seen, s) }),
	).Run(context.Background())

	var stageErr *refit.StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, 1, stageErr.Stage)
	var loadErr *data.LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, r.opts.Sources.Test, loadErr.Path)

	assert.Equal(t, 1, searcher.calls, "search ran before the test load")
	assert.Empty(t, seen, "no stage metric reported")
	assert.NoFileExists(t, r.opts.ModelPath)
}

func TestRun_SearchFailureIsStageOne(t *testing.T) {
	r := newRun(t)
	st := settings()
	st.Metric = "accuracy"

	_, err := refit.New(r.sess, r.opts, st).Run(context.Background())

	var stageErr *refit.StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, 1, stageErr.Stage)
	var cfgErr *search.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

// fixedSearcher returns a prepared result.
type fixedSearcher struct{ best search.BestRun }

func (f fixedSearcher) Execute(ctx context.Context, train, valid *data.Partition, label string) (*search.Result, error) {
	m, err := pipeline.Estimator{Learner: model.Spec{Kind: model.KindRidge, Lambda: 1}}.Fit(ctx, train, label)
	if err != nil {
		return nil, err
	}
	best := f.best
	best.Model = m
	return &search.Result{Best: best}, nil
}

func TestRun_RefitFailureAbortsLaterStages(t *testing.T) {
	r := newRun(t)
	broken := pipeline.Estimator{Learner: model.Spec{Kind: model.KindRidge, Lambda: -1}}
	var seen []int

	_, err := refit.New(r.sess, r.opts, search.Settings{},
		refit.WithSearcher(fixedSearcher{best: search.BestRun{Estimator: broken}}),
		refit.WithObserver(func(s refit.StageResult) { seen = append(seen, s.Stage) }),
	).Run(context.Background())

	var stageErr *refit.StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, 2, stageErr.Stage)
	assert.Equal(t, []int{1}, seen)
	assert.NoFileExists(t, r.opts.ModelPath)
}

func TestRun_PersistenceFailure(t *testing.T) {
	r := newRun(t)
	r.opts.ModelPath = filepath.Join(r.dir, "no", "such", "dir", "model.zip")

	res, err := refit.New(r.sess, r.opts, settings()).Run(context.Background())
	assert.Nil(t, res)

	var perr *persist.Error
	require.ErrorAs(t, err, &perr)
	var stageErr *refit.StageError
	assert.NotErrorAs(t, err, &stageErr)
}

func TestRun_InferenceFailure(t *testing.T) {
	r := newRun(t)
	r.opts.Infer.LabelIndex = 42

	_, err := refit.New(r.sess, r.opts, settings()).Run(context.Background())
	var infErr *schema.InferenceError
	assert.ErrorAs(t, err, &infErr)
}

func TestRun_ExplicitColumns(t *testing.T) {
	r := newRun(t)
	for i, name := range testutil.HousingHeader {
		c := schema.Column{Name: name, Index: i, Kind: schema.Numeric, Role: schema.Feature}
		switch i {
		case testutil.HousingLabelIndex:
			c.Role = schema.Label
		case len(testutil.HousingHeader) - 1:
			c.Kind = schema.Categorical
		}
		r.opts.Columns = append(r.opts.Columns, c)
	}
	r.opts.ModelPath = ""

	res, err := refit.New(r.sess, r.opts, settings()).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, r.opts.Columns, res.Schema.Columns())
	assert.Empty(t, res.ArtifactPath)
	assert.Equal(t, 140, res.Final.TrainRows())
}
