// Package refit drives the three-stage training workflow: search and score on
// the test partition, refit on train+validation and score again, then refit
// on all data for deployment and persist the result.
package refit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jwood803/MLNET-ThriceTraining/pkg/data"
	"github.com/jwood803/MLNET-ThriceTraining/pkg/evaluate"
	"github.com/jwood803/MLNET-ThriceTraining/pkg/persist"
	"github.com/jwood803/MLNET-ThriceTraining/pkg/pipeline"
	"github.com/jwood803/MLNET-ThriceTraining/pkg/schema"
	"github.com/jwood803/MLNET-ThriceTraining/pkg/search"
	"github.com/jwood803/MLNET-ThriceTraining/pkg/session"
)

// Partition names.
const (
	Train               = "train"
	Validation          = "validation"
	Test                = "test"
	TrainValidation     = "train+validation"
	TrainValidationTest = "train+validation+test"
)

// StageError tags a failure with the stage that raised it. The remaining
// stages are not run.
type StageError struct {
	Stage int
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("refit: stage %d: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Sources are the raw data locations of the three logical partitions.
type Sources struct {
	Train      string
	Validation string
	Test       string
}

// Options configure a run.
type Options struct {
	Sources Sources
	// Infer is used when Columns is empty. Infer.LabelIndex picks the label.
	Infer schema.InferOptions
	// Columns, when set, replaces inference.
	Columns []schema.Column
	// ModelPath is where the stage 3 model is written. Empty skips saving.
	ModelPath string
}

// Searcher is the model selection collaborator.
type Searcher interface {
	Execute(ctx context.Context, train, valid *data.Partition, label string) (*search.Result, error)
}

// StageResult describes one completed stage. Evaluation is nil for stage 3.
type StageResult struct {
	Stage          int
	Estimator      pipeline.Estimator
	TrainPartition string
	TrainSources   []string
	TrainRows      int
	EvalPartition  string
	Evaluation     *evaluate.Evaluation
	Duration       time.Duration
}

// Metrics returns the stage metrics, or nil when the stage was not evaluated.
func (r StageResult) Metrics() *evaluate.Metrics {
	if r.Evaluation == nil {
		return nil
	}
	m := r.Evaluation.Metrics
	return &m
}

// Result is the outcome of a complete run.
type Result struct {
	RunID        string
	Schema       schema.Schema
	Label        string
	Search       *search.Result
	Stages       []StageResult
	Final        *pipeline.FittedModel
	ArtifactPath string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithObserver registers fn to be called after every completed stage.
func WithObserver(fn func(StageResult)) Option {
	return func(o *Orchestrator) { o.observers = append(o.observers, fn) }
}

// WithSearcher replaces the search collaborator.
func WithSearcher(s Searcher) Option {
	return func(o *Orchestrator) { o.searcher = s }
}

// Orchestrator runs the workflow once.
type Orchestrator struct {
	sess      *session.Session
	opts      Options
	searcher  Searcher
	observers []func(StageResult)
}

// New builds an orchestrator. Without WithSearcher it runs a
// search.Experiment with settings.
func New(sess *session.Session, opts Options, settings search.Settings, options ...Option) *Orchestrator {
	o := &Orchestrator{sess: sess, opts: opts}
	for _, fn := range options {
		fn(o)
	}
	if o.searcher == nil {
		o.searcher = search.NewExperiment(sess, settings)
	}
	return o
}

// Schema derives the schema and loader options from Columns or by inference.
func (o *Orchestrator) Schema() (*schema.Inference, error) {
	if len(o.opts.Columns) > 0 {
		sep := o.opts.Infer.Separator
		if sep == 0 {
			sep = ','
		}
		return schema.FromColumns(o.opts.Columns, sep, o.opts.Infer.HasHeader)
	}
	return schema.Infer(o.opts.Sources.Train, o.opts.Infer)
}

// Run executes inference, the three stages and persistence in order and stops
// at the first failure.
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	log := o.sess.Log.With("component", "refit")
	src := o.opts.Sources

	inf, err := o.Schema()
	if err != nil {
		return nil, err
	}
	s := inf.Schema
	label := s.Label().Name
	log.Info("schema ready", "columns", s.Len(), "label", label, "features", len(s.Features()))

	res := &Result{RunID: o.sess.RunID, Schema: s, Label: label}

	// Stage 1: search on train, rank on validation, score on test.
	start := time.Now()
	best, test, ev, err := o.stageOne(ctx, inf.Options, label, res)
	if err != nil {
		return nil, &StageError{Stage: 1, Err: err}
	}
	est := best.Estimator
	o.emit(res, StageResult{
		Stage:          1,
		Estimator:      est,
		TrainPartition: Train,
		TrainSources:   best.Model.TrainSources(),
		TrainRows:      best.Model.TrainRows(),
		EvalPartition:  test.Name(),
		Evaluation:     ev,
		Duration:       time.Since(start),
	})

	// Stage 2: same estimator, train+validation loaded fresh, same test rows.
	start = time.Now()
	m2, err := o.fit(ctx, est, inf.Options, TrainValidation, label, src.Train, src.Validation)
	if err != nil {
		return nil, &StageError{Stage: 2, Err: err}
	}
	ev, err = evaluate.Score(m2, test, label)
	if err != nil {
		return nil, &StageError{Stage: 2, Err: err}
	}
	o.emit(res, StageResult{
		Stage:          2,
		Estimator:      est,
		TrainPartition: TrainValidation,
		TrainSources:   m2.TrainSources(),
		TrainRows:      m2.TrainRows(),
		EvalPartition:  test.Name(),
		Evaluation:     ev,
		Duration:       time.Since(start),
	})

	// Stage 3: everything, not evaluated.
	start = time.Now()
	m3, err := o.fit(ctx, est, inf.Options, TrainValidationTest, label, src.Train, src.Validation, src.Test)
	if err != nil {
		return nil, &StageError{Stage: 3, Err: err}
	}
	o.emit(res, StageResult{
		Stage:          3,
		Estimator:      est,
		TrainPartition: TrainValidationTest,
		TrainSources:   m3.TrainSources(),
		TrainRows:      m3.TrainRows(),
		Duration:       time.Since(start),
	})
	res.Final = m3

	if o.opts.ModelPath != "" {
		if err := persist.Save(o.opts.ModelPath, m3, s, o.manifest(res)); err != nil {
			return nil, err
		}
		res.ArtifactPath = o.opts.ModelPath
		log.Info("model saved", "path", o.opts.ModelPath)
	}
	return res, nil
}

func (o *Orchestrator) stageOne(ctx context.Context, opts schema.LoaderOptions, label string, res *Result) (search.BestRun, *data.Partition, *evaluate.Evaluation, error) {
	src := o.opts.Sources
	train, err := data.Load(opts, Train, src.Train)
	if err != nil {
		return search.BestRun{}, nil, nil, err
	}
	valid, err := data.Load(opts, Validation, src.Validation)
	if err != nil {
		return search.BestRun{}, nil, nil, err
	}

	sr, err := o.searcher.Execute(ctx, train, valid, label)
	if err != nil {
		return search.BestRun{}, nil, nil, err
	}
	if sr.Best.Model == nil {
		return search.BestRun{}, nil, nil, errors.New("search returned no fitted model")
	}
	res.Search = sr

	test, err := data.Load(opts, Test, src.Test)
	if err != nil {
		return search.BestRun{}, nil, nil, err
	}
	ev, err := evaluate.Score(sr.Best.Model, test, label)
	if err != nil {
		return search.BestRun{}, nil, nil, err
	}
	return sr.Best, test, ev, nil
}

// fit loads paths as one fresh partition and fits a new model of est on it.
func (o *Orchestrator) fit(ctx context.Context, est pipeline.Estimator, opts schema.LoaderOptions, name, label string, paths ...string) (*pipeline.FittedModel, error) {
	p, err := data.Load(opts, name, paths...)
	if err != nil {
		return nil, err
	}
	return est.Fit(ctx, p, label)
}

func (o *Orchestrator) emit(res *Result, r StageResult) {
	res.Stages = append(res.Stages, r)

	stage := fmt.Sprint(r.Stage)
	attrs := []any{"stage", r.Stage, "train", r.TrainPartition, "rows", r.TrainRows, "took", r.Duration.Round(time.Millisecond)}
	var score *float64
	if m := r.Metrics(); m != nil {
		score = &m.RSquared
		attrs = append(attrs, "eval", r.EvalPartition, "eval_rows", m.Rows, "r_squared", m.RSquared)
	}
	o.sess.Telemetry.Stage(stage, r.TrainRows, score, r.Duration)
	o.sess.Log.Info("stage complete", attrs...)

	for _, fn := range o.observers {
		fn(r)
	}
}

func (o *Orchestrator) manifest(res *Result) persist.Manifest {
	m := persist.Manifest{
		RunID:        res.RunID,
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
		Estimator:    res.Final.Estimator().String(),
		Label:        res.Label,
		TrainRows:    res.Final.TrainRows(),
		TrainSources: res.Final.TrainSources(),
	}
	for _, st := range res.Stages {
		m.Stages = append(m.Stages, persist.StageRecord{
			Stage:     st.Stage,
			TrainRows: st.TrainRows,
			Sources:   st.TrainSources,
			Metrics:   st.Metrics(),
		})
	}
	return m
}
