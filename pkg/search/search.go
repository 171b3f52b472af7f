// Package search runs a time-bounded model selection experiment: candidate
// estimators are fitted on the training partition and ranked by a metric on
// the validation partition.
package search

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"slices"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jwood803/MLNET-ThriceTraining/pkg/data"
	"github.com/jwood803/MLNET-ThriceTraining/pkg/evaluate"
	"github.com/jwood803/MLNET-ThriceTraining/pkg/model"
	"github.com/jwood803/MLNET-ThriceTraining/pkg/pipeline"
	"github.com/jwood803/MLNET-ThriceTraining/pkg/session"
	"github.com/jwood803/MLNET-ThriceTraining/pkg/telemetry"
)

// Settings configure an Experiment.
type Settings struct {
	// MaxExperimentTime bounds the wall-clock duration of Execute.
	MaxExperimentTime time.Duration
	// Metric ranks candidates on the validation partition.
	Metric evaluate.Metric
	// MaxTrials stops the search early. 0 searches until the budget runs out.
	MaxTrials int
	// Workers is the number of concurrent trials. 0 means GOMAXPROCS.
	Workers int
	// Learners restricts the candidate learners. Empty means all.
	Learners []model.Kind
}

// ConfigError reports unusable Settings.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("search: invalid setting %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// ExhaustedError is returned when no candidate finished successfully within
// the budget. Err holds the last trial failure, if any.
type ExhaustedError struct {
	Budget time.Duration
	Tried  int
	Err    error
}

func (e *ExhaustedError) Error() string {
	msg := fmt.Sprintf("search: no candidate completed within %s (%d tried)", e.Budget, e.Tried)
	if e.Err != nil {
		msg += ": last failure: " + e.Err.Error()
	}
	return msg
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// Trial is the record of one evaluated candidate.
type Trial struct {
	ID        int
	Estimator pipeline.Estimator
	Score     float64
	Metrics   evaluate.Metrics
	Duration  time.Duration
	Err       error
}

// OK reports whether the trial counts towards selection.
func (t Trial) OK() bool { return t.Err == nil }

// BestRun is the selected candidate. Model was fitted on the training
// partition only.
type BestRun struct {
	TrialID   int
	Estimator pipeline.Estimator
	Model     *pipeline.FittedModel
	Score     float64
	Metrics   evaluate.Metrics
}

// Result is the outcome of Execute.
type Result struct {
	Best    BestRun
	Trials  []Trial // ordered by ID
	Elapsed time.Duration
}

var errLate = errors.New("finished after the time budget")

// Experiment is a configured search bound to a session.
type Experiment struct {
	sess     *session.Session
	settings Settings
}

func NewExperiment(sess *session.Session, settings Settings) *Experiment {
	return &Experiment{sess: sess, settings: settings}
}

func (e *Experiment) validate() error {
	s := e.settings
	if !s.Metric.Valid() {
		return &ConfigError{Field: "metric", Err: fmt.Errorf("unrecognized metric %q", s.Metric)}
	}
	if s.MaxExperimentTime <= 0 {
		return &ConfigError{Field: "max_experiment_time", Err: fmt.Errorf("must be positive, got %s", s.MaxExperimentTime)}
	}
	if s.MaxTrials < 0 {
		return &ConfigError{Field: "max_trials", Err: fmt.Errorf("must not be negative, got %d", s.MaxTrials)}
	}
	if s.Workers < 0 {
		return &ConfigError{Field: "workers", Err: fmt.Errorf("must not be negative, got %d", s.Workers)}
	}
	for _, k := range s.Learners {
		if !slices.Contains(model.Kinds(), k) {
			return &ConfigError{Field: "learners", Err: fmt.Errorf("unknown learner %q", k)}
		}
	}
	return nil
}

// Execute searches until the time budget expires, MaxTrials candidates have
// run, or ctx is cancelled. Candidates still running at the deadline are
// discarded.
func (e *Experiment) Execute(ctx context.Context, train, valid *data.Partition, label string) (*Result, error) {
	if err := e.validate(); err != nil {
		return nil, err
	}
	s := e.settings
	log := e.sess.Log.With("component", "search")

	learners := s.Learners
	if len(learners) == 0 {
		learners = model.Kinds()
	}
	workers := s.Workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	start := time.Now()
	tctx, cancel := context.WithTimeout(ctx, s.MaxExperimentTime)
	defer cancel()
	deadline, _ := tctx.Deadline()

	log.Info("search started",
		"budget", s.MaxExperimentTime, "metric", s.Metric, "workers", workers,
		"train_rows", train.Rows(), "validation_rows", valid.Rows())

	var (
		mu     sync.Mutex
		trials []Trial
		best   *Trial
		winner *pipeline.FittedModel
	)
	sw := newSweeper(e.sess.Seed, learners)
	g := new(errgroup.Group)
	g.SetLimit(workers)

	for id := 0; s.MaxTrials == 0 || id < s.MaxTrials; id++ {
		if tctx.Err() != nil || !time.Now().Before(deadline) {
			break
		}
		est := sw.Next()
		g.Go(func() error {
			t, m := e.runTrial(tctx, deadline, id, est, train, valid, label)
			mu.Lock()
			trials = append(trials, t)
			if m != nil && (best == nil || e.ranksAhead(t, *best)) {
				best, winner = &t, m
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	sort.Slice(trials, func(i, j int) bool { return trials[i].ID < trials[j].ID })
	res := &Result{Trials: trials, Elapsed: time.Since(start)}

	if best == nil {
		var lastErr error
		for _, t := range trials {
			if t.Err != nil {
				lastErr = t.Err
			}
		}
		return nil, &ExhaustedError{Budget: s.MaxExperimentTime, Tried: len(trials), Err: lastErr}
	}

	t := *best
	res.Best = BestRun{
		TrialID:   t.ID,
		Estimator: t.Estimator,
		Model:     winner,
		Score:     t.Score,
		Metrics:   t.Metrics,
	}
	e.sess.Telemetry.Best(t.Score)
	log.Info("search finished",
		"trials", len(trials), "elapsed", res.Elapsed.Round(time.Millisecond),
		"best_trial", t.ID, "estimator", t.Estimator.String(), string(s.Metric), t.Score)
	return res, nil
}

// ranksAhead reports whether t beats cur. Equal scores go to the lower
// trial id so the winner does not depend on finishing order.
func (e *Experiment) ranksAhead(t, cur Trial) bool {
	if e.settings.Metric.Better(t.Score, cur.Score) {
		return true
	}
	return t.Score == cur.Score && t.ID < cur.ID
}

func (e *Experiment) runTrial(ctx context.Context, deadline time.Time, id int, est pipeline.Estimator, train, valid *data.Partition, label string) (Trial, *pipeline.FittedModel) {
	start := time.Now()
	t := Trial{ID: id, Estimator: est, Score: math.NaN()}
	learner := string(est.Learner.Kind)

	m, err := est.Fit(ctx, train, label)
	if err == nil {
		t.Metrics, err = evaluate.Regression(m, valid, label)
	}
	if err == nil {
		t.Score = e.settings.Metric.Of(t.Metrics)
		if math.IsNaN(t.Score) || math.IsInf(t.Score, 0) {
			err = fmt.Errorf("non-finite %s score", e.settings.Metric)
		}
	}
	late := ctx.Err() != nil || time.Now().After(deadline)
	if err == nil && late {
		err = errLate
	}
	t.Duration = time.Since(start)

	outcome := telemetry.OutcomeOK
	switch {
	case err == nil:
	case late:
		outcome = telemetry.OutcomeDeadline
	default:
		outcome = telemetry.OutcomeFailed
	}
	e.sess.Telemetry.Trial(learner, outcome, t.Duration)

	if err != nil {
		t.Err = fmt.Errorf("trial %d %s: %w", id, est, err)
		e.sess.Log.Debug("trial failed", "trial", id, "estimator", est.String(), "outcome", outcome, "err", err)
		return t, nil
	}
	e.sess.Log.Debug("trial done", "trial", id, "estimator", est.String(), string(e.settings.Metric), t.Score, "took", t.Duration)
	return t, m
}
