// Package telemetry records run metrics in a Prometheus registry owned by one
// session. Nothing is registered globally.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Trial outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeFailed   = "failed"
	OutcomeDeadline = "deadline"
)

// Recorder holds the collectors of one run.
type Recorder struct {
	reg *prometheus.Registry

	trials      *prometheus.CounterVec
	fitSeconds  *prometheus.HistogramVec
	stageScore  *prometheus.GaugeVec
	stageRows   *prometheus.GaugeVec
	stageTiming *prometheus.GaugeVec
	bestScore   prometheus.Gauge
}

// New builds a Recorder on a fresh registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Recorder{
		reg: reg,

		// Labels: learner, outcome (ok, failed, deadline)
		trials: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "thricefit",
			Subsystem: "search",
			Name:      "trials_total",
			Help:      "Candidate pipelines evaluated during search",
		}, []string{"learner", "outcome"}),

		fitSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "thricefit",
			Subsystem: "search",
			Name:      "trial_seconds",
			Help:      "Wall time to fit and score one candidate",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
		}, []string{"learner"}),

		bestScore: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "thricefit",
			Subsystem: "search",
			Name:      "best_validation_score",
			Help:      "Validation score of the selected candidate",
		}),

		// Labels: stage (1, 2)
		stageScore: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "thricefit",
			Subsystem: "refit",
			Name:      "r_squared",
			Help:      "Coefficient of determination on the test partition",
		}, []string{"stage"}),

		stageRows: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "thricefit",
			Subsystem: "refit",
			Name:      "train_rows",
			Help:      "Rows in the training partition of each stage",
		}, []string{"stage"}),

		stageTiming: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "thricefit",
			Subsystem: "refit",
			Name:      "stage_seconds",
			Help:      "Wall time of each refit stage",
		}, []string{"stage"}),
	}
}

// Registry exposes the underlying registry for gathering.
func (r *Recorder) Registry() *prometheus.Registry { return r.reg }

func (r *Recorder) Trial(learner, outcome string, took time.Duration) {
	r.trials.WithLabelValues(learner, outcome).Inc()
	r.fitSeconds.WithLabelValues(learner).Observe(took.Seconds())
}

func (r *Recorder) Best(score float64) { r.bestScore.Set(score) }

// Stage records one refit stage. Pass a nil score for stages that are not
// evaluated.
func (r *Recorder) Stage(stage string, trainRows int, score *float64, took time.Duration) {
	r.stageRows.WithLabelValues(stage).Set(float64(trainRows))
	r.stageTiming.WithLabelValues(stage).Set(took.Seconds())
	if score != nil {
		r.stageScore.WithLabelValues(stage).Set(*score)
	}
}

// WriteTextfile writes every metric in the text exposition format, suitable
// for the node_exporter textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.reg)
}
