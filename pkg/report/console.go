// Package report presents run results: the per-stage R² lines, summary
// tables and a predicted-vs-actual chart.
package report

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/jwood803/MLNET-ThriceTraining/pkg/refit"
	"github.com/jwood803/MLNET-ThriceTraining/pkg/search"
)

// Console writes the R² of every evaluated stage followed by a blank line.
type Console struct {
	W io.Writer
}

// Stage is a refit observer. Stages without an evaluation print nothing.
func (c Console) Stage(r refit.StageResult) {
	m := r.Metrics()
	if m == nil {
		return
	}
	fmt.Fprintf(c.W, "R^2: %v\n\n", m.RSquared)
}

// Summary writes one row per stage.
func Summary(w io.Writer, res *refit.Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STAGE\tTRAINED ON\tROWS\tEVALUATED ON\tR^2\tMAE\tRMSE\tTIME")
	for _, s := range res.Stages {
		eval, r2, mae, rmse := "-", "-", "-", "-"
		if m := s.Metrics(); m != nil {
			eval = fmt.Sprintf("%s (%d)", s.EvalPartition, m.Rows)
			r2 = fmt.Sprintf("%.4f", m.RSquared)
			mae = fmt.Sprintf("%.4f", m.MeanAbsoluteError)
			rmse = fmt.Sprintf("%.4f", m.RootMeanSquaredError)
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\t%s\t%s\t%s\n",
			s.Stage, s.TrainPartition, s.TrainRows, eval, r2, mae, rmse, s.Duration.Round(time.Millisecond))
	}
	return tw.Flush()
}

// Trials writes the n best successful trials of a search, best first. Ties
// keep trial order. n <= 0 writes all of them.
func Trials(w io.Writer, res *search.Result, better func(a, b float64) bool, n int) error {
	ok := make([]search.Trial, 0, len(res.Trials))
	failed := 0
	for _, t := range res.Trials {
		if t.OK() {
			ok = append(ok, t)
		} else {
			failed++
		}
	}
	sort.SliceStable(ok, func(i, j int) bool { return better(ok[i].Score, ok[j].Score) })
	if n > 0 && len(ok) > n {
		ok = ok[:n]
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TRIAL\tSCORE\tTIME\tESTIMATOR")
	for _, t := range ok {
		fmt.Fprintf(tw, "%d\t%.4f\t%s\t%s\n", t.ID, t.Score, t.Duration.Round(time.Millisecond), t.Estimator)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d trials, %d failed, %s\n", len(res.Trials), failed, res.Elapsed.Round(time.Millisecond))
	return err
}
