package report

import (
	"errors"
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/jwood803/MLNET-ThriceTraining/pkg/refit"
)

var stageColors = []color.RGBA{
	{R: 50, G: 50, B: 255, A: 255},
	{R: 230, G: 120, B: 20, A: 255},
}

// PlotPredictions saves a predicted-vs-actual scatter of every evaluated
// stage, with the identity line for reference. The format follows the file
// extension of path (png, svg, pdf).
func PlotPredictions(path string, stages []refit.StageResult) error {
	p := plot.New()
	p.Title.Text = "Predicted vs actual on the test partition"
	p.X.Label.Text = "Actual"
	p.Y.Label.Text = "Predicted"
	p.Legend.Top = true
	p.Legend.Left = true

	lo, hi := math.Inf(1), math.Inf(-1)
	n := 0
	for _, s := range stages {
		if s.Evaluation == nil {
			continue
		}
		ev := s.Evaluation
		pts := make(plotter.XYs, len(ev.Actual))
		for i := range ev.Actual {
			pts[i].X = ev.Actual[i]
			pts[i].Y = ev.Predicted[i]
			lo = math.Min(lo, math.Min(pts[i].X, pts[i].Y))
			hi = math.Max(hi, math.Max(pts[i].X, pts[i].Y))
		}
		sc, err := plotter.NewScatter(pts)
		if err != nil {
			return fmt.Errorf("report: stage %d: %w", s.Stage, err)
		}
		sc.Color = stageColors[n%len(stageColors)]
		if n%2 == 1 {
			sc.Shape = draw.PyramidGlyph{}
		}
		p.Add(sc)
		p.Legend.Add(fmt.Sprintf("stage %d (R^2 %.3f)", s.Stage, ev.Metrics.RSquared), sc)
		n++
	}
	if n == 0 {
		return errors.New("report: no evaluated stage to plot")
	}

	ident, err := plotter.NewLine(plotter.XYs{{X: lo, Y: lo}, {X: hi, Y: hi}})
	if err != nil {
		return err
	}
	ident.Color = color.RGBA{R: 200, A: 255}
	ident.LineStyle.Width = vg.Points(1)
	ident.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
	p.Add(ident)

	if err := p.Save(5*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("report: save %s: %w", path, err)
	}
	return nil
}
