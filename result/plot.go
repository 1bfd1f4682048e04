/*
DESCRIPTION
  plot.go implements PlotConvergence, a per-iteration error-vs-
  iteration line plot using gonum/plot: the convergence chart a solve
  can optionally render alongside its console logging.

AUTHORS
  The mmsolver Authors.
*/

package result

import (
	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// PlotConvergence renders perIteration (the residual-norm or average-
// error value recorded at each LM iteration) as a line chart and saves
// it to path as a PNG. Called by the CLI whenever a plot path is
// configured.
func PlotConvergence(path string, perIteration []float64) error {
	if len(perIteration) == 0 {
		return errors.New("result: PlotConvergence called with no data")
	}
	p := plot.New()
	p.Title.Text = "solve convergence"
	p.X.Label.Text = "iteration"
	p.Y.Label.Text = "error"

	pts := make(plotter.XYs, len(perIteration))
	for i, v := range perIteration {
		pts[i].X = float64(i)
		pts[i].Y = v
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return errors.Wrap(err, "result: building convergence line")
	}
	p.Add(line)

	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return errors.Wrap(err, "result: saving convergence plot")
	}
	return nil
}
