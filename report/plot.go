package report

import (
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/grove/ensemble"
	"github.com/YuminosukeSato/grove/pkg/errors"
)

// PlotVarImp renders the scaled variable importances of a fitted model
// as a bar chart. The output format follows the path extension
// (.png, .svg, .pdf).
func PlotVarImp(m ensemble.Model, path string) error {
	imp, err := m.VarImp()
	if err != nil {
		return err
	}

	values := make(plotter.Values, len(imp))
	names := make([]string, len(imp))
	for i, e := range imp {
		values[i] = e.Scaled
		names[i] = e.Variable
	}

	p := plot.New()
	p.Title.Text = m.ModelID() + ": variable importance"
	p.Y.Label.Text = "scaled importance"

	bars, err := plotter.NewBarChart(values, vg.Points(18))
	if err != nil {
		return errors.NewModelError("PlotVarImp", "bar chart", err)
	}
	p.Add(bars)
	p.NominalX(names...)

	if err := p.Save(7*vg.Inch, 4*vg.Inch, path); err != nil {
		return errors.NewModelError("PlotVarImp", "save", err)
	}
	return nil
}

// PlotScoringHistory renders the train and validation metric trail of a
// fitted model as a line chart.
func PlotScoringHistory(m ensemble.Model, path string) error {
	history := m.ScoringHistory()
	if len(history) == 0 {
		return errors.NewValueError("PlotScoringHistory", "model has no scoring history")
	}

	train := make(plotter.XYs, 0, len(history))
	valid := make(plotter.XYs, 0, len(history))
	for _, ev := range history {
		x := float64(ev.Trees)
		train = append(train, plotter.XY{X: x, Y: ev.TrainMetric})
		if !math.IsNaN(ev.ValidMetric) {
			valid = append(valid, plotter.XY{X: x, Y: ev.ValidMetric})
		}
	}

	p := plot.New()
	p.Title.Text = m.ModelID() + ": scoring history"
	p.X.Label.Text = "trees"
	p.Y.Label.Text = "metric"

	trainLine, err := plotter.NewLine(train)
	if err != nil {
		return errors.NewModelError("PlotScoringHistory", "train line", err)
	}
	p.Add(trainLine)
	p.Legend.Add("train", trainLine)

	if len(valid) > 0 {
		validLine, err := plotter.NewLine(valid)
		if err != nil {
			return errors.NewModelError("PlotScoringHistory", "valid line", err)
		}
		validLine.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(validLine)
		p.Legend.Add("valid", validLine)
	}
	p.Legend.Top = true

	if err := p.Save(7*vg.Inch, 4*vg.Inch, path); err != nil {
		return errors.NewModelError("PlotScoringHistory", "save", err)
	}
	return nil
}
