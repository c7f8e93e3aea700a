// Package report renders fitted models for humans: aligned text tables
// for importances, confusion matrices and scoring history, and PNG
// charts drawn with gonum/plot.
package report

import (
	"fmt"
	"io"
	"math"
	"text/tabwriter"

	"github.com/YuminosukeSato/grove/ensemble"
	"github.com/YuminosukeSato/grove/pkg/errors"
)

// WriteVarImp writes the variable importance table of a fitted model.
func WriteVarImp(w io.Writer, m ensemble.Model) error {
	imp, err := m.VarImp()
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "variable\trelative_importance\tscaled_importance\tpercentage")
	for _, e := range imp {
		fmt.Fprintf(tw, "%s\t%.4f\t%.4f\t%.4f\n", e.Variable, e.Relative, e.Scaled, e.Percentage)
	}
	return tw.Flush()
}

// WriteConfusion writes a confusion matrix with level-labeled rows and
// columns, a per-row error rate, and a total line.
func WriteConfusion(w io.Writer, cm [][]int, levels []string) error {
	if len(cm) != len(levels) {
		return errors.NewDimensionError("WriteConfusion", len(levels), len(cm), 0)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprint(tw, "actual/predicted")
	for _, lvl := range levels {
		fmt.Fprintf(tw, "\t%s", lvl)
	}
	fmt.Fprintln(tw, "\terror")

	totalWrong, total := 0, 0
	for i, row := range cm {
		fmt.Fprint(tw, levels[i])
		rowTotal, rowWrong := 0, 0
		for j, n := range row {
			fmt.Fprintf(tw, "\t%d", n)
			rowTotal += n
			if j != i {
				rowWrong += n
			}
		}
		rate := 0.0
		if rowTotal > 0 {
			rate = float64(rowWrong) / float64(rowTotal)
		}
		fmt.Fprintf(tw, "\t%.4f\n", rate)
		totalWrong += rowWrong
		total += rowTotal
	}

	rate := 0.0
	if total > 0 {
		rate = float64(totalWrong) / float64(total)
	}
	fmt.Fprintf(tw, "total\t\t\t%.4f (%d/%d)\n", rate, totalWrong, total)
	return tw.Flush()
}

// WriteHitRatio writes the top-k hit ratio table.
func WriteHitRatio(w io.Writer, table []float64) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "k\thit_ratio")
	for k, ratio := range table {
		fmt.Fprintf(tw, "%d\t%.4f\n", k+1, ratio)
	}
	return tw.Flush()
}

// WriteScoringHistory writes the per-round metric trail of a fitted
// model. Rounds without a validation frame show a blank valid column.
func WriteScoringHistory(w io.Writer, m ensemble.Model) error {
	history := m.ScoringHistory()
	if len(history) == 0 {
		return errors.NewValueError("WriteScoringHistory", "model has no scoring history")
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "iteration\ttrees\ttrain_metric\tvalid_metric")
	for _, ev := range history {
		valid := ""
		if !math.IsNaN(ev.ValidMetric) {
			valid = fmt.Sprintf("%.5f", ev.ValidMetric)
		}
		fmt.Fprintf(tw, "%d\t%d\t%.5f\t%s\n", ev.Iteration+1, ev.Trees, ev.TrainMetric, valid)
	}
	return tw.Flush()
}
