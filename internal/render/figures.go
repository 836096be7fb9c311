package render

import (
	"context"
	"sort"
	"sync"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/sells-group/claims-cli/internal/metrics"
)

// FigureInputs carries the computed series the figures are drawn from.
// Figures with an empty input series are skipped, not errors; a dataset with
// no diagnosis column still renders its distribution and trend charts.
type FigureInputs struct {
	Billed        []float64
	PatientTotals []metrics.PatientTotal
	TopDiagnoses  []metrics.DiagnosisTotal
	Monthly       []metrics.MonthlyTotal
	Curve         []metrics.CurvePoint
}

// RenderFigures draws all five figures into the figures directory, fanning
// out across files since each figure is an independent output. It returns
// the file names written, sorted.
func RenderFigures(ctx context.Context, paths Paths, in FigureInputs) ([]string, error) {
	var (
		mu      sync.Mutex
		written []string
	)
	record := func(name string) {
		mu.Lock()
		written = append(written, name)
		mu.Unlock()
	}

	g, _ := errgroup.WithContext(ctx)

	g.Go(func() error {
		if len(in.Billed) == 0 {
			return nil
		}
		if err := histogramFigure(paths.Figure(HistogramFigure), in.Billed); err != nil {
			return err
		}
		record(HistogramFigure)
		return nil
	})
	g.Go(func() error {
		if len(in.PatientTotals) == 0 {
			return nil
		}
		if err := boxPlotFigure(paths.Figure(BoxPlotFigure), in.PatientTotals); err != nil {
			return err
		}
		record(BoxPlotFigure)
		return nil
	})
	g.Go(func() error {
		if len(in.TopDiagnoses) == 0 {
			return nil
		}
		if err := topDxFigure(paths.Figure(TopDxFigure), in.TopDiagnoses); err != nil {
			return err
		}
		record(TopDxFigure)
		return nil
	})
	g.Go(func() error {
		if len(in.Monthly) == 0 {
			return nil
		}
		if err := trendFigure(paths.Figure(TrendFigure), in.Monthly); err != nil {
			return err
		}
		record(TrendFigure)
		return nil
	})
	g.Go(func() error {
		if len(in.Curve) == 0 {
			return nil
		}
		if err := paretoFigure(paths.Figure(ParetoFigure), in.Curve); err != nil {
			return err
		}
		record(ParetoFigure)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	sort.Strings(written)
	return written, nil
}

func histogramFigure(path string, billed []float64) error {
	p := plot.New()
	p.Title.Text = "Distribution of Claim Amounts"
	p.X.Label.Text = "Billed Amount ($)"
	p.Y.Label.Text = "Frequency"

	h, err := plotter.NewHist(plotter.Values(billed), 50)
	if err != nil {
		return eris.Wrap(err, "render: histogram")
	}
	p.Add(h, plotter.NewGrid())

	return eris.Wrap(p.Save(10*vg.Inch, 5*vg.Inch, path), "render: save histogram")
}

func boxPlotFigure(path string, totals []metrics.PatientTotal) error {
	vals := make(plotter.Values, len(totals))
	for i, t := range totals {
		vals[i] = t.TotalBilled
	}

	p := plot.New()
	p.Title.Text = "Total Cost per Patient"
	p.Y.Label.Text = "Total Cost ($)"

	box, err := plotter.NewBoxPlot(vg.Points(50), 0, vals)
	if err != nil {
		return eris.Wrap(err, "render: box plot")
	}
	p.Add(box, plotter.NewGrid())
	p.NominalX("Total Cost per Patient")

	return eris.Wrap(p.Save(7*vg.Inch, 5*vg.Inch, path), "render: save box plot")
}

func topDxFigure(path string, top []metrics.DiagnosisTotal) error {
	vals := make(plotter.Values, len(top))
	codes := make([]string, len(top))
	for i, d := range top {
		vals[i] = d.TotalBilled
		codes[i] = d.Code
	}

	p := plot.New()
	p.Title.Text = "Top Diagnoses by Total Billed Amount"
	p.X.Label.Text = "Diagnosis Code"
	p.Y.Label.Text = "Total Billed Amount ($)"

	bars, err := plotter.NewBarChart(vals, vg.Points(30))
	if err != nil {
		return eris.Wrap(err, "render: bar chart")
	}
	p.Add(bars, plotter.NewGrid())
	p.NominalX(codes...)

	return eris.Wrap(p.Save(10*vg.Inch, 5*vg.Inch, path), "render: save bar chart")
}

func trendFigure(path string, monthly []metrics.MonthlyTotal) error {
	totals := make(plotter.XYs, len(monthly))
	rolling := make(plotter.XYs, len(monthly))
	months := make([]string, len(monthly))
	for i, m := range monthly {
		totals[i] = plotter.XY{X: float64(i), Y: m.TotalBilled}
		rolling[i] = plotter.XY{X: float64(i), Y: m.RollingAvg}
		months[i] = m.Month
	}

	p := plot.New()
	p.Title.Text = "Monthly Billed Amounts"
	p.X.Label.Text = "Month"
	p.Y.Label.Text = "Total Billed Amount ($)"

	line, points, err := plotter.NewLinePoints(totals)
	if err != nil {
		return eris.Wrap(err, "render: trend line")
	}
	roll, err := plotter.NewLine(rolling)
	if err != nil {
		return eris.Wrap(err, "render: rolling line")
	}
	roll.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}

	p.Add(line, points, roll, plotter.NewGrid())
	p.NominalX(months...)
	p.Legend.Add("Monthly total", line, points)
	p.Legend.Add("Rolling avg", roll)
	p.Legend.Top = true

	return eris.Wrap(p.Save(12*vg.Inch, 5*vg.Inch, path), "render: save trend")
}

func paretoFigure(path string, curve []metrics.CurvePoint) error {
	xys := make(plotter.XYs, len(curve))
	for i, pt := range curve {
		xys[i] = plotter.XY{X: pt.PatientPct, Y: pt.CostPct}
	}

	p := plot.New()
	p.Title.Text = "Cost Concentration (Pareto)"
	p.X.Label.Text = "Cumulative % of patients"
	p.Y.Label.Text = "Cumulative % of billed amount"

	line, err := plotter.NewLine(xys)
	if err != nil {
		return eris.Wrap(err, "render: pareto line")
	}
	p.Add(line, plotter.NewGrid())

	return eris.Wrap(p.Save(7*vg.Inch, 5*vg.Inch, path), "render: save pareto")
}
