// Package plots draws sampler output with gonum/plot.
package plots

import (
	"image/color"

	"github.com/cockroachdb/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// Settings labels a plot.
type Settings struct {
	Title  string
	XLabel string
	YLabel string
}

func newPlot(settings Settings) *plot.Plot {
	plt := plot.New()
	plt.Title.Text = settings.Title
	plt.X.Label.Text = settings.XLabel
	plt.Y.Label.Text = settings.YLabel
	plt.Legend.Top = true
	plt.Legend.Left = false
	return plt
}

// Histogram plots a normalized histogram of samples. If density is not
// nil it is drawn over the histogram.
func Histogram(samples []float64, bins int, density func(float64) float64, settings Settings) (*plot.Plot, error) {
	if len(samples) == 0 {
		return nil, errors.New("plots: no samples")
	}
	plt := newPlot(settings)
	hist, err := plotter.NewHist(plotter.Values(samples), bins)
	if err != nil {
		return nil, errors.Wrap(err, "plots: histogram")
	}
	hist.Normalize(1)
	hist.FillColor = plotutil.SoftColors[0]
	plt.Add(hist)
	if density != nil {
		f := plotter.NewFunction(density)
		f.Color = color.Black
		f.Width = vg.Points(1)
		plt.Add(f)
		plt.Legend.Add("density", f)
	}
	return plt, nil
}

// Trace plots one coordinate of a chain against the sample index.
func Trace(states [][]float64, coordinate int, settings Settings) (*plot.Plot, error) {
	if len(states) == 0 {
		return nil, errors.New("plots: no states")
	}
	xys := make(plotter.XYs, len(states))
	for i, s := range states {
		xys[i].X = float64(i)
		xys[i].Y = s[coordinate]
	}
	plt := newPlot(settings)
	line, err := plotter.NewLine(xys)
	if err != nil {
		return nil, errors.Wrap(err, "plots: trace")
	}
	line.Color = plotutil.SoftColors[1]
	plt.Add(line)
	return plt, nil
}

// Series is a named curve with symmetric error bars.
type Series struct {
	Name  string
	X     []float64
	Means []float64
	Eims  []float64
}

type yerrs struct {
	plotter.XYs
	plotter.YErrors
}

// ErrorBars plots every series as a line with error bars, for example the
// expected error of replicated chains against their length.
func ErrorBars(series []Series, settings Settings) (*plot.Plot, error) {
	plt := newPlot(settings)
	for i, s := range series {
		bars, err := makeErrorBars(s.X, s.Means, s.Eims)
		if err != nil {
			return nil, errors.Wrapf(err, "plots: series %s", s.Name)
		}
		bars.Color = plotutil.SoftColors[i%len(plotutil.SoftColors)]
		if err := plotutil.AddLines(plt, s.Name, bars.XYs); err != nil {
			return nil, errors.Wrapf(err, "plots: series %s", s.Name)
		}
		plt.Add(bars)
	}
	return plt, nil
}

func makeErrorBars(pointVec, means, eims []float64) (*plotter.YErrorBars, error) {
	if len(pointVec) != len(means) {
		panic("plots: slice length mismatch")
	}
	if len(means) != len(eims) {
		panic("plots: slice length mismatch")
	}
	n := len(pointVec)
	xys := make(plotter.XYs, n)
	for i, v := range means {
		xys[i].X = pointVec[i]
		xys[i].Y = v
	}
	yErrors := make(plotter.YErrors, n)
	for i, v := range eims {
		yErrors[i].Low = v
		yErrors[i].High = v
	}
	return plotter.NewYErrorBars(yerrs{xys, yErrors})
}

// Save writes plt to path in the format given by its extension.
func Save(plt *plot.Plot, path string) error {
	if err := plt.Save(4.48*vg.Inch, 3.37*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "plots: saving %s", path)
	}
	return nil
}
