// Package render draws multiplicity and spectra diagnostics with gonum/plot
// and builds HTML dashboards with go-echarts.
package render

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/multiplicity/internal/fsutil"
	"github.com/banshee-data/multiplicity/internal/signal"
)

// Figure size used for every saved plot.
const (
	Width  = 10 * vg.Inch
	Height = 6 * vg.Inch
)

var (
	// ErrUnsupportedFormat is returned for output paths other than .pdf, .png or .svg.
	ErrUnsupportedFormat = errors.New("unsupported plot format")
	// ErrNoData is returned when a series has no finite samples to draw.
	ErrNoData = errors.New("no finite samples to plot")
)

// Format returns the plot format implied by path's extension.
func Format(path string) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	switch ext {
	case "pdf", "png", "svg":
		return ext, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
}

// finiteXYs pairs x and y, dropping samples where either is NaN or infinite.
func finiteXYs(x, y []float64) plotter.XYs {
	n := min(len(x), len(y))
	pts := make(plotter.XYs, 0, n)
	for i := 0; i < n; i++ {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) || math.IsInf(x[i], 0) || math.IsInf(y[i], 0) {
			continue
		}
		pts = append(pts, plotter.XY{X: x[i], Y: y[i]})
	}
	return pts
}

// ExpectationPlot plots the cleaned expected multiplicity against time.
// Removed spikes appear as gaps in the line.
func ExpectationPlot(res signal.Result, title string) (*plot.Plot, error) {
	pts := finiteXYs(res.Time, res.Expectation)
	if len(pts) == 0 {
		return nil, ErrNoData
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Time"
	p.Y.Label.Text = "Expected number of planets"

	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	line.Color = Palette(1)[0]
	line.Width = vg.Points(1)
	p.Add(line, plotter.NewGrid())
	p.Legend.Add(fmt.Sprintf("%d planets max", res.MaxPlanets), line)
	p.Legend.Top = true
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	return p, nil
}

// SaveExpectation renders ExpectationPlot to path on fsys, picking the image
// format from the file extension.
func SaveExpectation(fsys fsutil.FileSystem, res signal.Result, title, path string) error {
	format, err := Format(path)
	if err != nil {
		return err
	}
	p, err := ExpectationPlot(res, title)
	if err != nil {
		return fmt.Errorf("plot %s: %w", path, err)
	}
	return savePlot(fsys, p, format, path)
}

func savePlot(fsys fsutil.FileSystem, p *plot.Plot, format, path string) error {
	wt, err := p.WriterTo(Width, Height, format)
	if err != nil {
		return fmt.Errorf("render %s: %w", path, err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := fsys.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	f, err := fsys.Create(path)
	if err != nil {
		return err
	}
	if _, err := wt.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
