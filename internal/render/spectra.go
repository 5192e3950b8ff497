package render

import (
	"fmt"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgpdf"

	"github.com/banshee-data/multiplicity/internal/monitoring"
	"github.com/banshee-data/multiplicity/internal/spectra"
)

// spectrumPlot draws magnitude against period on a log period axis, with
// detected peaks marked. The zero-frequency bin has no period and is left out.
func spectrumPlot(planet spectra.PlanetReport, s spectra.Spectrum) (*plot.Plot, error) {
	var periods, mags []float64
	for k := 1; k < len(s.Frequencies) && k < len(s.Magnitude); k++ {
		periods = append(periods, 1/s.Frequencies[k])
		mags = append(mags, s.Magnitude[k])
	}
	pts := finiteXYs(periods, mags)
	if len(pts) == 0 {
		return nil, ErrNoData
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Planet %d %s spectrum", planet.Planet, s.Name)
	if planet.PeriodDays > 0 {
		p.Title.Text += fmt.Sprintf(" (orbital period %.4g days)", planet.PeriodDays)
	}
	p.X.Label.Text = "Period"
	p.Y.Label.Text = "Magnitude"
	p.X.Scale = plot.LogScale{}
	p.X.Tick.Marker = plot.LogTicks{Prec: -1}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	line.Width = vg.Points(1)
	p.Add(line)

	var peakX, peakY []float64
	for _, i := range s.Peaks {
		if i == 0 {
			continue
		}
		peakX = append(peakX, 1/s.Frequencies[i])
		peakY = append(peakY, s.Magnitude[i])
	}
	if marks := finiteXYs(peakX, peakY); len(marks) > 0 {
		sc, err := plotter.NewScatter(marks)
		if err != nil {
			return nil, err
		}
		sc.GlyphStyle.Shape = draw.CrossGlyph{}
		sc.GlyphStyle.Color = Palette(1)[0]
		sc.GlyphStyle.Radius = vg.Points(4)
		p.Add(sc)
		p.Legend.Add("peaks", sc)
		p.Legend.Top = true
	}
	return p, nil
}

func inclinationPlot(times []float64, pr spectra.PairReport) (*plot.Plot, error) {
	pts := finiteXYs(times, pr.Degrees)
	if len(pts) == 0 {
		return nil, ErrNoData
	}
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Mutual inclination %s", pr.Pair.Label())
	p.X.Label.Text = "Time"
	p.Y.Label.Text = "Degrees"

	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	line.Width = vg.Points(1)
	p.Add(line, plotter.NewGrid())
	return p, nil
}

// WriteSpectraPDF writes rep as a multi-page PDF: one page per planet and
// equinoctial vector, then one per adjacent pair's mutual inclination.
// Vectors with no finite samples are logged and left out.
func WriteSpectraPDF(w io.Writer, rep spectra.Report) error {
	var pages []*plot.Plot
	for _, planet := range rep.Planets {
		for _, s := range planet.Spectra {
			p, err := spectrumPlot(planet, s)
			if err != nil {
				monitoring.Logf("planet %d %s: %v", planet.Planet, s.Name, err)
				continue
			}
			pages = append(pages, p)
		}
	}
	for _, pr := range rep.Pairs {
		p, err := inclinationPlot(rep.Time, pr)
		if err != nil {
			monitoring.Logf("pair %s: %v", pr.Pair.Label(), err)
			continue
		}
		pages = append(pages, p)
	}

	c := vgpdf.New(Width, Height)
	for i, p := range pages {
		if i > 0 {
			c.NextPage()
		}
		p.Draw(draw.New(c))
	}
	if _, err := c.WriteTo(w); err != nil {
		return fmt.Errorf("write spectra pdf: %w", err)
	}
	return nil
}
