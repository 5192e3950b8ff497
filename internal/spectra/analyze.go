package spectra

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/multiplicity/internal/pairs"
	"github.com/banshee-data/multiplicity/internal/table"
)

const (
	// DefaultPeakFraction is the minimum peak height relative to the
	// tallest bin of a spectrum.
	DefaultPeakFraction = 0.1
	// DefaultPeakDistance is the minimum bin separation between peaks.
	DefaultPeakDistance = 10
)

// ErrTooFewSamples is returned when a table cannot define a sample spacing.
var ErrTooFewSamples = errors.New("need at least two time samples")

// Options controls peak detection.
type Options struct {
	PeakFraction float64
	PeakDistance int
}

func (o Options) withDefaults() Options {
	if o.PeakFraction == 0 {
		o.PeakFraction = DefaultPeakFraction
	}
	if o.PeakDistance == 0 {
		o.PeakDistance = DefaultPeakDistance
	}
	return o
}

// Spectrum is the magnitude spectrum of one equinoctial vector.
type Spectrum struct {
	Name        string
	Frequencies []float64
	Magnitude   []float64
	// Peaks index Frequencies and Magnitude.
	Peaks []int
}

// PeakPeriods returns 1/f for each peak, in the time unit of the table.
func (s Spectrum) PeakPeriods() []float64 {
	out := make([]float64, 0, len(s.Peaks))
	for _, p := range s.Peaks {
		out = append(out, 1/s.Frequencies[p])
	}
	return out
}

// PlanetReport gathers the diagnostics of one planet.
type PlanetReport struct {
	Planet     int // one-based
	PeriodDays float64
	Spectra    []Spectrum
}

// PairReport is the mutual inclination history of two planets.
type PairReport struct {
	Pair    pairs.Pair
	Degrees []float64
}

// Report is the spectra analysis of one simulation table.
type Report struct {
	Time    []float64
	Planets []PlanetReport
	Pairs   []PairReport
}

// Analyze builds the full Report for t. The sample spacing is taken from
// the first two time samples.
func Analyze(t *table.Table, timeColumn string, opts Options) (Report, error) {
	opts = opts.withDefaults()

	times, err := t.Column(timeColumn)
	if err != nil {
		return Report{}, err
	}
	if len(times) < 2 {
		return Report{}, ErrTooFewSamples
	}
	d := times[1] - times[0]
	if !(d > 0) {
		return Report{}, fmt.Errorf("non-increasing time samples: %g, %g", times[0], times[1])
	}
	freqs := Frequencies(len(times), d)

	rep := Report{Time: times}
	n := PlanetCount(t)
	for planet := 1; planet <= n; planet++ {
		pr := PlanetReport{Planet: planet}

		if t.Has(StellarMassColumn) && t.Has(planetColumn(planet, "mass")) && t.Has(planetColumn(planet, "semi maj")) {
			pr.PeriodDays, err = OrbitalPeriodDays(t, planet)
			if err != nil {
				return Report{}, fmt.Errorf("planet %d period: %w", planet, err)
			}
		}

		vec, err := Equinoctial(t, planet)
		if err != nil {
			return Report{}, fmt.Errorf("planet %d: %w", planet, err)
		}
		for _, ns := range vec.Named() {
			mag := Magnitude(ns.Values)
			pr.Spectra = append(pr.Spectra, Spectrum{
				Name:        ns.Name,
				Frequencies: freqs,
				Magnitude:   mag,
				Peaks:       FindPeaks(mag, floats.Max(mag)*opts.PeakFraction, opts.PeakDistance),
			})
		}
		rep.Planets = append(rep.Planets, pr)
	}

	for _, p := range pairs.Adjacent(n) {
		deg, err := MutualInclination(t, p)
		if err != nil {
			return Report{}, fmt.Errorf("pair %s: %w", p.Label(), err)
		}
		rep.Pairs = append(rep.Pairs, PairReport{Pair: p, Degrees: deg})
	}

	return rep, nil
}
