package spectra

import (
	"fmt"
	"math"

	"github.com/banshee-data/multiplicity/internal/pairs"
	"github.com/banshee-data/multiplicity/internal/table"
)

// G is the gravitational constant in SI units.
const G = 6.67e-11

const secondsPerDay = 60 * 60 * 24

// Vectors holds the equinoctial elements of one planet over time:
// H = e sin(Ω+ω), K = e cos(Ω+ω), P = sin i sin Ω, Q = sin i cos Ω.
type Vectors struct {
	H, K, P, Q []float64
}

// Named returns the vectors with their display names in H, K, P, Q order.
func (v Vectors) Named() []NamedSeries {
	return []NamedSeries{
		{Name: "H", Values: v.H},
		{Name: "K", Values: v.K},
		{Name: "P", Values: v.P},
		{Name: "Q", Values: v.Q},
	}
}

// NamedSeries pairs a series with a display name.
type NamedSeries struct {
	Name   string
	Values []float64
}

// Equinoctial computes the equinoctial vectors of the one-based planet.
func Equinoctial(t *table.Table, planet int) (Vectors, error) {
	o, err := loadOrbit(t, planet)
	if err != nil {
		return Vectors{}, err
	}

	n := len(o.ecc)
	v := Vectors{
		H: make([]float64, n),
		K: make([]float64, n),
		P: make([]float64, n),
		Q: make([]float64, n),
	}
	for i := 0; i < n; i++ {
		varpi := o.node[i] + o.peri[i]
		sinI := math.Sin(o.inc[i])
		v.H[i] = o.ecc[i] * math.Sin(varpi)
		v.K[i] = o.ecc[i] * math.Cos(varpi)
		v.P[i] = sinI * math.Sin(o.node[i])
		v.Q[i] = sinI * math.Cos(o.node[i])
	}
	return v, nil
}

// OrbitalPeriodDays returns the mean Keplerian period of the one-based
// planet in days, from its semi-major axis and the star and planet masses.
func OrbitalPeriodDays(t *table.Table, planet int) (float64, error) {
	star, err := t.Column(StellarMassColumn)
	if err != nil {
		return 0, err
	}
	mass, err := t.Column(planetColumn(planet, "mass"))
	if err != nil {
		return 0, err
	}
	axis, err := t.Column(planetColumn(planet, "semi maj"))
	if err != nil {
		return 0, err
	}
	if len(axis) == 0 {
		return 0, fmt.Errorf("planet %d: no samples", planet)
	}

	sum := 0.0
	for i, a := range axis {
		sum += math.Sqrt(a * a * a * 4 * math.Pi * math.Pi / G / (star[i] + mass[i]))
	}
	return sum / float64(len(axis)) / secondsPerDay, nil
}

// MutualInclination returns, per sample, the angle in degrees between the
// orbital planes of the planets in p (zero-based indices).
func MutualInclination(t *table.Table, p pairs.Pair) ([]float64, error) {
	a, err := loadOrbit(t, p.N1+1)
	if err != nil {
		return nil, err
	}
	b, err := loadOrbit(t, p.N2+1)
	if err != nil {
		return nil, err
	}

	out := make([]float64, len(a.inc))
	for i := range out {
		c := math.Cos(a.inc[i])*math.Cos(b.inc[i]) +
			math.Sin(a.inc[i])*math.Sin(b.inc[i])*math.Cos(a.node[i]-b.node[i])
		// Rounding can push c just outside [-1, 1].
		c = math.Max(-1, math.Min(1, c))
		out[i] = math.Acos(c) * 180 / math.Pi
	}
	return out, nil
}
