package spectra

import (
	"fmt"

	"github.com/banshee-data/multiplicity/internal/table"
)

// StellarMassColumn names the host star mass column.
const StellarMassColumn = "Stellar mass"

func planetColumn(planet int, field string) string {
	return fmt.Sprintf("Planet %d %s", planet, field)
}

// PlanetCount returns the number of planets with contiguous one-based
// "Planet <i> ecc" columns.
func PlanetCount(t *table.Table) int {
	n := 0
	for t.Has(planetColumn(n+1, "ecc")) {
		n++
	}
	return n
}

// orbit holds the element columns of one planet.
type orbit struct {
	inc, node, peri, ecc []float64
}

func loadOrbit(t *table.Table, planet int) (orbit, error) {
	var o orbit
	fields := []struct {
		name string
		dst  *[]float64
	}{
		{"inclination", &o.inc},
		{"Omega", &o.node},
		{"omega", &o.peri},
		{"ecc", &o.ecc},
	}
	for _, f := range fields {
		col, err := t.Column(planetColumn(planet, f.name))
		if err != nil {
			return orbit{}, err
		}
		*f.dst = col
	}
	return o, nil
}
