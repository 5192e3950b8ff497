// Package pairs enumerates planet index pairs in the order the reports
// label them.
package pairs

import "fmt"

// Pair is an unordered pair of zero-based planet indices with N1 < N2.
type Pair struct {
	N1, N2 int
}

// Combinations returns every pair (n1, n2) with 0 <= n1 < n2 < multiplicity,
// ordered by n2 and then n1: (0,1), (0,2), (1,2), (0,3), ...
func Combinations(multiplicity int) []Pair {
	if multiplicity < 2 {
		return nil
	}
	out := make([]Pair, 0, multiplicity*(multiplicity-1)/2)
	for n2 := 1; n2 < multiplicity; n2++ {
		for n1 := 0; n1 < n2; n1++ {
			out = append(out, Pair{N1: n1, N2: n2})
		}
	}
	return out
}

// Adjacent returns the consecutive pairs (0,1), (1,2), ... (m-2, m-1).
func Adjacent(multiplicity int) []Pair {
	if multiplicity < 2 {
		return nil
	}
	out := make([]Pair, 0, multiplicity-1)
	for n := 0; n+1 < multiplicity; n++ {
		out = append(out, Pair{N1: n, N2: n + 1})
	}
	return out
}

// Label is the one-based display label, e.g. "P1-P2".
func (p Pair) Label() string {
	return fmt.Sprintf("P%d-P%d", p.N1+1, p.N2+1)
}

// Column is the CSV column holding the pair probability, e.g. "N pairs:1-2".
func (p Pair) Column() string {
	return fmt.Sprintf("N pairs:%d-%d", p.N1+1, p.N2+1)
}
