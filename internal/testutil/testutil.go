// Package testutil provides shared test utilities and fixtures.
//
// This package centralises the synthetic simulation CSVs used across
// loader, extractor, batch and spectra tests.
package testutil

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"testing"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// CSVBuilder assembles a column-major CSV fixture.
type CSVBuilder struct {
	header  []string
	columns [][]float64
}

// NewCSVBuilder returns an empty builder.
func NewCSVBuilder() *CSVBuilder {
	return &CSVBuilder{}
}

// Column appends a named column.
func (b *CSVBuilder) Column(name string, values ...float64) *CSVBuilder {
	b.header = append(b.header, name)
	b.columns = append(b.columns, values)
	return b
}

// Multiplicity appends "<n> Planets" columns for n = 1..len(probs).
func (b *CSVBuilder) Multiplicity(probs ...[]float64) *CSVBuilder {
	for i, p := range probs {
		b.Column(fmt.Sprintf("%d Planets", i+1), p...)
	}
	return b
}

// String renders the CSV. Short columns are padded with empty cells.
func (b *CSVBuilder) String() string {
	var sb strings.Builder
	sb.WriteString(strings.Join(b.header, ","))
	sb.WriteByte('\n')

	rows := 0
	for _, c := range b.columns {
		if len(c) > rows {
			rows = len(c)
		}
	}
	cells := make([]string, len(b.columns))
	for r := 0; r < rows; r++ {
		for i, c := range b.columns {
			cells[i] = ""
			if r < len(c) {
				cells[i] = formatFloat(c[r])
			}
		}
		sb.WriteString(strings.Join(cells, ","))
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Bytes renders the CSV as bytes.
func (b *CSVBuilder) Bytes() []byte {
	return []byte(b.String())
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return "nan"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// LinearTimes returns n samples 0, step, 2*step, ...
func LinearTimes(n int, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i) * step
	}
	return out
}

// Constant returns n copies of v.
func Constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// SimulationCSV is a stable two-planet run lasting past the early-exit
// threshold: P(1)=0.25 and P(2)=0.75 everywhere except one spike sample
// where P(2) jumps to 5.
func SimulationCSV(samples int) []byte {
	times := LinearTimes(samples, 2e6/float64(samples-1))
	p1 := Constant(samples, 0.25)
	p2 := Constant(samples, 0.75)
	p2[samples/2] = 5
	return NewCSVBuilder().Column("Time", times...).Multiplicity(p1, p2).Bytes()
}
