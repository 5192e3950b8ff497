// Package signal derives the expected planet multiplicity of a simulated
// system over time from its per-multiplicity probability columns.
package signal

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/banshee-data/multiplicity/internal/spikes"
	"github.com/banshee-data/multiplicity/internal/table"
)

const (
	// TimeColumn names the sample time column.
	TimeColumn = "Time"

	// DefaultMinEndTime is the final time below which a run is treated as
	// terminated early by a collision or ejection.
	DefaultMinEndTime = 1e6
)

// ErrNoSamples is returned for a table with a header but no data rows.
var ErrNoSamples = errors.New("table has no samples")

// Options controls extraction.
type Options struct {
	// SkipFailed returns an empty Result for runs that ended before
	// MinEndTime instead of extracting them.
	SkipFailed bool

	// MinEndTime is the early-exit threshold. Zero selects DefaultMinEndTime.
	MinEndTime float64

	// Cleaning is applied to the expectation series.
	Cleaning spikes.Options
}

func (o Options) minEndTime() float64 {
	if o.MinEndTime == 0 {
		return DefaultMinEndTime
	}
	return o.MinEndTime
}

// Result holds the time axis, the cleaned expectation series and the
// highest multiplicity column found. The zero Result is the "no data"
// sentinel.
type Result struct {
	Time        []float64
	Expectation []float64
	MaxPlanets  int

	// EndTime is the last time sample.
	EndTime float64

	// Passes are the cleaning passes that removed spikes.
	Passes []spikes.Pass
}

// Empty reports whether r is the "no data" sentinel.
func (r Result) Empty() bool {
	return r.MaxPlanets == 0 && len(r.Time) == 0 && len(r.Expectation) == 0
}

// MultiplicityColumn names the probability column for n planets.
func MultiplicityColumn(n int) string {
	return strconv.Itoa(n) + " Planets"
}

// Extract computes the expectation series of t.
func Extract(t *table.Table, opts Options) (Result, error) {
	timeCol, err := t.Column(TimeColumn)
	if err != nil {
		return Result{}, err
	}
	if len(timeCol) == 0 {
		return Result{}, ErrNoSamples
	}

	endTime := timeCol[len(timeCol)-1]
	if opts.SkipFailed && endTime < opts.minEndTime() {
		return Result{}, nil
	}

	planets := 1
	prob, err := t.Column(MultiplicityColumn(planets))
	if err != nil {
		return Result{}, err
	}
	expectation := make([]float64, len(prob))
	accumulate(expectation, prob, planets)

	for t.Has(MultiplicityColumn(planets + 1)) {
		planets++
		prob, err = t.Column(MultiplicityColumn(planets))
		if err != nil {
			return Result{}, err
		}
		accumulate(expectation, prob, planets)
	}

	cleaned, passes, err := spikes.Clean(expectation, opts.Cleaning)
	if err != nil {
		return Result{}, fmt.Errorf("clean expectation: %w", err)
	}

	times := make([]float64, len(timeCol))
	copy(times, timeCol)

	return Result{
		Time:        times,
		Expectation: cleaned,
		MaxPlanets:  planets,
		EndTime:     endTime,
		Passes:      passes,
	}, nil
}

func accumulate(dst, prob []float64, n int) {
	w := float64(n)
	for i, p := range prob {
		dst[i] += w * p
	}
}
