package spikes

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

const (
	// DefaultMultiplier is the aggressive bound used on the expectation signal.
	DefaultMultiplier = 4.0
	// LooseMultiplier is the looser bound used by the aligned-orbit reports.
	LooseMultiplier = 15.0
)

var (
	// ErrUndefinedDeviation is returned when the interquartile range cannot
	// be computed, typically because every sample is missing.
	ErrUndefinedDeviation = errors.New("quartile deviation is undefined")

	// ErrBadMultiplier is returned for negative or NaN multipliers.
	ErrBadMultiplier = errors.New("multiplier must be a non-negative number")

	// ErrPassLimit is returned when cleaning has not converged within
	// Options.MaxPasses passes.
	ErrPassLimit = errors.New("spike removal did not converge")
)

// Options controls a cleaning run.
type Options struct {
	// Multiplier scales the quartile deviation into the accepted distance
	// from the median. Zero selects DefaultMultiplier.
	Multiplier float64

	// MaxPasses caps the number of passes. Zero allows len(series)+1,
	// which a converging run never reaches since every pass that does
	// not terminate removes at least one sample.
	MaxPasses int

	// Trace, when non-nil, receives a human-readable scan per pass that
	// removed spikes.
	Trace io.Writer
}

func (o Options) multiplier() float64 {
	if o.Multiplier == 0 {
		return DefaultMultiplier
	}
	return o.Multiplier
}

// Clean returns a copy of series with spikes replaced by NaN, and the
// statistics of every pass that removed something. The input is not
// modified.
func Clean(series []float64, opts Options) ([]float64, []Pass, error) {
	out := make([]float64, len(series))
	copy(out, series)

	m := opts.multiplier()
	if m < 0 || math.IsNaN(m) {
		return nil, nil, fmt.Errorf("%w: %g", ErrBadMultiplier, m)
	}
	limit := opts.MaxPasses
	if limit <= 0 {
		limit = len(series) + 1
	}

	var passes []Pass
	for i := 0; i < limit; i++ {
		pass, err := Summarize(out, m)
		if err != nil {
			return nil, passes, fmt.Errorf("pass %d: %w", i+1, err)
		}

		var dirty []int
		for j, v := range out {
			// NaN never compares greater, so missing samples stay put.
			if math.Abs(pass.Median-v) > pass.MaxError {
				dirty = append(dirty, j)
			}
		}
		if len(dirty) == 0 {
			return out, passes, nil
		}

		pass.Spikes = make([]float64, len(dirty))
		for k, j := range dirty {
			pass.Spikes[k] = out[j]
			out[j] = math.NaN()
		}
		if opts.Trace != nil {
			if err := WriteScan(opts.Trace, pass); err != nil {
				return nil, passes, fmt.Errorf("write trace: %w", err)
			}
		}
		passes = append(passes, pass)
	}

	return nil, passes, fmt.Errorf("%w after %d passes", ErrPassLimit, limit)
}

// WriteScan formats one pass in the cleaning-scan layout.
func WriteScan(w io.Writer, p Pass) error {
	spikes := make([]string, len(p.Spikes))
	for i, v := range p.Spikes {
		spikes[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	_, err := fmt.Fprintf(w,
		"Cleaning scan:\n\tMedian: %g\n\tQuartile deviation: %g\n\tMax error: %g\n\tCleaning range: %g-%g\n\tSpikes: [%s]\n",
		p.Median, p.QuartileDeviation, p.MaxError, p.Low, p.High, strings.Join(spikes, ", "))
	return err
}

// Removed returns the total number of samples removed across passes.
func Removed(passes []Pass) int {
	n := 0
	for _, p := range passes {
		n += len(p.Spikes)
	}
	return n
}
