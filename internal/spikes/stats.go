package spikes

import (
	"math"
	"sort"
)

// Pass holds the statistics of one cleaning pass.
type Pass struct {
	Median            float64
	Q1                float64
	Q3                float64
	QuartileDeviation float64
	MaxError          float64
	Low               float64 // median - MaxError
	High              float64 // median + MaxError
	Spikes            []float64
}

// valid returns the non-NaN samples of series, sorted ascending.
func valid(series []float64) []float64 {
	out := make([]float64, 0, len(series))
	for _, v := range series {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	sort.Float64s(out)
	return out
}

// CountValid returns the number of non-NaN samples.
func CountValid(series []float64) int {
	n := 0
	for _, v := range series {
		if !math.IsNaN(v) {
			n++
		}
	}
	return n
}

// percentileSorted interpolates the p-th percentile of sorted, NaN-free data.
// Empty input yields NaN.
func percentileSorted(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	h := float64(n-1) * p / 100
	lo := int(math.Floor(h))
	if lo >= n-1 {
		return sorted[n-1]
	}
	frac := h - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

// Percentile returns the p-th percentile (0..100) of series ignoring NaN.
// It returns NaN when no valid samples remain or p is out of range.
func Percentile(series []float64, p float64) float64 {
	if p < 0 || p > 100 || math.IsNaN(p) {
		return math.NaN()
	}
	return percentileSorted(valid(series), p)
}

// Median returns the median of series ignoring NaN.
func Median(series []float64) float64 {
	return Percentile(series, 50)
}

// Summarize computes median and quartile statistics for series with the
// given multiplier, without flagging anything. It fails with
// ErrUndefinedDeviation when the interquartile range is NaN.
func Summarize(series []float64, multiplier float64) (Pass, error) {
	sorted := valid(series)
	median := percentileSorted(sorted, 50)
	q1 := percentileSorted(sorted, 25)
	q3 := percentileSorted(sorted, 75)
	iqr := q3 - q1
	if math.IsNaN(iqr) {
		return Pass{}, ErrUndefinedDeviation
	}

	qd := iqr / 2
	maxErr := multiplier * qd
	return Pass{
		Median:            median,
		Q1:                q1,
		Q3:                q3,
		QuartileDeviation: qd,
		MaxError:          maxErr,
		Low:               median - maxErr,
		High:              median + maxErr,
	}, nil
}
