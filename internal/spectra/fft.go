package spectra

import (
	"math/cmplx"
	"sort"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Magnitude returns |X[k]| for the n/2+1 non-negative frequency bins of the
// real-input DFT of x, unnormalised.
func Magnitude(x []float64) []float64 {
	if len(x) == 0 {
		return nil
	}
	fft := fourier.NewFFT(len(x))
	coeffs := fft.Coefficients(nil, x)
	out := make([]float64, len(coeffs))
	for i, c := range coeffs {
		out[i] = cmplx.Abs(c)
	}
	return out
}

// Frequencies returns the bin centre frequencies matching Magnitude for n
// samples spaced d apart: k / (n*d) for k = 0..n/2.
func Frequencies(n int, d float64) []float64 {
	if n <= 0 {
		return nil
	}
	out := make([]float64, n/2+1)
	for k := range out {
		out[k] = float64(k) / (float64(n) * d)
	}
	return out
}

// FindPeaks returns the indices of local maxima of x that are at least
// minHeight tall and at least distance samples from any taller kept peak.
// A flat-topped peak is reported at the middle of its plateau.
func FindPeaks(x []float64, minHeight float64, distance int) []int {
	var peaks []int
	for i := 1; i < len(x)-1; {
		if !(x[i-1] < x[i]) {
			i++
			continue
		}
		ahead := i + 1
		for ahead < len(x)-1 && x[ahead] == x[i] {
			ahead++
		}
		if x[ahead] < x[i] {
			peaks = append(peaks, (i+ahead-1)/2)
		}
		i = ahead
	}

	tall := peaks[:0]
	for _, p := range peaks {
		if x[p] >= minHeight {
			tall = append(tall, p)
		}
	}
	peaks = tall

	if distance <= 1 || len(peaks) < 2 {
		return peaks
	}

	order := make([]int, len(peaks))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return x[peaks[order[a]]] < x[peaks[order[b]]]
	})

	keep := make([]bool, len(peaks))
	for i := range keep {
		keep[i] = true
	}
	for i := len(order) - 1; i >= 0; i-- {
		j := order[i]
		if !keep[j] {
			continue
		}
		for k := j - 1; k >= 0 && peaks[j]-peaks[k] < distance; k-- {
			keep[k] = false
		}
		for k := j + 1; k < len(peaks) && peaks[k]-peaks[j] < distance; k++ {
			keep[k] = false
		}
	}

	out := make([]int, 0, len(peaks))
	for i, p := range peaks {
		if keep[i] {
			out = append(out, p)
		}
	}
	return out
}
