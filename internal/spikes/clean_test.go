package spikes

import (
	"bytes"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var nan = math.NaN()

// spikySeries is a periodic baseline with four injected spikes of
// increasing size.
func spikySeries() []float64 {
	base := []float64{10, 11, 9, 10, 10, 11, 9, 10}
	s := make([]float64, 0, 32)
	for i := 0; i < 4; i++ {
		s = append(s, base...)
	}
	s[3] = 13
	s[10] = 30
	s[20] = 500
	s[25] = 7
	return s
}

func noisySeries(seed int64, n int) []float64 {
	r := rand.New(rand.NewSource(seed))
	s := make([]float64, n)
	for i := range s {
		s[i] = 3 + 0.2*r.NormFloat64()
		if r.Float64() < 0.03 {
			s[i] += 5 + 20*r.Float64()
		}
	}
	return s
}

func assertSameSeries(t *testing.T, want, got []float64) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		if math.IsNaN(want[i]) {
			assert.Truef(t, math.IsNaN(got[i]), "index %d: want NaN, got %v", i, got[i])
			continue
		}
		assert.Equalf(t, want[i], got[i], "index %d", i)
	}
}

func TestClean_SingleSpike(t *testing.T) {
	in := []float64{10, 11, 9, 10, 500, 10, 11}

	out, passes, err := Clean(in, Options{Multiplier: DefaultMultiplier})
	require.NoError(t, err)

	assertSameSeries(t, []float64{10, 11, 9, 10, nan, 10, 11}, out)
	require.Len(t, passes, 1)
	p := passes[0]
	assert.Equal(t, 10.0, p.Median)
	assert.Equal(t, 10.0, p.Q1)
	assert.Equal(t, 11.0, p.Q3)
	assert.Equal(t, 0.5, p.QuartileDeviation)
	assert.Equal(t, 2.0, p.MaxError)
	assert.Equal(t, 8.0, p.Low)
	assert.Equal(t, 12.0, p.High)
	assert.Equal(t, []float64{500}, p.Spikes)
}

func TestClean_DoesNotMutateInput(t *testing.T) {
	in := []float64{10, 11, 9, 10, 500, 10, 11}
	_, _, err := Clean(in, Options{})
	require.NoError(t, err)
	assert.Equal(t, 500.0, in[4])
}

func TestClean_ZeroMultiplierUsesDefault(t *testing.T) {
	a, _, err := Clean(spikySeries(), Options{})
	require.NoError(t, err)
	b, _, err := Clean(spikySeries(), Options{Multiplier: DefaultMultiplier})
	require.NoError(t, err)
	assertSameSeries(t, b, a)
}

func TestClean_CleanSeriesUnchanged(t *testing.T) {
	in := []float64{1, 2, 3, 4, 5}
	out, passes, err := Clean(in, Options{Multiplier: 4})
	require.NoError(t, err)
	assert.Empty(t, passes)
	assert.Equal(t, in, out)
}

func TestClean_MissingSamplesNeverFlagged(t *testing.T) {
	in := []float64{nan, 10, 11, nan, 9, 10, 500, 10, 11, 9}
	out, passes, err := Clean(in, Options{Multiplier: 4})
	require.NoError(t, err)
	require.Len(t, passes, 1)
	assert.Equal(t, []float64{500}, passes[0].Spikes)
	assertSameSeries(t, []float64{nan, 10, 11, nan, 9, 10, nan, 10, 11, 9}, out)
}

func TestClean_ConstantBaselineZeroDeviation(t *testing.T) {
	out, passes, err := Clean([]float64{1, 1, 1, 1, 5}, Options{Multiplier: 4})
	require.NoError(t, err)
	assertSameSeries(t, []float64{1, 1, 1, 1, nan}, out)
	require.Len(t, passes, 1)
	assert.Equal(t, 0.0, passes[0].MaxError)
}

func TestClean_ThreeSamples(t *testing.T) {
	tests := []struct {
		name       string
		multiplier float64
		want       []float64
	}{
		{"tight", 0.5, []float64{1000, 1000, nan}},
		{"unit", 1, []float64{1000, 1000, nan}},
		{"double", 2, []float64{1000, 1000, nan}},
		{"default", 4, []float64{1000, 1000, 1}},
		{"loose", 15, []float64{1000, 1000, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for run := 0; run < 3; run++ {
				out, _, err := Clean([]float64{1000, 1000, 1}, Options{Multiplier: tt.multiplier})
				require.NoError(t, err)
				assertSameSeries(t, tt.want, out)
			}
		})
	}
}

func TestClean_UndefinedDeviation(t *testing.T) {
	t.Run("all missing", func(t *testing.T) {
		_, _, err := Clean([]float64{nan, nan, nan}, Options{})
		assert.ErrorIs(t, err, ErrUndefinedDeviation)
	})
	t.Run("empty", func(t *testing.T) {
		_, _, err := Clean(nil, Options{})
		assert.ErrorIs(t, err, ErrUndefinedDeviation)
	})
}

func TestClean_BadMultiplier(t *testing.T) {
	_, _, err := Clean([]float64{1, 2, 3}, Options{Multiplier: -1})
	assert.ErrorIs(t, err, ErrBadMultiplier)
	_, _, err = Clean([]float64{1, 2, 3}, Options{Multiplier: nan})
	assert.ErrorIs(t, err, ErrBadMultiplier)
}

func TestClean_PassLimit(t *testing.T) {
	// Two removal passes plus the converging pass.
	_, passes, err := Clean(spikySeries(), Options{Multiplier: 2, MaxPasses: 2})
	assert.ErrorIs(t, err, ErrPassLimit)
	assert.Len(t, passes, 2)

	out, passes, err := Clean(spikySeries(), Options{Multiplier: 2, MaxPasses: 3})
	require.NoError(t, err)
	assert.Len(t, passes, 2)
	assert.Equal(t, 18, countNaN(out))
}

func TestClean_ThresholdMonotonicity(t *testing.T) {
	removed := map[float64]int{}
	for _, m := range []float64{1, 2, 4, 15} {
		out, _, err := Clean(spikySeries(), Options{Multiplier: m})
		require.NoError(t, err)
		removed[m] = countNaN(out)
	}

	assert.Equal(t, map[float64]int{1: 18, 2: 18, 4: 4, 15: 2}, removed)
	assert.GreaterOrEqual(t, removed[1], removed[2])
	assert.GreaterOrEqual(t, removed[2], removed[4])
	assert.GreaterOrEqual(t, removed[4], removed[15])
}

func TestClean_Properties(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		in := noisySeries(seed, 300)
		for _, m := range []float64{DefaultMultiplier, LooseMultiplier} {
			out, passes, err := Clean(in, Options{Multiplier: m})
			require.NoError(t, err)

			// Shrinkage.
			assert.LessOrEqual(t, CountValid(out), CountValid(in))
			if len(passes) > 0 {
				assert.Less(t, CountValid(out), CountValid(in))
			}
			assert.Equal(t, CountValid(in)-CountValid(out), Removed(passes))

			// Bound satisfaction.
			final, err := Summarize(out, m)
			require.NoError(t, err)
			for _, v := range out {
				if !math.IsNaN(v) {
					assert.LessOrEqual(t, math.Abs(v-final.Median), final.MaxError)
				}
			}

			// Idempotence.
			again, morePasses, err := Clean(out, Options{Multiplier: m})
			require.NoError(t, err)
			assert.Empty(t, morePasses)
			assertSameSeries(t, out, again)
		}
	}
}

func TestClean_Trace(t *testing.T) {
	var buf bytes.Buffer
	_, _, err := Clean([]float64{10, 11, 9, 10, 500, 10, 11}, Options{Multiplier: 4, Trace: &buf})
	require.NoError(t, err)

	want := "Cleaning scan:\n" +
		"\tMedian: 10\n" +
		"\tQuartile deviation: 0.5\n" +
		"\tMax error: 2\n" +
		"\tCleaning range: 8-12\n" +
		"\tSpikes: [500]\n"
	assert.Equal(t, want, buf.String())
}

func TestClean_TraceOncePerRemovalPass(t *testing.T) {
	var buf bytes.Buffer
	_, passes, err := Clean(spikySeries(), Options{Multiplier: 2, Trace: &buf})
	require.NoError(t, err)
	assert.Equal(t, len(passes), bytes.Count(buf.Bytes(), []byte("Cleaning scan:")))
}

func countNaN(s []float64) int {
	return len(s) - CountValid(s)
}
