package batch

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/multiplicity/internal/catalog"
	"github.com/banshee-data/multiplicity/internal/fsutil"
	"github.com/banshee-data/multiplicity/internal/monitoring"
	"github.com/banshee-data/multiplicity/internal/signal"
	"github.com/banshee-data/multiplicity/internal/table"
	"github.com/banshee-data/multiplicity/internal/testutil"
)

type fakeRecorder struct {
	mu    sync.Mutex
	runID string
	got   map[string]Status
	err   error
}

func (f *fakeRecorder) RecordExtraction(runID string, fr FileResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.got == nil {
		f.got = map[string]Status{}
	}
	f.runID = runID
	f.got[fr.Entry.Name] = fr.Status
	return f.err
}

func quiet(t *testing.T) {
	t.Helper()
	logf, errorf := monitoring.Logf, monitoring.Errorf
	monitoring.SetLogger(nil)
	t.Cleanup(func() {
		monitoring.Logf, monitoring.Errorf = logf, errorf
	})
}

// fixture writes four systems: a clean run, an early exit, a file missing
// its multiplicity columns, and a catalog entry with no file.
func fixture(t *testing.T) (*fsutil.MemoryFileSystem, []catalog.Entry) {
	t.Helper()
	mfs := fsutil.NewMemoryFileSystem()
	require.NoError(t, mfs.WriteFile("data/sysSim_1.csv", testutil.SimulationCSV(20), 0644))

	early := testutil.NewCSVBuilder().
		Column("Time", testutil.LinearTimes(10, 1)...).
		Multiplicity(testutil.Constant(10, 1)).
		Bytes()
	require.NoError(t, mfs.WriteFile("data/sysSim_1_randomO.csv", early, 0644))

	broken := testutil.NewCSVBuilder().Column("Time", 0, 1e6, 2e6).Bytes()
	require.NoError(t, mfs.WriteFile("data/sysSim_3.csv", broken, 0644))

	var entries []catalog.Entry
	for _, name := range []string{"sysSim_1.csv", "sysSim_1_randomO.csv", "sysSim_2.csv", "sysSim_3.csv"} {
		e, err := catalog.Parse(name)
		require.NoError(t, err)
		entries = append(entries, e)
	}
	return mfs, entries
}

func TestRun(t *testing.T) {
	quiet(t)
	mfs, entries := fixture(t)

	var rendered []string
	var mu sync.Mutex
	rec := &fakeRecorder{}
	r := &Runner{
		Extractor: signal.NewExtractor(mfs, signal.Options{SkipFailed: true}),
		Dir:       "data",
		Workers:   3,
		RunID:     "run-1",
		Recorder:  rec,
		Renderer: RendererFunc(func(fr FileResult) error {
			mu.Lock()
			defer mu.Unlock()
			rendered = append(rendered, fr.Entry.Name)
			return nil
		}),
	}

	sum, err := r.Run(context.Background(), entries)
	require.NoError(t, err)
	require.Len(t, sum.Files, 4)

	var statuses []Status
	for _, f := range sum.Files {
		statuses = append(statuses, f.Status)
	}
	assert.Equal(t, []Status{StatusOK, StatusSkipped, StatusMissing, StatusFailed}, statuses)
	assert.Equal(t, "sysSim_1.csv", sum.Files[0].Entry.Name)
	assert.Equal(t, "data/sysSim_1.csv", sum.Files[0].Path)

	failed := sum.Failed()
	require.Len(t, failed, 1)
	assert.ErrorIs(t, failed[0].Err, table.ErrMissingColumn)

	assert.Equal(t, []string{"sysSim_1.csv"}, rendered)
	assert.Equal(t, "run-1", rec.runID)
	assert.Len(t, rec.got, 4)
	assert.Equal(t, StatusMissing, rec.got["sysSim_2.csv"])

	assert.Equal(t, 1, sum.Files[0].Removed())
	assert.InDelta(t, 0.05, sum.Files[0].RemovedFraction(), 1e-12)
}

func TestRun_FailFast(t *testing.T) {
	quiet(t)
	mfs, entries := fixture(t)
	r := &Runner{
		Extractor: signal.NewExtractor(mfs, signal.Options{}),
		Dir:       "data",
		Workers:   1,
		FailFast:  true,
	}

	sum, err := r.Run(context.Background(), entries)
	require.Error(t, err)
	assert.ErrorIs(t, err, table.ErrMissingColumn)
	assert.Equal(t, StatusFailed, sum.Files[3].Status)
}

func TestRun_RecorderError(t *testing.T) {
	quiet(t)
	mfs, entries := fixture(t)
	boom := errors.New("disk full")
	r := &Runner{
		Extractor: signal.NewExtractor(mfs, signal.Options{}),
		Dir:       "data",
		Recorder:  &fakeRecorder{err: boom},
	}
	_, err := r.Run(context.Background(), entries)
	assert.ErrorIs(t, err, boom)
}

func TestRun_Cancelled(t *testing.T) {
	quiet(t)
	mfs, entries := fixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := &Runner{Extractor: signal.NewExtractor(mfs, signal.Options{}), Dir: "data"}
	sum, err := r.Run(ctx, entries)
	assert.ErrorIs(t, err, context.Canceled)
	for _, f := range sum.Files {
		assert.Empty(t, f.Status)
	}
}

func TestRun_NilExtractor(t *testing.T) {
	_, err := (&Runner{}).Run(context.Background(), nil)
	assert.Error(t, err)
}

func TestHighVariation(t *testing.T) {
	quiet(t)
	mfs, entries := fixture(t)
	r := &Runner{Extractor: signal.NewExtractor(mfs, signal.Options{}), Dir: "data", Workers: 4}
	sum, err := r.Run(context.Background(), entries)
	require.NoError(t, err)

	hv := sum.HighVariation(0.01)
	require.Len(t, hv, 1)
	assert.Equal(t, "sysSim_1.csv", hv[0].Entry.Name)
	assert.Empty(t, sum.HighVariation(0.1))
}

func TestCount(t *testing.T) {
	s := Summary{Files: []FileResult{{Status: StatusOK}, {Status: StatusOK}, {Status: StatusFailed}}}
	assert.Equal(t, 2, s.Count(StatusOK))
	assert.Equal(t, 0, s.Count(StatusMissing))
	assert.Equal(t, 0.0, FileResult{}.RemovedFraction())
}
