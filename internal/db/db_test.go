package db

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/multiplicity/internal/batch"
	"github.com/banshee-data/multiplicity/internal/catalog"
	"github.com/banshee-data/multiplicity/internal/fsutil"
	"github.com/banshee-data/multiplicity/internal/monitoring"
	"github.com/banshee-data/multiplicity/internal/signal"
	"github.com/banshee-data/multiplicity/internal/spikes"
	"github.com/banshee-data/multiplicity/internal/table"
	"github.com/banshee-data/multiplicity/internal/testutil"
)

func quiet(t *testing.T) {
	t.Helper()
	logf, errorf := monitoring.Logf, monitoring.Errorf
	monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.Logf, monitoring.Errorf = logf, errorf })
}

func openTestDB(t *testing.T) *DB {
	t.Helper()
	quiet(t)
	db, err := Open(filepath.Join(t.TempDir(), "multiplicity.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func entry(t *testing.T, name string) catalog.Entry {
	t.Helper()
	e, err := catalog.Parse(name)
	require.NoError(t, err)
	return e
}

func TestOpen_Migrates(t *testing.T) {
	db := openTestDB(t)

	version, dirty, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)

	var fk int
	require.NoError(t, db.QueryRow("PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)
}

func TestOpen_Reopen(t *testing.T) {
	quiet(t)
	path := filepath.Join(t.TempDir(), "multiplicity.db")

	db, err := Open(path)
	require.NoError(t, err)
	id, err := db.StartRun(`{"multiplier":4}`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = Open(path)
	require.NoError(t, err)
	defer db.Close()
	runs, err := db.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, id, runs[0].ID)
	assert.Equal(t, `{"multiplier":4}`, runs[0].ConfigJSON)
}

func TestStartRun(t *testing.T) {
	db := openTestDB(t)
	id, err := db.StartRun("")
	require.NoError(t, err)
	_, err = uuid.Parse(id)
	assert.NoError(t, err)

	runs, err := db.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "{}", runs[0].ConfigJSON)
}

func TestRecordExtraction(t *testing.T) {
	db := openTestDB(t)
	runID, err := db.StartRun("{}")
	require.NoError(t, err)

	passes := []spikes.Pass{
		{Median: 10, Q1: 10, Q3: 11, QuartileDeviation: 0.5, MaxError: 2, Low: 8, High: 12, Spikes: []float64{500}},
	}
	ok := batch.FileResult{
		Entry:  entry(t, "sysSim_1.csv"),
		Status: batch.StatusOK,
		Result: signal.Result{
			Time:        []float64{0, 1, 2},
			Expectation: []float64{1, 1, 1},
			MaxPlanets:  2,
			EndTime:     2,
			Passes:      passes,
		},
	}
	failed := batch.FileResult{
		Entry:  entry(t, "sysSim_2.csv"),
		Status: batch.StatusFailed,
		Err:    errors.New("missing column \"1 Planets\""),
	}
	require.NoError(t, db.RecordExtraction(runID, ok))
	require.NoError(t, db.RecordExtraction(runID, failed))

	got, err := db.Extractions(runID)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "sysSim_1.csv", got[0].File)
	assert.Equal(t, batch.StatusOK, got[0].Status)
	assert.Equal(t, 2, got[0].MaxPlanets)
	assert.Equal(t, 3, got[0].Samples)
	assert.Equal(t, 1, got[0].Removed)
	assert.True(t, got[0].EndTime.Valid)
	assert.Equal(t, 2.0, got[0].EndTime.Float64)

	assert.Equal(t, batch.StatusFailed, got[1].Status)
	assert.False(t, got[1].EndTime.Valid)
	assert.Contains(t, got[1].Error, "1 Planets")

	stored, err := db.Passes(runID, "sysSim_1.csv")
	require.NoError(t, err)
	if diff := cmp.Diff(passes, stored); diff != "" {
		t.Errorf("passes mismatch (-want +got):\n%s", diff)
	}

	// Each file is recorded once per run.
	assert.Error(t, db.RecordExtraction(runID, ok))
}

func TestRecordExtraction_UnknownRun(t *testing.T) {
	db := openTestDB(t)
	err := db.RecordExtraction("nope", batch.FileResult{Entry: entry(t, "sysSim_1.csv"), Status: batch.StatusMissing})
	assert.ErrorIs(t, err, ErrUnknownRun)
}

// infSpikeCSV has one overflowing multiplicity sample, which loads as +Inf.
const infSpikeCSV = `Time,1 Planets
0,1
1000000,2
2000000,1
3000000,2
4000000,inf
5000000,1
6000000,2
7000000,1
8000000,2
`

func TestRecordExtraction_NonFiniteSpike(t *testing.T) {
	db := openTestDB(t)
	runID, err := db.StartRun("{}")
	require.NoError(t, err)

	tbl, err := table.Read(strings.NewReader(infSpikeCSV))
	require.NoError(t, err)
	res, err := signal.Extract(tbl, signal.Options{})
	require.NoError(t, err)
	require.Len(t, res.Passes, 1)
	require.True(t, math.IsInf(res.Passes[0].Spikes[0], 1))

	fr := batch.FileResult{Entry: entry(t, "sysSim_5.csv"), Status: batch.StatusOK, Result: res}
	require.NoError(t, db.RecordExtraction(runID, fr))

	stored, err := db.Passes(runID, "sysSim_5.csv")
	require.NoError(t, err)
	if diff := cmp.Diff(res.Passes, stored); diff != "" {
		t.Errorf("passes mismatch (-want +got):\n%s", diff)
	}

	none, err := db.Passes(runID, "sysSim_8.csv")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSpikeValuesJSON(t *testing.T) {
	in := spikeValues{math.Inf(1), math.Inf(-1), 2.5}
	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `["+Inf", "-Inf", 2.5]`, string(data))

	var back spikeValues
	require.NoError(t, json.Unmarshal(data, &back))
	if diff := cmp.Diff(in, back); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	var nan spikeValues
	require.NoError(t, json.Unmarshal([]byte(`["NaN"]`), &nan))
	assert.True(t, math.IsNaN(nan[0]))
	assert.Error(t, json.Unmarshal([]byte(`["big"]`), &nan))
}

func TestRunner_NonFiniteSpikeDoesNotAbort(t *testing.T) {
	db := openTestDB(t)
	runID, err := db.StartRun("{}")
	require.NoError(t, err)

	mfs := fsutil.NewMemoryFileSystem()
	require.NoError(t, mfs.WriteFile("data/sysSim_1.csv", []byte(infSpikeCSV), 0644))
	require.NoError(t, mfs.WriteFile("data/sysSim_2.csv", testutil.SimulationCSV(20), 0644))

	r := &batch.Runner{
		Extractor: signal.NewExtractor(mfs, signal.Options{}),
		Dir:       "data",
		Workers:   1,
		RunID:     runID,
		Recorder:  db,
	}
	sum, err := r.Run(context.Background(), []catalog.Entry{entry(t, "sysSim_1.csv"), entry(t, "sysSim_2.csv")})
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Count(batch.StatusOK))

	got, err := db.Extractions(runID)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestRunnerRecordsIntoDB(t *testing.T) {
	db := openTestDB(t)
	runID, err := db.StartRun("{}")
	require.NoError(t, err)

	var rec batch.Recorder = db
	require.NoError(t, rec.RecordExtraction(runID, batch.FileResult{Entry: entry(t, "sysSim_3_randomO.csv"), Status: batch.StatusSkipped}))

	got, err := db.Extractions(runID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "sysSim_3_randomO.csv", got[0].File)
	assert.Equal(t, 0, got[0].Samples)
}

func TestMigrateDown(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.MigrateDown())
	version, _, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='passes'`).Scan(&n))
	assert.Equal(t, 0, n)

	require.NoError(t, db.MigrateUp())
	version, _, err = db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
}

func TestMigrateForce(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.MigrateForce(1))
	version, dirty, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)
}

func TestConnect_NoSchema(t *testing.T) {
	quiet(t)
	db, err := Connect(filepath.Join(t.TempDir(), "fresh.db"))
	require.NoError(t, err)
	defer db.Close()

	version, dirty, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)
	assert.False(t, dirty)

	require.NoError(t, db.MigrateUp())
	version, _, err = db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
}
