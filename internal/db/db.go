// Package db stores batch results in SQLite. The schema is managed by
// golang-migrate from migrations embedded in the binary.
package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/multiplicity/internal/batch"
	"github.com/banshee-data/multiplicity/internal/spikes"
)

// ErrUnknownRun is returned when recording against a run id that was never started.
var ErrUnknownRun = errors.New("unknown run")

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA temp_store=MEMORY",
	"PRAGMA foreign_keys=ON",
}

type DB struct {
	*sql.DB
}

// Open opens the database at path, applies connection pragmas and migrates
// the schema to the latest version.
func Open(path string) (*DB, error) {
	db, err := Connect(path)
	if err != nil {
		return nil, err
	}
	if err := db.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Connect opens the database at path and applies connection pragmas
// without touching the schema.
func Connect(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// Pragmas such as foreign_keys are per connection.
	sqlDB.SetMaxOpenConns(1)

	for _, p := range pragmas {
		if _, err := sqlDB.Exec(p); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("exec %q: %w", p, err)
		}
	}
	return &DB{sqlDB}, nil
}

// StartRun creates a run row holding cfgJSON and returns its id.
func (db *DB) StartRun(cfgJSON string) (string, error) {
	if cfgJSON == "" {
		cfgJSON = "{}"
	}
	id := uuid.NewString()
	if _, err := db.Exec(`INSERT INTO runs (run_id, config_json) VALUES (?, ?)`, id, cfgJSON); err != nil {
		return "", fmt.Errorf("start run: %w", err)
	}
	return id, nil
}

// Run is a stored batch run.
type Run struct {
	ID         string
	StartedAt  string
	ConfigJSON string
}

// Runs lists stored runs, newest first.
func (db *DB) Runs() ([]Run, error) {
	rows, err := db.Query(`SELECT run_id, started_at, config_json FROM runs ORDER BY started_at DESC, rowid DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.ConfigJSON); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func requireRun(tx *sql.Tx, runID string) error {
	var n int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM runs WHERE run_id = ?`, runID).Scan(&n); err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %q", ErrUnknownRun, runID)
	}
	return nil
}

// RecordExtraction stores one file result and its cleaning passes in a
// single transaction. It satisfies batch.Recorder.
func (db *DB) RecordExtraction(runID string, fr batch.FileResult) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := requireRun(tx, runID); err != nil {
		return err
	}

	var endTime sql.NullFloat64
	if fr.Status == batch.StatusOK && !math.IsNaN(fr.Result.EndTime) {
		endTime = sql.NullFloat64{Float64: fr.Result.EndTime, Valid: true}
	}
	errText := ""
	if fr.Err != nil {
		errText = fr.Err.Error()
	}

	_, err = tx.Exec(`
		INSERT INTO extractions (run_id, file, status, max_planets, samples, end_time, removed, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, fr.Entry.Name, string(fr.Status), fr.Result.MaxPlanets, len(fr.Result.Time),
		endTime, fr.Removed(), errText,
	)
	if err != nil {
		return fmt.Errorf("insert extraction %s: %w", fr.Entry.Name, err)
	}

	if err := insertPasses(tx, runID, fr.Entry.Name, fr.Result.Passes); err != nil {
		return err
	}
	return tx.Commit()
}

func insertPasses(tx *sql.Tx, runID, file string, passes []spikes.Pass) error {
	for i, p := range passes {
		spikesJSON, err := json.Marshal(spikeValues(p.Spikes))
		if err != nil {
			return err
		}
		_, err = tx.Exec(`
			INSERT INTO passes (run_id, file, pass, median, q1, q3, quartile_deviation, max_error, low, high, spikes_json)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, file, i+1, p.Median, p.Q1, p.Q3, p.QuartileDeviation, p.MaxError, p.Low, p.High, string(spikesJSON),
		)
		if err != nil {
			return fmt.Errorf("insert pass %d of %s: %w", i+1, file, err)
		}
	}
	return nil
}

// Extraction is a stored file result.
type Extraction struct {
	File       string
	Status     batch.Status
	MaxPlanets int
	Samples    int
	EndTime    sql.NullFloat64
	Removed    int
	Error      string
}

// Extractions returns the file results of runID in insertion order.
func (db *DB) Extractions(runID string) ([]Extraction, error) {
	rows, err := db.Query(`
		SELECT file, status, max_planets, samples, end_time, removed, error
		FROM extractions WHERE run_id = ? ORDER BY extraction_id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Extraction
	for rows.Next() {
		var e Extraction
		var status string
		if err := rows.Scan(&e.File, &status, &e.MaxPlanets, &e.Samples, &e.EndTime, &e.Removed, &e.Error); err != nil {
			return nil, err
		}
		e.Status = batch.Status(status)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Passes returns the stored cleaning passes of file in runID, in pass order.
func (db *DB) Passes(runID, file string) ([]spikes.Pass, error) {
	rows, err := db.Query(`
		SELECT median, q1, q3, quartile_deviation, max_error, low, high, spikes_json
		FROM passes WHERE run_id = ? AND file = ? ORDER BY pass`, runID, file)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []spikes.Pass
	for rows.Next() {
		var p spikes.Pass
		var spikesJSON string
		if err := rows.Scan(&p.Median, &p.Q1, &p.Q3, &p.QuartileDeviation, &p.MaxError, &p.Low, &p.High, &spikesJSON); err != nil {
			return nil, err
		}
		var values spikeValues
		if err := json.Unmarshal([]byte(spikesJSON), &values); err != nil {
			return nil, fmt.Errorf("decode spikes of %s: %w", file, err)
		}
		p.Spikes = values
		out = append(out, p)
	}
	return out, rows.Err()
}

// spikeValues stores the non-finite values JSON has no number for as the
// strings "+Inf", "-Inf" and "NaN".
type spikeValues []float64

func (s spikeValues) MarshalJSON() ([]byte, error) {
	out := make([]any, len(s))
	for i, v := range s {
		if math.IsInf(v, 0) || math.IsNaN(v) {
			out[i] = strconv.FormatFloat(v, 'g', -1, 64)
			continue
		}
		out[i] = v
	}
	return json.Marshal(out)
}

func (s *spikeValues) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(spikeValues, len(raw))
	for i, r := range raw {
		var text string
		if json.Unmarshal(r, &text) == nil {
			v, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return fmt.Errorf("spike %d: %w", i, err)
			}
			out[i] = v
			continue
		}
		if err := json.Unmarshal(r, &out[i]); err != nil {
			return fmt.Errorf("spike %d: %w", i, err)
		}
	}
	*s = out
	return nil
}
