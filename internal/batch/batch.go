// Package batch runs extraction and cleaning over a catalog of simulation
// files, one goroutine per file up to a worker limit.
package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/multiplicity/internal/catalog"
	"github.com/banshee-data/multiplicity/internal/monitoring"
	"github.com/banshee-data/multiplicity/internal/signal"
	"github.com/banshee-data/multiplicity/internal/spikes"
)

// Status is the outcome of processing one file.
type Status string

const (
	StatusOK      Status = "ok"
	StatusMissing Status = "missing"
	// StatusSkipped marks a run that ended before the early-exit threshold.
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// FileResult is the outcome for one catalog entry.
type FileResult struct {
	Entry  catalog.Entry
	Path   string
	Status Status
	Result signal.Result
	Err    error
}

// Removed is the number of spike samples cleaning removed.
func (r FileResult) Removed() int {
	return spikes.Removed(r.Result.Passes)
}

// RemovedFraction is Removed over the number of samples, or zero for an
// empty result.
func (r FileResult) RemovedFraction() float64 {
	if len(r.Result.Time) == 0 {
		return 0
	}
	return float64(r.Removed()) / float64(len(r.Result.Time))
}

// Recorder persists file results. Calls are serialized by the Runner.
type Recorder interface {
	RecordExtraction(runID string, fr FileResult) error
}

// Renderer draws a successfully extracted file. It may be called concurrently.
type Renderer interface {
	Render(fr FileResult) error
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(FileResult) error

// Render calls f.
func (f RendererFunc) Render(fr FileResult) error { return f(fr) }

// Runner processes catalog entries from Dir.
type Runner struct {
	Extractor *signal.Extractor
	Dir       string
	Workers   int

	// FailFast stops the batch at the first failed file.
	FailFast bool

	RunID    string
	Recorder Recorder
	Renderer Renderer
	Metrics  *Metrics

	recordMu sync.Mutex
}

// Summary holds one FileResult per entry, in catalog order.
type Summary struct {
	Files []FileResult
}

// Count returns the number of files with status s.
func (s Summary) Count(status Status) int {
	n := 0
	for _, f := range s.Files {
		if f.Status == status {
			n++
		}
	}
	return n
}

// Failed returns the failed files.
func (s Summary) Failed() []FileResult {
	var out []FileResult
	for _, f := range s.Files {
		if f.Status == StatusFailed {
			out = append(out, f)
		}
	}
	return out
}

// HighVariation returns the extracted files whose removed-spike fraction
// exceeds fraction. These are the candidates for the unstable system list.
func (s Summary) HighVariation(fraction float64) []FileResult {
	var out []FileResult
	for _, f := range s.Files {
		if f.Status == StatusOK && f.RemovedFraction() > fraction {
			out = append(out, f)
		}
	}
	return out
}

// Run processes entries concurrently. A failed file is logged and recorded
// with StatusFailed; the batch continues unless FailFast is set, in which
// case the first failure is returned alongside the partial Summary.
// Entries not reached because of cancellation have an empty Status.
func (r *Runner) Run(ctx context.Context, entries []catalog.Entry) (Summary, error) {
	if r.Extractor == nil {
		return Summary{}, errors.New("batch: nil extractor")
	}
	workers := r.Workers
	if workers <= 0 {
		workers = 1
	}

	results := make([]FileResult, len(entries))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, e := range entries {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			fr := r.process(e)
			results[i] = fr
			if r.Metrics != nil {
				r.Metrics.Observe(fr, time.Since(start))
			}

			if fr.Status == StatusFailed {
				monitoring.Errorf("%s: %v", fr.Path, fr.Err)
			}
			if err := r.record(fr); err != nil {
				return err
			}
			if fr.Status == StatusFailed && r.FailFast {
				return fr.Err
			}
			if fr.Status == StatusOK && r.Renderer != nil {
				if err := r.Renderer.Render(fr); err != nil {
					monitoring.Errorf("render %s: %v", fr.Path, err)
				}
			}
			return nil
		})
	}

	err := g.Wait()
	sum := Summary{Files: results}
	monitoring.Logf("batch: %d ok, %d missing, %d skipped, %d failed",
		sum.Count(StatusOK), sum.Count(StatusMissing), sum.Count(StatusSkipped), sum.Count(StatusFailed))
	return sum, err
}

func (r *Runner) process(e catalog.Entry) FileResult {
	fr := FileResult{Entry: e, Path: e.Path(r.Dir)}

	if !r.Extractor.FS.Exists(fr.Path) {
		monitoring.Logf("%s: not found", fr.Path)
		fr.Status = StatusMissing
		return fr
	}

	res, err := r.Extractor.ExtractFile(fr.Path)
	switch {
	case err != nil:
		fr.Status = StatusFailed
		fr.Err = err
	case res.Empty():
		fr.Status = StatusSkipped
	default:
		fr.Status = StatusOK
		fr.Result = res
	}
	return fr
}

func (r *Runner) record(fr FileResult) error {
	if r.Recorder == nil {
		return nil
	}
	r.recordMu.Lock()
	defer r.recordMu.Unlock()
	if err := r.Recorder.RecordExtraction(r.RunID, fr); err != nil {
		return fmt.Errorf("record %s: %w", fr.Path, err)
	}
	return nil
}
