package signal

import (
	"errors"
	"fmt"

	"github.com/banshee-data/multiplicity/internal/fsutil"
	"github.com/banshee-data/multiplicity/internal/monitoring"
	"github.com/banshee-data/multiplicity/internal/table"
)

// Extractor loads simulation files and extracts their expectation series.
type Extractor struct {
	FS      fsutil.FileSystem
	Options Options

	// Tolerant converts a missing input file into the empty Result so a
	// batch can continue. When false the load error is returned.
	Tolerant bool
}

// NewExtractor returns a tolerant Extractor reading from fsys.
func NewExtractor(fsys fsutil.FileSystem, opts Options) *Extractor {
	return &Extractor{FS: fsys, Options: opts, Tolerant: true}
}

// ExtractFile loads path and extracts it.
func (e *Extractor) ExtractFile(path string) (Result, error) {
	t, err := table.Load(e.FS, path)
	if err != nil {
		if e.Tolerant && errors.Is(err, table.ErrFileNotFound) {
			monitoring.Logf("%v", err)
			return Result{}, nil
		}
		return Result{}, err
	}

	res, err := Extract(t, e.Options)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", path, err)
	}
	return res, nil
}
