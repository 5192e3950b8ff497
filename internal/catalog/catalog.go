// Package catalog lists simulation output files and orders them by system
// number, placing the randomized-orientation run of a system right after
// its aligned run.
package catalog

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/banshee-data/multiplicity/internal/fsutil"
)

const (
	prefix       = "sysSim_"
	randomSuffix = "_randomO.csv"
	plainSuffix  = ".csv"
)

// ErrBadName is returned for file names outside the sysSim_<N>[_randomO].csv convention.
var ErrBadName = errors.New("not a simulation file name")

// Entry is one simulation output file.
type Entry struct {
	Name              string
	Number            int
	RandomOrientation bool
}

// SortKey orders entries: the system number, plus one half for the
// randomized-orientation variant.
func (e Entry) SortKey() float64 {
	if e.RandomOrientation {
		return float64(e.Number) + 0.5
	}
	return float64(e.Number)
}

// Path joins the entry name onto dir.
func (e Entry) Path(dir string) string {
	return filepath.Join(dir, e.Name)
}

// Stem is the name without its .csv extension, used for output files.
func (e Entry) Stem() string {
	return strings.TrimSuffix(e.Name, plainSuffix)
}

// Parse decodes a file name such as "sysSim_12.csv" or "sysSim_12_randomO.csv".
func Parse(name string) (Entry, error) {
	if !strings.HasPrefix(name, prefix) {
		return Entry{}, fmt.Errorf("%w: %q", ErrBadName, name)
	}
	rest := strings.TrimPrefix(name, prefix)

	e := Entry{Name: name}
	switch {
	case strings.HasSuffix(rest, randomSuffix):
		rest = strings.TrimSuffix(rest, randomSuffix)
		e.RandomOrientation = true
	case strings.HasSuffix(rest, plainSuffix):
		rest = strings.TrimSuffix(rest, plainSuffix)
	default:
		return Entry{}, fmt.Errorf("%w: %q", ErrBadName, name)
	}

	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 {
		return Entry{}, fmt.Errorf("%w: %q", ErrBadName, name)
	}
	e.Number = n
	return e, nil
}

// Sort orders entries in place by SortKey.
func Sort(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].SortKey() < entries[j].SortKey()
	})
}

// List reads dir and returns its simulation files in order. Names that do
// not follow the convention are skipped.
func List(fsys fsutil.FileSystem, dir string) ([]Entry, error) {
	names, err := fsys.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}

	entries := make([]Entry, 0, len(names))
	for _, name := range names {
		e, err := Parse(name)
		if err != nil {
			continue
		}
		entries = append(entries, e)
	}
	Sort(entries)
	return entries, nil
}

// Stable returns the entries whose names are not in unstable, preserving
// order. The input slice is not modified.
func Stable(entries []Entry, unstable []string) []Entry {
	skip := make(map[string]struct{}, len(unstable))
	for _, name := range unstable {
		skip[name] = struct{}{}
	}

	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if _, ok := skip[e.Name]; ok {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Names returns the file names of entries.
func Names(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name
	}
	return out
}
