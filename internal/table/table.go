// Package table loads simulation CSV output into a column-major numeric table.
package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"strconv"
	"strings"

	"github.com/banshee-data/multiplicity/internal/fsutil"
)

var (
	// ErrFileNotFound is returned by Load when the path does not exist.
	// Errors matching it also match fs.ErrNotExist.
	ErrFileNotFound = fs.ErrNotExist

	// ErrMissingColumn is returned when a required column is absent.
	ErrMissingColumn = errors.New("missing column")

	// ErrNoHeader is returned for input without a header row.
	ErrNoHeader = errors.New("csv has no header row")
)

// Table is a header paired with equal-length numeric columns.
// Header[i] names Columns[i]. A Table is not modified after loading.
type Table struct {
	Header  []string
	Columns [][]float64
}

// Load reads the CSV file at path from fsys.
func Load(fsys fsutil.FileSystem, path string) (*Table, error) {
	f, err := fsys.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", path, ErrFileNotFound)
		}
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	defer f.Close()

	t, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return t, nil
}

// Read parses CSV from r. The first record is the header; every later
// record is one sample. Cells that are empty or not numeric become NaN.
func Read(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	t := &Table{
		Header:  make([]string, len(header)),
		Columns: make([][]float64, len(header)),
	}
	for i, h := range header {
		t.Header[i] = strings.TrimSpace(h)
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		for i, cell := range record {
			t.Columns[i] = append(t.Columns[i], parseCell(cell))
		}
	}

	return t, nil
}

func parseCell(cell string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// Rows returns the number of samples.
func (t *Table) Rows() int {
	if len(t.Columns) == 0 {
		return 0
	}
	return len(t.Columns[0])
}

// Index returns the position of the named column.
func (t *Table) Index(name string) (int, bool) {
	for i, h := range t.Header {
		if h == name {
			return i, true
		}
	}
	return -1, false
}

// Has reports whether the named column exists.
func (t *Table) Has(name string) bool {
	_, ok := t.Index(name)
	return ok
}

// Column returns the named column. The slice is shared with the table and
// must not be modified.
func (t *Table) Column(name string) ([]float64, error) {
	i, ok := t.Index(name)
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrMissingColumn, name)
	}
	return t.Columns[i], nil
}
