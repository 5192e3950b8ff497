package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
)

// Write emits header and columns as CSV, the inverse of Read. Columns must
// all have the same length. NaN is written as "nan".
func Write(w io.Writer, header []string, columns [][]float64) error {
	if len(header) != len(columns) {
		return fmt.Errorf("header has %d names for %d columns", len(header), len(columns))
	}
	rows := 0
	if len(columns) > 0 {
		rows = len(columns[0])
	}
	for i, c := range columns {
		if len(c) != rows {
			return fmt.Errorf("column %q has %d rows, want %d", header[i], len(c), rows)
		}
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	record := make([]string, len(columns))
	for r := 0; r < rows; r++ {
		for c := range columns {
			record[c] = formatCell(columns[c][r])
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSV writes the table back out as CSV.
func (t *Table) WriteCSV(w io.Writer) error {
	return Write(w, t.Header, t.Columns)
}

func formatCell(v float64) string {
	if math.IsNaN(v) {
		return "nan"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
