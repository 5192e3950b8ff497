// Package report exports batch summaries as spreadsheets.
package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/banshee-data/multiplicity/internal/batch"
)

const (
	SummarySheet       = "Summary"
	HighVariationSheet = "High variation"
)

var summaryHeader = []interface{}{
	"File", "Status", "Max planets", "Samples", "End time", "Spikes removed", "Removed fraction", "Error",
}

// WriteXLSX writes sum as a workbook with one row per file, plus a sheet
// listing the files whose removed fraction exceeds highVariation.
func WriteXLSX(w io.Writer, sum batch.Summary, highVariation float64) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return err
	}
	if err := writeRows(f, SummarySheet, sum.Files); err != nil {
		return err
	}

	if _, err := f.NewSheet(HighVariationSheet); err != nil {
		return err
	}
	if err := writeRows(f, HighVariationSheet, sum.HighVariation(highVariation)); err != nil {
		return err
	}

	if err := f.SetPanes(SummarySheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, files []batch.FileResult) error {
	if err := f.SetSheetRow(sheet, "A1", &summaryHeader); err != nil {
		return err
	}
	for i, fr := range files {
		errText := ""
		if fr.Err != nil {
			errText = fr.Err.Error()
		}
		row := []interface{}{
			fr.Entry.Name,
			string(fr.Status),
			fr.Result.MaxPlanets,
			len(fr.Result.Time),
			fr.Result.EndTime,
			fr.Removed(),
			fr.RemovedFraction(),
			errText,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}
