// Package export renders diagnostic test records as spreadsheets.
package export

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/dxresults/dxresults/internal/domain/diagnostictest"
)

const SheetName = "Diagnostic Tests"

// Header is the first row of every export, in column order.
var Header = []string{
	"ID",
	"Patient Name",
	"Test Type",
	"Result",
	"Test Date (UTC)",
	"Notes",
}

var columnWidths = []float64{38, 24, 20, 16, 24, 48}

// XLSX renders records, one per row under a styled header, in the order given.
func XLSX(records []*diagnostictest.DiagnosticTest) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(SheetName)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("delete default sheet: %w", err)
	}

	if err := writeHeader(f); err != nil {
		return nil, err
	}

	for i, r := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(SheetName, cell, &[]any{
			r.ID.String(),
			r.PatientName,
			r.TestType,
			r.Result,
			r.TestDate.UTC().Format(time.RFC3339),
			notes(r.Notes),
		}); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := addTestTypeList(f, len(records)); err != nil {
		return nil, err
	}

	// Keep the header visible while scrolling.
	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("freeze header: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("encode workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteFile renders records and writes the workbook to path.
func WriteFile(path string, records []*diagnostictest.DiagnosticTest) error {
	data, err := XLSX(records)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func writeHeader(f *excelize.File) error {
	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	row := make([]any, len(Header))
	for i, h := range Header {
		row[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &row); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	last, err := excelize.CoordinatesToCellName(len(Header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetName, "A1", last, style); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i, w := range columnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(SheetName, col, col, w); err != nil {
			return fmt.Errorf("set width of %s: %w", col, err)
		}
	}
	return nil
}

// addTestTypeList offers diagnostictest.KnownTestTypes as a drop-down on the
// Test Type column. Other values stay allowed, matching the API.
func addTestTypeList(f *excelize.File, rows int) error {
	last := rows + 1
	if last < 2 {
		last = 2
	}
	dv := excelize.NewDataValidation(true)
	dv.Sqref = fmt.Sprintf("C2:C%d", last)
	if err := dv.SetDropList(diagnostictest.KnownTestTypes); err != nil {
		return fmt.Errorf("test type list: %w", err)
	}
	dv.ShowErrorMessage = false
	if err := f.AddDataValidation(SheetName, dv); err != nil {
		return fmt.Errorf("add test type list: %w", err)
	}
	return nil
}

func notes(n *string) string {
	if n == nil {
		return ""
	}
	return *n
}
