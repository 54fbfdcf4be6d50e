// Package report renders a core.Report for download: the CSV report, the
// JSON category summary and an XLSX workbook.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"

	"expensetracker/internal/core"

	"github.com/xuri/excelize/v2"
)

const (
	CSVFilename  = "expense_report.csv"
	XLSXFilename = "expense_report.xlsx"

	CSVContentType  = "text/csv"
	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	expensesSheet = "Expenses"
	summarySheet  = "Summary"
)

var expenseHeader = []string{"Date", "Amount", "Category", "Description"}

// WriteCSV writes the expense rows, a blank row, the category summary
// section, another blank row and the grand total.
func WriteCSV(w io.Writer, rep core.Report) error {
	rows := make([][]string, 0, len(rep.Expenses)+len(rep.Categories)+6)
	rows = append(rows, expenseHeader)
	for _, e := range rep.Expenses {
		rows = append(rows, []string{e.Date.String(), e.Amount.String(), string(e.Category), e.Description})
	}
	rows = append(rows,
		[]string{},
		[]string{"Category Summary"},
		[]string{"Category", "Total Amount"},
	)
	for _, c := range rep.Categories {
		rows = append(rows, []string{string(c.Category), c.Total.String()})
	}
	rows = append(rows, []string{}, []string{"Total Expenses", rep.Total.String()})

	cw := csv.NewWriter(w)
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write csv report: %w", err)
	}
	return nil
}

// SummaryMap returns the category totals as JSON-friendly numbers.
func SummaryMap(rep core.Report) map[string]float64 {
	out := make(map[string]float64, len(rep.Categories))
	for _, c := range rep.Categories {
		out[string(c.Category)] = c.Total.InexactFloat64()
	}
	return out
}

// WriteSummaryJSON writes {"category": total, ...}.
func WriteSummaryJSON(w io.Writer, rep core.Report) error {
	if err := json.NewEncoder(w).Encode(SummaryMap(rep)); err != nil {
		return fmt.Errorf("encode category summary: %w", err)
	}
	return nil
}

// WriteXLSX writes a workbook with an "Expenses" sheet and a "Summary" sheet.
func WriteXLSX(w io.Writer, rep core.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", expensesSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}

	sw := &sheetWriter{f: f}
	sw.row(expensesSheet, 1, expenseHeader[0], expenseHeader[1], expenseHeader[2], expenseHeader[3])
	for i, e := range rep.Expenses {
		sw.row(expensesSheet, i+2, e.Date.String(), e.Amount.InexactFloat64(), string(e.Category), e.Description)
	}

	sw.row(summarySheet, 1, "Category", "Total Amount")
	row := 2
	for _, c := range rep.Categories {
		sw.row(summarySheet, row, string(c.Category), c.Total.InexactFloat64())
		row++
	}
	sw.row(summarySheet, row+1, "Total Expenses", rep.Total.InexactFloat64())
	if sw.err != nil {
		return fmt.Errorf("fill xlsx report: %w", sw.err)
	}
	if err := f.SetColWidth(expensesSheet, "D", "D", 40); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx report: %w", err)
	}
	return nil
}

// sheetWriter fills rows and keeps the first error.
type sheetWriter struct {
	f   *excelize.File
	err error
}

func (sw *sheetWriter) row(sheet string, row int, values ...any) {
	for col, v := range values {
		if sw.err != nil {
			return
		}
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			sw.err = err
			return
		}
		sw.err = sw.f.SetCellValue(sheet, cell, v)
	}
}
