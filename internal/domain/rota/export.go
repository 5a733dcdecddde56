package rota

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Rota"

func CSVFileName(dept string, month, year int) string {
	return fmt.Sprintf("%s_ShiftRota_%d-%02d.csv", dept, year, month)
}

func XLSXFileName(dept string, month, year int) string {
	return fmt.Sprintf("%s_ShiftRota_%d-%02d.xlsx", dept, year, month)
}

func exportHeader(grid Grid) []string {
	header := []string{"Process", "Employee"}
	for _, h := range grid.DateHeaders {
		header = append(header, h.Label())
	}
	return header
}

func exportRow(row Row) []string {
	out := []string{row.Process, row.Employee}
	for _, c := range row.Cells {
		out = append(out, c.Value)
	}
	return out
}

// QuoteCSV joins fields with every field double-quoted and inner quotes
// doubled. encoding/csv only quotes when needed, which changes the format.
func QuoteCSV(fields []string) string {
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
	}
	return strings.Join(quoted, ",")
}

// WriteCSV renders the grid with "\n" line endings, header first.
func WriteCSV(w io.Writer, grid Grid) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(QuoteCSV(exportHeader(grid)) + "\n"); err != nil {
		return err
	}
	for _, row := range grid.Rows {
		if _, err := bw.WriteString(QuoteCSV(exportRow(row)) + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteXLSX renders the same table as WriteCSV into a single-sheet workbook.
func WriteXLSX(w io.Writer, grid Grid) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return err
	}

	header := exportHeader(grid)
	if err := setRow(f, 1, header); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetRowStyle(sheetName, 1, 1, bold); err != nil {
		return err
	}

	for i, row := range grid.Rows {
		if err := setRow(f, i+2, exportRow(row)); err != nil {
			return err
		}
	}

	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		XSplit:      2,
		YSplit:      1,
		TopLeftCell: "C2",
		ActivePane:  "bottomRight",
	}); err != nil {
		return err
	}

	_, err = f.WriteTo(w)
	return err
}

func setRow(f *excelize.File, rowNum int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	row := make([]interface{}, len(values))
	for i, v := range values {
		row[i] = v
	}
	return f.SetSheetRow(sheetName, cell, &row)
}
