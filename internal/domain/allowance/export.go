package allowance

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"shiftrota/internal/domain/rota"
)

func NightShiftFileName(dept string, shiftType ShiftType, month, year int, ext string) string {
	return fmt.Sprintf("%s_%s_Allowances_%d-%02d.%s", dept, shiftType, year, month, ext)
}

func WeekendFileName(dept string, month, year int, ext string) string {
	return fmt.Sprintf("%s_Weekend_Allowances_%d-%02d.%s", dept, year, month, ext)
}

func quoted(s string) string {
	return rota.QuoteCSV([]string{s})
}

func nightShiftDetails(e NightShiftEntry) string {
	parts := make([]string, 0, len(e.Dates))
	for _, d := range e.Dates {
		parts = append(parts, fmt.Sprintf("%s (%s): %s", d.Date, d.Weekday, d.Shift))
	}
	return strings.Join(parts, "; ")
}

func weekendDetails(e WeekendEntry) string {
	parts := make([]string, 0, len(e.Weekends))
	for _, w := range e.Weekends {
		var days []string
		if w.Saturday != nil {
			days = append(days, "Sat("+w.Saturday.Shift+")")
		}
		if w.Sunday != nil {
			days = append(days, "Sun("+w.Sunday.Shift+")")
		}
		parts = append(parts, fmt.Sprintf("%s: %s = %s", w.WeekendStart, strings.Join(days, "+"), w.Allowance.StringFixed(1)))
	}
	return strings.Join(parts, "; ")
}

func writeLines(w io.Writer, lines []string) error {
	_, err := io.WriteString(w, strings.Join(lines, "\n")+"\n")
	return err
}

func WriteNightShiftCSV(w io.Writer, r NightShiftReport) error {
	lines := []string{
		quoted("Night Shift Allowances - " + string(r.ShiftType)),
		quoted("Period: " + r.PeriodStart + " to " + r.PeriodEnd),
		quoted("Target Shifts: " + strings.Join(r.TargetShifts, ", ")),
		"",
		rota.QuoteCSV([]string{"Employee Name", "Total Days", "Shift Details"}),
	}
	for _, e := range r.Employees {
		lines = append(lines, rota.QuoteCSV([]string{e.Employee, strconv.Itoa(e.TotalDays), nightShiftDetails(e)}))
	}
	lines = append(lines,
		"",
		quoted("Summary"),
		quoted(fmt.Sprintf("Total Employees with %s Shifts: %d", r.ShiftType, len(r.Employees))),
		quoted(fmt.Sprintf("Total %s Shift Days: %d", r.ShiftType, r.TotalDays())),
	)
	return writeLines(w, lines)
}

func WriteWeekendCSV(w io.Writer, r WeekendReport) error {
	lines := []string{
		quoted("Weekend Allowances Report"),
		quoted("Period: " + r.PeriodStart + " to " + r.PeriodEnd),
		quoted("Allowance Rules: Full Weekend (Sat+Sun) = 1.0, Single Day = 0.5"),
		"",
		rota.QuoteCSV([]string{"Employee Name", "Total Allowances", "Weekend Details"}),
	}
	for _, e := range r.Employees {
		lines = append(lines, rota.QuoteCSV([]string{e.Employee, e.TotalAllowances.StringFixed(1), weekendDetails(e)}))
	}
	// an empty report sums to a bare 0
	total := "0"
	if len(r.Employees) > 0 {
		total = r.TotalAllowances().StringFixed(1)
	}
	lines = append(lines,
		"",
		quoted("Summary"),
		quoted(fmt.Sprintf("Total Employees with Weekend Work: %d", len(r.Employees))),
		quoted("Total Weekend Allowances: "+total),
	)
	return writeLines(w, lines)
}

type pdfTable struct {
	title   string
	lines   []string
	header  []string
	widths  []float64
	rows    [][]string
	summary []string
}

func writePDF(w io.Writer, t pdfTable) error {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, t.title)
	pdf.Ln(12)
	pdf.SetFont("Helvetica", "", 11)
	for _, line := range t.lines {
		pdf.Cell(0, 7, line)
		pdf.Ln(7)
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 10)
	for i, h := range t.header {
		pdf.CellFormat(t.widths[i], 8, h, "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Helvetica", "", 9)
	for _, row := range t.rows {
		// the details column wraps, so size the row from it
		lines := pdf.SplitLines([]byte(row[len(row)-1]), t.widths[len(row)-1])
		height := float64(max(len(lines), 1)) * 5
		x, y := pdf.GetX(), pdf.GetY()
		for i := 0; i < len(row)-1; i++ {
			pdf.CellFormat(t.widths[i], height, row[i], "1", 0, "L", false, 0, "")
		}
		pdf.MultiCell(t.widths[len(row)-1], 5, row[len(row)-1], "1", "L", false)
		pdf.SetXY(x, y+height)
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "B", 11)
	for _, line := range t.summary {
		pdf.Cell(0, 7, line)
		pdf.Ln(7)
	}
	return pdf.Output(w)
}

func WriteNightShiftPDF(w io.Writer, r NightShiftReport) error {
	t := pdfTable{
		title: fmt.Sprintf("Night Shift Allowances - %s", r.ShiftType),
		lines: []string{
			"Department: " + r.Department,
			"Period: " + r.PeriodStart + " to " + r.PeriodEnd,
			"Target Shifts: " + strings.Join(r.TargetShifts, ", "),
		},
		header: []string{"Employee Name", "Total Days", "Shift Details"},
		widths: []float64{60, 25, 192},
		summary: []string{
			fmt.Sprintf("Total Employees with %s Shifts: %d", r.ShiftType, len(r.Employees)),
			fmt.Sprintf("Total %s Shift Days: %d", r.ShiftType, r.TotalDays()),
		},
	}
	for _, e := range r.Employees {
		t.rows = append(t.rows, []string{e.Employee, strconv.Itoa(e.TotalDays), nightShiftDetails(e)})
	}
	return writePDF(w, t)
}

func WriteWeekendPDF(w io.Writer, r WeekendReport) error {
	t := pdfTable{
		title: "Weekend Allowances Report",
		lines: []string{
			"Department: " + r.Department,
			"Period: " + r.PeriodStart + " to " + r.PeriodEnd,
			"Allowance Rules: Full Weekend (Sat+Sun) = 1.0, Single Day = 0.5",
		},
		header: []string{"Employee Name", "Total Allowances", "Weekend Details"},
		widths: []float64{60, 35, 182},
		summary: []string{
			fmt.Sprintf("Total Employees with Weekend Work: %d", len(r.Employees)),
			"Total Weekend Allowances: " + r.TotalAllowances().StringFixed(1),
		},
	}
	for _, e := range r.Employees {
		t.rows = append(t.rows, []string{e.Employee, e.TotalAllowances.StringFixed(1), weekendDetails(e)})
	}
	return writePDF(w, t)
}
