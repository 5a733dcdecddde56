package rota

import (
	"fmt"
	"strings"
	"time"

	"shiftrota/internal/domain/calendar"
	"shiftrota/internal/domain/department"
)

// PeriodKey addresses one department's overrides for one rota month.
type PeriodKey struct {
	Department string
	Month      time.Month
	Year       int
}

func (k PeriodKey) String() string {
	return fmt.Sprintf("%s|%d|%d", k.Department, int(k.Month), k.Year)
}

// Overrides maps a cell key to the shift code chosen for it. Cells without
// an entry fall back to the default shift for their date.
type Overrides map[string]string

const sep = department.KeySeparator

// CellKey builds the "process|employee|YYYY-MM-DD" key of one grid cell.
func CellKey(process, employee string, d time.Time) string {
	return process + sep + employee + sep + calendar.ISODate(d)
}

// ParseCellKey splits a cell key. The process ends at the first separator
// and the date starts after the last one, so keys written before names were
// restricted still parse. The date must be an ISO date.
func ParseCellKey(key string) (process, employee string, d time.Time, err error) {
	process, rest, ok := strings.Cut(key, sep)
	last := strings.LastIndex(rest, sep)
	if !ok || last < 0 || process == "" || last == 0 {
		return "", "", time.Time{}, fmt.Errorf("%q: %w", key, ErrInvalidCellKey)
	}
	employee = rest[:last]
	d, err = calendar.ParseISODate(rest[last+len(sep):])
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("%q: %w", key, ErrInvalidCellKey)
	}
	return process, employee, d, nil
}

type GridQuery struct {
	Department string
	Month      time.Month
	Year       int
	Processes  []string
	Shifts     []string
}

func (q GridQuery) Period() PeriodKey {
	return PeriodKey{Department: q.Department, Month: q.Month, Year: q.Year}
}

type DateHeader struct {
	DateStr    string `json:"dateStr"`
	Weekday    string `json:"weekday"`
	Day        string `json:"day"`
	MonthShort string `json:"monthShort"`
}

// Label renders the header as it appears in exports, e.g. "Mon 3 Jun".
func (h DateHeader) Label() string {
	return h.Weekday + " " + h.Day + " " + h.MonthShort
}

type Cell struct {
	Date  string `json:"date"`
	Value string `json:"value"`
	Key   string `json:"key"`
}

type Row struct {
	Process  string `json:"process"`
	Employee string `json:"employee"`
	Cells    []Cell `json:"cells"`
}

type ShiftDef struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type Grid struct {
	Department  string       `json:"department"`
	Month       int          `json:"month"`
	Year        int          `json:"year"`
	Rows        []Row        `json:"rows"`
	DateHeaders []DateHeader `json:"dateHeaders"`
	Shifts      []ShiftDef   `json:"shifts"`
}
