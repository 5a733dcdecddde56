package calendar

import (
	"errors"
	"time"
)

const isoLayout = "2006-01-02"

const (
	ShiftWeeklyOff = "WO"
	ShiftGeneral   = "General"
)

var ErrInvalidMonth = errors.New("month must be between 1 and 12")

// YearMonth identifies one calendar month.
type YearMonth struct {
	Year  int
	Month time.Month
}

// Date returns the calendar date at midnight UTC. Dates carry no zone meaning.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func ISODate(d time.Time) string {
	return d.Format(isoLayout)
}

func ParseISODate(value string) (time.Time, error) {
	return time.Parse(isoLayout, value)
}

// MonthGridDates returns the complete Monday-Sunday weeks owned by the month.
// A week is owned by the month containing its Monday, so a trailing partial
// week belongs to the next month's grid.
func MonthGridDates(year int, month time.Month) []time.Time {
	current := Date(year, month, 1)
	for current.Weekday() != time.Monday {
		current = current.AddDate(0, 0, 1)
	}

	dates := make([]time.Time, 0, 35)
	for weekStart := current; weekStart.Month() == month; weekStart = weekStart.AddDate(0, 0, 7) {
		for offset := 0; offset < 7; offset++ {
			dates = append(dates, weekStart.AddDate(0, 0, offset))
		}
	}
	return dates
}

// DefaultShift is the code a cell resolves to when no override is stored.
func DefaultShift(d time.Time) string {
	if IsWeekend(d) {
		return ShiftWeeklyOff
	}
	return ShiftGeneral
}

func IsWeekend(d time.Time) bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// AllowancePeriod returns the billing window [26th of previous month, 25th of month].
func AllowancePeriod(month time.Month, year int) (time.Time, time.Time, error) {
	if month < time.January || month > time.December {
		return time.Time{}, time.Time{}, ErrInvalidMonth
	}
	var start time.Time
	if month == time.January {
		start = Date(year-1, time.December, 26)
	} else {
		start = Date(year, month-1, 26)
	}
	return start, Date(year, month, 25), nil
}

// DaysInRange returns every date from start to end inclusive.
func DaysInRange(start, end time.Time) []time.Time {
	var days []time.Time
	for current := start; !current.After(end); current = current.AddDate(0, 0, 1) {
		days = append(days, current)
	}
	return days
}

// MonthsTouched lists the distinct months of dates in first-seen order.
func MonthsTouched(dates []time.Time) []YearMonth {
	seen := map[YearMonth]struct{}{}
	var out []YearMonth
	for _, d := range dates {
		ym := YearMonth{Year: d.Year(), Month: d.Month()}
		if _, ok := seen[ym]; ok {
			continue
		}
		seen[ym] = struct{}{}
		out = append(out, ym)
	}
	return out
}
