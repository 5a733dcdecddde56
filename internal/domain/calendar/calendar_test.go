package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mondayOf(d time.Time) time.Time {
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

func TestMonthGridDatesWeekAlignment(t *testing.T) {
	for year := 1999; year <= 2041; year++ {
		for month := time.January; month <= time.December; month++ {
			dates := MonthGridDates(year, month)
			require.NotEmpty(t, dates, "%d-%02d", year, month)
			require.Zero(t, len(dates)%7, "%d-%02d length %d", year, month, len(dates))
			require.GreaterOrEqual(t, len(dates), 28)
			require.LessOrEqual(t, len(dates), 35)

			first, last := dates[0], dates[len(dates)-1]
			require.Equal(t, time.Monday, first.Weekday())
			require.Equal(t, time.Sunday, last.Weekday())
			require.Equal(t, month, first.Month())
			require.LessOrEqual(t, first.Day(), 7)

			lastMonday := mondayOf(last)
			require.Equal(t, month, lastMonday.Month())
			for i, d := range dates {
				m := mondayOf(d)
				require.False(t, m.Before(first), "%s before grid start", ISODate(d))
				require.False(t, m.After(lastMonday), "%s after last monday", ISODate(d))
				if i > 0 {
					require.Equal(t, dates[i-1].AddDate(0, 0, 1), d)
				}
			}

			// the Monday after the grid belongs to another month
			require.NotEqual(t, month, last.AddDate(0, 0, 1).Month())
		}
	}
}

func TestMonthGridDatesKnownMonths(t *testing.T) {
	june := MonthGridDates(2024, time.June)
	require.Len(t, june, 28)
	assert.Equal(t, "2024-06-03", ISODate(june[0]))
	assert.Equal(t, "2024-06-30", ISODate(june[len(june)-1]))

	july := MonthGridDates(2024, time.July)
	require.Len(t, july, 35)
	assert.Equal(t, "2024-07-01", ISODate(july[0]))
	assert.Equal(t, "2024-08-04", ISODate(july[len(july)-1]))

	aug := MonthGridDates(2024, time.August)
	assert.Equal(t, "2024-08-05", ISODate(aug[0]))
}

func TestDefaultShift(t *testing.T) {
	start := Date(2024, time.June, 1)
	for i := 0; i < 21; i++ {
		d := start.AddDate(0, 0, i)
		got := DefaultShift(d)
		switch d.Weekday() {
		case time.Saturday, time.Sunday:
			assert.Equal(t, ShiftWeeklyOff, got, ISODate(d))
		default:
			assert.Equal(t, ShiftGeneral, got, ISODate(d))
		}
		assert.Equal(t, got, DefaultShift(d))
	}
}

func TestAllowancePeriod(t *testing.T) {
	tests := []struct {
		name      string
		month     time.Month
		year      int
		wantStart string
		wantEnd   string
	}{
		{name: "january wraps to december", month: time.January, year: 2025, wantStart: "2024-12-26", wantEnd: "2025-01-25"},
		{name: "june", month: time.June, year: 2024, wantStart: "2024-05-26", wantEnd: "2024-06-25"},
		{name: "march after leap february", month: time.March, year: 2024, wantStart: "2024-02-26", wantEnd: "2024-03-25"},
		{name: "december", month: time.December, year: 2023, wantStart: "2023-11-26", wantEnd: "2023-12-25"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			start, end, err := AllowancePeriod(tc.month, tc.year)
			require.NoError(t, err)
			assert.Equal(t, tc.wantStart, ISODate(start))
			assert.Equal(t, tc.wantEnd, ISODate(end))
		})
	}

	_, _, err := AllowancePeriod(13, 2024)
	require.ErrorIs(t, err, ErrInvalidMonth)
}

func TestDaysInRangeAndMonthsTouched(t *testing.T) {
	start, end, err := AllowancePeriod(time.January, 2025)
	require.NoError(t, err)

	days := DaysInRange(start, end)
	require.Len(t, days, 31)
	assert.Equal(t, "2024-12-26", ISODate(days[0]))
	assert.Equal(t, "2025-01-25", ISODate(days[30]))

	months := MonthsTouched(days)
	assert.Equal(t, []YearMonth{{Year: 2024, Month: time.December}, {Year: 2025, Month: time.January}}, months)

	assert.Empty(t, DaysInRange(end, start))
}

func TestParseISODate(t *testing.T) {
	d, err := ParseISODate("2024-06-03")
	require.NoError(t, err)
	assert.Equal(t, Date(2024, time.June, 3), d)

	_, err = ParseISODate("03/06/2024")
	assert.Error(t, err)
}
