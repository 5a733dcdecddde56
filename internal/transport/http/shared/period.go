package shared

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"shiftrota/internal/domain/rota"
)

// ParsePeriod reads a month and year. Blank values default to the month and
// year of now; anything else must be an integer in range.
func ParsePeriod(monthRaw, yearRaw string, now time.Time) (time.Month, int, error) {
	month := int(now.Month())
	year := now.Year()
	if raw := strings.TrimSpace(monthRaw); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return 0, 0, fmt.Errorf("month %q: %w", raw, rota.ErrInvalidPeriod)
		}
		month = v
	}
	if raw := strings.TrimSpace(yearRaw); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return 0, 0, fmt.Errorf("year %q: %w", raw, rota.ErrInvalidPeriod)
		}
		year = v
	}
	if err := rota.ValidatePeriod(time.Month(month), year); err != nil {
		return 0, 0, err
	}
	return time.Month(month), year, nil
}

// QueryPeriod is ParsePeriod over the month and year query parameters.
func QueryPeriod(r *http.Request, now time.Time) (time.Month, int, error) {
	q := r.URL.Query()
	return ParsePeriod(q.Get("month"), q.Get("year"), now)
}

// QueryList returns the non-empty values of a repeated query parameter.
func QueryList(r *http.Request, name string) []string {
	var out []string
	for _, v := range r.URL.Query()[name] {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
