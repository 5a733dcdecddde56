package allowance

import (
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

type ShiftType string

const (
	ShiftTypeEST ShiftType = "EST"
	ShiftTypePST ShiftType = "PST"
)

// ParseShiftType accepts "EST" or "PST" in any case.
func ParseShiftType(value string) (ShiftType, error) {
	switch ShiftType(strings.ToUpper(strings.TrimSpace(value))) {
	case ShiftTypeEST:
		return ShiftTypeEST, nil
	case ShiftTypePST:
		return ShiftTypePST, nil
	}
	return "", ErrInvalidShiftType
}

// TargetShifts lists the shift codes that earn the night allowance.
func (t ShiftType) TargetShifts() []string {
	if t == ShiftTypePST {
		return []string{"Evening", "Night"}
	}
	return []string{"APAC", "Afternoon"}
}

// NonWorkingShifts do not count as a worked weekend day.
var NonWorkingShifts = []string{"WO", "PL", "AL", "Holiday"}

func isWorked(shift string) bool {
	return !slices.Contains(NonWorkingShifts, shift)
}

var (
	fullWeekend = decimal.NewFromInt(1)
	halfWeekend = decimal.NewFromFloat(0.5)
)

type NightShiftDay struct {
	Date    string `json:"date"`
	Shift   string `json:"shift"`
	Weekday string `json:"weekday"`
}

type NightShiftEntry struct {
	Process   string          `json:"process"`
	Employee  string          `json:"employee"`
	Dates     []NightShiftDay `json:"dates"`
	TotalDays int             `json:"totalDays"`
}

type NightShiftReport struct {
	Department   string            `json:"department"`
	ShiftType    ShiftType         `json:"shiftType"`
	PeriodStart  string            `json:"periodStart"`
	PeriodEnd    string            `json:"periodEnd"`
	TargetShifts []string          `json:"targetShifts"`
	Employees    []NightShiftEntry `json:"employees"`
}

func (r NightShiftReport) TotalDays() int {
	total := 0
	for _, e := range r.Employees {
		total += e.TotalDays
	}
	return total
}

type WeekendDay struct {
	Date  string `json:"date"`
	Shift string `json:"shift"`
}

// Weekend is one Saturday-Sunday unit, keyed by its Saturday even when the
// Saturday falls outside the billing period.
type Weekend struct {
	WeekendStart string          `json:"weekendStart"`
	Saturday     *WeekendDay     `json:"saturday,omitempty"`
	Sunday       *WeekendDay     `json:"sunday,omitempty"`
	Allowance    decimal.Decimal `json:"allowance"`
	WorkedDays   int             `json:"workedDays"`
}

type WeekendEntry struct {
	Process         string          `json:"process"`
	Employee        string          `json:"employee"`
	Weekends        []Weekend       `json:"weekends"`
	TotalAllowances decimal.Decimal `json:"totalAllowances"`
}

type WeekendReport struct {
	Department  string         `json:"department"`
	PeriodStart string         `json:"periodStart"`
	PeriodEnd   string         `json:"periodEnd"`
	Employees   []WeekendEntry `json:"employees"`
}

func (r WeekendReport) TotalAllowances() decimal.Decimal {
	total := decimal.Zero
	for _, e := range r.Employees {
		total = total.Add(e.TotalAllowances)
	}
	return total
}
