package allowance

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"shiftrota/internal/domain/calendar"
	"shiftrota/internal/domain/department"
	"shiftrota/internal/domain/rota"
)

type PeriodSource interface {
	GetPeriod(ctx context.Context, key rota.PeriodKey) rota.Overrides
}

// Engine derives allowance reports from stored rota data. Nothing it
// computes is persisted.
type Engine struct {
	Rota        PeriodSource
	Departments rota.DepartmentSource
}

func NewEngine(periods PeriodSource, departments rota.DepartmentSource) *Engine {
	return &Engine{Rota: periods, Departments: departments}
}

type period struct {
	dept     *department.Department
	start    time.Time
	end      time.Time
	dates    []time.Time
	resolved func(process, employee string, d time.Time) string
}

func (e *Engine) load(ctx context.Context, deptName string, month time.Month, year int) (period, error) {
	if err := rota.ValidatePeriod(month, year); err != nil {
		return period{}, err
	}
	dept, err := e.Departments.Get(ctx, deptName)
	if err != nil {
		return period{}, err
	}
	if !dept.AllowancesEnabled {
		return period{}, fmt.Errorf("%s: %w", deptName, ErrNotEnabled)
	}

	start, end, err := calendar.AllowancePeriod(month, year)
	if err != nil {
		return period{}, err
	}
	dates := calendar.DaysInRange(start, end)

	// The billing window straddles two rota months; later months win on
	// duplicate keys.
	merged := rota.Overrides{}
	for _, ym := range calendar.MonthsTouched(dates) {
		saved := e.Rota.GetPeriod(ctx, rota.PeriodKey{Department: deptName, Month: ym.Month, Year: ym.Year})
		for k, v := range saved {
			merged[k] = v
		}
	}

	return period{
		dept:  dept,
		start: start,
		end:   end,
		dates: dates,
		resolved: func(process, employee string, d time.Time) string {
			if v := merged[rota.CellKey(process, employee, d)]; v != "" {
				return v
			}
			return calendar.DefaultShift(d)
		},
	}, nil
}

// NightShift counts, per employee, the days in the billing period whose
// resolved shift is one of the shift type's target codes.
func (e *Engine) NightShift(ctx context.Context, deptName string, month time.Month, year int, shiftType ShiftType) (NightShiftReport, error) {
	p, err := e.load(ctx, deptName, month, year)
	if err != nil {
		return NightShiftReport{}, err
	}
	targets := shiftType.TargetShifts()
	report := NightShiftReport{
		Department:   deptName,
		ShiftType:    shiftType,
		PeriodStart:  calendar.ISODate(p.start),
		PeriodEnd:    calendar.ISODate(p.end),
		TargetShifts: targets,
		Employees:    []NightShiftEntry{},
	}

	for _, process := range p.dept.Processes.Keys() {
		for _, employee := range p.dept.Employees(process) {
			entry := NightShiftEntry{Process: process, Employee: employee}
			for _, d := range p.dates {
				shift := p.resolved(process, employee, d)
				if !slices.Contains(targets, shift) {
					continue
				}
				entry.Dates = append(entry.Dates, NightShiftDay{
					Date:    calendar.ISODate(d),
					Shift:   shift,
					Weekday: d.Format("Mon"),
				})
				entry.TotalDays++
			}
			if entry.TotalDays > 0 {
				report.Employees = append(report.Employees, entry)
			}
		}
	}
	return report, nil
}

// Weekend pays 1.0 for a worked Saturday and Sunday of the same weekend and
// 0.5 for a single worked day. A Sunday opening the period forms a unit on
// its own.
func (e *Engine) Weekend(ctx context.Context, deptName string, month time.Month, year int) (WeekendReport, error) {
	p, err := e.load(ctx, deptName, month, year)
	if err != nil {
		return WeekendReport{}, err
	}
	report := WeekendReport{
		Department:  deptName,
		PeriodStart: calendar.ISODate(p.start),
		PeriodEnd:   calendar.ISODate(p.end),
		Employees:   []WeekendEntry{},
	}

	for _, process := range p.dept.Processes.Keys() {
		for _, employee := range p.dept.Employees(process) {
			entry := WeekendEntry{Process: process, Employee: employee, TotalAllowances: decimal.Zero}
			for _, w := range weekendUnits(p, process, employee) {
				if w.Saturday == nil && w.Sunday == nil {
					continue
				}
				w.Allowance = halfWeekend
				if w.Saturday != nil && w.Sunday != nil {
					w.Allowance = fullWeekend
				}
				entry.Weekends = append(entry.Weekends, w)
				entry.TotalAllowances = entry.TotalAllowances.Add(w.Allowance)
			}
			if entry.TotalAllowances.IsPositive() {
				report.Employees = append(report.Employees, entry)
			}
		}
	}
	return report, nil
}

// weekendUnits groups the period's weekend days by their Saturday, in date
// order, recording only the days actually worked.
func weekendUnits(p period, process, employee string) []Weekend {
	var units []Weekend
	index := map[string]int{}
	for _, d := range p.dates {
		if !calendar.IsWeekend(d) {
			continue
		}
		saturday := d
		if d.Weekday() == time.Sunday {
			saturday = d.AddDate(0, 0, -1)
		}
		key := calendar.ISODate(saturday)
		i, ok := index[key]
		if !ok {
			units = append(units, Weekend{WeekendStart: key})
			i = len(units) - 1
			index[key] = i
		}

		shift := p.resolved(process, employee, d)
		if !isWorked(shift) {
			continue
		}
		day := &WeekendDay{Date: calendar.ISODate(d), Shift: shift}
		if d.Weekday() == time.Saturday {
			units[i].Saturday = day
		} else {
			units[i].Sunday = day
		}
		units[i].WorkedDays++
	}
	return units
}
