package rota

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"time"

	"shiftrota/internal/domain/calendar"
	"shiftrota/internal/domain/department"
)

// DepartmentSource resolves a department by name.
type DepartmentSource interface {
	Get(ctx context.Context, name string) (*department.Department, error)
}

type Service struct {
	Store       *Store
	Departments DepartmentSource

	periodLocks sync.Map // PeriodKey.String() -> *sync.Mutex
}

func NewService(store *Store, departments DepartmentSource) *Service {
	return &Service{Store: store, Departments: departments}
}

// ValidatePeriod rejects months outside 1-12 and years outside 1-9999.
func ValidatePeriod(month time.Month, year int) error {
	if month < time.January || month > time.December {
		return fmt.Errorf("month %d: %w", int(month), ErrInvalidPeriod)
	}
	if year < 1 || year > 9999 {
		return fmt.Errorf("year %d: %w", year, ErrInvalidPeriod)
	}
	return nil
}

// BuildGrid resolves every cell of the month's grid for the department.
// Unknown departments and departments without processes yield an empty grid.
func (s *Service) BuildGrid(ctx context.Context, q GridQuery) (Grid, error) {
	if err := ValidatePeriod(q.Month, q.Year); err != nil {
		return Grid{}, err
	}
	grid := Grid{
		Department:  q.Department,
		Month:       int(q.Month),
		Year:        q.Year,
		Rows:        []Row{},
		DateHeaders: []DateHeader{},
		Shifts:      []ShiftDef{},
	}

	dept, err := s.Departments.Get(ctx, q.Department)
	if err != nil {
		if !errors.Is(err, department.ErrNotFound) {
			slog.Warn("department lookup failed", "department", q.Department, "err", err)
		}
		return grid, nil
	}
	if !dept.HasProcesses() {
		return grid, nil
	}

	dates := calendar.MonthGridDates(q.Year, q.Month)
	for _, d := range dates {
		grid.DateHeaders = append(grid.DateHeaders, DateHeader{
			DateStr:    calendar.ISODate(d),
			Weekday:    d.Format("Mon"),
			Day:        strconv.Itoa(d.Day()),
			MonthShort: d.Format("Jan"),
		})
	}
	for _, code := range dept.ShiftCodes() {
		desc, _ := dept.Shifts.Get(code)
		grid.Shifts = append(grid.Shifts, ShiftDef{Code: code, Description: desc})
	}

	saved := s.Store.GetPeriod(ctx, q.Period())
	for _, process := range dept.Processes.Keys() {
		if len(q.Processes) > 0 && !slices.Contains(q.Processes, process) {
			continue
		}
		for _, employee := range dept.Employees(process) {
			row := Row{Process: process, Employee: employee, Cells: make([]Cell, 0, len(dates))}
			matched := false
			for _, d := range dates {
				key := CellKey(process, employee, d)
				value := saved[key]
				if value == "" {
					value = calendar.DefaultShift(d)
				}
				row.Cells = append(row.Cells, Cell{Date: calendar.ISODate(d), Value: value, Key: key})
				if len(q.Shifts) > 0 && slices.Contains(q.Shifts, value) {
					matched = true
				}
			}
			if len(q.Shifts) > 0 && !matched {
				continue
			}
			grid.Rows = append(grid.Rows, row)
		}
	}
	return grid, nil
}

// ApplyUpdates merges cell updates into the stored period. An empty value
// removes the override so the cell falls back to its default. Keys that do
// not parse as cell keys are skipped. It returns how many updates applied.
func (s *Service) ApplyUpdates(ctx context.Context, key PeriodKey, updates map[string]string) (int, error) {
	if err := ValidatePeriod(key.Month, key.Year); err != nil {
		return 0, err
	}
	unlock := s.lockPeriod(key)
	defer unlock()

	saved := s.Store.GetPeriod(ctx, key)
	applied := 0
	for cellKey, value := range updates {
		if _, _, _, err := ParseCellKey(cellKey); err != nil {
			slog.Debug("skipping malformed cell key", "key", cellKey)
			continue
		}
		if value == "" {
			delete(saved, cellKey)
		} else {
			saved[cellKey] = value
		}
		applied++
	}
	if err := s.Store.SetPeriod(ctx, key, saved); err != nil {
		return 0, err
	}
	return applied, nil
}

// lockPeriod serializes read-modify-write cycles on one period within this
// process.
func (s *Service) lockPeriod(key PeriodKey) func() {
	v, _ := s.periodLocks.LoadOrStore(key.String(), &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
