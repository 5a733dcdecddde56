package department

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"shiftrota/internal/domain/auth"
)

const MinPasswordLength = 6

// KeySeparator joins process, employee and date in rota cell keys.
const KeySeparator = "|"

func checkNames(names ...string) error {
	for _, name := range names {
		if strings.Contains(name, KeySeparator) {
			return fmt.Errorf("%q: %w", name, ErrInvalidName)
		}
	}
	return nil
}

// ValidateRoster rejects process or employee names that would break cell keys.
func ValidateRoster(roster *Roster) error {
	for _, process := range roster.Keys() {
		employees, _ := roster.Get(process)
		if err := checkNames(append([]string{process}, employees...)...); err != nil {
			return err
		}
	}
	return nil
}

func (dept *Department) AddEmployee(process, employee string) error {
	process = strings.TrimSpace(process)
	employee = strings.TrimSpace(employee)
	if process == "" || employee == "" {
		return fmt.Errorf("process and employee name: %w", ErrRequiredFields)
	}
	if err := checkNames(process, employee); err != nil {
		return err
	}

	employees, _ := dept.Processes.Get(process)
	if slices.Contains(employees, employee) {
		return fmt.Errorf("%q in %s: %w", employee, process, ErrEmployeeExists)
	}
	employees = append(append([]string(nil), employees...), employee)
	sort.Strings(employees)
	dept.Processes.Set(process, employees)
	return nil
}

// RemoveEmployee deletes the employee and drops the process once it is empty.
func (dept *Department) RemoveEmployee(process, employee string) error {
	employees, ok := dept.Processes.Get(process)
	if !ok {
		return fmt.Errorf("%s: %w", process, ErrProcessNotFound)
	}
	idx := slices.Index(employees, employee)
	if idx < 0 {
		return fmt.Errorf("%q in %s: %w", employee, process, ErrEmployeeNotFound)
	}
	remaining := slices.Delete(append([]string(nil), employees...), idx, idx+1)
	if len(remaining) == 0 {
		dept.Processes.Delete(process)
		return nil
	}
	dept.Processes.Set(process, remaining)
	return nil
}

// EditEmployee moves or renames an employee. It is a remove followed by an
// add, so the employee may change process.
func (dept *Department) EditEmployee(oldProcess, oldEmployee, newProcess, newEmployee string) error {
	newProcess = strings.TrimSpace(newProcess)
	newEmployee = strings.TrimSpace(newEmployee)
	if oldProcess == "" || oldEmployee == "" || newProcess == "" || newEmployee == "" {
		return fmt.Errorf("employee fields: %w", ErrRequiredFields)
	}
	if err := checkNames(newProcess, newEmployee); err != nil {
		return err
	}
	employees, ok := dept.Processes.Get(oldProcess)
	if !ok {
		return fmt.Errorf("%s: %w", oldProcess, ErrProcessNotFound)
	}
	if !slices.Contains(employees, oldEmployee) {
		return fmt.Errorf("%q in %s: %w", oldEmployee, oldProcess, ErrEmployeeNotFound)
	}
	unchanged := oldProcess == newProcess && oldEmployee == newEmployee
	if target, ok := dept.Processes.Get(newProcess); ok && !unchanged && slices.Contains(target, newEmployee) {
		return fmt.Errorf("%q in %s: %w", newEmployee, newProcess, ErrEmployeeExists)
	}
	if unchanged {
		return nil
	}

	if err := dept.RemoveEmployee(oldProcess, oldEmployee); err != nil {
		return err
	}
	return dept.AddEmployee(newProcess, newEmployee)
}

func (dept *Department) AddShift(code, description string) error {
	code = strings.TrimSpace(code)
	description = strings.TrimSpace(description)
	if code == "" || description == "" {
		return fmt.Errorf("shift code and description: %w", ErrRequiredFields)
	}
	if dept.Shifts.Has(code) {
		return fmt.Errorf("%q: %w", code, ErrShiftExists)
	}
	dept.Shifts.Set(code, description)
	return nil
}

func (dept *Department) RemoveShift(code string) error {
	if !dept.Shifts.Has(code) {
		return fmt.Errorf("%q: %w", code, ErrShiftNotFound)
	}
	dept.Shifts.Delete(code)
	return nil
}

// EditShift renames a shift code in place and updates its description.
func (dept *Department) EditShift(oldCode, newCode, description string) error {
	newCode = strings.TrimSpace(newCode)
	description = strings.TrimSpace(description)
	if oldCode == "" || newCode == "" || description == "" {
		return fmt.Errorf("shift fields: %w", ErrRequiredFields)
	}
	if !dept.Shifts.Has(oldCode) {
		return fmt.Errorf("%q: %w", oldCode, ErrShiftNotFound)
	}
	if oldCode != newCode && dept.Shifts.Has(newCode) {
		return fmt.Errorf("%q: %w", newCode, ErrShiftExists)
	}
	dept.Shifts.Rename(oldCode, newCode)
	dept.Shifts.Set(newCode, description)
	return nil
}

// ValidatePassword applies the department password rules: non-empty,
// confirmed, and at least MinPasswordLength characters.
func ValidatePassword(password, confirm string) error {
	if password == "" {
		return ErrPasswordEmpty
	}
	if password != confirm {
		return ErrPasswordMismatch
	}
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}

func (dept *Department) SetPassword(password, confirm string) error {
	password = strings.TrimSpace(password)
	confirm = strings.TrimSpace(confirm)
	if err := ValidatePassword(password, confirm); err != nil {
		return err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	dept.PasswordHash = hash
	return nil
}

func (dept *Department) CheckPassword(password string) error {
	if dept.PasswordHash == "" {
		return ErrIncorrectPassword
	}
	if err := auth.CheckPassword(dept.PasswordHash, password); err != nil {
		return ErrIncorrectPassword
	}
	return nil
}
