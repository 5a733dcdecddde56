package db

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"shiftrota/internal/domain/department"
)

//go:embed seed/departments.yaml
var defaultSeed []byte

var seedValidator = validator.New()

type seedFile struct {
	Departments []seedDepartment `yaml:"departments" validate:"required,min=1,dive"`
}

type seedDepartment struct {
	Name              string                 `yaml:"name" validate:"required,excludes=0x7C"`
	Password          string                 `yaml:"password" validate:"required_without=PasswordHash"`
	PasswordHash      string                 `yaml:"passwordHash"`
	ShowFilters       bool                   `yaml:"showFilters"`
	AllowancesEnabled bool                   `yaml:"allowancesEnabled"`
	Processes         department.Roster      `yaml:"processes"`
	Shifts            department.ShiftLegend `yaml:"shifts"`
	AdminEmails       []string               `yaml:"adminEmails" validate:"dive,email"`
	AdminPhones       []string               `yaml:"adminPhones" validate:"dive,e164"`
}

// ParseSeed decodes a department seed document. Plain passwords are hashed
// and employee lists come back sorted.
func ParseSeed(data []byte) (*department.Directory, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var file seedFile
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	if err := seedValidator.Struct(file); err != nil {
		return nil, fmt.Errorf("invalid seed: %w", err)
	}

	dir := department.NewDirectory()
	for _, sd := range file.Departments {
		if _, exists := dir.Get(sd.Name); exists {
			return nil, fmt.Errorf("invalid seed: duplicate department %q", sd.Name)
		}
		if err := department.ValidateRoster(&sd.Processes); err != nil {
			return nil, fmt.Errorf("invalid seed: department %q: %w", sd.Name, err)
		}
		dept := &department.Department{
			Name:              sd.Name,
			Processes:         sd.Processes,
			Shifts:            sd.Shifts,
			PasswordHash:      sd.PasswordHash,
			ShowFilters:       sd.ShowFilters,
			AllowancesEnabled: sd.AllowancesEnabled,
			AdminEmails:       sd.AdminEmails,
			AdminPhones:       sd.AdminPhones,
		}
		if sd.PasswordHash == "" {
			if err := dept.SetPassword(sd.Password, sd.Password); err != nil {
				return nil, fmt.Errorf("department %q: %w", sd.Name, err)
			}
		}
		dir.Put(dept)
	}
	dir.Normalize()
	return dir, nil
}

func DefaultDirectory() (*department.Directory, error) {
	return ParseSeed(defaultSeed)
}

// LoadSeed reads the seed at path, or the built-in one when path is empty.
func LoadSeed(path string) (*department.Directory, error) {
	if path == "" {
		return DefaultDirectory()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	return ParseSeed(data)
}

// Seed writes dir as the department configuration unless one is already
// persisted. It reports whether anything was written.
func Seed(ctx context.Context, repo *department.Repository, dir *department.Directory) (bool, error) {
	if dir == nil {
		return false, errors.New("seed: no departments")
	}
	exists, err := repo.Exists(ctx)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	if err := repo.Save(ctx, dir); err != nil {
		return false, fmt.Errorf("seed departments: %w", err)
	}
	slog.Info("seeded department configuration", "departments", dir.Len())
	return true, nil
}
