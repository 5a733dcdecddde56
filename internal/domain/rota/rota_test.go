package rota

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"shiftrota/internal/domain/calendar"
	"shiftrota/internal/domain/department"
	"shiftrota/internal/platform/docstore"
	"shiftrota/internal/platform/docstore/filestore"
)

type staticDepartments map[string]*department.Department

func (s staticDepartments) Get(_ context.Context, name string) (*department.Department, error) {
	d, ok := s[name]
	if !ok {
		return nil, department.ErrNotFound
	}
	return d, nil
}

func serviceDesk() *department.Department {
	d := &department.Department{Name: "Service Desk", ShowFilters: true}
	d.Processes.Set("INDIA AND APAC", []string{"Adithya K G", "Bandhavi V"})
	d.Processes.Set("EMEA AND AMEC", []string{"Ramya J"})
	d.Shifts.Set("General", "11AM to 8PM")
	d.Shifts.Set("Night", "8PM to 5AM")
	d.Shifts.Set("WO", "Weekly Off")
	return d
}

func newService(t *testing.T) (*Service, *filestore.Store) {
	t.Helper()
	docs, err := filestore.New(t.TempDir())
	require.NoError(t, err)
	depts := staticDepartments{
		"Service Desk": serviceDesk(),
		"App Tools":    {Name: "App Tools"},
	}
	return NewService(NewStore(docs), depts), docs
}

type failingDocs struct{ docstore.Store }

func (failingDocs) Put(context.Context, string, string, []byte) error {
	return errors.New("disk full")
}

func TestCellKeyRoundTrip(t *testing.T) {
	key := CellKey("INDIA AND APAC", "Adithya K G", calendar.Date(2024, time.June, 3))
	assert.Equal(t, "INDIA AND APAC|Adithya K G|2024-06-03", key)

	process, employee, d, err := ParseCellKey(key)
	require.NoError(t, err)
	assert.Equal(t, "INDIA AND APAC", process)
	assert.Equal(t, "Adithya K G", employee)
	assert.Equal(t, calendar.Date(2024, time.June, 3), d)

	for _, bad := range []string{"a|b", "a|b|c|d", "a|b|2024-13-01", ""} {
		_, _, _, err := ParseCellKey(bad)
		assert.ErrorIs(t, err, ErrInvalidCellKey, bad)
	}
}

func TestParseCellKeyWithSeparatorInEmployee(t *testing.T) {
	key := CellKey("Ops", "Lee|Night cover", calendar.Date(2024, time.June, 3))

	process, employee, d, err := ParseCellKey(key)
	require.NoError(t, err)
	assert.Equal(t, "Ops", process)
	assert.Equal(t, "Lee|Night cover", employee)
	assert.Equal(t, calendar.Date(2024, time.June, 3), d)

	for _, bad := range []string{"|E|2024-06-03", "P||2024-06-03"} {
		_, _, _, err := ParseCellKey(bad)
		assert.ErrorIs(t, err, ErrInvalidCellKey, bad)
	}
}

func TestApplyUpdatesKeepsPipeNamedCells(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	period := PeriodKey{Department: "Service Desk", Month: time.June, Year: 2024}
	key := CellKey("INDIA AND APAC", "Lee|Night cover", calendar.Date(2024, time.June, 3))

	n, err := svc.ApplyUpdates(ctx, period, map[string]string{key: "Night"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "Night", svc.Store.GetPeriod(ctx, period)[key])
}

func TestApplyUpdatesConcurrentWritersKeepEveryCell(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	period := PeriodKey{Department: "Service Desk", Month: time.June, Year: 2024}

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := CellKey("INDIA AND APAC", fmt.Sprintf("Employee %02d", i), calendar.Date(2024, time.June, 3))
			_, err := svc.ApplyUpdates(ctx, period, map[string]string{key: "Night"})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Len(t, svc.Store.GetPeriod(ctx, period), writers)
}

func TestPeriodKeyString(t *testing.T) {
	assert.Equal(t, "Service Desk|6|2024", PeriodKey{Department: "Service Desk", Month: time.June, Year: 2024}.String())
}

func TestStoreRoundTripAndDeletion(t *testing.T) {
	ctx := context.Background()
	docs, err := filestore.New(t.TempDir())
	require.NoError(t, err)
	store := NewStore(docs)
	key := PeriodKey{Department: "Service Desk", Month: time.June, Year: 2024}

	assert.Empty(t, store.GetPeriod(ctx, key))

	data := Overrides{"P|E|2024-06-03": "Night", "P|E|2024-06-04": "APAC"}
	require.NoError(t, store.SetPeriod(ctx, key, data))
	assert.Equal(t, data, store.GetPeriod(ctx, key))

	// writing the same data twice leaves the same state
	require.NoError(t, store.SetPeriod(ctx, key, data))
	assert.Equal(t, data, store.GetPeriod(ctx, key))

	delete(data, "P|E|2024-06-04")
	require.NoError(t, store.SetPeriod(ctx, key, data))
	got := store.GetPeriod(ctx, key)
	assert.Equal(t, Overrides{"P|E|2024-06-03": "Night"}, got)
}

func TestStoreCorruptReadsEmpty(t *testing.T) {
	ctx := context.Background()
	docs, err := filestore.New(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(docs.Path(docstore.CollectionRota), []byte("[broken"), 0o644))

	store := NewStore(docs)
	key := PeriodKey{Department: "Service Desk", Month: time.June, Year: 2024}
	assert.Empty(t, store.GetPeriod(ctx, key))

	// the next write replaces the unreadable file
	require.NoError(t, store.SetPeriod(ctx, key, Overrides{"P|E|2024-06-03": "Night"}))
	assert.Equal(t, "Night", store.GetPeriod(ctx, key)["P|E|2024-06-03"])
}

func TestBuildGridDefaultsAndOverride(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	q := GridQuery{Department: "Service Desk", Month: time.June, Year: 2024}
	grid, err := svc.BuildGrid(ctx, q)
	require.NoError(t, err)
	require.Len(t, grid.DateHeaders, 28)
	assert.Equal(t, DateHeader{DateStr: "2024-06-03", Weekday: "Mon", Day: "3", MonthShort: "Jun"}, grid.DateHeaders[0])
	require.Len(t, grid.Rows, 3)
	assert.Equal(t, "Adithya K G", grid.Rows[0].Employee)
	assert.Equal(t, "Ramya J", grid.Rows[2].Employee)
	assert.Equal(t, []ShiftDef{{"General", "11AM to 8PM"}, {"Night", "8PM to 5AM"}, {"WO", "Weekly Off"}}, grid.Shifts)

	for _, row := range grid.Rows {
		for _, c := range row.Cells {
			d, err := calendar.ParseISODate(c.Date)
			require.NoError(t, err)
			assert.Equal(t, calendar.DefaultShift(d), c.Value, c.Key)
		}
	}

	key := "INDIA AND APAC|Adithya K G|2024-06-03"
	n, err := svc.ApplyUpdates(ctx, q.Period(), map[string]string{key: "Night"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	grid, err = svc.BuildGrid(ctx, q)
	require.NoError(t, err)
	for _, row := range grid.Rows {
		for _, c := range row.Cells {
			if c.Key == key {
				assert.Equal(t, "Night", c.Value)
				continue
			}
			d, _ := calendar.ParseISODate(c.Date)
			assert.Equal(t, calendar.DefaultShift(d), c.Value, c.Key)
		}
	}

	// an empty value removes the override
	_, err = svc.ApplyUpdates(ctx, q.Period(), map[string]string{key: ""})
	require.NoError(t, err)
	assert.Empty(t, svc.Store.GetPeriod(ctx, q.Period()))
}

func TestBuildGridFilters(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	period := PeriodKey{Department: "Service Desk", Month: time.June, Year: 2024}
	_, err := svc.ApplyUpdates(ctx, period, map[string]string{
		"EMEA AND AMEC|Ramya J|2024-06-05": "Night",
	})
	require.NoError(t, err)

	grid, err := svc.BuildGrid(ctx, GridQuery{Department: "Service Desk", Month: time.June, Year: 2024, Processes: []string{"INDIA AND APAC"}})
	require.NoError(t, err)
	require.Len(t, grid.Rows, 2)
	for _, row := range grid.Rows {
		assert.Equal(t, "INDIA AND APAC", row.Process)
	}

	grid, err = svc.BuildGrid(ctx, GridQuery{Department: "Service Desk", Month: time.June, Year: 2024, Shifts: []string{"Night"}})
	require.NoError(t, err)
	require.Len(t, grid.Rows, 1)
	assert.Equal(t, "Ramya J", grid.Rows[0].Employee)

	grid, err = svc.BuildGrid(ctx, GridQuery{Department: "Service Desk", Month: time.June, Year: 2024, Shifts: []string{"Morning"}})
	require.NoError(t, err)
	assert.Empty(t, grid.Rows)
}

func TestBuildGridEmptyCases(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	for _, name := range []string{"Unknown", "App Tools"} {
		grid, err := svc.BuildGrid(ctx, GridQuery{Department: name, Month: time.June, Year: 2024})
		require.NoError(t, err)
		assert.Empty(t, grid.Rows, name)
		assert.Empty(t, grid.DateHeaders, name)
	}

	_, err := svc.BuildGrid(ctx, GridQuery{Department: "Service Desk", Month: 13, Year: 2024})
	assert.ErrorIs(t, err, ErrInvalidPeriod)
	_, err = svc.BuildGrid(ctx, GridQuery{Department: "Service Desk", Month: time.June, Year: 0})
	assert.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestApplyUpdatesSkipsMalformedKeys(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	period := PeriodKey{Department: "Service Desk", Month: time.June, Year: 2024}

	n, err := svc.ApplyUpdates(ctx, period, map[string]string{
		"not-a-key":                            "Night",
		"P|E|nope":                             "Night",
		"INDIA AND APAC|Bandhavi V|2024-06-10": "APAC",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, Overrides{"INDIA AND APAC|Bandhavi V|2024-06-10": "APAC"}, svc.Store.GetPeriod(ctx, period))
}

func TestApplyUpdatesWriteFailureKeepsPriorData(t *testing.T) {
	ctx := context.Background()
	svc, docs := newService(t)
	period := PeriodKey{Department: "Service Desk", Month: time.June, Year: 2024}
	_, err := svc.ApplyUpdates(ctx, period, map[string]string{"P|E|2024-06-03": "Night"})
	require.NoError(t, err)

	broken := NewService(NewStore(failingDocs{docs}), svc.Departments)
	_, err = broken.ApplyUpdates(ctx, period, map[string]string{"P|E|2024-06-03": "APAC"})
	require.Error(t, err)

	assert.Equal(t, "Night", svc.Store.GetPeriod(ctx, period)["P|E|2024-06-03"])
}

func TestWriteCSV(t *testing.T) {
	grid := Grid{
		DateHeaders: []DateHeader{
			{DateStr: "2024-06-03", Weekday: "Mon", Day: "3", MonthShort: "Jun"},
			{DateStr: "2024-06-04", Weekday: "Tue", Day: "4", MonthShort: "Jun"},
		},
		Rows: []Row{
			{Process: "Desk", Employee: `Ann "AJ" Lee`, Cells: []Cell{{Value: "General"}, {Value: "Night"}}},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, grid))
	want := `"Process","Employee","Mon 3 Jun","Tue 4 Jun"` + "\n" +
		`"Desk","Ann ""AJ"" Lee","General","Night"` + "\n"
	assert.Equal(t, want, buf.String())
	assert.Equal(t, "Service Desk_ShiftRota_2024-06.csv", CSVFileName("Service Desk", 6, 2024))
}

func TestWriteXLSX(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	grid, err := svc.BuildGrid(ctx, GridQuery{Department: "Service Desk", Month: time.June, Year: 2024})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, grid))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"Process", "Employee", "Mon 3 Jun"}, rows[0][:3])
	assert.Equal(t, "Adithya K G", rows[1][1])
	assert.True(t, strings.HasPrefix(rows[1][2], "General"))
}
