package department

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"shiftrota/internal/platform/docstore"
	"shiftrota/internal/platform/docstore/filestore"
)

func newDept() *Department {
	d := &Department{Name: "Service Desk"}
	d.Processes.Set("INDIA AND APAC", []string{"Adithya K G", "Bandhavi V"})
	d.Processes.Set("EMEA AND AMEC", []string{"Ramya J"})
	d.Shifts.Set("General", "11AM to 8PM")
	d.Shifts.Set("Night", "8PM to 5AM")
	d.Shifts.Set("WO", "Weekly Off")
	return d
}

func TestAddEmployeeSortsAlphabetically(t *testing.T) {
	d := &Department{Name: "Ops"}
	require.NoError(t, d.AddEmployee("Desk", "Zed"))
	require.NoError(t, d.AddEmployee("Desk", "Amy"))
	require.NoError(t, d.AddEmployee("Desk", "Mia"))

	assert.Equal(t, []string{"Amy", "Mia", "Zed"}, d.Employees("Desk"))
}

func TestAddEmployeeRejectsDuplicatesAndBlanks(t *testing.T) {
	d := newDept()
	assert.ErrorIs(t, d.AddEmployee("INDIA AND APAC", "Adithya K G"), ErrEmployeeExists)
	assert.ErrorIs(t, d.AddEmployee("", "Someone"), ErrRequiredFields)
	assert.ErrorIs(t, d.AddEmployee("INDIA AND APAC", "   "), ErrRequiredFields)
}

func TestRosterNamesCannotContainKeySeparator(t *testing.T) {
	d := newDept()
	assert.ErrorIs(t, d.AddEmployee("INDIA AND APAC", "Lee|Night cover"), ErrInvalidName)
	assert.ErrorIs(t, d.AddEmployee("Night|Desk", "Lee"), ErrInvalidName)

	err := d.EditEmployee("EMEA AND AMEC", "Ramya J", "EMEA AND AMEC", "Ramya|J")
	assert.ErrorIs(t, err, ErrInvalidName)
	assert.Equal(t, []string{"Ramya J"}, d.Employees("EMEA AND AMEC"))

	assert.NoError(t, ValidateRoster(&d.Processes))
	d.Processes.Set("Late", []string{"A|B"})
	assert.ErrorIs(t, ValidateRoster(&d.Processes), ErrInvalidName)
}

func TestRemoveLastEmployeeDropsProcess(t *testing.T) {
	d := newDept()
	require.NoError(t, d.RemoveEmployee("EMEA AND AMEC", "Ramya J"))
	assert.False(t, d.Processes.Has("EMEA AND AMEC"))
	assert.Equal(t, []string{"INDIA AND APAC"}, d.Processes.Keys())

	assert.ErrorIs(t, d.RemoveEmployee("EMEA AND AMEC", "Ramya J"), ErrProcessNotFound)
	assert.ErrorIs(t, d.RemoveEmployee("INDIA AND APAC", "Nobody"), ErrEmployeeNotFound)
}

func TestEditEmployeeMovesBetweenProcesses(t *testing.T) {
	d := newDept()
	require.NoError(t, d.EditEmployee("EMEA AND AMEC", "Ramya J", "INDIA AND APAC", "Ramya J"))
	assert.False(t, d.Processes.Has("EMEA AND AMEC"))
	assert.Equal(t, []string{"Adithya K G", "Bandhavi V", "Ramya J"}, d.Employees("INDIA AND APAC"))

	require.NoError(t, d.EditEmployee("INDIA AND APAC", "Bandhavi V", "New Process", "Bandhavi Venkat"))
	assert.Equal(t, []string{"Bandhavi Venkat"}, d.Employees("New Process"))

	err := d.EditEmployee("INDIA AND APAC", "Adithya K G", "INDIA AND APAC", "Ramya J")
	assert.ErrorIs(t, err, ErrEmployeeExists)
	assert.ErrorIs(t, d.EditEmployee("Missing", "A", "B", "C"), ErrProcessNotFound)
}

func TestShiftMutations(t *testing.T) {
	d := newDept()
	require.NoError(t, d.AddShift("APAC", "5AM to 2PM"))
	assert.ErrorIs(t, d.AddShift("APAC", "dup"), ErrShiftExists)
	assert.Equal(t, []string{"General", "Night", "WO", "APAC"}, d.ShiftCodes())

	require.NoError(t, d.EditShift("Night", "Late", "9PM to 6AM"))
	assert.Equal(t, []string{"General", "Late", "WO", "APAC"}, d.ShiftCodes())
	desc, _ := d.Shifts.Get("Late")
	assert.Equal(t, "9PM to 6AM", desc)

	require.NoError(t, d.EditShift("Late", "Late", "10PM to 7AM"))
	desc, _ = d.Shifts.Get("Late")
	assert.Equal(t, "10PM to 7AM", desc)

	assert.ErrorIs(t, d.EditShift("Late", "WO", "x"), ErrShiftExists)
	require.NoError(t, d.RemoveShift("APAC"))
	assert.ErrorIs(t, d.RemoveShift("APAC"), ErrShiftNotFound)
}

func TestPasswordRules(t *testing.T) {
	assert.ErrorIs(t, ValidatePassword("", ""), ErrPasswordEmpty)
	assert.ErrorIs(t, ValidatePassword("secret1", "secret2"), ErrPasswordMismatch)
	assert.ErrorIs(t, ValidatePassword("abc", "abc"), ErrPasswordTooShort)
	assert.NoError(t, ValidatePassword("abcdef", "abcdef"))

	d := newDept()
	require.NoError(t, d.SetPassword("service123", "service123"))
	assert.NoError(t, d.CheckPassword("service123"))
	assert.ErrorIs(t, d.CheckPassword("wrong"), ErrIncorrectPassword)
}

func TestUserLifecycle(t *testing.T) {
	d := newDept()
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

	_, err := d.AddUser(NewUser{Username: "lead", Email: "lead@example.com", Role: RoleAdmin, Password: "secret1"}, false, now)
	assert.ErrorIs(t, err, ErrAdminRoleDenied)
	_, err = d.AddUser(NewUser{Username: "lead", Email: "lead@example.com", Role: "owner", Password: "secret1"}, true, now)
	assert.ErrorIs(t, err, ErrInvalidRole)

	u, err := d.AddUser(NewUser{Username: "lead", Email: "lead@example.com", Role: RoleEditor, Password: "secret1"}, false, now)
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.True(t, u.Active)
	assert.Equal(t, now, u.CreatedAt)

	_, err = d.AddUser(NewUser{Username: "lead", Email: "x@example.com", Role: RoleViewer, Password: "secret1"}, false, now)
	assert.ErrorIs(t, err, ErrUsernameTaken)

	_, err = d.EditUser(u.ID, UserChange{}, false, now)
	assert.ErrorIs(t, err, ErrNoChanges)
	_, err = d.EditUser(u.ID, UserChange{Role: RoleAdmin}, false, now)
	assert.ErrorIs(t, err, ErrAdminRoleDenied)

	later := now.Add(time.Hour)
	edited, err := d.EditUser(u.ID, UserChange{Email: "new@example.com", Role: RoleAdmin}, true, later)
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", edited.Email)
	assert.Equal(t, RoleAdmin, edited.Role)
	require.NotNil(t, edited.UpdatedAt)
	assert.Equal(t, later, *edited.UpdatedAt)

	removed, err := d.RemoveUser(u.ID)
	require.NoError(t, err)
	assert.Equal(t, "lead", removed.Username)
	assert.Empty(t, d.Users)
	_, err = d.RemoveUser(u.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestDirectoryJSONKeepsOrder(t *testing.T) {
	dir := NewDirectory(newDept(), &Department{Name: "App Tools"})
	raw, err := json.Marshal(dir)
	require.NoError(t, err)

	var decoded Directory
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, []string{"Service Desk", "App Tools"}, decoded.Names())

	sd, ok := decoded.Get("Service Desk")
	require.True(t, ok)
	assert.Equal(t, "Service Desk", sd.Name)
	assert.Equal(t, []string{"INDIA AND APAC", "EMEA AND AMEC"}, sd.Processes.Keys())
	assert.Equal(t, []string{"General", "Night", "WO"}, sd.ShiftCodes())
}

func TestOrderedMapYAML(t *testing.T) {
	src := []byte("zeta: 1\nalpha: 2\nmid: 3\n")
	var m OrderedMap[int]
	require.NoError(t, yaml.Unmarshal(src, &m))
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, m.Keys())
	v, ok := m.Get("alpha")
	assert.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestRepositoryUpdateAndNormalize(t *testing.T) {
	ctx := context.Background()
	store, err := filestore.New(t.TempDir())
	require.NoError(t, err)
	repo := NewRepository(store, NewDirectory(newDept()))

	// nothing persisted yet, defaults are served
	dept, err := repo.Get(ctx, "Service Desk")
	require.NoError(t, err)
	assert.Equal(t, []string{"Adithya K G", "Bandhavi V"}, dept.Employees("INDIA AND APAC"))

	require.NoError(t, repo.Update(ctx, "Service Desk", func(d *Department) error {
		return d.AddEmployee("INDIA AND APAC", "Aaron")
	}))
	exists, err := repo.Exists(ctx)
	require.NoError(t, err)
	assert.True(t, exists)

	dept, err = repo.Get(ctx, "Service Desk")
	require.NoError(t, err)
	assert.Equal(t, []string{"Aaron", "Adithya K G", "Bandhavi V"}, dept.Employees("INDIA AND APAC"))

	_, err = repo.Get(ctx, "Nope")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.Update(ctx, "Nope", func(*Department) error { return nil }), ErrNotFound)

	// a failing mutation writes nothing
	err = repo.Update(ctx, "Service Desk", func(d *Department) error {
		_ = d.AddEmployee("INDIA AND APAC", "Ghost")
		return ErrNoChanges
	})
	assert.ErrorIs(t, err, ErrNoChanges)
	dept, err = repo.Get(ctx, "Service Desk")
	require.NoError(t, err)
	assert.NotContains(t, dept.Employees("INDIA AND APAC"), "Ghost")
}

func TestRepositoryCorruptDocumentFallsBack(t *testing.T) {
	ctx := context.Background()
	store, err := filestore.New(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(store.Path(docstore.CollectionConfig), []byte("{not json"), 0o644))

	repo := NewRepository(store, NewDirectory(newDept()))
	assert.Equal(t, []string{"Service Desk"}, repo.Load(ctx).Names())
	exists, err := repo.Exists(ctx)
	require.NoError(t, err)
	assert.False(t, exists)
}
