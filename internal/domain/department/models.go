package department

import (
	"encoding/json"
	"sort"
	"time"
)

const (
	RoleViewer = "viewer"
	RoleEditor = "editor"
	RoleAdmin  = "admin"
)

var Roles = []string{RoleViewer, RoleEditor, RoleAdmin}

// Roster maps a process name to its employees, in display order.
type Roster = OrderedMap[[]string]

// ShiftLegend maps a shift code to its description, in display order.
type ShiftLegend = OrderedMap[string]

type Department struct {
	Name              string      `json:"-"`
	Processes         Roster      `json:"processes"`
	Shifts            ShiftLegend `json:"shifts"`
	PasswordHash      string      `json:"passwordHash,omitempty"`
	ShowFilters       bool        `json:"showFilters"`
	AllowancesEnabled bool        `json:"allowancesEnabled"`
	AdminEmails       []string    `json:"adminEmails,omitempty"`
	AdminPhones       []string    `json:"adminPhones,omitempty"`
	Users             []User      `json:"users,omitempty"`
}

type User struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	Role         string     `json:"role"`
	PasswordHash string     `json:"passwordHash"`
	Active       bool       `json:"active"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    *time.Time `json:"updatedAt,omitempty"`
}

// Directory is the whole department configuration document, keyed by
// department name in display order.
type Directory struct {
	depts OrderedMap[*Department]
}

func NewDirectory(depts ...*Department) *Directory {
	d := &Directory{}
	for _, dept := range depts {
		d.Put(dept)
	}
	return d
}

func (d *Directory) Get(name string) (*Department, bool) {
	dept, ok := d.depts.Get(name)
	return dept, ok
}

func (d *Directory) Put(dept *Department) {
	d.depts.Set(dept.Name, dept)
}

func (d *Directory) Names() []string {
	return d.depts.Keys()
}

func (d *Directory) Len() int {
	return d.depts.Len()
}

// Normalize sorts every employee list alphabetically and drops processes
// left without employees.
func (d *Directory) Normalize() {
	for _, name := range d.depts.Keys() {
		dept, _ := d.depts.Get(name)
		dept.normalize()
	}
}

func (d Directory) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.depts)
}

func (d *Directory) UnmarshalJSON(data []byte) error {
	var depts OrderedMap[*Department]
	if err := json.Unmarshal(data, &depts); err != nil {
		return err
	}
	for _, name := range depts.Keys() {
		dept, _ := depts.Get(name)
		if dept == nil {
			dept = &Department{}
			depts.Set(name, dept)
		}
		dept.Name = name
	}
	d.depts = depts
	return nil
}

func (dept *Department) normalize() {
	for _, process := range dept.Processes.Keys() {
		employees, _ := dept.Processes.Get(process)
		if len(employees) == 0 {
			dept.Processes.Delete(process)
			continue
		}
		sorted := append([]string(nil), employees...)
		sort.Strings(sorted)
		dept.Processes.Set(process, sorted)
	}
}

// HasProcesses reports whether the department has at least one process.
func (dept *Department) HasProcesses() bool {
	return dept.Processes.Len() > 0
}

func (dept *Department) Employees(process string) []string {
	employees, _ := dept.Processes.Get(process)
	return append([]string(nil), employees...)
}

func (dept *Department) ShiftCodes() []string {
	return dept.Shifts.Keys()
}
