package settingshandler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"shiftrota/internal/domain/department"
	"shiftrota/internal/platform/metrics"
	"shiftrota/internal/transport/http/api"
	"shiftrota/internal/transport/http/middleware"
	"shiftrota/internal/transport/http/shared"
)

type Handler struct {
	Departments *department.Repository
	Metrics     *metrics.Collector
	Now         func() time.Time
}

func NewHandler(departments *department.Repository, collector *metrics.Collector) *Handler {
	return &Handler{Departments: departments, Metrics: collector, Now: time.Now}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/settings", func(r chi.Router) {
		r.With(middleware.RequireSession).Get("/", h.HandleList)
		r.Route("/{dept}", func(r chi.Router) {
			r.Use(middleware.RequireEditor("dept"))
			r.Put("/password", h.HandleChangePassword)
			r.Post("/employees", h.HandleAddEmployee)
			r.Delete("/employees", h.HandleRemoveEmployee)
			r.Put("/employees", h.HandleEditEmployee)
			r.Post("/shifts", h.HandleAddShift)
			r.Delete("/shifts", h.HandleRemoveShift)
			r.Put("/shifts", h.HandleEditShift)
			r.Post("/users", h.HandleAddUser)
			r.Put("/users", h.HandleEditUser)
			r.Delete("/users", h.HandleRemoveUser)
		})
	})
}

type userView struct {
	ID        string     `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	Role      string     `json:"role"`
	Active    bool       `json:"active"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

type departmentView struct {
	Name              string                 `json:"name"`
	Processes         department.Roster      `json:"processes"`
	Shifts            department.ShiftLegend `json:"shifts"`
	ShowFilters       bool                   `json:"showFilters"`
	AllowancesEnabled bool                   `json:"allowancesEnabled"`
	AdminEmails       []string               `json:"adminEmails"`
	AdminPhones       []string               `json:"adminPhones"`
	Users             []userView             `json:"users"`
}

func toUserView(u department.User) userView {
	return userView{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
		Active:    u.Active,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func toDepartmentView(dept *department.Department) departmentView {
	users := make([]userView, 0, len(dept.Users))
	for _, u := range dept.Users {
		users = append(users, toUserView(u))
	}
	view := departmentView{
		Name:              dept.Name,
		Processes:         dept.Processes,
		Shifts:            dept.Shifts,
		ShowFilters:       dept.ShowFilters,
		AllowancesEnabled: dept.AllowancesEnabled,
		AdminEmails:       dept.AdminEmails,
		AdminPhones:       dept.AdminPhones,
		Users:             users,
	}
	if view.AdminEmails == nil {
		view.AdminEmails = []string{}
	}
	if view.AdminPhones == nil {
		view.AdminPhones = []string{}
	}
	return view
}

// HandleList returns every department to global admins and only the
// caller's own department otherwise.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActor(r.Context())
	dir := h.Departments.Load(r.Context())

	views := []departmentView{}
	for _, name := range dir.Names() {
		if !actor.IsGlobalAdmin && name != actor.Department {
			continue
		}
		dept, _ := dir.Get(name)
		views = append(views, toDepartmentView(dept))
	}
	api.Success(w, map[string]any{
		"isGlobalAdmin":  actor.IsGlobalAdmin,
		"userDepartment": actor.Department,
		"departments":    views,
	}, middleware.GetRequestID(r.Context()))
}

type passwordRequest struct {
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

type employeeRequest struct {
	Process  string `json:"process" validate:"required"`
	Employee string `json:"employee" validate:"required"`
}

type editEmployeeRequest struct {
	OldProcess  string `json:"oldProcess" validate:"required"`
	OldEmployee string `json:"oldEmployee" validate:"required"`
	NewProcess  string `json:"newProcess" validate:"required"`
	NewEmployee string `json:"newEmployee" validate:"required"`
}

type shiftRequest struct {
	Code        string `json:"code" validate:"required"`
	Description string `json:"description" validate:"required"`
}

type removeShiftRequest struct {
	Code string `json:"code" validate:"required"`
}

type editShiftRequest struct {
	OldCode     string `json:"oldCode" validate:"required"`
	NewCode     string `json:"newCode" validate:"required"`
	Description string `json:"description" validate:"required"`
}

type addUserRequest struct {
	Username        string `json:"username" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Role            string `json:"role" validate:"required,oneof=viewer editor admin"`
	InitialPassword string `json:"initialPassword" validate:"required"`
}

type editUserRequest struct {
	ID       string `json:"id" validate:"required"`
	Email    string `json:"email" validate:"omitempty,email"`
	Role     string `json:"role" validate:"omitempty,oneof=viewer editor admin"`
	Password string `json:"password"`
}

type removeUserRequest struct {
	ID string `json:"id" validate:"required"`
}

func (h *Handler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	var payload passwordRequest
	if !h.decode(w, r, &payload) {
		return
	}
	name := middleware.DepartmentParam(r, "dept")
	h.mutate(w, r, func(dept *department.Department) error {
		return dept.SetPassword(payload.NewPassword, payload.ConfirmPassword)
	}, fmt.Sprintf("Password updated successfully for %s!", name))
}

func (h *Handler) HandleAddEmployee(w http.ResponseWriter, r *http.Request) {
	var payload employeeRequest
	if !h.decode(w, r, &payload) {
		return
	}
	name := middleware.DepartmentParam(r, "dept")
	h.mutate(w, r, func(dept *department.Department) error {
		return dept.AddEmployee(payload.Process, payload.Employee)
	}, fmt.Sprintf("Employee %q added to %s in %s!", payload.Employee, payload.Process, name))
}

func (h *Handler) HandleRemoveEmployee(w http.ResponseWriter, r *http.Request) {
	var payload employeeRequest
	if !h.decode(w, r, &payload) {
		return
	}
	name := middleware.DepartmentParam(r, "dept")
	h.mutate(w, r, func(dept *department.Department) error {
		return dept.RemoveEmployee(payload.Process, payload.Employee)
	}, fmt.Sprintf("Employee %q removed from %s in %s!", payload.Employee, payload.Process, name))
}

func (h *Handler) HandleEditEmployee(w http.ResponseWriter, r *http.Request) {
	var payload editEmployeeRequest
	if !h.decode(w, r, &payload) {
		return
	}
	name := middleware.DepartmentParam(r, "dept")
	h.mutate(w, r, func(dept *department.Department) error {
		return dept.EditEmployee(payload.OldProcess, payload.OldEmployee, payload.NewProcess, payload.NewEmployee)
	}, fmt.Sprintf("Employee updated from \"%s:%s\" to \"%s:%s\" in %s!",
		payload.OldProcess, payload.OldEmployee, payload.NewProcess, payload.NewEmployee, name))
}

func (h *Handler) HandleAddShift(w http.ResponseWriter, r *http.Request) {
	var payload shiftRequest
	if !h.decode(w, r, &payload) {
		return
	}
	name := middleware.DepartmentParam(r, "dept")
	h.mutate(w, r, func(dept *department.Department) error {
		return dept.AddShift(payload.Code, payload.Description)
	}, fmt.Sprintf("Shift %q added to %s!", payload.Code, name))
}

func (h *Handler) HandleRemoveShift(w http.ResponseWriter, r *http.Request) {
	var payload removeShiftRequest
	if !h.decode(w, r, &payload) {
		return
	}
	name := middleware.DepartmentParam(r, "dept")
	h.mutate(w, r, func(dept *department.Department) error {
		return dept.RemoveShift(payload.Code)
	}, fmt.Sprintf("Shift %q removed from %s!", payload.Code, name))
}

func (h *Handler) HandleEditShift(w http.ResponseWriter, r *http.Request) {
	var payload editShiftRequest
	if !h.decode(w, r, &payload) {
		return
	}
	name := middleware.DepartmentParam(r, "dept")
	h.mutate(w, r, func(dept *department.Department) error {
		return dept.EditShift(payload.OldCode, payload.NewCode, payload.Description)
	}, fmt.Sprintf("Shift updated from %q to %q in %s!", payload.OldCode, payload.NewCode, name))
}

func (h *Handler) HandleAddUser(w http.ResponseWriter, r *http.Request) {
	var payload addUserRequest
	if !h.decode(w, r, &payload) {
		return
	}
	actor := middleware.GetActor(r.Context())
	var created department.User
	h.mutateWith(w, r, http.StatusCreated, func(dept *department.Department) error {
		user, err := dept.AddUser(department.NewUser{
			Username: payload.Username,
			Email:    payload.Email,
			Role:     payload.Role,
			Password: payload.InitialPassword,
		}, actor.IsGlobalAdmin, h.Now())
		created = user
		return err
	}, func() any {
		return map[string]any{
			"message": fmt.Sprintf("User %q created successfully in %s!", created.Username, middleware.DepartmentParam(r, "dept")),
			"user":    toUserView(created),
		}
	})
}

func (h *Handler) HandleEditUser(w http.ResponseWriter, r *http.Request) {
	var payload editUserRequest
	if !h.decode(w, r, &payload) {
		return
	}
	actor := middleware.GetActor(r.Context())
	var updated department.User
	h.mutateWith(w, r, http.StatusOK, func(dept *department.Department) error {
		user, err := dept.EditUser(payload.ID, department.UserChange{
			Email:    payload.Email,
			Role:     payload.Role,
			Password: payload.Password,
		}, actor.IsGlobalAdmin, h.Now())
		updated = user
		return err
	}, func() any {
		return map[string]any{
			"message": fmt.Sprintf("User %q updated successfully!", updated.Username),
			"user":    toUserView(updated),
		}
	})
}

func (h *Handler) HandleRemoveUser(w http.ResponseWriter, r *http.Request) {
	var payload removeUserRequest
	if !h.decode(w, r, &payload) {
		return
	}
	var removed department.User
	h.mutateWith(w, r, http.StatusOK, func(dept *department.Department) error {
		user, err := dept.RemoveUser(payload.ID)
		removed = user
		return err
	}, func() any {
		return map[string]string{
			"message": fmt.Sprintf("User %q removed from %s!", removed.Username, middleware.DepartmentParam(r, "dept")),
		}
	})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	reqID := middleware.GetRequestID(r.Context())
	if !shared.DecodeJSON(w, r, dst, reqID) {
		return false
	}
	v := shared.NewValidator()
	v.Struct(dst)
	return !v.Reject(w, reqID)
}

func (h *Handler) mutate(w http.ResponseWriter, r *http.Request, fn func(*department.Department) error, message string) {
	h.mutateWith(w, r, http.StatusOK, fn, func() any {
		return map[string]string{"message": message}
	})
}

// mutateWith runs fn against the department named in the URL and writes the
// result of reply once the change is saved.
func (h *Handler) mutateWith(w http.ResponseWriter, r *http.Request, status int, fn func(*department.Department) error, reply func() any) {
	reqID := middleware.GetRequestID(r.Context())
	name := middleware.DepartmentParam(r, "dept")
	if err := h.Departments.Update(r.Context(), name, fn); err != nil {
		h.fail(w, name, err, reqID)
		return
	}
	if status == http.StatusCreated {
		api.Created(w, reply(), reqID)
		return
	}
	api.Success(w, reply(), reqID)
}

func (h *Handler) fail(w http.ResponseWriter, name string, err error, reqID string) {
	switch {
	case errors.Is(err, department.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "department_not_found", "Invalid department.", reqID)
	case errors.Is(err, department.ErrProcessNotFound):
		api.Fail(w, http.StatusNotFound, "process_not_found", "Process not found.", reqID)
	case errors.Is(err, department.ErrEmployeeNotFound):
		api.Fail(w, http.StatusNotFound, "employee_not_found", "Employee not found.", reqID)
	case errors.Is(err, department.ErrShiftNotFound):
		api.Fail(w, http.StatusNotFound, "shift_not_found", "Shift not found.", reqID)
	case errors.Is(err, department.ErrUserNotFound):
		api.Fail(w, http.StatusNotFound, "user_not_found", "User not found.", reqID)
	case errors.Is(err, department.ErrEmployeeExists),
		errors.Is(err, department.ErrShiftExists),
		errors.Is(err, department.ErrUsernameTaken):
		api.Fail(w, http.StatusConflict, "already_exists", err.Error(), reqID)
	case errors.Is(err, department.ErrAdminRoleDenied):
		api.Fail(w, http.StatusForbidden, "forbidden", "Only system administrators can assign the admin role.", reqID)
	case errors.Is(err, department.ErrPasswordEmpty):
		api.Fail(w, http.StatusBadRequest, "invalid_password", "Password cannot be empty.", reqID)
	case errors.Is(err, department.ErrPasswordMismatch):
		api.Fail(w, http.StatusBadRequest, "invalid_password", "Passwords do not match.", reqID)
	case errors.Is(err, department.ErrPasswordTooShort):
		api.Fail(w, http.StatusBadRequest, "invalid_password",
			fmt.Sprintf("Password must be at least %d characters long.", department.MinPasswordLength), reqID)
	case errors.Is(err, department.ErrRequiredFields),
		errors.Is(err, department.ErrInvalidName),
		errors.Is(err, department.ErrInvalidRole),
		errors.Is(err, department.ErrNoChanges):
		api.Fail(w, http.StatusBadRequest, "invalid_request", err.Error(), reqID)
	default:
		h.Metrics.StoreFailure()
		slog.Error("department settings update failed", "department", name, "err", err)
		api.Fail(w, http.StatusInternalServerError, "store_write_failed", "failed to save settings", reqID)
	}
}
