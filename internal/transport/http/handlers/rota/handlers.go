package rotahandler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"shiftrota/internal/domain/auth"
	"shiftrota/internal/domain/department"
	"shiftrota/internal/domain/rota"
	"shiftrota/internal/platform/metrics"
	"shiftrota/internal/transport/http/api"
	"shiftrota/internal/transport/http/middleware"
	"shiftrota/internal/transport/http/shared"
)

type Handler struct {
	Departments *department.Repository
	Rota        *rota.Service
	Metrics     *metrics.Collector
	Now         func() time.Time
}

func NewHandler(departments *department.Repository, service *rota.Service, collector *metrics.Collector) *Handler {
	return &Handler{Departments: departments, Rota: service, Metrics: collector, Now: time.Now}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/departments", h.handleListDepartments)
	r.Route("/rota", func(r chi.Router) {
		r.Get("/", h.handleGetRota)
		r.With(middleware.RequireSession).Post("/", h.handleUpdateRota)
		r.Get("/export.csv", h.handleExportCSV)
		r.Get("/export.xlsx", h.handleExportXLSX)
	})
}

type rotaView struct {
	rota.Grid
	AllProcesses      []string `json:"allProcesses"`
	AllShifts         []string `json:"allShifts"`
	SelectedProcesses []string `json:"selectedProcesses"`
	SelectedShifts    []string `json:"selectedShifts"`
	ShowFilters       bool     `json:"showFilters"`
	CanEdit           bool     `json:"canEdit"`
	UserDepartment    string   `json:"userDepartment,omitempty"`
	AuthenticatedHere bool     `json:"isAuthenticatedForDept"`
}

type updateRequest struct {
	Department string            `json:"department" validate:"required"`
	Month      int               `json:"month"`
	Year       int               `json:"year"`
	Cells      map[string]string `json:"cells"`
}

func (h *Handler) handleListDepartments(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActor(r.Context())
	now := h.Now()
	api.Success(w, map[string]any{
		"departments":    h.Departments.Load(r.Context()).Names(),
		"defaultMonth":   int(now.Month()),
		"defaultYear":    now.Year(),
		"canEdit":        actor.Authenticated(),
		"userDepartment": actor.Department,
	}, middleware.GetRequestID(r.Context()))
}

// gridQuery resolves the department and period of a grid request, answering
// the error itself when it returns false.
func (h *Handler) gridQuery(w http.ResponseWriter, r *http.Request) (*department.Department, rota.GridQuery, bool) {
	reqID := middleware.GetRequestID(r.Context())
	name := strings.TrimSpace(r.URL.Query().Get("dept"))
	dept, ok := h.department(w, r, name)
	if !ok {
		return nil, rota.GridQuery{}, false
	}
	month, year, err := shared.QueryPeriod(r, h.Now())
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_period", "month must be 1-12 and year 1-9999", reqID)
		return nil, rota.GridQuery{}, false
	}
	return dept, rota.GridQuery{
		Department: name,
		Month:      month,
		Year:       year,
		Processes:  shared.QueryList(r, "process"),
		Shifts:     shared.QueryList(r, "shift"),
	}, true
}

func (h *Handler) department(w http.ResponseWriter, r *http.Request, name string) (*department.Department, bool) {
	reqID := middleware.GetRequestID(r.Context())
	if name == "" {
		api.Fail(w, http.StatusNotFound, "department_not_found", "department not found", reqID)
		return nil, false
	}
	dept, err := h.Departments.Get(r.Context(), name)
	if err != nil {
		if errors.Is(err, department.ErrNotFound) {
			api.Fail(w, http.StatusNotFound, "department_not_found", "department not found", reqID)
			return nil, false
		}
		api.Fail(w, http.StatusInternalServerError, "department_lookup_failed", "failed to load department", reqID)
		return nil, false
	}
	return dept, true
}

func (h *Handler) handleGetRota(w http.ResponseWriter, r *http.Request) {
	dept, q, ok := h.gridQuery(w, r)
	if !ok {
		return
	}
	grid, err := h.Rota.BuildGrid(r.Context(), q)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "grid_failed", "failed to build rota", middleware.GetRequestID(r.Context()))
		return
	}

	actor := middleware.GetActor(r.Context())
	view := rotaView{
		Grid:              grid,
		AllProcesses:      dept.Processes.Keys(),
		AllShifts:         dept.ShiftCodes(),
		SelectedProcesses: nonNil(q.Processes),
		SelectedShifts:    nonNil(q.Shifts),
		ShowFilters:       dept.ShowFilters,
		CanEdit:           auth.CanEdit(actor, q.Department),
		UserDepartment:    actor.Department,
		AuthenticatedHere: actor.Department == q.Department,
	}
	api.Success(w, view, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdateRota(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload updateRequest
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	v.Struct(payload)
	if v.Reject(w, reqID) {
		return
	}

	if _, ok := h.department(w, r, payload.Department); !ok {
		return
	}
	key := rota.PeriodKey{Department: payload.Department, Month: time.Month(payload.Month), Year: payload.Year}
	if err := rota.ValidatePeriod(key.Month, key.Year); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_period", "month must be 1-12 and year 1-9999", reqID)
		return
	}
	if !auth.CanEdit(middleware.GetActor(r.Context()), payload.Department) {
		api.Fail(w, http.StatusForbidden, "forbidden", "not allowed to edit this department", reqID)
		return
	}

	applied, err := h.Rota.ApplyUpdates(r.Context(), key, payload.Cells)
	if err != nil {
		h.Metrics.StoreFailure()
		slog.Error("rota save failed", "period", key.String(), "err", err)
		api.Fail(w, http.StatusInternalServerError, "store_write_failed", "failed to save rota", reqID)
		return
	}
	h.Metrics.CellsWritten(applied)
	api.Success(w, map[string]any{"applied": applied, "period": key.String()}, reqID)
}

func (h *Handler) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, "text/csv", rota.CSVFileName, rota.WriteCSV)
}

func (h *Handler) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rota.XLSXFileName, rota.WriteXLSX)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request, contentType string, fileName func(string, int, int) string, write func(io.Writer, rota.Grid) error) {
	_, q, ok := h.gridQuery(w, r)
	if !ok {
		return
	}
	reqID := middleware.GetRequestID(r.Context())
	grid, err := h.Rota.BuildGrid(r.Context(), q)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "grid_failed", "failed to build rota", reqID)
		return
	}
	h.Metrics.Export()
	api.Attachment(w, contentType, fileName(q.Department, int(q.Month), q.Year), func(out io.Writer) error {
		return write(out, grid)
	}, reqID)
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
