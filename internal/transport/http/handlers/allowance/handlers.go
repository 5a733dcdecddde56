package allowancehandler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"shiftrota/internal/domain/allowance"
	"shiftrota/internal/domain/department"
	"shiftrota/internal/domain/rota"
	"shiftrota/internal/platform/metrics"
	"shiftrota/internal/transport/http/api"
	"shiftrota/internal/transport/http/middleware"
	"shiftrota/internal/transport/http/shared"
)

type Handler struct {
	Engine  *allowance.Engine
	Metrics *metrics.Collector
	Now     func() time.Time
}

func NewHandler(engine *allowance.Engine, collector *metrics.Collector) *Handler {
	return &Handler{Engine: engine, Metrics: collector, Now: time.Now}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/allowances", func(r chi.Router) {
		r.Use(middleware.RequireSession)
		r.Get("/night-shift", h.handleNightShift)
		r.Get("/weekend", h.handleWeekend)
		r.Get("/export.csv", h.handleExportCSV)
		r.Get("/export.pdf", h.handleExportPDF)
	})
}

type reportQuery struct {
	department string
	month      time.Month
	year       int
	kind       string
}

func (h *Handler) query(w http.ResponseWriter, r *http.Request) (reportQuery, bool) {
	month, year, err := shared.QueryPeriod(r, h.Now())
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_period", "month must be 1-12 and year 1-9999", middleware.GetRequestID(r.Context()))
		return reportQuery{}, false
	}
	kind := strings.TrimSpace(r.URL.Query().Get("type"))
	if kind == "" {
		kind = string(allowance.ShiftTypeEST)
	}
	return reportQuery{
		department: strings.TrimSpace(r.URL.Query().Get("dept")),
		month:      month,
		year:       year,
		kind:       kind,
	}, true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	reqID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, department.ErrNotFound), errors.Is(err, allowance.ErrNotEnabled):
		api.Fail(w, http.StatusNotFound, "department_not_found", "allowances are not available for this department", reqID)
	case errors.Is(err, rota.ErrInvalidPeriod):
		api.Fail(w, http.StatusBadRequest, "invalid_period", "month must be 1-12 and year 1-9999", reqID)
	case errors.Is(err, allowance.ErrInvalidShiftType):
		api.Fail(w, http.StatusBadRequest, "invalid_shift_type", err.Error(), reqID)
	default:
		api.Fail(w, http.StatusInternalServerError, "allowance_failed", "failed to compute allowances", reqID)
	}
}

func (h *Handler) handleNightShift(w http.ResponseWriter, r *http.Request) {
	q, ok := h.query(w, r)
	if !ok {
		return
	}
	shiftType, err := allowance.ParseShiftType(q.kind)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	report, err := h.Engine.NightShift(r.Context(), q.department, q.month, q.year, shiftType)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, map[string]any{
		"report":    report,
		"totalDays": report.TotalDays(),
	}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleWeekend(w http.ResponseWriter, r *http.Request) {
	q, ok := h.query(w, r)
	if !ok {
		return
	}
	report, err := h.Engine.Weekend(r.Context(), q.department, q.month, q.year)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	api.Success(w, map[string]any{
		"report":          report,
		"totalAllowances": report.TotalAllowances(),
	}, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, "csv", "text/csv", allowance.WriteNightShiftCSV, allowance.WriteWeekendCSV)
}

func (h *Handler) handleExportPDF(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, "pdf", "application/pdf", allowance.WriteNightShiftPDF, allowance.WriteWeekendPDF)
}

// export renders the night shift report for type EST or PST and the weekend
// report for any other type.
func (h *Handler) export(
	w http.ResponseWriter,
	r *http.Request,
	ext, contentType string,
	writeNight func(io.Writer, allowance.NightShiftReport) error,
	writeWeekend func(io.Writer, allowance.WeekendReport) error,
) {
	q, ok := h.query(w, r)
	if !ok {
		return
	}
	fileName, render, err := h.prepare(r.Context(), q, ext, writeNight, writeWeekend)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.Metrics.Export()
	api.Attachment(w, contentType, fileName, render, middleware.GetRequestID(r.Context()))
}

func (h *Handler) prepare(
	ctx context.Context,
	q reportQuery,
	ext string,
	writeNight func(io.Writer, allowance.NightShiftReport) error,
	writeWeekend func(io.Writer, allowance.WeekendReport) error,
) (string, func(io.Writer) error, error) {
	if shiftType, err := allowance.ParseShiftType(q.kind); err == nil {
		report, err := h.Engine.NightShift(ctx, q.department, q.month, q.year, shiftType)
		if err != nil {
			return "", nil, err
		}
		name := allowance.NightShiftFileName(q.department, shiftType, int(q.month), q.year, ext)
		return name, func(out io.Writer) error { return writeNight(out, report) }, nil
	}

	report, err := h.Engine.Weekend(ctx, q.department, q.month, q.year)
	if err != nil {
		return "", nil, err
	}
	name := allowance.WeekendFileName(q.department, int(q.month), q.year, ext)
	return name, func(out io.Writer) error { return writeWeekend(out, report) }, nil
}
