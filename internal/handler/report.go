package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Gustavoab019/startia/internal/report"
)

// Reporter is the read-only query side.
type Reporter interface {
	WorkItems(ctx context.Context, f report.Filter) ([]report.WorkItemRow, error)
	Attendance(ctx context.Context, f report.Filter) ([]report.AttendanceRow, error)
	Problems(ctx context.Context, f report.Filter) ([]report.ProblemRow, error)
}

type ReportHandler struct {
	reports Reporter
	logger  *zap.Logger
}

func NewReportHandler(reports Reporter, logger *zap.Logger) *ReportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportHandler{reports: reports, logger: logger}
}

func (h *ReportHandler) RegisterRoutes(r chi.Router) {
	r.Get("/work-items", h.HandleWorkItems)
	r.Get("/attendance", h.HandleAttendance)
	r.Get("/problems", h.HandleProblems)
}

func filterFrom(r *http.Request) report.Filter {
	q := r.URL.Query()
	return report.Filter{
		Site:   q.Get("site"),
		Actor:  q.Get("actor"),
		Status: q.Get("status"),
		From:   q.Get("from"),
		To:     q.Get("to"),
	}
}

func (h *ReportHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, report.ErrBadFilter):
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
	case errors.Is(err, report.ErrSiteNotFound):
		writeError(w, h.logger, http.StatusNotFound, err.Error())
	default:
		h.logger.Error("report failed", zap.String("request_id", RequestIDFrom(r.Context())), zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, h.logger, http.StatusInternalServerError, "internal error")
	}
}

func (h *ReportHandler) HandleWorkItems(w http.ResponseWriter, r *http.Request) {
	rows, err := h.reports.WorkItems(r.Context(), filterFrom(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if wantsXLSX(r) {
		h.writeXLSX(w, r, "work-items", report.WorkItemSheet(rows))
		return
	}
	writeJSON(w, h.logger, http.StatusOK, map[string]any{"count": len(rows), "items": rows})
}

func (h *ReportHandler) HandleAttendance(w http.ResponseWriter, r *http.Request) {
	rows, err := h.reports.Attendance(r.Context(), filterFrom(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	totals := report.Totals(rows)
	if wantsXLSX(r) {
		h.writeXLSX(w, r, "attendance", report.AttendanceSheet(rows), report.TotalsSheet(totals))
		return
	}
	writeJSON(w, h.logger, http.StatusOK, map[string]any{"count": len(rows), "records": rows, "totals": totals})
}

func (h *ReportHandler) HandleProblems(w http.ResponseWriter, r *http.Request) {
	rows, err := h.reports.Problems(r.Context(), filterFrom(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if wantsXLSX(r) {
		h.writeXLSX(w, r, "problems", report.ProblemSheet(rows))
		return
	}
	writeJSON(w, h.logger, http.StatusOK, map[string]any{"count": len(rows), "problems": rows})
}

func wantsXLSX(r *http.Request) bool {
	return r.URL.Query().Get("format") == "xlsx"
}

func (h *ReportHandler) writeXLSX(w http.ResponseWriter, r *http.Request, name string, sheets ...report.Sheet) {
	filename := fmt.Sprintf("%s_%s.xlsx", name, time.Now().Format("20060102"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := report.WriteXLSX(w, sheets...); err != nil {
		h.logger.Error("write xlsx", zap.String("request_id", RequestIDFrom(r.Context())), zap.Error(err))
	}
}
