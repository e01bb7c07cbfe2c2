package handlers

import (
	"net/http"

	"github.com/diewo77/invoice-tracker/httpx"
	"github.com/diewo77/invoice-tracker/internal/services"
	"github.com/diewo77/invoice-tracker/validation"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type ReportHandler struct {
	svc       *services.ReportService
	dashboard *services.DashboardService
	log       *zap.Logger
}

func NewReportHandler(svc *services.ReportService, dashboard *services.DashboardService, log *zap.Logger) *ReportHandler {
	return &ReportHandler{svc: svc, dashboard: dashboard, log: log}
}

func (h *ReportHandler) Register(r chi.Router) {
	r.Get("/reports/agencies/{id}", h.Agency)
	r.Get("/reports/period", h.Period)
	r.Get("/dashboard", h.Dashboard)
}

// Agency: GET /reports/agencies/{id}
func (h *ReportHandler) Agency(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	rep, err := h.svc.Generate(r.Context(), id)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rep)
}

// Period: GET /reports/period?agency_id=&start=&end=
// Missing parameters produce an empty report rather than an error.
func (h *ReportHandler) Period(w http.ResponseWriter, r *http.Request) {
	v := validation.Violations{}
	q := services.PeriodQuery{
		AgencyID: queryID(r, "agency_id", v),
		Start:    parseDate("start", r.URL.Query().Get("start"), v),
		End:      parseDate("end", r.URL.Query().Get("end"), v),
	}
	if badQuery(w, v) {
		return
	}
	rep, err := h.svc.Period(r.Context(), q)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rep)
}

// Dashboard: GET /dashboard
func (h *ReportHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.dashboard.Summary(r.Context())
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, d)
}
