package handlers

import (
	"net/http"
	"strconv"

	"github.com/diewo77/invoice-tracker/httpx"
	"github.com/diewo77/invoice-tracker/internal/pdf"
	"github.com/diewo77/invoice-tracker/internal/services"
	"github.com/diewo77/invoice-tracker/validation"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type itemRequest struct {
	ProductID   *uint   `json:"product_id"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
}

type invoiceRequest struct {
	AgencyID      uint          `json:"agency_id"`
	ClientID      uint          `json:"client_id"`
	InvoiceNumber string        `json:"invoice_number"`
	IssueDate     string        `json:"issue_date"`
	DueDate       string        `json:"due_date"`
	Notes         string        `json:"notes"`
	Items         []itemRequest `json:"items"`
}

// input converts the request, reporting unparsable dates as violations.
func (req invoiceRequest) input() (services.InvoiceInput, error) {
	v := validation.Violations{}
	in := services.InvoiceInput{
		AgencyID:      req.AgencyID,
		ClientID:      req.ClientID,
		InvoiceNumber: req.InvoiceNumber,
		DueDate:       parseDate("due_date", req.DueDate, v),
		Notes:         req.Notes,
	}
	if issued := parseDate("issue_date", req.IssueDate, v); issued != nil {
		in.IssueDate = *issued
	}
	for _, it := range req.Items {
		in.Items = append(in.Items, services.ItemInput{
			ProductID:   it.ProductID,
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
		})
	}
	if !v.Empty() {
		return in, &services.ValidationError{Fields: v}
	}
	return in, nil
}

type InvoiceHandler struct {
	svc     *services.InvoiceService
	numbers *services.NumberGenerator
	log     *zap.Logger
}

func NewInvoiceHandler(svc *services.InvoiceService, numbers *services.NumberGenerator, log *zap.Logger) *InvoiceHandler {
	return &InvoiceHandler{svc: svc, numbers: numbers, log: log}
}

func (h *InvoiceHandler) Register(r chi.Router) {
	r.Route("/invoices", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
		r.Get("/{id}/pdf", h.PDF)
	})
	r.Post("/agencies/{id}/invoice-numbers", h.NextNumber)
}

// List: GET /invoices?agency_id=&client_id=&from=&to=&with_deleted=
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	v := validation.Violations{}
	f := services.ListFilter{
		AgencyID:    queryID(r, "agency_id", v),
		ClientID:    queryID(r, "client_id", v),
		From:        parseDate("from", r.URL.Query().Get("from"), v),
		To:          parseDate("to", r.URL.Query().Get("to"), v),
		WithDeleted: queryBool(r, "with_deleted"),
	}
	if badQuery(w, v) {
		return
	}
	invs, err := h.svc.List(r.Context(), f)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": invs, "total": len(invs)})
}

// Create: POST /invoices
func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req invoiceRequest
	if !decodeBody(w, r, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	inv, err := h.svc.Create(r.Context(), in)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, inv)
}

// Get: GET /invoices/{id}?with_deleted=1
func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	inv, err := h.svc.Get(r.Context(), id, queryBool(r, "with_deleted"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

// Update: PUT /invoices/{id}
func (h *InvoiceHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req invoiceRequest
	if !decodeBody(w, r, &req) {
		return
	}
	in, err := req.input()
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	inv, err := h.svc.Update(r.Context(), id, in)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

// Delete: DELETE /invoices/{id}
func (h *InvoiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PDF: GET /invoices/{id}/pdf
func (h *InvoiceHandler) PDF(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	inv, err := h.svc.Get(r.Context(), id, false)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	out, err := pdf.Render(inv)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+pdf.Filename(inv)+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(out)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(out); err != nil {
		h.log.Warn("write pdf", zap.Error(err))
	}
}

// NextNumber: POST /agencies/{id}/invoice-numbers reserves a number for a
// form that wants to show it before submitting.
func (h *InvoiceHandler) NextNumber(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	number, err := h.numbers.Generate(r.Context(), id)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]string{"invoice_number": number})
}
