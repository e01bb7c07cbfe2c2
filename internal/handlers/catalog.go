package handlers

import (
	"net/http"

	"github.com/diewo77/invoice-tracker/httpx"
	"github.com/diewo77/invoice-tracker/internal/services"
	"github.com/diewo77/invoice-tracker/validation"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// CatalogHandler serves agencies, clients and products.
type CatalogHandler struct {
	agencies *services.AgencyService
	clients  *services.ClientService
	products *services.ProductService
	log      *zap.Logger
}

func NewCatalogHandler(agencies *services.AgencyService, clients *services.ClientService, products *services.ProductService, log *zap.Logger) *CatalogHandler {
	return &CatalogHandler{agencies: agencies, clients: clients, products: products, log: log}
}

func (h *CatalogHandler) Register(r chi.Router) {
	r.Get("/agencies", h.ListAgencies)
	r.Post("/agencies", h.CreateAgency)
	r.Get("/agencies/{id}", h.GetAgency)
	r.Put("/agencies/{id}", h.UpdateAgency)

	r.Get("/clients", h.ListClients)
	r.Post("/clients", h.CreateClient)
	r.Get("/clients/{id}", h.GetClient)
	r.Put("/clients/{id}", h.UpdateClient)

	r.Get("/products", h.ListProducts)
	r.Post("/products", h.CreateProduct)
	r.Get("/products/{id}", h.GetProduct)
	r.Put("/products/{id}", h.UpdateProduct)
}

// ListAgencies: GET /agencies?all=1
func (h *CatalogHandler) ListAgencies(w http.ResponseWriter, r *http.Request) {
	out, err := h.agencies.List(r.Context(), queryBool(r, "all"))
	respond(w, h.log, http.StatusOK, out, err)
}

func (h *CatalogHandler) CreateAgency(w http.ResponseWriter, r *http.Request) {
	var in services.AgencyInput
	if !decodeBody(w, r, &in) {
		return
	}
	out, err := h.agencies.Create(r.Context(), in)
	respond(w, h.log, http.StatusCreated, out, err)
}

func (h *CatalogHandler) GetAgency(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	out, err := h.agencies.Get(r.Context(), id)
	respond(w, h.log, http.StatusOK, out, err)
}

func (h *CatalogHandler) UpdateAgency(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in services.AgencyInput
	if !decodeBody(w, r, &in) {
		return
	}
	out, err := h.agencies.Update(r.Context(), id, in)
	respond(w, h.log, http.StatusOK, out, err)
}

// ListClients: GET /clients?agency_id=
func (h *CatalogHandler) ListClients(w http.ResponseWriter, r *http.Request) {
	v := validation.Violations{}
	agencyID := queryID(r, "agency_id", v)
	if badQuery(w, v) {
		return
	}
	out, err := h.clients.List(r.Context(), agencyID)
	respond(w, h.log, http.StatusOK, out, err)
}

func (h *CatalogHandler) CreateClient(w http.ResponseWriter, r *http.Request) {
	var in services.ClientInput
	if !decodeBody(w, r, &in) {
		return
	}
	out, err := h.clients.Create(r.Context(), in)
	respond(w, h.log, http.StatusCreated, out, err)
}

func (h *CatalogHandler) GetClient(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	out, err := h.clients.Get(r.Context(), id)
	respond(w, h.log, http.StatusOK, out, err)
}

func (h *CatalogHandler) UpdateClient(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in services.ClientInput
	if !decodeBody(w, r, &in) {
		return
	}
	out, err := h.clients.Update(r.Context(), id, in)
	respond(w, h.log, http.StatusOK, out, err)
}

// ListProducts: GET /products?agency_id= (required)
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	v := validation.Violations{}
	agencyID := queryID(r, "agency_id", v)
	if agencyID == 0 {
		v.Add("agency_id", "required")
	}
	if badQuery(w, v) {
		return
	}
	out, err := h.products.ListForAgency(r.Context(), agencyID)
	respond(w, h.log, http.StatusOK, out, err)
}

func (h *CatalogHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var in services.ProductInput
	if !decodeBody(w, r, &in) {
		return
	}
	out, err := h.products.Create(r.Context(), in)
	respond(w, h.log, http.StatusCreated, out, err)
}

func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	out, err := h.products.Get(r.Context(), id)
	respond(w, h.log, http.StatusOK, out, err)
}

func (h *CatalogHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in services.ProductInput
	if !decodeBody(w, r, &in) {
		return
	}
	out, err := h.products.Update(r.Context(), id, in)
	respond(w, h.log, http.StatusOK, out, err)
}

func respond(w http.ResponseWriter, log *zap.Logger, status int, payload any, err error) {
	if err != nil {
		writeError(w, log, err)
		return
	}
	httpx.JSON(w, status, payload)
}
