package handlers

import (
	"net/http"

	"github.com/diewo77/invoice-tracker/httpx"
	"github.com/diewo77/invoice-tracker/internal/services"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type SettingsHandler struct {
	store *services.SettingsStore
	log   *zap.Logger
}

func NewSettingsHandler(store *services.SettingsStore, log *zap.Logger) *SettingsHandler {
	return &SettingsHandler{store: store, log: log}
}

func (h *SettingsHandler) Register(r chi.Router) {
	r.Get("/settings", h.Get)
	r.Put("/settings/{agencyID}", h.Update)
}

// Get: GET /settings
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, err := h.store.Application(r.Context())
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, s)
}

// Update: PUT /settings/{agencyID}
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "agencyID")
	if !ok {
		return
	}
	var in services.SettingsInput
	if !decodeBody(w, r, &in) {
		return
	}
	if err := h.store.UpdateApplication(r.Context(), id, in); err != nil {
		writeError(w, h.log, err)
		return
	}
	rules, err := h.store.Rules(r.Context(), id)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"agency_id": id, "settings": rules})
}
