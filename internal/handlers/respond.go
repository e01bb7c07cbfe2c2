// Package handlers exposes the invoicing services as a JSON HTTP API.
package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/diewo77/invoice-tracker/httpx"
	"github.com/diewo77/invoice-tracker/internal/services"
	"github.com/diewo77/invoice-tracker/validation"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// writeError maps service errors onto the JSON error envelope.
func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		httpx.JSONError(w, http.StatusUnprocessableEntity, "validation_failed", verr.Fields)
	case errors.Is(err, services.ErrNotFound):
		httpx.JSONError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, services.ErrConflict):
		httpx.JSONError(w, http.StatusConflict, "conflict", err.Error())
	default:
		log.Error("request failed", zap.Error(err))
		httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeJSON(r, dst); err != nil {
		code := "invalid_json"
		if errors.Is(err, httpx.ErrEmptyBody) {
			code = httpx.ErrEmptyBody.Error()
		}
		httpx.JSONError(w, http.StatusBadRequest, code, nil)
		return false
	}
	return true
}

// pathID reads a positive numeric URL parameter, answering 400 otherwise.
func pathID(w http.ResponseWriter, r *http.Request, name string) (uint, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, name), 10, 64)
	if err != nil || id == 0 {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return 0, false
	}
	return uint(id), true
}

// queryID returns 0 for an absent parameter and records a violation for a
// malformed one.
func queryID(r *http.Request, name string, v validation.Violations) uint {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		v.Add(name, "invalid_id")
		return 0
	}
	return uint(id)
}

// parseDate reads a YYYY-MM-DD value as midnight UTC. Blank yields nil.
func parseDate(field, raw string, v validation.Violations) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	t, err := time.ParseInLocation(dateLayout, raw, time.UTC)
	if err != nil {
		v.Add(field, "invalid_date")
		return nil
	}
	return &t
}

func queryBool(r *http.Request, name string) bool {
	switch strings.ToLower(r.URL.Query().Get(name)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

func badQuery(w http.ResponseWriter, v validation.Violations) bool {
	if v.Empty() {
		return false
	}
	httpx.JSONError(w, http.StatusBadRequest, "invalid_query", v)
	return true
}
