package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/kamikazebr/license-gateway/internal/server/licensing"
	"github.com/kamikazebr/license-gateway/internal/server/services"
	"github.com/kamikazebr/license-gateway/pkg/models"
	"github.com/kamikazebr/license-gateway/pkg/utils"
)

func writeJSON(w http.ResponseWriter, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(data)
}

func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := writeJSON(w, data); err != nil {
		log.Debug().Err(err).Msg("Failed to write response")
	}
}

// respondOK writes the console success envelope.
func respondOK(w http.ResponseWriter, statusCode int, data interface{}) {
	respondJSON(w, statusCode, models.ConsoleResponse{Success: true, Data: data})
}

// respondError writes the console failure envelope.
func respondError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, models.ConsoleResponse{Success: false, Message: message})
}

func decodeJSON(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// decodeRequest decodes the body into v and runs its validate tags. On
// failure it has already written a 400 and returns false.
func decodeRequest(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := decodeJSON(r, v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := utils.ValidateStruct(v); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// respondServiceError maps service and licensing errors to status codes.
// Unexpected errors are logged and reported without detail.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		respondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, services.ErrEmailTaken):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrNotFound),
		errors.Is(err, licensing.ErrLicenseNotFound),
		errors.Is(err, licensing.ErrActivationNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, licensing.ErrActivationLimit),
		errors.Is(err, licensing.ErrLicenseInactive):
		respondError(w, http.StatusConflict, err.Error())
	default:
		log.Error().Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("Request failed")
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}
