package api

import (
	"net/http"

	"github.com/coder/quartz"
	"github.com/rs/zerolog/log"

	"github.com/kamikazebr/license-gateway/internal/server/licensing"
	"github.com/kamikazebr/license-gateway/pkg/models"
)

// ProbeVersion is reported by the unauthenticated probe endpoint.
const ProbeVersion = "2.0.0"

// ClientHandler serves the license validation API used by shipped
// applications. Its response bodies are a fixed wire contract.
type ClientHandler struct {
	validator *licensing.Validator
	clock     quartz.Clock
	// observers see failures detected before the validator runs.
	observers []licensing.ValidationObserver
}

func NewClientHandler(validator *licensing.Validator, clock quartz.Clock, observers ...licensing.ValidationObserver) *ClientHandler {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &ClientHandler{
		validator: validator,
		clock:     clock,
		observers: observers,
	}
}

func (h *ClientHandler) Validate(w http.ResponseWriter, r *http.Request) {
	req := licensing.ValidationRequest{Authorization: r.Header.Get("Authorization")}

	var body models.ClientValidationRequest
	if err := decodeJSON(r, &body); err != nil && req.Authorization != "" {
		res := licensing.Failure(licensing.ResultBadRequest, licensing.ReasonMalformedBody, licensing.MsgMalformedBody)
		for _, o := range h.observers {
			o.ObserveValidation(r.Context(), req, res)
		}
		respondValidation(w, res)
		return
	}

	req.LicenseKey = body.LicenseKey
	req.Product = body.Product
	req.Version = body.Version

	res := h.validator.Validate(r.Context(), req)
	if res.Err != nil {
		log.Error().Err(res.Err).Str("product", req.Product).Msg("License lookup failed")
	}
	respondValidation(w, res)
}

func (h *ClientHandler) Probe(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, models.ProbeResponse{
		Status:    "ok",
		Message:   "License API is working",
		Timestamp: licensing.FormatTimestamp(h.clock.Now()),
		Version:   ProbeVersion,
		Endpoints: map[string]string{
			"test":   "GET /test - API status check",
			"client": "POST /client - License validation",
		},
	})
}

// NotFound answers unknown paths under the validation API in its wire format.
func (h *ClientHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusNotFound, models.ClientValidationResponse{
		StatusCode:     http.StatusNotFound,
		StatusOverview: "error",
		StatusMsg:      "Endpoint not found. Available endpoints: /test (GET), /client (POST)",
	})
}

// RateLimited answers requests rejected by the per-IP limiter.
func (h *ClientHandler) RateLimited(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusTooManyRequests, models.ClientValidationResponse{
		StatusCode:     http.StatusTooManyRequests,
		StatusOverview: "error",
		StatusMsg:      "Too many requests",
	})
}

func respondValidation(w http.ResponseWriter, res licensing.ValidationResult) {
	respondJSON(w, res.StatusCode(), res.Response())
}

