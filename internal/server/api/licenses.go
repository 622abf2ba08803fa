package api

import (
	"net"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kamikazebr/license-gateway/internal/server/licensing"
	"github.com/kamikazebr/license-gateway/internal/server/services"
	"github.com/kamikazebr/license-gateway/pkg/models"
)

type LicenseHandler struct {
	licenseService *services.LicenseService
	activator      *licensing.Activator
}

func NewLicenseHandler(licenseService *services.LicenseService, activator *licensing.Activator) *LicenseHandler {
	return &LicenseHandler{
		licenseService: licenseService,
		activator:      activator,
	}
}

// List returns every license for admins and only their own for users.
func (h *LicenseHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := GetUserClaims(r)
	if claims == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var (
		licenses []models.LicenseDetails
		err      error
	)
	if claims.Role == models.RoleAdmin {
		licenses, err = h.licenseService.List(r.Context(), models.LicenseFilter{
			Status: models.LicenseStatus(r.URL.Query().Get("status")),
			Search: r.URL.Query().Get("search"),
		})
	} else {
		licenses, err = h.licenseService.ListOwned(r.Context(), claims.UserID)
	}
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, licenses)
}

func (h *LicenseHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateLicenseRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	license, err := h.licenseService.Create(r.Context(), actorID(r), req)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondOK(w, http.StatusCreated, license)
}

func (h *LicenseHandler) Get(w http.ResponseWriter, r *http.Request) {
	license, ok := h.visibleLicense(w, r)
	if !ok {
		return
	}
	respondOK(w, http.StatusOK, license)
}

func (h *LicenseHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req models.UpdateLicenseRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	license, err := h.licenseService.Update(r.Context(), id, req)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, license)
}

func (h *LicenseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.licenseService.Delete(r.Context(), actorID(r), id); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, models.ConsoleResponse{Success: true, Message: "license deleted"})
}

// QRCode serves the license key as a PNG. ?size= sets the edge in pixels.
func (h *LicenseHandler) QRCode(w http.ResponseWriter, r *http.Request) {
	license, ok := h.visibleLicense(w, r)
	if !ok {
		return
	}

	size, _ := strconv.Atoi(r.URL.Query().Get("size"))
	png, err := h.licenseService.QRCode(r.Context(), license.ID, size)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func (h *LicenseHandler) ListActivations(w http.ResponseWriter, r *http.Request) {
	license, ok := h.visibleLicense(w, r)
	if !ok {
		return
	}

	activations, err := h.activator.List(r.Context(), license.ID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, activations)
}

// Activate claims a slot for a device. A device that already holds one
// gets its existing record back with 200.
func (h *LicenseHandler) Activate(w http.ResponseWriter, r *http.Request) {
	license, ok := h.visibleLicense(w, r)
	if !ok {
		return
	}
	var req models.ActivateLicenseRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	result, err := h.activator.Activate(r.Context(), license.ID, licensing.ActivationRequest{
		DeviceID:  req.DeviceID,
		IPAddress: clientIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	status := http.StatusCreated
	if result.AlreadyActive {
		status = http.StatusOK
	}
	h.respondActivation(w, r, status, license.ID, result.Activation)
}

func (h *LicenseHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	license, ok := h.visibleLicense(w, r)
	if !ok {
		return
	}

	act, err := h.activator.Deactivate(r.Context(), license.ID, chi.URLParam(r, "deviceID"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	h.respondActivation(w, r, http.StatusOK, license.ID, act)
}

func (h *LicenseHandler) respondActivation(w http.ResponseWriter, r *http.Request, status int, licenseID uuid.UUID, act *models.Activation) {
	license, err := h.licenseService.Get(r.Context(), licenseID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondOK(w, status, models.ActivationResponse{
		Activation:         act,
		MaxActivations:     license.MaxActivations,
		CurrentActivations: license.CurrentActivations,
	})
}

// visibleLicense loads the {id} license if the caller may see it. Users
// only see licenses assigned to them; others are reported as not found.
func (h *LicenseHandler) visibleLicense(w http.ResponseWriter, r *http.Request) (*models.LicenseDetails, bool) {
	claims := GetUserClaims(r)
	if claims == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return nil, false
	}

	license, err := h.licenseService.Get(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err)
		return nil, false
	}
	if claims.Role != models.RoleAdmin && (license.UserID == nil || *license.UserID != claims.UserID) {
		respondError(w, http.StatusNotFound, "license not found")
		return nil, false
	}
	return license, true
}

// clientIP is the peer address after chi's RealIP middleware, without port.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
