package api

import (
	"net/http"

	"github.com/kamikazebr/license-gateway/internal/server/services"
	"github.com/kamikazebr/license-gateway/pkg/models"
)

type ReportHandler struct {
	reportService *services.ReportService
}

func NewReportHandler(reportService *services.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

func (h *ReportHandler) DashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.reportService.DashboardStats(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, stats)
}

// LicenseReport accepts the same status and search filters as the listing.
func (h *ReportHandler) LicenseReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.reportService.LicenseReport(r.Context(), models.LicenseFilter{
		Status: models.LicenseStatus(r.URL.Query().Get("status")),
		Search: r.URL.Query().Get("search"),
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, report)
}

func (h *ReportHandler) UserReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.reportService.UserReport(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, report)
}

func (h *ReportHandler) RevenueReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.reportService.RevenueReport(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, report)
}

func (h *ReportHandler) FullReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.reportService.FullReport(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondOK(w, http.StatusOK, report)
}
