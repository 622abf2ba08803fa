package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/kamikazebr/license-gateway/internal/server/licensing"
	"github.com/kamikazebr/license-gateway/internal/server/storage"
	"github.com/kamikazebr/license-gateway/pkg/models"
)

// AnalyticsRecorder writes analytics events. Failures are logged and never
// reach the caller.
type AnalyticsRecorder struct {
	repo *storage.AnalyticsRepository
}

var (
	_ licensing.ValidationObserver = (*AnalyticsRecorder)(nil)
	_ licensing.ActivationObserver = (*AnalyticsRecorder)(nil)
)

func NewAnalyticsRecorder(repo *storage.AnalyticsRepository) *AnalyticsRecorder {
	return &AnalyticsRecorder{repo: repo}
}

func (a *AnalyticsRecorder) Record(ctx context.Context, eventType string, licenseID, userID *uuid.UUID, metadata map[string]interface{}) {
	event := &models.AnalyticsEvent{
		EventType: eventType,
		LicenseID: licenseID,
		UserID:    userID,
	}
	if len(metadata) > 0 {
		raw, err := json.Marshal(metadata)
		if err != nil {
			log.Warn().Err(err).Str("event_type", eventType).Msg("Failed to encode analytics metadata")
		} else {
			event.Metadata = raw
		}
	}

	if err := a.repo.Create(ctx, event); err != nil {
		log.Warn().Err(err).Str("event_type", eventType).Msg("Failed to record analytics event")
	}
}

// ObserveValidation records validation outcomes. Requests rejected before a
// lookup (missing header or fields) are not recorded.
func (a *AnalyticsRecorder) ObserveValidation(ctx context.Context, req licensing.ValidationRequest, res licensing.ValidationResult) {
	switch res.Reason {
	case licensing.ReasonMissingAuth, licensing.ReasonMissingFields, licensing.ReasonMalformedBody, licensing.ReasonDemo:
		return
	}

	eventType := models.EventLicenseValidated
	if !res.OK() {
		eventType = models.EventLicenseValidationFailed
	}
	a.Record(ctx, eventType, res.LicenseID, nil, map[string]interface{}{
		"product": req.Product,
		"version": req.Version,
		"reason":  res.Reason,
	})
}

func (a *AnalyticsRecorder) ObserveActivation(ctx context.Context, act *models.Activation, activated bool) {
	eventType := models.EventLicenseDeactivated
	if activated {
		eventType = models.EventLicenseActivated
	}
	licenseID := act.LicenseID
	a.Record(ctx, eventType, &licenseID, nil, map[string]interface{}{
		"device_id": act.DeviceID,
	})
}

func (a *AnalyticsRecorder) Recent(ctx context.Context, limit int) ([]models.RecentActivity, error) {
	return a.repo.Recent(ctx, limit)
}

func (a *AnalyticsRecorder) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	return a.repo.DeleteOlderThan(ctx, olderThan)
}
