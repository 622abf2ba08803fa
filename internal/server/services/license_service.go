package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/skip2/go-qrcode"

	"github.com/kamikazebr/license-gateway/internal/server/licensing"
	"github.com/kamikazebr/license-gateway/internal/server/metrics"
	"github.com/kamikazebr/license-gateway/internal/server/storage"
	"github.com/kamikazebr/license-gateway/pkg/models"
)

type LicenseServiceConfig struct {
	KeyGenerationAttempts int
	DefaultMaxActivations int
}

type LicenseService struct {
	licenseRepo *storage.LicenseRepository
	productRepo *storage.ProductRepository
	userRepo    *storage.UserRepository
	analytics   *AnalyticsRecorder
	email       *EmailService
	metrics     *metrics.Metrics
	clock       quartz.Clock
	cfg         LicenseServiceConfig
}

func NewLicenseService(
	licenseRepo *storage.LicenseRepository,
	productRepo *storage.ProductRepository,
	userRepo *storage.UserRepository,
	analytics *AnalyticsRecorder,
	cfg LicenseServiceConfig,
) *LicenseService {
	if cfg.KeyGenerationAttempts < 1 {
		cfg.KeyGenerationAttempts = 5
	}
	if cfg.DefaultMaxActivations < 1 {
		cfg.DefaultMaxActivations = 1
	}
	return &LicenseService{
		licenseRepo: licenseRepo,
		productRepo: productRepo,
		userRepo:    userRepo,
		analytics:   analytics,
		clock:       quartz.NewReal(),
		cfg:         cfg,
	}
}

// SetEmailService enables mailing issued keys to their owners.
func (s *LicenseService) SetEmailService(email *EmailService) {
	s.email = email
}

func (s *LicenseService) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

func (s *LicenseService) SetClock(clock quartz.Clock) {
	s.clock = clock
}

// Create issues a new license with a freshly generated key. actorID is the
// console user performing the action, if any.
func (s *LicenseService) Create(ctx context.Context, actorID *uuid.UUID, req models.CreateLicenseRequest) (*models.LicenseDetails, error) {
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return nil, invalidf("invalid product id")
	}
	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	if product == nil || !product.IsActive {
		return nil, invalidf("product not found")
	}

	owner, err := s.resolveOwner(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	expiresAt, err := s.resolveExpiry(req.ExpiresAt, req.DurationDays)
	if err != nil {
		return nil, err
	}

	status := models.LicenseStatusActive
	if req.Status != "" {
		status = models.LicenseStatus(req.Status)
		if !status.Valid() {
			return nil, invalidf("unknown status %q", req.Status)
		}
	}

	maxActivations := s.cfg.DefaultMaxActivations
	if req.MaxActivations != nil {
		if *req.MaxActivations < 1 {
			return nil, invalidf("max_activations must be at least 1")
		}
		maxActivations = *req.MaxActivations
	}

	license := &models.License{
		ProductID:      product.ID,
		Status:         status,
		MaxActivations: maxActivations,
		ExpiresAt:      expiresAt,
	}
	if owner != nil {
		license.UserID = &owner.ID
	}

	_, err = licensing.GenerateUniqueKey(s.cfg.KeyGenerationAttempts, func(key string) error {
		license.LicenseKey = key
		return s.licenseRepo.Create(ctx, license)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create license: %w", err)
	}

	log.Info().
		Str("license_id", license.ID.String()).
		Str("product", product.Name).
		Str("status", string(license.Status)).
		Msg("License issued")

	licenseID := license.ID
	s.analytics.Record(ctx, models.EventLicenseCreated, &licenseID, actorID, map[string]interface{}{
		"product_id": product.ID.String(),
	})
	if s.metrics != nil {
		s.metrics.LicenseIssued()
	}
	if owner != nil {
		s.sendKey(owner, product, license)
	}

	return s.Get(ctx, license.ID)
}

func (s *LicenseService) Get(ctx context.Context, id uuid.UUID) (*models.LicenseDetails, error) {
	license, err := s.licenseRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get license: %w", err)
	}
	if license == nil {
		return nil, notFound("license")
	}
	return license, nil
}

func (s *LicenseService) List(ctx context.Context, filter models.LicenseFilter) ([]models.LicenseDetails, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, invalidf("unknown status %q", filter.Status)
	}
	return s.licenseRepo.List(ctx, filter)
}

// ListOwned returns the licenses assigned to userID, newest first.
func (s *LicenseService) ListOwned(ctx context.Context, userID uuid.UUID) ([]models.LicenseDetails, error) {
	return s.licenseRepo.ListByUser(ctx, userID)
}

// Update applies operator edits. The key and product never change.
func (s *LicenseService) Update(ctx context.Context, id uuid.UUID, req models.UpdateLicenseRequest) (*models.LicenseDetails, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	license := current.License

	if req.Status != nil {
		status := models.LicenseStatus(*req.Status)
		if !status.Valid() {
			return nil, invalidf("unknown status %q", *req.Status)
		}
		license.Status = status
	}

	if req.MaxActivations != nil {
		if *req.MaxActivations < 1 {
			return nil, invalidf("max_activations must be at least 1")
		}
		license.MaxActivations = *req.MaxActivations
	}

	switch {
	case req.ClearExpiry:
		license.ExpiresAt = nil
	case req.ExpiresAt != nil:
		expiresAt, err := parseExpiry(*req.ExpiresAt)
		if err != nil {
			return nil, err
		}
		license.ExpiresAt = expiresAt
	}

	switch {
	case req.Unassign:
		license.UserID = nil
	case req.UserID != nil:
		owner, err := s.resolveOwner(ctx, req.UserID)
		if err != nil {
			return nil, err
		}
		license.UserID = &owner.ID
	}

	if err := s.licenseRepo.Update(ctx, &license); err != nil {
		if errors.Is(err, licensing.ErrLicenseNotFound) {
			return nil, notFound("license")
		}
		if errors.Is(err, licensing.ErrLimitBelowActivations) {
			return nil, invalidf("max_activations cannot be lower than the number of active devices")
		}
		return nil, fmt.Errorf("failed to update license: %w", err)
	}
	return s.Get(ctx, id)
}

func (s *LicenseService) Delete(ctx context.Context, actorID *uuid.UUID, id uuid.UUID) error {
	license, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.licenseRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, licensing.ErrLicenseNotFound) {
			return notFound("license")
		}
		return fmt.Errorf("failed to delete license: %w", err)
	}

	// The row is gone, so the event carries the key instead of a reference.
	s.analytics.Record(ctx, models.EventLicenseDeleted, nil, actorID, map[string]interface{}{
		"license_id":  license.ID.String(),
		"license_key": license.LicenseKey,
	})
	return nil
}

// QRCode renders the license key as a PNG of size x size pixels.
func (s *LicenseService) QRCode(ctx context.Context, id uuid.UUID, size int) ([]byte, error) {
	license, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if size < 64 || size > 1024 {
		size = 256
	}
	png, err := qrcode.Encode(license.LicenseKey, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("failed to render QR code: %w", err)
	}
	return png, nil
}

func (s *LicenseService) resolveOwner(ctx context.Context, rawID *string) (*models.User, error) {
	if rawID == nil || strings.TrimSpace(*rawID) == "" {
		return nil, nil
	}
	userID, err := uuid.Parse(strings.TrimSpace(*rawID))
	if err != nil {
		return nil, invalidf("invalid user id")
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, invalidf("user not found")
	}
	return user, nil
}

func (s *LicenseService) resolveExpiry(expiresAt *string, durationDays *int) (*time.Time, error) {
	hasExpiry := expiresAt != nil && strings.TrimSpace(*expiresAt) != ""
	switch {
	case hasExpiry && durationDays != nil:
		return nil, invalidf("set either expires_at or duration_days, not both")
	case hasExpiry:
		return parseExpiry(*expiresAt)
	case durationDays != nil:
		if *durationDays < 1 {
			return nil, invalidf("duration_days must be at least 1")
		}
		t := s.clock.Now().UTC().AddDate(0, 0, *durationDays)
		return &t, nil
	default:
		return nil, nil
	}
}

// parseExpiry accepts RFC 3339 timestamps or plain dates. A plain date
// expires at the end of that day, UTC.
func parseExpiry(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		t = t.UTC()
		return &t, nil
	}
	if d, err := time.Parse("2006-01-02", raw); err == nil {
		t := d.Add(24*time.Hour - time.Second)
		return &t, nil
	}
	return nil, invalidf("expires_at must be an RFC 3339 timestamp or a YYYY-MM-DD date")
}

func (s *LicenseService) sendKey(owner *models.User, product *models.Product, license *models.License) {
	if s.email == nil {
		return
	}

	msg := LicenseKeyEmail{
		To:          owner.Email,
		FullName:    owner.FullName,
		LicenseKey:  license.LicenseKey,
		ProductName: product.Name,
		Version:     product.Version,
		ExpiresAt:   license.ExpiresAt,
	}
	go func() {
		if err := s.email.SendLicenseKey(msg); err != nil {
			log.Error().Err(err).Str("license_id", license.ID.String()).Msg("Failed to email license key")
		}
	}()
}
