package licensing

import (
	"context"
	"fmt"
	"strings"

	"github.com/coder/quartz"
	"github.com/google/uuid"

	"github.com/kamikazebr/license-gateway/pkg/models"
)

// ActivationStore persists activation slots. Implementations must make
// ClaimSlot a single conditional update so current_activations never
// passes max_activations, whatever the concurrency.
type ActivationStore interface {
	// ClaimSlot takes a slot for act.DeviceID and records act. If the device
	// already holds an active slot it returns that record and existing=true
	// without taking another. Errors: ErrLicenseNotFound, ErrLicenseInactive,
	// ErrActivationLimit.
	ClaimSlot(ctx context.Context, act *models.Activation) (current *models.Activation, existing bool, err error)
	// ReleaseSlot deactivates the device's active record and frees its slot.
	// Errors: ErrActivationNotFound.
	ReleaseSlot(ctx context.Context, licenseID uuid.UUID, deviceID string) (*models.Activation, error)
	ListActivations(ctx context.Context, licenseID uuid.UUID) ([]models.Activation, error)
}

type ActivationRequest struct {
	DeviceID  string
	IPAddress string
	UserAgent string
}

type ActivationResult struct {
	Activation *models.Activation
	// AlreadyActive is true when the device held a slot before the call.
	AlreadyActive bool
}

// ActivationObserver is told about accepted activations and deactivations.
type ActivationObserver interface {
	ObserveActivation(ctx context.Context, act *models.Activation, activated bool)
}

// Activator enforces max_activations per license. The validation endpoint
// does not call it; it is exposed separately so enforcement can be wired in
// without changing validation semantics.
type Activator struct {
	store     ActivationStore
	clock     quartz.Clock
	observers []ActivationObserver
}

func NewActivator(store ActivationStore, clock quartz.Clock, observers ...ActivationObserver) *Activator {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &Activator{store: store, clock: clock, observers: observers}
}

func (a *Activator) Activate(ctx context.Context, licenseID uuid.UUID, req ActivationRequest) (*ActivationResult, error) {
	deviceID := strings.TrimSpace(req.DeviceID)
	if deviceID == "" {
		return nil, fmt.Errorf("device id is required")
	}

	act := &models.Activation{
		ID:          uuid.New(),
		LicenseID:   licenseID,
		DeviceID:    deviceID,
		IPAddress:   optional(req.IPAddress),
		UserAgent:   optional(req.UserAgent),
		IsActive:    true,
		ActivatedAt: a.clock.Now().UTC(),
	}

	current, existing, err := a.store.ClaimSlot(ctx, act)
	if err != nil {
		return nil, err
	}

	if !existing {
		for _, o := range a.observers {
			o.ObserveActivation(ctx, current, true)
		}
	}
	return &ActivationResult{Activation: current, AlreadyActive: existing}, nil
}

func (a *Activator) Deactivate(ctx context.Context, licenseID uuid.UUID, deviceID string) (*models.Activation, error) {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return nil, ErrActivationNotFound
	}

	act, err := a.store.ReleaseSlot(ctx, licenseID, deviceID)
	if err != nil {
		return nil, err
	}

	for _, o := range a.observers {
		o.ObserveActivation(ctx, act, false)
	}
	return act, nil
}

func (a *Activator) List(ctx context.Context, licenseID uuid.UUID) ([]models.Activation, error) {
	return a.store.ListActivations(ctx, licenseID)
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
