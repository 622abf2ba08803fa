package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	EventLicenseCreated          = "license_created"
	EventLicenseDeleted          = "license_deleted"
	EventLicenseValidated        = "license_validated"
	EventLicenseValidationFailed = "license_validation_failed"
	EventLicenseActivated        = "license_activated"
	EventLicenseDeactivated      = "license_deactivated"
)

type AnalyticsEvent struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	EventType string          `json:"event_type" db:"event_type"`
	LicenseID *uuid.UUID      `json:"license_id,omitempty" db:"license_id"`
	UserID    *uuid.UUID      `json:"user_id,omitempty" db:"user_id"`
	Metadata  json.RawMessage `json:"metadata,omitempty" db:"metadata"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// RecentActivity is an analytics event joined with the license and product it refers to.
type RecentActivity struct {
	AnalyticsEvent

	LicenseKey  *string `json:"-" db:"license_key"`
	ProductName *string `json:"-" db:"product_name"`
}

func (a RecentActivity) MarshalJSON() ([]byte, error) {
	type product struct {
		Name string `json:"name"`
	}
	type license struct {
		LicenseKey string   `json:"license_key"`
		Products   *product `json:"products"`
	}
	type view struct {
		AnalyticsEvent
		Licenses *license `json:"licenses"`
	}

	v := view{AnalyticsEvent: a.AnalyticsEvent}
	if a.LicenseKey != nil {
		v.Licenses = &license{LicenseKey: *a.LicenseKey}
		if a.ProductName != nil {
			v.Licenses.Products = &product{Name: *a.ProductName}
		}
	}
	return json.Marshal(v)
}
