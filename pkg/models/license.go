package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type LicenseStatus string

const (
	LicenseStatusActive    LicenseStatus = "active"
	LicenseStatusExpired   LicenseStatus = "expired"
	LicenseStatusPending   LicenseStatus = "pending"
	LicenseStatusSuspended LicenseStatus = "suspended"
)

// LicenseStatuses lists every status in the order reports print them.
var LicenseStatuses = []LicenseStatus{
	LicenseStatusActive,
	LicenseStatusExpired,
	LicenseStatusPending,
	LicenseStatusSuspended,
}

func (s LicenseStatus) Valid() bool {
	for _, known := range LicenseStatuses {
		if s == known {
			return true
		}
	}
	return false
}

type License struct {
	ID                 uuid.UUID     `json:"id" db:"id"`
	LicenseKey         string        `json:"license_key" db:"license_key"`
	ProductID          uuid.UUID     `json:"product_id" db:"product_id"`
	UserID             *uuid.UUID    `json:"user_id,omitempty" db:"user_id"`
	Status             LicenseStatus `json:"status" db:"status"`
	MaxActivations     int           `json:"max_activations" db:"max_activations"`
	CurrentActivations int           `json:"current_activations" db:"current_activations"`
	ExpiresAt          *time.Time    `json:"expires_at,omitempty" db:"expires_at"`
	CreatedAt          time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at" db:"updated_at"`
}

// ExpiredAt reports whether the license has lapsed at t. Perpetual licenses never lapse.
func (l *License) ExpiredAt(t time.Time) bool {
	return l.ExpiresAt != nil && l.ExpiresAt.Before(t)
}

func (l *License) HasFreeSlot() bool {
	return l.CurrentActivations < l.MaxActivations
}

// LicenseDetails is a license joined with its product and (optional) owner.
type LicenseDetails struct {
	License

	ProductName    string  `json:"-" db:"product_name"`
	ProductVersion string  `json:"-" db:"product_version"`
	ProductPrice   float64 `json:"-" db:"product_price"`
	UserEmail      *string `json:"-" db:"user_email"`
	UserFullName   *string `json:"-" db:"user_full_name"`
	UserCompany    *string `json:"-" db:"user_company"`
	UserPhone      *string `json:"-" db:"user_phone"`
	UserRole       *string `json:"-" db:"user_role"`
}

type LicenseProductView struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type LicenseOwnerView struct {
	FullName string `json:"full_name"`
	Company  string `json:"company"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
}

// MarshalJSON nests the joined columns the way the console expects them.
func (d LicenseDetails) MarshalJSON() ([]byte, error) {
	type view struct {
		License
		Products     *LicenseProductView `json:"products"`
		UsersProfile *LicenseOwnerView   `json:"users_profile"`
	}

	v := view{License: d.License}
	if d.ProductName != "" {
		v.Products = &LicenseProductView{Name: d.ProductName, Version: d.ProductVersion}
	}
	if d.UserFullName != nil {
		v.UsersProfile = &LicenseOwnerView{
			FullName: *d.UserFullName,
			Company:  deref(d.UserCompany),
			Phone:    deref(d.UserPhone),
			Role:     deref(d.UserRole),
		}
	}
	return json.Marshal(v)
}

// LicenseFilter narrows license listings. Empty fields match everything.
type LicenseFilter struct {
	Status LicenseStatus
	Search string
}

// Activation is one device holding one of a license's activation slots.
type Activation struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	LicenseID     uuid.UUID  `json:"license_id" db:"license_id"`
	DeviceID      string     `json:"device_id" db:"device_id"`
	IPAddress     *string    `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent     *string    `json:"user_agent,omitempty" db:"user_agent"`
	IsActive      bool       `json:"is_active" db:"is_active"`
	ActivatedAt   time.Time  `json:"activated_at" db:"activated_at"`
	DeactivatedAt *time.Time `json:"deactivated_at,omitempty" db:"deactivated_at"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
