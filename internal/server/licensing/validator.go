package licensing

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/coder/quartz"
	"github.com/google/uuid"

	"github.com/kamikazebr/license-gateway/pkg/models"
)

// LicenseFinder is the read side of the license store the validator needs.
// It returns (nil, nil) when no license with the key has status active.
type LicenseFinder interface {
	FindActiveLicenseByKey(ctx context.Context, licenseKey string) (*models.LicenseDetails, error)
}

// ValidationObserver is told about every validation outcome. Observers
// cannot change the result.
type ValidationObserver interface {
	ObserveValidation(ctx context.Context, req ValidationRequest, res ValidationResult)
}

type ValidationRequest struct {
	// Authorization is the raw header value, with or without "Bearer ".
	Authorization string
	LicenseKey    string
	Product       string
	Version       string
}

// APIKey is the caller credential with any Bearer prefix removed.
func (r ValidationRequest) APIKey() string {
	return strings.TrimPrefix(r.Authorization, "Bearer ")
}

type ResultKind int

const (
	ResultOK ResultKind = iota
	ResultUnauthorized
	ResultBadRequest
	ResultNotFound
	ResultInternal
)

func (k ResultKind) String() string {
	switch k {
	case ResultOK:
		return "ok"
	case ResultUnauthorized:
		return "unauthorized"
	case ResultBadRequest:
		return "bad_request"
	case ResultNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

const (
	ReasonValid           = "valid"
	ReasonDemo            = "demo"
	ReasonMissingAuth     = "missing_authorization"
	ReasonMissingFields   = "missing_fields"
	ReasonMalformedBody   = "malformed_body"
	ReasonNotFound        = "not_found"
	ReasonProductMismatch = "product_mismatch"
	ReasonExpired         = "expired"
	ReasonStoreFailure    = "store_failure"
)

const (
	MsgValid           = "License validation successful"
	MsgDemoValid       = "Demo license validation successful"
	MsgMissingAuth     = "Authorization header is required"
	MsgMissingFields   = "licensekey, product and version are required"
	MsgMalformedBody   = "Invalid request body"
	MsgNotFound        = "License not found or invalid"
	MsgProductMismatch = "Product does not match"
	MsgExpired         = "License has expired"
	MsgInternal        = "Internal server error"
)

// ValidationResult is the outcome of one validation call. Every branch of
// Validate produces one; errors never escape.
type ValidationResult struct {
	Kind    ResultKind
	Reason  string
	Message string
	Token   string
	Info    *models.LicenseInfo

	// LicenseID is set once a license row was loaded.
	LicenseID *uuid.UUID
	// Err carries the store failure behind a ResultInternal.
	Err error
}

func (r ValidationResult) OK() bool {
	return r.Kind == ResultOK
}

func (r ValidationResult) StatusCode() int {
	switch r.Kind {
	case ResultOK:
		return http.StatusOK
	case ResultUnauthorized:
		return http.StatusUnauthorized
	case ResultBadRequest:
		return http.StatusBadRequest
	case ResultNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Response renders the result in the client wire format.
func (r ValidationResult) Response() models.ClientValidationResponse {
	resp := models.ClientValidationResponse{
		StatusCode: r.StatusCode(),
		StatusMsg:  r.Message,
	}
	if !r.OK() {
		resp.StatusOverview = "error"
		return resp
	}

	token := r.Token
	resp.StatusID = &token
	resp.StatusOverview = "success"
	resp.LicenseInfo = r.Info
	return resp
}

// Failure builds a non-success result. Transport code uses it for errors
// detected before Validate runs, such as an undecodable body.
func Failure(kind ResultKind, reason, message string) ValidationResult {
	return ValidationResult{Kind: kind, Reason: reason, Message: message}
}

type Validator struct {
	store     LicenseFinder
	clock     quartz.Clock
	demo      DemoRealm
	observers []ValidationObserver
}

func NewValidator(store LicenseFinder, clock quartz.Clock, observers ...ValidationObserver) *Validator {
	if clock == nil {
		clock = quartz.NewReal()
	}
	return &Validator{
		store:     store,
		clock:     clock,
		demo:      DefaultDemoRealm,
		observers: observers,
	}
}

// WithDemoRealm replaces the demo realm. A zero DemoRealm disables it.
func (v *Validator) WithDemoRealm(realm DemoRealm) *Validator {
	v.demo = realm
	return v
}

func (v *Validator) Validate(ctx context.Context, req ValidationRequest) ValidationResult {
	res := v.validate(ctx, req)
	for _, o := range v.observers {
		o.ObserveValidation(ctx, req, res)
	}
	return res
}

func (v *Validator) validate(ctx context.Context, req ValidationRequest) ValidationResult {
	if req.Authorization == "" {
		return Failure(ResultUnauthorized, ReasonMissingAuth, MsgMissingAuth)
	}

	if req.LicenseKey == "" || req.Product == "" || req.Version == "" {
		return Failure(ResultBadRequest, ReasonMissingFields, MsgMissingFields)
	}

	now := v.clock.Now()

	if v.demo.Matches(req.LicenseKey, req.Product) {
		return ValidationResult{
			Kind:    ResultOK,
			Reason:  ReasonDemo,
			Message: MsgDemoValid,
			Token:   EncodeToken(req.LicenseKey, req.APIKey(), now),
			Info:    v.demo.Info(req.Version, now),
		}
	}

	license, err := v.store.FindActiveLicenseByKey(ctx, req.LicenseKey)
	if err != nil {
		res := Failure(ResultInternal, ReasonStoreFailure, MsgInternal)
		res.Err = err
		return res
	}
	if license == nil {
		return Failure(ResultNotFound, ReasonNotFound, MsgNotFound)
	}

	licenseID := license.ID
	if license.ProductName != req.Product {
		res := Failure(ResultBadRequest, ReasonProductMismatch, MsgProductMismatch)
		res.LicenseID = &licenseID
		return res
	}

	if license.ExpiredAt(now) {
		res := Failure(ResultBadRequest, ReasonExpired, MsgExpired)
		res.LicenseID = &licenseID
		return res
	}

	return ValidationResult{
		Kind:      ResultOK,
		Reason:    ReasonValid,
		Message:   MsgValid,
		Token:     EncodeToken(req.LicenseKey, req.APIKey(), now),
		Info:      standardInfo(license, now),
		LicenseID: &licenseID,
	}
}

func standardInfo(license *models.LicenseDetails, now time.Time) *models.LicenseInfo {
	var expiresAt *string
	if license.ExpiresAt != nil {
		formatted := FormatTimestamp(*license.ExpiresAt)
		expiresAt = &formatted
	}

	return &models.LicenseInfo{
		Product:            license.ProductName,
		Version:            license.ProductVersion,
		ExpiresAt:          expiresAt,
		MaxActivations:     license.MaxActivations,
		CurrentActivations: license.CurrentActivations,
		LicenseType:        models.LicenseTypeStandard,
		ValidatedAt:        FormatTimestamp(now),
	}
}

// TimestampLayout matches the ISO-8601 form integrators already parse
// (UTC, millisecond precision).
const TimestampLayout = "2006-01-02T15:04:05.000Z"

func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}
