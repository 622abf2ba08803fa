package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamikazebr/license-gateway/internal/server/licensing"
	"github.com/kamikazebr/license-gateway/pkg/models"
)

type stubFinder struct {
	license *models.LicenseDetails
	err     error
}

func (s *stubFinder) FindActiveLicenseByKey(_ context.Context, key string) (*models.LicenseDetails, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.license != nil && s.license.LicenseKey == key {
		return s.license, nil
	}
	return nil, nil
}

type countingObserver struct {
	reasons []string
}

func (c *countingObserver) ObserveValidation(_ context.Context, _ licensing.ValidationRequest, res licensing.ValidationResult) {
	c.reasons = append(c.reasons, res.Reason)
}

const clientTestKey = "AB12C-DE34F-GH56I-JK78L"

func newClientRouter(t *testing.T, finder licensing.LicenseFinder, obs *countingObserver) http.Handler {
	t.Helper()
	clock := quartz.NewMock(t)
	clock.Set(time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC))

	validator := licensing.NewValidator(finder, clock)
	var handler *ClientHandler
	if obs != nil {
		handler = NewClientHandler(validator, clock, obs)
	} else {
		handler = NewClientHandler(validator, clock)
	}
	return NewClientRouter(handler, 0, 0)
}

func postClient(t *testing.T, h http.Handler, auth, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/client", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	return rec, decoded
}

func TestClientValidate_Success(t *testing.T) {
	license := &models.LicenseDetails{
		License: models.License{
			ID:             uuid.New(),
			LicenseKey:     clientTestKey,
			Status:         models.LicenseStatusActive,
			MaxActivations: 3,
		},
		ProductName:    "Premium Suite",
		ProductVersion: "2.1.0",
	}
	h := newClientRouter(t, &stubFinder{license: license}, nil)

	rec, body := postClient(t, h, "Bearer api-key-123",
		`{"licensekey":"`+clientTestKey+`","product":"Premium Suite","version":"2.0.5"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(200), body["status_code"])
	assert.Equal(t, "success", body["status_overview"])
	assert.Equal(t, licensing.MsgValid, body["status_msg"])

	token, ok := body["status_id"].(string)
	require.True(t, ok)
	decoded, err := licensing.DecodeToken(token)
	require.NoError(t, err)
	assert.Equal(t, licensing.TokenFragment(clientTestKey, "api-key-123"), decoded.Fragment)

	info := body["license_info"].(map[string]interface{})
	assert.Equal(t, "Premium Suite", info["product"])
	assert.Equal(t, "2.1.0", info["version"])
	assert.Nil(t, info["expires_at"])
	assert.Equal(t, "standard", info["license_type"])
	assert.Equal(t, "2026-03-14T15:09:26.000Z", info["validated_at"])
}

func TestClientValidate_ErrorShapes(t *testing.T) {
	finder := &stubFinder{}
	h := newClientRouter(t, finder, nil)

	tests := []struct {
		name string
		auth string
		body string
		want int
	}{
		{"missing authorization", "", `{"licensekey":"X","product":"P","version":"1"}`, http.StatusUnauthorized},
		{"missing authorization wins over bad body", "", `{not json`, http.StatusUnauthorized},
		{"malformed body", "key", `{not json`, http.StatusBadRequest},
		{"missing fields", "key", `{"licensekey":"X"}`, http.StatusBadRequest},
		{"unknown key", "key", `{"licensekey":"NOPE","product":"P","version":"1"}`, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := postClient(t, h, tt.auth, tt.body)
			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, float64(tt.want), body["status_code"])
			assert.Equal(t, "error", body["status_overview"])
			assert.Contains(t, body, "status_id")
			assert.Nil(t, body["status_id"])
			assert.NotContains(t, body, "license_info")
		})
	}
}

func TestClientValidate_StoreFailureIs500(t *testing.T) {
	h := newClientRouter(t, &stubFinder{err: errors.New("connection refused")}, nil)

	rec, body := postClient(t, h, "key", `{"licensekey":"X","product":"P","version":"1"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, licensing.MsgInternal, body["status_msg"])
}

func TestClientValidate_DemoLicense(t *testing.T) {
	h := newClientRouter(t, &stubFinder{err: errors.New("store must not be used")}, nil)

	rec, body := postClient(t, h, "demo-key", `{"licensekey":"DEMO-12345-ABCDE-67890","product":"Demo Product","version":"9.9"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	info := body["license_info"].(map[string]interface{})
	assert.Equal(t, "demo", info["license_type"])
	assert.Equal(t, "9.9", info["version"])
}

func TestClientValidate_MalformedBodyNotifiesObservers(t *testing.T) {
	obs := &countingObserver{}
	h := newClientRouter(t, &stubFinder{}, obs)

	rec, _ := postClient(t, h, "key", `[]`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []string{licensing.ReasonMalformedBody}, obs.reasons)
}

func TestClientProbeAndUnknownPath(t *testing.T) {
	h := newClientRouter(t, &stubFinder{}, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var probe models.ProbeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &probe))
	assert.Equal(t, "ok", probe.Status)
	assert.Equal(t, ProbeVersion, probe.Version)
	assert.Equal(t, "2026-03-14T15:09:26.000Z", probe.Timestamp)
	assert.Len(t, probe.Endpoints, 2)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Available endpoints")
}

func TestClientValidate_RateLimited(t *testing.T) {
	clock := quartz.NewMock(t)
	handler := NewClientHandler(licensing.NewValidator(&stubFinder{}, clock), clock)
	h := NewClientRouter(handler, 2, time.Minute)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/client", strings.NewReader(`{}`))
		req.RemoteAddr = "203.0.113.7:5555"
		req.Header.Set("Authorization", "key")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusBadRequest, http.StatusBadRequest, http.StatusTooManyRequests}, codes)
}
