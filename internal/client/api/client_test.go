package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	serverapi "github.com/kamikazebr/license-gateway/internal/server/api"
	"github.com/kamikazebr/license-gateway/internal/server/licensing"
	"github.com/kamikazebr/license-gateway/pkg/models"
)

type oneLicense struct {
	license *models.LicenseDetails
}

func (o oneLicense) FindActiveLicenseByKey(_ context.Context, key string) (*models.LicenseDetails, error) {
	if o.license.LicenseKey == key {
		return o.license, nil
	}
	return nil, nil
}

const testKey = "QW3RT-Y7UIO-P1ASD-F2GHJ"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	finder := oneLicense{license: &models.LicenseDetails{
		License: models.License{
			ID:             uuid.New(),
			LicenseKey:     testKey,
			Status:         models.LicenseStatusActive,
			MaxActivations: 2,
		},
		ProductName:    "Basic Plan",
		ProductVersion: "1.5.0",
	}}
	handler := serverapi.NewClientHandler(licensing.NewValidator(finder, nil), nil)

	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Mount("/api/license", serverapi.NewClientRouter(handler, 0, 0))

	// Console stand-ins speaking the envelope format.
	r.Post("/api/auth/signin", func(w http.ResponseWriter, r *http.Request) {
		var req models.SignInRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Password != "correct-horse" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(models.ConsoleResponse{Message: "invalid email or password"})
			return
		}
		_ = json.NewEncoder(w).Encode(models.ConsoleResponse{Success: true, Data: models.AuthResponse{
			User:    models.AuthUser{Email: req.Email, Profile: models.UserProfile{Role: models.RoleAdmin}},
			Session: &models.AuthSession{AccessToken: "jwt-token", ExpiresAt: "2030-01-01T00:00:00Z"},
		}})
	})
	r.Get("/api/licenses", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer jwt-token" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(models.ConsoleResponse{Message: "invalid token"})
			return
		}
		assert.Equal(t, "suspended", r.URL.Query().Get("status"))
		_ = json.NewEncoder(w).Encode(models.ConsoleResponse{Success: true, Data: []models.LicenseDetails{*finder.license}})
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_ValidateSuccess(t *testing.T) {
	srv := newTestServer(t)
	client := NewClient(srv.URL + "/")

	require.NoError(t, client.HealthCheck())

	resp, err := client.Validate("app-key", models.ClientValidationRequest{
		LicenseKey: testKey,
		Product:    "Basic Plan",
		Version:    "1.0.0",
	})
	require.NoError(t, err)
	require.NotNil(t, resp.StatusID)
	require.NotNil(t, resp.LicenseInfo)
	assert.Equal(t, "1.5.0", resp.LicenseInfo.Version)
	assert.Equal(t, 2, resp.LicenseInfo.MaxActivations)

	token, err := licensing.DecodeToken(*resp.StatusID)
	require.NoError(t, err)
	assert.Equal(t, licensing.TokenFragment(testKey, "app-key"), token.Fragment)
}

func TestClient_ValidateStripsBearerPrefix(t *testing.T) {
	srv := newTestServer(t)
	client := NewClient(srv.URL)

	resp, err := client.Validate("Bearer app-key", models.ClientValidationRequest{
		LicenseKey: testKey,
		Product:    "Basic Plan",
		Version:    "1.5.0",
	})
	require.NoError(t, err)
	require.NotNil(t, resp.StatusID)

	token, err := licensing.DecodeToken(*resp.StatusID)
	require.NoError(t, err)
	assert.Equal(t, licensing.TokenFragment(testKey, "app-key"), token.Fragment)
}

func TestNormalizeAPIKey(t *testing.T) {
	assert.Equal(t, "app-key", NormalizeAPIKey("app-key"))
	assert.Equal(t, "app-key", NormalizeAPIKey("Bearer app-key"))
	assert.Equal(t, "app-key", NormalizeAPIKey("  Bearer app-key\n"))
}

func TestClient_ValidateFailure(t *testing.T) {
	srv := newTestServer(t)
	client := NewClient(srv.URL)

	resp, err := client.Validate("app-key", models.ClientValidationRequest{
		LicenseKey: testKey,
		Product:    "Enterprise Package",
		Version:    "1.0.0",
	})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, http.StatusBadRequest, verr.StatusCode)
	assert.Equal(t, licensing.MsgProductMismatch, verr.Message)
	require.NotNil(t, resp)
	assert.Nil(t, resp.StatusID)

	_, err = client.Validate("", models.ClientValidationRequest{LicenseKey: testKey})
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, http.StatusUnauthorized, verr.StatusCode)
}

func TestClient_Probe(t *testing.T) {
	srv := newTestServer(t)

	probe, err := NewClient(srv.URL).Probe()
	require.NoError(t, err)
	assert.Equal(t, "ok", probe.Status)
	assert.Equal(t, serverapi.ProbeVersion, probe.Version)
}

func TestClient_ConsoleEnvelope(t *testing.T) {
	srv := newTestServer(t)
	client := NewClient(srv.URL)

	_, err := client.SignIn("ops@example.com", "wrong")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid email or password")

	auth, err := client.SignIn("ops@example.com", "correct-horse")
	require.NoError(t, err)
	require.NotNil(t, auth.Session)
	assert.Equal(t, "jwt-token", auth.Session.AccessToken)

	licenses, err := client.ListLicenses(auth.Session.AccessToken, "suspended", "")
	require.NoError(t, err)
	require.Len(t, licenses, 1)
	assert.Equal(t, testKey, licenses[0].LicenseKey)
	require.NotNil(t, licenses[0].Products)
	assert.Equal(t, "Basic Plan", licenses[0].Products.Name)

	_, err = client.ListLicenses("stale", "suspended", "")
	assert.ErrorIs(t, err, ErrSessionExpired)
}
