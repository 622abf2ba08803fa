package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamikazebr/license-gateway/internal/client/api"
	"github.com/kamikazebr/license-gateway/internal/client/ui"
	"github.com/kamikazebr/license-gateway/pkg/models"
)

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "(not set)", maskSecret(""))
	assert.Equal(t, "********", maskSecret("short"))
	assert.Equal(t, "sk_l…cdef", maskSecret("sk_live_0123456789abcdef"))
}

func TestResolveLicense(t *testing.T) {
	id := uuid.New()
	var searches []string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		searches = append(searches, r.URL.Query().Get("search"))
		_ = json.NewEncoder(w).Encode(models.ConsoleResponse{
			Success: true,
			Data: []models.License{{
				ID:             id,
				LicenseKey:     "QW3RT-Y7UIO-P1ASD-F2GHJ",
				Status:         models.LicenseStatusActive,
				MaxActivations: 2,
			}},
		})
	}))
	defer srv.Close()
	client := api.NewClient(srv.URL)

	byKey, err := resolveLicense(client, "jwt", "QW3RT-Y7UIO-P1ASD-F2GHJ")
	require.NoError(t, err)
	assert.Equal(t, id, byKey.ID)

	byID, err := resolveLicense(client, "jwt", id.String())
	require.NoError(t, err)
	assert.Equal(t, "QW3RT-Y7UIO-P1ASD-F2GHJ", byID.LicenseKey)

	_, err = resolveLicense(client, "jwt", "NOPE0-NOPE0-NOPE0-NOPE0")
	assert.Error(t, err)

	assert.Equal(t, []string{"QW3RT-Y7UIO-P1ASD-F2GHJ", "", "NOPE0-NOPE0-NOPE0-NOPE0"}, searches)
}

func TestDeviceOrDefault(t *testing.T) {
	deviceID = "build-agent-7"
	assert.Equal(t, "build-agent-7", deviceOrDefault())
	deviceID = ""
	assert.NotEmpty(t, deviceOrDefault())
}

func TestProductOptions(t *testing.T) {
	active := models.Product{ID: uuid.New(), Name: "Basic Plan", Version: "1.5.0", Price: 29.99, IsActive: true}
	retired := models.Product{ID: uuid.New(), Name: "Enterprise Package", Version: "3.0.0", Price: 299.99}

	options := productOptions([]models.Product{active, retired})
	require.Len(t, options, 2)
	assert.Equal(t, "Basic Plan 1.5.0", options[0].Label)
	assert.Equal(t, "$29.99", options[0].Detail)
	assert.Empty(t, options[0].Badge)
	assert.Equal(t, active.ID.String(), options[0].Value)
	assert.Equal(t, "retired", options[1].Badge)
}

func TestLicenseOptions(t *testing.T) {
	l := api.License{
		License: models.License{
			ID:                 uuid.New(),
			LicenseKey:         "QW3RT-Y7UIO-P1ASD-F2GHJ",
			Status:             models.LicenseStatusSuspended,
			MaxActivations:     3,
			CurrentActivations: 1,
		},
		Products: &models.LicenseProductView{Name: "Basic Plan", Version: "1.5.0"},
	}

	options := licenseOptions([]api.License{l})
	require.Len(t, options, 1)
	assert.Equal(t, "QW3RT-Y7UIO-P1ASD-F2GHJ", options[0].Label)
	assert.Equal(t, "Basic Plan 1.5.0  1/3 activations", options[0].Detail)
	assert.Equal(t, "suspended", options[0].Badge)
	assert.Equal(t, l.ID.String(), options[0].Value)
}

func TestIssueDetails(t *testing.T) {
	issueMaxActivations, issueDurationDays = 3, 30
	defer func() { issueMaxActivations, issueDurationDays = 0, 0 }()

	view := ui.NewConfirm("Issue a license?", issueDetails("Basic Plan 1.5.0")...).View()
	assert.Contains(t, view, "Basic Plan 1.5.0")
	assert.Contains(t, view, "in 30 days")
	assert.Contains(t, view, "Issue")
}
