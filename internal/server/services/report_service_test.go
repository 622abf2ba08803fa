package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamikazebr/license-gateway/internal/server/metrics"
	"github.com/kamikazebr/license-gateway/internal/testutil"
	"github.com/kamikazebr/license-gateway/pkg/models"
)

func TestReportService_LicenseReportFallsBackToUnassigned(t *testing.T) {
	tdb := testutil.GetTestDB(t)
	ctx := context.Background()
	repos := tdb.Repositories()

	clock := quartz.NewMock(t)
	clock.Set(time.Date(2026, 5, 1, 8, 30, 0, 0, time.UTC))
	service := NewReportService(repos.Licenses, repos.Products, repos.Users, NewAnalyticsRecorder(repos.Analytics), clock)

	product := tdb.CreateTestProduct(ctx, 99.99)
	license := tdb.CreateTestLicense(ctx, product.ID, models.LicenseStatusSuspended, 1, nil)

	report, err := service.LicenseReport(ctx, models.LicenseFilter{Search: license.LicenseKey})
	require.NoError(t, err)

	assert.Equal(t, "2026-05-01T08:30:00.000Z", report.GeneratedAt)
	assert.Equal(t, 1, report.TotalLicenses)
	assert.Equal(t, 1, report.StatusBreakdown["suspended"])
	assert.Equal(t, 0, report.StatusBreakdown["active"])
	require.Len(t, report.Licenses, 1)
	assert.Equal(t, license.LicenseKey, report.Licenses[0].LicenseKey)
	assert.Equal(t, "Unassigned", report.Licenses[0].User)
	assert.Equal(t, product.Name, report.Licenses[0].Product)
	assert.Nil(t, report.Licenses[0].ExpiresAt)
}

func TestReportService_FullReportSummary(t *testing.T) {
	tdb := testutil.GetTestDB(t)
	ctx := context.Background()
	repos := tdb.Repositories()
	service := NewReportService(repos.Licenses, repos.Products, repos.Users, NewAnalyticsRecorder(repos.Analytics), quartz.NewReal())

	product := tdb.CreateTestProduct(ctx, 10)
	tdb.CreateTestLicense(ctx, product.ID, models.LicenseStatusActive, 1, nil)

	full, err := service.FullReport(ctx)
	require.NoError(t, err)
	assert.Equal(t, full.Licenses.TotalLicenses, full.Summary.TotalLicenses)
	assert.Equal(t, full.Users.TotalUsers, full.Summary.TotalUsers)
	assert.InDelta(t, full.Revenue.TotalRevenue, full.Summary.TotalRevenue, 0.001)
	assert.GreaterOrEqual(t, full.Revenue.TotalRevenue, 10.0)

	stats, err := service.DashboardStats(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, stats.ActiveLicenses, 1)
	assert.GreaterOrEqual(t, stats.TotalLicenses, stats.ActiveLicenses)
	assert.LessOrEqual(t, len(stats.RecentActivities), recentActivityLimit)
}

func TestHousekeeper_RunOnce(t *testing.T) {
	tdb := testutil.GetTestDB(t)
	ctx := context.Background()
	repos := tdb.Repositories()

	product := tdb.CreateTestProduct(ctx, 10)
	past := time.Now().Add(-48 * time.Hour)
	tdb.CreateTestLicense(ctx, product.ID, models.LicenseStatusActive, 1, &past)

	tdb.Exec(ctx, `INSERT INTO analytics_events (event_type, created_at) VALUES ('housekeeping_test', now() - interval '400 days')`)

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	keeper := NewHousekeeper(NewAnalyticsRecorder(repos.Analytics), repos.Licenses, m, 90*24*time.Hour, time.Hour)

	require.NoError(t, keeper.RunOnce(ctx))

	var remaining int
	require.NoError(t, tdb.DB.GetContext(ctx, &remaining,
		"SELECT COUNT(*) FROM analytics_events WHERE event_type = 'housekeeping_test'"))
	assert.Zero(t, remaining)

	families, err := registry.Gather()
	require.NoError(t, err)
	var lapsed float64
	for _, f := range families {
		if f.GetName() == "license_gateway_licenses_lapsed" {
			lapsed = f.GetMetric()[0].GetGauge().GetValue()
		}
	}
	assert.GreaterOrEqual(t, lapsed, 1.0)

	// Lapsed licenses are counted, not rewritten.
	var status string
	require.NoError(t, tdb.DB.GetContext(ctx, &status, "SELECT status FROM licenses WHERE product_id = $1", product.ID))
	assert.Equal(t, "active", status)

	assert.Equal(t, 1, promtest.CollectAndCount(registry, "license_gateway_licenses_lapsed"))
}

func TestRenderLicenseKeyEmail(t *testing.T) {
	expires := time.Date(2027, 1, 15, 0, 0, 0, 0, time.UTC)
	body := renderLicenseKeyEmail(LicenseKeyEmail{
		To:          "ada@example.com",
		FullName:    "Ada <Admin>",
		LicenseKey:  "AB12C-DE34F-GH56I-JK78L",
		ProductName: "Premium Suite",
		Version:     "2.1.0",
		ExpiresAt:   &expires,
	})

	assert.Contains(t, body, "AB12C-DE34F-GH56I-JK78L")
	assert.Contains(t, body, "Hello Ada &lt;Admin&gt;,")
	assert.Contains(t, body, "January 15, 2027")
	assert.False(t, strings.Contains(body, "<Admin>"))

	perpetual := renderLicenseKeyEmail(LicenseKeyEmail{LicenseKey: "K", ProductName: "P"})
	assert.Contains(t, perpetual, "does not expire")
	assert.Contains(t, perpetual, "Hello,")
}

func TestEmailService_SkipSend(t *testing.T) {
	_, err := NewEmailService("", "", false)
	require.Error(t, err)

	svc, err := NewEmailService("re_test", "", true)
	require.NoError(t, err)
	assert.NoError(t, svc.SendLicenseKey(LicenseKeyEmail{To: "a@example.com", ProductName: "P"}))
}
