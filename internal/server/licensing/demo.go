package licensing

import (
	"time"

	"github.com/kamikazebr/license-gateway/pkg/models"
)

// DemoRealm is the reserved license key/product pair integrators use to
// exercise the validation protocol without provisioning data. Requests in
// the realm always succeed and never reach the store. It is a test escape
// hatch, not an authentication feature.
type DemoRealm struct {
	LicenseKey string
	Product    string
	ExpiresAt  string
}

const (
	DemoLicenseKey  = "DEMO-12345-ABCDE-67890"
	DemoProductName = "Demo Product"
)

var DefaultDemoRealm = DemoRealm{
	LicenseKey: DemoLicenseKey,
	Product:    DemoProductName,
	ExpiresAt:  "2025-12-31T23:59:59Z",
}

func (d DemoRealm) Matches(licenseKey, product string) bool {
	return d.LicenseKey != "" && licenseKey == d.LicenseKey && product == d.Product
}

func (d DemoRealm) Info(version string, now time.Time) *models.LicenseInfo {
	expiresAt := d.ExpiresAt
	return &models.LicenseInfo{
		Product:            d.Product,
		Version:            version,
		ExpiresAt:          &expiresAt,
		MaxActivations:     1,
		CurrentActivations: 0,
		LicenseType:        models.LicenseTypeDemo,
		ValidatedAt:        FormatTimestamp(now),
	}
}
