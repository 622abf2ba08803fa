package models

// Client validation API types. Field names are part of the public wire contract.
type ClientValidationRequest struct {
	LicenseKey string `json:"licensekey"`
	Product    string `json:"product"`
	Version    string `json:"version"`
}

type ClientValidationResponse struct {
	StatusCode     int          `json:"status_code"`
	StatusID       *string      `json:"status_id"`
	StatusOverview string       `json:"status_overview"`
	StatusMsg      string       `json:"status_msg"`
	LicenseInfo    *LicenseInfo `json:"license_info,omitempty"`
}

type LicenseInfo struct {
	Product            string  `json:"product"`
	Version            string  `json:"version"`
	ExpiresAt          *string `json:"expires_at"`
	MaxActivations     int     `json:"max_activations"`
	CurrentActivations int     `json:"current_activations"`
	LicenseType        string  `json:"license_type"`
	ValidatedAt        string  `json:"validated_at"`
}

const (
	LicenseTypeDemo     = "demo"
	LicenseTypeStandard = "standard"
)

type ProbeResponse struct {
	Status    string            `json:"status"`
	Message   string            `json:"message"`
	Timestamp string            `json:"timestamp"`
	Version   string            `json:"version"`
	Endpoints map[string]string `json:"endpoints"`
}

// Console auth API types
type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type SignUpRequest struct {
	Email    string       `json:"email" validate:"required,email"`
	Password string       `json:"password" validate:"required,min=8"`
	UserData SignUpFields `json:"userData"`
}

type SignUpFields struct {
	FullName string `json:"full_name" validate:"max=200"`
	Company  string `json:"company" validate:"max=200"`
	Phone    string `json:"phone" validate:"max=50"`
}

type AuthUser struct {
	ID      string      `json:"id"`
	Email   string      `json:"email"`
	Profile UserProfile `json:"profile"`
}

type AuthSession struct {
	AccessToken string `json:"access_token"`
	ExpiresAt   string `json:"expires_at"`
}

type AuthResponse struct {
	User    AuthUser     `json:"user"`
	Session *AuthSession `json:"session,omitempty"`
}

type UpdateUserRequest struct {
	FullName *string `json:"full_name" validate:"omitempty,max=200"`
	Company  *string `json:"company" validate:"omitempty,max=200"`
	Phone    *string `json:"phone" validate:"omitempty,max=50"`
	Role     *string `json:"role" validate:"omitempty,oneof=admin user"`
}

// Product API types
type CreateProductRequest struct {
	Name        string   `json:"name" validate:"required,max=200"`
	Description string   `json:"description"`
	Version     string   `json:"version" validate:"omitempty,max=50"`
	Price       *float64 `json:"price" validate:"omitempty,gte=0"`
}

type UpdateProductRequest struct {
	Name        *string  `json:"name" validate:"omitempty,max=200"`
	Description *string  `json:"description"`
	Version     *string  `json:"version" validate:"omitempty,max=50"`
	Price       *float64 `json:"price" validate:"omitempty,gte=0"`
}

// License API types
type CreateLicenseRequest struct {
	ProductID      string  `json:"product_id" validate:"required,uuid"`
	UserID         *string `json:"user_id" validate:"omitempty,uuid"`
	MaxActivations *int    `json:"max_activations" validate:"omitempty,min=1"`
	ExpiresAt      *string `json:"expires_at"`
	DurationDays   *int    `json:"duration_days" validate:"omitempty,min=1"`
	Status         string  `json:"status" validate:"omitempty,oneof=active expired pending suspended"`
}

type UpdateLicenseRequest struct {
	Status         *string `json:"status" validate:"omitempty,oneof=active expired pending suspended"`
	MaxActivations *int    `json:"max_activations" validate:"omitempty,min=1"`
	ExpiresAt      *string `json:"expires_at"`
	ClearExpiry    bool    `json:"clear_expiry"`
	UserID         *string `json:"user_id" validate:"omitempty,uuid"`
	Unassign       bool    `json:"unassign"`
}

type ActivateLicenseRequest struct {
	DeviceID string `json:"device_id" validate:"required,max=255"`
}

type ActivationResponse struct {
	Activation         *Activation `json:"activation"`
	MaxActivations     int         `json:"max_activations"`
	CurrentActivations int         `json:"current_activations"`
}

// Console envelope
type ConsoleResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// Reports
type DashboardStats struct {
	TotalLicenses    int              `json:"totalLicenses"`
	ActiveLicenses   int              `json:"activeLicenses"`
	TotalUsers       int              `json:"totalUsers"`
	TotalProducts    int              `json:"totalProducts"`
	RecentActivities []RecentActivity `json:"recentActivities"`
}

type LicenseReportRow struct {
	ID         string  `json:"id"`
	LicenseKey string  `json:"licenseKey"`
	Product    string  `json:"product"`
	User       string  `json:"user"`
	Status     string  `json:"status"`
	CreatedAt  string  `json:"createdAt"`
	ExpiresAt  *string `json:"expiresAt"`
}

type LicenseReport struct {
	GeneratedAt     string             `json:"generatedAt"`
	TotalLicenses   int                `json:"totalLicenses"`
	StatusBreakdown map[string]int     `json:"statusBreakdown"`
	Licenses        []LicenseReportRow `json:"licenses"`
}

type UserReportRow struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FullName  string `json:"fullName"`
	Company   string `json:"company"`
	Role      string `json:"role"`
	CreatedAt string `json:"createdAt"`
}

type UserReport struct {
	GeneratedAt string          `json:"generatedAt"`
	TotalUsers  int             `json:"totalUsers"`
	Users       []UserReportRow `json:"users"`
}

type ProductRevenue struct {
	ProductName  string  `json:"productName" db:"product_name"`
	LicenseCount int     `json:"licenseCount" db:"license_count"`
	Revenue      float64 `json:"revenue" db:"revenue"`
}

type RevenueReport struct {
	GeneratedAt              string           `json:"generatedAt"`
	TotalRevenue             float64          `json:"totalRevenue"`
	TotalLicenses            int              `json:"totalLicenses"`
	AverageRevenuePerLicense float64          `json:"averageRevenuePerLicense"`
	RevenueByProduct         []ProductRevenue `json:"revenueByProduct"`
}

type ReportSummary struct {
	TotalLicenses int     `json:"totalLicenses"`
	TotalUsers    int     `json:"totalUsers"`
	TotalRevenue  float64 `json:"totalRevenue"`
}

type FullReport struct {
	GeneratedAt string         `json:"generatedAt"`
	Summary     ReportSummary  `json:"summary"`
	Licenses    *LicenseReport `json:"licenses"`
	Users       *UserReport    `json:"users"`
	Revenue     *RevenueReport `json:"revenue"`
}

// Error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
