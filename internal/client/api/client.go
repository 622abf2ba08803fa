package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kamikazebr/license-gateway/pkg/models"
)

// ErrSessionExpired is returned when the console rejects the stored token.
var ErrSessionExpired = errors.New("session expired or invalid, sign in again")

// ValidationError is a non-success answer from the validation endpoint.
type ValidationError struct {
	StatusCode int
	Message    string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("license validation failed (%d): %s", e.StatusCode, e.Message)
}

// License is a license as returned by the console API.
type License struct {
	models.License
	Products     *models.LicenseProductView `json:"products"`
	UsersProfile *models.LicenseOwnerView   `json:"users_profile"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// HealthCheck checks if the server is reachable
func (c *Client) HealthCheck() error {
	resp, err := c.httpClient.Get(c.baseURL + "/health")
	if err != nil {
		return fmt.Errorf("failed to reach server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	return nil
}

// Probe calls the unauthenticated validation API status endpoint.
func (c *Client) Probe() (*models.ProbeResponse, error) {
	resp, err := c.httpClient.Get(c.baseURL + "/api/license/test")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var result models.ProbeResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &result, nil
}

// NormalizeAPIKey strips surrounding space and a "Bearer " prefix, so keys
// copied together with their header scheme are sent once.
func NormalizeAPIKey(apiKey string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(apiKey), "Bearer "))
}

// Validate checks a license key. The decoded response is returned for
// every answer in the wire format; non-success answers also return a
// *ValidationError.
func (c *Client) Validate(apiKey string, reqBody models.ClientValidationRequest) (*models.ClientValidationResponse, error) {
	body, _ := json.Marshal(reqBody)

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/api/license/client", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey = NormalizeAPIKey(apiKey); apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var result models.ClientValidationResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK || result.StatusOverview != "success" {
		return &result, &ValidationError{StatusCode: resp.StatusCode, Message: result.StatusMsg}
	}
	return &result, nil
}

// SignIn opens a console session.
func (c *Client) SignIn(email, password string) (*models.AuthResponse, error) {
	var result models.AuthResponse
	err := c.console(http.MethodPost, "/api/auth/signin", "", models.SignInRequest{
		Email:    email,
		Password: password,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) CurrentUser(jwt string) (*models.AuthResponse, error) {
	var result models.AuthResponse
	if err := c.console(http.MethodGet, "/api/auth/user", jwt, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) ListProducts(jwt string) ([]models.Product, error) {
	var result []models.Product
	if err := c.console(http.MethodGet, "/api/products", jwt, nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// ListLicenses lists licenses visible to the session. Empty filters match all.
func (c *Client) ListLicenses(jwt, status, search string) ([]License, error) {
	query := url.Values{}
	if status != "" {
		query.Set("status", status)
	}
	if search != "" {
		query.Set("search", search)
	}
	path := "/api/licenses"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var result []License
	if err := c.console(http.MethodGet, path, jwt, nil, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) CreateLicense(jwt string, req models.CreateLicenseRequest) (*License, error) {
	var result License
	if err := c.console(http.MethodPost, "/api/licenses", jwt, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Activate(jwt string, licenseID uuid.UUID, deviceID string) (*models.ActivationResponse, error) {
	var result models.ActivationResponse
	err := c.console(http.MethodPost, "/api/licenses/"+licenseID.String()+"/activations", jwt,
		models.ActivateLicenseRequest{DeviceID: deviceID}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) Deactivate(jwt string, licenseID uuid.UUID, deviceID string) (*models.ActivationResponse, error) {
	var result models.ActivationResponse
	path := "/api/licenses/" + licenseID.String() + "/activations/" + url.PathEscape(deviceID)
	if err := c.console(http.MethodDelete, path, jwt, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// console performs a console API call and unwraps the {success, data}
// envelope into out.
func (c *Client) console(method, path, jwt string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if jwt != "" {
		req.Header.Set("Authorization", "Bearer "+jwt)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized && jwt != "" {
		return ErrSessionExpired
	}

	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Message string          `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("server returned %d with an unreadable body: %w", resp.StatusCode, err)
	}
	if !envelope.Success {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, envelope.Message)
	}

	if out == nil || len(envelope.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
