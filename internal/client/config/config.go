package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	ConfigFile = "client.json"

	// ConfigDirEnv overrides the config directory.
	ConfigDirEnv = "LICENSE_CLIENT_CONFIG_DIR"

	DefaultServerURL = "http://localhost:8080"
)

// GetConfigDir returns the directory holding the client config.
func GetConfigDir() (string, error) {
	if dir := os.Getenv(ConfigDirEnv); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user directory: %w", err)
	}
	return filepath.Join(home, ".license-gateway"), nil
}

type Config struct {
	ServerURL string `json:"server_url"`
	// APIKey is sent as the Authorization header on validation requests.
	APIKey string `json:"api_key,omitempty"`

	// Console session
	Email     string    `json:"email,omitempty"`
	JWT       string    `json:"jwt,omitempty"`
	Role      string    `json:"role,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`

	// LastProductID preselects the product picker on the next issue.
	LastProductID string `json:"last_product_id,omitempty"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{ServerURL: DefaultServerURL}
}

// Load loads the configuration from disk. A missing file yields the defaults.
func Load() (*Config, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(configDir, ConfigFile))
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if config.ServerURL == "" {
		config.ServerURL = DefaultServerURL
	}
	return config, nil
}

// Save saves the configuration to disk
func (c *Config) Save() error {
	configDir, err := GetConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write with restrictive permissions (only owner can read)
	if err := os.WriteFile(filepath.Join(configDir, ConfigFile), data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// ClearSession forgets the console session, keeping server and API key.
func (c *Config) ClearSession() {
	c.Email = ""
	c.JWT = ""
	c.Role = ""
	c.ExpiresAt = time.Time{}
}

// HasSession reports whether a console token is stored and unexpired.
func (c *Config) HasSession() bool {
	return c.JWT != "" && !c.IsExpired()
}

// IsExpired returns true if the JWT has expired
func (c *Config) IsExpired() bool {
	return time.Now().After(c.ExpiresAt)
}

// ExpiresIn returns the duration until the JWT expires
func (c *Config) ExpiresIn() time.Duration {
	return time.Until(c.ExpiresAt)
}
