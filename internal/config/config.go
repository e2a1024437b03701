package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all application configuration
type Config struct {
	// Workspace settings
	Workspace string
	Token     string
	Cookie    string

	// API settings
	BaseURL string
	// Timeout for network requests, in seconds
	Timeout    int
	MaxRetries int
}

// NewConfig creates a new configuration with default values
func NewConfig() *Config {
	return &Config{
		Workspace:  "default",
		BaseURL:    "https://api.slack.com/api",
		Timeout:    30,
		MaxRetries: 5,
	}
}

// LoadFromEnvironment loads configuration from environment variables
func (c *Config) LoadFromEnvironment() {
	if workspace := os.Getenv("SLACK_WORKSPACE"); workspace != "" {
		c.Workspace = workspace
	}

	if token := os.Getenv("SLACK_API_TOKEN"); token != "" {
		c.Token = token
	}

	if cookie := os.Getenv("SLACK_API_COOKIE"); cookie != "" {
		c.Cookie = cookie
	}

	if baseURL := os.Getenv("SLACK_BASE_URL"); baseURL != "" {
		c.BaseURL = baseURL
	}

	if timeout := os.Getenv("SLACK_TIMEOUT"); timeout != "" {
		if t, err := strconv.Atoi(timeout); err == nil {
			c.Timeout = t
		}
	}

	if retries := os.Getenv("SLACK_MAX_RETRIES"); retries != "" {
		if r, err := strconv.Atoi(retries); err == nil {
			c.MaxRetries = r
		}
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Token == "" {
		return fmt.Errorf("API token cannot be empty")
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got: %d", c.Timeout)
	}

	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries must be non-negative, got: %d", c.MaxRetries)
	}

	return nil
}
