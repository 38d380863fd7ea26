package config

import (
	"strings"
	"time"
)

// APIConfig contains identity server client configuration.
type APIConfig struct {
	// BaseURL is the base URL of the marketplace REST API.
	BaseURL string `env:"BASE_URL" envDefault:"http://localhost:5000"`

	// Timeout is the per-request timeout for API calls. A refresh-and-retry
	// episode spends at most twice this budget.
	Timeout time.Duration `env:"TIMEOUT" envDefault:"15s"`

	// UserAgent is sent on every outgoing request.
	UserAgent string `env:"USER_AGENT" envDefault:"proserve-client/1.0"`
}

// Sanitize applies guardrails to API configuration values.
func (a *APIConfig) Sanitize() {
	a.BaseURL = strings.TrimRight(a.BaseURL, "/")

	const minTimeout = time.Second
	if a.Timeout < minTimeout {
		a.Timeout = minTimeout
	}
}
