package config

import (
	"os"
	"strings"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - api.go: Identity server API configuration
//   - auth.go: Route guard configuration
//   - credentials.go: Credential store configuration
//   - database.go: Redis and Postgres configuration
type AppConfig struct {
	// IsDev controls development mode behavior (verbose logging, relaxed
	// credential-file permissions checks). Set DEV=true for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	// API is the identity server client configuration.
	API APIConfig `envPrefix:"API_"`

	// Guard is the route guard configuration.
	Guard GuardConfig `envPrefix:"GUARD_"`

	// Credentials selects and configures the credential store backend.
	Credentials CredentialsConfig `envPrefix:"CREDENTIALS_"`

	// Database configuration for the redis and postgres credential backends.
	Redis    RedisConfig `envPrefix:"REDIS_"`
	Postgres DBConfig    `envPrefix:"DB_"`
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.API.Sanitize()
	c.Guard.Sanitize()
	c.Credentials.Sanitize()

	c.detectDevMode()
}

// detectDevMode checks both DEV and APP_ENV environment variables.
// This is called by Sanitize() to ensure IsDev is set correctly.
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		appEnv := strings.ToLower(os.Getenv("APP_ENV"))
		c.IsDev = appEnv == "development" || appEnv == "dev"
	}
}
