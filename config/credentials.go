package config

import (
	"fmt"
	"strings"
)

// CredentialBackend selects the credential store implementation.
type CredentialBackend string

const (
	// BackendFile persists credentials to a local JSON file.
	BackendFile CredentialBackend = "file"
	// BackendRedis persists credentials to Redis.
	BackendRedis CredentialBackend = "redis"
	// BackendPostgres persists credentials to Postgres.
	BackendPostgres CredentialBackend = "postgres"
)

// UnmarshalText implements encoding.TextUnmarshaler for CredentialBackend.
func (b *CredentialBackend) UnmarshalText(text []byte) error {
	v := strings.ToLower(string(text))
	switch v {
	case "file", "redis", "postgres":
		*b = CredentialBackend(v)
		return nil
	default:
		return fmt.Errorf("invalid CredentialBackend: %q (valid options: file, redis, postgres)", v)
	}
}

// CredentialsConfig selects and configures the credential store backend.
// Tokens are stored in plain form; hardening (OS keychain, encryption at
// rest) is a deployment concern layered on top of the file path.
type CredentialsConfig struct {
	// Backend determines which credential store adapter to use.
	Backend CredentialBackend `env:"BACKEND" envDefault:"file"`

	// FilePath is the credentials file location for the file backend.
	// Empty means "<user config dir>/proserve/credentials.json".
	FilePath string `env:"FILE_PATH" envDefault:""`

	// Key is the storage key used by the redis and postgres backends.
	// Multiple client installations sharing one store use distinct keys.
	Key string `env:"KEY" envDefault:"proserve:credentials"`
}

// Sanitize applies guardrails to credentials configuration values.
func (c *CredentialsConfig) Sanitize() {
	if c.Key == "" {
		c.Key = "proserve:credentials"
	}
}
