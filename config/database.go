package config

import (
	"fmt"
	"net"
)

// DBConfig contains PostgreSQL configuration for the postgres credential backend.
type DBConfig struct {
	Host     string `env:"HOST"     envDefault:"localhost"`
	Port     int    `env:"PORT"     envDefault:"5432"`
	User     string `env:"USER"     envDefault:"proserve"`
	Password string `env:"PASSWORD" envDefault:"proserve"`
	Name     string `env:"NAME"     envDefault:"proserve"`
	SSLMode  string `env:"SSL_MODE" envDefault:"disable"` // Use 'disable' for local dev, 'require' for production
}

// DSN returns the postgres connection string for this configuration.
func (d DBConfig) DSN() string {
	hostPort := net.JoinHostPort(d.Host, fmt.Sprintf("%d", d.Port))
	return fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=%s",
		d.User, d.Password, hostPort, d.Name, d.SSLMode)
}

// RedisConfig contains Redis configuration for the redis credential backend.
type RedisConfig struct {
	Addr     string `env:"ADDR"     envDefault:"localhost:6379"`
	Password string `env:"PASSWORD" envDefault:""`
	DB       int    `env:"DB"       envDefault:"0"`
}
