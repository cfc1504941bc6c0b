package config

import (
	"fmt"
	"net/url"
)

// PostgreSQLConfig holds PostgreSQL connection settings.
type PostgreSQLConfig struct {
	Host           string
	Port           int
	User           string
	Password       string
	Database       string
	SSLMode        string // disable, allow, prefer, require, verify-ca, verify-full
	Options        string // extra connection-string parameters, e.g. "application_name=fileshare"
	MaxConnections int
	AutoMigrate    bool
}

// loadPostgreSQLConfig loads PostgreSQL configuration from environment variables.
// Environment variables:
//   - POSTGRES_HOST (default: localhost)
//   - POSTGRES_PORT (default: 5432)
//   - POSTGRES_USER, POSTGRES_PASSWORD
//   - POSTGRES_DB (default: fileshare)
//   - POSTGRES_SSLMODE (default: prefer)
//   - POSTGRES_OPTIONS
//   - POSTGRES_MAX_CONNECTIONS (default: 25)
//   - POSTGRES_AUTO_MIGRATE (default: true)
func loadPostgreSQLConfig() *PostgreSQLConfig {
	return &PostgreSQLConfig{
		Host:           getEnv("POSTGRES_HOST", "localhost"),
		Port:           getEnvInt("POSTGRES_PORT", 5432),
		User:           getEnv("POSTGRES_USER", ""),
		Password:       getEnv("POSTGRES_PASSWORD", ""),
		Database:       getEnv("POSTGRES_DB", "fileshare"),
		SSLMode:        getEnv("POSTGRES_SSLMODE", "prefer"),
		Options:        getEnv("POSTGRES_OPTIONS", ""),
		MaxConnections: getEnvInt("POSTGRES_MAX_CONNECTIONS", 25),
		AutoMigrate:    getEnvBool("POSTGRES_AUTO_MIGRATE", true),
	}
}

var validSSLModes = map[string]bool{
	"disable": true, "allow": true, "prefer": true,
	"require": true, "verify-ca": true, "verify-full": true,
}

// validatePostgreSQLSettings validates PostgreSQL configuration when DB_TYPE=postgres.
func (c *Config) validatePostgreSQLSettings() error {
	pg := c.PostgreSQL
	if pg == nil {
		return fmt.Errorf("PostgreSQL configuration is required when DB_TYPE=postgres")
	}

	if pg.Host == "" {
		return fmt.Errorf("POSTGRES_HOST cannot be empty")
	}

	if pg.Port < 1 || pg.Port > 65535 {
		return fmt.Errorf("POSTGRES_PORT must be between 1 and 65535, got %d", pg.Port)
	}

	if pg.User == "" {
		return fmt.Errorf("POSTGRES_USER cannot be empty")
	}

	if pg.Database == "" {
		return fmt.Errorf("POSTGRES_DB cannot be empty")
	}

	if pg.SSLMode != "" && !validSSLModes[pg.SSLMode] {
		return fmt.Errorf("POSTGRES_SSLMODE '%s' is not a valid sslmode", pg.SSLMode)
	}

	if _, err := url.ParseQuery(pg.Options); err != nil {
		return fmt.Errorf("POSTGRES_OPTIONS must be URL query parameters: %w", err)
	}

	if pg.MaxConnections <= 0 {
		return fmt.Errorf("POSTGRES_MAX_CONNECTIONS must be positive, got %d", pg.MaxConnections)
	}

	return nil
}
