package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fjmerc/fileshare/internal/utils"
)

// Database and storage selectors
const (
	DBTypeSQLite   = "sqlite"
	DBTypePostgres = "postgres"

	StorageLocal = "local"
	StorageS3    = "s3"
)

const (
	defaultBlockedExtensions = ".exe,.bat,.cmd,.sh,.ps1,.dll,.so,.msi,.scr,.vbs,.jar,.com,.app,.deb,.rpm"
	defaultBlockedMimeTypes  = "application/vnd.microsoft.portable-executable,application/x-msdownload,application/x-dosexec,application/x-elf,application/x-mach-binary"
)

// Config holds all application configuration
type Config struct {
	Port      string
	PublicURL string // Optional: base URL used for shareable links

	DBType     string
	DBPath     string
	PostgreSQL *PostgreSQLConfig

	StorageBackend string
	UploadDir      string
	S3             *S3Config

	MaxFileSize            int64
	DefaultExpirationHours int
	MaxExpirationHours     int // 0 = no upper bound
	CleanupIntervalMinutes int // 0 disables the in-process cleanup worker
	BlockedExtensions      []string
	BlockedMimeTypes       []string

	BcryptCost           int
	JWTSecret            string
	JWTExpiryHours       int
	JWTIssuer            string
	RequireAuthForUpload bool

	RateLimitUpload   int    // requests per hour per IP
	RateLimitDownload int    // requests per hour per IP
	TrustProxyHeaders string // "auto", "true" or "false"
	TrustedProxyIPs   string // comma-separated IPs and CIDR ranges

	ReadTimeoutSeconds  int
	WriteTimeoutSeconds int

	LogLevel  string
	LogFormat string
}

// Load reads configuration from environment variables with sensible defaults
func Load() (*Config, error) {
	cfg := &Config{
		Port:      getEnv("PORT", "8080"),
		PublicURL: getEnv("PUBLIC_URL", ""),

		DBType:     strings.ToLower(getEnv("DB_TYPE", DBTypeSQLite)),
		DBPath:     getEnv("DB_PATH", "./fileshare.db"),
		PostgreSQL: loadPostgreSQLConfig(),

		StorageBackend: strings.ToLower(getEnv("STORAGE_BACKEND", StorageLocal)),
		UploadDir:      getEnv("UPLOAD_DIR", "./uploads"),
		S3:             loadS3Config(),

		MaxFileSize:            getEnvInt64("MAX_FILE_SIZE", 104857600), // 100MB default
		DefaultExpirationHours: getEnvInt("DEFAULT_EXPIRATION_HOURS", 168),
		MaxExpirationHours:     getEnvInt("MAX_EXPIRATION_HOURS", 720), // 30 days default
		CleanupIntervalMinutes: getEnvInt("CLEANUP_INTERVAL_MINUTES", 60),
		BlockedExtensions:      getEnvList("BLOCKED_EXTENSIONS", defaultBlockedExtensions),
		BlockedMimeTypes:       getEnvMimeList("BLOCKED_MIME_TYPES", defaultBlockedMimeTypes),

		BcryptCost:           getEnvInt("BCRYPT_COST", 12),
		JWTSecret:            getEnv("JWT_SECRET", ""),
		JWTExpiryHours:       getEnvInt("JWT_EXPIRY_HOURS", 168),
		JWTIssuer:            getEnv("JWT_ISSUER", "fileshare"),
		RequireAuthForUpload: getEnvBool("REQUIRE_AUTH_FOR_UPLOAD", false),

		RateLimitUpload:   getEnvInt("RATE_LIMIT_UPLOAD", 10),    // 10 uploads per hour per IP
		RateLimitDownload: getEnvInt("RATE_LIMIT_DOWNLOAD", 100), // 100 downloads per hour per IP
		TrustProxyHeaders: strings.ToLower(getEnv("TRUST_PROXY_HEADERS", "auto")),
		TrustedProxyIPs:   getEnv("TRUSTED_PROXY_IPS", "127.0.0.1,::1,10.0.0.0/8,172.16.0.0/12,192.168.0.0/16"),

		ReadTimeoutSeconds:  getEnvInt("READ_TIMEOUT", 120),
		WriteTimeoutSeconds: getEnvInt("WRITE_TIMEOUT", 120),

		LogLevel:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(getEnv("LOG_FORMAT", "json")),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// validate ensures configuration values are sensible
func (c *Config) validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}

	switch c.DBType {
	case DBTypeSQLite:
		if c.DBPath == "" {
			return fmt.Errorf("DB_PATH cannot be empty")
		}
	case DBTypePostgres:
		if err := c.validatePostgreSQLSettings(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("DB_TYPE must be '%s' or '%s', got '%s'", DBTypeSQLite, DBTypePostgres, c.DBType)
	}

	switch c.StorageBackend {
	case StorageLocal:
		if c.UploadDir == "" {
			return fmt.Errorf("UPLOAD_DIR cannot be empty")
		}
	case StorageS3:
		if err := c.validateS3Settings(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("STORAGE_BACKEND must be '%s' or '%s', got '%s'", StorageLocal, StorageS3, c.StorageBackend)
	}

	if c.MaxFileSize <= 0 {
		return fmt.Errorf("MAX_FILE_SIZE must be positive, got %d", c.MaxFileSize)
	}

	if c.DefaultExpirationHours <= 0 {
		return fmt.Errorf("DEFAULT_EXPIRATION_HOURS must be positive, got %d", c.DefaultExpirationHours)
	}

	if c.MaxExpirationHours < 0 {
		return fmt.Errorf("MAX_EXPIRATION_HOURS must be 0 (unlimited) or positive, got %d", c.MaxExpirationHours)
	}

	if c.MaxExpirationHours > 0 && c.DefaultExpirationHours > c.MaxExpirationHours {
		return fmt.Errorf("DEFAULT_EXPIRATION_HOURS (%d) cannot exceed MAX_EXPIRATION_HOURS (%d)", c.DefaultExpirationHours, c.MaxExpirationHours)
	}

	if c.CleanupIntervalMinutes < 0 {
		return fmt.Errorf("CLEANUP_INTERVAL_MINUTES must be 0 (disabled) or positive, got %d", c.CleanupIntervalMinutes)
	}

	// bcrypt accepts costs 4..31
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST must be between 4 and 31, got %d", c.BcryptCost)
	}

	if c.JWTSecret != "" && len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters, got %d", len(c.JWTSecret))
	}

	if c.JWTExpiryHours <= 0 {
		return fmt.Errorf("JWT_EXPIRY_HOURS must be positive, got %d", c.JWTExpiryHours)
	}

	if c.RateLimitUpload <= 0 {
		return fmt.Errorf("RATE_LIMIT_UPLOAD must be positive, got %d", c.RateLimitUpload)
	}

	if c.RateLimitDownload <= 0 {
		return fmt.Errorf("RATE_LIMIT_DOWNLOAD must be positive, got %d", c.RateLimitDownload)
	}

	switch c.TrustProxyHeaders {
	case "auto", "true", "false":
	default:
		return fmt.Errorf("TRUST_PROXY_HEADERS must be 'auto', 'true' or 'false', got '%s'", c.TrustProxyHeaders)
	}

	if _, err := utils.ParseProxyTrust(c.TrustProxyHeaders, c.TrustedProxyIPs); err != nil {
		return fmt.Errorf("TRUSTED_PROXY_IPS: %w", err)
	}

	if c.ReadTimeoutSeconds <= 0 {
		return fmt.Errorf("READ_TIMEOUT must be positive, got %d", c.ReadTimeoutSeconds)
	}

	if c.WriteTimeoutSeconds <= 0 {
		return fmt.Errorf("WRITE_TIMEOUT must be positive, got %d", c.WriteTimeoutSeconds)
	}

	if _, ok := logLevels[c.LogLevel]; !ok {
		return fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error, got '%s'", c.LogLevel)
	}

	if c.LogFormat != "json" && c.LogFormat != "text" {
		return fmt.Errorf("LOG_FORMAT must be 'json' or 'text', got '%s'", c.LogFormat)
	}

	return nil
}

// DefaultExpiration returns DEFAULT_EXPIRATION_HOURS as a duration.
func (c *Config) DefaultExpiration() time.Duration {
	return time.Duration(c.DefaultExpirationHours) * time.Hour
}

// MaxExpiration returns MAX_EXPIRATION_HOURS as a duration; zero means unlimited.
func (c *Config) MaxExpiration() time.Duration {
	return time.Duration(c.MaxExpirationHours) * time.Hour
}

// CleanupInterval returns CLEANUP_INTERVAL_MINUTES as a duration; zero disables the worker.
func (c *Config) CleanupInterval() time.Duration {
	return time.Duration(c.CleanupIntervalMinutes) * time.Minute
}

// JWTExpiry returns JWT_EXPIRY_HOURS as a duration.
func (c *Config) JWTExpiry() time.Duration {
	return time.Duration(c.JWTExpiryHours) * time.Hour
}

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// SlogLevel maps LOG_LEVEL to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	if level, ok := logLevels[c.LogLevel]; ok {
		return level
	}
	return slog.LevelInfo
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable or returns a default value
func getEnvBool(key string, defaultValue bool) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return defaultValue
	}
}

// getEnvInt retrieves an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvInt64 retrieves an int64 environment variable or returns a default value
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvList retrieves a comma-separated list of file extensions
func getEnvList(key, defaultValue string) []string {
	items := splitList(getEnv(key, defaultValue))
	for i, item := range items {
		// Ensure extensions start with a dot
		if !strings.HasPrefix(item, ".") {
			items[i] = "." + item
		}
	}
	return items
}

// getEnvMimeList retrieves a comma-separated list of MIME types
func getEnvMimeList(key, defaultValue string) []string {
	return splitList(getEnv(key, defaultValue))
}

func splitList(value string) []string {
	if value == "" {
		return []string{}
	}

	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.ToLower(strings.TrimSpace(part))
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
