// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import "time"

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Import   ImportConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 30s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"30s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (required)
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" required:"true"`

	// MaxConns is the maximum number of connections in the pool (default: 20)
	MaxConns int `env:"DB_MAX_CONNS" default:"20"`

	// MinConns is the minimum number of connections to keep open (default: 4)
	MinConns int `env:"DB_MIN_CONNS" default:"4"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// ImportConfig holds asset import pipeline settings.
type ImportConfig struct {
	// MaxFileSize is the maximum allowed upload size in bytes (default: 50MB)
	MaxFileSize int64 `env:"IMPORT_MAX_FILE_SIZE" default:"52428800"`

	// MaxConcurrent is the maximum number of batches processed in parallel (default: 5)
	MaxConcurrent int `env:"IMPORT_MAX_CONCURRENT" default:"5"`

	// MaxWaitTime is how long to wait for a processing slot (default: 30s)
	MaxWaitTime time.Duration `env:"IMPORT_MAX_WAIT_TIME" default:"30s"`

	// Timeout is the maximum duration for extracting and normalizing one batch (default: 10m)
	Timeout time.Duration `env:"IMPORT_TIMEOUT" default:"10m"`

	// MatchThreshold is the minimum similarity score for auto-resolving a
	// free-text location or category against the registry (default: 0.85)
	MatchThreshold float64 `env:"IMPORT_MATCH_THRESHOLD" default:"0.85"`

	// MaxCandidates is how many ranked candidates to surface per distinct
	// free-text value when no match crosses the threshold (default: 5)
	MaxCandidates int `env:"IMPORT_MAX_CANDIDATES" default:"5"`

	// Workers is the number of goroutines scoring rows during normalization (default: 4)
	Workers int `env:"IMPORT_WORKERS" default:"4"`

	// DefaultPageSize is the page size used when the caller does not specify one (default: 50)
	DefaultPageSize int `env:"IMPORT_DEFAULT_PAGE_SIZE" default:"50"`

	// MaxPageSize caps the page size a caller may request (default: 500)
	MaxPageSize int `env:"IMPORT_MAX_PAGE_SIZE" default:"500"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// UploadLimit is requests per minute for upload endpoints (default: 10)
	UploadLimit int `env:"RATE_LIMIT_UPLOAD" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// RequireAPIKey controls whether API key authentication is enforced (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of valid API keys
	APIKeys []string `env:"API_KEYS"`

	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	if c.Host == "" {
		return ":" + itoa(c.Port)
	}
	return c.Host + ":" + itoa(c.Port)
}

// itoa converts an int to string without importing strconv in this file.
func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var b [20]byte
	n := len(b)
	neg := i < 0
	if neg {
		i = -i
	}
	for i > 0 {
		n--
		b[n] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		n--
		b[n] = '-'
	}
	return string(b[n:])
}
