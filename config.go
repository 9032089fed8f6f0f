package gatekeeper

import (
	"log/slog"
	"time"

	"github.com/giantswarm/gatekeeper/instrumentation"
)

const (
	// DefaultRateLimitBurst is used when RateLimitConfig.Rate is set without a burst.
	DefaultRateLimitBurst = 20

	// DefaultRetryAfter is the Retry-After value sent with 429 responses.
	DefaultRetryAfter = 60 * time.Second
)

// Config holds the gateway configuration
type Config struct {
	// Rate limiting configuration
	RateLimit RateLimitConfig

	// Security settings
	Security SecurityConfig

	// Logger for structured logging (optional, uses default if not provided)
	Logger *slog.Logger

	// Instrumentation records metrics and traces (optional).
	Instrumentation *instrumentation.Instrumentation
}

// RateLimitConfig holds per-IP rate limiting configuration
type RateLimitConfig struct {
	// Rate is requests per second allowed per IP. Zero disables limiting.
	Rate float64

	// Burst is the maximum burst size allowed per IP.
	Burst int

	// MaxEntries bounds the number of tracked IPs (default: 10000).
	MaxEntries int

	// CleanupInterval is how often to drop idle limiters.
	CleanupInterval time.Duration
}

// SecurityConfig holds request-level security settings
type SecurityConfig struct {
	// TrustProxy enables trusting X-Forwarded-For and X-Real-IP headers.
	// Only enable behind a trusted reverse proxy.
	TrustProxy bool

	// TrustedProxyCount is the number of proxies in front of the gateway.
	// Default: 1
	TrustedProxyCount int

	// EnableAuditLogging enables security audit logging.
	// Codes are hashed; secrets and tokens are never logged.
	EnableAuditLogging bool
}

func applyDefaults(config *Config) *Config {
	c := *config
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.RateLimit.Rate > 0 && c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = DefaultRateLimitBurst
	}
	if c.Security.TrustProxy && c.Security.TrustedProxyCount <= 0 {
		c.Security.TrustedProxyCount = 1
	}
	return &c
}
