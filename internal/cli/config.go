package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/pflag"
)

// Config is the process configuration. Every field defaults from the
// environment and can be overridden by a flag.
type Config struct {
	ListenAddr      string        `env:"GATEKEEPER_LISTEN_ADDR" envDefault:":9999"`
	ConfigPath      string        `env:"GATEKEEPER_CONFIG" envDefault:"config.json"`
	LogLevel        string        `env:"GATEKEEPER_LOG_LEVEL" envDefault:"info"`
	LogFormat       string        `env:"GATEKEEPER_LOG_FORMAT" envDefault:"json"`
	UpstreamTimeout time.Duration `env:"GATEKEEPER_UPSTREAM_TIMEOUT" envDefault:"5s"`
	ShutdownTimeout time.Duration `env:"GATEKEEPER_SHUTDOWN_TIMEOUT" envDefault:"10s"`

	RateLimit         float64 `env:"GATEKEEPER_RATE_LIMIT" envDefault:"0"`
	RateBurst         int     `env:"GATEKEEPER_RATE_BURST" envDefault:"20"`
	TrustProxy        bool    `env:"GATEKEEPER_TRUST_PROXY" envDefault:"false"`
	TrustedProxyCount int     `env:"GATEKEEPER_TRUSTED_PROXY_COUNT" envDefault:"1"`
	AuditLog          bool    `env:"GATEKEEPER_AUDIT_LOG" envDefault:"false"`

	OTLPEndpoint string `env:"GATEKEEPER_OTLP_ENDPOINT"`
}

// LoadConfig reads Config from environ. A nil environ reads the process
// environment.
func LoadConfig(environ map[string]string) (Config, error) {
	if environ == nil {
		environ = env.ToMap(os.Environ())
	}

	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return Config{}, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, nil
}

// Validate checks values that flags or the environment can get wrong.
func (c Config) Validate() error {
	if c.ConfigPath == "" {
		return fmt.Errorf("config path is required")
	}
	if c.UpstreamTimeout <= 0 {
		return fmt.Errorf("upstream timeout must be positive, got %s", c.UpstreamTimeout)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate limit cannot be negative, got %v", c.RateLimit)
	}
	if c.RateLimit > 0 && c.RateBurst <= 0 {
		return fmt.Errorf("rate burst must be positive when rate limiting is enabled")
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return fmt.Errorf("log format must be json or text, got %q", c.LogFormat)
	}
	return nil
}

// bindConfigFlag registers the flag shared by every command.
func bindConfigFlag(fs *pflag.FlagSet, cfg *Config) {
	fs.StringVarP(&cfg.ConfigPath, "config", "c", cfg.ConfigPath, "Client configuration file (YAML or JSON) [GATEKEEPER_CONFIG]")
}

// bindServeFlags registers the flags of the serve command, defaulting to the
// values already loaded into cfg.
func bindServeFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.ListenAddr, "listen", cfg.ListenAddr, "Address to listen on [GATEKEEPER_LISTEN_ADDR]")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error [GATEKEEPER_LOG_LEVEL]")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format: json or text [GATEKEEPER_LOG_FORMAT]")
	fs.DurationVar(&cfg.UpstreamTimeout, "upstream-timeout", cfg.UpstreamTimeout, "Timeout for one token request to the provider [GATEKEEPER_UPSTREAM_TIMEOUT]")
	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "Grace period for in-flight requests on shutdown [GATEKEEPER_SHUTDOWN_TIMEOUT]")
	fs.Float64Var(&cfg.RateLimit, "rate-limit", cfg.RateLimit, "Requests per second per client IP, 0 disables [GATEKEEPER_RATE_LIMIT]")
	fs.IntVar(&cfg.RateBurst, "rate-burst", cfg.RateBurst, "Burst size per client IP [GATEKEEPER_RATE_BURST]")
	fs.BoolVar(&cfg.TrustProxy, "trust-proxy", cfg.TrustProxy, "Trust X-Forwarded-For and X-Real-IP [GATEKEEPER_TRUST_PROXY]")
	fs.IntVar(&cfg.TrustedProxyCount, "trusted-proxy-count", cfg.TrustedProxyCount, "Number of trusted proxies in front of the gateway [GATEKEEPER_TRUSTED_PROXY_COUNT]")
	fs.BoolVar(&cfg.AuditLog, "audit-log", cfg.AuditLog, "Enable security audit logging [GATEKEEPER_AUDIT_LOG]")
	fs.StringVar(&cfg.OTLPEndpoint, "otlp-endpoint", cfg.OTLPEndpoint, "OTLP/HTTP traces endpoint URL [GATEKEEPER_OTLP_ENDPOINT]")
}
