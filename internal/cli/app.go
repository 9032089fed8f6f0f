package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/giantswarm/gatekeeper"
	"github.com/giantswarm/gatekeeper/clients"
	"github.com/giantswarm/gatekeeper/exchange"
	"github.com/giantswarm/gatekeeper/instrumentation"
	"github.com/giantswarm/gatekeeper/runtimeconfig"
)

const readHeaderTimeout = 10 * time.Second

// App is a fully wired gateway.
type App struct {
	cfg      Config
	logger   *slog.Logger
	registry *clients.Registry
	inst     *instrumentation.Instrumentation
	server   *gatekeeper.Server
	handler  http.Handler
}

// NewApp loads the client registry, checks the redirect policy in the
// environment and wires the gateway. A nil environ uses the process
// environment, read again on every request for the redirect policy.
func NewApp(cfg Config, version string, logger *slog.Logger, environ map[string]string) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	registry, err := clients.Load(cfg.ConfigPath, environ)
	if err != nil {
		return nil, err
	}

	var lookup func() map[string]string
	if environ != nil {
		lookup = func() map[string]string { return environ }
	}
	policies := runtimeconfig.NewSource(lookup)
	if err := policies.Validate(); err != nil {
		return nil, err
	}

	inst, err := instrumentation.New(instrumentation.Config{
		Enabled:        cfg.OTLPEndpoint != "",
		ServiceVersion: version,
		OTLPEndpoint:   cfg.OTLPEndpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize instrumentation: %w", err)
	}

	exchanger := exchange.New(registry.Provider(), exchange.Config{
		Timeout:         cfg.UpstreamTimeout,
		Logger:          logger,
		Instrumentation: inst,
	})

	server, err := gatekeeper.NewServer(registry, exchanger, policies, &gatekeeper.Config{
		RateLimit: gatekeeper.RateLimitConfig{
			Rate:  cfg.RateLimit,
			Burst: cfg.RateBurst,
		},
		Security: gatekeeper.SecurityConfig{
			TrustProxy:         cfg.TrustProxy,
			TrustedProxyCount:  cfg.TrustedProxyCount,
			EnableAuditLogging: cfg.AuditLog,
		},
		Logger:          logger,
		Instrumentation: inst,
	})
	if err != nil {
		_ = inst.Shutdown(context.Background())
		return nil, err
	}

	return &App{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		inst:     inst,
		server:   server,
		handler:  gatekeeper.NewHandler(server, logger).Routes(),
	}, nil
}

// Handler returns the gateway's HTTP handler.
func (a *App) Handler() http.Handler {
	return a.handler
}

// Serve serves on ln until ctx is done, then drains in-flight requests for
// up to the configured shutdown timeout.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           a.handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ErrorLog:          slog.NewLogLogger(a.logger.Handler(), slog.LevelWarn),
	}

	a.logger.Info("Gatekeeper listening",
		"addr", ln.Addr().String(),
		"clients", a.registry.IDs(),
		"provider_host", a.registry.Provider().Host)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down", "timeout", a.cfg.ShutdownTimeout)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	err := srv.Shutdown(shutdownCtx)
	<-errCh
	if err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

// Close stops background work and flushes telemetry.
func (a *App) Close(ctx context.Context) error {
	a.server.Close()
	return a.inst.Shutdown(ctx)
}
