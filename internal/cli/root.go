package cli

import (
	"context"
	"fmt"
	"net"
	"strings"

	"github.com/spf13/cobra"

	"github.com/giantswarm/gatekeeper/clients"
	"github.com/giantswarm/gatekeeper/runtimeconfig"
)

// Options configures NewRootCommand.
type Options struct {
	Version string

	// Environ replaces the process environment. Nil uses os.Environ.
	Environ map[string]string
}

// NewRootCommand returns the gatekeeper command tree. Running it without a
// subcommand is the same as "serve".
func NewRootCommand(opts Options) *cobra.Command {
	cfg, envErr := LoadConfig(opts.Environ)

	root := &cobra.Command{
		Use:   "gatekeeper",
		Short: "OAuth authorization code exchange gateway",
		Long: `Gatekeeper exchanges OAuth authorization codes for access tokens on behalf
of clients that cannot keep a client secret.

  GET /authenticate/<client>/<code>

answers 200 {"token": ...}, or 302 to <base>/<client>/<code> when
GATEKEEPER_AUTHENTICATE_REDIRECT is set. Unknown clients get 404 and codes
the provider does not accept get 402.`,
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return envErr
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, cfg, opts)
		},
	}
	bindConfigFlag(root.PersistentFlags(), &cfg)
	bindServeFlags(root.Flags(), &cfg)

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Start the gateway",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, cfg, opts)
		},
	}
	bindServeFlags(serve.Flags(), &cfg)

	validate := &cobra.Command{
		Use:   "validate",
		Short: "Check the client configuration and redirect environment",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runValidate(cmd, cfg, opts)
		},
	}

	version := &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "gatekeeper version %s\n", versionOrDev(opts.Version))
		},
	}

	root.AddCommand(serve, validate, version)
	return root
}

func runServe(cmd *cobra.Command, cfg Config, opts Options) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}

	app, err := NewApp(cfg, versionOrDev(opts.Version), logger, opts.Environ)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(context.Background()); err != nil {
			logger.Warn("Failed to flush telemetry", "error", err)
		}
	}()

	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.ListenAddr, err)
	}

	return app.Serve(cmd.Context(), ln)
}

func runValidate(cmd *cobra.Command, cfg Config, opts Options) error {
	registry, err := clients.Load(cfg.ConfigPath, opts.Environ)
	if err != nil {
		return err
	}

	var lookup func() map[string]string
	if opts.Environ != nil {
		lookup = func() map[string]string { return opts.Environ }
	}
	policy, err := runtimeconfig.NewSource(lookup).Current()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "%s: %d client(s): %s\n", cfg.ConfigPath, registry.Len(), strings.Join(registry.IDs(), ", "))
	_, _ = fmt.Fprintf(out, "token endpoint: %s\n", registry.Provider().TokenURL(""))
	if policy.Enabled() {
		_, _ = fmt.Fprintf(out, "redirect mode: %s\n", policy.BaseURL)
	} else {
		_, _ = fmt.Fprintln(out, "redirect mode: disabled")
	}
	return nil
}

func versionOrDev(v string) string {
	if v == "" {
		return "dev"
	}
	return v
}
