package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/giantswarm/gatekeeper/internal/cli"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCommand(cli.Options{Version: version}).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
