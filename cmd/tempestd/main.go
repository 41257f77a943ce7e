// Package main provides the privileged tempestd daemon entrypoint.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rbright/tempest/internal/app"
)

// main stops the daemon on SIGINT or SIGTERM; SIGHUP is ignored so the
// daemon survives its launching terminal.
func main() {
	signal.Ignore(syscall.SIGHUP)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	exitCode := app.ExecuteDaemon(ctx, os.Args[1:], os.Stdout, os.Stderr)
	os.Exit(exitCode)
}
