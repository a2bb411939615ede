// Package main is the entry point for the ahoy CLI.
//
// All functionality lives in the internal/cli package, which defines the
// cobra commands. Build-time variables (version, commit, date) are injected
// via ldflags; during development they default to "dev", "none" and
// "unknown".
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/codemasonhq/ahoy/internal/cli"
)

// version, commit, and date are set at build time, e.g.
//
//	go build -ldflags "-X main.version=1.2.0" ./cmd/ahoy
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cli.Version = version
	cli.Commit = commit
	cli.Date = date

	// Ctrl-C cancels running openssl, sudo and docker commands.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := cli.NewRootCommand()
	rootCmd.SetContext(ctx)
	cli.Execute(rootCmd)
}
