// Package cli implements the cobra-based CLI commands for ahoy.
//
// Each subcommand (install, secure, unsecure, hosts) is defined in its own
// file within this package. This file defines the root command that serves
// as the parent for all subcommands and handles global flags.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/codemasonhq/ahoy/internal/model"
)

// Global flag variables shared across all subcommands.
// These are bound to cobra persistent flags on the root command,
// which makes them available to every subcommand automatically.
var (
	// jsonOutput controls whether command output is formatted as JSON.
	// When false (default), output is human-readable text.
	jsonOutput bool

	// verbose lowers the log level to debug, so VerboseLog messages and
	// every external command ahoy runs are printed to stderr.
	verbose bool

	// configPath names the config file. Empty means $AHOY_CONFIG.
	configPath string

	// logFormat overrides log.format when set ("text" or "json").
	logFormat string
)

// logger is replaced by newSession once configuration is loaded.
var logger = slog.New(slog.NewTextHandler(io.Discard, nil))

// Version, Commit and Date are set at build time via ldflags.
// They are injected from the main package to display version information.
var (
	// Version is the semantic version of the binary (e.g., "1.0.0").
	Version = "dev"

	// Commit is the Git commit hash the binary was built from.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

// NewRootCommand creates and configures the root cobra command.
// The root command itself only provides help text and global flags.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		// Use is the one-line usage pattern shown in help output.
		Use:   "ahoy",
		Short: "Local HTTPS and language packs for docker compose projects",
		Long: `ahoy scaffolds docker compose environments from language packs and
serves their services over HTTPS on a local domain.

secure adds a reverse proxy to the compose file, issues a certificate signed
by a local root CA and points a domain at the chosen service. unsecure puts
everything back the way it was.`,

		// SilenceUsage stops cobra from printing usage on every error.
		SilenceUsage: true,

		// SilenceErrors leaves error output to Execute, which formats it
		// as text or JSON depending on --json.
		SilenceErrors: true,

		// Version is displayed when --version is used.
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),
	}

	// Persistent flags are inherited by every subcommand.
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: $AHOY_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: text or json")

	// Register subcommands. Each one lives in its own file (install.go,
	// secure.go, ...) and returns a *cobra.Command.
	rootCmd.AddCommand(NewInstallCommand())
	rootCmd.AddCommand(NewSecureCommand())
	rootCmd.AddCommand(NewUnsecureCommand())
	rootCmd.AddCommand(NewHostsCommand())

	return rootCmd
}

// Execute runs the root command and exits with the code carried by the
// returned error. Errors that are not a CLIError exit with code 1.
func Execute(rootCmd *cobra.Command) {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(int(reportError(os.Stderr, err)))
	}
}

// reportError prints err and returns the exit code for it.
func reportError(w io.Writer, err error) model.ExitCode {
	// CLIErrors may arrive wrapped by a caller, so look through the chain
	// rather than asserting on the top-level type.
	var cliErr *model.CLIError
	if errors.As(err, &cliErr) {
		printError(w, cliErr.Message, cliErr.Err)
		return cliErr.Code
	}
	// Anything else is a generic failure with exit code 1.
	printError(w, err.Error(), nil)
	return model.ExitGeneralError
}

// printError outputs an error message in the appropriate format
// (JSON or text) based on the --json global flag.
func printError(w io.Writer, message string, underlying error) {
	if jsonOutput {
		// {"error": {"message": ..., "detail": ...}}; detail only when
		// there is an underlying cause.
		errObj := map[string]interface{}{
			"message": message,
		}
		if underlying != nil {
			errObj["detail"] = underlying.Error()
		}
		// Errors go to stderr even in JSON mode: stdout is reserved for
		// successful command output.
		data, _ := json.MarshalIndent(map[string]interface{}{"error": errObj}, "", "  ")
		fmt.Fprintln(w, string(data))
		return
	}

	// Text format: "Error: <message>[: <cause>]" on stderr.
	if underlying != nil {
		fmt.Fprintf(w, "Error: %s: %v\n", message, underlying)
	} else {
		fmt.Fprintf(w, "Error: %s\n", message)
	}
}

// VerboseLog writes a debug message through the session logger. It shows up
// with --verbose or log.level=debug, and is discarded before the session's
// configuration is loaded.
func VerboseLog(format string, args ...interface{}) {
	logger.Debug(fmt.Sprintf(format, args...))
}

// IsJSONOutput returns whether the --json flag is set.
// Subcommands use this to decide their output format.
func IsJSONOutput() bool {
	return jsonOutput
}

// printJSON writes v to w as indented JSON.
func printJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to encode output", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
