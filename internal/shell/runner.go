// Package shell runs the external programs ahoy drives: openssl, security,
// tee, sed and docker compose.
//
// Callers build a Command value and hand it to a Runner. Production code
// uses ExecRunner; tests use shelltest.Recorder, which records commands and
// replays canned output without touching the system.
package shell

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
)

// Command describes a single program invocation.
type Command struct {
	// Name is the program to run, looked up in PATH.
	Name string

	// Args are passed to the program as is. No shell is involved, so
	// arguments need no quoting.
	Args []string

	// Dir is the working directory. Empty means the current directory.
	Dir string

	// Env is appended to the inherited environment as KEY=VALUE entries.
	Env []string

	// Stdin, when set, is fed to the program's standard input.
	Stdin string

	// Sudo runs the program through `sudo`.
	Sudo bool
}

// String renders the command line for logs and error messages.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+2)
	if c.Sudo {
		parts = append(parts, "sudo")
	}
	parts = append(parts, c.Name)
	for _, a := range c.Args {
		if a == "" || strings.ContainsAny(a, " \t\"'") {
			a = fmt.Sprintf("%q", a)
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}

// argv returns the program and arguments to execute, with sudo applied.
func (c Command) argv() (string, []string) {
	if !c.Sudo {
		return c.Name, c.Args
	}
	return "sudo", append([]string{c.Name}, c.Args...)
}

// Runner executes commands. Run returns the command's standard output.
type Runner interface {
	Run(ctx context.Context, cmd Command) (string, error)
}

// Error is returned when a command exits unsuccessfully.
type Error struct {
	Command Command
	Stderr  string
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s failed", e.Command)
	if e.Stderr != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Stderr)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s (%v)", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	logger *slog.Logger
	stderr io.Writer
}

// NewExecRunner creates an ExecRunner. A nil logger falls back to
// slog.Default().
func NewExecRunner(logger *slog.Logger) *ExecRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExecRunner{logger: logger}
}

// WithStderr returns a runner that also copies each command's standard
// error to w while it runs. Used for interactive programs like `sudo` that
// prompt on stderr.
func (r *ExecRunner) WithStderr(w io.Writer) *ExecRunner {
	return &ExecRunner{logger: r.logger, stderr: w}
}

// Run executes cmd and waits for it to finish.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) (string, error) {
	name, args := cmd.argv()

	// #nosec G204 -- commands are assembled by ahoy, arguments are never
	// interpreted by a shell.
	c := exec.CommandContext(ctx, name, args...)
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = append(c.Environ(), cmd.Env...)
	}
	if cmd.Stdin != "" {
		c.Stdin = strings.NewReader(cmd.Stdin)
	}

	var stdout, stderr strings.Builder
	c.Stdout = &stdout
	if r.stderr != nil {
		c.Stderr = io.MultiWriter(&stderr, r.stderr)
	} else {
		c.Stderr = &stderr
	}

	r.logger.Debug("running command", "cmd", cmd.String(), "dir", cmd.Dir)

	if err := c.Run(); err != nil {
		r.logger.Debug("command failed", "cmd", cmd.String(), "error", err)
		return stdout.String(), &Error{
			Command: cmd,
			Stderr:  strings.TrimSpace(stderr.String()),
			Err:     err,
		}
	}
	return stdout.String(), nil
}
