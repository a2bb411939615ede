package docker

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/codemasonhq/ahoy/internal/model"
	"github.com/codemasonhq/ahoy/internal/shell"
)

// Compose drives the `docker compose` CLI for a single compose file.
type Compose struct {
	runner shell.Runner
	file   string
}

// NewCompose creates a Compose for file. Commands run in the file's
// directory so relative paths inside it resolve as usual.
func NewCompose(runner shell.Runner, file string) *Compose {
	return &Compose{runner: runner, file: file}
}

// Project returns the compose project name docker derives from the
// file's directory: lowercased, with characters outside [a-z0-9_-]
// removed.
func (c *Compose) Project() string {
	abs, err := filepath.Abs(c.file)
	if err != nil {
		abs = c.file
	}
	return projectName(filepath.Base(filepath.Dir(abs)))
}

var projectNameInvalid = regexp.MustCompile(`[^a-z0-9_-]`)

func projectName(dir string) string {
	return projectNameInvalid.ReplaceAllString(strings.ToLower(dir), "")
}

// Restart stops and removes the project's containers, then starts them
// again detached so changed ports, labels and environment take effect.
func (c *Compose) Restart(ctx context.Context) error {
	if err := c.run(ctx, "rm", "--stop", "--force"); err != nil {
		return err
	}
	return c.run(ctx, "up", "-d")
}

// Up starts the project detached.
func (c *Compose) Up(ctx context.Context) error {
	return c.run(ctx, "up", "-d")
}

func (c *Compose) run(ctx context.Context, args ...string) error {
	full := append([]string{"compose", "-f", filepath.Base(c.file)}, args...)
	_, err := c.runner.Run(ctx, shell.Command{
		Name: "docker",
		Args: full,
		Dir:  filepath.Dir(c.file),
	})
	if err != nil {
		return model.WrapCLIError(
			model.ExitDockerNotRunning,
			"docker compose "+strings.Join(args, " ")+" failed",
			err,
		)
	}
	return nil
}
