package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/codemasonhq/ahoy/internal/certs"
	"github.com/codemasonhq/ahoy/internal/compose"
	"github.com/codemasonhq/ahoy/internal/config"
	"github.com/codemasonhq/ahoy/internal/docker"
	"github.com/codemasonhq/ahoy/internal/hosts"
	"github.com/codemasonhq/ahoy/internal/model"
	"github.com/codemasonhq/ahoy/internal/pack"
	"github.com/codemasonhq/ahoy/internal/port"
	"github.com/codemasonhq/ahoy/internal/shell"
)

// dockerEngine is the daemon access secure needs.
type dockerEngine interface {
	Ping(ctx context.Context) error
	RunningProxies(ctx context.Context, image string) ([]docker.ProxyContainer, error)
	Close() error
}

// portChecker reports published ports that are already bound.
type portChecker interface {
	Busy(specs []string) ([]port.Conflict, error)
}

// Constructors for external collaborators. Tests replace them.
var (
	newRunner = func(logger *slog.Logger) shell.Runner {
		return shell.NewExecRunner(logger)
	}

	newDockerEngine = func(host string) (dockerEngine, error) {
		c, err := docker.NewClient(host)
		if err != nil {
			return nil, err
		}
		return c, nil
	}

	newPortChecker = func() portChecker {
		return port.NewScanner()
	}

	// packClone overrides the git clone used for remote packs when set.
	packClone pack.CloneFunc
)

// session holds what a single command invocation works with.
type session struct {
	cfg    *config.Config
	logger *slog.Logger
	runner shell.Runner
}

// newSession loads configuration and sets up logging for cmd.
func newSession(cmd *cobra.Command) (*session, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitGeneralError, "failed to load configuration", err)
	}

	if verbose {
		cfg.Log.Level = "debug"
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}

	logger = config.NewLogger(cfg.Log, cmd.ErrOrStderr())
	VerboseLog("Data directory: %s", cfg.DataDir)

	return &session{
		cfg:    cfg,
		logger: logger,
		runner: newRunner(logger),
	}, nil
}

// composePath returns the compose file to work on: the --docker-compose
// flag when given, otherwise compose_file from the configuration.
func (s *session) composePath(flag string) string {
	if flag != "" {
		return flag
	}
	return s.cfg.ComposeFile
}

// composeTemplate returns the text of the configured compose template, or
// "" for the built-in one.
func (s *session) composeTemplate() (string, error) {
	if s.cfg.ComposeTemplate == "" {
		return "", nil
	}
	data, err := os.ReadFile(s.cfg.ComposeTemplate)
	if err != nil {
		return "", model.WrapCLIError(model.ExitGeneralError,
			fmt.Sprintf("failed to read compose template %s", s.cfg.ComposeTemplate), err)
	}
	return string(data), nil
}

// loadCompose reads the compose file at path.
func (s *session) loadCompose(path string) (compose.Document, error) {
	doc, err := compose.LoadFile(path)
	if err != nil {
		return nil, composeError(path, err)
	}
	VerboseLog("Loaded compose file: %s", path)
	return doc, nil
}

// saveCompose renders doc through the configured template and writes it
// to path.
func (s *session) saveCompose(path string, doc compose.Document) error {
	tmpl, err := s.composeTemplate()
	if err != nil {
		return err
	}
	data, err := compose.Render(doc, tmpl)
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to render compose file", err)
	}
	if err := compose.WriteFile(path, data); err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to write compose file", err)
	}
	VerboseLog("Wrote compose file: %s", path)
	return nil
}

// keychain returns the keychain certificates are trusted in.
func (s *session) keychain() certs.Keychain {
	if s.cfg.TLS.Trust {
		return certs.NewMacKeychain(s.runner)
	}
	return certs.NoopKeychain{}
}

// authority returns the local root CA.
func (s *session) authority() *certs.Authority {
	return certs.NewAuthority(certs.Options{
		Dir:        s.cfg.CertDir(),
		Days:       s.cfg.TLS.Days,
		KeyBits:    s.cfg.TLS.KeyBits,
		RootDomain: s.cfg.RootDomain,
	}, s.runner, s.keychain(), s.logger)
}

// hostsFile returns the hosts file editor.
func (s *session) hostsFile() *hosts.File {
	return hosts.NewFile(s.cfg.Hosts.File, s.runner)
}

// resolver returns the language pack resolver.
func (s *session) resolver() *pack.Resolver {
	opts := []pack.ResolverOption{pack.WithLogger(s.logger)}
	if packClone != nil {
		opts = append(opts, pack.WithCloneFunc(packClone))
	}
	return pack.NewResolver(s.cfg.Pack.OfficialPrefix, s.cfg.Pack.BaseURL, opts...)
}

// composeError converts an error from the compose package into a CLIError
// with a matching exit code.
func composeError(path string, err error) error {
	var cliErr *model.CLIError
	switch {
	case errors.As(err, &cliErr):
		return err
	case errors.Is(err, os.ErrNotExist):
		return model.WrapCLIError(model.ExitComposeNotFound,
			fmt.Sprintf("compose file %s not found", filepath.Clean(path)), err)
	case errors.Is(err, compose.ErrServiceNotFound):
		return model.WrapCLIError(model.ExitServiceNotFound, "service not found", err)
	default:
		return model.WrapCLIError(model.ExitGeneralError,
			fmt.Sprintf("failed to update compose file %s", filepath.Clean(path)), err)
	}
}
