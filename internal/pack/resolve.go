package pack

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/storage/memory"

	"github.com/codemasonhq/ahoy/internal/model"
)

// Defaults for remote pack lookup.
const (
	DefaultOfficialPrefix = "codemasonhq/ahoy-install-"
	DefaultBaseURL        = "https://github.com/"
)

// CloneFunc fetches the repository at url into a filesystem.
type CloneFunc func(ctx context.Context, url string) (billy.Filesystem, error)

// Resolver turns pack references into readable packs.
type Resolver struct {
	officialPrefix string
	baseURL        string
	clone          CloneFunc
	logger         *slog.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithCloneFunc replaces the git clone used for remote packs.
func WithCloneFunc(fn CloneFunc) ResolverOption {
	return func(r *Resolver) { r.clone = fn }
}

// WithLogger sets the logger used for progress messages.
func WithLogger(logger *slog.Logger) ResolverOption {
	return func(r *Resolver) { r.logger = logger }
}

// NewResolver creates a Resolver. Empty officialPrefix or baseURL fall
// back to the defaults.
func NewResolver(officialPrefix, baseURL string, opts ...ResolverOption) *Resolver {
	if officialPrefix == "" {
		officialPrefix = DefaultOfficialPrefix
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	r := &Resolver{
		officialPrefix: officialPrefix,
		baseURL:        baseURL,
		clone:          shallowClone,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Source classifies ref without touching the network. An existing
// directory is local; a name without a slash is official; anything else
// is custom.
func (r *Resolver) Source(ref string) model.PackSource {
	if info, err := os.Stat(ref); err == nil && info.IsDir() {
		return model.SourceLocal
	}
	if !strings.Contains(ref, "/") {
		return model.SourceOfficial
	}
	return model.SourceCustom
}

// RepoURL returns the git URL a remote reference is cloned from.
func (r *Resolver) RepoURL(ref string) string {
	switch {
	case isURL(ref):
		return ref
	case !strings.Contains(ref, "/"):
		return r.baseURL + r.officialPrefix + ref
	default:
		return r.baseURL + strings.Trim(ref, "/")
	}
}

// Resolve opens the pack named by ref.
//
// Returns a model.CLIError with ExitPackFailed if the pack cannot be
// downloaded.
func (r *Resolver) Resolve(ctx context.Context, ref string) (*Pack, error) {
	if ref == "" {
		return nil, model.NewCLIError(model.ExitPackFailed, "language pack name must not be empty")
	}

	source := r.Source(ref)
	if source == model.SourceLocal {
		abs, err := filepath.Abs(ref)
		if err != nil {
			abs = ref
		}
		r.logger.Debug("using local language pack", "path", abs)
		return New(ref, source, abs, osfs.New(abs)), nil
	}

	url := r.RepoURL(ref)
	r.logger.Debug("cloning language pack", "url", url)
	fs, err := r.clone(ctx, url)
	if err != nil {
		return nil, model.WrapCLIError(
			model.ExitPackFailed,
			fmt.Sprintf("failed to download language pack %s", url),
			err,
		)
	}
	return New(ref, source, url, fs), nil
}

// shallowClone fetches only the tip of the default branch.
func shallowClone(ctx context.Context, url string) (billy.Filesystem, error) {
	fs := memfs.New()
	_, err := git.CloneContext(ctx, memory.NewStorage(), fs, &git.CloneOptions{
		URL:          url,
		Depth:        1,
		SingleBranch: true,
	})
	if err != nil {
		return nil, err
	}
	return fs, nil
}

func isURL(ref string) bool {
	return strings.Contains(ref, "://") || strings.HasPrefix(ref, "git@")
}
