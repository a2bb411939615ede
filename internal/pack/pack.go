package pack

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"sort"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/codemasonhq/ahoy/internal/model"
)

// Layout of a pack.
const (
	ManifestYAML = "ahoy.yml"
	ManifestJSON = "ahoy.json"
	BuildsDir    = "builds"
	ServicesDir  = "services"
)

// Pack is an opened language pack.
type Pack struct {
	// Ref is the reference the pack was resolved from.
	Ref string

	// Source says how Ref was interpreted.
	Source model.PackSource

	// Location is the local directory or the clone URL.
	Location string

	fs billy.Filesystem
}

// New wraps a filesystem holding a pack.
func New(ref string, source model.PackSource, location string, fs billy.Filesystem) *Pack {
	return &Pack{Ref: ref, Source: source, Location: location, fs: fs}
}

// Manifest is the pack's ahoy.yml.
type Manifest struct {
	Name string `yaml:"name" json:"name"`

	// Default lists the services installed when --with is not given. It is
	// either a list or a comma-separated string.
	Default interface{} `yaml:"default" json:"default"`

	// Available lists every service the pack offers.
	Available []string `yaml:"available" json:"available"`
}

// File is a file shipped in the pack's builds directory.
type File struct {
	Name string
	Data []byte
}

// Manifest reads ahoy.yml, falling back to ahoy.json.
//
// Returns a model.CLIError with ExitPackFailed when neither exists or the
// manifest cannot be parsed.
func (p *Pack) Manifest() (*Manifest, error) {
	var m Manifest

	data, err := util.ReadFile(p.fs, ManifestYAML)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, model.WrapCLIError(model.ExitPackFailed,
				fmt.Sprintf("failed to parse %s in %s", ManifestYAML, p.Location), err)
		}
	case errors.Is(err, os.ErrNotExist):
		data, err = util.ReadFile(p.fs, ManifestJSON)
		if err != nil {
			return nil, model.WrapCLIError(model.ExitPackFailed,
				fmt.Sprintf("%s is not a language pack: no %s or %s", p.Location, ManifestYAML, ManifestJSON), err)
		}
		// ahoy.json may contain comments and trailing commas.
		if err := json.Unmarshal(jsonc.ToJSON(data), &m); err != nil {
			return nil, model.WrapCLIError(model.ExitPackFailed,
				fmt.Sprintf("failed to parse %s in %s", ManifestJSON, p.Location), err)
		}
	default:
		return nil, model.WrapCLIError(model.ExitPackFailed,
			fmt.Sprintf("failed to read %s in %s", ManifestYAML, p.Location), err)
	}

	if m.Name == "" {
		m.Name = p.Ref
	}
	return &m, nil
}

// BuildFiles returns the files in the builds directory, sorted by name.
// A pack without a builds directory has no build files.
func (p *Pack) BuildFiles() ([]File, error) {
	infos, err := p.fs.ReadDir(BuildsDir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, model.WrapCLIError(model.ExitPackFailed, "failed to list build files", err)
	}

	var files []File
	for _, info := range infos {
		if info.IsDir() {
			continue
		}
		name := info.Name()
		data, err := util.ReadFile(p.fs, path.Join(BuildsDir, name))
		if err != nil {
			return nil, model.WrapCLIError(model.ExitPackFailed,
				fmt.Sprintf("failed to read build file %s", name), err)
		}
		files = append(files, File{Name: name, Data: data})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// LoadServices reads services/<name>.yml for every name and merges the
// service definitions they contain. Names that have no readable file are
// skipped and reported in the returned warnings.
func (p *Pack) LoadServices(packName string, names []string) (map[string]interface{}, []string) {
	services := make(map[string]interface{})
	var warnings []string

	for _, name := range names {
		defs, err := p.readService(name)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("Unknown service %s in %s pack, skipped...", name, packName))
			continue
		}
		for k, v := range defs {
			services[k] = v
		}
	}
	return services, warnings
}

func (p *Pack) readService(name string) (map[string]interface{}, error) {
	if name == "" || path.Base(name) != name {
		return nil, fmt.Errorf("invalid service name %q", name)
	}

	data, err := util.ReadFile(p.fs, path.Join(ServicesDir, name+".yml"))
	if err != nil {
		return nil, err
	}

	var defs map[string]interface{}
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return nil, err
	}
	if len(defs) == 0 {
		return nil, fmt.Errorf("service file for %q is empty", name)
	}
	return defs, nil
}
