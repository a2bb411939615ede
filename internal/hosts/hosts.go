// Package hosts maps secured domains to the loopback address in the system
// hosts file.
//
// The file is root-owned, so edits go through `sudo tee` and `sudo sed`
// instead of being written directly. Reads need no privileges and are done
// in-process.
package hosts

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/codemasonhq/ahoy/internal/model"
	"github.com/codemasonhq/ahoy/internal/shell"
)

// DefaultPath is the hosts file on Linux and macOS.
const DefaultPath = "/etc/hosts"

// Marker is appended to every line ahoy adds.
const Marker = "# Added by Ahoy (ahoyworld.io)"

// File edits one hosts file.
type File struct {
	path   string
	runner shell.Runner
}

// NewFile creates a File for path. An empty path means DefaultPath.
func NewFile(path string, runner shell.Runner) *File {
	if path == "" {
		path = DefaultPath
	}
	return &File{path: path, runner: runner}
}

// Path returns the hosts file location.
func (f *File) Path() string {
	return f.path
}

// Line returns the entry written for domain.
func Line(domain string) string {
	return fmt.Sprintf("127.0.0.1 %s %s", domain, Marker)
}

// Contains reports whether domain is already mapped by any line of the
// file, whether ahoy added it or not. A missing file contains nothing.
func (f *File) Contains(domain string) (bool, error) {
	file, err := os.Open(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read %s: %w", f.path, err)
	}
	defer func() { _ = file.Close() }()

	sc := bufio.NewScanner(file)
	for sc.Scan() {
		line := sc.Text()
		if i := strings.Index(line, "#"); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		for _, name := range fields[1:] {
			if name == domain {
				return true, nil
			}
		}
	}
	if err := sc.Err(); err != nil {
		return false, fmt.Errorf("failed to read %s: %w", f.path, err)
	}
	return false, nil
}

// Add maps domain to 127.0.0.1 unless it is already present. It reports
// whether a line was added.
func (f *File) Add(ctx context.Context, domain string) (bool, error) {
	if err := model.ValidateDomain(domain); err != nil {
		return false, err
	}

	present, err := f.Contains(domain)
	if err != nil {
		return false, err
	}
	if present {
		return false, nil
	}

	_, err = f.runner.Run(ctx, shell.Command{
		Name:  "tee",
		Args:  []string{"-a", f.path},
		Stdin: Line(domain) + "\n",
		Sudo:  true,
	})
	if err != nil {
		return false, fmt.Errorf("failed to add %s to %s: %w", domain, f.path, err)
	}
	return true, nil
}

// Remove deletes every line mentioning domain. A backup of the previous
// file is kept next to it with a .bak suffix.
func (f *File) Remove(ctx context.Context, domain string) error {
	if err := model.ValidateDomain(domain); err != nil {
		return err
	}

	_, err := f.runner.Run(ctx, shell.Command{
		Name: "sed",
		Args: []string{"-i.bak", "-E", "/" + SedPattern(domain) + "/d", f.path},
		Sudo: true,
	})
	if err != nil {
		return fmt.Errorf("failed to remove %s from %s: %w", domain, f.path, err)
	}
	return nil
}

// SedPattern returns an extended regular expression (sed -E, understood by
// both GNU and BSD sed) matching domain as a whole word, so removing
// "app.local" leaves "myapp.local" alone. domain must already be valid.
func SedPattern(domain string) string {
	return `(^|[[:space:]])` + strings.ReplaceAll(domain, ".", `\.`) + `([[:space:]]|$)`
}
