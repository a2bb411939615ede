// install.go implements the "ahoy install" command.
//
// Orchestration steps:
//  1. Resolve the language pack (local directory or git repository)
//  2. Read its manifest and choose the services (--with or the default)
//  3. Copy the build files into the project
//  4. Assemble docker-compose.yml from the chosen service templates
package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/codemasonhq/ahoy/internal/compose"
	"github.com/codemasonhq/ahoy/internal/model"
)

// installFlags holds the flag values for the install command.
type installFlags struct {
	with    string // --with: comma-separated services to install
	list    bool   // --list: show the pack's services and exit
	force   bool   // --force: overwrite existing files
	dir     string // --dir: project directory
	compose string // --docker-compose: compose file name
}

// NewInstallCommand creates the "install" cobra command.
func NewInstallCommand() *cobra.Command {
	flags := &installFlags{}

	cmd := &cobra.Command{
		Use:   "install <pack>",
		Short: "Install a language pack",
		Long: `Install a language pack into the current project.

A pack is referenced by a local directory, the name of an official pack
(php → codemasonhq/ahoy-install-php), an owner/repo pair or a git URL.
Build files are copied next to a docker-compose.yml assembled from the
selected services. Existing files are left alone unless --force is given.

Examples:
  ahoy install php
  ahoy install php --with php,mysql,redis
  ahoy install acme/ahoy-rails --force
  ahoy install ./packs/node --list`,

		Args: cobra.ExactArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			return runInstall(cmd, args[0], flags)
		},
	}

	cmd.Flags().StringVarP(&flags.with, "with", "w", "", "Services to import from the language pack (comma-separated)")
	cmd.Flags().BoolVar(&flags.list, "list", false, "List the services the pack offers and exit")
	cmd.Flags().BoolVar(&flags.force, "force", false, "Overwrite existing files")
	cmd.Flags().StringVar(&flags.dir, "dir", ".", "Project directory to write files into")
	cmd.Flags().StringVar(&flags.compose, "docker-compose", "", "Compose file name (default: compose_file setting)")

	return cmd
}

// installResult is the JSON output of the install command.
type installResult struct {
	Pack     string   `json:"pack"`
	Source   string   `json:"source"`
	Name     string   `json:"name"`
	Services []string `json:"services"`
	Written  []string `json:"written"`
	Skipped  []string `json:"skipped"`
	Warnings []string `json:"warnings"`
}

// packListing is the JSON output of install --list.
type packListing struct {
	Name      string   `json:"name"`
	Default   []string `json:"default"`
	Available []string `json:"available"`
}

// runInstall is the main orchestration function for the install command.
func runInstall(cmd *cobra.Command, ref string, flags *installFlags) error {
	ctx := commandContext(cmd)
	out := cmd.OutOrStdout()

	s, err := newSession(cmd)
	if err != nil {
		return err
	}

	// Step 1: Resolve the pack.
	p, err := s.resolver().Resolve(ctx, ref)
	if err != nil {
		return err
	}
	VerboseLog("Language pack %s (%s): %s", ref, p.Source, p.Location)

	// Step 2: Manifest and service selection.
	manifest, err := p.Manifest()
	if err != nil {
		return err
	}

	if flags.list {
		listing := packListing{
			Name:      manifest.Name,
			Default:   compose.SelectServiceList(manifest.Default, ""),
			Available: manifest.Available,
		}
		if IsJSONOutput() {
			return printJSON(out, listing)
		}
		printPackListing(out, listing)
		return nil
	}

	names := compose.SelectServiceList(manifest.Default, flags.with)
	if !IsJSONOutput() {
		fmt.Fprintf(out, "Crafting %s application with %s\n", manifest.Name, strings.Join(names, ", "))
	}

	result := installResult{
		Pack:     ref,
		Source:   p.Source.String(),
		Name:     manifest.Name,
		Services: names,
		Written:  []string{},
		Skipped:  []string{},
		Warnings: []string{},
	}

	// Step 3: Build files.
	files, err := p.BuildFiles()
	if err != nil {
		return err
	}
	if len(files) == 0 {
		result.Warnings = append(result.Warnings, "This language pack doesn't contain any build files.")
	}
	for _, f := range files {
		if err := writeProjectFile(filepath.Join(flags.dir, f.Name), f.Data, flags.force, &result); err != nil {
			return err
		}
	}

	// Step 4: docker-compose.yml.
	services, warnings := p.LoadServices(manifest.Name, names)
	result.Warnings = append(result.Warnings, warnings...)

	tmpl, err := s.composeTemplate()
	if err != nil {
		return err
	}
	data, err := compose.Render(compose.NewDocument(services), tmpl)
	if err != nil {
		return model.WrapCLIError(model.ExitPackFailed, "failed to render compose file", err)
	}
	composePath := s.composePath(flags.compose)
	if !filepath.IsAbs(composePath) {
		composePath = filepath.Join(flags.dir, composePath)
	}
	if err := writeProjectFile(composePath, data, flags.force, &result); err != nil {
		return err
	}

	if IsJSONOutput() {
		return printJSON(out, result)
	}
	printInstallResult(out, result)
	return nil
}

// writeProjectFile writes data to path unless the file exists and force is
// not set, recording the outcome in result.
func writeProjectFile(path string, data []byte, force bool, result *installResult) error {
	if _, err := os.Stat(path); err == nil && !force {
		VerboseLog("Skipping existing file %s", path)
		result.Skipped = append(result.Skipped, path)
		return nil
	}

	if err := compose.WriteFile(path, data); err != nil {
		return model.WrapCLIError(model.ExitGeneralError, fmt.Sprintf("could not write %s", path), err)
	}
	result.Written = append(result.Written, path)
	return nil
}

func printInstallResult(w io.Writer, r installResult) {
	for _, path := range r.Written {
		fmt.Fprintf(w, "  ... Wrote %s\n", path)
	}
	for _, path := range r.Skipped {
		fmt.Fprintf(w, "  ... Kept existing %s (use --force to overwrite)\n", path)
	}
	for _, warning := range r.Warnings {
		fmt.Fprintf(w, "Warning: %s\n", warning)
	}
}

func printPackListing(w io.Writer, l packListing) {
	fmt.Fprintf(w, "%s\n", l.Name)
	fmt.Fprintf(w, "  default:   %s\n", listOrNone(l.Default))
	fmt.Fprintf(w, "  available: %s\n", listOrNone(l.Available))
}
