// hosts.go implements the "ahoy hosts" command, which lists the virtual
// hosts assigned in a compose file.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/codemasonhq/ahoy/internal/certs"
	"github.com/codemasonhq/ahoy/internal/compose"
	"github.com/codemasonhq/ahoy/internal/model"
)

// hostsFlags holds the flag values for the hosts command.
type hostsFlags struct {
	compose string // --docker-compose: compose file path
}

// NewHostsCommand creates the "hosts" cobra command.
func NewHostsCommand() *cobra.Command {
	flags := &hostsFlags{}

	cmd := &cobra.Command{
		Use:   "hosts",
		Short: "List the virtual hosts of a compose file",
		Long: `List the services served through the reverse proxy, with their domain,
certificate and hosts file status.

Examples:
  ahoy hosts
  ahoy hosts --json`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runHosts(cmd, flags)
		},
	}

	cmd.Flags().StringVar(&flags.compose, "docker-compose", "", "Path to the compose file (default: compose_file setting)")

	return cmd
}

// hostEntry is one row of the hosts command output.
type hostEntry struct {
	model.VirtualHost
	URL         string `json:"url"`
	Certificate bool   `json:"certificate"`
	HostsFile   bool   `json:"hostsFile"`
}

func runHosts(cmd *cobra.Command, flags *hostsFlags) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}

	doc, err := s.loadCompose(s.composePath(flags.compose))
	if err != nil {
		return err
	}

	issuer := certs.NewIssuer(s.authority())
	hostsFile := s.hostsFile()

	entries := make([]hostEntry, 0)
	for _, service := range compose.ServiceNames(doc) {
		domain := compose.ServiceVirtualHost(doc, service)
		if domain == "" {
			continue
		}
		vh := model.VirtualHost{Service: service, Domain: domain}

		_, statErr := os.Stat(issuer.Paths(domain).CertPath)
		inHosts, err := hostsFile.Contains(domain)
		if err != nil {
			VerboseLog("Could not read hosts file: %v", err)
		}

		entries = append(entries, hostEntry{
			VirtualHost: vh,
			URL:         vh.URL(),
			Certificate: statErr == nil,
			HostsFile:   inHosts,
		})
	}

	out := cmd.OutOrStdout()
	if IsJSONOutput() {
		return printJSON(out, map[string]interface{}{"hosts": entries})
	}
	printHostsText(out, entries)
	return nil
}

// printHostsText outputs the virtual hosts as a text table:
//
//	SERVICE      URL                        CERT  HOSTS
//	web          https://shop.local         yes   yes
func printHostsText(w io.Writer, entries []hostEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No virtual hosts found.")
		return
	}

	fmt.Fprintf(w, "%-20s %-40s %-6s %s\n", "SERVICE", "URL", "CERT", "HOSTS")
	for _, e := range entries {
		fmt.Fprintf(w, "%-20s %-40s %-6s %s\n", e.Service, e.URL, yesNo(e.Certificate), yesNo(e.HostsFile))
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
