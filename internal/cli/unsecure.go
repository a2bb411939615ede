// unsecure.go implements the "ahoy unsecure" command.
//
// It reverses secure: certificates and hosts entries for each domain are
// removed, the quarantined ports are restored, VIRTUAL_HOST is dropped from
// every service and the reverse proxy is taken out of the compose file.
package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/codemasonhq/ahoy/internal/certs"
	"github.com/codemasonhq/ahoy/internal/compose"
	"github.com/codemasonhq/ahoy/internal/model"
)

// unsecureFlags holds the flag values for the unsecure command.
type unsecureFlags struct {
	compose string // --docker-compose: compose file path
}

// NewUnsecureCommand creates the "unsecure" cobra command.
func NewUnsecureCommand() *cobra.Command {
	flags := &unsecureFlags{}

	cmd := &cobra.Command{
		Use:   "unsecure [domains]",
		Short: "Restore the plain HTTP environment",
		Long: `Restore the plain HTTP environment created before "ahoy secure".

Domains are given as a comma-separated list. Without one, every VIRTUAL_HOST
found in the compose file is unsecured.

Examples:
  ahoy unsecure
  ahoy unsecure shop.local,api.shop.local`,

		Args: cobra.MaximumNArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			domains := ""
			if len(args) == 1 {
				domains = args[0]
			}
			return runUnsecure(cmd, domains, flags)
		},
	}

	cmd.Flags().StringVar(&flags.compose, "docker-compose", "", "Path to the compose file (default: compose_file setting)")

	return cmd
}

// unsecureResult is the JSON output of the unsecure command.
type unsecureResult struct {
	Domains     []string `json:"domains"`
	ComposeFile string   `json:"composeFile"`
}

// runUnsecure is the main orchestration function for the unsecure command.
func runUnsecure(cmd *cobra.Command, domainArg string, flags *unsecureFlags) error {
	ctx := commandContext(cmd)
	out := cmd.OutOrStdout()

	s, err := newSession(cmd)
	if err != nil {
		return err
	}

	path := s.composePath(flags.compose)
	doc, err := s.loadCompose(path)
	if err != nil {
		return err
	}

	// Without an argument, every VIRTUAL_HOST in the file is unsecured.
	// nginx-proxy accepts a comma-separated list there too.
	domains := splitDomains(domainArg)
	if domainArg == "" {
		for _, value := range compose.VirtualHosts(doc) {
			domains = append(domains, splitDomains(value)...)
		}
	}
	for _, domain := range domains {
		if err := model.ValidateDomain(domain); err != nil {
			return model.WrapCLIError(model.ExitInvalidDomain, "invalid domain", err)
		}
	}

	if !IsJSONOutput() {
		fmt.Fprintln(out, "Restoring the standard HTTP environment")
	}

	issuer := certs.NewIssuer(s.authority())
	hostsFile := s.hostsFile()
	for _, domain := range domains {
		if !IsJSONOutput() {
			fmt.Fprintf(out, "  Disconnecting %s\n", model.VirtualHost{Domain: domain}.URL())
		}
		if err := issuer.Revoke(ctx, domain); err != nil {
			return model.WrapCLIError(model.ExitCertificateFailed,
				fmt.Sprintf("failed to remove the certificate for %s", domain), err)
		}
		if err := hostsFile.Remove(ctx, domain); err != nil {
			return model.WrapCLIError(model.ExitGeneralError, "failed to update the hosts file", err)
		}
	}

	restored, err := unsecureDocument(doc)
	if err != nil {
		return composeError(path, err)
	}
	if err := s.saveCompose(path, restored); err != nil {
		return err
	}

	result := unsecureResult{Domains: domains, ComposeFile: path}
	if result.Domains == nil {
		result.Domains = []string{}
	}
	if IsJSONOutput() {
		return printJSON(out, result)
	}
	printUnsecureResult(out, result)
	return nil
}

// unsecureDocument reverts the compose changes made by secure.
func unsecureDocument(doc compose.Document) (compose.Document, error) {
	VerboseLog("Restoring ports from backup label")
	doc, err := compose.RestorePorts(doc)
	if err != nil {
		return nil, err
	}

	VerboseLog("Dropping virtual host from services")
	doc, err = compose.RemoveVirtualHost(doc)
	if err != nil {
		return nil, err
	}

	VerboseLog("Removing reverse proxy from compose file")
	return compose.RemoveService(doc, compose.ReverseProxyService), nil
}

func printUnsecureResult(w io.Writer, r unsecureResult) {
	if len(r.Domains) == 0 {
		fmt.Fprintln(w, "  No secured domains found")
	}
	fmt.Fprintf(w, "  Updated %s\n", r.ComposeFile)
}
