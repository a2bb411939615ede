// secure.go implements the "ahoy secure" command.
//
// Orchestration steps:
//  1. Load the compose file and pick the service
//  2. Choose the domain (random when --domain is not given)
//  3. Make sure the local root CA exists, then issue a certificate
//  4. Add the reverse proxy, set VIRTUAL_HOST and move conflicting ports
//     into a backup label
//  5. Write the compose file and add the domain to the hosts file
//  6. Restart the compose project (unless --no-restart)
package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/codemasonhq/ahoy/internal/certs"
	"github.com/codemasonhq/ahoy/internal/compose"
	"github.com/codemasonhq/ahoy/internal/docker"
	"github.com/codemasonhq/ahoy/internal/model"
)

// secureFlags holds the flag values for the secure command.
type secureFlags struct {
	domain    string // --domain: domain to serve the service on
	noRestart bool   // --no-restart: leave running containers alone
	compose   string // --docker-compose: compose file path
}

// NewSecureCommand creates the "secure" cobra command.
func NewSecureCommand() *cobra.Command {
	flags := &secureFlags{}

	cmd := &cobra.Command{
		Use:   "secure [service]",
		Short: "Serve a compose service over HTTPS",
		Long: `Serve a compose service over HTTPS on a local domain.

The command:
  - Creates and trusts a local root certificate authority (first run only)
  - Issues a certificate for the domain and its wildcard
  - Adds an nginx reverse proxy to the compose file
  - Points the domain at the service through VIRTUAL_HOST
  - Moves the service ports the proxy needs into a backup label
  - Adds the domain to the hosts file and restarts the project

When no service is given and the compose file defines exactly one, that
service is used.

Examples:
  ahoy secure
  ahoy secure web --domain shop.local
  ahoy secure api --docker-compose deploy/docker-compose.yml --no-restart`,

		Args: cobra.MaximumNArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			service := ""
			if len(args) == 1 {
				service = args[0]
			}
			return runSecure(cmd, service, flags)
		},
	}

	cmd.Flags().StringVar(&flags.domain, "domain", "", "Domain to secure (default: random <words>.local)")
	cmd.Flags().BoolVar(&flags.noRestart, "no-restart", false, "Do not restart docker compose services")
	cmd.Flags().StringVar(&flags.compose, "docker-compose", "", "Path to the compose file (default: compose_file setting)")

	return cmd
}

// secureResult is the JSON output of the secure command.
type secureResult struct {
	Service      string   `json:"service"`
	Domain       string   `json:"domain"`
	URL          string   `json:"url"`
	ComposeFile  string   `json:"composeFile"`
	Certificate  string   `json:"certificate"`
	CACreated    bool     `json:"caCreated"`
	HostsUpdated bool     `json:"hostsUpdated"`
	MovedPorts   []string `json:"movedPorts"`
	Restarted    bool     `json:"restarted"`
	Warnings     []string `json:"warnings"`
}

// runSecure is the main orchestration function for the secure command.
func runSecure(cmd *cobra.Command, service string, flags *secureFlags) error {
	ctx := commandContext(cmd)

	s, err := newSession(cmd)
	if err != nil {
		return err
	}

	// Step 1: Load the compose file and decide which service to secure.
	path := s.composePath(flags.compose)
	doc, err := s.loadCompose(path)
	if err != nil {
		return err
	}

	service, err = pickService(doc, service)
	if err != nil {
		return err
	}

	// Step 2: Decide the domain.
	domain := flags.domain
	if domain == "" {
		domain = randomDomain()
	}
	if err := model.ValidateDomain(domain); err != nil {
		return model.WrapCLIError(model.ExitInvalidDomain, "invalid domain", err)
	}
	host := model.VirtualHost{Service: service, Domain: domain}

	out := cmd.OutOrStdout()
	if !IsJSONOutput() {
		fmt.Fprintf(out, "Securing %s to %s with a fresh TLS certificate.\n", host.URL(), service)
	}

	result := secureResult{
		Service:     service,
		Domain:      domain,
		URL:         host.URL(),
		ComposeFile: path,
		MovedPorts:  []string{},
		Warnings:    []string{},
	}

	// Step 3: Root CA and domain certificate.
	ca := s.authority()
	result.CACreated, err = ca.Ensure(ctx)
	if err != nil {
		return model.WrapCLIError(model.ExitCertificateFailed, "failed to create the root certificate", err)
	}
	cert, err := certs.NewIssuer(ca).Issue(ctx, domain)
	if err != nil {
		return model.WrapCLIError(model.ExitCertificateFailed, fmt.Sprintf("failed to create a certificate for %s", domain), err)
	}
	result.Certificate = cert.CertPath
	VerboseLog("Certificate: %s", cert.CertPath)

	// Step 4: Compose changes.
	proxy := s.cfg.Proxy.Definition().WithCertificates(cert.Dir)
	secured, moved, err := secureDocument(doc, proxy, service, domain)
	if err != nil {
		return composeError(path, err)
	}
	result.MovedPorts = moved

	// Step 5: Persist and map the domain locally.
	if err := s.saveCompose(path, secured); err != nil {
		return err
	}

	result.HostsUpdated, err = s.hostsFile().Add(ctx, domain)
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to update the hosts file", err)
	}

	// Step 6: Restart, checking first that nothing else holds the proxy ports.
	project := docker.NewCompose(s.runner, path)
	engine, engineErr := newDockerEngine(s.cfg.Docker.Host)
	if engineErr == nil {
		defer func() { _ = engine.Close() }()
	}

	result.Warnings = append(result.Warnings, proxyWarnings(ctx, engine, proxy, project.Project())...)

	if !flags.noRestart {
		if engineErr != nil {
			return engineErr
		}
		if err := engine.Ping(ctx); err != nil {
			return err
		}
		VerboseLog("Restarting compose project %s", project.Project())
		if err := project.Restart(ctx); err != nil {
			return err
		}
		result.Restarted = true
	}

	if IsJSONOutput() {
		return printJSON(out, result)
	}
	printSecureResult(out, result)
	return nil
}

// secureDocument applies the compose changes for securing service and
// returns the new document with the ports that were moved out of the way.
func secureDocument(doc compose.Document, proxy compose.ProxyDefinition, service, domain string) (compose.Document, []string, error) {
	VerboseLog("Adding reverse proxy to compose file")
	doc = compose.AddReverseProxyService(doc, proxy)

	VerboseLog("Assigning virtual host %s to %s", domain, service)
	doc, err := compose.SetVirtualHost(doc, service, domain)
	if err != nil {
		return nil, nil, err
	}

	VerboseLog("Cleaning up conflicting ports")
	before := compose.ServicePorts(doc, service)
	doc, err = compose.QuarantinePorts(doc, service, compose.ConflictingWith(proxy.Ports()...))
	if err != nil {
		return nil, nil, err
	}
	after := compose.ServicePorts(doc, service)

	moved := []string{}
	for _, p := range before {
		if !containsString(after, p) {
			moved = append(moved, p)
		}
	}
	return doc, moved, nil
}

// pickService validates the requested service, or chooses the only one the
// document defines when none was requested.
func pickService(doc compose.Document, service string) (string, error) {
	names := compose.ServiceNames(doc)

	if service != "" {
		if !doc.HasService(service) {
			return "", model.WrapCLIError(model.ExitServiceNotFound,
				fmt.Sprintf("service %q not found (available: %s)", service, listOrNone(names)),
				&compose.ServiceNotFoundError{Service: service})
		}
		return service, nil
	}

	switch len(names) {
	case 0:
		return "", model.NewCLIError(model.ExitServiceNotFound, "the compose file defines no services")
	case 1:
		VerboseLog("Using the only service: %s", names[0])
		return names[0], nil
	default:
		return "", model.NewCLIError(model.ExitServiceNotFound,
			fmt.Sprintf("choose a service to secure: %s", strings.Join(names, ", ")))
	}
}

// proxyWarnings reports why the reverse proxy may fail to start: another
// project's proxy already running, or a proxy port bound by something
// else. Checks that cannot run are skipped.
func proxyWarnings(ctx context.Context, engine dockerEngine, proxy compose.ProxyDefinition, project string) []string {
	var warnings []string
	ownProxyRunning := false

	if engine != nil {
		proxies, err := engine.RunningProxies(ctx, proxy.Image())
		if err != nil {
			VerboseLog("Could not list running proxies: %v", err)
		}
		for _, p := range proxies {
			if p.Project == project {
				ownProxyRunning = true
				continue
			}
			warnings = append(warnings, fmt.Sprintf(
				"reverse proxy %s of project %s is already running; stop it to free ports %s",
				p.Name, p.Project, strings.Join(proxy.Ports(), ", ")))
		}
	}

	// Our own proxy holds the ports until the restart replaces it.
	if ownProxyRunning || len(warnings) > 0 {
		return warnings
	}

	conflicts, err := newPortChecker().Busy(proxy.Ports())
	if err != nil {
		VerboseLog("Could not check proxy ports: %v", err)
		return warnings
	}
	for _, c := range conflicts {
		warnings = append(warnings, c.String())
	}
	return warnings
}

// printSecureResult outputs the secure result as human-readable text.
func printSecureResult(w io.Writer, r secureResult) {
	if r.CACreated {
		fmt.Fprintln(w, "  Created trusted root certificate")
	}
	fmt.Fprintf(w, "  Certificate: %s\n", r.Certificate)
	if len(r.MovedPorts) > 0 {
		fmt.Fprintf(w, "  Moved ports %s into label %s\n", strings.Join(r.MovedPorts, ", "), compose.PortBackupLabel)
	}
	fmt.Fprintf(w, "  Updated %s\n", r.ComposeFile)
	if r.HostsUpdated {
		fmt.Fprintf(w, "  Added %s to the hosts file\n", r.Domain)
	}
	if r.Restarted {
		fmt.Fprintln(w, "  Restarted docker compose services")
	}
	for _, warning := range r.Warnings {
		fmt.Fprintf(w, "Warning: %s\n", warning)
	}
	fmt.Fprintf(w, "\n%s is ready.\n", r.URL)
}
