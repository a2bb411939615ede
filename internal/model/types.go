// Package model defines the domain types for the ahoy CLI.
//
// These are the values passed between the command layer and the packages
// that do the work (compose, certs, hosts, pack). None of them is persisted
// by ahoy itself: the compose file on disk is the only state, and these
// types are rebuilt from it on every invocation.
package model

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// PackSource identifies where a language pack was loaded from.
//
// Resolution order:
//
//	existing local directory  → SourceLocal
//	name without a slash      → SourceOfficial (codemasonhq/ahoy-install-<name>)
//	owner/repo or a full URL  → SourceCustom
type PackSource string

const (
	// SourceLocal is a pack directory on the local filesystem.
	SourceLocal PackSource = "local"

	// SourceOfficial is a pack published in the official repository namespace.
	SourceOfficial PackSource = "official"

	// SourceCustom is a pack in any other git repository.
	SourceCustom PackSource = "custom"
)

// String returns the string representation of PackSource.
func (s PackSource) String() string {
	return string(s)
}

// IsValid checks whether the PackSource value is one of the predefined
// sources.
func (s PackSource) IsValid() bool {
	switch s {
	case SourceLocal, SourceOfficial, SourceCustom:
		return true
	default:
		return false
	}
}

// ParsePackSource converts a string to a PackSource.
// Returns an error if the string does not match any valid source.
func ParsePackSource(s string) (PackSource, error) {
	source := PackSource(strings.ToLower(s))
	if !source.IsValid() {
		return "", fmt.Errorf("invalid pack source: %q (valid: local, official, custom)", s)
	}
	return source, nil
}

// domainRegex accepts dot-separated DNS labels of letters, digits and
// hyphens, with at least two labels. A leading "*." is not allowed: the
// wildcard is added to certificates automatically.
var domainRegex = regexp.MustCompile(`^([a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?$`)

// ValidateDomain checks that domain is usable as a virtual host. Domains
// end up in openssl subjects, hosts file lines and sed expressions, so
// anything beyond plain hostname characters is rejected.
func ValidateDomain(domain string) error {
	if domain == "" {
		return fmt.Errorf("domain must not be empty")
	}
	if len(domain) > 253 {
		return fmt.Errorf("invalid domain %q: longer than 253 characters", domain)
	}
	if !domainRegex.MatchString(domain) {
		return fmt.Errorf("invalid domain %q: must be dot-separated labels of letters, digits and hyphens", domain)
	}
	return nil
}

// VirtualHost is a domain routed by the reverse proxy to a compose service.
type VirtualHost struct {
	// Service is the compose service name.
	Service string `json:"service"`

	// Domain is the VIRTUAL_HOST value of the service.
	Domain string `json:"domain"`
}

// URL returns the HTTPS URL the virtual host is served on.
func (v VirtualHost) URL() string {
	return "https://" + v.Domain
}

// PortBinding is one published port of a compose short-syntax entry such
// as "80:80", "127.0.0.1:8443:443/tcp" or "3000".
type PortBinding struct {
	// HostIP is the host address the port is bound to. Empty means all
	// interfaces.
	HostIP string `json:"hostIp,omitempty"`

	// HostPort is the published port on the host. 0 when the entry only
	// names a container port (docker picks an ephemeral host port).
	HostPort int `json:"hostPort"`

	// ContainerPort is the port inside the container.
	ContainerPort int `json:"containerPort"`

	// Protocol is "tcp" or "udp". Defaults to "tcp".
	Protocol string `json:"protocol"`
}

// Validate checks whether the PortBinding has valid field values.
func (p PortBinding) Validate() error {
	if p.ContainerPort < 1 || p.ContainerPort > 65535 {
		return fmt.Errorf("container port %d out of range (1-65535)", p.ContainerPort)
	}
	if p.HostPort < 0 || p.HostPort > 65535 {
		return fmt.Errorf("host port %d out of range (0-65535)", p.HostPort)
	}
	if p.Protocol != "tcp" && p.Protocol != "udp" {
		return fmt.Errorf("invalid protocol %q (valid: tcp, udp)", p.Protocol)
	}
	return nil
}

// String returns the binding in compose short syntax.
func (p PortBinding) String() string {
	var b strings.Builder
	if p.HostIP != "" {
		b.WriteString(p.HostIP)
		b.WriteString(":")
	}
	if p.HostPort != 0 {
		b.WriteString(strconv.Itoa(p.HostPort))
		b.WriteString(":")
	}
	b.WriteString(strconv.Itoa(p.ContainerPort))
	if p.Protocol != "" && p.Protocol != "tcp" {
		b.WriteString("/")
		b.WriteString(p.Protocol)
	}
	return b.String()
}

// ExitCode defines the CLI exit codes. These codes allow scripts to
// determine why a command failed.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError ExitCode = 1

	// ExitComposeNotFound indicates the compose file could not be read.
	ExitComposeNotFound ExitCode = 2

	// ExitDockerNotRunning indicates the Docker daemon is not accessible.
	ExitDockerNotRunning ExitCode = 3

	// ExitCertificateFailed indicates creating, trusting or revoking a
	// certificate failed.
	ExitCertificateFailed ExitCode = 4

	// ExitPackFailed indicates a language pack could not be resolved or
	// read.
	ExitPackFailed ExitCode = 5

	// ExitServiceNotFound indicates the requested compose service does not
	// exist.
	ExitServiceNotFound ExitCode = 6

	// ExitInvalidDomain indicates the domain given on the command line is
	// not a valid hostname.
	ExitInvalidDomain ExitCode = 7
)

// CLIError is a custom error type that carries an exit code.
// This allows the CLI layer to translate domain errors into
// appropriate process exit codes.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}
