// Package certs creates the local certificate authority and the per-domain
// certificates nginx-proxy serves.
//
// Everything cryptographic is done by the `openssl` binary; this package
// only lays out files and assembles command lines. On macOS the resulting
// certificates are added to the system keychain so browsers trust them.
//
// Layout under the data directory:
//
//	ssl/root/AhoyCASelfSigned.{key,pem,srl}
//	ssl/<domain>/<domain>.{key,csr,crt,conf}
package certs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/codemasonhq/ahoy/internal/shell"
)

// Identity of the root certificate. The common name is also what stale
// roots are removed from the keychain by, so it must stay stable.
const (
	CACommonName   = "Ahoy CA Self Signed CN"
	CAOrganization = "Ahoy CA Self Signed Organization"
	caFileBase     = "AhoyCASelfSigned"
)

// Options configures certificate generation.
type Options struct {
	// Dir is the root of the certificate tree, usually <data_dir>/ssl.
	Dir string

	// Days is the validity period of new certificates.
	Days int

	// KeyBits is the RSA key size.
	KeyBits int

	// RootDomain is used to build the email addresses embedded in
	// certificate subjects.
	RootDomain string
}

func (o Options) withDefaults() Options {
	if o.Days <= 0 {
		o.Days = 730
	}
	if o.KeyBits <= 0 {
		o.KeyBits = 2048
	}
	if o.RootDomain == "" {
		o.RootDomain = "ahoyworld.io"
	}
	return o
}

// Authority is the self-signed root CA that signs every domain certificate.
type Authority struct {
	opts     Options
	runner   shell.Runner
	keychain Keychain
	logger   *slog.Logger
}

// NewAuthority creates an Authority. A nil keychain means NoopKeychain.
func NewAuthority(opts Options, runner shell.Runner, keychain Keychain, logger *slog.Logger) *Authority {
	if keychain == nil {
		keychain = NoopKeychain{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Authority{opts: opts.withDefaults(), runner: runner, keychain: keychain, logger: logger}
}

// Dir returns the directory holding the CA files.
func (a *Authority) Dir() string {
	return filepath.Join(a.opts.Dir, "root")
}

// KeyPath returns the CA private key path.
func (a *Authority) KeyPath() string {
	return filepath.Join(a.Dir(), caFileBase+".key")
}

// CertPath returns the CA certificate path.
func (a *Authority) CertPath() string {
	return filepath.Join(a.Dir(), caFileBase+".pem")
}

// SerialPath returns the CA serial number file path.
func (a *Authority) SerialPath() string {
	return filepath.Join(a.Dir(), caFileBase+".srl")
}

// Email returns the address embedded in the CA subject.
func (a *Authority) Email() string {
	return "rootcertificate@" + a.opts.RootDomain
}

// Exists reports whether both the CA key and certificate are present.
func (a *Authority) Exists() bool {
	return fileExists(a.KeyPath()) && fileExists(a.CertPath())
}

// Ensure creates and trusts the root CA unless it already exists. It
// reports whether a new CA was created.
func (a *Authority) Ensure(ctx context.Context) (bool, error) {
	if a.Exists() {
		a.logger.Debug("root CA present", "path", a.CertPath())
		return false, nil
	}

	// A previous CA may still be trusted even though its files are gone.
	if err := a.keychain.DeleteByName(ctx, CACommonName); err != nil {
		return false, err
	}

	if err := os.MkdirAll(a.Dir(), 0o700); err != nil {
		return false, fmt.Errorf("failed to create CA directory %s: %w", a.Dir(), err)
	}

	subject := fmt.Sprintf("/O=%s/CN=%s/OU=Developers/emailAddress=%s", CAOrganization, CACommonName, a.Email())
	_, err := a.runner.Run(ctx, shell.Command{
		Name: "openssl",
		Args: []string{
			"req", "-new",
			"-newkey", "rsa:" + strconv.Itoa(a.opts.KeyBits),
			"-days", strconv.Itoa(a.opts.Days),
			"-nodes", "-x509",
			"-subj", subject,
			"-keyout", a.KeyPath(),
			"-out", a.CertPath(),
		},
	})
	if err != nil {
		return false, fmt.Errorf("failed to create root CA: %w", err)
	}

	if err := a.keychain.TrustRoot(ctx, a.CertPath()); err != nil {
		return true, err
	}

	a.logger.Info("created root CA", "path", a.CertPath())
	return true, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
