package certs

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"text/template"

	"github.com/codemasonhq/ahoy/internal/model"
	"github.com/codemasonhq/ahoy/internal/shell"
)

//go:embed templates/openssl.conf.tmpl
var opensslConfTemplate string

var opensslConf = template.Must(template.New("openssl.conf").Parse(opensslConfTemplate))

// Certificate is the set of files issued for one domain.
type Certificate struct {
	Domain   string `json:"domain"`
	Dir      string `json:"dir"`
	KeyPath  string `json:"keyPath"`
	CertPath string `json:"certPath"`
}

// Issuer creates and revokes per-domain certificates signed by an
// Authority.
type Issuer struct {
	ca       *Authority
	runner   shell.Runner
	keychain Keychain
	logger   *slog.Logger
}

// NewIssuer creates an Issuer that signs with ca and shares its runner,
// keychain and options.
func NewIssuer(ca *Authority) *Issuer {
	return &Issuer{ca: ca, runner: ca.runner, keychain: ca.keychain, logger: ca.logger}
}

// Dir returns the directory that holds the files for domain. It is mounted
// into the reverse proxy as its certificate directory.
func (i *Issuer) Dir(domain string) string {
	return filepath.Join(i.ca.opts.Dir, domain)
}

// Paths returns where the certificate for domain is stored.
func (i *Issuer) Paths(domain string) Certificate {
	dir := i.Dir(domain)
	return Certificate{
		Domain:   domain,
		Dir:      dir,
		KeyPath:  filepath.Join(dir, domain+".key"),
		CertPath: filepath.Join(dir, domain+".crt"),
	}
}

// email returns the address embedded in the subject of domain's
// certificate. Revoke finds keychain entries by it.
func (i *Issuer) email(domain string) string {
	return domain + "@" + i.ca.opts.RootDomain
}

// RenderConfig returns the openssl configuration used for domain. It adds
// the domain and its wildcard as subject alternative names.
func RenderConfig(domain string, keyBits int) ([]byte, error) {
	var buf bytes.Buffer
	err := opensslConf.Execute(&buf, struct {
		Domain  string
		KeyBits int
	}{Domain: domain, KeyBits: keyBits})
	if err != nil {
		return nil, fmt.Errorf("failed to render openssl config: %w", err)
	}
	return buf.Bytes(), nil
}

// Issue creates a key and a CA-signed certificate for domain, replacing
// any previous one, and trusts it.
func (i *Issuer) Issue(ctx context.Context, domain string) (Certificate, error) {
	if err := model.ValidateDomain(domain); err != nil {
		return Certificate{}, err
	}

	cert := i.Paths(domain)
	csrPath := filepath.Join(cert.Dir, domain+".csr")
	confPath := filepath.Join(cert.Dir, domain+".conf")
	opts := i.ca.opts

	conf, err := RenderConfig(domain, opts.KeyBits)
	if err != nil {
		return Certificate{}, err
	}
	if err := os.MkdirAll(cert.Dir, 0o700); err != nil {
		return Certificate{}, fmt.Errorf("failed to create certificate directory %s: %w", cert.Dir, err)
	}
	if err := os.WriteFile(confPath, conf, 0o600); err != nil {
		return Certificate{}, fmt.Errorf("failed to write %s: %w", confPath, err)
	}

	serialArgs := []string{"-CAserial", i.ca.SerialPath()}
	if !fileExists(i.ca.SerialPath()) {
		serialArgs = append(serialArgs, "-CAcreateserial")
	}

	steps := []struct {
		what string
		args []string
	}{
		{
			what: "private key",
			args: []string{"genrsa", "-out", cert.KeyPath, strconv.Itoa(opts.KeyBits)},
		},
		{
			what: "signing request",
			args: []string{
				"req", "-new",
				"-key", cert.KeyPath,
				"-out", csrPath,
				"-subj", fmt.Sprintf("/CN=%s/emailAddress=%s", domain, i.email(domain)),
				"-config", confPath,
			},
		},
		{
			what: "certificate",
			args: append(append([]string{
				"x509", "-req", "-sha256",
				"-days", strconv.Itoa(opts.Days),
				"-CA", i.ca.CertPath(),
				"-CAkey", i.ca.KeyPath(),
			}, serialArgs...),
				"-in", csrPath,
				"-out", cert.CertPath,
				"-extensions", "v3_req",
				"-extfile", confPath,
			),
		},
	}

	for _, step := range steps {
		if _, err := i.runner.Run(ctx, shell.Command{Name: "openssl", Args: step.args}); err != nil {
			return Certificate{}, fmt.Errorf("failed to create %s for %s: %w", step.what, domain, err)
		}
	}

	if err := i.keychain.TrustLeaf(ctx, cert.CertPath); err != nil {
		return Certificate{}, err
	}

	i.logger.Info("issued certificate", "domain", domain, "path", cert.CertPath)
	return cert, nil
}

// Revoke removes trust for domain's certificates and deletes its files.
// Revoking a domain that was never issued is not an error.
func (i *Issuer) Revoke(ctx context.Context, domain string) error {
	if err := model.ValidateDomain(domain); err != nil {
		return err
	}

	for _, name := range []string{domain, "*." + domain} {
		if err := i.keychain.DeleteByName(ctx, name); err != nil {
			return err
		}
	}
	if err := i.keychain.DeleteByEmail(ctx, i.email(domain)); err != nil {
		return err
	}

	dir := i.Dir(domain)
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove %s: %w", dir, err)
	}

	i.logger.Info("revoked certificate", "domain", domain)
	return nil
}
