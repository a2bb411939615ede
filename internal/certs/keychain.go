package certs

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/codemasonhq/ahoy/internal/shell"
)

// SystemKeychain is the macOS keychain that holds system-wide trust
// settings.
const SystemKeychain = "/Library/Keychains/System.keychain"

// Keychain stores trust decisions for certificates created by ahoy.
type Keychain interface {
	// TrustRoot marks the certificate at path as a trusted root.
	TrustRoot(ctx context.Context, path string) error

	// TrustLeaf marks the certificate at path as trusted.
	TrustLeaf(ctx context.Context, path string) error

	// DeleteByName removes certificates whose common name is name.
	DeleteByName(ctx context.Context, name string) error

	// DeleteByEmail removes certificates issued to email.
	DeleteByEmail(ctx context.Context, email string) error
}

// MacKeychain manages trust with the macOS `security` tool. Every call runs
// through sudo since the system keychain is root-owned.
type MacKeychain struct {
	runner shell.Runner
	path   string
}

// NewMacKeychain creates a MacKeychain operating on SystemKeychain.
func NewMacKeychain(runner shell.Runner) *MacKeychain {
	return &MacKeychain{runner: runner, path: SystemKeychain}
}

func (k *MacKeychain) security(ctx context.Context, args ...string) (string, error) {
	return k.runner.Run(ctx, shell.Command{Name: "security", Args: args, Sudo: true})
}

// TrustRoot implements Keychain.
func (k *MacKeychain) TrustRoot(ctx context.Context, path string) error {
	if _, err := k.security(ctx, "add-trusted-cert", "-d", "-r", "trustRoot", "-k", k.path, path); err != nil {
		return fmt.Errorf("failed to trust root certificate %s: %w", path, err)
	}
	return nil
}

// TrustLeaf implements Keychain.
func (k *MacKeychain) TrustLeaf(ctx context.Context, path string) error {
	if _, err := k.security(ctx, "add-trusted-cert", "-d", "-r", "trustAsRoot", "-k", k.path, path); err != nil {
		return fmt.Errorf("failed to trust certificate %s: %w", path, err)
	}
	return nil
}

// DeleteByName implements Keychain. `security` fails when nothing matches,
// which is not an error here.
func (k *MacKeychain) DeleteByName(ctx context.Context, name string) error {
	_, _ = k.security(ctx, "delete-certificate", "-c", name, k.path)
	return nil
}

// DeleteByEmail implements Keychain. Certificates are looked up by email
// and then deleted one by one by their SHA-1 hash.
func (k *MacKeychain) DeleteByEmail(ctx context.Context, email string) error {
	out, err := k.security(ctx, "find-certificate", "-e", email, "-a", "-Z")
	if err != nil {
		// Nothing found.
		return nil
	}

	for _, hash := range sha1Hashes(out) {
		if _, err := k.security(ctx, "delete-certificate", "-Z", hash, k.path); err != nil {
			return fmt.Errorf("failed to delete certificate %s for %s: %w", hash, email, err)
		}
	}
	return nil
}

// sha1Hashes extracts the hashes from `security find-certificate -Z`
// output, where each match starts with a line like "SHA-1 hash: 0A1B...".
func sha1Hashes(out string) []string {
	var hashes []string
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(line, "SHA-1") {
			continue
		}
		fields := strings.Fields(line)
		hashes = append(hashes, fields[len(fields)-1])
	}
	return hashes
}

// NoopKeychain is used where no system trust store is managed. The CA
// certificate then has to be imported into the browser by hand.
type NoopKeychain struct{}

// TrustRoot implements Keychain.
func (NoopKeychain) TrustRoot(context.Context, string) error { return nil }

// TrustLeaf implements Keychain.
func (NoopKeychain) TrustLeaf(context.Context, string) error { return nil }

// DeleteByName implements Keychain.
func (NoopKeychain) DeleteByName(context.Context, string) error { return nil }

// DeleteByEmail implements Keychain.
func (NoopKeychain) DeleteByEmail(context.Context, string) error { return nil }

var (
	_ Keychain = (*MacKeychain)(nil)
	_ Keychain = NoopKeychain{}
)
