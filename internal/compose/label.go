package compose

import (
	"strings"
)

// Well-known names written into compose files by ahoy. They are part of
// the on-disk format: a file secured by one version of the tool must be
// restorable by another, so none of these may change.
const (
	// LabelPrefix namespaces every label ahoy writes.
	LabelPrefix = "io.ahoyworld."

	// PortBackupLabel records the ports removed from a service so they can
	// be put back later. Value: comma-joined port list, e.g. "80:80,443:443".
	PortBackupLabel = LabelPrefix + "services.ports"

	// VirtualHostVar is the environment variable the reverse proxy reads to
	// route a domain to the service.
	VirtualHostVar = "VIRTUAL_HOST"

	// ReverseProxyService is the service name of the inserted proxy.
	ReverseProxyService = "reverse-proxy"
)

// backupSeparator joins ports inside the PortBackupLabel value.
const backupSeparator = ","

// FormatPortBackup joins ports into a PortBackupLabel value.
func FormatPortBackup(ports []string) string {
	return strings.Join(ports, backupSeparator)
}

// ParsePortBackup splits a PortBackupLabel value into ports. The raw value
// must be a string of non-empty comma-separated entries; anything else,
// including a trailing or doubled comma, yields a *MalformedLabelError.
func ParsePortBackup(service string, raw interface{}) ([]string, error) {
	s, ok := raw.(string)
	if !ok {
		return nil, &MalformedLabelError{Service: service, Value: raw}
	}
	ports := strings.Split(s, backupSeparator)
	for _, p := range ports {
		if strings.TrimSpace(p) == "" {
			return nil, &MalformedLabelError{Service: service, Value: raw}
		}
	}
	return ports, nil
}

// uniqueStrings returns items with duplicates removed, keeping the first
// occurrence of each.
func uniqueStrings(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}
