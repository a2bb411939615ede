// mutate.go implements the transformations `secure` and `unsecure` apply to
// a compose file.
//
// Every function takes a Document and returns a Document; the input is never
// modified. Functions that change something work on a deep copy, and
// functions that find nothing to change return the input itself.
package compose

import (
	"reflect"
	"sort"
	"strings"
)

// PortSelection chooses which of a service's ports QuarantinePorts removes.
type PortSelection struct {
	all       bool
	conflicts []string
}

// AllPorts selects every published port of the service.
func AllPorts() PortSelection {
	return PortSelection{all: true}
}

// ConflictingWith selects the service ports that also appear in ports.
func ConflictingWith(ports ...string) PortSelection {
	return PortSelection{conflicts: copyStrings(ports)}
}

// IsAll reports whether the selection takes every port.
func (s PortSelection) IsAll() bool {
	return s.all
}

// pick returns the entries of current selected for removal, in the order
// they appear in current.
func (s PortSelection) pick(current []string) []string {
	if s.all {
		return copyStrings(current)
	}

	conflicts := make(map[string]struct{}, len(s.conflicts))
	for _, p := range s.conflicts {
		conflicts[p] = struct{}{}
	}

	var picked []string
	for _, p := range current {
		if _, ok := conflicts[p]; ok {
			picked = append(picked, p)
		}
	}
	return picked
}

// AddReverseProxyService inserts the reverse-proxy service described by
// proxy. If the document already holds a reverse-proxy service deeply equal
// to the definition, doc is returned unchanged. A `services` field that is
// not a mapping is left as it is and doc is returned unchanged; the next
// service-level mutation then fails on it.
func AddReverseProxyService(doc Document, proxy ProxyDefinition) Document {
	want := proxy.Service()

	if existing, ok := doc.existingService(ReverseProxyService); ok && reflect.DeepEqual(existing, want) {
		return doc
	}

	out := doc.Clone()
	if out == nil {
		out = Document{}
	}
	services, err := out.servicesMap(true)
	if err != nil {
		return doc
	}
	services[ReverseProxyService] = want
	return out
}

// SetVirtualHost points domain at the named service by setting its
// VIRTUAL_HOST environment variable. The environment keeps the form it was
// written in; in list form the variable is moved to the end.
func SetVirtualHost(doc Document, service, domain string) (Document, error) {
	if !doc.HasService(service) {
		return nil, &ServiceNotFoundError{Service: service}
	}

	out := doc.Clone()
	spec, err := out.service(service)
	if err != nil {
		return nil, err
	}

	env, err := entries(service, spec, fieldEnvironment, KeyValueSeparator)
	if err != nil {
		return nil, err
	}

	spec[fieldEnvironment] = env.Set(VirtualHostVar, domain).Value()
	return out, nil
}

// RemoveVirtualHost drops VIRTUAL_HOST from every service. Services that
// have no environment, or no VIRTUAL_HOST in it, are left as they are.
func RemoveVirtualHost(doc Document) (Document, error) {
	services, err := doc.servicesMap(false)
	if err != nil {
		return nil, err
	}

	var out Document
	for _, name := range serviceOrder(services) {
		spec, ok := asMapping(services[name])
		if !ok || spec[fieldEnvironment] == nil {
			continue
		}

		env, err := entries(name, spec, fieldEnvironment, KeyValueSeparator)
		if err != nil {
			return nil, err
		}
		stripped := env.Delete(VirtualHostVar)
		if stripped.Len() == env.Len() {
			continue
		}

		if out == nil {
			out = doc.Clone()
		}
		target, err := out.service(name)
		if err != nil {
			return nil, err
		}
		target[fieldEnvironment] = stripped.Value()
	}

	if out == nil {
		return doc, nil
	}
	return out, nil
}

// QuarantinePorts removes the selected published ports from a service and
// records them in the service's PortBackupLabel, merged with any ports a
// previous call already recorded. When the selection matches nothing the
// document is returned unchanged.
func QuarantinePorts(doc Document, service string, selection PortSelection) (Document, error) {
	if !doc.HasService(service) {
		return nil, &ServiceNotFoundError{Service: service}
	}

	out := doc.Clone()
	spec, err := out.service(service)
	if err != nil {
		return nil, err
	}

	ports, err := entries(service, spec, fieldPorts, PortSeparator)
	if err != nil {
		return nil, err
	}
	labels, err := entries(service, spec, fieldLabels, KeyValueSeparator)
	if err != nil {
		return nil, err
	}

	removed := selection.pick(ports.Strings())
	if len(removed) == 0 {
		return doc, nil
	}

	var backup []string
	if raw, ok := labels.LookupRaw(PortBackupLabel); ok {
		backup, err = ParsePortBackup(service, raw)
		if err != nil {
			return nil, err
		}
	}
	backup = uniqueStrings(append(backup, removed...))

	spec[fieldLabels] = labels.Set(PortBackupLabel, FormatPortBackup(backup)).Value()
	spec[fieldPorts] = ports.Without(removed).Value()
	return out, nil
}

// RestorePorts puts back the ports recorded in each service's
// PortBackupLabel and removes the label. Ports that are already published
// again are not duplicated.
func RestorePorts(doc Document) (Document, error) {
	services, err := doc.servicesMap(false)
	if err != nil {
		return nil, err
	}

	var out Document
	for _, name := range serviceOrder(services) {
		spec, ok := asMapping(services[name])
		if !ok || spec[fieldLabels] == nil {
			continue
		}

		labels, err := entries(name, spec, fieldLabels, KeyValueSeparator)
		if err != nil {
			return nil, err
		}
		raw, found := labels.LookupRaw(PortBackupLabel)
		if !found {
			continue
		}
		backup, err := ParsePortBackup(name, raw)
		if err != nil {
			return nil, err
		}

		ports, err := entries(name, spec, fieldPorts, PortSeparator)
		if err != nil {
			return nil, err
		}

		var restored []string
		for _, p := range uniqueStrings(backup) {
			if !ports.Contains(p) {
				restored = append(restored, p)
			}
		}

		if out == nil {
			out = doc.Clone()
		}
		target, err := out.service(name)
		if err != nil {
			return nil, err
		}
		target[fieldPorts] = ports.Append(restored...).Value()
		target[fieldLabels] = labels.Delete(PortBackupLabel).Value()
	}

	if out == nil {
		return doc, nil
	}
	return out, nil
}

// RemoveService deletes the named service. Removing a service that does
// not exist returns doc unchanged.
func RemoveService(doc Document, service string) Document {
	if !doc.HasService(service) {
		return doc
	}

	out := doc.Clone()
	services, err := out.servicesMap(true)
	if err != nil {
		return doc
	}
	delete(services, service)
	return out
}

// VirtualHosts returns the VIRTUAL_HOST domains assigned in the document,
// ordered by service name. Services without a virtual host, or with an
// environment that cannot be read, contribute nothing.
func VirtualHosts(doc Document) []string {
	var domains []string
	for _, name := range ServiceNames(doc) {
		if domain := ServiceVirtualHost(doc, name); domain != "" {
			domains = append(domains, domain)
		}
	}
	return domains
}

// ServiceVirtualHost returns the VIRTUAL_HOST of the named service, or ""
// when it has none.
func ServiceVirtualHost(doc Document, service string) string {
	raw, ok := doc.existingService(service)
	if !ok {
		return ""
	}
	spec, ok := asMapping(raw)
	if !ok {
		return ""
	}
	env, err := entries(service, spec, fieldEnvironment, KeyValueSeparator)
	if err != nil {
		return ""
	}
	domain, _ := env.Lookup(VirtualHostVar)
	return domain
}

// SelectServiceList decides which language-pack services to install.
//
// A non-empty explicitList (the --with flag) wins: it is split on commas and
// each entry trimmed. Otherwise defaultList (the manifest's `default`) is
// used, split the same way when it is a comma-separated string, or returned
// as is when it is already a list. Empty entries are kept.
func SelectServiceList(defaultList interface{}, explicitList string) []string {
	if explicitList != "" {
		return splitTrim(explicitList)
	}

	switch v := defaultList.(type) {
	case string:
		return splitTrim(v)
	case []string:
		return copyStrings(v)
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, _ := scalarString(item)
			out = append(out, s)
		}
		return out
	default:
		return nil
	}
}

func splitTrim(s string) []string {
	parts := strings.Split(s, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

// existingService returns the named service as decoded, without copying
// or normalizing anything.
func (d Document) existingService(name string) (interface{}, bool) {
	services, err := d.servicesMap(false)
	if err != nil || services == nil {
		return nil, false
	}
	spec, ok := services[name]
	return spec, ok
}

func asMapping(v interface{}) (map[string]interface{}, bool) {
	switch m := v.(type) {
	case map[string]interface{}:
		return m, true
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(m))
		for k, val := range m {
			out[scalarKey(k)] = val
		}
		return out, true
	default:
		return nil, false
	}
}

func scalarKey(k interface{}) string {
	s, ok := scalarString(k)
	if !ok {
		return ""
	}
	return s
}

func serviceOrder(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
