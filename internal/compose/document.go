// document.go holds the in-memory compose document and its YAML I/O.
//
// The document is kept as the generic map yaml.v3 decodes into, not as a
// typed struct: a struct would only capture the fields ahoy knows about, and
// marshaling it back would drop everything else (healthchecks, networks,
// x- extensions...). The mutator only ever touches `services.<name>.ports`,
// `labels`, `environment` and the reverse-proxy entry.
package compose

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/mohae/deepcopy"
	"gopkg.in/yaml.v3"
)

// Document is a parsed compose file.
type Document map[string]interface{}

// Field names inside a service definition.
const (
	fieldServices    = "services"
	fieldPorts       = "ports"
	fieldLabels      = "labels"
	fieldEnvironment = "environment"
	fieldVolumes     = "volumes"
	fieldImage       = "image"
)

// defaultComposeVersion is written into documents created from scratch.
const defaultComposeVersion = "3"

// NewDocument creates a document with the given services.
func NewDocument(services map[string]interface{}) Document {
	svc := make(map[string]interface{}, len(services))
	for name, spec := range services {
		svc[name] = spec
	}
	return Document{
		"version":      defaultComposeVersion,
		fieldServices: svc,
	}
}

// Load parses compose YAML. Empty input yields an empty document.
func Load(data []byte) (Document, error) {
	var root interface{}
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to parse compose YAML: %w", err)
	}

	switch v := root.(type) {
	case nil:
		return Document{}, nil
	case map[string]interface{}:
		return Document(v), nil
	default:
		return nil, fmt.Errorf("%w: root is %T", ErrNotMapping, root)
	}
}

// LoadFile reads and parses the compose file at path.
func LoadFile(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read compose file %s: %w", path, err)
	}

	doc, err := Load(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Marshal serializes the document as YAML with 2-space indentation.
// Mapping keys are emitted in sorted order.
func Marshal(doc Document) ([]byte, error) {
	return marshalValue(map[string]interface{}(doc))
}

func marshalValue(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("failed to serialize compose YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to serialize compose YAML: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteFile writes data to path, creating parent directories as needed.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write compose file %s: %w", path, err)
	}
	return nil
}

// Clone returns a deep copy of the document.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	return deepcopy.Copy(d).(Document)
}

// HasService reports whether the document defines the named service.
func (d Document) HasService(name string) bool {
	services, err := d.servicesMap(false)
	if err != nil || services == nil {
		return false
	}
	_, ok := services[name]
	return ok
}

// ServiceNames returns the defined service names in sorted order, leaving
// out the reverse proxy inserted by ahoy.
func ServiceNames(doc Document) []string {
	services, err := doc.servicesMap(false)
	if err != nil {
		return nil
	}

	names := make([]string, 0, len(services))
	for name := range services {
		if name == ReverseProxyService {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ServicePorts returns the published ports of the named service as
// strings, or nil when the service or its ports cannot be read.
func ServicePorts(doc Document, service string) []string {
	raw, ok := doc.existingService(service)
	if !ok {
		return nil
	}
	spec, ok := asMapping(raw)
	if !ok {
		return nil
	}
	ports, err := entries(service, spec, fieldPorts, PortSeparator)
	if err != nil {
		return nil
	}
	return ports.Strings()
}

// servicesMap returns the services mapping. With create set, a missing
// mapping is created in d. A services value decoded with non-string keys is
// normalized and stored back, so d must already be a private copy when
// create is set.
func (d Document) servicesMap(create bool) (map[string]interface{}, error) {
	switch v := d[fieldServices].(type) {
	case map[string]interface{}:
		return v, nil

	case nil:
		if !create {
			return nil, nil
		}
		m := make(map[string]interface{})
		d[fieldServices] = m
		return m, nil

	case map[interface{}]interface{}:
		m := make(map[string]interface{}, len(v))
		for k, spec := range v {
			m[fmt.Sprint(k)] = spec
		}
		if create {
			d[fieldServices] = m
		}
		return m, nil

	default:
		return nil, fmt.Errorf("%w: services is %T", ErrNotMapping, v)
	}
}

// service returns the mutable definition of the named service inside d,
// which must be a private copy. A service declared with no body (`web:`)
// gets an empty mapping stored in its place.
func (d Document) service(name string) (map[string]interface{}, error) {
	services, err := d.servicesMap(true)
	if err != nil {
		return nil, err
	}

	raw, ok := services[name]
	if !ok {
		return nil, &ServiceNotFoundError{Service: name}
	}

	switch v := raw.(type) {
	case map[string]interface{}:
		return v, nil
	case nil:
		m := make(map[string]interface{})
		services[name] = m
		return m, nil
	case map[interface{}]interface{}:
		m := make(map[string]interface{}, len(v))
		for k, val := range v {
			m[fmt.Sprint(k)] = val
		}
		services[name] = m
		return m, nil
	default:
		return nil, &FieldError{Service: name, Field: "", Message: fmt.Sprintf("service definition is %T, not a mapping", raw)}
	}
}

// entries parses one dual-form field of a service definition.
func entries(service string, spec map[string]interface{}, field, sep string) (EntryList, error) {
	list, err := ParseEntryList(field, sep, spec[field])
	if err != nil {
		if fe, ok := err.(*FieldError); ok {
			fe.Service = service
		}
		return EntryList{}, err
	}
	return list, nil
}
