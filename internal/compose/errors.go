package compose

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is checks. The concrete error types below
// unwrap to these so callers can match on the kind without caring about
// the service or field involved.
var (
	// ErrServiceNotFound indicates a referenced service is not defined in
	// the document's services mapping.
	ErrServiceNotFound = errors.New("service not found")

	// ErrMalformedLabel indicates a port backup label exists but its value
	// cannot be read back as a comma-separated port list.
	ErrMalformedLabel = errors.New("malformed port backup label")

	// ErrMalformedField indicates an environment, labels or ports value has
	// a shape other than a sequence of scalars or a mapping.
	ErrMalformedField = errors.New("malformed service field")

	// ErrNotMapping indicates the YAML root (or the services value) is not
	// a mapping.
	ErrNotMapping = errors.New("compose document is not a mapping")
)

// ServiceNotFoundError is returned when an operation targets a service that
// the document does not define.
type ServiceNotFoundError struct {
	Service string
}

func (e *ServiceNotFoundError) Error() string {
	return fmt.Sprintf("service %q not found in compose file", e.Service)
}

func (e *ServiceNotFoundError) Unwrap() error {
	return ErrServiceNotFound
}

// MalformedLabelError is returned when a service carries a port backup
// label whose value is empty or not a string.
type MalformedLabelError struct {
	Service string
	Value   interface{}
}

func (e *MalformedLabelError) Error() string {
	return fmt.Sprintf("service %q: label %s has unreadable value %#v", e.Service, PortBackupLabel, e.Value)
}

func (e *MalformedLabelError) Unwrap() error {
	return ErrMalformedLabel
}

// FieldError wraps errors with context about which service field failed.
type FieldError struct {
	Service string // may be empty when the field is parsed standalone
	Field   string // e.g. "environment", "ports[2]"
	Message string
}

func (e *FieldError) Error() string {
	if e.Service != "" && e.Field == "" {
		return fmt.Sprintf("services.%s: %s", e.Service, e.Message)
	}
	if e.Service != "" {
		return fmt.Sprintf("services.%s.%s: %s", e.Service, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *FieldError) Unwrap() error {
	return ErrMalformedField
}
