package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPackSource_IsValid checks that only defined sources pass validation.
func TestPackSource_IsValid(t *testing.T) {
	assert.True(t, SourceLocal.IsValid())
	assert.True(t, SourceOfficial.IsValid())
	assert.True(t, SourceCustom.IsValid())
	assert.False(t, PackSource("remote").IsValid())
	assert.False(t, PackSource("").IsValid())
}

// TestParsePackSource verifies string-to-source conversion,
// including case normalization and error cases.
func TestParsePackSource(t *testing.T) {
	tests := []struct {
		input    string
		expected PackSource
		hasError bool
	}{
		{"local", SourceLocal, false},
		{"official", SourceOfficial, false},
		{"Custom", SourceCustom, false}, // case insensitive
		{"github", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result, err := ParsePackSource(tt.input)
			if tt.hasError {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expected, result)
				assert.Equal(t, string(tt.expected), result.String())
			}
		})
	}
}

// TestValidateDomain covers the hostnames accepted as virtual hosts.
func TestValidateDomain(t *testing.T) {
	tests := []struct {
		domain string
		valid  bool
	}{
		{"myapp.local", true},
		{"brave-otter-3f9a.local", true},
		{"api.shop.test", true},
		{"a.b", true},
		{"", false},
		{"localhost", false},           // single label
		{"*.myapp.local", false},       // wildcard added automatically
		{"-bad.local", false},          // leading hyphen
		{"my app.local", false},        // whitespace
		{"app.local/d; rm -rf", false}, // sed metacharacters
		{"app..local", false},
	}

	for _, tt := range tests {
		t.Run(tt.domain, func(t *testing.T) {
			err := ValidateDomain(tt.domain)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestVirtualHost_URL(t *testing.T) {
	v := VirtualHost{Service: "web", Domain: "myapp.local"}
	assert.Equal(t, "https://myapp.local", v.URL())
}

func TestPortBinding_Validate(t *testing.T) {
	assert.NoError(t, PortBinding{HostPort: 80, ContainerPort: 80, Protocol: "tcp"}.Validate())
	assert.NoError(t, PortBinding{ContainerPort: 3000, Protocol: "udp"}.Validate())
	assert.Error(t, PortBinding{HostPort: 70000, ContainerPort: 80, Protocol: "tcp"}.Validate())
	assert.Error(t, PortBinding{HostPort: 80, ContainerPort: 0, Protocol: "tcp"}.Validate())
	assert.Error(t, PortBinding{HostPort: 80, ContainerPort: 80, Protocol: "sctp"}.Validate())
}

func TestPortBinding_String(t *testing.T) {
	assert.Equal(t, "80:80", PortBinding{HostPort: 80, ContainerPort: 80, Protocol: "tcp"}.String())
	assert.Equal(t, "127.0.0.1:53:53/udp", PortBinding{HostIP: "127.0.0.1", HostPort: 53, ContainerPort: 53, Protocol: "udp"}.String())
	assert.Equal(t, "3000", PortBinding{ContainerPort: 3000}.String())
}

// TestCLIError verifies the custom error type used for exit code mapping.
func TestCLIError(t *testing.T) {
	t.Run("simple error", func(t *testing.T) {
		err := NewCLIError(ExitDockerNotRunning, "Docker daemon is not running")
		assert.Equal(t, ExitDockerNotRunning, err.Code)
		assert.Equal(t, "Docker daemon is not running", err.Error())
		assert.Nil(t, err.Unwrap())
	})

	t.Run("wrapped error", func(t *testing.T) {
		inner := errors.New("connection refused")
		err := WrapCLIError(ExitDockerNotRunning, "Docker daemon is not running", inner)
		assert.Equal(t, ExitDockerNotRunning, err.Code)
		assert.Contains(t, err.Error(), "connection refused")
		assert.Equal(t, inner, err.Unwrap())
	})

	// errors.Is must see through the CLIError to the cause.
	t.Run("errors.Is chain", func(t *testing.T) {
		inner := errors.New("connection refused")
		err := WrapCLIError(ExitCertificateFailed, "could not create certificate", inner)
		assert.True(t, errors.Is(err, inner))
	})
}
