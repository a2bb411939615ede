// Package port checks whether the host ports the reverse proxy publishes
// are already taken.
//
// `ahoy secure` puts nginx-proxy in front of a compose project on ports 80
// and 443. If something else on the host (a local web server, another
// secured project) already holds one of them, `docker compose up` fails with
// a bind error long after the compose file was rewritten. The Scanner lets
// the CLI warn about that before restarting.
package port

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/docker/go-connections/nat"

	"github.com/codemasonhq/ahoy/internal/model"
)

// Scanner checks whether specific ports are available on the host machine.
//
// It asks the operating system directly with net.Listen / net.ListenPacket
// rather than parsing /proc/net/* or shelling out to `lsof`.
type Scanner struct {
	// listen opens a TCP listener; replaced in tests.
	listen func(network, addr string) (net.Listener, error)

	// listenPacket opens a UDP socket; replaced in tests.
	listenPacket func(network, addr string) (net.PacketConn, error)
}

// NewScanner creates a new Scanner instance.
func NewScanner() *Scanner {
	return &Scanner{
		listen:       net.Listen,
		listenPacket: net.ListenPacket,
	}
}

// Conflict is a published port that could not be bound on the host.
type Conflict struct {
	// Spec is the compose port entry the binding came from.
	Spec string `json:"spec"`

	// Binding is the host binding that is already taken.
	Binding model.PortBinding `json:"binding"`
}

// String returns a short description for warnings.
func (c Conflict) String() string {
	return fmt.Sprintf("host port %d/%s (%s) is already in use", c.Binding.HostPort, c.Binding.Protocol, c.Spec)
}

// IsPortAvailable checks whether a single port is free on the host machine.
//
// A bind that fails with a permission error counts as available: ports
// below 1024 cannot be bound by an unprivileged user even when free, and
// docker binds them on its own behalf.
func (s *Scanner) IsPortAvailable(hostIP string, port int, protocol string) bool {
	addr := net.JoinHostPort(hostIP, strconv.Itoa(port))

	switch protocol {
	case "tcp":
		listener, err := s.listen("tcp", addr)
		if err != nil {
			return errors.Is(err, os.ErrPermission)
		}
		defer func() { _ = listener.Close() }()
		return true

	case "udp":
		conn, err := s.listenPacket("udp", addr)
		if err != nil {
			return errors.Is(err, os.ErrPermission)
		}
		defer func() { _ = conn.Close() }()
		return true

	default:
		// Unknown protocol: treat as unavailable to fail safe.
		return false
	}
}

// Busy returns the host bindings among specs that are already in use.
// Entries without a host port are skipped since docker assigns those
// itself. An entry that cannot be parsed is an error.
func (s *Scanner) Busy(specs []string) ([]Conflict, error) {
	var conflicts []Conflict
	for _, spec := range specs {
		bindings, err := ParseBindings(spec)
		if err != nil {
			return nil, err
		}
		for _, b := range bindings {
			if b.HostPort == 0 {
				continue
			}
			if !s.IsPortAvailable(b.HostIP, b.HostPort, b.Protocol) {
				conflicts = append(conflicts, Conflict{Spec: spec, Binding: b})
			}
		}
	}
	return conflicts, nil
}

// ParseBindings parses a compose short-syntax port entry ("80:80",
// "127.0.0.1:8443:443/tcp", "8000-8001:8000-8001", "3000") into one binding
// per container port.
func ParseBindings(spec string) ([]model.PortBinding, error) {
	mappings, err := nat.ParsePortSpec(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid port %q: %w", spec, err)
	}

	bindings := make([]model.PortBinding, 0, len(mappings))
	for _, m := range mappings {
		b := model.PortBinding{
			HostIP:        m.Binding.HostIP,
			ContainerPort: m.Port.Int(),
			Protocol:      m.Port.Proto(),
		}
		if m.Binding.HostPort != "" {
			hostPort, err := strconv.Atoi(m.Binding.HostPort)
			if err != nil {
				return nil, fmt.Errorf("invalid port %q: host port %q", spec, m.Binding.HostPort)
			}
			b.HostPort = hostPort
		}
		if err := b.Validate(); err != nil {
			return nil, fmt.Errorf("invalid port %q: %w", spec, err)
		}
		bindings = append(bindings, b)
	}
	return bindings, nil
}
