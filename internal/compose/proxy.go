package compose

// Defaults for the reverse proxy service. nginx-proxy watches the docker
// socket and routes requests by the VIRTUAL_HOST of each container; it
// terminates TLS with <domain>.crt/<domain>.key found in /etc/nginx/certs.
const (
	DefaultProxyImage = "jwilder/nginx-proxy"

	// proxyCertsPath is where nginx-proxy looks for certificates.
	proxyCertsPath = "/etc/nginx/certs"
)

// DefaultProxyPorts are the host ports published by the reverse proxy.
var DefaultProxyPorts = []string{"80:80", "443:443"}

// DefaultProxyVolumes are mounted into the reverse proxy before any
// certificate directory is added.
var DefaultProxyVolumes = []string{"/var/run/docker.sock:/tmp/docker.sock:ro"}

// ProxyDefinition describes the reverse-proxy service inserted into a
// compose file. It is a value: the With* methods return modified copies
// and the accessors return copies of the underlying slices.
type ProxyDefinition struct {
	image   string
	ports   []string
	volumes []string
}

// NewProxyDefinition creates a proxy definition from its parts.
func NewProxyDefinition(image string, ports, volumes []string) ProxyDefinition {
	return ProxyDefinition{
		image:   image,
		ports:   copyStrings(ports),
		volumes: copyStrings(volumes),
	}
}

// DefaultProxy returns the stock nginx-proxy definition without any
// certificate volume.
func DefaultProxy() ProxyDefinition {
	return NewProxyDefinition(DefaultProxyImage, DefaultProxyPorts, DefaultProxyVolumes)
}

// Image returns the proxy container image.
func (p ProxyDefinition) Image() string {
	return p.image
}

// Ports returns the ports the proxy publishes.
func (p ProxyDefinition) Ports() []string {
	return copyStrings(p.ports)
}

// Volumes returns the proxy's volume mounts.
func (p ProxyDefinition) Volumes() []string {
	return copyStrings(p.volumes)
}

// WithCertificates returns a copy of p that mounts certDir as the proxy's
// certificate directory.
func (p ProxyDefinition) WithCertificates(certDir string) ProxyDefinition {
	out := NewProxyDefinition(p.image, p.ports, p.volumes)
	out.volumes = append(out.volumes, certDir+":"+proxyCertsPath)
	return out
}

// Service renders the definition in the shape yaml.v3 decodes a service
// into, so it can be compared against a loaded document with deep equality.
func (p ProxyDefinition) Service() map[string]interface{} {
	spec := map[string]interface{}{
		fieldImage: p.image,
	}
	if len(p.ports) > 0 {
		spec[fieldPorts] = NewSequence(PortSeparator, p.ports...).Value()
	}
	if len(p.volumes) > 0 {
		spec[fieldVolumes] = NewSequence(PortSeparator, p.volumes...).Value()
	}
	return spec
}

func copyStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
