// Package docker talks to the Docker daemon on behalf of `ahoy secure`.
//
// This package handles:
//   - Docker client initialization with automatic socket detection
//     (Linux, macOS, Windows)
//   - Finding reverse-proxy containers that are already running, which
//     would hold ports 80 and 443
//   - Restarting a compose project through the `docker compose` CLI
//
// The package uses github.com/docker/docker/client as the underlying
// Docker SDK, with version negotiation enabled for broad compatibility.
package docker
