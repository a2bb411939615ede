package docker

import (
	"context"
	"sort"
	"strings"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"

	"github.com/codemasonhq/ahoy/internal/model"
)

// Labels docker compose puts on the containers it creates.
const (
	ComposeProjectLabel = "com.docker.compose.project"
	ComposeServiceLabel = "com.docker.compose.service"
)

// ProxyContainer is a running reverse-proxy container.
type ProxyContainer struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Image   string `json:"image"`
	Project string `json:"project,omitempty"`
	Service string `json:"service,omitempty"`
}

// RunningProxies lists running containers created from image. Each
// secured compose project runs its own proxy on ports 80/443, so a proxy
// from another project blocks this one from starting.
func (c *Client) RunningProxies(ctx context.Context, image string) ([]ProxyContainer, error) {
	list, err := c.api.ContainerList(ctx, container.ListOptions{
		Filters: filters.NewArgs(
			filters.Arg("ancestor", image),
			filters.Arg("status", "running"),
		),
	})
	if err != nil {
		return nil, model.WrapCLIError(
			model.ExitDockerNotRunning,
			"failed to list Docker containers",
			err,
		)
	}

	proxies := make([]ProxyContainer, 0, len(list))
	for _, ctr := range list {
		proxies = append(proxies, toProxyContainer(ctr))
	}
	sort.Slice(proxies, func(i, j int) bool { return proxies[i].Name < proxies[j].Name })
	return proxies, nil
}

// ForeignProxies returns the running proxies for image that do not belong
// to the compose project named project.
func (c *Client) ForeignProxies(ctx context.Context, image, project string) ([]ProxyContainer, error) {
	proxies, err := c.RunningProxies(ctx, image)
	if err != nil {
		return nil, err
	}

	foreign := proxies[:0]
	for _, p := range proxies {
		if p.Project != project {
			foreign = append(foreign, p)
		}
	}
	return foreign, nil
}

// toProxyContainer converts the Docker API struct. Docker returns names
// with a leading "/", which is stripped.
func toProxyContainer(c types.Container) ProxyContainer {
	name := ""
	if len(c.Names) > 0 {
		name = strings.TrimPrefix(c.Names[0], "/")
	}
	return ProxyContainer{
		ID:      c.ID,
		Name:    name,
		Image:   c.Image,
		Project: c.Labels[ComposeProjectLabel],
		Service: c.Labels[ComposeServiceLabel],
	}
}
