// Package docker provides adapters for local Docker resources. It talks
// to the daemon configured by the usual DOCKER_HOST environment.
package docker

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/api/types/volume"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
	v1 "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/groundwork-io/groundwork/pkg/adapter"
)

type Provider struct {
	client *client.Client
}

func New() (*Provider, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	return &Provider{client: cli}, nil
}

func (p *Provider) Adapters() map[string]adapter.Adapter {
	return map[string]adapter.Adapter{
		"Container": &containerAdapter{cli: p.client},
		"Network":   &networkAdapter{cli: p.client},
		"Volume":    &volumeAdapter{cli: p.client},
	}
}

func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "connection refused") || strings.Contains(msg, "i/o timeout") {
		return adapter.NewTransient(op, err)
	}
	if strings.Contains(msg, "is in use") || strings.Contains(msg, "has active endpoints") {
		return adapter.NewPrecondition(op, err)
	}
	return adapter.NewPermanent(op, err)
}

func strAttr(attrs adapter.Attrs, key string) string {
	if v, ok := attrs[key].(string); ok {
		return v
	}
	return ""
}

// containerAdapter manages containers. Containers cannot be reconfigured
// in place, so every declared attribute forces replacement.
type containerAdapter struct {
	cli *client.Client
}

func (a *containerAdapter) Schema() adapter.Schema {
	return adapter.Schema{
		Kind:      "Container",
		Immutable: []string{"name", "image", "command", "env", "ports", "volumes", "network"},
		Computed:  []string{"id", "ip_address"},
	}
}

func (a *containerAdapter) Create(ctx context.Context, attrs adapter.Attrs) (adapter.Attrs, error) {
	imageName := strAttr(attrs, "image")

	reader, err := a.cli.ImagePull(ctx, imageName, image.PullOptions{})
	if err != nil {
		return nil, classify("pull image", err)
	}
	io.Copy(io.Discard, reader)
	reader.Close()

	config := &container.Config{
		Image:  imageName,
		Env:    envList(attrs),
		Labels: labelMap(attrs),
	}
	if cmd, ok := attrs["command"].([]any); ok {
		for _, c := range cmd {
			config.Cmd = append(config.Cmd, fmt.Sprintf("%v", c))
		}
	}

	hostConfig := &container.HostConfig{
		PortBindings: portBindings(attrs),
		Binds:        volumeBinds(attrs),
	}
	if netName := strAttr(attrs, "network"); netName != "" {
		hostConfig.NetworkMode = container.NetworkMode(netName)
	}
	if restart := strAttr(attrs, "restart"); restart != "" {
		hostConfig.RestartPolicy = container.RestartPolicy{
			Name: container.RestartPolicyMode(restart),
		}
	}

	resp, err := a.cli.ContainerCreate(ctx,
		config,
		hostConfig,
		&network.NetworkingConfig{},
		&v1.Platform{},
		strAttr(attrs, "name"),
	)
	if err != nil {
		return nil, classify("create container", err)
	}

	if err := a.cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return nil, classify("start container", err)
	}

	return a.Read(ctx, resp.ID)
}

func (a *containerAdapter) Read(ctx context.Context, id string) (adapter.Attrs, error) {
	inspect, err := a.cli.ContainerInspect(ctx, id)
	if err != nil {
		if client.IsErrNotFound(err) {
			return nil, nil
		}
		return nil, classify("inspect container", err)
	}

	attrs := adapter.Attrs{
		"id":    inspect.ID,
		"name":  strings.TrimPrefix(inspect.Name, "/"),
		"image": inspect.Config.Image,
	}
	if inspect.State != nil {
		attrs["status"] = inspect.State.Status
	}
	if inspect.NetworkSettings != nil {
		for _, settings := range inspect.NetworkSettings.Networks {
			if settings.IPAddress != "" {
				attrs["ip_address"] = settings.IPAddress
				break
			}
		}
	}
	return attrs, nil
}

func (a *containerAdapter) Update(ctx context.Context, id string, changed adapter.Attrs) (adapter.Attrs, error) {
	if restart := strAttr(changed, "restart"); restart != "" {
		_, err := a.cli.ContainerUpdate(ctx, id, container.UpdateConfig{
			RestartPolicy: container.RestartPolicy{
				Name: container.RestartPolicyMode(restart),
			},
		})
		if err != nil {
			return nil, classify("update container", err)
		}
	}
	return a.Read(ctx, id)
}

func (a *containerAdapter) Delete(ctx context.Context, id string, prior adapter.Attrs) error {
	timeout := 10 // seconds
	_ = a.cli.ContainerStop(ctx, id, container.StopOptions{Timeout: &timeout})

	err := a.cli.ContainerRemove(ctx, id, container.RemoveOptions{Force: true})
	if err != nil && !client.IsErrNotFound(err) {
		return classify("remove container", err)
	}
	return nil
}

func envList(attrs adapter.Attrs) []string {
	raw, ok := attrs["env"].(map[string]any)
	if !ok {
		return nil
	}
	env := make([]string, 0, len(raw))
	for k, v := range raw {
		env = append(env, fmt.Sprintf("%s=%v", k, v))
	}
	return env
}

func labelMap(attrs adapter.Attrs) map[string]string {
	raw, ok := attrs["labels"].(map[string]any)
	if !ok {
		return nil
	}
	labels := make(map[string]string, len(raw))
	for k, v := range raw {
		labels[k] = fmt.Sprintf("%v", v)
	}
	return labels
}

// portBindings maps "host:container" port declarations onto the daemon's
// binding structure. Plain container ports are bound to the same host port.
func portBindings(attrs adapter.Attrs) nat.PortMap {
	raw, ok := attrs["ports"].([]any)
	if !ok {
		return nil
	}
	bindings := nat.PortMap{}
	for _, entry := range raw {
		spec := fmt.Sprintf("%v", entry)
		hostPort, containerPort := spec, spec
		if parts := strings.SplitN(spec, ":", 2); len(parts) == 2 {
			hostPort, containerPort = parts[0], parts[1]
		}
		port := nat.Port(containerPort + "/tcp")
		bindings[port] = append(bindings[port], nat.PortBinding{
			HostIP:   "0.0.0.0",
			HostPort: hostPort,
		})
	}
	return bindings
}

func volumeBinds(attrs adapter.Attrs) []string {
	raw, ok := attrs["volumes"].([]any)
	if !ok {
		return nil
	}
	var binds []string
	for _, entry := range raw {
		bind := fmt.Sprintf("%v", entry)
		parts := strings.SplitN(bind, ":", 2)
		if len(parts) == 2 && (strings.HasPrefix(parts[0], "./") || strings.HasPrefix(parts[0], "../")) {
			if abs, err := filepath.Abs(parts[0]); err == nil {
				bind = abs + ":" + parts[1]
			}
		}
		binds = append(binds, bind)
	}
	return binds
}

// networkAdapter manages user-defined bridge networks.
type networkAdapter struct {
	cli *client.Client
}

func (a *networkAdapter) Schema() adapter.Schema {
	return adapter.Schema{
		Kind:      "Network",
		Immutable: []string{"name", "driver", "internal"},
		Computed:  []string{"id"},
	}
}

func (a *networkAdapter) Create(ctx context.Context, attrs adapter.Attrs) (adapter.Attrs, error) {
	driver := strAttr(attrs, "driver")
	if driver == "" {
		driver = "bridge"
	}
	internal, _ := attrs["internal"].(bool)

	resp, err := a.cli.NetworkCreate(ctx, strAttr(attrs, "name"), types.NetworkCreate{
		Driver:   driver,
		Internal: internal,
		Labels:   labelMap(attrs),
	})
	if err != nil {
		return nil, classify("create network", err)
	}
	return a.Read(ctx, resp.ID)
}

func (a *networkAdapter) Read(ctx context.Context, id string) (adapter.Attrs, error) {
	inspect, err := a.cli.NetworkInspect(ctx, id, network.InspectOptions{})
	if err != nil {
		if client.IsErrNotFound(err) {
			return nil, nil
		}
		return nil, classify("inspect network", err)
	}
	return adapter.Attrs{
		"id":       inspect.ID,
		"name":     inspect.Name,
		"driver":   inspect.Driver,
		"internal": inspect.Internal,
	}, nil
}

func (a *networkAdapter) Update(ctx context.Context, id string, changed adapter.Attrs) (adapter.Attrs, error) {
	return a.Read(ctx, id)
}

func (a *networkAdapter) Delete(ctx context.Context, id string, prior adapter.Attrs) error {
	err := a.cli.NetworkRemove(ctx, id)
	if err != nil && !client.IsErrNotFound(err) {
		return classify("remove network", err)
	}
	return nil
}

// volumeAdapter manages named volumes. The volume name is its ID.
type volumeAdapter struct {
	cli *client.Client
}

func (a *volumeAdapter) Schema() adapter.Schema {
	return adapter.Schema{
		Kind:      "Volume",
		Immutable: []string{"name", "driver"},
		Computed:  []string{"id", "mountpoint"},
	}
}

func (a *volumeAdapter) Create(ctx context.Context, attrs adapter.Attrs) (adapter.Attrs, error) {
	driver := strAttr(attrs, "driver")
	if driver == "" {
		driver = "local"
	}
	vol, err := a.cli.VolumeCreate(ctx, volume.CreateOptions{
		Name:   strAttr(attrs, "name"),
		Driver: driver,
		Labels: labelMap(attrs),
	})
	if err != nil {
		return nil, classify("create volume", err)
	}
	return adapter.Attrs{
		"id":         vol.Name,
		"name":       vol.Name,
		"driver":     vol.Driver,
		"mountpoint": vol.Mountpoint,
	}, nil
}

func (a *volumeAdapter) Read(ctx context.Context, id string) (adapter.Attrs, error) {
	vol, err := a.cli.VolumeInspect(ctx, id)
	if err != nil {
		if client.IsErrNotFound(err) {
			return nil, nil
		}
		return nil, classify("inspect volume", err)
	}
	return adapter.Attrs{
		"id":         vol.Name,
		"name":       vol.Name,
		"driver":     vol.Driver,
		"mountpoint": vol.Mountpoint,
	}, nil
}

func (a *volumeAdapter) Update(ctx context.Context, id string, changed adapter.Attrs) (adapter.Attrs, error) {
	return a.Read(ctx, id)
}

func (a *volumeAdapter) Delete(ctx context.Context, id string, prior adapter.Attrs) error {
	err := a.cli.VolumeRemove(ctx, id, true)
	if err != nil && !client.IsErrNotFound(err) {
		return classify("remove volume", err)
	}
	return nil
}
