package docker

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/api/types/volume"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
)

// =============================================================================
// Engine Client
// =============================================================================

// EngineClient implements Client using the Docker SDK.
type EngineClient struct {
	cli *client.Client
}

// NewEngineClient creates a Docker engine client. If host is empty the
// default host from the environment is used.
func NewEngineClient(host string) (*EngineClient, error) {
	opts := []client.Opt{
		client.FromEnv,
		client.WithAPIVersionNegotiation(),
	}
	if host != "" {
		opts = append(opts, client.WithHost(host))
	}

	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, newEngineError("NewEngineClient", "", "", "failed to create client", ErrConnectionFailed)
	}
	return &EngineClient{cli: cli}, nil
}

// Ping checks that the Docker daemon is reachable.
func (e *EngineClient) Ping(ctx context.Context) error {
	if _, err := e.cli.Ping(ctx); err != nil {
		return newEngineError("Ping", "", "", err.Error(), ErrConnectionFailed)
	}
	return nil
}

// Close closes the underlying connection.
func (e *EngineClient) Close() error {
	return e.cli.Close()
}

// =============================================================================
// Container Operations
// =============================================================================

// CreateContainer creates a container from the given spec.
func (e *EngineClient) CreateContainer(ctx context.Context, spec ContainerSpec) (string, error) {
	config := &container.Config{
		Image:      spec.Image,
		Cmd:        spec.Command,
		Entrypoint: spec.Entrypoint,
		Labels:     spec.Labels,
	}
	for k, v := range spec.Env {
		config.Env = append(config.Env, fmt.Sprintf("%s=%s", k, v))
	}

	hostConfig := &container.HostConfig{}

	if len(spec.Ports) > 0 {
		portBindings := nat.PortMap{}
		exposedPorts := nat.PortSet{}
		for _, p := range spec.Ports {
			proto := p.Protocol
			if proto == "" {
				proto = "tcp"
			}
			containerPort := nat.Port(fmt.Sprintf("%d/%s", p.ContainerPort, proto))
			exposedPorts[containerPort] = struct{}{}

			hostPort := ""
			if p.HostPort != 0 {
				hostPort = fmt.Sprintf("%d", p.HostPort)
			}
			portBindings[containerPort] = []nat.PortBinding{
				{HostIP: p.HostIP, HostPort: hostPort},
			}
		}
		config.ExposedPorts = exposedPorts
		hostConfig.PortBindings = portBindings
	}

	for _, m := range spec.Mounts {
		mountType := mount.TypeVolume
		if strings.HasPrefix(m.Source, "/") {
			mountType = mount.TypeBind
		}
		hostConfig.Mounts = append(hostConfig.Mounts, mount.Mount{
			Type:     mountType,
			Source:   m.Source,
			Target:   m.Target,
			ReadOnly: m.ReadOnly,
		})
	}

	if spec.RestartPolicy != "" {
		hostConfig.RestartPolicy = container.RestartPolicy{
			Name: container.RestartPolicyMode(spec.RestartPolicy),
		}
	}

	if spec.HealthCheck != nil {
		config.Healthcheck = &container.HealthConfig{
			Test:        spec.HealthCheck.Test,
			Interval:    spec.HealthCheck.Interval,
			Timeout:     spec.HealthCheck.Timeout,
			Retries:     spec.HealthCheck.Retries,
			StartPeriod: spec.HealthCheck.StartPeriod,
		}
	}

	var networkConfig *network.NetworkingConfig
	if spec.Network != "" {
		networkConfig = &network.NetworkingConfig{
			EndpointsConfig: map[string]*network.EndpointSettings{
				spec.Network: {Aliases: spec.NetworkAlias},
			},
		}
	}

	resp, err := e.cli.ContainerCreate(ctx, config, hostConfig, networkConfig, nil, spec.Name)
	if err != nil {
		if strings.Contains(err.Error(), "Conflict") {
			return "", newEngineError("CreateContainer", "container", spec.Name, "container already exists", ErrContainerAlreadyExists)
		}
		if strings.Contains(err.Error(), "port is already allocated") {
			return "", newEngineError("CreateContainer", "container", spec.Name, err.Error(), ErrPortAlreadyAllocated)
		}
		return "", newEngineError("CreateContainer", "container", spec.Name, err.Error(), err)
	}
	return resp.ID, nil
}

// StartContainer starts a created or stopped container.
func (e *EngineClient) StartContainer(ctx context.Context, containerID string) error {
	if err := e.cli.ContainerStart(ctx, containerID, container.StartOptions{}); err != nil {
		if client.IsErrNotFound(err) {
			return newEngineError("StartContainer", "container", containerID, "container not found", ErrContainerNotFound)
		}
		return newEngineError("StartContainer", "container", containerID, err.Error(), err)
	}
	return nil
}

// StopContainer stops a running container.
func (e *EngineClient) StopContainer(ctx context.Context, containerID string, timeout *time.Duration) error {
	stopOpts := container.StopOptions{}
	if timeout != nil {
		seconds := int(timeout.Seconds())
		stopOpts.Timeout = &seconds
	}

	if err := e.cli.ContainerStop(ctx, containerID, stopOpts); err != nil {
		if client.IsErrNotFound(err) {
			return newEngineError("StopContainer", "container", containerID, "container not found", ErrContainerNotFound)
		}
		if strings.Contains(err.Error(), "is not running") {
			return newEngineError("StopContainer", "container", containerID, "container is not running", ErrContainerNotRunning)
		}
		return newEngineError("StopContainer", "container", containerID, err.Error(), err)
	}
	return nil
}

// RemoveContainer removes a container.
func (e *EngineClient) RemoveContainer(ctx context.Context, containerID string, force bool) error {
	err := e.cli.ContainerRemove(ctx, containerID, container.RemoveOptions{Force: force})
	if err != nil {
		if client.IsErrNotFound(err) {
			return newEngineError("RemoveContainer", "container", containerID, "container not found", ErrContainerNotFound)
		}
		return newEngineError("RemoveContainer", "container", containerID, err.Error(), err)
	}
	return nil
}

// InspectContainer returns state and health for a container.
func (e *EngineClient) InspectContainer(ctx context.Context, nameOrID string) (*ContainerInfo, error) {
	resp, err := e.cli.ContainerInspect(ctx, nameOrID)
	if err != nil {
		if client.IsErrNotFound(err) {
			return nil, newEngineError("InspectContainer", "container", nameOrID, "container not found", ErrContainerNotFound)
		}
		return nil, newEngineError("InspectContainer", "container", nameOrID, err.Error(), err)
	}

	createdAt, _ := time.Parse(time.RFC3339Nano, resp.Created)

	health := ""
	if resp.State.Health != nil {
		health = resp.State.Health.Status
	}

	var ports []PortBinding
	for containerPort, bindings := range resp.NetworkSettings.Ports {
		port, proto := containerPort.Port(), containerPort.Proto()
		for _, binding := range bindings {
			var hostPort, containerPortInt int
			fmt.Sscanf(binding.HostPort, "%d", &hostPort)
			fmt.Sscanf(port, "%d", &containerPortInt)
			ports = append(ports, PortBinding{
				ContainerPort: containerPortInt,
				HostPort:      hostPort,
				Protocol:      proto,
				HostIP:        binding.HostIP,
			})
		}
	}

	return &ContainerInfo{
		ID:        resp.ID,
		Name:      strings.TrimPrefix(resp.Name, "/"),
		Image:     resp.Config.Image,
		State:     resp.State.Status,
		Health:    health,
		ExitCode:  resp.State.ExitCode,
		CreatedAt: createdAt,
		Labels:    resp.Config.Labels,
		Ports:     ports,
	}, nil
}

// ListContainers lists containers matching the options.
func (e *EngineClient) ListContainers(ctx context.Context, opts ListOptions) ([]ContainerInfo, error) {
	listOpts := container.ListOptions{All: opts.All}
	if len(opts.Filters) > 0 {
		f := filters.NewArgs()
		for k, v := range opts.Filters {
			f.Add(k, v)
		}
		listOpts.Filters = f
	}

	containers, err := e.cli.ContainerList(ctx, listOpts)
	if err != nil {
		return nil, newEngineError("ListContainers", "container", "", err.Error(), err)
	}

	var result []ContainerInfo
	for _, c := range containers {
		name := ""
		if len(c.Names) > 0 {
			name = strings.TrimPrefix(c.Names[0], "/")
		}
		result = append(result, ContainerInfo{
			ID:        c.ID,
			Name:      name,
			Image:     c.Image,
			State:     c.State,
			CreatedAt: time.Unix(c.Created, 0),
			Labels:    c.Labels,
		})
	}
	return result, nil
}

// =============================================================================
// Network Operations
// =============================================================================

// CreateNetwork creates a bridge network.
func (e *EngineClient) CreateNetwork(ctx context.Context, spec NetworkSpec) (string, error) {
	driver := spec.Driver
	if driver == "" {
		driver = "bridge"
	}

	resp, err := e.cli.NetworkCreate(ctx, spec.Name, network.CreateOptions{
		Driver: driver,
		Labels: spec.Labels,
	})
	if err != nil {
		if strings.Contains(err.Error(), "already exists") {
			return "", newEngineError("CreateNetwork", "network", spec.Name, "network already exists", ErrNetworkAlreadyExists)
		}
		return "", newEngineError("CreateNetwork", "network", spec.Name, err.Error(), err)
	}
	return resp.ID, nil
}

// RemoveNetwork removes a network.
func (e *EngineClient) RemoveNetwork(ctx context.Context, networkID string) error {
	if err := e.cli.NetworkRemove(ctx, networkID); err != nil {
		if client.IsErrNotFound(err) {
			return newEngineError("RemoveNetwork", "network", networkID, "network not found", ErrNetworkNotFound)
		}
		if strings.Contains(err.Error(), "has active endpoints") {
			return newEngineError("RemoveNetwork", "network", networkID, "network has active endpoints", ErrNetworkInUse)
		}
		return newEngineError("RemoveNetwork", "network", networkID, err.Error(), err)
	}
	return nil
}

// =============================================================================
// Volume Operations
// =============================================================================

// CreateVolume creates a named volume.
func (e *EngineClient) CreateVolume(ctx context.Context, spec VolumeSpec) (string, error) {
	driver := spec.Driver
	if driver == "" {
		driver = "local"
	}

	resp, err := e.cli.VolumeCreate(ctx, volume.CreateOptions{
		Name:   spec.Name,
		Driver: driver,
		Labels: spec.Labels,
	})
	if err != nil {
		return "", newEngineError("CreateVolume", "volume", spec.Name, err.Error(), err)
	}
	return resp.Name, nil
}

// RemoveVolume removes a named volume.
func (e *EngineClient) RemoveVolume(ctx context.Context, volumeName string, force bool) error {
	if err := e.cli.VolumeRemove(ctx, volumeName, force); err != nil {
		if client.IsErrNotFound(err) {
			return newEngineError("RemoveVolume", "volume", volumeName, "volume not found", ErrVolumeNotFound)
		}
		if strings.Contains(err.Error(), "in use") {
			return newEngineError("RemoveVolume", "volume", volumeName, "volume is in use", ErrVolumeInUse)
		}
		return newEngineError("RemoveVolume", "volume", volumeName, err.Error(), err)
	}
	return nil
}

// =============================================================================
// Image Operations
// =============================================================================

// PullImage pulls an image, draining the progress stream to completion.
func (e *EngineClient) PullImage(ctx context.Context, imageName string) error {
	reader, err := e.cli.ImagePull(ctx, imageName, image.PullOptions{})
	if err != nil {
		if strings.Contains(err.Error(), "not found") ||
			strings.Contains(err.Error(), "manifest unknown") ||
			strings.Contains(err.Error(), "pull access denied") {
			return newEngineError("PullImage", "image", imageName, "image not found", ErrImageNotFound)
		}
		return newEngineError("PullImage", "image", imageName, err.Error(), err)
	}
	defer reader.Close()

	if _, err := io.Copy(io.Discard, reader); err != nil {
		return newEngineError("PullImage", "image", imageName, err.Error(), err)
	}
	return nil
}

// ImageExists checks whether an image exists locally.
func (e *EngineClient) ImageExists(ctx context.Context, imageName string) (bool, error) {
	_, _, err := e.cli.ImageInspectWithRaw(ctx, imageName)
	if err != nil {
		if client.IsErrNotFound(err) {
			return false, nil
		}
		return false, newEngineError("ImageExists", "image", imageName, err.Error(), err)
	}
	return true, nil
}
