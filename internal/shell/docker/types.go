// Package docker provides a thin client over the Docker engine API for
// stack lifecycle management.
package docker

import (
	"context"
	"time"
)

// =============================================================================
// Container Types
// =============================================================================

// ContainerSpec defines the specification for creating a container.
type ContainerSpec struct {
	Name          string
	Image         string
	Command       []string
	Entrypoint    []string
	Env           map[string]string
	Labels        map[string]string
	Ports         []PortBinding
	Mounts        []Mount
	Network       string              // network to attach at creation
	NetworkAlias  []string            // DNS aliases on that network
	RestartPolicy string              // "no", "always", "on-failure", "unless-stopped"
	HealthCheck   *HealthCheckConfig
}

// PortBinding defines a port mapping.
type PortBinding struct {
	ContainerPort int
	HostPort      int    // 0 for auto-assign
	Protocol      string // "tcp" or "udp"
	HostIP        string // "" for 0.0.0.0
}

// Mount defines a bind or volume mount.
type Mount struct {
	Source   string // volume name or host path
	Target   string // container path
	ReadOnly bool
}

// HealthCheckConfig defines container health check configuration.
type HealthCheckConfig struct {
	Test        []string
	Interval    time.Duration
	Timeout     time.Duration
	Retries     int
	StartPeriod time.Duration
}

// =============================================================================
// Container Info
// =============================================================================

// ContainerInfo describes an existing container.
type ContainerInfo struct {
	ID        string
	Name      string
	Image     string
	State     string // created, running, paused, exited, dead
	Health    string // "", starting, healthy, unhealthy
	ExitCode  int
	CreatedAt time.Time
	Labels    map[string]string
	Ports     []PortBinding
}

// Running reports whether the container is in the running state.
func (c *ContainerInfo) Running() bool {
	return c.State == "running"
}

// Healthy reports whether the container is running and, when a healthcheck
// is defined, has passed it.
func (c *ContainerInfo) Healthy() bool {
	if !c.Running() {
		return false
	}
	return c.Health == "" || c.Health == "healthy"
}

// =============================================================================
// Specs and Options
// =============================================================================

// NetworkSpec defines a network to create.
type NetworkSpec struct {
	Name   string
	Driver string // defaults to "bridge"
	Labels map[string]string
}

// VolumeSpec defines a named volume to create.
type VolumeSpec struct {
	Name   string
	Driver string // defaults to "local"
	Labels map[string]string
}

// ListOptions filters container listings.
type ListOptions struct {
	All     bool
	Filters map[string]string // e.g. "label" -> "com.botdeploy.stack=bot"
}

// =============================================================================
// Client Interface
// =============================================================================

// Client is the engine surface the deployer needs. The concrete
// implementation talks to a Docker daemon; tests substitute fakes.
type Client interface {
	// Container operations
	CreateContainer(ctx context.Context, spec ContainerSpec) (containerID string, err error)
	StartContainer(ctx context.Context, containerID string) error
	StopContainer(ctx context.Context, containerID string, timeout *time.Duration) error
	RemoveContainer(ctx context.Context, containerID string, force bool) error
	InspectContainer(ctx context.Context, nameOrID string) (*ContainerInfo, error)
	ListContainers(ctx context.Context, opts ListOptions) ([]ContainerInfo, error)

	// Network operations
	CreateNetwork(ctx context.Context, spec NetworkSpec) (networkID string, err error)
	RemoveNetwork(ctx context.Context, networkID string) error

	// Volume operations
	CreateVolume(ctx context.Context, spec VolumeSpec) (volumeName string, err error)
	RemoveVolume(ctx context.Context, volumeName string, force bool) error

	// Image operations
	PullImage(ctx context.Context, image string) error
	ImageExists(ctx context.Context, image string) (bool, error)

	// Health operations
	Ping(ctx context.Context) error
	Close() error
}

// =============================================================================
// Label Constants
// =============================================================================

const (
	LabelManaged = "com.botdeploy.managed"
	LabelStack   = "com.botdeploy.stack"
	LabelService = "com.botdeploy.service"
)
