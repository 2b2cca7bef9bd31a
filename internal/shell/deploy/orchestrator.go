// Package deploy drives the bot stack lifecycle (up, down, status) against
// the Docker engine, from a parsed compose stack.
package deploy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/artpar/botdeploy/internal/core/compose"
	"github.com/artpar/botdeploy/internal/shell/docker"
)

// =============================================================================
// Orchestrator
// =============================================================================

// Orchestrator manages the lifecycle of one named stack.
type Orchestrator struct {
	engine docker.Client
	logger *slog.Logger
	stack  string // stack name, prefixes every resource
	root   string // project root, for resolving bind mount sources
	image  string // image ref for services that declare build:
}

// Config configures an Orchestrator.
type Config struct {
	Stack string // required
	Root  string // defaults to "."
	Image string // image ref substituted for build-only services
}

// NewOrchestrator creates an orchestrator for the given stack.
func NewOrchestrator(engine docker.Client, logger *slog.Logger, cfg Config) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	root := cfg.Root
	if root == "" {
		root = "."
	}
	return &Orchestrator{
		engine: engine,
		logger: logger,
		stack:  cfg.Stack,
		root:   root,
		image:  cfg.Image,
	}
}

// Resource naming: every engine object carries the stack prefix so that
// Down and Status can find it by label or name.

func (o *Orchestrator) networkName() string {
	return o.stack + "_net"
}

func (o *Orchestrator) containerName(service string) string {
	return o.stack + "_" + service
}

func (o *Orchestrator) volumeName(vol string) string {
	return o.stack + "_" + vol
}

func (o *Orchestrator) labels(service string) map[string]string {
	l := map[string]string{
		docker.LabelManaged: "true",
		docker.LabelStack:   o.stack,
	}
	if service != "" {
		l[docker.LabelService] = service
	}
	return l
}

// =============================================================================
// Up
// =============================================================================

// Up brings the whole stack up: network, volumes, then containers in
// dependency order. Existing containers for a service are replaced.
func (o *Orchestrator) Up(ctx context.Context, stack *compose.Stack) error {
	if err := o.engine.Ping(ctx); err != nil {
		return fmt.Errorf("engine unreachable: %w", err)
	}

	o.logger.Info("bringing stack up",
		"stack", o.stack,
		"services", len(stack.Services),
	)

	if _, err := o.engine.CreateNetwork(ctx, docker.NetworkSpec{
		Name:   o.networkName(),
		Labels: o.labels(""),
	}); err != nil && !errors.Is(err, docker.ErrNetworkAlreadyExists) {
		return fmt.Errorf("create network: %w", err)
	}

	for _, vol := range stack.Volumes {
		if vol.External {
			continue
		}
		if _, err := o.engine.CreateVolume(ctx, docker.VolumeSpec{
			Name:   o.volumeName(vol.Name),
			Driver: vol.Driver,
			Labels: o.labels(""),
		}); err != nil {
			return fmt.Errorf("create volume %s: %w", vol.Name, err)
		}
	}

	for _, svc := range compose.StartOrder(stack.Services) {
		if err := o.upService(ctx, stack, svc); err != nil {
			return fmt.Errorf("service %s: %w", svc.Name, err)
		}
	}
	return nil
}

func (o *Orchestrator) upService(ctx context.Context, stack *compose.Stack, svc compose.Service) error {
	image := svc.Image
	if image == "" {
		// build-only service: the variant ladder produced this image
		image = o.image
	}

	if exists, _ := o.engine.ImageExists(ctx, image); !exists && svc.Image != "" {
		o.logger.Info("pulling image", "image", image)
		if err := o.engine.PullImage(ctx, image); err != nil {
			o.logger.Warn("pull failed, creating anyway", "image", image, "error", err)
		}
	}

	name := o.containerName(svc.Name)

	// Replace an existing container so Up is repeatable.
	if info, err := o.engine.InspectContainer(ctx, name); err == nil {
		o.logger.Debug("replacing existing container", "container", name, "state", info.State)
		if err := o.engine.RemoveContainer(ctx, info.ID, true); err != nil {
			return fmt.Errorf("remove existing container: %w", err)
		}
	}

	spec := docker.ContainerSpec{
		Name:          name,
		Image:         image,
		Command:       svc.Command,
		Entrypoint:    svc.Entrypoint,
		Env:           svc.Environment,
		Labels:        mergeLabels(o.labels(svc.Name), svc.Labels),
		Network:       o.networkName(),
		NetworkAlias:  []string{svc.Name},
		RestartPolicy: svc.Restart,
	}

	for _, p := range svc.Ports {
		spec.Ports = append(spec.Ports, docker.PortBinding{
			ContainerPort: int(p.Target),
			HostPort:      int(p.Published),
			Protocol:      p.Protocol,
			HostIP:        p.HostIP,
		})
	}

	for _, m := range svc.Volumes {
		spec.Mounts = append(spec.Mounts, o.convertMount(m))
	}

	if svc.HealthCheck != nil {
		spec.HealthCheck = convertHealthCheck(svc.HealthCheck)
	}

	id, err := o.engine.CreateContainer(ctx, spec)
	if err != nil {
		return err
	}
	if err := o.engine.StartContainer(ctx, id); err != nil {
		return err
	}

	o.logger.Info("service started", "service", svc.Name, "container", name)
	return nil
}

func (o *Orchestrator) convertMount(m compose.VolumeMount) docker.Mount {
	source := m.Source
	if m.Type == compose.MountTypeVolume {
		source = o.volumeName(m.Source)
	} else if !filepath.IsAbs(source) {
		abs, err := filepath.Abs(filepath.Join(o.root, source))
		if err == nil {
			source = abs
		}
	}
	return docker.Mount{Source: source, Target: m.Target, ReadOnly: m.ReadOnly}
}

func convertHealthCheck(hc *compose.HealthCheck) *docker.HealthCheckConfig {
	parse := func(s string) time.Duration {
		d, _ := time.ParseDuration(s)
		return d
	}
	return &docker.HealthCheckConfig{
		Test:        hc.Test,
		Interval:    parse(hc.Interval),
		Timeout:     parse(hc.Timeout),
		Retries:     hc.Retries,
		StartPeriod: parse(hc.StartPeriod),
	}
}

// =============================================================================
// Down
// =============================================================================

// Down stops and removes the stack's containers in reverse dependency
// order, then the network. Named volumes are kept unless removeVolumes is
// set - reminder data survives a redeploy.
func (o *Orchestrator) Down(ctx context.Context, stack *compose.Stack, removeVolumes bool) error {
	stopTimeout := 15 * time.Second

	for _, svc := range compose.StopOrder(stack.Services) {
		name := o.containerName(svc.Name)
		info, err := o.engine.InspectContainer(ctx, name)
		if err != nil {
			o.logger.Debug("container not found, skipping", "container", name)
			continue
		}
		if info.Running() {
			if err := o.engine.StopContainer(ctx, info.ID, &stopTimeout); err != nil {
				o.logger.Warn("stop failed, forcing removal", "container", name, "error", err)
			}
		}
		if err := o.engine.RemoveContainer(ctx, info.ID, true); err != nil {
			return fmt.Errorf("remove %s: %w", name, err)
		}
		o.logger.Info("service removed", "service", svc.Name)
	}

	if err := o.engine.RemoveNetwork(ctx, o.networkName()); err != nil && !errors.Is(err, docker.ErrNetworkNotFound) {
		o.logger.Warn("failed to remove network", "network", o.networkName(), "error", err)
	}

	if removeVolumes {
		for _, vol := range stack.Volumes {
			if vol.External {
				continue
			}
			if err := o.engine.RemoveVolume(ctx, o.volumeName(vol.Name), false); err != nil {
				o.logger.Warn("failed to remove volume", "volume", vol.Name, "error", err)
			}
		}
	}
	return nil
}

// =============================================================================
// Status
// =============================================================================

// ServiceStatus is the reported state of one service.
type ServiceStatus struct {
	Service   string
	Container string
	State     string // "absent" when no container exists
	Health    string
}

// Status reports per-service container state for the stack.
func (o *Orchestrator) Status(ctx context.Context, stack *compose.Stack) ([]ServiceStatus, error) {
	if err := o.engine.Ping(ctx); err != nil {
		return nil, fmt.Errorf("engine unreachable: %w", err)
	}

	statuses := make([]ServiceStatus, 0, len(stack.Services))
	for _, svc := range stack.Services {
		name := o.containerName(svc.Name)
		status := ServiceStatus{Service: svc.Name, Container: name, State: "absent"}

		if info, err := o.engine.InspectContainer(ctx, name); err == nil {
			status.State = info.State
			status.Health = info.Health
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

// =============================================================================
// Helpers
// =============================================================================

func mergeLabels(base, extra map[string]string) map[string]string {
	merged := make(map[string]string, len(base)+len(extra))
	for k, v := range extra {
		merged[k] = v
	}
	for k, v := range base {
		merged[k] = v // stack labels win
	}
	return merged
}
