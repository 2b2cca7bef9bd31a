// Package compose parses the project's Docker Compose file into the
// deployer's stack model. Parsing is pure: input bytes in, Stack out.
package compose

import (
	"context"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/compose-spec/compose-go/v2/loader"
	"github.com/compose-spec/compose-go/v2/types"
	"gopkg.in/yaml.v3"
)

// ParseFile reads and parses a compose file from disk.
func ParseFile(path string) (*Stack, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(string(content))
}

// Parse parses compose YAML into a Stack.
func Parse(yamlContent string) (*Stack, error) {
	if strings.TrimSpace(yamlContent) == "" {
		return nil, ErrEmptyInput
	}

	project, err := loadProject(yamlContent)
	if err != nil {
		return nil, err
	}

	if err := checkUnsupported(project); err != nil {
		return nil, err
	}
	if len(project.Services) == 0 {
		return nil, ErrNoServices
	}

	stack := &Stack{
		Services: make([]Service, 0, len(project.Services)),
		Volumes:  make([]Volume, 0, len(project.Volumes)),
	}

	for _, svc := range project.Services {
		converted, err := convertService(svc)
		if err != nil {
			return nil, err
		}
		stack.Services = append(stack.Services, converted)
	}
	sort.Slice(stack.Services, func(i, j int) bool {
		return stack.Services[i].Name < stack.Services[j].Name
	})

	if err := detectCycles(stack.Services); err != nil {
		return nil, err
	}
	if err := validatePorts(stack.Services); err != nil {
		return nil, err
	}

	for name, vol := range project.Volumes {
		stack.Volumes = append(stack.Volumes, Volume{
			Name:     name,
			Driver:   vol.Driver,
			External: bool(vol.External),
			Labels:   vol.Labels,
		})
	}
	sort.Slice(stack.Volumes, func(i, j int) bool {
		return stack.Volumes[i].Name < stack.Volumes[j].Name
	})

	return stack, nil
}

// loadProject runs the compose-go loader against in-memory content.
func loadProject(yamlContent string) (*types.Project, error) {
	var dict map[string]interface{}
	if err := yaml.Unmarshal([]byte(yamlContent), &dict); err != nil || dict == nil {
		return nil, NewParseError("", "invalid YAML syntax", ErrInvalidYAML)
	}

	project, err := loader.LoadWithContext(context.Background(), types.ConfigDetails{
		ConfigFiles: []types.ConfigFile{
			{
				Content: []byte(yamlContent),
				Config:  dict,
			},
		},
	}, func(opts *loader.Options) {
		opts.SetProjectName("botdeploy-stack", false)
		opts.SkipValidation = false
		opts.SkipInterpolation = false
		// In-memory content: nothing to normalize or extend from disk.
		opts.SkipNormalization = true
		opts.SkipExtends = true
	})
	if err != nil {
		msg := err.Error()
		if strings.Contains(msg, "dependency cycle detected") {
			return nil, NewParseError("", "circular dependency detected", ErrCircularDependency)
		}
		return nil, NewParseError("", msg, ErrInvalidYAML)
	}
	return project, nil
}

// checkUnsupported rejects compose features the deployer has no rendering
// for, rather than silently dropping them.
func checkUnsupported(project *types.Project) error {
	if len(project.Secrets) > 0 {
		return NewParseError("secrets", "secrets are not supported", ErrUnsupportedFeature)
	}
	if len(project.Configs) > 0 {
		return NewParseError("configs", "configs are not supported", ErrUnsupportedFeature)
	}
	for _, svc := range project.Services {
		if svc.Extends != nil && svc.Extends.File != "" {
			return NewParseError("services."+svc.Name+".extends", "extends is not supported", ErrUnsupportedFeature)
		}
	}
	return nil
}

func convertService(svc types.ServiceConfig) (Service, error) {
	service := Service{
		Name:        svc.Name,
		Image:       svc.Image,
		Command:     svc.Command,
		Entrypoint:  svc.Entrypoint,
		Environment: make(map[string]string),
		Labels:      map[string]string{},
		Restart:     svc.Restart,
	}

	if svc.Build != nil {
		service.Build = &BuildConfig{
			Context:    svc.Build.Context,
			Dockerfile: svc.Build.Dockerfile,
		}
	}
	if service.Image == "" && service.Build == nil {
		return Service{}, NewParseError("services."+svc.Name, "service must have image or build", ErrServiceNoImage)
	}

	for _, p := range svc.Ports {
		var published uint64
		if p.Published != "" {
			published, _ = strconv.ParseUint(p.Published, 10, 32)
		}
		service.Ports = append(service.Ports, Port{
			Target:    p.Target,
			Published: uint32(published),
			Protocol:  p.Protocol,
			HostIP:    p.HostIP,
		})
	}

	for k, v := range svc.Environment {
		if v != nil {
			service.Environment[k] = *v
		}
	}

	for _, ef := range svc.EnvFiles {
		service.EnvFiles = append(service.EnvFiles, ef.Path)
	}

	for _, v := range svc.Volumes {
		service.Volumes = append(service.Volumes, convertMount(v))
	}

	for dep := range svc.DependsOn {
		service.DependsOn = append(service.DependsOn, dep)
	}
	sort.Strings(service.DependsOn)

	for k, v := range svc.Labels {
		service.Labels[k] = v
	}

	if hc := svc.HealthCheck; hc != nil && !hc.Disable {
		service.HealthCheck = &HealthCheck{Test: hc.Test}
		if hc.Retries != nil {
			service.HealthCheck.Retries = int(*hc.Retries)
		}
		if hc.Interval != nil {
			service.HealthCheck.Interval = hc.Interval.String()
		}
		if hc.Timeout != nil {
			service.HealthCheck.Timeout = hc.Timeout.String()
		}
		if hc.StartPeriod != nil {
			service.HealthCheck.StartPeriod = hc.StartPeriod.String()
		}
	}

	return service, nil
}

func convertMount(v types.ServiceVolumeConfig) VolumeMount {
	mount := VolumeMount{
		Source:   v.Source,
		Target:   v.Target,
		ReadOnly: v.ReadOnly,
	}
	switch v.Type {
	case "bind":
		mount.Type = MountTypeBind
	case "volume":
		mount.Type = MountTypeVolume
	case "tmpfs":
		mount.Type = MountTypeTmpfs
	default:
		if strings.HasPrefix(v.Source, "./") || strings.HasPrefix(v.Source, "/") || strings.HasPrefix(v.Source, "~") {
			mount.Type = MountTypeBind
		} else {
			mount.Type = MountTypeVolume
		}
	}
	return mount
}

// detectCycles rejects dependency graphs with cycles, including
// self-references, via DFS.
func detectCycles(services []Service) error {
	deps := make(map[string][]string)
	for _, svc := range services {
		deps[svc.Name] = svc.DependsOn
	}

	visited := make(map[string]bool)
	inStack := make(map[string]bool)

	var visit func(node string) bool
	visit = func(node string) bool {
		visited[node] = true
		inStack[node] = true
		for _, dep := range deps[node] {
			if dep == node {
				return true
			}
			if !visited[dep] {
				if visit(dep) {
					return true
				}
			} else if inStack[dep] {
				return true
			}
		}
		inStack[node] = false
		return false
	}

	for _, svc := range services {
		if !visited[svc.Name] && visit(svc.Name) {
			return ErrCircularDependency
		}
	}
	return nil
}

func validatePorts(services []Service) error {
	for _, svc := range services {
		for _, port := range svc.Ports {
			if port.Target == 0 || port.Target > 65535 || port.Published > 65535 {
				return NewParseError("services."+svc.Name+".ports", "port out of range", ErrInvalidPort)
			}
		}
	}
	return nil
}
