package spec

import (
	"fmt"
	"os"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/api/types/swarm"
	"github.com/docker/go-units"
)

// ToSwarm translates the typed spec into the swarm API shape. Sessions are
// always single-replica services.
func (s *ServiceSpec) ToSwarm() (swarm.ServiceSpec, error) {
	containerSpec := &swarm.ContainerSpec{
		Image:    s.Image,
		Command:  s.Command,
		Args:     s.Args,
		Env:      s.Env,
		Dir:      s.Workdir,
		User:     s.User,
		Hostname: s.Hostname,
		Labels:   s.ContainerLabels,
	}

	for _, m := range s.Mounts {
		containerSpec.Mounts = append(containerSpec.Mounts, m.toSwarm())
	}

	if s.Healthcheck != nil {
		containerSpec.Healthcheck = &container.HealthConfig{
			Test:        s.Healthcheck.Test,
			Interval:    s.Healthcheck.Interval,
			Timeout:     s.Healthcheck.Timeout,
			StartPeriod: s.Healthcheck.StartPeriod,
			Retries:     s.Healthcheck.Retries,
		}
	}
	if s.DNSConfig != nil {
		containerSpec.DNSConfig = &swarm.DNSConfig{
			Nameservers: s.DNSConfig.Nameservers,
			Search:      s.DNSConfig.Search,
			Options:     s.DNSConfig.Options,
		}
	}
	for _, secret := range s.Secrets {
		containerSpec.Secrets = append(containerSpec.Secrets, secret.toSwarm())
	}
	for _, cfg := range s.Configs {
		containerSpec.Configs = append(containerSpec.Configs, cfg.toSwarm())
	}
	if s.Privileges != nil {
		containerSpec.Privileges = s.Privileges.toSwarm()
	}

	task := swarm.TaskSpec{ContainerSpec: containerSpec}

	if s.Resources != nil {
		resources, err := s.Resources.toSwarm()
		if err != nil {
			return swarm.ServiceSpec{}, err
		}
		task.Resources = resources
	}
	if s.RestartPolicy != nil {
		policy := s.RestartPolicy
		task.RestartPolicy = &swarm.RestartPolicy{
			Condition:   swarm.RestartPolicyCondition(policy.Condition),
			MaxAttempts: &policy.MaxAttempts,
			Delay:       &policy.Delay,
			Window:      &policy.Window,
		}
	}
	for _, network := range s.Networks {
		task.Networks = append(task.Networks, swarm.NetworkAttachmentConfig{Target: network})
	}

	replicas := uint64(1)
	out := swarm.ServiceSpec{
		Annotations: swarm.Annotations{
			Name:   s.Name,
			Labels: s.Labels,
		},
		TaskTemplate: task,
		Mode: swarm.ServiceMode{
			Replicated: &swarm.ReplicatedService{Replicas: &replicas},
		},
	}

	if s.UpdateConfig != nil {
		out.UpdateConfig = s.UpdateConfig.toSwarm()
	}
	if s.RollbackConfig != nil {
		out.RollbackConfig = s.RollbackConfig.toSwarm()
	}
	if s.EndpointSpec != nil {
		endpoint := &swarm.EndpointSpec{Mode: swarm.ResolutionMode(s.EndpointSpec.Mode)}
		for _, port := range s.EndpointSpec.Ports {
			endpoint.Ports = append(endpoint.Ports, swarm.PortConfig{
				Protocol:      swarm.PortConfigProtocol(port.Protocol),
				TargetPort:    port.TargetPort,
				PublishedPort: port.PublishedPort,
				PublishMode:   swarm.PortConfigPublishMode(port.PublishMode),
			})
		}
		out.EndpointSpec = endpoint
	}

	return out, nil
}

func (u *UpdateConfig) toSwarm() *swarm.UpdateConfig {
	return &swarm.UpdateConfig{
		Parallelism:     u.Parallelism,
		Delay:           u.Delay,
		FailureAction:   u.FailureAction,
		Monitor:         u.Monitor,
		MaxFailureRatio: u.MaxFailureRatio,
		Order:           u.Order,
	}
}

func (r *Resources) toSwarm() (*swarm.ResourceRequirements, error) {
	requirements := &swarm.ResourceRequirements{}

	if r.CPULimit > 0 || r.MemLimit != "" {
		limit := &swarm.Limit{NanoCPUs: int64(r.CPULimit)}
		if r.MemLimit != "" {
			bytes, err := units.RAMInBytes(r.MemLimit)
			if err != nil {
				return nil, fmt.Errorf("bellek limiti çözümlenemedi (%s): %w", r.MemLimit, err)
			}
			limit.MemoryBytes = bytes
		}
		requirements.Limits = limit
	}
	if r.CPUReservation > 0 || r.MemReservation != "" {
		reservation := &swarm.Resources{NanoCPUs: int64(r.CPUReservation)}
		if r.MemReservation != "" {
			bytes, err := units.RAMInBytes(r.MemReservation)
			if err != nil {
				return nil, fmt.Errorf("bellek rezervasyonu çözümlenemedi (%s): %w", r.MemReservation, err)
			}
			reservation.MemoryBytes = bytes
		}
		requirements.Reservations = reservation
	}

	return requirements, nil
}

// toSwarm maps a mount onto the swarm mount type. An explicit type wins,
// otherwise absolute sources become bind mounts and the rest volumes.
func (m Mount) toSwarm() mount.Mount {
	mountType := mount.Type(m.Type)
	if m.Type == "" {
		if strings.HasPrefix(m.Source, "/") {
			mountType = mount.TypeBind
		} else {
			mountType = mount.TypeVolume
		}
	}

	out := mount.Mount{
		Type:     mountType,
		Source:   m.Source,
		Target:   m.Target,
		ReadOnly: m.ReadOnly,
	}
	if m.DriverConfig != nil {
		out.VolumeOptions = &mount.VolumeOptions{
			DriverConfig: &mount.Driver{
				Name:    m.DriverConfig.Name,
				Options: m.DriverConfig.Options,
			},
		}
	}
	return out
}

func (s SecretReference) toSwarm() *swarm.SecretReference {
	filename := s.Filename
	if filename == "" {
		filename = s.SecretName
	}
	return &swarm.SecretReference{
		SecretID:   s.SecretID,
		SecretName: s.SecretName,
		File: &swarm.SecretReferenceFileTarget{
			Name: filename,
			UID:  s.UID,
			GID:  s.GID,
			Mode: os.FileMode(s.Mode),
		},
	}
}

func (c ConfigReference) toSwarm() *swarm.ConfigReference {
	filename := c.Filename
	if filename == "" {
		filename = c.ConfigName
	}
	return &swarm.ConfigReference{
		ConfigID:   c.ConfigID,
		ConfigName: c.ConfigName,
		File: &swarm.ConfigReferenceFileTarget{
			Name: filename,
			UID:  c.UID,
			GID:  c.GID,
			Mode: os.FileMode(c.Mode),
		},
	}
}

func (p *Privileges) toSwarm() *swarm.Privileges {
	out := &swarm.Privileges{}
	if p.CredentialSpecFile != "" || p.CredentialSpecRegistry != "" {
		out.CredentialSpec = &swarm.CredentialSpec{
			File:     p.CredentialSpecFile,
			Registry: p.CredentialSpecRegistry,
		}
	}
	out.SELinuxContext = &swarm.SELinuxContext{
		Disable: p.SELinuxDisable,
		User:    p.SELinuxUser,
		Role:    p.SELinuxRole,
		Type:    p.SELinuxType,
		Level:   p.SELinuxLevel,
	}
	return out
}
