package spec

import (
	"testing"
	"time"

	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/api/types/swarm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToSwarmUpdateAndRollbackConfig(t *testing.T) {
	s := &ServiceSpec{
		Name:  "beluga-alice",
		Image: "beluga/session:latest",
		UpdateConfig: &UpdateConfig{
			Parallelism:     2,
			Delay:           10 * time.Second,
			FailureAction:   "rollback",
			Monitor:         time.Minute,
			MaxFailureRatio: 0.25,
			Order:           "start-first",
		},
		RollbackConfig: &UpdateConfig{
			Parallelism:   1,
			FailureAction: "pause",
			Order:         "stop-first",
		},
	}

	out, err := s.ToSwarm()
	require.NoError(t, err)

	require.NotNil(t, out.UpdateConfig)
	assert.Equal(t, uint64(2), out.UpdateConfig.Parallelism)
	assert.Equal(t, 10*time.Second, out.UpdateConfig.Delay)
	assert.Equal(t, "rollback", out.UpdateConfig.FailureAction)
	assert.Equal(t, time.Minute, out.UpdateConfig.Monitor)
	assert.Equal(t, float32(0.25), out.UpdateConfig.MaxFailureRatio)
	assert.Equal(t, "start-first", out.UpdateConfig.Order)

	require.NotNil(t, out.RollbackConfig)
	assert.Equal(t, uint64(1), out.RollbackConfig.Parallelism)
	assert.Equal(t, "pause", out.RollbackConfig.FailureAction)
	assert.Equal(t, "stop-first", out.RollbackConfig.Order)
}

func TestToSwarmSecretsConfigsPrivileges(t *testing.T) {
	s := &ServiceSpec{
		Name:  "beluga-alice",
		Image: "beluga/session:latest",
		Secrets: []SecretReference{
			{SecretID: "sec1", SecretName: "db-password", UID: "1000", GID: "1000", Mode: 0400},
			{SecretID: "sec2", SecretName: "api-key", Filename: "key.txt"},
		},
		Configs: []ConfigReference{
			{ConfigID: "cfg1", ConfigName: "session-settings"},
		},
		Privileges: &Privileges{
			CredentialSpecFile: "spec.json",
			SELinuxUser:        "system_u",
			SELinuxType:        "container_t",
		},
	}

	out, err := s.ToSwarm()
	require.NoError(t, err)

	container := out.TaskTemplate.ContainerSpec
	require.NotNil(t, container)
	require.Len(t, container.Secrets, 2)
	assert.Equal(t, "db-password", container.Secrets[0].SecretName)
	assert.Equal(t, "db-password", container.Secrets[0].File.Name)
	assert.Equal(t, "1000", container.Secrets[0].File.UID)
	assert.Equal(t, "key.txt", container.Secrets[1].File.Name)

	require.Len(t, container.Configs, 1)
	assert.Equal(t, "session-settings", container.Configs[0].ConfigName)
	assert.Equal(t, "session-settings", container.Configs[0].File.Name)

	require.NotNil(t, container.Privileges)
	require.NotNil(t, container.Privileges.CredentialSpec)
	assert.Equal(t, "spec.json", container.Privileges.CredentialSpec.File)
	require.NotNil(t, container.Privileges.SELinuxContext)
	assert.Equal(t, "system_u", container.Privileges.SELinuxContext.User)
	assert.Equal(t, "container_t", container.Privileges.SELinuxContext.Type)
}

func TestToSwarmEndpointSpec(t *testing.T) {
	s := &ServiceSpec{
		Name:  "beluga-alice",
		Image: "beluga/session:latest",
		EndpointSpec: &EndpointSpec{
			Mode: "vip",
			Ports: []PortConfig{
				{Protocol: "tcp", TargetPort: 8888, PublishedPort: 30888, PublishMode: "ingress"},
			},
		},
	}

	out, err := s.ToSwarm()
	require.NoError(t, err)

	require.NotNil(t, out.EndpointSpec)
	assert.Equal(t, swarm.ResolutionModeVIP, out.EndpointSpec.Mode)
	require.Len(t, out.EndpointSpec.Ports, 1)
	port := out.EndpointSpec.Ports[0]
	assert.Equal(t, swarm.PortConfigProtocolTCP, port.Protocol)
	assert.Equal(t, uint32(8888), port.TargetPort)
	assert.Equal(t, uint32(30888), port.PublishedPort)
	assert.Equal(t, swarm.PortConfigPublishModeIngress, port.PublishMode)
}

func TestToSwarmSingleReplica(t *testing.T) {
	s := &ServiceSpec{
		Name:   "beluga-alice",
		Image:  "beluga/session:latest",
		Mounts: []Mount{{Source: "/home/alice", Target: "/workspace", ReadOnly: true}},
	}

	out, err := s.ToSwarm()
	require.NoError(t, err)

	require.NotNil(t, out.Mode.Replicated)
	require.NotNil(t, out.Mode.Replicated.Replicas)
	assert.Equal(t, uint64(1), *out.Mode.Replicated.Replicas)

	mounts := out.TaskTemplate.ContainerSpec.Mounts
	require.Len(t, mounts, 1)
	assert.Equal(t, mount.TypeBind, mounts[0].Type)
	assert.True(t, mounts[0].ReadOnly)
}
