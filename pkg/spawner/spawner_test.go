package spawner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"beluga/pkg/spec"

	swarmtypes "github.com/docker/docker/api/types/swarm"
	"github.com/docker/docker/errdefs"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDocker implements DockerAPI and records every call.
type fakeDocker struct {
	mu        sync.Mutex
	services  map[string]swarmtypes.Service
	getErr    error
	createErr error
	removeErr error
	listErr   error
	tasks     []swarmtypes.Task
	taskQueue [][]swarmtypes.Task

	listCalls   int
	createCalls int
	removeCalls int
	created     []swarmtypes.ServiceSpec
}

func newFakeDocker() *fakeDocker {
	return &fakeDocker{services: map[string]swarmtypes.Service{}}
}

func (f *fakeDocker) GetService(_ context.Context, name string) (swarmtypes.Service, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return swarmtypes.Service{}, f.getErr
	}
	service, ok := f.services[name]
	if !ok {
		return swarmtypes.Service{}, errdefs.NotFound(fmt.Errorf("service yok: %s", name))
	}
	return service, nil
}

func (f *fakeDocker) CreateService(_ context.Context, serviceSpec swarmtypes.ServiceSpec) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.createErr != nil {
		return "", f.createErr
	}
	f.created = append(f.created, serviceSpec)
	id := fmt.Sprintf("srv%d", f.createCalls)
	f.services[serviceSpec.Name] = swarmtypes.Service{ID: id, Spec: serviceSpec}
	return id, nil
}

func (f *fakeDocker) RemoveService(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removeCalls++
	if f.removeErr != nil {
		return f.removeErr
	}
	delete(f.services, name)
	return nil
}

func (f *fakeDocker) ListTasks(_ context.Context, _ string) ([]swarmtypes.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	if len(f.taskQueue) > 0 {
		tasks := f.taskQueue[0]
		f.taskQueue = f.taskQueue[1:]
		return tasks, nil
	}
	return f.tasks, nil
}

func task(id string, state swarmtypes.TaskState) swarmtypes.Task {
	return swarmtypes.Task{ID: id, Status: swarmtypes.TaskStatus{State: state}}
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestSpawner(t *testing.T, api DockerAPI, opts Options) *Spawner {
	t.Helper()
	if opts.WaitInterval == 0 {
		opts.WaitInterval = time.Millisecond
	}
	if opts.DefaultConfig == nil {
		opts.DefaultConfig = map[string]interface{}{"image": "session:latest"}
	}
	s, err := New(api, quietLogger(), "alice", "", opts)
	require.NoError(t, err)
	return s
}

func TestStartCreatesService(t *testing.T) {
	docker := newFakeDocker()
	docker.tasks = []swarmtypes.Task{task("t1", swarmtypes.TaskStateRunning)}
	s := newTestSpawner(t, docker, Options{})

	address, port, err := s.Start(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "beluga-alice", address)
	assert.Equal(t, DefaultPort, port)
	assert.Equal(t, 1, docker.createCalls)
	assert.Equal(t, "srv1", s.GetState().ServiceID)

	require.Len(t, docker.created, 1)
	created := docker.created[0]
	assert.Equal(t, "beluga-alice", created.Name)
	assert.Equal(t, "alice", created.Labels[spec.LabelUser])
	require.NotNil(t, created.TaskTemplate.ContainerSpec)
	assert.Contains(t, created.TaskTemplate.ContainerSpec.Env, EnvTokenKey+"="+s.APIToken())
}

func TestStartTwiceAdoptsInsteadOfCreating(t *testing.T) {
	docker := newFakeDocker()
	docker.tasks = []swarmtypes.Task{task("t1", swarmtypes.TaskStateRunning)}
	s := newTestSpawner(t, docker, Options{})

	_, _, err := s.Start(context.Background())
	require.NoError(t, err)
	firstID := s.ServiceID()
	firstToken := s.APIToken()

	_, _, err = s.Start(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, docker.createCalls)
	assert.Equal(t, firstID, s.ServiceID())
	assert.Equal(t, firstToken, s.APIToken())
}

func TestStartAdoptRecoversToken(t *testing.T) {
	docker := newFakeDocker()
	docker.services["beluga-alice"] = swarmtypes.Service{
		ID: "srv9",
		Spec: swarmtypes.ServiceSpec{
			TaskTemplate: swarmtypes.TaskSpec{
				ContainerSpec: &swarmtypes.ContainerSpec{
					Env: []string{"OTHER=1", EnvTokenKey + "=live-token"},
				},
			},
		},
	}
	s := newTestSpawner(t, docker, Options{})

	address, port, err := s.Start(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "beluga-alice", address)
	assert.Equal(t, DefaultPort, port)
	assert.Zero(t, docker.createCalls)
	assert.Equal(t, "srv9", s.ServiceID())
	assert.Equal(t, "live-token", s.APIToken())
}

func TestStartClientErrorIsFatal(t *testing.T) {
	docker := newFakeDocker()
	docker.getErr = errdefs.InvalidParameter(errors.New("bozuk istek"))
	s := newTestSpawner(t, docker, Options{})

	_, _, err := s.Start(context.Background())
	require.Error(t, err)
	assert.Zero(t, docker.createCalls)
}

func TestStartServerErrorTreatedAsAbsent(t *testing.T) {
	docker := newFakeDocker()
	docker.getErr = errdefs.System(errors.New("daemon hatası"))
	docker.tasks = []swarmtypes.Task{task("t1", swarmtypes.TaskStateRunning)}
	s := newTestSpawner(t, docker, Options{})
	s.LoadState(State{ServiceID: "stale"})

	// Lookups fail server-side, so the service is presumed gone and a
	// fresh one is created.
	_, _, err := s.Start(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, docker.createCalls)
	assert.Equal(t, "srv1", s.ServiceID())
}

func TestStartReadinessSoftTimeout(t *testing.T) {
	docker := newFakeDocker()
	docker.tasks = []swarmtypes.Task{task("t1", swarmtypes.TaskStatePending)}
	s := newTestSpawner(t, docker, Options{MaxWaitAttempts: 2})

	// Exhausting the readiness wait is not an error, the next Poll
	// reports the non-running state instead.
	_, _, err := s.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, docker.createCalls)
}

func TestStopIsBestEffort(t *testing.T) {
	tests := []struct {
		name      string
		removeErr error
	}{
		{name: "clean removal"},
		{name: "not found swallowed", removeErr: errdefs.NotFound(errors.New("yok"))},
		{name: "api error swallowed", removeErr: errdefs.System(errors.New("daemon hatası"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docker := newFakeDocker()
			docker.removeErr = tt.removeErr
			s := newTestSpawner(t, docker, Options{})
			s.LoadState(State{ServiceID: "srv1"})

			s.Stop(context.Background())

			assert.Equal(t, 1, docker.removeCalls)
			assert.Empty(t, s.ServiceID())
		})
	}
}

func TestStateRoundtrip(t *testing.T) {
	s := newTestSpawner(t, newFakeDocker(), Options{})

	assert.Equal(t, State{}, s.GetState())
	s.LoadState(State{ServiceID: "srv42"})
	assert.Equal(t, "srv42", s.GetState().ServiceID)
	s.ClearState()
	assert.Empty(t, s.GetState().ServiceID)
}

func TestConcurrentLifecycleAccess(t *testing.T) {
	docker := newFakeDocker()
	docker.tasks = []swarmtypes.Task{task("t1", swarmtypes.TaskStateRunning)}
	s := newTestSpawner(t, docker, Options{})

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, _, err := s.Start(context.Background())
			assert.NoError(t, err)
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := s.Poll(context.Background())
			assert.NoError(t, err)
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_ = s.GetState()
			_ = s.ServiceID()
			_ = s.APIToken()
		}()
	}
	close(start)
	wg.Wait()

	// The first start creates, the rest adopt the live service.
	assert.Equal(t, 1, docker.createCalls)
	assert.Equal(t, "srv1", s.GetState().ServiceID)
}
