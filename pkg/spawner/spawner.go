package spawner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"beluga/pkg/spec"
	"beluga/pkg/swarm"

	swarmtypes "github.com/docker/docker/api/types/swarm"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// EnvTokenKey carries the session credential in the service environment.
// When an existing service is adopted the live value is reused instead of
// issuing a new one, so a coordinator restart does not orphan the session.
const EnvTokenKey = "BELUGA_SESSION_TOKEN"

const (
	// DefaultPort is the fixed session port resolved together with the
	// service name over the swarm service-discovery DNS.
	DefaultPort = 8888

	// DefaultMaxWaitAttempts bounds the readiness wait loop.
	DefaultMaxWaitAttempts = 20

	// DefaultPrefix is the service name prefix.
	DefaultPrefix = "beluga"
)

// DockerAPI is the finite orchestrator surface the spawner consumes.
type DockerAPI interface {
	GetService(ctx context.Context, name string) (swarmtypes.Service, error)
	CreateService(ctx context.Context, spec swarmtypes.ServiceSpec) (string, error)
	RemoveService(ctx context.Context, name string) error
	ListTasks(ctx context.Context, service string) ([]swarmtypes.Task, error)
}

// Options configure a session spawner.
type Options struct {
	Prefix          string
	Port            int
	Command         []string
	Args            []string
	Env             map[string]string
	CPULimit        float64
	CPUGuarantee    float64
	MemLimit        interface{}
	MemGuarantee    interface{}
	DefaultConfig   map[string]interface{}
	Profiles        []spec.Profile
	FormTemplate    string
	OptionTemplate  string
	MaxWaitAttempts int
	WaitInterval    time.Duration
}

// Spawner drives one user session's service through its lifecycle:
// lookup, create-or-adopt, readiness wait, poll, stop. Lifecycle and
// state operations are serialized under the spawner's own mutex, so a
// single instance is safe to share across goroutines.
type Spawner struct {
	api    DockerAPI
	logger *logrus.Logger
	opts   Options

	mutex      sync.Mutex
	user       string
	serverName string
	profile    *spec.Profile
	apiToken   string

	serviceName string
	serviceID   string
}

// New creates a spawner for the given session identity. A fresh session
// token is issued; adopting a live service replaces it.
func New(api DockerAPI, logger *logrus.Logger, user, serverName string, opts Options) (*Spawner, error) {
	if user == "" {
		return nil, errors.New("kullanıcı adı boş olamaz")
	}
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}
	if opts.Port == 0 {
		opts.Port = DefaultPort
	}
	if opts.MaxWaitAttempts == 0 {
		opts.MaxWaitAttempts = DefaultMaxWaitAttempts
	}
	if opts.WaitInterval == 0 {
		opts.WaitInterval = time.Second
	}
	if opts.FormTemplate == "" {
		opts.FormTemplate = DefaultFormTemplate
	}
	if opts.OptionTemplate == "" {
		opts.OptionTemplate = DefaultOptionTemplate
	}

	s := &Spawner{
		api:        api,
		logger:     logger,
		opts:       opts,
		user:       user,
		serverName: serverName,
		apiToken:   uuid.NewString(),
	}

	name, err := s.builder().ServiceName()
	if err != nil {
		return nil, fmt.Errorf("service adı türetilemedi: %w", err)
	}
	s.serviceName = name

	return s, nil
}

// ServiceName returns the deterministic name of the session service.
func (s *Spawner) ServiceName() string { return s.serviceName }

// ServiceID returns the stored opaque service id, empty when no service
// is known to exist.
func (s *Spawner) ServiceID() string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.serviceID
}

// APIToken returns the session credential currently in effect.
func (s *Spawner) APIToken() string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.apiToken
}

// User returns the owning user name.
func (s *Spawner) User() string { return s.user }

// SetProfile selects the config profile for this session.
func (s *Spawner) SetProfile(profile *spec.Profile) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.profile = profile
}

// Profile returns the selected config profile, nil when none.
func (s *Spawner) Profile() *spec.Profile {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.profile
}

// builder assembles the spec builder for this session. The session token
// is injected into the service environment under EnvTokenKey.
func (s *Spawner) builder() *spec.Builder {
	env := make(map[string]string, len(s.opts.Env)+1)
	for key, val := range s.opts.Env {
		env[key] = val
	}
	env[EnvTokenKey] = s.apiToken

	return &spec.Builder{
		Prefix:        s.opts.Prefix,
		Username:      s.user,
		ServerName:    s.serverName,
		Command:       s.opts.Command,
		Args:          s.opts.Args,
		Env:           env,
		CPULimit:      s.opts.CPULimit,
		CPUGuarantee:  s.opts.CPUGuarantee,
		MemLimit:      s.opts.MemLimit,
		MemGuarantee:  s.opts.MemGuarantee,
		DefaultConfig: s.opts.DefaultConfig,
		Profile:       s.profile,
	}
}

// getService looks the service up by its deterministic name. NotFound and
// server-side errors clear the stored id and report absence so the
// lifecycle self-heals; client-side errors are fatal and surfaced as-is.
func (s *Spawner) getService(ctx context.Context) (*swarmtypes.Service, error) {
	s.logger.WithField("service", s.serviceName).Debug("Docker service sorgulanıyor")

	service, err := s.api.GetService(ctx, s.serviceName)
	if err != nil {
		if swarm.IsNotFound(err) {
			s.logger.WithField("service", s.serviceName).Info("Docker service mevcut değil")
			s.serviceID = ""
			return nil, nil
		}
		if swarm.IsServerError(err) {
			s.logger.WithError(err).WithField("service", s.serviceName).Info("Docker Swarm server hatası")
			s.serviceID = ""
			return nil, nil
		}
		return nil, err
	}

	s.serviceID = service.ID
	return &service, nil
}

// Start creates the session service or adopts a live one carrying the
// same name, then waits for a running task. The returned address is the
// service name (resolvable over the swarm service-discovery DNS) together
// with the configured port. Readiness-wait exhaustion is a soft timeout:
// the next Poll surfaces the non-running state.
func (s *Spawner) Start(ctx context.Context) (string, int, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	service, err := s.getService(ctx)
	if err != nil {
		return "", 0, err
	}

	if service == nil {
		built, err := s.builder().BuildSpec()
		if err != nil {
			return "", 0, err
		}
		swarmSpec, err := built.ToSwarm()
		if err != nil {
			return "", 0, err
		}

		id, err := s.api.CreateService(ctx, swarmSpec)
		if err != nil {
			return "", 0, fmt.Errorf("docker service oluşturulamadı (%s): %w", s.serviceName, err)
		}
		s.serviceID = id

		s.logger.WithFields(logrus.Fields{
			"service":    s.serviceName,
			"service_id": shortID(id),
			"image":      built.Image,
			"user":       s.user,
		}).Info("Docker service oluşturuldu")

		if !s.waitForRunningTasks(ctx) {
			s.logger.WithField("service", s.serviceName).Warn("Service hazır olmadan bekleme süresi doldu")
		}
	} else {
		s.logger.WithFields(logrus.Fields{
			"service":    s.serviceName,
			"service_id": shortID(s.serviceID),
		}).Info("Mevcut Docker service bulundu")
		s.adoptToken(service)
	}

	return s.serviceName, s.opts.Port, nil
}

// adoptToken recovers the session credential from the environment of an
// already-running service.
func (s *Spawner) adoptToken(service *swarmtypes.Service) {
	containerSpec := service.Spec.TaskTemplate.ContainerSpec
	if containerSpec == nil {
		return
	}
	for _, entry := range containerSpec.Env {
		if strings.HasPrefix(entry, EnvTokenKey+"=") {
			s.apiToken = strings.SplitN(entry, "=", 2)[1]
			return
		}
	}
}

// Stop removes the service. Removal is best-effort: NotFound and API
// errors are logged and swallowed, and the stored state is always
// cleared.
func (s *Spawner) Stop(ctx context.Context) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.stop(ctx)
}

// stop is Stop without the lock, for callers already holding it.
func (s *Spawner) stop(ctx context.Context) {
	s.logger.WithFields(logrus.Fields{
		"service":    s.serviceName,
		"service_id": shortID(s.serviceID),
	}).Info("Docker service durduruluyor")

	err := s.api.RemoveService(ctx, s.serviceName)
	switch {
	case err == nil:
		// The call returning does not mean the underlying containers are
		// gone already, removal continues in the background.
		s.logger.WithFields(logrus.Fields{
			"service":    s.serviceName,
			"service_id": shortID(s.serviceID),
		}).Info("Docker service silindi")
	case swarm.IsNotFound(err):
		s.logger.WithField("service", s.serviceName).Warn("Docker service bulunamadı")
	default:
		s.logger.WithError(err).WithFields(logrus.Fields{
			"service":    s.serviceName,
			"service_id": s.serviceID,
		}).Error("Docker service silinemedi")
	}

	s.serviceID = ""
}

func shortID(id string) string {
	if len(id) > 7 {
		return id[:7]
	}
	return id
}
