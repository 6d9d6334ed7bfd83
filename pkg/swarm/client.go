package swarm

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/filters"
	swarmtypes "github.com/docker/docker/api/types/swarm"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/tlsconfig"
	"github.com/sirupsen/logrus"
)

// TLSOptions are the client TLS parameters, passed through opaquely
// from the configuration surface.
type TLSOptions struct {
	CAFile             string
	CertFile           string
	KeyFile            string
	InsecureSkipVerify bool
}

// Options configure the Docker client and its call gate.
type Options struct {
	Host     string
	Version  string
	TLS      *TLSOptions
	PoolSize int64
}

// Client wraps the Docker API with a bounded call gate so the callers'
// event loops never block on network I/O beyond the gate.
type Client struct {
	api    client.APIClient
	gate   *Gate
	logger *logrus.Logger
}

// NewClient creates a Docker client for the swarm endpoint.
func NewClient(opts Options, logger *logrus.Logger) (*Client, error) {
	clientOpts := []client.Opt{client.FromEnv}

	if opts.Host != "" {
		clientOpts = append(clientOpts, client.WithHost(opts.Host))
	}
	if opts.Version != "" {
		clientOpts = append(clientOpts, client.WithVersion(opts.Version))
	} else {
		clientOpts = append(clientOpts, client.WithAPIVersionNegotiation())
	}
	if opts.TLS != nil {
		tlsConfig, err := tlsconfig.Client(tlsconfig.Options{
			CAFile:             opts.TLS.CAFile,
			CertFile:           opts.TLS.CertFile,
			KeyFile:            opts.TLS.KeyFile,
			InsecureSkipVerify: opts.TLS.InsecureSkipVerify,
		})
		if err != nil {
			return nil, fmt.Errorf("TLS config oluşturulamadı: %w", err)
		}
		httpClient := &http.Client{
			Transport: &http.Transport{TLSClientConfig: tlsConfig},
		}
		clientOpts = append(clientOpts, client.WithHTTPClient(httpClient))
	}

	api, err := client.NewClientWithOpts(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("docker client oluşturulamadı: %w", err)
	}

	return &Client{
		api:    api,
		gate:   NewGate(opts.PoolSize),
		logger: logger,
	}, nil
}

var (
	sharedOnce   sync.Once
	sharedClient *Client
	sharedErr    error
)

// SharedClient returns the process-wide client, constructing it on first
// use. The first construction wins for the process lifetime; no teardown
// is needed before process exit.
func SharedClient(opts Options, logger *logrus.Logger) (*Client, error) {
	sharedOnce.Do(func() {
		sharedClient, sharedErr = NewClient(opts, logger)
	})
	return sharedClient, sharedErr
}

// GetService looks up a swarm service by name.
func (c *Client) GetService(ctx context.Context, name string) (swarmtypes.Service, error) {
	var service swarmtypes.Service
	err := c.gate.Do(ctx, func() error {
		var inspectErr error
		service, _, inspectErr = c.api.ServiceInspectWithRaw(ctx, name, types.ServiceInspectOptions{})
		return inspectErr
	})
	return service, err
}

// CreateService creates a swarm service and returns its id.
func (c *Client) CreateService(ctx context.Context, spec swarmtypes.ServiceSpec) (string, error) {
	var response types.ServiceCreateResponse
	err := c.gate.Do(ctx, func() error {
		var createErr error
		response, createErr = c.api.ServiceCreate(ctx, spec, types.ServiceCreateOptions{})
		return createErr
	})
	if err != nil {
		return "", err
	}

	for _, warning := range response.Warnings {
		c.logger.WithFields(logrus.Fields{
			"service": spec.Name,
			"warning": warning,
		}).Warn("Service create uyarısı")
	}

	return response.ID, nil
}

// RemoveService removes a swarm service by name.
func (c *Client) RemoveService(ctx context.Context, name string) error {
	return c.gate.Do(ctx, func() error {
		return c.api.ServiceRemove(ctx, name)
	})
}

// ListTasks lists the tasks of a single service, fetched fresh every call.
func (c *Client) ListTasks(ctx context.Context, service string) ([]swarmtypes.Task, error) {
	var tasks []swarmtypes.Task
	err := c.gate.Do(ctx, func() error {
		var listErr error
		tasks, listErr = c.api.TaskList(ctx, types.TaskListOptions{
			Filters: filters.NewArgs(filters.Arg("service", service)),
		})
		return listErr
	})
	return tasks, err
}
