package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"beluga/pkg/config"
	"beluga/pkg/spawner"
	"beluga/pkg/storage"
	"beluga/pkg/swarm"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// SpawnerServer represents the main session spawner daemon
type SpawnerServer struct {
	config   *config.Config
	logger   *logrus.Logger
	docker   *swarm.Client
	storage  *storage.Storage
	router   *mux.Router
	mutex    sync.RWMutex
	sessions map[string]*spawner.Spawner
}

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Printf("Konfigürasyon yüklenemedi: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	logger := logrus.New()
	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		fmt.Printf("Geçersiz log seviyesi: %v\n", err)
		os.Exit(1)
	}
	logger.SetLevel(level)

	if cfg.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{})
	}

	// Create server
	server, err := NewSpawnerServer(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Server oluşturulamadı")
	}

	// Start server
	if err := server.Start(); err != nil {
		logger.WithError(err).Fatal("Server başlatılamadı")
	}
}

// NewSpawnerServer creates a new spawner daemon
func NewSpawnerServer(cfg *config.Config, logger *logrus.Logger) (*SpawnerServer, error) {
	// The swarm client is shared process-wide; first construction wins.
	var tls *swarm.TLSOptions
	if cfg.Docker.TLS != nil {
		tls = &swarm.TLSOptions{
			CAFile:             cfg.Docker.TLS.CAFile,
			CertFile:           cfg.Docker.TLS.CertFile,
			KeyFile:            cfg.Docker.TLS.KeyFile,
			InsecureSkipVerify: cfg.Docker.TLS.InsecureSkipVerify,
		}
	}
	docker, err := swarm.SharedClient(swarm.Options{
		Host:     cfg.Docker.Host,
		Version:  cfg.Docker.Version,
		TLS:      tls,
		PoolSize: cfg.Docker.PoolSize,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("swarm client oluşturulamadı: %w", err)
	}

	// Create storage
	store, err := storage.NewStorage(cfg.Storage.DataDir, logger)
	if err != nil {
		return nil, fmt.Errorf("storage oluşturulamadı: %w", err)
	}

	server := &SpawnerServer{
		config:   cfg,
		logger:   logger,
		docker:   docker,
		storage:  store,
		sessions: make(map[string]*spawner.Spawner),
	}

	// Setup routes
	server.setupRoutes()

	return server, nil
}

// Start starts the spawner daemon
func (s *SpawnerServer) Start() error {
	// Restore persisted sessions from storage
	if err := s.loadFromStorage(); err != nil {
		s.logger.WithError(err).Warn("Storage'dan veri yüklenemedi")
	}

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		s.logger.WithField("address", addr).Info("Beluga spawner başlatılıyor")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.WithError(err).Fatal("HTTP server hatası")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	s.logger.Info("Beluga spawner kapatılıyor...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		s.logger.WithError(err).Error("Server kapatma hatası")
		return err
	}

	s.logger.Info("Beluga spawner başarıyla kapatıldı")
	return nil
}

// spawnerOptions builds the session-independent spawner options from
// the configuration surface
func (s *SpawnerServer) spawnerOptions() spawner.Options {
	sp := s.config.Spawner
	return spawner.Options{
		Prefix:          sp.NamePrefix,
		Port:            sp.Port,
		Command:         sp.Command,
		Args:            sp.Args,
		DefaultConfig:   sp.DefaultService,
		Profiles:        sp.Profiles,
		FormTemplate:    sp.FormTemplate,
		OptionTemplate:  sp.OptionTemplate,
		MaxWaitAttempts: sp.MaxWaitAttempts,
		WaitInterval:    sp.WaitInterval,
	}
}

// loadFromStorage rebuilds the spawners of persisted sessions. The stored
// state is loaded verbatim; live service adoption happens on the next
// start request.
func (s *SpawnerServer) loadFromStorage() error {
	sessions, err := s.storage.LoadAllSessions()
	if err != nil {
		return fmt.Errorf("sessions yüklenemedi: %w", err)
	}

	for _, record := range sessions {
		sp, err := s.newSpawner(record.User, record.ServerName, record.Profile, nil)
		if err != nil {
			s.logger.WithError(err).WithField("session", record.Name).Warn("Session geri yüklenemedi")
			continue
		}
		sp.LoadState(record.State)

		s.mutex.Lock()
		s.sessions[sp.ServiceName()] = sp
		s.mutex.Unlock()
	}

	s.logger.WithField("count", len(sessions)).Info("Sessions storage'dan yüklendi")
	return nil
}

// setupRoutes sets up HTTP routes
func (s *SpawnerServer) setupRoutes() {
	s.router = mux.NewRouter()

	// Health check
	s.router.HandleFunc("/health", s.healthHandler).Methods("GET")

	// Profile selection form
	s.router.HandleFunc("/form", s.formHandler).Methods("GET")
	s.router.HandleFunc("/profiles", s.listProfilesHandler).Methods("GET")

	// Session routes
	s.router.HandleFunc("/sessions", s.listSessionsHandler).Methods("GET")
	s.router.HandleFunc("/sessions", s.createSessionHandler).Methods("POST")
	s.router.HandleFunc("/sessions/{name}/health", s.sessionHealthHandler).Methods("GET")
	s.router.HandleFunc("/sessions/{name}", s.getSessionHandler).Methods("GET")
	s.router.HandleFunc("/sessions/{name}", s.deleteSessionHandler).Methods("DELETE")

	// Stats route
	s.router.HandleFunc("/stats", s.statsHandler).Methods("GET")

	// Add logging middleware
	s.router.Use(s.loggingMiddleware)
}

// Middleware for logging requests
func (s *SpawnerServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": time.Since(start),
			"remote":   r.RemoteAddr,
		}).Info("HTTP request")
	})
}
