package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"beluga/pkg/spawner"
	"beluga/pkg/storage"
	"beluga/pkg/swarm"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// createSessionRequest is the session start request body
type createSessionRequest struct {
	User         string            `json:"user"`
	ServerName   string            `json:"server_name,omitempty"`
	Profile      string            `json:"profile,omitempty"`
	Env          map[string]string `json:"env,omitempty"`
	CPULimit     float64           `json:"cpu_limit,omitempty"`
	CPUGuarantee float64           `json:"cpu_guarantee,omitempty"`
	MemLimit     string            `json:"mem_limit,omitempty"`
	MemGuarantee string            `json:"mem_guarantee,omitempty"`
}

// hasOverrides reports whether the request carries per-session settings
// beyond the session identity.
func (r *createSessionRequest) hasOverrides() bool {
	return len(r.Env) > 0 || r.CPULimit != 0 || r.CPUGuarantee != 0 ||
		r.MemLimit != "" || r.MemGuarantee != ""
}

// sessionResponse is the JSON view of a session
type sessionResponse struct {
	Name       string `json:"name"`
	User       string `json:"user"`
	ServerName string `json:"server_name,omitempty"`
	Profile    string `json:"profile,omitempty"`
	Address    string `json:"address,omitempty"`
	Port       int    `json:"port,omitempty"`
	Token      string `json:"token,omitempty"`
	ServiceID  string `json:"service_id,omitempty"`
}

func sessionView(sp *spawner.Spawner, address string, port int) sessionResponse {
	profile := ""
	if p := sp.Profile(); p != nil {
		profile = p.Name
	}
	return sessionResponse{
		Name:      sp.ServiceName(),
		User:      sp.User(),
		Profile:   profile,
		Address:   address,
		Port:      port,
		Token:     sp.APIToken(),
		ServiceID: sp.ServiceID(),
	}
}

// newSpawner builds a spawner from the configuration surface plus the
// per-request overrides
func (s *SpawnerServer) newSpawner(user, serverName, profileName string, req *createSessionRequest) (*spawner.Spawner, error) {
	opts := s.spawnerOptions()
	if req != nil {
		opts.Env = req.Env
		opts.CPULimit = req.CPULimit
		opts.CPUGuarantee = req.CPUGuarantee
		if req.MemLimit != "" {
			opts.MemLimit = req.MemLimit
		}
		if req.MemGuarantee != "" {
			opts.MemGuarantee = req.MemGuarantee
		}
	}

	sp, err := spawner.New(s.docker, s.logger, user, serverName, opts)
	if err != nil {
		return nil, err
	}

	if profileName != "" {
		profile := sp.OptionsFromForm(url.Values{"profile": {profileName}})
		if profile == nil {
			return nil, fmt.Errorf("profil bulunamadı: %s", profileName)
		}
		sp.SetProfile(profile)
	}

	return sp, nil
}

func (s *SpawnerServer) lookupSession(name string) (*spawner.Spawner, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	sp, ok := s.sessions[name]
	return sp, ok
}

// healthHandler handles health check requests
func (s *SpawnerServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]string{
		"status":  "healthy",
		"version": "1.0.0",
		"service": "beluga-spawnerd",
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// formHandler serves the profile selection form
func (s *SpawnerServer) formHandler(w http.ResponseWriter, r *http.Request) {
	sp := s.config.Spawner
	form := spawner.RenderOptionsForm(sp.Profiles, sp.FormTemplate, sp.OptionTemplate)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(form))
}

// listProfilesHandler lists the configured profiles
func (s *SpawnerServer) listProfilesHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.config.Spawner.Profiles)
}

// createSessionHandler starts a session service, adopting a live one
// when it already exists
func (s *SpawnerServer) createSessionHandler(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Geçersiz JSON formatı", http.StatusBadRequest)
		return
	}

	// Input validation
	if req.User == "" {
		http.Error(w, "Kullanıcı adı boş olamaz", http.StatusBadRequest)
		return
	}

	sp, err := s.newSpawner(req.User, req.ServerName, req.Profile, &req)
	if err != nil {
		s.logger.WithError(err).Error("Spawner oluşturulamadı")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Reuse the known state when the session was started before. The
	// reused spawner keeps its original settings; the new request cannot
	// change a session that may already be running.
	if existing, ok := s.lookupSession(sp.ServiceName()); ok {
		if req.hasOverrides() {
			s.logger.WithField("session", sp.ServiceName()).Warn("Mevcut session yeniden kullanılıyor, istekteki kaynak ayarları yok sayıldı")
		}
		if req.Profile != "" {
			existingProfile := ""
			if p := existing.Profile(); p != nil {
				existingProfile = p.Name
			}
			if req.Profile != existingProfile {
				s.logger.WithFields(logrus.Fields{
					"session":   sp.ServiceName(),
					"requested": req.Profile,
					"active":    existingProfile,
				}).Warn("Mevcut session farklı bir profil ile çalışıyor, istekteki profil yok sayıldı")
			}
		}
		sp = existing
	}

	address, port, err := sp.Start(r.Context())
	if err != nil {
		s.logger.WithError(err).WithField("session", sp.ServiceName()).Error("Session başlatılamadı")
		status := http.StatusInternalServerError
		if swarm.IsClientError(err) {
			status = http.StatusBadRequest
		}
		http.Error(w, "Session başlatılamadı", status)
		return
	}

	s.mutex.Lock()
	s.sessions[sp.ServiceName()] = sp
	s.mutex.Unlock()

	record := &storage.Session{
		Name:       sp.ServiceName(),
		User:       req.User,
		ServerName: req.ServerName,
		Profile:    req.Profile,
		Token:      sp.APIToken(),
		Address:    address,
		Port:       port,
		State:      sp.GetState(),
		Created:    time.Now(),
	}
	if err := s.storage.SaveSession(record); err != nil {
		s.logger.WithError(err).WithField("session", sp.ServiceName()).Warn("Session kaydedilemedi")
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sessionView(sp, address, port))
}

// listSessionsHandler lists the known sessions
func (s *SpawnerServer) listSessionsHandler(w http.ResponseWriter, r *http.Request) {
	s.mutex.RLock()
	views := make([]sessionResponse, 0, len(s.sessions))
	for _, sp := range s.sessions {
		views = append(views, sessionView(sp, sp.ServiceName(), s.config.Spawner.Port))
	}
	s.mutex.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(views)
}

// getSessionHandler returns one session
func (s *SpawnerServer) getSessionHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	name := vars["name"]

	sp, ok := s.lookupSession(name)
	if !ok {
		http.Error(w, "Session bulunamadı", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(sessionView(sp, sp.ServiceName(), s.config.Spawner.Port))
}

// sessionHealthHandler polls the session task state
func (s *SpawnerServer) sessionHealthHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	name := vars["name"]

	sp, ok := s.lookupSession(name)
	if !ok {
		http.Error(w, "Session bulunamadı", http.StatusNotFound)
		return
	}

	health, err := sp.Poll(r.Context())
	if err != nil {
		s.logger.WithError(err).WithField("session", name).Error("Session durumu alınamadı")
		http.Error(w, "Session durumu alınamadı", http.StatusInternalServerError)
		return
	}

	// A self-heal during the poll clears the stored service id; keep the
	// persisted state in sync.
	if record, loadErr := s.storage.LoadSession(name); loadErr == nil {
		record.State = sp.GetState()
		if saveErr := s.storage.SaveSession(record); saveErr != nil {
			s.logger.WithError(saveErr).WithField("session", name).Warn("Session kaydedilemedi")
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"health": health.String()})
}

// deleteSessionHandler stops a session and forgets it
func (s *SpawnerServer) deleteSessionHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	name := vars["name"]

	sp, ok := s.lookupSession(name)
	if !ok {
		http.Error(w, "Session bulunamadı", http.StatusNotFound)
		return
	}

	// Stop is best-effort and never fails
	sp.Stop(r.Context())

	s.mutex.Lock()
	delete(s.sessions, name)
	s.mutex.Unlock()

	if err := s.storage.DeleteSession(name); err != nil {
		s.logger.WithError(err).WithField("session", name).Warn("Session silinemedi")
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "stopped"})
}

// statsHandler handles getting daemon statistics
func (s *SpawnerServer) statsHandler(w http.ResponseWriter, r *http.Request) {
	storageStats, err := s.storage.GetStats()
	if err != nil {
		s.logger.WithError(err).Error("İstatistikler alınamadı")
		http.Error(w, "İstatistikler alınamadı", http.StatusInternalServerError)
		return
	}

	s.mutex.RLock()
	active := len(s.sessions)
	s.mutex.RUnlock()

	stats := map[string]interface{}{
		"active_sessions": active,
		"stored_sessions": storageStats["sessions"],
		"profiles":        len(s.config.Spawner.Profiles),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}
