package storage

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"sync"
	"time"

	"beluga/pkg/spawner"

	"github.com/sirupsen/logrus"
)

// Session is the persisted record of one spawned session. The spawner
// state inside is stored and returned verbatim.
type Session struct {
	Name       string        `json:"name"`
	User       string        `json:"user"`
	ServerName string        `json:"server_name,omitempty"`
	Profile    string        `json:"profile,omitempty"`
	Token      string        `json:"token,omitempty"`
	Address    string        `json:"address,omitempty"`
	Port       int           `json:"port,omitempty"`
	State      spawner.State `json:"state"`
	Created    time.Time     `json:"created"`
}

// Storage handles persistent storage of session records
type Storage struct {
	dataDir string
	mutex   sync.RWMutex
	logger  *logrus.Logger
}

// NewStorage creates a new storage instance
func NewStorage(dataDir string, logger *logrus.Logger) (*Storage, error) {
	// Create data directory if it doesn't exist
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("data dizini oluşturulamadı: %w", err)
	}

	sessionsDir := filepath.Join(dataDir, "sessions")
	if err := os.MkdirAll(sessionsDir, 0755); err != nil {
		return nil, fmt.Errorf("alt dizin oluşturulamadı (sessions): %w", err)
	}

	return &Storage{
		dataDir: dataDir,
		logger:  logger,
	}, nil
}

// SaveSession saves a session record to storage
func (s *Storage) SaveSession(session *Session) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("session serialize edilemedi: %w", err)
	}

	filePath := s.sessionPath(session.Name)
	if err := ioutil.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("session kaydedilemedi: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"session": session.Name,
		"user":    session.User,
		"file":    filePath,
	}).Debug("Session kaydedildi")

	return nil
}

// LoadSession loads a session record from storage
func (s *Storage) LoadSession(name string) (*Session, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	data, err := ioutil.ReadFile(s.sessionPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("session bulunamadı: %s", name)
		}
		return nil, fmt.Errorf("session okunamadı: %w", err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("session parse edilemedi: %w", err)
	}

	return &session, nil
}

// LoadAllSessions loads all session records from storage
func (s *Storage) LoadAllSessions() ([]*Session, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	sessionsDir := filepath.Join(s.dataDir, "sessions")
	files, err := ioutil.ReadDir(sessionsDir)
	if err != nil {
		return nil, fmt.Errorf("sessions dizini okunamadı: %w", err)
	}

	var sessions []*Session
	for _, file := range files {
		if filepath.Ext(file.Name()) != ".json" {
			continue
		}

		filePath := filepath.Join(sessionsDir, file.Name())
		data, err := ioutil.ReadFile(filePath)
		if err != nil {
			s.logger.WithError(err).WithField("file", filePath).Warn("Session dosyası okunamadı")
			continue
		}

		var session Session
		if err := json.Unmarshal(data, &session); err != nil {
			s.logger.WithError(err).WithField("file", filePath).Warn("Session parse edilemedi")
			continue
		}

		sessions = append(sessions, &session)
	}

	return sessions, nil
}

// DeleteSession deletes a session record from storage
func (s *Storage) DeleteSession(name string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	filePath := s.sessionPath(name)
	if err := os.Remove(filePath); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("session bulunamadı: %s", name)
		}
		return fmt.Errorf("session silinemedi: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"session": name,
		"file":    filePath,
	}).Debug("Session silindi")

	return nil
}

// GetStats returns storage statistics
func (s *Storage) GetStats() (map[string]int, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	sessionsDir := filepath.Join(s.dataDir, "sessions")
	files, err := ioutil.ReadDir(sessionsDir)
	if err != nil {
		return nil, fmt.Errorf("sessions dizini okunamadı: %w", err)
	}

	count := 0
	for _, file := range files {
		if filepath.Ext(file.Name()) == ".json" {
			count++
		}
	}

	return map[string]int{"sessions": count}, nil
}

func (s *Storage) sessionPath(name string) string {
	return filepath.Join(s.dataDir, "sessions", fmt.Sprintf("%s.json", name))
}
