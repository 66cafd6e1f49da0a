package server

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/five82/nudge/internal/reminders"
	"github.com/five82/nudge/internal/remote"
)

// FileStore keeps the settings in a TOML file. Writes go to a temp file in
// the same directory and are renamed into place.
type FileStore struct {
	mu       sync.Mutex
	path     string
	fallback reminders.Settings
}

// NewFileStore returns a store at path. Get returns fallback until the first
// Put creates the file.
func NewFileStore(path string, fallback reminders.Settings) *FileStore {
	return &FileStore{path: path, fallback: fallback}
}

// Path returns the backing file.
func (s *FileStore) Path() string {
	return s.path
}

// Get reads the stored settings.
func (s *FileStore) Get() (reminders.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s.fallback, nil
		}
		return reminders.Settings{}, fmt.Errorf("read store: %w", err)
	}
	var p remote.Payload
	if err := toml.Unmarshal(data, &p); err != nil {
		return reminders.Settings{}, fmt.Errorf("parse store: %w", err)
	}
	settings, err := p.Settings()
	if err != nil {
		return reminders.Settings{}, fmt.Errorf("parse store: %w", err)
	}
	return settings, nil
}

// Put replaces the stored settings.
func (s *FileStore) Put(settings reminders.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(s.path) == "" {
		return errors.New("store path is empty")
	}
	data, err := toml.Marshal(remote.FromSettings(settings))
	if err != nil {
		return fmt.Errorf("marshal store: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".settings-*.toml")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace store: %w", err)
	}
	return nil
}
