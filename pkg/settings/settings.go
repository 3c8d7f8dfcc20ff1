// Package settings manages per-user security settings with defaults
// created on first access.
package settings

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/khadijaf/securevault/internal/storage"
)

// Settings holds one user's security parameters.
type Settings struct {
	AutoLockMinutes   int `json:"auto_lock_minutes"`
	LockoutMinutes    int `json:"lockout_minutes"`
	MaxFailedAttempts int `json:"max_failed_attempts"`
}

// Defaults returns the settings assigned to a user on first access.
func Defaults() Settings {
	return Settings{
		AutoLockMinutes:   1,
		LockoutMinutes:    5,
		MaxFailedAttempts: 5,
	}
}

// ErrInvalidSetting indicates a non-positive settings value.
var ErrInvalidSetting = errors.New("settings: values must be positive")

// Store persists the per-user settings document.
type Store struct {
	store storage.DocStore
	mu    sync.Mutex
}

// NewStore creates a settings store backed by the given document store.
func NewStore(store storage.DocStore) *Store {
	return &Store{store: store}
}

// Get returns the user's settings, creating and persisting defaults if
// the user has none yet.
func (s *Store) Get(user string) (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.loadAll()
	if existing, ok := all[user]; ok {
		return existing, nil
	}

	all[user] = Defaults()
	if err := s.store.Save(storage.DocSettings, all); err != nil {
		return Settings{}, fmt.Errorf("settings: failed to persist defaults: %w", err)
	}
	return all[user], nil
}

// Set validates and replaces the user's settings.
func (s *Store) Set(user string, cfg Settings) error {
	if cfg.AutoLockMinutes <= 0 || cfg.LockoutMinutes <= 0 || cfg.MaxFailedAttempts <= 0 {
		return ErrInvalidSetting
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.loadAll()
	all[user] = cfg
	if err := s.store.Save(storage.DocSettings, all); err != nil {
		return fmt.Errorf("settings: failed to persist: %w", err)
	}
	return nil
}

// loadAll reads the settings document; missing or corrupt reads yield an
// empty map.
func (s *Store) loadAll() map[string]Settings {
	all := make(map[string]Settings)
	if err := s.store.Load(storage.DocSettings, &all); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			fmt.Fprintf(os.Stderr, "warning: failed to read settings, using defaults: %v\n", err)
		}
		return make(map[string]Settings)
	}
	return all
}
