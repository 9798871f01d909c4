// Package storage persists the user's DataSetIQ credential, favorites,
// recents and formula templates. The core only ever reads the credential;
// all mutation happens through this package.
package storage

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
)

const (
	stateFile = "seriesbridge.json"

	// FavoritesCap bounds the favorites list
	FavoritesCap = 50
	// RecentsCap bounds the recents list
	RecentsCap = 20
)

// KeyStore is the credential collaborator the series facade depends on.
// A false supported flag means the current host has no usable storage and
// every facade operation must short-circuit with the connect sentinel.
type KeyStore interface {
	APIKey() (key string, supported bool)
	SetAPIKey(key string) error
	ClearAPIKey() error
}

// Template is a named bundle of formulas that can be exported and
// re-imported as JSON.
type Template struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Formulas []string `json:"formulas"`
}

// state is the on-disk shape of the store.
type state struct {
	APIKey    string     `json:"api_key,omitempty"`
	Favorites []string   `json:"favorites,omitempty"`
	Recents   []string   `json:"recents,omitempty"`
	Templates []Template `json:"templates,omitempty"`
}

// FileStore keeps the store state in a single JSON file on an afero
// filesystem, so tests can run against an in-memory one.
type FileStore struct {
	fs   afero.Fs
	path string
	mu   sync.Mutex
}

// NewFileStore creates a store rooted at dir on the given filesystem.
func NewFileStore(fs afero.Fs, dir string) *FileStore {
	return &FileStore{
		fs:   fs,
		path: filepath.Join(dir, stateFile),
	}
}

// APIKey returns the stored credential. supported is false when the
// backing filesystem cannot be used at all.
func (s *FileStore) APIKey() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load()
	if err != nil {
		return "", false
	}
	return st.APIKey, true
}

// SetAPIKey stores the credential.
func (s *FileStore) SetAPIKey(key string) error {
	return s.update(func(st *state) {
		st.APIKey = key
	})
}

// ClearAPIKey removes the credential.
func (s *FileStore) ClearAPIKey() error {
	return s.update(func(st *state) {
		st.APIKey = ""
	})
}

// Favorites returns the favorites list, most recently added first.
func (s *FileStore) Favorites() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load()
	if err != nil {
		return nil
	}
	return st.Favorites
}

// AddFavorite puts the series at the front of the favorites list.
// Duplicates are ignored and the list is capped at FavoritesCap.
func (s *FileStore) AddFavorite(seriesID string) error {
	return s.update(func(st *state) {
		for _, id := range st.Favorites {
			if id == seriesID {
				return
			}
		}
		st.Favorites = prepend(st.Favorites, seriesID, FavoritesCap)
	})
}

// RemoveFavorite drops the series from the favorites list.
func (s *FileStore) RemoveFavorite(seriesID string) error {
	return s.update(func(st *state) {
		st.Favorites = remove(st.Favorites, seriesID)
	})
}

// Recents returns the recently used series, most recent first.
func (s *FileStore) Recents() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load()
	if err != nil {
		return nil
	}
	return st.Recents
}

// AddRecent moves the series to the front of the recents list, capped at
// RecentsCap.
func (s *FileStore) AddRecent(seriesID string) error {
	return s.update(func(st *state) {
		st.Recents = prepend(remove(st.Recents, seriesID), seriesID, RecentsCap)
	})
}

// Templates returns the stored formula templates.
func (s *FileStore) Templates() []Template {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load()
	if err != nil {
		return nil
	}
	return st.Templates
}

// SaveTemplate stores a template, replacing any existing one with the
// same ID.
func (s *FileStore) SaveTemplate(t Template) error {
	return s.update(func(st *state) {
		for i, existing := range st.Templates {
			if existing.ID == t.ID {
				st.Templates[i] = t
				return
			}
		}
		st.Templates = append(st.Templates, t)
	})
}

// DeleteTemplate removes the template with the given ID.
func (s *FileStore) DeleteTemplate(id string) error {
	return s.update(func(st *state) {
		kept := st.Templates[:0]
		for _, t := range st.Templates {
			if t.ID != id {
				kept = append(kept, t)
			}
		}
		st.Templates = kept
	})
}

// ExportTemplates renders all templates as JSON.
func (s *FileStore) ExportTemplates() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load()
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(st.Templates, "", "  ")
}

// ImportTemplates merges templates from exported JSON and returns how many
// were imported.
func (s *FileStore) ImportTemplates(data []byte) (int, error) {
	var imported []Template
	if err := json.Unmarshal(data, &imported); err != nil {
		return 0, fmt.Errorf("invalid template file: %w", err)
	}

	err := s.update(func(st *state) {
		for _, t := range imported {
			replaced := false
			for i, existing := range st.Templates {
				if existing.ID == t.ID {
					st.Templates[i] = t
					replaced = true
					break
				}
			}
			if !replaced {
				st.Templates = append(st.Templates, t)
			}
		}
	})
	if err != nil {
		return 0, err
	}
	return len(imported), nil
}

func (s *FileStore) update(mutate func(*state)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load()
	if err != nil {
		return err
	}
	mutate(st)
	return s.save(st)
}

func (s *FileStore) load() (*state, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		// A missing file is an empty store; anything else means the
		// host has no usable storage.
		if exists, statErr := afero.Exists(s.fs, s.path); statErr == nil && !exists {
			return &state{}, nil
		}
		return nil, fmt.Errorf("read store: %w", err)
	}

	var st state
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("decode store: %w", err)
	}
	return &st, nil
}

func (s *FileStore) save(st *state) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}
	if err := afero.WriteFile(s.fs, s.path, data, 0o600); err != nil {
		return fmt.Errorf("write store: %w", err)
	}
	return nil
}

func prepend(list []string, v string, limit int) []string {
	list = append([]string{v}, list...)
	if len(list) > limit {
		list = list[:limit]
	}
	return list
}

func remove(list []string, v string) []string {
	kept := list[:0]
	for _, id := range list {
		if id != v {
			kept = append(kept, id)
		}
	}
	return kept
}
