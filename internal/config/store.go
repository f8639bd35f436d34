package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// File names inside the data directory
const (
	VergeFileName    = "verge.yaml"
	ClashFileName    = "config.yaml"
	ProfilesFileName = "profiles.yaml"
	RuntimeFileName  = "clash-verge.yaml"
	ProfilesDirName  = "profiles"
)

// Store is the process-wide handle on the persisted settings documents. It is opened
// once at startup, passed explicitly to whoever needs it and closed on shutdown.
//
// Reads (Latest, Clash) return copies. Writes (PatchVerge, PatchClash) only touch
// memory until the matching Save call.
type Store struct {
	mu    sync.RWMutex
	dir   string
	verge Verge
	clash ClashDoc
}

// Open loads verge.yaml and config.yaml from dir, falling back to defaults for
// missing files.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", dir, err)
	}

	s := &Store{
		dir:   dir,
		verge: DefaultVerge(),
		clash: DefaultClash(),
	}

	var verge Verge
	found, err := readYAML(s.VergePath(), &verge)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", VergeFileName, err)
	}
	if found {
		s.verge.Patch(verge)
	}

	clash := ClashDoc{}
	found, err = readYAML(s.ClashPath(), &clash)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", ClashFileName, err)
	}
	if found {
		s.clash.Patch(clash)
	}

	return s, nil
}

// Dir returns the data directory
func (s *Store) Dir() string { return s.dir }

// VergePath returns the path of the verge settings file
func (s *Store) VergePath() string { return filepath.Join(s.dir, VergeFileName) }

// ClashPath returns the path of the clash mapping file
func (s *Store) ClashPath() string { return filepath.Join(s.dir, ClashFileName) }

// RuntimePath returns the path of the generated runtime config the core loads
func (s *Store) RuntimePath() string { return filepath.Join(s.dir, RuntimeFileName) }

// ProfilesPath returns the path of the profile index
func (s *Store) ProfilesPath() string { return filepath.Join(s.dir, ProfilesFileName) }

// ProfilesDir returns the directory holding profile files
func (s *Store) ProfilesDir() string { return filepath.Join(s.dir, ProfilesDirName) }

// Latest returns a copy of the current verge settings.
func (s *Store) Latest() Verge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.verge.Clone()
}

// PatchVerge merges p into the in-memory verge settings.
func (s *Store) PatchVerge(p Verge) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verge.Patch(p)
}

// SaveVerge writes the verge settings to disk.
func (s *Store) SaveVerge() error {
	s.mu.RLock()
	verge := s.verge.Clone()
	s.mu.RUnlock()
	return writeYAML(s.VergePath(), verge)
}

// Clash returns a copy of the clash mapping.
func (s *Store) Clash() ClashDoc {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clash.Clone()
}

// PatchClash merges m into the in-memory clash mapping.
func (s *Store) PatchClash(m map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clash.Patch(m)
}

// SaveClash writes the clash mapping to disk.
func (s *Store) SaveClash() error {
	s.mu.RLock()
	clash := s.clash.Clone()
	s.mu.RUnlock()
	return writeYAML(s.ClashPath(), clash)
}

// Close flushes both documents.
func (s *Store) Close() error {
	return errors.Join(s.SaveVerge(), s.SaveClash())
}

func readYAML(path string, out any) (bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(data) == 0 {
		return false, nil
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return true, nil
}

// WriteYAML marshals v and writes it to path, creating parent directories.
func WriteYAML(path string, v any) error {
	return writeYAML(path, v)
}

func writeYAML(path string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// ReadYAML reads path into out. It reports false without error when the file does not exist.
func ReadYAML(path string, out any) (bool, error) {
	return readYAML(path, out)
}
