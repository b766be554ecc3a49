package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/rios0rios0/gitrouter/internal/domain/repositories"
)

const (
	dirPerm  = 0o755
	filePerm = 0o600
)

// FileStorageRepository is a key-value store persisted as one YAML document.
// Every mutation rewrites the whole file.
type FileStorageRepository struct {
	fs   afero.Fs
	path string

	mu      sync.Mutex
	loaded  bool
	entries map[string]yaml.Node
}

// NewFileStorageRepository creates a store backed by path on fs.
func NewFileStorageRepository(fs afero.Fs, path string) repositories.StorageRepository {
	return &FileStorageRepository{fs: fs, path: path}
}

func (s *FileStorageRepository) Get(key string, out any) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(); err != nil {
		return false, err
	}
	node, ok := s.entries[key]
	if !ok {
		return false, nil
	}
	if err := node.Decode(out); err != nil {
		return false, fmt.Errorf("failed to decode stored value %q: %w", key, err)
	}
	return true, nil
}

func (s *FileStorageRepository) Store(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(); err != nil {
		return err
	}
	var node yaml.Node
	if err := node.Encode(value); err != nil {
		return fmt.Errorf("failed to encode value %q: %w", key, err)
	}
	s.entries[key] = node
	return s.flushLocked()
}

func (s *FileStorageRepository) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.loadLocked(); err != nil {
		return err
	}
	if _, ok := s.entries[key]; !ok {
		return nil
	}
	delete(s.entries, key)
	return s.flushLocked()
}

func (s *FileStorageRepository) loadLocked() error {
	if s.loaded {
		return nil
	}

	s.entries = make(map[string]yaml.Node)
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.loaded = true
			return nil
		}
		return fmt.Errorf("failed to read storage file %q: %w", s.path, err)
	}

	if unmarshalErr := yaml.Unmarshal(data, &s.entries); unmarshalErr != nil {
		// an unreadable file is treated as empty
		logger.Warnf("Discarding unreadable storage file %q: %v", s.path, unmarshalErr)
		s.entries = make(map[string]yaml.Node)
	}
	s.loaded = true
	return nil
}

func (s *FileStorageRepository) flushLocked() error {
	data, err := yaml.Marshal(s.entries)
	if err != nil {
		return fmt.Errorf("failed to encode storage: %w", err)
	}
	if err = s.fs.MkdirAll(filepath.Dir(s.path), dirPerm); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}
	if err = afero.WriteFile(s.fs, s.path, data, filePerm); err != nil {
		return fmt.Errorf("failed to write storage file %q: %w", s.path, err)
	}
	return nil
}
