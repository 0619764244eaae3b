package registry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// yamlVersion is the format version written by YAMLStore.
const yamlVersion = 1

// FileMode is the permission of registry files.
const FileMode = 0600

type yamlDocument struct {
	Version int        `yaml:"version"`
	Vaults  []Location `yaml:"vaults"`
}

// YAMLStore keeps the registry in a YAML file.
type YAMLStore struct {
	path string
}

// NewYAMLStore returns a store for the file at path. The file is created on first save.
func NewYAMLStore(path string) *YAMLStore {
	return &YAMLStore{path: path}
}

// Path returns the file path.
func (s *YAMLStore) Path() string { return s.path }

// Load reads the file. A missing file is an empty registry.
func (s *YAMLStore) Load() ([]Location, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("registry: failed to read %s: %w", s.path, err)
	}

	var doc yamlDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("registry: failed to parse %s: %w", s.path, err)
	}
	if doc.Version != 0 && doc.Version != yamlVersion {
		return nil, fmt.Errorf("registry: unsupported file version: %d", doc.Version)
	}
	return doc.Vaults, nil
}

// Save replaces the file atomically.
func (s *YAMLStore) Save(locations []Location) error {
	data, err := yaml.Marshal(yamlDocument{Version: yamlVersion, Vaults: locations})
	if err != nil {
		return fmt.Errorf("registry: failed to encode: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("registry: failed to create directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".registry-*.yaml")
	if err != nil {
		return fmt.Errorf("registry: failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(FileMode); err != nil {
		tmp.Close()
		return fmt.Errorf("registry: failed to set permissions: %w", err)
	}
	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if writeErr != nil {
		return fmt.Errorf("registry: failed to write: %w", writeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("registry: failed to close: %w", closeErr)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("registry: failed to replace %s: %w", s.path, err)
	}
	return nil
}
