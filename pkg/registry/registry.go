// Package registry keeps the list of vault files known to the client.
// The list is owned by the host application and persisted through a Store.
package registry

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Registry limits
const (
	MaxNameLength = 128
	MaxLocations  = 256
)

// Errors
var (
	ErrNameEmpty      = errors.New("registry: vault name is empty")
	ErrNameTooLong    = errors.New("registry: vault name too long")
	ErrPathEmpty      = errors.New("registry: vault path is empty")
	ErrNameExists     = errors.New("registry: a vault with this name is already registered")
	ErrPathExists     = errors.New("registry: this file is already registered")
	ErrNotFound       = errors.New("registry: vault not found")
	ErrTooManyEntries = errors.New("registry: too many vaults")
)

// Location is one known vault file.
type Location struct {
	ID      string `yaml:"id"`
	Name    string `yaml:"name"`
	Path    string `yaml:"path"`
	KeyFile string `yaml:"key_file,omitempty"`
}

// Store loads and saves the list of locations.
type Store interface {
	Load() ([]Location, error)
	Save(locations []Location) error
}

// Registry is the ordered list of known vaults.
type Registry struct {
	store     Store
	locations []Location
}

// New returns an empty registry backed by store. Call Load to read it.
func New(store Store) *Registry {
	return &Registry{store: store}
}

// Load replaces the in-memory list with the stored one.
func (r *Registry) Load() error {
	locs, err := r.store.Load()
	if err != nil {
		return fmt.Errorf("registry: failed to load: %w", err)
	}
	r.locations = locs
	return nil
}

// Add registers a vault file. An empty name defaults to the file name
// without extension. The list is saved before it changes in memory.
func (r *Registry) Add(loc Location) (Location, error) {
	if strings.TrimSpace(loc.Path) == "" {
		return Location{}, ErrPathEmpty
	}
	if abs, err := filepath.Abs(loc.Path); err == nil {
		loc.Path = abs
	}
	if loc.Name == "" {
		base := filepath.Base(loc.Path)
		loc.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	loc.Name = strings.TrimSpace(loc.Name)
	if err := validateName(loc.Name); err != nil {
		return Location{}, err
	}
	if len(r.locations) >= MaxLocations {
		return Location{}, ErrTooManyEntries
	}
	for _, l := range r.locations {
		if l.Name == loc.Name {
			return Location{}, fmt.Errorf("%w: %s", ErrNameExists, loc.Name)
		}
		if l.Path == loc.Path {
			return Location{}, fmt.Errorf("%w: %s", ErrPathExists, loc.Path)
		}
	}
	if loc.ID == "" {
		loc.ID = uuid.New().String()
	}

	next := append(r.List(), loc)
	if err := r.store.Save(next); err != nil {
		return Location{}, fmt.Errorf("registry: failed to save: %w", err)
	}
	r.locations = next
	return loc, nil
}

// Remove forgets a vault. The file itself is not touched.
func (r *Registry) Remove(name string) error {
	idx := r.index(name)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	next := make([]Location, 0, len(r.locations)-1)
	next = append(next, r.locations[:idx]...)
	next = append(next, r.locations[idx+1:]...)
	if err := r.store.Save(next); err != nil {
		return fmt.Errorf("registry: failed to save: %w", err)
	}
	r.locations = next
	return nil
}

// SetKeyFile records the key file used to open a vault.
func (r *Registry) SetKeyFile(name, keyFile string) error {
	idx := r.index(name)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	next := r.List()
	next[idx].KeyFile = keyFile
	if err := r.store.Save(next); err != nil {
		return fmt.Errorf("registry: failed to save: %w", err)
	}
	r.locations = next
	return nil
}

// Get returns the location registered under name.
func (r *Registry) Get(name string) (Location, bool) {
	if idx := r.index(name); idx >= 0 {
		return r.locations[idx], true
	}
	return Location{}, false
}

// List returns a copy of the known locations in registration order.
func (r *Registry) List() []Location {
	return append([]Location(nil), r.locations...)
}

// Names returns the registered names in order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.locations))
	for _, l := range r.locations {
		names = append(names, l.Name)
	}
	return names
}

func (r *Registry) index(name string) int {
	for i, l := range r.locations {
		if l.Name == name {
			return i
		}
	}
	return -1
}

func validateName(name string) error {
	if name == "" {
		return ErrNameEmpty
	}
	if len(name) > MaxNameLength {
		return ErrNameTooLong
	}
	return nil
}
