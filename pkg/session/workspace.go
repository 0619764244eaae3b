package session

import (
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/forest6511/pman/pkg/registry"
	"github.com/forest6511/pman/pkg/vault"
)

// Loader reads the raw bytes of a vault file.
type Loader func(path string) ([]byte, error)

// Workspace ties the known-vaults registry to the sessions prepared from it.
type Workspace struct {
	v        vault.Vault
	reg      *registry.Registry
	load     Loader
	opts     []Option
	locOpts  func(registry.Location) []Option
	sessions map[string]*VaultSession
	log      *zap.Logger
}

// WorkspaceOption configures a Workspace.
type WorkspaceOption func(*Workspace)

// WithWorkspaceLogger sets the logger of the workspace and of every session
// it prepares.
func WithWorkspaceLogger(l *zap.Logger) WorkspaceOption {
	return func(w *Workspace) {
		if l != nil {
			w.log = l
			w.opts = append(w.opts, WithLogger(l))
		}
	}
}

// WithSessionOptions adds options applied to every session the workspace prepares.
func WithSessionOptions(opts ...Option) WorkspaceOption {
	return func(w *Workspace) { w.opts = append(w.opts, opts...) }
}

// NewWorkspace returns a workspace over an already loaded registry.
func NewWorkspace(v vault.Vault, reg *registry.Registry, load Loader, opts ...WorkspaceOption) *Workspace {
	w := &Workspace{
		v:        v,
		reg:      reg,
		load:     load,
		sessions: make(map[string]*VaultSession),
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// SetLocationOptions registers fn to add per-vault options, such as an
// auditor writing to a directory of its own, to every session prepared
// after the call.
func (w *Workspace) SetLocationOptions(fn func(registry.Location) []Option) {
	w.locOpts = fn
}

// Registry returns the registry the workspace was built with.
func (w *Workspace) Registry() *registry.Registry { return w.reg }

// AddVault reads and prepares a vault file and registers it.
// A file the vault cannot prepare is not registered. Sessions are named
// after the absolute path of their file.
func (w *Workspace) AddVault(path, name, keyFile string) (*VaultSession, error) {
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("session: invalid path: %w", err)
	}
	data, err := w.load(path)
	if err != nil {
		return nil, fmt.Errorf("session: failed to read %s: %w", path, err)
	}
	s, err := Prepare(w.v, data, path, w.opts...)
	if err != nil {
		return nil, err
	}
	loc, err := w.reg.Add(registry.Location{Name: name, Path: path, KeyFile: keyFile})
	if err != nil {
		s.Close()
		return nil, err
	}
	w.applyLocation(s, loc)
	w.sessions[loc.Name] = s
	w.log.Info("vault registered", zap.String("name", loc.Name))
	return s, nil
}

// RemoveVault closes the session of a vault and forgets it.
func (w *Workspace) RemoveVault(name string) error {
	if _, ok := w.reg.Get(name); !ok {
		return fmt.Errorf("%w: %s", registry.ErrNotFound, name)
	}
	if err := w.reg.Remove(name); err != nil {
		return err
	}
	if s, ok := w.sessions[name]; ok {
		s.Close()
		delete(w.sessions, name)
	}
	w.log.Info("vault removed", zap.String("name", name))
	return nil
}

// Session returns the session of a registered vault, preparing it on first use.
// A vault that fails to prepare yields a failed session and its error.
func (w *Workspace) Session(name string) (*VaultSession, error) {
	if s, ok := w.sessions[name]; ok {
		return s, s.Err()
	}
	loc, ok := w.reg.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", registry.ErrNotFound, name)
	}
	data, err := w.load(loc.Path)
	if err != nil {
		return nil, fmt.Errorf("session: failed to read %s: %w", loc.Path, err)
	}
	s, err := Prepare(w.v, data, loc.Path, w.opts...)
	w.applyLocation(s, loc)
	w.sessions[name] = s
	return s, err
}

func (w *Workspace) applyLocation(s *VaultSession, loc registry.Location) {
	if w.locOpts == nil {
		return
	}
	for _, opt := range w.locOpts(loc) {
		opt(s)
	}
}

// Sessions prepares every registered vault and returns the sessions in
// registry order. Failed sessions are included; check Err.
func (w *Workspace) Sessions() []*VaultSession {
	out := make([]*VaultSession, 0, len(w.reg.List()))
	for _, loc := range w.reg.List() {
		s, err := w.Session(loc.Name)
		if s == nil {
			w.log.Warn("vault unavailable", zap.String("name", loc.Name), zap.Error(err))
			continue
		}
		out = append(out, s)
	}
	return out
}

// Close closes every session.
func (w *Workspace) Close() {
	for name, s := range w.sessions {
		s.Close()
		delete(w.sessions, name)
	}
}
