// Package session caches the open view of a vault and turns user edits into
// minimal patches.
//
// A VaultSession is not safe for concurrent use. Hosts that serve several
// callers must serialize all calls on one session.
package session

import (
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/sha3"

	"github.com/forest6511/pman/pkg/audit"
	"github.com/forest6511/pman/pkg/vault"
)

// State is the lifecycle stage of a VaultSession.
type State int

const (
	StateUnprepared State = iota
	StatePrepared
	StateOpen
	StateClosed
	StateFailed
)

// String returns a human-readable representation of the state
func (s State) String() string {
	switch s {
	case StateUnprepared:
		return "unprepared"
	case StatePrepared:
		return "prepared"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Entry is one row of the selected group.
type Entry struct {
	ID     uint32
	Name   string
	Handle vault.EntryHandle
}

// IsNew reports whether the entry does not exist in the vault yet.
func (e Entry) IsNew() bool { return e.Handle == vault.NoEntry }

// Auditor receives a record of every operation that reaches the vault.
type Auditor interface {
	SetHMACKey(key []byte) error
	Record(op audit.Operation, subject string, err error)
}

// Option configures a VaultSession.
type Option func(*VaultSession)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(s *VaultSession) {
		if l != nil {
			s.log = l
		}
	}
}

// WithAuditor sets the audit sink.
func WithAuditor(a Auditor) Option {
	return func(s *VaultSession) { s.audit = a }
}

// HashPassword returns the digest handed to the vault instead of the password.
func HashPassword(password string) []byte {
	sum := sha3.Sum256([]byte(password))
	return sum[:]
}

// VaultSession is the cached view of one vault.
type VaultSession struct {
	v      vault.Vault
	name   string
	handle uint64
	state  State
	err    error

	groups        []vault.Group
	users         map[uint32]string
	selectedGroup *uint32
	entries       []Entry
	selectedEntry *uint32
	modified      bool

	edit *EntryEditSession

	log   *zap.Logger
	audit Auditor
}

// Prepare hands raw container bytes to the vault. When the vault rejects them
// the returned session is in StateFailed, carries the error and cannot be opened.
func Prepare(v vault.Vault, data []byte, name string, opts ...Option) (*VaultSession, error) {
	s := &VaultSession{
		v:     v,
		name:  name,
		state: StateUnprepared,
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	h, err := v.Prepare(data, name)
	if err != nil {
		s.state = StateFailed
		s.err = vaultErr("prepare", err)
		s.log.Warn("vault prepare failed", zap.String("vault", name), zap.Error(err))
		return s, s.err
	}
	s.handle = h
	s.state = StatePrepared
	s.log.Debug("vault prepared", zap.String("vault", name), zap.Uint64("handle", h))
	return s, nil
}

// Open checks the credentials and loads groups and users. The session only
// becomes open once every read succeeded.
func (s *VaultSession) Open(password1, password2 string, keyFile []byte) error {
	switch s.state {
	case StateFailed:
		return ErrPrepareFailed
	case StateOpen:
		return ErrAlreadyOpen
	case StateClosed:
		return ErrClosed
	}

	hash1 := HashPassword(password1)
	hash2 := HashPassword(password2)

	if err := s.v.PreOpen(s.handle, hash1, hash2, keyFile); err != nil {
		s.log.Info("vault credentials rejected", zap.String("vault", s.name))
		return vaultErr("pre_open", err)
	}
	if s.audit != nil {
		if err := s.audit.SetHMACKey(hash1); err != nil {
			s.log.Warn("audit key setup failed", zap.Error(err))
		}
	}
	if err := s.v.Open(s.handle); err != nil {
		s.record(audit.OpVaultOpen, s.name, err)
		return vaultErr("open", err)
	}

	groups, err := s.readGroups()
	if err != nil {
		s.record(audit.OpVaultOpen, s.name, err)
		return err
	}
	users, err := s.v.GetUsers(s.handle)
	if err != nil {
		s.record(audit.OpVaultOpen, s.name, err)
		return vaultErr("get_users", err)
	}

	s.groups = groups
	s.users = users
	s.state = StateOpen
	s.record(audit.OpVaultOpen, s.name, nil)
	s.log.Info("vault opened", zap.String("vault", s.name),
		zap.Int("groups", len(groups)), zap.Int("users", len(users)))
	return nil
}

// SelectGroup makes groupID the current group and loads its entries.
// If the vault fails, the entry list is emptied and the previous selection is kept.
func (s *VaultSession) SelectGroup(groupID uint32) error {
	if err := s.requireOpen(); err != nil {
		return err
	}
	s.selectedEntry = nil

	entries, err := s.readEntries(groupID)
	if err != nil {
		s.entries = nil
		return err
	}
	s.selectedGroup = &groupID
	s.entries = entries
	return nil
}

// ClearGroup drops the group selection. No vault call is made.
func (s *VaultSession) ClearGroup() error {
	if err := s.requireOpen(); err != nil {
		return err
	}
	s.selectedGroup = nil
	s.selectedEntry = nil
	s.entries = nil
	return nil
}

// SelectEntry marks an entry of the current group as selected.
func (s *VaultSession) SelectEntry(entryID uint32) error {
	if err := s.requireOpen(); err != nil {
		return err
	}
	if _, ok := s.Entry(entryID); !ok {
		return ErrEntryNotFound
	}
	s.selectedEntry = &entryID
	return nil
}

// RefreshGroups re-reads the groups and, if a group is selected, its entries.
// Nothing changes unless all reads succeed.
func (s *VaultSession) RefreshGroups() error {
	if err := s.requireOpen(); err != nil {
		return err
	}
	return s.refresh(s.selectedGroup)
}

// refresh rereads the groups and the entries of selected, then makes selected
// the selected group. Nothing changes unless every read succeeds.
func (s *VaultSession) refresh(selected *uint32) error {
	groups, err := s.readGroups()
	if err != nil {
		return err
	}
	var entries []Entry
	if selected != nil {
		entries, err = s.readEntries(*selected)
		if err != nil {
			return err
		}
	}

	s.groups = groups
	s.selectedGroup = selected
	s.entries = entries
	if s.selectedEntry != nil {
		if _, ok := s.Entry(*s.selectedEntry); !ok {
			s.selectedEntry = nil
		}
	}
	return nil
}

// FetchPropertyNames reads the property names of an entry. It is meant to be
// called only when the properties are about to be shown.
func (s *VaultSession) FetchPropertyNames(e Entry) (map[string]uint32, error) {
	if err := s.requireOpen(); err != nil {
		return nil, err
	}
	if e.IsNew() {
		return map[string]uint32{}, nil
	}
	names, err := s.v.GetPropertyNames(e.Handle, vault.LatestVersion)
	if err != nil {
		return nil, vaultErr("get_property_names", err)
	}
	return names, nil
}

// Persist asks the vault to write the container and clears the modified flag.
func (s *VaultSession) Persist() error {
	if err := s.requireOpen(); err != nil {
		return err
	}
	if err := s.v.Save(s.handle); err != nil {
		s.record(audit.OpVaultPersist, s.name, err)
		return vaultErr("save", err)
	}
	s.modified = false
	s.record(audit.OpVaultPersist, s.name, nil)
	s.log.Info("vault saved", zap.String("vault", s.name))
	return nil
}

// Close releases the vault handle and drops every cached value.
func (s *VaultSession) Close() {
	if s.state == StatePrepared || s.state == StateOpen {
		s.v.RemoveVault(s.handle)
		s.log.Debug("vault closed", zap.String("vault", s.name))
	}
	if s.state != StateFailed {
		s.state = StateClosed
	}
	s.groups = nil
	s.users = nil
	s.entries = nil
	s.selectedGroup = nil
	s.selectedEntry = nil
	s.edit = nil
}

// Name returns the name the vault was prepared with.
func (s *VaultSession) Name() string { return s.name }

// State returns the lifecycle stage.
func (s *VaultSession) State() State { return s.state }

// Err returns the prepare error of a failed session.
func (s *VaultSession) Err() error { return s.err }

// Modified reports whether there are changes not yet written by Persist.
func (s *VaultSession) Modified() bool { return s.modified }

// Groups returns the cached groups ordered by name.
func (s *VaultSession) Groups() []vault.Group {
	return append([]vault.Group(nil), s.groups...)
}

// Group returns the cached group with the given id.
func (s *VaultSession) Group(id uint32) (vault.Group, bool) {
	for _, g := range s.groups {
		if g.ID == id {
			return g, true
		}
	}
	return vault.Group{}, false
}

// GroupByName returns the cached group with the given name.
func (s *VaultSession) GroupByName(name string) (vault.Group, bool) {
	for _, g := range s.groups {
		if g.Name == name {
			return g, true
		}
	}
	return vault.Group{}, false
}

// Users returns a copy of the user table.
func (s *VaultSession) Users() map[uint32]string {
	out := make(map[uint32]string, len(s.users))
	for id, name := range s.users {
		out[id] = name
	}
	return out
}

// UserByName returns the id of the user with the given name.
func (s *VaultSession) UserByName(name string) (uint32, bool) {
	for _, id := range sortedUserIDs(s.users) {
		if s.users[id] == name {
			return id, true
		}
	}
	return 0, false
}

// SelectedGroup returns the selected group id.
func (s *VaultSession) SelectedGroup() (uint32, bool) {
	if s.selectedGroup == nil {
		return 0, false
	}
	return *s.selectedGroup, true
}

// SelectedEntry returns the selected entry id.
func (s *VaultSession) SelectedEntry() (uint32, bool) {
	if s.selectedEntry == nil {
		return 0, false
	}
	return *s.selectedEntry, true
}

// Entries returns the entries of the selected group ordered by name.
func (s *VaultSession) Entries() []Entry {
	return append([]Entry(nil), s.entries...)
}

// Entry returns the cached entry with the given id.
func (s *VaultSession) Entry(id uint32) (Entry, bool) {
	for _, e := range s.entries {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

// EntryByName returns the cached entry with the given name.
func (s *VaultSession) EntryByName(name string) (Entry, bool) {
	name = normalizeName(name)
	for _, e := range s.entries {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

// EditSession returns the entry edit session, if one is open.
func (s *VaultSession) EditSession() (*EntryEditSession, bool) {
	return s.edit, s.edit != nil
}

func (s *VaultSession) requireOpen() error {
	if s.state != StateOpen {
		return ErrNotOpen
	}
	return nil
}

func (s *VaultSession) readGroups() ([]vault.Group, error) {
	groups, err := s.v.GetGroups(s.handle)
	if err != nil {
		return nil, vaultErr("get_groups", err)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].Name != groups[j].Name {
			return groups[i].Name < groups[j].Name
		}
		return groups[i].ID < groups[j].ID
	})
	return groups, nil
}

func (s *VaultSession) readEntries(groupID uint32) ([]Entry, error) {
	handles, err := s.v.GetEntries(s.handle, groupID)
	if err != nil {
		return nil, vaultErr("get_entries", err)
	}
	entries, err := s.nameEntries(handles)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *VaultSession) nameEntries(handles map[uint32]vault.EntryHandle) ([]Entry, error) {
	entries := make([]Entry, 0, len(handles))
	for id, h := range handles {
		name, err := s.v.GetName(h, vault.LatestVersion)
		if err != nil {
			return nil, vaultErr("get_name", err)
		}
		entries = append(entries, Entry{ID: id, Name: name, Handle: h})
	}
	sortEntries(entries)
	return entries, nil
}

func (s *VaultSession) record(op audit.Operation, subject string, err error) {
	if s.audit != nil {
		s.audit.Record(op, subject, err)
	}
}

func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := strings.ToLower(entries[i].Name), strings.ToLower(entries[j].Name)
		if a != b {
			return a < b
		}
		return entries[i].ID < entries[j].ID
	})
}

func sortedUserIDs(users map[uint32]string) []uint32 {
	ids := make([]uint32, 0, len(users))
	for id := range users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
