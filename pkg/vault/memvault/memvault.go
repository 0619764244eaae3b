// Package memvault is an in-memory vault.Vault for development and tests.
//
// It reads and writes a plain YAML document and performs no encryption.
// Production hosts plug in the real store behind the same interface.
package memvault

import (
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/crypto/sha3"
	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"

	"github.com/forest6511/pman/pkg/vault"
)

// Errors
var (
	ErrUnsupportedFormat = errors.New("memvault: unsupported file format")
	ErrUnknownHandle     = errors.New("memvault: database not found")
	ErrNotOpen           = errors.New("memvault: database is not open")
	ErrNotPreOpened      = errors.New("memvault: credentials were not checked")
	ErrWrongPassword     = errors.New("memvault: invalid password")
	ErrWrongKeyFile      = errors.New("memvault: invalid key file")
	ErrUnknownEntry      = errors.New("memvault: entity not found")
	ErrUnknownGroup      = errors.New("memvault: group not found")
	ErrUnknownUser       = errors.New("memvault: user not found")
	ErrUnknownProperty   = errors.New("memvault: invalid property id")
	ErrNameExists        = errors.New("memvault: item with the same name already exists")
	ErrEmptyName         = errors.New("memvault: name is empty")
	ErrGroupNotEmpty     = errors.New("memvault: group is not empty")
	ErrUserInUse         = errors.New("memvault: user name is in use")
	ErrBadVersion        = errors.New("memvault: invalid entity version")
)

// Extensions accepted by Prepare.
var Extensions = []string{".yaml", ".yml"}

// SaveFunc receives the serialized database on Save.
type SaveFunc func(name string, data []byte) error

// Option configures a Store.
type Option func(*Store)

// WithSaveFunc sets where saved databases go. Without it Save only marks
// the database clean.
func WithSaveFunc(fn SaveFunc) Option {
	return func(s *Store) { s.save = fn }
}

type entryRef struct {
	db uint64
	id uint32
}

// Store holds every prepared database. It is safe for concurrent use.
type Store struct {
	mu         sync.Mutex
	dbs        map[uint64]*database
	nextHandle uint64
	refs       map[vault.EntryHandle]entryRef
	tokens     map[entryRef]vault.EntryHandle
	nextToken  uint64
	save       SaveFunc
}

type database struct {
	name      string
	doc       *document
	preOpened bool
	open      bool

	groups  map[uint32]string
	users   map[uint32]string
	entries map[uint32]*entry
	nextID  uint32
}

type entry struct {
	versions []version // oldest first
}

type version struct {
	name     string
	groupID  uint32
	userID   uint32
	password string
	url      *string
	props    map[uint32]property
}

type property struct {
	name  string
	value string
}

var _ vault.Vault = (*Store)(nil)

// New returns an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		dbs:    make(map[uint64]*database),
		refs:   make(map[vault.EntryHandle]entryRef),
		tokens: make(map[entryRef]vault.EntryHandle),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HashKeyFile returns the digest recorded for a key file.
func HashKeyFile(data []byte) []byte {
	sum := sha3.Sum256(data)
	return sum[:]
}

func (s *Store) Prepare(data []byte, name string) (uint64, error) {
	if !supported(name) {
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}
	doc, err := parseDocument(data)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextHandle++
	s.dbs[s.nextHandle] = &database{name: name, doc: doc}
	return s.nextHandle, nil
}

func (s *Store) PreOpen(handle uint64, passwordHash, password2Hash, keyFile []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, ok := s.dbs[handle]
	if !ok {
		return ErrUnknownHandle
	}
	if !hashMatches(db.doc.PasswordHash, passwordHash) || !hashMatches(db.doc.Password2Hash, password2Hash) {
		return ErrWrongPassword
	}
	if db.doc.KeyFileHash != "" && !hashMatches(db.doc.KeyFileHash, HashKeyFile(keyFile)) {
		return ErrWrongKeyFile
	}
	db.preOpened = true
	return nil
}

func (s *Store) Open(handle uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, ok := s.dbs[handle]
	if !ok {
		return ErrUnknownHandle
	}
	if !db.preOpened {
		return ErrNotPreOpened
	}
	if db.open {
		return nil
	}
	if err := db.load(db.doc); err != nil {
		return err
	}
	db.open = true
	return nil
}

func (s *Store) GetGroups(handle uint64) ([]vault.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.openDB(handle)
	if err != nil {
		return nil, err
	}
	counts := make(map[uint32]uint32)
	for _, e := range db.entries {
		counts[e.latest().groupID]++
	}
	groups := make([]vault.Group, 0, len(db.groups))
	for id, name := range db.groups {
		groups = append(groups, vault.Group{ID: id, Name: name, EntryCount: counts[id]})
	}
	return groups, nil
}

func (s *Store) GetUsers(handle uint64) (map[uint32]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.openDB(handle)
	if err != nil {
		return nil, err
	}
	users := make(map[uint32]string, len(db.users))
	for id, name := range db.users {
		users[id] = name
	}
	return users, nil
}

func (s *Store) GetEntries(handle uint64, groupID uint32) (map[uint32]vault.EntryHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.openDB(handle)
	if err != nil {
		return nil, err
	}
	out := make(map[uint32]vault.EntryHandle)
	for id, e := range db.entries {
		if e.latest().groupID == groupID {
			out[id] = s.token(handle, id)
		}
	}
	return out, nil
}

func (s *Store) Search(handle uint64, text string) (vault.SearchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.openDB(handle)
	if err != nil {
		return nil, err
	}
	fold := cases.Fold()
	needle := fold.String(text)
	out := make(vault.SearchResult)
	for id, e := range db.entries {
		v := e.latest()
		if !strings.Contains(fold.String(v.name), needle) {
			continue
		}
		if out[v.groupID] == nil {
			out[v.groupID] = make(map[uint32]vault.EntryHandle)
		}
		out[v.groupID][id] = s.token(handle, id)
	}
	return out, nil
}

func (s *Store) GetPropertyNames(h vault.EntryHandle, ver uint32) (map[string]uint32, error) {
	v, err := s.version(h, ver)
	if err != nil {
		return nil, err
	}
	names := make(map[string]uint32, len(v.props))
	for id, p := range v.props {
		names[p.name] = id
	}
	return names, nil
}

func (s *Store) GetName(h vault.EntryHandle, ver uint32) (string, error) {
	v, err := s.version(h, ver)
	return v.name, err
}

func (s *Store) GetPassword(h vault.EntryHandle, ver uint32) (string, error) {
	v, err := s.version(h, ver)
	return v.password, err
}

func (s *Store) GetURL(h vault.EntryHandle, ver uint32) (*string, error) {
	v, err := s.version(h, ver)
	if err != nil || v.url == nil {
		return nil, err
	}
	u := *v.url
	return &u, nil
}

func (s *Store) GetGroupID(h vault.EntryHandle, ver uint32) (uint32, error) {
	v, err := s.version(h, ver)
	return v.groupID, err
}

func (s *Store) GetUserID(h vault.EntryHandle, ver uint32) (uint32, error) {
	v, err := s.version(h, ver)
	return v.userID, err
}

func (s *Store) GetPropertyValue(h vault.EntryHandle, ver uint32, propertyID uint32) (string, error) {
	v, err := s.version(h, ver)
	if err != nil {
		return "", err
	}
	p, ok := v.props[propertyID]
	if !ok {
		return "", ErrUnknownProperty
	}
	return p.value, nil
}

func (s *Store) GetMaxVersion(h vault.EntryHandle) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, e, err := s.resolve(h)
	if err != nil {
		return 0, err
	}
	return uint32(len(e.versions) - 1), nil
}

func (s *Store) CreateEntry(handle uint64, ne vault.NewEntry) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.openDB(handle)
	if err != nil {
		return 0, err
	}
	if err := db.checkGroup(ne.GroupID); err != nil {
		return 0, err
	}
	if err := db.checkUser(ne.UserID); err != nil {
		return 0, err
	}
	if err := db.checkEntryName(ne.GroupID, ne.Name, 0); err != nil {
		return 0, err
	}

	v := version{
		name:     ne.Name,
		groupID:  ne.GroupID,
		userID:   ne.UserID,
		password: ne.Password,
		url:      copyString(ne.URL),
		props:    make(map[uint32]property, len(ne.Properties)),
	}
	for name, value := range ne.Properties {
		if err := checkPropertyName(v.props, name); err != nil {
			return 0, err
		}
		v.props[db.allocID()] = property{name: name, value: value}
	}
	id := db.allocID()
	db.entries[id] = &entry{versions: []version{v}}
	return id, nil
}

func (s *Store) ModifyEntry(handle uint64, entryID uint32, patch vault.EntryPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.openDB(handle)
	if err != nil {
		return err
	}
	e, ok := db.entries[entryID]
	if !ok {
		return ErrUnknownEntry
	}

	next := e.latest().clone()
	if patch.GroupID != nil {
		if err := db.checkGroup(*patch.GroupID); err != nil {
			return err
		}
		if err := db.checkEntryName(*patch.GroupID, next.name, entryID); err != nil {
			return err
		}
		next.groupID = *patch.GroupID
	}
	if patch.UserID != nil {
		if err := db.checkUser(*patch.UserID); err != nil {
			return err
		}
		next.userID = *patch.UserID
	}
	if patch.Password != nil {
		next.password = *patch.Password
	}
	if patch.ChangeURL {
		next.url = nil
		if patch.URL != nil && *patch.URL != "" {
			next.url = copyString(patch.URL)
		}
	}
	for id, value := range patch.ModifiedProperties {
		p, ok := next.props[id]
		if !ok {
			return fmt.Errorf("%w: %d", ErrUnknownProperty, id)
		}
		if value == nil {
			delete(next.props, id)
			continue
		}
		p.value = *value
		next.props[id] = p
	}
	for name, value := range patch.NewProperties {
		if err := checkPropertyName(next.props, name); err != nil {
			return err
		}
		next.props[db.allocID()] = property{name: name, value: value}
	}

	e.versions = append(e.versions, next)
	return nil
}

func (s *Store) RenameEntry(handle uint64, entryID uint32, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.openDB(handle)
	if err != nil {
		return err
	}
	e, ok := db.entries[entryID]
	if !ok {
		return ErrUnknownEntry
	}
	if err := db.checkEntryName(e.latest().groupID, name, entryID); err != nil {
		return err
	}
	// Renames do not create a version.
	for i := range e.versions {
		e.versions[i].name = name
	}
	return nil
}

func (s *Store) RemoveEntry(handle uint64, entryID uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.openDB(handle)
	if err != nil {
		return err
	}
	if _, ok := db.entries[entryID]; !ok {
		return ErrUnknownEntry
	}
	delete(db.entries, entryID)
	ref := entryRef{db: handle, id: entryID}
	if tok, ok := s.tokens[ref]; ok {
		delete(s.refs, tok)
		delete(s.tokens, ref)
	}
	return nil
}

func (s *Store) AddGroup(handle uint64, name string) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.openDB(handle)
	if err != nil {
		return 0, err
	}
	return db.addItem(db.groups, name)
}

func (s *Store) RenameGroup(handle uint64, groupID uint32, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.openDB(handle)
	if err != nil {
		return err
	}
	if err := db.checkGroup(groupID); err != nil {
		return err
	}
	if err := checkItemName(db.groups, name); err != nil {
		return err
	}
	db.groups[groupID] = name
	return nil
}

func (s *Store) RemoveGroup(handle uint64, groupID uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.openDB(handle)
	if err != nil {
		return err
	}
	if err := db.checkGroup(groupID); err != nil {
		return err
	}
	for _, e := range db.entries {
		for _, v := range e.versions {
			if v.groupID == groupID {
				return ErrGroupNotEmpty
			}
		}
	}
	delete(db.groups, groupID)
	return nil
}

func (s *Store) AddUser(handle uint64, name string) (uint32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.openDB(handle)
	if err != nil {
		return 0, err
	}
	return db.addItem(db.users, name)
}

func (s *Store) RemoveUser(handle uint64, userID uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.openDB(handle)
	if err != nil {
		return err
	}
	if err := db.checkUser(userID); err != nil {
		return err
	}
	for _, e := range db.entries {
		for _, v := range e.versions {
			if v.userID == userID {
				return ErrUserInUse
			}
		}
	}
	delete(db.users, userID)
	return nil
}

func (s *Store) Save(handle uint64) error {
	s.mu.Lock()
	db, err := s.openDB(handle)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	doc := db.dump()
	name := db.name
	save := s.save
	s.mu.Unlock()

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("memvault: failed to encode: %w", err)
	}
	if save == nil {
		return nil
	}
	return save(name, data)
}

func (s *Store) RemoveVault(handle uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.dbs, handle)
	for ref, tok := range s.tokens {
		if ref.db == handle {
			delete(s.tokens, ref)
			delete(s.refs, tok)
		}
	}
}

func (s *Store) openDB(handle uint64) (*database, error) {
	db, ok := s.dbs[handle]
	if !ok {
		return nil, ErrUnknownHandle
	}
	if !db.open {
		return nil, ErrNotOpen
	}
	return db, nil
}

// token returns the stable handle of an entry, issuing one on first use.
func (s *Store) token(handle uint64, id uint32) vault.EntryHandle {
	ref := entryRef{db: handle, id: id}
	if tok, ok := s.tokens[ref]; ok {
		return tok
	}
	s.nextToken++
	tok := vault.EntryHandle(s.nextToken)
	s.tokens[ref] = tok
	s.refs[tok] = ref
	return tok
}

func (s *Store) resolve(h vault.EntryHandle) (*database, *entry, error) {
	ref, ok := s.refs[h]
	if !ok {
		return nil, nil, ErrUnknownEntry
	}
	db, err := s.openDB(ref.db)
	if err != nil {
		return nil, nil, err
	}
	e, ok := db.entries[ref.id]
	if !ok {
		return nil, nil, ErrUnknownEntry
	}
	return db, e, nil
}

// version returns a copy of one version; 0 is the latest, 1 the one before.
func (s *Store) version(h vault.EntryHandle, ver uint32) (version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, e, err := s.resolve(h)
	if err != nil {
		return version{}, err
	}
	if int(ver) >= len(e.versions) {
		return version{}, ErrBadVersion
	}
	return e.versions[len(e.versions)-1-int(ver)].clone(), nil
}

func (e *entry) latest() version { return e.versions[len(e.versions)-1] }

func (v version) clone() version {
	c := v
	c.url = copyString(v.url)
	c.props = make(map[uint32]property, len(v.props))
	for id, p := range v.props {
		c.props[id] = p
	}
	return c
}

func (db *database) allocID() uint32 {
	id := db.nextID
	db.nextID++
	return id
}

func (db *database) checkGroup(id uint32) error {
	if _, ok := db.groups[id]; !ok {
		return ErrUnknownGroup
	}
	return nil
}

func (db *database) checkUser(id uint32) error {
	if _, ok := db.users[id]; !ok {
		return ErrUnknownUser
	}
	return nil
}

// checkEntryName enforces unique entry names within a group. self is
// skipped so an entry does not collide with itself.
func (db *database) checkEntryName(groupID uint32, name string, self uint32) error {
	if name == "" {
		return ErrEmptyName
	}
	for id, e := range db.entries {
		v := e.latest()
		if id != self && v.groupID == groupID && v.name == name {
			return ErrNameExists
		}
	}
	return nil
}

func (db *database) addItem(items map[uint32]string, name string) (uint32, error) {
	if err := checkItemName(items, name); err != nil {
		return 0, err
	}
	id := db.allocID()
	items[id] = name
	return id, nil
}

func checkItemName(items map[uint32]string, name string) error {
	if name == "" {
		return ErrEmptyName
	}
	for _, n := range items {
		if n == name {
			return ErrNameExists
		}
	}
	return nil
}

func checkPropertyName(props map[uint32]property, name string) error {
	if name == "" {
		return ErrEmptyName
	}
	for _, p := range props {
		if p.name == name {
			return fmt.Errorf("%w: property %s", ErrNameExists, name)
		}
	}
	return nil
}

func hashMatches(stored string, got []byte) bool {
	want, err := hex.DecodeString(stored)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(want, got) == 1
}

func supported(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
