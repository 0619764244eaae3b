package session

import (
	"strings"

	"go.uber.org/zap"

	"github.com/forest6511/pman/pkg/audit"
	"github.com/forest6511/pman/pkg/vault"
)

// EntryEditSession is one edit transaction over an existing or a new entry.
// Fields of an existing entry start collapsed and are read from the vault
// the first time they are edited.
type EntryEditSession struct {
	owner *VaultSession
	entry Entry

	name     EditableField[string]
	group    EditableField[uint32]
	user     EditableField[uint32]
	password EditableField[string]
	url      EditableField[string]

	props      *PropertySet
	propsShown bool
}

// EditEntry opens an edit session over an entry of the selected group.
func (s *VaultSession) EditEntry(entryID uint32) (*EntryEditSession, error) {
	if err := s.requireOpen(); err != nil {
		return nil, err
	}
	if s.edit != nil {
		return nil, ErrEditInProgress
	}
	e, ok := s.Entry(entryID)
	if !ok {
		return nil, ErrEntryNotFound
	}
	s.edit = newEditSession(s, e)
	return s.edit, nil
}

// NewEntry opens an edit session over an entry that does not exist yet.
func (s *VaultSession) NewEntry() (*EntryEditSession, error) {
	if err := s.requireOpen(); err != nil {
		return nil, err
	}
	if s.edit != nil {
		return nil, ErrEditInProgress
	}
	s.edit = newEditSession(s, Entry{})
	return s.edit, nil
}

func newEditSession(owner *VaultSession, e Entry) *EntryEditSession {
	es := &EntryEditSession{
		owner: owner,
		entry: e,
		props: NewPropertySet(),
	}
	if e.IsNew() {
		es.beginNew(owner.groups, owner.users)
	}
	return es
}

// beginNew puts every field in edit mode with its default.
func (e *EntryEditSession) beginNew(groups []vault.Group, users map[uint32]string) {
	var groupID, userID uint32
	if len(groups) > 0 {
		groupID = groups[0].ID
	}
	if ids := sortedUserIDs(users); len(ids) > 0 {
		userID = ids[0]
	}
	e.name.BeginEditWith("")
	e.group.BeginEditWith(groupID)
	e.user.BeginEditWith(userID)
	e.password.BeginEditWith("")
	e.url.BeginEditWith("")
	e.propsShown = true
}

// Entry returns the entry being edited.
func (e *EntryEditSession) Entry() Entry { return e.entry }

// IsNew reports whether the entry will be created on save.
func (e *EntryEditSession) IsNew() bool { return e.entry.IsNew() }

// Name returns the name field.
func (e *EntryEditSession) Name() *EditableField[string] { return &e.name }

// Group returns the group id field.
func (e *EntryEditSession) Group() *EditableField[uint32] { return &e.group }

// User returns the user id field.
func (e *EntryEditSession) User() *EditableField[uint32] { return &e.user }

// Password returns the password field.
func (e *EntryEditSession) Password() *EditableField[string] { return &e.password }

// URL returns the URL field. An entry without a URL reads as "".
func (e *EntryEditSession) URL() *EditableField[string] { return &e.url }

// Properties returns the property rows.
func (e *EntryEditSession) Properties() *PropertySet { return e.props }

// PropertiesShown reports whether the property rows were loaded.
func (e *EntryEditSession) PropertiesShown() bool { return e.propsShown }

// BeginEditName starts editing the name. Only new entries can be named here;
// use VaultSession.RenameEntry for existing ones.
func (e *EntryEditSession) BeginEditName() error {
	if !e.entry.IsNew() {
		return ErrNameReadOnly
	}
	return nil
}

// BeginEditGroup reads the group id of the entry and starts editing it.
func (e *EntryEditSession) BeginEditGroup() error {
	h := e.entry.Handle
	return e.group.BeginEdit(func() (uint32, error) {
		id, err := e.owner.v.GetGroupID(h, vault.LatestVersion)
		return id, vaultErr("get_group_id", err)
	})
}

// BeginEditUser reads the user id of the entry and starts editing it.
func (e *EntryEditSession) BeginEditUser() error {
	h := e.entry.Handle
	return e.user.BeginEdit(func() (uint32, error) {
		id, err := e.owner.v.GetUserID(h, vault.LatestVersion)
		return id, vaultErr("get_user_id", err)
	})
}

// BeginEditPassword reads the password of the entry and starts editing it.
func (e *EntryEditSession) BeginEditPassword() error {
	h := e.entry.Handle
	return e.password.BeginEdit(func() (string, error) {
		p, err := e.owner.v.GetPassword(h, vault.LatestVersion)
		return p, vaultErr("get_password", err)
	})
}

// BeginEditURL reads the URL of the entry and starts editing it.
func (e *EntryEditSession) BeginEditURL() error {
	h := e.entry.Handle
	return e.url.BeginEdit(func() (string, error) {
		u, err := e.owner.v.GetURL(h, vault.LatestVersion)
		if err != nil {
			return "", vaultErr("get_url", err)
		}
		if u == nil {
			return "", nil
		}
		return *u, nil
	})
}

// SetName sets the name of a new entry.
func (e *EntryEditSession) SetName(name string) error {
	if err := e.BeginEditName(); err != nil {
		return err
	}
	return e.name.SetValue(normalizeName(name))
}

// SetGroup moves the entry to another group.
func (e *EntryEditSession) SetGroup(groupID uint32) error {
	if err := e.BeginEditGroup(); err != nil {
		return err
	}
	return e.group.SetValue(groupID)
}

// SetUser changes the user of the entry.
func (e *EntryEditSession) SetUser(userID uint32) error {
	if err := e.BeginEditUser(); err != nil {
		return err
	}
	return e.user.SetValue(userID)
}

// SetPassword changes the password of the entry.
func (e *EntryEditSession) SetPassword(password string) error {
	if err := e.BeginEditPassword(); err != nil {
		return err
	}
	return e.password.SetValue(password)
}

// SetURL changes the URL. An empty string clears it.
func (e *EntryEditSession) SetURL(url string) error {
	if err := e.BeginEditURL(); err != nil {
		return err
	}
	return e.url.SetValue(strings.TrimSpace(url))
}

// ShowProperties loads the property names of the entry. Values stay in the
// vault until a property is edited.
func (e *EntryEditSession) ShowProperties() error {
	if e.propsShown {
		return nil
	}
	names, err := e.owner.FetchPropertyNames(e.entry)
	if err != nil {
		return err
	}
	e.props.Load(names)
	e.propsShown = true
	return nil
}

// BeginEditProperty starts editing a property value.
func (e *EntryEditSession) BeginEditProperty(id int64) error {
	p, ok := e.props.Get(id)
	if !ok {
		return ErrPropertyUnknown
	}
	if !p.Persisted() {
		return nil
	}
	h := e.entry.Handle
	return p.Value.BeginEdit(func() (string, error) {
		v, err := e.owner.v.GetPropertyValue(h, vault.LatestVersion, uint32(id))
		return v, vaultErr("get_property_value", err)
	})
}

// SetProperty sets the value of a property row.
func (e *EntryEditSession) SetProperty(id int64, value string) error {
	if err := e.BeginEditProperty(id); err != nil {
		return err
	}
	p, _ := e.props.Get(id)
	return p.Value.SetValue(value)
}

// AddProperty appends a new property row with a name and value.
func (e *EntryEditSession) AddProperty(name, value string) (int64, error) {
	if _, ok := e.props.Find(name); ok {
		return 0, ErrDuplicateName
	}
	id := e.props.Add()
	if err := e.props.SetName(id, name); err != nil {
		return id, err
	}
	p, _ := e.props.Get(id)
	return id, p.Value.SetValue(value)
}

// DeleteProperty marks a property row as deleted.
func (e *EntryEditSession) DeleteProperty(id int64) {
	e.props.MarkDeleted(id)
}

// BuildPatch returns the changes of an existing entry. Fields that were not
// edited, or were edited back to their initial value, are left out.
func (e *EntryEditSession) BuildPatch() vault.EntryPatch {
	var patch vault.EntryPatch
	if v, ok := e.group.Delta(); ok {
		patch.GroupID = &v
	}
	if v, ok := e.user.Delta(); ok {
		patch.UserID = &v
	}
	if v, ok := e.password.Delta(); ok {
		patch.Password = &v
	}
	if v, ok := e.url.Delta(); ok {
		patch.URL = &v
		patch.ChangeURL = true
	}
	patch.NewProperties = e.props.NewPairs()
	patch.ModifiedProperties = e.props.ModifiedPairs()
	return patch
}

// BuildNewEntry validates a new entry and returns what will be created.
func (e *EntryEditSession) BuildNewEntry() (vault.NewEntry, error) {
	name := normalizeName(e.name.Value())
	if name == "" {
		return vault.NewEntry{}, &ValidationError{Field: "name", Message: "name is required"}
	}
	groupID := e.group.Value()
	if _, ok := e.owner.Group(groupID); !ok {
		return vault.NewEntry{}, &ValidationError{Field: "group", Message: "group is required"}
	}
	userID := e.user.Value()
	if _, ok := e.owner.users[userID]; !ok {
		return vault.NewEntry{}, &ValidationError{Field: "user", Message: "user is required"}
	}
	password := e.password.Value()
	if password == "" {
		return vault.NewEntry{}, &ValidationError{Field: "password", Message: "password is required"}
	}

	ne := vault.NewEntry{
		GroupID:    groupID,
		UserID:     userID,
		Name:       name,
		Password:   password,
		Properties: e.props.NewPairs(),
	}
	if u := e.url.Value(); u != "" {
		ne.URL = &u
	}
	return ne, nil
}

// Save sends the edit to the vault and refreshes the session.
// On a vault error nothing in vs changes and the edit session stays open.
// A *RefreshError means the vault took the change and the edit session is
// closed, but the cached groups and entries are stale.
func (e *EntryEditSession) Save(vs *VaultSession) error {
	return vs.saveEdit(e)
}

// Cancel drops every edit and closes the edit session.
func (e *EntryEditSession) Cancel(vs *VaultSession) {
	vs.cancelEdit(e)
}

func (e *EntryEditSession) reset() {
	e.name.Reset()
	e.group.Reset()
	e.user.Reset()
	e.password.Reset()
	e.url.Reset()
	e.props.Reset()
	e.propsShown = false
}

func (s *VaultSession) saveEdit(e *EntryEditSession) error {
	if err := s.requireOpen(); err != nil {
		return err
	}
	if s.edit == nil {
		return ErrNoEditSession
	}
	if s.edit != e {
		return ErrStaleEdit
	}

	if e.IsNew() {
		ne, err := e.BuildNewEntry()
		if err != nil {
			return err
		}
		id, err := s.v.CreateEntry(s.handle, ne)
		if err != nil {
			s.record(audit.OpEntryCreate, ne.Name, err)
			return vaultErr("create_entry", err)
		}
		s.record(audit.OpEntryCreate, ne.Name, nil)
		s.log.Debug("entry created", zap.String("vault", s.name), zap.Uint32("entry_id", id))
	} else {
		patch := e.BuildPatch()
		if patch.IsEmpty() {
			s.edit = nil
			return nil
		}
		if err := s.v.ModifyEntry(s.handle, e.entry.ID, patch); err != nil {
			s.record(audit.OpEntryModify, e.entry.Name, err)
			return vaultErr("modify_entry", err)
		}
		s.record(audit.OpEntryModify, e.entry.Name, nil)
		s.log.Debug("entry modified", zap.String("vault", s.name), zap.Uint32("entry_id", e.entry.ID),
			zap.Int("new_properties", len(patch.NewProperties)),
			zap.Int("modified_properties", len(patch.ModifiedProperties)))
	}

	s.modified = true
	s.edit = nil
	return refreshed(s.RefreshGroups())
}

func (s *VaultSession) cancelEdit(e *EntryEditSession) {
	if s.edit != e {
		return
	}
	e.reset()
	s.edit = nil
}
