package session

import (
	"sort"

	"go.uber.org/zap"

	"github.com/forest6511/pman/pkg/audit"
)

// SearchHit is one entry found by Search.
type SearchHit struct {
	GroupID   uint32
	GroupName string
	Entry     Entry
}

// EntryView is a fully read version of one entry.
type EntryView struct {
	ID         uint32
	Version    uint32
	MaxVersion uint32
	Name       string
	GroupID    uint32
	UserID     uint32
	Password   string
	URL        *string
	Properties map[string]string
}

// Search looks up entries whose name contains text, ignoring case.
// The cache is not touched.
func (s *VaultSession) Search(text string) ([]SearchHit, error) {
	if err := s.requireOpen(); err != nil {
		return nil, err
	}
	found, err := s.v.Search(s.handle, text)
	if err != nil {
		return nil, vaultErr("search", err)
	}

	var hits []SearchHit
	for groupID, handles := range found {
		entries, err := s.nameEntries(handles)
		if err != nil {
			return nil, err
		}
		groupName := ""
		if g, ok := s.Group(groupID); ok {
			groupName = g.Name
		}
		for _, e := range entries {
			hits = append(hits, SearchHit{GroupID: groupID, GroupName: groupName, Entry: e})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].GroupName != hits[j].GroupName {
			return hits[i].GroupName < hits[j].GroupName
		}
		return hits[i].GroupID < hits[j].GroupID
	})
	return hits, nil
}

// ReadEntry reads every field of one version of an entry of the selected group.
// Use vault.LatestVersion for the current values.
func (s *VaultSession) ReadEntry(entryID, version uint32) (*EntryView, error) {
	if err := s.requireOpen(); err != nil {
		return nil, err
	}
	e, ok := s.Entry(entryID)
	if !ok {
		return nil, ErrEntryNotFound
	}
	view, err := s.readEntryView(e, version)
	s.record(audit.OpEntryRead, e.Name, err)
	return view, err
}

func (s *VaultSession) readEntryView(e Entry, version uint32) (*EntryView, error) {
	h := e.Handle
	view := &EntryView{ID: e.ID, Version: version}
	var err error

	if view.MaxVersion, err = s.v.GetMaxVersion(h); err != nil {
		return nil, vaultErr("get_max_version", err)
	}
	if view.Name, err = s.v.GetName(h, version); err != nil {
		return nil, vaultErr("get_name", err)
	}
	if view.GroupID, err = s.v.GetGroupID(h, version); err != nil {
		return nil, vaultErr("get_group_id", err)
	}
	if view.UserID, err = s.v.GetUserID(h, version); err != nil {
		return nil, vaultErr("get_user_id", err)
	}
	if view.Password, err = s.v.GetPassword(h, version); err != nil {
		return nil, vaultErr("get_password", err)
	}
	if view.URL, err = s.v.GetURL(h, version); err != nil {
		return nil, vaultErr("get_url", err)
	}

	names, err := s.v.GetPropertyNames(h, version)
	if err != nil {
		return nil, vaultErr("get_property_names", err)
	}
	view.Properties = make(map[string]string, len(names))
	for name, id := range names {
		value, err := s.v.GetPropertyValue(h, version, id)
		if err != nil {
			return nil, vaultErr("get_property_value", err)
		}
		view.Properties[name] = value
	}
	return view, nil
}

// RenameEntry changes the name of an existing entry.
func (s *VaultSession) RenameEntry(entryID uint32, name string) error {
	if err := s.requireOpen(); err != nil {
		return err
	}
	name = normalizeName(name)
	if name == "" {
		return &ValidationError{Field: "name", Message: "name is required"}
	}
	e, ok := s.Entry(entryID)
	if !ok {
		return ErrEntryNotFound
	}
	if s.edit != nil && s.edit.entry.ID == entryID && !s.edit.IsNew() {
		return ErrEditInProgress
	}
	if err := s.v.RenameEntry(s.handle, entryID, name); err != nil {
		s.record(audit.OpEntryRename, e.Name, err)
		return vaultErr("rename_entry", err)
	}
	s.record(audit.OpEntryRename, name, nil)
	return s.afterMutation()
}

// RemoveEntry deletes an entry of the selected group.
func (s *VaultSession) RemoveEntry(entryID uint32) error {
	if err := s.requireOpen(); err != nil {
		return err
	}
	e, ok := s.Entry(entryID)
	if !ok {
		return ErrEntryNotFound
	}
	if s.edit != nil && s.edit.entry.ID == entryID && !s.edit.IsNew() {
		return ErrEditInProgress
	}
	if err := s.v.RemoveEntry(s.handle, entryID); err != nil {
		s.record(audit.OpEntryDelete, e.Name, err)
		return vaultErr("remove_entry", err)
	}
	s.record(audit.OpEntryDelete, e.Name, nil)
	s.log.Debug("entry removed", zap.String("vault", s.name), zap.Uint32("entry_id", entryID))
	return s.afterMutation()
}

// AddGroup creates a group and returns its id.
func (s *VaultSession) AddGroup(name string) (uint32, error) {
	if err := s.requireOpen(); err != nil {
		return 0, err
	}
	name = normalizeName(name)
	if name == "" {
		return 0, &ValidationError{Field: "name", Message: "group name is required"}
	}
	id, err := s.v.AddGroup(s.handle, name)
	if err != nil {
		s.record(audit.OpGroupAdd, name, err)
		return 0, vaultErr("add_group", err)
	}
	s.record(audit.OpGroupAdd, name, nil)
	return id, s.afterMutation()
}

// RenameGroup changes the name of a group.
func (s *VaultSession) RenameGroup(groupID uint32, name string) error {
	if err := s.requireOpen(); err != nil {
		return err
	}
	name = normalizeName(name)
	if name == "" {
		return &ValidationError{Field: "name", Message: "group name is required"}
	}
	if _, ok := s.Group(groupID); !ok {
		return ErrGroupNotFound
	}
	if err := s.v.RenameGroup(s.handle, groupID, name); err != nil {
		s.record(audit.OpGroupRename, name, err)
		return vaultErr("rename_group", err)
	}
	s.record(audit.OpGroupRename, name, nil)
	return s.afterMutation()
}

// RemoveGroup deletes an empty group. If it was selected the selection is cleared.
func (s *VaultSession) RemoveGroup(groupID uint32) error {
	if err := s.requireOpen(); err != nil {
		return err
	}
	g, ok := s.Group(groupID)
	if !ok {
		return ErrGroupNotFound
	}
	if err := s.v.RemoveGroup(s.handle, groupID); err != nil {
		s.record(audit.OpGroupRemove, g.Name, err)
		return vaultErr("remove_group", err)
	}
	s.record(audit.OpGroupRemove, g.Name, nil)
	s.modified = true
	selected := s.selectedGroup
	if selected != nil && *selected == groupID {
		selected = nil
	}
	return refreshed(s.refresh(selected))
}

// AddUser adds a user to the user table and returns its id.
func (s *VaultSession) AddUser(name string) (uint32, error) {
	if err := s.requireOpen(); err != nil {
		return 0, err
	}
	name = normalizeName(name)
	if name == "" {
		return 0, &ValidationError{Field: "name", Message: "user name is required"}
	}
	id, err := s.v.AddUser(s.handle, name)
	if err != nil {
		s.record(audit.OpUserAdd, name, err)
		return 0, vaultErr("add_user", err)
	}
	s.record(audit.OpUserAdd, name, nil)
	s.modified = true
	return id, refreshed(s.reloadUsers())
}

// RemoveUser deletes a user no entry refers to.
func (s *VaultSession) RemoveUser(userID uint32) error {
	if err := s.requireOpen(); err != nil {
		return err
	}
	name, ok := s.users[userID]
	if !ok {
		return &ValidationError{Field: "user", Message: "unknown user"}
	}
	if err := s.v.RemoveUser(s.handle, userID); err != nil {
		s.record(audit.OpUserRemove, name, err)
		return vaultErr("remove_user", err)
	}
	s.record(audit.OpUserRemove, name, nil)
	s.modified = true
	return refreshed(s.reloadUsers())
}

func (s *VaultSession) afterMutation() error {
	s.modified = true
	return refreshed(s.RefreshGroups())
}

func (s *VaultSession) reloadUsers() error {
	users, err := s.v.GetUsers(s.handle)
	if err != nil {
		return vaultErr("get_users", err)
	}
	s.users = users
	return nil
}
