package memvault

import (
	"encoding/hex"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// documentVersion is the only document format understood by Prepare.
const documentVersion = 1

// document is the YAML form of a database. It is a development format:
// values are stored in clear text.
type document struct {
	Version       int        `yaml:"version"`
	PasswordHash  string     `yaml:"password_hash"`
	Password2Hash string     `yaml:"password2_hash"`
	KeyFileHash   string     `yaml:"key_file_hash,omitempty"`
	NextID        uint32     `yaml:"next_id"`
	Groups        []docItem  `yaml:"groups"`
	Users         []docItem  `yaml:"users"`
	Entries       []docEntry `yaml:"entries"`
}

type docItem struct {
	ID   uint32 `yaml:"id"`
	Name string `yaml:"name"`
}

type docEntry struct {
	ID       uint32       `yaml:"id"`
	Versions []docVersion `yaml:"versions"`
}

type docVersion struct {
	Name       string        `yaml:"name"`
	GroupID    uint32        `yaml:"group_id"`
	UserID     uint32        `yaml:"user_id"`
	Password   string        `yaml:"password"`
	URL        *string       `yaml:"url,omitempty"`
	Properties []docProperty `yaml:"properties,omitempty"`
}

type docProperty struct {
	ID    uint32 `yaml:"id"`
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

// NewDocument returns the bytes of an empty database protected by the given
// password digests, with the named groups and users.
func NewDocument(passwordHash, password2Hash, keyFileHash []byte, groups, users []string) ([]byte, error) {
	doc := document{
		Version:       documentVersion,
		PasswordHash:  hex.EncodeToString(passwordHash),
		Password2Hash: hex.EncodeToString(password2Hash),
	}
	if len(keyFileHash) > 0 {
		doc.KeyFileHash = hex.EncodeToString(keyFileHash)
	}
	var next uint32 = 1
	for _, g := range groups {
		doc.Groups = append(doc.Groups, docItem{ID: next, Name: g})
		next++
	}
	for _, u := range users {
		doc.Users = append(doc.Users, docItem{ID: next, Name: u})
		next++
	}
	doc.NextID = next
	return yaml.Marshal(&doc)
}

func parseDocument(data []byte) (*document, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("memvault: failed to parse document: %w", err)
	}
	if doc.Version != documentVersion {
		return nil, fmt.Errorf("%w: version %d", ErrUnsupportedFormat, doc.Version)
	}
	if _, err := hex.DecodeString(doc.PasswordHash); err != nil || doc.PasswordHash == "" {
		return nil, fmt.Errorf("%w: bad password_hash", ErrUnsupportedFormat)
	}
	return &doc, nil
}

// load builds the in-memory database from a parsed document.
func (db *database) load(doc *document) error {
	db.groups = make(map[uint32]string, len(doc.Groups))
	db.users = make(map[uint32]string, len(doc.Users))
	db.entries = make(map[uint32]*entry, len(doc.Entries))
	db.nextID = doc.NextID

	bump := func(id uint32) {
		if id >= db.nextID {
			db.nextID = id + 1
		}
	}
	for _, g := range doc.Groups {
		db.groups[g.ID] = g.Name
		bump(g.ID)
	}
	for _, u := range doc.Users {
		db.users[u.ID] = u.Name
		bump(u.ID)
	}
	for _, de := range doc.Entries {
		if len(de.Versions) == 0 {
			return fmt.Errorf("%w: entry %d has no versions", ErrUnsupportedFormat, de.ID)
		}
		e := &entry{}
		for _, dv := range de.Versions {
			v := version{
				name:     dv.Name,
				groupID:  dv.GroupID,
				userID:   dv.UserID,
				password: dv.Password,
				url:      dv.URL,
				props:    make(map[uint32]property, len(dv.Properties)),
			}
			for _, p := range dv.Properties {
				v.props[p.ID] = property{name: p.Name, value: p.Value}
				bump(p.ID)
			}
			e.versions = append(e.versions, v)
		}
		db.entries[de.ID] = e
		bump(de.ID)
	}
	if db.nextID == 0 {
		db.nextID = 1
	}
	return nil
}

// dump turns the database back into a document.
func (db *database) dump() *document {
	doc := *db.doc
	doc.NextID = db.nextID
	doc.Groups = sortedItems(db.groups)
	doc.Users = sortedItems(db.users)
	doc.Entries = nil

	ids := make([]uint32, 0, len(db.entries))
	for id := range db.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		de := docEntry{ID: id}
		for _, v := range db.entries[id].versions {
			dv := docVersion{
				Name:     v.name,
				GroupID:  v.groupID,
				UserID:   v.userID,
				Password: v.password,
				URL:      v.url,
			}
			pids := make([]uint32, 0, len(v.props))
			for pid := range v.props {
				pids = append(pids, pid)
			}
			sort.Slice(pids, func(i, j int) bool { return pids[i] < pids[j] })
			for _, pid := range pids {
				p := v.props[pid]
				dv.Properties = append(dv.Properties, docProperty{ID: pid, Name: p.name, Value: p.value})
			}
			de.Versions = append(de.Versions, dv)
		}
		doc.Entries = append(doc.Entries, de)
	}
	return &doc
}

func sortedItems(m map[uint32]string) []docItem {
	items := make([]docItem, 0, len(m))
	for id, name := range m {
		items = append(items, docItem{ID: id, Name: name})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items
}
