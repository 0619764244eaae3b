package session

import (
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Property is a named secondary field of an entry.
//
// A positive ID was assigned by the vault. A negative ID marks a row added
// during the current edit session; such ids are never sent to the vault,
// the row travels as a name/value pair instead.
type Property struct {
	ID      int64
	Name    string
	Value   EditableField[string]
	Deleted bool
}

// Persisted reports whether the vault knows this property.
func (p *Property) Persisted() bool { return p.ID > 0 }

// PropertySet is the ordered list of properties of one entry being edited.
type PropertySet struct {
	order  []int64
	byID   map[int64]*Property
	nextID int64
}

// NewPropertySet returns an empty set. Session-local ids start at -1.
func NewPropertySet() *PropertySet {
	return &PropertySet{
		byID:   make(map[int64]*Property),
		nextID: -1,
	}
}

// Load adds the persisted properties reported by the vault, ordered by id.
// Properties already in the set are kept as they are and rows added in this
// session stay last.
func (s *PropertySet) Load(names map[string]uint32) {
	loaded := make([]*Property, 0, len(names))
	for name, id := range names {
		if _, ok := s.byID[int64(id)]; ok || id == 0 {
			continue
		}
		loaded = append(loaded, &Property{ID: int64(id), Name: name})
	}
	if len(loaded) == 0 {
		return
	}
	sort.Slice(loaded, func(i, j int) bool { return loaded[i].ID < loaded[j].ID })

	at := len(s.order)
	for i, id := range s.order {
		if id < 0 {
			at = i
			break
		}
	}
	order := make([]int64, 0, len(s.order)+len(loaded))
	order = append(order, s.order[:at]...)
	for _, p := range loaded {
		order = append(order, p.ID)
		s.byID[p.ID] = p
	}
	s.order = append(order, s.order[at:]...)
}

// Add appends an empty property in edit mode and returns its session-local id.
func (s *PropertySet) Add() int64 {
	id := s.nextID
	s.nextID--
	p := &Property{ID: id}
	p.Value.BeginEditWith("")
	s.order = append(s.order, id)
	s.byID[id] = p
	return id
}

// Get returns the property with the given id.
func (s *PropertySet) Get(id int64) (*Property, bool) {
	p, ok := s.byID[id]
	return p, ok
}

// Find returns the first live property with the given name.
func (s *PropertySet) Find(name string) (*Property, bool) {
	name = normalizeName(name)
	for _, id := range s.order {
		p := s.byID[id]
		if !p.Deleted && p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// SetName names a property added in this session. Persisted names are fixed
// and no two live rows may share a name.
func (s *PropertySet) SetName(id int64, name string) error {
	p, ok := s.byID[id]
	if !ok {
		return ErrPropertyUnknown
	}
	if p.Persisted() {
		return ErrNameReadOnly
	}
	name = normalizeName(name)
	if other, ok := s.Find(name); ok && other.ID != id && name != "" {
		return ErrDuplicateName
	}
	p.Name = name
	return nil
}

// MarkDeleted flags a property for deletion. The row stays in the set until
// the edit session ends. Unknown ids are ignored.
func (s *PropertySet) MarkDeleted(id int64) {
	if p, ok := s.byID[id]; ok {
		p.Deleted = true
	}
}

// All returns the properties in display order, deleted ones included.
func (s *PropertySet) All() []*Property {
	out := make([]*Property, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

// Len returns the number of rows.
func (s *PropertySet) Len() int { return len(s.order) }

// NewPairs returns name/value pairs of the properties added in this session.
// Deleted rows and rows with an empty name or value are skipped.
func (s *PropertySet) NewPairs() map[string]string {
	pairs := make(map[string]string)
	for _, id := range s.order {
		p := s.byID[id]
		if p.Persisted() || p.Deleted || p.Name == "" {
			continue
		}
		if v := p.Value.Value(); v != "" {
			pairs[p.Name] = v
		}
	}
	return pairs
}

// ModifiedPairs returns the changes to persisted properties.
// A nil value is a tombstone.
func (s *PropertySet) ModifiedPairs() map[uint32]*string {
	pairs := make(map[uint32]*string)
	for _, id := range s.order {
		p := s.byID[id]
		if !p.Persisted() {
			continue
		}
		if p.Deleted {
			pairs[uint32(p.ID)] = nil
			continue
		}
		if v, ok := p.Value.Delta(); ok {
			pairs[uint32(p.ID)] = &v
		}
	}
	return pairs
}

// Reset collapses every value and clears deletion marks.
// Rows added in this session are dropped.
func (s *PropertySet) Reset() {
	kept := s.order[:0]
	for _, id := range s.order {
		if id < 0 {
			delete(s.byID, id)
			continue
		}
		p := s.byID[id]
		p.Value.Reset()
		p.Deleted = false
		kept = append(kept, id)
	}
	s.order = kept
}

func normalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}
