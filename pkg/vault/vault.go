// Package vault defines the boundary to the encrypted credential store.
// The store owns key derivation, the container format and field encryption;
// callers only see plain values and opaque handles.
package vault

//go:generate mockgen -source=vault.go -destination=mocks/mock_vault.go -package=mocks

// LatestVersion selects the current version of an entry field.
const LatestVersion uint32 = 0

// NoEntry is the zero EntryHandle; it refers to an entry the store has not created yet.
const NoEntry EntryHandle = 0

// EntryHandle is an opaque token issued by the store for one entry.
// Only the store that issued it can interpret it.
type EntryHandle uint64

// Group is a snapshot of a group as reported by the store.
type Group struct {
	ID         uint32
	Name       string
	EntryCount uint32
}

// NewEntry carries the values of an entry to be created.
type NewEntry struct {
	GroupID    uint32
	UserID     uint32
	Name       string
	Password   string
	URL        *string           // nil when the entry has no URL
	Properties map[string]string // name -> value
}

// EntryPatch describes a partial update of an existing entry.
// Nil pointers leave the corresponding field untouched.
type EntryPatch struct {
	GroupID  *uint32
	UserID   *uint32
	Password *string
	URL      *string

	// ChangeURL must be set for URL to be applied. A nil URL with ChangeURL
	// removes the URL.
	ChangeURL bool

	// NewProperties are added by name.
	NewProperties map[string]string

	// ModifiedProperties maps persisted property ids to their new value.
	// A nil value is a tombstone and deletes the property.
	ModifiedProperties map[uint32]*string
}

// IsEmpty reports whether the patch changes nothing.
func (p EntryPatch) IsEmpty() bool {
	return p.GroupID == nil && p.UserID == nil && p.Password == nil && !p.ChangeURL &&
		len(p.NewProperties) == 0 && len(p.ModifiedProperties) == 0
}

// SearchResult maps group id -> entry id -> handle.
type SearchResult map[uint32]map[uint32]EntryHandle

// Vault is the synchronous call interface of the credential store.
// Every method either completes or returns an error; nothing is retried.
type Vault interface {
	// Prepare parses raw container bytes and returns a handle for them.
	Prepare(data []byte, name string) (uint64, error)
	// PreOpen checks the credentials. Passwords arrive already hashed.
	PreOpen(handle uint64, passwordHash, password2Hash, keyFile []byte) error
	Open(handle uint64) error

	GetGroups(handle uint64) ([]Group, error)
	GetUsers(handle uint64) (map[uint32]string, error)
	GetEntries(handle uint64, groupID uint32) (map[uint32]EntryHandle, error)
	Search(handle uint64, text string) (SearchResult, error)

	GetPropertyNames(entry EntryHandle, version uint32) (map[string]uint32, error)
	GetName(entry EntryHandle, version uint32) (string, error)
	GetPassword(entry EntryHandle, version uint32) (string, error)
	GetURL(entry EntryHandle, version uint32) (*string, error)
	GetGroupID(entry EntryHandle, version uint32) (uint32, error)
	GetUserID(entry EntryHandle, version uint32) (uint32, error)
	GetPropertyValue(entry EntryHandle, version uint32, propertyID uint32) (string, error)
	GetMaxVersion(entry EntryHandle) (uint32, error)

	CreateEntry(handle uint64, entry NewEntry) (uint32, error)
	ModifyEntry(handle uint64, entryID uint32, patch EntryPatch) error
	RenameEntry(handle uint64, entryID uint32, name string) error
	RemoveEntry(handle uint64, entryID uint32) error

	AddGroup(handle uint64, name string) (uint32, error)
	RenameGroup(handle uint64, groupID uint32, name string) error
	RemoveGroup(handle uint64, groupID uint32) error
	AddUser(handle uint64, name string) (uint32, error)
	RemoveUser(handle uint64, userID uint32) error

	// Save writes the container. What happens to the bytes is up to the store.
	Save(handle uint64) error
	RemoveVault(handle uint64)
}
