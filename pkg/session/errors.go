package session

import (
	"errors"
	"fmt"
)

// Errors
var (
	ErrNotOpen         = NotOpenError{}
	ErrPrepareFailed   = errors.New("session: vault could not be prepared")
	ErrAlreadyOpen     = errors.New("session: vault is already open")
	ErrClosed          = errors.New("session: vault is closed")
	ErrEditInProgress  = errors.New("session: another entry is being edited")
	ErrNoEditSession   = errors.New("session: no entry is being edited")
	ErrStaleEdit       = errors.New("session: edit session belongs to another vault")
	ErrEntryNotFound   = errors.New("session: entry not found")
	ErrGroupNotFound   = errors.New("session: group not found")
	ErrPropertyUnknown = errors.New("session: property not found")
	ErrNameReadOnly    = errors.New("session: name of a persisted property or entry cannot be edited here")
	ErrFieldNotEditing = errors.New("session: field is not in edit mode")
	ErrDuplicateName   = errors.New("session: a property with this name already exists")
)

// NotOpenError is returned when an operation needs an open vault.
type NotOpenError struct{}

func (NotOpenError) Error() string { return "session: vault is not open" }

// ValidationError reports a missing or invalid field before anything is sent to the vault.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("session: %s: %s", e.Field, e.Message)
}

// VaultError wraps a failure reported by the vault. Error returns the
// vault's message unchanged.
type VaultError struct {
	Op  string
	Err error
}

func (e *VaultError) Error() string { return e.Err.Error() }

func (e *VaultError) Unwrap() error { return e.Err }

func vaultErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &VaultError{Op: op, Err: err}
}

// RefreshError is returned when a change reached the vault but rereading the
// cached view afterwards failed. The cache still holds the old view.
type RefreshError struct {
	Err error
}

func (e *RefreshError) Error() string { return "session: change saved, refresh failed: " + e.Err.Error() }

func (e *RefreshError) Unwrap() error { return e.Err }

func refreshed(err error) error {
	if err == nil {
		return nil
	}
	return &RefreshError{Err: err}
}
