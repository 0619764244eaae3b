package session

// fieldState is the lifecycle of an EditableField.
type fieldState int

const (
	fieldCollapsed fieldState = iota
	fieldFetching
	fieldEditing
)

// EditableField holds one scalar entry value. The value is read from the
// vault only when the field enters edit mode, and only once.
type EditableField[T comparable] struct {
	state   fieldState
	current T
	initial T
}

// BeginEdit switches the field into edit mode, taking the initial value
// from fetch. It does nothing if the field is already being edited.
// When fetch fails the field stays collapsed.
func (f *EditableField[T]) BeginEdit(fetch func() (T, error)) error {
	if f.state != fieldCollapsed {
		return nil
	}
	f.state = fieldFetching
	v, err := fetch()
	if err != nil {
		f.state = fieldCollapsed
		return err
	}
	f.current, f.initial = v, v
	f.state = fieldEditing
	return nil
}

// BeginEditWith switches the field into edit mode with a default value.
// Used for entries that do not exist in the vault yet.
func (f *EditableField[T]) BeginEditWith(v T) {
	_ = f.BeginEdit(func() (T, error) { return v, nil })
}

// SetValue replaces the current value. The field must be in edit mode.
func (f *EditableField[T]) SetValue(v T) error {
	if f.state != fieldEditing {
		return ErrFieldNotEditing
	}
	f.current = v
	return nil
}

// Delta returns the current value if the field was edited and differs
// from the value it started with.
func (f *EditableField[T]) Delta() (T, bool) {
	if f.state != fieldEditing || f.current == f.initial {
		var zero T
		return zero, false
	}
	return f.current, true
}

// Reset collapses the field and drops any edit.
func (f *EditableField[T]) Reset() {
	var zero T
	f.state = fieldCollapsed
	f.current, f.initial = zero, zero
}

// Editing reports whether the field is in edit mode.
func (f *EditableField[T]) Editing() bool { return f.state == fieldEditing }

// Value returns the current value, or the zero value while collapsed.
func (f *EditableField[T]) Value() T { return f.current }

// Initial returns the value captured when editing began.
func (f *EditableField[T]) Initial() T { return f.initial }
