package session

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEditableFieldFetchesOnce(t *testing.T) {
	var f EditableField[string]
	calls := 0
	fetch := func() (string, error) {
		calls++
		return "initial", nil
	}

	require.NoError(t, f.BeginEdit(fetch))
	require.NoError(t, f.BeginEdit(fetch))
	assert.Equal(t, 1, calls)
	assert.True(t, f.Editing())
	assert.Equal(t, "initial", f.Value())
	assert.Equal(t, "initial", f.Initial())
}

func TestEditableFieldFetchFailureStaysCollapsed(t *testing.T) {
	var f EditableField[uint32]
	boom := errors.New("boom")

	err := f.BeginEdit(func() (uint32, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, f.Editing())
	assert.ErrorIs(t, f.SetValue(7), ErrFieldNotEditing)

	require.NoError(t, f.BeginEdit(func() (uint32, error) { return 3, nil }))
	assert.Equal(t, uint32(3), f.Value())
}

func TestEditableFieldDelta(t *testing.T) {
	var f EditableField[string]

	_, ok := f.Delta()
	assert.False(t, ok, "collapsed field has no delta")

	f.BeginEditWith("a")
	_, ok = f.Delta()
	assert.False(t, ok, "unchanged field has no delta")

	require.NoError(t, f.SetValue("b"))
	v, ok := f.Delta()
	assert.True(t, ok)
	assert.Equal(t, "b", v)

	require.NoError(t, f.SetValue("a"))
	_, ok = f.Delta()
	assert.False(t, ok, "field edited back to its initial value has no delta")
}

func TestEditableFieldReset(t *testing.T) {
	var f EditableField[string]
	f.BeginEditWith("a")
	require.NoError(t, f.SetValue("b"))

	f.Reset()
	assert.False(t, f.Editing())
	assert.Equal(t, "", f.Value())
	_, ok := f.Delta()
	assert.False(t, ok)
}
