package registry

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct {
	locations []Location
	err       error
}

func (s *failingStore) Load() ([]Location, error) { return s.locations, nil }

func (s *failingStore) Save([]Location) error { return s.err }

func TestAddDefaultsAndUniqueness(t *testing.T) {
	dir := t.TempDir()
	r := New(NewYAMLStore(filepath.Join(dir, "vaults.yaml")))
	require.NoError(t, r.Load())

	loc, err := r.Add(Location{Path: filepath.Join(dir, "personal.yaml")})
	require.NoError(t, err)
	assert.Equal(t, "personal", loc.Name)
	assert.NotEmpty(t, loc.ID)
	assert.True(t, filepath.IsAbs(loc.Path))

	_, err = r.Add(Location{Name: "personal", Path: filepath.Join(dir, "other.yaml")})
	assert.ErrorIs(t, err, ErrNameExists)
	_, err = r.Add(Location{Name: "copy", Path: filepath.Join(dir, "personal.yaml")})
	assert.ErrorIs(t, err, ErrPathExists)
	_, err = r.Add(Location{Name: "x"})
	assert.ErrorIs(t, err, ErrPathEmpty)
	_, err = r.Add(Location{Name: strings.Repeat("n", MaxNameLength+1), Path: "/tmp/long.yaml"})
	assert.ErrorIs(t, err, ErrNameTooLong)
	_, err = r.Add(Location{Name: "   ", Path: "/tmp/blank.yaml"})
	assert.ErrorIs(t, err, ErrNameEmpty)

	assert.Equal(t, []string{"personal"}, r.Names())
}

func TestAddFailedSaveLeavesListUnchanged(t *testing.T) {
	boom := errors.New("disk full")
	r := New(&failingStore{err: boom})
	require.NoError(t, r.Load())

	_, err := r.Add(Location{Path: "/tmp/a.yaml"})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, r.List())
}

func TestTooManyLocations(t *testing.T) {
	existing := make([]Location, MaxLocations)
	for i := range existing {
		existing[i] = Location{Name: string(rune('a'+i%26)) + strings.Repeat("x", i), Path: "/p" + strings.Repeat("x", i)}
	}
	r := New(&failingStore{locations: existing})
	require.NoError(t, r.Load())

	_, err := r.Add(Location{Path: "/tmp/one-more.yaml"})
	assert.ErrorIs(t, err, ErrTooManyEntries)
}

func TestRemoveAndSetKeyFile(t *testing.T) {
	dir := t.TempDir()
	store := NewYAMLStore(filepath.Join(dir, "vaults.yaml"))
	r := New(store)
	require.NoError(t, r.Load())

	_, err := r.Add(Location{Path: filepath.Join(dir, "a.yaml")})
	require.NoError(t, err)
	_, err = r.Add(Location{Path: filepath.Join(dir, "b.yaml")})
	require.NoError(t, err)

	require.NoError(t, r.SetKeyFile("b", "/keys/b.key"))
	loc, ok := r.Get("b")
	require.True(t, ok)
	assert.Equal(t, "/keys/b.key", loc.KeyFile)
	assert.ErrorIs(t, r.SetKeyFile("c", "x"), ErrNotFound)

	require.NoError(t, r.Remove("a"))
	assert.ErrorIs(t, r.Remove("a"), ErrNotFound)
	assert.Equal(t, []string{"b"}, r.Names())

	reloaded := New(store)
	require.NoError(t, reloaded.Load())
	assert.Equal(t, r.List(), reloaded.List())
}

func TestListReturnsCopy(t *testing.T) {
	r := New(NewYAMLStore(filepath.Join(t.TempDir(), "vaults.yaml")))
	_, err := r.Add(Location{Path: "/tmp/a.yaml"})
	require.NoError(t, err)

	list := r.List()
	list[0].Name = "changed"
	_, ok := r.Get("a")
	assert.True(t, ok)
}

func TestYAMLStore(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "vaults.yaml")
	s := NewYAMLStore(path)

	locs, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, locs, "a missing file is an empty registry")

	want := []Location{{ID: "1", Name: "a", Path: "/a.yaml"}, {ID: "2", Name: "b", Path: "/b.yaml", KeyFile: "/k"}}
	require.NoError(t, s.Save(want))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(FileMode), info.Mode().Perm())

	got, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	require.NoError(t, os.WriteFile(path, []byte("version: 7\nvaults: []\n"), FileMode))
	_, err = s.Load()
	assert.ErrorContains(t, err, "unsupported file version")

	require.NoError(t, os.WriteFile(path, []byte(":\n\t- bad"), FileMode))
	_, err = s.Load()
	assert.Error(t, err)
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vaults.db")
	s, err := OpenSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()

	locs, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, locs)

	r := New(s)
	require.NoError(t, r.Load())
	_, err = r.Add(Location{Path: "/vaults/zeta.yaml"})
	require.NoError(t, err)
	_, err = r.Add(Location{Path: "/vaults/alpha.yaml", KeyFile: "/keys/alpha"})
	require.NoError(t, err)

	got, err := s.Load()
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "zeta", got[0].Name, "registration order is kept")
	assert.Equal(t, "/keys/alpha", got[1].KeyFile)

	require.NoError(t, r.Remove("zeta"))
	got, err = s.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha"}, []string{got[0].Name})

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(FileMode), info.Mode().Perm())
}
