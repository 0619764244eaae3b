package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type named struct {
	id   int
	name string
}

func nameOf(n named) string { return n.name }

var items = []named{
	{1, "github"},
	{2, "gitlab"},
	{3, "mail/work"},
	{4, "mail/home"},
	{5, "bank"},
}

func TestMatch(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		want    []int
		wantErr bool
	}{
		{"exact match", "bank", []int{5}, false},
		{"exact missing", "nope", nil, true},
		{"prefix glob", "git*", []int{1, 2}, false},
		{"star does not cross slash", "mail*", nil, true},
		{"glob below slash", "mail/*", []int{3, 4}, false},
		{"single char", "gitla?", []int{2}, false},
		{"class", "[bg]*", []int{1, 2, 5}, false},
		{"no glob match", "x*", nil, true},
		{"bad pattern", "[", nil, true},
		{"empty pattern", "", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Match(tt.pattern, items, nameOf)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			ids := make([]int, len(got))
			for i, g := range got {
				ids[i] = g.id
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestMatchOne(t *testing.T) {
	got, err := MatchOne("bank", items, nameOf)
	require.NoError(t, err)
	assert.Equal(t, 5, got.id)

	_, err = MatchOne("git*", items, nameOf)
	assert.ErrorContains(t, err, "matches 2 items")
}

func TestMatchAll(t *testing.T) {
	got, err := MatchAll([]string{"git*", "github", "bank"}, items, nameOf)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "github", got[0].name)
	assert.Equal(t, "gitlab", got[1].name)
	assert.Equal(t, "bank", got[2].name)

	_, err = MatchAll([]string{"bank", "missing"}, items, nameOf)
	assert.Error(t, err)
}

func TestParsePairs(t *testing.T) {
	got, err := ParsePairs([]string{"pin=1234", "note=a=b", " q =", "empty="})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"pin": "1234", "note": "a=b", "q": "", "empty": ""}, got)

	_, err = ParsePairs([]string{"novalue"})
	assert.Error(t, err)
	_, err = ParsePairs([]string{"=x"})
	assert.Error(t, err)
}

func TestMapKeys(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, MapKeys(map[string]int{"c": 3, "a": 1, "b": 2}))
	assert.Empty(t, MapKeys(map[string]bool{}))
}

func TestFilter(t *testing.T) {
	got, err := Filter("", items, nameOf)
	require.NoError(t, err)
	assert.Len(t, got, len(items))

	got, err = Filter("x*", items, nameOf)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = Filter("mail/*", items, nameOf)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	_, err = Filter("[", items, nameOf)
	assert.Error(t, err)
}
