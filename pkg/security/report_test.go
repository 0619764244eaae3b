package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAnalyzer(t *testing.T) *Analyzer {
	t.Helper()
	a, err := NewAnalyzer()
	require.NoError(t, err)
	return a
}

func TestAnalyze_Empty(t *testing.T) {
	r := newAnalyzer(t).Analyze(nil, true)
	assert.Equal(t, 100, r.Overall)
	assert.Equal(t, 0, r.Checked)
	assert.Empty(t, r.Issues)
	assert.Empty(t, r.Suggestions)
}

func TestAnalyze_SkipsBlankValues(t *testing.T) {
	r := newAnalyzer(t).Analyze([]Credential{
		{Group: "web", Entry: "a", Field: "password", Value: "   "},
		{Group: "web", Entry: "b", Field: "password", Value: ""},
	}, true)
	assert.Equal(t, 0, r.Checked)
	assert.Equal(t, 100, r.Overall)
}

func TestAnalyze_AllStrongAndUnique(t *testing.T) {
	r := newAnalyzer(t).Analyze([]Credential{
		{Group: "web", Entry: "a", Field: "password", Value: "aaaaaaaaaaaaaaaaaaaaaa"},
		{Group: "web", Entry: "b", Field: "password", Value: "bbbbbbbbbbbbbbbbbbbbbb"},
	}, true)
	assert.Equal(t, 50, r.Strength)
	assert.Equal(t, 50, r.Uniqueness)
	assert.Equal(t, 100, r.Overall)
	assert.Empty(t, r.Issues)
}

func TestAnalyze_WeakAndDuplicate(t *testing.T) {
	creds := []Credential{
		{Group: "web", Entry: "github", Field: "password", Value: "hunter2"},
		{Group: "web", Entry: "gitlab", Field: "password", Value: " hunter2 "},
		{Group: "mail", Entry: "work", Field: "password", Value: "a very long passphrase here"},
	}

	r := newAnalyzer(t).Analyze(creds, true)
	assert.Equal(t, 3, r.Checked)
	// two weak (0) and one strong (25): 25*2/3
	assert.Equal(t, 16, r.Strength)
	// two distinct values out of three
	assert.Equal(t, 33, r.Uniqueness)
	assert.Equal(t, 49, r.Overall)

	var weak, dup []Issue
	for _, i := range r.Issues {
		switch i.Type {
		case IssueWeakPassword:
			weak = append(weak, i)
		case IssueDuplicatePassword:
			dup = append(dup, i)
		}
	}
	require.Len(t, weak, 2)
	assert.Equal(t, []string{"web/github[password]"}, weak[0].Credentials)
	assert.Contains(t, weak[0].Description, "7 characters")
	require.Len(t, dup, 1)
	assert.Equal(t, []string{"web/github[password]", "web/gitlab[password]"}, dup[0].Credentials)
	assert.Len(t, r.Suggestions, 2)
}

func TestAnalyze_HidesNames(t *testing.T) {
	r := newAnalyzer(t).Analyze([]Credential{
		{Group: "web", Entry: "a", Field: "password", Value: "same"},
		{Group: "web", Entry: "b", Field: "pin", Value: "same"},
	}, false)
	require.NotEmpty(t, r.Issues)
	for _, i := range r.Issues {
		assert.Empty(t, i.Credentials)
	}
}

func TestFindDuplicates_OrderAndNormalization(t *testing.T) {
	creds := []Credential{
		{Group: "g", Entry: "a", Field: "password", Value: "x1"},
		{Group: "g", Entry: "b", Field: "password", Value: "y2"},
		{Group: "g", Entry: "c", Field: "password", Value: "y2"},
		{Group: "g", Entry: "d", Field: "password", Value: "y2"},
		{Group: "g", Entry: "e", Field: "password", Value: "x1"},
		// precomposed and decomposed e-acute
		{Group: "g", Entry: "f", Field: "password", Value: "café"},
		{Group: "g", Entry: "h", Field: "password", Value: "cafe\u0301"},
	}

	groups := newAnalyzer(t).FindDuplicates(creds, true)
	require.Len(t, groups, 3)
	assert.Equal(t, 3, groups[0].Count)
	assert.Equal(t, []string{"g/b[password]", "g/c[password]", "g/d[password]"}, groups[0].Credentials)
	assert.Equal(t, 2, groups[1].Count)
	assert.Equal(t, []string{"g/a[password]", "g/e[password]"}, groups[1].Credentials)
	assert.Equal(t, []string{"g/f[password]", "g/h[password]"}, groups[2].Credentials)
}

func TestAnalyzer_KeysDiffer(t *testing.T) {
	a, b := newAnalyzer(t), newAnalyzer(t)
	assert.NotEqual(t, a.hash("secret"), b.hash("secret"))
	assert.Equal(t, a.hash("secret"), a.hash(" secret"))
}
