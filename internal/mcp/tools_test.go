package mcp

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaskValue(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected string
	}{
		{"empty value", "", ""},
		{"1 character", "a", "*"},
		{"4 characters", "abcd", "****"},
		{"5 characters", "abcde", "***de"},
		{"8 characters", "abcdefgh", "******gh"},
		{"9 characters", "abcdefghi", "*****fghi"},
		{"long value", "sk-1234567890abcdefWXYZ", strings.Repeat("*", 19) + "WXYZ"},
		{"multibyte", "пароль123", "*****ь123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, maskValue(tt.value))
		})
	}
}

func TestHandleVaultInfo(t *testing.T) {
	s := newTestServer(t)

	_, out, err := s.handleVaultInfo(context.Background(), nil, VaultInfoInput{})
	require.NoError(t, err)
	assert.Equal(t, "test.yaml", out.Name)
	assert.Equal(t, 3, out.Groups)
	assert.Equal(t, len(seed), out.Entries)
	assert.Equal(t, []string{"alice", "bob"}, out.Users)
	assert.True(t, out.Modified)
}

func TestHandleGroupList(t *testing.T) {
	s := newTestServer(t)

	_, out, err := s.handleGroupList(context.Background(), nil, GroupListInput{})
	require.NoError(t, err)
	assert.Equal(t, []GroupInfo{
		{Name: "personal", Entries: 1},
		{Name: "secret", Entries: 1},
		{Name: "work", Entries: 3},
	}, out.Groups)
}

func TestHandleGroupList_Policy(t *testing.T) {
	s := newTestServer(t, WithPolicy(&Policy{Version: 1, DefaultAction: ActionAllow, DeniedGroups: []string{"secret"}}))

	_, out, err := s.handleGroupList(context.Background(), nil, GroupListInput{})
	require.NoError(t, err)
	require.Len(t, out.Groups, 2)
	for _, g := range out.Groups {
		assert.NotEqual(t, "secret", g.Name)
	}
}

func TestHandleEntryList(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, out, err := s.handleEntryList(ctx, nil, EntryListInput{})
	require.NoError(t, err)
	assert.Len(t, out.Entries, len(seed))

	_, out, err = s.handleEntryList(ctx, nil, EntryListInput{Group: "work"})
	require.NoError(t, err)
	assert.Equal(t, []EntryRef{
		{Group: "work", Name: "github"},
		{Group: "work", Name: "gitlab"},
		{Group: "work", Name: "jira"},
	}, out.Entries)

	_, out, err = s.handleEntryList(ctx, nil, EntryListInput{Group: "work", Pattern: "git*"})
	require.NoError(t, err)
	assert.Len(t, out.Entries, 2)

	_, out, err = s.handleEntryList(ctx, nil, EntryListInput{Pattern: "nothing*"})
	require.NoError(t, err)
	assert.Empty(t, out.Entries)
}

func TestHandleEntryList_Errors(t *testing.T) {
	s := newTestServer(t, WithPolicy(&Policy{Version: 1, DefaultAction: ActionAllow, DeniedGroups: []string{"secret"}}))
	ctx := context.Background()

	_, _, err := s.handleEntryList(ctx, nil, EntryListInput{Group: "missing"})
	assert.ErrorContains(t, err, "not found")

	_, _, err = s.handleEntryList(ctx, nil, EntryListInput{Group: "secret"})
	assert.ErrorContains(t, err, "access denied")

	_, _, err = s.handleEntryList(ctx, nil, EntryListInput{Pattern: "["})
	assert.ErrorContains(t, err, "invalid pattern")

	_, out, err := s.handleEntryList(ctx, nil, EntryListInput{})
	require.NoError(t, err)
	for _, e := range out.Entries {
		assert.NotEqual(t, "secret", e.Group)
	}
}

func TestHandleEntrySearch(t *testing.T) {
	s := newTestServer(t, WithPolicy(&Policy{Version: 1, DefaultAction: ActionAllow, DeniedGroups: []string{"secret"}}))
	ctx := context.Background()

	_, out, err := s.handleEntrySearch(ctx, nil, EntrySearchInput{Text: "GIT"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []EntryRef{
		{Group: "work", Name: "github"},
		{Group: "work", Name: "gitlab"},
	}, out.Entries)

	_, out, err = s.handleEntrySearch(ctx, nil, EntrySearchInput{Text: "root"})
	require.NoError(t, err)
	assert.Empty(t, out.Entries)

	_, _, err = s.handleEntrySearch(ctx, nil, EntrySearchInput{Text: "  "})
	assert.Error(t, err)
}

func TestHandleEntryProperties(t *testing.T) {
	s := newTestServer(t)

	_, out, err := s.handleEntryProperties(context.Background(), nil, EntryInput{Group: "work", Entry: "github"})
	require.NoError(t, err)
	assert.Equal(t, "github", out.Entry)
	assert.Equal(t, []string{"otp", "token"}, out.Properties)

	_, _, err = s.handleEntryProperties(context.Background(), nil, EntryInput{Group: "work"})
	assert.ErrorContains(t, err, "entry is required")
}

func TestHandleEntryDescribe(t *testing.T) {
	s := newTestServer(t)

	_, out, err := s.handleEntryDescribe(context.Background(), nil, EntryInput{Group: "work", Entry: "github"})
	require.NoError(t, err)
	assert.Equal(t, "alice", out.User)
	assert.Equal(t, strings.Repeat("*", 17)+"ter2", out.MaskedPassword)
	assert.Equal(t, 21, out.PasswordLength)
	assert.Equal(t, "Strong", out.Strength)
	assert.True(t, out.HasURL)
	assert.Equal(t, []string{"otp", "token"}, out.Properties)
	assert.Equal(t, 1, out.Versions)
	assert.NotContains(t, out.MaskedPassword, "hunter2")

	_, out, err = s.handleEntryDescribe(context.Background(), nil, EntryInput{Group: "work", Entry: "gitlab"})
	require.NoError(t, err)
	assert.Equal(t, "Weak", out.Strength)
	assert.False(t, out.HasURL)
	assert.Empty(t, out.Properties)
}

func TestHandleEntryDescribe_Denied(t *testing.T) {
	s := newTestServer(t, WithPolicy(&Policy{Version: 1, DefaultAction: ActionDeny, AllowedGroups: []string{"work"}}))

	_, _, err := s.handleEntryDescribe(context.Background(), nil, EntryInput{Group: "personal", Entry: "bank"})
	assert.ErrorContains(t, err, "access denied")
}
