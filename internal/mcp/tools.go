package mcp

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/forest6511/pman/internal/cli"
	"github.com/forest6511/pman/pkg/security"
	"github.com/forest6511/pman/pkg/session"
	"github.com/forest6511/pman/pkg/vault"
)

// VaultInfoInput is the input of vault_info.
type VaultInfoInput struct{}

// VaultInfoOutput is the output of vault_info.
type VaultInfoOutput struct {
	Name     string   `json:"name"`
	Groups   int      `json:"groups"`
	Entries  int      `json:"entries"`
	Users    []string `json:"users"`
	Modified bool     `json:"modified"`
}

// GroupListInput is the input of group_list.
type GroupListInput struct{}

// GroupListOutput is the output of group_list.
type GroupListOutput struct {
	Groups []GroupInfo `json:"groups"`
}

// GroupInfo describes one group.
type GroupInfo struct {
	Name    string `json:"name"`
	Entries int    `json:"entries"`
}

// EntryListInput is the input of entry_list.
type EntryListInput struct {
	Group   string `json:"group,omitempty"`
	Pattern string `json:"pattern,omitempty"`
}

// EntryListOutput is the output of entry_list and entry_search.
type EntryListOutput struct {
	Entries []EntryRef `json:"entries"`
}

// EntryRef names one entry.
type EntryRef struct {
	Group string `json:"group"`
	Name  string `json:"name"`
}

// EntrySearchInput is the input of entry_search.
type EntrySearchInput struct {
	Text string `json:"text"`
}

// EntryInput addresses one entry.
type EntryInput struct {
	Group string `json:"group"`
	Entry string `json:"entry"`
}

// EntryPropertiesOutput is the output of entry_properties.
type EntryPropertiesOutput struct {
	Group      string   `json:"group"`
	Entry      string   `json:"entry"`
	Properties []string `json:"properties"`
}

// EntryDescribeOutput is the output of entry_describe.
type EntryDescribeOutput struct {
	Group          string   `json:"group"`
	Entry          string   `json:"entry"`
	User           string   `json:"user"`
	MaskedPassword string   `json:"masked_password"`
	PasswordLength int      `json:"password_length"`
	Strength       string   `json:"strength"`
	HasURL         bool     `json:"has_url"`
	Properties     []string `json:"properties"`
	Versions       int      `json:"versions"`
}

func (s *Server) handleVaultInfo(_ context.Context, _ *mcp.CallToolRequest, _ VaultInfoInput) (*mcp.CallToolResult, VaultInfoOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	groups := s.visibleGroups()
	out := VaultInfoOutput{
		Name:     s.vs.Name(),
		Groups:   len(groups),
		Users:    make([]string, 0),
		Modified: s.vs.Modified(),
	}
	for _, g := range groups {
		out.Entries += int(g.EntryCount)
	}
	for _, name := range s.vs.Users() {
		out.Users = append(out.Users, name)
	}
	sort.Strings(out.Users)

	s.recordCall("vault_info", nil)
	return nil, out, nil
}

func (s *Server) handleGroupList(_ context.Context, _ *mcp.CallToolRequest, _ GroupListInput) (*mcp.CallToolResult, GroupListOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := GroupListOutput{Groups: make([]GroupInfo, 0)}
	for _, g := range s.visibleGroups() {
		out.Groups = append(out.Groups, GroupInfo{Name: g.Name, Entries: int(g.EntryCount)})
	}
	s.recordCall("group_list", nil)
	return nil, out, nil
}

func (s *Server) handleEntryList(_ context.Context, _ *mcp.CallToolRequest, input EntryListInput) (*mcp.CallToolResult, EntryListOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out, err := s.listEntries(input)
	s.recordCall("entry_list", err)
	if err != nil {
		return nil, EntryListOutput{}, err
	}
	return nil, out, nil
}

func (s *Server) listEntries(input EntryListInput) (EntryListOutput, error) {
	groups := s.visibleGroups()
	if input.Group != "" {
		g, err := s.lookupGroup(input.Group)
		if err != nil {
			return EntryListOutput{}, err
		}
		groups = []vault.Group{g}
	}

	out := EntryListOutput{Entries: make([]EntryRef, 0)}
	for _, g := range groups {
		if err := s.vs.SelectGroup(g.ID); err != nil {
			return EntryListOutput{}, fmt.Errorf("failed to read group '%s': %w", g.Name, err)
		}
		entries, err := cli.Filter(input.Pattern, s.vs.Entries(), entryName)
		if err != nil {
			return EntryListOutput{}, err
		}
		for _, e := range entries {
			out.Entries = append(out.Entries, EntryRef{Group: g.Name, Name: e.Name})
		}
	}
	return out, nil
}

func (s *Server) handleEntrySearch(_ context.Context, _ *mcp.CallToolRequest, input EntrySearchInput) (*mcp.CallToolResult, EntryListOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(input.Text) == "" {
		err := errors.New("text is required")
		s.recordCall("entry_search", err)
		return nil, EntryListOutput{}, err
	}

	hits, err := s.vs.Search(input.Text)
	s.recordCall("entry_search", err)
	if err != nil {
		return nil, EntryListOutput{}, fmt.Errorf("search failed: %w", err)
	}

	out := EntryListOutput{Entries: make([]EntryRef, 0, len(hits))}
	for _, h := range hits {
		if ok, _ := s.policy.IsGroupAllowed(h.GroupName); !ok {
			continue
		}
		out.Entries = append(out.Entries, EntryRef{Group: h.GroupName, Name: h.Entry.Name})
	}
	return nil, out, nil
}

func (s *Server) handleEntryProperties(_ context.Context, _ *mcp.CallToolRequest, input EntryInput) (*mcp.CallToolResult, EntryPropertiesOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out, err := s.entryProperties(input)
	s.recordCall("entry_properties", err)
	if err != nil {
		return nil, EntryPropertiesOutput{}, err
	}
	return nil, out, nil
}

func (s *Server) entryProperties(input EntryInput) (EntryPropertiesOutput, error) {
	g, e, err := s.lookupEntry(input)
	if err != nil {
		return EntryPropertiesOutput{}, err
	}
	names, err := s.vs.FetchPropertyNames(e)
	if err != nil {
		return EntryPropertiesOutput{}, fmt.Errorf("failed to read properties: %w", err)
	}
	return EntryPropertiesOutput{
		Group:      g.Name,
		Entry:      e.Name,
		Properties: cli.MapKeys(names),
	}, nil
}

func (s *Server) handleEntryDescribe(_ context.Context, _ *mcp.CallToolRequest, input EntryInput) (*mcp.CallToolResult, EntryDescribeOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out, err := s.describeEntry(input)
	s.recordCall("entry_describe", err)
	if err != nil {
		return nil, EntryDescribeOutput{}, err
	}
	return nil, out, nil
}

func (s *Server) describeEntry(input EntryInput) (EntryDescribeOutput, error) {
	g, e, err := s.lookupEntry(input)
	if err != nil {
		return EntryDescribeOutput{}, err
	}
	view, err := s.vs.ReadEntry(e.ID, vault.LatestVersion)
	if err != nil {
		return EntryDescribeOutput{}, fmt.Errorf("failed to read entry: %w", err)
	}

	return EntryDescribeOutput{
		Group:          g.Name,
		Entry:          view.Name,
		User:           s.vs.Users()[view.UserID],
		MaskedPassword: maskValue(view.Password),
		PasswordLength: len([]rune(view.Password)),
		Strength:       security.Strength(view.Password, "").String(),
		HasURL:         view.URL != nil && *view.URL != "",
		Properties:     cli.MapKeys(view.Properties),
		Versions:       int(view.MaxVersion) + 1,
	}, nil
}

// visibleGroups returns the groups the policy exposes.
func (s *Server) visibleGroups() []vault.Group {
	var out []vault.Group
	for _, g := range s.vs.Groups() {
		if ok, _ := s.policy.IsGroupAllowed(g.Name); ok {
			out = append(out, g)
		}
	}
	return out
}

func (s *Server) lookupGroup(name string) (vault.Group, error) {
	if name == "" {
		return vault.Group{}, errors.New("group is required")
	}
	if ok, reason := s.policy.IsGroupAllowed(name); !ok {
		return vault.Group{}, fmt.Errorf("access denied: %s", reason)
	}
	g, ok := s.vs.GroupByName(name)
	if !ok {
		return vault.Group{}, fmt.Errorf("group '%s' not found", name)
	}
	return g, nil
}

func (s *Server) lookupEntry(input EntryInput) (vault.Group, session.Entry, error) {
	g, err := s.lookupGroup(input.Group)
	if err != nil {
		return vault.Group{}, session.Entry{}, err
	}
	if input.Entry == "" {
		return vault.Group{}, session.Entry{}, errors.New("entry is required")
	}
	if err := s.vs.SelectGroup(g.ID); err != nil {
		return vault.Group{}, session.Entry{}, fmt.Errorf("failed to read group '%s': %w", g.Name, err)
	}
	e, ok := s.vs.EntryByName(input.Entry)
	if !ok {
		return vault.Group{}, session.Entry{}, fmt.Errorf("entry '%s' not found in group '%s'", input.Entry, g.Name)
	}
	return g, e, nil
}

func entryName(e session.Entry) string { return e.Name }

// maskValue keeps at most the last four characters visible.
// Values of four characters or less are fully masked.
func maskValue(value string) string {
	r := []rune(value)
	n := len(r)
	switch {
	case n == 0:
		return ""
	case n <= 4:
		return strings.Repeat("*", n)
	case n <= 8:
		return strings.Repeat("*", n-2) + string(r[n-2:])
	default:
		return strings.Repeat("*", n-4) + string(r[n-4:])
	}
}
