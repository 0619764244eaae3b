package mcp

import (
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Policy decides which groups the MCP tools may expose.
type Policy struct {
	Version       int      `yaml:"version"`
	DefaultAction string   `yaml:"default_action"`
	DeniedGroups  []string `yaml:"denied_groups"`
	AllowedGroups []string `yaml:"allowed_groups"`
}

// PolicyFileName is looked up in the pman home directory.
const PolicyFileName = "mcp-policy.yaml"

// Policy actions
const (
	ActionAllow = "allow"
	ActionDeny  = "deny"
)

var (
	ErrPolicyNotFound       = errors.New("MCP policy file not found")
	ErrPolicyInsecure       = errors.New("MCP policy file has insecure permissions")
	ErrPolicySymlink        = errors.New("MCP policy file is a symlink")
	ErrPolicyNotOwnedByUser = errors.New("MCP policy file not owned by current user")
)

// LoadPolicy loads mcp-policy.yaml from dir. The file must be a regular
// file with mode 0600 owned by the current user.
func LoadPolicy(dir string) (*Policy, error) {
	f, err := openPolicyFile(filepath.Join(dir, PolicyFileName))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	// fstat the open descriptor, not the path
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat policy file: %w", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		return nil, fmt.Errorf("%w: %o (expected 0600)", ErrPolicyInsecure, perm)
	}
	if err := checkFileOwnership(f); err != nil {
		return nil, err
	}

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}

	var policy Policy
	if err := yaml.Unmarshal(content, &policy); err != nil {
		return nil, fmt.Errorf("failed to parse policy file: %w", err)
	}
	if policy.DefaultAction == "" {
		policy.DefaultAction = ActionDeny
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &policy, nil
}

// Validate checks the version, the default action and every pattern.
func (p *Policy) Validate() error {
	if p.Version != 1 {
		return fmt.Errorf("unsupported policy version: %d", p.Version)
	}
	if p.DefaultAction != ActionDeny && p.DefaultAction != ActionAllow {
		return fmt.Errorf("invalid default_action: %s (must be '%s' or '%s')", p.DefaultAction, ActionDeny, ActionAllow)
	}
	for _, list := range [][]string{p.DeniedGroups, p.AllowedGroups} {
		for _, pattern := range list {
			if _, err := path.Match(pattern, ""); err != nil {
				return fmt.Errorf("invalid group pattern '%s': %w", pattern, err)
			}
		}
	}
	return nil
}

// IsGroupAllowed evaluates denied_groups, then allowed_groups, then
// default_action. A nil policy allows everything.
func (p *Policy) IsGroupAllowed(group string) (allowed bool, reason string) {
	if p == nil {
		return true, ""
	}
	for _, pattern := range p.DeniedGroups {
		if ok, _ := path.Match(pattern, group); ok {
			return false, fmt.Sprintf("group '%s' matches denied pattern '%s'", group, pattern)
		}
	}
	for _, pattern := range p.AllowedGroups {
		if ok, _ := path.Match(pattern, group); ok {
			return true, ""
		}
	}
	if p.DefaultAction == ActionAllow {
		return true, ""
	}
	return false, fmt.Sprintf("group '%s' not in allowed_groups list", group)
}
