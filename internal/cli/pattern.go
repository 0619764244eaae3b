// Package cli provides helpers shared by the command-line front ends.
package cli

import (
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
)

// HasGlob reports whether pattern contains glob characters.
func HasGlob(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[")
}

// Filter returns the items whose name matches pattern, in input order.
// An empty pattern matches everything. Only a malformed pattern is an error.
// Names are matched with path.Match, so '*' does not cross '/'.
func Filter[T any](pattern string, items []T, name func(T) string) ([]T, error) {
	if pattern == "" {
		return items, nil
	}
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, fmt.Errorf("invalid pattern '%s': %w", pattern, err)
	}
	var out []T
	for _, it := range items {
		if ok, _ := path.Match(pattern, name(it)); ok {
			out = append(out, it)
		}
	}
	return out, nil
}

// Match is Filter for patterns that must match something. A pattern
// without glob characters must match one name exactly.
func Match[T any](pattern string, items []T, name func(T) string) ([]T, error) {
	if pattern == "" {
		return nil, errors.New("empty pattern")
	}
	out, err := Filter(pattern, items, name)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		if !HasGlob(pattern) {
			return nil, fmt.Errorf("'%s' not found", pattern)
		}
		return nil, fmt.Errorf("nothing matches pattern '%s'", pattern)
	}
	if !HasGlob(pattern) {
		out = out[:1]
	}
	return out, nil
}

// MatchOne is Match for callers that need exactly one item.
func MatchOne[T any](pattern string, items []T, name func(T) string) (T, error) {
	var zero T
	found, err := Match(pattern, items, name)
	if err != nil {
		return zero, err
	}
	if len(found) > 1 {
		return zero, fmt.Errorf("pattern '%s' matches %d items", pattern, len(found))
	}
	return found[0], nil
}

// MatchAll expands several patterns and drops duplicates, keeping the
// order of first match.
func MatchAll[T any](patterns []string, items []T, name func(T) string) ([]T, error) {
	seen := make(map[string]bool)
	var out []T
	for _, p := range patterns {
		found, err := Match(p, items, name)
		if err != nil {
			return nil, err
		}
		for _, it := range found {
			if n := name(it); !seen[n] {
				seen[n] = true
				out = append(out, it)
			}
		}
	}
	return out, nil
}

// ParsePairs splits name=value arguments. The value may contain '='.
func ParsePairs(args []string) (map[string]string, error) {
	out := make(map[string]string, len(args))
	for _, a := range args {
		name, value, ok := strings.Cut(a, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid pair '%s': expected name=value", a)
		}
		out[name] = value
	}
	return out, nil
}

// MapKeys returns the keys of m sorted.
func MapKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
