package main

import (
	"strings"
	"testing"
	"unicode"
)

func TestPasswordPolicyValidate(t *testing.T) {
	tests := []struct {
		name        string
		length      int
		exclude     string
		expectError bool
	}{
		{name: "valid defaults", length: defaultPasswordLength},
		{name: "minimum length", length: minPasswordLength},
		{name: "maximum length", length: maxPasswordLength},
		{name: "length too short", length: minPasswordLength - 1, expectError: true},
		{name: "length too long", length: maxPasswordLength + 1, expectError: true},
		{name: "exclude too long", length: 24, exclude: strings.Repeat("a", maxExcludeLength+1), expectError: true},
		{name: "valid exclude", length: 24, exclude: "0O1lI"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := passwordPolicy{length: tt.length, exclude: tt.exclude}
			err := p.validate()
			if tt.expectError && err == nil {
				t.Errorf("expected error but got nil")
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestPasswordPolicyCharset(t *testing.T) {
	tests := []struct {
		name        string
		policy      passwordPolicy
		expectError bool
		contains    string
		notContains string
	}{
		{name: "all character types", contains: "aA0!"},
		{name: "no symbols", policy: passwordPolicy{noSymbols: true}, contains: "aA0", notContains: "!@#"},
		{name: "no numbers", policy: passwordPolicy{noNumbers: true}, contains: "aA!", notContains: "0123"},
		{name: "no uppercase", policy: passwordPolicy{noUppercase: true}, contains: "a0!", notContains: "ABC"},
		{name: "no lowercase", policy: passwordPolicy{noLowercase: true}, contains: "A0!", notContains: "abc"},
		{name: "letters only", policy: passwordPolicy{noNumbers: true, noSymbols: true}, contains: "aA", notContains: "0!"},
		{name: "exclude ambiguous", policy: passwordPolicy{exclude: "0O1lI"}, contains: "a2!", notContains: "0O1lI"},
		{
			name:        "empty charset",
			policy:      passwordPolicy{noLowercase: true, noUppercase: true, noNumbers: true, noSymbols: true},
			expectError: true,
		},
		{
			name:        "everything excluded",
			policy:      passwordPolicy{noUppercase: true, noNumbers: true, noSymbols: true, exclude: charsetLowercase},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			charset, err := tt.policy.charset()
			if tt.expectError {
				if err == nil {
					t.Errorf("expected error but got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for _, c := range tt.contains {
				if !strings.ContainsRune(charset, c) {
					t.Errorf("charset should contain %q", c)
				}
			}
			for _, c := range tt.notContains {
				if strings.ContainsRune(charset, c) {
					t.Errorf("charset should not contain %q", c)
				}
			}
		})
	}
}

func TestRemoveChars(t *testing.T) {
	tests := []struct {
		s, chars, want string
	}{
		{"abcdef", "", "abcdef"},
		{"abcdef", "ace", "bdf"},
		{"abc", "abc", ""},
		{"aabbcc", "b", "aacc"},
	}
	for _, tt := range tests {
		if got := removeChars(tt.s, tt.chars); got != tt.want {
			t.Errorf("removeChars(%q, %q) = %q, want %q", tt.s, tt.chars, got, tt.want)
		}
	}
}

func TestGeneratePassword(t *testing.T) {
	for _, length := range []int{minPasswordLength, defaultPasswordLength, maxPasswordLength} {
		p, err := generatePassword(charsetLowercase, length)
		if err != nil {
			t.Fatalf("generatePassword(%d): %v", length, err)
		}
		if len(p) != length {
			t.Errorf("len = %d, want %d", len(p), length)
		}
		for _, c := range p {
			if !unicode.IsLower(c) {
				t.Errorf("unexpected character %q", c)
			}
		}
	}
}

func TestGeneratePasswordRandomness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		p, err := passwordPolicy{length: defaultPasswordLength}.generate()
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if seen[p] {
			t.Fatalf("duplicate password generated: %s", p)
		}
		seen[p] = true
	}
}

func TestPasswordPolicyGenerateRejectsInvalid(t *testing.T) {
	if _, err := (passwordPolicy{length: 4}).generate(); err == nil {
		t.Error("expected error for a too short length")
	}
	if _, err := (passwordPolicy{length: 12, noLowercase: true, noUppercase: true, noNumbers: true, noSymbols: true}).generate(); err == nil {
		t.Error("expected error for an empty charset")
	}
}

func TestCharsetConstants(t *testing.T) {
	if len(charsetLowercase) != 26 || len(charsetUppercase) != 26 || len(charsetDigits) != 10 {
		t.Error("unexpected letter or digit charset size")
	}
	for _, c := range charsetSymbols {
		if unicode.IsLetter(c) || unicode.IsDigit(c) || unicode.IsSpace(c) {
			t.Errorf("symbol charset contains %q", c)
		}
	}
}
