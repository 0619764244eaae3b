// Package security rates passwords and reports weak or reused ones.
package security

import (
	"strings"
	"unicode/utf8"
)

// PasswordStrength is the strength level of a password or token.
type PasswordStrength int

const (
	// PasswordWeak is below 8 characters for passwords, 16 for tokens.
	PasswordWeak PasswordStrength = iota
	PasswordFair
	PasswordGood
	PasswordStrong
)

func (s PasswordStrength) String() string {
	switch s {
	case PasswordWeak:
		return "Weak"
	case PasswordFair:
		return "Fair"
	case PasswordGood:
		return "Good"
	case PasswordStrong:
		return "Strong"
	default:
		return "Unknown"
	}
}

// Points is the share of the strength component: Weak=0, Fair=8, Good=17, Strong=25.
func (s PasswordStrength) Points() int {
	switch s {
	case PasswordFair:
		return 8
	case PasswordGood:
		return 17
	case PasswordStrong:
		return 25
	default:
		return 0
	}
}

var tokenNames = []string{"token", "api_key", "apikey", "api-key", "secret_key"}

// IsTokenName reports whether a property name looks like a machine-generated token.
func IsTokenName(name string) bool {
	lower := strings.ToLower(name)
	for _, n := range tokenNames {
		if strings.Contains(lower, n) {
			return true
		}
	}
	return false
}

// Strength rates value. Property values named like tokens use the token
// thresholds; everything else is rated by length only (NIST SP 800-63B).
func Strength(value, name string) PasswordStrength {
	n := utf8.RuneCountInString(value)
	if IsTokenName(name) {
		switch {
		case n >= 32:
			return PasswordStrong
		case n >= 20:
			return PasswordGood
		case n >= 16:
			return PasswordFair
		default:
			return PasswordWeak
		}
	}
	switch {
	case n >= 20:
		return PasswordStrong
	case n >= 14:
		return PasswordGood
	case n >= 8:
		return PasswordFair
	default:
		return PasswordWeak
	}
}

// Hint returns a one-line note for a password being entered, or "" when it is good enough.
func Hint(password string) string {
	switch Strength(password, "") {
	case PasswordWeak:
		return "weak password: use at least 8 characters, 14 or more recommended"
	case PasswordFair:
		return "fair password: 14 or more characters recommended"
	default:
		return ""
	}
}
