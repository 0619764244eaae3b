package security

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Credential is one secret value found in a vault.
type Credential struct {
	Group string
	Entry string
	// Field is "password" or a property name.
	Field string
	Value string
}

// Label names the credential as group/entry[field].
func (c Credential) Label() string {
	return c.Group + "/" + c.Entry + "[" + c.Field + "]"
}

// IssueType identifies the kind of problem.
type IssueType string

const (
	IssueWeakPassword      IssueType = "weak"
	IssueDuplicatePassword IssueType = "duplicate"
)

// Issue is one detected problem.
type Issue struct {
	Type        IssueType `json:"type"`
	Credentials []string  `json:"credentials,omitempty"`
	Description string    `json:"description"`
	Suggestion  string    `json:"suggestion,omitempty"`
}

// Report is the result of Analyze. Overall is 0-100: half strength, half uniqueness.
type Report struct {
	Overall     int      `json:"overall"`
	Strength    int      `json:"strength"`
	Uniqueness  int      `json:"uniqueness"`
	Checked     int      `json:"checked"`
	Issues      []Issue  `json:"issues"`
	Suggestions []string `json:"suggestions"`
}

// DuplicateGroup is a set of credentials sharing one value.
type DuplicateGroup struct {
	Credentials []string `json:"credentials,omitempty"`
	Count       int      `json:"count"`
}

// Analyzer compares values through HMAC-SHA256 with a key that lives only
// as long as the Analyzer, so no digest can be matched offline.
type Analyzer struct {
	key []byte
}

// NewAnalyzer creates an Analyzer with a fresh random key.
func NewAnalyzer() (*Analyzer, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	return &Analyzer{key: key}, nil
}

// Analyze rates every non-empty credential. Without includeNames the issues
// carry no credential labels.
func (a *Analyzer) Analyze(creds []Credential, includeNames bool) *Report {
	creds = nonEmpty(creds)
	r := &Report{Checked: len(creds), Issues: []Issue{}, Suggestions: []string{}}
	if len(creds) == 0 {
		r.Strength, r.Uniqueness, r.Overall = 50, 50, 100
		return r
	}

	total := 0
	for _, c := range creds {
		s := Strength(normalizeValue(c.Value), c.Field)
		total += s.Points()
		if s == PasswordWeak {
			issue := Issue{
				Type:        IssueWeakPassword,
				Description: "Password has insufficient strength (" + formatLength(normalizeValue(c.Value)) + ")",
				Suggestion:  "Use a longer password (14+ characters for passwords, 32+ for tokens)",
			}
			if includeNames {
				issue.Credentials = []string{c.Label()}
			}
			r.Issues = append(r.Issues, issue)
		}
	}
	// Points are 0-25 per credential; the component is 0-50.
	r.Strength = total * 2 / len(creds)

	unique := make(map[string]bool)
	for _, c := range creds {
		unique[a.hash(c.Value)] = true
	}
	r.Uniqueness = len(unique) * 50 / len(creds)

	for _, d := range a.FindDuplicates(creds, includeNames) {
		r.Issues = append(r.Issues, Issue{
			Type:        IssueDuplicatePassword,
			Credentials: d.Credentials,
			Description: "Multiple entries share the same password",
			Suggestion:  "Use unique passwords for each entry",
		})
	}

	r.Overall = r.Strength + r.Uniqueness
	r.Suggestions = suggestions(r.Issues)
	return r
}

// FindDuplicates groups credentials with equal values, most duplicated first.
// Values are compared after trimming and NFC normalization.
func (a *Analyzer) FindDuplicates(creds []Credential, includeNames bool) []DuplicateGroup {
	byHash := make(map[string][]Credential)
	var order []string
	for _, c := range nonEmpty(creds) {
		h := a.hash(c.Value)
		if _, ok := byHash[h]; !ok {
			order = append(order, h)
		}
		byHash[h] = append(byHash[h], c)
	}

	var groups []DuplicateGroup
	for _, h := range order {
		cs := byHash[h]
		if len(cs) < 2 {
			continue
		}
		g := DuplicateGroup{Count: len(cs)}
		if includeNames {
			for _, c := range cs {
				g.Credentials = append(g.Credentials, c.Label())
			}
		}
		groups = append(groups, g)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Count > groups[j].Count
	})
	return groups
}

func (a *Analyzer) hash(value string) string {
	h := hmac.New(sha256.New, a.key)
	h.Write([]byte(normalizeValue(value)))
	return hex.EncodeToString(h.Sum(nil))
}

func normalizeValue(value string) string {
	return norm.NFC.String(strings.TrimSpace(value))
}

func nonEmpty(creds []Credential) []Credential {
	out := make([]Credential, 0, len(creds))
	for _, c := range creds {
		if normalizeValue(c.Value) != "" {
			out = append(out, c)
		}
	}
	return out
}

func suggestions(issues []Issue) []string {
	var weak, dup bool
	for _, i := range issues {
		switch i.Type {
		case IssueWeakPassword:
			weak = true
		case IssueDuplicatePassword:
			dup = true
		}
	}
	out := []string{}
	if weak {
		out = append(out, "Update weak passwords with stronger alternatives (14+ characters)")
	}
	if dup {
		out = append(out, "Replace duplicate passwords with unique values")
	}
	return out
}

func formatLength(value string) string {
	n := len([]rune(value))
	if n == 1 {
		return "1 character"
	}
	return strconv.Itoa(n) + " characters"
}
