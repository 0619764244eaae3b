package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forest6511/pman/pkg/security"
	"github.com/forest6511/pman/pkg/session"
)

const testPassword = "correct horse battery staple"

// resetFlags puts every flag of the command tree back to its default so
// consecutive Execute calls do not see each other's values.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// runCLI executes pman with args and returns everything it printed.
func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	teardown()
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := runCLI(t, "", args...)
	require.NoError(t, err, out)
	return out
}

// newTestVault sets up an empty pman home and creates one registered vault
// with groups web and mail and users me and work.
func newTestVault(t *testing.T) string {
	t.Helper()
	t.Setenv("PMAN_HOME", t.TempDir())
	t.Setenv("PMAN_LOG_LEVEL", "error")
	t.Setenv(envPassword, testPassword)
	os.Unsetenv(envPassword2)

	path := filepath.Join(t.TempDir(), "personal.yaml")
	out := mustRun(t, "vault", "create", path,
		"--group", "web", "--group", "mail", "--user", "me", "--user", "work")
	require.Contains(t, out, "Vault created at")
	return path
}

func TestVaultCreateAndList(t *testing.T) {
	path := newTestVault(t)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(vaultFileMode), info.Mode().Perm())

	out := mustRun(t, "vault", "list")
	assert.Contains(t, out, "personal")
	assert.Contains(t, out, path)

	out = mustRun(t, "groups")
	assert.Contains(t, out, "web")
	assert.Contains(t, out, "mail")

	_, err = runCLI(t, "", "vault", "create", path)
	assert.ErrorContains(t, err, "already exists")
}

func TestVaultCreateDefaults(t *testing.T) {
	t.Setenv("PMAN_HOME", t.TempDir())
	t.Setenv("PMAN_LOG_LEVEL", "error")
	t.Setenv(envPassword, testPassword)

	path := filepath.Join(t.TempDir(), "work.yaml")
	mustRun(t, "vault", "create", path, "--name", "job")

	out := mustRun(t, "--vault", "job", "groups")
	assert.Contains(t, out, defaultGroup)
	out = mustRun(t, "--vault", "job", "user", "list")
	assert.Contains(t, out, defaultUser)
}

func TestOpenWithWrongPassword(t *testing.T) {
	newTestVault(t)
	t.Setenv(envPassword, "not the password")

	_, err := runCLI(t, "", "groups")
	assert.ErrorContains(t, err, "invalid password")
}

func TestVaultRemove(t *testing.T) {
	path := newTestVault(t)

	out, err := runCLI(t, "n\n", "vault", "remove", "personal")
	require.NoError(t, err)
	assert.Contains(t, out, "Aborted")

	mustRun(t, "vault", "remove", "personal", "-f")
	out = mustRun(t, "vault", "list")
	assert.Contains(t, out, "No vaults registered")

	_, err = os.Stat(path)
	assert.NoError(t, err, "the vault file is kept")
}

func TestEntryLifecycle(t *testing.T) {
	newTestVault(t)

	out := mustRun(t, "entry", "add", "web", "github", "--user", "me",
		"--password", "first pass phrase 1234", "--url", "https://github.com", "--prop", "otp=SEED")
	assert.Contains(t, out, "Entry 'github' created in web")

	_, err := runCLI(t, "", "entry", "add", "web", "github", "--password", "x")
	assert.ErrorContains(t, err, "already exists")

	out = mustRun(t, "show", "web", "github")
	assert.Contains(t, out, "********")
	assert.Contains(t, out, "https://github.com")
	assert.Contains(t, out, "otp")
	assert.NotContains(t, out, "first pass phrase")
	assert.NotContains(t, out, "SEED")

	out = mustRun(t, "show", "web", "github", "--reveal")
	assert.Contains(t, out, "first pass phrase 1234")
	assert.Contains(t, out, "SEED")
	assert.Contains(t, out, "me")

	out = mustRun(t, "entry", "modify", "web", "github",
		"--password", "second pass phrase 5678", "--del-prop", "otp", "--prop", "recovery=abc")
	assert.Contains(t, out, "Entry 'github' updated")

	out = mustRun(t, "show", "web", "github", "--reveal")
	assert.Contains(t, out, "second pass phrase 5678")
	assert.Contains(t, out, "recovery")
	assert.NotContains(t, out, "otp")
	assert.Contains(t, out, "1 older versions")

	out = mustRun(t, "show", "web", "github", "--reveal", "--version", "1")
	assert.Contains(t, out, "first pass phrase 1234")
	assert.Contains(t, out, "1 back from current")

	out = mustRun(t, "search", "GIT")
	assert.Contains(t, out, "web/github")

	mustRun(t, "entry", "rename", "web", "github", "hub")
	out = mustRun(t, "entries", "web")
	assert.Contains(t, out, "web/hub")
	assert.NotContains(t, out, "web/github")

	mustRun(t, "entry", "delete", "web", "hub", "-f")
	out = mustRun(t, "entries")
	assert.Contains(t, out, "No entries found")
}

func TestEntryModifyMovesAndClears(t *testing.T) {
	newTestVault(t)
	mustRun(t, "entry", "add", "web", "site", "--password", "some long pass phrase", "--url", "https://example.com")

	mustRun(t, "entry", "modify", "web", "site", "--group", "mail", "--user", "work", "--clear-url")

	out := mustRun(t, "entries", "mail")
	assert.Contains(t, out, "mail/site")
	out = mustRun(t, "show", "mail", "site")
	assert.Contains(t, out, "work")
	assert.NotContains(t, out, "https://example.com")
}

func TestEntryModifyNothing(t *testing.T) {
	newTestVault(t)
	mustRun(t, "entry", "add", "web", "site", "--password", "some long pass phrase")

	out := mustRun(t, "entry", "modify", "web", "site")
	assert.Contains(t, out, "Nothing to change")
}

func TestEntryModifyUnknownProperty(t *testing.T) {
	newTestVault(t)
	mustRun(t, "entry", "add", "web", "site", "--password", "some long pass phrase")

	_, err := runCLI(t, "", "entry", "modify", "web", "site", "--del-prop", "missing")
	assert.ErrorContains(t, err, "property not found")
}

func TestEntryAddGeneratedAndAsked(t *testing.T) {
	newTestVault(t)

	mustRun(t, "entry", "add", "web", "generated", "--generate", "--length", "40", "--no-symbols")
	out := mustRun(t, "show", "web", "generated", "--reveal")
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "Password:") {
			assert.Len(t, strings.TrimSpace(strings.TrimPrefix(line, "Password:")), 40)
		}
	}

	t.Setenv(envEntryPassword, "asked pass phrase value")
	mustRun(t, "entry", "add", "web", "asked")
	out = mustRun(t, "show", "web", "asked", "--reveal")
	assert.Contains(t, out, "asked pass phrase value")
}

func TestEntryAddWeakPasswordWarns(t *testing.T) {
	newTestVault(t)
	out := mustRun(t, "entry", "add", "web", "weak", "--password", "abc")
	assert.Contains(t, out, "Warning:")
}

func TestGroupAndUserCommands(t *testing.T) {
	newTestVault(t)

	mustRun(t, "group", "add", "archive")
	_, err := runCLI(t, "", "group", "add", "archive")
	assert.ErrorContains(t, err, "already exists")

	mustRun(t, "group", "rename", "archive", "old")
	out := mustRun(t, "groups")
	assert.Contains(t, out, "old")
	assert.NotContains(t, out, "archive")

	mustRun(t, "group", "remove", "old", "-f")
	out = mustRun(t, "groups")
	assert.NotContains(t, out, "old")

	mustRun(t, "user", "add", "bob")
	out = mustRun(t, "user", "list")
	assert.Contains(t, out, "bob")
	mustRun(t, "user", "remove", "bob", "-f")
	out = mustRun(t, "user", "list")
	assert.NotContains(t, out, "bob")
}

func TestAuditCommands(t *testing.T) {
	newTestVault(t)
	mustRun(t, "entry", "add", "web", "site", "--password", "some long pass phrase")

	out := mustRun(t, "audit", "list")
	assert.Contains(t, out, "entry.create")
	assert.Contains(t, out, "vault.open")

	out = mustRun(t, "audit", "verify")
	assert.Contains(t, out, "Audit log is valid")

	out = mustRun(t, "audit", "export", "--format", "csv")
	assert.Contains(t, out, "timestamp,operation,source,result,subject")
	assert.Contains(t, out, "entry.create")
	assert.NotContains(t, out, "site")

	_, err := runCLI(t, "", "audit", "export", "--format", "xml")
	assert.ErrorContains(t, err, "invalid format")

	out = mustRun(t, "audit", "prune", "--older-than", "1d", "--dry-run")
	assert.Contains(t, out, "Would delete 0")

	_, err = runCLI(t, "", "audit", "prune")
	assert.ErrorContains(t, err, "--older-than")
}

func TestAuditDisabled(t *testing.T) {
	newTestVault(t)
	t.Setenv("PMAN_AUDIT", "false")

	_, err := runCLI(t, "", "audit", "list")
	assert.ErrorContains(t, err, "disabled")
}

func TestSecurityCommand(t *testing.T) {
	newTestVault(t)
	mustRun(t, "entry", "add", "web", "a", "--password", "hunter2")
	mustRun(t, "entry", "add", "mail", "b", "--password", "hunter2")
	mustRun(t, "entry", "add", "web", "c", "--password", "a much longer unique pass phrase")

	out := mustRun(t, "security", "--json")
	var report security.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 3, report.Checked)
	assert.Less(t, report.Overall, 100)
	for _, issue := range report.Issues {
		assert.Empty(t, issue.Credentials, "names are hidden by default")
	}

	out = mustRun(t, "security", "--show-names")
	assert.Contains(t, out, "[WEAK]")
	assert.Contains(t, out, "[DUPLICATE]")
	assert.Contains(t, out, "web/a[password]")

	out = mustRun(t, "security", "duplicates")
	assert.Contains(t, out, "2 values are the same")
	assert.Contains(t, out, "mail/b[password]")
}

func TestShell(t *testing.T) {
	newTestVault(t)
	mustRun(t, "entry", "add", "web", "github", "--password", "some long pass phrase")

	script := strings.Join([]string{
		"ls",
		"show github",
		"cd web",
		"ls",
		"show github",
		"reveal github",
		"rename github gh",
		"bogus",
		"quit",
		"save",
		"quit",
	}, "\n") + "\n"
	out, err := runCLI(t, script, "shell")
	require.NoError(t, err)

	assert.Contains(t, out, "no group selected")
	assert.Contains(t, out, "web/github")
	assert.Contains(t, out, "some long pass phrase")
	assert.Contains(t, out, "unknown command: bogus")
	assert.Contains(t, out, "Unsaved changes")
	assert.Contains(t, out, "Saved")
	assert.Contains(t, out, "pman personal/web*> ")

	out = mustRun(t, "entries", "web")
	assert.Contains(t, out, "web/gh")
}

func TestShellEOFDiscards(t *testing.T) {
	newTestVault(t)

	out, err := runCLI(t, "mkgroup extra\n", "shell")
	require.NoError(t, err)
	assert.Contains(t, out, "Group 'extra' added")
	assert.Contains(t, out, "Unsaved changes discarded")

	out = mustRun(t, "groups")
	assert.NotContains(t, out, "extra")
}

func TestGenerateCommand(t *testing.T) {
	out := mustRun(t, "generate", "-n", "3", "-l", "12", "--no-symbols")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	for _, l := range lines {
		assert.Len(t, l, 12)
	}

	_, err := runCLI(t, "", "generate", "-n", "0")
	assert.Error(t, err)
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"30d", 30 * 24 * time.Hour, false},
		{"2w", 14 * 24 * time.Hour, false},
		{"12m", 360 * 24 * time.Hour, false},
		{"1y", 365 * 24 * time.Hour, false},
		{"24h", 24 * time.Hour, false},
		{"90s", 90 * time.Second, false},
		{"d", 0, true},
		{"xd", 0, true},
		{"5q", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseDuration(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConfirm(t *testing.T) {
	for in, want := range map[string]bool{"y\n": true, "YES\n": true, "n\n": false, "\n": false, "": false} {
		cmd := &cobra.Command{}
		cmd.SetIn(strings.NewReader(in))
		cmd.SetOut(&bytes.Buffer{})
		assert.Equal(t, want, confirm(cmd, "sure?"), "input %q", in)
	}
}

func TestWriteVaultFileRejectsRelativePath(t *testing.T) {
	assert.Error(t, writeVaultFile("relative.yaml", []byte("x")))

	path := filepath.Join(t.TempDir(), "sub", "v.yaml")
	require.NoError(t, writeVaultFile(path, []byte("data")))
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "data", string(got))
}

func TestMutatedTurnsRefreshFailureIntoWarning(t *testing.T) {
	var buf bytes.Buffer
	failed := errors.New("disk gone")

	assert.NoError(t, mutated(&buf, &session.RefreshError{Err: failed}))
	assert.Contains(t, buf.String(), "Warning:")
	assert.Contains(t, buf.String(), "disk gone")

	buf.Reset()
	assert.ErrorIs(t, mutated(&buf, failed), failed)
	assert.NoError(t, mutated(&buf, nil))
	assert.Empty(t, buf.String())
}
