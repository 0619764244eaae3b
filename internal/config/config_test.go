package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PMAN_HOME", "PMAN_LOG_LEVEL", "PMAN_LOG_FILE", "PMAN_REGISTRY_BACKEND",
		"PMAN_REGISTRY_PATH", "PMAN_AUDIT_PATH", "PMAN_MCP_VAULT", "PMAN_AUDIT",
	} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestResolveDefaults(t *testing.T) {
	clearEnv(t)
	home := t.TempDir()

	cfg, err := Resolve(Config{Home: home}, "")
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, BackendYAML, cfg.Registry.Backend)
	assert.Equal(t, filepath.Join(home, "vaults.yaml"), cfg.Registry.Path)
	assert.Equal(t, filepath.Join(home, "audit"), cfg.Audit.Path)
	assert.True(t, cfg.AuditEnabled())
}

func TestResolvePriority(t *testing.T) {
	clearEnv(t)
	home := t.TempDir()
	writeConfig(t, home, "log_level: info\nregistry:\n  backend: sqlite\naudit:\n  enabled: false\nmcp:\n  vault: work\n")

	t.Setenv("PMAN_HOME", home)
	t.Setenv("PMAN_LOG_LEVEL", "error")
	t.Setenv("PMAN_AUDIT", "true")
	t.Setenv("PMAN_AUDIT_PATH", "/var/audit")

	cfg, err := Resolve(Config{LogLevel: "debug"}, "")
	require.NoError(t, err)
	assert.Equal(t, home, cfg.Home, "home comes from the environment")
	assert.Equal(t, "debug", cfg.LogLevel, "flags win")
	assert.Equal(t, BackendSQLite, cfg.Registry.Backend, "file beats defaults")
	assert.Equal(t, filepath.Join(home, "vaults.db"), cfg.Registry.Path)
	assert.False(t, cfg.AuditEnabled(), "file beats environment")
	assert.Equal(t, "/var/audit", cfg.Audit.Path, "environment beats defaults")
	assert.Equal(t, "work", cfg.MCP.Vault)
}

func TestResolveRejectsUnknownBackend(t *testing.T) {
	clearEnv(t)
	t.Setenv("PMAN_REGISTRY_BACKEND", "etcd")

	_, err := Resolve(Config{Home: t.TempDir()}, "")
	assert.ErrorIs(t, err, ErrBackend)
}

func TestResolveBackendIsCaseInsensitive(t *testing.T) {
	clearEnv(t)
	t.Setenv("PMAN_REGISTRY_BACKEND", "SQLite")

	cfg, err := Resolve(Config{Home: t.TempDir()}, "")
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, cfg.Registry.Backend)
}

func TestResolveExplicitConfigPath(t *testing.T) {
	clearEnv(t)
	other := t.TempDir()
	path := writeConfig(t, other, "log_file: /tmp/pman.log\n")

	cfg, err := Resolve(Config{Home: t.TempDir()}, path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/pman.log", cfg.LogFile)

	_, err = Resolve(Config{Home: t.TempDir()}, filepath.Join(other, "nope.yaml"))
	assert.NoError(t, err, "a missing config file is not an error")
}

func TestLoadFileRejectsInsecureFiles(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not enforced on Windows")
	}
	dir := t.TempDir()
	path := writeConfig(t, dir, "log_level: info\n")

	require.NoError(t, os.Chmod(path, 0666))
	_, err := LoadFile(path)
	assert.ErrorIs(t, err, ErrInsecureFile)

	require.NoError(t, os.Chmod(path, 0600))
	link := filepath.Join(dir, "link.yaml")
	require.NoError(t, os.Symlink(path, link))
	_, err = LoadFile(link)
	assert.ErrorIs(t, err, ErrSymlink)

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadFileParseError(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "log_level: [unclosed\n")
	_, err := LoadFile(path)
	assert.ErrorContains(t, err, "failed to parse")
}
