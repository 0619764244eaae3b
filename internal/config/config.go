// Package config resolves client settings.
// Priority from highest: command-line flags, config file, environment, defaults.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileName is the config file inside the home directory.
const FileName = "config.yaml"

// Registry backends
const (
	BackendYAML   = "yaml"
	BackendSQLite = "sqlite"
)

// Errors
var (
	ErrInsecureFile = errors.New("config: file must not be writable by group or others")
	ErrSymlink      = errors.New("config: file is a symlink")
	ErrNotOwned     = errors.New("config: file is not owned by the current user")
	ErrBackend      = errors.New("config: unknown registry backend")
)

// Config holds every setting of the client.
type Config struct {
	Home     string         `yaml:"-"`
	LogLevel string         `yaml:"log_level"`
	LogFile  string         `yaml:"log_file"`
	Registry RegistryConfig `yaml:"registry"`
	Audit    AuditConfig    `yaml:"audit"`
	MCP      MCPConfig      `yaml:"mcp"`
}

// RegistryConfig selects where known vaults are stored.
type RegistryConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

// AuditConfig controls the audit log.
type AuditConfig struct {
	Enabled *bool  `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// MCPConfig holds MCP server settings.
type MCPConfig struct {
	Vault string `yaml:"vault"`
}

// AuditEnabled reports whether audit logging is on. Default on.
func (c *Config) AuditEnabled() bool {
	return c.Audit.Enabled == nil || *c.Audit.Enabled
}

// DefaultHome returns ~/.pman.
func DefaultHome() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: failed to get user home directory: %w", err)
	}
	return filepath.Join(home, ".pman"), nil
}

// Resolve fills every unset value of flags from the config file, then from
// the environment, then from defaults. configPath may be empty.
func Resolve(flags Config, configPath string) (*Config, error) {
	cfg := flags

	if cfg.Home == "" {
		cfg.Home = os.Getenv("PMAN_HOME")
	}
	if cfg.Home == "" {
		home, err := DefaultHome()
		if err != nil {
			return nil, err
		}
		cfg.Home = home
	}

	if configPath == "" {
		configPath = filepath.Join(cfg.Home, FileName)
	}
	file, err := LoadFile(configPath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	if file != nil {
		merge(&cfg, file)
	}

	mergeEnv(&cfg)
	applyDefaults(&cfg)

	if cfg.Registry.Backend != BackendYAML && cfg.Registry.Backend != BackendSQLite {
		return nil, fmt.Errorf("%w: %s", ErrBackend, cfg.Registry.Backend)
	}
	return &cfg, nil
}

// LoadFile reads a config file. Symlinks, files owned by someone else and
// files writable by group or others are rejected.
func LoadFile(path string) (*Config, error) {
	f, err := openConfigFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if err := checkFile(f); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}
	return &cfg, nil
}

func merge(dst, src *Config) {
	setIfEmpty(&dst.LogLevel, src.LogLevel)
	setIfEmpty(&dst.LogFile, src.LogFile)
	setIfEmpty(&dst.Registry.Backend, src.Registry.Backend)
	setIfEmpty(&dst.Registry.Path, src.Registry.Path)
	setIfEmpty(&dst.Audit.Path, src.Audit.Path)
	setIfEmpty(&dst.MCP.Vault, src.MCP.Vault)
	if dst.Audit.Enabled == nil {
		dst.Audit.Enabled = src.Audit.Enabled
	}
}

func mergeEnv(cfg *Config) {
	setIfEmpty(&cfg.LogLevel, os.Getenv("PMAN_LOG_LEVEL"))
	setIfEmpty(&cfg.LogFile, os.Getenv("PMAN_LOG_FILE"))
	setIfEmpty(&cfg.Registry.Backend, os.Getenv("PMAN_REGISTRY_BACKEND"))
	setIfEmpty(&cfg.Registry.Path, os.Getenv("PMAN_REGISTRY_PATH"))
	setIfEmpty(&cfg.Audit.Path, os.Getenv("PMAN_AUDIT_PATH"))
	setIfEmpty(&cfg.MCP.Vault, os.Getenv("PMAN_MCP_VAULT"))
	if cfg.Audit.Enabled == nil {
		if v, err := strconv.ParseBool(os.Getenv("PMAN_AUDIT")); err == nil {
			cfg.Audit.Enabled = &v
		}
	}
}

func applyDefaults(cfg *Config) {
	setIfEmpty(&cfg.LogLevel, "warn")
	cfg.Registry.Backend = strings.ToLower(cfg.Registry.Backend)
	setIfEmpty(&cfg.Registry.Backend, BackendYAML)
	if cfg.Registry.Path == "" {
		name := "vaults.yaml"
		if cfg.Registry.Backend == BackendSQLite {
			name = "vaults.db"
		}
		cfg.Registry.Path = filepath.Join(cfg.Home, name)
	}
	setIfEmpty(&cfg.Audit.Path, filepath.Join(cfg.Home, "audit"))
}

func setIfEmpty(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}
