package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/forest6511/pman/internal/config"
	"github.com/forest6511/pman/internal/logger"
	"github.com/forest6511/pman/pkg/audit"
	"github.com/forest6511/pman/pkg/registry"
	"github.com/forest6511/pman/pkg/session"
	"github.com/forest6511/pman/pkg/vault/memvault"
)

// Environment variables read instead of prompting.
const (
	envPassword  = "PMAN_PASSWORD"
	envPassword2 = "PMAN_PASSWORD2"
)

// app is the state shared by every command of one invocation.
type app struct {
	cfg      *config.Config
	store    registry.Store
	ws       *session.Workspace
	auditors map[string]*audit.Logger
	source   string
}

var (
	a *app

	flagHome           string
	flagConfig         string
	flagLogLevel       string
	flagLogFile        string
	flagRegistry       string
	flagVault          string
	flagSecondPassword bool
)

var rootCmd = &cobra.Command{
	Use:           "pman",
	Short:         "pman is a terminal client for password vaults",
	Long:          `Browse and edit password vaults. Values are read from the vault only when shown or edited.`,
	SilenceUsage:  true,
	SilenceErrors: false,
	Version:       version,
	// PersistentPreRunE resolves the configuration and loads the registry
	// before every subcommand.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		switch cmd.Name() {
		case "generate", "help", "completion":
			return nil
		}
		return setup()
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagHome, "home", "", "pman home directory (default ~/.pman)")
	pf.StringVar(&flagConfig, "config", "", "config file (default <home>/config.yaml)")
	pf.StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&flagLogFile, "log-file", "", "write logs to this file instead of stderr")
	pf.StringVar(&flagRegistry, "registry-backend", "", "known vaults storage: yaml or sqlite")
	pf.StringVarP(&flagVault, "vault", "V", "", "registered vault name (default: the only registered vault)")
	pf.BoolVar(&flagSecondPassword, "second-password", false, "prompt for the second vault password")
}

func setup() error {
	teardown()
	cfg, err := config.Resolve(config.Config{
		Home:     flagHome,
		LogLevel: flagLogLevel,
		LogFile:  flagLogFile,
		Registry: config.RegistryConfig{Backend: flagRegistry},
	}, flagConfig)
	if err != nil {
		return err
	}
	if err := logger.Initialize(cfg.LogLevel, cfg.LogFile); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if err := os.MkdirAll(cfg.Home, 0700); err != nil {
		return fmt.Errorf("failed to create %s: %w", cfg.Home, err)
	}

	var store registry.Store
	switch cfg.Registry.Backend {
	case config.BackendSQLite:
		store, err = registry.OpenSQLiteStore(cfg.Registry.Path)
		if err != nil {
			return err
		}
	default:
		store = registry.NewYAMLStore(cfg.Registry.Path)
	}
	reg := registry.New(store)
	if err := reg.Load(); err != nil {
		closeStore(store)
		return err
	}

	backend := memvault.New(memvault.WithSaveFunc(writeVaultFile))
	ws := session.NewWorkspace(backend, reg, readVaultFile, session.WithWorkspaceLogger(logger.Log))

	a = &app{
		cfg:      cfg,
		store:    store,
		ws:       ws,
		auditors: make(map[string]*audit.Logger),
		source:   audit.SourceCLI,
	}
	ws.SetLocationOptions(a.locationOptions)

	logger.Log.Debug("configuration resolved",
		zap.String("home", cfg.Home),
		zap.String("registry_backend", cfg.Registry.Backend),
		zap.Bool("audit", cfg.AuditEnabled()))
	return nil
}

// teardown closes what setup opened. It is safe to call more than once.
func teardown() {
	if a != nil {
		a.ws.Close()
		closeStore(a.store)
		a = nil
	}
	logger.Sync()
}

func closeStore(store registry.Store) {
	if c, ok := store.(io.Closer); ok {
		_ = c.Close()
	}
}

// locationOptions gives each vault an audit log of its own.
func (a *app) locationOptions(loc registry.Location) []session.Option {
	if !a.cfg.AuditEnabled() {
		return nil
	}
	return []session.Option{session.WithAuditor(a.auditor(loc))}
}

func (a *app) auditor(loc registry.Location) *audit.Logger {
	if l, ok := a.auditors[loc.ID]; ok {
		return l
	}
	l := audit.NewLogger(filepath.Join(a.cfg.Audit.Path, loc.ID), a.source, logger.Log)
	a.auditors[loc.ID] = l
	return l
}

// currentLocation resolves --vault, falling back to the only registered vault.
func currentLocation() (registry.Location, error) {
	reg := a.ws.Registry()
	if flagVault != "" {
		loc, ok := reg.Get(flagVault)
		if !ok {
			return registry.Location{}, fmt.Errorf("%w: %s", registry.ErrNotFound, flagVault)
		}
		return loc, nil
	}
	locs := reg.List()
	switch len(locs) {
	case 0:
		return registry.Location{}, errors.New("no vault registered: use 'pman vault add' or 'pman vault create'")
	case 1:
		return locs[0], nil
	default:
		return registry.Location{}, fmt.Errorf("%d vaults registered: select one with --vault", len(locs))
	}
}

// openVault prepares and opens the current vault, asking for its passwords.
func openVault() (*session.VaultSession, error) {
	loc, err := currentLocation()
	if err != nil {
		return nil, err
	}
	vs, err := a.ws.Session(loc.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to load vault '%s': %w", loc.Name, err)
	}
	if vs.State() == session.StateOpen {
		return vs, nil
	}

	password, err := readSecret(envPassword, fmt.Sprintf("Password for %s: ", loc.Name))
	if err != nil {
		return nil, err
	}
	var password2 string
	if flagSecondPassword {
		if password2, err = readSecret(envPassword2, "Second password: "); err != nil {
			return nil, err
		}
	}
	var keyFile []byte
	if loc.KeyFile != "" {
		if keyFile, err = os.ReadFile(loc.KeyFile); err != nil {
			return nil, fmt.Errorf("failed to read key file: %w", err)
		}
	}

	if err := vs.Open(password, password2, keyFile); err != nil {
		return nil, fmt.Errorf("failed to open vault '%s': %w", loc.Name, err)
	}
	return vs, nil
}

// mutated turns a refresh failure after an accepted change into a warning.
// The change is in the vault and still gets persisted.
func mutated(w io.Writer, err error) error {
	var rerr *session.RefreshError
	if errors.As(err, &rerr) {
		warnf(w, "%v", rerr)
		return nil
	}
	return err
}

// persist saves the vault when the session has unsaved changes.
func persist(vs *session.VaultSession) error {
	if !vs.Modified() {
		return nil
	}
	if err := vs.Persist(); err != nil {
		return fmt.Errorf("failed to save vault: %w", err)
	}
	return nil
}

// readSecret takes a value from env or prompts without echo.
var readSecret = func(env, prompt string) (string, error) {
	if v, ok := os.LookupEnv(env); ok {
		return v, nil
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", fmt.Errorf("no terminal to read the password: set %s", env)
	}
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(b), nil
}

// parseDuration parses a duration string like "30d", "1y", "24h".
func parseDuration(s string) (time.Duration, error) {
	if len(s) < 2 {
		return 0, fmt.Errorf("duration too short: %s", s)
	}

	unit := s[len(s)-1]
	var value int
	if _, err := fmt.Sscanf(s[:len(s)-1], "%d", &value); err != nil {
		return 0, fmt.Errorf("invalid duration value: %s", s[:len(s)-1])
	}

	switch unit {
	case 'd':
		return time.Duration(value) * 24 * time.Hour, nil
	case 'w':
		return time.Duration(value) * 7 * 24 * time.Hour, nil
	case 'm':
		return time.Duration(value) * 30 * 24 * time.Hour, nil
	case 'y':
		return time.Duration(value) * 365 * 24 * time.Hour, nil
	default:
		return time.ParseDuration(s)
	}
}

// confirm asks a yes/no question on stdin; anything but y or yes is no.
func confirm(cmd *cobra.Command, question string) bool {
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N]: ", question)
	var response string
	if _, err := fmt.Fscanln(cmd.InOrStdin(), &response); err != nil {
		return false
	}
	response = strings.ToLower(strings.TrimSpace(response))
	return response == "y" || response == "yes"
}
