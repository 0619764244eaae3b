package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/forest6511/pman/internal/logger"
	"github.com/forest6511/pman/internal/mcp"
	"github.com/forest6511/pman/pkg/audit"
)

var mcpServerCmd = &cobra.Command{
	Use:   "mcp-server",
	Short: "Serve a vault to AI agents over MCP (stdio)",
	Long: `Start a Model Context Protocol server on stdin/stdout.

The server opens one vault and exposes read-only tools that list groups and
entries and describe entries. Passwords and property values are never
returned; the strength of a password is reported instead.

Authentication:
  Set PMAN_PASSWORD (and PMAN_PASSWORD2 with --second-password). The
  variables are removed from the environment once read.

Policy:
  Create <home>/mcp-policy.yaml to hide groups from agents:

    version: 1
    default_action: allow
    denied_groups: ["bank*", "secret"]

Vault:
  --vault, then mcp.vault in config.yaml, then the only registered vault.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMCPServer()
	},
}

func init() {
	rootCmd.AddCommand(mcpServerCmd)
}

func runMCPServer() error {
	a.source = audit.SourceMCP
	if flagVault == "" {
		flagVault = a.cfg.MCP.Vault
	}
	if os.Getenv(envPassword) == "" {
		return fmt.Errorf("%s must be set for the MCP server", envPassword)
	}

	vs, err := openVault()
	if err != nil {
		return err
	}
	_ = os.Unsetenv(envPassword)
	_ = os.Unsetenv(envPassword2)

	policy, err := mcp.LoadPolicy(a.cfg.Home)
	switch {
	case errors.Is(err, mcp.ErrPolicyNotFound):
		policy = nil
	case err != nil:
		return fmt.Errorf("failed to load MCP policy: %w", err)
	}

	opts := []mcp.Option{
		mcp.WithLogger(logger.Log),
		mcp.WithPolicy(policy),
		mcp.WithVersion(version),
	}
	if a.cfg.AuditEnabled() {
		loc, err := currentLocation()
		if err != nil {
			return err
		}
		opts = append(opts, mcp.WithAuditor(a.auditor(loc)))
	}

	server, err := mcp.NewServer(vs, opts...)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	logger.Log.Info("mcp server started", zap.String("vault", vs.Name()), zap.Bool("policy", policy != nil))
	err = server.Run(ctx)
	server.Close()
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("MCP server error: %w", err)
	}
	return nil
}
