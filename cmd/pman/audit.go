package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/forest6511/pman/pkg/audit"
)

var (
	auditLimit          int
	auditSince          string
	auditExportFormat   string
	auditExportSince    string
	auditExportUntil    string
	auditExportOutput   string
	auditPruneOlderThan string
	auditPruneDryRun    bool
	auditPruneForce     bool
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the audit log of a vault",
	Long: `Inspect the audit log of a vault.

Every vault has its own tamper-evident log. Names of entries and groups are
stored as HMACs keyed by the vault password, so reading the log reveals
which operations happened but not what they touched. Verifying the chain
needs the vault password.`,
}

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "List audit log records",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		l, err := auditLogger()
		if err != nil {
			return err
		}
		since, err := sinceTime(auditSince)
		if err != nil {
			return err
		}
		events, err := l.ListEvents(auditLimit, since)
		if err != nil {
			return fmt.Errorf("failed to list audit events: %w", err)
		}
		out := cmd.OutOrStdout()
		if len(events) == 0 {
			fmt.Fprintln(out, "No audit events found")
			return nil
		}
		for _, ev := range events {
			line := fmt.Sprintf("%s %s %s %s", ev.Timestamp, ev.Source, ev.Operation, ev.Result)
			if ev.Subject != "" {
				subject := ev.Subject
				if len(subject) > 16 {
					subject = subject[:16] + "..."
				}
				line += " subject:" + subject
			}
			if ev.Error != "" {
				line += " error:" + ev.Error
			}
			fmt.Fprintln(out, line)
		}
		fmt.Fprintf(out, "\nTotal: %d events\n", len(events))
		return nil
	},
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify the integrity of the audit log chain",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		l, err := auditLogger()
		if err != nil {
			return err
		}
		// Opening the vault sets the HMAC key of its audit logger.
		if _, err := openVault(); err != nil {
			return err
		}
		res, err := l.Verify()
		if err != nil {
			return fmt.Errorf("failed to verify audit log: %w", err)
		}
		out := cmd.OutOrStdout()
		if res.Valid {
			fmt.Fprintf(out, "Audit log is valid: %d records verified\n", res.RecordsTotal)
			return nil
		}
		fmt.Fprintf(out, "Audit log is INVALID: %d records checked\n", res.RecordsTotal)
		for _, e := range res.Errors {
			fmt.Fprintf(out, "  - %s\n", e)
		}
		return errors.New("audit log verification failed")
	},
}

var auditExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export audit records as JSON or CSV",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if auditExportFormat != "json" && auditExportFormat != "csv" {
			return fmt.Errorf("invalid format: %s (use 'json' or 'csv')", auditExportFormat)
		}
		l, err := auditLogger()
		if err != nil {
			return err
		}
		since, err := sinceTime(auditExportSince)
		if err != nil {
			return err
		}
		var until time.Time
		if auditExportUntil != "" {
			if until, err = time.Parse(time.RFC3339, auditExportUntil); err != nil {
				return fmt.Errorf("invalid until format (use RFC 3339): %w", err)
			}
		}

		data, err := l.Export(auditExportFormat, since, until)
		if err != nil {
			return fmt.Errorf("failed to export audit logs: %w", err)
		}
		if auditExportOutput == "" {
			_, err := cmd.OutOrStdout().Write(data)
			return err
		}
		path, err := filepath.Abs(auditExportOutput)
		if err != nil {
			return fmt.Errorf("invalid output path: %w", err)
		}
		if err := os.WriteFile(path, data, 0600); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Audit logs exported to %s\n", path)
		return nil
	},
}

var auditPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete old audit records",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if auditPruneOlderThan == "" {
			return errors.New("--older-than flag is required")
		}
		age, err := parseDuration(auditPruneOlderThan)
		if err != nil {
			return fmt.Errorf("invalid older-than format: %w", err)
		}
		l, err := auditLogger()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		count, err := l.Prune(age, true)
		if err != nil {
			return fmt.Errorf("failed to preview prune: %w", err)
		}
		if auditPruneDryRun {
			fmt.Fprintf(out, "Would delete %d audit records older than %s\n", count, auditPruneOlderThan)
			return nil
		}
		if count == 0 {
			fmt.Fprintln(out, "No audit records to delete")
			return nil
		}
		if !auditPruneForce && !confirm(cmd, fmt.Sprintf("Delete %d audit records older than %s?", count, auditPruneOlderThan)) {
			fmt.Fprintln(out, "Aborted")
			return nil
		}
		deleted, err := l.Prune(age, false)
		if err != nil {
			return fmt.Errorf("failed to prune audit logs: %w", err)
		}
		fmt.Fprintf(out, "Deleted %d audit records\n", deleted)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditListCmd, auditVerifyCmd, auditExportCmd, auditPruneCmd)

	auditListCmd.Flags().IntVar(&auditLimit, "limit", 100, "maximum number of events to show")
	auditListCmd.Flags().StringVar(&auditSince, "since", "", "show events since duration (e.g. 24h, 7d)")

	auditExportCmd.Flags().StringVar(&auditExportFormat, "format", "json", "output format: json, csv")
	auditExportCmd.Flags().StringVar(&auditExportSince, "since", "", "export events since duration (e.g. 30d)")
	auditExportCmd.Flags().StringVar(&auditExportUntil, "until", "", "export events until date (RFC 3339)")
	auditExportCmd.Flags().StringVarP(&auditExportOutput, "output", "o", "", "output file (default: stdout)")

	auditPruneCmd.Flags().StringVar(&auditPruneOlderThan, "older-than", "", "delete records older than duration (e.g. 12m)")
	auditPruneCmd.Flags().BoolVar(&auditPruneDryRun, "dry-run", false, "show what would be deleted")
	auditPruneCmd.Flags().BoolVarP(&auditPruneForce, "force", "f", false, "skip confirmation prompt")
}

// auditLogger returns the audit logger of the current vault.
func auditLogger() (*audit.Logger, error) {
	if !a.cfg.AuditEnabled() {
		return nil, errors.New("audit logging is disabled in the configuration")
	}
	loc, err := currentLocation()
	if err != nil {
		return nil, err
	}
	return a.auditor(loc), nil
}

func sinceTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	d, err := parseDuration(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid since format: %w", err)
	}
	return time.Now().Add(-d), nil
}
