package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/forest6511/pman/pkg/security"
	"github.com/forest6511/pman/pkg/session"
	"github.com/forest6511/pman/pkg/vault/memvault"
)

const (
	defaultGroup = "General"
	defaultUser  = "default"
)

var (
	vaultName    string
	vaultKeyFile string
	vaultGroups  []string
	vaultUsers   []string
	vaultForce   bool
)

var vaultCmd = &cobra.Command{
	Use:   "vault",
	Short: "Manage known vaults",
}

var vaultCreateCmd = &cobra.Command{
	Use:   "create <path>",
	Short: "Create a new vault file and register it",
	Long: `Create a new vault file and register it.

The file is a development vault: a YAML document holding password digests
and plain values. Use it for trying pman out, not for real secrets.

Examples:
  pman vault create ~/vaults/personal.yaml --group web --group mail --user me`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}

		password, err := readSecret(envPassword, "New password: ")
		if err != nil {
			return err
		}
		confirmation, err := readSecret(envPassword, "Confirm password: ")
		if err != nil {
			return err
		}
		if password != confirmation {
			return errors.New("passwords do not match")
		}
		if password == "" {
			return errors.New("password must not be empty")
		}
		if hint := security.Hint(password); hint != "" {
			warnf(cmd.ErrOrStderr(), "%s", hint)
		}

		var password2 string
		if flagSecondPassword {
			if password2, err = readSecret(envPassword2, "Second password: "); err != nil {
				return err
			}
		}

		var keyHash []byte
		keyFile := ""
		if vaultKeyFile != "" {
			if keyFile, err = filepath.Abs(vaultKeyFile); err != nil {
				return err
			}
			data, err := os.ReadFile(keyFile)
			if err != nil {
				return fmt.Errorf("failed to read key file: %w", err)
			}
			keyHash = memvault.HashKeyFile(data)
		}

		groups, users := vaultGroups, vaultUsers
		if len(groups) == 0 {
			groups = []string{defaultGroup}
		}
		if len(users) == 0 {
			users = []string{defaultUser}
		}
		doc, err := memvault.NewDocument(session.HashPassword(password), session.HashPassword(password2),
			keyHash, groups, users)
		if err != nil {
			return fmt.Errorf("failed to build vault: %w", err)
		}
		if err := writeFileAtomic(path, doc); err != nil {
			return err
		}
		if _, err := a.ws.AddVault(path, vaultName, keyFile); err != nil {
			_ = os.Remove(path)
			return fmt.Errorf("failed to register vault: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Vault created at %s\n", path)
		return nil
	},
}

var vaultAddCmd = &cobra.Command{
	Use:   "add <path>",
	Short: "Register an existing vault file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		keyFile := vaultKeyFile
		if keyFile != "" {
			abs, err := filepath.Abs(keyFile)
			if err != nil {
				return err
			}
			keyFile = abs
		}
		if _, err := a.ws.AddVault(args[0], vaultName, keyFile); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Vault %s registered\n", args[0])
		return nil
	},
}

var vaultListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known vaults",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		locs := a.ws.Registry().List()
		if len(locs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No vaults registered")
			return nil
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tPATH\tKEY FILE")
		for _, loc := range locs {
			keyFile := loc.KeyFile
			if keyFile == "" {
				keyFile = "-"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", loc.Name, loc.Path, keyFile)
		}
		return w.Flush()
	},
}

var vaultRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Forget a vault (the file is kept)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !vaultForce && !confirm(cmd, fmt.Sprintf("Forget vault '%s'?", args[0])) {
			fmt.Fprintln(cmd.OutOrStdout(), "Aborted")
			return nil
		}
		if err := a.ws.RemoveVault(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Vault '%s' removed\n", args[0])
		return nil
	},
}

var vaultKeyFileCmd = &cobra.Command{
	Use:   "key-file <name> [path]",
	Short: "Set or clear the key file of a vault",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		keyFile := ""
		if len(args) == 2 {
			abs, err := filepath.Abs(args[1])
			if err != nil {
				return err
			}
			keyFile = abs
		}
		if err := a.ws.Registry().SetKeyFile(args[0], keyFile); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Key file of '%s' updated\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(vaultCmd)
	vaultCmd.AddCommand(vaultCreateCmd, vaultAddCmd, vaultListCmd, vaultRemoveCmd, vaultKeyFileCmd)

	for _, c := range []*cobra.Command{vaultCreateCmd, vaultAddCmd} {
		c.Flags().StringVar(&vaultName, "name", "", "registry name (default: file name without extension)")
		c.Flags().StringVar(&vaultKeyFile, "key-file", "", "key file required to open the vault")
	}
	vaultCreateCmd.Flags().StringArrayVar(&vaultGroups, "group", nil, "initial group (repeatable, default "+defaultGroup+")")
	vaultCreateCmd.Flags().StringArrayVar(&vaultUsers, "user", nil, "initial user (repeatable, default "+defaultUser+")")
	vaultRemoveCmd.Flags().BoolVarP(&vaultForce, "force", "f", false, "skip confirmation prompt")
}
