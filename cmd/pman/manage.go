package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var manageForce bool

var groupCmd = &cobra.Command{
	Use:   "group",
	Short: "Add, rename and remove groups",
}

var groupAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		vs, err := openVault()
		if err != nil {
			return err
		}
		if _, ok := vs.GroupByName(args[0]); ok {
			return fmt.Errorf("group '%s' already exists", args[0])
		}
		if _, err := vs.AddGroup(args[0]); mutated(cmd.ErrOrStderr(), err) != nil {
			return err
		}
		if err := persist(vs); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Group '%s' added\n", args[0])
		return nil
	},
}

var groupRenameCmd = &cobra.Command{
	Use:   "rename <name> <new-name>",
	Short: "Rename a group",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		vs, err := openVault()
		if err != nil {
			return err
		}
		g, err := findGroup(vs, args[0])
		if err != nil {
			return err
		}
		if err := mutated(cmd.ErrOrStderr(), vs.RenameGroup(g.ID, args[1])); err != nil {
			return err
		}
		if err := persist(vs); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Group '%s' renamed to '%s'\n", g.Name, args[1])
		return nil
	},
}

var groupRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		vs, err := openVault()
		if err != nil {
			return err
		}
		g, err := findGroup(vs, args[0])
		if err != nil {
			return err
		}
		question := fmt.Sprintf("Remove group '%s'?", g.Name)
		if g.EntryCount > 0 {
			question = fmt.Sprintf("Remove group '%s' with %d entries?", g.Name, g.EntryCount)
		}
		if !manageForce && !confirm(cmd, question) {
			fmt.Fprintln(cmd.OutOrStdout(), "Aborted")
			return nil
		}
		if err := mutated(cmd.ErrOrStderr(), vs.RemoveGroup(g.ID)); err != nil {
			return err
		}
		if err := persist(vs); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Group '%s' removed\n", g.Name)
		return nil
	},
}

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "List, add and remove users",
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List users",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		vs, err := openVault()
		if err != nil {
			return err
		}
		names := make([]string, 0, len(vs.Users()))
		for _, name := range vs.Users() {
			names = append(names, name)
		}
		if len(names) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No users")
			return nil
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

var userAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		vs, err := openVault()
		if err != nil {
			return err
		}
		if _, ok := vs.UserByName(args[0]); ok {
			return fmt.Errorf("user '%s' already exists", args[0])
		}
		if _, err := vs.AddUser(args[0]); mutated(cmd.ErrOrStderr(), err) != nil {
			return err
		}
		if err := persist(vs); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "User '%s' added\n", args[0])
		return nil
	},
}

var userRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		vs, err := openVault()
		if err != nil {
			return err
		}
		id, ok := vs.UserByName(args[0])
		if !ok {
			return fmt.Errorf("user '%s' not found", args[0])
		}
		if !manageForce && !confirm(cmd, fmt.Sprintf("Remove user '%s'?", args[0])) {
			fmt.Fprintln(cmd.OutOrStdout(), "Aborted")
			return nil
		}
		if err := mutated(cmd.ErrOrStderr(), vs.RemoveUser(id)); err != nil {
			return err
		}
		if err := persist(vs); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "User '%s' removed\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(groupCmd, userCmd)
	groupCmd.AddCommand(groupAddCmd, groupRenameCmd, groupRemoveCmd)
	userCmd.AddCommand(userListCmd, userAddCmd, userRemoveCmd)
	for _, c := range []*cobra.Command{groupRemoveCmd, userRemoveCmd} {
		c.Flags().BoolVarP(&manageForce, "force", "f", false, "skip confirmation prompt")
	}
}
