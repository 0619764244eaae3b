package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/forest6511/pman/internal/cli"
	"github.com/forest6511/pman/pkg/session"
	"github.com/forest6511/pman/pkg/vault"
)

var (
	showVersion uint32
	showReveal  bool
)

var groupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "List the groups of the vault",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		vs, err := openVault()
		if err != nil {
			return err
		}
		return printGroups(cmd.OutOrStdout(), vs)
	},
}

var entriesCmd = &cobra.Command{
	Use:   "entries [group] [pattern]",
	Short: "List entry names, optionally of one group and matching a glob pattern",
	Args:  cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		vs, err := openVault()
		if err != nil {
			return err
		}
		var group, pattern string
		if len(args) > 0 {
			group = args[0]
		}
		if len(args) > 1 {
			pattern = args[1]
		}
		return printEntries(cmd.OutOrStdout(), vs, group, pattern)
	},
}

var showCmd = &cobra.Command{
	Use:   "show <group> <entry>",
	Short: "Show an entry",
	Long: `Show an entry. Secret values are masked unless --reveal is given.

Examples:
  pman show web github
  pman show web github --reveal
  pman show web github --version 1   # the version before the current one`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		vs, err := openVault()
		if err != nil {
			return err
		}
		return printEntry(cmd.OutOrStdout(), vs, args[0], args[1], showVersion, showReveal)
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <text>",
	Short: "Find entries whose name contains text, ignoring case",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		vs, err := openVault()
		if err != nil {
			return err
		}
		return printSearch(cmd.OutOrStdout(), vs, args[0])
	},
}

func init() {
	rootCmd.AddCommand(groupsCmd, entriesCmd, showCmd, searchCmd)
	showCmd.Flags().Uint32Var(&showVersion, "version", vault.LatestVersion, "version to show: 0 is current, 1 the previous one")
	showCmd.Flags().BoolVar(&showReveal, "reveal", false, "print secret values")
}

func printGroups(out io.Writer, vs *session.VaultSession) error {
	groups := vs.Groups()
	if len(groups) == 0 {
		fmt.Fprintln(out, "No groups")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "GROUP\tENTRIES")
	for _, g := range groups {
		fmt.Fprintf(w, "%s\t%d\n", g.Name, g.EntryCount)
	}
	return w.Flush()
}

func printEntries(out io.Writer, vs *session.VaultSession, group, pattern string) error {
	groups := vs.Groups()
	if group != "" {
		g, err := findGroup(vs, group)
		if err != nil {
			return err
		}
		groups = []vault.Group{g}
	}

	count := 0
	for _, g := range groups {
		if err := vs.SelectGroup(g.ID); err != nil {
			return err
		}
		entries, err := cli.Filter(pattern, vs.Entries(), entryName)
		if err != nil {
			return err
		}
		for _, e := range entries {
			fmt.Fprintf(out, "%s/%s\n", g.Name, e.Name)
			count++
		}
	}
	if count == 0 {
		fmt.Fprintln(out, "No entries found")
	}
	return nil
}

func printEntry(out io.Writer, vs *session.VaultSession, group, name string, version uint32, reveal bool) error {
	_, e, err := findEntry(vs, group, name)
	if err != nil {
		return err
	}
	view, err := vs.ReadEntry(e.ID, version)
	if err != nil {
		return err
	}

	groupName := group
	if g, ok := vs.Group(view.GroupID); ok {
		groupName = g.Name
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Name:\t%s\n", view.Name)
	fmt.Fprintf(w, "Group:\t%s\n", groupName)
	fmt.Fprintf(w, "User:\t%s\n", vs.Users()[view.UserID])
	fmt.Fprintf(w, "Password:\t%s\n", secretText(view.Password, reveal))
	if view.URL != nil && *view.URL != "" {
		fmt.Fprintf(w, "URL:\t%s\n", *view.URL)
	}
	if view.Version != vault.LatestVersion {
		fmt.Fprintf(w, "Version:\t%d back from current\n", view.Version)
	}
	if view.MaxVersion > 0 {
		fmt.Fprintf(w, "History:\t%d older versions\n", view.MaxVersion)
	}
	if len(view.Properties) > 0 {
		fmt.Fprintln(w, "Properties:\t")
		for _, name := range cli.MapKeys(view.Properties) {
			fmt.Fprintf(w, "  %s:\t%s\n", name, secretText(view.Properties[name], reveal))
		}
	}
	return w.Flush()
}

func printSearch(out io.Writer, vs *session.VaultSession, text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("search text must not be empty")
	}
	hits, err := vs.Search(text)
	if err != nil {
		return err
	}
	if len(hits) == 0 {
		fmt.Fprintln(out, "No entries found")
		return nil
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].GroupName != hits[j].GroupName {
			return hits[i].GroupName < hits[j].GroupName
		}
		return strings.ToLower(hits[i].Entry.Name) < strings.ToLower(hits[j].Entry.Name)
	})
	for _, h := range hits {
		fmt.Fprintf(out, "%s/%s\n", h.GroupName, h.Entry.Name)
	}
	return nil
}

// findGroup resolves a group by exact name.
func findGroup(vs *session.VaultSession, name string) (vault.Group, error) {
	g, ok := vs.GroupByName(name)
	if !ok {
		return vault.Group{}, fmt.Errorf("%w: %s", session.ErrGroupNotFound, name)
	}
	return g, nil
}

// findEntry selects group and resolves one entry by name or unique glob.
func findEntry(vs *session.VaultSession, group, name string) (vault.Group, session.Entry, error) {
	g, err := findGroup(vs, group)
	if err != nil {
		return vault.Group{}, session.Entry{}, err
	}
	if err := vs.SelectGroup(g.ID); err != nil {
		return vault.Group{}, session.Entry{}, err
	}
	e, err := cli.MatchOne(name, vs.Entries(), entryName)
	if err != nil {
		return vault.Group{}, session.Entry{}, fmt.Errorf("entry %w", err)
	}
	return g, e, nil
}

func entryName(e session.Entry) string { return e.Name }

func secretText(value string, reveal bool) string {
	if reveal {
		return value
	}
	if value == "" {
		return ""
	}
	return "********"
}
