package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/forest6511/pman/internal/cli"
	"github.com/forest6511/pman/pkg/security"
	"github.com/forest6511/pman/pkg/session"
	"github.com/forest6511/pman/pkg/vault"
)

const envEntryPassword = "PMAN_ENTRY_PASSWORD"

// entryFlags holds the flags shared by entry add and entry modify.
type entryFlags struct {
	password    string
	askPassword bool
	generate    bool
	policy      passwordPolicy
	url         string
	clearURL    bool
	group       string
	user        string
	props       []string
	delProps    []string
}

var (
	entryOpts  entryFlags
	entryForce bool
)

var entryCmd = &cobra.Command{
	Use:   "entry",
	Short: "Create and change entries",
}

var entryAddCmd = &cobra.Command{
	Use:   "add <group> <name>",
	Short: "Create an entry",
	Long: `Create an entry in a group.

Examples:
  pman entry add web github --user me --generate
  pman entry add web github --ask-password --url https://github.com --prop otp=JBSWY3DP`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		vs, err := openVault()
		if err != nil {
			return err
		}
		g, err := findGroup(vs, args[0])
		if err != nil {
			return err
		}
		if err := vs.SelectGroup(g.ID); err != nil {
			return err
		}
		if _, ok := vs.EntryByName(args[1]); ok {
			return fmt.Errorf("entry '%s' already exists in %s", args[1], g.Name)
		}

		es, err := vs.NewEntry()
		if err != nil {
			return err
		}
		if err := es.SetName(args[1]); err != nil {
			es.Cancel(vs)
			return err
		}
		if err := es.SetGroup(g.ID); err != nil {
			es.Cancel(vs)
			return err
		}
		if !entryOpts.askPassword && !entryOpts.generate && entryOpts.password == "" {
			entryOpts.askPassword = true
		}
		if err := saveEntry(cmd.ErrOrStderr(), vs, es, &entryOpts); err != nil {
			return err
		}
		if err := persist(vs); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Entry '%s' created in %s\n", args[1], g.Name)
		return nil
	},
}

var entryModifyCmd = &cobra.Command{
	Use:   "modify <group> <entry>",
	Short: "Change an entry",
	Long: `Change the password, URL, user, group or properties of an entry.
Every change is saved as a new version; older versions stay readable with
'pman show --version'.

Examples:
  pman entry modify web github --generate --length 32
  pman entry modify web github --prop otp=NEWSEED --del-prop recovery
  pman entry modify web github --group archive --clear-url`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		vs, err := openVault()
		if err != nil {
			return err
		}
		_, e, err := findEntry(vs, args[0], args[1])
		if err != nil {
			return err
		}
		es, err := vs.EditEntry(e.ID)
		if err != nil {
			return err
		}
		if err := saveEntry(cmd.ErrOrStderr(), vs, es, &entryOpts); err != nil {
			return err
		}
		if !vs.Modified() {
			fmt.Fprintln(cmd.OutOrStdout(), "Nothing to change")
			return nil
		}
		if err := persist(vs); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Entry '%s' updated\n", e.Name)
		return nil
	},
}

var entryRenameCmd = &cobra.Command{
	Use:   "rename <group> <entry> <new-name>",
	Short: "Rename an entry",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		vs, err := openVault()
		if err != nil {
			return err
		}
		_, e, err := findEntry(vs, args[0], args[1])
		if err != nil {
			return err
		}
		if err := mutated(cmd.ErrOrStderr(), vs.RenameEntry(e.ID, args[2])); err != nil {
			return err
		}
		if err := persist(vs); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Entry '%s' renamed to '%s'\n", e.Name, args[2])
		return nil
	},
}

var entryDeleteCmd = &cobra.Command{
	Use:   "delete <group> <entry>",
	Short: "Delete an entry and its history",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		vs, err := openVault()
		if err != nil {
			return err
		}
		g, e, err := findEntry(vs, args[0], args[1])
		if err != nil {
			return err
		}
		if !entryForce && !confirm(cmd, fmt.Sprintf("Delete '%s/%s' and all its versions?", g.Name, e.Name)) {
			fmt.Fprintln(cmd.OutOrStdout(), "Aborted")
			return nil
		}
		if err := mutated(cmd.ErrOrStderr(), vs.RemoveEntry(e.ID)); err != nil {
			return err
		}
		if err := persist(vs); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Entry '%s' deleted\n", e.Name)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(entryCmd)
	entryCmd.AddCommand(entryAddCmd, entryModifyCmd, entryRenameCmd, entryDeleteCmd)

	for _, c := range []*cobra.Command{entryAddCmd, entryModifyCmd} {
		f := c.Flags()
		f.StringVar(&entryOpts.password, "password", "", "password value (visible in shell history, prefer --ask-password)")
		f.BoolVar(&entryOpts.askPassword, "ask-password", false, "prompt for the password (or read "+envEntryPassword+")")
		f.BoolVar(&entryOpts.generate, "generate", false, "generate a random password")
		f.StringVar(&entryOpts.url, "url", "", "URL of the entry")
		f.StringVar(&entryOpts.group, "group", "", "move the entry to this group")
		f.StringVar(&entryOpts.user, "user", "", "user name of the entry")
		f.StringArrayVar(&entryOpts.props, "prop", nil, "set a property as name=value (repeatable)")
		addPolicyFlags(c, &entryOpts.policy)
		c.MarkFlagsMutuallyExclusive("password", "ask-password", "generate")
	}
	entryModifyCmd.Flags().BoolVar(&entryOpts.clearURL, "clear-url", false, "remove the URL")
	entryModifyCmd.Flags().StringArrayVar(&entryOpts.delProps, "del-prop", nil, "delete a property (repeatable)")
	entryModifyCmd.MarkFlagsMutuallyExclusive("url", "clear-url")
	entryDeleteCmd.Flags().BoolVarP(&entryForce, "force", "f", false, "skip confirmation prompt")
}

// saveEntry applies f to es and saves it. The edit is cancelled on any error.
func saveEntry(warn io.Writer, vs *session.VaultSession, es *session.EntryEditSession, f *entryFlags) error {
	if err := applyEntryFlags(warn, vs, es, f); err != nil {
		es.Cancel(vs)
		return err
	}
	if err := mutated(warn, es.Save(vs)); err != nil {
		es.Cancel(vs)
		var verr *session.ValidationError
		if errors.As(err, &verr) {
			return fmt.Errorf("%s: %s", verr.Field, verr.Message)
		}
		return err
	}
	return nil
}

func applyEntryFlags(warn io.Writer, vs *session.VaultSession, es *session.EntryEditSession, f *entryFlags) error {
	password, err := f.newPassword()
	if err != nil {
		return err
	}
	if password != "" {
		if hint := security.Hint(password); hint != "" && !f.generate {
			warnf(warn, "%s", hint)
		}
		if err := es.SetPassword(password); err != nil {
			return err
		}
	}

	if f.group != "" {
		g, err := findGroup(vs, f.group)
		if err != nil {
			return err
		}
		if err := es.SetGroup(g.ID); err != nil {
			return err
		}
	}
	if f.user != "" {
		id, ok := vs.UserByName(f.user)
		if !ok {
			return fmt.Errorf("user '%s' not found", f.user)
		}
		if err := es.SetUser(id); err != nil {
			return err
		}
	}
	if f.clearURL {
		if err := es.SetURL(""); err != nil {
			return err
		}
	} else if f.url != "" {
		if err := es.SetURL(f.url); err != nil {
			return err
		}
	}

	return applyProperties(es, f.props, f.delProps)
}

// applyProperties sets name=value pairs, updating rows that already exist,
// then deletes the named rows.
func applyProperties(es *session.EntryEditSession, set, del []string) error {
	if len(set) == 0 && len(del) == 0 {
		return nil
	}
	pairs, err := cli.ParsePairs(set)
	if err != nil {
		return err
	}
	if err := es.ShowProperties(); err != nil {
		return err
	}
	for _, name := range cli.MapKeys(pairs) {
		if p, ok := es.Properties().Find(name); ok {
			if err := es.SetProperty(p.ID, pairs[name]); err != nil {
				return err
			}
			continue
		}
		if _, err := es.AddProperty(name, pairs[name]); err != nil {
			return fmt.Errorf("property '%s': %w", name, err)
		}
	}
	for _, name := range del {
		p, ok := es.Properties().Find(name)
		if !ok {
			return fmt.Errorf("%w: %s", session.ErrPropertyUnknown, name)
		}
		es.DeleteProperty(p.ID)
	}
	return nil
}

// newPassword returns the password the flags ask for, or "" to keep the current one.
func (f *entryFlags) newPassword() (string, error) {
	switch {
	case f.generate:
		return f.policy.generate()
	case f.askPassword:
		p, err := readSecret(envEntryPassword, "Entry password: ")
		if err != nil {
			return "", err
		}
		if p == "" {
			return "", errors.New("password must not be empty")
		}
		return p, nil
	default:
		return f.password, nil
	}
}

// latestOf reads the current password of an entry for callers that need
// only the secret.
func latestOf(vs *session.VaultSession, e session.Entry) (string, error) {
	view, err := vs.ReadEntry(e.ID, vault.LatestVersion)
	if err != nil {
		return "", err
	}
	return view.Password, nil
}
