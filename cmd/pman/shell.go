package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/forest6511/pman/pkg/audit"
	"github.com/forest6511/pman/pkg/session"
	"github.com/forest6511/pman/pkg/vault"
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Browse and edit a vault interactively",
	Long: `Open a vault once and run commands against it until quit.

Changes are kept in memory until 'save'. Type 'help' for the commands.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a.source = audit.SourceShell
		vs, err := openVault()
		if err != nil {
			return err
		}
		sh := &shell{vs: vs, out: cmd.OutOrStdout()}
		sh.run(bufio.NewScanner(cmd.InOrStdin()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(shellCmd)
}

const shellHelp = `Commands:
  groups                     list groups
  cd <group> | cd ..         select a group, or go back to the group list
  ls [pattern]               list entries of the selected group (groups when none is selected)
  show <entry> [version]     show an entry, secrets masked
  reveal <entry> [version]   show an entry with its secrets
  search <text>              find entries in every group
  copy <entry>               copy the password to the clipboard
  passwd <entry> [length]    set a generated password
  rename <entry> <new-name>  rename an entry
  rm <entry>                 delete an entry
  mkgroup <name>             add a group
  save                       write changes to the vault file
  help                       show this help
  quit | exit                leave (quit! discards unsaved changes)`

// shell is a read-eval-print loop over one open vault.
type shell struct {
	vs  *session.VaultSession
	out io.Writer
}

func (s *shell) prompt() string {
	name := strings.TrimSuffix(filepath.Base(s.vs.Name()), filepath.Ext(s.vs.Name()))
	if id, ok := s.vs.SelectedGroup(); ok {
		if g, ok := s.vs.Group(id); ok {
			name += "/" + g.Name
		}
	}
	if s.vs.Modified() {
		name += "*"
	}
	return "pman " + name + "> "
}

// run reads commands until EOF or quit. Command errors are printed and the
// loop goes on.
func (s *shell) run(scanner *bufio.Scanner) {
	for {
		fmt.Fprint(s.out, s.prompt())
		if !scanner.Scan() {
			fmt.Fprintln(s.out)
			if s.vs.Modified() {
				fmt.Fprintln(s.out, "Unsaved changes discarded")
			}
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		if done := s.exec(parts[0], parts[1:]); done {
			return
		}
	}
}

// exec runs one command and reports whether the loop should end.
func (s *shell) exec(cmd string, args []string) bool {
	var err error
	switch cmd {
	case "help", "?":
		fmt.Fprintln(s.out, shellHelp)
	case "groups":
		err = printGroups(s.out, s.vs)
	case "cd":
		err = s.cd(args)
	case "ls", "l":
		err = s.ls(args)
	case "show", "reveal":
		err = s.show(args, cmd == "reveal")
	case "search":
		if len(args) == 0 {
			err = errors.New("usage: search <text>")
		} else {
			err = printSearch(s.out, s.vs, strings.Join(args, " "))
		}
	case "copy":
		err = s.copy(args)
	case "passwd":
		err = s.passwd(args)
	case "rename":
		err = s.rename(args)
	case "rm":
		err = s.remove(args)
	case "mkgroup":
		if len(args) != 1 {
			err = errors.New("usage: mkgroup <name>")
		} else if _, err = s.vs.AddGroup(args[0]); err == nil {
			fmt.Fprintf(s.out, "Group '%s' added\n", args[0])
		}
	case "save":
		if err = persist(s.vs); err == nil {
			fmt.Fprintln(s.out, "Saved")
		}
	case "quit", "exit":
		if s.vs.Modified() {
			fmt.Fprintln(s.out, "Unsaved changes: run 'save', or 'quit!' to discard them")
			return false
		}
		return true
	case "quit!", "exit!":
		return true
	default:
		err = fmt.Errorf("unknown command: %s (try 'help')", cmd)
	}
	if err != nil {
		fmt.Fprintf(s.out, "%s %v\n", errLabel("Error:"), err)
	}
	return false
}

func (s *shell) cd(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: cd <group> | cd ..")
	}
	if args[0] == ".." || args[0] == "/" {
		return s.vs.ClearGroup()
	}
	g, err := findGroup(s.vs, args[0])
	if err != nil {
		return err
	}
	return s.vs.SelectGroup(g.ID)
}

func (s *shell) ls(args []string) error {
	pattern := ""
	if len(args) > 0 {
		pattern = args[0]
	}
	id, ok := s.vs.SelectedGroup()
	if !ok {
		return printGroups(s.out, s.vs)
	}
	g, _ := s.vs.Group(id)
	return printEntries(s.out, s.vs, g.Name, pattern)
}

// entryArg resolves an entry of the selected group.
func (s *shell) entryArg(name string) (vault.Group, session.Entry, error) {
	id, ok := s.vs.SelectedGroup()
	if !ok {
		return vault.Group{}, session.Entry{}, errors.New("no group selected: use 'cd <group>'")
	}
	g, _ := s.vs.Group(id)
	return findEntry(s.vs, g.Name, name)
}

func (s *shell) show(args []string, reveal bool) error {
	if len(args) == 0 || len(args) > 2 {
		return errors.New("usage: show <entry> [version]")
	}
	version := vault.LatestVersion
	if len(args) == 2 {
		v, err := strconv.ParseUint(args[1], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid version: %s", args[1])
		}
		version = uint32(v)
	}
	g, e, err := s.entryArg(args[0])
	if err != nil {
		return err
	}
	return printEntry(s.out, s.vs, g.Name, e.Name, version, reveal)
}

func (s *shell) copy(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: copy <entry>")
	}
	_, e, err := s.entryArg(args[0])
	if err != nil {
		return err
	}
	password, err := latestOf(s.vs, e)
	if err != nil {
		return err
	}
	if err := copyToClipboard(password); err != nil {
		return err
	}
	fmt.Fprintln(s.out, "Password copied to clipboard")
	return nil
}

func (s *shell) passwd(args []string) error {
	if len(args) == 0 || len(args) > 2 {
		return errors.New("usage: passwd <entry> [length]")
	}
	policy := passwordPolicy{length: defaultPasswordLength}
	if len(args) == 2 {
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid length: %s", args[1])
		}
		policy.length = n
	}
	_, e, err := s.entryArg(args[0])
	if err != nil {
		return err
	}
	es, err := s.vs.EditEntry(e.ID)
	if err != nil {
		return err
	}
	if err := saveEntry(s.out, s.vs, es, &entryFlags{generate: true, policy: policy}); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Password of '%s' changed (not saved yet)\n", e.Name)
	return nil
}

func (s *shell) rename(args []string) error {
	if len(args) != 2 {
		return errors.New("usage: rename <entry> <new-name>")
	}
	_, e, err := s.entryArg(args[0])
	if err != nil {
		return err
	}
	return s.vs.RenameEntry(e.ID, args[1])
}

func (s *shell) remove(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: rm <entry>")
	}
	_, e, err := s.entryArg(args[0])
	if err != nil {
		return err
	}
	if err := s.vs.RemoveEntry(e.ID); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Entry '%s' deleted (not saved yet)\n", e.Name)
	return nil
}
