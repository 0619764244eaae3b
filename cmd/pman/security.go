package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/forest6511/pman/internal/cli"
	"github.com/forest6511/pman/pkg/security"
	"github.com/forest6511/pman/pkg/session"
	"github.com/forest6511/pman/pkg/vault"
)

var (
	securityVerbose   bool
	securityJSON      bool
	securityShowNames bool
)

var securityCmd = &cobra.Command{
	Use:   "security",
	Short: "Analyze the passwords of a vault",
	Long: `Rate the passwords and property values of a vault.

The score is calculated from:
  - Strength (0-50): average strength of every value
  - Uniqueness (0-50): share of values not used anywhere else

Entry names are left out of issues unless --show-names is given.

Examples:
  pman security
  pman security --verbose --show-names
  pman security --json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		creds, err := scanVault(cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		analyzer, err := security.NewAnalyzer()
		if err != nil {
			return err
		}
		report := analyzer.Analyze(creds, securityShowNames)
		if securityJSON {
			data, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		}
		printReport(cmd.OutOrStdout(), report, securityVerbose)
		return nil
	},
}

var securityDuplicatesCmd = &cobra.Command{
	Use:   "duplicates",
	Short: "List values used by more than one entry",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		creds, err := scanVault(cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		analyzer, err := security.NewAnalyzer()
		if err != nil {
			return err
		}
		groups := analyzer.FindDuplicates(creds, true)
		out := cmd.OutOrStdout()
		if len(groups) == 0 {
			fmt.Fprintln(out, "No duplicate values found")
			return nil
		}
		fmt.Fprintf(out, "Duplicate values (%d groups found)\n\n", len(groups))
		for i, g := range groups {
			fmt.Fprintf(out, "%d. %d values are the same:\n", i+1, g.Count)
			for _, label := range g.Credentials {
				fmt.Fprintf(out, "   - %s\n", label)
			}
			fmt.Fprintln(out)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(securityCmd)
	securityCmd.AddCommand(securityDuplicatesCmd)

	securityCmd.Flags().BoolVarP(&securityVerbose, "verbose", "v", false, "show suggestions")
	securityCmd.Flags().BoolVar(&securityJSON, "json", false, "output in JSON format")
	securityCmd.Flags().BoolVar(&securityShowNames, "show-names", false, "name the entries behind each issue")
}

// scanVault opens the vault and reads every value, with a spinner on
// interactive terminals.
func scanVault(w io.Writer) ([]security.Credential, error) {
	vs, err := openVault()
	if err != nil {
		return nil, err
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = " Reading entries..."
	s.Start()
	defer s.Stop()
	return collectCredentials(vs)
}

// collectCredentials reads the current password and property values of every entry.
func collectCredentials(vs *session.VaultSession) ([]security.Credential, error) {
	var creds []security.Credential
	for _, g := range vs.Groups() {
		if err := vs.SelectGroup(g.ID); err != nil {
			return nil, err
		}
		for _, e := range vs.Entries() {
			view, err := vs.ReadEntry(e.ID, vault.LatestVersion)
			if err != nil {
				return nil, fmt.Errorf("failed to read %s/%s: %w", g.Name, e.Name, err)
			}
			creds = append(creds, security.Credential{
				Group: g.Name, Entry: e.Name, Field: "password", Value: view.Password,
			})
			for _, name := range cli.MapKeys(view.Properties) {
				creds = append(creds, security.Credential{
					Group: g.Name, Entry: e.Name, Field: name, Value: view.Properties[name],
				})
			}
		}
	}
	return creds, vs.ClearGroup()
}

func printReport(out io.Writer, r *security.Report, verbose bool) {
	var rating string
	switch {
	case r.Overall >= 90:
		rating = "Excellent"
	case r.Overall >= 70:
		rating = "Good"
	case r.Overall >= 50:
		rating = "Fair"
	default:
		rating = "Needs Attention"
	}

	fmt.Fprintf(out, "Security Score: %s\n\n", ratingColor(r.Overall)("%d/100 (%s)", r.Overall, rating))
	fmt.Fprintln(out, "Components:")
	fmt.Fprintf(out, "  Strength:   %2d/50 %s\n", r.Strength, progressBar(r.Strength, 50))
	fmt.Fprintf(out, "  Uniqueness: %2d/50 %s\n", r.Uniqueness, progressBar(r.Uniqueness, 50))
	fmt.Fprintf(out, "  Checked:    %d values\n\n", r.Checked)

	if len(r.Issues) > 0 {
		fmt.Fprintf(out, "Issues (%d):\n", len(r.Issues))
		for i, issue := range r.Issues {
			names := ""
			if len(issue.Credentials) > 0 {
				names = " " + strings.Join(issue.Credentials, ", ")
			}
			fmt.Fprintf(out, "  %d. %s%s: %s\n", i+1, color.RedString("[%s]", strings.ToUpper(string(issue.Type))), names, issue.Description)
		}
		fmt.Fprintln(out)
	}

	if verbose && len(r.Suggestions) > 0 {
		fmt.Fprintln(out, "Suggestions:")
		for _, s := range r.Suggestions {
			fmt.Fprintf(out, "  - %s\n", s)
		}
		fmt.Fprintln(out)
	}
}

func progressBar(value, maxVal int) string {
	const width = 20
	filled := value * width / maxVal
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}
