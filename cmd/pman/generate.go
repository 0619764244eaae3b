package main

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
)

const (
	charsetLowercase = "abcdefghijklmnopqrstuvwxyz"
	charsetUppercase = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	charsetDigits    = "0123456789"
	charsetSymbols   = "!@#$%^&*()_+-=[]{}|;:,.<>?"

	minPasswordLength     = 8
	maxPasswordLength     = 256
	defaultPasswordLength = 24
	defaultPasswordCount  = 1
	maxPasswordCount      = 100
	maxExcludeLength      = 256
)

// passwordPolicy describes the passwords to generate.
type passwordPolicy struct {
	length      int
	noSymbols   bool
	noNumbers   bool
	noUppercase bool
	noLowercase bool
	exclude     string
}

var (
	genPolicy passwordPolicy
	genCount  int
	genCopy   bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate secure random passwords",
	Long: `Generate cryptographically secure random passwords.

Examples:
  # Generate a 24-character password (default)
  pman generate

  # Generate 5 passwords of 32 characters without symbols
  pman generate -l 32 -n 5 --no-symbols

  # Exclude ambiguous characters
  pman generate --exclude "0O1lI"`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if genCount < 1 {
			return errors.New("count must be at least 1")
		}
		if genCount > maxPasswordCount {
			return fmt.Errorf("count must be at most %d", maxPasswordCount)
		}

		passwords := make([]string, 0, genCount)
		for i := 0; i < genCount; i++ {
			p, err := genPolicy.generate()
			if err != nil {
				return err
			}
			passwords = append(passwords, p)
			fmt.Fprintln(cmd.OutOrStdout(), p)
		}

		if genCopy {
			if err := copyToClipboard(passwords[0]); err != nil {
				warnf(cmd.ErrOrStderr(), "failed to copy to clipboard: %v", err)
			} else {
				fmt.Fprintln(cmd.ErrOrStderr(), okMark, "Password copied to clipboard")
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)
	addPolicyFlags(generateCmd, &genPolicy)
	generateCmd.Flags().IntVarP(&genCount, "count", "n", defaultPasswordCount, "number of passwords to generate (1-100)")
	generateCmd.Flags().BoolVarP(&genCopy, "copy", "c", false, "copy the first password to the clipboard")
}

// addPolicyFlags binds the generator flags of cmd to p.
func addPolicyFlags(cmd *cobra.Command, p *passwordPolicy) {
	cmd.Flags().IntVarP(&p.length, "length", "l", defaultPasswordLength, "password length (8-256)")
	cmd.Flags().BoolVar(&p.noSymbols, "no-symbols", false, "exclude symbols")
	cmd.Flags().BoolVar(&p.noNumbers, "no-numbers", false, "exclude numbers")
	cmd.Flags().BoolVar(&p.noUppercase, "no-uppercase", false, "exclude uppercase letters")
	cmd.Flags().BoolVar(&p.noLowercase, "no-lowercase", false, "exclude lowercase letters")
	cmd.Flags().StringVar(&p.exclude, "exclude", "", "characters to exclude")
}

func (p passwordPolicy) validate() error {
	if p.length < minPasswordLength {
		return fmt.Errorf("password length must be at least %d characters", minPasswordLength)
	}
	if p.length > maxPasswordLength {
		return fmt.Errorf("password length must be at most %d characters", maxPasswordLength)
	}
	if len(p.exclude) > maxExcludeLength {
		return fmt.Errorf("exclude string must be at most %d characters", maxExcludeLength)
	}
	return nil
}

func (p passwordPolicy) charset() (string, error) {
	var b strings.Builder
	if !p.noLowercase {
		b.WriteString(charsetLowercase)
	}
	if !p.noUppercase {
		b.WriteString(charsetUppercase)
	}
	if !p.noNumbers {
		b.WriteString(charsetDigits)
	}
	if !p.noSymbols {
		b.WriteString(charsetSymbols)
	}

	result := removeChars(b.String(), p.exclude)
	if result == "" {
		return "", errors.New("character set is empty: adjust flags to include at least one character type")
	}
	return result, nil
}

func (p passwordPolicy) generate() (string, error) {
	if err := p.validate(); err != nil {
		return "", err
	}
	charset, err := p.charset()
	if err != nil {
		return "", err
	}
	return generatePassword(charset, p.length)
}

func removeChars(s, chars string) string {
	if chars == "" {
		return s
	}
	exclude := make(map[rune]bool)
	for _, c := range chars {
		exclude[c] = true
	}
	var b strings.Builder
	for _, c := range s {
		if !exclude[c] {
			b.WriteRune(c)
		}
	}
	return b.String()
}

// generatePassword draws length characters of charset from crypto/rand.
func generatePassword(charset string, length int) (string, error) {
	n := big.NewInt(int64(len(charset)))
	password := make([]byte, length)
	for i := range password {
		idx, err := rand.Int(rand.Reader, n)
		if err != nil {
			return "", fmt.Errorf("failed to generate random number: %w", err)
		}
		password[i] = charset[idx.Int64()]
	}
	return string(password), nil
}

func copyToClipboard(text string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("pbcopy")
	case "linux":
		if _, err := exec.LookPath("wl-copy"); err == nil && os.Getenv("WAYLAND_DISPLAY") != "" {
			cmd = exec.Command("wl-copy")
		} else if _, err := exec.LookPath("xclip"); err == nil {
			cmd = exec.Command("xclip", "-selection", "clipboard")
		} else if _, err := exec.LookPath("xsel"); err == nil {
			cmd = exec.Command("xsel", "--clipboard", "--input")
		} else {
			return errors.New("clipboard tool not found: install wl-clipboard, xclip or xsel")
		}
	case "windows":
		cmd = exec.Command("clip")
	default:
		return fmt.Errorf("clipboard not supported on %s", runtime.GOOS)
	}

	cmd.Stdin = strings.NewReader(text)
	return cmd.Run()
}
