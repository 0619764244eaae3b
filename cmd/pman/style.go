package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Colors are dropped automatically when stdout is not a terminal or
// NO_COLOR is set.
var (
	warnLabel = color.New(color.FgYellow, color.Bold).SprintFunc()
	errLabel  = color.New(color.FgRed, color.Bold).SprintFunc()
	okMark    = color.GreenString("✓")
)

func warnf(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", warnLabel("Warning:"), fmt.Sprintf(format, args...))
}

// ratingColor picks the color of a security score.
func ratingColor(score int) func(format string, a ...interface{}) string {
	switch {
	case score >= 70:
		return color.GreenString
	case score >= 50:
		return color.YellowString
	default:
		return color.RedString
	}
}
