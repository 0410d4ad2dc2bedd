package output

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

var (
	okColor   = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow)
	failColor = color.New(color.FgRed)
	boldColor = color.New(color.Bold)
)

// Ok prints a green check line.
func Ok(w io.Writer, format string, args ...any) {
	okColor.Fprint(w, "✓ ")
	fmt.Fprintf(w, format+"\n", args...)
}

// Warn prints a yellow warning line.
func Warn(w io.Writer, format string, args ...any) {
	warnColor.Fprint(w, "⚠ ")
	fmt.Fprintf(w, format+"\n", args...)
}

// Fail prints a red failure line.
func Fail(w io.Writer, format string, args ...any) {
	failColor.Fprint(w, "✗ ")
	fmt.Fprintf(w, format+"\n", args...)
}

// Header prints a bold section header.
func Header(w io.Writer, format string, args ...any) {
	boldColor.Fprintf(w, format+"\n", args...)
}

// Remediation prints an indented literal command the user can run by hand.
func Remediation(w io.Writer, command string) {
	fmt.Fprintf(w, "  Run manually: %s\n", command)
}
