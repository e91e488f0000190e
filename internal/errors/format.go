package errors

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
)

var (
	headerColor      = color.New(color.FgRed, color.Bold)
	usageColor       = color.New(color.FgCyan)
	remediationColor = color.New(color.FgYellow)
)

// FormatError renders err with colors for terminal output.
func FormatError(err *CLIError) string {
	if err == nil {
		return ""
	}
	return format(err, true)
}

// FormatErrorPlain renders err without ANSI escape codes.
func FormatErrorPlain(err *CLIError) string {
	if err == nil {
		return ""
	}
	return format(err, false)
}

// FormatSimpleError renders an arbitrary error under the given category.
func FormatSimpleError(err error, category ErrorCategory) string {
	if err == nil {
		return ""
	}
	if cliErr := AsCLIError(err); cliErr != nil {
		return FormatErrorPlain(cliErr)
	}
	return FormatErrorPlain(&CLIError{Category: category, Message: err.Error()})
}

// PrintError writes the formatted error to stderr.
func PrintError(err *CLIError) {
	FprintError(os.Stderr, err)
}

// FprintError writes the formatted error to w.
func FprintError(w io.Writer, err *CLIError) {
	if err == nil {
		return
	}
	fmt.Fprint(w, format(err, !color.NoColor && w == os.Stderr))
}

func format(err *CLIError, colored bool) string {
	paint := func(c *color.Color, s string) string {
		if colored {
			return c.Sprint(s)
		}
		return s
	}

	var sb strings.Builder
	sb.WriteString(paint(headerColor, err.Category.String()+":"))
	sb.WriteString(" ")
	sb.WriteString(err.Message)
	sb.WriteString("\n")

	if err.Usage != "" {
		sb.WriteString("\n")
		sb.WriteString(paint(usageColor, "Usage:"))
		sb.WriteString(" ")
		sb.WriteString(err.Usage)
		sb.WriteString("\n")
	}

	if len(err.Remediation) > 0 {
		sb.WriteString("\n")
		sb.WriteString(paint(remediationColor, "To fix this:"))
		sb.WriteString("\n")
		for i, step := range err.Remediation {
			fmt.Fprintf(&sb, "  %d. %s\n", i+1, step)
		}
	}

	return sb.String()
}
