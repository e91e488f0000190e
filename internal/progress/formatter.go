package progress

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
)

// formatStepCounter returns the [N/Total] step counter string
func formatStepCounter(number, total int) string {
	return fmt.Sprintf("[%d/%d]", number, total)
}

// buildStepMessage constructs the step message with optional detail
func buildStepMessage(step StepInfo, action string) string {
	msg := fmt.Sprintf("%s %s %s", formatStepCounter(step.Number, step.TotalSteps), action, capitalize(step.Name))
	if step.Detail != "" {
		msg += " (" + step.Detail + ")"
	}
	return msg
}

// capitalize returns the string with the first letter capitalized
func capitalize(s string) string {
	if len(s) == 0 {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// formatDuration rounds to a readable precision.
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(100 * time.Millisecond).String()
}

func paint(mark string, colored bool, attr color.Attribute) string {
	if !colored {
		return mark
	}
	c := color.New(attr)
	c.EnableColor()
	return c.Sprint(mark)
}

func checkmark(symbols Symbols, colored bool) string {
	return paint(symbols.Checkmark, colored, color.FgGreen)
}

func failureMark(symbols Symbols, colored bool) string {
	return paint(symbols.Failure, colored, color.FgRed)
}

func skippedMark(symbols Symbols, colored bool) string {
	return paint(symbols.Skipped, colored, color.FgYellow)
}
