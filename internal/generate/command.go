package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// PromptPlaceholder is replaced by the shell-quoted prompt in custom command
// templates.
const PromptPlaceholder = "{{PROMPT}}"

// CommandBackend runs an agent CLI and treats its stdout as the response.
// With CustomCmd set, the template is run through sh so pipes and env
// prefixes work; otherwise Cmd is invoked with Args followed by the prompt.
type CommandBackend struct {
	Cmd       string
	Args      []string
	CustomCmd string
	Timeout   time.Duration
}

// Name implements Backend.
func (c *CommandBackend) Name() string {
	if c.CustomCmd != "" {
		return "command"
	}
	return c.Cmd
}

// Generate implements Backend.
func (c *CommandBackend) Generate(ctx context.Context, req Request) (string, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	prompt := c.fullPrompt(req)
	cmd := c.command(ctx, prompt)
	cmd.Env = os.Environ()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return "", fmt.Errorf("command timed out after %v: %s", c.Timeout, c.FormatCommand("<prompt>"))
	}
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return "", fmt.Errorf("agent command failed: %w", err)
		}
		return "", fmt.Errorf("agent command failed: %w: %s", err, msg)
	}
	return stdout.String(), nil
}

// FormatCommand returns a human-readable command string for display and error messages
func (c *CommandBackend) FormatCommand(prompt string) string {
	if c.CustomCmd != "" {
		return c.expandTemplate(prompt)
	}
	parts := append([]string{c.Cmd}, c.Args...)
	parts = append(parts, prompt)
	return strings.Join(parts, " ")
}

func (c *CommandBackend) command(ctx context.Context, prompt string) *exec.Cmd {
	if c.CustomCmd != "" {
		return exec.CommandContext(ctx, "sh", "-c", c.expandTemplate(prompt))
	}
	args := append(append([]string{}, c.Args...), prompt)
	return exec.CommandContext(ctx, c.Cmd, args...)
}

// fullPrompt folds system text and the expected schema into the prompt,
// since agent CLIs take a single argument.
func (c *CommandBackend) fullPrompt(req Request) string {
	var b strings.Builder
	if req.System != "" {
		b.WriteString(req.System)
		b.WriteString("\n\n")
	}
	b.WriteString(req.Prompt)
	if req.Schema != nil {
		if data, err := json.MarshalIndent(req.Schema, "", "  "); err == nil {
			name := req.SchemaName
			if name == "" {
				name = "the response"
			}
			fmt.Fprintf(&b, "\n\nRespond with a single JSON document only, no prose. JSON Schema for %s:\n%s\n", name, data)
		}
	}
	return b.String()
}

// expandTemplate replaces {{PROMPT}} placeholder with actual prompt
// The prompt is properly shell-quoted to handle special characters
func (c *CommandBackend) expandTemplate(prompt string) string {
	return strings.ReplaceAll(c.CustomCmd, PromptPlaceholder, shellQuote(prompt))
}

// shellQuote quotes a string for safe use in shell commands
// It wraps the string in single quotes and escapes any single quotes within
func shellQuote(s string) string {
	escaped := strings.ReplaceAll(s, "'", "'\\''")
	return "'" + escaped + "'"
}

// ValidateTemplate validates that a custom command template is properly formatted
func ValidateTemplate(template string) error {
	if template == "" {
		return nil
	}
	if !strings.Contains(template, PromptPlaceholder) {
		return fmt.Errorf("custom_agent_cmd must contain %s placeholder", PromptPlaceholder)
	}
	return nil
}
