// Package command wraps subprocess execution behind a small Runner interface
// so callers can be tested with simulated outcomes.
package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// =============================================================================
// Runner Interface
// =============================================================================

// Runner executes one external command to completion.
type Runner interface {
	// Run blocks until the command exits. A nil error means exit code 0.
	Run(ctx context.Context, name string, args ...string) error
}

// =============================================================================
// ExecRunner
// =============================================================================

// ExecRunner runs commands via os/exec with inherited stdio.
type ExecRunner struct {
	Dir    string    // working directory; empty means inherit
	Stdout io.Writer // defaults to os.Stdout
	Stderr io.Writer // defaults to os.Stderr
}

// Run executes the command, streaming output through.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) error {
	stdout := r.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	stderr := r.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = r.Dir
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.Env = os.Environ()

	if err := cmd.Run(); err != nil {
		full := name + " " + QuoteArgs(Redact(args))
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("command failed (exit=%d): %s: %w", exitErr.ExitCode(), full, err)
		}
		if errors.Is(ctx.Err(), context.Canceled) {
			return fmt.Errorf("command canceled: %s", full)
		}
		return fmt.Errorf("failed to run command: %s: %w", full, err)
	}
	return nil
}

// =============================================================================
// DryRunner
// =============================================================================

// DryRunner prints the command that would run without executing it.
type DryRunner struct {
	Out io.Writer // defaults to os.Stdout
}

// Run prints the command line and reports success.
func (r *DryRunner) Run(ctx context.Context, name string, args ...string) error {
	out := r.Out
	if out == nil {
		out = os.Stdout
	}
	fmt.Fprintf(out, "[dry-run] %s %s\n", name, QuoteArgs(Redact(args)))
	return nil
}

// =============================================================================
// Formatting Helpers
// =============================================================================

// QuoteArgs returns a printable, shell-safe representation of args.
func QuoteArgs(args []string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		if a == "" || strings.ContainsAny(a, " \t\n\"'`$\\*?[]{}()<>|&;") {
			a = "'" + strings.ReplaceAll(a, "'", `'\''`) + "'"
		}
		quoted[i] = a
	}
	return strings.Join(quoted, " ")
}

// Redact masks the values of proxy build arguments, which may embed
// credentials, in any printable rendering of the command line.
func Redact(args []string) []string {
	redacted := make([]string, len(args))
	copy(redacted, args)
	for i, a := range redacted {
		if i == 0 || redacted[i-1] != "--build-arg" {
			continue
		}
		key, _, ok := strings.Cut(a, "=")
		if !ok {
			continue
		}
		switch strings.ToUpper(key) {
		case "HTTP_PROXY", "HTTPS_PROXY", "ALL_PROXY":
			redacted[i] = key + "=***"
		}
	}
	return redacted
}
