// Package builder executes a planned ladder of build attempts against the
// external container build tool, stopping at the first success.
package builder

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/artpar/botdeploy/internal/core/buildplan"
	"github.com/artpar/botdeploy/internal/shell/command"
)

// =============================================================================
// Builder
// =============================================================================

// Recorder receives the outcome of a finished build run. Implementations must
// tolerate being called after failures; recording is best-effort.
type Recorder interface {
	RecordBuild(ctx context.Context, run Result) error
}

// Builder runs build attempts sequentially via a command Runner.
type Builder struct {
	runner   command.Runner
	tool     string // build tool binary, e.g. "docker"
	out      io.Writer
	logger   *slog.Logger
	recorder Recorder // optional
}

// Option configures a Builder.
type Option func(*Builder)

// WithOutput redirects human-readable progress lines (default os.Stdout).
func WithOutput(w io.Writer) Option {
	return func(b *Builder) { b.out = w }
}

// WithRecorder attaches a build history recorder.
func WithRecorder(r Recorder) Option {
	return func(b *Builder) { b.recorder = r }
}

// WithLogger sets the operational logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) { b.logger = l }
}

// New creates a Builder. tool is the build tool binary name; an empty value
// defaults to "docker".
func New(runner command.Runner, tool string, opts ...Option) *Builder {
	b := &Builder{
		runner: runner,
		tool:   tool,
		out:    os.Stdout,
		logger: slog.Default(),
	}
	if b.tool == "" {
		b.tool = "docker"
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// =============================================================================
// Result
// =============================================================================

// Result is the terminal state of a whole build run.
type Result struct {
	Variant     string
	Dockerfile  string
	ImageRef    string
	Attempts    int            // attempts actually executed
	WinningTier buildplan.Tier // empty on failure
	Success     bool
	Duration    time.Duration
	StartedAt   time.Time
}

// =============================================================================
// Execution
// =============================================================================

// Build runs the attempt ladder for opts in order, stopping at the first
// success. Every external failure escalates to the next tier; an identical
// attempt is never repeated. On exhaustion it prints remediation guidance
// and returns a BuildError wrapping ErrAttemptsExhausted.
func (b *Builder) Build(ctx context.Context, opts buildplan.Options) (Result, error) {
	attempts := buildplan.Plan(opts)

	result := Result{
		Variant:    string(opts.Spec.Variant),
		Dockerfile: opts.Spec.Dockerfile,
		ImageRef:   opts.Spec.ImageRef(opts.Image),
		StartedAt:  time.Now(),
	}

	if len(attempts) == 0 {
		return result, &BuildError{Variant: result.Variant, Err: ErrNoAttempts}
	}

	fmt.Fprintf(b.out, "Building %s (%s -> %s)\n", result.Variant, result.Dockerfile, result.ImageRef)

	var lastErr error
	for i, attempt := range attempts {
		fmt.Fprintf(b.out, "[%d/%d] %s\n", i+1, len(attempts), attempt.Description)
		fmt.Fprintf(b.out, "      %s %s\n", b.tool, command.QuoteArgs(command.Redact(attempt.Args)))

		result.Attempts = i + 1
		err := b.runner.Run(ctx, b.tool, attempt.Args...)
		if err == nil {
			result.Success = true
			result.WinningTier = attempt.Tier
			result.Duration = time.Since(result.StartedAt)
			fmt.Fprintf(b.out, "Build succeeded: %s (tier: %s)\n", result.ImageRef, attempt.Tier)
			b.record(ctx, result)
			return result, nil
		}

		lastErr = err
		b.logger.Warn("build attempt failed",
			"tier", attempt.Tier,
			"attempt", i+1,
			"error", err,
		)

		// Operator interrupt: stop escalating, the remaining tiers would
		// fail the same way.
		if ctx.Err() != nil {
			break
		}
	}

	result.Duration = time.Since(result.StartedAt)
	// Remediation is for genuine exhaustion; an interrupted run was not
	// given the chance to escalate.
	if ctx.Err() == nil {
		b.printRemediation()
	}
	b.record(ctx, result)

	return result, &BuildError{
		Variant:  result.Variant,
		Attempts: result.Attempts,
		Err:      fmt.Errorf("%w: %w", ErrAttemptsExhausted, lastErr),
	}
}

// record persists the run outcome. Ledger failures never fail a build.
func (b *Builder) record(ctx context.Context, result Result) {
	if b.recorder == nil {
		return
	}
	if err := b.recorder.RecordBuild(ctx, result); err != nil {
		b.logger.Warn("failed to record build run", "error", err)
	}
}

// printRemediation writes the fixed guidance shown after total exhaustion.
func (b *Builder) printRemediation() {
	fmt.Fprintln(b.out, "All build attempts failed. Suggestions:")
	fmt.Fprintln(b.out, "  1. Check that the Docker daemon is running: docker info")
	fmt.Fprintln(b.out, "  2. Check network and DNS connectivity to the registry: curl -fsS https://registry-1.docker.io/v2/")
	fmt.Fprintln(b.out, "  3. If behind a corporate proxy, export HTTP_PROXY/HTTPS_PROXY and retry")
	fmt.Fprintln(b.out, "  4. Re-run with -dry-run to inspect the exact build commands")
}
