package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/artpar/botdeploy/internal/core/buildplan"
	"github.com/artpar/botdeploy/internal/core/compose"
	"github.com/artpar/botdeploy/internal/core/envfile"
	"github.com/artpar/botdeploy/internal/core/preflight"
	"github.com/artpar/botdeploy/internal/core/variant"
	"github.com/artpar/botdeploy/internal/shell/builder"
	"github.com/artpar/botdeploy/internal/shell/command"
	"github.com/artpar/botdeploy/internal/shell/deploy"
	"github.com/artpar/botdeploy/internal/shell/docker"
	"github.com/artpar/botdeploy/internal/shell/history"
)

// App carries the shared state every command needs.
type App struct {
	cfg    *Config
	logger *slog.Logger
}

// Dispatch routes the command to the appropriate handler and returns the
// process exit code.
func (a *App) Dispatch(ctx context.Context, cmd string, args []string) int {
	switch cmd {
	case "build":
		return a.buildCmd(ctx, args)
	case "verify":
		return a.verifyCmd()
	case "env":
		return a.envCmd()
	case "up":
		return a.upCmd(ctx, args)
	case "down":
		return a.downCmd(ctx, args)
	case "status":
		return a.statusCmd(ctx)
	case "health":
		return a.healthCmd(ctx)
	case "history":
		return a.historyCmd(ctx, args)
	case "version":
		fmt.Printf("botdeploy %s (built %s, %s)\n", Version, BuildTime, runtime.Version())
		return ExitSuccess
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		usage()
		return ExitUsage
	}
}

// =============================================================================
// build
// =============================================================================

func (a *App) buildCmd(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	dryRun := fs.Bool("dry-run", false, "Print build commands without executing")
	contextDir := fs.String("context", "", "Build context directory (default: project root)")
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}

	spec := variant.Resolve(fs.Arg(0))
	a.logger.Info("resolved variant",
		"variant", spec.Variant,
		"dockerfile", spec.Dockerfile,
		"image", spec.ImageRef(a.cfg.Project.Image),
	)

	buildCtx := *contextDir
	if buildCtx == "" {
		buildCtx = a.cfg.Project.Root
	}

	var runner command.Runner
	if *dryRun {
		runner = &command.DryRunner{}
	} else {
		runner = &command.ExecRunner{}
	}

	opts := []builder.Option{builder.WithLogger(a.logger)}
	if a.cfg.History.Enabled && !*dryRun {
		store, err := a.openHistory()
		if err != nil {
			a.logger.Warn("build ledger unavailable", "error", err)
		} else {
			defer store.Close()
			opts = append(opts, builder.WithRecorder(store))
		}
	}

	b := builder.New(runner, a.cfg.Docker.BuildTool, opts...)
	_, err := b.Build(ctx, buildplan.Options{
		Spec:       spec,
		Image:      a.cfg.Project.Image,
		ContextDir: buildCtx,
		Proxy:      buildplan.ProxyFromEnv(),
	})
	if err != nil {
		if !errors.Is(err, builder.ErrAttemptsExhausted) {
			fmt.Fprintf(os.Stderr, "build failed: %v\n", err)
		}
		return ExitFailure
	}
	return ExitSuccess
}

// =============================================================================
// verify
// =============================================================================

func (a *App) verifyCmd() int {
	checks := preflight.DefaultChecks(a.cfg.Project.ComposeFile, a.cfg.Project.EnvExample)
	summary := preflight.Run(a.cfg.Project.Root, checks)

	for _, r := range summary.Results {
		mark := "ok "
		if !r.Found {
			if r.Required {
				mark = "MISSING"
			} else {
				mark = "absent (optional)"
			}
		}
		fmt.Printf("  %-20s %-24s %s\n", r.Name, r.Path, mark)
	}

	if !summary.OK() {
		fmt.Println("verify failed: required deployment artifacts are missing")
		return ExitFailure
	}
	fmt.Println("verify passed")
	return ExitSuccess
}

// =============================================================================
// env
// =============================================================================

func (a *App) envCmd() int {
	envPath := filepath.Join(a.cfg.Project.Root, a.cfg.Project.EnvFile)
	examplePath := filepath.Join(a.cfg.Project.Root, a.cfg.Project.EnvExample)

	report, err := envfile.Check(envPath, examplePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "env check failed: %v\n", err)
		return ExitFailure
	}

	for _, k := range report.MissingRequired {
		fmt.Printf("  missing required: %s\n", k)
	}
	for _, k := range report.MissingOptional {
		fmt.Printf("  missing optional: %s\n", k)
	}
	for _, k := range report.Unknown {
		fmt.Printf("  not in example:   %s\n", k)
	}

	if !report.OK() {
		fmt.Println("env check failed")
		return ExitFailure
	}
	fmt.Println("env check passed")
	return ExitSuccess
}

// =============================================================================
// up / down / status
// =============================================================================

func (a *App) upCmd(ctx context.Context, args []string) int {
	// The variant selects which locally built tag backs build-only services,
	// matching what a preceding `build <variant>` produced.
	variantArg := ""
	if len(args) > 0 {
		variantArg = args[0]
	}

	stack, orch, engine, code := a.stackAndOrchestrator(variantArg)
	if code != ExitSuccess {
		return code
	}
	defer engine.Close()

	if err := orch.Up(ctx, stack); err != nil {
		fmt.Fprintf(os.Stderr, "up failed: %v\n", err)
		return ExitFailure
	}
	fmt.Printf("stack %s is up (%d services)\n", a.cfg.Project.Name, len(stack.Services))
	return ExitSuccess
}

func (a *App) downCmd(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("down", flag.ContinueOnError)
	removeVolumes := fs.Bool("volumes", false, "Also remove named volumes (drops bot data)")
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}

	stack, orch, engine, code := a.stackAndOrchestrator("")
	if code != ExitSuccess {
		return code
	}
	defer engine.Close()

	if err := orch.Down(ctx, stack, *removeVolumes); err != nil {
		fmt.Fprintf(os.Stderr, "down failed: %v\n", err)
		return ExitFailure
	}
	fmt.Printf("stack %s is down\n", a.cfg.Project.Name)
	return ExitSuccess
}

func (a *App) statusCmd(ctx context.Context) int {
	stack, orch, engine, code := a.stackAndOrchestrator("")
	if code != ExitSuccess {
		return code
	}
	defer engine.Close()

	statuses, err := orch.Status(ctx, stack)
	if err != nil {
		fmt.Fprintf(os.Stderr, "status failed: %v\n", err)
		return ExitFailure
	}

	fmt.Printf("  %-12s %-20s %-10s %s\n", "SERVICE", "CONTAINER", "STATE", "HEALTH")
	for _, s := range statuses {
		health := s.Health
		if health == "" {
			health = "-"
		}
		fmt.Printf("  %-12s %-20s %-10s %s\n", s.Service, s.Container, s.State, health)
	}
	return ExitSuccess
}

// =============================================================================
// health
// =============================================================================

func (a *App) healthCmd(ctx context.Context) int {
	envPath := filepath.Join(a.cfg.Project.Root, a.cfg.Project.EnvFile)
	if !envfile.RequiredPresent("TELEGRAM_BOT_TOKEN", envPath) {
		fmt.Println("ERROR: TELEGRAM_BOT_TOKEN not set")
		return ExitFailure
	}

	stack, orch, engine, code := a.stackAndOrchestrator("")
	if code != ExitSuccess {
		return code
	}
	defer engine.Close()

	statuses, err := orch.Status(ctx, stack)
	if err != nil {
		fmt.Printf("ERROR: %v\n", err)
		return ExitFailure
	}

	healthy := true
	for _, s := range statuses {
		if s.State != "running" || (s.Health != "" && s.Health != "healthy") {
			fmt.Printf("ERROR: service %s is %s", s.Service, s.State)
			if s.Health != "" {
				fmt.Printf(" (%s)", s.Health)
			}
			fmt.Println()
			healthy = false
		}
	}
	if !healthy {
		return ExitFailure
	}
	fmt.Println("OK: all services running")
	return ExitSuccess
}

// =============================================================================
// history
// =============================================================================

func (a *App) historyCmd(ctx context.Context, args []string) int {
	limit := 20
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			fmt.Fprintf(os.Stderr, "history: invalid count %q\n", args[0])
			return ExitUsage
		}
		limit = n
	}

	store, err := a.openHistory()
	if err != nil {
		fmt.Fprintf(os.Stderr, "history unavailable: %v\n", err)
		return ExitFailure
	}
	defer store.Close()

	runs, err := store.RecentBuilds(ctx, limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "history query failed: %v\n", err)
		return ExitFailure
	}
	if len(runs) == 0 {
		fmt.Println("no recorded builds")
		return ExitSuccess
	}

	fmt.Printf("  %-20s %-8s %-22s %-8s %-13s %s\n", "STARTED", "VARIANT", "IMAGE", "ATTEMPTS", "TIER", "RESULT")
	for _, r := range runs {
		result := "ok"
		tier := r.WinningTier
		if !r.Success {
			result = "failed"
			tier = "-"
		}
		fmt.Printf("  %-20s %-8s %-22s %-8d %-13s %s (%s)\n",
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.Variant, r.ImageRef, r.Attempts, tier, result,
			(time.Duration(r.DurationMS) * time.Millisecond).String(),
		)
	}
	return ExitSuccess
}

// =============================================================================
// Helpers
// =============================================================================

// buildOnlyImage returns the image reference substituted for build-only
// services: the configured image name tagged per the resolved variant.
func buildOnlyImage(cfg *Config, variantArg string) string {
	return variant.Resolve(variantArg).ImageRef(cfg.Project.Image)
}

func (a *App) stackAndOrchestrator(variantArg string) (*compose.Stack, *deploy.Orchestrator, *docker.EngineClient, int) {
	composePath := filepath.Join(a.cfg.Project.Root, a.cfg.Project.ComposeFile)
	stack, err := compose.ParseFile(composePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to parse %s: %v\n", composePath, err)
		return nil, nil, nil, ExitConfigError
	}

	engine, err := docker.NewEngineClient(a.cfg.Docker.Host)
	if err != nil {
		fmt.Fprintf(os.Stderr, "docker client error: %v\n", err)
		return nil, nil, nil, ExitFailure
	}

	orch := deploy.NewOrchestrator(engine, a.logger, deploy.Config{
		Stack: a.cfg.Project.Name,
		Root:  a.cfg.Project.Root,
		Image: buildOnlyImage(a.cfg, variantArg),
	})
	return stack, orch, engine, ExitSuccess
}

func (a *App) openHistory() (*history.Store, error) {
	dsn := a.cfg.History.DSN
	if !filepath.IsAbs(dsn) {
		dsn = filepath.Join(a.cfg.Project.Root, dsn)
	}
	if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
		return nil, err
	}
	return history.Open(dsn)
}
