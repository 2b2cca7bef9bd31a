// Package main provides the botdeploy binary: build, verify and run the
// containerized reminder bot stack.
//
// Usage:
//
//	botdeploy [flags] <command> [args...]
//
// Commands:
//
//	build [variant]   - Build the bot image with tiered network fallback
//	verify            - Check that the deployment artifacts exist
//	env               - Compare .env against .env.example
//	up [variant]      - Bring the bot stack up (built image tag per variant)
//	down              - Stop and remove the bot stack
//	status            - Show per-service container state
//	health            - Container healthcheck (exit 0 healthy, 1 not)
//	history [n]       - List recent build runs
//	version           - Show version information
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// Version information (set by build flags)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// =============================================================================
// Exit Codes
// =============================================================================

const (
	ExitSuccess     = 0
	ExitFailure     = 1 // build exhaustion, failed checks, unhealthy
	ExitConfigError = 2
	ExitUsage       = 3
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "Path to config file")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Usage = usage
	flag.Parse()

	if *showVersion {
		fmt.Printf("botdeploy %s (built %s)\n", Version, BuildTime)
		return ExitSuccess
	}

	args := flag.Args()
	if len(args) == 0 {
		usage()
		return ExitUsage
	}

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return ExitConfigError
	}

	logger := SetupLogger(cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app := &App{cfg: cfg, logger: logger}
	return app.Dispatch(ctx, args[0], args[1:])
}

func usage() {
	fmt.Fprintf(os.Stderr, `botdeploy - deployment tool for the reminder bot

Usage:
  botdeploy [flags] <command> [args...]

Commands:
  build [variant]   Build the bot image (variants: alpine, slim; default otherwise)
  verify            Check that the deployment artifacts exist
  env               Compare .env against .env.example
  up [variant]      Bring the bot stack up (built image tag per variant)
  down              Stop and remove the bot stack (add -volumes to drop data)
  status            Show per-service container state
  health            Container healthcheck
  history [n]       List recent build runs
  version           Show version information

Flags:
`)
	flag.PrintDefaults()
}
