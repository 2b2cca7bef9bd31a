// Package envfile validates the project's .env file against its committed
// .env.example template.
package envfile

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/joho/godotenv"
)

// =============================================================================
// Required Keys
// =============================================================================

// RequiredKeys are the environment variables the bot refuses to start
// without. Everything else in the example file is optional with defaults.
var RequiredKeys = []string{
	"TELEGRAM_BOT_TOKEN",
	"OPENAI_API_KEY",
}

// =============================================================================
// Error Types
// =============================================================================

var (
	// ErrExampleNotFound means the .env.example template is missing.
	ErrExampleNotFound = errors.New("env example file not found")

	// ErrMissingRequired means at least one required key is absent or empty.
	ErrMissingRequired = errors.New("missing required environment variables")
)

// ParseError wraps a dotenv parse failure with the offending path.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %s", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// =============================================================================
// Report
// =============================================================================

// Report is the outcome of comparing .env against .env.example.
type Report struct {
	MissingRequired []string // required keys absent or empty in .env
	MissingOptional []string // example keys absent from .env
	Unknown         []string // .env keys not present in the example
}

// OK reports whether the live file satisfies the required key set.
func (r *Report) OK() bool {
	return len(r.MissingRequired) == 0
}

// =============================================================================
// Checking
// =============================================================================

// Check compares the live env file against the example template.
//
// A missing .env is not an error by itself: every example key is then
// reported missing, and the report fails on the required set. A missing
// example file is an error - the template is part of the repository.
func Check(envPath, examplePath string) (*Report, error) {
	example, err := readEnv(examplePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrExampleNotFound, examplePath)
		}
		return nil, err
	}

	live := map[string]string{}
	if _, statErr := os.Stat(envPath); statErr == nil {
		live, err = readEnv(envPath)
		if err != nil {
			return nil, err
		}
	}

	report := &Report{}

	required := make(map[string]bool, len(RequiredKeys))
	for _, k := range RequiredKeys {
		required[k] = true
		if live[k] == "" {
			report.MissingRequired = append(report.MissingRequired, k)
		}
	}

	for k := range example {
		if required[k] {
			continue
		}
		if _, ok := live[k]; !ok {
			report.MissingOptional = append(report.MissingOptional, k)
		}
	}

	for k := range live {
		if _, ok := example[k]; !ok && !required[k] {
			report.Unknown = append(report.Unknown, k)
		}
	}

	sort.Strings(report.MissingRequired)
	sort.Strings(report.MissingOptional)
	sort.Strings(report.Unknown)
	return report, nil
}

// RequiredPresent reports whether a single required key is set, checking the
// process environment first and the env file second. Used by the health
// command, which runs inside the container where .env may not exist.
func RequiredPresent(key, envPath string) bool {
	if os.Getenv(key) != "" {
		return true
	}
	live, err := readEnv(envPath)
	if err != nil {
		return false
	}
	return live[key] != ""
}

func readEnv(path string) (map[string]string, error) {
	vars, err := godotenv.Read(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, err
		}
		return nil, &ParseError{Path: path, Err: err}
	}
	return vars, nil
}
