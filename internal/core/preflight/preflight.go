// Package preflight performs the repository sanity checks the CI pipeline
// runs before any build: the deployment artifacts must exist on disk.
package preflight

import (
	"os"
	"path/filepath"
)

// =============================================================================
// Check Types
// =============================================================================

// Check is one file-existence requirement.
type Check struct {
	Name     string // human-readable label
	Path     string // path relative to the project root
	Required bool   // optional artifacts produce warnings, not failures
}

// Result is the outcome of a single check.
type Result struct {
	Check
	Found bool
}

// Summary aggregates all check results.
type Summary struct {
	Results []Result
}

// OK reports whether every required artifact was found.
func (s *Summary) OK() bool {
	for _, r := range s.Results {
		if r.Required && !r.Found {
			return false
		}
	}
	return true
}

// =============================================================================
// Defaults
// =============================================================================

// DefaultChecks is the artifact set the CI workflow verifies. The slim
// Dockerfile and live .env are optional: the first is only present in repos
// that ship a slim variant, the second is never committed.
func DefaultChecks(composeFile, envExample string) []Check {
	return []Check{
		{Name: "default Dockerfile", Path: "Dockerfile", Required: true},
		{Name: "alpine Dockerfile", Path: "Dockerfile.alpine", Required: true},
		{Name: "slim Dockerfile", Path: "Dockerfile.slim", Required: false},
		{Name: "compose file", Path: composeFile, Required: true},
		{Name: "env example", Path: envExample, Required: true},
		{Name: "live env file", Path: ".env", Required: false},
	}
}

// =============================================================================
// Execution
// =============================================================================

// Run evaluates the checks against root. A path is found when it exists and
// is a regular file.
func Run(root string, checks []Check) *Summary {
	summary := &Summary{Results: make([]Result, 0, len(checks))}
	for _, c := range checks {
		info, err := os.Stat(filepath.Join(root, c.Path))
		found := err == nil && info.Mode().IsRegular()
		summary.Results = append(summary.Results, Result{Check: c, Found: found})
	}
	return summary
}
