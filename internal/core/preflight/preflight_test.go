package preflight

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, root, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte("x"), 0o644))
}

func TestRun_AllRequiredPresent(t *testing.T) {
	root := t.TempDir()
	for _, f := range []string{"Dockerfile", "Dockerfile.alpine", "docker-compose.yml", ".env.example"} {
		touch(t, root, f)
	}

	summary := Run(root, DefaultChecks("docker-compose.yml", ".env.example"))

	assert.True(t, summary.OK())
}

func TestRun_MissingRequiredFailsSummary(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "Dockerfile")
	// Dockerfile.alpine, compose file, env example all missing.

	summary := Run(root, DefaultChecks("docker-compose.yml", ".env.example"))

	assert.False(t, summary.OK())

	byName := map[string]Result{}
	for _, r := range summary.Results {
		byName[r.Name] = r
	}
	assert.True(t, byName["default Dockerfile"].Found)
	assert.False(t, byName["alpine Dockerfile"].Found)
	assert.False(t, byName["compose file"].Found)
}

func TestRun_OptionalMissingStillOK(t *testing.T) {
	root := t.TempDir()
	for _, f := range []string{"Dockerfile", "Dockerfile.alpine", "docker-compose.yml", ".env.example"} {
		touch(t, root, f)
	}
	// Dockerfile.slim and .env intentionally absent.

	summary := Run(root, DefaultChecks("docker-compose.yml", ".env.example"))
	assert.True(t, summary.OK())
}

func TestRun_DirectoryDoesNotCount(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "Dockerfile"), 0o755))

	summary := Run(root, []Check{{Name: "default Dockerfile", Path: "Dockerfile", Required: true}})
	assert.False(t, summary.OK())
}
