package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "bot", cfg.Project.Name)
	assert.Equal(t, "reminder-bot", cfg.Project.Image)
	assert.Equal(t, ".", cfg.Project.Root)
	assert.Equal(t, "docker-compose.yml", cfg.Project.ComposeFile)
	assert.Equal(t, ".env", cfg.Project.EnvFile)
	assert.Equal(t, ".env.example", cfg.Project.EnvExample)
	assert.Equal(t, "docker", cfg.Docker.BuildTool)
	assert.True(t, cfg.History.Enabled)
	assert.Equal(t, ".botdeploy/history.db", cfg.History.DSN)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoadConfig_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "botdeploy.yaml")
	content := `
project:
  name: myapp
  image: myapp-bot
  root: /srv/myapp
docker:
  build_tool: podman
history:
  enabled: false
log:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "myapp", cfg.Project.Name)
	assert.Equal(t, "myapp-bot", cfg.Project.Image)
	assert.Equal(t, "/srv/myapp", cfg.Project.Root)
	assert.Equal(t, "podman", cfg.Docker.BuildTool)
	assert.False(t, cfg.History.Enabled)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)

	// Unset keys keep their defaults.
	assert.Equal(t, "docker-compose.yml", cfg.Project.ComposeFile)
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "bot", cfg.Project.Name)
}

func TestLoadConfig_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("project: [unclosed"), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestSetupLogger_Levels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "bogus"} {
		cfg := &Config{Log: LogConfig{Level: level, Format: "text"}}
		assert.NotNil(t, SetupLogger(cfg), level)
	}

	cfg := &Config{Log: LogConfig{Level: "info", Format: "json"}}
	assert.NotNil(t, SetupLogger(cfg))
}
