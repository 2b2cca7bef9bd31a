package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// =============================================================================
// Config Types
// =============================================================================

// Config holds all tool configuration.
type Config struct {
	Project ProjectConfig `mapstructure:"project"`
	Docker  DockerConfig  `mapstructure:"docker"`
	History HistoryConfig `mapstructure:"history"`
	Log     LogConfig     `mapstructure:"log"`
}

// ProjectConfig describes the bot project being deployed.
type ProjectConfig struct {
	// Name is the stack name; it prefixes containers, networks and volumes.
	Name string `mapstructure:"name"`

	// Image is the image name builds tag (the variant supplies the tag).
	Image string `mapstructure:"image"`

	// Root is the project root containing the Dockerfiles and compose file.
	Root string `mapstructure:"root"`

	// ComposeFile is the compose file path relative to Root.
	ComposeFile string `mapstructure:"compose_file"`

	// EnvFile and EnvExample are the dotenv paths relative to Root.
	EnvFile    string `mapstructure:"env_file"`
	EnvExample string `mapstructure:"env_example"`
}

// DockerConfig holds engine and build tool configuration.
type DockerConfig struct {
	// Host overrides the Docker daemon address ("" = from environment).
	Host string `mapstructure:"host"`

	// BuildTool is the build tool binary invoked for image builds.
	BuildTool string `mapstructure:"build_tool"`
}

// HistoryConfig holds the build ledger configuration.
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DSN     string `mapstructure:"dsn"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// =============================================================================
// Config Loading
// =============================================================================

// LoadConfig loads configuration from file and environment.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("project.name", "bot")
	v.SetDefault("project.image", "reminder-bot")
	v.SetDefault("project.root", ".")
	v.SetDefault("project.compose_file", "docker-compose.yml")
	v.SetDefault("project.env_file", ".env")
	v.SetDefault("project.env_example", ".env.example")
	v.SetDefault("docker.host", "")
	v.SetDefault("docker.build_tool", "docker")
	v.SetDefault("history.enabled", true)
	v.SetDefault("history.dsn", ".botdeploy/history.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigParseError); ok {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
			// File not found is OK, defaults apply.
		}
	}

	v.SetEnvPrefix("BOTDEPLOY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// =============================================================================
// Logger Setup
// =============================================================================

// SetupLogger creates a logger with the configured level and format.
// Operational logs go to stderr; stdout is reserved for command output.
func SetupLogger(cfg *Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.ToLower(cfg.Log.Format) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}
