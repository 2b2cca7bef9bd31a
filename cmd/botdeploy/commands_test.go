package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildOnlyImage_FollowsVariant(t *testing.T) {
	cfg := &Config{Project: ProjectConfig{Image: "reminder-bot"}}

	// `up <variant>` must start the tag a preceding `build <variant>` produced.
	assert.Equal(t, "reminder-bot:alpine", buildOnlyImage(cfg, "alpine"))
	assert.Equal(t, "reminder-bot:slim", buildOnlyImage(cfg, "slim"))
	assert.Equal(t, "reminder-bot:latest", buildOnlyImage(cfg, ""))
	assert.Equal(t, "reminder-bot:latest", buildOnlyImage(cfg, "bogus"))
}
