package envfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const exampleContent = `# Telegram bot configuration
TELEGRAM_BOT_TOKEN=
OPENAI_API_KEY=
DEEPSEEK_API_KEY=
REDIS_URL=redis://localhost:6379/0
CACHE_TTL=3600
LOG_LEVEL=INFO
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCheck_CompleteEnv(t *testing.T) {
	dir := t.TempDir()
	example := writeFile(t, dir, ".env.example", exampleContent)
	env := writeFile(t, dir, ".env", `
TELEGRAM_BOT_TOKEN=123:abc
OPENAI_API_KEY=sk-test
DEEPSEEK_API_KEY=dk-test
REDIS_URL=redis://redis:6379/0
CACHE_TTL=7200
LOG_LEVEL=DEBUG
`)

	report, err := Check(env, example)
	require.NoError(t, err)

	assert.True(t, report.OK())
	assert.Empty(t, report.MissingRequired)
	assert.Empty(t, report.MissingOptional)
	assert.Empty(t, report.Unknown)
}

func TestCheck_MissingRequired(t *testing.T) {
	dir := t.TempDir()
	example := writeFile(t, dir, ".env.example", exampleContent)
	env := writeFile(t, dir, ".env", "REDIS_URL=redis://redis:6379/0\n")

	report, err := Check(env, example)
	require.NoError(t, err)

	assert.False(t, report.OK())
	assert.Equal(t, []string{"OPENAI_API_KEY", "TELEGRAM_BOT_TOKEN"}, report.MissingRequired)
}

func TestCheck_EmptyRequiredValueCountsAsMissing(t *testing.T) {
	dir := t.TempDir()
	example := writeFile(t, dir, ".env.example", exampleContent)
	env := writeFile(t, dir, ".env", "TELEGRAM_BOT_TOKEN=\nOPENAI_API_KEY=sk-test\n")

	report, err := Check(env, example)
	require.NoError(t, err)

	assert.Equal(t, []string{"TELEGRAM_BOT_TOKEN"}, report.MissingRequired)
}

func TestCheck_NoEnvFileReportsEverything(t *testing.T) {
	dir := t.TempDir()
	example := writeFile(t, dir, ".env.example", exampleContent)

	report, err := Check(filepath.Join(dir, ".env"), example)
	require.NoError(t, err)

	assert.False(t, report.OK())
	assert.Len(t, report.MissingRequired, 2)
	assert.Contains(t, report.MissingOptional, "REDIS_URL")
	assert.Contains(t, report.MissingOptional, "CACHE_TTL")
}

func TestCheck_UnknownKeysReported(t *testing.T) {
	dir := t.TempDir()
	example := writeFile(t, dir, ".env.example", exampleContent)
	env := writeFile(t, dir, ".env", `
TELEGRAM_BOT_TOKEN=123:abc
OPENAI_API_KEY=sk-test
SOME_LEFTOVER=1
`)

	report, err := Check(env, example)
	require.NoError(t, err)

	assert.Equal(t, []string{"SOME_LEFTOVER"}, report.Unknown)
}

func TestCheck_MissingExampleIsAnError(t *testing.T) {
	dir := t.TempDir()

	_, err := Check(filepath.Join(dir, ".env"), filepath.Join(dir, ".env.example"))
	assert.ErrorIs(t, err, ErrExampleNotFound)
}

func TestRequiredPresent(t *testing.T) {
	dir := t.TempDir()
	env := writeFile(t, dir, ".env", "TELEGRAM_BOT_TOKEN=123:abc\n")

	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	assert.True(t, RequiredPresent("TELEGRAM_BOT_TOKEN", env), "found in file")

	t.Setenv("TELEGRAM_BOT_TOKEN", "from-process")
	assert.True(t, RequiredPresent("TELEGRAM_BOT_TOKEN", filepath.Join(dir, "absent")), "process env wins")

	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	assert.False(t, RequiredPresent("TELEGRAM_BOT_TOKEN", filepath.Join(dir, "absent")))
}
