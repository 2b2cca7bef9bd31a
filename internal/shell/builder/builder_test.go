package builder

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/botdeploy/internal/core/buildplan"
	"github.com/artpar/botdeploy/internal/core/variant"
)

// =============================================================================
// Fakes
// =============================================================================

// scriptedRunner returns a scripted outcome per invocation and records the
// argument lists it saw.
type scriptedRunner struct {
	outcomes []error // one per expected invocation
	calls    [][]string
}

func (r *scriptedRunner) Run(ctx context.Context, name string, args ...string) error {
	i := len(r.calls)
	r.calls = append(r.calls, args)
	if i < len(r.outcomes) {
		return r.outcomes[i]
	}
	return errors.New("unexpected invocation")
}

type captureRecorder struct {
	runs []Result
	err  error
}

func (r *captureRecorder) RecordBuild(ctx context.Context, run Result) error {
	r.runs = append(r.runs, run)
	return r.err
}

func buildOpts(arg string, proxy buildplan.ProxyConfig) buildplan.Options {
	return buildplan.Options{
		Spec:       variant.Resolve(arg),
		Image:      "reminder-bot",
		ContextDir: ".",
		Proxy:      proxy,
	}
}

var errBoom = errors.New("boom")

// =============================================================================
// Tests
// =============================================================================

func TestBuild_FirstAttemptSucceeds(t *testing.T) {
	runner := &scriptedRunner{outcomes: []error{nil}}
	var out bytes.Buffer
	b := New(runner, "docker", WithOutput(&out))

	// No argument resolves to the default variant.
	result, err := b.Build(context.Background(), buildOpts("", buildplan.ProxyConfig{}))

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.Attempts, "no further attempts after a success")
	assert.Equal(t, buildplan.TierPlain, result.WinningTier)
	assert.Equal(t, "reminder-bot:latest", result.ImageRef)
	assert.Len(t, runner.calls, 1)
	assert.NotContains(t, out.String(), "Suggestions", "no remediation on success")
}

func TestBuild_StopsAtFirstSuccess(t *testing.T) {
	runner := &scriptedRunner{outcomes: []error{errBoom, nil}}
	b := New(runner, "docker", WithOutput(&bytes.Buffer{}))

	result, err := b.Build(context.Background(), buildOpts("slim", buildplan.ProxyConfig{}))

	require.NoError(t, err)
	assert.Equal(t, 2, result.Attempts)
	assert.Equal(t, buildplan.TierHostNetwork, result.WinningTier)
	assert.Len(t, runner.calls, 2, "third tier never executed")
}

func TestBuild_ExhaustionWithoutProxy_ThreeAttempts(t *testing.T) {
	// Concrete scenario from the contract: variant "alpine", attempts 1-3
	// fail, proxy tier not eligible.
	runner := &scriptedRunner{outcomes: []error{errBoom, errBoom, errBoom}}
	var out bytes.Buffer
	b := New(runner, "docker", WithOutput(&out))

	result, err := b.Build(context.Background(), buildOpts("alpine", buildplan.ProxyConfig{}))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAttemptsExhausted)
	assert.False(t, result.Success)
	assert.Equal(t, 3, result.Attempts, "proxy tier skipped, not failed")
	assert.Empty(t, result.WinningTier)
	assert.Contains(t, out.String(), "Suggestions")

	var buildErr *BuildError
	require.ErrorAs(t, err, &buildErr)
	assert.Equal(t, "alpine", buildErr.Variant)
	assert.Equal(t, 3, buildErr.Attempts)
}

func TestBuild_ExhaustionWithProxy_FourAttempts(t *testing.T) {
	runner := &scriptedRunner{outcomes: []error{errBoom, errBoom, errBoom, errBoom}}
	b := New(runner, "docker", WithOutput(&bytes.Buffer{}))

	proxy := buildplan.ProxyConfig{HTTPProxy: "http://proxy:3128"}
	result, err := b.Build(context.Background(), buildOpts("alpine", proxy))

	require.Error(t, err)
	assert.Equal(t, 4, result.Attempts)
	assert.Len(t, runner.calls, 4)
}

func TestBuild_ProxyTierCanWin(t *testing.T) {
	runner := &scriptedRunner{outcomes: []error{errBoom, errBoom, errBoom, nil}}
	b := New(runner, "docker", WithOutput(&bytes.Buffer{}))

	proxy := buildplan.ProxyConfig{HTTPSProxy: "http://proxy:3128"}
	result, err := b.Build(context.Background(), buildOpts("", proxy))

	require.NoError(t, err)
	assert.Equal(t, buildplan.TierProxy, result.WinningTier)
}

func TestBuild_RecordsOutcome(t *testing.T) {
	recorder := &captureRecorder{}
	runner := &scriptedRunner{outcomes: []error{errBoom, nil}}
	b := New(runner, "docker", WithOutput(&bytes.Buffer{}), WithRecorder(recorder))

	_, err := b.Build(context.Background(), buildOpts("slim", buildplan.ProxyConfig{}))
	require.NoError(t, err)

	require.Len(t, recorder.runs, 1)
	run := recorder.runs[0]
	assert.Equal(t, "slim", run.Variant)
	assert.True(t, run.Success)
	assert.Equal(t, 2, run.Attempts)
}

func TestBuild_RecorderFailureDoesNotFailBuild(t *testing.T) {
	recorder := &captureRecorder{err: errors.New("ledger down")}
	runner := &scriptedRunner{outcomes: []error{nil}}
	b := New(runner, "docker", WithOutput(&bytes.Buffer{}), WithRecorder(recorder))

	_, err := b.Build(context.Background(), buildOpts("", buildplan.ProxyConfig{}))
	assert.NoError(t, err)
}

func TestBuild_FailedRunIsRecorded(t *testing.T) {
	recorder := &captureRecorder{}
	runner := &scriptedRunner{outcomes: []error{errBoom, errBoom, errBoom}}
	b := New(runner, "docker", WithOutput(&bytes.Buffer{}), WithRecorder(recorder))

	_, err := b.Build(context.Background(), buildOpts("alpine", buildplan.ProxyConfig{}))
	require.Error(t, err)

	require.Len(t, recorder.runs, 1)
	assert.False(t, recorder.runs[0].Success)
	assert.Equal(t, 3, recorder.runs[0].Attempts)
}

func TestBuild_ContextCancelStopsEscalation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	runner := &scriptedRunner{outcomes: []error{errBoom, errBoom, errBoom}}
	var out bytes.Buffer
	b := New(runner, "docker", WithOutput(&out))

	cancel()
	_, err := b.Build(ctx, buildOpts("", buildplan.ProxyConfig{}))

	require.Error(t, err)
	assert.Len(t, runner.calls, 1, "no escalation after cancellation")
	assert.NotContains(t, out.String(), "Suggestions", "remediation is for exhaustion, not interrupts")
}
