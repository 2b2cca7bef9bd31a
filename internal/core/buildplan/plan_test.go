package buildplan

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/botdeploy/internal/core/variant"
)

func defaultOpts(proxy ProxyConfig) Options {
	return Options{
		Spec:       variant.Resolve("alpine"),
		Image:      "reminder-bot",
		ContextDir: ".",
		Proxy:      proxy,
	}
}

func TestPlan_TierOrderWithoutProxy(t *testing.T) {
	attempts := Plan(defaultOpts(ProxyConfig{}))

	require.Len(t, attempts, 3)
	assert.Equal(t, TierPlain, attempts[0].Tier)
	assert.Equal(t, TierHostNetwork, attempts[1].Tier)
	assert.Equal(t, TierDNS, attempts[2].Tier)
}

func TestPlan_ProxyTierGatedOnProxyConfig(t *testing.T) {
	attempts := Plan(defaultOpts(ProxyConfig{HTTPProxy: "http://proxy.corp:3128"}))

	require.Len(t, attempts, 4)
	assert.Equal(t, TierProxy, attempts[3].Tier)

	joined := strings.Join(attempts[3].Args, " ")
	assert.Contains(t, joined, "HTTP_PROXY=http://proxy.corp:3128")

	// HTTPS-only proxy also unlocks the tier.
	attempts = Plan(defaultOpts(ProxyConfig{HTTPSProxy: "http://proxy.corp:3128"}))
	require.Len(t, attempts, 4)
}

func TestPlan_BaseFlagsOnEveryAttempt(t *testing.T) {
	attempts := Plan(defaultOpts(ProxyConfig{HTTPProxy: "http://p:1"}))

	for _, a := range attempts {
		joined := strings.Join(a.Args, " ")
		assert.Equal(t, "build", a.Args[0], "tier %s", a.Tier)
		assert.Contains(t, joined, "--no-cache", "tier %s", a.Tier)
		assert.Contains(t, joined, "BUILDKIT_INLINE_CACHE=1", "tier %s", a.Tier)
		assert.Contains(t, joined, "-t reminder-bot:alpine", "tier %s", a.Tier)
		assert.Contains(t, joined, "-f Dockerfile.alpine", "tier %s", a.Tier)
		assert.Equal(t, ".", a.Args[len(a.Args)-1], "tier %s", a.Tier)
	}
}

func TestPlan_NetworkEscalation(t *testing.T) {
	attempts := Plan(defaultOpts(ProxyConfig{}))

	assert.NotContains(t, strings.Join(attempts[0].Args, " "), "--network=host")
	assert.Contains(t, strings.Join(attempts[1].Args, " "), "--network=host")

	dns := strings.Join(attempts[2].Args, " ")
	assert.Contains(t, dns, "--dns 8.8.8.8")
	assert.Contains(t, dns, "--dns 1.1.1.1")
}

func TestPlan_EmptyContextDefaultsToDot(t *testing.T) {
	opts := defaultOpts(ProxyConfig{})
	opts.ContextDir = ""
	attempts := Plan(opts)
	for _, a := range attempts {
		assert.Equal(t, ".", a.Args[len(a.Args)-1])
	}
}

func TestProxyConfig_Present(t *testing.T) {
	assert.False(t, ProxyConfig{}.Present())
	assert.False(t, ProxyConfig{NoProxy: "localhost"}.Present())
	assert.True(t, ProxyConfig{HTTPProxy: "http://p:1"}.Present())
	assert.True(t, ProxyConfig{HTTPSProxy: "http://p:1"}.Present())
}

func TestProxyFromEnv(t *testing.T) {
	t.Setenv("HTTP_PROXY", "http://upper:1")
	t.Setenv("http_proxy", "http://lower:1")
	t.Setenv("HTTPS_PROXY", "")
	t.Setenv("https_proxy", "http://lower:2")
	t.Setenv("NO_PROXY", "")
	t.Setenv("no_proxy", "")

	p := ProxyFromEnv()
	assert.Equal(t, "http://upper:1", p.HTTPProxy, "uppercase wins")
	assert.Equal(t, "http://lower:2", p.HTTPSProxy, "lowercase is the fallback")
	assert.Empty(t, p.NoProxy)
}
