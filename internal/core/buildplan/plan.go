// Package buildplan turns a resolved build variant into an ordered list of
// build attempts with progressively more permissive network configurations.
// Planning is pure - the proxy environment is passed in explicitly and the
// plan never changes once produced.
package buildplan

import (
	"os"

	"github.com/artpar/botdeploy/internal/core/variant"
)

// =============================================================================
// Attempt Tiers
// =============================================================================

// Tier identifies one network configuration in the escalation ladder.
type Tier string

const (
	TierPlain       Tier = "plain"
	TierHostNetwork Tier = "host-network"
	TierDNS         Tier = "dns"
	TierProxy       Tier = "proxy"
)

// Public resolvers used by the DNS tier.
const (
	dnsPrimary   = "8.8.8.8"
	dnsSecondary = "1.1.1.1"
)

// =============================================================================
// Proxy Configuration
// =============================================================================

// ProxyConfig carries HTTP proxy settings as an explicit input instead of
// being read implicitly inside the planner.
type ProxyConfig struct {
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// Present reports whether any HTTP proxy is configured. The proxy tier is
// only planned when this is true.
func (p ProxyConfig) Present() bool {
	return p.HTTPProxy != "" || p.HTTPSProxy != ""
}

// ProxyFromEnv reads proxy settings from the conventional environment
// variables, preferring the uppercase spellings.
func ProxyFromEnv() ProxyConfig {
	return ProxyConfig{
		HTTPProxy:  firstEnv("HTTP_PROXY", "http_proxy"),
		HTTPSProxy: firstEnv("HTTPS_PROXY", "https_proxy"),
		NoProxy:    firstEnv("NO_PROXY", "no_proxy"),
	}
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

// =============================================================================
// Plan
// =============================================================================

// Options control plan construction.
type Options struct {
	Spec       variant.Spec // resolved Dockerfile + tag
	Image      string       // image name, e.g. "reminder-bot"
	ContextDir string       // build context directory
	Proxy      ProxyConfig
}

// Attempt is one ordered build step: a description of its network
// configuration and the full argument list for the build tool.
type Attempt struct {
	Tier        Tier
	Description string
	Args        []string
}

// Plan produces the ordered attempt ladder for the given options.
//
// Every attempt shares the base invocation (no-cache, inline cache, tag,
// Dockerfile, context); later tiers only add network-related flags. The proxy
// tier is appended only when a proxy is configured - it is skipped entirely
// otherwise, not planned-and-failed.
func Plan(opts Options) []Attempt {
	ref := opts.Spec.ImageRef(opts.Image)
	ctxDir := opts.ContextDir
	if ctxDir == "" {
		ctxDir = "."
	}

	base := func(extra ...string) []string {
		args := []string{
			"build",
			"--no-cache",
			"--build-arg", "BUILDKIT_INLINE_CACHE=1",
			"-t", ref,
			"-f", opts.Spec.Dockerfile,
		}
		args = append(args, extra...)
		return append(args, ctxDir)
	}

	attempts := []Attempt{
		{
			Tier:        TierPlain,
			Description: "plain build",
			Args:        base(),
		},
		{
			Tier:        TierHostNetwork,
			Description: "host network mode",
			Args:        base("--network=host"),
		},
		{
			Tier:        TierDNS,
			Description: "explicit public DNS (" + dnsPrimary + ", " + dnsSecondary + ")",
			Args:        base("--network=host", "--dns", dnsPrimary, "--dns", dnsSecondary),
		},
	}

	if opts.Proxy.Present() {
		extra := append([]string{"--network=host"}, proxyArgs(opts.Proxy)...)
		attempts = append(attempts, Attempt{
			Tier:        TierProxy,
			Description: "proxy build arguments",
			Args:        base(extra...),
		})
	}

	return attempts
}

// proxyArgs passes the proxy settings through as build arguments so that
// RUN instructions inside the Dockerfile can reach the network.
func proxyArgs(p ProxyConfig) []string {
	var args []string
	if p.HTTPProxy != "" {
		args = append(args, "--build-arg", "HTTP_PROXY="+p.HTTPProxy)
		args = append(args, "--build-arg", "http_proxy="+p.HTTPProxy)
	}
	if p.HTTPSProxy != "" {
		args = append(args, "--build-arg", "HTTPS_PROXY="+p.HTTPSProxy)
		args = append(args, "--build-arg", "https_proxy="+p.HTTPSProxy)
	}
	if p.NoProxy != "" {
		args = append(args, "--build-arg", "NO_PROXY="+p.NoProxy)
	}
	return args
}
