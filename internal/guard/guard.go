// Package guard keeps the service from being used as an open snapshotting
// proxy for the world, or from capturing itself in a loop.
//
// The rules are a coarse host allow-list, not an SSRF defense: private
// addresses, redirects and DNS rebinding are not considered.
package guard

import (
	"net/url"
	"strings"
)

const (
	DefaultSelfHostname   = "pptraas.com"
	DefaultReservedPrefix = "puppeteerexamples"
)

type Guard struct {
	SelfHostname   string
	ReservedPrefix string
}

func NewDefaultGuard() *Guard {
	return &Guard{
		SelfHostname:   DefaultSelfHostname,
		ReservedPrefix: DefaultReservedPrefix,
	}
}

// IsAllowed reports whether candidate may be captured. Anything that does not
// parse as an absolute URL with a host is rejected.
func (g *Guard) IsAllowed(candidate string) bool {
	u, err := url.Parse(candidate)
	if err != nil {
		return false
	}
	if !u.IsAbs() {
		return false
	}

	hostname := strings.ToLower(u.Hostname())
	if hostname == "" {
		return false
	}

	if g.SelfHostname != "" && hostname == g.SelfHostname {
		return false
	}
	if g.ReservedPrefix != "" && strings.HasPrefix(hostname, g.ReservedPrefix) {
		return false
	}

	return true
}
