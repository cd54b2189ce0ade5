// Package egress restricts provider HTTP traffic to known hosts.
package egress

import (
	"net"
	"net/http"
	"strings"

	"redline/engine/internal/collab"
)

// AllowlistRoundTripper enforces HTTPS-only requests to a fixed host
// allowlist. Raw IP hosts are always rejected.
type AllowlistRoundTripper struct {
	Base  http.RoundTripper
	Hosts map[string]bool
}

func NewAllowlistRoundTripper(base http.RoundTripper, hosts []string) *AllowlistRoundTripper {
	allowed := make(map[string]bool, len(hosts))
	for _, host := range hosts {
		allowed[strings.ToLower(host)] = true
	}
	return &AllowlistRoundTripper{Base: base, Hosts: allowed}
}

func (rt *AllowlistRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL == nil || req.URL.Scheme != "https" {
		return nil, collab.ErrEgressBlocked
	}
	host := req.URL.Hostname()
	if host == "" || net.ParseIP(host) != nil {
		return nil, collab.ErrEgressBlocked
	}
	if !rt.Hosts[strings.ToLower(host)] {
		return nil, collab.ErrEgressBlocked
	}
	base := rt.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}
