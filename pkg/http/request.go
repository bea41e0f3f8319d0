package http

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// ClientIPResolver extracts the real client address of a request.
// X-Forwarded-For and X-Real-IP are honoured only when the direct peer is
// inside one of the trusted proxy prefixes, so a client cannot choose the
// address it is rate limited and logged under.
type ClientIPResolver struct {
	trusted []netip.Prefix
}

// NewClientIPResolver parses the trusted proxy CIDRs. Invalid entries are skipped.
func NewClientIPResolver(trustedProxies []string) *ClientIPResolver {
	res := &ClientIPResolver{}
	for _, cidr := range trustedProxies {
		prefix, err := netip.ParsePrefix(strings.TrimSpace(cidr))
		if err != nil {
			continue
		}
		res.trusted = append(res.trusted, prefix.Masked())
	}
	return res
}

// ClientIP returns the client address for r.
// A nil resolver trusts no proxies.
func (res *ClientIPResolver) ClientIP(r *http.Request) string {
	peer := remoteAddr(r)

	if res == nil || !res.isTrusted(peer) {
		return peer
	}

	// Walk X-Forwarded-For from the right: the first hop that is not one of
	// our proxies is the client. Entries left of it are client-supplied.
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		var leftmost string
		for i := len(hops) - 1; i >= 0; i-- {
			addr, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
			if err != nil {
				continue
			}
			if !res.isTrusted(addr.String()) {
				return addr.String()
			}
			leftmost = addr.String()
		}
		if leftmost != "" {
			return leftmost
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		if addr, err := netip.ParseAddr(xri); err == nil {
			return addr.String()
		}
	}

	return peer
}

func (res *ClientIPResolver) isTrusted(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range res.trusted {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// remoteAddr strips the port from RemoteAddr
func remoteAddr(r *http.Request) string {
	if r.RemoteAddr == "" {
		return "unknown"
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
