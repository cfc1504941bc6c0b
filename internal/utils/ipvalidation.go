package utils

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// Proxy header trust modes accepted by ParseProxyTrust.
const (
	TrustProxyAuto   = "auto"
	TrustProxyAlways = "true"
	TrustProxyNever  = "false"
)

// ProxyTrust decides whether X-Forwarded-For and X-Real-IP may be believed for
// a request. In auto mode the headers count only when the connection comes
// from one of the trusted prefixes.
type ProxyTrust struct {
	mode     string
	prefixes []netip.Prefix
}

// ParseProxyTrust builds a ProxyTrust from a mode and a comma-separated list of
// IPs and CIDR ranges, e.g. "127.0.0.1,10.0.0.0/8,::1".
func ParseProxyTrust(mode, trustedProxies string) (*ProxyTrust, error) {
	switch mode {
	case TrustProxyAuto, TrustProxyAlways, TrustProxyNever:
	case "":
		mode = TrustProxyAuto
	default:
		return nil, fmt.Errorf("invalid proxy trust mode %q", mode)
	}

	pt := &ProxyTrust{mode: mode}
	for _, entry := range strings.Split(trustedProxies, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		if strings.Contains(entry, "/") {
			prefix, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("invalid trusted proxy range %q: %w", entry, err)
			}
			pt.prefixes = append(pt.prefixes, prefix.Masked())
			continue
		}

		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy address %q: %w", entry, err)
		}
		addr = addr.Unmap()
		pt.prefixes = append(pt.prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}

	return pt, nil
}

// Trusts reports whether a connection from ip may set forwarding headers.
func (pt *ProxyTrust) Trusts(ip string) bool {
	switch pt.mode {
	case TrustProxyAlways:
		return true
	case TrustProxyNever:
		return false
	}

	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range pt.prefixes {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// ClientIP returns the originating client address for r: the first valid
// X-Forwarded-For entry or X-Real-IP when the immediate peer is trusted,
// otherwise the peer itself.
func (pt *ProxyTrust) ClientIP(r *http.Request) string {
	remote := RemoteIP(r.RemoteAddr)
	if !pt.Trusts(remote) {
		return remote
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if addr, err := netip.ParseAddr(strings.TrimSpace(first)); err == nil {
			return addr.Unmap().String()
		}
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		if addr, err := netip.ParseAddr(xri); err == nil {
			return addr.Unmap().String()
		}
	}

	return remote
}

// RemoteIP strips the port from a "host:port" address. Addresses without a
// port are returned without brackets.
func RemoteIP(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return strings.Trim(addr, "[]")
}
