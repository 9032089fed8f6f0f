package security

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// ProxyTrust describes how far forwarding headers may be believed.
//
// With Enabled false the connection's remote address is used and forwarding
// headers are ignored, since any client can set them.
type ProxyTrust struct {
	Enabled bool

	// Hops is the number of trusted proxies in front of the gateway.
	// Zero is treated as one.
	Hops int
}

// ClientIP returns the address rate limiting and audit entries are keyed on.
//
// X-Forwarded-For reads "client, proxy1, proxy2"; the entry Hops positions
// from the right is the first one not appended by a trusted proxy.
func ClientIP(r *http.Request, trust ProxyTrust) string {
	if trust.Enabled {
		if ip, ok := forwardedFor(r.Header.Get("X-Forwarded-For"), trust.Hops); ok {
			return ip
		}
		if ip, ok := parseAddr(r.Header.Get("X-Real-IP")); ok {
			return ip
		}
	}
	return remoteHost(r.RemoteAddr)
}

func forwardedFor(header string, hops int) (string, bool) {
	if header == "" {
		return "", false
	}
	if hops <= 0 {
		hops = 1
	}

	parts := strings.Split(header, ",")
	i := len(parts) - hops - 1
	if i < 0 {
		i = 0
	}
	return parseAddr(parts[i])
}

func parseAddr(s string) (string, bool) {
	addr, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil {
		return "", false
	}
	return addr.Unmap().String(), true
}

func remoteHost(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
