// Package clientip resolves the address of the browser behind a request.
// Forwarding headers are trusted, so the app must sit behind a proxy that
// overwrites them.
package clientip

import (
	"net"
	"net/http"
	"strings"
)

// forwardHeaders are checked in order before RemoteAddr.
var forwardHeaders = []string{"CF-Connecting-IP", "X-Real-IP"}

// GetIP returns the first valid address from X-Forwarded-For, then
// CF-Connecting-IP and X-Real-IP, then RemoteAddr. It returns "" when none
// parses.
func GetIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		for ip := range strings.SplitSeq(fwd, ",") {
			if parsed := parseIP(ip); parsed != "" {
				return parsed
			}
		}
	}
	for _, h := range forwardHeaders {
		if parsed := parseIP(r.Header.Get(h)); parsed != "" {
			return parsed
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return parseIP(r.RemoteAddr)
	}
	return parseIP(host)
}

func parseIP(s string) string {
	ip := net.ParseIP(strings.TrimSpace(s))
	if ip == nil {
		return ""
	}
	return ip.String()
}
