package utils

import (
	"net"
	"net/http"
	"strings"
)

// RealClientIP prefers the first X-Forwarded-For hop, then X-Real-IP, then
// the connection's remote address.
func RealClientIP(r *http.Request) string {
	if xfwd := r.Header.Get("X-Forwarded-For"); xfwd != "" {
		first, _, _ := strings.Cut(xfwd, ",")
		return strings.TrimSpace(first)
	}
	if real := strings.TrimSpace(r.Header.Get("X-Real-IP")); real != "" {
		return real
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
