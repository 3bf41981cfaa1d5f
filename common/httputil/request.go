package httputil

import (
	"net"
	"net/http"
	"strings"
)

// GetClientIP extracts the client IP address from request headers.
// It checks, in order:
//  1. X-Forwarded-For (first entry of the comma-separated list)
//  2. X-Real-IP
//  3. RemoteAddr, with the port stripped
//
// Forwarding headers are only meaningful behind a trusted proxy.
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	return RemoteIP(r)
}

// RemoteIP returns the peer address of the connection, with the port stripped.
func RemoteIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// ClientIP returns GetClientIP when forwarding headers are trusted and
// RemoteIP otherwise.
func ClientIP(r *http.Request, trustProxyHeaders bool) string {
	if trustProxyHeaders {
		return GetClientIP(r)
	}
	return RemoteIP(r)
}
