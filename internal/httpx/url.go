package httpx

import (
	"net"
	"net/http"
	"strings"
)

func BaseURL(r *http.Request) string {
	scheme := "http"
	if r.Header.Get("X-Forwarded-Proto") == "https" || r.TLS != nil {
		scheme = "https"
	}
	host := r.Host
	// If Host is empty, fall back to server addr
	if host == "" {
		h, p, _ := net.SplitHostPort(r.URL.Host)
		if h == "" {
			h = "localhost"
		}
		if p == "" {
			p = "80"
		}
		host = net.JoinHostPort(h, p)
	}
	return scheme + "://" + host
}

// EffectiveHost is the host the client asked for. X-Forwarded-Host is only
// honoured behind a trusted proxy.
func EffectiveHost(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if h := forwardedHost(r); h != "" {
			return h
		}
	}
	return r.Host
}

func forwardedHost(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("X-Forwarded-Host"))
	if raw == "" {
		return ""
	}
	first, _, ok := strings.Cut(raw, ",")
	if ok {
		raw = first
	}
	return strings.TrimSpace(raw)
}
