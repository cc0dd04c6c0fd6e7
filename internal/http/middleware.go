package http

import (
	"net/http"
)

const (
	corsAllowMethods = "GET, HEAD, OPTIONS"
	corsAllowHeaders = "Content-Type"
	corsMaxAge       = "86400"

	hstsValue = "max-age=31536000"
)

// apiSecurityHeaders are sent on every response. The service only returns
// JSON and PEM, so nothing may be framed, scripted or sniffed.
var apiSecurityHeaders = map[string]string{
	"Content-Security-Policy": "default-src 'none'; frame-ancestors 'none'",
	"X-Frame-Options":         "DENY",
	"X-Content-Type-Options":  "nosniff",
	"Referrer-Policy":         "no-referrer",
}

// originPolicy is the set of browser origins allowed to read keys.
type originPolicy struct {
	anyOrigin bool
	origins   map[string]struct{}
}

func newOriginPolicy(origins []string) originPolicy {
	p := originPolicy{origins: make(map[string]struct{}, len(origins))}
	for _, origin := range origins {
		if origin == "*" {
			p.anyOrigin = true
			continue
		}
		p.origins[origin] = struct{}{}
	}
	return p
}

func (p originPolicy) allows(origin string) bool {
	if p.anyOrigin {
		return true
	}
	_, ok := p.origins[origin]
	return ok
}

// CORSMiddleware lets the listed origins read the key endpoints from a
// browser. "*" allows any origin. Key requests never carry credentials, so
// credentials are never allowed.
func CORSMiddleware(origins []string) func(http.Handler) http.Handler {
	policy := newOriginPolicy(origins)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			if !policy.anyOrigin && len(policy.origins) > 0 {
				h.Add("Vary", "Origin")
			}

			origin := r.Header.Get("Origin")
			if origin == "" || !policy.allows(origin) {
				next.ServeHTTP(w, r)
				return
			}

			if policy.anyOrigin {
				h.Set("Access-Control-Allow-Origin", "*")
			} else {
				h.Set("Access-Control-Allow-Origin", origin)
			}

			// Preflight
			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				h.Set("Access-Control-Allow-Methods", corsAllowMethods)
				h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
				h.Set("Access-Control-Max-Age", corsMaxAge)
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// SecurityHeadersMiddleware sets apiSecurityHeaders, plus HSTS on TLS
// connections.
func SecurityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		for name, value := range apiSecurityHeaders {
			h.Set(name, value)
		}
		if r.TLS != nil {
			h.Set("Strict-Transport-Security", hstsValue)
		}
		next.ServeHTTP(w, r)
	})
}
