package security

import (
	"net/http"
	"strconv"
)

// HeadersConfig lists the response headers set on every API response. Empty
// values are skipped.
type HeadersConfig struct {
	ContentSecurityPolicy string
	ReferrerPolicy        string
	PermissionsPolicy     string
	FrameOptions          string
	CrossOriginPolicy     string

	// HSTSMaxAge is in seconds; zero disables Strict-Transport-Security.
	HSTSMaxAge     int
	HSTSSubdomains bool
}

// DefaultHeadersConfig returns defaults for a JSON API: nothing is allowed to
// render or frame the responses.
func DefaultHeadersConfig() HeadersConfig {
	return HeadersConfig{
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'; base-uri 'none'",
		ReferrerPolicy:        "no-referrer",
		PermissionsPolicy:     "geolocation=(), microphone=(), camera=(), payment=()",
		FrameOptions:          "DENY",
		CrossOriginPolicy:     "same-origin",
		HSTSMaxAge:            365 * 24 * 60 * 60,
		HSTSSubdomains:        true,
	}
}

type header struct{ key, value string }

// HeadersMiddleware writes a fixed header set computed once from its config.
type HeadersMiddleware struct {
	fixed []header
	hsts  string
}

func NewHeadersMiddleware(cfg HeadersConfig) *HeadersMiddleware {
	h := &HeadersMiddleware{}
	for _, kv := range []header{
		{"X-Content-Type-Options", "nosniff"},
		{"X-Frame-Options", cfg.FrameOptions},
		{"Content-Security-Policy", cfg.ContentSecurityPolicy},
		{"Referrer-Policy", cfg.ReferrerPolicy},
		{"Permissions-Policy", cfg.PermissionsPolicy},
		{"Cross-Origin-Opener-Policy", cfg.CrossOriginPolicy},
		{"Cross-Origin-Resource-Policy", cfg.CrossOriginPolicy},
		{"Cache-Control", "no-store"},
	} {
		if kv.value != "" {
			h.fixed = append(h.fixed, kv)
		}
	}
	if cfg.HSTSMaxAge > 0 {
		h.hsts = "max-age=" + strconv.Itoa(cfg.HSTSMaxAge)
		if cfg.HSTSSubdomains {
			h.hsts += "; includeSubDomains"
		}
	}
	return h
}

func (h *HeadersMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		out := w.Header()
		for _, kv := range h.fixed {
			out.Set(kv.key, kv.value)
		}
		// Browsers ignore HSTS on plain HTTP.
		if r.TLS != nil && h.hsts != "" {
			out.Set("Strict-Transport-Security", h.hsts)
		}
		next.ServeHTTP(w, r)
	})
}
