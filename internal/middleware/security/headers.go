package security

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// HeadersConfig lists the response headers sent on every page. Empty
// values are omitted.
type HeadersConfig struct {
	// CSP directives, joined with "; ".
	CSP               []string
	FrameOptions      string
	ReferrerPolicy    string
	PermissionsPolicy string
	// HSTS is only sent on TLS requests; zero disables it.
	HSTS time.Duration
	// ClientHints are requested with Accept-CH and added to Vary.
	ClientHints []string
}

// DefaultHeadersConfig allows images from any https origin, since UPI
// screenshots are served by the backend's storage. Viewport width hints
// let tables pick a layout on first load.
func DefaultHeadersConfig() HeadersConfig {
	return HeadersConfig{
		CSP: []string{
			"default-src 'self'",
			"script-src 'self'",
			"style-src 'self' 'unsafe-inline'",
			"img-src 'self' data: https:",
			"connect-src 'self'",
			"object-src 'none'",
			"frame-ancestors 'none'",
			"base-uri 'self'",
			"form-action 'self'",
		},
		FrameOptions:      "DENY",
		ReferrerPolicy:    "same-origin",
		PermissionsPolicy: "geolocation=(), microphone=(), camera=(), payment=()",
		HSTS:              365 * 24 * time.Hour,
		ClientHints:       []string{"Sec-CH-Viewport-Width", "Viewport-Width"},
	}
}

// HeadersMiddleware writes a header set computed once at construction.
type HeadersMiddleware struct {
	fixed http.Header
	vary  []string
	hsts  string
}

func NewHeadersMiddleware(cfg HeadersConfig) *HeadersMiddleware {
	fixed := http.Header{}
	set := func(k, v string) {
		if v != "" {
			fixed.Set(k, v)
		}
	}
	set("X-Content-Type-Options", "nosniff")
	set("X-Frame-Options", cfg.FrameOptions)
	set("Content-Security-Policy", strings.Join(cfg.CSP, "; "))
	set("Referrer-Policy", cfg.ReferrerPolicy)
	set("Permissions-Policy", cfg.PermissionsPolicy)
	set("Cross-Origin-Opener-Policy", "same-origin")
	set("Cross-Origin-Resource-Policy", "same-origin")
	set("Accept-CH", strings.Join(cfg.ClientHints, ", "))

	h := &HeadersMiddleware{fixed: fixed, vary: cfg.ClientHints}
	if cfg.HSTS > 0 {
		h.hsts = "max-age=" + strconv.Itoa(int(cfg.HSTS.Seconds())) + "; includeSubDomains"
	}
	return h
}

func (h *HeadersMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		out := w.Header()
		for k, v := range h.fixed {
			out.Set(k, v[0])
		}
		for _, hint := range h.vary {
			out.Add("Vary", hint)
		}
		if r.TLS != nil && h.hsts != "" {
			out.Set("Strict-Transport-Security", h.hsts)
		}
		next.ServeHTTP(w, r)
	})
}

// NoStore marks responses as private; pages carry the user's financial data.
func NoStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// StaticAssetMiddleware lets browsers keep embedded assets for maxAge.
func StaticAssetMiddleware(maxAge time.Duration) func(http.Handler) http.Handler {
	value := "public, max-age=" + strconv.Itoa(int(maxAge.Seconds())) + ", immutable"
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", value)
			next.ServeHTTP(w, r)
		})
	}
}
