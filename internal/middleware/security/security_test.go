package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestExtractClientIP(t *testing.T) {
	d := NewDetector(nil)
	tests := []struct {
		name   string
		remote string
		xff    string
		xri    string
		want   string
	}{
		{"direct", "203.0.113.9:5000", "", "", "203.0.113.9"},
		{"untrusted peer ignores xff", "203.0.113.9:5000", "1.1.1.1", "", "203.0.113.9"},
		{"trusted peer uses first xff", "127.0.0.1:5000", "1.1.1.1, 10.0.0.2", "", "1.1.1.1"},
		{"trusted peer bad xff falls to real ip", "10.1.2.3:80", "garbage", "2.2.2.2", "2.2.2.2"},
		{"unparseable remote", "pipe", "", "", "pipe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				r.Header.Set("X-Real-IP", tt.xri)
			}
			if got := d.ExtractClientIP(r); got != tt.want {
				t.Errorf("ExtractClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAddTrustedProxy(t *testing.T) {
	d := NewDetector(nil)
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "198.51.100.7:443"
	r.Header.Set("X-Forwarded-For", "1.1.1.1")
	if got := d.ExtractClientIP(r); got != "198.51.100.7" {
		t.Fatalf("untrusted peer: got %q", got)
	}

	if err := d.AddTrustedProxy("198.51.100.0/24"); err != nil {
		t.Fatalf("AddTrustedProxy: %v", err)
	}
	if got := d.ExtractClientIP(r); got != "1.1.1.1" {
		t.Fatalf("trusted peer: got %q, want the forwarded address", got)
	}
	if err := d.AddTrustedProxy("not-a-cidr"); err == nil {
		t.Fatal("expected an error for a bad CIDR")
	}
	if other := NewDetector(nil); other.ExtractClientIP(r) != "198.51.100.7" {
		t.Fatal("added proxy leaked into another detector")
	}
}

func TestDetectorMiddleware(t *testing.T) {
	d := NewDetector(nil)
	h := d.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name   string
		method string
		target string
		ua     string
		want   int
	}{
		{"normal page", http.MethodGet, "/solution/1/expense-data?q=tea", "Mozilla/5.0", http.StatusOK},
		{"dotenv probe", http.MethodGet, "/.env", "", http.StatusBadRequest},
		{"traversal in query", http.MethodGet, "/home?f=../../etc/passwd", "", http.StatusBadRequest},
		{"scanner agent", http.MethodGet, "/", "sqlmap/1.7", http.StatusBadRequest},
		{"trace method", "TRACE", "/", "", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(tt.method, tt.target, nil)
			r.Header.Set("User-Agent", tt.ua)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, r)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
	if d.SuspiciousRequests() != 4 {
		t.Fatalf("suspicious = %d, want 4", d.SuspiciousRequests())
	}
}

func TestHeadersMiddleware(t *testing.T) {
	h := NewHeadersMiddleware(DefaultHeadersConfig()).Middleware(http.NotFoundHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("X-Frame-Options missing")
	}
	if !strings.Contains(rec.Header().Get("Content-Security-Policy"), "img-src 'self' data: https:") {
		t.Error("CSP should allow https images")
	}
	if rec.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS must not be sent over plain http")
	}
	if !strings.Contains(rec.Header().Get("Accept-CH"), "Viewport-Width") {
		t.Error("viewport client hint not requested")
	}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.TLS = &tls.ConnectionState{}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	if !strings.HasPrefix(rec.Header().Get("Strict-Transport-Security"), "max-age=31536000") {
		t.Errorf("HSTS = %q", rec.Header().Get("Strict-Transport-Security"))
	}
}

func TestNoStore(t *testing.T) {
	rec := httptest.NewRecorder()
	NoStore(http.NotFoundHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Header().Get("Cache-Control") != "no-store" {
		t.Fatal("Cache-Control not set")
	}
}
