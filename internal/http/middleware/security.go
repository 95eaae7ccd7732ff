package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const defaultHSTSMaxAge = 180 * 24 * time.Hour

// SecurityOptions selects the optional header groups of SecurityHeaders.
type SecurityOptions struct {
	// EnableHSTS sends Strict-Transport-Security on HTTPS requests only.
	// Enable it only when traffic is HTTPS end to end.
	EnableHSTS bool
	HSTSMaxAge time.Duration // default 180 days

	// NoStore forbids caching. The CRM API group uses it because contact
	// and user payloads carry personal data.
	NoStore bool

	// EnablePolicy adds Permissions-Policy and
	// X-Permitted-Cross-Domain-Policies.
	EnablePolicy bool
}

type headerPair struct{ name, value string }

// SecurityHeaders sets nosniff, frame denial and no-referrer on every
// response, plus the groups enabled in opt. An X-Request-ID set by earlier
// middleware is added to Access-Control-Expose-Headers.
func SecurityHeaders(opt SecurityOptions) gin.HandlerFunc {
	fixed := []headerPair{
		{"X-Content-Type-Options", "nosniff"},
		{"X-Frame-Options", "DENY"},
		{"Referrer-Policy", "no-referrer"},
	}
	if opt.EnablePolicy {
		fixed = append(fixed,
			headerPair{"Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=()"},
			headerPair{"X-Permitted-Cross-Domain-Policies", "none"},
		)
	}
	if opt.NoStore {
		fixed = append(fixed,
			headerPair{"Cache-Control", "no-store"},
			headerPair{"Pragma", "no-cache"},
			headerPair{"Expires", "0"},
		)
	}

	maxAge := opt.HSTSMaxAge
	if maxAge <= 0 {
		maxAge = defaultHSTSMaxAge
	}
	hsts := "max-age=" + strconv.Itoa(int(maxAge.Seconds())) + "; includeSubDomains; preload"

	return func(c *gin.Context) {
		h := c.Writer.Header()
		for _, p := range fixed {
			h.Set(p.name, p.value)
		}
		if opt.EnableHSTS && isHTTPS(c.Request) {
			h.Set("Strict-Transport-Security", hsts)
		}
		if h.Get(requestIDHeader) != "" {
			exposeHeader(h, requestIDHeader)
		}
		c.Next()
	}
}

// exposeHeader appends name to Access-Control-Expose-Headers once.
func exposeHeader(h http.Header, name string) {
	const key = "Access-Control-Expose-Headers"
	cur := h.Get(key)
	switch {
	case cur == "":
		h.Set(key, name)
	case !strings.Contains(cur, name):
		h.Set(key, cur+", "+name)
	}
}

// isHTTPS reports whether r arrived over TLS, directly or behind a proxy
// that set X-Forwarded-Proto.
func isHTTPS(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
