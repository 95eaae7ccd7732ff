// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements RedactingLogger, the access logger. Contact records
// are full of personal data (names, e-mail addresses, phone numbers), so
// nothing derived from the request is logged unscrubbed and bodies are never
// logged.
package middleware

import (
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// RedactOptions configures additional scrub behavior for RedactingLogger.
//
// MaskHeaders specifies extra HTTP header names whose values will be fully
// replaced with "[REDACTED]". Matching is case-insensitive and merged with
// the built-in sensitive headers (Authorization, Cookie, Set-Cookie).
type RedactOptions struct {
	MaskHeaders []string
}

var (
	uuidRE  = regexp.MustCompile(`(?i)\b[0-9a-f]{8}\-[0-9a-f]{4}\-[1-5][0-9a-f]{3}\-[89ab][0-9a-f]{3}\-[0-9a-f]{12}\b`)
	emailRE = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	// Digits only, so UUID hex groups never match. Covers "+33 6 12 34 56 78"
	// style numbers as well as "212-555-1212".
	phoneRE = regexp.MustCompile(`(?:\+\d{1,3}[ .-]?)?(?:\(?\d{1,4}\)?[ .-]?){1,4}\d{2,4}[ .-]?\d{2,4}\b`)
)

// Redact scrubs UUIDs, e-mail addresses and phone numbers from s. UUIDs go
// first so the phone pattern never eats their digit groups.
func Redact(s string) string {
	if s == "" {
		return s
	}
	s = uuidRE.ReplaceAllString(s, "[REDACTED:id]")
	s = emailRE.ReplaceAllString(s, "[REDACTED:email]")
	return phoneRE.ReplaceAllStringFunc(s, func(m string) string {
		digits := 0
		for _, r := range m {
			if r >= '0' && r <= '9' {
				digits++
			}
		}
		if digits < 7 {
			return m
		}
		return "[REDACTED:phone]"
	})
}

// RedactingLogger attaches a request-scoped logger (request id, user id,
// method, route) to the Gin and request contexts, then writes one access log
// line per request with query string and headers scrubbed by Redact.
// Level is info, warn for 4xx, error for 5xx or when handlers recorded
// errors on the Gin context.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	maskHeaders := map[string]struct{}{
		"authorization": {},
		"cookie":        {},
		"set-cookie":    {},
	}
	for _, h := range opts.MaskHeaders {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			maskHeaders[h] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		start := time.Now()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		reqID := c.Writer.Header().Get(requestIDHeader)
		if reqID == "" {
			reqID = c.GetHeader(requestIDHeader)
		}

		scoped := log.With().
			Str("request_id", reqID).
			Str("user_id", UserID(c)).
			Str("method", c.Request.Method).
			Str("path", path).
			Logger()
		attachLogger(c, scoped)

		safeQuery := Redact(truncate(c.Request.URL.RawQuery, maxQueryLogLength))
		safeHeaders := make(map[string]string, len(c.Request.Header))
		for k, vv := range c.Request.Header {
			if _, ok := maskHeaders[strings.ToLower(k)]; ok {
				safeHeaders[k] = "[REDACTED]"
				continue
			}
			safeHeaders[k] = Redact(strings.Join(vv, ", "))
		}

		c.Next()

		status := c.Writer.Status()
		ev := scoped.Info()
		switch {
		case status >= 500 || len(c.Errors) > 0:
			ev = scoped.Error()
			if len(c.Errors) > 0 {
				ev = ev.Str("errors", Redact(c.Errors.String()))
			}
		case status >= 400:
			ev = scoped.Warn()
		}

		ev.
			Str("query", safeQuery).
			Str("remote_ip", c.ClientIP()).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Interface("headers", safeHeaders).
			Msg("http_request")
	}
}
