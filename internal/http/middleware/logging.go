// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file provides correlation ids, caller identity, panic recovery and
// access to the request-scoped logger:
//
//   - RequestID() propagates or generates X-Request-ID.
//   - Identity() reads the acting user from X-User-ID.
//   - Recovery() converts panics into JSON 500 responses.
//   - LoggerFrom() returns the logger attached by RedactingLogger.
//
// Recommended order: RequestID, Identity, RedactingLogger, Recovery.
package middleware

import (
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// requestIDKey is the Gin context key under which the request ID is stored.
	requestIDKey = "requestID"
	// requestIDHeader is the HTTP header used to propagate the correlation ID.
	requestIDHeader = "X-Request-ID"
	// UserIDKey is the Gin context key holding the acting user id.
	UserIDKey = "userID"
	// HeaderUserID carries the acting user id, set by the upstream gateway.
	HeaderUserID = "X-User-ID"
	// loggerKey stores the request-scoped *zerolog.Logger.
	loggerKey = "logger"
	// maxQueryLogLength caps the number of bytes of the raw query string logged.
	maxQueryLogLength = 2048
)

// RequestID attaches (or propagates) a correlation identifier per request.
// An incoming X-Request-ID is reused; otherwise a UUIDv4 is generated. The id
// is echoed on the response and stored under "requestID".
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(requestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Writer.Header().Set(requestIDHeader, rid)
		c.Next()
	}
}

// Identity stores the trimmed X-User-ID header under UserIDKey. Requests
// without the header carry no identity; handlers decide whether that is
// acceptable.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if uid := strings.TrimSpace(c.GetHeader(HeaderUserID)); uid != "" {
			c.Set(UserIDKey, uid)
		}
		c.Next()
	}
}

// UserID returns the identity set by Identity, or "".
func UserID(c *gin.Context) string {
	v, _ := c.Get(UserIDKey)
	return asString(v)
}

// Recovery intercepts panics, logs a stack trace, and returns a JSON 500
// error when nothing has been written yet.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				rid, _ := c.Get(requestIDKey)
				LoggerFrom(c).Error().
					Interface("panic", rec).
					Bytes("stack", debug.Stack()).
					Str("request_id", asString(rid)).
					Msg("panic recovered")

				if !c.Writer.Written() {
					c.Header("Content-Type", "application/json")
					c.Header(requestIDHeader, asString(rid))
					c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
						"request_id": asString(rid),
						"code":       "internal_error",
						"message":    "internal server error",
					})
					return
				}
				c.AbortWithStatus(http.StatusInternalServerError)
			}
		}()
		c.Next()
	}
}

// LoggerFrom returns the request-scoped zerolog.Logger, or the global logger
// when none was attached. Callers can use the result without nil checks.
func LoggerFrom(c *gin.Context) *zerolog.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if lg, ok := v.(*zerolog.Logger); ok {
			return lg
		}
	}
	l := log.With().Logger()
	return &l
}

// attachLogger stores l on the Gin context and on the request context so
// that services reached through c.Request.Context() log with the same
// fields via zerolog.Ctx.
func attachLogger(c *gin.Context, l zerolog.Logger) {
	c.Set(loggerKey, &l)
	c.Request = c.Request.WithContext(l.WithContext(c.Request.Context()))
}

// asString converts an arbitrary interface to a string, returning an empty
// string when the value is not a string. Used for context values.
func asString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// truncate returns s unchanged when within max length, otherwise it truncates
// s to max bytes and appends an ellipsis. A max <= 0 disables truncation.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
