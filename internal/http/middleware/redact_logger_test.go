package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestRedact(t *testing.T) {
	cases := []struct{ in, want string }{
		{"", ""},
		{"statut=Client&sort=-updated_date", "statut=Client&sort=-updated_date"},
		{"q=marie.dupont@example.fr", "q=[REDACTED:email]"},
		{"tel +33 6 12 34 56 78", "tel [REDACTED:phone]"},
		{"tel 555-123-4567", "tel [REDACTED:phone]"},
		{"id=123e4567-e89b-12d3-a456-426614174000", "id=[REDACTED:id]"},
		{"page=2&page_size=20", "page=2&page_size=20"},
	}
	for _, tc := range cases {
		if got := Redact(tc.in); got != tc.want {
			t.Errorf("Redact(%q) = %q; want %q", tc.in, got, tc.want)
		}
	}
}

func TestRedactingLogger_InfoAndRedactions(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	buf := captureLogger(t)

	r.Use(func(c *gin.Context) {
		c.Header("X-Request-ID", "rid-resp")
		c.Next()
	})
	r.Use(RedactingLogger(RedactOptions{MaskHeaders: []string{"X-Api-Key"}}))
	r.GET("/contacts/:id", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	q := "email=a.b+tag@example.com&phone=+1-555-123-4567&id=123e4567-e89b-12d3-a456-426614174000"
	req := httptest.NewRequest(http.MethodGet, "/contacts/123?"+q, nil)
	req.Header.Set("Authorization", "Bearer secret")
	req.Header.Set("Cookie", "sid=topsecret")
	req.Header.Set("X-Api-Key", "shhh")
	req.Header.Set("X-Custom", "email a@b.com id=123e4567-e89b-12d3-a456-426614174000 phone 555-123-4567")
	req.Header.Set("X-Request-ID", "rid-req")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	logs := buf.String()
	if !strings.Contains(logs, `"level":"info"`) {
		t.Fatalf("expected info log, got: %s", logs)
	}
	if !strings.Contains(logs, `"path":"/contacts/:id"`) {
		t.Fatalf("expected path to use c.FullPath, got: %s", logs)
	}
	if !strings.Contains(logs, `"request_id":"rid-resp"`) {
		t.Fatalf("expected request_id from response header, got: %s", logs)
	}
	if !strings.Contains(logs, `[REDACTED:email]`) || !strings.Contains(logs, `[REDACTED:phone]`) || !strings.Contains(logs, `[REDACTED:id]`) {
		t.Fatalf("expected query redactions, got: %s", logs)
	}
	if strings.Contains(logs, "example.com") || strings.Contains(logs, "4567") {
		t.Fatalf("PII leaked into logs: %s", logs)
	}
	for _, h := range []string{"Authorization", "Cookie", "X-Api-Key"} {
		if !strings.Contains(logs, `"`+h+`":"[REDACTED]"`) {
			t.Fatalf("%s must be masked: %s", h, logs)
		}
	}
	if !strings.Contains(logs, `"X-Custom":"email [REDACTED:email] id=[REDACTED:id] phone [REDACTED:phone]"`) {
		t.Fatalf("expected redacted X-Custom header, got: %s", logs)
	}
}

func TestRedactingLogger_WarnAndErrorLevels_RequestIDFallback(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	buf := captureLogger(t)

	r.Use(RedactingLogger(RedactOptions{}))
	r.GET("/warn", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	r.GET("/error", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })
	r.GET("/ginerr", func(c *gin.Context) {
		_ = c.Error(errors.New("write to bob@example.com failed"))
		c.Status(http.StatusBadRequest)
	})

	for _, p := range []string{"/warn", "/error", "/ginerr"} {
		req := httptest.NewRequest(http.MethodGet, p, nil)
		req.Header.Set("X-Request-ID", "rid"+strings.ReplaceAll(p, "/", "-"))
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	logs := buf.String()
	if !strings.Contains(logs, `"level":"warn"`) || !strings.Contains(logs, `"request_id":"rid-warn"`) {
		t.Fatalf("warn log not found or missing request_id fallback: %s", logs)
	}
	if !strings.Contains(logs, `"level":"error"`) || !strings.Contains(logs, `"request_id":"rid-error"`) {
		t.Fatalf("error log not found or missing request_id fallback: %s", logs)
	}
	if !strings.Contains(logs, `"request_id":"rid-ginerr"`) || strings.Contains(logs, "bob@example.com") {
		t.Fatalf("gin errors must be logged redacted: %s", logs)
	}
}
