package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

// limitedRouter mounts Identity and a 1 rps / burst 1 limiter in front of
// a contact listing.
func limitedRouter(rl *RateLimiter, pre ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) { c.Header("X-Request-ID", "rid-1"); c.Next() })
	r.Use(Identity())
	r.Use(pre...)
	r.Use(rl.Handler())
	r.GET("/contacts", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	return r
}

func getAs(r http.Handler, user string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/contacts", nil)
	req.RemoteAddr = net.JoinHostPort("198.51.100.7", "40000")
	if user != "" {
		req.Header.Set(HeaderUserID, user)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestKeyByUserOrIP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.RemoteAddr = net.JoinHostPort("203.0.113.9", "12345")

	assert.Equal(t, "ip:203.0.113.9", KeyByUserOrIP()(c))
	c.Set(UserIDKey, "u-42")
	assert.Equal(t, "user:u-42", KeyByUserOrIP()(c))
}

func TestRateLimiter_RejectsWithEnvelopeAndRetryAfter(t *testing.T) {
	rl := NewRateLimiter(1, 1, KeyByUserOrIP())
	r := limitedRouter(rl)
	limited := rateLimited.WithLabelValues("user")
	base := testutil.ToFloat64(limited)

	require.Equal(t, http.StatusOK, getAs(r, "alice").Code)
	w := getAs(r, "alice")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, map[string]string{
		"request_id": "rid-1",
		"code":       "too_many_requests",
		"message":    "rate limit exceeded",
	}, body)
	assert.Equal(t, base+1, testutil.ToFloat64(limited))
}

func TestRateLimiter_BucketsArePerCaller(t *testing.T) {
	r := limitedRouter(NewRateLimiter(1, 1, KeyByUserOrIP()))

	assert.Equal(t, http.StatusOK, getAs(r, "alice").Code)
	assert.Equal(t, http.StatusOK, getAs(r, "bob").Code)
	// Anonymous callers share the IP bucket, separate from user buckets.
	assert.Equal(t, http.StatusOK, getAs(r, "").Code)
	assert.Equal(t, http.StatusTooManyRequests, getAs(r, "").Code)
	assert.Equal(t, http.StatusTooManyRequests, getAs(r, "alice").Code)
}

func TestRateLimiter_ReplayBypassesLimit(t *testing.T) {
	rl := NewRateLimiter(1, 1, KeyByUserOrIP())
	r := limitedRouter(rl)
	require.Equal(t, http.StatusOK, getAs(r, "alice").Code)

	replaying := limitedRouter(rl, func(c *gin.Context) { c.Set(ctxKeyRateBypass, true); c.Next() })
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, getAs(replaying, "alice").Code)
	}
}

func TestIsRateBypass(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	assert.False(t, IsRateBypass(c))
	c.Set(ctxKeyRateBypass, true)
	assert.True(t, IsRateBypass(c))
	c.Set(ctxKeyRateBypass, "yes")
	assert.False(t, IsRateBypass(c))
}

func TestNewRateLimiter_BurstAtLeastOne(t *testing.T) {
	rl := NewRateLimiter(2, 0, KeyByUserOrIP())
	assert.Equal(t, 1, rl.burst)
	lim := rl.getVisitor("user:a")
	assert.Same(t, lim, rl.getVisitor("user:a"))
}

func TestRateLimiter_EvictsIdleBuckets(t *testing.T) {
	rl := NewRateLimiter(1, 1, KeyByUserOrIP())
	rl.ttl = time.Nanosecond

	rl.mu.Lock()
	rl.visitors["user:gone"] = &visitor{limiter: rate.NewLimiter(1, 1), lastSeen: time.Now().Add(-time.Hour)}
	rl.cleanupN = 4999
	rl.mu.Unlock()

	rl.getVisitor("user:new")

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.NotContains(t, rl.visitors, "user:gone")
	assert.Contains(t, rl.visitors, "user:new")
}
