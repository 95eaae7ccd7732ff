package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_CountsByRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Metrics())
	r.GET("/contacts/:id", func(c *gin.Context) { c.String(http.StatusOK, c.Param("id")) })
	r.DELETE("/contacts/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	ok := httpRequests.WithLabelValues("GET", "/contacts/:id", "200")
	gone := httpRequests.WithLabelValues("DELETE", "/contacts/:id", "204")
	miss := httpRequests.WithLabelValues("GET", UnmatchedRoute, "404")
	baseOK, baseGone, baseMiss := testutil.ToFloat64(ok), testutil.ToFloat64(gone), testutil.ToFloat64(miss)

	for _, tc := range []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/contacts/a", http.StatusOK},
		{http.MethodGet, "/contacts/b", http.StatusOK},
		{http.MethodDelete, "/contacts/a", http.StatusNoContent},
		{http.MethodGet, "/random/" + t.Name(), http.StatusNotFound},
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, nil))
		require.Equal(t, tc.want, w.Code, "%s %s", tc.method, tc.path)
	}

	assert.Equal(t, baseOK+2, testutil.ToFloat64(ok), "both ids share one route series")
	assert.Equal(t, baseGone+1, testutil.ToFloat64(gone))
	assert.Equal(t, baseMiss+1, testutil.ToFloat64(miss))
	assert.Zero(t, testutil.ToFloat64(httpInflight))
}

func TestMetrics_ReplaysAndNotModified(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Metrics())
	r.POST("/contacts", func(c *gin.Context) {
		c.Header(HeaderIdempotencyReplayed, "true")
		c.JSON(http.StatusCreated, gin.H{"id": "c1"})
	})
	r.GET("/contacts", func(c *gin.Context) { c.Status(http.StatusNotModified) })

	replays := httpReplays.WithLabelValues("/contacts")
	notMod := httpNotModified.WithLabelValues("/contacts")
	baseReplays, baseNotMod := testutil.ToFloat64(replays), testutil.ToFloat64(notMod)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/contacts", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/contacts", nil))

	assert.Equal(t, baseReplays+1, testutil.ToFloat64(replays))
	assert.Equal(t, baseNotMod+1, testutil.ToFloat64(notMod))
}
