// Package httpapi wires the HTTP transport (Gin) to the CRM services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation ids, caller identity, logging/redaction, panic
// recovery, metrics, compression, CORS, security headers, idempotency, and
// rate limiting.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	_ "github.com/tbourn/go-crm-backend/docs" // registers the OpenAPI spec
	"github.com/tbourn/go-crm-backend/internal/config"
	"github.com/tbourn/go-crm-backend/internal/http/handlers"
	"github.com/tbourn/go-crm-backend/internal/http/middleware"
	"github.com/tbourn/go-crm-backend/internal/repo"
	"github.com/tbourn/go-crm-backend/internal/services"
)

// Deps are the long-lived collaborators owned by the caller. The hub's
// lifecycle (Run/Close) stays with the caller.
type Deps struct {
	DB            *gorm.DB
	Notifications handlers.NotificationHub
	Columns       handlers.ColumnPreferences
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine and mounts the public API under cfg.APIBasePath.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Identity: read X-User-ID
//  4. RedactingLogger: structured logs with PII scrubbing
//  5. Recovery: capture panics after logger
//  6. Body size limiter
//  7. Metrics
//  8. Idempotency validator (before rate limiter to allow bypass on replay)
//  9. Rate limiter (per user/IP, bypass on replay)
//  10. Compression, CORS and security headers
func RegisterRoutes(r *gin.Engine, d Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	ledger := repo.NewLedger(d.DB, cfg.IdempotencyTTL)

	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.Identity())
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{"X-API-Key"},
	}))
	r.Use(middleware.Recovery())
	r.Use(limitBody(1 << 20))

	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{MaxLen: 200}, ledger.Lookup))

	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	allowHeaders := []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderUserID, middleware.HeaderIdempotencyKey, "If-None-Match"}
	exposeHeaders := []string{"X-Request-ID", "Content-Length", "ETag", "Retry-After", middleware.HeaderIdempotencyReplayed}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header.
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false,
			MaxAge:           12 * time.Hour,
		}))
	}

	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		EnablePolicy: true,
	}))

	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	if cfg.SwaggerEnabled {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	stores := repo.NewStores(d.DB)
	h := handlers.New(handlers.Deps{
		Contacts:      services.NewContactService(stores.Contacts, stores.Interactions),
		Users:         services.NewUserService(stores.Users),
		Notifications: d.Notifications,
		Columns:       d.Columns,
		Ledger:        ledger,
	})

	// Per-user data: no-store on every API response.
	api := groupWithPrefix(r, cfg.APIBasePath)
	api.Use(middleware.SecurityHeaders(middleware.SecurityOptions{NoStore: true}))
	{
		api.GET("/contacts", h.ListContacts)
		api.POST("/contacts", h.CreateContact)
		api.GET("/contacts/:id", h.GetContact)
		api.PATCH("/contacts/:id", h.UpdateContact)
		api.DELETE("/contacts/:id", h.DeleteContact)
		api.PUT("/contacts/:id/stage", h.MoveContactStage)
		api.GET("/contacts/:id/interactions", h.ListInteractions)
		api.POST("/contacts/:id/interactions", h.AddInteraction)

		api.GET("/pipeline", h.Pipeline)

		api.GET("/notifications", h.ListNotifications)
		api.POST("/notifications/read-all", h.MarkAllNotificationsRead)
		api.POST("/notifications/:id/read", h.MarkNotificationRead)

		api.GET("/preferences/columns", h.GetColumns)
		api.PUT("/preferences/columns", h.PutColumns)
		api.DELETE("/preferences/columns", h.ResetColumns)

		api.GET("/users", h.ListUsers)
		api.GET("/users/me", h.Me)
		api.PATCH("/users/me/preferences", h.UpdatePreferences)
		api.PUT("/users/:id/role", h.UpdateRole)
	}
}

// limitBody caps the request body size to maxBytes using
// http.MaxBytesReader. Requests exceeding the cap make downstream body reads
// fail.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
