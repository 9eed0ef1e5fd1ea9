// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// compression, CORS, security headers, idempotency, and rate limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - CORS restricted to the configured front-end origins
package httpapi

import (
	"context"
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

	"github.com/tbourn/go-orders-backend/docs"
	"github.com/tbourn/go-orders-backend/internal/cache"
	"github.com/tbourn/go-orders-backend/internal/config"
	"github.com/tbourn/go-orders-backend/internal/http/handlers"
	"github.com/tbourn/go-orders-backend/internal/http/middleware"
	"github.com/tbourn/go-orders-backend/internal/repo"
	"github.com/tbourn/go-orders-backend/internal/services"
)

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), idempotency and rate
// limiting, CORS and security headers, health and metrics endpoints, and then
// mounts the public API under cfg.APIBasePath (default /api).
//
// rc may be nil, in which case the report is always read from the database.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Gzip for responses
//  8. Idempotency validator (before rate limiter to allow bypass on replay)
//  9. Rate limiter (per IP and route, bypass on replay)
//  10. CORS and Security headers
func RegisterRoutes(r *gin.Engine, db *gorm.DB, rc *cache.Redis, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction (phone numbers travel in bodies, never logged)
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{
			"X-API-Key",
		},
		SkipPaths: []string{"/metrics", "/health"},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit
	maxBody := cfg.Ingest.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 4 << 20
	}
	r.Use(limitBody(maxBody))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Compress responses for clients that accept it
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	// Dependency injection: services ← repo/db/cache
	var reportCache services.ReportCache
	if rc.Enabled() {
		reportCache = rc
	}
	ingestSvc := &services.IngestService{
		DB:                 db,
		Cache:              reportCache,
		IncludeOrderNumber: cfg.Ingest.DedupIncludeOrderNumber,
		MaxBatchSize:       cfg.Ingest.MaxBatchSize,
		UseOrderCreatedAt:  cfg.Ingest.OrderCreatedAtFromOrder,
	}
	reportSvc := &services.ReportService{
		DB:       db,
		Cache:    reportCache,
		CacheTTL: cfg.Redis.TTL,
	}
	idemSvc := &services.IdempotencyService{DB: db, TTL: cfg.IdempotencyTTL}
	h := handlers.New(ingestSvc, reportSvc, idemSvc, func(ctx context.Context) error {
		return repo.Ping(ctx, db)
	})

	// 8) Idempotency validation (before rate limiting)
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{
			MaxLen: 200,
		},
		idemSvc.Exists,
	))

	// 9) Token-bucket rate limiter per IP and route
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByIPAndRoute())
	r.Use(rl.Handler())

	// 10) CORS posture: allowlist only (defaults to the two local front-end origins)
	origins := cfg.CORS.AllowedOrigins
	if len(origins) == 0 {
		origins = config.DefaultCORSOrigins
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderIdempotencyKey},
		ExposeHeaders:    []string{"X-Request-ID", "Content-Length", "Idempotency-Replayed"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:        cfg.Security.EnableHSTS,
		HSTSMaxAge:        cfg.Security.HSTSMaxAge,
		NoStorePrefixes:   []string{cfg.APIBasePath},
		EnablePolicy:      true,
		CSPExemptPrefixes: []string{"/swagger"},
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/readiness
	r.GET("/health", h.Health)
	r.GET("/readyz", h.Readyz)

	// API docs
	apiBase := cfg.APIBasePath // e.g. "/api"
	if cfg.SwaggerEnabled {
		docs.SwaggerInfo.BasePath = apiBase
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Public API
	api := groupWithPrefix(r, apiBase)
	{
		api.GET("/done", h.Done)
		api.POST("/store", h.StoreBatch)
		api.GET("/data", h.TopSpenders)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
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
