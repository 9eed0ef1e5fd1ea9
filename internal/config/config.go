// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as server timeouts, logging, database connection, ingestion limits,
// rate limiting, caching, and observability.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/tbourn/go-orders-backend/internal/sysutil"
)

// DefaultCORSOrigins are the two front-end dev servers allowed when
// CORS_ALLOWED_ORIGINS is not set.
var DefaultCORSOrigins = []string{"http://localhost:3000", "http://localhost:5173"}

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// DBConfig selects the database driver and its connection parameters.
type DBConfig struct {
	Driver       string        // DB_DRIVER: postgres|sqlite
	URL          string        // DATABASE_URL (falls back to SUPABASE_DB_URL)
	Path         string        // DB_PATH, sqlite file
	MaxOpenConns int           // DB_MAX_OPEN_CONNS
	ConnMaxLife  time.Duration // DB_CONN_MAX_LIFETIME
}

// IngestConfig tunes the batch ingestion endpoint.
type IngestConfig struct {
	// DedupIncludeOrderNumber adds the order number to the in-batch dedup key.
	// Off by default so distinct orders for the same user/product collapse,
	// matching the behavior existing clients rely on.
	DedupIncludeOrderNumber bool
	// OrderCreatedAtFromOrder stamps orders with orders.createdAt instead of
	// the user's createdAt.
	OrderCreatedAtFromOrder bool
	MaxBatchSize            int   // records per request, 0 disables the cap
	MaxBodyBytes            int64 // request body cap for all routes
}

// RedisConfig configures the optional report cache. An empty Addr disables it.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	UseTLS   bool
	TTL      time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "go-orders-backend")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	ShutdownTimeout   time.Duration // graceful drain window
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// Storage
	DB DBConfig

	// Ingestion
	Ingest IngestConfig

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL        time.Duration // how long a given Idempotency-Key is valid
	IdempotencySweepEvery time.Duration // expired-key cleanup interval, 0 disables

	// Report cache
	Redis RedisConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 30*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout:   getdur("SHUTDOWN_TIMEOUT", 10*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api")),

		// Storage
		DB: DBConfig{
			Driver:       strings.ToLower(getenv("DB_DRIVER", "postgres")),
			URL:          getenv("DATABASE_URL", getenv("SUPABASE_DB_URL", "")),
			Path:         getenv("DB_PATH", "app.db"),
			MaxOpenConns: getint("DB_MAX_OPEN_CONNS", 10),
			ConnMaxLife:  getdur("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		},

		// Ingestion
		Ingest: IngestConfig{
			DedupIncludeOrderNumber: getbool("DEDUP_INCLUDE_ORDER_NUMBER", false),
			OrderCreatedAtFromOrder: getbool("ORDER_CREATED_AT_FROM_ORDER", false),
			MaxBatchSize:            getint("MAX_BATCH_SIZE", 5000),
			MaxBodyBytes:            int64(getint("MAX_BODY_BYTES", 4<<20)),
		},

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", strings.Join(DefaultCORSOrigins, ","))),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Idempotency
		IdempotencyTTL:        getdur("IDEMPOTENCY_TTL", 24*time.Hour),
		IdempotencySweepEvery: getdur("IDEMPOTENCY_SWEEP_INTERVAL", time.Hour),

		// Report cache
		Redis: RedisConfig{
			Addr:     getenv("REDIS_ADDR", ""),
			Password: getenv("REDIS_PASSWORD", ""),
			DB:       getint("REDIS_DB", 0),
			UseTLS:   getbool("REDIS_TLS", false),
			TTL:      getdur("REPORT_CACHE_TTL", 30*time.Second),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-orders-backend"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	cfg.normalize()
	return cfg, cfg.Validate()
}

// normalize folds accepted aliases into their canonical spelling.
func (c *Config) normalize() {
	if c.LogLevel == "warning" {
		c.LogLevel = "warn"
	}
	switch c.GinMode {
	case "debug", "release", "test":
	default:
		c.GinMode = "release"
	}
	switch c.DB.Driver {
	case "postgresql", "pg", "supabase":
		c.DB.Driver = "postgres"
	case "sqlite3":
		c.DB.Driver = "sqlite"
	}
}

// Validate reports every invalid setting at once, joined into a single error.
func (c Config) Validate() error {
	var errs []error
	check := func(bad bool, msg string) {
		if bad {
			errs = append(errs, errors.New(msg))
		}
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		check(true, "LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	check(strings.TrimSpace(c.Port) == "", "PORT must not be empty")
	check(minDuration(c.ReadTimeout, c.ReadHeaderTimeout, c.WriteTimeout, c.IdleTimeout, c.ShutdownTimeout) <= 0,
		"timeouts must be positive durations")
	check(c.MaxHeaderBytes <= 0, "MAX_HEADER_BYTES must be > 0")

	switch c.DB.Driver {
	case "postgres":
		check(strings.TrimSpace(c.DB.URL) == "", "DATABASE_URL must be set when DB_DRIVER=postgres")
	case "sqlite":
		check(strings.TrimSpace(c.DB.Path) == "", "DB_PATH must not be empty")
	default:
		check(true, "DB_DRIVER must be one of: postgres, sqlite")
	}
	check(c.DB.MaxOpenConns < 1, "DB_MAX_OPEN_CONNS must be >= 1")

	check(c.Ingest.MaxBatchSize < 0, "MAX_BATCH_SIZE must be >= 0")
	check(c.Ingest.MaxBodyBytes <= 0, "MAX_BODY_BYTES must be > 0")
	check(c.RateRPS < 0, "RATE_RPS must be >= 0")
	check(c.RateBurst < 1, "RATE_BURST must be >= 1")
	check(c.Security.HSTSMaxAge < 0, "HSTS_MAX_AGE must be >= 0")
	check(c.IdempotencyTTL <= 0, "IDEMPOTENCY_TTL must be > 0")
	check(c.IdempotencySweepEvery < 0, "IDEMPOTENCY_SWEEP_INTERVAL must be >= 0")
	check(c.Redis.Addr != "" && c.Redis.TTL <= 0, "REPORT_CACHE_TTL must be > 0 when REDIS_ADDR is set")
	check(c.OTEL.SampleRatio < 0 || c.OTEL.SampleRatio > 1, "OTEL_TRACES_SAMPLER_ARG must be in [0,1]")

	return errors.Join(errs...)
}

func minDuration(ds ...time.Duration) time.Duration {
	m := ds[0]
	for _, d := range ds[1:] {
		m = min(m, d)
	}
	return m
}

// ---- env helpers ----

// lookup parses the value of k, falling back to def when the variable is
// unset, empty, or unparsable.
func lookup[T any](k string, def T, parse func(string) (T, error)) T {
	v, ok := os.LookupEnv(k)
	if !ok || v == "" {
		return def
	}
	out, err := parse(strings.TrimSpace(v))
	if err != nil {
		return def
	}
	return out
}

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	return lookup(k, def, func(s string) (float64, error) { return strconv.ParseFloat(s, 64) })
}

func getint(k string, def int) int { return lookup(k, def, strconv.Atoi) }

func getdur(k string, def time.Duration) time.Duration { return lookup(k, def, time.ParseDuration) }

func getbool(k string, def bool) bool {
	return lookup(k, def, func(s string) (bool, error) {
		switch {
		case sysutil.IsTruthy(s):
			return true, nil
		case sysutil.IsFalsy(s):
			return false, nil
		}
		return false, fmt.Errorf("not a boolean: %q", s)
	})
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath returns p with exactly one leading '/' and no trailing '/'.
// An empty path is the root.
func normalizeBasePath(p string) string {
	return "/" + strings.Trim(strings.TrimSpace(p), "/")
}
