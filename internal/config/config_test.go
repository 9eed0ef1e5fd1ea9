package config

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"
)

// sqliteEnv pins a config that validates cleanly, isolated from any
// DATABASE_URL exported by the developer shell.
func sqliteEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "")
	t.Setenv("SUPABASE_DB_URL", "")
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("PORT", "")
}

func TestLoad_Defaults(t *testing.T) {
	sqliteEnv(t)
	t.Setenv("DB_DRIVER", "sqlite3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	checks := []struct {
		name      string
		got, want any
	}{
		{"port", cfg.Port, "8080"},
		{"gin mode", cfg.GinMode, "release"},
		{"log level", cfg.LogLevel, "info"},
		{"base path", cfg.APIBasePath, "/api"},
		{"driver", cfg.DB.Driver, "sqlite"},
		{"db path", cfg.DB.Path, "app.db"},
		{"max open conns", cfg.DB.MaxOpenConns, 10},
		{"dedup by order number", cfg.Ingest.DedupIncludeOrderNumber, false},
		{"order createdAt from order", cfg.Ingest.OrderCreatedAtFromOrder, false},
		{"max batch", cfg.Ingest.MaxBatchSize, 5000},
		{"max body", cfg.Ingest.MaxBodyBytes, int64(4 << 20)},
		{"rps", cfg.RateRPS, 5.0},
		{"burst", cfg.RateBurst, 10},
		{"cors", cfg.CORS.AllowedOrigins, DefaultCORSOrigins},
		{"hsts", cfg.Security.EnableHSTS, false},
		{"idempotency ttl", cfg.IdempotencyTTL, 24 * time.Hour},
		{"idempotency sweep", cfg.IdempotencySweepEvery, time.Hour},
		{"redis addr", cfg.Redis.Addr, ""},
		{"report ttl", cfg.Redis.TTL, 30 * time.Second},
		{"otel", cfg.OTEL.Enabled, false},
		{"otel service", cfg.OTEL.ServiceName, "go-orders-backend"},
	}
	for _, c := range checks {
		if !reflect.DeepEqual(c.got, c.want) {
			t.Errorf("%s = %#v; want %#v", c.name, c.got, c.want)
		}
	}
}

func TestLoad_OverridesAndAliases(t *testing.T) {
	sqliteEnv(t)
	env := map[string]string{
		"PORT":                        "8088",
		"READ_TIMEOUT":                "2s",
		"WRITE_TIMEOUT":               "3s",
		"SHUTDOWN_TIMEOUT":            "5s",
		"MAX_HEADER_BYTES":            "8192",
		"GIN_MODE":                    "weird",
		"LOG_LEVEL":                   "WARNING",
		"LOG_PRETTY":                  "yes",
		"SWAGGER_ENABLED":             "on",
		"API_BASE_PATH":               "v1/orders/",
		"DB_DRIVER":                   "PostgreSQL",
		"SUPABASE_DB_URL":             "postgres://u:p@db:5432/app",
		"DB_MAX_OPEN_CONNS":           "4",
		"DEDUP_INCLUDE_ORDER_NUMBER":  "true",
		"ORDER_CREATED_AT_FROM_ORDER": "on",
		"MAX_BATCH_SIZE":              "100",
		"MAX_BODY_BYTES":              "2048",
		"RATE_RPS":                    "x",
		"RATE_BURST":                  "nope",
		"CORS_ALLOWED_ORIGINS":        " https://a.com , , http://b ",
		"ENABLE_HSTS":                 "TRUE",
		"HSTS_MAX_AGE":                "24h",
		"IDEMPOTENCY_TTL":             "48h",
		"REDIS_ADDR":                  "redis:6379",
		"REDIS_DB":                    "2",
		"REPORT_CACHE_TTL":            "1m",
		"OTEL_ENABLED":                "1",
		"OTEL_EXPORTER_OTLP_ENDPOINT": "otel:4317",
		"OTEL_EXPORTER_OTLP_INSECURE": "0",
		"OTEL_SERVICE_NAME":           "svc",
		"OTEL_TRACES_SAMPLER_ARG":     "0.75",
	}
	for k, v := range env {
		t.Setenv(k, v)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	checks := []struct {
		name      string
		got, want any
	}{
		{"port", cfg.Port, "8088"},
		{"read timeout", cfg.ReadTimeout, 2 * time.Second},
		{"write timeout", cfg.WriteTimeout, 3 * time.Second},
		{"shutdown timeout", cfg.ShutdownTimeout, 5 * time.Second},
		{"max header", cfg.MaxHeaderBytes, 8192},
		{"unknown gin mode", cfg.GinMode, "release"},
		{"warning alias", cfg.LogLevel, "warn"},
		{"pretty", cfg.LogPretty, true},
		{"swagger", cfg.SwaggerEnabled, true},
		{"base path", cfg.APIBasePath, "/v1/orders"},
		{"driver alias", cfg.DB.Driver, "postgres"},
		{"supabase url fallback", cfg.DB.URL, "postgres://u:p@db:5432/app"},
		{"max open conns", cfg.DB.MaxOpenConns, 4},
		{"dedup by order number", cfg.Ingest.DedupIncludeOrderNumber, true},
		{"order createdAt from order", cfg.Ingest.OrderCreatedAtFromOrder, true},
		{"max batch", cfg.Ingest.MaxBatchSize, 100},
		{"max body", cfg.Ingest.MaxBodyBytes, int64(2048)},
		{"bad rps keeps default", cfg.RateRPS, 5.0},
		{"bad burst keeps default", cfg.RateBurst, 10},
		{"cors", cfg.CORS.AllowedOrigins, []string{"https://a.com", "http://b"}},
		{"hsts", cfg.Security.EnableHSTS, true},
		{"hsts max age", cfg.Security.HSTSMaxAge, 24 * time.Hour},
		{"idempotency ttl", cfg.IdempotencyTTL, 48 * time.Hour},
		{"redis addr", cfg.Redis.Addr, "redis:6379"},
		{"redis db", cfg.Redis.DB, 2},
		{"report ttl", cfg.Redis.TTL, time.Minute},
		{"otel", cfg.OTEL.Enabled, true},
		{"otel endpoint", cfg.OTEL.Endpoint, "otel:4317"},
		{"otel insecure", cfg.OTEL.Insecure, false},
		{"otel service", cfg.OTEL.ServiceName, "svc"},
		{"otel ratio", cfg.OTEL.SampleRatio, 0.75},
	}
	for _, c := range checks {
		if !reflect.DeepEqual(c.got, c.want) {
			t.Errorf("%s = %#v; want %#v", c.name, c.got, c.want)
		}
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"log level", map[string]string{"LOG_LEVEL": "verbose"}, "LOG_LEVEL"},
		{"blank port", map[string]string{"PORT": "   "}, "PORT must not be empty"},
		{"zero timeout", map[string]string{"READ_TIMEOUT": "0s"}, "timeouts must be positive"},
		{"negative idle timeout", map[string]string{"IDLE_TIMEOUT": "-1s"}, "timeouts must be positive"},
		{"max header bytes", map[string]string{"MAX_HEADER_BYTES": "0"}, "MAX_HEADER_BYTES"},
		{"postgres without url", map[string]string{"DB_DRIVER": "postgres"}, "DATABASE_URL"},
		{"blank sqlite path", map[string]string{"DB_PATH": "   "}, "DB_PATH must not be empty"},
		{"unknown driver", map[string]string{"DB_DRIVER": "oracle"}, "DB_DRIVER"},
		{"max open conns", map[string]string{"DB_MAX_OPEN_CONNS": "0"}, "DB_MAX_OPEN_CONNS"},
		{"negative batch", map[string]string{"MAX_BATCH_SIZE": "-1"}, "MAX_BATCH_SIZE"},
		{"zero body cap", map[string]string{"MAX_BODY_BYTES": "0"}, "MAX_BODY_BYTES"},
		{"negative rps", map[string]string{"RATE_RPS": "-1"}, "RATE_RPS"},
		{"zero burst", map[string]string{"RATE_BURST": "0"}, "RATE_BURST"},
		{"negative hsts", map[string]string{"HSTS_MAX_AGE": "-1s"}, "HSTS_MAX_AGE"},
		{"zero idempotency ttl", map[string]string{"IDEMPOTENCY_TTL": "0s"}, "IDEMPOTENCY_TTL"},
		{"negative sweep interval", map[string]string{"IDEMPOTENCY_SWEEP_INTERVAL": "-1m"}, "IDEMPOTENCY_SWEEP_INTERVAL"},
		{"zero cache ttl with redis", map[string]string{"REDIS_ADDR": "localhost:6379", "REPORT_CACHE_TTL": "0s"}, "REPORT_CACHE_TTL"},
		{"sample ratio", map[string]string{"OTEL_TRACES_SAMPLER_ARG": "1.5"}, "OTEL_TRACES_SAMPLER_ARG"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sqliteEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("Load error = %v; want it to mention %q", err, tc.want)
			}
		})
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	sqliteEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cfg.RateBurst = 0
	cfg.IdempotencyTTL = 0
	err = cfg.Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	var joined interface{ Unwrap() []error }
	if !errors.As(err, &joined) || len(joined.Unwrap()) != 2 {
		t.Fatalf("expected two joined errors, got %v", err)
	}
}

func TestMustLoad(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		sqliteEnv(t)
		if cfg := MustLoad(); cfg.APIBasePath != "/api" {
			t.Fatalf("unexpected config from MustLoad: %+v", cfg)
		}
	})
	t.Run("invalid panics", func(t *testing.T) {
		sqliteEnv(t)
		t.Setenv("LOG_LEVEL", "verbose")
		defer func() {
			if recover() == nil {
				t.Fatalf("MustLoad should panic on invalid config")
			}
		}()
		_ = MustLoad()
	})
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("X_EMPTY", "")
	t.Setenv("X_STR", "val")
	t.Setenv("X_FLOAT", " 3.14 ")
	t.Setenv("X_INT", "42")
	t.Setenv("X_DUR", "150ms")
	t.Setenv("X_BAD", "nope")

	if getenv("X_EMPTY", "d") != "d" || getenv("X_UNSET_FOR_TEST", "d") != "d" || getenv("X_STR", "d") != "val" {
		t.Errorf("getenv fallback or read broken")
	}
	if getfloat("X_FLOAT", 0) != 3.14 || getfloat("X_BAD", 1.5) != 1.5 {
		t.Errorf("getfloat parse or fallback broken")
	}
	if getint("X_INT", 0) != 42 || getint("X_BAD", 7) != 7 || getint("X_EMPTY", 9) != 9 {
		t.Errorf("getint parse or fallback broken")
	}
	if getdur("X_DUR", 0) != 150*time.Millisecond || getdur("X_BAD", time.Second) != time.Second {
		t.Errorf("getdur parse or fallback broken")
	}
}

func TestGetbool(t *testing.T) {
	for _, v := range []string{"1", "true", "TRUE", " yes ", "Y", "on", "On"} {
		t.Setenv("B_VAL", v)
		if !getbool("B_VAL", false) {
			t.Errorf("getbool(%q) = false; want true", v)
		}
	}
	for _, v := range []string{"0", "false", "FALSE", " no ", "N", "off", "Off"} {
		t.Setenv("B_VAL", v)
		if getbool("B_VAL", true) {
			t.Errorf("getbool(%q) = true; want false", v)
		}
	}
	for _, v := range []string{"", "maybe"} {
		t.Setenv("B_VAL", v)
		if !getbool("B_VAL", true) || getbool("B_VAL", false) {
			t.Errorf("getbool(%q) should keep the default", v)
		}
	}
}

func TestSplitCSV(t *testing.T) {
	if out := splitCSV(""); out != nil {
		t.Fatalf("splitCSV(\"\") = %#v; want nil", out)
	}
	if out := splitCSV(" , ,"); out != nil {
		t.Fatalf("splitCSV of blanks = %#v; want nil", out)
	}
	want := []string{"a", "b", "c"}
	if got := splitCSV(" a, ,b ,  c  ,"); !reflect.DeepEqual(got, want) {
		t.Fatalf("splitCSV = %#v; want %#v", got, want)
	}
}

func TestNormalizeBasePath(t *testing.T) {
	cases := map[string]string{
		"":        "/",
		" / ":     "/",
		"api":     "/api",
		"/api/":   "/api",
		"//api//": "/api",
		"v1/x":    "/v1/x",
	}
	for in, want := range cases {
		if got := normalizeBasePath(in); got != want {
			t.Errorf("normalizeBasePath(%q) = %q; want %q", in, got, want)
		}
	}
}
