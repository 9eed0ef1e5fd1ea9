package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestRedactor_String(t *testing.T) {
	red := NewRedactor()
	cases := []struct {
		in, want string
	}{
		{"", ""},
		{"phone=212-555-1212", "phone=[REDACTED:phone]"},
		{"mail=jane.doe@example.com", "mail=[REDACTED:email]"},
		{"id=7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab", "id=[REDACTED:id]"},
		{"limit=3", "limit=3"},
	}
	for _, tc := range cases {
		if got := red.String(tc.in); got != tc.want {
			t.Fatalf("String(%q) = %q; want %q", tc.in, got, tc.want)
		}
	}
}

func TestRedactor_Headers(t *testing.T) {
	red := NewRedactor(" X-Api-Key ", "")
	h := http.Header{}
	h.Set("Authorization", "Bearer secret")
	h.Set("Cookie", "sid=1")
	h.Set("X-API-Key", "k-123")
	h.Set("X-Caller", "ops@example.com")
	h.Set("Accept", "application/json")

	got := red.Headers(h)
	for _, k := range []string{"Authorization", "Cookie", "X-Api-Key"} {
		if got[k] != "[REDACTED]" {
			t.Fatalf("%s = %q; want masked", k, got[k])
		}
	}
	if got["X-Caller"] != "[REDACTED:email]" {
		t.Fatalf("X-Caller = %q", got["X-Caller"])
	}
	if got["Accept"] != "application/json" {
		t.Fatalf("Accept = %q", got["Accept"])
	}
}

func TestRedactingLogger_AccessLineLevelsAndScrubbing(t *testing.T) {
	buf := captureLogger(t)
	r := newTestEngine(RequestID(), RedactingLogger(RedactOptions{MaskHeaders: []string{"X-Api-Key"}}))
	r.GET("/api/data", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.POST("/api/store", func(c *gin.Context) { c.String(http.StatusBadRequest, "bad") })
	r.GET("/api/fail", func(c *gin.Context) { c.String(http.StatusInternalServerError, "boom") })

	req := httptest.NewRequest(http.MethodGet, "/api/data?phone=212-555-1212", nil)
	req.Header.Set("X-Api-Key", "secret")
	req.Header.Set(requestIDHeader, "rid-1")
	r.ServeHTTP(httptest.NewRecorder(), req)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/store", strings.NewReader("[]")))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/fail", nil))

	raw := buf.String()
	if strings.Contains(raw, "212-555-1212") || strings.Contains(raw, "secret") {
		t.Fatalf("sensitive values leaked into logs: %s", raw)
	}

	lines := logLines(t, buf)
	if len(lines) != 3 {
		t.Fatalf("expected 3 access lines, got %d: %s", len(lines), raw)
	}
	first := lines[0]
	if first["level"] != "info" || first["message"] != "http_request" || first["request_id"] != "rid-1" ||
		first["path"] != "/api/data" || first["query"] != "phone=[REDACTED:phone]" {
		t.Fatalf("unexpected first line: %v", first)
	}
	if hdrs, _ := first["headers"].(map[string]any); hdrs["X-Api-Key"] != "[REDACTED]" {
		t.Fatalf("header not masked: %v", first["headers"])
	}
	if lines[1]["level"] != "warn" || lines[1]["bytes_in"] != float64(2) {
		t.Fatalf("unexpected 4xx line: %v", lines[1])
	}
	if lines[2]["level"] != "error" {
		t.Fatalf("unexpected 5xx line: %v", lines[2])
	}
}

func TestRedactingLogger_SkipPathsAndReplayFlag(t *testing.T) {
	buf := captureLogger(t)
	lookup := func(_ context.Context, _, _ string, _ time.Time) (bool, error) { return true, nil }
	r := newTestEngine(
		RequestID(),
		RedactingLogger(RedactOptions{SkipPaths: []string{"/metrics"}}),
		IdempotencyValidator(IdempotencyOptions{}, lookup),
	)
	r.GET("/metrics", func(c *gin.Context) { c.String(http.StatusOK, "m") })
	r.POST("/api/store", func(c *gin.Context) { c.String(http.StatusOK, "replayed") })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if buf.Len() != 0 {
		t.Fatalf("skipped path was logged: %s", buf.String())
	}

	req := httptest.NewRequest(http.MethodPost, "/api/store", nil)
	req.Header.Set(HeaderIdempotencyKey, "k1")
	r.ServeHTTP(httptest.NewRecorder(), req)

	lines := logLines(t, buf)
	if len(lines) != 1 || lines[0]["idempotency_replay"] != true {
		t.Fatalf("expected replay flag in access line: %v", lines)
	}
}

func TestRedactingLogger_UnmatchedRouteUsesRawPath(t *testing.T) {
	buf := captureLogger(t)
	r := newTestEngine(RequestID(), RedactingLogger(RedactOptions{}))

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope", nil))

	lines := logLines(t, buf)
	if len(lines) != 1 || lines[0]["path"] != "/nope" || lines[0]["status"] != float64(http.StatusNotFound) {
		t.Fatalf("unexpected line: %v", lines)
	}
}
