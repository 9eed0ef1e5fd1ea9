package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_CountersRouteLabelsAndInflight(t *testing.T) {
	r := newTestEngine(Metrics())
	r.POST("/api/store", func(c *gin.Context) { c.String(http.StatusOK, "stored") })
	r.GET("/api/done", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	baseStore := testutil.ToFloat64(httpReqs.WithLabelValues("POST", "/api/store", "200"))
	baseUnmatched := testutil.ToFloat64(httpReqs.WithLabelValues("GET", unmatchedRoute, "404"))
	baseDone := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/api/done", "204"))

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/store", strings.NewReader(`[{"userData":{}}]`)))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/random/path/1", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/random/path/2", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/done", nil))

	if got := testutil.ToFloat64(httpReqs.WithLabelValues("POST", "/api/store", "200")); got != baseStore+1 {
		t.Fatalf("store counter = %v; want %v", got, baseStore+1)
	}
	// Both requests share one series.
	if got := testutil.ToFloat64(httpReqs.WithLabelValues("GET", unmatchedRoute, "404")); got != baseUnmatched+2 {
		t.Fatalf("unmatched counter = %v; want %v", got, baseUnmatched+2)
	}
	if got := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/api/done", "204")); got != baseDone+1 {
		t.Fatalf("done counter = %v; want %v", got, baseDone+1)
	}
	if inFlight := testutil.ToFloat64(httpInflight); inFlight != 0 {
		t.Fatalf("httpInflight = %v; want 0", inFlight)
	}

	// Request size observed for the upload only.
	if n := testutil.CollectAndCount(httpReqSize); n < 1 {
		t.Fatalf("expected request size series, got %d", n)
	}
}

func TestRouteLabel(t *testing.T) {
	r := newTestEngine()
	r.GET("/items/:id", func(c *gin.Context) { c.String(http.StatusOK, routeLabel(c)) })
	r.NoRoute(func(c *gin.Context) { c.String(http.StatusNotFound, routeLabel(c)) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items/42", nil))
	if w.Body.String() != "/items/:id" {
		t.Fatalf("matched label = %q", w.Body.String())
	}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if w.Body.String() != unmatchedRoute {
		t.Fatalf("unmatched label = %q", w.Body.String())
	}
}
