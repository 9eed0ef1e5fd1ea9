// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements an in-process token-bucket rate limiter with one
// bucket per key (client IP and route by default). Idle buckets are evicted
// opportunistically so memory stays bounded under scanning traffic.
//
// The limiter is process-local: with several replicas each one enforces its
// own budget.
package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// KeyFunc maps a request to the identity of its bucket.
type KeyFunc func(*gin.Context) string

// KeyByIP buckets requests by client IP ("ip:203.0.113.7").
func KeyByIP() KeyFunc {
	return func(c *gin.Context) string {
		return "ip:" + c.ClientIP()
	}
}

// KeyByIPAndRoute buckets by client IP and registered route so that a burst
// of batch uploads does not starve reads from the same client.
func KeyByIPAndRoute() KeyFunc {
	return func(c *gin.Context) string {
		return "ip:" + c.ClientIP() + "|" + c.Request.Method + " " + routeLabel(c)
	}
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

const (
	defaultVisitorTTL = 10 * time.Minute
	gcEvery           = 5000 // lookups between eviction sweeps
)

// RateLimiter is a per-key token-bucket limiter. Safe for concurrent use.
type RateLimiter struct {
	rps   rate.Limit
	burst int
	keyFn KeyFunc
	ttl   time.Duration
	now   func() time.Time

	mu       sync.Mutex
	visitors map[string]*visitor
	lookups  int
}

// NewRateLimiter returns a limiter refilling rps tokens per second into
// buckets of size burst (coerced to at least 1). A nil keyFn means KeyByIP.
func NewRateLimiter(rps float64, burst int, keyFn KeyFunc) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	if keyFn == nil {
		keyFn = KeyByIP()
	}
	return &RateLimiter{
		rps:      rate.Limit(rps),
		burst:    burst,
		keyFn:    keyFn,
		ttl:      defaultVisitorTTL,
		now:      time.Now,
		visitors: make(map[string]*visitor),
	}
}

// limiter returns the bucket for key, creating it on first use. Every gcEvery
// lookups, buckets idle for at least ttl are dropped first, so a stale bucket
// is evicted even when it is the one being fetched.
func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.lookups++
	if rl.lookups >= gcEvery {
		for k, v := range rl.visitors {
			if now.Sub(v.lastSeen) >= rl.ttl {
				delete(rl.visitors, k)
			}
		}
		rl.lookups = 0
	}

	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter
}

// size reports the number of live buckets.
func (rl *RateLimiter) size() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.visitors)
}

// IsRateBypass reports whether IdempotencyValidator exempted this request
// (it replays a stored response).
func IsRateBypass(c *gin.Context) bool {
	return c.GetBool(ctxKeyRateBypass)
}

// Handler enforces the limit. Rejected requests get 429 rate_limited with a
// Retry-After (whole seconds, at least 1) derived from the bucket's refill.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			c.Next()
			return
		}

		lim := rl.limiter(rl.keyFn(c))
		if lim.Allow() {
			c.Next()
			return
		}

		c.Header("Retry-After", strconv.Itoa(retryAfterSeconds(rl.rps)))
		abort(c, http.StatusTooManyRequests, CodeRateLimited, "rate limit exceeded")
	}
}

// retryAfterSeconds is the time for one token to refill, rounded up.
func retryAfterSeconds(rps rate.Limit) int {
	if rps <= 0 || rps == rate.Inf {
		return 1
	}
	secs := math.Ceil(1 / float64(rps))
	if secs < 1 {
		return 1
	}
	if secs > 3600 {
		return 3600
	}
	return int(secs)
}
