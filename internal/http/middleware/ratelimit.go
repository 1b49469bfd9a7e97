package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/medibook/medibook-platform/internal/identity"
)

// RateLimiter throttles traffic per caller with a token bucket. It sits
// behind IdentityJWT, so authenticated callers are keyed by their identity
// id rather than source address. A patient hammering the booking or order
// endpoints cannot gain headroom by rotating IPs, and two patients behind
// the same NAT do not share a bucket.
type RateLimiter struct {
	mu      sync.Mutex
	callers map[string]*tokenBucket
	rate    float64
	burst   float64
}

type tokenBucket struct {
	tokens float64
	seen   time.Time
}

// NewRateLimiter allows rate requests/sec with the given burst per caller.
func NewRateLimiter(rate float64, burst int) *RateLimiter {
	rl := &RateLimiter{
		callers: make(map[string]*tokenBucket),
		rate:    rate,
		burst:   float64(burst),
	}
	go rl.evictIdle()
	return rl
}

// Allow reports whether the caller identified by key may proceed, and
// consumes a token when it may.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	b, ok := rl.callers[key]
	if !ok {
		rl.callers[key] = &tokenBucket{tokens: rl.burst - 1, seen: now}
		return true
	}

	refilled := b.tokens + now.Sub(b.seen).Seconds()*rl.rate
	if refilled > rl.burst {
		refilled = rl.burst
	}
	b.seen = now
	if refilled < 1 {
		b.tokens = refilled
		return false
	}
	b.tokens = refilled - 1
	return true
}

// evictIdle drops buckets idle long enough to have fully refilled, keeping
// the caller map from growing without bound.
func (rl *RateLimiter) evictIdle() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-10 * time.Minute)
		rl.mu.Lock()
		for key, b := range rl.callers {
			if b.seen.Before(cutoff) {
				delete(rl.callers, key)
			}
		}
		rl.mu.Unlock()
	}
}

// callerKey prefers the authenticated identity and falls back to the
// client address so the limiter still covers unauthenticated traffic.
func callerKey(r *http.Request) string {
	if userID, ok := identity.UserIDFromContext(r.Context()); ok {
		return "user:" + userID
	}
	if xri := r.Header.Get("X-Real-Ip"); xri != "" {
		return "ip:" + xri
	}
	return "ip:" + r.RemoteAddr
}

// RateLimit rejects callers exceeding the configured rate with 429.
func RateLimit(rate float64, burst int) func(http.Handler) http.Handler {
	limiter := NewRateLimiter(rate, burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(callerKey(r)) {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
