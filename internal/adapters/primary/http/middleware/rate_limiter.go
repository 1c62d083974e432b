package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	apperrors "github.com/voltlog/telemetry-backend/internal/core/errors"
)

// RateLimiter applies a per-IP token bucket. The router mounts one general
// instance and a stricter one on the websocket handshake, where each
// admitted request pins a long-lived connection.
type RateLimiter struct {
	buckets map[string]*clientBucket
	mu      sync.Mutex
	rate    rate.Limit
	burst   int
}

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiterConfig holds rate limiter configuration.
type RateLimiterConfig struct {
	RequestsPerSecond float64
	BurstSize         int
	CleanupInterval   time.Duration // how often idle buckets are evicted
	TTL               time.Duration // idle time before a bucket is evicted
}

// NewRateLimiter creates a rate limiter and starts its eviction loop.
func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	rl := &RateLimiter{
		buckets: make(map[string]*clientBucket),
		rate:    rate.Limit(cfg.RequestsPerSecond),
		burst:   cfg.BurstSize,
	}

	go rl.evictIdle(cfg.CleanupInterval, cfg.TTL)

	return rl
}

// Allow reports whether a request from ip fits its bucket.
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[ip]
	if !ok {
		b = &clientBucket{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.buckets[ip] = b
	}
	b.lastSeen = time.Now()
	return b.limiter.Allow()
}

// evictIdle drops buckets for IPs that have gone quiet, bounding memory on
// churning clients.
func (rl *RateLimiter) evictIdle(interval, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		for ip, b := range rl.buckets {
			if time.Since(b.lastSeen) > ttl {
				delete(rl.buckets, ip)
			}
		}
		rl.mu.Unlock()
	}
}

// Middleware rejects over-limit requests with the relay's error taxonomy.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(getClientIP(r)) {
			w.Header().Set("Retry-After", "1")
			writeAppError(w, apperrors.NewRateLimitError())
			return
		}

		next.ServeHTTP(w, r)
	})
}

// getClientIP resolves the client address, preferring the reverse-proxy
// headers over RemoteAddr.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ip, _, err := net.SplitHostPort(xff); err == nil {
			return ip
		}
		return xff
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
