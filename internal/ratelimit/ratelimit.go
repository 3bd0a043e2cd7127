// Package ratelimit provides Redis-backed rate limiting for the HTTP
// service's auth and read endpoints. When Redis is unavailable (nil
// Store), every check degrades to a no-op — requests pass. This keeps
// the service usable in dev/test environments without Redis.
package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Store is the minimal interface required for rate limiting. In
// production this is implemented by go-redis (see redis_store.go); in
// tests by an in-memory map.
type Store interface {
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	TTL(ctx context.Context, key string) (time.Duration, error)
	Del(ctx context.Context, keys ...string) error
}

// Limiter performs rate limit checks against a Store.
type Limiter struct {
	store Store
}

// New creates a Limiter backed by store. A nil store makes every check
// a no-op that always allows the request.
func New(store Store) *Limiter {
	return &Limiter{store: store}
}

// CheckLogin enforces a per-IP login attempt ceiling ahead of the
// account-level lockout tracked in internal/store.AdminAuth: that one
// blocks the single admin account once its own failure counter trips;
// this one throttles a source IP hammering the endpoint regardless of
// what credentials it sends.
func (l *Limiter) CheckLogin(ctx context.Context, ip string, cfg RateLimitConfig) (allowed bool, retryAfterSecs int) {
	return l.check(ctx, fmt.Sprintf("rl:login:%s", ip), cfg.AuthRate, int(cfg.AuthWindow.Seconds()))
}

// ResetLoginIP clears the IP-based login counter on a successful login.
func (l *Limiter) ResetLoginIP(ctx context.Context, ip string) {
	if l.store == nil {
		return
	}
	l.store.Del(ctx, fmt.Sprintf("rl:login:%s", ip))
}

// CheckAPI enforces the general catalog-read rate limit for key
// (typically client IP).
func (l *Limiter) CheckAPI(ctx context.Context, key string, cfg RateLimitConfig) (bool, int) {
	return l.check(ctx, fmt.Sprintf("rl:api:%s", key), cfg.APIRate, int(cfg.APIWindow.Seconds()))
}

// CheckStream enforces the media-streaming rate limit for key.
func (l *Limiter) CheckStream(ctx context.Context, key string, cfg RateLimitConfig) (bool, int) {
	return l.check(ctx, fmt.Sprintf("rl:stream:%s", key), cfg.StreamRate, int(cfg.StreamWindow.Seconds()))
}

// ClientIP extracts the real client IP from a request, handling
// reverse proxy headers.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	addr := r.RemoteAddr
	if i := strings.LastIndex(addr, ":"); i > 0 {
		return addr[:i]
	}
	return addr
}

// check is the generic increment-and-check against a Redis key.
// Returns (allowed, retryAfterSecs). A nil store always allows.
func (l *Limiter) check(ctx context.Context, key string, max int, ttlSecs int) (bool, int) {
	if l.store == nil {
		return true, 0
	}

	count, err := l.store.Incr(ctx, key)
	if err != nil {
		return true, 0
	}
	if count == 1 {
		l.store.Expire(ctx, key, time.Duration(ttlSecs)*time.Second)
	}
	if count > int64(max) {
		ttl, _ := l.store.TTL(ctx, key)
		retry := int(ttl.Seconds())
		if retry < 1 {
			retry = ttlSecs
		}
		return false, retry
	}
	return true, 0
}

// RateLimitConfig holds the per-endpoint-class rate limit settings
// applied by the HTTP middleware layer.
type RateLimitConfig struct {
	AuthRate     int
	AuthWindow   time.Duration
	APIRate      int
	APIWindow    time.Duration
	StreamRate   int
	StreamWindow time.Duration
}

// DefaultRateLimits returns the production rate limit configuration:
// auth 10/min, catalog API 60/min, media streaming 300/min.
func DefaultRateLimits() RateLimitConfig {
	return RateLimitConfig{
		AuthRate:     10,
		AuthWindow:   time.Minute,
		APIRate:      60,
		APIWindow:    time.Minute,
		StreamRate:   300,
		StreamWindow: time.Minute,
	}
}
