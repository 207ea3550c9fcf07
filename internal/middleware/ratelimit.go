package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/pulsedesk/pulsedesk/internal/errors"
	"github.com/pulsedesk/pulsedesk/pkg/logger"
)

const (
	// maxTrackedCallers caps the limiter map; beyond it, idle callers are
	// evicted before a new one is tracked.
	maxTrackedCallers  = 4096
	callerIdleEviction = 3 * time.Minute
)

type callerLimiter struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// RateLimiter applies per-caller request limits, keyed by user ID when
// authenticated and remote host otherwise. Run it inside the auth middleware
// so the user ID is already on the context.
type RateLimiter struct {
	limiters map[string]*callerLimiter
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
	log      *logger.Logger
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(requestsPerSecond, burst int, log *logger.Logger) *RateLimiter {
	if log == nil {
		log = logger.NewDefault("ratelimit")
	}
	if requestsPerSecond <= 0 {
		requestsPerSecond = 20
	}
	if burst <= 0 {
		burst = requestsPerSecond * 2
	}
	return &RateLimiter{
		limiters: make(map[string]*callerLimiter),
		rate:     rate.Limit(requestsPerSecond),
		burst:    burst,
		log:      log,
	}
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if c, ok := rl.limiters[key]; ok {
		c.lastSeen = now
		return c.lim
	}
	if len(rl.limiters) >= maxTrackedCallers {
		rl.evictStale(now)
	}
	c := &callerLimiter{lim: rate.NewLimiter(rl.rate, rl.burst), lastSeen: now}
	rl.limiters[key] = c
	return c.lim
}

// evictStale drops callers not seen within the eviction window. Caller holds
// the mutex.
func (rl *RateLimiter) evictStale(now time.Time) {
	for k, c := range rl.limiters {
		if now.Sub(c.lastSeen) > callerIdleEviction {
			delete(rl.limiters, k)
		}
	}
}

// callerKey identifies the caller: authenticated user ID, or the remote host
// with the ephemeral port stripped so one client shares one budget.
func callerKey(r *http.Request) string {
	if id := GetUserID(r.Context()); id != "" {
		return id
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// Handler returns the rate limiting middleware handler.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := callerKey(r)

		if !rl.getLimiter(key).Allow() {
			rl.log.WithField("key", key).
				WithField("path", r.URL.Path).
				Warn("rate limit exceeded")
			se := errors.RateLimited()
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(se.HTTPStatus)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"error": se.Message,
				"code":  se.Code,
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}
