package main

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const limiterCleanupEvery = 5 * time.Minute

// rateLimiter keeps one token bucket per client address.
type rateLimiter struct {
	limiters sync.Map // map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
	window   time.Duration
	requests int
	trust    bool
	logger   *slog.Logger

	mu          sync.Mutex
	lastCleanup time.Time
}

// newRateLimiter allows requests per window, all of them available as a burst.
// trustProxy keys clients on forwarded headers instead of the peer address.
func newRateLimiter(requests int, window time.Duration, trustProxy bool, logger *slog.Logger) *rateLimiter {
	return &rateLimiter{
		rate:        rate.Limit(float64(requests) / window.Seconds()),
		burst:       requests,
		window:      window,
		requests:    requests,
		trust:       trustProxy,
		logger:      logger,
		lastCleanup: time.Now(),
	}
}

func (rl *rateLimiter) limiter(key string) *rate.Limiter {
	if l, ok := rl.limiters.Load(key); ok {
		return l.(*rate.Limiter)
	}
	actual, _ := rl.limiters.LoadOrStore(key, rate.NewLimiter(rl.rate, rl.burst))
	rl.maybeCleanup()
	return actual.(*rate.Limiter)
}

// maybeCleanup drops limiters whose bucket is full again.
func (rl *rateLimiter) maybeCleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if time.Since(rl.lastCleanup) < limiterCleanupEvery {
		return
	}
	rl.lastCleanup = time.Now()
	rl.limiters.Range(func(key, value any) bool {
		if value.(*rate.Limiter).Tokens() >= float64(rl.burst) {
			rl.limiters.Delete(key)
		}
		return true
	})
}

// wrap rejects requests over the limit with 429 and a Retry-After header.
// onLimit renders the rejection body.
func (rl *rateLimiter) wrap(next http.Handler, onLimit func(http.ResponseWriter, *http.Request)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientIP(r, rl.trust)
		l := rl.limiter(key)
		if !l.Allow() {
			reservation := l.Reserve()
			delay := reservation.Delay()
			reservation.Cancel()
			retryAfter := max(int(delay.Seconds()), 1)

			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.requests))
			w.Header().Set("X-RateLimit-Window", rl.window.String())
			rl.logger.Warn("rate limit exceeded", "key", key, "endpoint", r.URL.Path, "retry_after", retryAfter)
			onLimit(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP returns the peer address. Behind a trusted proxy it prefers the
// first X-Forwarded-For hop, then X-Real-IP.
func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if ip := forwardedIP(r); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func forwardedIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	return strings.TrimSpace(r.Header.Get("X-Real-IP"))
}
