package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"sitewise-backend/metrics"
	"sitewise-backend/utils"
)

type rateWindow struct {
	start time.Time
	count int
}

// RateLimiter is a fixed-window limiter keyed by client IP. State lives in
// process memory only: it resets on restart and is not shared between
// instances.
type RateLimiter struct {
	mu        sync.Mutex
	route     string
	max       int
	window    time.Duration
	now       func() time.Time
	windows   map[string]*rateWindow
	lastSweep time.Time
}

func NewRateLimiter(route string, max int, window time.Duration, now func() time.Time) *RateLimiter {
	if now == nil {
		now = time.Now
	}

	return &RateLimiter{
		route:   route,
		max:     max,
		window:  window,
		now:     now,
		windows: make(map[string]*rateWindow),
	}
}

// Allow records a request for key. When the window is exhausted it reports
// how long until the window resets.
func (l *RateLimiter) Allow(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	current, ok := l.windows[key]
	if !ok || now.Sub(current.start) >= l.window {
		l.windows[key] = &rateWindow{start: now, count: 1}
		return true, 0
	}

	if current.count >= l.max {
		return false, current.start.Add(l.window).Sub(now)
	}

	current.count++
	return true, 0
}

// sweep drops expired windows at most once per window length.
func (l *RateLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.window {
		return
	}

	for key, w := range l.windows {
		if now.Sub(w.start) >= l.window {
			delete(l.windows, key)
		}
	}
	l.lastSweep = now
}

func (l *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, retryAfter := l.Allow(clientIP(r))
		if !allowed {
			metrics.RateLimitedCounter.WithLabelValues(l.route).Inc()
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
			errMsg := "Too many requests, try again later"
			utils.HandleError(utils.ErrTooManyRequests, nil, w, r, &errMsg)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientIP keys on RemoteAddr. Behind a trusted proxy chi's RealIP has
// already rewritten it from the forwarding headers.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
