// Package ratelimit throttles requests per client IP with one token bucket
// each.
package ratelimit

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// Limiter keeps one token bucket per client IP. A bucket that has refilled
// completely carries no state a fresh one would not, so the sweep drops it.
type Limiter struct {
	mu       sync.Mutex
	buckets  map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
	rejected atomic.Int64
	now      func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

type Config struct {
	RequestsPerSecond float64
	// Burst defaults to one second's worth of requests.
	Burst int
	// SweepInterval is how often full buckets are forgotten.
	SweepInterval time.Duration
}

// NewLimiter starts the sweep loop; call Stop to end it.
func NewLimiter(cfg Config) *Limiter {
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 20
	}
	if cfg.Burst <= 0 {
		cfg.Burst = max(1, int(math.Ceil(cfg.RequestsPerSecond)))
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 5 * time.Minute
	}
	l := &Limiter{
		buckets: make(map[string]*rate.Limiter),
		limit:   rate.Limit(cfg.RequestsPerSecond),
		burst:   cfg.Burst,
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go l.sweepEvery(cfg.SweepInterval)
	return l
}

// Allow takes one token from ip's bucket.
func (l *Limiter) Allow(ip string) bool {
	now := l.now()
	l.mu.Lock()
	b, ok := l.buckets[ip]
	if !ok {
		b = rate.NewLimiter(l.limit, l.burst)
		l.buckets[ip] = b
	}
	l.mu.Unlock()

	if b.AllowN(now, 1) {
		return true
	}
	l.rejected.Add(1)
	return false
}

// RetryAfter is the whole number of seconds until one token is back.
func (l *Limiter) RetryAfter() int {
	return max(1, int(math.Ceil(1/float64(l.limit))))
}

func (l *Limiter) sweepEvery(interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			l.sweep()
		case <-l.stop:
			return
		}
	}
}

func (l *Limiter) sweep() {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	for ip, b := range l.buckets {
		if b.TokensAt(now) >= float64(l.burst) {
			delete(l.buckets, ip)
		}
	}
}

// ActiveClients is the number of buckets currently tracked.
func (l *Limiter) ActiveClients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// Rejected counts requests turned away since start.
func (l *Limiter) Rejected() int64 {
	return l.rejected.Load()
}

// Stop ends the sweep loop; safe to call more than once.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

// Middleware rejects requests over the limit with a Retry-After header.
// onLimit, when set, writes the response body and status; otherwise a
// plain 429 is sent.
func (l *Limiter) Middleware(clientIP func(*http.Request) string, onLimit http.HandlerFunc) func(http.Handler) http.Handler {
	if onLimit == nil {
		onLimit = func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "Too many requests. Please slow down.", http.StatusTooManyRequests)
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if l.Allow(clientIP(r)) {
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("Retry-After", strconv.Itoa(l.RetryAfter()))
			onLimit(w, r)
		})
	}
}
