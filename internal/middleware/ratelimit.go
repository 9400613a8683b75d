package middleware

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/upay/backend/pkg/response"
)

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a per-IP token bucket limiter. Idle entries are evicted by
// Sweep, which callers run periodically.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*ipLimiter
	r        rate.Limit
	burst    int
	idle     time.Duration
}

// NewRateLimiter allows r requests/second per IP with bursts up to burst.
func NewRateLimiter(r rate.Limit, burst int) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*ipLimiter),
		r:        r,
		burst:    burst,
		idle:     10 * time.Minute,
	}
}

func (rl *RateLimiter) get(ip string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if v, ok := rl.limiters[ip]; ok {
		v.lastSeen = now
		return v.limiter
	}
	l := rate.NewLimiter(rl.r, rl.burst)
	rl.limiters[ip] = &ipLimiter{limiter: l, lastSeen: now}
	return l
}

// Sweep drops limiters not seen since now minus the idle window.
func (rl *RateLimiter) Sweep(now time.Time) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	removed := 0
	for ip, v := range rl.limiters {
		if now.Sub(v.lastSeen) > rl.idle {
			delete(rl.limiters, ip)
			removed++
		}
	}
	return removed
}

// Limit is the middleware enforcing the per-IP limit.
func (rl *RateLimiter) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.get(limitKey(r), time.Now()).Allow() {
			response.Error(w, http.StatusTooManyRequests, response.CodeResourceExhausted, "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// limitKey is the client address the limiter buckets on. Forwarding headers
// are ignored here since callers can set them freely; behind a trusted proxy
// chi's RealIP has already rewritten RemoteAddr.
func limitKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// StartSweeper evicts idle limiters every interval until ctx is done.
func (rl *RateLimiter) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				rl.Sweep(now)
			}
		}
	}()
}
