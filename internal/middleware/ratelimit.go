package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"growly/internal/config"
	"growly/internal/pkg/response"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a per client IP token bucket. A client may send Requests
// requests at once and regains one every Window/Requests.
type RateLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	every     rate.Limit
	burst     int
	idle      time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// NewRateLimiter returns nil when limiting is disabled (Requests <= 0).
func NewRateLimiter(cfg config.RateLimitConfig) *RateLimiter {
	if cfg.Requests <= 0 || cfg.Window <= 0 {
		return nil
	}

	perRequest := cfg.Window / time.Duration(cfg.Requests)
	if perRequest <= 0 {
		perRequest = time.Millisecond
	}

	return &RateLimiter{
		visitors: make(map[string]*visitor),
		every:    rate.Every(perRequest),
		burst:    cfg.Requests,
		idle:     3 * cfg.Window,
		now:      time.Now,
	}
}

// Allow reports whether ip may make another request now.
func (rl *RateLimiter) Allow(ip string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.sweep(now)

	v, ok := rl.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.every, rl.burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = now

	r := v.limiter.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// sweep forgets clients idle for longer than it takes to refill their bucket.
func (rl *RateLimiter) sweep(now time.Time) {
	if now.Sub(rl.lastSweep) < rl.idle {
		return
	}
	rl.lastSweep = now
	for ip, v := range rl.visitors {
		if now.Sub(v.lastSeen) > rl.idle {
			delete(rl.visitors, ip)
		}
	}
}

// Middleware answers 429 RATE_LIMITED once a client exhausts its bucket. A nil
// limiter lets everything through.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	if rl == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		ok, retryAfter := rl.Allow(c.ClientIP())
		if !ok {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
			response.Abort(c, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests. Please try again later.")
			return
		}
		c.Next()
	}
}
