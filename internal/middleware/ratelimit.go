package middleware

import (
	"net/http" // HTTP status codes
	"sync"     // Guards the visitor map
	"time"     // Idle eviction

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
	"golang.org/x/time/rate"     // Token buckets
)

// RateLimit is the allowance per client
type RateLimit struct {
	RequestsPerMinute float64 // Sustained rate
	Burst             int     // Bucket size
}

type visitor struct {
	limiter  *rate.Limiter // Client bucket
	lastSeen time.Time     // Last request time, for eviction
}

// RateLimiter hands out one token bucket per client IP
type RateLimiter struct {
	limit    RateLimit
	mu       sync.Mutex
	visitors map[string]*visitor
	idle     time.Duration
	now      func() time.Time
}

// NewRateLimiter creates a limiter with the given allowance
func NewRateLimiter(limit RateLimit) *RateLimiter {
	return &RateLimiter{
		limit:    limit,
		visitors: make(map[string]*visitor),
		idle:     10 * time.Minute,
		now:      time.Now,
	}
}

// Middleware rejects clients that exceed their allowance with 429
func (r *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP() // Honors the engine's trusted proxies
		if !r.allow(ip) {
			logrus.WithFields(logrus.Fields{"client_ip": ip, "path": c.FullPath()}).Warn("Rate limit exceeded")
			abort(c, http.StatusTooManyRequests, "rate_limited", "Too many requests")
			return
		}
		c.Next()
	}
}

func (r *RateLimiter) allow(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	v, ok := r.visitors[id]
	if !ok {
		perSecond := r.limit.RequestsPerMinute / 60.0
		if perSecond <= 0 {
			perSecond = 1
		}
		burst := r.limit.Burst
		if burst <= 0 {
			burst = 1
		}
		v = &visitor{limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
		r.visitors[id] = v
		r.evict(now)
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// evict drops clients idle for longer than r.idle; called with mu held
func (r *RateLimiter) evict(now time.Time) {
	for id, v := range r.visitors {
		if !v.lastSeen.IsZero() && now.Sub(v.lastSeen) > r.idle {
			delete(r.visitors, id)
		}
	}
}
