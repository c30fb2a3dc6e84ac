package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// visitors idle for longer than this are dropped on the next sweep
const visitorIdleTTL = 10 * time.Minute

// PerMinute converts a requests-per-minute setting into a limit. Zero or
// less disables limiting.
func PerMinute(n int) rate.Limit {
	if n <= 0 {
		return rate.Inf
	}
	return rate.Every(time.Minute / time.Duration(n))
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type visitorSet struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	limit     rate.Limit
	burst     int
	ttl       time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func newVisitorSet(r rate.Limit, b int, ttl time.Duration, now func() time.Time) *visitorSet {
	return &visitorSet{
		visitors:  make(map[string]*visitor),
		limit:     r,
		burst:     b,
		ttl:       ttl,
		lastSweep: now(),
		now:       now,
	}
}

func (s *visitorSet) get(ip string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) >= s.ttl {
		for key, v := range s.visitors {
			if now.Sub(v.lastSeen) >= s.ttl {
				delete(s.visitors, key)
			}
		}
		s.lastSweep = now
	}

	v, exists := s.visitors[ip]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter
}

func (s *visitorSet) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.visitors)
}

// RateLimiter throttles requests per client IP with a token bucket
func RateLimiter(r rate.Limit, b int) gin.HandlerFunc {
	return rateLimiter(newVisitorSet(r, b, visitorIdleTTL, time.Now))
}

func rateLimiter(visitors *visitorSet) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !visitors.get(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests, try again later"})
			return
		}
		c.Next()
	}
}
