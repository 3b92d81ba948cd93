package ginserver

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	gin "github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	limiterIdle     = 10 * time.Minute
	limiterSweepLen = 4096
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per caller. Authenticated callers are
// keyed by principal id, anonymous ones by client ip.
type RateLimiter struct {
	limit rate.Limit
	burst int
	now   func() time.Time

	mu      sync.Mutex
	callers map[string]*limiterEntry
}

// NewRateLimiter returns nil when rps is not positive, which disables
// limiting.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if rps <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = int(math.Ceil(rps))
	}
	return &RateLimiter{
		limit:   rate.Limit(rps),
		burst:   burst,
		now:     time.Now,
		callers: make(map[string]*limiterEntry),
	}
}

func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if l == nil {
			c.Next()
			return
		}
		key := c.ClientIP()
		if p, ok := currentPrincipal(c); ok {
			key = "principal:" + p.ID
		}
		lim := l.get(key)
		if !lim.Allow() {
			retry := time.Duration(float64(time.Second) / float64(l.limit))
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(retry.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

func (l *RateLimiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if len(l.callers) >= limiterSweepLen {
		for k, e := range l.callers {
			if now.Sub(e.lastSeen) > limiterIdle {
				delete(l.callers, k)
			}
		}
	}
	e, ok := l.callers[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.callers[key] = e
	}
	e.lastSeen = now
	return e.limiter
}
