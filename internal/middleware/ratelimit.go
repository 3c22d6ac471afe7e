package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/handout-viewer/internal/response"
	"github.com/stemsi/handout-viewer/internal/view"
)

// RateLimiter is a per-IP token bucket refilled by rate tokens every interval.
// Used on sign-in and handoff.
type RateLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	rate      int
	interval  time.Duration
	lastSweep time.Time
	now       func() time.Time
}

type visitor struct {
	tokens   int
	refilled time.Time
}

func NewRateLimiter(rate int, interval time.Duration) *RateLimiter {
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate,
		interval: interval,
		now:      time.Now,
	}
}

// Middleware answers 429 with Retry-After once an IP has spent its tokens.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		wait, ok := rl.take(c.ClientIP())
		if !ok {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			response.AbortPage(c, http.StatusTooManyRequests, response.ErrRateLimitExceeded, view.KindError)
			return
		}
		c.Next()
	}
}

// take spends one token for ip. When none is left it returns the time until
// the next refill.
func (rl *RateLimiter) take(ip string) (time.Duration, bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.sweep(now)

	v, ok := rl.visitors[ip]
	if !ok {
		v = &visitor{tokens: rl.rate, refilled: now}
		rl.visitors[ip] = v
	}

	if periods := int(now.Sub(v.refilled) / rl.interval); periods > 0 {
		v.tokens = min(rl.rate, v.tokens+periods*rl.rate)
		v.refilled = v.refilled.Add(time.Duration(periods) * rl.interval)
	}

	if v.tokens <= 0 {
		return v.refilled.Add(rl.interval).Sub(now), false
	}
	v.tokens--
	return 0, true
}

// sweep drops visitors whose bucket would be full again anyway. It runs at
// most once per interval, on the request path.
func (rl *RateLimiter) sweep(now time.Time) {
	if now.Sub(rl.lastSweep) < rl.interval {
		return
	}
	rl.lastSweep = now
	for ip, v := range rl.visitors {
		if now.Sub(v.refilled) >= rl.interval {
			delete(rl.visitors, ip)
		}
	}
}
