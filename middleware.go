package main

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/ckwame-jpg/portfolio/clock"
	"github.com/ckwame-jpg/portfolio/session"
)

const sessionKey = "session_id"

// sessionMiddleware makes sure every request carries a session id. The
// cookie has no Max-Age so it ends with the browser session.
func sessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		sid, err := c.Cookie(session.CookieName)
		if err != nil || !session.ValidID(sid) {
			sid = session.NewID()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(session.CookieName, sid, 0, "/", "", false, true)
		}
		c.Set(sessionKey, sid)
		c.Next()
	}
}

func sessionID(c *gin.Context) string {
	return c.GetString(sessionKey)
}

// rateLimiter keeps one token bucket per key, the client IP unless
// configured otherwise.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*rateVisitor
	clock    clock.Clock
	rps      rate.Limit
	burst    int
	keyOf    func(*gin.Context) string
}

type rateVisitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newIPRateLimiter(clk clock.Clock, rps float64, burst int) *rateLimiter {
	return &rateLimiter{
		visitors: make(map[string]*rateVisitor),
		clock:    clk,
		rps:      rate.Limit(rps),
		burst:    burst,
		keyOf:    (*gin.Context).ClientIP,
	}
}

// newSessionRateLimiter buckets by session, for endpoints a single page
// calls at typing speed.
func newSessionRateLimiter(clk clock.Clock, rps float64, burst int) *rateLimiter {
	rl := newIPRateLimiter(clk, rps, burst)
	rl.keyOf = sessionID
	return rl
}

func (rl *rateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.clock.Now()
	v, ok := rl.visitors[key]
	if !ok {
		v = &rateVisitor{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// sweep drops limiters not seen for idle.
func (rl *rateLimiter) sweep(idle time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	n := 0
	for key, v := range rl.visitors {
		if rl.clock.Now().Sub(v.lastSeen) > idle {
			delete(rl.visitors, key)
			n++
		}
	}
	return n
}

func (rl *rateLimiter) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.allow(rl.keyOf(c)) {
			c.Header("Retry-After", "5")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			return
		}
		c.Next()
	}
}
