package middleware

import (
	"net/http"
	"sync"
	"time"

	"buildpos/internal/apierror"

	"github.com/gin-gonic/gin"
)

// Sliding-window request limiter keyed by client IP. Terminals poll only on
// reconnect, so a modest per-minute ceiling is enough to absorb a
// misbehaving retry loop without throttling honest checkouts.

type rateEntry struct {
	mu        sync.Mutex
	count     int
	windowEnd time.Time
}

type rateLimiter struct {
	mu      sync.Mutex
	entries map[string]*rateEntry
	limit   int
	window  time.Duration
}

// RateLimiter returns a per-IP sliding-window limiter middleware. A purge
// goroutine drops idle IPs so the map does not grow without bound.
func RateLimiter(limit int, window time.Duration) gin.HandlerFunc {
	rl := &rateLimiter{
		entries: make(map[string]*rateEntry),
		limit:   limit,
		window:  window,
	}
	go rl.purgeLoop()

	return func(c *gin.Context) {
		entry := rl.entry(c.ClientIP())

		entry.mu.Lock()
		defer entry.mu.Unlock()

		now := time.Now()
		if now.After(entry.windowEnd) {
			entry.count = 0
			entry.windowEnd = now.Add(rl.window)
		}

		entry.count++
		if entry.count > rl.limit {
			c.Header("Retry-After", entry.windowEnd.Format(time.RFC1123))
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				apierror.New("too many requests, slow down"))
			return
		}
		c.Next()
	}
}

func (rl *rateLimiter) entry(ip string) *rateEntry {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	e, ok := rl.entries[ip]
	if !ok {
		e = &rateEntry{}
		rl.entries[ip] = e
	}
	return e
}

func (rl *rateLimiter) purgeLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()
		rl.mu.Lock()
		for ip, e := range rl.entries {
			e.mu.Lock()
			if now.After(e.windowEnd) {
				delete(rl.entries, ip)
			}
			e.mu.Unlock()
		}
		rl.mu.Unlock()
	}
}
