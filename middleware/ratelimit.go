package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// KeyFunc picks the bucket a request is charged to.
type KeyFunc func(c *gin.Context) string

// ByIP charges requests to the client address.
func ByIP(c *gin.Context) string { return "ip:" + c.ClientIP() }

// ByChar charges authenticated requests to the character and falls back to
// the client address. It must run after Auth.
func ByChar(c *gin.Context) string {
	if id := GetCharID(c); id != 0 {
		return "char:" + strconv.FormatInt(id, 10)
	}
	return ByIP(c)
}

// RateLimit provides token-bucket rate limiting per key.
// r = requests per second, b = burst size. Idle buckets are swept until ctx
// is done.
func RateLimit(ctx context.Context, r rate.Limit, b int, key KeyFunc) gin.HandlerFunc {
	var mu sync.Mutex
	limiters := make(map[string]*limiterEntry)

	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				cutoff := time.Now().Add(-10 * time.Minute)
				mu.Lock()
				for k, e := range limiters {
					if e.lastSeen.Before(cutoff) {
						delete(limiters, k)
					}
				}
				mu.Unlock()
			case <-ctx.Done():
				return
			}
		}
	}()

	allow := func(k string) bool {
		mu.Lock()
		defer mu.Unlock()
		e, ok := limiters[k]
		if !ok {
			e = &limiterEntry{limiter: rate.NewLimiter(r, b)}
			limiters[k] = e
		}
		e.lastSeen = time.Now()
		return e.limiter.Allow()
	}

	return func(c *gin.Context) {
		if !allow(key(c)) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
