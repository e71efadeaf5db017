package middlewares

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// WindowStore counts hits per key in fixed windows. Hit returns the count
// including this hit and the time left in the window.
type WindowStore interface {
	Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

type RateLimiter struct {
	store  WindowStore
	limit  int
	window time.Duration
	log    *slog.Logger
}

func NewRateLimiter(store WindowStore, limit int, window time.Duration, log *slog.Logger) *RateLimiter {
	if store == nil {
		store = NewMemoryWindowStore()
	}
	if log == nil {
		log = slog.Default()
	}
	return &RateLimiter{store: store, limit: limit, window: window, log: log}
}

// RateLimiterMiddleware enforces the limit for the key derived by keyFn.
// A store failure lets the request through.
func (rl *RateLimiter) RateLimiterMiddleware(keyFn func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.limit <= 0 {
			c.Next()
			return
		}

		key := keyFn(c)
		if key == "" {
			key = clientIP(c)
		}

		count, left, err := rl.store.Hit(c.Request.Context(), key, rl.window)
		if err != nil {
			rl.log.Warn("rate limiter store unavailable", "err", err)
			c.Next()
			return
		}

		if count > int64(rl.limit) {
			retryAfter := int(left.Seconds())
			if retryAfter < 0 {
				retryAfter = 0
			}

			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": gin.H{
					"code":      "rate_limited",
					"message":   "Too many requests. Please try again shortly.",
					"requestId": GetRequestID(c),
				},
			})
			return
		}

		c.Next()
	}
}

// KeyByIP keys unauthenticated endpoints by client address.
func KeyByIP(c *gin.Context) string {
	return "ip:" + clientIP(c)
}

func clientIP(c *gin.Context) string {
	ip := c.ClientIP()

	host, _, err := net.SplitHostPort(ip)
	if err == nil && host != "" {
		return host
	}

	return ip
}

// MemoryWindowStore is the single-process WindowStore used when no redis is configured.
type MemoryWindowStore struct {
	mu      sync.Mutex
	now     func() time.Time
	clients map[string]*clientBucket
}

type clientBucket struct {
	count     int64
	windowEnd time.Time
}

func NewMemoryWindowStore() *MemoryWindowStore {
	return &MemoryWindowStore{
		now:     time.Now,
		clients: make(map[string]*clientBucket),
	}
}

func (s *MemoryWindowStore) Hit(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.clients[key]
	if !ok || now.After(b.windowEnd) {
		b = &clientBucket{windowEnd: now.Add(window)}
		s.clients[key] = b
	}

	b.count++
	return b.count, b.windowEnd.Sub(now), nil
}
