package http

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/stylecast/internal/infra/config"
)

func errorHandlingMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		httpErr := asHTTPError(c.Errors.Last().Err)
		message := httpErr.Message
		if message == "" {
			message = httpErr.Error()
		}

		if httpErr.Status >= http.StatusInternalServerError {
			logger.Error("request failed", "code", httpErr.Code, "status", httpErr.Status, "path", c.Request.URL.Path, "error", httpErr.Err)
		} else {
			logger.Warn("request failed", "code", httpErr.Code, "status", httpErr.Status, "path", c.Request.URL.Path, "error", httpErr.Err)
		}

		c.JSON(httpErr.Status, gin.H{
			"error": gin.H{
				"code":    httpErr.Code,
				"message": message,
			},
		})
	}
}

// rateLimitMiddleware limits every API call per client IP.
func rateLimitMiddleware(cfg config.RateLimitConfig, logger *slog.Logger) gin.HandlerFunc {
	if !cfg.Enabled || cfg.RequestsPerMinute <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	limiter := newKeyedRateLimiter(cfg.RequestsPerMinute, cfg.Burst)
	return limitBy(limiter, "ip", func(c *gin.Context) string { return c.ClientIP() }, logger)
}

// generationLimitMiddleware limits the routes that spend model quota per
// session, so one tab cannot drain it by resubmitting in a loop. Mount the
// returned handler on every generating route to share one budget.
func generationLimitMiddleware(cfg config.RateLimitConfig, logger *slog.Logger) gin.HandlerFunc {
	if !cfg.Enabled || cfg.GenerationPerMinute <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	limiter := newKeyedRateLimiter(cfg.GenerationPerMinute, cfg.GenerationPerMinute)
	return limitBy(limiter, "session_id", getSessionID, logger)
}

func limitBy(limiter *keyedRateLimiter, label string, keyOf func(*gin.Context) string, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyOf(c)
		ok, wait := limiter.allow(key)
		if ok {
			c.Next()
			return
		}
		logger.Warn("rate limit exceeded", label, key, "path", c.Request.URL.Path)
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
		abortWithError(c, NewHTTPError(http.StatusTooManyRequests, "rate_limit_exceeded", "too many requests", nil))
	}
}

// keyedRateLimiter is a token bucket per key refilled at ratePerMinute.
type keyedRateLimiter struct {
	buckets       map[string]*bucket
	mu            sync.Mutex
	ratePerMinute float64
	burst         float64
	ttl           time.Duration
	now           func() time.Time
}

type bucket struct {
	tokens   float64
	lastSeen time.Time
}

func newKeyedRateLimiter(perMinute, burst int) *keyedRateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &keyedRateLimiter{
		buckets:       make(map[string]*bucket),
		ratePerMinute: float64(perMinute),
		burst:         float64(burst),
		ttl:           5 * time.Minute,
		now:           time.Now,
	}
}

// allow takes one token for key. When none is left it reports how long until
// the next one.
func (l *keyedRateLimiter) allow(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: l.burst, lastSeen: now}
		l.buckets[key] = b
	} else {
		elapsed := now.Sub(b.lastSeen).Minutes()
		if elapsed > 0 {
			b.tokens = math.Min(l.burst, b.tokens+elapsed*l.ratePerMinute)
		}
		b.lastSeen = now
	}
	l.cleanupLocked(now)
	if b.tokens < 1 {
		missing := 1 - b.tokens
		return false, time.Duration(missing / l.ratePerMinute * float64(time.Minute))
	}
	b.tokens--
	return true, 0
}

func (l *keyedRateLimiter) cleanupLocked(now time.Time) {
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) > l.ttl {
			delete(l.buckets, key)
		}
	}
}

// bodyLimitMiddleware caps request bodies so oversized photos fail before decoding.
func bodyLimitMiddleware(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}
