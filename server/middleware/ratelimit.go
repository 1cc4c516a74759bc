package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/MrEdHardy/schleuben/errors"
)

// RateLimitConfig configures per-client inbound rate limiting.
type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled" mapstructure:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
	// IdleTTL is how long an idle client's bucket is kept.
	IdleTTL time.Duration `yaml:"idle_ttl" mapstructure:"idle_ttl"`
	// KeyFunc extracts the client key. Defaults to the client IP.
	KeyFunc func(*gin.Context) string `yaml:"-" mapstructure:"-"`
}

// ApplyDefaults fills in unset fields.
func (c *RateLimitConfig) ApplyDefaults() {
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = 50
	}
	if c.Burst <= 0 {
		c.Burst = int(c.RequestsPerSecond) * 2
	}
	if c.IdleTTL <= 0 {
		c.IdleTTL = 5 * time.Minute
	}
}

// Validate checks the limits.
func (c *RateLimitConfig) Validate() error {
	if c.Enabled && (c.RequestsPerSecond <= 0 || c.Burst <= 0) {
		return fmt.Errorf("server.rate_limit requires positive requests_per_second and burst")
	}
	return nil
}

// RateLimit returns a gin middleware applying a token bucket per client.
// Rejected requests get 429 with a RATE_LIMITED body.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	cfg.ApplyDefaults()
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = IPBasedKey
	}
	buckets := newClientBuckets(rate.Limit(cfg.RequestsPerSecond), cfg.Burst, cfg.IdleTTL)

	return func(c *gin.Context) {
		if !buckets.allow(cfg.KeyFunc(c), time.Now()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errors.RateLimited().ToResponse())
			return
		}
		c.Next()
	}
}

// IPBasedKey keys buckets by client IP.
func IPBasedKey(c *gin.Context) string {
	return c.ClientIP()
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type clientBuckets struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	ttl       time.Duration
	buckets   map[string]*bucket
	lastSweep time.Time
}

func newClientBuckets(limit rate.Limit, burst int, ttl time.Duration) *clientBuckets {
	return &clientBuckets{
		limit:     limit,
		burst:     burst,
		ttl:       ttl,
		buckets:   make(map[string]*bucket),
		lastSweep: time.Now(),
	}
}

func (cb *clientBuckets) allow(key string, now time.Time) bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if now.Sub(cb.lastSweep) > cb.ttl {
		for k, b := range cb.buckets {
			if now.Sub(b.lastSeen) > cb.ttl {
				delete(cb.buckets, k)
			}
		}
		cb.lastSweep = now
	}

	b, ok := cb.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(cb.limit, cb.burst)}
		cb.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

func (cb *clientBuckets) size() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return len(cb.buckets)
}
