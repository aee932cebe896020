package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"muralhub/internal/pkg/errors"
	"muralhub/internal/platform/config"
)

const (
	LimitCheck  = "check"
	LimitSignup = "signup"
)

const idleBucketTTL = 10 * time.Minute

type RateLimiter struct {
	store   *sync.Map // map[string]*Bucket
	limits  map[string]int
	proxies *TrustedProxies
	done    chan struct{}
	once    sync.Once
}

type Bucket struct {
	tokens     int
	lastRefill time.Time
	mu         sync.Mutex
	lastAccess time.Time
}

func NewRateLimiter(cfg config.RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{
		store: &sync.Map{},
		limits: map[string]int{
			LimitCheck:  cfg.CheckPerMinute,
			LimitSignup: cfg.SignupPerMinute,
		},
		proxies: NewTrustedProxies(cfg.TrustedProxies),
		done:    make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

func (rl *RateLimiter) Stop() {
	rl.once.Do(func() { close(rl.done) })
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(idleBucketTTL)
	defer ticker.Stop()

	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
			rl.sweep(time.Now())
		}
	}
}

func (rl *RateLimiter) sweep(now time.Time) {
	rl.store.Range(func(key, value interface{}) bool {
		bucket := value.(*Bucket)
		bucket.mu.Lock()
		if now.Sub(bucket.lastAccess) > idleBucketTTL {
			rl.store.Delete(key)
		}
		bucket.mu.Unlock()
		return true
	})
}

// Allow takes one token from the bucket for key. Buckets refill at limit
// tokens per minute.
func (rl *RateLimiter) Allow(key string, limit int) bool {
	now := time.Now()

	val, _ := rl.store.LoadOrStore(key, &Bucket{
		tokens:     limit,
		lastRefill: now,
		lastAccess: now,
	})

	bucket := val.(*Bucket)
	bucket.mu.Lock()
	defer bucket.mu.Unlock()

	bucket.lastAccess = now

	elapsed := now.Sub(bucket.lastRefill)
	refillRate := float64(limit) / 60.0
	refillTokens := int(elapsed.Seconds() * refillRate)

	if refillTokens > 0 {
		if bucket.tokens+refillTokens > limit {
			bucket.tokens = limit
		} else {
			bucket.tokens += refillTokens
		}
		bucket.lastRefill = now
	}

	if bucket.tokens > 0 {
		bucket.tokens--
		return true
	}

	return false
}

// Limit rate limits by client IP. A non-positive configured limit disables
// the check for that limit type.
func (rl *RateLimiter) Limit(limitType string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			limit := rl.limits[limitType]
			if limit <= 0 {
				next(w, r)
				return
			}

			ip := rl.ClientIP(r)
			if !rl.Allow(fmt.Sprintf("%s:%s", ip, limitType), limit) {
				log.Warn().Str("ip", ip).Str("limit", limitType).Msg("rate limit exceeded")
				w.Header().Set("Retry-After", "60")
				errors.WriteError(w, http.StatusTooManyRequests, errors.ErrCodeRateLimitExceeded, "Rate limit exceeded", nil)
				return
			}

			next(w, r)
		}
	}
}

// ClientIP is the address requests are limited on.
func (rl *RateLimiter) ClientIP(r *http.Request) string {
	return rl.proxies.ClientIP(r)
}
