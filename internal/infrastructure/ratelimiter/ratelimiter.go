package ratelimiter

import (
	"math"
	"net/http"
	"sync"
	"time"
)

const defaultSourceKey = "X-RateLimit-Key"

type Limiter interface {
	Allow(sourceKey string) bool
	GetSourceKey(r *http.Request) string
	Remaining(sourceKey string) int
	GetMaxBurst() int
}

// RateLimiter is a token bucket per source key. Tokens accrue fractionally
// at the configured rate; a request spends one whole token.
type RateLimiter struct {
	ratePerMilli    float64
	maxBurst        int
	store           Store
	cacheTTL        time.Duration
	sourceHeaderKey string

	// Per-key locks so refill and spend are atomic for each source.
	locks sync.Map // map[string]*sync.Mutex
}

type Options struct {
	MaxRatePerSecond int
	MaxBurst         int
	Store            Store
	CacheTTL         time.Duration
	SourceHeaderKey  string
}

func New(options Options) Limiter {
	if options.Store == nil {
		options.Store = NewMemoryStore()
	}
	if options.CacheTTL == 0 {
		options.CacheTTL = 10 * time.Second
	}
	if options.MaxBurst <= 0 {
		options.MaxBurst = options.MaxRatePerSecond
	}
	if options.SourceHeaderKey == "" {
		options.SourceHeaderKey = defaultSourceKey
	}

	return &RateLimiter{
		ratePerMilli:    float64(options.MaxRatePerSecond) / 1000.0,
		maxBurst:        options.MaxBurst,
		store:           options.Store,
		cacheTTL:        options.CacheTTL,
		sourceHeaderKey: options.SourceHeaderKey,
	}
}

func (rl *RateLimiter) Allow(sourceKey string) bool {
	lock := rl.lockFor(sourceKey)
	lock.Lock()
	defer lock.Unlock()

	b := rl.refilled(sourceKey, time.Now().UnixMilli())
	allowed := b.Tokens >= 1
	if allowed {
		b.Tokens--
	}
	_ = rl.store.Set(sourceKey, b, rl.cacheTTL)
	return allowed
}

func (rl *RateLimiter) Remaining(sourceKey string) int {
	lock := rl.lockFor(sourceKey)
	lock.Lock()
	defer lock.Unlock()

	b := rl.refilled(sourceKey, time.Now().UnixMilli())
	_ = rl.store.Set(sourceKey, b, rl.cacheTTL)
	return int(b.Tokens)
}

func (rl *RateLimiter) GetMaxBurst() int {
	return rl.maxBurst
}

func (rl *RateLimiter) GetSourceKey(r *http.Request) string {
	if key := r.Header.Get(rl.sourceHeaderKey); key != "" {
		return key
	}
	// Fall back to the peer address.
	return r.RemoteAddr
}

// refilled loads the source's bucket and credits tokens for the time since
// the last fill. A missing or failing store yields a full bucket: the
// limiter fails open rather than blocking traffic on a cache outage.
func (rl *RateLimiter) refilled(sourceKey string, now int64) Bucket {
	b, err := rl.store.Get(sourceKey)
	if err != nil {
		return Bucket{Tokens: float64(rl.maxBurst), LastFill: now}
	}

	elapsed := now - b.LastFill
	if elapsed <= 0 {
		return b
	}

	b.Tokens = math.Min(b.Tokens+float64(elapsed)*rl.ratePerMilli, float64(rl.maxBurst))
	b.LastFill = now
	return b
}

func (rl *RateLimiter) lockFor(sourceKey string) *sync.Mutex {
	lock, _ := rl.locks.LoadOrStore(sourceKey, &sync.Mutex{})
	return lock.(*sync.Mutex)
}
