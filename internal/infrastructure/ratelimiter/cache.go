package ratelimiter

import (
	"errors"
	"time"
)

var ErrCacheMiss = errors.New("cache miss")

// Bucket is one source's token bucket as stored: a fractional token count
// and the Unix millisecond of the last refill.
type Bucket struct {
	Tokens   float64
	LastFill int64
}

// Store holds buckets keyed by source. Implementations must be safe for
// concurrent use; the limiter serializes per key on top of it.
type Store interface {
	Get(key string) (Bucket, error)
	Set(key string, b Bucket, ttl time.Duration) error
	Close() error
}
