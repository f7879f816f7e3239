package ratelimiter

import (
	"sync"
	"time"
)

const sweepInterval = time.Minute

type memoryEntry struct {
	bucket    Bucket
	expiresAt time.Time
}

// MemoryStore is the default process-local bucket store. Entries expire on
// read and a background sweep reclaims the rest.
type MemoryStore struct {
	mu      sync.RWMutex
	buckets map[string]memoryEntry

	stop chan struct{}
	once sync.Once
}

func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		buckets: make(map[string]memoryEntry),
		stop:    make(chan struct{}),
	}
	go s.janitor()
	return s
}

func (s *MemoryStore) Get(key string) (Bucket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.buckets[key]
	if !ok {
		return Bucket{}, ErrCacheMiss
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		return Bucket{}, ErrCacheMiss
	}
	return entry.bucket, nil
}

func (s *MemoryStore) Set(key string, b Bucket, ttl time.Duration) error {
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}

	s.mu.Lock()
	s.buckets[key] = memoryEntry{bucket: b, expiresAt: expiresAt}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Close() error {
	s.once.Do(func() {
		close(s.stop)
	})
	return nil
}

func (s *MemoryStore) janitor() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stop:
			return
		}
	}
}

func (s *MemoryStore) sweep() {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, entry := range s.buckets {
		if !entry.expiresAt.IsZero() && now.After(entry.expiresAt) {
			delete(s.buckets, key)
		}
	}
}
