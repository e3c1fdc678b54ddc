package admin

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// AttemptStore counts failed logins per client key inside a rolling window.
type AttemptStore interface {
	// Fail records a failed attempt and returns the failures counted in the window.
	Fail(ctx context.Context, key string, window time.Duration) (int64, error)
	// Failures returns the current count and how long until it expires.
	Failures(ctx context.Context, key string) (int64, time.Duration, error)
	// Lock extends the window so the key stays locked for d.
	Lock(ctx context.Context, key string, d time.Duration) error
	// Reset clears the key after a successful login.
	Reset(ctx context.Context, key string) error
}

const attemptKeyPrefix = "admin:login:failures:"

// RedisAttemptStore keeps counters in Redis so a lockout survives restarts and is shared
// by every instance.
type RedisAttemptStore struct {
	client *redis.Client
}

// NewRedisAttemptStore creates a Redis backed store.
func NewRedisAttemptStore(client *redis.Client) *RedisAttemptStore {
	return &RedisAttemptStore{client: client}
}

func (s *RedisAttemptStore) Fail(ctx context.Context, key string, window time.Duration) (int64, error) {
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, attemptKeyPrefix+key)
	pipe.ExpireNX(ctx, attemptKeyPrefix+key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

func (s *RedisAttemptStore) Failures(ctx context.Context, key string) (int64, time.Duration, error) {
	n, err := s.client.Get(ctx, attemptKeyPrefix+key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, 0, nil
	}
	if err != nil {
		return 0, 0, err
	}
	ttl, err := s.client.TTL(ctx, attemptKeyPrefix+key).Result()
	if err != nil {
		return 0, 0, err
	}
	return n, ttl, nil
}

func (s *RedisAttemptStore) Lock(ctx context.Context, key string, d time.Duration) error {
	return s.client.Expire(ctx, attemptKeyPrefix+key, d).Err()
}

func (s *RedisAttemptStore) Reset(ctx context.Context, key string) error {
	return s.client.Del(ctx, attemptKeyPrefix+key).Err()
}

// MemoryAttemptStore is a process-local AttemptStore.
type MemoryAttemptStore struct {
	mu      sync.Mutex
	entries map[string]*attemptEntry
	now     func() time.Time
}

type attemptEntry struct {
	count   int64
	expires time.Time
}

// NewMemoryAttemptStore creates an in-memory store. A nil clock uses time.Now.
func NewMemoryAttemptStore(now func() time.Time) *MemoryAttemptStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryAttemptStore{entries: make(map[string]*attemptEntry), now: now}
}

func (s *MemoryAttemptStore) live(key string) *attemptEntry {
	e, ok := s.entries[key]
	if !ok {
		return nil
	}
	if !s.now().Before(e.expires) {
		delete(s.entries, key)
		return nil
	}
	return e
}

func (s *MemoryAttemptStore) Fail(_ context.Context, key string, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.live(key)
	if e == nil {
		e = &attemptEntry{expires: s.now().Add(window)}
		s.entries[key] = e
	}
	e.count++
	return e.count, nil
}

func (s *MemoryAttemptStore) Failures(_ context.Context, key string) (int64, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.live(key)
	if e == nil {
		return 0, 0, nil
	}
	return e.count, e.expires.Sub(s.now()), nil
}

func (s *MemoryAttemptStore) Lock(_ context.Context, key string, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e := s.live(key); e != nil {
		e.expires = s.now().Add(d)
	}
	return nil
}

func (s *MemoryAttemptStore) Reset(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}
