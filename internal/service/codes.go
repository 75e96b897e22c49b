package service

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// CodeStore keeps the bcrypt hash of the pending verification code of a
// mobile number together with the number of failed attempts.
type CodeStore interface {
	Put(ctx context.Context, mobile, hash string, ttl time.Duration) error
	Get(ctx context.Context, mobile string) (hash string, attempts int, err error)
	IncrAttempts(ctx context.Context, mobile string) (int, error)
	Delete(ctx context.Context, mobile string) error
}

// RedisCodeStore stores codes as a Redis hash {hash, attempts} that
// expires with the code.
type RedisCodeStore struct {
	Client *redis.Client
	Prefix string
}

func (s *RedisCodeStore) key(mobile string) string { return s.Prefix + ":verify:" + mobile }

func (s *RedisCodeStore) Put(ctx context.Context, mobile, hash string, ttl time.Duration) error {
	k := s.key(mobile)
	_, err := s.Client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, k)
		p.HSet(ctx, k, "hash", hash, "attempts", 0)
		p.Expire(ctx, k, ttl)
		return nil
	})
	return err
}

func (s *RedisCodeStore) Get(ctx context.Context, mobile string) (string, int, error) {
	m, err := s.Client.HGetAll(ctx, s.key(mobile)).Result()
	if err != nil {
		return "", 0, err
	}
	if m["hash"] == "" {
		return "", 0, ErrCodeNotFound
	}
	n, _ := strconv.Atoi(m["attempts"])
	return m["hash"], n, nil
}

func (s *RedisCodeStore) IncrAttempts(ctx context.Context, mobile string) (int, error) {
	n, err := s.Client.HIncrBy(ctx, s.key(mobile), "attempts", 1).Result()
	return int(n), err
}

func (s *RedisCodeStore) Delete(ctx context.Context, mobile string) error {
	return s.Client.Del(ctx, s.key(mobile)).Err()
}

// MemoryCodeStore is a process-local CodeStore used when Redis is not
// reachable and in tests.
type MemoryCodeStore struct {
	mu    sync.Mutex
	codes map[string]*memCode
	now   func() time.Time
}

type memCode struct {
	hash     string
	attempts int
	expires  time.Time
}

func NewMemoryCodeStore() *MemoryCodeStore {
	return &MemoryCodeStore{codes: map[string]*memCode{}, now: time.Now}
}

func (s *MemoryCodeStore) Put(_ context.Context, mobile, hash string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[mobile] = &memCode{hash: hash, expires: s.now().Add(ttl)}
	return nil
}

func (s *MemoryCodeStore) lookup(mobile string) (*memCode, bool) {
	c, ok := s.codes[mobile]
	if !ok {
		return nil, false
	}
	if !s.now().Before(c.expires) {
		delete(s.codes, mobile)
		return nil, false
	}
	return c, true
}

func (s *MemoryCodeStore) Get(_ context.Context, mobile string) (string, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.lookup(mobile)
	if !ok {
		return "", 0, ErrCodeNotFound
	}
	return c.hash, c.attempts, nil
}

func (s *MemoryCodeStore) IncrAttempts(_ context.Context, mobile string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.lookup(mobile)
	if !ok {
		return 0, ErrCodeNotFound
	}
	c.attempts++
	return c.attempts, nil
}

func (s *MemoryCodeStore) Delete(_ context.Context, mobile string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.codes, mobile)
	return nil
}

// Marker records one-shot events such as "nudge sent for this habit
// today".  MarkOnce reports true only for the first caller of a key
// within ttl.
type Marker interface {
	MarkOnce(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// RedisMarker implements Marker with SET NX so that several replicas share
// the same markers.
type RedisMarker struct {
	Client *redis.Client
}

func (m RedisMarker) MarkOnce(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := m.Client.SetNX(ctx, key, "1", ttl).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	return ok, err
}

// MemoryMarker is a process-local Marker.
type MemoryMarker struct {
	mu   sync.Mutex
	seen map[string]time.Time
}

func (m *MemoryMarker) MarkOnce(_ context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	if m.seen == nil {
		m.seen = map[string]time.Time{}
	}
	if exp, ok := m.seen[key]; ok && now.Before(exp) {
		return false, nil
	}
	m.seen[key] = now.Add(ttl)
	return true, nil
}
