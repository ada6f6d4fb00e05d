package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ResultStore is a second cache tier shared between processes. It holds
// encoded results by fingerprint; entries may expire at any time.
type ResultStore interface {
	Get(ctx context.Context, fp Fingerprint) ([]byte, bool, error)
	Put(ctx context.Context, fp Fingerprint, data []byte) error
}

// MemoryStore is a process-local ResultStore, mainly for tests and single
// process deployments that want results to outlive cache eviction.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[Fingerprint][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[Fingerprint][]byte)}
}

func (s *MemoryStore) Get(_ context.Context, fp Fingerprint) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.data[fp]
	return b, ok, nil
}

func (s *MemoryStore) Put(_ context.Context, fp Fingerprint, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[fp] = append([]byte(nil), data...)
	return nil
}

// Len reports the number of stored results.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

const redisKeyPrefix = "wealthsim:result:"

// RedisStore keeps results in Redis with a fixed time to live.
type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisStore wraps an existing client. A zero ttl keeps entries until
// Redis evicts them.
func NewRedisStore(client redis.UniversalClient, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// DialRedis connects to addr and checks the connection.
func DialRedis(ctx context.Context, addr string, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", addr, err)
	}
	return NewRedisStore(client, ttl), nil
}

func (s *RedisStore) Get(ctx context.Context, fp Fingerprint) ([]byte, bool, error) {
	b, err := s.client.Get(ctx, redisKeyPrefix+string(fp)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", fp, err)
	}
	return b, true, nil
}

func (s *RedisStore) Put(ctx context.Context, fp Fingerprint, data []byte) error {
	if err := s.client.Set(ctx, redisKeyPrefix+string(fp), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", fp, err)
	}
	return nil
}

// Close releases the client.
func (s *RedisStore) Close() error { return s.client.Close() }
