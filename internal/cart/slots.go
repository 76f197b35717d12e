package cart

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Slots persists serialized carts by key. Get returns nil data for a missing key.
type Slots interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

// RedisSlots stores carts as Redis strings. Every write refreshes the TTL.
type RedisSlots struct {
	Client *redis.Client
	TTL    time.Duration
}

// Get implements Slots.
func (s RedisSlots) Get(ctx context.Context, key string) ([]byte, error) {
	if s.Client == nil {
		return nil, errors.New("cart: redis client not configured")
	}
	data, err := s.Client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return data, err
}

// Put implements Slots.
func (s RedisSlots) Put(ctx context.Context, key string, data []byte) error {
	if s.Client == nil {
		return errors.New("cart: redis client not configured")
	}
	return s.Client.Set(ctx, key, data, s.TTL).Err()
}

// Delete implements Slots.
func (s RedisSlots) Delete(ctx context.Context, key string) error {
	if s.Client == nil {
		return errors.New("cart: redis client not configured")
	}
	return s.Client.Del(ctx, key).Err()
}

// MemorySlots keeps carts in process memory.
type MemorySlots struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// Get implements Slots.
func (s *MemorySlots) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

// Put implements Slots.
func (s *MemorySlots) Put(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		s.data = make(map[string][]byte)
	}
	v := make([]byte, len(data))
	copy(v, data)
	s.data[key] = v
	return nil
}

// Delete implements Slots.
func (s *MemorySlots) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}
