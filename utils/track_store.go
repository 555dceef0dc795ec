package utils

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// TrackStore is the hash/set counter store backing streak tracking and spin
// accounting. Production uses Redis; tests use the in-memory implementation.
// Increments must be atomic so concurrent events cannot lose updates.
type TrackStore interface {
	HGet(ctx context.Context, key, field string) (string, error)
	HSet(ctx context.Context, key, field, value string) error
	HIncrBy(ctx context.Context, key, field string, delta int64) (int64, error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HKeys(ctx context.Context, key string) ([]string, error)
	HDel(ctx context.Context, key string, fields ...string) error
	SAdd(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

// RedisTrackStore implements TrackStore on a go-redis client.
type RedisTrackStore struct {
	rc *redis.Client
}

// NewRedisTrackStore wraps an existing Redis client.
func NewRedisTrackStore(rc *redis.Client) *RedisTrackStore {
	return &RedisTrackStore{rc: rc}
}

func (s *RedisTrackStore) HGet(ctx context.Context, key, field string) (string, error) {
	v, err := s.rc.HGet(ctx, key, field).Result()
	if err == redis.Nil {
		return "", nil
	}
	return v, err
}

func (s *RedisTrackStore) HSet(ctx context.Context, key, field, value string) error {
	return s.rc.HSet(ctx, key, field, value).Err()
}

func (s *RedisTrackStore) HIncrBy(ctx context.Context, key, field string, delta int64) (int64, error) {
	return s.rc.HIncrBy(ctx, key, field, delta).Result()
}

func (s *RedisTrackStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	return s.rc.HGetAll(ctx, key).Result()
}

func (s *RedisTrackStore) HKeys(ctx context.Context, key string) ([]string, error) {
	return s.rc.HKeys(ctx, key).Result()
}

func (s *RedisTrackStore) HDel(ctx context.Context, key string, fields ...string) error {
	return s.rc.HDel(ctx, key, fields...).Err()
}

func (s *RedisTrackStore) SAdd(ctx context.Context, key string, members ...string) error {
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	return s.rc.SAdd(ctx, key, args...).Err()
}

func (s *RedisTrackStore) SMembers(ctx context.Context, key string) ([]string, error) {
	return s.rc.SMembers(ctx, key).Result()
}

func (s *RedisTrackStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return s.rc.PExpire(ctx, key, ttl).Err()
}

// MemoryTrackStore is a process-local TrackStore used as a test double and
// as a single-instance fallback when Redis is unavailable.
type MemoryTrackStore struct {
	mu      sync.Mutex
	hashes  map[string]map[string]string
	sets    map[string]map[string]struct{}
	expires map[string]time.Time
}

// NewMemoryTrackStore creates an empty in-memory store.
func NewMemoryTrackStore() *MemoryTrackStore {
	return &MemoryTrackStore{
		hashes:  map[string]map[string]string{},
		sets:    map[string]map[string]struct{}{},
		expires: map[string]time.Time{},
	}
}

func (s *MemoryTrackStore) purgeLocked(key string) {
	if exp, ok := s.expires[key]; ok && time.Now().After(exp) {
		delete(s.hashes, key)
		delete(s.sets, key)
		delete(s.expires, key)
	}
}

func (s *MemoryTrackStore) HGet(ctx context.Context, key, field string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeLocked(key)
	return s.hashes[key][field], nil
}

func (s *MemoryTrackStore) HSet(ctx context.Context, key, field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeLocked(key)
	if s.hashes[key] == nil {
		s.hashes[key] = map[string]string{}
	}
	s.hashes[key][field] = value
	return nil
}

func (s *MemoryTrackStore) HIncrBy(ctx context.Context, key, field string, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeLocked(key)
	if s.hashes[key] == nil {
		s.hashes[key] = map[string]string{}
	}
	cur := parseInt64(s.hashes[key][field])
	cur += delta
	s.hashes[key][field] = strconv.FormatInt(cur, 10)
	return cur, nil
}

func (s *MemoryTrackStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeLocked(key)
	out := make(map[string]string, len(s.hashes[key]))
	for f, v := range s.hashes[key] {
		out[f] = v
	}
	return out, nil
}

func (s *MemoryTrackStore) HKeys(ctx context.Context, key string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeLocked(key)
	out := make([]string, 0, len(s.hashes[key]))
	for f := range s.hashes[key] {
		out = append(out, f)
	}
	return out, nil
}

func (s *MemoryTrackStore) HDel(ctx context.Context, key string, fields ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeLocked(key)
	for _, f := range fields {
		delete(s.hashes[key], f)
	}
	return nil
}

func (s *MemoryTrackStore) SAdd(ctx context.Context, key string, members ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeLocked(key)
	if s.sets[key] == nil {
		s.sets[key] = map[string]struct{}{}
	}
	for _, m := range members {
		s.sets[key][m] = struct{}{}
	}
	return nil
}

func (s *MemoryTrackStore) SMembers(ctx context.Context, key string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeLocked(key)
	out := make([]string, 0, len(s.sets[key]))
	for m := range s.sets[key] {
		out = append(out, m)
	}
	return out, nil
}

func (s *MemoryTrackStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expires[key] = time.Now().Add(ttl)
	return nil
}

func parseInt64(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}
