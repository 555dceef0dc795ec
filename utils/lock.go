package utils

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockHeld is returned when the lease is already owned by another caller.
var ErrLockHeld = errors.New("lock already held")

// Locker is a lease-based exclusive lock. Acquire returns a token that must
// be presented to Release, so an expired holder cannot delete a lease that
// was re-acquired by someone else. The lease auto-expires after its TTL.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (string, error)
	Release(ctx context.Context, key, token string) error
}

// releaseScript deletes the lease only when the stored token matches.
const releaseScript = `if redis.call('GET', KEYS[1]) == ARGV[1] then return redis.call('DEL', KEYS[1]) end return 0`

// RedisLocker implements Locker with SET NX and an atomic compare-and-delete.
type RedisLocker struct {
	rc *redis.Client
}

// NewRedisLocker wraps an existing Redis client.
func NewRedisLocker(rc *redis.Client) *RedisLocker {
	return &RedisLocker{rc: rc}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	ok, err := l.rc.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrLockHeld
	}
	return token, nil
}

func (l *RedisLocker) Release(ctx context.Context, key, token string) error {
	return l.rc.Eval(ctx, releaseScript, []string{key}, token).Err()
}

// MemoryLocker is a process-local Locker for tests and single-instance runs.
type MemoryLocker struct {
	mu     sync.Mutex
	leases map[string]memoryLease
}

type memoryLease struct {
	token     string
	expiresAt time.Time
}

// NewMemoryLocker creates an empty in-memory locker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{leases: map[string]memoryLease{}}
}

func (l *MemoryLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if lease, ok := l.leases[key]; ok && time.Now().Before(lease.expiresAt) {
		return "", ErrLockHeld
	}
	token := uuid.NewString()
	l.leases[key] = memoryLease{token: token, expiresAt: time.Now().Add(ttl)}
	return token, nil
}

func (l *MemoryLocker) Release(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if lease, ok := l.leases[key]; ok && lease.token == token {
		delete(l.leases, key)
	}
	return nil
}
