package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const generationLockPrefix = "timetable:generate:lock:"

// releaseScript deletes the lock only when the caller still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// GenerationLockKey is the Redis key guarding generation for one college.
func GenerationLockKey(collegeID string) string {
	return generationLockPrefix + collegeID
}

// RedisGenerationLocker serialises timetable generation per college across
// API instances.
type RedisGenerationLocker struct {
	client *redis.Client
}

// NewRedisGenerationLocker constructs the locker.
func NewRedisGenerationLocker(client *redis.Client) *RedisGenerationLocker {
	return &RedisGenerationLocker{client: client}
}

// Acquire tries to take the college lock. It returns the owner token when the
// lock was obtained and an empty token when another run holds it.
func (l *RedisGenerationLocker) Acquire(ctx context.Context, collegeID string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, GenerationLockKey(collegeID), token, ttl).Result()
	if err != nil {
		return "", fmt.Errorf("acquire generation lock: %w", err)
	}
	if !ok {
		return "", nil
	}
	return token, nil
}

// Release drops the lock if token still owns it.
func (l *RedisGenerationLocker) Release(ctx context.Context, collegeID, token string) error {
	if token == "" {
		return nil
	}
	if err := releaseScript.Run(ctx, l.client, []string{GenerationLockKey(collegeID)}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release generation lock: %w", err)
	}
	return nil
}

// MemoryGenerationLocker is the single-instance locker used when Redis is
// disabled.
type MemoryGenerationLocker struct {
	mu    sync.Mutex
	held  map[string]memoryLock
	clock func() time.Time
}

type memoryLock struct {
	token   string
	expires time.Time
}

// NewMemoryGenerationLocker constructs an in-process locker.
func NewMemoryGenerationLocker() *MemoryGenerationLocker {
	return &MemoryGenerationLocker{held: make(map[string]memoryLock), clock: time.Now}
}

// Acquire mirrors RedisGenerationLocker.Acquire; expired locks are reclaimed.
func (l *MemoryGenerationLocker) Acquire(_ context.Context, collegeID string, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	if current, ok := l.held[collegeID]; ok && now.Before(current.expires) {
		return "", nil
	}
	token := uuid.NewString()
	l.held[collegeID] = memoryLock{token: token, expires: now.Add(ttl)}
	return token, nil
}

// Release drops the lock if token still owns it.
func (l *MemoryGenerationLocker) Release(_ context.Context, collegeID, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if current, ok := l.held[collegeID]; ok && current.token == token {
		delete(l.held, collegeID)
	}
	return nil
}
