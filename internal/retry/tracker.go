package retry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "push:attempts:"

// RedisTracker keeps per-notification failure counts in Redis so that the
// retry budget survives process restarts and is shared across consumer
// instances. Counters expire after a TTL chosen to exceed the total possible
// retry window, so abandoned entries clean themselves up.
type RedisTracker struct {
	client redis.UniversalClient
	ttl    time.Duration
	prefix string
}

// Config holds retry tracking settings loadable from the environment.
type Config struct {
	// CounterTTL must exceed the sum of all backoff delays plus gateway
	// timeouts for one notification.
	CounterTTL time.Duration `env:"RETRY_COUNTER_TTL" envDefault:"30m"`
}

// NewRedisTracker creates a tracker on the given client.
func NewRedisTracker(client redis.UniversalClient, ttl time.Duration) *RedisTracker {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &RedisTracker{client: client, ttl: ttl, prefix: keyPrefix}
}

// Incr increments the failure count for the notification and returns the new
// total.
func (t *RedisTracker) Incr(ctx context.Context, notificationID string) (int, error) {
	key := t.prefix + notificationID
	n, err := t.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment retry counter for %s: %w", notificationID, err)
	}
	if n == 1 {
		if err := t.client.Expire(ctx, key, t.ttl).Err(); err != nil {
			return int(n), fmt.Errorf("failed to set retry counter ttl for %s: %w", notificationID, err)
		}
	}
	return int(n), nil
}

// Forget removes the counter, typically after a terminal outcome.
func (t *RedisTracker) Forget(ctx context.Context, notificationID string) error {
	if err := t.client.Del(ctx, t.prefix+notificationID).Err(); err != nil {
		return fmt.Errorf("failed to delete retry counter for %s: %w", notificationID, err)
	}
	return nil
}

// Active returns the number of notifications with a live retry counter.
// It scans the keyspace and is intended for the metrics surface, not hot paths.
func (t *RedisTracker) Active(ctx context.Context) (int, error) {
	var (
		cursor uint64
		total  int
	)
	for {
		keys, next, err := t.client.Scan(ctx, cursor, t.prefix+"*", 100).Result()
		if err != nil {
			return 0, fmt.Errorf("failed to scan retry counters: %w", err)
		}
		total += len(keys)
		if next == 0 {
			return total, nil
		}
		cursor = next
	}
}

// MemoryTracker is a process-local tracker with the same semantics, used in
// tests and as a degraded-mode fallback. Counters reset on process restart.
type MemoryTracker struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewMemoryTracker creates an empty in-memory tracker.
func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{counts: make(map[string]int)}
}

// Incr increments the failure count and returns the new total.
func (t *MemoryTracker) Incr(_ context.Context, notificationID string) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counts[notificationID]++
	return t.counts[notificationID], nil
}

// Forget removes the counter.
func (t *MemoryTracker) Forget(_ context.Context, notificationID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.counts, notificationID)
	return nil
}

// Active returns the number of live counters.
func (t *MemoryTracker) Active(_ context.Context) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.counts), nil
}
