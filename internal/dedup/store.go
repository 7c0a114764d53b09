package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "push:processed:"

// Store records which request identifiers have already been delivered.
//
// A positive Exists result is authoritative and permits silently dropping the
// job. Absence is not authoritative: the entry may have expired, or a
// concurrent attempt may be mid-flight on another consumer. There is no
// atomic check-and-set; two concurrent attempts for the same request may both
// send. Duplicate suppression is best-effort by design.
type Store struct {
	client redis.UniversalClient
	prefix string
}

// New creates a Store on the given client.
func New(client redis.UniversalClient) *Store {
	return &Store{client: client, prefix: keyPrefix}
}

// Exists reports whether the request identifier completed successfully within
// the retention window.
func (s *Store) Exists(ctx context.Context, requestID string) (bool, error) {
	n, err := s.client.Exists(ctx, s.prefix+requestID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check dedup record for %s: %w", requestID, err)
	}
	return n > 0, nil
}

// Mark records a successful delivery of the request identifier, retained for
// the given TTL. The TTL must exceed the maximum end-to-end retry latency so
// in-transit duplicates still hit the record.
func (s *Store) Mark(ctx context.Context, requestID string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.prefix+requestID, "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to write dedup record for %s: %w", requestID, err)
	}
	return nil
}
