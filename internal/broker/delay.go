package broker

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ScheduleRetry puts a payload on the delay queue, due after the given delay.
// The member carries a random prefix so identical payloads scheduled twice
// (distinct retries of distinct deliveries) do not collapse into one entry.
func (b *Broker) ScheduleRetry(ctx context.Context, body []byte, delay time.Duration) error {
	due := time.Now().Add(delay)
	member := uuid.NewString() + "|" + string(body)

	err := b.client.ZAdd(ctx, b.cfg.RetrySet, redis.Z{
		Score:  float64(due.UnixMilli()),
		Member: member,
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to schedule retry: %w", err)
	}
	return nil
}

// PromoteDue moves every due delay-queue entry back onto the work stream and
// returns how many were promoted. An entry is removed from the delay queue
// only after it was appended to the stream, so a crash between the two steps
// re-promotes rather than loses it.
func (b *Broker) PromoteDue(ctx context.Context) (int, error) {
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)

	members, err := b.client.ZRangeByScore(ctx, b.cfg.RetrySet, &redis.ZRangeBy{
		Min: "-inf",
		Max: now,
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read due retries: %w", err)
	}

	promoted := 0
	for _, member := range members {
		body := member
		if _, rest, ok := strings.Cut(member, "|"); ok {
			body = rest
		}

		if err := b.PublishWork(ctx, []byte(body)); err != nil {
			return promoted, err
		}
		if err := b.client.ZRem(ctx, b.cfg.RetrySet, member).Err(); err != nil {
			return promoted, fmt.Errorf("failed to remove promoted retry: %w", err)
		}
		promoted++
	}
	return promoted, nil
}

// RunScheduler promotes due retries on a fixed interval until ctx is
// cancelled. Promotion failures are logged and retried on the next tick.
func (b *Broker) RunScheduler(ctx context.Context) error {
	interval := b.cfg.PromoteInterval
	if interval <= 0 {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	b.log.InfoContext(ctx, "retry scheduler started", slog.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			b.log.Info("retry scheduler stopped")
			return nil
		case <-ticker.C:
			n, err := b.PromoteDue(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				b.log.WarnContext(ctx, "failed to promote due retries", slog.Any("error", err))
				continue
			}
			if n > 0 {
				b.log.DebugContext(ctx, "promoted due retries", slog.Int("count", n))
			}
		}
	}
}
