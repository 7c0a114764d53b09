package broker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// bodyField is the stream entry field carrying the serialized payload.
const bodyField = "body"

// Config holds broker settings loadable from the environment.
type Config struct {
	WorkStream      string        `env:"BROKER_WORK_STREAM" envDefault:"push:stream:work"`
	DeadStream      string        `env:"BROKER_DEAD_STREAM" envDefault:"push:stream:dead"`
	StatusStream    string        `env:"BROKER_STATUS_STREAM" envDefault:"push:stream:status"`
	Group           string        `env:"BROKER_GROUP" envDefault:"push-workers"`
	Block           time.Duration `env:"BROKER_BLOCK" envDefault:"5s"`
	RetrySet        string        `env:"BROKER_RETRY_SET" envDefault:"push:retry:scheduled"`
	PromoteInterval time.Duration `env:"BROKER_PROMOTE_INTERVAL" envDefault:"1s"`
	ClaimMinIdle    time.Duration `env:"BROKER_CLAIM_MIN_IDLE" envDefault:"1m"`
	StatusMaxLen    int64         `env:"BROKER_STATUS_MAXLEN" envDefault:"100000"`
}

// Message is one delivery of a work-queue entry. ID is the broker-assigned
// entry identifier used for acknowledgment.
type Message struct {
	ID   string
	Body []byte
}

// Broker implements the durable work queue, the dead-letter queue and the
// status topic on Redis Streams, plus a sorted-set delay queue for scheduled
// retries. Consumption uses a consumer group so an entry is owned by exactly
// one unacknowledged consumer at a time; entries left pending by a crashed
// consumer are reclaimed and redelivered (at-least-once).
type Broker struct {
	client redis.UniversalClient
	cfg    Config
	log    *slog.Logger
}

// New creates a Broker on the given client.
func New(client redis.UniversalClient, cfg Config, log *slog.Logger) *Broker {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Broker{client: client, cfg: cfg, log: log}
}

// EnsureGroup creates the consumer group (and the work stream) if missing.
func (b *Broker) EnsureGroup(ctx context.Context) error {
	err := b.client.XGroupCreateMkStream(ctx, b.cfg.WorkStream, b.cfg.Group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group %q: %w", b.cfg.Group, err)
	}
	return nil
}

// Fetch reads up to count new messages for the named consumer, blocking up to
// the configured block interval when the stream is empty. Before reading new
// entries it reclaims messages that have been pending on a dead consumer for
// longer than the claim threshold.
func (b *Broker) Fetch(ctx context.Context, consumer string, count int) ([]Message, error) {
	if count <= 0 {
		return nil, nil
	}

	if msgs := b.reclaim(ctx, consumer, count); len(msgs) > 0 {
		return msgs, nil
	}

	streams, err := b.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    b.cfg.Group,
		Consumer: consumer,
		Streams:  []string{b.cfg.WorkStream, ">"},
		Count:    int64(count),
		Block:    b.cfg.Block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read from work stream: %w", err)
	}

	var msgs []Message
	for _, stream := range streams {
		for _, entry := range stream.Messages {
			msgs = append(msgs, toMessage(entry))
		}
	}
	return msgs, nil
}

// reclaim transfers long-pending entries of dead consumers to this consumer.
// Errors are logged and swallowed; reclaiming is opportunistic.
func (b *Broker) reclaim(ctx context.Context, consumer string, count int) []Message {
	if b.cfg.ClaimMinIdle <= 0 {
		return nil
	}

	entries, _, err := b.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   b.cfg.WorkStream,
		Group:    b.cfg.Group,
		Consumer: consumer,
		MinIdle:  b.cfg.ClaimMinIdle,
		Start:    "0-0",
		Count:    int64(count),
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		b.log.WarnContext(ctx, "failed to reclaim pending messages", slog.Any("error", err))
		return nil
	}

	var msgs []Message
	for _, entry := range entries {
		msgs = append(msgs, toMessage(entry))
	}
	return msgs
}

// Ack acknowledges one work-queue message.
func (b *Broker) Ack(ctx context.Context, id string) error {
	if err := b.client.XAck(ctx, b.cfg.WorkStream, b.cfg.Group, id).Err(); err != nil {
		return fmt.Errorf("failed to ack message %s: %w", id, err)
	}
	return nil
}

// PublishWork appends a payload to the work stream.
func (b *Broker) PublishWork(ctx context.Context, body []byte) error {
	err := b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: b.cfg.WorkStream,
		Values: map[string]any{bodyField: string(body)},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to publish to work stream: %w", err)
	}
	return nil
}

// PublishDead appends a payload to the dead-letter stream.
func (b *Broker) PublishDead(ctx context.Context, body []byte) error {
	err := b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: b.cfg.DeadStream,
		Values: map[string]any{bodyField: string(body)},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to publish to dead-letter stream: %w", err)
	}
	return nil
}

// PublishStatus appends a payload to the status topic. The status stream is
// capped so unconsumed observability data cannot grow without bound.
func (b *Broker) PublishStatus(ctx context.Context, body []byte) error {
	err := b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: b.cfg.StatusStream,
		MaxLen: b.cfg.StatusMaxLen,
		Approx: true,
		Values: map[string]any{bodyField: string(body)},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to publish to status stream: %w", err)
	}
	return nil
}

// QueueDepth returns the current length of the work stream.
func (b *Broker) QueueDepth(ctx context.Context) (int64, error) {
	n, err := b.client.XLen(ctx, b.cfg.WorkStream).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read work stream length: %w", err)
	}
	return n, nil
}

// ScheduledRetries returns how many payloads are waiting in the delay queue.
func (b *Broker) ScheduledRetries(ctx context.Context) (int64, error) {
	n, err := b.client.ZCard(ctx, b.cfg.RetrySet).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read retry set size: %w", err)
	}
	return n, nil
}

func toMessage(entry redis.XMessage) Message {
	var body []byte
	if v, ok := entry.Values[bodyField]; ok {
		if s, ok := v.(string); ok {
			body = []byte(s)
		}
	}
	return Message{ID: entry.ID, Body: body}
}
