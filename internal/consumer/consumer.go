package consumer

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/pushpipe/internal/broker"
	"github.com/dmitrymomot/pushpipe/internal/delivery"
	"github.com/dmitrymomot/pushpipe/internal/notification"
)

// ackTimeout bounds the final acknowledgments flushed during shutdown.
const ackTimeout = 5 * time.Second

// Source is the work queue the consumer drains.
type Source interface {
	Fetch(ctx context.Context, consumer string, count int) ([]broker.Message, error)
	Ack(ctx context.Context, id string) error
}

// Handler processes one decoded job to a terminal outcome.
type Handler interface {
	Deliver(ctx context.Context, job notification.Job) (delivery.Outcome, error)
}

// Config holds consumer settings loadable from the environment.
type Config struct {
	// Prefetch bounds how many messages are in flight per consumer.
	Prefetch int    `env:"CONSUMER_PREFETCH" envDefault:"10"`
	Name     string `env:"CONSUMER_NAME"`
}

// Consumer pulls messages from the work queue and hands each to the handler
// on its own goroutine, at most Prefetch at a time. A message is acknowledged
// for every handled outcome, for malformed payloads and for handler panics;
// it stays unacknowledged only when the handler reports that the job's fate
// could not be recorded, so the broker redelivers it.
type Consumer struct {
	source   Source
	handler  Handler
	name     string
	prefetch int
	log      *slog.Logger

	processing atomic.Int64
}

// Option configures the Consumer.
type Option func(*Consumer)

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(c *Consumer) {
		if log != nil {
			c.log = log
		}
	}
}

// New creates a Consumer. An empty Config.Name gets a generated unique name so
// replicas never collide inside the consumer group.
func New(cfg Config, source Source, handler Handler, opts ...Option) *Consumer {
	name := cfg.Name
	if name == "" {
		name = "push-consumer-" + uuid.NewString()
	}
	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = 10
	}

	c := &Consumer{
		source:   source,
		handler:  handler,
		name:     name,
		prefetch: prefetch,
		log:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the consumer's identity within the group.
func (c *Consumer) Name() string { return c.name }

// Processing reports how many messages are currently being handled.
func (c *Consumer) Processing() int64 { return c.processing.Load() }

// Run fetches and processes messages until the context is canceled. Fetch
// errors are logged and the loop continues; transient broker outages must not
// kill the worker. Run returns after all in-flight handlers finish.
func (c *Consumer) Run(ctx context.Context) error {
	c.log.InfoContext(ctx, "consumer started",
		slog.String("consumer", c.name),
		slog.Int("prefetch", c.prefetch))

	slots := make(chan struct{}, c.prefetch)
	var wg sync.WaitGroup

	for ctx.Err() == nil {
		// Hold one slot before fetching so a full pipeline blocks here
		// instead of over-fetching.
		select {
		case <-ctx.Done():
		case slots <- struct{}{}:
		}
		if ctx.Err() != nil {
			break
		}

		// Slots are only ever freed concurrently, so remaining capacity can
		// grow but never shrink under us.
		count := c.prefetch - len(slots) + 1

		msgs, err := c.source.Fetch(ctx, c.name, count)
		if err != nil {
			<-slots
			if ctx.Err() != nil {
				break
			}
			c.log.ErrorContext(ctx, "failed to fetch messages", slog.Any("error", err))
			continue
		}
		if len(msgs) == 0 {
			<-slots
			continue
		}

		for i, msg := range msgs {
			if i > 0 {
				slots <- struct{}{}
			}
			wg.Add(1)
			go func(msg broker.Message) {
				defer wg.Done()
				defer func() { <-slots }()
				c.process(ctx, msg)
			}(msg)
		}
	}

	wg.Wait()
	c.log.InfoContext(ctx, "consumer stopped", slog.String("consumer", c.name))
	return ctx.Err()
}

// process handles one message end to end and decides its acknowledgment.
func (c *Consumer) process(ctx context.Context, msg broker.Message) {
	c.processing.Add(1)
	defer c.processing.Add(-1)

	ack := true
	defer func() {
		if r := recover(); r != nil {
			// A panicking handler would otherwise poison the queue with a
			// message that crashes every consumer that picks it up.
			c.log.ErrorContext(ctx, "panic while processing message",
				slog.String("message_id", msg.ID),
				slog.Any("panic", r))
			ack = true
		}
		if ack {
			c.ack(ctx, msg.ID)
		}
	}()

	job, err := notification.DecodeJob(msg.Body)
	if err != nil {
		// Malformed payloads can never succeed; redelivery would loop forever.
		c.log.ErrorContext(ctx, "discarding malformed message",
			slog.String("message_id", msg.ID),
			slog.Any("error", err))
		return
	}

	outcome, err := c.handler.Deliver(ctx, job)
	if err != nil {
		// The job's fate was not recorded anywhere; leave the message pending
		// so the broker redelivers it after the claim threshold.
		c.log.ErrorContext(ctx, "delivery unresolved, leaving message for redelivery",
			slog.String("message_id", msg.ID),
			slog.String("notification_id", job.NotificationID),
			slog.Any("error", err))
		ack = false
		return
	}

	c.log.DebugContext(ctx, "message processed",
		slog.String("message_id", msg.ID),
		slog.String("outcome", string(outcome)))
}

func (c *Consumer) ack(ctx context.Context, id string) {
	// Acknowledge even during shutdown; a handled message must not come back.
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.WithoutCancel(ctx), ackTimeout)
		defer cancel()
	}
	if err := c.source.Ack(ctx, id); err != nil {
		c.log.ErrorContext(ctx, "failed to ack message",
			slog.String("message_id", id),
			slog.Any("error", err))
	}
}
