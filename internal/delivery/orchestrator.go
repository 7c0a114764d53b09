package delivery

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dmitrymomot/pushpipe/internal/gateway"
	"github.com/dmitrymomot/pushpipe/internal/notification"
	"github.com/dmitrymomot/pushpipe/pkg/backoff"
)

// Outcome is the terminal state of one delivery attempt.
type Outcome string

const (
	// OutcomeSkipped means the request was already delivered; nothing was done.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeDelivered means the gateway accepted the notification.
	OutcomeDelivered Outcome = "delivered"
	// OutcomeRetryScheduled means the job was placed back on the delay queue.
	OutcomeRetryScheduled Outcome = "retry_scheduled"
	// OutcomeDeadLettered means the job exhausted its retries.
	OutcomeDeadLettered Outcome = "dead_lettered"
)

// DedupStore is the idempotency store consulted before sending.
type DedupStore interface {
	Exists(ctx context.Context, requestID string) (bool, error)
	Mark(ctx context.Context, requestID string, ttl time.Duration) error
}

// Gateway performs the guarded external push call.
type Gateway interface {
	Send(ctx context.Context, job notification.Job) (*gateway.Receipt, error)
}

// RetryTracker counts failures per notification.
type RetryTracker interface {
	Incr(ctx context.Context, notificationID string) (int, error)
	Forget(ctx context.Context, notificationID string) error
}

// Requeuer republishes a failed job, either delayed back onto the work queue
// or terminally onto the dead-letter queue.
type Requeuer interface {
	ScheduleRetry(ctx context.Context, body []byte, delay time.Duration) error
	PublishDead(ctx context.Context, body []byte) error
}

// StatusPublisher emits lifecycle events; it never fails the caller.
type StatusPublisher interface {
	Publish(ctx context.Context, notificationID string, st notification.Status, cause error)
}

// Config holds delivery policy loadable from the environment.
type Config struct {
	MaxRetries int           `env:"DELIVERY_MAX_RETRIES" envDefault:"3"`
	DedupTTL   time.Duration `env:"DELIVERY_DEDUP_TTL" envDefault:"1h"`
}

// Orchestrator drives one notification through the delivery state machine:
//
//	RECEIVED -> DEDUP_CHECK -> {SKIPPED | SENDING}
//	SENDING  -> {DELIVERED | RETRY_SCHEDULED | DEAD_LETTERED}
//
// Dedup-store failures are optimistically bypassed (availability over strict
// suppression). Status publication is best-effort. Requeue and dead-letter
// publication are correctness-relevant: their failure escalates to the
// caller so the job is not silently lost.
type Orchestrator struct {
	dedup      DedupStore
	gw         Gateway
	retries    RetryTracker
	queue      Requeuer
	status     StatusPublisher
	strategy   backoff.Strategy
	maxRetries int
	dedupTTL   time.Duration
	log        *slog.Logger
}

// Option configures the Orchestrator.
type Option func(*Orchestrator)

// WithBackoff overrides the retry delay strategy.
func WithBackoff(s backoff.Strategy) Option {
	return func(o *Orchestrator) {
		if s != nil {
			o.strategy = s
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(o *Orchestrator) {
		if log != nil {
			o.log = log
		}
	}
}

// New creates an Orchestrator.
func New(cfg Config, dedup DedupStore, gw Gateway, retries RetryTracker, queue Requeuer, status StatusPublisher, opts ...Option) *Orchestrator {
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	dedupTTL := cfg.DedupTTL
	if dedupTTL <= 0 {
		dedupTTL = time.Hour
	}

	o := &Orchestrator{
		dedup:      dedup,
		gw:         gw,
		retries:    retries,
		queue:      queue,
		status:     status,
		strategy:   backoff.Exponential{Initial: time.Second, Max: 30 * time.Second},
		maxRetries: maxRetries,
		dedupTTL:   dedupTTL,
		log:        slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Deliver processes one job to a terminal outcome. A returned error means the
// job's fate could not be recorded anywhere (requeue, dead-letter or retry
// accounting failed); the caller must leave the originating message
// unacknowledged so the broker redelivers it.
func (o *Orchestrator) Deliver(ctx context.Context, job notification.Job) (Outcome, error) {
	log := o.log.With(
		slog.String("notification_id", job.NotificationID),
		slog.String("request_id", job.RequestID),
	)

	duplicate, err := o.dedup.Exists(ctx, job.RequestID)
	if err != nil {
		// Degraded mode: an unreachable dedup store must not block delivery.
		// Possible duplicate sends are accepted for availability.
		log.WarnContext(ctx, "dedup store unavailable, assuming not a duplicate", slog.Any("error", err))
		duplicate = false
	}
	if duplicate {
		// Already delivered earlier; its status events were emitted then.
		log.InfoContext(ctx, "duplicate notification skipped")
		return OutcomeSkipped, nil
	}

	o.status.Publish(ctx, job.NotificationID, notification.StatusPending, nil)

	_, sendErr := o.gw.Send(ctx, job)
	if sendErr == nil {
		return o.completeDelivered(ctx, log, job)
	}

	log.WarnContext(ctx, "push delivery attempt failed",
		slog.String("kind", string(gateway.KindOf(sendErr))),
		slog.Any("error", sendErr))

	return o.handleFailure(ctx, log, job, sendErr)
}

func (o *Orchestrator) completeDelivered(ctx context.Context, log *slog.Logger, job notification.Job) (Outcome, error) {
	o.status.Publish(ctx, job.NotificationID, notification.StatusDelivered, nil)

	if err := o.dedup.Mark(ctx, job.RequestID, o.dedupTTL); err != nil {
		// The delivery already happened; a missing dedup record only means a
		// circulating duplicate might be sent again.
		log.WarnContext(ctx, "failed to write dedup record", slog.Any("error", err))
	}
	if err := o.retries.Forget(ctx, job.NotificationID); err != nil {
		log.WarnContext(ctx, "failed to clear retry counter", slog.Any("error", err))
	}

	log.InfoContext(ctx, "push notification delivered")
	return OutcomeDelivered, nil
}

func (o *Orchestrator) handleFailure(ctx context.Context, log *slog.Logger, job notification.Job, sendErr error) (Outcome, error) {
	failures, err := o.retries.Incr(ctx, job.NotificationID)
	if err != nil {
		// Without the counter the retry budget is unknown; surface the job
		// back to the broker rather than guess.
		return "", errors.Join(ErrRetryTracking, err)
	}

	body, err := job.Encode()
	if err != nil {
		return "", errors.Join(ErrRequeue, err)
	}

	if failures <= o.maxRetries {
		delay := o.strategy.Delay(failures - 1)
		if err := o.queue.ScheduleRetry(ctx, body, delay); err != nil {
			return "", errors.Join(ErrRequeue, err)
		}

		log.InfoContext(ctx, "retry scheduled",
			slog.Int("attempt", failures),
			slog.Int("max_retries", o.maxRetries),
			slog.Duration("delay", delay))
		return OutcomeRetryScheduled, nil
	}

	o.status.Publish(ctx, job.NotificationID, notification.StatusFailed, sendErr)

	if err := o.queue.PublishDead(ctx, body); err != nil {
		return "", errors.Join(ErrDeadLetter, err)
	}
	if err := o.retries.Forget(ctx, job.NotificationID); err != nil {
		log.WarnContext(ctx, "failed to clear retry counter", slog.Any("error", err))
	}

	log.ErrorContext(ctx, "push notification dead-lettered",
		slog.Int("attempts", failures),
		slog.Any("error", sendErr))
	return OutcomeDeadLettered, nil
}
