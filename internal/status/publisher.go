package status

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/dmitrymomot/pushpipe/internal/notification"
)

// Topic is the transport the publisher appends events to.
type Topic interface {
	PublishStatus(ctx context.Context, body []byte) error
}

// Publisher emits lifecycle events to the status topic. Status is
// observational, not a delivery gate: publish failures are logged and
// swallowed so they can never block or fail a delivery attempt.
type Publisher struct {
	topic Topic
	log   *slog.Logger
	now   func() time.Time
}

// New creates a Publisher.
func New(topic Topic, log *slog.Logger) *Publisher {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Publisher{topic: topic, log: log, now: time.Now}
}

// Publish emits one lifecycle transition for the notification. The error
// argument is recorded on failed events and ignored otherwise.
func (p *Publisher) Publish(ctx context.Context, notificationID string, st notification.Status, cause error) {
	event := notification.StatusEvent{
		NotificationID: notificationID,
		Status:         st,
		Timestamp:      p.now().UTC(),
	}
	if cause != nil {
		event.Error = cause.Error()
	}

	body, err := json.Marshal(event)
	if err != nil {
		p.log.ErrorContext(ctx, "failed to marshal status event",
			slog.String("notification_id", notificationID),
			slog.Any("error", err))
		return
	}

	if err := p.topic.PublishStatus(ctx, body); err != nil {
		p.log.ErrorContext(ctx, "failed to publish status event",
			slog.String("notification_id", notificationID),
			slog.String("status", string(st)),
			slog.Any("error", err))
		return
	}

	p.log.DebugContext(ctx, "status event published",
		slog.String("notification_id", notificationID),
		slog.String("status", string(st)))
}
