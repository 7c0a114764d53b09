package notification

import "time"

// Status is a delivery lifecycle state published to the status topic.
type Status string

const (
	StatusPending   Status = "pending"
	StatusDelivered Status = "delivered"
	StatusFailed    Status = "failed"
)

// StatusEvent is one append-only lifecycle transition. Events are published
// once per transition and never mutated.
type StatusEvent struct {
	NotificationID string    `json:"notification_id"`
	Status         Status    `json:"status"`
	Timestamp      time.Time `json:"timestamp"`
	Error          string    `json:"error,omitempty"`
}
