package notification

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Job is the unit of delivery work flowing through the pipeline.
//
// NotificationID is stable across retries of the same logical notification.
// RequestID identifies the original enqueue and is the deduplication key:
// duplicate deliveries of the same RequestID are suppressed even if
// NotificationID differs across in-transit copies.
type Job struct {
	NotificationID string         `json:"notification_id"`
	RequestID      string         `json:"request_id"`
	UserID         string         `json:"user_id,omitempty"`
	PushToken      string         `json:"push_token"`
	Title          string         `json:"title"`
	Body           string         `json:"body"`
	Image          string         `json:"image,omitempty"`
	Link           string         `json:"link,omitempty"`
	Priority       int            `json:"priority,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// NewJob creates a Job with fresh notification and request identifiers.
// Used by producers and operator replay tooling; the pipeline itself never
// changes identifiers when republishing a job.
func NewJob(pushToken, title, body string) Job {
	return Job{
		NotificationID: uuid.NewString(),
		RequestID:      uuid.NewString(),
		PushToken:      pushToken,
		Title:          title,
		Body:           body,
	}
}

// Validate checks the fields without which a job cannot be delivered.
func (j Job) Validate() error {
	if j.NotificationID == "" {
		return ErrMissingNotificationID
	}
	if j.RequestID == "" {
		return ErrMissingRequestID
	}
	if j.PushToken == "" {
		return ErrMissingPushToken
	}
	return nil
}

// Encode serializes the job for broker transport.
func (j Job) Encode() ([]byte, error) {
	return json.Marshal(j)
}

// DecodeJob parses a broker payload into a Job and validates it.
func DecodeJob(data []byte) (Job, error) {
	var j Job
	if err := json.Unmarshal(data, &j); err != nil {
		return Job{}, err
	}
	if err := j.Validate(); err != nil {
		return Job{}, err
	}
	return j, nil
}
