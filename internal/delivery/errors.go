package delivery

import "errors"

var (
	// ErrRetryTracking indicates the failure counter could not be updated, so
	// the retry budget for the job is unknown.
	ErrRetryTracking = errors.New("failed to update retry counter")

	// ErrRequeue indicates a failed job could not be placed on the delay
	// queue for a later attempt.
	ErrRequeue = errors.New("failed to schedule retry")

	// ErrDeadLetter indicates an exhausted job could not be published to the
	// dead-letter queue.
	ErrDeadLetter = errors.New("failed to dead-letter notification")
)
