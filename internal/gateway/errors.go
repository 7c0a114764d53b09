package gateway

import (
	"errors"
	"fmt"
)

// FailureKind classifies a send failure into the closed set the delivery
// state machine branches on.
type FailureKind string

const (
	// KindCircuitOpen means the call was rejected without a network attempt.
	KindCircuitOpen FailureKind = "circuit_open"
	// KindTimeout means the request exceeded the gateway timeout.
	KindTimeout FailureKind = "timeout"
	// KindNetwork means the request failed before an HTTP status was received.
	KindNetwork FailureKind = "network"
	// KindStatus means the gateway answered with a non-2xx status.
	KindStatus FailureKind = "status"
	// KindCredential means a bearer token could not be obtained.
	KindCredential FailureKind = "credential"
)

// ErrCircuitOpen is the sentinel wrapped by circuit-open failures.
var ErrCircuitOpen = errors.New("push gateway circuit breaker is open")

// Error is the typed send failure returned by Client.Send. Every kind is an
// ordinary transient failure for retry accounting; the kind exists for
// logging and operator visibility, not for branching on retryability.
type Error struct {
	Kind       FailureKind
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("push gateway failure (%s, status %d): %v", e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("push gateway failure (%s): %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the failure kind from an error chain, or "" if the error
// did not originate from the gateway client.
func KindOf(err error) FailureKind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return ""
}
