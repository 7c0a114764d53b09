// Package status publishes notification lifecycle events to the status
// topic. Publication is best-effort: observers get pending, delivered and
// failed transitions, but a publish failure never blocks delivery.
package status
