// Package consumer runs the work-queue read loop: it fetches messages from
// the broker under a bounded prefetch window, decodes each payload and hands
// it to the delivery orchestrator on its own goroutine.
//
// Acknowledgment policy: every message is acked exactly once unless the
// orchestrator reports that the job's outcome could not be recorded, in which
// case the message is left pending for broker redelivery. Malformed payloads
// and handler panics are acked and logged rather than redelivered.
package consumer
