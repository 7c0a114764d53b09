// Package retry tracks per-notification delivery attempt counts.
//
// The counters feed the retry-vs-dead-letter decision. The Redis-backed
// tracker is the production implementation: it shares the retry budget
// across consumer instances and survives restarts, closing the consistency
// gap a process-local counter would have. Counters carry a TTL exceeding the
// total retry window so stale entries expire on their own.
package retry
