// Package broker maps the pipeline's queueing needs onto Redis.
//
// Three Redis Streams carry the durable message flows: the work queue the
// consumer reads from, the dead-letter queue for jobs that exhausted their
// retries, and the fan-out status topic. The work stream is consumed through
// a consumer group, which gives the standard at-least-once contract: a
// message is owned by exactly one consumer until acknowledged with XACK, and
// messages pending on a crashed consumer are reclaimed via XAUTOCLAIM.
//
// Retries are not republished immediately. ScheduleRetry parks the payload in
// a sorted set scored by its due time, and RunScheduler promotes due entries
// back onto the work stream. This keeps consumer slots free during backoff
// instead of sleeping in the handler.
package broker
