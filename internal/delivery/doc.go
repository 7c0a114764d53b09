// Package delivery contains the orchestrator that drives a push notification
// job through its lifecycle: duplicate suppression, the guarded gateway send,
// and the retry/dead-letter policy for failures.
//
// Delivery is at-least-once. The dedup store narrows the duplicate window but
// is consulted optimistically: if it is unreachable the job is sent anyway.
// Retries do not occupy a consumer slot; a failed job is parked on a delay
// queue and re-enters the work stream when its backoff elapses.
//
// Usage:
//
//	orch := delivery.New(cfg, dedupStore, gatewayClient, tracker, broker, statusPub,
//		delivery.WithLogger(log),
//	)
//
//	outcome, err := orch.Deliver(ctx, job)
//	if err != nil {
//		// leave the message unacked; the broker will redeliver
//	}
package delivery
