// Package gateway wraps the external push gateway (FCM HTTP v1) behind a
// bounded-timeout HTTP call and a shared circuit breaker.
//
// Send returns either a Receipt or a typed *Error carrying a FailureKind.
// Every failure kind, including a breaker rejection, consumes a retry
// attempt upstream; the breaker changes failure latency during an outage,
// never delivery semantics.
package gateway
