// Package health serves the worker's operational HTTP surface: a liveness
// endpoint reporting backing-store connectivity and a metrics endpoint with
// pipeline gauges (queue depth, scheduled and active retries, circuit state,
// in-flight processing).
package health
