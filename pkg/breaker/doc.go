// Package breaker implements a mutex-guarded circuit breaker with explicit
// Allow / RecordSuccess / RecordFailure operations.
//
// It protects a single shared downstream dependency (one gateway, one
// breaker): after a run of consecutive failures the circuit opens and calls
// fail immediately without touching the network, then half-opens after a
// cooldown to probe for recovery.
//
//	cb := breaker.New(
//	    breaker.WithFailureThreshold(5),
//	    breaker.WithOpenInterval(time.Minute),
//	)
//
//	if !cb.Allow() {
//	    return ErrCircuitOpen
//	}
//	err := call()
//	if err != nil {
//	    cb.RecordFailure()
//	    return err
//	}
//	cb.RecordSuccess()
//
// Opening the circuit changes failure latency, not delivery semantics:
// rejected calls are reported to the caller as ordinary failures.
package breaker
