// Package backoff provides retry delay strategies.
//
// The delivery pipeline uses deterministic exponential backoff (1s, 2s, 4s
// for attempts 0, 1, 2) when scheduling retries of failed notifications:
//
//	strategy := backoff.Exponential{Initial: time.Second, Max: 30 * time.Second}
//	delay := strategy.Delay(attempt)
package backoff
