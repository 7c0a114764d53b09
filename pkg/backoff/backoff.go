package backoff

import (
	"math"
	"math/rand"
	"time"
)

// Strategy calculates the delay before a retry attempt. Implementations must
// be safe for concurrent use. Attempt counting starts at 0 for the delay
// before the first retry.
type Strategy interface {
	Delay(attempt int) time.Duration
}

// Exponential doubles the delay on every attempt:
// Delay(k) = min(Initial * Multiplier^k, Max), optionally jittered.
type Exponential struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	// Jitter spreads delays by ±Jitter fraction to avoid coordinated retry
	// storms. Zero keeps delays deterministic.
	Jitter float64
}

// Delay returns the backoff duration for the given attempt number.
func (e Exponential) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	initial := e.Initial
	if initial <= 0 {
		initial = time.Second
	}
	max := e.Max
	if max <= 0 {
		max = 30 * time.Second
	}
	multiplier := e.Multiplier
	if multiplier <= 0 {
		multiplier = 2
	}

	d := float64(initial) * math.Pow(multiplier, float64(attempt))

	if e.Jitter > 0 {
		d *= 1 + (rand.Float64()*2-1)*e.Jitter
	}
	if d > float64(max) {
		d = float64(max)
	}
	return time.Duration(d)
}

// Fixed returns the same delay for every attempt.
type Fixed struct {
	Interval time.Duration
}

// Delay returns the fixed interval regardless of attempt number.
func (f Fixed) Delay(attempt int) time.Duration {
	if attempt < 0 {
		return 0
	}
	return f.Interval
}
