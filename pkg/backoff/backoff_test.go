package backoff_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/pushpipe/pkg/backoff"
)

func TestExponential_Delay(t *testing.T) {
	t.Parallel()

	t.Run("doubles per attempt without jitter", func(t *testing.T) {
		t.Parallel()

		s := backoff.Exponential{Initial: time.Second, Max: time.Minute}

		assert.Equal(t, 1*time.Second, s.Delay(0))
		assert.Equal(t, 2*time.Second, s.Delay(1))
		assert.Equal(t, 4*time.Second, s.Delay(2))
		assert.Equal(t, 8*time.Second, s.Delay(3))
	})

	t.Run("strictly increasing until cap", func(t *testing.T) {
		t.Parallel()

		s := backoff.Exponential{Initial: time.Second, Max: time.Hour}

		prev := time.Duration(0)
		for attempt := range 10 {
			d := s.Delay(attempt)
			assert.Greater(t, d, prev, "attempt %d", attempt)
			prev = d
		}
	})

	t.Run("capped at max", func(t *testing.T) {
		t.Parallel()

		s := backoff.Exponential{Initial: time.Second, Max: 5 * time.Second}
		assert.Equal(t, 5*time.Second, s.Delay(10))
	})

	t.Run("negative attempt treated as zero", func(t *testing.T) {
		t.Parallel()

		s := backoff.Exponential{Initial: time.Second, Max: time.Minute}
		assert.Equal(t, time.Second, s.Delay(-1))
	})

	t.Run("zero value applies defaults", func(t *testing.T) {
		t.Parallel()

		var s backoff.Exponential
		assert.Equal(t, time.Second, s.Delay(0))
		assert.Equal(t, 2*time.Second, s.Delay(1))
		assert.Equal(t, 30*time.Second, s.Delay(20))
	})

	t.Run("jitter stays within bounds", func(t *testing.T) {
		t.Parallel()

		s := backoff.Exponential{Initial: time.Second, Max: time.Hour, Jitter: 0.1}
		for range 100 {
			d := s.Delay(3)
			assert.GreaterOrEqual(t, d, 7200*time.Millisecond)
			assert.LessOrEqual(t, d, 8800*time.Millisecond)
		}
	})
}

func TestFixed_Delay(t *testing.T) {
	t.Parallel()

	s := backoff.Fixed{Interval: 3 * time.Second}
	assert.Equal(t, 3*time.Second, s.Delay(0))
	assert.Equal(t, 3*time.Second, s.Delay(5))
	assert.Equal(t, time.Duration(0), s.Delay(-1))
}
