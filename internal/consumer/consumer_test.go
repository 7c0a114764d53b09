package consumer_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/pushpipe/internal/broker"
	"github.com/dmitrymomot/pushpipe/internal/consumer"
	"github.com/dmitrymomot/pushpipe/internal/delivery"
	"github.com/dmitrymomot/pushpipe/internal/notification"
)

type fakeSource struct {
	mu      sync.Mutex
	pending []broker.Message
	acks    map[string]int
}

func newFakeSource(msgs ...broker.Message) *fakeSource {
	return &fakeSource{pending: msgs, acks: make(map[string]int)}
}

func (f *fakeSource) Fetch(ctx context.Context, _ string, count int) ([]broker.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.pending) == 0 {
		// Simulate the blocking read on an empty stream.
		f.mu.Unlock()
		select {
		case <-ctx.Done():
		case <-time.After(10 * time.Millisecond):
		}
		f.mu.Lock()
		return nil, nil
	}

	if count > len(f.pending) {
		count = len(f.pending)
	}
	batch := f.pending[:count]
	f.pending = f.pending[count:]
	return batch, nil
}

func (f *fakeSource) Ack(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acks[id]++
	return nil
}

func (f *fakeSource) ackCount(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.acks[id]
}

func (f *fakeSource) totalAcks() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.acks {
		n += c
	}
	return n
}

type fakeHandler struct {
	mu      sync.Mutex
	deliver func(job notification.Job) (delivery.Outcome, error)
	seen    []string
}

func (f *fakeHandler) Deliver(_ context.Context, job notification.Job) (delivery.Outcome, error) {
	f.mu.Lock()
	f.seen = append(f.seen, job.NotificationID)
	fn := f.deliver
	f.mu.Unlock()

	if fn != nil {
		return fn(job)
	}
	return delivery.OutcomeDelivered, nil
}

func (f *fakeHandler) handled() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.seen)
}

func encodedJob(t *testing.T, id string) []byte {
	t.Helper()
	job := notification.Job{
		NotificationID: id,
		RequestID:      "req-" + id,
		UserID:         "user-1",
		PushToken:      "device-token",
		Title:          "hello",
		Body:           "world",
	}
	body, err := job.Encode()
	require.NoError(t, err)
	return body
}

func runConsumer(t *testing.T, c *consumer.Consumer, done func() bool) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		_ = c.Run(ctx)
	}()

	require.Eventually(t, done, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop after cancel")
	}
}

func TestConsumer_AcksEveryHandledMessage(t *testing.T) {
	t.Parallel()

	source := newFakeSource(
		broker.Message{ID: "1-0", Body: encodedJob(t, "ntf-1")},
		broker.Message{ID: "2-0", Body: encodedJob(t, "ntf-2")},
		broker.Message{ID: "3-0", Body: encodedJob(t, "ntf-3")},
	)
	handler := &fakeHandler{}
	c := consumer.New(consumer.Config{Prefetch: 10}, source, handler)

	runConsumer(t, c, func() bool { return source.totalAcks() == 3 })

	assert.Equal(t, 3, handler.handled())
	for _, id := range []string{"1-0", "2-0", "3-0"} {
		assert.Equal(t, 1, source.ackCount(id), "message %s must be acked exactly once", id)
	}
}

func TestConsumer_AcksMalformedPayload(t *testing.T) {
	t.Parallel()

	source := newFakeSource(
		broker.Message{ID: "1-0", Body: []byte("not json")},
	)
	handler := &fakeHandler{}
	c := consumer.New(consumer.Config{Prefetch: 10}, source, handler)

	runConsumer(t, c, func() bool { return source.ackCount("1-0") == 1 })

	assert.Zero(t, handler.handled(), "malformed payloads never reach the handler")
}

func TestConsumer_LeavesUnresolvedDeliveryUnacked(t *testing.T) {
	t.Parallel()

	source := newFakeSource(
		broker.Message{ID: "1-0", Body: encodedJob(t, "ntf-1")},
		broker.Message{ID: "2-0", Body: encodedJob(t, "ntf-2")},
	)
	handler := &fakeHandler{deliver: func(job notification.Job) (delivery.Outcome, error) {
		if job.NotificationID == "ntf-1" {
			return "", errors.New("requeue failed")
		}
		return delivery.OutcomeDelivered, nil
	}}
	c := consumer.New(consumer.Config{Prefetch: 10}, source, handler)

	runConsumer(t, c, func() bool { return handler.handled() == 2 && source.ackCount("2-0") == 1 })

	assert.Zero(t, source.ackCount("1-0"), "unresolved delivery must stay pending for redelivery")
	assert.Equal(t, 1, source.ackCount("2-0"))
}

func TestConsumer_AcksOnPanic(t *testing.T) {
	t.Parallel()

	source := newFakeSource(
		broker.Message{ID: "1-0", Body: encodedJob(t, "ntf-1")},
	)
	handler := &fakeHandler{deliver: func(notification.Job) (delivery.Outcome, error) {
		panic("handler bug")
	}}
	c := consumer.New(consumer.Config{Prefetch: 10}, source, handler)

	runConsumer(t, c, func() bool { return source.ackCount("1-0") == 1 })
}

func TestConsumer_PrefetchBoundsConcurrency(t *testing.T) {
	t.Parallel()

	msgs := make([]broker.Message, 0, 6)
	for _, id := range []string{"1-0", "2-0", "3-0", "4-0", "5-0", "6-0"} {
		msgs = append(msgs, broker.Message{ID: id, Body: encodedJob(t, "ntf-"+id)})
	}
	source := newFakeSource(msgs...)

	release := make(chan struct{})
	handler := &fakeHandler{deliver: func(notification.Job) (delivery.Outcome, error) {
		<-release
		return delivery.OutcomeDelivered, nil
	}}
	c := consumer.New(consumer.Config{Prefetch: 2}, source, handler)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		_ = c.Run(ctx)
	}()

	require.Eventually(t, func() bool { return c.Processing() == 2 }, 2*time.Second, 5*time.Millisecond)

	// Give the loop a chance to overshoot; it must not.
	time.Sleep(50 * time.Millisecond)
	assert.EqualValues(t, 2, c.Processing(), "in-flight handlers must not exceed prefetch")

	close(release)
	require.Eventually(t, func() bool { return source.totalAcks() == 6 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop after cancel")
	}
}

func TestConsumer_GeneratedNameIsUnique(t *testing.T) {
	t.Parallel()

	a := consumer.New(consumer.Config{}, newFakeSource(), &fakeHandler{})
	b := consumer.New(consumer.Config{}, newFakeSource(), &fakeHandler{})

	assert.NotEmpty(t, a.Name())
	assert.NotEqual(t, a.Name(), b.Name())
}

func TestConsumer_NamedFromConfig(t *testing.T) {
	t.Parallel()

	c := consumer.New(consumer.Config{Name: "worker-1"}, newFakeSource(), &fakeHandler{})
	assert.Equal(t, "worker-1", c.Name())
}
