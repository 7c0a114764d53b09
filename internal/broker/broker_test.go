package broker_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/pushpipe/internal/broker"
)

func testConfig() broker.Config {
	return broker.Config{
		WorkStream:   "push:stream:work",
		DeadStream:   "push:stream:dead",
		StatusStream: "push:stream:status",
		Group:        "push-workers",
		Block:        20 * time.Millisecond,
		RetrySet:     "push:retry:scheduled",
		StatusMaxLen: 1000,
	}
}

func newTestBroker(t *testing.T) (*broker.Broker, redis.UniversalClient) {
	t.Helper()

	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	b := broker.New(client, testConfig(), nil)
	require.NoError(t, b.EnsureGroup(context.Background()))
	return b, client
}

func streamBodies(t *testing.T, client redis.UniversalClient, stream string) []string {
	t.Helper()

	entries, err := client.XRange(context.Background(), stream, "-", "+").Result()
	require.NoError(t, err)

	out := make([]string, 0, len(entries))
	for _, e := range entries {
		body, ok := e.Values["body"].(string)
		require.True(t, ok, "stream entry is missing the body field")
		out = append(out, body)
	}
	return out
}

func TestBroker_EnsureGroupIdempotent(t *testing.T) {
	t.Parallel()

	b, _ := newTestBroker(t)
	require.NoError(t, b.EnsureGroup(context.Background()), "existing group must be tolerated")
}

func TestBroker_PublishFetchAck(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	b, _ := newTestBroker(t)

	require.NoError(t, b.PublishWork(ctx, []byte(`{"notification_id":"n1"}`)))

	msgs, err := b.Fetch(ctx, "worker-1", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, `{"notification_id":"n1"}`, string(msgs[0].Body))
	assert.NotEmpty(t, msgs[0].ID)

	require.NoError(t, b.Ack(ctx, msgs[0].ID))

	// The stream holds no new entries; an acked one must not come back.
	msgs, err = b.Fetch(ctx, "worker-1", 10)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestBroker_FetchHonorsCount(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	b, _ := newTestBroker(t)

	for range 5 {
		require.NoError(t, b.PublishWork(ctx, []byte("job")))
	}

	msgs, err := b.Fetch(ctx, "worker-1", 2)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
}

func TestBroker_PublishDead(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	b, client := newTestBroker(t)

	require.NoError(t, b.PublishDead(ctx, []byte("exhausted-job")))

	assert.Equal(t, []string{"exhausted-job"}, streamBodies(t, client, testConfig().DeadStream))
	assert.Empty(t, streamBodies(t, client, testConfig().WorkStream),
		"dead-lettered payloads must not land on the work stream")
}

func TestBroker_PublishStatus(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	b, client := newTestBroker(t)

	require.NoError(t, b.PublishStatus(ctx, []byte(`{"status":"delivered"}`)))

	assert.Equal(t, []string{`{"status":"delivered"}`}, streamBodies(t, client, testConfig().StatusStream))
}

func TestBroker_ScheduleRetryAndPromoteDue(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	b, _ := newTestBroker(t)

	// One entry already due, one far in the future.
	require.NoError(t, b.ScheduleRetry(ctx, []byte("due-job"), -time.Second))
	require.NoError(t, b.ScheduleRetry(ctx, []byte("future-job"), time.Hour))

	promoted, err := b.PromoteDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, promoted)

	// The exact payload round-trips: the delay-queue member prefix must be
	// stripped before the body re-enters the work stream.
	msgs, err := b.Fetch(ctx, "worker-1", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "due-job", string(msgs[0].Body))

	remaining, err := b.ScheduledRetries(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, remaining, "the future entry stays parked")

	promoted, err = b.PromoteDue(ctx)
	require.NoError(t, err)
	assert.Zero(t, promoted, "promoted entries must not be promoted again")
}

func TestBroker_ScheduleRetryIdenticalPayloads(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	b, _ := newTestBroker(t)

	// Two deliveries retrying the same serialized job must stay distinct
	// delay-queue entries instead of collapsing into one sorted-set member.
	require.NoError(t, b.ScheduleRetry(ctx, []byte("same-payload"), -time.Second))
	require.NoError(t, b.ScheduleRetry(ctx, []byte("same-payload"), -time.Second))

	parked, err := b.ScheduledRetries(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, parked)

	promoted, err := b.PromoteDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, promoted)

	msgs, err := b.Fetch(ctx, "worker-1", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "same-payload", string(msgs[0].Body))
	assert.Equal(t, "same-payload", string(msgs[1].Body))
}

func TestBroker_QueueDepth(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	b, _ := newTestBroker(t)

	depth, err := b.QueueDepth(ctx)
	require.NoError(t, err)
	assert.Zero(t, depth)

	require.NoError(t, b.PublishWork(ctx, []byte("a")))
	require.NoError(t, b.PublishWork(ctx, []byte("b")))

	depth, err = b.QueueDepth(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, depth)
}
