package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/pushpipe/internal/health"
)

type fakeQueue struct {
	depth     int64
	depthErr  error
	sched     int64
	schedErr  error
}

func (f *fakeQueue) QueueDepth(context.Context) (int64, error)       { return f.depth, f.depthErr }
func (f *fakeQueue) ScheduledRetries(context.Context) (int64, error) { return f.sched, f.schedErr }

type fakeRetries struct {
	active int
	err    error
}

func (f *fakeRetries) Active(context.Context) (int, error) { return f.active, f.err }

type fakeBreaker struct{ open bool }

func (f *fakeBreaker) Open() bool { return f.open }

type fakeWorker struct{ processing int64 }

func (f *fakeWorker) Processing() int64 { return f.processing }

func newHandler(ping error, queue *fakeQueue, retries *fakeRetries, breaker *fakeBreaker, worker *fakeWorker) *health.Handler {
	return health.New(
		"push-worker",
		func(context.Context) error { return ping },
		queue, retries, breaker, worker,
		nil,
	)
}

func TestHandler_Health(t *testing.T) {
	t.Parallel()

	h := newHandler(nil, &fakeQueue{}, &fakeRetries{}, &fakeBreaker{}, &fakeWorker{})

	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "push-worker", body["service"])
	assert.Equal(t, true, body["queue_connected"])
	assert.Equal(t, true, body["redis_connected"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestHandler_Health_Degraded(t *testing.T) {
	t.Parallel()

	h := newHandler(errors.New("connection refused"), &fakeQueue{}, &fakeRetries{}, &fakeBreaker{}, &fakeWorker{})

	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, false, body["queue_connected"])
	assert.Equal(t, false, body["redis_connected"])
}

func TestHandler_Metrics(t *testing.T) {
	t.Parallel()

	h := newHandler(nil,
		&fakeQueue{depth: 42, sched: 7},
		&fakeRetries{active: 3},
		&fakeBreaker{open: true},
		&fakeWorker{processing: 2},
	)

	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Success bool `json:"success"`
		Data    struct {
			QueueLength        int64 `json:"queue_length"`
			ScheduledRetries   int64 `json:"scheduled_retries"`
			ActiveRetries      int   `json:"active_retries"`
			CircuitBreakerOpen bool  `json:"circuit_breaker_open"`
			IsProcessing       bool  `json:"is_processing"`
		} `json:"data"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.True(t, body.Success)
	assert.Empty(t, body.Message)
	assert.EqualValues(t, 42, body.Data.QueueLength)
	assert.EqualValues(t, 7, body.Data.ScheduledRetries)
	assert.Equal(t, 3, body.Data.ActiveRetries)
	assert.True(t, body.Data.CircuitBreakerOpen)
	assert.True(t, body.Data.IsProcessing)
}

func TestHandler_Metrics_PartialFailure(t *testing.T) {
	t.Parallel()

	h := newHandler(nil,
		&fakeQueue{depthErr: errors.New("redis down"), sched: 7},
		&fakeRetries{active: 3},
		&fakeBreaker{},
		&fakeWorker{},
	)

	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code, "a partially blind metrics endpoint still responds")

	var body struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
		Data    struct {
			QueueLength      int64 `json:"queue_length"`
			ScheduledRetries int64 `json:"scheduled_retries"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.False(t, body.Success)
	assert.Equal(t, "some gauges unavailable", body.Message)
	assert.Zero(t, body.Data.QueueLength)
	assert.EqualValues(t, 7, body.Data.ScheduledRetries)
}
