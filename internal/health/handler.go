package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// QueueStats exposes broker gauges for the metrics endpoint.
type QueueStats interface {
	QueueDepth(ctx context.Context) (int64, error)
	ScheduledRetries(ctx context.Context) (int64, error)
}

// RetryStats counts notifications with a live retry counter.
type RetryStats interface {
	Active(ctx context.Context) (int, error)
}

// BreakerStats reports whether the gateway circuit is currently open.
type BreakerStats interface {
	Open() bool
}

// WorkerStats reports in-flight message handling.
type WorkerStats interface {
	Processing() int64
}

// Pinger checks connectivity to a backing service.
type Pinger func(ctx context.Context) error

// Handler serves the operational HTTP surface: liveness plus pipeline gauges.
type Handler struct {
	service string
	redis   Pinger
	queue   QueueStats
	retries RetryStats
	breaker BreakerStats
	worker  WorkerStats
	log     *slog.Logger
}

// New creates a Handler for the named service.
func New(service string, redis Pinger, queue QueueStats, retries RetryStats, breaker BreakerStats, worker WorkerStats, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Handler{
		service: service,
		redis:   redis,
		queue:   queue,
		retries: retries,
		breaker: breaker,
		worker:  worker,
		log:     log,
	}
}

// Router mounts the operational endpoints.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/health", h.health)
	r.Get("/metrics", h.metrics)
	return r
}

type healthResponse struct {
	Status         string    `json:"status"`
	Service        string    `json:"service"`
	Timestamp      time.Time `json:"timestamp"`
	QueueConnected bool      `json:"queue_connected"`
	RedisConnected bool      `json:"redis_connected"`
}

// health reports liveness. The broker and the dedup/retry store share one
// Redis deployment, so both flags derive from the same ping; they stay
// separate fields because dashboards alert on them independently.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	connected := true
	if err := h.redis(ctx); err != nil {
		connected = false
		h.log.WarnContext(ctx, "health ping failed", slog.Any("error", err))
	}

	status := "healthy"
	code := http.StatusOK
	if !connected {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, healthResponse{
		Status:         status,
		Service:        h.service,
		Timestamp:      time.Now().UTC(),
		QueueConnected: connected,
		RedisConnected: connected,
	})
}

type metricsData struct {
	QueueLength        int64 `json:"queue_length"`
	ScheduledRetries   int64 `json:"scheduled_retries"`
	ActiveRetries      int   `json:"active_retries"`
	CircuitBreakerOpen bool  `json:"circuit_breaker_open"`
	IsProcessing       bool  `json:"is_processing"`
}

type metricsResponse struct {
	Success bool        `json:"success"`
	Data    metricsData `json:"data"`
	Message string      `json:"message,omitempty"`
}

// metrics reports pipeline gauges. Individual collection failures degrade the
// response instead of failing it; a partially blind metrics endpoint still
// beats a dead one during an incident.
func (h *Handler) metrics(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	var (
		data    metricsData
		degrade string
	)

	if n, err := h.queue.QueueDepth(ctx); err != nil {
		degrade = "some gauges unavailable"
		h.log.WarnContext(ctx, "failed to read queue depth", slog.Any("error", err))
	} else {
		data.QueueLength = n
	}

	if n, err := h.queue.ScheduledRetries(ctx); err != nil {
		degrade = "some gauges unavailable"
		h.log.WarnContext(ctx, "failed to read scheduled retries", slog.Any("error", err))
	} else {
		data.ScheduledRetries = n
	}

	if n, err := h.retries.Active(ctx); err != nil {
		degrade = "some gauges unavailable"
		h.log.WarnContext(ctx, "failed to count active retries", slog.Any("error", err))
	} else {
		data.ActiveRetries = n
	}

	data.CircuitBreakerOpen = h.breaker.Open()
	data.IsProcessing = h.worker.Processing() > 0

	writeJSON(w, http.StatusOK, metricsResponse{
		Success: degrade == "",
		Data:    data,
		Message: degrade,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
