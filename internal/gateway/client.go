package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrymomot/pushpipe/internal/notification"
	"github.com/dmitrymomot/pushpipe/pkg/breaker"
)

// Config holds push gateway settings loadable from the environment.
type Config struct {
	ProjectID string `env:"FCM_PROJECT_ID,required"`
	// Endpoint overrides the default FCM v1 send URL; used against stubs.
	Endpoint            string        `env:"FCM_ENDPOINT"`
	Timeout             time.Duration `env:"FCM_TIMEOUT" envDefault:"10s"`
	CredentialsBase64   string        `env:"GOOGLE_APPLICATION_CREDENTIALS"`
	BreakerFailures     int           `env:"GATEWAY_BREAKER_FAILURES" envDefault:"5"`
	BreakerOpenInterval time.Duration `env:"GATEWAY_BREAKER_OPEN_INTERVAL" envDefault:"60s"`
}

// SendURL returns the configured endpoint or the default FCM v1 URL.
func (c Config) SendURL() string {
	if c.Endpoint != "" {
		return c.Endpoint
	}
	return fmt.Sprintf("https://fcm.googleapis.com/v1/projects/%s/messages:send", c.ProjectID)
}

// Receipt is the parsed success response from the gateway.
type Receipt struct {
	// Name is the gateway-assigned message resource name.
	Name string `json:"name"`
}

// fcmRequest is the wire shape of an FCM v1 send call.
type fcmRequest struct {
	Message fcmMessage `json:"message"`
}

type fcmMessage struct {
	Token        string            `json:"token"`
	Notification fcmNotification   `json:"notification"`
	Data         map[string]string `json:"data"`
}

type fcmNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Image string `json:"image,omitempty"`
}

// Client issues single push deliveries against the gateway, guarded by a
// shared circuit breaker. One gateway, one breaker: the instance is shared by
// every concurrently running job handler.
type Client struct {
	endpoint   string
	httpClient *http.Client
	tokens     TokenSource
	cb         *breaker.Breaker
	log        *slog.Logger
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client. The gateway timeout from Config
// still applies per request via context.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithBreaker sets a custom circuit breaker instance.
func WithBreaker(cb *breaker.Breaker) Option {
	return func(c *Client) {
		if cb != nil {
			c.cb = cb
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// New creates a gateway client from config and a credential source.
func New(cfg Config, tokens TokenSource, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	c := &Client{
		endpoint: cfg.SendURL(),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		tokens: tokens,
		cb: breaker.New(
			breaker.WithFailureThreshold(cfg.BreakerFailures),
			breaker.WithOpenInterval(cfg.BreakerOpenInterval),
		),
		log: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Breaker exposes the circuit breaker for the metrics surface.
func (c *Client) Breaker() *breaker.Breaker { return c.cb }

// Send delivers one notification. Success is any 2xx response with a JSON
// body. Failures come back as *Error with a classified kind; a rejected call
// while the circuit is open never touches the network but is still an
// ordinary failure to the caller.
func (c *Client) Send(ctx context.Context, job notification.Job) (*Receipt, error) {
	if !c.cb.Allow() {
		return nil, &Error{Kind: KindCircuitOpen, Err: ErrCircuitOpen}
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		// Credential failures say nothing about gateway health, so they do
		// not feed the breaker.
		return nil, &Error{Kind: KindCredential, Err: err}
	}

	payload, err := json.Marshal(fcmRequest{
		Message: fcmMessage{
			Token: job.PushToken,
			Notification: fcmNotification{
				Title: job.Title,
				Body:  job.Body,
				Image: job.Image,
			},
			Data: map[string]string{"link": job.Link},
		},
	})
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Err: fmt.Errorf("failed to marshal gateway request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.cb.RecordFailure()
		kind := KindNetwork
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			kind = KindTimeout
		}
		return nil, &Error{Kind: kind, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.cb.RecordFailure()
		detail := strings.ReplaceAll(string(body), "\n", " ")
		if len(detail) > 200 {
			detail = detail[:200] + "..."
		}
		return nil, &Error{
			Kind:       KindStatus,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, detail),
		}
	}

	var receipt Receipt
	if err := json.Unmarshal(body, &receipt); err != nil {
		// A 2xx with an unparseable body still delivered the notification.
		c.log.WarnContext(ctx, "gateway success response is not valid json",
			slog.String("notification_id", job.NotificationID))
	}

	c.cb.RecordSuccess()
	return &receipt, nil
}
