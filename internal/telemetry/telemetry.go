// Package telemetry sends fire-and-forget usage events.
package telemetry

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Hover event tags. "single" marks an in-project reference, "dual" a
// project-qualified one.
const (
	EventModelHover = "provideModelHover"
	TagSingle       = "single"
	TagDual         = "dual"
)

// Sender records usage events. Sends must never block callers and failures
// are never surfaced.
type Sender interface {
	Enqueue(event string, props map[string]string)
}

// Client posts events as JSON to a collector endpoint. Every event carries
// the session ID assigned at construction.
type Client struct {
	endpoint  string
	sessionID string
	http      *http.Client
	logger    *slog.Logger
}

// New creates a telemetry client for the given endpoint.
func New(endpoint string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		endpoint:  endpoint,
		sessionID: uuid.NewString(),
		http:      &http.Client{Timeout: 5 * time.Second},
		logger:    logger,
	}
}

type payload struct {
	Event     string            `json:"event"`
	SessionID string            `json:"session_id"`
	Timestamp time.Time         `json:"timestamp"`
	Props     map[string]string `json:"props,omitempty"`
}

// Enqueue sends the event in the background. No retries, no ordering
// guarantee; a failed send is logged at debug and dropped.
func (c *Client) Enqueue(event string, props map[string]string) {
	p := payload{
		Event:     event,
		SessionID: c.sessionID,
		Timestamp: time.Now().UTC(),
		Props:     props,
	}

	go func() {
		body, err := json.Marshal(p)
		if err != nil {
			c.logger.Debug("telemetry marshal failed", "event", event, "error", err)
			return
		}
		resp, err := c.http.Post(c.endpoint, "application/json", bytes.NewReader(body))
		if err != nil {
			c.logger.Debug("telemetry send failed", "event", event, "error", err)
			return
		}
		_ = resp.Body.Close()
	}()
}

// noop discards all events.
type noop struct{}

func (noop) Enqueue(string, map[string]string) {}

// Noop returns a Sender that discards everything. Used when telemetry is
// disabled or no endpoint is configured.
func Noop() Sender {
	return noop{}
}
