// Package relay shapes inbound chat requests into Ollama payloads, forwards
// them, and probes upstream health. It holds no state between calls.
package relay

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/kalambet/chatrelay/internal/metrics"
	"github.com/kalambet/chatrelay/internal/ollama"
)

const (
	DefaultModel         = "deepseek-r1:8b"
	DefaultMessage       = "What is the meaning of life?"
	DefaultHealthTimeout = 5 * time.Second
)

// Health statuses.
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// Upstream is the subset of the Ollama client the relay needs.
type Upstream interface {
	Chat(ctx context.Context, req ollama.ChatRequest) (json.RawMessage, error)
	Ping(ctx context.Context, timeout time.Duration) error
}

// Defaults are substituted for fields a caller leaves out.
type Defaults struct {
	Model   string
	Message string
}

// Options configures a Relay. Zero values fall back to package defaults.
type Options struct {
	Defaults      Defaults
	HealthTimeout time.Duration
	Metrics       *metrics.Collector
	Logger        *slog.Logger
}

// HealthResult is the body of a /health response.
type HealthResult struct {
	Status string `json:"status"`
	Ollama string `json:"ollama,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Healthy reports whether the upstream probe passed.
func (h HealthResult) Healthy() bool {
	return h.Status == StatusHealthy
}

// Relay forwards chat requests to Ollama and checks its liveness.
type Relay struct {
	upstream      Upstream
	defaults      Defaults
	healthTimeout time.Duration
	metrics       *metrics.Collector
	logger        *slog.Logger
}

// New creates a Relay in front of upstream.
func New(upstream Upstream, opts Options) *Relay {
	if opts.Defaults.Model == "" {
		opts.Defaults.Model = DefaultModel
	}
	if opts.Defaults.Message == "" {
		opts.Defaults.Message = DefaultMessage
	}
	if opts.HealthTimeout <= 0 {
		opts.HealthTimeout = DefaultHealthTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Relay{
		upstream:      upstream,
		defaults:      opts.Defaults,
		healthTimeout: opts.HealthTimeout,
		metrics:       opts.Metrics,
		logger:        opts.Logger,
	}
}

// Defaults returns the values substituted for omitted fields.
func (r *Relay) Defaults() Defaults {
	return r.defaults
}

// Chat builds the outbound payload for in and returns the upstream's JSON
// response unchanged. Every failure is returned as-is; callers surface
// err.Error() to the client.
func (r *Relay) Chat(ctx context.Context, in ChatInput) (json.RawMessage, error) {
	payload := BuildPayload(in, r.defaults)

	start := time.Now()
	body, err := r.upstream.Chat(ctx, payload)
	elapsed := time.Since(start)
	r.metrics.ObserveUpstream("chat", err, elapsed)

	if err != nil {
		r.logger.WarnContext(ctx, "chat relay failed",
			"model", payload.Model, "duration_ms", elapsed.Milliseconds(), "error", err)
		return nil, err
	}
	r.logger.DebugContext(ctx, "chat relayed",
		"model", payload.Model, "duration_ms", elapsed.Milliseconds(), "bytes", len(body))
	return body, nil
}

// Health probes the upstream's model listing endpoint within the configured
// timeout.
func (r *Relay) Health(ctx context.Context) HealthResult {
	start := time.Now()
	err := r.upstream.Ping(ctx, r.healthTimeout)
	r.metrics.ObserveUpstream("tags", err, time.Since(start))

	if err != nil {
		r.logger.DebugContext(ctx, "upstream health probe failed", "error", err)
		return HealthResult{Status: StatusUnhealthy, Error: err.Error()}
	}
	return HealthResult{Status: StatusHealthy, Ollama: "running"}
}
