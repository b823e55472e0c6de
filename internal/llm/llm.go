package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pavelanni/careerprep/internal/apperr"
	"github.com/pavelanni/careerprep/internal/metrics"
)

// Provider constants for completion backend selection.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Request is a single-prompt completion request. Schema, when set, asks the
// backend for structured JSON output; it is only used for object-shaped
// responses.
type Request struct {
	Prompt      string
	SchemaName  string
	Schema      json.Marshaler
	Temperature float32
}

// Completer turns a prompt into raw completion text.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// CompleterFunc adapts a function to the Completer interface.
type CompleterFunc func(ctx context.Context, req Request) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// Config holds completion client configuration.
type Config struct {
	Provider string // "openai" or "gemini"
	BaseURL  string // optional custom endpoint
	APIKey   string
	Model    string
	Timeout  time.Duration // zero disables the client-side deadline
	// StructuredOutput enables JSON-schema response formats where the
	// backend supports them.
	StructuredOutput bool
}

type backend interface {
	complete(ctx context.Context, req Request) (string, error)
	ping(ctx context.Context) error
}

// Client applies the call timeout, error classification and metrics around a
// provider backend.
type Client struct {
	backend    backend
	provider   string
	model      string
	timeout    time.Duration
	structured bool
}

// New creates a completion client for cfg.Provider. Defaults to the
// OpenAI-compatible backend.
func New(ctx context.Context, cfg Config) (*Client, error) {
	provider := cfg.Provider
	if provider == "" {
		provider = ProviderOpenAI
	}

	var (
		b   backend
		err error
	)
	switch provider {
	case ProviderOpenAI:
		if cfg.Model == "" {
			cfg.Model = "gpt-4o-mini"
		}
		b = newOpenAIBackend(cfg)
	case ProviderGemini:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("API key is required for %s", provider)
		}
		if cfg.Model == "" {
			cfg.Model = "gemini-2.0-flash"
		}
		b, err = newGeminiBackend(ctx, cfg)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", provider)
	}

	return &Client{
		backend:    b,
		provider:   provider,
		model:      cfg.Model,
		timeout:    cfg.Timeout,
		structured: cfg.StructuredOutput,
	}, nil
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

// Provider returns the configured provider name.
func (c *Client) Provider() string { return c.provider }

// Complete sends one prompt and returns the raw text. Transport failures are
// classified as apperr.KindTransport, deadline overruns as apperr.KindTimeout.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	if !c.structured {
		req.Schema = nil
	}

	start := time.Now()
	raw, err := c.backend.complete(ctx, req)
	metrics.CompletionDuration.WithLabelValues(c.provider).Observe(time.Since(start).Seconds())
	if err != nil {
		kind := apperr.KindTransport
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			kind = apperr.KindTimeout
		}
		metrics.CompletionRequests.WithLabelValues(c.provider, string(kind)).Inc()
		return "", apperr.Wrap(kind, err, "%s completion", c.provider)
	}
	metrics.CompletionRequests.WithLabelValues(c.provider, "ok").Inc()

	slog.DebugContext(ctx, "LLM response",
		"provider", c.provider,
		"model", c.model,
		"duration_ms", time.Since(start).Milliseconds(),
		"raw", raw)
	return raw, nil
}

// Ping checks that the completion endpoint is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.backend.ping(ctx); err != nil {
		return fmt.Errorf("ping %s: %w", c.provider, err)
	}
	return nil
}
