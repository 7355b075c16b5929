// Package completion talks to the local model server (an Ollama-compatible
// /api/chat endpoint) and classifies failures into typed errors so callers
// can decide the user-facing rendering.
package completion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Client produces one assistant completion for a (system prompt, message) pair.
type Client interface {
	Complete(ctx context.Context, systemPrompt, userMessage string) (string, error)
	// Ping reports whether the model server is reachable.
	Ping(ctx context.Context) error
}

// Config controls client construction.
type Config struct {
	Mode    string
	URL     string
	Model   string
	Timeout time.Duration
}

// New builds a client for the configured mode: http talks to the model
// server, mock answers deterministically, auto picks http when a URL is
// configured and mock otherwise.
func New(cfg Config) (Client, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "auto"
	}

	switch mode {
	case "auto":
		if strings.TrimSpace(cfg.URL) != "" {
			return NewHTTPClient(cfg.URL, cfg.Model, cfg.Timeout), nil
		}
		return NewMockClient(), nil
	case "http":
		if strings.TrimSpace(cfg.URL) == "" {
			return nil, errors.New("completion http mode requires a model server url")
		}
		return NewHTTPClient(cfg.URL, cfg.Model, cfg.Timeout), nil
	case "mock":
		return NewMockClient(), nil
	default:
		return nil, fmt.Errorf("unsupported completion mode %q", cfg.Mode)
	}
}
