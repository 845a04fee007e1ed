package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Generator produces a text reply for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	// Model names the backing model for response payloads.
	Model() string
}

// ErrNotConfigured is returned when a generator is selected without the
// credentials it needs.
var ErrNotConfigured = errors.New("llm gateway not configured")

// Config controls generator construction.
type Config struct {
	Provider string

	GeminiAPIKey string
	GeminiModel  string

	OpenAIAPIKey string
	OpenAIModel  string

	HTTPURL string
}

// NewGenerator resolves the configured LLM backend. Mode "auto" prefers
// Gemini, then OpenAI, then a generic HTTP endpoint. Without any
// credentials it resolves to a disabled generator so the missing key
// surfaces per request rather than at startup.
func NewGenerator(ctx context.Context, cfg Config) (Generator, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if mode == "" {
		mode = "auto"
	}

	switch mode {
	case "auto":
		if strings.TrimSpace(cfg.GeminiAPIKey) != "" {
			return NewGeminiGenerator(ctx, GeminiConfig{APIKey: cfg.GeminiAPIKey, Model: cfg.GeminiModel})
		}
		if strings.TrimSpace(cfg.OpenAIAPIKey) != "" {
			return NewOpenAIGenerator(OpenAIConfig{APIKey: cfg.OpenAIAPIKey, Model: cfg.OpenAIModel})
		}
		if strings.TrimSpace(cfg.HTTPURL) != "" {
			return NewHTTPGenerator(cfg.HTTPURL), nil
		}
		return NewDisabledGenerator(cfg.GeminiModel), nil
	case "gemini":
		if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
			return nil, fmt.Errorf("gemini: %w", ErrNotConfigured)
		}
		return NewGeminiGenerator(ctx, GeminiConfig{APIKey: cfg.GeminiAPIKey, Model: cfg.GeminiModel})
	case "openai":
		if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
			return nil, fmt.Errorf("openai: %w", ErrNotConfigured)
		}
		return NewOpenAIGenerator(OpenAIConfig{APIKey: cfg.OpenAIAPIKey, Model: cfg.OpenAIModel})
	case "http":
		if strings.TrimSpace(cfg.HTTPURL) == "" {
			return nil, errors.New("LLM_HTTP_URL is required for http mode")
		}
		return NewHTTPGenerator(cfg.HTTPURL), nil
	case "mock":
		return NewMockGenerator(), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider %q (expected auto|gemini|openai|http|mock)", cfg.Provider)
	}
}
