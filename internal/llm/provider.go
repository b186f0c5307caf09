package llm

import (
	"context"
	"errors"
	"fmt"
)

// ProviderName identifies a supported LLM provider.
type ProviderName string

const (
	ProviderOpenAI    ProviderName = "openai"
	ProviderAnthropic ProviderName = "anthropic"
	ProviderGemini    ProviderName = "gemini"
	ProviderOllama    ProviderName = "ollama"
	// ProviderNone disables completions; every call fails and callers
	// degrade to their fallback output.
	ProviderNone ProviderName = "none"
)

var (
	// ErrEmptyCompletion is returned when a provider answers without text.
	ErrEmptyCompletion = errors.New("llm: empty completion")
	// ErrDisabled is returned by the "none" provider.
	ErrDisabled = errors.New("llm: completions disabled")
)

// CompleteOptions controls per-request LLM parameters.
// A nil value uses provider-specific defaults.
type CompleteOptions struct {
	Temperature *float32
	MaxTokens   int
}

// Temperature returns a pointer to t, for use in CompleteOptions.
func Temperature(t float32) *float32 { return &t }

// ProviderConfig holds the configuration needed to construct a Provider.
type ProviderConfig struct {
	Name       ProviderName
	APIKey     string
	Model      string
	BaseURL    string // optional override for OpenAI-compatible endpoints
	OllamaHost string
}

// Provider abstracts an LLM completion backend.
type Provider interface {
	Complete(ctx context.Context, system, prompt string, opts *CompleteOptions) (string, error)
}

// NewProvider creates a Provider for the given configuration.
func NewProvider(ctx context.Context, cfg ProviderConfig) (Provider, error) {
	switch cfg.Name {
	case ProviderOpenAI:
		return newOpenAI(cfg.APIKey, cfg.Model, cfg.BaseURL), nil
	case ProviderAnthropic:
		return newAnthropic(cfg.APIKey, cfg.Model), nil
	case ProviderGemini:
		return newGemini(ctx, cfg.APIKey, cfg.Model)
	case ProviderOllama:
		return newOllama(cfg.OllamaHost, cfg.Model), nil
	case ProviderNone:
		return disabled{}, nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", cfg.Name)
	}
}

type disabled struct{}

func (disabled) Complete(context.Context, string, string, *CompleteOptions) (string, error) {
	return "", ErrDisabled
}
