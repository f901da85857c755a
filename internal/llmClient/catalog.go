package llmclient

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderGemini Provider = "gemini"
	ProviderFake   Provider = "fake"
)

// ParseProvider accepts the provider names used in configuration.
// "nebius" is an alias for the OpenAI-compatible default.
func ParseProvider(s string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "openai", "nebius":
		return ProviderOpenAI, nil
	case "gemini":
		return ProviderGemini, nil
	case "fake":
		return ProviderFake, nil
	}
	return "", fmt.Errorf("unknown LLM provider %q", s)
}

// ClientConfig is what New needs to build one model client.
type ClientConfig struct {
	Provider    Provider
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
	OnUsage     UsageHandler
}

// New builds a raw (unwrapped) client for cfg.Provider.
func New(ctx context.Context, cfg ClientConfig) (LLMClient, error) {
	switch cfg.Provider {
	case ProviderOpenAI, "":
		return NewOpenAIClient(OpenAIOptions{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
			Timeout:     cfg.Timeout,
			OnUsage:     cfg.OnUsage,
		})
	case ProviderGemini:
		return NewGeminiClient(ctx, GeminiOptions{
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
			OnUsage:     cfg.OnUsage,
		})
	case ProviderFake:
		return NewFakeClient(), nil
	}
	return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
}
