package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Settings selects and configures a provider.
type Settings struct {
	Provider string
	Gemini   GeminiConfig
	OpenAI   OpenAIConfig
	Ollama   *OllamaConfig
	Logger   *slog.Logger
}

// NewProvider builds the provider named in s.Provider.
func NewProvider(ctx context.Context, s Settings) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(s.Provider)) {
	case ProviderGemini, "":
		return NewGeminiProvider(ctx, s.Gemini)
	case ProviderOpenAI:
		return NewOpenAIProvider(s.OpenAI)
	case ProviderOllama:
		cfg := s.Ollama
		if cfg == nil {
			cfg = DefaultOllamaConfig()
		}
		return NewOllamaClient(cfg), nil
	default:
		return nil, &ConfigError{Provider: s.Provider, Reason: fmt.Sprintf("unknown provider %q", s.Provider)}
	}
}

// unconfigured stands in for a provider whose settings are incomplete so
// that the service can start and report the problem per request.
type unconfigured struct {
	name string
	err  error
}

// NewUnconfiguredProvider returns a provider whose every call fails with err.
func NewUnconfiguredProvider(name string, err error) Provider {
	return &unconfigured{name: name, err: err}
}

func (u *unconfigured) Name() string { return u.name }

func (u *unconfigured) GenerateJSON(context.Context, Prompt) (string, error) {
	return "", u.err
}
