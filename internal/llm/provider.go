// Package llm requests card lists from a generative model. Provider-specific
// request shaping lives in the providers; everything above them works with
// Prompt and raw JSON text.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// Provider names.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// Prompt is one structured-output request.
type Prompt struct {
	System      string
	User        string
	SchemaName  string
	Schema      map[string]any
	Temperature float64
}

// Provider sends a prompt to a generative model and returns the text of its
// single response.
type Provider interface {
	Name() string
	GenerateJSON(ctx context.Context, p Prompt) (string, error)
}

// ErrEmptyResponse is returned when the model answered with no usable text.
var ErrEmptyResponse = errors.New("generative service returned an empty response")

// GenerativeServiceError wraps a transport or non-success failure from the
// generative backend.
type GenerativeServiceError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *GenerativeServiceError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s request failed (HTTP %d): %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s request failed: %v", e.Provider, e.Err)
}

func (e *GenerativeServiceError) Unwrap() error { return e.Err }

// MalformedResponseError reports text that is not the expected JSON shape.
type MalformedResponseError struct {
	Raw string
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed generative response: %v", e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// ConfigError reports a provider that cannot be used as configured, such as
// a missing API key.
type ConfigError struct {
	Provider string
	Reason   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s provider misconfigured: %s", e.Provider, e.Reason)
}
