package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

// GeminiConfig configures the Gemini provider.
type GeminiConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// DefaultGeminiConfig returns the default Gemini settings without a key.
func DefaultGeminiConfig() GeminiConfig {
	return GeminiConfig{
		Model:   "gemini-2.5-flash",
		Timeout: 120 * time.Second,
	}
}

// GeminiProvider requests structured output with a response schema.
type GeminiProvider struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewGeminiProvider creates the provider. A missing key is a ConfigError.
func NewGeminiProvider(ctx context.Context, cfg GeminiConfig) (*GeminiProvider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, &ConfigError{Provider: ProviderGemini, Reason: "GEMINI_API_KEY is not set"}
	}
	def := DefaultGeminiConfig()
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, &ConfigError{Provider: ProviderGemini, Reason: err.Error()}
	}
	return &GeminiProvider{client: client, model: cfg.Model, timeout: cfg.Timeout}, nil
}

// Name implements Provider.
func (p *GeminiProvider) Name() string { return ProviderGemini }

// GenerateJSON implements Provider.
func (p *GeminiProvider) GenerateJSON(ctx context.Context, pr Prompt) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	gc := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(float32(pr.Temperature)),
		ResponseMIMEType: "application/json",
	}
	if pr.System != "" {
		gc.SystemInstruction = genai.NewContentFromText(pr.System, genai.RoleUser)
	}
	if pr.Schema != nil {
		schema, err := toGenaiSchema(pr.Schema)
		if err != nil {
			return "", &ConfigError{Provider: ProviderGemini, Reason: err.Error()}
		}
		gc.ResponseSchema = schema
	}

	resp, err := p.client.Models.GenerateContent(callCtx, p.model, genai.Text(pr.User), gc)
	if err != nil {
		// only the caller's context counts as cancellation; the inference
		// timeout is an ordinary request failure
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return "", &GenerativeServiceError{Provider: ProviderGemini, StatusCode: apiErr.Code, Err: err}
		}
		return "", &GenerativeServiceError{Provider: ProviderGemini, Err: err}
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// toGenaiSchema converts the JSON-schema subset used by prompts.
func toGenaiSchema(m map[string]any) (*genai.Schema, error) {
	s := &genai.Schema{}
	switch t, _ := m["type"].(string); t {
	case "object":
		s.Type = genai.TypeObject
	case "array":
		s.Type = genai.TypeArray
	case "string":
		s.Type = genai.TypeString
	case "integer":
		s.Type = genai.TypeInteger
	case "number":
		s.Type = genai.TypeNumber
	case "boolean":
		s.Type = genai.TypeBoolean
	default:
		return nil, fmt.Errorf("unsupported schema type %q", t)
	}

	if props, ok := m["properties"].(map[string]any); ok {
		s.Properties = make(map[string]*genai.Schema, len(props))
		for name, raw := range props {
			sub, ok := raw.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("property %s: not an object", name)
			}
			conv, err := toGenaiSchema(sub)
			if err != nil {
				return nil, fmt.Errorf("property %s: %w", name, err)
			}
			s.Properties[name] = conv
		}
	}
	if items, ok := m["items"].(map[string]any); ok {
		conv, err := toGenaiSchema(items)
		if err != nil {
			return nil, fmt.Errorf("items: %w", err)
		}
		s.Items = conv
	}
	if req, ok := m["required"].([]string); ok {
		s.Required = append([]string(nil), req...)
	}
	if v, ok := m["minItems"].(int); ok {
		s.MinItems = genai.Ptr(int64(v))
	}
	if v, ok := m["maxItems"].(int); ok {
		s.MaxItems = genai.Ptr(int64(v))
	}
	return s, nil
}
