package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIConfig configures the OpenAI chat-completions provider.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// DefaultOpenAIConfig returns the default OpenAI settings without a key.
func DefaultOpenAIConfig() OpenAIConfig {
	return OpenAIConfig{
		Model:   "gpt-4o-mini",
		Timeout: 120 * time.Second,
	}
}

// OpenAIProvider requests structured output through a strict json_schema
// response format.
type OpenAIProvider struct {
	client openai.Client
	model  string
}

// NewOpenAIProvider creates the provider. A missing key is a ConfigError.
func NewOpenAIProvider(cfg OpenAIConfig) (*OpenAIProvider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, &ConfigError{Provider: ProviderOpenAI, Reason: "OPENAI_API_KEY is not set"}
	}
	def := DefaultOpenAIConfig()
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithRequestTimeout(cfg.Timeout),
		// Retries are owned by the Requester.
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIProvider{client: openai.NewClient(opts...), model: cfg.Model}, nil
}

// Name implements Provider.
func (p *OpenAIProvider) Name() string { return ProviderOpenAI }

// GenerateJSON implements Provider.
func (p *OpenAIProvider) GenerateJSON(ctx context.Context, pr Prompt) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(pr.System),
			openai.UserMessage(pr.User),
		},
		Temperature: openai.Float(pr.Temperature),
	}
	if pr.Schema != nil {
		name := pr.SchemaName
		if name == "" {
			name = "response"
		}
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   name,
					Schema: strictSchema(pr.Schema),
					Strict: openai.Bool(true),
				},
			},
		}
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", &GenerativeServiceError{Provider: ProviderOpenAI, StatusCode: apiErr.StatusCode, Err: err}
		}
		return "", &GenerativeServiceError{Provider: ProviderOpenAI, Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// strictSchema copies a schema into the subset strict mode accepts: array
// length bounds are removed and every object is closed.
func strictSchema(schema map[string]any) map[string]any {
	out := make(map[string]any, len(schema)+1)
	for k, v := range schema {
		switch k {
		case "minItems", "maxItems":
			continue
		}
		switch tv := v.(type) {
		case map[string]any:
			if k == "properties" {
				props := make(map[string]any, len(tv))
				for name, sub := range tv {
					if m, ok := sub.(map[string]any); ok {
						props[name] = strictSchema(m)
					} else {
						props[name] = sub
					}
				}
				out[k] = props
			} else {
				out[k] = strictSchema(tv)
			}
		default:
			out[k] = v
		}
	}
	if out["type"] == "object" {
		out["additionalProperties"] = false
	}
	return out
}
