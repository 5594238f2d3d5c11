package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// OllamaConfig configures the local Ollama provider.
type OllamaConfig struct {
	BaseURL string
	Model   string

	// RequestTimeout bounds the metadata calls (version, tags).
	RequestTimeout time.Duration

	// InferenceTimeout bounds a single chat completion.
	InferenceTimeout time.Duration

	// AutoPullModel pulls Model when the server does not have it.
	AutoPullModel bool
}

// DefaultOllamaConfig targets a local server on the default port.
func DefaultOllamaConfig() *OllamaConfig {
	return &OllamaConfig{
		BaseURL:          "http://localhost:11434",
		Model:            "qwen3:8b",
		RequestTimeout:   30 * time.Second,
		InferenceTimeout: 180 * time.Second,
	}
}

// pullTimeout bounds a model download.
const pullTimeout = 30 * time.Minute

// OllamaClient is a Provider backed by the Ollama chat API. The server and
// model are probed before the first completion and again after a failure.
type OllamaClient struct {
	config *OllamaConfig
	meta   *http.Client
	infer  *http.Client
	ready  atomic.Bool
	probe  singleflight.Group
}

// OllamaStatus is the result of an availability probe.
type OllamaStatus struct {
	Available    bool     `json:"available"`
	Version      string   `json:"version,omitempty"`
	ModelReady   bool     `json:"model_ready"`
	ModelName    string   `json:"model_name"`
	ModelsLoaded []string `json:"models_loaded,omitempty"`
	Error        string   `json:"error,omitempty"`
}

// Wire types for the Ollama HTTP API.
type (
	ChatOptions struct {
		Temperature float64 `json:"temperature,omitempty"`
		TopP        float64 `json:"top_p,omitempty"`
		NumPredict  int     `json:"num_predict,omitempty"`
	}

	ChatMessage struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}

	// ChatRequest.Format is either "json" or a JSON schema.
	ChatRequest struct {
		Model    string        `json:"model"`
		Messages []ChatMessage `json:"messages"`
		Stream   bool          `json:"stream"`
		Format   any           `json:"format,omitempty"`
		Options  *ChatOptions  `json:"options,omitempty"`
	}

	ChatResponse struct {
		Model   string      `json:"model"`
		Message ChatMessage `json:"message"`
		Done    bool        `json:"done"`
	}

	VersionResponse struct {
		Version string `json:"version"`
	}

	ListModelsResponse struct {
		Models []ModelInfo `json:"models"`
	}

	ModelInfo struct {
		Name string `json:"name"`
		Size int64  `json:"size"`
	}
)

// NewOllamaClient creates a client; a nil config uses the defaults.
func NewOllamaClient(config *OllamaConfig) *OllamaClient {
	if config == nil {
		config = DefaultOllamaConfig()
	}
	return &OllamaClient{
		config: config,
		meta:   &http.Client{Timeout: config.RequestTimeout},
		infer:  &http.Client{Timeout: config.InferenceTimeout},
	}
}

// Name implements Provider.
func (c *OllamaClient) Name() string { return ProviderOllama }

// GetModel returns the configured model name.
func (c *OllamaClient) GetModel() string { return c.config.Model }

// IsAvailable reports the result of the last probe.
func (c *OllamaClient) IsAvailable() bool { return c.ready.Load() }

// GenerateJSON implements Provider. The prompt schema, when present, is sent
// as the response format so the server constrains decoding to it.
func (c *OllamaClient) GenerateJSON(ctx context.Context, p Prompt) (string, error) {
	if !c.ready.Load() {
		if status := c.CheckAvailability(ctx); !status.ModelReady {
			return "", &GenerativeServiceError{Provider: ProviderOllama, Err: fmt.Errorf("ollama not available: %s", status.Error)}
		}
	}

	req := ChatRequest{
		Model:   c.config.Model,
		Format:  "json",
		Options: &ChatOptions{Temperature: p.Temperature},
	}
	if p.Schema != nil {
		req.Format = p.Schema
	}
	if p.System != "" {
		req.Messages = append(req.Messages, ChatMessage{Role: "system", Content: p.System})
	}
	req.Messages = append(req.Messages, ChatMessage{Role: "user", Content: p.User})

	var resp ChatResponse
	status, err := c.call(ctx, c.infer, http.MethodPost, "/api/chat", req, &resp)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		c.ready.Store(false)
		return "", &GenerativeServiceError{Provider: ProviderOllama, StatusCode: status, Err: err}
	}
	return resp.Message.Content, nil
}

// CheckAvailability probes the server version and model list, pulling the
// model when AutoPullModel is set. Concurrent callers share one probe.
func (c *OllamaClient) CheckAvailability(ctx context.Context) *OllamaStatus {
	v, _, _ := c.probe.Do("probe", func() (any, error) {
		status := c.check(ctx)
		c.ready.Store(status.Available && status.ModelReady)
		return status, nil
	})
	return v.(*OllamaStatus)
}

func (c *OllamaClient) check(ctx context.Context) *OllamaStatus {
	status := &OllamaStatus{ModelName: c.config.Model}

	var version VersionResponse
	if _, err := c.call(ctx, c.meta, http.MethodGet, "/api/version", nil, &version); err != nil {
		status.Error = fmt.Sprintf("Ollama not available: %v", err)
		return status
	}
	status.Available = true
	status.Version = version.Version

	var tags ListModelsResponse
	if _, err := c.call(ctx, c.meta, http.MethodGet, "/api/tags", nil, &tags); err != nil {
		status.Error = fmt.Sprintf("Failed to list models: %v", err)
		return status
	}
	for _, m := range tags.Models {
		status.ModelsLoaded = append(status.ModelsLoaded, m.Name)
	}
	want := withTag(c.config.Model)
	status.ModelReady = slices.ContainsFunc(status.ModelsLoaded, func(name string) bool {
		return withTag(name) == want
	})

	switch {
	case status.ModelReady:
	case c.config.AutoPullModel:
		if err := c.PullModel(ctx); err != nil {
			status.Error = fmt.Sprintf("Failed to pull model: %v", err)
		} else {
			status.ModelReady = true
		}
	default:
		status.Error = fmt.Sprintf("Model %s not found", c.config.Model)
	}
	return status
}

// PullModel downloads the configured model and waits for it to finish.
func (c *OllamaClient) PullModel(ctx context.Context) error {
	body := map[string]any{"name": c.config.Model, "stream": false}
	if _, err := c.call(ctx, &http.Client{Timeout: pullTimeout}, http.MethodPost, "/api/pull", body, nil); err != nil {
		return fmt.Errorf("pull %s: %w", c.config.Model, err)
	}
	return nil
}

// call sends in as JSON (when non-nil) and decodes the reply into out (when
// non-nil). A non-200 reply is returned as an error with its status code.
func (c *OllamaClient) call(ctx context.Context, hc *http.Client, method, path string, in, out any) (int, error) {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.config.BaseURL, "/")+path, body)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := hc.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return resp.StatusCode, fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
	}
	return resp.StatusCode, nil
}

// withTag appends the implicit ":latest" tag to untagged model names.
func withTag(name string) string {
	if strings.Contains(name, ":") {
		return name
	}
	return name + ":latest"
}
