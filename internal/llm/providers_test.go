package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider(t *testing.T) {
	ctx := context.Background()

	_, err := NewProvider(ctx, Settings{Provider: "gemini"})
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, ProviderGemini, cfgErr.Provider)

	_, err = NewProvider(ctx, Settings{Provider: "openai"})
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, ProviderOpenAI, cfgErr.Provider)

	_, err = NewProvider(ctx, Settings{Provider: "claude-3"})
	require.ErrorAs(t, err, &cfgErr)

	p, err := NewProvider(ctx, Settings{Provider: "Ollama"})
	require.NoError(t, err)
	assert.Equal(t, ProviderOllama, p.Name())
}

func TestUnconfiguredProvider(t *testing.T) {
	cause := &ConfigError{Provider: ProviderGemini, Reason: "GEMINI_API_KEY is not set"}
	p := NewUnconfiguredProvider(ProviderGemini, cause)
	assert.Equal(t, ProviderGemini, p.Name())

	r := NewRequester(p, RetryPolicy{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}, nil)
	_, err := r.RequestSpellNames(context.Background(), testPlan(t), RequestContext{})
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Same(t, cause, cfgErr)
}

func TestOpenAIProvider_GenerateJSON(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"), r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &body))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"c1","object":"chat.completion","created":1,"model":"gpt-4o-mini",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"{\"spells\":[\"Sol Ring\"]}"}}]}`)
	}))
	defer server.Close()

	p, err := NewOpenAIProvider(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL, Timeout: 5 * time.Second})
	require.NoError(t, err)

	text, err := p.GenerateJSON(context.Background(), Prompt{
		System: "sys", User: "user", SchemaName: "spells", Schema: SpellListSchema(3), Temperature: 0.5,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"spells":["Sol Ring"]}`, text)

	assert.Equal(t, "gpt-4o-mini", body["model"])
	messages := body["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])

	format := body["response_format"].(map[string]any)
	assert.Equal(t, "json_schema", format["type"])
	schema := format["json_schema"].(map[string]any)
	assert.Equal(t, true, schema["strict"])
	spells := schema["schema"].(map[string]any)["properties"].(map[string]any)["spells"].(map[string]any)
	assert.NotContains(t, spells, "minItems")
}

func TestOpenAIProvider_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":{"message":"slow down","type":"rate_limit"}}`)
	}))
	defer server.Close()

	p, err := NewOpenAIProvider(OpenAIConfig{APIKey: "k", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = p.GenerateJSON(context.Background(), Prompt{User: "u"})
	var svcErr *GenerativeServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, http.StatusTooManyRequests, svcErr.StatusCode)
}

func TestStrictSchema(t *testing.T) {
	s := strictSchema(SpellListSchema(5))
	assert.Equal(t, false, s["additionalProperties"])
	spells := s["properties"].(map[string]any)["spells"].(map[string]any)
	assert.NotContains(t, spells, "maxItems")
	assert.Equal(t, "array", spells["type"])
}

func geminiServer(t *testing.T, status int, payload string, seen *map[string]any) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, ":generateContent"), r.URL.Path)
		if seen != nil {
			raw, _ := io.ReadAll(r.Body)
			require.NoError(t, json.Unmarshal(raw, seen))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, payload)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestGeminiProvider_GenerateJSON(t *testing.T) {
	var body map[string]any
	server := geminiServer(t, http.StatusOK,
		`{"candidates":[{"content":{"parts":[{"text":"{\"spells\":[\"Cultivate\"]}"}],"role":"model"}}]}`, &body)

	p, err := NewGeminiProvider(context.Background(), GeminiConfig{APIKey: "k", BaseURL: server.URL})
	require.NoError(t, err)

	text, err := p.GenerateJSON(context.Background(), Prompt{System: "sys", User: "user", Schema: SpellListSchema(2)})
	require.NoError(t, err)
	assert.Equal(t, `{"spells":["Cultivate"]}`, text)

	gen := body["generationConfig"].(map[string]any)
	assert.Equal(t, "application/json", gen["responseMimeType"])
	assert.Contains(t, gen, "responseSchema")
	assert.Contains(t, body, "systemInstruction")
}

func TestGeminiProvider_EmptyAndErrors(t *testing.T) {
	t.Run("empty candidates", func(t *testing.T) {
		server := geminiServer(t, http.StatusOK, `{"candidates":[]}`, nil)
		p, err := NewGeminiProvider(context.Background(), GeminiConfig{APIKey: "k", BaseURL: server.URL})
		require.NoError(t, err)

		_, err = p.GenerateJSON(context.Background(), Prompt{User: "u"})
		assert.ErrorIs(t, err, ErrEmptyResponse)
	})

	t.Run("api error", func(t *testing.T) {
		server := geminiServer(t, http.StatusBadRequest,
			`{"error":{"code":400,"message":"bad request","status":"INVALID_ARGUMENT"}}`, nil)
		p, err := NewGeminiProvider(context.Background(), GeminiConfig{APIKey: "k", BaseURL: server.URL})
		require.NoError(t, err)

		_, err = p.GenerateJSON(context.Background(), Prompt{User: "u"})
		var svcErr *GenerativeServiceError
		require.True(t, errors.As(err, &svcErr), "got %v", err)
		assert.Equal(t, ProviderGemini, svcErr.Provider)
	})
}

func TestToGenaiSchema(t *testing.T) {
	s, err := toGenaiSchema(SpellListSchema(4))
	require.NoError(t, err)
	require.Contains(t, s.Properties, "spells")
	spells := s.Properties["spells"]
	require.NotNil(t, spells.Items)
	assert.EqualValues(t, 4, *spells.MinItems)
	assert.EqualValues(t, 4, *spells.MaxItems)
	assert.Equal(t, []string{"spells"}, s.Required)

	_, err = toGenaiSchema(map[string]any{"type": "tuple"})
	assert.Error(t, err)
}
