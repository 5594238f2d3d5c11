package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newOllamaTestServer(t *testing.T, chat http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/version":
			_ = json.NewEncoder(w).Encode(VersionResponse{Version: "0.1.0"})
		case "/api/tags":
			_ = json.NewEncoder(w).Encode(ListModelsResponse{
				Models: []ModelInfo{{Name: "qwen3:8b", Size: 1000000}},
			})
		case "/api/chat":
			chat(w, r)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func testOllamaConfig(url string) *OllamaConfig {
	return &OllamaConfig{
		BaseURL:          url,
		Model:            "qwen3:8b",
		RequestTimeout:   5 * time.Second,
		InferenceTimeout: 30 * time.Second,
	}
}

func TestDefaultOllamaConfig(t *testing.T) {
	config := DefaultOllamaConfig()

	if config.BaseURL != "http://localhost:11434" {
		t.Errorf("unexpected BaseURL: %s", config.BaseURL)
	}
	if config.Model != "qwen3:8b" {
		t.Errorf("unexpected Model: %s", config.Model)
	}
	if config.RequestTimeout != 30*time.Second {
		t.Errorf("unexpected RequestTimeout: %v", config.RequestTimeout)
	}
	if config.InferenceTimeout != 180*time.Second {
		t.Errorf("unexpected InferenceTimeout: %v", config.InferenceTimeout)
	}
}

func TestNewOllamaClient(t *testing.T) {
	t.Run("with nil config uses defaults", func(t *testing.T) {
		client := NewOllamaClient(nil)
		if client == nil {
			t.Fatal("expected non-nil client")
		}
		if client.config.BaseURL != "http://localhost:11434" {
			t.Error("expected default config")
		}
		if client.Name() != ProviderOllama {
			t.Errorf("unexpected name %s", client.Name())
		}
	})

	t.Run("with custom config", func(t *testing.T) {
		client := NewOllamaClient(&OllamaConfig{BaseURL: "http://custom:11434", Model: "llama3"})
		if client.GetModel() != "llama3" {
			t.Errorf("expected custom Model, got %s", client.GetModel())
		}
	})
}

func TestOllamaClient_CheckAvailability(t *testing.T) {
	t.Run("Ollama available with model", func(t *testing.T) {
		server := newOllamaTestServer(t, func(w http.ResponseWriter, r *http.Request) {})
		client := NewOllamaClient(testOllamaConfig(server.URL))

		status := client.CheckAvailability(context.Background())

		if !status.Available {
			t.Error("expected Ollama to be available")
		}
		if !status.ModelReady {
			t.Error("expected model to be ready")
		}
		if status.Version != "0.1.0" {
			t.Errorf("unexpected version: %s", status.Version)
		}
		if !client.IsAvailable() {
			t.Error("expected client to cache availability")
		}
	})

	t.Run("Ollama available without model", func(t *testing.T) {
		server := newOllamaTestServer(t, func(w http.ResponseWriter, r *http.Request) {})
		cfg := testOllamaConfig(server.URL)
		cfg.Model = "llama3:70b"
		client := NewOllamaClient(cfg)

		status := client.CheckAvailability(context.Background())

		if !status.Available {
			t.Error("expected Ollama to be available")
		}
		if status.ModelReady {
			t.Error("expected model to not be ready")
		}
		if status.Error == "" {
			t.Error("expected error message for missing model")
		}
	})

	t.Run("Ollama not running", func(t *testing.T) {
		client := NewOllamaClient(&OllamaConfig{
			BaseURL:        "http://localhost:99999", // Invalid port
			Model:          "qwen3:8b",
			RequestTimeout: 1 * time.Second,
		})

		status := client.CheckAvailability(context.Background())

		if status.Available {
			t.Error("expected Ollama to not be available")
		}
		if status.Error == "" {
			t.Error("expected error message")
		}
	})
}

func TestOllamaClient_GenerateJSON(t *testing.T) {
	var got ChatRequest
	server := newOllamaTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(ChatResponse{
			Model:   got.Model,
			Message: ChatMessage{Role: "assistant", Content: `{"spells":["Sol Ring"]}`},
			Done:    true,
		})
	})
	client := NewOllamaClient(testOllamaConfig(server.URL))

	text, err := client.GenerateJSON(context.Background(), Prompt{
		System:      "system text",
		User:        "user text",
		Schema:      SpellListSchema(1),
		Temperature: 0.4,
	})
	if err != nil {
		t.Fatalf("GenerateJSON failed: %v", err)
	}

	if text != `{"spells":["Sol Ring"]}` {
		t.Errorf("unexpected text %q", text)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Content != "user text" {
		t.Errorf("unexpected messages: %+v", got.Messages)
	}
	if got.Stream {
		t.Error("expected non-streaming request")
	}
	schema, ok := got.Format.(map[string]any)
	if !ok || schema["type"] != "object" {
		t.Errorf("expected schema format, got %#v", got.Format)
	}
	if got.Options == nil || got.Options.Temperature != 0.4 {
		t.Errorf("unexpected options: %+v", got.Options)
	}
}

func TestOllamaClient_ChatServerError(t *testing.T) {
	server := newOllamaTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model crashed", http.StatusInternalServerError)
	})
	client := NewOllamaClient(testOllamaConfig(server.URL))

	_, err := client.GenerateJSON(context.Background(), Prompt{User: "hi"})

	var svcErr *GenerativeServiceError
	if !errors.As(err, &svcErr) {
		t.Fatalf("expected GenerativeServiceError, got %T: %v", err, err)
	}
	if svcErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("unexpected status %d", svcErr.StatusCode)
	}
}

func TestOllamaClient_NotAvailable(t *testing.T) {
	client := NewOllamaClient(&OllamaConfig{
		BaseURL:        "http://localhost:99999",
		Model:          "qwen3:8b",
		RequestTimeout: 1 * time.Second,
	})

	_, err := client.GenerateJSON(context.Background(), Prompt{User: "Hello"})

	var svcErr *GenerativeServiceError
	if !errors.As(err, &svcErr) {
		t.Errorf("expected GenerativeServiceError when Ollama not available, got %v", err)
	}
}

func TestOllamaClient_UntaggedModelMatchesLatest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/version":
			_ = json.NewEncoder(w).Encode(VersionResponse{Version: "0.5.0"})
		case "/api/tags":
			_ = json.NewEncoder(w).Encode(ListModelsResponse{Models: []ModelInfo{{Name: "llama3:latest"}}})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	cfg := testOllamaConfig(server.URL)
	cfg.Model = "llama3"
	status := NewOllamaClient(cfg).CheckAvailability(context.Background())

	if !status.ModelReady {
		t.Errorf("expected llama3 to match llama3:latest, got %+v", status)
	}
}

func TestOllamaClient_PullsMissingModel(t *testing.T) {
	var pulled string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/version":
			_ = json.NewEncoder(w).Encode(VersionResponse{Version: "0.5.0"})
		case "/api/tags":
			_ = json.NewEncoder(w).Encode(ListModelsResponse{})
		case "/api/pull":
			var body struct {
				Name string `json:"name"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			pulled = body.Name
			w.WriteHeader(http.StatusOK)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	cfg := testOllamaConfig(server.URL)
	cfg.AutoPullModel = true
	client := NewOllamaClient(cfg)
	status := client.CheckAvailability(context.Background())

	if !status.ModelReady || !client.IsAvailable() {
		t.Errorf("expected model ready after pull, got %+v", status)
	}
	if pulled != "qwen3:8b" {
		t.Errorf("expected qwen3:8b to be pulled, got %q", pulled)
	}
}
