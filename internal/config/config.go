// Package config loads the TOML configuration, overlays environment
// secrets and overrides, and watches the file for tunable changes.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"

	"github.com/ramonehamilton/commander-craft/internal/commander"
)

// Config represents the application configuration.
type Config struct {
	Server     ServerConfig             `toml:"server"`
	Scryfall   ScryfallConfig           `toml:"scryfall"`
	LLM        LLMConfig                `toml:"llm"`
	Lands      commander.LandConfig     `toml:"lands"`
	Categories commander.CategoryConfig `toml:"categories"`
	Builder    BuilderConfig            `toml:"builder"`
	Storage    StorageConfig            `toml:"storage"`
	EDHREC     EDHRECConfig             `toml:"edhrec"`
	Telemetry  TelemetryConfig          `toml:"telemetry"`

	// Secrets come from the environment only and are never written out.
	Secrets Secrets `toml:"-"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Addr            string   `toml:"addr"`             // Listen address (e.g., ":8080")
	Debug           bool     `toml:"debug"`            // Debug logging and error details in responses
	AllowedOrigins  []string `toml:"allowed_origins"`  // CORS origins
	RequestTimeout  string   `toml:"request_timeout"`  // Deadline for a generation request (e.g., "5m")
	ShutdownTimeout string   `toml:"shutdown_timeout"` // Graceful shutdown deadline
}

// ScryfallConfig contains card database settings.
type ScryfallConfig struct {
	BaseURL        string `toml:"base_url"`
	UserAgent      string `toml:"user_agent"`
	Timeout        string `toml:"timeout"`
	RateLimitDelay string `toml:"rate_limit_delay"` // Minimum gap between requests (e.g., "100ms")
	MaxRetries     int    `toml:"max_retries"`
	Currency       string `toml:"currency"`        // "EUR" or "USD"
	SearchLanguage string `toml:"search_language"` // Printing language searched next to English; "en" disables
}

// LLMConfig selects and tunes the generative provider.
type LLMConfig struct {
	Provider          string `toml:"provider"` // "gemini", "openai" or "ollama"
	Model             string `toml:"model"`    // Empty uses the provider default
	BaseURL           string `toml:"base_url"` // Empty uses the provider default
	Timeout           string `toml:"timeout"`
	MaxAttempts       int    `toml:"max_attempts"` // 1 disables retries
	RetryInitial      string `toml:"retry_initial"`
	RetryMax          string `toml:"retry_max"`
	OllamaPullMissing bool   `toml:"ollama_pull_missing"`
}

// BuilderConfig tunes card resolution.
type BuilderConfig struct {
	Concurrency    int    `toml:"concurrency"`     // Parallel exact-name lookups
	LookupTimeout  string `toml:"lookup_timeout"`  // Deadline per lookup
	StrictNonBasic bool   `toml:"strict_nonbasic"` // Fail instead of falling back when the land search fails
}

// StorageConfig contains database settings.
type StorageConfig struct {
	Path         string `toml:"path"`      // SQLite file; empty uses the config directory
	MaxDecks     int    `toml:"max_decks"` // Deck history size, 0 = unlimited
	CardCacheTTL string `toml:"card_cache_ttl"`
}

// EDHRECConfig controls the commander popularity lookups.
type EDHRECConfig struct {
	Enabled bool   `toml:"enabled"`
	BaseURL string `toml:"base_url"`
	Timeout string `toml:"timeout"`
}

// TelemetryConfig controls trace export.
type TelemetryConfig struct {
	Enabled      bool   `toml:"enabled"`
	OTLPEndpoint string `toml:"otlp_endpoint"` // OTLP/HTTP collector URL
}

// Secrets are read from the environment.
type Secrets struct {
	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	OpenAIAPIKey string `env:"OPENAI_API_KEY"`
}

// overrides are optional environment settings that win over the file.
type overrides struct {
	Provider string `env:"LLM_PROVIDER"`
	Model    string `env:"LLM_MODEL"`
	Addr     string `env:"ADDR"`
	DBPath   string `env:"DB_PATH"`
	Currency string `env:"CURRENCY"`
	Debug    *bool  `env:"DEBUG"`
	// Setting an endpoint turns tracing on unless OTEL_ENABLED=false.
	OTLPEndpoint string `env:"OTEL_ENDPOINT"`
	OTelEnabled  *bool  `env:"OTEL_ENABLED"`
}

// EnvPrefix prefixes every override variable.
const EnvPrefix = "COMMANDER_CRAFT_"

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			AllowedOrigins:  []string{"http://localhost:5173", "http://localhost:3000"},
			RequestTimeout:  "5m",
			ShutdownTimeout: "10s",
		},
		Scryfall: ScryfallConfig{
			BaseURL:        "https://api.scryfall.com",
			UserAgent:      "CommanderCraft/1.0",
			Timeout:        "30s",
			RateLimitDelay: "100ms",
			MaxRetries:     3,
			Currency:       "EUR",
			SearchLanguage: "fr",
		},
		LLM: LLMConfig{
			Provider:     "gemini",
			Timeout:      "120s",
			MaxAttempts:  1,
			RetryInitial: "2s",
			RetryMax:     "20s",
		},
		Lands:      commander.DefaultLandConfig(),
		Categories: commander.DefaultCategoryConfig(),
		Builder: BuilderConfig{
			Concurrency:   8,
			LookupTimeout: "15s",
		},
		Storage: StorageConfig{
			MaxDecks:     200,
			CardCacheTTL: "168h",
		},
		EDHREC: EDHRECConfig{
			Enabled: true,
			BaseURL: "https://json.edhrec.com/pages",
			Timeout: "10s",
		},
	}
}

// Dir returns the configuration directory, creating it if needed.
func Dir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}

	configDir := filepath.Join(homeDir, ".commander-craft")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return "", fmt.Errorf("create config directory: %w", err)
	}
	return configDir, nil
}

// DefaultPath returns the path to the default configuration file.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads path (or the default path when empty), fills unset values from
// the defaults and applies the environment. A missing file yields the
// defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg, err := loadFile(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFile parses the TOML file on top of the defaults.
func loadFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// List values in the file replace the defaults instead of extending them.
	def := DefaultConfig()
	cfg.Server.AllowedOrigins = nil
	cfg.Lands.Tiers = nil
	cfg.Categories.Targets = nil

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	if cfg.Server.AllowedOrigins == nil {
		cfg.Server.AllowedOrigins = def.Server.AllowedOrigins
	}
	if cfg.Lands.Tiers == nil {
		cfg.Lands.Tiers = def.Lands.Tiers
	}
	if cfg.Categories.Targets == nil {
		cfg.Categories.Targets = def.Categories.Targets
	}
	return cfg, nil
}

// ApplyEnv reads secrets and overrides from the environment.
func (c *Config) ApplyEnv() error {
	if err := env.Parse(&c.Secrets); err != nil {
		return fmt.Errorf("parse secrets: %w", err)
	}

	var o overrides
	if err := env.ParseWithOptions(&o, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse environment overrides: %w", err)
	}
	if o.Provider != "" {
		c.LLM.Provider = o.Provider
	}
	if o.Model != "" {
		c.LLM.Model = o.Model
	}
	if o.Addr != "" {
		c.Server.Addr = o.Addr
	}
	if o.DBPath != "" {
		c.Storage.Path = o.DBPath
	}
	if o.Currency != "" {
		c.Scryfall.Currency = o.Currency
	}
	if o.Debug != nil {
		c.Server.Debug = *o.Debug
	}
	if o.OTLPEndpoint != "" {
		c.Telemetry.OTLPEndpoint = o.OTLPEndpoint
		c.Telemetry.Enabled = true
	}
	if o.OTelEnabled != nil {
		c.Telemetry.Enabled = *o.OTelEnabled
	}
	return nil
}

// Save writes the configuration to path.
func (c *Config) Save(path string) error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate validates the configuration values.
func (c *Config) Validate() error {
	durations := map[string]string{
		"server.request_timeout":    c.Server.RequestTimeout,
		"server.shutdown_timeout":   c.Server.ShutdownTimeout,
		"scryfall.timeout":          c.Scryfall.Timeout,
		"scryfall.rate_limit_delay": c.Scryfall.RateLimitDelay,
		"llm.timeout":               c.LLM.Timeout,
		"llm.retry_initial":         c.LLM.RetryInitial,
		"llm.retry_max":             c.LLM.RetryMax,
		"builder.lookup_timeout":    c.Builder.LookupTimeout,
		"storage.card_cache_ttl":    c.Storage.CardCacheTTL,
		"edhrec.timeout":            c.EDHREC.Timeout,
	}
	for key, v := range durations {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", key, v, err)
		}
		if d < 0 {
			return fmt.Errorf("%s cannot be negative: %s", key, v)
		}
	}

	switch strings.ToLower(c.LLM.Provider) {
	case "gemini", "openai", "ollama":
	default:
		return fmt.Errorf("unknown llm provider %q", c.LLM.Provider)
	}
	if c.LLM.MaxAttempts < 1 {
		return fmt.Errorf("llm.max_attempts must be at least 1: %d", c.LLM.MaxAttempts)
	}

	switch strings.ToUpper(c.Scryfall.Currency) {
	case "EUR", "USD":
	default:
		return fmt.Errorf("unsupported currency %q", c.Scryfall.Currency)
	}
	if l := c.Scryfall.SearchLanguage; l != "" && !isLangCode(l) {
		return fmt.Errorf("scryfall.search_language must be a language code like \"fr\": %q", l)
	}
	if c.Scryfall.MaxRetries < 0 {
		return fmt.Errorf("scryfall.max_retries cannot be negative: %d", c.Scryfall.MaxRetries)
	}

	if c.Builder.Concurrency < 1 {
		return fmt.Errorf("builder.concurrency must be at least 1: %d", c.Builder.Concurrency)
	}
	if c.Storage.MaxDecks < 0 {
		return fmt.Errorf("storage.max_decks cannot be negative: %d", c.Storage.MaxDecks)
	}

	if c.Telemetry.Enabled && c.Telemetry.OTLPEndpoint == "" {
		return errors.New("telemetry.otlp_endpoint is required when telemetry is enabled")
	}

	if err := c.Lands.Validate(); err != nil {
		return fmt.Errorf("lands: %w", err)
	}
	if err := c.Categories.Validate(); err != nil {
		return fmt.Errorf("categories: %w", err)
	}
	return nil
}

// isLangCode accepts Scryfall language codes: two or three lower-case
// letters ("fr", "zhs").
func isLangCode(v string) bool {
	if len(v) < 2 || len(v) > 3 {
		return false
	}
	for _, r := range v {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}

// Duration parses a validated duration string. Invalid values yield zero,
// which every consumer treats as "use the default".
func Duration(v string) time.Duration {
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}

// APIKey returns the key for the configured provider.
func (c *Config) APIKey() string {
	switch strings.ToLower(c.LLM.Provider) {
	case "openai":
		return c.Secrets.OpenAIAPIKey
	case "gemini":
		return c.Secrets.GeminiAPIKey
	}
	return ""
}
