package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/ramonehamilton/commander-craft/internal/cards/cardcache"
	"github.com/ramonehamilton/commander-craft/internal/cards/edhrec"
	"github.com/ramonehamilton/commander-craft/internal/cards/scryfall"
	"github.com/ramonehamilton/commander-craft/internal/config"
	"github.com/ramonehamilton/commander-craft/internal/deckbuilder"
	"github.com/ramonehamilton/commander-craft/internal/events"
	"github.com/ramonehamilton/commander-craft/internal/llm"
	"github.com/ramonehamilton/commander-craft/internal/metrics"
	"github.com/ramonehamilton/commander-craft/internal/storage"
	"github.com/ramonehamilton/commander-craft/internal/telemetry"
	"github.com/ramonehamilton/commander-craft/internal/version"
)

// app holds the wired services shared by the subcommands.
type app struct {
	db         *storage.DB
	store      *storage.Service
	scryfall   *scryfall.Client
	cache      *cardcache.Cache
	edhrec     *edhrec.Client // nil when disabled
	dispatcher *events.EventDispatcher
	metrics    *metrics.GenerationMetrics
	pipeline   *deckbuilder.Pipeline

	shutdownTracing func(context.Context) error
}

// newScryfallClient builds the card database client from the config.
func newScryfallClient(c *config.Config, logger *slog.Logger) *scryfall.Client {
	sc := scryfall.DefaultConfig()
	if c.Scryfall.BaseURL != "" {
		sc.BaseURL = c.Scryfall.BaseURL
	}
	if c.Scryfall.UserAgent != "" {
		sc.UserAgent = c.Scryfall.UserAgent
	}
	if d := config.Duration(c.Scryfall.Timeout); d > 0 {
		sc.Timeout = d
	}
	if d := config.Duration(c.Scryfall.RateLimitDelay); d > 0 {
		sc.RateLimitDelay = d
	}
	if c.Scryfall.SearchLanguage != "" {
		sc.SearchLanguage = c.Scryfall.SearchLanguage
	}
	sc.MaxRetries = c.Scryfall.MaxRetries
	if sc.MaxRetries == 0 {
		sc.MaxRetries = -1
	}
	sc.Logger = logger
	return scryfall.NewClient(sc)
}

// newEDHRECClient returns nil when popularity lookups are disabled.
func newEDHRECClient(c *config.Config, logger *slog.Logger) *edhrec.Client {
	if !c.EDHREC.Enabled {
		return nil
	}
	return edhrec.NewClient(edhrec.Config{
		BaseURL:   c.EDHREC.BaseURL,
		UserAgent: c.Scryfall.UserAgent,
		Timeout:   config.Duration(c.EDHREC.Timeout),
		Logger:    logger,
	})
}

// newProvider builds the configured generative provider. Missing
// credentials do not stop the service: every generation then fails with a
// configuration error.
func newProvider(ctx context.Context, c *config.Config, logger *slog.Logger) (llm.Provider, error) {
	timeout := config.Duration(c.LLM.Timeout)
	s := llm.Settings{
		Provider: c.LLM.Provider,
		Gemini:   llm.GeminiConfig{APIKey: c.Secrets.GeminiAPIKey, BaseURL: c.LLM.BaseURL, Model: c.LLM.Model, Timeout: timeout},
		OpenAI:   llm.OpenAIConfig{APIKey: c.Secrets.OpenAIAPIKey, BaseURL: c.LLM.BaseURL, Model: c.LLM.Model, Timeout: timeout},
		Logger:   logger,
	}
	if strings.EqualFold(c.LLM.Provider, llm.ProviderOllama) {
		oc := llm.DefaultOllamaConfig()
		if c.LLM.BaseURL != "" {
			oc.BaseURL = c.LLM.BaseURL
		}
		if c.LLM.Model != "" {
			oc.Model = c.LLM.Model
		}
		if timeout > 0 {
			oc.InferenceTimeout = timeout
		}
		oc.AutoPullModel = c.LLM.OllamaPullMissing
		s.Ollama = oc
	}

	p, err := llm.NewProvider(ctx, s)
	var cfgErr *llm.ConfigError
	if errors.As(err, &cfgErr) {
		logger.Warn("generative provider is not configured, generation will fail", "provider", c.LLM.Provider, "reason", cfgErr.Reason)
		return llm.NewUnconfiguredProvider(strings.ToLower(c.LLM.Provider), err), nil
	}
	return p, err
}

// planConfig extracts the runtime tunables.
func planConfig(c *config.Config) deckbuilder.PlanConfig {
	return deckbuilder.PlanConfig{Lands: c.Lands, Categories: c.Categories}
}

// newApp opens storage and wires the pipeline. withStore=false skips the
// database entirely: cards are looked up directly and decks are not saved.
func newApp(ctx context.Context, c *config.Config, logger *slog.Logger, withStore bool) (*app, error) {
	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:      c.Telemetry.Enabled,
		OTLPEndpoint: c.Telemetry.OTLPEndpoint,
		Version:      version.GetVersion(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set up tracing: %w", err)
	}
	if c.Telemetry.Enabled {
		logger.Info("exporting traces", "endpoint", c.Telemetry.OTLPEndpoint)
	}

	a := &app{
		scryfall:        newScryfallClient(c, logger),
		edhrec:          newEDHRECClient(c, logger),
		dispatcher:      events.NewEventDispatcher(logger),
		metrics:         metrics.NewGenerationMetrics(),
		shutdownTracing: shutdownTracing,
	}
	a.dispatcher.Register(events.NewLoggingObserver(logger, c.Server.Debug))

	var lookup deckbuilder.CardLookup = a.scryfall
	opts := []deckbuilder.Option{
		deckbuilder.WithDispatcher(a.dispatcher),
		deckbuilder.WithMetrics(a.metrics),
		deckbuilder.WithLogger(logger),
	}

	if withStore {
		path := c.Storage.Path
		if path == "" {
			dir, err := config.Dir()
			if err != nil {
				a.Close()
				return nil, err
			}
			path = filepath.Join(dir, "commander-craft.db")
		}
		dbCfg := storage.DefaultConfig(path)
		dbCfg.AutoMigrate = true
		db, err := storage.Open(dbCfg)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		a.db = db
		a.store = storage.NewService(db, c.Storage.MaxDecks)
		a.cache = cardcache.New(a.scryfall, a.store.CardCache(), config.Duration(c.Storage.CardCacheTTL), cardcache.WithLogger(logger))
		lookup = a.cache
		opts = append(opts, deckbuilder.WithStore(a.store))
	}

	provider, err := newProvider(ctx, c, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create %s provider: %w", c.LLM.Provider, err)
	}
	requester := llm.NewRequester(provider, llm.RetryPolicy{
		MaxAttempts:     c.LLM.MaxAttempts,
		InitialInterval: config.Duration(c.LLM.RetryInitial),
		MaxInterval:     config.Duration(c.LLM.RetryMax),
	}, logger)

	materializer := deckbuilder.NewMaterializer(lookup, a.scryfall, deckbuilder.MaterializerConfig{
		Concurrency:    c.Builder.Concurrency,
		LookupTimeout:  config.Duration(c.Builder.LookupTimeout),
		Currency:       strings.ToUpper(c.Scryfall.Currency),
		StrictNonBasic: c.Builder.StrictNonBasic,
		Logger:         logger,
	})

	a.pipeline = deckbuilder.NewPipeline(a.scryfall, requester, materializer, planConfig(c), opts...)
	return a, nil
}

// Close flushes pending spans and releases the database.
func (a *app) Close() {
	if a.shutdownTracing != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.shutdownTracing(ctx); err != nil {
			slog.Warn("failed to flush traces", "error", err)
		}
		cancel()
		a.shutdownTracing = nil
	}
	if a.db == nil {
		return
	}
	if err := a.db.Close(); err != nil {
		slog.Warn("failed to close database", "error", err)
	}
	a.db = nil
}
