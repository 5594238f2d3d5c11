package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ramonehamilton/commander-craft/internal/api"
	"github.com/ramonehamilton/commander-craft/internal/cards/cardcache"
	"github.com/ramonehamilton/commander-craft/internal/commander"
	"github.com/ramonehamilton/commander-craft/internal/config"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long:  "Serve the deck generation API under /api/v1 and push generation progress on /ws. The lands and categories sections of the config file are reloaded when it changes.",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger, true)
	if err != nil {
		return err
	}
	defer a.Close()

	pruneCtx, stopPruner := context.WithCancel(ctx)
	prunerDone := make(chan struct{})
	go func() {
		defer close(prunerDone)
		a.cache.RunPruner(pruneCtx, cardcache.PruneInterval(config.Duration(cfg.Storage.CardCacheTTL)))
	}()
	defer func() {
		stopPruner()
		<-prunerDone
	}()

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	svc := api.Services{
		Generator:  a.pipeline,
		Decks:      a.store,
		Commanders: a.scryfall,
		Status:     a.store,
		Cache:      a.cache,
		Metrics:    a.metrics,
		Dispatcher: a.dispatcher,
		Currency:   strings.ToUpper(cfg.Scryfall.Currency),
		LandConfig: func() commander.LandConfig { return a.pipeline.Config().Lands },
		Provider:   a.pipeline.Provider,
	}
	if a.edhrec != nil {
		svc.Popularity = a.edhrec
	}

	server := api.NewServer(&api.Config{
		Addr:            addr,
		Debug:           cfg.Server.Debug,
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		RequestTimeout:  config.Duration(cfg.Server.RequestTimeout),
		ShutdownTimeout: config.Duration(cfg.Server.ShutdownTimeout),
		Logger:          logger,
	}, svc)
	if err := server.Start(); err != nil {
		return err
	}

	watcher := config.NewWatcher(cfgPath, func(next *config.Config) {
		a.pipeline.UpdateConfig(planConfig(next))
		logger.Info("configuration reloaded", "path", cfgPath)
	}, logger)
	go func() {
		if err := watcher.Run(ctx); err != nil {
			logger.Warn("config watcher stopped", "error", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), server.ShutdownTimeout())
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
