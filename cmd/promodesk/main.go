package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mfrolov/promodesk/internal/auth"
	"github.com/mfrolov/promodesk/internal/cache"
	"github.com/mfrolov/promodesk/internal/config"
	"github.com/mfrolov/promodesk/internal/engine"
	"github.com/mfrolov/promodesk/internal/httpapi"
	"github.com/mfrolov/promodesk/internal/model"
	"github.com/mfrolov/promodesk/internal/store"
)

func main() {
	// Configure structured logging
	zerolog.TimeFieldFormat = time.RFC3339Nano
	log.Logger = log.With().Str("service", "promodesk").Logger()

	cfg := config.Load()

	// Pretty logging for local dev
	if cfg.Dev() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()

	pool, err := store.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()

	remote, err := store.NewPostgres(ctx, pool)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to prepare remote store")
	}

	localCache, err := cache.Open(cfg.CachePath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open local cache")
	}
	defer localCache.Close()

	eng := engine.New(remote, localCache, engine.Options{})
	if err := eng.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start sync engine")
	}

	// Drain operation outcomes into the log; interactive consumers would
	// subscribe here instead.
	go func() {
		for sig := range eng.Signals() {
			evt := log.Info()
			if sig.Err != nil {
				evt = log.Warn().Err(sig.Err)
			}
			evt.Str("op", string(sig.Op)).Str("id", sig.RequestID).Msg("sync outcome")
		}
	}()

	srv := &httpapi.Server{
		Engine:    eng,
		Cache:     localCache,
		Reference: model.DefaultReference(),
		JWT: auth.JWTCfg{
			HS256Secret: cfg.JWTSecret,
			DevMode:     cfg.Dev(),
		},
	}

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srv.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// Stop consumers first, then the engine (releases the change
	// subscription and waits for in-flight confirmations).
	eng.Stop()

	log.Info().Msg("promodesk stopped")
}
