package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kiraleos/replybot/internal/api"
	"github.com/kiraleos/replybot/internal/bot"
	"github.com/kiraleos/replybot/internal/config"
	"github.com/kiraleos/replybot/internal/core"
	"github.com/kiraleos/replybot/internal/obs"
	"github.com/kiraleos/replybot/internal/store"
	"github.com/kiraleos/replybot/internal/transport/telegram"
)

func main() {
	// Load configuration
	config.LoadConfig()
	obs.SetupLogging(config.AppConfig.LogLevel)

	// Initialize database store
	dbStore, err := store.NewSQLiteStore(config.AppConfig.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer dbStore.Close()

	// Initialize the remote model client. A missing API key leaves the
	// generator nil and the resolver answers with the unavailable message.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var generator core.Generator
	if config.AppConfig.GeminiAPIKey != "" {
		gemini, err := core.NewGeminiGenerator(ctx, config.AppConfig.GeminiAPIKey, config.AppConfig.GeminiModel)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize GenAI client")
		}
		defer gemini.Close()
		generator = gemini
	}

	// Core services
	sessionCache := core.NewSessionCache(dbStore)
	resolver := core.NewResolver(
		dbStore,
		sessionCache,
		generator,
		config.AppConfig.LLMWorkers,
		time.Duration(config.AppConfig.LLMTimeoutSeconds)*time.Second,
	)
	pending := core.NewPendingTracker()
	dispatcher := bot.NewDispatcher(dbStore, resolver, sessionCache, pending)

	// Telegram long polling
	poller, err := telegram.NewPoller(config.AppConfig.TelegramBotToken, dispatcher)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize Telegram transport")
	}
	go poller.Run(ctx)

	// Operator HTTP surface
	apiHandler := api.NewAPIHandler(sessionCache, dbStore)
	router := api.NewRouter(apiHandler)

	serverAddr := fmt.Sprintf(":%s", config.AppConfig.HTTPPort)
	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("addr", serverAddr).Msg("starting operator HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Str("addr", serverAddr).Msg("HTTP server failed")
		}
	}()

	// Wait for interrupt signal to gracefully shut everything down
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	// Stop the poller first so no new questions arrive mid-shutdown.
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exiting gracefully")
}
