package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/IgoorDrt/ErroOps-v1/internal/blob"
	"github.com/IgoorDrt/ErroOps-v1/internal/chatview"
	"github.com/IgoorDrt/ErroOps-v1/internal/config"
	"github.com/IgoorDrt/ErroOps-v1/internal/feed"
	"github.com/IgoorDrt/ErroOps-v1/internal/httpserver"
	"github.com/IgoorDrt/ErroOps-v1/internal/logging"
	"github.com/IgoorDrt/ErroOps-v1/internal/messages"
	"github.com/IgoorDrt/ErroOps-v1/internal/presence"
	"github.com/IgoorDrt/ErroOps-v1/internal/security"
	"github.com/IgoorDrt/ErroOps-v1/internal/service"
	"github.com/IgoorDrt/ErroOps-v1/internal/store"
	"github.com/IgoorDrt/ErroOps-v1/internal/ws"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat, nil)

	// Document store and its change feed
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	backend, closeBackend, err := store.Open(ctx, cfg, logger)
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("failed to open store")
	}
	defer func() {
		if err := closeBackend(); err != nil {
			logger.Error().Err(err).Msg("closing store")
		}
	}()

	changes, closeFeed, err := feed.Open(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.FeedDriver).Msg("failed to open change feed")
	}
	defer func() {
		if err := closeFeed(); err != nil {
			logger.Error().Err(err).Msg("closing change feed")
		}
	}()

	// Security components
	tokenSvc := security.NewTokenService(cfg.JWTSecret, time.Duration(cfg.AccessTokenMinutes)*time.Minute)
	passwordHasher := security.NewPasswordHasher(cfg.BcryptCost)

	// Services
	sessions := service.NewSessions()
	adapter := messages.NewAdapter(backend, changes, logger)
	tracker := presence.NewTracker(backend, changes, sessions, logger, cfg.PresenceWriteTimeout)
	blobs := blob.NewFilesystem(cfg.UploadDir, cfg.PublicBaseURL, cfg.MaxUploadBytes)
	hub := ws.NewHub()

	// Build HTTP router
	router := httpserver.NewRouter(cfg, httpserver.Dependencies{
		Tokens:        tokenSvc,
		Auth:          service.NewAuthService(backend, tokenSvc, passwordHasher, sessions),
		Users:         service.NewUserService(backend, backend),
		Conversations: service.NewConversationService(adapter),
		Profiles:      backend,
		Blobs:         blobs,
		Hub:           hub,
		Chat: chatview.Deps{
			Messages:      adapter,
			Presence:      tracker,
			Profiles:      backend,
			Blobs:         blobs,
			StatusWorkers: cfg.StatusWriteWorkers,
			Logger:        logger,
		},
		Logger: logger,
	})

	srv := &http.Server{
		Addr:         cfg.HTTPAddr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	// Hijacked sockets are not tracked by Shutdown.
	srv.RegisterOnShutdown(hub.CloseAll)

	// Start server in background
	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr()).Str("store", cfg.StoreDriver).Str("feed", cfg.FeedDriver).Msg("starting chat server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info().Msg("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}
