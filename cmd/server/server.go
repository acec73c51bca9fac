package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"

	"github.com/KirkDiggler/vtt-api/internal/config"
	"github.com/KirkDiggler/vtt-api/internal/dice"
	v1alpha1 "github.com/KirkDiggler/vtt-api/internal/handlers/api/v1alpha1"
	"github.com/KirkDiggler/vtt-api/internal/identity"
	"github.com/KirkDiggler/vtt-api/internal/orchestrators/session"
	"github.com/KirkDiggler/vtt-api/internal/pkg/clock"
	"github.com/KirkDiggler/vtt-api/internal/pkg/idgen"
	"github.com/KirkDiggler/vtt-api/internal/realtime"
	redisclient "github.com/KirkDiggler/vtt-api/internal/redis"
	"github.com/KirkDiggler/vtt-api/internal/repositories/chatmessage"
	"github.com/KirkDiggler/vtt-api/internal/repositories/diceroll"
	"github.com/KirkDiggler/vtt-api/internal/repositories/gamesession"
	"github.com/KirkDiggler/vtt-api/internal/repositories/initiativeorder"
	"github.com/KirkDiggler/vtt-api/internal/repositories/participant"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the HTTP server",
	Long:  `Start the VTT API server with all configured services.`,
	RunE:  runServer,
}

func runServer(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Received shutdown signal, gracefully stopping...")
		cancel()
	}()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	client, err := redisclient.NewClient(cfg.RedisAddr, &redisclient.Options{
		PoolSize:     cfg.RedisPoolSize,
		MinIdleConns: cfg.RedisMinIdleConns,
		UseTLS:       cfg.RedisUseTLS,
	})
	if err != nil {
		return fmt.Errorf("failed to create redis client: %w", err)
	}

	sessionRepo, err := gamesession.NewRedisRepository(&gamesession.Config{Client: client})
	if err != nil {
		return fmt.Errorf("failed to create session repository: %w", err)
	}
	chatRepo, err := chatmessage.NewRedisRepository(&chatmessage.Config{Client: client})
	if err != nil {
		return fmt.Errorf("failed to create chat repository: %w", err)
	}
	diceRepo, err := diceroll.NewRedisRepository(&diceroll.Config{Client: client})
	if err != nil {
		return fmt.Errorf("failed to create dice repository: %w", err)
	}
	initiativeRepo, err := initiativeorder.NewRedisRepository(&initiativeorder.Config{Client: client})
	if err != nil {
		return fmt.Errorf("failed to create initiative repository: %w", err)
	}
	participantRepo, err := participant.NewRedisRepository(&participant.Config{Client: client})
	if err != nil {
		return fmt.Errorf("failed to create participant repository: %w", err)
	}

	channelFactory := func(handlers realtime.Handlers) (realtime.Channel, error) {
		return realtime.NewRedisChannel(&realtime.Config{
			Client:         client,
			ConnectTimeout: cfg.ConnectTimeout,
		}, handlers)
	}

	orchestrator, err := session.New(&session.Config{
		SessionRepo:      sessionRepo,
		ChatRepo:         chatRepo,
		DiceRepo:         diceRepo,
		InitiativeRepo:   initiativeRepo,
		ParticipantRepo:  participantRepo,
		NewChannel:       channelFactory,
		Roller:           dice.NewRoller(),
		IDGenerator:      idgen.NewUUID(""),
		Clock:            clock.New(),
		DiceHistoryLimit: int64(cfg.DiceHistoryLimit),
	})
	if err != nil {
		return fmt.Errorf("failed to create session orchestrator: %w", err)
	}

	tokens, err := identity.NewTokenService(&identity.TokenConfig{
		SigningSecret: cfg.JWTSigningSecret,
		Issuer:        "vtt-api",
		Clock:         clock.New(),
	})
	if err != nil {
		return fmt.Errorf("failed to create token service: %w", err)
	}

	handler, err := v1alpha1.New(&v1alpha1.Config{
		Service:    orchestrator,
		Tokens:     tokens,
		NewChannel: channelFactory,
	})
	if err != nil {
		return fmt.Errorf("failed to create API handler: %w", err)
	}

	router := chi.NewRouter()
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := client.Ping(r.Context()).Err(); err != nil {
			http.Error(w, "redis unreachable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	router.Mount("/v1alpha1", handler.Routes())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server starting", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("failed to serve: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("Shutting down HTTP server...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer shutdownCancel()

		orchestrator.DisconnectFromSession(shutdownCtx)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("Graceful shutdown timeout exceeded, forcing stop", "error", err)
			_ = srv.Close()
		} else {
			slog.Info("Server stopped gracefully")
		}

		return nil
	case err := <-errChan:
		return err
	}
}
