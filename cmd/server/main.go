package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/dkeye/farmrelay/internal/adapters/http"
	"github.com/dkeye/farmrelay/internal/app"
	"github.com/dkeye/farmrelay/internal/app/orch"
	"github.com/dkeye/farmrelay/internal/auth"
	"github.com/dkeye/farmrelay/internal/config"
	"github.com/dkeye/farmrelay/internal/store"
)

func setupLogger(cfg *config.Config) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.Mode == "debug" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogger(cfg)

	st, err := store.Open(ctx, store.Options{
		Driver:        cfg.Store,
		MongoURI:      cfg.MongoURI,
		MongoDatabase: cfg.MongoDatabase,
		MaxRetry:      cfg.MongoMaxRetry,
		RetryDelay:    cfg.MongoRetryDelay,
		MaxPoolSize:   cfg.MongoMaxPoolSize,
	})
	if err != nil {
		log.Fatal().Err(err).Str("store", cfg.Store).Msg("failed to open store")
	}
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer closeCancel()
		if err := st.Close(closeCtx); err != nil {
			log.Error().Err(err).Msg("store close")
		}
	}()

	verifier, err := auth.NewVerifier(auth.Options{Secret: []byte(cfg.JWTSecret), Alg: cfg.JWTAlg})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init token verifier")
	}

	o := &orch.Orchestrator{
		Registry: app.NewRegistry(),
		Rooms:    app.NewRoomManager(),
		Policy:   app.PolicyFor(cfg.Backpressure),
	}
	o.Presence = app.NewPresenceTracker(st, o, cfg.OpTimeout)

	if cfg.ClearHostsOnStart {
		if _, err := o.Presence.ClearHosts(ctx); err != nil {
			log.Error().Err(err).Msg("failed to clear hosts")
		}
	}

	r := router.SetupRouter(ctx, cfg, o, verifier, st)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Str("store", cfg.Store).Msg("farmrelay server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}
