package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/medguide/backend/internal/config"
	"github.com/zhouzirui/medguide/backend/internal/handler"
	"github.com/zhouzirui/medguide/backend/internal/logger"
	"github.com/zhouzirui/medguide/backend/internal/service/ai"
	"github.com/zhouzirui/medguide/backend/internal/service/chat"
	"github.com/zhouzirui/medguide/backend/internal/service/facility"
	"github.com/zhouzirui/medguide/backend/internal/service/triage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Log.Level, cfg.Log.Format)
	if envErr != nil {
		log.Warn().Err(envErr).Msg("no .env file loaded, using system environment only")
	}

	store, err := openStore(cfg.Store)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Store.Driver).Msg("failed to open conversation store")
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close conversation store")
		}
	}()

	provider, err := ai.New(ctx, cfg.AI)
	if err != nil {
		log.Warn().Err(err).Msg("analysis provider unavailable, falling back to mock")
		provider = ai.NewMockProvider()
	}

	directory := facility.NewClient(cfg.Directory)
	if !cfg.Directory.Enabled() {
		log.Info().Msg("FACILITY_API_KEY not set, facility results use the fallback list")
	}

	triageSvc := triage.NewService(store, provider, directory)
	router := handler.NewRouter(cfg.Server, triageSvc)

	startServer(ctx, cfg.Server, router)
}

func openStore(cfg config.StoreConfig) (chat.Store, error) {
	switch cfg.Driver {
	case "sqlite":
		store, err := chat.NewSQLiteStore(cfg.Path)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return chat.NewMemoryStore(), nil
	}
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Info().Str("addr", addr).Msg("medguide backend listening")
	if err := runServer(ctx, srv); err != nil {
		log.Error().Err(err).Msg("server error")
		return
	}
	log.Info().Msg("server stopped")
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
