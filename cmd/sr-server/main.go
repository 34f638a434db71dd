package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stockroom/internal/server"
	"stockroom/internal/shared"
	"stockroom/internal/shared/telemetry"
)

func main() {
	logger := log.New(os.Stdout, "[stockroom] ", log.LstdFlags)
	if err := run(logger); err != nil {
		logger.Fatalf("sr-server stopped with error: %v", err)
	}
}

func run(logger *log.Logger) error {
	// DB_PATH, HOST, PORT, DEBUG are all required
	cfg, err := shared.LoadConfig()
	if err != nil {
		return err
	}

	shutdownTelemetry, err := telemetry.Init(context.Background(), telemetry.Config{
		ServiceName:  "stockroom",
		OTLPEndpoint: cfg.OTLPEndpoint,
		Debug:        cfg.Debug,
	}, logger)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(ctx); err != nil {
			logger.Printf("telemetry shutdown: %v", err)
		}
	}()

	store, err := server.OpenStore(cfg.DBPath, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	api := &server.API{
		Store:   store,
		Metrics: server.NewMetrics(),
		Logger:  logger,
		Debug:   cfg.Debug,
	}

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      api.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Printf("sr-server listening on %s (debug=%t)", srv.Addr, cfg.Debug)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	logger.Println("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Printf("shutdown: %v", err)
	}
	return nil
}
