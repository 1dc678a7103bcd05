// Command syncdocd runs the reference remote document store: the HTTP
// sync target the scheduling engine's remote backend speaks to.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cogodo/spaced-sub003/internal/config"
	"github.com/cogodo/spaced-sub003/internal/docserver"
	"github.com/cogodo/spaced-sub003/internal/platform/badgerstore"
	"github.com/cogodo/spaced-sub003/internal/platform/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "syncdocd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	log := logger.Setup(cfg.Server.LogLevel)

	backend, err := badgerstore.Open(badgerstore.Config{
		Path:       cfg.Storage.Path,
		SyncWrites: true,
		Logger:     log,
	})
	if err != nil {
		return fmt.Errorf("open document store: %w", err)
	}
	defer func() { _ = backend.Close() }()

	if cfg.Server.JWTSecret == "" {
		log.Warn("running without authentication; set SCHED_SERVER_JWT_SECRET in production")
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           docserver.NewRouter(backend, cfg.Server.JWTSecret, log),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("document server listening", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case sig := <-stop:
		log.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	slog.Info("document server stopped")
	return nil
}
