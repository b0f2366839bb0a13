// Command webhooks runs the order-event HTTP server. Channels deliver
// order, cancellation and return events here; each event moves reserved
// stock exactly once.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ngs/omnihub/internal/domain/shared"
	"github.com/ngs/omnihub/internal/infrastructure/cache"
	"github.com/ngs/omnihub/internal/infrastructure/config"
	"github.com/ngs/omnihub/internal/infrastructure/logger"
	"github.com/ngs/omnihub/internal/infrastructure/persistence"
	"github.com/ngs/omnihub/internal/interfaces/http/handler"
	"github.com/ngs/omnihub/internal/interfaces/http/router"
)

func main() {
	os.Exit(run())
}

func run() int {
	portFlag := flag.String("port", "", "listen port (overrides config)")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		return 2
	}
	log := logger.New(logger.Config(cfg.Log))
	defer log.Sync()

	db, err := persistence.NewDatabase(&cfg.Database)
	if err != nil {
		log.Error("cannot open database", zap.Error(err))
		return exitCode(err)
	}
	defer db.Close()
	store := persistence.NewStore(db, log)

	if err := store.EnsureSchema(context.Background()); err != nil {
		log.Error("schema migration failed", zap.Error(err))
		return 1
	}

	idem := cache.NewIdempotencyStore(cfg.Redis, log)
	defer idem.Close()

	webhooks := handler.NewWebhookHandler(store, idem, cfg.Webhook.IdempotencyTTL, cfg.HTTP.MaxBodySize, log)
	engine := router.New(webhooks, log)

	port := cfg.HTTP.Port
	if *portFlag != "" {
		port = *portFlag
	}
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      engine,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("webhook server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		log.Error("server failed", zap.Error(err))
		return 1
	case sig := <-quit:
		log.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
		return 1
	}
	return 0
}

func exitCode(err error) int {
	if errors.Is(err, shared.ErrConfig) {
		return 2
	}
	return 1
}
