// hexfieldd is the game server: it owns the Redis-backed tile store, the
// click resolver and the websocket fan-out, and serves the HTTP API the
// frontend and spectators talk to.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"go.hexfield.org/game/go/batches"
	"go.hexfield.org/game/go/benchdata"
	"go.hexfield.org/game/go/config"
	"go.hexfield.org/game/go/frontend"
	"go.hexfield.org/game/go/game"
	"go.hexfield.org/game/go/neighbors"
	"go.hexfield.org/game/go/tilestore/redistilestore"
	"go.hexfield.org/game/go/wshub"
)

const (
	listenAddr      = "0.0.0.0:8080"
	shutdownTimeout = 10 * time.Second
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	logger.Info("starting",
		zap.String("addr", listenAddr),
		zap.Uint32("grid_radius", cfg.GridRadius),
		zap.Uint8("grid_batch_div", cfg.GridBatchDiv),
		zap.Bool("use_benchmark_data", cfg.UseBenchmarkData))

	store, err := redistilestore.NewFromURL(ctx, cfg.RedisURL, logger)
	if err != nil {
		return err
	}

	radius := int32(cfg.GridRadius)
	if cfg.UseBenchmarkData {
		if err := benchdata.Seed(ctx, store, radius, logger); err != nil {
			return err
		}
	}

	index := neighbors.New(radius)
	resolver := game.NewResolver(store, index, logger)
	projector := batches.NewProjector(store, index, int(cfg.GridBatchDiv), logger)
	hub := wshub.New(logger)
	server := &http.Server{
		Addr:    listenAddr,
		Handler: frontend.New(cfg, store, resolver, projector, hub, logger).Router(),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
