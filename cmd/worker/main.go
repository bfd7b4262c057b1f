// Package main runs the background job worker that mirrors vendor video into artifact storage.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/aura-interview/backend/config"
	"github.com/aura-interview/backend/internal/bootstrap"
	"github.com/aura-interview/backend/internal/logger"
	"github.com/aura-interview/backend/internal/worker"
	"github.com/aura-interview/backend/pkg/queue"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logger.New(cfg.Log.JSON(), cfg.Log.Debug())
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if !cfg.Database.Enabled() || !cfg.Redis.Enabled() {
		log.Fatal("worker needs DATABASE_URL and REDIS_ADDR")
	}

	ctx := context.Background()
	store, closeStore, err := bootstrap.Store(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("database", zap.Error(err))
	}
	defer closeStore()

	rdb, err := bootstrap.Redis(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	art, _, err := bootstrap.Artifacts(ctx, cfg, log)
	if err != nil {
		log.Fatal("artifacts", zap.Error(err))
	}

	jobQueue := queue.NewQueue(rdb.Client, cfg.Worker.MaxRetries, log)
	processor := worker.NewMirrorProcessor(store, art, jobQueue, cfg.Worker.RetryBackoff, log)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		processor.Run(workerCtx)
	}()
	log.Info("worker started", zap.Int("max_retries", cfg.Worker.MaxRetries))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		log.Warn("worker did not stop in time")
	}
	log.Info("worker stopped")
}
