// Package main runs the interview HTTP server with WebSocket and graceful shutdown.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-interview/backend/config"
	"github.com/aura-interview/backend/internal/bootstrap"
	"github.com/aura-interview/backend/internal/interviews"
	"github.com/aura-interview/backend/internal/logger"
	"github.com/aura-interview/backend/internal/middleware"
	"github.com/aura-interview/backend/internal/models"
	"github.com/aura-interview/backend/internal/realtime"
	"github.com/aura-interview/backend/internal/worker"
	"github.com/aura-interview/backend/pkg/queue"
	"github.com/aura-interview/backend/pkg/response"
)

const janitorInterval = time.Minute

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
	if rdb != nil {
		defer rdb.Close()
	}

	art, localArtifacts, err := bootstrap.Artifacts(ctx, cfg, log)
	if err != nil {
		log.Fatal("artifacts", zap.Error(err))
	}

	svc, err := bootstrap.Service(ctx, cfg, store, art, log)
	if err != nil {
		log.Fatal("interview service", zap.Error(err))
	}

	var hub *realtime.Hub
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	if rdb != nil {
		pubsub := realtime.NewRedisPubSub(rdb.Client, log)
		hub = realtime.NewHub(log, pubsub, pubsub)
		jobQueue := queue.NewQueue(rdb.Client, cfg.Worker.MaxRetries, log)
		svc.SetMirrorQueue(jobQueue)
		// In-process mirroring only without PostgreSQL; with it cmd/worker owns the queue.
		if !cfg.Database.Enabled() {
			processor := worker.NewMirrorProcessor(store, art, jobQueue, cfg.Worker.RetryBackoff, log)
			go processor.Run(workerCtx)
			log.Info("artifact mirror worker started in-process")
		}
	} else {
		hub = realtime.NewHub(log, nil, nil)
	}
	svc.SetPublisher(hub)
	hub.SetRoomEmptyHandler(func(id uuid.UUID) {
		abandonIfActive(svc, id, log)
	})

	go svc.Registry().RunJanitor(workerCtx, janitorInterval)

	if !cfg.Log.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(log))

	router.GET("/health", func(c *gin.Context) {
		hctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		checks := gin.H{"store": "ok", "redis": "disabled"}
		healthy := true
		if err := svc.Ping(hctx); err != nil {
			checks["store"] = err.Error()
			healthy = false
		}
		if rdb != nil {
			checks["redis"] = "ok"
			if err := rdb.Healthy(hctx); err != nil {
				checks["redis"] = err.Error()
				healthy = false
			}
		}
		body := gin.H{
			"status":    "ok",
			"checks":    checks,
			"providers": svc.ProviderStatus(),
			"sessions":  svc.Registry().Len(),
		}
		if !healthy {
			body["status"] = "degraded"
			c.JSON(http.StatusServiceUnavailable, response.Body{Success: false, Data: body, Code: "degraded"})
			return
		}
		response.OK(c, body)
	})

	api := router.Group("/api/v1")
	interviews.NewHandler(svc, log).Register(api)
	router.GET("/ws/interviews/:id", realtime.ServeWs(hub, svc, log))
	if localArtifacts != nil {
		router.Static(cfg.Artifacts.PublicBaseURL, localArtifacts.Dir())
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("port", cfg.Server.Port), zap.Bool("demo_mode", cfg.Providers.DemoMode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	workerCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", zap.Error(err))
	}
	log.Info("server stopped")
}

// abandonIfActive ends an interview whose last local viewer disconnected mid-interview.
func abandonIfActive(svc *interviews.Service, id uuid.UUID, log *zap.Logger) {
	ctx := context.Background()
	iv, err := svc.GetSession(ctx, id)
	if err != nil || iv.Status != models.StatusActive {
		return
	}
	if _, err := svc.Abandon(ctx, id); err != nil {
		if !errors.Is(err, interviews.ErrInvalidStateTransition) {
			log.Warn("abandon on disconnect failed", zap.String(logger.FieldInterview, id.String()), zap.Error(err))
		}
		return
	}
	log.Info("interview abandoned after last client left", zap.String(logger.FieldInterview, id.String()))
}
