// Package bootstrap builds the shared dependencies of the server, worker and CLI binaries.
package bootstrap

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/aura-interview/backend/config"
	"github.com/aura-interview/backend/internal/artifacts"
	"github.com/aura-interview/backend/internal/interviews"
	"github.com/aura-interview/backend/internal/persona"
	"github.com/aura-interview/backend/internal/provider/avatar"
	"github.com/aura-interview/backend/internal/provider/generation"
	"github.com/aura-interview/backend/internal/provider/speech"
	"github.com/aura-interview/backend/pkg/database"
	"github.com/aura-interview/backend/pkg/redis"
	"github.com/aura-interview/backend/pkg/storage"
)

// Store opens PostgreSQL and applies migrations when a database URL is configured,
// otherwise it returns an in-memory store. The returned func releases the pool.
func Store(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (interviews.Store, func(), error) {
	if !cfg.Enabled() {
		logger.Warn("DATABASE_URL not set, interviews are kept in memory only")
		return interviews.NewMemoryStore(), func() {}, nil
	}
	pool, err := database.NewPostgresPool(ctx, cfg.URL, logger)
	if err != nil {
		return nil, nil, err
	}
	if err := database.Migrate(ctx, pool, logger); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	return interviews.NewRepository(pool), pool.Close, nil
}

// Redis connects when an address is configured. A nil client means Redis is disabled.
func Redis(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) (*redis.Client, error) {
	if !cfg.Enabled() {
		logger.Info("REDIS_ADDR not set, running single-instance without job queue")
		return nil, nil
	}
	return redis.NewClient(ctx, redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}, logger)
}

// Artifacts returns the S3 artifact store when a bucket is configured, otherwise a local
// directory store. local is non-nil only in the second case so the server can serve it.
func Artifacts(ctx context.Context, cfg *config.Config, logger *zap.Logger) (store artifacts.Store, local *artifacts.LocalStore, err error) {
	if cfg.AWS.ArtifactsBucket != "" {
		s3Client, err := storage.NewS3(ctx, storage.S3Config{
			Region:          cfg.AWS.Region,
			AccessKeyID:     cfg.AWS.AccessKeyID,
			SecretAccessKey: cfg.AWS.SecretAccessKey,
			Bucket:          cfg.AWS.ArtifactsBucket,
		}, logger)
		if err == nil {
			return artifacts.NewS3Store(s3Client), nil, nil
		}
		logger.Warn("s3 disabled, falling back to local artifacts", zap.Error(err))
	}
	local, err = artifacts.NewLocalStore(cfg.Artifacts.LocalDir, cfg.Artifacts.PublicBaseURL)
	if err != nil {
		return nil, nil, err
	}
	return local, local, nil
}

// Service builds the interview service with every configured provider backend.
func Service(ctx context.Context, cfg *config.Config, store interviews.Store, art artifacts.Store, logger *zap.Logger) (*interviews.Service, error) {
	catalog := persona.Default(cfg.Interview.DefaultPersona)
	if cfg.Interview.PersonasFile != "" {
		c, err := persona.Load(cfg.Interview.PersonasFile, cfg.Interview.DefaultPersona)
		if err != nil {
			return nil, fmt.Errorf("load personas: %w", err)
		}
		catalog = c
	}
	return interviews.NewService(interviews.Deps{
		Store:       store,
		Personas:    catalog,
		Generation:  generation.New(ctx, cfg.Providers, logger),
		Synthesis:   speech.NewSynthesis(cfg.Providers, art, logger),
		Recognition: speech.NewRecognition(cfg.Providers, logger),
		Avatar:      avatar.New(cfg.Providers, logger),
		Artifacts:   art,
		Config:      cfg.Interview,
		Logger:      logger,
	}), nil
}
