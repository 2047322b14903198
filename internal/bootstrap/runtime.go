// Package bootstrap wires the store, cache and media storage for the binaries.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log"

	"cmsadmin/internal/cache"
	"cmsadmin/internal/config"
	"cmsadmin/internal/database"
	"cmsadmin/internal/middleware"
	"cmsadmin/internal/models"
	"cmsadmin/internal/observability"
	"cmsadmin/internal/repository"
	"cmsadmin/internal/storage"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	// EnsureSettings writes the default settings singleton when it is missing.
	// It is always applied in development.
	EnsureSettings bool
	// SkipMedia leaves Runtime.Media nil, for tools that never touch uploads.
	SkipMedia bool
}

// Runtime holds the backends a process works against.
type Runtime struct {
	Repo  repository.DocumentRepository
	Redis *redis.Client
	Media storage.MediaStorage
}

// Close releases the store and the redis client.
func (r *Runtime) Close() error {
	var errs []error
	if r.Repo != nil {
		errs = append(errs, r.Repo.Close())
	}
	if r.Redis != nil {
		errs = append(errs, r.Redis.Close())
	}
	return errors.Join(errs...)
}

// InitRuntime opens the configured store, connects to Redis and builds the
// media storage. Redis is optional: an unreachable server leaves Redis nil.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*Runtime, error) {
	repo, err := OpenRepository(cfg)
	if err != nil {
		return nil, err
	}

	rt := &Runtime{Repo: repo}
	rt.Redis = cache.InitRedis(cfg.RedisURL)

	if !opts.SkipMedia {
		media, err := OpenMediaStorage(cfg)
		if err != nil {
			_ = rt.Close()
			return nil, fmt.Errorf("media storage: %w", err)
		}
		rt.Media = media
	}

	if opts.EnsureSettings || cfg.Env == "development" {
		if err := EnsureSettings(ctx, repo); err != nil {
			_ = rt.Close()
			return nil, fmt.Errorf("failed to ensure settings: %w", err)
		}
	}

	return rt, nil
}

// OpenRepository builds the document store selected by STORE_DRIVER, wrapped
// with tracing, metrics and store logs.
func OpenRepository(cfg *config.Config) (repository.DocumentRepository, error) {
	var (
		repo repository.DocumentRepository
		err  error
	)
	switch cfg.StoreDriver {
	case "json":
		repo, err = repository.NewJSONFileRepository(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("json store: %w", err)
		}
	case "sqlite", "postgres":
		db, err := database.Connect(cfg)
		if err != nil {
			return nil, fmt.Errorf("database connection failed: %w", err)
		}
		repo, err = openGormRepository(db)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	logger := observability.NewStoreLogger(middleware.Logger, cfg.StoreDriver)
	return repository.NewInstrumented(repo, cfg.StoreDriver, logger), nil
}

// openGormRepository migrates db and closes it when that fails.
func openGormRepository(db *gorm.DB) (repository.DocumentRepository, error) {
	repo, err := repository.NewGormRepository(db)
	if err != nil {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			_ = sqlDB.Close()
		}
		return nil, fmt.Errorf("document store: %w", err)
	}
	return repo, nil
}

// OpenMediaStorage builds the upload backend selected by MEDIA_STORAGE.
func OpenMediaStorage(cfg *config.Config) (storage.MediaStorage, error) {
	switch cfg.MediaStorage {
	case "minio":
		return storage.NewMinioStorage(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
	case "disk", "":
		return storage.NewDiskStorage(cfg.UploadDir)
	}
	return nil, fmt.Errorf("unknown MEDIA_STORAGE %q", cfg.MediaStorage)
}

// EnsureSettings creates the settings singleton with default values when the
// store has none.
func EnsureSettings(ctx context.Context, repo repository.DocumentRepository) error {
	_, err := repo.Get(ctx, models.CollectionSettings, models.SettingsID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	rec, err := models.ToRecord(models.DefaultSettings())
	if err != nil {
		return err
	}
	if _, err := repo.Create(ctx, models.CollectionSettings, rec); err != nil {
		return err
	}
	log.Printf("default settings created (id %d)", models.SettingsID)
	return nil
}
