package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/evteevakb/filestorage"
	"github.com/evteevakb/filestorage/config"
	"github.com/evteevakb/filestorage/database"
	"github.com/evteevakb/filestorage/filesystem"
	"github.com/evteevakb/filestorage/s3store"
)

// app bundles the dependencies and services built from a Config.
type app struct {
	db      database.Database
	closers []func() error

	auth   *filestorage.AuthService
	files  *filestorage.FileService
	health *filestorage.HealthService
}

// openDatabase connects to the metadata database, migrating first when
// migrate is set, and checks the schema.
func openDatabase(ctx context.Context, cfg *config.Config, migrate bool) (database.Database, error) {
	db, err := database.Open(ctx, cfg.Database.Config, migrate)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	slog.Info("connected to database", "type", cfg.Database.Type, "migrated", migrate)
	return db, nil
}

// openStorage builds the configured object storage backend.
func openStorage(ctx context.Context, cfg config.StorageConfig) (filestorage.ObjectStorage, func() error, error) {
	switch cfg.Type {
	case "filesystem":
		store, err := filesystem.Open(cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("using filesystem storage", "path", cfg.Path)
		return store, store.Close, nil

	case "s3":
		store, err := s3store.New(ctx, s3store.Config{
			Endpoint:     cfg.S3.Endpoint,
			Region:       cfg.S3.Region,
			Bucket:       cfg.S3.Bucket,
			AccessKey:    cfg.S3.AccessKey,
			SecretKey:    cfg.S3.SecretKey,
			UsePathStyle: cfg.S3.UsePathStyle,
		})
		if err != nil {
			return nil, nil, err
		}

		if cfg.S3.CreateBucket {
			if err = store.EnsureBucket(ctx); err != nil {
				return nil, nil, err
			}
		}

		slog.Info("using s3 storage", "endpoint", cfg.S3.Endpoint, "bucket", cfg.S3.Bucket)
		return store, func() error { return nil }, nil

	default:
		return nil, nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

// openApp wires the database, storage and services. The caller must Close it.
func openApp(ctx context.Context, cfg *config.Config, migrate bool) (*app, error) {
	db, err := openDatabase(ctx, cfg, migrate)
	if err != nil {
		return nil, err
	}

	storage, closeStorage, err := openStorage(ctx, cfg.Storage)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open storage: %w", err)
	}

	return &app{
		db:      db,
		closers: []func() error{closeStorage, db.Close},
		auth: filestorage.NewAuthService(db.Users(), db.Tokens(), filestorage.AuthConfig{
			BcryptCost: cfg.Service.BcryptCost,
		}),
		files: filestorage.NewFileService(db.Files(), storage, filestorage.ServiceConfig{
			CleanupTimeout: cfg.Service.CleanupTimeout,
		}),
		health: filestorage.NewHealthService(db, storage),
	}, nil
}

// requireUser fails unless username is registered.
func (a *app) requireUser(ctx context.Context, username string) error {
	_, found, err := a.db.Users().FindByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("find user %s: %w", username, err)
	}
	if !found {
		return fmt.Errorf("user %s: %w", username, filestorage.ErrUserNotFound)
	}
	return nil
}

func (a *app) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}
