package storage

import (
	"context"
	"fmt"

	"vocab-go/internal/config"
	"vocab-go/internal/vocab"
)

// NewStorageFromConfig creates the backend selected by cfg.Type.
func NewStorageFromConfig(ctx context.Context, cfg config.StorageConfig, clock vocab.Clock, logger vocab.Logger) (vocab.Storage, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryStorage(), nil
	case "filesystem":
		if cfg.FSRoot == "" {
			return nil, fmt.Errorf("filesystem storage requires fs_root to be set")
		}
		return NewFileSystemStorage(cfg.FSRoot)
	case "s3":
		return NewS3Storage(ctx, S3Options{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			Prefix:          cfg.S3Prefix,
			UsePathStyle:    cfg.S3UsePathStyle,
			BreakerFailures: cfg.S3BreakerFailures,
		}, logger)
	case "sqlite":
		if cfg.SQLitePath == "" {
			return nil, fmt.Errorf("sqlite storage requires sqlite_path to be set")
		}
		return NewSQLiteStorage(cfg.SQLitePath, clock)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}

// Decorate layers the optional cache and metrics decorators over a backend.
// Metrics wrap the cache so hits are measured as well.
func Decorate(inner vocab.Storage, cache config.CacheConfig, observer Observer) vocab.Storage {
	s := inner
	if cache.Enabled {
		s = NewCachedStorage(s, cache.SizeMB, cache.TTLSeconds, observer)
	}
	if observer != nil {
		s = NewInstrumentedStorage(s, observer)
	}
	return s
}
