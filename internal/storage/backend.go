package storage

import (
	"context"
	"errors"
	"fmt"

	"jobprep/internal/config"
)

var (
	// ErrNotFound is returned by Get when the key holds nothing.
	ErrNotFound = errors.New("storage: key not found")
	// ErrQuotaExceeded is returned by Set when the backend is out of room.
	ErrQuotaExceeded = errors.New("storage: quota exceeded")
)

// Backend is a small key-value store holding JSON documents.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Open builds the backend selected by cfg.Backend.
func Open(ctx context.Context, cfg config.StorageConfig) (Backend, error) {
	switch cfg.Backend {
	case "file":
		return NewFileBackend(cfg.File.Path, cfg.File.QuotaBytes)
	case "redis":
		return NewRedisBackend(ctx, cfg.Redis)
	case "sqlite":
		return NewSQLiteBackend(ctx, cfg.SQLite.Path)
	case "memory":
		return NewMemoryBackend(cfg.Memory.QuotaBytes), nil
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Backend)
	}
}
