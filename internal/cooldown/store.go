// Package cooldown persists the last alert time and decides whether a new alert
// may be dispatched.
package cooldown

import (
	"context"
	"errors"
	"fmt"

	"SqueezeSentinel/internal/config"
)

// ErrUnknownStore is returned by Open for an unsupported store kind.
var ErrUnknownStore = errors.New("unknown cooldown store")

// Store is a durable single-value-per-key capability. Get returns 0 for a key
// that has never been set.
type Store interface {
	Get(ctx context.Context, key string) (float64, error)
	Set(ctx context.Context, key string, value float64) error
	Close() error
}

// Swapper is implemented by stores that can atomically replace old with new.
// It returns false, without error, when the current value is not old.
type Swapper interface {
	CompareAndSwap(ctx context.Context, key string, old, new float64) (bool, error)
}

// Open builds the store selected by cfg.Store.
func Open(ctx context.Context, cfg config.CooldownConfig) (Store, error) {
	switch cfg.Store {
	case "memory":
		return NewMemoryStore(), nil
	case "noop":
		return NewNoopStore(), nil
	case "file":
		return NewFileStore(cfg.FilePath)
	case "sqlite":
		return NewSQLiteStore(cfg.SQLitePath)
	case "redis":
		return NewRedisStore(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.Prefix)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStore, cfg.Store)
	}
}
