// Package storage provides the local key/value storage the storefront keeps
// its cart in. Values are always replaced wholesale.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrNotFound is returned by Get when the key holds no value.
var ErrNotFound = errors.New("storage: key not found")

// Storage is a minimal key/value store.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Kinds of backends understood by Open.
const (
	KindMemory   = "memory"
	KindSQLite   = "sqlite"
	KindRedis    = "redis"
	KindPostgres = "postgres"
)

// Config selects and configures a backend.
type Config struct {
	Kind       string
	SQLitePath string
	Redis      RedisConfig
	Postgres   PostgresConfig
}

// Open builds the configured backend and wraps it in a Fallback so that a
// failing backend degrades to memory instead of breaking the session.
// The returned close func releases the backend's resources.
func Open(ctx context.Context, cfg Config, log logrus.FieldLogger) (Storage, func() error, error) {
	var (
		primary Storage
		closeFn = func() error { return nil }
	)

	switch cfg.Kind {
	case "", KindMemory:
		primary = NewMemory()

	case KindSQLite:
		s, err := OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("opening sqlite storage: %w", err)
		}
		primary, closeFn = s, s.Close

	case KindRedis:
		r, err := OpenRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, fmt.Errorf("opening redis storage: %w", err)
		}
		primary, closeFn = r, r.Close

	case KindPostgres:
		p, err := OpenPostgres(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, fmt.Errorf("opening postgres storage: %w", err)
		}
		primary, closeFn = p, p.Close

	default:
		return nil, nil, fmt.Errorf("unknown storage kind %q", cfg.Kind)
	}

	return NewFallback(primary, log), closeFn, nil
}

func now() time.Time {
	return time.Now().UTC()
}
