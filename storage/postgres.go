package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/irsalhamdi/sleepoutside/database"
	"github.com/jmoiron/sqlx"
)

type PostgresConfig = database.Config

// Postgres stores values in the kv_store table managed by the database
// package migrations.
type Postgres struct {
	db *sqlx.DB
}

func OpenPostgres(ctx context.Context, cfg PostgresConfig) (*Postgres, error) {
	db, err := database.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}

	if err := database.StatusCheck(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	if err := database.Migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return NewPostgres(db), nil
}

func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) Close() error {
	return p.db.Close()
}

func (p *Postgres) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := p.db.GetContext(ctx, &value, `SELECT value FROM kv_store WHERE key = $1`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %q: %w", key, err)
	}
	return value, nil
}

func (p *Postgres) Set(ctx context.Context, key string, value []byte) error {
	const q = `
	INSERT INTO kv_store (key, value, updated_at) VALUES ($1, $2, $3)
	ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`

	if _, err := p.db.ExecContext(ctx, q, key, value, now()); err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

func (p *Postgres) Delete(ctx context.Context, key string) error {
	if _, err := p.db.ExecContext(ctx, `DELETE FROM kv_store WHERE key = $1`, key); err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}
