package databases

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	// postgres driver
	_ "github.com/lib/pq"

	"github.com/pulsepoint/eris-api/config"
)

const (
	createStateTable = `CREATE TABLE IF NOT EXISTS eris_state (
	key        TEXT PRIMARY KEY,
	value      JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`
	selectState = `SELECT value FROM eris_state WHERE key = $1`
	upsertState = `INSERT INTO eris_state (key, value, updated_at) VALUES ($1, $2, now())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`
)

type postgresStateDatabase struct {
	db *sql.DB
}

// NewPostgresDB opens and pings the database named by the config
func NewPostgresDB(conf *config.Config) (*sql.DB, error) {
	db, err := sql.Open("postgres", conf.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// NewPostgresStateDatabase creates the state table when it is missing
func NewPostgresStateDatabase(ctx context.Context, db *sql.DB) (StateDatabase, error) {
	if _, err := db.ExecContext(ctx, createStateTable); err != nil {
		return nil, fmt.Errorf("failed to create state table: %w", err)
	}
	return &postgresStateDatabase{db: db}, nil
}

func (p *postgresStateDatabase) Load(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := p.db.QueryRowContext(ctx, selectState, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (p *postgresStateDatabase) Save(ctx context.Context, key string, value []byte) error {
	_, err := p.db.ExecContext(ctx, upsertState, key, string(value))
	return err
}
