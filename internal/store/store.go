// Package store persists prediction history in Postgres.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Entry is one recorded prediction.
type Entry struct {
	ID         uuid.UUID `json:"id"`
	Symptoms   []string  `json:"symptoms"`
	Disease    string    `json:"disease"`
	Confidence float64   `json:"confidence"`
	CreatedAt  time.Time `json:"createdAt"`
}

const schema = `
CREATE TABLE IF NOT EXISTS prediction_history (
	id          UUID PRIMARY KEY,
	symptoms    TEXT[] NOT NULL,
	disease     TEXT NOT NULL,
	confidence  DOUBLE PRECISION NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS prediction_history_created_at_idx ON prediction_history (created_at DESC);
`

// Postgres is a prediction history backed by a pgx pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// Connect opens a pool and verifies it with a ping.
func Connect(ctx context.Context, url string) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse db url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	return &Postgres{pool: pool}, nil
}

// Migrate creates the history table if needed.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *Postgres) Close() {
	p.pool.Close()
}

// Record inserts e. A zero ID or CreatedAt is filled in.
func (p *Postgres) Record(ctx context.Context, e Entry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := p.pool.Exec(ctx,
		`INSERT INTO prediction_history (id, symptoms, disease, confidence, created_at) VALUES ($1, $2, $3, $4, $5)`,
		e.ID, e.Symptoms, e.Disease, e.Confidence, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("record prediction: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (p *Postgres) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, symptoms, disease, confidence, created_at FROM prediction_history ORDER BY created_at DESC LIMIT $1`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Symptoms, &e.Disease, &e.Confidence, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	return entries, nil
}
