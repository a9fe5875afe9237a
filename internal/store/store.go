package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// EnsureSchema creates the runs table when it does not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS analysis_runs (
			id                  uuid PRIMARY KEY,
			messages            int NOT NULL,
			batches             int NOT NULL,
			failed_batches      int NOT NULL,
			profile             jsonb NOT NULL,
			gift_ideas          text NOT NULL,
			relationship_report text NOT NULL,
			created_at          timestamptz NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
