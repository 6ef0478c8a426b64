package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// CheckpointKV exposes run_checkpoints as a key-value store for run state
type CheckpointKV struct {
	db *DB
}

// Checkpoints returns the run checkpoint table as a KV
func (db *DB) Checkpoints() *CheckpointKV {
	return &CheckpointKV{db: db}
}

// Get returns the stored payload for key, or nil, nil when absent
func (kv *CheckpointKV) Get(ctx context.Context, key string) ([]byte, error) {
	var payload []byte
	err := kv.db.pool.QueryRow(ctx,
		`SELECT payload FROM run_checkpoints WHERE run_key = $1`, key,
	).Scan(&payload)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get checkpoint: %w", err)
	}
	return payload, nil
}

// Set upserts the payload for key
func (kv *CheckpointKV) Set(ctx context.Context, key string, value []byte) error {
	_, err := kv.db.pool.Exec(ctx,
		`INSERT INTO run_checkpoints (run_key, payload)
		 VALUES ($1, $2)
		 ON CONFLICT (run_key) DO UPDATE SET payload = $2, updated_at = NOW()`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to set checkpoint: %w", err)
	}
	return nil
}

// Delete removes the payload for key. Missing keys are not an error.
func (kv *CheckpointKV) Delete(ctx context.Context, key string) error {
	if _, err := kv.db.pool.Exec(ctx, `DELETE FROM run_checkpoints WHERE run_key = $1`, key); err != nil {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	return nil
}
