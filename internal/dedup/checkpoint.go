package dedup

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

type Executor interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Checkpoint tracks the highest sequence each consumer has applied per
// partition in event_dedup_checkpoint.
type Checkpoint struct {
	exec Executor
}

func NewCheckpoint(exec Executor) *Checkpoint {
	return &Checkpoint{exec: exec}
}

// WithExecutor returns a copy bound to exec, typically the transaction that
// also applies the event.
func (c *Checkpoint) WithExecutor(exec Executor) *Checkpoint {
	return &Checkpoint{exec: exec}
}

// Claim advances the checkpoint to seq and reports whether the event is new.
// It returns false without writing when seq is not above the stored value,
// so two deliveries of one event can never both claim it.
func (c *Checkpoint) Claim(ctx context.Context, consumer, partitionKey string, seq int64) (bool, error) {
	var stored int64
	err := c.exec.QueryRow(ctx, `
		INSERT INTO event_dedup_checkpoint (consumer_name, partition_key, last_sequence)
		VALUES ($1, $2, $3)
		ON CONFLICT (consumer_name, partition_key)
		DO UPDATE SET last_sequence = EXCLUDED.last_sequence, updated_at = now()
		WHERE event_dedup_checkpoint.last_sequence < EXCLUDED.last_sequence
		RETURNING last_sequence
	`, consumer, partitionKey, seq).Scan(&stored)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("claim checkpoint: %w", err)
	}
	return true, nil
}

// Last returns the stored sequence, or 0 when the partition was never seen.
func (c *Checkpoint) Last(ctx context.Context, consumer, partitionKey string) (int64, error) {
	var last int64
	err := c.exec.QueryRow(ctx, `
		SELECT last_sequence
		FROM event_dedup_checkpoint
		WHERE consumer_name = $1 AND partition_key = $2
	`, consumer, partitionKey).Scan(&last)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("select checkpoint: %w", err)
	}
	return last, nil
}
