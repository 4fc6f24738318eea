package sequence

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Allocator hands out gapless, per-partition event sequence numbers backed
// by the event_sequence table.
type Allocator struct {
	q Querier
}

func NewAllocator(q Querier) *Allocator {
	return &Allocator{q: q}
}

// Next bumps and returns the partition's counter. The first call for a
// partition returns 1.
func (a *Allocator) Next(ctx context.Context, partitionKey string) (int64, error) {
	if partitionKey == "" {
		return 0, fmt.Errorf("next sequence: empty partition key")
	}
	var seq int64
	err := a.q.QueryRow(ctx, `
		INSERT INTO event_sequence (partition_key, last_sequence)
		VALUES ($1, 1)
		ON CONFLICT (partition_key)
		DO UPDATE SET last_sequence = event_sequence.last_sequence + 1, updated_at = now()
		RETURNING last_sequence
	`, partitionKey).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("next sequence for %s: %w", partitionKey, err)
	}
	return seq, nil
}
