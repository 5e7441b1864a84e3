// internal/adapter/storage/snapshot_store.go

package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"tickerpulse/internal/domain/trend"
)

// snapshotBatchSize caps how many upserts go into one batch round trip.
const snapshotBatchSize = 25

// SnapshotStore implements storage for trend snapshots. Rows are keyed by
// (period, ticker, community) with an empty community meaning all communities,
// so aggregation runs replace rather than accumulate.
type SnapshotStore struct {
	db *pgxpool.Pool
}

// NewSnapshotStore creates a new snapshot store
func NewSnapshotStore(db *pgxpool.Pool) *SnapshotStore {
	return &SnapshotStore{
		db: db,
	}
}

// PutBatch upserts snapshots in chunks of at most snapshotBatchSize.
func (s *SnapshotStore) PutBatch(ctx context.Context, snapshots []trend.Snapshot) error {
	query := `
		INSERT INTO trend_snapshots (
			period, ticker, community, thread_count, comment_count, total, computed_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)
		ON CONFLICT (period, ticker, community) DO UPDATE
		SET
			thread_count = EXCLUDED.thread_count,
			comment_count = EXCLUDED.comment_count,
			total = EXCLUDED.total,
			computed_at = EXCLUDED.computed_at
	`

	for start := 0; start < len(snapshots); start += snapshotBatchSize {
		end := start + snapshotBatchSize
		if end > len(snapshots) {
			end = len(snapshots)
		}

		batch := &pgx.Batch{}
		for _, snap := range snapshots[start:end] {
			batch.Queue(
				query,
				string(snap.Period),
				snap.Ticker,
				snap.Community,
				snap.ThreadCount,
				snap.CommentCount,
				snap.Total,
				snap.ComputedAt,
			)
		}

		results := s.db.SendBatch(ctx, batch)
		for i := start; i < end; i++ {
			if _, err := results.Exec(); err != nil {
				results.Close()
				return fmt.Errorf("error upserting snapshot %s/%s: %w", snapshots[i].Period, snapshots[i].Ticker, err)
			}
		}
		if err := results.Close(); err != nil {
			return fmt.Errorf("error closing snapshot batch: %w", err)
		}
	}

	return nil
}

// Top returns the leaderboard for one period, ordered by total descending with
// ties broken by ticker. An empty community selects the all-communities rows.
func (s *SnapshotStore) Top(ctx context.Context, period trend.Period, community string, limit int) ([]trend.Snapshot, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT period, ticker, community, thread_count, comment_count, total, computed_at
		FROM trend_snapshots
		WHERE period = $1 AND community = $2
		ORDER BY total DESC, ticker ASC
		LIMIT $3
	`

	rows, err := s.db.Query(ctx, query, string(period), community, limit)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	var snapshots []trend.Snapshot
	for rows.Next() {
		var snap trend.Snapshot
		var p string

		err := rows.Scan(
			&p,
			&snap.Ticker,
			&snap.Community,
			&snap.ThreadCount,
			&snap.CommentCount,
			&snap.Total,
			&snap.ComputedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning snapshot: %w", err)
		}
		snap.Period = trend.Period(p)

		snapshots = append(snapshots, snap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshots: %w", err)
	}
	return snapshots, nil
}
