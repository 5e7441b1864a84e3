// internal/adapter/storage/watermark_store.go

package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// WatermarkStore tracks the last-fetch time per community. A community with no
// row yet reports the zero time, which callers treat as a fresh start.
type WatermarkStore struct {
	db *pgxpool.Pool
}

// NewWatermarkStore creates a new watermark store
func NewWatermarkStore(db *pgxpool.Pool) *WatermarkStore {
	return &WatermarkStore{
		db: db,
	}
}

// LastFetch returns the watermark for one community.
func (s *WatermarkStore) LastFetch(ctx context.Context, community string) (time.Time, error) {
	query := `SELECT last_fetch FROM fetch_watermarks WHERE community = $1`

	var last time.Time
	err := s.db.QueryRow(ctx, query, community).Scan(&last)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("error querying watermark: %w", err)
	}
	return last, nil
}

// SetLastFetch advances the watermark for one community.
func (s *WatermarkStore) SetLastFetch(ctx context.Context, community string, t time.Time) error {
	query := `
		INSERT INTO fetch_watermarks (community, last_fetch)
		VALUES ($1, $2)
		ON CONFLICT (community) DO UPDATE
		SET last_fetch = EXCLUDED.last_fetch
	`

	if _, err := s.db.Exec(ctx, query, community, t); err != nil {
		return fmt.Errorf("error executing query: %w", err)
	}
	return nil
}
