// internal/domain/trend/model.go

package trend

import (
	"context"
	"time"
)

// Period is a fixed look-back window used for aggregation.
type Period string

const (
	Period24h Period = "24h"
	Period7d  Period = "7d"
	Period30d Period = "30d"
)

// Periods lists every aggregation window, in the order they are processed.
func Periods() []Period {
	return []Period{Period24h, Period7d, Period30d}
}

// Duration returns the look-back length of the period.
func (p Period) Duration() time.Duration {
	switch p {
	case Period7d:
		return 7 * 24 * time.Hour
	case Period30d:
		return 30 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// Valid reports whether p is one of the known periods.
func (p Period) Valid() bool {
	switch p {
	case Period24h, Period7d, Period30d:
		return true
	}
	return false
}

// Snapshot is the fully-recomputed aggregate for one (period, ticker[, community])
// key. An empty Community means "all communities". Snapshots are replaced
// wholesale on every aggregation run, never incrementally updated, so
// ThreadCount+CommentCount == Total holds by construction.
type Snapshot struct {
	Period       Period    `json:"period"`
	Ticker       string    `json:"ticker"`
	Community    string    `json:"community,omitempty"`
	ThreadCount  int       `json:"thread_count"`
	CommentCount int       `json:"comment_count"`
	Total        int       `json:"total"`
	ComputedAt   time.Time `json:"computed_at"`
}

// Store is the persistence boundary for trend snapshots.
type Store interface {
	// PutBatch upserts snapshots keyed by (period, ticker, community), chunking
	// internally under the store's per-call batch limit.
	PutBatch(ctx context.Context, snapshots []Snapshot) error

	// Top returns the leaderboard for a period, ordered by total descending with
	// ties broken by ticker. An empty community selects the all-communities rows.
	Top(ctx context.Context, period Period, community string, limit int) ([]Snapshot, error)
}
