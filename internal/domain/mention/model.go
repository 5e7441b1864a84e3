// internal/domain/mention/model.go

package mention

import (
	"context"
	"time"

	"tickerpulse/internal/domain/content"
)

// Mention is one observed occurrence of a ticker in one piece of content.
// Mentions form an append-only log: they are never mutated or deleted, and the
// natural key (ticker, occurred-at, source-item-id) makes inserts idempotent.
type Mention struct {
	Ticker     string       `json:"ticker"`
	Community  string       `json:"community"`
	SourceID   string       `json:"source_id"`
	PostID     string       `json:"post_id"`
	Kind       content.Kind `json:"kind"`
	Author     string       `json:"author,omitempty"`
	Score      int          `json:"score"`
	URL        string       `json:"url,omitempty"`
	Confidence float64      `json:"confidence"`
	Excerpt    string       `json:"excerpt,omitempty"`
	OccurredAt time.Time    `json:"occurred_at"`
	RecordedAt time.Time    `json:"recorded_at"`
}

// PutOutcome is the typed result of a store write, replacing duplicate-key
// exceptions as control flow: idempotent skips are data, not errors.
type PutOutcome int

const (
	OutcomeInserted PutOutcome = iota
	OutcomeAlreadyExists
)

// Page is one page of a mention scan. A non-empty Cursor means the scan is not
// exhausted and the caller must continue from it; partial results before
// exhaustion must never be treated as final.
type Page struct {
	Mentions []Mention
	Cursor   string
}

// Store is the persistence boundary for the mention log.
type Store interface {
	// Put appends a mention. Duplicate natural keys report OutcomeAlreadyExists.
	Put(ctx context.Context, m Mention) (PutOutcome, error)

	// Scan returns mentions with occurred-at >= minOccurredAt (inclusive),
	// one page at a time. Pass an empty cursor to start.
	Scan(ctx context.Context, minOccurredAt time.Time, cursor string, pageSize int) (Page, error)

	// ListByTicker returns recent mentions of one ticker, newest first.
	ListByTicker(ctx context.Context, ticker string, since time.Time, limit int) ([]Mention, error)
}
