// internal/domain/dd/model.go

package dd

import (
	"context"
	"time"

	"tickerpulse/internal/domain/mention"
)

// Post is a piece of content classified as due diligence: a substantive,
// analytical write-up rather than casual or meme commentary. Posts are created
// once per qualifying source item and never mutated.
type Post struct {
	SourceID      string    `json:"source_id"`
	PrimaryTicker string    `json:"primary_ticker"`
	Title         string    `json:"title"`
	Body          string    `json:"body"`
	Community     string    `json:"community"`
	Author        string    `json:"author,omitempty"`
	URL           string    `json:"url,omitempty"`
	Upvotes       int       `json:"upvotes"`
	CommentCount  int       `json:"comment_count"`
	QualityScore  int       `json:"quality_score"`
	Confidence    float64   `json:"confidence"`
	Tags          []string  `json:"tags"`
	HasCharts     bool      `json:"has_charts"`
	HasTables     bool      `json:"has_tables"`
	WordCount     int       `json:"word_count"`
	OccurredAt    time.Time `json:"occurred_at"`
	RecordedAt    time.Time `json:"recorded_at"`
}

// Filter narrows DD post listings on the read path.
type Filter struct {
	Ticker        string
	Community     string
	MinConfidence float64
	Limit         int
}

// Store is the persistence boundary for DD posts, idempotent on source ID.
type Store interface {
	Put(ctx context.Context, p Post) (mention.PutOutcome, error)
	List(ctx context.Context, f Filter) ([]Post, error)
}
