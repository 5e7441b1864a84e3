// internal/domain/content/model.go

package content

import (
	"errors"
	"time"
)

// Kind identifies whether a record is a top-level thread or a comment
type Kind string

const (
	KindThread  Kind = "thread"
	KindComment Kind = "comment"
)

// Record is one piece of raw content received from the upstream feed.
// Threads carry a title; comments carry a parent ID and no title.
type Record struct {
	SourceID   string    `json:"source_id"`
	ParentID   string    `json:"parent_id,omitempty"`
	Kind       Kind      `json:"kind"`
	Community  string    `json:"community"`
	Title      string    `json:"title,omitempty"`
	Body       string    `json:"body,omitempty"`
	Author     string    `json:"author,omitempty"`
	Score      int       `json:"score"`
	Comments   int       `json:"comments,omitempty"`
	URL        string    `json:"url,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

var (
	ErrMissingSourceID  = errors.New("content record missing source ID")
	ErrMissingCommunity = errors.New("content record missing community")
	ErrMissingTimestamp = errors.New("content record missing origin timestamp")
	ErrInvalidKind      = errors.New("content record has invalid kind")
)

// Validate reports whether the record carries the fields the pipeline requires.
// Records failing validation are skipped individually, never aborting a batch.
func (r Record) Validate() error {
	if r.SourceID == "" {
		return ErrMissingSourceID
	}
	if r.Community == "" {
		return ErrMissingCommunity
	}
	if r.OccurredAt.IsZero() {
		return ErrMissingTimestamp
	}
	if r.Kind != KindThread && r.Kind != KindComment {
		return ErrInvalidKind
	}
	return nil
}

// Text returns the text to scan for ticker symbols. For threads the title and
// body are scanned together; for comments only the body exists.
func (r Record) Text() string {
	if r.Kind == KindThread && r.Title != "" {
		if r.Body == "" {
			return r.Title
		}
		return r.Title + " " + r.Body
	}
	return r.Body
}
