// internal/adapter/storage/mention_store.go

package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"tickerpulse/internal/domain/content"
	"tickerpulse/internal/domain/mention"
)

const cursorSeparator = "|"

// MentionStore implements the mention log on Postgres. Inserts are made
// idempotent by the natural-key unique constraint; duplicates surface as a
// typed outcome, not an error.
type MentionStore struct {
	db *pgxpool.Pool
}

// NewMentionStore creates a new mention store
func NewMentionStore(db *pgxpool.Pool) *MentionStore {
	return &MentionStore{
		db: db,
	}
}

// Put appends one mention. A duplicate (ticker, occurred_at, source_id) key
// reports OutcomeAlreadyExists and leaves the existing row untouched.
func (s *MentionStore) Put(ctx context.Context, m mention.Mention) (mention.PutOutcome, error) {
	query := `
		INSERT INTO mentions (
			ticker, community, source_id, post_id, kind, author,
			score, url, confidence, excerpt, occurred_at, recorded_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11, $12
		)
		ON CONFLICT (ticker, occurred_at, source_id) DO NOTHING
	`

	tag, err := s.db.Exec(
		ctx,
		query,
		m.Ticker,
		m.Community,
		m.SourceID,
		m.PostID,
		string(m.Kind),
		m.Author,
		m.Score,
		m.URL,
		m.Confidence,
		m.Excerpt,
		m.OccurredAt,
		m.RecordedAt,
	)
	if err != nil {
		return mention.OutcomeInserted, fmt.Errorf("error executing query: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return mention.OutcomeAlreadyExists, nil
	}
	return mention.OutcomeInserted, nil
}

// Scan pages through mentions with occurred_at >= minOccurredAt using keyset
// pagination over (occurred_at, source_id, ticker). An empty returned cursor
// means the scan is exhausted.
func (s *MentionStore) Scan(ctx context.Context, minOccurredAt time.Time, cursor string, pageSize int) (mention.Page, error) {
	if pageSize <= 0 {
		pageSize = 500
	}

	query := `
		SELECT
			ticker, community, source_id, post_id, kind, author,
			score, url, confidence, excerpt, occurred_at, recorded_at
		FROM mentions
		WHERE occurred_at >= $1
	`
	args := []interface{}{minOccurredAt}

	if cursor != "" {
		afterAt, afterSource, afterTicker, err := decodeCursor(cursor)
		if err != nil {
			return mention.Page{}, err
		}
		query += " AND (occurred_at, source_id, ticker) > ($2, $3, $4)"
		args = append(args, afterAt, afterSource, afterTicker)
	}

	query += fmt.Sprintf(" ORDER BY occurred_at, source_id, ticker LIMIT %d", pageSize)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return mention.Page{}, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	mentions, err := scanMentions(rows)
	if err != nil {
		return mention.Page{}, err
	}

	page := mention.Page{Mentions: mentions}
	if len(mentions) == pageSize {
		last := mentions[len(mentions)-1]
		page.Cursor = encodeCursor(last.OccurredAt, last.SourceID, last.Ticker)
	}
	return page, nil
}

// ListByTicker returns mentions of one ticker since the given time, newest
// first.
func (s *MentionStore) ListByTicker(ctx context.Context, ticker string, since time.Time, limit int) ([]mention.Mention, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT
			ticker, community, source_id, post_id, kind, author,
			score, url, confidence, excerpt, occurred_at, recorded_at
		FROM mentions
		WHERE ticker = $1 AND occurred_at >= $2
		ORDER BY occurred_at DESC
		LIMIT $3
	`

	rows, err := s.db.Query(ctx, query, strings.ToUpper(ticker), since, limit)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	return scanMentions(rows)
}

type mentionRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func scanMentions(rows mentionRows) ([]mention.Mention, error) {
	var mentions []mention.Mention
	for rows.Next() {
		var m mention.Mention
		var kind string

		err := rows.Scan(
			&m.Ticker,
			&m.Community,
			&m.SourceID,
			&m.PostID,
			&kind,
			&m.Author,
			&m.Score,
			&m.URL,
			&m.Confidence,
			&m.Excerpt,
			&m.OccurredAt,
			&m.RecordedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning mention: %w", err)
		}
		m.Kind = content.Kind(kind)

		mentions = append(mentions, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating mentions: %w", err)
	}
	return mentions, nil
}

func encodeCursor(occurredAt time.Time, sourceID, ticker string) string {
	return strings.Join([]string{
		occurredAt.UTC().Format(time.RFC3339Nano),
		sourceID,
		ticker,
	}, cursorSeparator)
}

func decodeCursor(cursor string) (time.Time, string, string, error) {
	parts := strings.SplitN(cursor, cursorSeparator, 3)
	if len(parts) != 3 {
		return time.Time{}, "", "", fmt.Errorf("malformed scan cursor %q", cursor)
	}
	occurredAt, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return time.Time{}, "", "", fmt.Errorf("malformed scan cursor %q: %w", cursor, err)
	}
	return occurredAt, parts[1], parts[2], nil
}
