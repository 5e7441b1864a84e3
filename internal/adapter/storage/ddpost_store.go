// internal/adapter/storage/ddpost_store.go

package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v4/pgxpool"

	"tickerpulse/internal/domain/dd"
	"tickerpulse/internal/domain/mention"
)

// DDPostStore implements storage for classified due-diligence posts.
type DDPostStore struct {
	db *pgxpool.Pool
}

// NewDDPostStore creates a new DD post store
func NewDDPostStore(db *pgxpool.Pool) *DDPostStore {
	return &DDPostStore{
		db: db,
	}
}

// Put stores one classified post, idempotent on source_id.
func (s *DDPostStore) Put(ctx context.Context, p dd.Post) (mention.PutOutcome, error) {
	query := `
		INSERT INTO dd_posts (
			source_id, primary_ticker, title, body, community, author, url,
			upvotes, comment_count, quality_score, confidence, tags,
			has_charts, has_tables, word_count, occurred_at, recorded_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7,
			$8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17
		)
		ON CONFLICT (source_id) DO NOTHING
	`

	tagsJSON, err := json.Marshal(p.Tags)
	if err != nil {
		return mention.OutcomeInserted, fmt.Errorf("error marshaling tags: %w", err)
	}

	tag, err := s.db.Exec(
		ctx,
		query,
		p.SourceID,
		p.PrimaryTicker,
		p.Title,
		p.Body,
		p.Community,
		p.Author,
		p.URL,
		p.Upvotes,
		p.CommentCount,
		p.QualityScore,
		p.Confidence,
		tagsJSON,
		p.HasCharts,
		p.HasTables,
		p.WordCount,
		p.OccurredAt,
		p.RecordedAt,
	)
	if err != nil {
		return mention.OutcomeInserted, fmt.Errorf("error executing query: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return mention.OutcomeAlreadyExists, nil
	}
	return mention.OutcomeInserted, nil
}

// List returns classified posts matching the filter, newest first.
func (s *DDPostStore) List(ctx context.Context, f dd.Filter) ([]dd.Post, error) {
	query := `
		SELECT
			source_id, primary_ticker, title, body, community, author, url,
			upvotes, comment_count, quality_score, confidence, tags,
			has_charts, has_tables, word_count, occurred_at, recorded_at
		FROM dd_posts
		WHERE confidence >= $1
	`

	args := []interface{}{f.MinConfidence}
	argIndex := 2

	if f.Ticker != "" {
		query += fmt.Sprintf(" AND primary_ticker = $%d", argIndex)
		args = append(args, strings.ToUpper(f.Ticker))
		argIndex++
	}

	if f.Community != "" {
		query += fmt.Sprintf(" AND community = $%d", argIndex)
		args = append(args, f.Community)
		argIndex++
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	query += fmt.Sprintf(" ORDER BY occurred_at DESC LIMIT $%d", argIndex)
	args = append(args, limit)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	var posts []dd.Post
	for rows.Next() {
		var p dd.Post
		var tagsJSON []byte

		err := rows.Scan(
			&p.SourceID,
			&p.PrimaryTicker,
			&p.Title,
			&p.Body,
			&p.Community,
			&p.Author,
			&p.URL,
			&p.Upvotes,
			&p.CommentCount,
			&p.QualityScore,
			&p.Confidence,
			&tagsJSON,
			&p.HasCharts,
			&p.HasTables,
			&p.WordCount,
			&p.OccurredAt,
			&p.RecordedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("error scanning dd post: %w", err)
		}

		if len(tagsJSON) > 0 {
			if err := json.Unmarshal(tagsJSON, &p.Tags); err != nil {
				return nil, fmt.Errorf("error unmarshaling tags: %w", err)
			}
		}

		posts = append(posts, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating dd posts: %w", err)
	}
	return posts, nil
}
