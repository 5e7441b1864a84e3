// internal/adapter/storage/symbol_store.go

package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"tickerpulse/internal/domain/symbol"
)

// SymbolStore implements storage for the ticker symbol directory.
type SymbolStore struct {
	db *pgxpool.Pool
}

// NewSymbolStore creates a new symbol store
func NewSymbolStore(db *pgxpool.Pool) *SymbolStore {
	return &SymbolStore{
		db: db,
	}
}

// Load builds an immutable dictionary snapshot from the directory table.
func (s *SymbolStore) Load(ctx context.Context) (*symbol.Dictionary, error) {
	query := `SELECT ticker FROM symbols`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	var tickers []string
	for rows.Next() {
		var ticker string
		if err := rows.Scan(&ticker); err != nil {
			return nil, fmt.Errorf("error scanning symbol: %w", err)
		}
		tickers = append(tickers, ticker)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating symbols: %w", err)
	}

	return symbol.NewDictionary(tickers, symbol.DefaultStoplist()), nil
}

// ReplaceAll swaps the directory contents for a freshly fetched listing set.
// The swap runs in one transaction so readers never observe a partial
// directory.
func (s *SymbolStore) ReplaceAll(ctx context.Context, listings []symbol.Listing) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("error beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM symbols`); err != nil {
		return fmt.Errorf("error clearing symbols: %w", err)
	}

	query := `
		INSERT INTO symbols (ticker, name, exchange, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (ticker) DO UPDATE
		SET name = EXCLUDED.name, exchange = EXCLUDED.exchange, updated_at = EXCLUDED.updated_at
	`

	batch := &pgx.Batch{}
	for _, l := range listings {
		batch.Queue(query, l.Ticker, l.Name, l.Exchange, l.UpdatedAt)
	}

	results := tx.SendBatch(ctx, batch)
	for range listings {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("error inserting symbol: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("error closing symbol batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}
	return nil
}
