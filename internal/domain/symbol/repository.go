// internal/domain/symbol/repository.go

package symbol

import (
	"context"
	"time"
)

// Listing is one entry in the symbol directory.
type Listing struct {
	Ticker    string
	Name      string
	Exchange  string
	UpdatedAt time.Time
}

// Repository loads the valid-ticker universe. The returned Dictionary is an
// immutable snapshot; callers re-invoke Load to pick up directory refreshes.
type Repository interface {
	Load(ctx context.Context) (*Dictionary, error)
}

// Store persists the symbol directory produced by the sync job.
type Store interface {
	Repository

	// ReplaceAll swaps the directory contents for a freshly fetched listing set.
	ReplaceAll(ctx context.Context, listings []Listing) error
}
