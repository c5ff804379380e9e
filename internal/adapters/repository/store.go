// Package repository persists the scoring document.
package repository

import (
	"context"

	"github.com/okian/tally/internal/domain/model"
)

// Store loads and saves the whole document. Implementations do no locking
// across calls; a load followed by a save is not atomic.
type Store interface {
	// Load returns the current document. Errors wrap ErrStorage.
	Load(ctx context.Context) (model.Document, error)

	// Save replaces the stored document entirely. Errors wrap ErrStorage.
	Save(ctx context.Context, doc model.Document) error
}
