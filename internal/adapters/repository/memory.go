package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/tally/internal/domain/model"
)

// MemoryStore keeps the document in process. Load and Save copy the
// document so callers never share maps with the store.
type MemoryStore struct {
	mu      sync.RWMutex
	doc     model.Document
	present bool
	saves   int
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns a store seeded with doc.
func NewMemoryStore(doc model.Document) *MemoryStore {
	return &MemoryStore{doc: doc.Clone(), present: true}
}

// NewEmptyMemoryStore returns a store with nothing in it; Load fails with
// ErrMissing until the first Save.
func NewEmptyMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load returns a copy of the stored document.
func (m *MemoryStore) Load(ctx context.Context) (model.Document, error) {
	if err := ctx.Err(); err != nil {
		return model.Document{}, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.present {
		return model.Document{}, fmt.Errorf("%w: %w", ErrStorage, ErrMissing)
	}
	return m.doc.Clone(), nil
}

// Save replaces the stored document with a copy of doc.
func (m *MemoryStore) Save(ctx context.Context, doc model.Document) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.doc = doc.Clone()
	m.present = true
	m.saves++
	return nil
}

// Saves reports how many times Save succeeded.
func (m *MemoryStore) Saves() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}
