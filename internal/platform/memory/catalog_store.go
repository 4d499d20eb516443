package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/wordtrail/wordtrail-api/internal/domain"
	"github.com/wordtrail/wordtrail-api/internal/store"
)

// Catalog is an in-memory implementation of store.VocabularyCatalog.
// Items are seeded once through Seed; reads are lock-protected copies.
type Catalog struct {
	mu    sync.RWMutex
	items map[uuid.UUID]*domain.VocabularyItem
}

// NewCatalog creates an empty in-memory catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		items: make(map[uuid.UUID]*domain.VocabularyItem),
	}
}

// Ensure Catalog implements the store.VocabularyCatalog interface
var _ store.VocabularyCatalog = (*Catalog)(nil)

// Seed adds items to the catalog. Invalid items are rejected.
func (c *Catalog) Seed(items ...*domain.VocabularyItem) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, item := range items {
		if err := item.Validate(); err != nil {
			return err
		}
		clone := *item
		c.items[item.ID] = &clone
	}
	return nil
}

// GetItem implements store.VocabularyCatalog.GetItem.
func (c *Catalog) GetItem(ctx context.Context, id uuid.UUID) (*domain.VocabularyItem, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, ok := c.items[id]
	if !ok {
		return nil, store.ErrItemNotFound
	}
	clone := *item
	return &clone, nil
}

// ListItems implements store.VocabularyCatalog.ListItems.
func (c *Catalog) ListItems(
	ctx context.Context,
	ids []uuid.UUID,
) ([]*domain.VocabularyItem, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	items := make([]*domain.VocabularyItem, 0, len(ids))
	for _, id := range ids {
		if item, ok := c.items[id]; ok {
			clone := *item
			items = append(items, &clone)
		}
	}
	return items, nil
}
