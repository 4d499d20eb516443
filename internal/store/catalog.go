package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/wordtrail/wordtrail-api/internal/domain"
)

// VocabularyCatalog is the engine's read-only view of the vocabulary catalog.
// The catalog itself is owned by the surrounding application; the engine only
// resolves item IDs against it.
type VocabularyCatalog interface {
	// GetItem retrieves a vocabulary item by ID.
	// Returns ErrItemNotFound if the item does not exist.
	GetItem(ctx context.Context, id uuid.UUID) (*domain.VocabularyItem, error)

	// ListItems retrieves the items for the given IDs. Unknown IDs are
	// skipped; the result may be shorter than the input.
	ListItems(ctx context.Context, ids []uuid.UUID) ([]*domain.VocabularyItem, error)
}
