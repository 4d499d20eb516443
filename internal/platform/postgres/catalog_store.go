package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/wordtrail/wordtrail-api/internal/domain"
	"github.com/wordtrail/wordtrail-api/internal/store"
)

// PostgresCatalog implements the read-only store.VocabularyCatalog interface
// over the vocabulary_items table. The table is populated by the surrounding
// application; this module only resolves IDs against it.
type PostgresCatalog struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresCatalog creates a new PostgreSQL implementation of the
// VocabularyCatalog interface. If logger is nil, a default logger will be used.
func NewPostgresCatalog(db *sql.DB, logger *slog.Logger) *PostgresCatalog {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresCatalog{
		db:     db,
		logger: logger.With(slog.String("component", "vocabulary_catalog")),
	}
}

// Ensure PostgresCatalog implements store.VocabularyCatalog interface
var _ store.VocabularyCatalog = (*PostgresCatalog)(nil)

const itemColumns = `id, term, translation, difficulty, category, tags, created_at`

// scanItem reads one vocabulary_items row. Tags are stored as JSONB.
func scanItem(row interface{ Scan(dest ...any) error }) (*domain.VocabularyItem, error) {
	var item domain.VocabularyItem
	var tags []byte
	err := row.Scan(
		&item.ID,
		&item.Term,
		&item.Translation,
		&item.Difficulty,
		&item.Category,
		&tags,
		&item.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &item.Tags); err != nil {
			return nil, err
		}
	}
	return &item, nil
}

// GetItem implements store.VocabularyCatalog.GetItem.
func (c *PostgresCatalog) GetItem(ctx context.Context, id uuid.UUID) (*domain.VocabularyItem, error) {
	query := `SELECT ` + itemColumns + ` FROM vocabulary_items WHERE id = $1`

	item, err := scanItem(c.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrItemNotFound
		}
		return nil, classify("get item", err)
	}
	return item, nil
}

// ListItems implements store.VocabularyCatalog.ListItems. Unknown IDs are
// skipped. Lookups stay per-ID to keep stdlib parameter binding simple; the
// ID sets passing through here are session-sized.
func (c *PostgresCatalog) ListItems(
	ctx context.Context,
	ids []uuid.UUID,
) ([]*domain.VocabularyItem, error) {
	items := make([]*domain.VocabularyItem, 0, len(ids))
	for _, id := range ids {
		item, err := c.GetItem(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrItemNotFound) {
				continue
			}
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}
