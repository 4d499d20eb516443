package domain

import (
	"time"

	"github.com/google/uuid"
)

// ItemDifficulty grades how hard a vocabulary item is considered to be,
// independent of any particular user's history with it.
type ItemDifficulty string

// Possible item difficulty values.
const (
	ItemDifficultyEasy   ItemDifficulty = "easy"
	ItemDifficultyMedium ItemDifficulty = "medium"
	ItemDifficultyHard   ItemDifficulty = "hard"
)

// VocabularyItem is an immutable catalog entry. The engine references items
// by ID only; the catalog that owns them lives outside this module and is
// consumed read-only.
type VocabularyItem struct {
	ID          uuid.UUID      `json:"id"`
	Term        string         `json:"term"`
	Translation string         `json:"translation"`
	Difficulty  ItemDifficulty `json:"difficulty"`
	Category    string         `json:"category"`
	Tags        []string       `json:"tags"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Validate checks if the VocabularyItem has valid data.
func (i *VocabularyItem) Validate() error {
	if i.ID == uuid.Nil {
		return ErrInvalidID
	}
	if i.Term == "" {
		return ErrEmptyTerm
	}
	return nil
}
