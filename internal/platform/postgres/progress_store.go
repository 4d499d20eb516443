package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/wordtrail/wordtrail-api/internal/domain"
	"github.com/wordtrail/wordtrail-api/internal/store"
	"golang.org/x/sync/errgroup"
)

// defaultChunkSize bounds how many writes share one transaction in BulkPut.
const defaultChunkSize = 25

// PostgresProgressStore implements the store.ProgressStore interface
// using a PostgreSQL database as the storage backend.
type PostgresProgressStore struct {
	db               *sql.DB
	logger           *slog.Logger
	chunkSize        int
	chunkParallelism int
}

// NewPostgresProgressStore creates a new PostgreSQL implementation of the
// ProgressStore interface. It accepts a database connection that should be
// initialized and managed by the caller. If logger is nil, a default logger
// will be used.
func NewPostgresProgressStore(db *sql.DB, logger *slog.Logger) *PostgresProgressStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresProgressStore{
		db:               db,
		logger:           logger.With(slog.String("component", "progress_store")),
		chunkSize:        defaultChunkSize,
		chunkParallelism: 4,
	}
}

// SetChunking overrides the bulk-write chunk size and parallelism.
func (s *PostgresProgressStore) SetChunking(size, parallelism int) {
	if size > 0 {
		s.chunkSize = size
	}
	if parallelism > 0 {
		s.chunkParallelism = parallelism
	}
}

// Ensure PostgresProgressStore implements store.ProgressStore interface
var _ store.ProgressStore = (*PostgresProgressStore)(nil)

// classify keeps store taxonomy errors untouched and maps everything else
// through the driver-error classification.
func classify(operation string, err error) error {
	if err == nil ||
		errors.Is(err, store.ErrConflict) ||
		errors.Is(err, store.ErrInvalidState) ||
		store.IsNotFoundError(err) {
		return err
	}
	return mapError(operation, err)
}

// scanProgress reads one learning_progress row.
func scanProgress(row interface{ Scan(dest ...any) error }) (*domain.LearningProgress, error) {
	var p domain.LearningProgress
	var lastReviewed sql.NullTime
	err := row.Scan(
		&p.UserID,
		&p.ItemID,
		&p.MasteryLevel,
		&p.ReviewCount,
		&p.Streak,
		&p.EaseFactor,
		&lastReviewed,
		&p.NextReviewAt,
		&p.Version,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lastReviewed.Valid {
		p.LastReviewedAt = lastReviewed.Time
	}
	return &p, nil
}

const progressColumns = `user_id, item_id, mastery_level, review_count, streak,
	ease_factor, last_reviewed_at, next_review_at, version, created_at, updated_at`

// Get implements store.ProgressStore.Get.
// Returns store.ErrProgressNotFound if no record exists for the pair.
func (s *PostgresProgressStore) Get(
	ctx context.Context,
	userID, itemID uuid.UUID,
) (*domain.LearningProgress, error) {
	query := `SELECT ` + progressColumns + `
		FROM learning_progress
		WHERE user_id = $1 AND item_id = $2`

	progress, err := scanProgress(s.db.QueryRowContext(ctx, query, userID, itemID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrProgressNotFound
		}
		return nil, classify("get progress", err)
	}
	return progress, nil
}

// getForUpdate loads a row with a row-level lock inside a transaction.
func getForUpdate(
	ctx context.Context,
	tx *sql.Tx,
	userID, itemID uuid.UUID,
) (*domain.LearningProgress, error) {
	query := `SELECT ` + progressColumns + `
		FROM learning_progress
		WHERE user_id = $1 AND item_id = $2
		FOR UPDATE`

	progress, err := scanProgress(tx.QueryRowContext(ctx, query, userID, itemID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrProgressNotFound
		}
		return nil, err
	}
	return progress, nil
}

// Put implements store.ProgressStore.Put. The write runs in a transaction
// with a row lock so the version check and the update are atomic.
func (s *PostgresProgressStore) Put(ctx context.Context, progress *domain.LearningProgress) error {
	if progress == nil {
		return fmt.Errorf("%w: nil progress", store.ErrInvalidState)
	}
	if err := progress.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidState, err)
	}

	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return putInTx(ctx, tx, progress)
	})
	return classify("put progress", err)
}

// putInTx applies one validated write inside an open transaction. The same
// logic backs Put and each BulkPut chunk.
func putInTx(ctx context.Context, tx *sql.Tx, progress *domain.LearningProgress) error {
	existing, err := getForUpdate(ctx, tx, progress.UserID, progress.ItemID)
	if err != nil {
		if !errors.Is(err, store.ErrProgressNotFound) {
			return err
		}
		return insertInTx(ctx, tx, progress)
	}

	switch {
	case progress.Version == existing.Version:
		// Optimistic update against current state, checked below
	case progress.ReviewCount < existing.ReviewCount,
		progress.ReviewCount == existing.ReviewCount &&
			progress.LastReviewedAt.Equal(existing.LastReviewedAt):
		// Replay of an already-applied event: idempotent no-op
		return nil
	default:
		return store.NewConflictError(existing.Version)
	}

	if progress.ReviewCount < existing.ReviewCount {
		return fmt.Errorf("%w: review count cannot decrease", store.ErrInvalidState)
	}
	if !domain.ValidMasteryProgression(
		existing.MasteryLevel, progress.MasteryLevel,
		existing.ReviewCount, progress.ReviewCount) {
		return fmt.Errorf("%w: mastery cannot move from %s to %s in %d reviews",
			store.ErrInvalidState, existing.MasteryLevel, progress.MasteryLevel,
			progress.ReviewCount-existing.ReviewCount)
	}

	query := `UPDATE learning_progress
		SET mastery_level = $3, review_count = $4, streak = $5, ease_factor = $6,
			last_reviewed_at = $7, next_review_at = $8, version = $9, updated_at = $10
		WHERE user_id = $1 AND item_id = $2 AND version = $11`

	result, err := tx.ExecContext(ctx, query,
		progress.UserID,
		progress.ItemID,
		progress.MasteryLevel,
		progress.ReviewCount,
		progress.Streak,
		progress.EaseFactor,
		nullableTime(progress.LastReviewedAt),
		progress.NextReviewAt,
		existing.Version+1,
		progress.UpdatedAt,
		existing.Version,
	)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// Row moved under us despite the lock; report the conflict
		return store.NewConflictError(existing.Version)
	}
	return nil
}

// insertInTx creates the first record for a pair.
func insertInTx(ctx context.Context, tx *sql.Tx, progress *domain.LearningProgress) error {
	if progress.Version != 0 {
		return store.NewConflictError(0)
	}
	if !domain.ValidMasteryProgression(
		domain.MasteryLevelNew, progress.MasteryLevel, 0, progress.ReviewCount) {
		return fmt.Errorf("%w: first write cannot reach %s with %d reviews",
			store.ErrInvalidState, progress.MasteryLevel, progress.ReviewCount)
	}

	query := `INSERT INTO learning_progress (` + progressColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := tx.ExecContext(ctx, query,
		progress.UserID,
		progress.ItemID,
		progress.MasteryLevel,
		progress.ReviewCount,
		progress.Streak,
		progress.EaseFactor,
		nullableTime(progress.LastReviewedAt),
		progress.NextReviewAt,
		int64(1),
		progress.CreatedAt,
		progress.UpdatedAt,
	)
	if err != nil && isUniqueViolation(err) {
		// Lost the insert race; the record now exists at some version
		return store.NewConflictError(0)
	}
	return err
}

// BulkPut implements store.ProgressStore.BulkPut. Inputs are split into
// chunks; each chunk runs in its own transaction with a savepoint per item,
// so one rejected item never rolls back its chunk-mates. Chunks run with
// bounded parallelism and results preserve input order. Cancellation stops
// unstarted chunks; their items are reported as transient so the caller can
// distinguish them from committed writes.
func (s *PostgresProgressStore) BulkPut(
	ctx context.Context,
	progress []*domain.LearningProgress,
) ([]store.BulkResult, error) {
	results := make([]store.BulkResult, len(progress))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.chunkParallelism)

	for start := 0; start < len(progress); start += s.chunkSize {
		end := start + s.chunkSize
		if end > len(progress) {
			end = len(progress)
		}
		start, end := start, end

		g.Go(func() error {
			s.putChunk(ctx, progress[start:end], results[start:end])
			return nil
		})
	}

	// Workers never return errors; failures are per-item
	_ = g.Wait()

	return results, nil
}

// putChunk applies one chunk in a single transaction and fills the matching
// result window.
func (s *PostgresProgressStore) putChunk(
	ctx context.Context,
	chunk []*domain.LearningProgress,
	results []store.BulkResult,
) {
	for i, p := range chunk {
		if p != nil {
			results[i].UserID = p.UserID
			results[i].ItemID = p.ItemID
		}
	}

	failAll := func(err error) {
		for i := range results {
			results[i].Err = err
		}
	}

	if err := ctx.Err(); err != nil {
		failAll(fmt.Errorf("%w: %v", store.ErrTransient, err))
		return
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		failAll(classify("bulk put begin", err))
		return
	}

	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				s.logger.Error("failed to roll back bulk chunk",
					slog.String("error", rbErr.Error()))
			}
		}
	}()

	for i, p := range chunk {
		results[i].Err = s.putItemInChunk(ctx, tx, i, p)
	}

	if err := tx.Commit(); err != nil {
		// The whole chunk failed to land; report every item
		failAll(classify("bulk put commit", err))
		return
	}
	committed = true
}

// putItemInChunk applies one item under a savepoint so a rejection only rolls
// back that item.
func (s *PostgresProgressStore) putItemInChunk(
	ctx context.Context,
	tx *sql.Tx,
	i int,
	progress *domain.LearningProgress,
) error {
	if progress == nil {
		return fmt.Errorf("%w: nil progress", store.ErrInvalidState)
	}
	if err := progress.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidState, err)
	}

	savepoint := fmt.Sprintf("bulk_item_%d", i)
	if _, err := tx.ExecContext(ctx, "SAVEPOINT "+savepoint); err != nil {
		return classify("bulk put savepoint", err)
	}

	if err := putInTx(ctx, tx, progress); err != nil {
		if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+savepoint); rbErr != nil {
			return classify("bulk put rollback", rbErr)
		}
		return classify("bulk put item", err)
	}

	if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT "+savepoint); err != nil {
		return classify("bulk put release", err)
	}
	return nil
}

// ListDue implements store.ProgressStore.ListDue.
func (s *PostgresProgressStore) ListDue(
	ctx context.Context,
	userID uuid.UUID,
	now time.Time,
	limit int,
) ([]*domain.LearningProgress, error) {
	query := `SELECT ` + progressColumns + `
		FROM learning_progress
		WHERE user_id = $1 AND next_review_at <= $2
		ORDER BY next_review_at ASC
		LIMIT $3`

	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, query, userID, now, limit)
	if err != nil {
		return nil, classify("list due", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Warn("failed to close rows", slog.String("error", closeErr.Error()))
		}
	}()

	return collectProgress(rows, "list due")
}

// ListByUser implements store.ProgressStore.ListByUser.
func (s *PostgresProgressStore) ListByUser(
	ctx context.Context,
	userID uuid.UUID,
) ([]*domain.LearningProgress, error) {
	query := `SELECT ` + progressColumns + `
		FROM learning_progress
		WHERE user_id = $1
		ORDER BY item_id ASC`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, classify("list by user", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			s.logger.Warn("failed to close rows", slog.String("error", closeErr.Error()))
		}
	}()

	return collectProgress(rows, "list by user")
}

// collectProgress drains a result set of progress rows.
func collectProgress(rows *sql.Rows, operation string) ([]*domain.LearningProgress, error) {
	var records []*domain.LearningProgress
	for rows.Next() {
		record, err := scanProgress(rows)
		if err != nil {
			return nil, classify(operation, err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(operation, err)
	}
	return records, nil
}

// DeleteForUser implements store.ProgressStore.DeleteForUser.
func (s *PostgresProgressStore) DeleteForUser(ctx context.Context, userID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM learning_progress WHERE user_id = $1`, userID)
	return classify("delete for user", err)
}

// nullableTime maps the zero time to SQL NULL.
func nullableTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}
