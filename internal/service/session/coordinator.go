package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wordtrail/wordtrail-api/internal/analytics"
	"github.com/wordtrail/wordtrail-api/internal/domain"
	"github.com/wordtrail/wordtrail-api/internal/domain/srs"
	"github.com/wordtrail/wordtrail-api/internal/platform/clock"
	"github.com/wordtrail/wordtrail-api/internal/platform/logger"
	"github.com/wordtrail/wordtrail-api/internal/store"
)

// itemBuffer accumulates the in-session state for one vocabulary item: the
// progress as it will be written at close, plus every event that produced it
// so the write can be recomputed against fresh state after a version conflict.
type itemBuffer struct {
	current *domain.LearningProgress
	events  []*domain.AnswerEvent
}

// liveSession is a session the coordinator currently owns. All access goes
// through mu, which serializes events within the session; the store-level
// version check handles races between sessions.
type liveSession struct {
	mu      sync.Mutex
	session *domain.Session
	items   map[uuid.UUID]*itemBuffer
	order   []uuid.UUID // Item IDs in first-seen order, for a deterministic flush
}

// coordinator implements the Service interface. Live sessions are held in
// memory; progress writes are buffered per item and flushed in bulk when the
// session closes.
type coordinator struct {
	progress  store.ProgressStore
	sessions  store.SessionStore
	catalog   store.VocabularyCatalog
	scheduler srs.Service
	clock     clock.Clock
	logger    *slog.Logger

	mu   sync.Mutex
	live map[uuid.UUID]*liveSession
}

// NewCoordinator creates the session service.
// Panics if any dependency other than the logger is nil; a nil logger falls
// back to slog.Default.
func NewCoordinator(
	progress store.ProgressStore,
	sessions store.SessionStore,
	catalog store.VocabularyCatalog,
	scheduler srs.Service,
	clk clock.Clock,
	log *slog.Logger,
) Service {
	if progress == nil {
		panic("progress store cannot be nil")
	}
	if sessions == nil {
		panic("session store cannot be nil")
	}
	if catalog == nil {
		panic("vocabulary catalog cannot be nil")
	}
	if scheduler == nil {
		panic("scheduler service cannot be nil")
	}
	if clk == nil {
		clk = clock.New()
	}
	if log == nil {
		log = slog.Default()
	}

	return &coordinator{
		progress:  progress,
		sessions:  sessions,
		catalog:   catalog,
		scheduler: scheduler,
		clock:     clk,
		logger:    log.With(slog.String("component", "session_coordinator")),
		live:      make(map[uuid.UUID]*liveSession),
	}
}

// Ensure coordinator implements the Service interface
var _ Service = (*coordinator)(nil)

// OpenSession implements Service.OpenSession.
func (c *coordinator) OpenSession(ctx context.Context, userID uuid.UUID) (*domain.Session, error) {
	log := logger.FromContextOrDefault(ctx, c.logger)

	session, err := domain.NewSession(userID, c.clock.Now())
	if err != nil {
		return nil, NewServiceError("open_session", "invalid session", err)
	}

	c.mu.Lock()
	c.live[session.ID] = &liveSession{
		session: session,
		items:   make(map[uuid.UUID]*itemBuffer),
	}
	c.mu.Unlock()

	log.Debug("session opened",
		slog.String("session_id", session.ID.String()),
		slog.String("user_id", userID.String()))

	snapshot := *session
	return &snapshot, nil
}

// SubmitAnswer implements Service.SubmitAnswer. The updated progress is echoed
// back synchronously; persistence happens when the session closes.
func (c *coordinator) SubmitAnswer(
	ctx context.Context,
	sessionID, itemID uuid.UUID,
	answer Answer,
) (*domain.LearningProgress, error) {
	log := logger.FromContextOrDefault(ctx, c.logger)

	ls, err := c.lookupLive(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()

	switch ls.session.State {
	case domain.SessionStateOpen:
		ls.session.State = domain.SessionStateAccepting
	case domain.SessionStateAccepting:
		// Already accepting
	default:
		return nil, ErrSessionClosed
	}

	// Only catalog items can be reviewed; answers for unknown items are
	// rejected before touching any progress state.
	if _, err := c.catalog.GetItem(ctx, itemID); err != nil {
		if errors.Is(err, store.ErrItemNotFound) {
			return nil, err
		}
		return nil, NewServiceError("submit_answer", "failed to resolve vocabulary item", err)
	}

	buffer, err := c.bufferFor(ctx, ls, itemID)
	if err != nil {
		return nil, err
	}

	event := &domain.AnswerEvent{
		UserID:    ls.session.UserID,
		ItemID:    itemID,
		Correct:   answer.Correct,
		Latency:   answer.Latency,
		Timestamp: c.clock.Now(),
	}

	updated, err := c.scheduler.Advance(buffer.current, event)
	if err != nil {
		return nil, NewServiceError("submit_answer", "failed to advance progress", err)
	}

	buffer.current = updated
	buffer.events = append(buffer.events, event)

	ls.session.TotalAnswers++
	if answer.Correct {
		ls.session.CorrectAnswers++
	}
	ls.session.UpdatedAt = event.Timestamp

	log.Debug("answer applied",
		slog.String("session_id", sessionID.String()),
		slog.String("item_id", itemID.String()),
		slog.Bool("correct", answer.Correct),
		slog.String("mastery_level", string(updated.MasteryLevel)))

	return updated.Clone(), nil
}

// bufferFor returns the session's buffer for an item, loading the stored
// progress on first touch. A missing record starts from the New-state default.
// Callers must hold ls.mu.
func (c *coordinator) bufferFor(
	ctx context.Context,
	ls *liveSession,
	itemID uuid.UUID,
) (*itemBuffer, error) {
	if buffer, ok := ls.items[itemID]; ok {
		return buffer, nil
	}

	current, err := c.progress.Get(ctx, ls.session.UserID, itemID)
	if err != nil {
		if !store.IsNotFoundError(err) {
			return nil, NewServiceError("submit_answer", "failed to load progress", err)
		}
		current, err = domain.NewLearningProgress(ls.session.UserID, itemID, c.clock.Now())
		if err != nil {
			return nil, NewServiceError("submit_answer", "failed to initialize progress", err)
		}
	}

	buffer := &itemBuffer{current: current}
	ls.items[itemID] = buffer
	ls.order = append(ls.order, itemID)
	return buffer, nil
}

// CloseSession implements Service.CloseSession.
func (c *coordinator) CloseSession(
	ctx context.Context,
	sessionID uuid.UUID,
) (*domain.SessionSummary, error) {
	log := logger.FromContextOrDefault(ctx, c.logger)

	ls, err := c.lookupLive(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()

	if !ls.session.State.CanTransitionTo(domain.SessionStateClosing) {
		return nil, ErrSessionClosed
	}
	ls.session.State = domain.SessionStateClosing

	unpersisted := c.flush(ctx, log, ls)

	now := c.clock.Now()
	ls.session.State = domain.SessionStateClosed
	ls.session.EndedAt = now
	ls.session.UpdatedAt = now
	if len(unpersisted) == 0 {
		ls.session.Outcome = domain.PersistenceOutcomeComplete
	} else {
		ls.session.Outcome = domain.PersistenceOutcomePartial
	}

	// The progress writes are the valuable data; a failure to record the
	// session itself downgrades the outcome but never reopens the session.
	if err := c.sessions.Create(ctx, ls.session); err != nil {
		log.Error("failed to persist session record",
			slog.String("session_id", sessionID.String()),
			slog.String("error", err.Error()))
		ls.session.Outcome = domain.PersistenceOutcomePartial
	}

	c.mu.Lock()
	delete(c.live, sessionID)
	c.mu.Unlock()

	summary := &domain.SessionSummary{
		SessionID:        ls.session.ID,
		UserID:           ls.session.UserID,
		StartedAt:        ls.session.StartedAt,
		EndedAt:          ls.session.EndedAt,
		TotalAnswers:     ls.session.TotalAnswers,
		CorrectAnswers:   ls.session.CorrectAnswers,
		Outcome:          ls.session.Outcome,
		UnpersistedItems: unpersisted,
	}

	log.Info("session closed",
		slog.String("session_id", sessionID.String()),
		slog.String("user_id", ls.session.UserID.String()),
		slog.Int("total_answers", summary.TotalAnswers),
		slog.Int("unpersisted_items", len(unpersisted)),
		slog.String("outcome", string(summary.Outcome)))

	return summary, nil
}

// flush writes the session's buffered progress to the store and returns the
// IDs of items that could not be persisted. A version conflict is retried
// once by replaying the session's events on top of the fresh stored state;
// anything still failing after that is reported, never dropped silently.
// Callers must hold ls.mu.
func (c *coordinator) flush(ctx context.Context, log *slog.Logger, ls *liveSession) []uuid.UUID {
	if len(ls.order) == 0 {
		return nil
	}

	batch := make([]*domain.LearningProgress, 0, len(ls.order))
	for _, itemID := range ls.order {
		batch = append(batch, ls.items[itemID].current)
	}

	results, err := c.progress.BulkPut(ctx, batch)
	if err != nil {
		log.Error("bulk persist failed",
			slog.String("session_id", ls.session.ID.String()),
			slog.String("error", err.Error()))
		unpersisted := make([]uuid.UUID, len(ls.order))
		copy(unpersisted, ls.order)
		return unpersisted
	}

	var unpersisted []uuid.UUID
	for _, result := range results {
		if result.Err == nil {
			continue
		}

		// Once the context is gone no new writes are started; everything
		// not yet committed is reported as unpersisted.
		if errors.Is(result.Err, store.ErrConflict) && ctx.Err() == nil {
			if retryErr := c.retryConflict(ctx, ls, result.ItemID); retryErr == nil {
				continue
			} else {
				log.Warn("conflict retry failed",
					slog.String("session_id", ls.session.ID.String()),
					slog.String("item_id", result.ItemID.String()),
					slog.String("error", retryErr.Error()))
			}
		} else {
			log.Warn("progress write failed",
				slog.String("session_id", ls.session.ID.String()),
				slog.String("item_id", result.ItemID.String()),
				slog.String("error", result.Err.Error()))
		}
		unpersisted = append(unpersisted, result.ItemID)
	}
	return unpersisted
}

// retryConflict recomputes one item's write against the stored state that won
// the race, replaying the session's buffered events on top of it. Replayed
// events the winner already covers collapse into idempotent no-ops at the
// store. Callers must hold ls.mu.
func (c *coordinator) retryConflict(ctx context.Context, ls *liveSession, itemID uuid.UUID) error {
	buffer, ok := ls.items[itemID]
	if !ok {
		return store.ErrProgressNotFound
	}

	fresh, err := c.progress.Get(ctx, ls.session.UserID, itemID)
	if err != nil {
		if !store.IsNotFoundError(err) {
			return err
		}
		fresh, err = domain.NewLearningProgress(ls.session.UserID, itemID, c.clock.Now())
		if err != nil {
			return err
		}
	}

	for _, event := range buffer.events {
		fresh, err = c.scheduler.Advance(fresh, event)
		if err != nil {
			return err
		}
	}

	if err := c.progress.Put(ctx, fresh); err != nil {
		return err
	}
	buffer.current = fresh
	return nil
}

// GetProgress implements Service.GetProgress.
func (c *coordinator) GetProgress(
	ctx context.Context,
	userID, itemID uuid.UUID,
) (*domain.LearningProgress, error) {
	progress, err := c.progress.Get(ctx, userID, itemID)
	if err == nil {
		return progress, nil
	}
	if !store.IsNotFoundError(err) {
		return nil, NewServiceError("get_progress", "failed to load progress", err)
	}

	// Unseen items read as the default New state; nothing is persisted until
	// the first answer event arrives.
	fallback, err := domain.NewLearningProgress(userID, itemID, c.clock.Now())
	if err != nil {
		return nil, NewServiceError("get_progress", "failed to build default progress", err)
	}
	return fallback, nil
}

// GetReviewQueue implements Service.GetReviewQueue.
func (c *coordinator) GetReviewQueue(
	ctx context.Context,
	userID uuid.UUID,
	limit int,
) ([]ReviewItem, error) {
	due, err := c.progress.ListDue(ctx, userID, c.clock.Now(), limit)
	if err != nil {
		return nil, NewServiceError("get_review_queue", "failed to list due items", err)
	}
	if len(due) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, len(due))
	for i, progress := range due {
		ids[i] = progress.ItemID
	}
	items, err := c.catalog.ListItems(ctx, ids)
	if err != nil {
		return nil, NewServiceError("get_review_queue", "failed to resolve catalog items", err)
	}
	byID := make(map[uuid.UUID]*domain.VocabularyItem, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	queue := make([]ReviewItem, len(due))
	for i, progress := range due {
		queue[i] = ReviewItem{Progress: progress, Item: byID[progress.ItemID]}
	}
	return queue, nil
}

// ResetProgress implements Service.ResetProgress.
func (c *coordinator) ResetProgress(ctx context.Context, userID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, c.logger)

	if err := c.progress.DeleteForUser(ctx, userID); err != nil {
		return NewServiceError("reset_progress", "failed to delete progress", err)
	}

	log.Info("progress reset", slog.String("user_id", userID.String()))
	return nil
}

// PostponeReview implements Service.PostponeReview. A concurrent write between
// the read and the put is retried once against the fresh state.
func (c *coordinator) PostponeReview(
	ctx context.Context,
	userID, itemID uuid.UUID,
	days int,
) (*domain.LearningProgress, error) {
	postponed, err := c.postponeOnce(ctx, userID, itemID, days)
	if err != nil && errors.Is(err, store.ErrConflict) && ctx.Err() == nil {
		postponed, err = c.postponeOnce(ctx, userID, itemID, days)
	}
	if err != nil {
		if store.IsNotFoundError(err) || errors.Is(err, srs.ErrInvalidDays) {
			return nil, err
		}
		return nil, NewServiceError("postpone_review", "failed to postpone review", err)
	}
	return postponed, nil
}

// postponeOnce performs a single read-modify-write postpone attempt.
func (c *coordinator) postponeOnce(
	ctx context.Context,
	userID, itemID uuid.UUID,
	days int,
) (*domain.LearningProgress, error) {
	current, err := c.progress.Get(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}

	postponed, err := c.scheduler.Postpone(current, days, c.clock.Now())
	if err != nil {
		return nil, err
	}

	if err := c.progress.Put(ctx, postponed); err != nil {
		return nil, err
	}
	return postponed, nil
}

// GetAnalytics implements Service.GetAnalytics.
func (c *coordinator) GetAnalytics(
	ctx context.Context,
	userID uuid.UUID,
	from, to time.Time,
) (*analytics.Snapshot, error) {
	if to.Before(from) {
		return nil, ErrInvalidRange
	}

	progress, err := c.progress.ListByUser(ctx, userID)
	if err != nil {
		return nil, NewServiceError("get_analytics", "failed to list progress", err)
	}

	sessions, err := c.sessions.ListByUser(ctx, userID, from, to)
	if err != nil {
		return nil, NewServiceError("get_analytics", "failed to list sessions", err)
	}

	return analytics.Compute(userID, progress, sessions, from, to), nil
}

// lookupLive resolves a session ID to a live session. IDs that belong to an
// already-persisted session report ErrSessionClosed; unknown IDs report
// ErrSessionNotFound.
func (c *coordinator) lookupLive(ctx context.Context, sessionID uuid.UUID) (*liveSession, error) {
	c.mu.Lock()
	ls, ok := c.live[sessionID]
	c.mu.Unlock()
	if ok {
		return ls, nil
	}

	if _, err := c.sessions.GetByID(ctx, sessionID); err == nil {
		return nil, ErrSessionClosed
	} else if !store.IsNotFoundError(err) {
		return nil, NewServiceError("lookup_session", "failed to look up session", err)
	}
	return nil, ErrSessionNotFound
}
