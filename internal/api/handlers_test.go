package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wordtrail/wordtrail-api/internal/api"
	"github.com/wordtrail/wordtrail-api/internal/domain"
	"github.com/wordtrail/wordtrail-api/internal/domain/srs"
	"github.com/wordtrail/wordtrail-api/internal/platform/clock"
	"github.com/wordtrail/wordtrail-api/internal/platform/memory"
	"github.com/wordtrail/wordtrail-api/internal/service/session"
)

var baseTime = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

// testAPI mounts the real handlers over the in-memory backing stores, matching
// the production route layout.
type testAPI struct {
	router   http.Handler
	svc      session.Service
	progress *memory.ProgressStore
	catalog  *memory.Catalog
	clk      *clock.Mock
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	progress := memory.NewProgressStore()
	sessions := memory.NewSessionStore()
	catalog := memory.NewCatalog()
	clk := clock.NewMock(baseTime)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	svc := session.NewCoordinator(progress, sessions, catalog, srs.NewDefaultService(), clk, log)

	sessionHandler := api.NewSessionHandler(svc, log)
	progressHandler := api.NewProgressHandler(svc, log)

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Post("/sessions", sessionHandler.OpenSession)
		r.Post("/sessions/{sessionID}/answers", sessionHandler.SubmitAnswer)
		r.Post("/sessions/{sessionID}/close", sessionHandler.CloseSession)
		r.Get("/users/{userID}/progress/{itemID}", progressHandler.GetProgress)
		r.Post("/users/{userID}/progress/{itemID}/postpone", progressHandler.PostponeReview)
		r.Get("/users/{userID}/review-queue", progressHandler.GetReviewQueue)
		r.Get("/users/{userID}/analytics", progressHandler.GetAnalytics)
		r.Delete("/users/{userID}/progress", progressHandler.ResetProgress)
	})

	return &testAPI{
		router:   r,
		svc:      svc,
		progress: progress,
		catalog:  catalog,
		clk:      clk,
	}
}

// seedItem adds one vocabulary item to the catalog and returns its ID.
func (a *testAPI) seedItem(t *testing.T) uuid.UUID {
	t.Helper()

	item := &domain.VocabularyItem{
		ID:          uuid.New(),
		Term:        "haus",
		Translation: "house",
		Difficulty:  domain.ItemDifficultyEasy,
		CreatedAt:   baseTime,
	}
	require.NoError(t, a.catalog.Seed(item))
	return item.ID
}

// do performs one request against the router. An empty body sends no payload.
func (a *testAPI) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestOpenSessionEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("creates an open session", func(t *testing.T) {
		t.Parallel()

		a := newTestAPI(t)
		userID := uuid.New()
		rec := a.do(t, http.MethodPost, "/api/sessions",
			fmt.Sprintf(`{"user_id": %q}`, userID))

		require.Equal(t, http.StatusCreated, rec.Code)
		resp := decodeBody[api.SessionResponse](t, rec)
		assert.NotEqual(t, uuid.Nil, resp.ID)
		assert.Equal(t, userID, resp.UserID)
		assert.Equal(t, "open", resp.State)
	})

	t.Run("rejects missing user ID", func(t *testing.T) {
		t.Parallel()

		a := newTestAPI(t)
		rec := a.do(t, http.MethodPost, "/api/sessions", `{}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects malformed JSON", func(t *testing.T) {
		t.Parallel()

		a := newTestAPI(t)
		rec := a.do(t, http.MethodPost, "/api/sessions", `{"user_id": `)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestSubmitAnswerEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("applies the answer and echoes progress", func(t *testing.T) {
		t.Parallel()

		a := newTestAPI(t)
		itemID := a.seedItem(t)
		rec := a.do(t, http.MethodPost, "/api/sessions",
			fmt.Sprintf(`{"user_id": %q}`, uuid.New()))
		require.Equal(t, http.StatusCreated, rec.Code)
		opened := decodeBody[api.SessionResponse](t, rec)

		rec = a.do(t, http.MethodPost,
			fmt.Sprintf("/api/sessions/%s/answers", opened.ID),
			fmt.Sprintf(`{"item_id": %q, "correct": true, "latency_ms": 750}`, itemID))

		require.Equal(t, http.StatusOK, rec.Code)
		resp := decodeBody[api.ProgressResponse](t, rec)
		assert.Equal(t, "learning", resp.MasteryLevel)
		assert.Equal(t, 1, resp.ReviewCount)
		assert.Equal(t, 1, resp.Streak)
	})

	t.Run("rejects a malformed session ID", func(t *testing.T) {
		t.Parallel()

		a := newTestAPI(t)
		rec := a.do(t, http.MethodPost, "/api/sessions/not-a-uuid/answers",
			fmt.Sprintf(`{"item_id": %q, "correct": true}`, uuid.New()))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("requires the correct field", func(t *testing.T) {
		t.Parallel()

		a := newTestAPI(t)
		rec := a.do(t, http.MethodPost,
			fmt.Sprintf("/api/sessions/%s/answers", uuid.New()),
			fmt.Sprintf(`{"item_id": %q}`, uuid.New()))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown session reports 404", func(t *testing.T) {
		t.Parallel()

		a := newTestAPI(t)
		rec := a.do(t, http.MethodPost,
			fmt.Sprintf("/api/sessions/%s/answers", uuid.New()),
			fmt.Sprintf(`{"item_id": %q, "correct": true}`, uuid.New()))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("unknown item reports 404", func(t *testing.T) {
		t.Parallel()

		a := newTestAPI(t)
		rec := a.do(t, http.MethodPost, "/api/sessions",
			fmt.Sprintf(`{"user_id": %q}`, uuid.New()))
		require.Equal(t, http.StatusCreated, rec.Code)
		opened := decodeBody[api.SessionResponse](t, rec)

		rec = a.do(t, http.MethodPost,
			fmt.Sprintf("/api/sessions/%s/answers", opened.ID),
			fmt.Sprintf(`{"item_id": %q, "correct": true}`, uuid.New()))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestCloseSessionEndpoint(t *testing.T) {
	t.Parallel()

	a := newTestAPI(t)
	itemID := a.seedItem(t)

	rec := a.do(t, http.MethodPost, "/api/sessions",
		fmt.Sprintf(`{"user_id": %q}`, uuid.New()))
	require.Equal(t, http.StatusCreated, rec.Code)
	opened := decodeBody[api.SessionResponse](t, rec)

	rec = a.do(t, http.MethodPost,
		fmt.Sprintf("/api/sessions/%s/answers", opened.ID),
		fmt.Sprintf(`{"item_id": %q, "correct": true}`, itemID))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, http.MethodPost,
		fmt.Sprintf("/api/sessions/%s/close", opened.ID), "")
	require.Equal(t, http.StatusOK, rec.Code)

	summary := decodeBody[api.SessionSummaryResponse](t, rec)
	assert.Equal(t, opened.ID, summary.SessionID)
	assert.Equal(t, 1, summary.TotalAnswers)
	assert.Equal(t, 1, summary.CorrectAnswers)
	assert.Equal(t, "complete", summary.Outcome)
	assert.Empty(t, summary.UnpersistedItems)

	// A second close conflicts with the already-closed session
	rec = a.do(t, http.MethodPost,
		fmt.Sprintf("/api/sessions/%s/close", opened.ID), "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	// As does submitting another answer
	rec = a.do(t, http.MethodPost,
		fmt.Sprintf("/api/sessions/%s/answers", opened.ID),
		fmt.Sprintf(`{"item_id": %q, "correct": true}`, itemID))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetProgressEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("unseen item reads as the New default", func(t *testing.T) {
		t.Parallel()

		a := newTestAPI(t)
		rec := a.do(t, http.MethodGet,
			fmt.Sprintf("/api/users/%s/progress/%s", uuid.New(), uuid.New()), "")

		require.Equal(t, http.StatusOK, rec.Code)
		resp := decodeBody[api.ProgressResponse](t, rec)
		assert.Equal(t, "new", resp.MasteryLevel)
		assert.Equal(t, 0, resp.ReviewCount)
	})

	t.Run("rejects a malformed user ID", func(t *testing.T) {
		t.Parallel()

		a := newTestAPI(t)
		rec := a.do(t, http.MethodGet,
			fmt.Sprintf("/api/users/not-a-uuid/progress/%s", uuid.New()), "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestGetReviewQueueEndpoint(t *testing.T) {
	t.Parallel()

	a := newTestAPI(t)
	userID := uuid.New()

	seedDue := func(itemID uuid.UUID, due time.Time) {
		progress, err := domain.NewLearningProgress(userID, itemID, baseTime.Add(-48*time.Hour))
		require.NoError(t, err)
		progress.NextReviewAt = due
		require.NoError(t, a.progress.Put(context.Background(), progress))
	}
	catalogItem := a.seedItem(t)
	seedDue(catalogItem, baseTime.Add(-2*time.Hour))
	seedDue(uuid.New(), baseTime.Add(-time.Hour))
	seedDue(uuid.New(), baseTime.Add(time.Hour)) // Not due yet

	rec := a.do(t, http.MethodGet,
		fmt.Sprintf("/api/users/%s/review-queue", userID), "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[api.ReviewQueueResponse](t, rec)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, catalogItem, resp.Items[0].ItemID, "most overdue first")
	assert.Equal(t, "haus", resp.Items[0].Term)
	assert.Empty(t, resp.Items[1].Term, "items missing from the catalog still appear")

	rec = a.do(t, http.MethodGet,
		fmt.Sprintf("/api/users/%s/review-queue?limit=1", userID), "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decodeBody[api.ReviewQueueResponse](t, rec)
	assert.Len(t, resp.Items, 1)

	rec = a.do(t, http.MethodGet,
		fmt.Sprintf("/api/users/%s/review-queue?limit=0", userID), "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPostponeReviewEndpoint(t *testing.T) {
	t.Parallel()

	a := newTestAPI(t)
	userID, itemID := uuid.New(), uuid.New()

	progress, err := domain.NewLearningProgress(userID, itemID, baseTime)
	require.NoError(t, err)
	require.NoError(t, a.progress.Put(context.Background(), progress))

	rec := a.do(t, http.MethodPost,
		fmt.Sprintf("/api/users/%s/progress/%s/postpone", userID, itemID),
		`{"days": 3}`)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[api.ProgressResponse](t, rec)
	assert.Equal(t, baseTime.AddDate(0, 0, 3), resp.NextReviewAt)
	assert.Equal(t, "new", resp.MasteryLevel)

	t.Run("rejects zero days", func(t *testing.T) {
		rec := a.do(t, http.MethodPost,
			fmt.Sprintf("/api/users/%s/progress/%s/postpone", userID, itemID),
			`{"days": 0}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown record reports 404", func(t *testing.T) {
		rec := a.do(t, http.MethodPost,
			fmt.Sprintf("/api/users/%s/progress/%s/postpone", userID, uuid.New()),
			`{"days": 3}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestResetProgressEndpoint(t *testing.T) {
	t.Parallel()

	a := newTestAPI(t)
	userID := uuid.New()

	progress, err := domain.NewLearningProgress(userID, uuid.New(), baseTime)
	require.NoError(t, err)
	require.NoError(t, a.progress.Put(context.Background(), progress))

	rec := a.do(t, http.MethodDelete,
		fmt.Sprintf("/api/users/%s/progress", userID), "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	remaining, err := a.progress.ListByUser(context.Background(), userID)
	require.NoError(t, err)
	assert.Empty(t, remaining)

	t.Run("rejects a malformed user ID", func(t *testing.T) {
		rec := a.do(t, http.MethodDelete, "/api/users/not-a-uuid/progress", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestGetAnalyticsEndpoint(t *testing.T) {
	t.Parallel()

	a := newTestAPI(t)
	userID := uuid.New()
	itemID := a.seedItem(t)

	opened, err := a.svc.OpenSession(context.Background(), userID)
	require.NoError(t, err)
	a.clk.Advance(time.Minute)
	_, err = a.svc.SubmitAnswer(context.Background(), opened.ID, itemID, session.Answer{Correct: true})
	require.NoError(t, err)
	_, err = a.svc.CloseSession(context.Background(), opened.ID)
	require.NoError(t, err)

	from := baseTime.Add(-time.Hour).Format(time.RFC3339)
	to := baseTime.Add(time.Hour).Format(time.RFC3339)

	rec := a.do(t, http.MethodGet,
		fmt.Sprintf("/api/users/%s/analytics?from=%s&to=%s", userID, from, to), "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[api.AnalyticsResponse](t, rec)
	assert.Equal(t, 1, resp.SessionCount)
	assert.Equal(t, 1, resp.TotalAnswers)
	require.NotNil(t, resp.Accuracy)
	assert.InDelta(t, 1.0, *resp.Accuracy, 1e-9)
	assert.Equal(t, 1, resp.MasteryDistribution["learning"])

	t.Run("rejects an inverted range", func(t *testing.T) {
		rec := a.do(t, http.MethodGet,
			fmt.Sprintf("/api/users/%s/analytics?from=%s&to=%s", userID, to, from), "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects a malformed timestamp", func(t *testing.T) {
		rec := a.do(t, http.MethodGet,
			fmt.Sprintf("/api/users/%s/analytics?from=yesterday", userID), "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
