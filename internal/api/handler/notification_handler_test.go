package handler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ratehub/rating-notifications/internal/api/handler"
	"github.com/ratehub/rating-notifications/internal/domain"
	"github.com/ratehub/rating-notifications/internal/ratelimiter"
	"github.com/ratehub/rating-notifications/internal/service"
	"github.com/ratehub/rating-notifications/internal/store"
)

func newHandler(pollsPerSec int) (*handler.NotificationHandler, *store.MemoryStore) {
	st := store.NewMemoryStore()
	svc := service.NewNotificationService(st, zap.NewNop())
	h := handler.NewNotificationHandler(svc, ratelimiter.New(pollsPerSec), zap.NewNop(), nil)
	return h, st
}

func preload(t *testing.T, st *store.MemoryStore, subjectID int64, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		err := st.Append(context.Background(), domain.Notification{
			ID:                fmt.Sprintf("n-%d", i),
			ServiceProviderID: subjectID,
			CustomerID:        1,
			Score:             5,
			CreatedAt:         time.Now().UTC(),
			Kind:              domain.KindRatingCreated,
		})
		if err != nil {
			t.Fatal(err)
		}
	}
}

func pollResult(t *testing.T, rec *httptest.ResponseRecorder) domain.PollResult {
	t.Helper()
	var result domain.PollResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("decode poll response: %v", err)
	}
	return result
}

func TestNotificationHandler_Poll_DefaultLimit(t *testing.T) {
	h, st := newHandler(1000)
	preload(t, st, 123, 15)

	// No limit parameter: the handler applies the default of 10.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications?subjectId=123", nil)
	rec := httptest.NewRecorder()
	h.Poll(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	result := pollResult(t, rec)
	if result.Count != service.DefaultPollLimit {
		t.Fatalf("expected the default limit of %d entries, got %d", service.DefaultPollLimit, result.Count)
	}
	if !result.HasMore {
		t.Fatal("expected hasMore=true with 5 entries left")
	}
}

func TestNotificationHandler_Poll_EmptySubjectReturnsArray(t *testing.T) {
	h, _ := newHandler(1000)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications?subjectId=123", nil)
	rec := httptest.NewRecorder()
	h.Poll(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body := rec.Body.String(); !strings.Contains(body, `"notifications":[]`) {
		t.Fatalf("expected the empty poll body to carry notifications:[], got %s", body)
	}
}

func TestNotificationHandler_Poll_ValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		target string
	}{
		{"missing subjectId", "/api/v1/notifications"},
		{"non-integer subjectId", "/api/v1/notifications?subjectId=abc"},
		{"non-integer limit", "/api/v1/notifications?subjectId=123&limit=ten"},
		{"limit above ceiling", "/api/v1/notifications?subjectId=123&limit=51"},
		{"zero limit", "/api/v1/notifications?subjectId=123&limit=0"},
		{"non-positive subject", "/api/v1/notifications?subjectId=-5"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h, _ := newHandler(1000)
			req := httptest.NewRequest(http.MethodGet, tc.target, nil)
			rec := httptest.NewRecorder()
			h.Poll(rec, req)

			if rec.Code != http.StatusUnprocessableEntity {
				t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestNotificationHandler_Poll_RateLimited(t *testing.T) {
	// One poll per second with burst 1: the second request is rejected.
	h, _ := newHandler(1)

	first := httptest.NewRecorder()
	h.Poll(first, httptest.NewRequest(http.MethodGet, "/api/v1/notifications?subjectId=123", nil))
	if first.Code != http.StatusOK {
		t.Fatalf("expected the first poll to pass, got %d", first.Code)
	}

	second := httptest.NewRecorder()
	h.Poll(second, httptest.NewRequest(http.MethodGet, "/api/v1/notifications?subjectId=123", nil))
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 for the second poll, got %d", second.Code)
	}

	// Other subjects are unaffected by 123's exhausted bucket.
	other := httptest.NewRecorder()
	h.Poll(other, httptest.NewRequest(http.MethodGet, "/api/v1/notifications?subjectId=456", nil))
	if other.Code != http.StatusOK {
		t.Fatalf("expected a different subject to pass, got %d", other.Code)
	}
}

func TestNotificationHandler_Count(t *testing.T) {
	h, st := newHandler(1000)
	preload(t, st, 9, 4)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications/count?subjectId=9", nil)
	rec := httptest.NewRecorder()
	h.Count(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]int
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["count"] != 4 {
		t.Fatalf("expected count=4, got %d", body["count"])
	}
}

func TestNotificationHandler_Count_InvalidSubject(t *testing.T) {
	h, _ := newHandler(1000)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications/count?subjectId=oops", nil)
	rec := httptest.NewRecorder()
	h.Count(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
}

func TestNotificationHandler_Ingest(t *testing.T) {
	h, st := newHandler(1000)

	payload, _ := json.Marshal(domain.Notification{
		ID:                "in-1",
		ServiceProviderID: 55,
		CustomerID:        2,
		Score:             3,
		CreatedAt:         time.Now().UTC(),
		Kind:              domain.KindRatingCreated,
	})
	req := httptest.NewRequest(http.MethodPost, "/internal/notifications", strings.NewReader(string(payload)))
	rec := httptest.NewRecorder()
	h.Ingest(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
	}
	count, _ := st.Count(context.Background(), 55)
	if count != 1 {
		t.Fatalf("expected the notification stored, count=%d", count)
	}
}

func TestNotificationHandler_Ingest_Errors(t *testing.T) {
	t.Run("malformed body", func(t *testing.T) {
		h, _ := newHandler(1000)
		req := httptest.NewRequest(http.MethodPost, "/internal/notifications", strings.NewReader("{not json"))
		rec := httptest.NewRecorder()
		h.Ingest(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("invalid notification", func(t *testing.T) {
		h, st := newHandler(1000)
		payload, _ := json.Marshal(domain.Notification{ServiceProviderID: 55, CustomerID: 2, Score: 3, Kind: domain.KindRatingCreated})
		req := httptest.NewRequest(http.MethodPost, "/internal/notifications", strings.NewReader(string(payload)))
		rec := httptest.NewRecorder()
		h.Ingest(rec, req)

		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", rec.Code)
		}
		count, _ := st.Count(context.Background(), 55)
		if count != 0 {
			t.Fatal("invalid notifications must never reach the store")
		}
	})
}
