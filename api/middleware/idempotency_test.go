package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/nmoralesdev/storefront-backend/pkg/logger"
	"github.com/nmoralesdev/storefront-backend/pkg/types"
)

type memoryIdempotencyStore struct {
	values map[string]string
}

func newMemoryIdempotencyStore() *memoryIdempotencyStore {
	return &memoryIdempotencyStore{values: map[string]string{}}
}

func (s *memoryIdempotencyStore) Get(_ context.Context, key string) (string, error) {
	value, ok := s.values[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

func (s *memoryIdempotencyStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := s.values[key]; ok {
		return false, nil
	}
	s.values[key] = value.(string)
	return true, nil
}

func (s *memoryIdempotencyStore) IdempotencyKey(scope, id string) string {
	return "idempotency:" + scope + ":" + id
}

func (s *memoryIdempotencyStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(s.values, key)
	}
	return nil
}

func idempotencyTestHandler(hits *int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		*hits++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":"order-1"}}`))
	})
}

func decodeErrorEnvelope(t *testing.T, body string) types.ErrorEnvelope {
	t.Helper()
	var envelope types.ErrorEnvelope
	if err := json.Unmarshal([]byte(body), &envelope); err != nil {
		t.Fatalf("decoding error envelope: %v", err)
	}
	return envelope
}

func TestIdempotencyPassthroughForUnlistedRoute(t *testing.T) {
	hits := 0
	handler := Idempotency(newMemoryIdempotencyStore(), logger.New(logger.Options{ServiceName: "test"}))(idempotencyTestHandler(&hits))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if hits != 1 {
		t.Fatalf("handler hits = %d, want 1", hits)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestIdempotencyRequiresHeader(t *testing.T) {
	hits := 0
	handler := Idempotency(newMemoryIdempotencyStore(), logger.New(logger.Options{ServiceName: "test"}))(idempotencyTestHandler(&hits))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if hits != 0 {
		t.Fatalf("handler must not run without the header, hits = %d", hits)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	envelope := decodeErrorEnvelope(t, rec.Body.String())
	if envelope.Error.Code != "VALIDATION_ERROR" {
		t.Fatalf("error code = %q", envelope.Error.Code)
	}
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	hits := 0
	store := newMemoryIdempotencyStore()
	handler := Idempotency(store, logger.New(logger.Options{ServiceName: "test"}))(idempotencyTestHandler(&hits))

	makeRequest := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{"payment_method":"card"}`))
		req.Header.Set("Idempotency-Key", "key-123")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	first := makeRequest()
	if first.Code != http.StatusCreated {
		t.Fatalf("first status = %d", first.Code)
	}
	if hits != 1 {
		t.Fatalf("hits after first request = %d", hits)
	}

	second := makeRequest()
	if hits != 1 {
		t.Fatalf("replay must not reach the handler, hits = %d", hits)
	}
	if second.Code != http.StatusCreated {
		t.Fatalf("replayed status = %d", second.Code)
	}
	if second.Body.String() != first.Body.String() {
		t.Fatalf("replayed body %q differs from original %q", second.Body.String(), first.Body.String())
	}
	if ct := second.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("replayed content type = %q", ct)
	}
}

func TestIdempotencyRejectsKeyReuseWithDifferentBody(t *testing.T) {
	hits := 0
	store := newMemoryIdempotencyStore()
	handler := Idempotency(store, logger.New(logger.Options{ServiceName: "test"}))(idempotencyTestHandler(&hits))

	makeRequest := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
		req.Header.Set("Idempotency-Key", "key-123")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	makeRequest(`{"payment_method":"card"}`)
	second := makeRequest(`{"payment_method":"paypal"}`)

	if hits != 1 {
		t.Fatalf("conflicting request must not reach the handler, hits = %d", hits)
	}
	if second.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", second.Code)
	}
	envelope := decodeErrorEnvelope(t, second.Body.String())
	if envelope.Error.Code != "IDEMPOTENCY_KEY_REUSED" {
		t.Fatalf("error code = %q", envelope.Error.Code)
	}
}

func TestIdempotencyGuardsNestedRoutesThroughRouter(t *testing.T) {
	hits := 0
	store := newMemoryIdempotencyStore()

	// Mirrors the production router: the middleware sits on the group, so
	// the rules must fire on leaf paths like /{orderID}/pay, not just the
	// group prefix.
	r := chi.NewRouter()
	r.Route("/api/v1/orders", func(r chi.Router) {
		r.Use(Idempotency(store, logger.New(logger.Options{ServiceName: "test"})))
		r.Post("/", idempotencyTestHandler(&hits).ServeHTTP)
		r.Put("/{orderID}/pay", idempotencyTestHandler(&hits).ServeHTTP)
		r.Get("/{orderID}", idempotencyTestHandler(&hits).ServeHTTP)
	})

	// Pay without the header is rejected before the handler.
	req := httptest.NewRequest(http.MethodPut, "/api/v1/orders/9f7c2f6a-62b1-4bd0-a7a3-1f6f2f0a9c11/pay", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if hits != 0 {
		t.Fatalf("pay without header must not reach the handler, hits = %d", hits)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("pay status = %d, want 400", rec.Code)
	}

	// With the header it goes through.
	req = httptest.NewRequest(http.MethodPut, "/api/v1/orders/9f7c2f6a-62b1-4bd0-a7a3-1f6f2f0a9c11/pay", strings.NewReader(`{}`))
	req.Header.Set("Idempotency-Key", "pay-key")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if hits != 1 {
		t.Fatalf("pay with header should reach the handler, hits = %d", hits)
	}

	// Unlisted GET on the same group passes through untouched.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/orders/9f7c2f6a-62b1-4bd0-a7a3-1f6f2f0a9c11", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if hits != 2 {
		t.Fatalf("read must pass through, hits = %d", hits)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("read status = %d", rec.Code)
	}
}

func TestIdempotencyKeysAreScopedPerUser(t *testing.T) {
	hits := 0
	store := newMemoryIdempotencyStore()
	handler := Idempotency(store, logger.New(logger.Options{ServiceName: "test"}))(idempotencyTestHandler(&hits))

	makeRequest := func(userID string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{"payment_method":"card"}`))
		req.Header.Set("Idempotency-Key", "shared-key")
		req = req.WithContext(WithUserID(req.Context(), userID))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	makeRequest("user-a")
	makeRequest("user-b")

	if hits != 2 {
		t.Fatalf("distinct users must not share idempotency records, hits = %d", hits)
	}
}
