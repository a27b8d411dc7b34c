package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/elibrary-backend/pkg/errors"
)

type memResponseStore struct {
	data map[string]string
	ttls map[string]time.Duration
}

func newMemResponseStore() *memResponseStore {
	return &memResponseStore{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memResponseStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (m *memResponseStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key], m.ttls[key] = value.(string), ttl
	return true, nil
}

func (m *memResponseStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	m.data[key], m.ttls[key] = value.(string), ttl
	return nil
}

func (m *memResponseStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memResponseStore) IdempotencyKey(scope, id string) string {
	return "idem:" + scope + ":" + id
}

func buyRequest(body, key string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/books/42/buy", strings.NewReader(body))
	if key != "" {
		req.Header.Set(IdempotencyKeyHeader, key)
	}
	return req.WithContext(WithUserID(req.Context(), "reader-1"))
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload.Error.Code
}

func TestIdempotencyWithoutHeaderPassesThrough(t *testing.T) {
	store := newMemResponseStore()
	calls := 0
	handler := Idempotency(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, buyRequest(`{"payment_method":"visa"}`, ""))
		assert.Equal(t, http.StatusCreated, rec.Code)
	}
	assert.Equal(t, 2, calls)
	assert.Empty(t, store.data)
}

func TestIdempotencyReplaysFirstResponse(t *testing.T) {
	store := newMemResponseStore()
	calls := 0
	handler := Idempotency(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"order_id":"o-1"}`))
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, buyRequest(`{"payment_method":"visa"}`, "abc"))
	require.Equal(t, http.StatusCreated, first.Code)

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, buyRequest(`{"payment_method":"visa"}`, "abc"))
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "application/json", second.Header().Get("Content-Type"))
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	assert.JSONEq(t, `{"order_id":"o-1"}`, second.Body.String())
	assert.Equal(t, 1, calls)

	for key, ttl := range store.ttls {
		assert.Equal(t, time.Hour, ttl, key)
	}
}

func TestIdempotencyScopesKeysPerUser(t *testing.T) {
	store := newMemResponseStore()
	calls := 0
	handler := Idempotency(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), buyRequest(`{}`, "same"))
	other := buyRequest(`{}`, "same")
	other = other.WithContext(WithUserID(other.Context(), "reader-2"))
	handler.ServeHTTP(httptest.NewRecorder(), other)
	assert.Equal(t, 2, calls)
}

func TestIdempotencyReleasesKeyOnServerError(t *testing.T) {
	store := newMemResponseStore()
	status := http.StatusServiceUnavailable
	handler := Idempotency(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), buyRequest(`{}`, "retry-me"))
	assert.Empty(t, store.data)

	status = http.StatusCreated
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, buyRequest(`{}`, "retry-me"))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Len(t, store.data, 1)
}

func TestIdempotencyRejectsBodyChange(t *testing.T) {
	store := newMemResponseStore()
	handler := Idempotency(store, time.Hour, nil)(okHandler())

	handler.ServeHTTP(httptest.NewRecorder(), buyRequest(`{"payment_method":"visa"}`, "xyz"))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, buyRequest(`{"payment_method":"paypal"}`, "xyz"))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, string(pkgerrors.CodeIdempotency), errorCode(t, rec))
}

func TestIdempotencyRejectsConcurrentDuplicate(t *testing.T) {
	store := newMemResponseStore()
	var inner *httptest.ResponseRecorder
	var handler http.Handler
	handler = Idempotency(store, time.Hour, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if inner == nil {
			inner = httptest.NewRecorder()
			handler.ServeHTTP(inner, buyRequest(`{}`, "dup"))
		}
		w.WriteHeader(http.StatusCreated)
	}))

	outer := httptest.NewRecorder()
	handler.ServeHTTP(outer, buyRequest(`{}`, "dup"))

	assert.Equal(t, http.StatusCreated, outer.Code)
	require.NotNil(t, inner)
	assert.Equal(t, http.StatusConflict, inner.Code)
	assert.Equal(t, string(pkgerrors.CodeIdempotency), errorCode(t, inner))
}

func TestIdempotencyRejectsOversizedKey(t *testing.T) {
	handler := Idempotency(newMemResponseStore(), time.Hour, nil)(okHandler())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, buyRequest(`{}`, strings.Repeat("k", maxIdempotencyKeyLen+1)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
