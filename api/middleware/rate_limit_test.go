package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/angelmondragon/gatic-backend/pkg/enums"
)

type counterStore struct {
	counts map[string]int64
	err    error
}

func (c *counterStore) IncrWithTTL(_ context.Context, key string, _ time.Duration) (int64, error) {
	if c.err != nil {
		return 0, c.err
	}
	if c.counts == nil {
		c.counts = map[string]int64{}
	}
	c.counts[key]++
	return c.counts[key], nil
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func postAs(actor string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/loans", nil)
	return req.WithContext(WithActor(req.Context(), actor, enums.ActorRoleEditor))
}

func TestWriteRateLimitBlocksAfterLimit(t *testing.T) {
	store := &counterStore{}
	handler := WriteRateLimit(NewWriteRateLimitPolicy(time.Minute, 2), store, nil)(okHandler())

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, postAs("ana"))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200 got %d", i, rec.Code)
		}
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, postAs("ana"))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 got %d", rec.Code)
	}

	other := httptest.NewRecorder()
	handler.ServeHTTP(other, postAs("luis"))
	if other.Code != http.StatusOK {
		t.Fatalf("other actors keep their own window, got %d", other.Code)
	}
}

func TestWriteRateLimitIgnoresReads(t *testing.T) {
	store := &counterStore{}
	handler := WriteRateLimit(NewWriteRateLimitPolicy(time.Minute, 1), store, nil)(okHandler())
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/loans", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200 got %d", rec.Code)
		}
	}
	if len(store.counts) != 0 {
		t.Fatalf("reads must not be counted")
	}
}

func TestWriteRateLimitStoreFailure(t *testing.T) {
	handler := WriteRateLimit(NewWriteRateLimitPolicy(time.Minute, 1), &counterStore{err: errors.New("redis down")}, nil)(okHandler())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, postAs("ana"))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", rec.Code)
	}
}

func TestWriteRateLimitDisabled(t *testing.T) {
	next := okHandler()
	handler := WriteRateLimit(NewWriteRateLimitPolicy(0, 0), &counterStore{}, nil)(next)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, postAs("ana"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
}
