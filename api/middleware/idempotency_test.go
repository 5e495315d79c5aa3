package middleware

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
)

type fakeStore struct {
	data map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string)}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	str, _ := value.(string)
	f.data[key] = str
	return true, nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("fake:%s:%s", scope, id)
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func requestWithPattern(method, url, pattern string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, url, body)
	rc := chi.NewRouteContext()
	rc.RoutePatterns = []string{pattern}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func TestRouteTTLSelection(t *testing.T) {
	tests := []struct {
		name    string
		method  string
		pattern string
		want    time.Duration
		ok      bool
	}{
		{"submit invoice", http.MethodPost, "/api/v1/invoices", defaultIdempotencyTTL, true},
		{"decision", http.MethodPost, "/api/v1/invoices/{invoiceID}/decision", criticalIdempotencyTTL, true},
		{"submit for approval", http.MethodPost, "/api/v1/invoices/{invoiceID}/submit-for-approval", defaultIdempotencyTTL, true},
		{"assign", http.MethodPost, "/api/v1/invoices/{invoiceID}/assign", defaultIdempotencyTTL, true},
		{"flag vendor", http.MethodPost, "/api/v1/vendors/{vendorID}/flag", defaultIdempotencyTTL, true},
		{"list invoices", http.MethodGet, "/api/v1/invoices", 0, false},
		{"health", http.MethodGet, "/healthz", 0, false},
	}

	for _, tt := range tests {
		ttl, ok := routeTTL(tt.method, tt.pattern)
		if ok != tt.ok {
			t.Fatalf("%s: expected ok=%v got %v", tt.name, tt.ok, ok)
		}
		if ok && ttl != tt.want {
			t.Fatalf("%s: expected ttl=%v got %v", tt.name, tt.want, ttl)
		}
	}
}

func TestIdempotencyMiddlewareRequiresHeader(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	handlerCalled := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		w.WriteHeader(http.StatusCreated)
	})

	req := requestWithPattern(http.MethodPost, "/api/v1/invoices", "/api/v1/invoices", strings.NewReader(`{"number":"INV-1"}`))
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if handlerCalled {
		t.Fatalf("handler should not run without idempotency key")
	}
}

func TestIdempotencyMiddlewareReplaysStoredResponse(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"success":true}`))
	})

	send := func() *httptest.ResponseRecorder {
		req := requestWithPattern(http.MethodPost, "/api/v1/invoices", "/api/v1/invoices", strings.NewReader(`{"number":"INV-1"}`))
		req.Header.Set("Idempotency-Key", "abc-123")
		resp := httptest.NewRecorder()
		mw(handler).ServeHTTP(resp, req)
		return resp
	}

	first := send()
	if first.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", first.Code)
	}

	second := send()
	if second.Code != http.StatusCreated {
		t.Fatalf("expected replayed 201 got %d", second.Code)
	}
	if second.Body.String() != `{"success":true}` {
		t.Fatalf("unexpected replayed body %q", second.Body.String())
	}
	if calls != 1 {
		t.Fatalf("expected handler to run once, ran %d times", calls)
	}
}

func TestIdempotencyMiddlewareRejectsKeyReuseWithDifferentBody(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	send := func(body string) *httptest.ResponseRecorder {
		req := requestWithPattern(http.MethodPost, "/api/v1/invoices", "/api/v1/invoices", strings.NewReader(body))
		req.Header.Set("Idempotency-Key", "abc-123")
		resp := httptest.NewRecorder()
		mw(handler).ServeHTTP(resp, req)
		return resp
	}

	if first := send(`{"number":"INV-1"}`); first.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", first.Code)
	}
	if second := send(`{"number":"INV-2"}`); second.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", second.Code)
	}
}

func TestIdempotencyMiddlewareSkipsUnlistedRoutes(t *testing.T) {
	store := newFakeStore()
	mw := Idempotency(store, nil)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := requestWithPattern(http.MethodGet, "/api/v1/invoices", "/api/v1/invoices", nil)
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if len(store.data) != 0 {
		t.Fatalf("expected no stored records, got %d", len(store.data))
	}
}
