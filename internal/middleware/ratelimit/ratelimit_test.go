package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestLimiter(t *testing.T, perWindow int) (*Limiter, *time.Time) {
	t.Helper()
	rl := NewLimiter(Config{RequestsPerWindow: perWindow, Window: time.Minute, Methods: []string{http.MethodPost}})
	t.Cleanup(rl.Stop)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	return rl, &now
}

func TestAllow(t *testing.T) {
	rl, now := newTestLimiter(t, 3)
	for i := 0; i < 3; i++ {
		if !rl.Allow("1.2.3.4") {
			t.Fatalf("request %d should pass", i+1)
		}
	}
	if rl.Allow("1.2.3.4") {
		t.Fatal("fourth request should be limited")
	}
	if !rl.Allow("5.6.7.8") {
		t.Fatal("other clients are tracked separately")
	}
	if rl.Hits() != 1 {
		t.Fatalf("expected 1 hit, got %d", rl.Hits())
	}

	*now = now.Add(time.Minute)
	if !rl.Allow("1.2.3.4") {
		t.Fatal("window should have reset")
	}
}

func TestCleanup(t *testing.T) {
	rl, now := newTestLimiter(t, 3)
	rl.Allow("a")
	rl.Allow("b")
	*now = now.Add(2 * time.Minute)
	rl.Allow("c")
	rl.cleanup()
	if n := rl.ActiveClients(); n != 1 {
		t.Fatalf("expected only the fresh client to remain, got %d", n)
	}
}

func TestMiddlewareOnlyLimitsConfiguredMethods(t *testing.T) {
	rl, _ := newTestLimiter(t, 1)
	h := rl.Middleware(func(*http.Request) string { return "ip" }, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }))

	do := func(method string) int {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(method, "/", nil))
		return rr.Code
	}
	if code := do(http.MethodPost); code != http.StatusNoContent {
		t.Fatalf("first POST: %d", code)
	}
	if code := do(http.MethodPost); code != http.StatusTooManyRequests {
		t.Fatalf("second POST should be limited, got %d", code)
	}
	if code := do(http.MethodGet); code != http.StatusNoContent {
		t.Fatalf("GET must not be limited, got %d", code)
	}
}
