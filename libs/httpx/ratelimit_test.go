package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiter_PerCaller(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return base }

	h := rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func(caller string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/availability", nil)
		req.Header.Set(CallerHeader, caller)
		rw := httptest.NewRecorder()
		h.ServeHTTP(rw, req)
		return rw.Code
	}

	if do("session-a") != http.StatusOK || do("session-a") != http.StatusOK {
		t.Fatal("expected first two requests to pass")
	}
	if got := do("session-a"); got != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", got)
	}
	if got := do("session-b"); got != http.StatusOK {
		t.Fatalf("expected other caller to pass, got %d", got)
	}

	rl.now = func() time.Time { return base.Add(2 * time.Minute) }
	if got := do("session-a"); got != http.StatusOK {
		t.Fatalf("expected window reset, got %d", got)
	}
}

func TestClientKey_ForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if got := clientKey(req); got != "ip:203.0.113.9" {
		t.Fatalf("unexpected key %q", got)
	}
}
