package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimiterThrottlesPerClient(t *testing.T) {
	limiter := NewRateLimiter(RateLimit{RequestsPerSecond: 1, Burst: 2})
	handler := limiter.Middleware("vault")(okHandler())

	send := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/v1/vault/assets", nil)
		req.Header.Set("X-Real-IP", ip)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := send("10.0.0.1"); code != http.StatusOK {
		t.Fatalf("first request: %d", code)
	}
	if code := send("10.0.0.1"); code != http.StatusOK {
		t.Fatalf("second request within burst: %d", code)
	}
	if code := send("10.0.0.1"); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 beyond burst, got %d", code)
	}

	// A different client keeps its own budget.
	if code := send("10.0.0.2"); code != http.StatusOK {
		t.Fatalf("other client: %d", code)
	}
}

func TestRateLimiterClientIdentification(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.7:4455"
	if got := clientID(req); got != "192.0.2.7" {
		t.Fatalf("remote addr fallback: %q", got)
	}

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if got := clientID(req); got != "203.0.113.9" {
		t.Fatalf("forwarded-for: %q", got)
	}

	req.Header.Set("X-Real-IP", "198.51.100.2")
	if got := clientID(req); got != "198.51.100.2" {
		t.Fatalf("real-ip precedence: %q", got)
	}
}
