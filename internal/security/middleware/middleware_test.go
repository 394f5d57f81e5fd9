package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/yourorg/propertylease/internal/security/auth"
	"github.com/yourorg/propertylease/internal/security/ratelimit"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestJWTMiddlewarePopulatesCaller(t *testing.T) {
	tm := auth.NewTokenManager("test-secret", "test")
	token, err := tm.GenerateToken("user-1", "t1@example.com", "tenant", time.Hour)
	if err != nil {
		t.Fatalf("token generation failed: %v", err)
	}

	var gotID string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, ok := GetCallerFromContext(r.Context())
		if !ok {
			t.Fatalf("no caller on context behind the JWT middleware")
		}
		gotID = caller.ID
	})
	handler := JWTMiddleware(tm, discardLogger())(inner)

	req := httptest.NewRequest(http.MethodGet, "/api/payments", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if gotID != "user-1" {
		t.Fatalf("caller id = %q, want user-1", gotID)
	}

	// No token on a protected path is rejected before the handler runs.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/payments", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status without token = %d, want 401", rec.Code)
	}
}

func TestRateLimitKeyedByAuthenticatedUser(t *testing.T) {
	tm := auth.NewTokenManager("test-secret", "test")
	token, err := tm.GenerateToken("user-1", "t1@example.com", "tenant", time.Hour)
	if err != nil {
		t.Fatalf("token generation failed: %v", err)
	}

	limiter := ratelimit.NewLimiter(1, time.Minute)
	defer limiter.Stop()

	// Same nesting as the server chain: JWT outside so the limiter sees the
	// authenticated user.
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	handler := JWTMiddleware(tm, discardLogger())(
		RateLimitMiddleware(limiter, discardLogger())(inner),
	)

	send := func(remoteAddr string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/payments", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		req.RemoteAddr = remoteAddr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := send("10.0.0.1:1111"); code != http.StatusOK {
		t.Fatalf("first request status = %d, want 200", code)
	}
	// A different client address does not reset the budget: the bucket is the
	// user, not the address.
	if code := send("10.0.0.2:2222"); code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", code)
	}
}

func TestPathID(t *testing.T) {
	cases := []struct {
		path string
		want string
	}{
		{"/api/payments/pay-1/refund", "pay-1"},
		{"/api/units/unit-9/room-code", "unit-9"},
		{"/api/payments", ""},
		{"/api/payments/manual", ""},
		{"/healthz", ""},
	}
	for _, tc := range cases {
		if got := pathID(tc.path); got != tc.want {
			t.Fatalf("pathID(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}
