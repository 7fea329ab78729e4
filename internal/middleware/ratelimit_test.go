package middleware

import (
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClientIPForRateLimit(t *testing.T) {
	cases := []struct {
		remote string
		want   string
	}{
		{remote: "198.51.100.10:1234", want: "198.51.100.10"},
		{remote: net.JoinHostPort("2001:db8::2", "443"), want: "2001:db8::2"},
		{remote: "203.0.113.1", want: "203.0.113.1"},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = tc.remote
		req.Header.Set("X-Forwarded-For", "192.0.2.99")
		if got := clientIPForRateLimit(req); got != tc.want {
			t.Fatalf("clientIPForRateLimit(%q) = %q, want %q", tc.remote, got, tc.want)
		}
	}
}

func TestRateLimitRejectsOverLimit(t *testing.T) {
	handler := RateLimit(2, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/v1/pledges/1/status", nil)
		req.RemoteAddr = "198.51.100.10:1234"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
		if rr.Code == http.StatusTooManyRequests && rr.Header().Get("Retry-After") == "" {
			t.Fatalf("expected Retry-After header on 429")
		}
	}
	want := []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}
	for i := range want {
		if codes[i] != want[i] {
			t.Fatalf("request %d: got %d, want %d", i, codes[i], want[i])
		}
	}

	other := httptest.NewRequest(http.MethodGet, "/v1/pledges/1/status", nil)
	other.RemoteAddr = "203.0.113.5:1234"
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, other)
	if rr.Code != http.StatusOK {
		t.Fatalf("other client: got %d, want 200", rr.Code)
	}
}
