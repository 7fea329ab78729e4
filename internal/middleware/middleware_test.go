package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestCORSListedOrigin(t *testing.T) {
	handler := CORS([]string{"https://doe.example.com"})(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://doe.example.com")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://doe.example.com" {
		t.Fatalf("allow origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unexpected allow origin %q", got)
	}
}

func TestCORSWildcardAndPreflight(t *testing.T) {
	handler := CORS([]string{"*"})(okHandler())

	req := httptest.NewRequest(http.MethodOptions, "/v1/pledges", nil)
	req.Header.Set("Origin", "https://anywhere.example.com")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d, want 204", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("allow origin = %q, want *", got)
	}
	if got := rr.Header().Get("Access-Control-Allow-Credentials"); got != "" {
		t.Fatalf("wildcard must not allow credentials, got %q", got)
	}
	allowed := rr.Header().Get("Access-Control-Allow-Headers")
	for _, h := range []string{"Content-Type", "X-Locale", RequestIDHeader} {
		if !strings.Contains(allowed, h) {
			t.Fatalf("allow headers %q missing %s", allowed, h)
		}
	}
}

func TestRequestIDPropagatesOrMints(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if seen != "abc-123" || rr.Header().Get(RequestIDHeader) != "abc-123" {
		t.Fatalf("request id not propagated: ctx=%q header=%q", seen, rr.Header().Get(RequestIDHeader))
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if len(seen) != 36 {
		t.Fatalf("expected minted uuid, got %q", seen)
	}
}

func TestRequestIDReplacesUntrustedValues(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))
	for _, rid := range []string{"a b", "id\"}", "trace:01.ab_c-9x", strings.Repeat("x", 129)} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, rid)
		handler.ServeHTTP(httptest.NewRecorder(), req)
		if validRequestID(rid) {
			if seen != rid {
				t.Fatalf("valid id %q replaced with %q", rid, seen)
			}
			continue
		}
		if seen == rid || len(seen) != 36 {
			t.Fatalf("untrusted id %q kept or not minted: %q", rid, seen)
		}
	}
	if !validRequestID("trace:01.ab_c-9x") {
		t.Fatalf("expected token id to be valid")
	}
}

func TestLoggerRecordsStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	handler := RequestID(Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("no"))
	})))

	req := httptest.NewRequest(http.MethodGet, "/v1/pledges/9/certificate", nil)
	req.Header.Set(RequestIDHeader, "rid-1")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if entry["status"] != float64(http.StatusForbidden) {
		t.Fatalf("status = %#v", entry["status"])
	}
	if entry["path"] != "/v1/pledges/9/certificate" {
		t.Fatalf("path = %#v", entry["path"])
	}
	if entry["request_id"] != "rid-1" {
		t.Fatalf("request_id = %#v", entry["request_id"])
	}
	if entry["bytes"] != float64(2) {
		t.Fatalf("bytes = %#v", entry["bytes"])
	}
}
