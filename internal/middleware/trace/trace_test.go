package trace

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"keuangan/internal/log"
)

func TestMiddleware_RequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Config{Component: log.ComponentApp, Output: &buf})
	m := NewMiddleware(func(*http.Request) string { return "10.1.1.1" }, logger)

	var seenID string
	var seenLogger *log.Logger
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = GetRequestID(r.Context())
		seenLogger = log.FromContext(r.Context())
		w.WriteHeader(http.StatusNotFound)
	}))

	t.Run("generated", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/acc/1", nil))
		if !strings.HasPrefix(seenID, "req_") {
			t.Fatalf("request id = %q", seenID)
		}
		if rr.Header().Get(RequestIDHeader) != seenID {
			t.Fatal("request id not echoed")
		}
		if seenLogger == nil || seenLogger.Component() != log.ComponentTrace {
			t.Fatal("context logger missing")
		}
		out := buf.String()
		if !strings.Contains(out, "status_code=404") || !strings.Contains(out, "level=WARN") {
			t.Fatalf("access log = %s", out)
		}
	})

	t.Run("propagated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/acc/", nil)
		req.Header.Set(RequestIDHeader, "abc-123")
		h.ServeHTTP(httptest.NewRecorder(), req)
		if seenID != "abc-123" {
			t.Fatalf("request id = %q", seenID)
		}
	})

	t.Run("malformed replaced", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/acc/", nil)
		req.Header.Set(RequestIDHeader, "bad id\nwith newline")
		h.ServeHTTP(httptest.NewRecorder(), req)
		if !strings.HasPrefix(seenID, "req_") {
			t.Fatalf("request id = %q", seenID)
		}
	})

	if got := m.GetMetrics().TotalRequests; got != 3 {
		t.Fatalf("TotalRequests = %d", got)
	}
}

func TestGenerateRequestID_Unique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := GenerateRequestID()
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}

func TestMiddleware_AverageResponseTime(t *testing.T) {
	m := NewMiddleware(nil, log.Discard())

	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }

	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d, _ := time.ParseDuration(r.URL.Query().Get("took"))
		clock = clock.Add(d)
		if r.URL.Query().Get("fail") != "" {
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))

	if got := m.GetMetrics().AverageResponseTime; got != 0 {
		t.Fatalf("AverageResponseTime before any request = %d", got)
	}

	for _, target := range []string{"/?took=10ms", "/?took=30ms", "/?took=50ms&fail=1"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, target, nil))
	}

	got := m.GetMetrics()
	if got.AverageResponseTime != 30000 {
		t.Errorf("AverageResponseTime = %dus, want 30000us", got.AverageResponseTime)
	}
	if got.TotalRequests != 3 || got.ServerErrors != 1 {
		t.Errorf("metrics = %+v", got)
	}
}
