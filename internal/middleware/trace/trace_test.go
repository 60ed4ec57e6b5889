package trace

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	applog "pfm/internal/log"
)

func testLogger(buf *bytes.Buffer) *applog.Logger {
	return applog.New(applog.Config{
		Component: applog.ComponentTrace,
		Handler:   slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}),
	})
}

func TestMiddlewareAssignsRequestID(t *testing.T) {
	var buf bytes.Buffer
	m := NewMiddleware(testLogger(&buf), func(*http.Request) string { return "10.1.1.1" })

	var inner string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inner = GetRequestID(r.Context())
		applog.FromContext(r.Context()).Info("handler ran")
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/analytics", nil))

	if _, err := uuid.Parse(inner); err != nil {
		t.Fatalf("request id %q is not a uuid", inner)
	}
	if got := rec.Header().Get(RequestIDHeader); got != inner {
		t.Fatalf("header id %q != context id %q", got, inner)
	}
	out := buf.String()
	if !strings.Contains(out, "request_id="+inner) || !strings.Contains(out, "status_code=418") {
		t.Fatalf("log lines missing request data: %s", out)
	}
	if got := m.GetMetrics().TotalRequests; got != 1 {
		t.Fatalf("TotalRequests = %d", got)
	}
}

func TestMiddlewareKeepsValidInboundID(t *testing.T) {
	var buf bytes.Buffer
	m := NewMiddleware(testLogger(&buf), nil)
	inbound := uuid.NewString()

	tests := []struct {
		name   string
		header string
		keep   bool
	}{
		{"valid uuid", inbound, true},
		{"garbage", "not-an-id", false},
		{"missing", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = GetRequestID(r.Context())
			}))
			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			if tt.header != "" {
				req.Header.Set(RequestIDHeader, tt.header)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)
			if (got == tt.header) != tt.keep {
				t.Fatalf("id %q, header %q, keep %v", got, tt.header, tt.keep)
			}
		})
	}
}

func TestServerErrorsCounted(t *testing.T) {
	var buf bytes.Buffer
	m := NewMiddleware(testLogger(&buf), nil)
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if got := m.GetMetrics().ServerErrors; got != 1 {
		t.Fatalf("ServerErrors = %d", got)
	}
}
