package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pfm/internal/core"
	applog "pfm/internal/log"
	"pfm/internal/parser"
	"pfm/internal/services"
	"pfm/internal/storage/memory"
)

type stubParser struct{ err error }

func (p stubParser) Parse(context.Context, string) (*parser.Result, error) {
	if p.err != nil {
		return nil, p.err
	}
	item, category := "coffee", "food"
	return &parser.Result{
		Reply:    "Saved 1 expense",
		Expenses: []parser.ParsedExpense{{Item: &item, Category: &category}},
	}, nil
}

func quietLogger() *applog.Logger {
	return applog.New(applog.Config{Handler: slog.NewTextHandler(io.Discard, nil)})
}

func newTestServer(t *testing.T, p services.TextParser) *Server {
	t.Helper()
	store := memory.New()
	logger := quietLogger()
	groups := services.NewGroupService(store, time.Minute, logger)
	srv := NewServer(Config{Addr: ":0", RateLimitPerMinute: 1000}, Services{
		Transactions: services.NewTransactionService(store, groups, nil, p, logger),
		Analytics:    services.NewAnalyticsService(store, groups, services.AnalyticsConfig{}, logger),
		Groups:       groups,
		Store:        store,
	}, logger)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func do(t *testing.T, srv *Server, method, path, user, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if user != "" {
		req.Header.Set(HeaderUserID, user)
		req.Header.Set(HeaderUserEmail, user+"@example.com")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t, nil)
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(t, srv, http.MethodGet, path, "", "")
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d body=%s", path, rr.Code, rr.Body)
		}
		if rr.Header().Get("X-Request-ID") == "" {
			t.Fatalf("%s missing request id", path)
		}
		if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
			t.Fatalf("%s missing security headers", path)
		}
	}
}

func TestMissingViewer(t *testing.T) {
	srv := newTestServer(t, nil)
	rr := do(t, srv, http.MethodGet, "/api/analytics", "", "")
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d, want 401", rr.Code)
	}
}

func TestTransactionLifecycle(t *testing.T) {
	srv := newTestServer(t, nil)

	rr := do(t, srv, http.MethodPost, "/api/transactions", "alice",
		`{"amount":"12,50","item":"lunch","category":"Food","paid_by":"Alice"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body)
	}
	created := decode[core.Transaction](t, rr)
	if created.ID == "" || created.Amount.String() != "12.5" || created.OwnerRef != "alice" {
		t.Fatalf("created = %+v", created)
	}

	rr = do(t, srv, http.MethodPut, "/api/transactions/"+created.ID, "alice", `{"amount":20}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("update status=%d body=%s", rr.Code, rr.Body)
	}
	if got := decode[core.Transaction](t, rr); got.Amount.String() != "20" || got.Item != "lunch" {
		t.Fatalf("updated = %+v", got)
	}

	rr = do(t, srv, http.MethodGet, "/api/transactions", "alice", "")
	list := decode[struct {
		Transactions []core.Transaction `json:"transactions"`
	}](t, rr)
	if len(list.Transactions) != 1 {
		t.Fatalf("list = %+v", list)
	}

	rr = do(t, srv, http.MethodGet, "/api/analytics?range=7", "alice", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("analytics status=%d body=%s", rr.Code, rr.Body)
	}
	snap := decode[map[string]any](t, rr)
	if snap["total_expenses"] != float64(20) || snap["range_days"] != float64(7) {
		t.Fatalf("snapshot = %v", snap)
	}

	rr = do(t, srv, http.MethodDelete, "/api/transactions/"+created.ID, "bob", "")
	if rr.Code != http.StatusForbidden {
		t.Fatalf("foreign delete status=%d, want 403", rr.Code)
	}
	rr = do(t, srv, http.MethodDelete, "/api/transactions/"+created.ID, "alice", "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", rr.Code)
	}
	rr = do(t, srv, http.MethodDelete, "/api/transactions/"+created.ID, "alice", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("second delete status=%d, want 404", rr.Code)
	}
}

func TestCreateTransactionValidation(t *testing.T) {
	srv := newTestServer(t, nil)
	tests := []struct {
		name string
		body string
		want int
	}{
		{"garbage amount", `{"amount":"abc","item":"x"}`, http.StatusUnprocessableEntity},
		{"bad date", `{"item":"x","date":"2025-13-01"}`, http.StatusBadRequest},
		{"unknown field", `{"item":"x","colour":"red"}`, http.StatusBadRequest},
		{"empty body", ``, http.StatusBadRequest},
		{"item too long", fmt.Sprintf(`{"item":%q}`, strings.Repeat("a", 201)), http.StatusUnprocessableEntity},
		{"not a member", `{"item":"x","group_id":"g-1"}`, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, http.MethodPost, "/api/transactions", "alice", tt.body)
			if rr.Code != tt.want {
				t.Fatalf("status=%d, want %d body=%s", rr.Code, tt.want, rr.Body)
			}
			if body := decode[map[string]string](t, rr); body["error"] == "" {
				t.Fatal("missing error message")
			}
		})
	}
}

func TestAnalyticsRangeValidation(t *testing.T) {
	srv := newTestServer(t, nil)
	for _, q := range []string{"range=14", "range=-1", "range=abc"} {
		rr := do(t, srv, http.MethodGet, "/api/analytics?"+q, "alice", "")
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("%s status=%d, want 400", q, rr.Code)
		}
	}
}

func TestChat(t *testing.T) {
	srv := newTestServer(t, stubParser{})
	rr := do(t, srv, http.MethodPost, "/api/chat", "alice", `{"text":"coffee 3"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body)
	}
	res := decode[services.ChatResult](t, rr)
	if res.Reply == "" || len(res.Transactions) != 1 || res.Transactions[0].Payer != "alice@example.com" {
		t.Fatalf("result = %+v", res)
	}

	down := newTestServer(t, stubParser{err: fmt.Errorf("%w: connection refused", parser.ErrUnavailable)})
	rr = do(t, down, http.MethodPost, "/api/chat", "alice", `{"text":"coffee 3"}`)
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("parser down status=%d, want 502", rr.Code)
	}
}

func TestGroupFlow(t *testing.T) {
	srv := newTestServer(t, nil)

	rr := do(t, srv, http.MethodPost, "/api/groups", "alice", `{"name":"Flat"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create group status=%d body=%s", rr.Code, rr.Body)
	}
	group := decode[core.Group](t, rr)

	rr = do(t, srv, http.MethodPost, "/api/groups/"+group.ID+"/invitations", "alice", `{"email":"bob@example.com"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("invite status=%d body=%s", rr.Code, rr.Body)
	}
	rr = do(t, srv, http.MethodPost, "/api/groups/"+group.ID+"/invitations", "alice", `{"email":"bob@example.com"}`)
	if rr.Code != http.StatusConflict {
		t.Fatalf("duplicate invite status=%d, want 409", rr.Code)
	}

	rr = do(t, srv, http.MethodGet, "/api/invitations", "bob", "")
	pending := decode[struct {
		Invitations []core.Invitation `json:"invitations"`
	}](t, rr)
	if len(pending.Invitations) != 1 {
		t.Fatalf("pending = %+v", pending)
	}
	rr = do(t, srv, http.MethodPost, "/api/invitations/"+pending.Invitations[0].ID+"/accept", "bob", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("accept status=%d body=%s", rr.Code, rr.Body)
	}

	rr = do(t, srv, http.MethodGet, "/api/groups/"+group.ID+"/members", "bob", "")
	members := decode[struct {
		Members []core.Member `json:"members"`
	}](t, rr)
	if len(members.Members) != 2 {
		t.Fatalf("members = %+v", members)
	}

	rr = do(t, srv, http.MethodDelete, "/api/groups/"+group.ID, "bob", "")
	if rr.Code != http.StatusForbidden {
		t.Fatalf("non-creator delete status=%d, want 403", rr.Code)
	}
	rr = do(t, srv, http.MethodDelete, "/api/groups/"+group.ID+"/members/me", "bob", "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("leave status=%d body=%s", rr.Code, rr.Body)
	}
	rr = do(t, srv, http.MethodGet, "/api/analytics?group_id="+group.ID, "bob", "")
	if rr.Code != http.StatusForbidden {
		t.Fatalf("analytics after leave status=%d, want 403", rr.Code)
	}
}

func TestSuspiciousRequestBlocked(t *testing.T) {
	srv := newTestServer(t, nil)
	rr := do(t, srv, http.MethodGet, "/api/transactions/../../.env", "alice", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status=%d, want 404", rr.Code)
	}
}

func TestWriteRateLimit(t *testing.T) {
	store := memory.New()
	logger := quietLogger()
	groups := services.NewGroupService(store, time.Minute, logger)
	srv := NewServer(Config{RateLimitPerMinute: 2}, Services{
		Transactions: services.NewTransactionService(store, groups, nil, nil, logger),
		Groups:       groups,
		Store:        store,
	}, logger)
	defer srv.Shutdown(context.Background())

	for i := 0; i < 2; i++ {
		if rr := do(t, srv, http.MethodPost, "/api/transactions", "alice", `{"item":"x"}`); rr.Code != http.StatusCreated {
			t.Fatalf("request %d status=%d", i, rr.Code)
		}
	}
	rr := do(t, srv, http.MethodPost, "/api/transactions", "alice", `{"item":"x"}`)
	if rr.Code != http.StatusTooManyRequests || rr.Header().Get("Retry-After") == "" {
		t.Fatalf("status=%d retry-after=%q", rr.Code, rr.Header().Get("Retry-After"))
	}
	// reads are not limited
	if rr := do(t, srv, http.MethodGet, "/api/transactions", "alice", ""); rr.Code != http.StatusOK {
		t.Fatalf("read status=%d", rr.Code)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("x: %w", core.ErrNotFound), http.StatusNotFound},
		{core.ErrForbidden, http.StatusForbidden},
		{core.ErrInvitationClosed, http.StatusConflict},
		{services.ErrSuperseded, http.StatusConflict},
		{core.ErrEmptyItem, http.StatusUnprocessableEntity},
		{core.ErrInvalidScope, http.StatusBadRequest},
		{services.ErrParserUnavailable, http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := StatusFor(tt.err); got != tt.want {
			t.Errorf("StatusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
