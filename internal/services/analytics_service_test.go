package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"pfm/internal/core"
)

type fetchFunc func(ctx context.Context, scope core.Scope, start, end core.Date) ([]core.Transaction, error)

func (f fetchFunc) FetchTransactions(ctx context.Context, scope core.Scope, start, end core.Date) ([]core.Transaction, error) {
	return f(ctx, scope, start, end)
}

type allowAll struct{}

func (allowAll) IsMember(context.Context, string, string) (bool, error) { return true, nil }

func newAnalytics(fetch fetchFunc, cfg AnalyticsConfig) *AnalyticsService {
	s := NewAnalyticsService(fetch, allowAll{}, cfg, nil)
	s.now = func() time.Time { return fixedNow }
	return s
}

func TestSnapshotWindowAndTotals(t *testing.T) {
	var gotStart, gotEnd core.Date
	s := newAnalytics(func(_ context.Context, scope core.Scope, start, end core.Date) ([]core.Transaction, error) {
		gotStart, gotEnd = start, end
		return []core.Transaction{
			{ID: "1", Amount: *amount("100"), Category: "food", Payer: "Alice", Date: end, OwnerRef: "alice"},
			{ID: "2", Amount: *amount("-1000"), Category: "income", Payer: "Alice", Date: end, OwnerRef: "alice"},
		}, nil
	}, AnalyticsConfig{})

	snap, err := s.Snapshot(context.Background(), alice, alice.ScopeFor(""), 0)
	if err != nil {
		t.Fatal(err)
	}
	if gotStart.String() != "2025-02-13" || gotEnd.String() != "2025-03-15" {
		t.Fatalf("window = [%s, %s]", gotStart, gotEnd)
	}
	if snap.RangeDays != 30 || snap.FetchFailed || snap.UsesFallbackData {
		t.Fatalf("snapshot flags = %+v", snap)
	}
	if !snap.TotalExpenses.Equal(*amount("100")) || snap.SavingsRate != 90 {
		t.Fatalf("expenses = %s, savings = %d", snap.TotalExpenses, snap.SavingsRate)
	}
}

func TestSnapshotFetchFailure(t *testing.T) {
	failing := func(context.Context, core.Scope, core.Date, core.Date) ([]core.Transaction, error) {
		return nil, errors.New("connection reset")
	}

	tests := []struct {
		name         string
		demo         bool
		wantFallback bool
		wantRecords  bool
	}{
		{"empty fallback", false, false, false},
		{"demo fallback", true, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newAnalytics(failing, AnalyticsConfig{DemoFallback: tt.demo})
			snap, err := s.Snapshot(context.Background(), alice, alice.ScopeFor(""), 30)
			if err != nil {
				t.Fatalf("fetch failure must not surface: %v", err)
			}
			if !snap.FetchFailed || snap.UsesFallbackData != tt.wantFallback {
				t.Fatalf("flags = failed %v fallback %v", snap.FetchFailed, snap.UsesFallbackData)
			}
			if hasRecords := snap.ExpenseCount > 0; hasRecords != tt.wantRecords {
				t.Fatalf("expense count = %d", snap.ExpenseCount)
			}
		})
	}
}

func TestSnapshotForbiddenScope(t *testing.T) {
	s := newAnalytics(func(context.Context, core.Scope, core.Date, core.Date) ([]core.Transaction, error) {
		t.Fatal("fetch must not run")
		return nil, nil
	}, AnalyticsConfig{})
	if _, err := s.Snapshot(context.Background(), bob, core.PersonalScope("alice"), 30); !errors.Is(err, core.ErrForbidden) {
		t.Fatalf("err = %v", err)
	}
}

func TestSnapshotLastRequestWins(t *testing.T) {
	started := make(chan struct{})
	calls := 0
	s := newAnalytics(func(ctx context.Context, _ core.Scope, _, _ core.Date) ([]core.Transaction, error) {
		calls++
		if calls == 1 {
			close(started)
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return nil, nil
	}, AnalyticsConfig{FetchTimeout: 5 * time.Second})

	firstErr := make(chan error, 1)
	go func() {
		_, err := s.Snapshot(context.Background(), alice, alice.ScopeFor(""), 7)
		firstErr <- err
	}()
	<-started

	if _, err := s.Snapshot(context.Background(), alice, alice.ScopeFor(""), 30); err != nil {
		t.Fatalf("latest request failed: %v", err)
	}
	select {
	case err := <-firstErr:
		if !errors.Is(err, ErrSuperseded) {
			t.Fatalf("first request err = %v, want ErrSuperseded", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("first request was not cancelled")
	}
}

func TestSnapshotCallerCancellation(t *testing.T) {
	s := newAnalytics(func(ctx context.Context, _ core.Scope, _, _ core.Date) ([]core.Transaction, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}, AnalyticsConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Snapshot(ctx, alice, alice.ScopeFor(""), 30); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}
