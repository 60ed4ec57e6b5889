package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"pfm/internal/core"
)

func TestStoreFetchFiltersAndOrders(t *testing.T) {
	ctx := context.Background()
	s := New()
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, tx := range []core.Transaction{
		{ID: "a", Amount: decimal.NewFromInt(1), Date: core.NewDate(2025, 3, 2), OwnerRef: "u1"},
		{ID: "b", Amount: decimal.NewFromInt(2), Date: core.NewDate(2025, 3, 9), OwnerRef: "u1"},
		{ID: "c", Amount: decimal.NewFromInt(3), Date: core.NewDate(2025, 3, 9), OwnerRef: "u1", GroupRef: "g1"},
		{ID: "d", Amount: decimal.NewFromInt(4), Date: core.NewDate(2025, 4, 9), OwnerRef: "u1"},
	} {
		tx.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if _, err := s.Append(ctx, tx); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	got, err := s.FetchTransactions(ctx, core.PersonalScope("u1"), core.NewDate(2025, 3, 1), core.NewDate(2025, 3, 31))
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(got) != 2 || got[0].ID != "b" || got[1].ID != "a" {
		t.Fatalf("expected [b a], got %+v", got)
	}

	if _, err := s.FetchTransactions(ctx, core.Scope{}, core.NewDate(2025, 3, 1), core.NewDate(2025, 3, 31)); !errors.Is(err, core.ErrInvalidScope) {
		t.Fatalf("expected ErrInvalidScope, got %v", err)
	}

	recent, _ := s.ListRecent(ctx, core.PersonalScope("u1"), 2)
	if len(recent) != 2 || recent[0].ID != "d" {
		t.Fatalf("expected newest first, got %+v", recent)
	}

	owners, _ := s.ListOwners(ctx)
	if len(owners) != 1 || owners[0] != "u1" {
		t.Fatalf("unexpected owners %v", owners)
	}
}

func TestStoreUpdateKeepsOwnership(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.Append(ctx, core.Transaction{ID: "a", OwnerRef: "u1", GroupRef: "g1", Category: "food"})

	if err := s.UpdateTransaction(ctx, core.Transaction{ID: "a", Category: "rent"}); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ := s.GetTransaction(ctx, "a")
	if got.Category != "rent" || got.OwnerRef != "u1" || got.GroupRef != "g1" {
		t.Fatalf("unexpected record %+v", got)
	}
	if err := s.DeleteTransaction(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreDeleteGroupCascades(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.CreateGroup(ctx, core.Group{ID: "g1", Name: "Trip"})
	s.AddMember(ctx, core.Member{GroupID: "g1", UserID: "u1"})
	s.CreateInvitation(ctx, core.Invitation{ID: "i1", GroupID: "g1", InvitedEmail: "x@y.z", Status: core.InvitationPending})
	s.Append(ctx, core.Transaction{ID: "a", OwnerRef: "u1", GroupRef: "g1"})
	s.Append(ctx, core.Transaction{ID: "b", OwnerRef: "u1"})

	if err := s.AddMember(ctx, core.Member{GroupID: "g1", UserID: "u1"}); !errors.Is(err, core.ErrAlreadyMember) {
		t.Fatalf("expected ErrAlreadyMember, got %v", err)
	}
	if err := s.DeleteGroup(ctx, "g1"); err != nil {
		t.Fatalf("delete group: %v", err)
	}
	if ok, _ := s.IsMember(ctx, "g1", "u1"); ok {
		t.Fatalf("membership survived group deletion")
	}
	if invs, _ := s.ListPendingInvitations(ctx, "x@y.z"); len(invs) != 0 {
		t.Fatalf("invitations survived group deletion")
	}
	if _, err := s.GetTransaction(ctx, "a"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("group record survived group deletion")
	}
	if _, err := s.GetTransaction(ctx, "b"); err != nil {
		t.Fatalf("personal record must survive: %v", err)
	}
}

func TestNewFromFileSeeds(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "seed.txt")
	content := "# date;amount;item;category;payer\n" +
		"2025-03-01;12,50;Lunch;Food;Ana\n" +
		"\n" +
		"2025-03-02;-1000;Salary;income\n" +
		"bad-date;1;x;y\n" +
		"2025-03-03;nope;x;y\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	s := NewFromFile(path, "u1")
	got, err := s.FetchTransactions(context.Background(), core.PersonalScope("u1"), core.NewDate(2025, 1, 1), core.NewDate(2025, 12, 31))
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 seeded records, got %+v", got)
	}
	if got[0].Payer != core.UnknownPayer || got[1].Payer != "Ana" || !got[1].Amount.Equal(decimal.RequireFromString("12.5")) {
		t.Fatalf("unexpected seeded records %+v", got)
	}

	if empty := NewFromFile(filepath.Join(dir, "missing.txt"), "u1"); len(empty.txs) != 0 {
		t.Fatalf("missing seed file must give an empty store")
	}
}
