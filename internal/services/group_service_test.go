package services

import (
	"context"
	"errors"
	"testing"

	"pfm/internal/core"
)

func TestGroupLifecycle(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	if _, err := f.groups.Create(ctx, alice, "   "); !errors.Is(err, core.ErrEmptyGroupName) {
		t.Fatalf("blank name err = %v", err)
	}

	g, err := f.groups.Create(ctx, alice, " Flat 4B ")
	if err != nil {
		t.Fatal(err)
	}
	if g.Name != "Flat 4B" || g.CreatedBy != "alice" {
		t.Fatalf("group = %+v", g)
	}

	// bob is not a member yet; the negative answer gets cached
	if ok, _ := f.groups.IsMember(ctx, g.ID, "bob"); ok {
		t.Fatal("bob should not be a member")
	}

	inv, err := f.groups.Invite(ctx, alice, g.ID, "BOB@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if inv.InvitedEmail != "bob@example.com" || inv.GroupName != "Flat 4B" || inv.Status != core.InvitationPending {
		t.Fatalf("invitation = %+v", inv)
	}
	if _, err := f.groups.Invite(ctx, alice, g.ID, "bob@example.com"); !errors.Is(err, core.ErrInvitationPending) {
		t.Fatalf("duplicate invite err = %v", err)
	}
	if _, err := f.groups.Invite(ctx, bob, g.ID, "carol@example.com"); !errors.Is(err, core.ErrForbidden) {
		t.Fatalf("non-member invite err = %v", err)
	}

	pending, err := f.groups.PendingInvitations(ctx, bob)
	if err != nil || len(pending) != 1 {
		t.Fatalf("pending = %v, %v", pending, err)
	}
	if _, err := f.groups.Accept(ctx, alice, inv.ID); !errors.Is(err, core.ErrForbidden) {
		t.Fatalf("accept by wrong user err = %v", err)
	}
	if _, err := f.groups.Accept(ctx, bob, inv.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.groups.Decline(ctx, bob, inv.ID); !errors.Is(err, core.ErrInvitationClosed) {
		t.Fatalf("decline after accept err = %v", err)
	}

	// accept invalidated the cached "false"
	if ok, err := f.groups.IsMember(ctx, g.ID, "bob"); err != nil || !ok {
		t.Fatalf("bob membership = %v, %v", ok, err)
	}
	if _, err := f.groups.Invite(ctx, alice, g.ID, "bob@example.com"); !errors.Is(err, core.ErrAlreadyMember) {
		t.Fatalf("invite member err = %v", err)
	}

	members, err := f.groups.Members(ctx, bob, g.ID)
	if err != nil || len(members) != 2 {
		t.Fatalf("members = %v, %v", members, err)
	}

	if err := f.groups.Delete(ctx, bob, g.ID); !errors.Is(err, core.ErrForbidden) {
		t.Fatalf("delete by non-creator err = %v", err)
	}
	if err := f.groups.Leave(ctx, bob, g.ID); err != nil {
		t.Fatal(err)
	}
	if ok, _ := f.groups.IsMember(ctx, g.ID, "bob"); ok {
		t.Fatal("bob should have left")
	}
}

func TestDeleteGroupCascades(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	g, err := f.groups.Create(ctx, alice, "Trip")
	if err != nil {
		t.Fatal(err)
	}
	tx, err := f.txs.Create(ctx, alice, core.GroupScope(g.ID), core.RawTransaction{Amount: amount("40")})
	if err != nil {
		t.Fatal(err)
	}

	if err := f.groups.Delete(ctx, alice, g.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.store.GetTransaction(ctx, tx.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("group record survived: %v", err)
	}
	if ok, _ := f.groups.IsMember(ctx, g.ID, "alice"); ok {
		t.Fatal("membership cache not invalidated")
	}
	groups, err := f.groups.List(ctx, alice)
	if err != nil || len(groups) != 0 {
		t.Fatalf("groups = %v, %v", groups, err)
	}
}

func TestDeclineInvitation(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	g, _ := f.groups.Create(ctx, alice, "Book club")
	inv, err := f.groups.Invite(ctx, alice, g.ID, bob.Email)
	if err != nil {
		t.Fatal(err)
	}
	declined, err := f.groups.Decline(ctx, bob, inv.ID)
	if err != nil || declined.Status != core.InvitationDeclined {
		t.Fatalf("decline = %+v, %v", declined, err)
	}
	if ok, _ := f.groups.IsMember(ctx, g.ID, "bob"); ok {
		t.Fatal("declined invitation must not add a member")
	}
}
