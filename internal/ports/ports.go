package ports

import (
	"context"

	"pfm/internal/core"
)

// Ports for outbound adapters.
type (
	// TransactionFetcher is the analytics query: every record of scope dated
	// within [start, end], newest first. Defaults for missing fields are
	// already applied.
	TransactionFetcher interface {
		FetchTransactions(ctx context.Context, scope core.Scope, start, end core.Date) ([]core.Transaction, error)
	}

	TransactionWriter interface {
		Append(ctx context.Context, t core.Transaction) (core.Transaction, error)
	}

	// TransactionEditor backs the records table.
	TransactionEditor interface {
		GetTransaction(ctx context.Context, id string) (core.Transaction, error)
		UpdateTransaction(ctx context.Context, t core.Transaction) error
		DeleteTransaction(ctx context.Context, id string) error
	}

	// TransactionLister returns the latest records of scope, newest first.
	TransactionLister interface {
		ListRecent(ctx context.Context, scope core.Scope, limit int) ([]core.Transaction, error)
	}

	GroupStore interface {
		CreateGroup(ctx context.Context, g core.Group) error
		GetGroup(ctx context.Context, id string) (core.Group, error)
		ListGroupsForUser(ctx context.Context, userID string) ([]core.Group, error)
		ListGroups(ctx context.Context) ([]core.Group, error)
		// DeleteGroup removes the group with its members, invitations and records.
		DeleteGroup(ctx context.Context, id string) error

		AddMember(ctx context.Context, m core.Member) error
		RemoveMember(ctx context.Context, groupID, userID string) error
		ListMembers(ctx context.Context, groupID string) ([]core.Member, error)
		IsMember(ctx context.Context, groupID, userID string) (bool, error)

		CreateInvitation(ctx context.Context, inv core.Invitation) error
		GetInvitation(ctx context.Context, id string) (core.Invitation, error)
		ListPendingInvitations(ctx context.Context, email string) ([]core.Invitation, error)
		SetInvitationStatus(ctx context.Context, id string, status core.InvitationStatus) error
	}

	// OwnerLister enumerates users holding personal records.
	OwnerLister interface {
		ListOwners(ctx context.Context) ([]string, error)
	}

	ArchiveStore interface {
		SaveArchive(ctx context.Context, a core.Archive) error
		ListArchives(ctx context.Context, scopeKey string) ([]core.Archive, error)
	}
)
