package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"pfm/internal/core"
)

func (r *SQLiteRepository) CreateGroup(ctx context.Context, g core.Group) error {
	err := r.queries.CreateGroup(ctx, Group{
		ID:        g.ID,
		Name:      g.Name,
		CreatedBy: g.CreatedBy,
		CreatedAt: g.CreatedAt.UTC().Format(timeLayout),
	})
	if err != nil {
		return fmt.Errorf("create group: %w", err)
	}
	slog.InfoContext(ctx, "Group saved to SQLite", "group_id", g.ID, "created_by", g.CreatedBy)
	return nil
}

func (r *SQLiteRepository) GetGroup(ctx context.Context, id string) (core.Group, error) {
	g, err := r.queries.GetGroup(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Group{}, fmt.Errorf("group %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Group{}, fmt.Errorf("get group: %w", err)
	}
	return groupFromRow(g), nil
}

func (r *SQLiteRepository) ListGroupsForUser(ctx context.Context, userID string) ([]core.Group, error) {
	rows, err := r.queries.ListGroupsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list groups for user: %w", err)
	}
	return groupsFromRows(rows), nil
}

func (r *SQLiteRepository) ListGroups(ctx context.Context) ([]core.Group, error) {
	rows, err := r.queries.ListGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	return groupsFromRows(rows), nil
}

// DeleteGroup removes the group together with its members, invitations and
// records in one transaction.
func (r *SQLiteRepository) DeleteGroup(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete group: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	if err := q.DeleteGroupTransactions(ctx, id); err != nil {
		return fmt.Errorf("delete group transactions: %w", err)
	}
	if err := q.DeleteGroupInvitations(ctx, id); err != nil {
		return fmt.Errorf("delete group invitations: %w", err)
	}
	if err := q.DeleteGroupMembers(ctx, id); err != nil {
		return fmt.Errorf("delete group members: %w", err)
	}
	n, err := q.DeleteGroup(ctx, id)
	if err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("group %s: %w", id, core.ErrNotFound)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete group: %w", err)
	}

	slog.InfoContext(ctx, "Group deleted from SQLite", "group_id", id)
	return nil
}

func (r *SQLiteRepository) AddMember(ctx context.Context, m core.Member) error {
	err := r.queries.AddMember(ctx, GroupMember{
		GroupID:  m.GroupID,
		UserID:   m.UserID,
		Email:    m.Email,
		JoinedAt: m.JoinedAt.UTC().Format(timeLayout),
	})
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("user %s in group %s: %w", m.UserID, m.GroupID, core.ErrAlreadyMember)
		}
		return fmt.Errorf("add member: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) RemoveMember(ctx context.Context, groupID, userID string) error {
	n, err := r.queries.RemoveMember(ctx, groupID, userID)
	if err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("member %s of group %s: %w", userID, groupID, core.ErrNotFound)
	}
	return nil
}

func (r *SQLiteRepository) ListMembers(ctx context.Context, groupID string) ([]core.Member, error) {
	rows, err := r.queries.ListMembers(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	members := make([]core.Member, 0, len(rows))
	for _, m := range rows {
		members = append(members, core.Member{
			GroupID:  m.GroupID,
			UserID:   m.UserID,
			Email:    m.Email,
			JoinedAt: parseTime(m.JoinedAt),
		})
	}
	return members, nil
}

func (r *SQLiteRepository) IsMember(ctx context.Context, groupID, userID string) (bool, error) {
	n, err := r.queries.CountMember(ctx, groupID, userID)
	if err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) CreateInvitation(ctx context.Context, inv core.Invitation) error {
	err := r.queries.CreateInvitation(ctx, GroupInvitation{
		ID:           inv.ID,
		GroupID:      inv.GroupID,
		GroupName:    inv.GroupName,
		InvitedEmail: inv.InvitedEmail,
		InvitedBy:    inv.InvitedBy,
		Status:       string(inv.Status),
		CreatedAt:    inv.CreatedAt.UTC().Format(timeLayout),
	})
	if err != nil {
		return fmt.Errorf("create invitation: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetInvitation(ctx context.Context, id string) (core.Invitation, error) {
	row, err := r.queries.GetInvitation(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Invitation{}, fmt.Errorf("invitation %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Invitation{}, fmt.Errorf("get invitation: %w", err)
	}
	return invitationFromRow(row), nil
}

func (r *SQLiteRepository) ListPendingInvitations(ctx context.Context, email string) ([]core.Invitation, error) {
	rows, err := r.queries.ListPendingInvitations(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("list pending invitations: %w", err)
	}
	out := make([]core.Invitation, 0, len(rows))
	for _, row := range rows {
		out = append(out, invitationFromRow(row))
	}
	return out, nil
}

func (r *SQLiteRepository) SetInvitationStatus(ctx context.Context, id string, status core.InvitationStatus) error {
	n, err := r.queries.SetInvitationStatus(ctx, id, string(status))
	if err != nil {
		return fmt.Errorf("set invitation status: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("invitation %s: %w", id, core.ErrNotFound)
	}
	return nil
}

// SaveArchive implements ports.ArchiveStore. A second archive of the same
// scope and period replaces the first.
func (r *SQLiteRepository) SaveArchive(ctx context.Context, a core.Archive) error {
	err := r.queries.UpsertArchive(ctx, AnalyticsArchive{
		ScopeKey:   a.ScopeKey,
		Period:     a.Period,
		Snapshot:   string(a.Snapshot),
		ArchivedAt: a.ArchivedAt.UTC().Format(timeLayout),
	})
	if err != nil {
		return fmt.Errorf("save archive: %w", err)
	}
	slog.InfoContext(ctx, "Analytics archived", "scope", a.ScopeKey, "period", a.Period)
	return nil
}

func (r *SQLiteRepository) ListArchives(ctx context.Context, scopeKey string) ([]core.Archive, error) {
	rows, err := r.queries.ListArchives(ctx, scopeKey)
	if err != nil {
		return nil, fmt.Errorf("list archives: %w", err)
	}
	out := make([]core.Archive, 0, len(rows))
	for _, row := range rows {
		out = append(out, core.Archive{
			ScopeKey:   row.ScopeKey,
			Period:     row.Period,
			Snapshot:   []byte(row.Snapshot),
			ArchivedAt: parseTime(row.ArchivedAt),
		})
	}
	return out, nil
}

func groupFromRow(g Group) core.Group {
	return core.Group{ID: g.ID, Name: g.Name, CreatedBy: g.CreatedBy, CreatedAt: parseTime(g.CreatedAt)}
}

func groupsFromRows(rows []Group) []core.Group {
	out := make([]core.Group, 0, len(rows))
	for _, g := range rows {
		out = append(out, groupFromRow(g))
	}
	return out
}

func invitationFromRow(row GroupInvitation) core.Invitation {
	return core.Invitation{
		ID:           row.ID,
		GroupID:      row.GroupID,
		GroupName:    row.GroupName,
		InvitedEmail: row.InvitedEmail,
		InvitedBy:    row.InvitedBy,
		Status:       core.InvitationStatus(row.Status),
		CreatedAt:    parseTime(row.CreatedAt),
	}
}
