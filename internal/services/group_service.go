package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"pfm/internal/cache"
	"pfm/internal/core"
	applog "pfm/internal/log"
	"pfm/internal/ports"
)

const membershipCacheSize = 4096

// GroupService manages groups, members and invitations. Membership answers
// are cached and concurrent lookups of the same pair share one store read.
type GroupService struct {
	store      ports.GroupStore
	membership *cache.LoadingCache[bool]
	logger     *applog.Logger
	now        func() time.Time
}

func NewGroupService(store ports.GroupStore, membershipTTL time.Duration, logger *applog.Logger) *GroupService {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	if membershipTTL <= 0 {
		membershipTTL = time.Minute
	}
	return &GroupService{
		store:      store,
		membership: cache.NewLoadingCache[bool](membershipCacheSize, membershipTTL),
		logger:     logger.WithComponent(applog.ComponentGroups),
		now:        time.Now,
	}
}

// MembershipCache exposes the cache for periodic cleanup.
func (s *GroupService) MembershipCache() cache.Cleaner {
	return s.membership
}

func memberKey(groupID, userID string) string {
	return groupID + "|" + userID
}

// IsMember implements MembershipChecker.
func (s *GroupService) IsMember(ctx context.Context, groupID, userID string) (bool, error) {
	return s.membership.Get(ctx, memberKey(groupID, userID), func(ctx context.Context) (bool, error) {
		return s.store.IsMember(ctx, groupID, userID)
	})
}

func (s *GroupService) requireMember(ctx context.Context, viewer Viewer, groupID string) error {
	return authorize(ctx, s, viewer, core.GroupScope(groupID))
}

// Create makes a group with the viewer as its first member.
func (s *GroupService) Create(ctx context.Context, viewer Viewer, name string) (core.Group, error) {
	if err := viewer.Validate(); err != nil {
		return core.Group{}, err
	}
	now := s.now().UTC()
	g := core.Group{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(name),
		CreatedBy: viewer.UserID,
		CreatedAt: now,
	}
	if err := g.Validate(); err != nil {
		return core.Group{}, err
	}
	if err := s.store.CreateGroup(ctx, g); err != nil {
		return core.Group{}, fmt.Errorf("create group: %w", err)
	}
	if err := s.store.AddMember(ctx, core.Member{GroupID: g.ID, UserID: viewer.UserID, Email: normalizedOrEmpty(viewer.Email), JoinedAt: now}); err != nil {
		return core.Group{}, fmt.Errorf("add creator: %w", err)
	}
	s.membership.Invalidate(memberKey(g.ID, viewer.UserID))

	s.logger.InfoContext(ctx, "Group created", applog.FieldGroupID, g.ID, applog.FieldUserID, viewer.UserID)
	return g, nil
}

// List returns the viewer's groups, oldest first.
func (s *GroupService) List(ctx context.Context, viewer Viewer) ([]core.Group, error) {
	if err := viewer.Validate(); err != nil {
		return nil, err
	}
	groups, err := s.store.ListGroupsForUser(ctx, viewer.UserID)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	if groups == nil {
		groups = []core.Group{}
	}
	return groups, nil
}

func (s *GroupService) Members(ctx context.Context, viewer Viewer, groupID string) ([]core.Member, error) {
	if err := s.requireMember(ctx, viewer, groupID); err != nil {
		return nil, err
	}
	members, err := s.store.ListMembers(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	if members == nil {
		members = []core.Member{}
	}
	return members, nil
}

// Invite records a pending invitation of email into groupID.
func (s *GroupService) Invite(ctx context.Context, viewer Viewer, groupID, email string) (core.Invitation, error) {
	if err := s.requireMember(ctx, viewer, groupID); err != nil {
		return core.Invitation{}, err
	}
	email, err := core.NormalizeEmail(email)
	if err != nil {
		return core.Invitation{}, err
	}

	g, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return core.Invitation{}, err
	}
	members, err := s.store.ListMembers(ctx, groupID)
	if err != nil {
		return core.Invitation{}, fmt.Errorf("list members: %w", err)
	}
	for _, m := range members {
		if m.Email == email {
			return core.Invitation{}, core.ErrAlreadyMember
		}
	}
	pending, err := s.store.ListPendingInvitations(ctx, email)
	if err != nil {
		return core.Invitation{}, fmt.Errorf("list invitations: %w", err)
	}
	for _, inv := range pending {
		if inv.GroupID == groupID {
			return core.Invitation{}, core.ErrInvitationPending
		}
	}

	inv := core.Invitation{
		ID:           uuid.NewString(),
		GroupID:      groupID,
		GroupName:    g.Name,
		InvitedEmail: email,
		InvitedBy:    viewer.UserID,
		Status:       core.InvitationPending,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.store.CreateInvitation(ctx, inv); err != nil {
		return core.Invitation{}, fmt.Errorf("create invitation: %w", err)
	}
	s.logger.InfoContext(ctx, "Invitation sent", applog.FieldGroupID, groupID, "invitation_id", inv.ID)
	return inv, nil
}

// PendingInvitations lists invitations addressed to the viewer's email.
func (s *GroupService) PendingInvitations(ctx context.Context, viewer Viewer) ([]core.Invitation, error) {
	email, err := core.NormalizeEmail(viewer.Email)
	if err != nil {
		return nil, err
	}
	invs, err := s.store.ListPendingInvitations(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	if invs == nil {
		invs = []core.Invitation{}
	}
	return invs, nil
}

// Accept joins the viewer to the invitation's group.
func (s *GroupService) Accept(ctx context.Context, viewer Viewer, invitationID string) (core.Invitation, error) {
	inv, err := s.respondable(ctx, viewer, invitationID)
	if err != nil {
		return core.Invitation{}, err
	}
	err = s.store.AddMember(ctx, core.Member{
		GroupID:  inv.GroupID,
		UserID:   viewer.UserID,
		Email:    inv.InvitedEmail,
		JoinedAt: s.now().UTC(),
	})
	if err != nil && !errors.Is(err, core.ErrAlreadyMember) {
		return core.Invitation{}, fmt.Errorf("add member: %w", err)
	}
	if err := s.store.SetInvitationStatus(ctx, inv.ID, core.InvitationAccepted); err != nil {
		return core.Invitation{}, fmt.Errorf("accept invitation: %w", err)
	}
	s.membership.Invalidate(memberKey(inv.GroupID, viewer.UserID))

	inv.Status = core.InvitationAccepted
	s.logger.InfoContext(ctx, "Invitation accepted", applog.FieldGroupID, inv.GroupID, applog.FieldUserID, viewer.UserID)
	return inv, nil
}

func (s *GroupService) Decline(ctx context.Context, viewer Viewer, invitationID string) (core.Invitation, error) {
	inv, err := s.respondable(ctx, viewer, invitationID)
	if err != nil {
		return core.Invitation{}, err
	}
	if err := s.store.SetInvitationStatus(ctx, inv.ID, core.InvitationDeclined); err != nil {
		return core.Invitation{}, fmt.Errorf("decline invitation: %w", err)
	}
	inv.Status = core.InvitationDeclined
	return inv, nil
}

// respondable loads a pending invitation addressed to the viewer.
func (s *GroupService) respondable(ctx context.Context, viewer Viewer, invitationID string) (core.Invitation, error) {
	if err := viewer.Validate(); err != nil {
		return core.Invitation{}, err
	}
	inv, err := s.store.GetInvitation(ctx, invitationID)
	if err != nil {
		return core.Invitation{}, err
	}
	if inv.InvitedEmail != normalizedOrEmpty(viewer.Email) {
		return core.Invitation{}, fmt.Errorf("invitation for another address: %w", core.ErrForbidden)
	}
	if inv.Status != core.InvitationPending {
		return core.Invitation{}, core.ErrInvitationClosed
	}
	return inv, nil
}

// Leave removes the viewer from groupID. Records stay with the group.
func (s *GroupService) Leave(ctx context.Context, viewer Viewer, groupID string) error {
	if err := s.requireMember(ctx, viewer, groupID); err != nil {
		return err
	}
	if err := s.store.RemoveMember(ctx, groupID, viewer.UserID); err != nil {
		return fmt.Errorf("leave group: %w", err)
	}
	s.membership.Invalidate(memberKey(groupID, viewer.UserID))
	s.logger.InfoContext(ctx, "Member left group", applog.FieldGroupID, groupID, applog.FieldUserID, viewer.UserID)
	return nil
}

// Delete removes the group and everything in it. Only its creator may.
func (s *GroupService) Delete(ctx context.Context, viewer Viewer, groupID string) error {
	if err := viewer.Validate(); err != nil {
		return err
	}
	g, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if g.CreatedBy != viewer.UserID {
		return fmt.Errorf("only the creator may delete group %s: %w", groupID, core.ErrForbidden)
	}
	if err := s.store.DeleteGroup(ctx, groupID); err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	s.membership.InvalidatePrefix(groupID + "|")
	s.logger.InfoContext(ctx, "Group deleted", applog.FieldGroupID, groupID, applog.FieldUserID, viewer.UserID)
	return nil
}

func normalizedOrEmpty(email string) string {
	e, err := core.NormalizeEmail(email)
	if err != nil {
		return ""
	}
	return e
}
