package memory

import (
	"context"
	"fmt"
	"sort"

	"pfm/internal/core"
)

func (s *Store) CreateGroup(_ context.Context, g core.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[g.ID]; ok {
		return fmt.Errorf("group %s already exists", g.ID)
	}
	s.groups[g.ID] = g
	return nil
}

func (s *Store) GetGroup(_ context.Context, id string) (core.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[id]
	if !ok {
		return core.Group{}, fmt.Errorf("group %s: %w", id, core.ErrNotFound)
	}
	return g, nil
}

func (s *Store) ListGroupsForUser(_ context.Context, userID string) ([]core.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Group
	for id, members := range s.members {
		for _, m := range members {
			if m.UserID == userID {
				out = append(out, s.groups[id])
				break
			}
		}
	}
	sortGroups(out)
	return out, nil
}

func (s *Store) ListGroups(_ context.Context) ([]core.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Group, 0, len(s.groups))
	for _, g := range s.groups {
		out = append(out, g)
	}
	sortGroups(out)
	return out, nil
}

// DeleteGroup removes the group with its members, invitations and records.
func (s *Store) DeleteGroup(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[id]; !ok {
		return fmt.Errorf("group %s: %w", id, core.ErrNotFound)
	}
	delete(s.groups, id)
	delete(s.members, id)

	invs := s.invitations[:0]
	for _, inv := range s.invitations {
		if inv.GroupID != id {
			invs = append(invs, inv)
		}
	}
	s.invitations = invs

	txs := s.txs[:0]
	for _, t := range s.txs {
		if t.GroupRef != id {
			txs = append(txs, t)
		}
	}
	s.txs = txs
	return nil
}

func (s *Store) AddMember(_ context.Context, m core.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.members[m.GroupID] {
		if existing.UserID == m.UserID {
			return fmt.Errorf("user %s in group %s: %w", m.UserID, m.GroupID, core.ErrAlreadyMember)
		}
	}
	s.members[m.GroupID] = append(s.members[m.GroupID], m)
	return nil
}

func (s *Store) RemoveMember(_ context.Context, groupID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	members := s.members[groupID]
	for i, m := range members {
		if m.UserID == userID {
			s.members[groupID] = append(members[:i:i], members[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("member %s of group %s: %w", userID, groupID, core.ErrNotFound)
}

func (s *Store) ListMembers(_ context.Context, groupID string) ([]core.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Member(nil), s.members[groupID]...), nil
}

func (s *Store) IsMember(_ context.Context, groupID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.members[groupID] {
		if m.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) CreateInvitation(_ context.Context, inv core.Invitation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invitations = append(s.invitations, inv)
	return nil
}

func (s *Store) GetInvitation(_ context.Context, id string) (core.Invitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, inv := range s.invitations {
		if inv.ID == id {
			return inv, nil
		}
	}
	return core.Invitation{}, fmt.Errorf("invitation %s: %w", id, core.ErrNotFound)
}

func (s *Store) ListPendingInvitations(_ context.Context, email string) ([]core.Invitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Invitation
	for i := len(s.invitations) - 1; i >= 0; i-- {
		inv := s.invitations[i]
		if inv.InvitedEmail == email && inv.Status == core.InvitationPending {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (s *Store) SetInvitationStatus(_ context.Context, id string, status core.InvitationStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.invitations {
		if s.invitations[i].ID == id {
			s.invitations[i].Status = status
			return nil
		}
	}
	return fmt.Errorf("invitation %s: %w", id, core.ErrNotFound)
}

func sortGroups(gs []core.Group) {
	sort.Slice(gs, func(i, j int) bool {
		if !gs[i].CreatedAt.Equal(gs[j].CreatedAt) {
			return gs[i].CreatedAt.Before(gs[j].CreatedAt)
		}
		return gs[i].ID < gs[j].ID
	})
}
