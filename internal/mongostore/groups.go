package mongostore

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"pfm/internal/core"
)

func (s *Store) CreateGroup(ctx context.Context, g core.Group) error {
	_, err := s.groups.InsertOne(ctx, groupDoc{ID: g.ID, Name: g.Name, CreatedBy: g.CreatedBy, CreatedAt: g.CreatedAt})
	if err != nil {
		return fmt.Errorf("insert group: %w", err)
	}
	return nil
}

func (s *Store) GetGroup(ctx context.Context, id string) (core.Group, error) {
	var doc groupDoc
	err := s.groups.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return core.Group{}, fmt.Errorf("group %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Group{}, fmt.Errorf("find group: %w", err)
	}
	return doc.group(), nil
}

func (s *Store) ListGroupsForUser(ctx context.Context, userID string) ([]core.Group, error) {
	ids, err := s.members.Distinct(ctx, "group_id", bson.M{"user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("distinct member groups: %w", err)
	}
	if len(ids) == 0 {
		return []core.Group{}, nil
	}
	return s.findGroups(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

func (s *Store) ListGroups(ctx context.Context) ([]core.Group, error) {
	return s.findGroups(ctx, bson.M{})
}

func (s *Store) findGroups(ctx context.Context, filter bson.M) ([]core.Group, error) {
	cursor, err := s.groups.Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find groups: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []groupDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode groups: %w", err)
	}
	out := make([]core.Group, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.group())
	}
	return out, nil
}

// DeleteGroup removes records, invitations and members before the group
// itself, so a failure part way leaves the group visible for a retry.
func (s *Store) DeleteGroup(ctx context.Context, id string) error {
	if _, err := s.GetGroup(ctx, id); err != nil {
		return err
	}
	if _, err := s.txs.DeleteMany(ctx, bson.M{"group_id": id}); err != nil {
		return fmt.Errorf("delete group transactions: %w", err)
	}
	if _, err := s.invitations.DeleteMany(ctx, bson.M{"group_id": id}); err != nil {
		return fmt.Errorf("delete group invitations: %w", err)
	}
	if _, err := s.members.DeleteMany(ctx, bson.M{"group_id": id}); err != nil {
		return fmt.Errorf("delete group members: %w", err)
	}
	if _, err := s.groups.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	return nil
}

func memberID(groupID, userID string) string { return groupID + "|" + userID }

func (s *Store) AddMember(ctx context.Context, m core.Member) error {
	_, err := s.members.InsertOne(ctx, memberDoc{
		ID:       memberID(m.GroupID, m.UserID),
		GroupID:  m.GroupID,
		UserID:   m.UserID,
		Email:    m.Email,
		JoinedAt: m.JoinedAt,
	})
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("user %s in group %s: %w", m.UserID, m.GroupID, core.ErrAlreadyMember)
	}
	if err != nil {
		return fmt.Errorf("insert member: %w", err)
	}
	return nil
}

func (s *Store) RemoveMember(ctx context.Context, groupID, userID string) error {
	res, err := s.members.DeleteOne(ctx, bson.M{"_id": memberID(groupID, userID)})
	if err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("member %s of group %s: %w", userID, groupID, core.ErrNotFound)
	}
	return nil
}

func (s *Store) ListMembers(ctx context.Context, groupID string) ([]core.Member, error) {
	cursor, err := s.members.Find(ctx, bson.M{"group_id": groupID},
		options.Find().SetSort(bson.D{{Key: "joined_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find members: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []memberDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode members: %w", err)
	}
	out := make([]core.Member, 0, len(docs))
	for _, d := range docs {
		out = append(out, core.Member{GroupID: d.GroupID, UserID: d.UserID, Email: d.Email, JoinedAt: d.JoinedAt})
	}
	return out, nil
}

func (s *Store) IsMember(ctx context.Context, groupID, userID string) (bool, error) {
	n, err := s.members.CountDocuments(ctx, bson.M{"_id": memberID(groupID, userID)})
	if err != nil {
		return false, fmt.Errorf("count members: %w", err)
	}
	return n > 0, nil
}

func (s *Store) CreateInvitation(ctx context.Context, inv core.Invitation) error {
	_, err := s.invitations.InsertOne(ctx, invitationDoc{
		ID:           inv.ID,
		GroupID:      inv.GroupID,
		GroupName:    inv.GroupName,
		InvitedEmail: inv.InvitedEmail,
		InvitedBy:    inv.InvitedBy,
		Status:       string(inv.Status),
		CreatedAt:    inv.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("insert invitation: %w", err)
	}
	return nil
}

func (s *Store) GetInvitation(ctx context.Context, id string) (core.Invitation, error) {
	var doc invitationDoc
	err := s.invitations.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return core.Invitation{}, fmt.Errorf("invitation %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Invitation{}, fmt.Errorf("find invitation: %w", err)
	}
	return doc.invitation(), nil
}

func (s *Store) ListPendingInvitations(ctx context.Context, email string) ([]core.Invitation, error) {
	cursor, err := s.invitations.Find(ctx,
		bson.M{"invited_email": email, "status": string(core.InvitationPending)},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("find invitations: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []invitationDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode invitations: %w", err)
	}
	out := make([]core.Invitation, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.invitation())
	}
	return out, nil
}

func (s *Store) SetInvitationStatus(ctx context.Context, id string, status core.InvitationStatus) error {
	res, err := s.invitations.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"status": string(status)}})
	if err != nil {
		return fmt.Errorf("update invitation: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("invitation %s: %w", id, core.ErrNotFound)
	}
	return nil
}

func (d groupDoc) group() core.Group {
	return core.Group{ID: d.ID, Name: d.Name, CreatedBy: d.CreatedBy, CreatedAt: d.CreatedAt}
}

func (d invitationDoc) invitation() core.Invitation {
	return core.Invitation{
		ID:           d.ID,
		GroupID:      d.GroupID,
		GroupName:    d.GroupName,
		InvitedEmail: d.InvitedEmail,
		InvitedBy:    d.InvitedBy,
		Status:       core.InvitationStatus(d.Status),
		CreatedAt:    d.CreatedAt,
	}
}
