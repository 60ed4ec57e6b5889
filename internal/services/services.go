package services

import (
	"context"
	"fmt"
	"strings"

	"pfm/internal/amqp"
	"pfm/internal/core"
	"pfm/internal/parser"
)

// ErrParserUnavailable is returned by chat entry when the parser cannot be
// reached or is not configured.
var ErrParserUnavailable = parser.ErrUnavailable

// Viewer is the authenticated caller.
type Viewer struct {
	UserID string
	Email  string
}

func (v Viewer) Validate() error {
	if strings.TrimSpace(v.UserID) == "" {
		return fmt.Errorf("viewer: %w", core.ErrMissingOwner)
	}
	return nil
}

// ScopeFor is the viewer's personal scope, or groupID's scope when set.
func (v Viewer) ScopeFor(groupID string) core.Scope {
	if groupID = strings.TrimSpace(groupID); groupID != "" {
		return core.GroupScope(groupID)
	}
	return core.PersonalScope(v.UserID)
}

type (
	// EventPublisher is satisfied by *amqp.Client.
	EventPublisher interface {
		PublishTransactionEvent(ctx context.Context, evt *amqp.TransactionEvent) error
	}

	// TextParser is satisfied by *parser.Client.
	TextParser interface {
		Parse(ctx context.Context, text string) (*parser.Result, error)
	}

	// MembershipChecker is satisfied by *GroupService and by every store.
	MembershipChecker interface {
		IsMember(ctx context.Context, groupID, userID string) (bool, error)
	}
)

// authorize checks that viewer may read and write scope: its own personal
// records, or a group it belongs to.
func authorize(ctx context.Context, members MembershipChecker, viewer Viewer, scope core.Scope) error {
	if err := viewer.Validate(); err != nil {
		return err
	}
	if err := scope.Validate(); err != nil {
		return err
	}
	if !scope.IsGroup() {
		if scope.OwnerID != viewer.UserID {
			return fmt.Errorf("personal records of another user: %w", core.ErrForbidden)
		}
		return nil
	}
	ok, err := members.IsMember(ctx, scope.GroupID, viewer.UserID)
	if err != nil {
		return fmt.Errorf("check membership: %w", err)
	}
	if !ok {
		return fmt.Errorf("not a member of group %s: %w", scope.GroupID, core.ErrForbidden)
	}
	return nil
}
