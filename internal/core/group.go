package core

import (
	"errors"
	"net/mail"
	"strings"
	"time"
)

type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationDeclined InvitationStatus = "declined"

	maxGroupNameLength = 100
)

type (
	// Group is a shared context whose members see each other's records.
	Group struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		CreatedBy string    `json:"created_by"`
		CreatedAt time.Time `json:"created_at"`
	}

	Member struct {
		GroupID  string    `json:"group_id"`
		UserID   string    `json:"user_id"`
		Email    string    `json:"email,omitempty"`
		JoinedAt time.Time `json:"joined_at"`
	}

	Invitation struct {
		ID           string           `json:"id"`
		GroupID      string           `json:"group_id"`
		GroupName    string           `json:"group_name"`
		InvitedEmail string           `json:"invited_email"`
		InvitedBy    string           `json:"invited_by"`
		Status       InvitationStatus `json:"status"`
		CreatedAt    time.Time        `json:"created_at"`
	}
)

var (
	ErrEmptyGroupName    = errors.New("empty group name")
	ErrGroupNameTooLong  = errors.New("group name too long (max 100 characters)")
	ErrInvalidEmail      = errors.New("invalid email")
	ErrAlreadyMember     = errors.New("already a member")
	ErrInvitationClosed  = errors.New("invitation is no longer pending")
	ErrInvitationPending = errors.New("invitation already pending")
)

func (g Group) Validate() error {
	name := strings.TrimSpace(g.Name)
	if name == "" {
		return ErrEmptyGroupName
	}
	if len(name) > maxGroupNameLength {
		return ErrGroupNameTooLong
	}
	return nil
}

// NormalizeEmail lower-cases and validates an address.
func NormalizeEmail(s string) (string, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return "", ErrInvalidEmail
	}
	return s, nil
}
