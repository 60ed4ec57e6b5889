package storage

import "database/sql"

// Row shapes of the SQLite schema. Every transaction column but the keys is
// nullable: records written by older clients may miss any of them.
type (
	Transaction struct {
		ID        string
		Amount    sql.NullString
		Item      sql.NullString
		Category  sql.NullString
		Remarks   sql.NullString
		PaidBy    sql.NullString
		Date      sql.NullString
		UserID    string
		GroupID   sql.NullString
		CreatedAt string
	}

	Group struct {
		ID        string
		Name      string
		CreatedBy string
		CreatedAt string
	}

	GroupMember struct {
		GroupID  string
		UserID   string
		Email    string
		JoinedAt string
	}

	GroupInvitation struct {
		ID           string
		GroupID      string
		GroupName    string
		InvitedEmail string
		InvitedBy    string
		Status       string
		CreatedAt    string
	}

	AnalyticsArchive struct {
		ScopeKey   string
		Period     string
		Snapshot   string
		ArchivedAt string
	}
)
