package mongostore

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"pfm/internal/core"
)

// transactionDoc is the stored shape. Optional fields are pointers so that
// documents written by other clients decode without defaults baked in.
type transactionDoc struct {
	ID        string                `bson:"_id"`
	Amount    *primitive.Decimal128 `bson:"amount,omitempty"`
	Item      *string               `bson:"item,omitempty"`
	Category  *string               `bson:"category,omitempty"`
	Remarks   *string               `bson:"remarks,omitempty"`
	PaidBy    *string               `bson:"paid_by,omitempty"`
	Date      *string               `bson:"date,omitempty"`
	UserID    string                `bson:"user_id"`
	GroupID   string                `bson:"group_id,omitempty"`
	CreatedAt time.Time             `bson:"created_at"`
}

type groupDoc struct {
	ID        string    `bson:"_id"`
	Name      string    `bson:"name"`
	CreatedBy string    `bson:"created_by"`
	CreatedAt time.Time `bson:"created_at"`
}

type memberDoc struct {
	ID       string    `bson:"_id"`
	GroupID  string    `bson:"group_id"`
	UserID   string    `bson:"user_id"`
	Email    string    `bson:"email,omitempty"`
	JoinedAt time.Time `bson:"joined_at"`
}

type invitationDoc struct {
	ID           string    `bson:"_id"`
	GroupID      string    `bson:"group_id"`
	GroupName    string    `bson:"group_name"`
	InvitedEmail string    `bson:"invited_email"`
	InvitedBy    string    `bson:"invited_by"`
	Status       string    `bson:"status"`
	CreatedAt    time.Time `bson:"created_at"`
}

type archiveDoc struct {
	ID         string    `bson:"_id"`
	ScopeKey   string    `bson:"scope_key"`
	Period     string    `bson:"period"`
	Snapshot   string    `bson:"snapshot"`
	ArchivedAt time.Time `bson:"archived_at"`
}

func toDoc(t core.Transaction) transactionDoc {
	doc := transactionDoc{
		ID:        t.ID,
		Item:      optional(t.Item),
		Category:  optional(t.Category),
		Remarks:   optional(t.Remarks),
		PaidBy:    optional(t.Payer),
		Date:      optional(t.Date.String()),
		UserID:    t.OwnerRef,
		GroupID:   t.GroupRef,
		CreatedAt: t.CreatedAt,
	}
	if amount, err := primitive.ParseDecimal128(t.Amount.String()); err == nil {
		doc.Amount = &amount
	}
	return doc
}

func (d transactionDoc) raw(ctx context.Context) core.RawTransaction {
	raw := core.RawTransaction{
		ID:        d.ID,
		Item:      d.Item,
		Category:  d.Category,
		Remarks:   d.Remarks,
		Payer:     d.PaidBy,
		OwnerRef:  d.UserID,
		GroupRef:  d.GroupID,
		CreatedAt: d.CreatedAt,
	}
	if d.Amount != nil {
		if amount, err := decimal.NewFromString(d.Amount.String()); err == nil {
			raw.Amount = &amount
		} else {
			slog.WarnContext(ctx, "Ignoring malformed amount", "id", d.ID, "amount", d.Amount.String())
		}
	}
	if d.Date != nil {
		if date, err := core.ParseDate(*d.Date); err == nil {
			raw.Date = &date
		} else {
			slog.WarnContext(ctx, "Ignoring malformed date", "id", d.ID, "date", *d.Date)
		}
	}
	return raw
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
