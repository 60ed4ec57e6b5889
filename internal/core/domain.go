package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Reserved categories and ingestion defaults.
const (
	CategoryIncome = "income"
	CategoryLoan   = "loan"
	CategoryOther  = "other"

	DefaultItem  = "item"
	UnknownPayer = "Unknown"

	maxItemLength = 200
)

type (
	// Transaction is a single money movement owned by a user, optionally shared
	// with one group. Positive amounts are money spent or lent, negative amounts
	// are money received.
	Transaction struct {
		ID        string          `json:"id"`
		Amount    decimal.Decimal `json:"amount"`
		Item      string          `json:"item"`
		Category  string          `json:"category"`
		Remarks   string          `json:"remarks,omitempty"`
		Payer     string          `json:"paid_by"`
		Date      Date            `json:"date"`
		OwnerRef  string          `json:"user_id"`
		GroupRef  string          `json:"group_id,omitempty"`
		CreatedAt time.Time       `json:"created_at"`
	}

	// RawTransaction is a record as handed over by a store or the parser, with
	// every optional field still optional.
	RawTransaction struct {
		ID        string
		Amount    *decimal.Decimal
		Item      *string
		Category  *string
		Remarks   *string
		Payer     *string
		Date      *Date
		OwnerRef  string
		GroupRef  string
		CreatedAt time.Time
	}
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidDate   = errors.New("invalid date")
	ErrEmptyItem     = errors.New("empty item")
	ErrItemTooLong   = errors.New("item too long (max 200 characters)")
	ErrEmptyCategory = errors.New("empty category")
	ErrMissingOwner  = errors.New("missing owner")
	ErrInvalidScope  = errors.New("invalid scope")
	ErrNotFound      = errors.New("not found")
	ErrForbidden     = errors.New("forbidden")
)

// Normalize applies the ingestion defaults: amount 0, item "item", category
// "other", date = windowStart and payer "Unknown".
func (r RawTransaction) Normalize(windowStart Date) Transaction {
	t := Transaction{
		ID:        r.ID,
		Amount:    decimal.Zero,
		Item:      DefaultItem,
		Category:  CategoryOther,
		Payer:     UnknownPayer,
		Date:      windowStart,
		OwnerRef:  r.OwnerRef,
		GroupRef:  r.GroupRef,
		CreatedAt: r.CreatedAt,
	}
	if r.Amount != nil {
		t.Amount = *r.Amount
	}
	if r.Item != nil && strings.TrimSpace(*r.Item) != "" {
		t.Item = strings.TrimSpace(*r.Item)
	}
	if r.Category != nil && strings.TrimSpace(*r.Category) != "" {
		t.Category = strings.TrimSpace(*r.Category)
	}
	if r.Remarks != nil {
		t.Remarks = strings.TrimSpace(*r.Remarks)
	}
	if r.Payer != nil && strings.TrimSpace(*r.Payer) != "" {
		t.Payer = strings.TrimSpace(*r.Payer)
	}
	if r.Date != nil && !r.Date.IsZero() {
		t.Date = *r.Date
	}
	return t
}

// Scope returns the single scope the transaction belongs to.
func (t Transaction) Scope() Scope {
	if t.GroupRef != "" {
		return GroupScope(t.GroupRef)
	}
	return PersonalScope(t.OwnerRef)
}

// Validate checks a manually entered or edited transaction.
func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	item := strings.TrimSpace(t.Item)
	if item == "" {
		return ErrEmptyItem
	}
	if len(item) > maxItemLength {
		return ErrItemTooLong
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if t.OwnerRef == "" {
		return ErrMissingOwner
	}
	return nil
}
