package analytics

import (
	"strings"

	"pfm/internal/core"
)

// Kind is the derived class of a transaction. It is never stored.
type Kind string

const (
	Expense      Kind = "expense"
	Income       Kind = "income"
	LoanMovement Kind = "loan"
)

// Classify tags a transaction by its category alone: "income" is Income,
// "loan" is a loan movement and anything else is an Expense, whatever the
// sign of the amount.
func Classify(t core.Transaction) Kind {
	switch CategoryKey(t.Category) {
	case core.CategoryIncome:
		return Income
	case core.CategoryLoan:
		return LoanMovement
	default:
		return Expense
	}
}

// CategoryKey is the grouping key of a category label.
func CategoryKey(category string) string {
	key := strings.ToLower(strings.TrimSpace(category))
	if key == "" {
		return core.CategoryOther
	}
	return key
}

func payerKey(payer string) string {
	p := strings.TrimSpace(payer)
	if p == "" {
		return core.UnknownPayer
	}
	return p
}
