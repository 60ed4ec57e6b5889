package analytics

import (
	"github.com/shopspring/decimal"

	"pfm/internal/core"
)

// SampleTransactions is the demo data set shown when the store cannot be
// reached and demo fallback is enabled. Records are dated relative to today
// and belong to scope.
func SampleTransactions(scope core.Scope, today core.Date) []core.Transaction {
	rows := []struct {
		daysAgo  int
		amount   int64
		item     string
		category string
		payer    string
	}{
		{0, 450, "Groceries", "food", "You"},
		{1, 1200, "Monthly pass", "transport", "You"},
		{3, -25000, "Salary", "income", "You"},
		{5, 800, "Dinner out", "food", "Partner"},
		{9, 3000, "Lent to a friend", "loan", "You"},
		{12, 2200, "Electricity", "bills", "Partner"},
		{20, 650, "Cinema", "entertainment", "You"},
		{34, 1500, "Shoes", "shopping", "Partner"},
	}
	out := make([]core.Transaction, 0, len(rows))
	for i, r := range rows {
		out = append(out, core.Transaction{
			ID:       "sample-" + string(rune('a'+i)),
			Amount:   decimal.NewFromInt(r.amount),
			Item:     r.item,
			Category: r.category,
			Payer:    r.payer,
			Date:     today.AddDays(-r.daysAgo),
			OwnerRef: scope.OwnerID,
			GroupRef: scope.GroupID,
		})
	}
	return out
}
