package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"pfm/internal/core"
)

var hundred = decimal.NewFromInt(100)

type (
	// CategoryAmount is the summed absolute spend of one expense category.
	CategoryAmount struct {
		Name   string
		Amount decimal.Decimal
		Share  int // percent of total expenses
		Count  int
	}

	// PayerAmount is the signed sum of every record paid by one person.
	PayerAmount struct {
		Name   string
		Amount decimal.Decimal
	}

	// Totals is the reduction of one scope's transactions.
	Totals struct {
		TotalExpenses decimal.Decimal
		TotalIncome   decimal.Decimal
		NetBalance    decimal.Decimal
		LoanLent      decimal.Decimal
		LoanReceived  decimal.Decimal
		NetLoan       decimal.Decimal
		AvgPerExpense decimal.Decimal

		ExpenseCount int
		IncomeCount  int
		LoanCount    int

		// Sorted by amount descending, ties in first-seen order.
		Categories []CategoryAmount
		Payers     []PayerAmount

		TopExpense *core.Transaction
	}
)

// Aggregate reduces the transactions of scope into totals. Records outside
// scope are skipped. Zero-amount records are pending placeholders: they add
// nothing and never open a category, payer or count of their own.
func Aggregate(txs []core.Transaction, scope core.Scope) Totals {
	t := Totals{
		TotalExpenses: decimal.Zero,
		TotalIncome:   decimal.Zero,
		LoanLent:      decimal.Zero,
		LoanReceived:  decimal.Zero,
		AvgPerExpense: decimal.Zero,
		Categories:    []CategoryAmount{},
		Payers:        []PayerAmount{},
	}
	catIdx := make(map[string]int)
	payerIdx := make(map[string]int)

	for i := range txs {
		tx := txs[i]
		if !scope.Contains(tx) || tx.Amount.IsZero() {
			continue
		}
		abs := tx.Amount.Abs()

		switch Classify(tx) {
		case Income:
			t.TotalIncome = t.TotalIncome.Add(abs)
			t.IncomeCount++
		case LoanMovement:
			if tx.Amount.IsPositive() {
				t.LoanLent = t.LoanLent.Add(tx.Amount)
			} else {
				t.LoanReceived = t.LoanReceived.Add(abs)
			}
			t.LoanCount++
		default:
			t.TotalExpenses = t.TotalExpenses.Add(abs)
			t.ExpenseCount++

			key := CategoryKey(tx.Category)
			j, ok := catIdx[key]
			if !ok {
				j = len(t.Categories)
				catIdx[key] = j
				t.Categories = append(t.Categories, CategoryAmount{Name: key, Amount: decimal.Zero})
			}
			t.Categories[j].Amount = t.Categories[j].Amount.Add(abs)
			t.Categories[j].Count++

			if t.TopExpense == nil || abs.GreaterThan(t.TopExpense.Amount.Abs()) {
				t.TopExpense = &tx
			}
		}

		name := payerKey(tx.Payer)
		j, ok := payerIdx[name]
		if !ok {
			j = len(t.Payers)
			payerIdx[name] = j
			t.Payers = append(t.Payers, PayerAmount{Name: name, Amount: decimal.Zero})
		}
		t.Payers[j].Amount = t.Payers[j].Amount.Add(tx.Amount)
	}

	t.NetBalance = t.TotalIncome.Sub(t.TotalExpenses)
	t.NetLoan = t.LoanLent.Sub(t.LoanReceived)
	if t.ExpenseCount > 0 {
		t.AvgPerExpense = t.TotalExpenses.Div(decimal.NewFromInt(int64(t.ExpenseCount)))
	}
	for i := range t.Categories {
		t.Categories[i].Share = Percent(t.Categories[i].Amount, t.TotalExpenses)
	}

	sort.SliceStable(t.Categories, func(a, b int) bool {
		return t.Categories[a].Amount.GreaterThan(t.Categories[b].Amount)
	})
	sort.SliceStable(t.Payers, func(a, b int) bool {
		return t.Payers[a].Amount.GreaterThan(t.Payers[b].Amount)
	})
	return t
}

// Percent is round(100 * part / whole), or 0 when whole is zero.
func Percent(part, whole decimal.Decimal) int {
	if whole.IsZero() {
		return 0
	}
	return int(part.Mul(hundred).Div(whole).Round(0).IntPart())
}

// TopCategory returns the largest expense category, or nil without expenses.
func (t Totals) TopCategory() *CategoryAmount {
	if len(t.Categories) == 0 {
		return nil
	}
	c := t.Categories[0]
	return &c
}
