package analytics

import (
	"time"

	"github.com/shopspring/decimal"

	"pfm/internal/core"
)

type (
	DisplayCategory struct {
		Name   string `json:"name" yaml:"name"`
		Amount int64  `json:"amount" yaml:"amount"`
		Share  int    `json:"share" yaml:"share"`
		Count  int    `json:"count" yaml:"count"`
	}

	DisplayAmount struct {
		Label  string `json:"label" yaml:"label"`
		Amount int64  `json:"amount" yaml:"amount"`
	}

	DisplayTransaction struct {
		ID       string `json:"id" yaml:"id"`
		Item     string `json:"item" yaml:"item"`
		Category string `json:"category" yaml:"category"`
		Payer    string `json:"paid_by" yaml:"paid_by"`
		Date     string `json:"date" yaml:"date"`
		Amount   int64  `json:"amount" yaml:"amount"`
	}

	// Display is the snapshot rounded to whole currency units, as every
	// presentation surface shows it.
	Display struct {
		Scope       string    `json:"scope" yaml:"scope"`
		RangeDays   int       `json:"range_days" yaml:"range_days"`
		GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`

		TotalExpenses int64 `json:"total_expenses" yaml:"total_expenses"`
		TotalIncome   int64 `json:"total_income" yaml:"total_income"`
		NetBalance    int64 `json:"net_balance" yaml:"net_balance"`
		LoanLent      int64 `json:"loan_lent" yaml:"loan_lent"`
		LoanReceived  int64 `json:"loan_received" yaml:"loan_received"`
		NetLoan       int64 `json:"net_loan" yaml:"net_loan"`
		AvgPerExpense int64 `json:"avg_per_expense" yaml:"avg_per_expense"`
		DailyAverage  int64 `json:"daily_average" yaml:"daily_average"`
		SavingsRate   int   `json:"savings_rate" yaml:"savings_rate"`

		TransactionCount int `json:"transaction_count" yaml:"transaction_count"`
		ExpenseCount     int `json:"expense_count" yaml:"expense_count"`
		IncomeCount      int `json:"income_count" yaml:"income_count"`
		LoanCount        int `json:"loan_count" yaml:"loan_count"`

		ExpenseCategories []DisplayCategory `json:"expense_categories" yaml:"expense_categories"`
		UserBreakdown     []DisplayAmount   `json:"user_breakdown" yaml:"user_breakdown"`
		MonthlyTrend      []DisplayAmount   `json:"monthly_trend" yaml:"monthly_trend"`
		WeeklyTrend       []DisplayAmount   `json:"weekly_trend" yaml:"weekly_trend"`
		DayOfWeekPattern  []DisplayAmount   `json:"day_of_week_pattern" yaml:"day_of_week_pattern"`

		TopExpenseCategory    *DisplayCategory    `json:"top_expense_category" yaml:"top_expense_category"`
		TopExpenseTransaction *DisplayTransaction `json:"top_expense_transaction" yaml:"top_expense_transaction"`

		UsesFallbackData bool `json:"uses_fallback_data" yaml:"uses_fallback_data"`
		FetchFailed      bool `json:"fetch_failed" yaml:"fetch_failed"`
	}
)

// Round rounds to the nearest whole unit, halves away from zero.
func Round(d decimal.Decimal) int64 {
	return d.Round(0).IntPart()
}

func (s Snapshot) Display() Display {
	d := Display{
		Scope:         s.Scope.Key(),
		RangeDays:     s.RangeDays,
		GeneratedAt:   s.GeneratedAt,
		TotalExpenses: Round(s.TotalExpenses),
		TotalIncome:   Round(s.TotalIncome),
		NetBalance:    Round(s.NetBalance),
		LoanLent:      Round(s.LoanLent),
		LoanReceived:  Round(s.LoanReceived),
		NetLoan:       Round(s.NetLoan),
		AvgPerExpense: Round(s.AvgPerExpense),
		DailyAverage:  Round(s.DailyAverage),
		SavingsRate:   s.SavingsRate,

		TransactionCount: s.ExpenseCount + s.IncomeCount + s.LoanCount,
		ExpenseCount:     s.ExpenseCount,
		IncomeCount:      s.IncomeCount,
		LoanCount:        s.LoanCount,

		ExpenseCategories: make([]DisplayCategory, 0, len(s.Categories)),
		UserBreakdown:     make([]DisplayAmount, 0, len(s.Payers)),
		MonthlyTrend:      displayTrend(s.MonthlyTrend),
		WeeklyTrend:       displayTrend(s.WeeklyTrend),
		DayOfWeekPattern:  displayTrend(s.DayOfWeekPattern),

		UsesFallbackData: s.UsesFallbackData,
		FetchFailed:      s.FetchFailed,
	}
	for _, c := range s.Categories {
		d.ExpenseCategories = append(d.ExpenseCategories, DisplayCategory{
			Name: c.Name, Amount: Round(c.Amount), Share: c.Share, Count: c.Count,
		})
	}
	for _, p := range s.Payers {
		d.UserBreakdown = append(d.UserBreakdown, DisplayAmount{Label: p.Name, Amount: Round(p.Amount)})
	}
	if len(d.ExpenseCategories) > 0 {
		top := d.ExpenseCategories[0]
		d.TopExpenseCategory = &top
	}
	if s.TopExpense != nil {
		d.TopExpenseTransaction = displayTransaction(*s.TopExpense)
	}
	return d
}

func displayTrend(points []TrendPoint) []DisplayAmount {
	out := make([]DisplayAmount, 0, len(points))
	for _, p := range points {
		out = append(out, DisplayAmount{Label: p.Label, Amount: Round(p.Amount)})
	}
	return out
}

func displayTransaction(t core.Transaction) *DisplayTransaction {
	return &DisplayTransaction{
		ID:       t.ID,
		Item:     t.Item,
		Category: CategoryKey(t.Category),
		Payer:    t.Payer,
		Date:     t.Date.String(),
		Amount:   Round(t.Amount),
	}
}
