// Package analytics turns a flat list of transactions into the category,
// payer and time-bucketed summaries shown on the dashboards.
//
// Everything here is a pure function of its input: no I/O, no shared state
// and no errors. Fetching the transactions is the caller's job.
package analytics

import (
	"time"

	"github.com/shopspring/decimal"

	"pfm/internal/core"
)

// Params selects what a snapshot covers.
type Params struct {
	RangeDays int
	Scope     core.Scope // zero value accepts every record
	Now       time.Time
}

// Snapshot is the full-precision analytics of one scope and time range.
type Snapshot struct {
	Scope       core.Scope
	RangeDays   int
	GeneratedAt time.Time

	Totals

	DailyAverage decimal.Decimal
	SavingsRate  int // percent of income left after expenses

	MonthlyTrend     []TrendPoint
	WeeklyTrend      []TrendPoint
	DayOfWeekPattern []TrendPoint

	// Set by the caller when the transactions did not come from the store.
	UsesFallbackData bool
	FetchFailed      bool
}

// Compose builds the snapshot of the records of p.Scope.
func Compose(txs []core.Transaction, p Params) Snapshot {
	if p.Now.IsZero() {
		p.Now = time.Now()
	}
	inScope := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if p.Scope.Contains(tx) {
			inScope = append(inScope, tx)
		}
	}

	s := Snapshot{
		Scope:        p.Scope,
		RangeDays:    p.RangeDays,
		GeneratedAt:  p.Now,
		Totals:       Aggregate(inScope, p.Scope),
		DailyAverage: decimal.Zero,
	}
	if p.RangeDays > 0 {
		s.DailyAverage = s.TotalExpenses.Div(decimal.NewFromInt(int64(p.RangeDays)))
	}
	s.SavingsRate = Percent(s.NetBalance, s.TotalIncome)

	today := core.DateOf(p.Now)
	s.MonthlyTrend = Bucket(inScope, ByMonth, today)
	s.WeeklyTrend = Bucket(inScope, ByWeek, today)
	s.DayOfWeekPattern = Bucket(inScope, ByDayOfWeek, today)
	return s
}

// ComputeAnalytics is Compose over every given record as of now.
func ComputeAnalytics(txs []core.Transaction, rangeDays int) Snapshot {
	return Compose(txs, Params{RangeDays: rangeDays, Now: time.Now()})
}
