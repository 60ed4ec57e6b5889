package analytics

import (
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"pfm/internal/core"
)

var fixedNow = time.Date(2025, 3, 28, 15, 0, 0, 0, time.UTC)

func scenario() []core.Transaction {
	return []core.Transaction{
		{ID: "1", Amount: decimal.NewFromInt(500), Category: "food", Payer: "Ana", Date: core.NewDate(2025, 3, 24)},
		{ID: "2", Amount: decimal.NewFromInt(1200), Category: "transport", Payer: "Ben", Date: core.NewDate(2025, 3, 25)},
		{ID: "3", Amount: decimal.NewFromInt(-2000), Category: "income", Payer: "Ana", Date: core.NewDate(2025, 3, 26)},
		{ID: "4", Amount: decimal.NewFromInt(300), Category: "loan", Payer: "Ana", Date: core.NewDate(2025, 3, 27)},
	}
}

func TestComposeScenario(t *testing.T) {
	s := Compose(scenario(), Params{RangeDays: 30, Now: fixedNow})
	d := s.Display()

	if d.TotalExpenses != 1700 || d.TotalIncome != 2000 || d.NetBalance != 300 {
		t.Fatalf("unexpected totals %+v", d)
	}
	if d.LoanLent != 300 || d.LoanReceived != 0 || d.NetLoan != 300 {
		t.Fatalf("unexpected loans %+v", d)
	}
	// 1700 / 30 = 56.67
	if d.DailyAverage != 57 {
		t.Fatalf("expected daily average 57, got %d", d.DailyAverage)
	}
	if d.SavingsRate != 15 {
		t.Fatalf("expected savings rate 15, got %d", d.SavingsRate)
	}
	if d.TopExpenseCategory == nil || d.TopExpenseCategory.Name != "transport" || d.TopExpenseCategory.Share != 71 {
		t.Fatalf("unexpected top category %+v", d.TopExpenseCategory)
	}
	if d.TopExpenseTransaction == nil || d.TopExpenseTransaction.ID != "2" {
		t.Fatalf("unexpected top expense %+v", d.TopExpenseTransaction)
	}
	if len(d.MonthlyTrend) != 1 || d.MonthlyTrend[0].Amount != 3700 {
		t.Fatalf("unexpected monthly trend %+v", d.MonthlyTrend)
	}
	if d.WeeklyTrend[3].Amount != 3700 {
		t.Fatalf("expected all activity in week 4, got %+v", d.WeeklyTrend)
	}
}

func TestComposeEmpty(t *testing.T) {
	for _, rangeDays := range []int{0, 7, 365, -1} {
		d := Compose(nil, Params{RangeDays: rangeDays, Now: fixedNow}).Display()
		if d.TotalExpenses != 0 || d.TotalIncome != 0 || d.NetBalance != 0 || d.LoanLent != 0 ||
			d.LoanReceived != 0 || d.NetLoan != 0 || d.AvgPerExpense != 0 || d.DailyAverage != 0 || d.SavingsRate != 0 {
			t.Fatalf("range %d: expected zero totals, got %+v", rangeDays, d)
		}
		if len(d.ExpenseCategories) != 0 || len(d.UserBreakdown) != 0 || len(d.MonthlyTrend) != 0 {
			t.Fatalf("range %d: expected empty mappings, got %+v", rangeDays, d)
		}
		if d.TopExpenseCategory != nil || d.TopExpenseTransaction != nil {
			t.Fatalf("range %d: expected no extremal records", rangeDays)
		}
		if len(d.WeeklyTrend) != 4 || len(d.DayOfWeekPattern) != 7 {
			t.Fatalf("range %d: fixed buckets must stay populated", rangeDays)
		}
	}
}

func TestComposeZeroAmountIsIdempotent(t *testing.T) {
	base := scenario()
	before := Compose(base, Params{RangeDays: 30, Now: fixedNow}).Display()

	zeros := []core.Transaction{
		{Amount: decimal.Zero, Category: "brand-new", Payer: "Newcomer", Date: core.NewDate(2024, 1, 1)},
		{Amount: decimal.Zero, Category: "income", Payer: "Ana", Date: core.NewDate(2025, 3, 28)},
		{Amount: decimal.Zero, Category: "loan", Payer: "Ben", Date: core.NewDate(2025, 3, 20)},
	}
	for _, z := range zeros {
		after := Compose(append(append([]core.Transaction{}, base...), z), Params{RangeDays: 30, Now: fixedNow}).Display()
		if !reflect.DeepEqual(before, after) {
			t.Fatalf("zero-amount %q changed the snapshot:\nbefore %+v\nafter  %+v", z.Category, before, after)
		}
	}
}

func TestComposeFiltersScope(t *testing.T) {
	txs := scenario()
	for i := range txs {
		txs[i].OwnerRef = "u1"
	}
	txs[1].GroupRef = "g1"

	personal := Compose(txs, Params{RangeDays: 30, Scope: core.PersonalScope("u1"), Now: fixedNow}).Display()
	if personal.TotalExpenses != 500 || personal.Scope != "user:u1" {
		t.Fatalf("personal scope leaked group records: %+v", personal)
	}
	group := Compose(txs, Params{RangeDays: 30, Scope: core.GroupScope("g1"), Now: fixedNow}).Display()
	if group.TotalExpenses != 1200 || group.TotalIncome != 0 {
		t.Fatalf("group scope leaked personal records: %+v", group)
	}
}

func TestComputeAnalytics(t *testing.T) {
	d := ComputeAnalytics(scenario(), 7).Display()
	if d.TotalExpenses != 1700 || d.RangeDays != 7 || d.Scope != "all" {
		t.Fatalf("unexpected snapshot %+v", d)
	}
}

func TestDisplayRounding(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"2.5", 3},
		{"2.49", 2},
		{"-2.5", -3},
		{"-0.4", 0},
	}
	for _, tc := range cases {
		if got := Round(decimal.RequireFromString(tc.in)); got != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.in, tc.want, got)
		}
	}
}

func TestSampleTransactions(t *testing.T) {
	scope := core.GroupScope("g1")
	txs := SampleTransactions(scope, core.DateOf(fixedNow))
	d := Compose(txs, Params{RangeDays: 30, Scope: scope, Now: fixedNow}).Display()
	if d.ExpenseCount == 0 || d.IncomeCount == 0 || d.LoanCount == 0 {
		t.Fatalf("sample data should exercise every kind: %+v", d)
	}
}
