package analytics

import (
	"testing"

	"github.com/shopspring/decimal"

	"pfm/internal/core"
)

func dated(amount int64, category string, d core.Date) core.Transaction {
	return core.Transaction{Amount: decimal.NewFromInt(amount), Category: category, Date: d}
}

func labels(points []TrendPoint) []string {
	out := make([]string, len(points))
	for i, p := range points {
		out[i] = p.Label
	}
	return out
}

func TestMonthlyTrendSingleWeek(t *testing.T) {
	txs := []core.Transaction{
		dated(500, "food", core.NewDate(2025, 3, 3)),
		dated(-2000, "income", core.NewDate(2025, 3, 5)),
		dated(300, "loan", core.NewDate(2025, 3, 6)),
		dated(-120, "refund", core.NewDate(2025, 3, 7)),
	}
	got := Bucket(txs, ByMonth, core.NewDate(2025, 3, 28))
	if len(got) != 1 || got[0].Label != "2025-03" {
		t.Fatalf("expected one 2025-03 bucket, got %v", labels(got))
	}
	if !got[0].Amount.Equal(decimal.NewFromInt(2620)) {
		t.Fatalf("expected 2620, got %s", got[0].Amount)
	}
}

func TestMonthlyTrendContiguous(t *testing.T) {
	txs := []core.Transaction{
		dated(100, "food", core.NewDate(2025, 2, 10)),
		dated(50, "food", core.NewDate(2024, 11, 30)),
		dated(0, "food", core.NewDate(2023, 1, 1)),
	}
	got := Bucket(txs, ByMonth, core.NewDate(2025, 3, 1))
	want := []string{"2024-11", "2024-12", "2025-01", "2025-02"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, labels(got))
	}
	for i := range want {
		if got[i].Label != want[i] {
			t.Fatalf("expected %v, got %v", want, labels(got))
		}
	}
	if !got[1].Amount.IsZero() || !got[3].Amount.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("unexpected amounts %+v", got)
	}
}

func TestWeeklyTrend(t *testing.T) {
	today := core.NewDate(2025, 3, 28)
	txs := []core.Transaction{
		dated(10, "food", today),
		dated(20, "food", today.AddDays(-6)),
		dated(40, "food", today.AddDays(-7)),
		dated(80, "food", today.AddDays(-27)),
		dated(160, "food", today.AddDays(-28)),
		dated(320, "food", today.AddDays(1)),
		dated(640, "loan", today),
	}
	got := Bucket(txs, ByWeek, today)
	want := []struct {
		label  string
		amount int64
	}{
		{"Week 1", 80},
		{"Week 2", 0},
		{"Week 3", 40},
		{"Week 4", 30},
	}
	if len(got) != len(want) {
		t.Fatalf("expected 4 weeks, got %v", labels(got))
	}
	for i, w := range want {
		if got[i].Label != w.label || !got[i].Amount.Equal(decimal.NewFromInt(w.amount)) {
			t.Fatalf("week %d: expected %s=%d, got %s=%s", i, w.label, w.amount, got[i].Label, got[i].Amount)
		}
	}
}

func TestDayOfWeekPattern(t *testing.T) {
	txs := []core.Transaction{
		dated(100, "food", core.NewDate(2025, 3, 3)),    // Monday
		dated(-50, "income", core.NewDate(2025, 3, 10)), // Monday
		dated(70, "food", core.NewDate(2025, 3, 9)),     // Sunday
	}
	got := Bucket(txs, ByDayOfWeek, core.NewDate(2025, 3, 28))
	if len(got) != 7 || got[0].Label != "Mon" || got[6].Label != "Sun" {
		t.Fatalf("unexpected labels %v", labels(got))
	}
	if !got[0].Amount.Equal(decimal.NewFromInt(150)) || !got[6].Amount.Equal(decimal.NewFromInt(70)) {
		t.Fatalf("unexpected amounts %+v", got)
	}
	for i := 1; i < 6; i++ {
		if !got[i].Amount.IsZero() {
			t.Fatalf("%s expected zero, got %s", got[i].Label, got[i].Amount)
		}
	}
}

func TestBucketEmpty(t *testing.T) {
	today := core.NewDate(2025, 3, 28)
	if got := Bucket(nil, ByMonth, today); got == nil || len(got) != 0 {
		t.Fatalf("monthly trend must be an empty, non-nil sequence, got %v", got)
	}
	if got := Bucket(nil, ByWeek, today); len(got) != 4 {
		t.Fatalf("weekly trend must keep its 4 buckets, got %v", labels(got))
	}
	if got := Bucket(nil, ByDayOfWeek, today); len(got) != 7 {
		t.Fatalf("day-of-week must keep its 7 buckets, got %v", labels(got))
	}
	if got := Bucket(nil, Granularity("hour"), today); got != nil {
		t.Fatalf("unknown granularity must yield nil, got %v", got)
	}
}
