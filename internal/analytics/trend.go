package analytics

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"pfm/internal/core"
)

type Granularity string

const (
	ByMonth     Granularity = "month"
	ByWeek      Granularity = "week"
	ByDayOfWeek Granularity = "day-of-week"

	trendWeeks = 4
)

var weekdayLabels = [7]string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// TrendPoint is one labelled bucket of a trend.
type TrendPoint struct {
	Label  string
	Amount decimal.Decimal
}

// Bucket groups transactions by time. A bucket sums the absolute amounts of
// expenses and income; loan movements are left out.
//
// Month buckets are YYYY-MM, ascending and contiguous from the first to the
// last month holding data (empty without data). Week buckets are always the
// four trailing 7-day windows ending today, "Week 4" being the latest.
// Day-of-week buckets are always Mon..Sun.
func Bucket(txs []core.Transaction, g Granularity, today core.Date) []TrendPoint {
	switch g {
	case ByMonth:
		return monthly(txs)
	case ByWeek:
		return weekly(txs, today)
	case ByDayOfWeek:
		return dayOfWeek(txs)
	default:
		return nil
	}
}

func trendAmount(tx core.Transaction) (decimal.Decimal, bool) {
	if tx.Amount.IsZero() || tx.Date.IsZero() || Classify(tx) == LoanMovement {
		return decimal.Zero, false
	}
	return tx.Amount.Abs(), true
}

func monthly(txs []core.Transaction) []TrendPoint {
	sums := make(map[string]decimal.Decimal)
	var first, last time.Time
	for _, tx := range txs {
		amt, ok := trendAmount(tx)
		if !ok {
			continue
		}
		key := tx.Date.MonthKey()
		sums[key] = sums[key].Add(amt)

		m := time.Date(tx.Date.Year(), tx.Date.Month(), 1, 0, 0, 0, 0, time.UTC)
		if first.IsZero() || m.Before(first) {
			first = m
		}
		if last.IsZero() || m.After(last) {
			last = m
		}
	}

	points := []TrendPoint{}
	if first.IsZero() {
		return points
	}
	for m := first; !m.After(last); m = m.AddDate(0, 1, 0) {
		key := m.Format("2006-01")
		points = append(points, TrendPoint{Label: key, Amount: sums[key]})
	}
	return points
}

func weekly(txs []core.Transaction, today core.Date) []TrendPoint {
	points := make([]TrendPoint, trendWeeks)
	for i := range points {
		points[i] = TrendPoint{Label: fmt.Sprintf("Week %d", i+1), Amount: decimal.Zero}
	}
	for _, tx := range txs {
		amt, ok := trendAmount(tx)
		if !ok {
			continue
		}
		daysAgo := int(today.Sub(tx.Date.Time).Hours() / 24)
		if daysAgo < 0 || daysAgo >= trendWeeks*7 {
			continue
		}
		i := trendWeeks - 1 - daysAgo/7
		points[i].Amount = points[i].Amount.Add(amt)
	}
	return points
}

func dayOfWeek(txs []core.Transaction) []TrendPoint {
	points := make([]TrendPoint, len(weekdayLabels))
	for i, label := range weekdayLabels {
		points[i] = TrendPoint{Label: label, Amount: decimal.Zero}
	}
	for _, tx := range txs {
		amt, ok := trendAmount(tx)
		if !ok {
			continue
		}
		i := (int(tx.Date.Weekday()) + 6) % 7
		points[i].Amount = points[i].Amount.Add(amt)
	}
	return points
}
