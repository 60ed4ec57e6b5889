package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"pfm/internal/analytics"
)

const (
	sheetSummary    = "Summary"
	sheetCategories = "Categories"
	sheetTrends     = "Trends"
)

// WriteXLSX saves d as a workbook at path.
func WriteXLSX(path string, d analytics.Display) error {
	f, err := buildWorkbook(d)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving workbook: %w", err)
	}
	return nil
}

func writeXLSX(w io.Writer, d analytics.Display) error {
	f, err := buildWorkbook(d)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func buildWorkbook(d analytics.Display) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), sheetSummary); err != nil {
		return nil, err
	}

	summary := [][]any{
		{"Scope", d.Scope},
		{"Range (days)", d.RangeDays},
		{"Generated at", d.GeneratedAt.UTC().Format("2006-01-02 15:04:05")},
		{"Total expenses", d.TotalExpenses},
		{"Total income", d.TotalIncome},
		{"Net balance", d.NetBalance},
		{"Savings rate (%)", d.SavingsRate},
		{"Daily average", d.DailyAverage},
		{"Average per expense", d.AvgPerExpense},
		{"Lent", d.LoanLent},
		{"Received", d.LoanReceived},
		{"Net loans", d.NetLoan},
		{"Transactions", d.TransactionCount},
		{"Sample data", d.UsesFallbackData},
	}
	if err := setRows(f, sheetSummary, 1, summary); err != nil {
		return nil, err
	}

	if _, err := f.NewSheet(sheetCategories); err != nil {
		return nil, err
	}
	cats := [][]any{{"Category", "Amount", "Share (%)", "Count"}}
	for _, c := range d.ExpenseCategories {
		cats = append(cats, []any{c.Name, c.Amount, c.Share, c.Count})
	}
	if err := setRows(f, sheetCategories, 1, cats); err != nil {
		return nil, err
	}

	if _, err := f.NewSheet(sheetTrends); err != nil {
		return nil, err
	}
	trends := [][]any{{"Month", "Amount", "", "Week", "Amount", "", "Weekday", "Amount"}}
	n := max(len(d.MonthlyTrend), len(d.WeeklyTrend), len(d.DayOfWeekPattern))
	for i := range n {
		row := make([]any, 8)
		if i < len(d.MonthlyTrend) {
			row[0], row[1] = d.MonthlyTrend[i].Label, d.MonthlyTrend[i].Amount
		}
		if i < len(d.WeeklyTrend) {
			row[3], row[4] = d.WeeklyTrend[i].Label, d.WeeklyTrend[i].Amount
		}
		if i < len(d.DayOfWeekPattern) {
			row[6], row[7] = d.DayOfWeekPattern[i].Label, d.DayOfWeekPattern[i].Amount
		}
		trends = append(trends, row)
	}
	if err := setRows(f, sheetTrends, 1, trends); err != nil {
		return nil, err
	}
	return f, nil
}

func setRows(f *excelize.File, sheet string, startRow int, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, startRow+i)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("writing %s row %d: %w", sheet, startRow+i, err)
		}
	}
	return nil
}
