package report

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"pfm/internal/analytics"
)

func sampleDisplay() analytics.Display {
	return analytics.Display{
		Scope:            "user:alice",
		RangeDays:        30,
		GeneratedAt:      time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC),
		TotalExpenses:    120,
		TotalIncome:      1000,
		NetBalance:       880,
		SavingsRate:      88,
		TransactionCount: 3,
		ExpenseCount:     2,
		IncomeCount:      1,
		ExpenseCategories: []analytics.DisplayCategory{
			{Name: "food", Amount: 80, Share: 67, Count: 1},
			{Name: "transport", Amount: 40, Share: 33, Count: 1},
		},
		UserBreakdown: []analytics.DisplayAmount{{Label: "Alice", Amount: 120}},
		MonthlyTrend:  []analytics.DisplayAmount{{Label: "2025-03", Amount: 1120}},
	}
}

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"table", "JSON", " yaml ", "xlsx"} {
		if _, err := ParseFormat(s); err != nil {
			t.Errorf("ParseFormat(%q) error = %v", s, err)
		}
	}
	if _, err := ParseFormat("csv"); err == nil {
		t.Error("ParseFormat(csv) should fail")
	}
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, FormatTable, sampleDisplay()); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"user:alice", "Total expenses", "food", "transport", "Alice", "88%"} {
		if !strings.Contains(out, want) {
			t.Errorf("table output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteJSONAndYAML(t *testing.T) {
	d := sampleDisplay()

	var buf bytes.Buffer
	if err := Write(&buf, FormatJSON, d); err != nil {
		t.Fatal(err)
	}
	var fromJSON map[string]any
	if err := json.Unmarshal(buf.Bytes(), &fromJSON); err != nil {
		t.Fatal(err)
	}
	if fromJSON["total_expenses"] != float64(120) {
		t.Errorf("json total_expenses = %v", fromJSON["total_expenses"])
	}

	buf.Reset()
	if err := Write(&buf, FormatYAML, d); err != nil {
		t.Fatal(err)
	}
	var fromYAML map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &fromYAML); err != nil {
		t.Fatal(err)
	}
	if fromYAML["scope"] != "user:alice" || fromYAML["savings_rate"] != 88 {
		t.Errorf("yaml = %v", fromYAML)
	}
}

func TestWriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")
	if err := WriteXLSX(path, sampleDisplay()); err != nil {
		t.Fatal(err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if got := f.GetSheetList(); strings.Join(got, ",") != "Summary,Categories,Trends" {
		t.Fatalf("sheets = %v", got)
	}
	rows, err := f.GetRows(sheetCategories)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 || rows[1][0] != "food" || rows[1][1] != "80" {
		t.Fatalf("category rows = %v", rows)
	}
	total, err := f.GetCellValue(sheetSummary, "B4")
	if err != nil || total != "120" {
		t.Fatalf("total expenses cell = %q, %v", total, err)
	}
}
