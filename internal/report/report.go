// Package report renders an analytics snapshot for operators: a terminal
// table, JSON, YAML or an XLSX workbook.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"gopkg.in/yaml.v3"

	"pfm/internal/analytics"
)

type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatXLSX  Format = "xlsx"
)

var formats = []Format{FormatTable, FormatJSON, FormatYAML, FormatXLSX}

// Formats lists the accepted format names.
func Formats() []string {
	out := make([]string, len(formats))
	for i, f := range formats {
		out[i] = string(f)
	}
	return out
}

func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if !slices.Contains(formats, f) {
		return "", fmt.Errorf("unknown format %q (want one of %s)", s, strings.Join(Formats(), ", "))
	}
	return f, nil
}

// Write renders d to w. XLSX is binary and belongs in a file; see WriteXLSX.
func Write(w io.Writer, f Format, d analytics.Display) error {
	switch f {
	case FormatTable:
		PrintTable(w, d)
		return nil
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(d)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(d); err != nil {
			return err
		}
		return enc.Close()
	case FormatXLSX:
		return writeXLSX(w, d)
	default:
		return fmt.Errorf("unknown format %q", f)
	}
}

// PrintTable prints the headline figures followed by the category and payer
// breakdowns.
func PrintTable(w io.Writer, d analytics.Display) {
	fmt.Fprintf(w, "Scope %s, last %d days (%d transactions)\n", d.Scope, d.RangeDays, d.TransactionCount)
	if d.UsesFallbackData {
		fmt.Fprintln(w, text.FgYellow.Sprint("Sample data: the record store could not be read"))
	} else if d.FetchFailed {
		fmt.Fprintln(w, text.FgYellow.Sprint("The record store could not be read"))
	}
	fmt.Fprintln(w)

	summary := newTable(w)
	summary.AppendHeader(table.Row{"Metric", "Value"})
	summary.AppendRows([]table.Row{
		{"Total expenses", d.TotalExpenses},
		{"Total income", d.TotalIncome},
		{"Net balance", signed(d.NetBalance)},
		{"Savings rate", fmt.Sprintf("%d%%", d.SavingsRate)},
		{"Daily average", d.DailyAverage},
		{"Average per expense", d.AvgPerExpense},
		{"Lent", d.LoanLent},
		{"Received", d.LoanReceived},
		{"Net loans", signed(d.NetLoan)},
	})
	summary.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight}})
	summary.Render()

	if len(d.ExpenseCategories) > 0 {
		fmt.Fprintln(w)
		cats := newTable(w)
		cats.AppendHeader(table.Row{"Category", "Amount", "Share", "Count"})
		for _, c := range d.ExpenseCategories {
			cats.AppendRow(table.Row{c.Name, c.Amount, fmt.Sprintf("%d%%", c.Share), c.Count})
		}
		cats.AppendSeparator()
		cats.AppendFooter(table.Row{text.Bold.Sprint("Total"), text.Bold.Sprint(d.TotalExpenses), "", d.ExpenseCount})
		cats.SetColumnConfigs([]table.ColumnConfig{
			{Number: 2, Align: text.AlignRight},
			{Number: 3, Align: text.AlignRight},
			{Number: 4, Align: text.AlignRight},
		})
		cats.Render()
	}

	if len(d.UserBreakdown) > 0 {
		fmt.Fprintln(w)
		payers := newTable(w)
		payers.AppendHeader(table.Row{"Paid by", "Amount"})
		for _, p := range d.UserBreakdown {
			payers.AppendRow(table.Row{p.Label, p.Amount})
		}
		payers.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight}})
		payers.Render()
	}

	if d.TopExpenseTransaction != nil {
		t := d.TopExpenseTransaction
		fmt.Fprintf(w, "\nLargest expense: %s (%s) %d on %s, paid by %s\n", t.Item, t.Category, t.Amount, t.Date, t.Payer)
	}
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.Style().Format.Header = text.FormatDefault
	t.Style().Format.Footer = text.FormatDefault
	return t
}

func signed(n int64) string {
	if n > 0 {
		return fmt.Sprintf("+%d", n)
	}
	return fmt.Sprintf("%d", n)
}
