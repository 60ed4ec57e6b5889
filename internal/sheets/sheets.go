// Package sheets defines how records are mirrored into a spreadsheet: one
// row per record, keyed by the record id in the first column.
package sheets

import (
	"context"
	"strings"

	"pfm/internal/core"
)

// Exporter mirrors records into a spreadsheet.
type Exporter interface {
	// Upsert writes t into its row, appending one when the id is new.
	Upsert(ctx context.Context, t core.Transaction) error
	// Remove clears the row of id. Unknown ids are not an error.
	Remove(ctx context.Context, id string) error
}

// Header is the first row of the export sheet.
var Header = []any{"ID", "Date", "Item", "Category", "Amount", "Paid by", "Remarks", "Scope", "Created at"}

// Row renders t in Header order.
func Row(t core.Transaction) []any {
	created := ""
	if !t.CreatedAt.IsZero() {
		created = t.CreatedAt.UTC().Format("2006-01-02 15:04:05")
	}
	return []any{
		t.ID,
		t.Date.String(),
		t.Item,
		t.Category,
		core.FormatAmount(t.Amount),
		t.Payer,
		t.Remarks,
		t.Scope().Key(),
		created,
	}
}

// RowIndex returns the 1-based sheet row whose first cell is id, or 0.
// values is the content of column A starting at row 1.
func RowIndex(values [][]any, id string) int {
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		if cell, ok := row[0].(string); ok && strings.TrimSpace(cell) == id {
			return i + 1
		}
	}
	return 0
}
