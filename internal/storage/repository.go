package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"pfm/internal/core"

	_ "modernc.org/sqlite"
)

// Fixed width so that text ordering is chronological.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Append implements ports.TransactionWriter
func (r *SQLiteRepository) Append(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	if err := r.queries.CreateTransaction(ctx, toRow(t)); err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", t.ID,
		"scope", t.Scope().Key(),
		"amount", t.Amount.String(),
		"date", t.Date.String())

	return t, nil
}

// FetchTransactions implements ports.TransactionFetcher
func (r *SQLiteRepository) FetchTransactions(ctx context.Context, scope core.Scope, start, end core.Date) ([]core.Transaction, error) {
	var (
		rows []Transaction
		err  error
	)
	switch {
	case scope.IsGroup():
		rows, err = r.queries.FetchGroupTransactions(ctx, scope.GroupID, start.String(), end.String())
	case scope.OwnerID != "":
		rows, err = r.queries.FetchPersonalTransactions(ctx, scope.OwnerID, start.String(), end.String())
	default:
		return nil, core.ErrInvalidScope
	}
	if err != nil {
		return nil, fmt.Errorf("fetch transactions for %s: %w", scope.Key(), err)
	}
	return fromRows(ctx, rows, start), nil
}

// ListRecent implements ports.TransactionLister
func (r *SQLiteRepository) ListRecent(ctx context.Context, scope core.Scope, limit int) ([]core.Transaction, error) {
	var (
		rows []Transaction
		err  error
	)
	switch {
	case scope.IsGroup():
		rows, err = r.queries.ListRecentGroup(ctx, scope.GroupID, int64(limit))
	case scope.OwnerID != "":
		rows, err = r.queries.ListRecentPersonal(ctx, scope.OwnerID, int64(limit))
	default:
		return nil, core.ErrInvalidScope
	}
	if err != nil {
		return nil, fmt.Errorf("list recent transactions for %s: %w", scope.Key(), err)
	}
	return fromRows(ctx, rows, core.Today()), nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row, err := r.queries.GetTransaction(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return fromRow(ctx, row).Normalize(core.Today()), nil
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	n, err := r.queries.UpdateTransaction(ctx, toRow(t))
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("transaction %s: %w", t.ID, core.ErrNotFound)
	}
	slog.InfoContext(ctx, "Transaction updated in SQLite", "id", t.ID)
	return nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id string) error {
	n, err := r.queries.DeleteTransaction(ctx, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
	}
	slog.InfoContext(ctx, "Transaction deleted from SQLite", "id", id)
	return nil
}

// ListOwners implements ports.OwnerLister
func (r *SQLiteRepository) ListOwners(ctx context.Context) ([]string, error) {
	owners, err := r.queries.ListPersonalOwners(ctx)
	if err != nil {
		return nil, fmt.Errorf("list owners: %w", err)
	}
	return owners, nil
}

func toRow(t core.Transaction) Transaction {
	return Transaction{
		ID:        t.ID,
		Amount:    sql.NullString{String: t.Amount.String(), Valid: true},
		Item:      nullString(t.Item),
		Category:  nullString(t.Category),
		Remarks:   nullString(t.Remarks),
		PaidBy:    nullString(t.Payer),
		Date:      nullString(t.Date.String()),
		UserID:    t.OwnerRef,
		GroupID:   nullString(t.GroupRef),
		CreatedAt: t.CreatedAt.UTC().Format(timeLayout),
	}
}

func fromRows(ctx context.Context, rows []Transaction, windowStart core.Date) []core.Transaction {
	out := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromRow(ctx, row).Normalize(windowStart))
	}
	return out
}

// fromRow maps a row to a raw record. Unparseable values count as missing.
func fromRow(ctx context.Context, row Transaction) core.RawTransaction {
	raw := core.RawTransaction{
		ID:       row.ID,
		Item:     stringPtr(row.Item),
		Category: stringPtr(row.Category),
		Remarks:  stringPtr(row.Remarks),
		Payer:    stringPtr(row.PaidBy),
		OwnerRef: row.UserID,
		GroupRef: row.GroupID.String,
	}
	if row.Amount.Valid {
		if d, err := decimal.NewFromString(strings.TrimSpace(row.Amount.String)); err == nil {
			raw.Amount = &d
		} else {
			slog.WarnContext(ctx, "Ignoring malformed amount", "id", row.ID, "amount", row.Amount.String)
		}
	}
	if row.Date.Valid {
		if d, err := core.ParseDate(row.Date.String); err == nil {
			raw.Date = &d
		} else {
			slog.WarnContext(ctx, "Ignoring malformed date", "id", row.ID, "date", row.Date.String)
		}
	}
	raw.CreatedAt = parseTime(row.CreatedAt)
	return raw
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
