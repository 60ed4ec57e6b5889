// Package worker mirrors transaction events into the spreadsheet export.
package worker

import (
	"context"
	"errors"
	"fmt"

	"pfm/internal/amqp"
	"pfm/internal/core"
	applog "pfm/internal/log"
	"pfm/internal/ports"
	"pfm/internal/sheets"
)

// SyncWorker consumes transaction events and keeps the export sheet in line
// with the store.
type SyncWorker struct {
	store    ports.TransactionEditor
	exporter sheets.Exporter
	logger   *applog.Logger
}

func NewSyncWorker(store ports.TransactionEditor, exporter sheets.Exporter, logger *applog.Logger) *SyncWorker {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &SyncWorker{
		store:    store,
		exporter: exporter,
		logger:   logger.WithComponent(applog.ComponentWorker),
	}
}

// Handle is an amqp.Handler. A record that no longer exists by the time a
// created or updated event arrives is removed from the sheet.
func (w *SyncWorker) Handle(ctx context.Context, evt *amqp.TransactionEvent) error {
	w.logger.InfoContext(ctx, "Processing transaction event",
		applog.FieldEventType, string(evt.Type),
		applog.FieldTransactionID, evt.ID,
		applog.FieldScope, evt.ScopeKey)

	switch evt.Type {
	case amqp.EventCreated, amqp.EventUpdated:
		t, err := w.store.GetTransaction(ctx, evt.ID)
		if errors.Is(err, core.ErrNotFound) {
			return w.remove(ctx, evt.ID)
		}
		if err != nil {
			return fmt.Errorf("get transaction %s: %w", evt.ID, err)
		}
		if err := w.exporter.Upsert(ctx, t); err != nil {
			w.logger.ErrorContext(ctx, "Failed to export transaction",
				applog.FieldTransactionID, evt.ID, applog.FieldError, err)
			return fmt.Errorf("export transaction %s: %w", evt.ID, err)
		}
		return nil
	case amqp.EventDeleted:
		return w.remove(ctx, evt.ID)
	default:
		return fmt.Errorf("unknown event type %q", evt.Type)
	}
}

func (w *SyncWorker) remove(ctx context.Context, id string) error {
	if err := w.exporter.Remove(ctx, id); err != nil {
		w.logger.ErrorContext(ctx, "Failed to remove exported transaction",
			applog.FieldTransactionID, id, applog.FieldError, err)
		return fmt.Errorf("remove transaction %s: %w", id, err)
	}
	return nil
}
