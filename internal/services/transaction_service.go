package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"pfm/internal/amqp"
	"pfm/internal/core"
	applog "pfm/internal/log"
	"pfm/internal/ports"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// TransactionStore is the record store surface used for manual entry.
type TransactionStore interface {
	ports.TransactionWriter
	ports.TransactionEditor
	ports.TransactionLister
}

// TransactionService validates, persists and announces record changes.
// Events are best effort: a failed publish is logged and the write stands.
type TransactionService struct {
	store   TransactionStore
	members MembershipChecker
	events  EventPublisher
	parser  TextParser
	logger  *applog.Logger
	now     func() time.Time
}

// NewTransactionService wires the service. events and parser may be nil.
func NewTransactionService(store TransactionStore, members MembershipChecker, events EventPublisher, parser TextParser, logger *applog.Logger) *TransactionService {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &TransactionService{
		store:   store,
		members: members,
		events:  events,
		parser:  parser,
		logger:  logger.WithComponent(applog.ComponentTransactions),
		now:     time.Now,
	}
}

// Create stores a new record of scope. Missing fields get the ingestion
// defaults with today as the date.
func (s *TransactionService) Create(ctx context.Context, viewer Viewer, scope core.Scope, raw core.RawTransaction) (core.Transaction, error) {
	if err := authorize(ctx, s.members, viewer, scope); err != nil {
		return core.Transaction{}, err
	}
	return s.create(ctx, viewer, scope, raw)
}

func (s *TransactionService) create(ctx context.Context, viewer Viewer, scope core.Scope, raw core.RawTransaction) (core.Transaction, error) {
	now := s.now().UTC()
	raw.ID = uuid.NewString()
	raw.OwnerRef = viewer.UserID
	raw.GroupRef = scope.GroupID
	raw.CreatedAt = now

	t := raw.Normalize(core.DateOf(now))
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	saved, err := s.store.Append(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	s.logger.InfoContext(ctx, "Transaction created", applog.NewFields().
		WithTransaction(saved.ID, core.FormatAmount(saved.Amount), saved.Category).
		WithScope(scope.Key()).ToSlice()...)
	s.publish(ctx, amqp.EventCreated, saved)
	return saved, nil
}

// Update applies the set fields of patch to record id. Ownership and scope
// never change.
func (s *TransactionService) Update(ctx context.Context, viewer Viewer, id string, patch core.RawTransaction) (core.Transaction, error) {
	existing, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return core.Transaction{}, err
	}
	if err := authorize(ctx, s.members, viewer, existing.Scope()); err != nil {
		return core.Transaction{}, err
	}

	updated := existing
	if patch.Amount != nil {
		updated.Amount = *patch.Amount
	}
	if patch.Item != nil {
		updated.Item = *patch.Item
	}
	if patch.Category != nil {
		updated.Category = *patch.Category
	}
	if patch.Remarks != nil {
		updated.Remarks = *patch.Remarks
	}
	if patch.Payer != nil {
		updated.Payer = *patch.Payer
	}
	if patch.Date != nil {
		updated.Date = *patch.Date
	}
	updated.Item = strings.TrimSpace(updated.Item)
	updated.Category = strings.TrimSpace(updated.Category)
	updated.Remarks = strings.TrimSpace(updated.Remarks)
	if updated.Payer = strings.TrimSpace(updated.Payer); updated.Payer == "" {
		updated.Payer = core.UnknownPayer
	}

	if err := updated.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if err := s.store.UpdateTransaction(ctx, updated); err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}

	s.logger.InfoContext(ctx, "Transaction updated", applog.FieldTransactionID, id, applog.FieldScope, updated.Scope().Key())
	s.publish(ctx, amqp.EventUpdated, updated)
	return updated, nil
}

func (s *TransactionService) Delete(ctx context.Context, viewer Viewer, id string) error {
	existing, err := s.store.GetTransaction(ctx, id)
	if err != nil {
		return err
	}
	if err := authorize(ctx, s.members, viewer, existing.Scope()); err != nil {
		return err
	}
	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	s.logger.InfoContext(ctx, "Transaction deleted", applog.FieldTransactionID, id, applog.FieldScope, existing.Scope().Key())
	s.publish(ctx, amqp.EventDeleted, existing)
	return nil
}

// List returns the newest records of scope. limit is clamped to
// [1, MaxListLimit]; zero means DefaultListLimit.
func (s *TransactionService) List(ctx context.Context, viewer Viewer, scope core.Scope, limit int) ([]core.Transaction, error) {
	if err := authorize(ctx, s.members, viewer, scope); err != nil {
		return nil, err
	}
	switch {
	case limit <= 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}
	txs, err := s.store.ListRecent(ctx, scope, limit)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	return txs, nil
}

// ChatResult is the outcome of one chat message.
type ChatResult struct {
	Reply        string             `json:"reply"`
	Transactions []core.Transaction `json:"expenses"`
}

// RecordFromText sends text to the parser and stores every record it finds
// in scope, dated today. payer is used when the parser names nobody.
func (s *TransactionService) RecordFromText(ctx context.Context, viewer Viewer, scope core.Scope, payer, text string) (ChatResult, error) {
	if err := authorize(ctx, s.members, viewer, scope); err != nil {
		return ChatResult{}, err
	}
	if s.parser == nil {
		return ChatResult{}, fmt.Errorf("%w: no parser configured", ErrParserUnavailable)
	}

	res, err := s.parser.Parse(ctx, text)
	if err != nil {
		s.logger.WarnContext(ctx, "Parser call failed", "error", err, applog.FieldScope, scope.Key())
		return ChatResult{}, err
	}

	today := core.DateOf(s.now())
	out := ChatResult{Reply: res.Reply, Transactions: make([]core.Transaction, 0, len(res.Expenses))}
	for _, e := range res.Expenses {
		t, err := s.create(ctx, viewer, scope, e.Raw(scope, payer, today))
		if err != nil {
			return out, fmt.Errorf("record parsed expense %d: %w", len(out.Transactions)+1, err)
		}
		out.Transactions = append(out.Transactions, t)
	}
	return out, nil
}

func (s *TransactionService) publish(ctx context.Context, typ amqp.EventType, t core.Transaction) {
	if s.events == nil {
		return
	}
	evt := amqp.NewTransactionEvent(typ, t.ID, t.Scope().Key())
	if err := s.events.PublishTransactionEvent(ctx, evt); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish transaction event",
			"error", err,
			applog.FieldEventType, typ,
			applog.FieldTransactionID, t.ID)
	}
}
