package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"pfm/internal/amqp"
	"pfm/internal/parser"
	"pfm/internal/storage/memory"
)

var fixedNow = time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*amqp.TransactionEvent
	err    error
}

func (p *recordingPublisher) PublishTransactionEvent(_ context.Context, evt *amqp.TransactionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return p.err
}

func (p *recordingPublisher) types() []amqp.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]amqp.EventType, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type stubParser struct {
	res *parser.Result
	err error
}

func (p stubParser) Parse(context.Context, string) (*parser.Result, error) {
	return p.res, p.err
}

func ptr[T any](v T) *T { return &v }

func amount(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

type fixture struct {
	store  *memory.Store
	groups *GroupService
	txs    *TransactionService
	events *recordingPublisher
}

func newFixture(t *testing.T, p TextParser) *fixture {
	t.Helper()
	store := memory.New()
	groups := NewGroupService(store, time.Minute, nil)
	groups.now = func() time.Time { return fixedNow }
	events := &recordingPublisher{}
	txs := NewTransactionService(store, groups, events, p, nil)
	txs.now = func() time.Time { return fixedNow }
	return &fixture{store: store, groups: groups, txs: txs, events: events}
}

var (
	alice = Viewer{UserID: "alice", Email: "alice@example.com"}
	bob   = Viewer{UserID: "bob", Email: "Bob@Example.com"}
)
