package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType doubles as the routing key on the topic exchange.
type EventType string

const (
	EventCreated EventType = "transaction.created"
	EventUpdated EventType = "transaction.updated"
	EventDeleted EventType = "transaction.deleted"
)

// BindingKey matches every transaction event.
const BindingKey = "transaction.*"

func (t EventType) Valid() bool {
	switch t {
	case EventCreated, EventUpdated, EventDeleted:
		return true
	}
	return false
}

// TransactionEvent only names the record; consumers read the current state
// from the store.
type TransactionEvent struct {
	Type      EventType `json:"type"`
	ID        string    `json:"id"`
	ScopeKey  string    `json:"scope_key"`
	Timestamp time.Time `json:"timestamp"`
}

func NewTransactionEvent(typ EventType, id, scopeKey string) *TransactionEvent {
	return &TransactionEvent{
		Type:      typ,
		ID:        id,
		ScopeKey:  scopeKey,
		Timestamp: time.Now().UTC(),
	}
}

func (m *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionEventFromJSON decodes and checks an event body.
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var msg TransactionEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if !msg.Type.Valid() {
		return nil, fmt.Errorf("unknown event type %q", msg.Type)
	}
	if msg.ID == "" {
		return nil, fmt.Errorf("event without transaction id")
	}
	return &msg, nil
}
