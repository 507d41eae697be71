package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"tracker/internal/core"
)

// Action names the ledger mutation an event describes.
type Action string

const (
	ActionAdded    Action = "added"
	ActionDeleted  Action = "deleted"
	ActionReplaced Action = "replaced"
)

// LedgerEvent carries one ledger mutation to the sync worker. Added events
// carry the full record so the worker needs no database access.
type LedgerEvent struct {
	Action      Action    `json:"action"`
	Type        core.Kind `json:"type"`
	ID          string    `json:"id,omitempty"`
	Date        string    `json:"date,omitempty"`
	Party       string    `json:"party,omitempty"`
	AmountCents int64     `json:"amount_cents"`
	Description string    `json:"description,omitempty"`
	Version     uint64    `json:"version"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewLedgerEvent builds an event for tx at the given ledger version.
func NewLedgerEvent(action Action, tx core.Transaction, version uint64) *LedgerEvent {
	return &LedgerEvent{
		Action:      action,
		Type:        tx.Type,
		ID:          tx.ID,
		Date:        tx.Date.String(),
		Party:       tx.Party,
		AmountCents: tx.Amount.Cents,
		Description: tx.Description,
		Version:     version,
		Timestamp:   time.Now().UTC(),
	}
}

// NewReplacedEvent announces that the whole kind sequence was replaced.
// Added events for the new rows follow it.
func NewReplacedEvent(kind core.Kind, version uint64) *LedgerEvent {
	return &LedgerEvent{
		Action:    ActionReplaced,
		Type:      kind,
		Version:   version,
		Timestamp: time.Now().UTC(),
	}
}

// Transaction rebuilds the ledger row carried by an added event.
func (m *LedgerEvent) Transaction() (core.Transaction, error) {
	date, err := core.ParseDate(m.Date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("event %s: %w", m.ID, err)
	}
	return core.Transaction{
		Type:        m.Type,
		ID:          m.ID,
		Date:        date,
		Party:       m.Party,
		Amount:      core.Money{Cents: m.AmountCents},
		Description: m.Description,
	}, nil
}

func (m *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventFromJSON decodes and sanity-checks an event body.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var msg LedgerEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Action {
	case ActionAdded, ActionDeleted, ActionReplaced:
	default:
		return nil, fmt.Errorf("unknown action %q", msg.Action)
	}
	if _, err := core.ParseKind(string(msg.Type)); err != nil {
		return nil, fmt.Errorf("event type %q: %w", msg.Type, err)
	}
	return &msg, nil
}
