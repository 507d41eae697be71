package worker

import (
	"context"
	"errors"
	"testing"

	"tracker/internal/amqp"
	"tracker/internal/core"
	"tracker/internal/ledger"
	"tracker/internal/sheets/memory"
)

func expense(id string, cents int64) core.Transaction {
	return core.Transaction{
		Type:   core.KindExpense,
		ID:     id,
		Date:   core.NewDate(2025, 3, 14),
		Party:  "Food",
		Amount: core.Money{Cents: cents},
	}
}

func TestHandleEvent(t *testing.T) {
	ctx := context.Background()
	sink := memory.New()
	w := NewSyncWorker(sink, nil)

	events := []*amqp.LedgerEvent{
		amqp.NewLedgerEvent(amqp.ActionAdded, expense("a", 100), 1),
		amqp.NewLedgerEvent(amqp.ActionAdded, expense("b", 200), 2),
		// Redelivery of an event already applied.
		amqp.NewLedgerEvent(amqp.ActionAdded, expense("a", 100), 1),
		amqp.NewLedgerEvent(amqp.ActionDeleted, expense("a", 100), 3),
	}
	for _, ev := range events {
		if err := w.HandleEvent(ctx, ev); err != nil {
			t.Fatalf("handle %s %s: %v", ev.Action, ev.ID, err)
		}
	}

	rows := sink.Rows(core.KindExpense)
	if len(rows) != 1 || rows[0].ID != "b" || rows[0].Amount.Cents != 200 {
		t.Fatalf("unexpected rows %+v", rows)
	}

	if err := w.HandleEvent(ctx, amqp.NewReplacedEvent(core.KindExpense, 4)); err != nil {
		t.Fatalf("replaced: %v", err)
	}
	if len(sink.Rows(core.KindExpense)) != 0 {
		t.Fatal("replaced event must clear the kind")
	}
}

func TestHandleEventErrors(t *testing.T) {
	w := NewSyncWorker(memory.New(), nil)

	bad := amqp.NewLedgerEvent(amqp.ActionAdded, expense("x", 1), 1)
	bad.Date = "14/03/2025"
	if err := w.HandleEvent(context.Background(), bad); !errors.Is(err, core.ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}

	unknown := amqp.NewLedgerEvent("renamed", expense("x", 1), 1)
	if err := w.HandleEvent(context.Background(), unknown); err == nil {
		t.Fatal("expected error for unknown action")
	}
}

type failingSink struct{ memory.Store }

func (f *failingSink) Append(context.Context, core.Transaction) error {
	return errors.New("quota exceeded")
}

func TestHandleEventPropagatesSinkErrors(t *testing.T) {
	w := NewSyncWorker(&failingSink{}, nil)
	err := w.HandleEvent(context.Background(), amqp.NewLedgerEvent(amqp.ActionAdded, expense("x", 1), 1))
	if err == nil {
		t.Fatal("sink errors must reach the consumer so the message is requeued")
	}
}

type staticLoader ledger.Snapshot

func (s staticLoader) Load(context.Context) (ledger.Snapshot, error) {
	return ledger.Snapshot(s), nil
}

func TestStartupSyncCheck(t *testing.T) {
	ctx := context.Background()
	sink := memory.New()
	snap := staticLoader{
		Expenses: []core.Expense{{ID: "e1", Date: core.NewDate(2025, 1, 1), Category: core.Food, Amount: core.Money{Cents: 5}}},
		Incomes:  []core.Income{{ID: "i1", Date: core.NewDate(2025, 1, 1), Source: "Salary", Amount: core.Money{Cents: 9}}},
	}
	w := NewSyncWorker(sink, snap)

	sink.Append(ctx, expense("e1", 5))
	if err := w.StartupSyncCheck(ctx); err != nil {
		t.Fatalf("startup check: %v", err)
	}
	if n := len(sink.Rows(core.KindExpense)); n != 1 {
		t.Fatalf("expected existing row to be kept once, got %d", n)
	}
	if rows := sink.Rows(core.KindIncome); len(rows) != 1 || rows[0].Party != "Salary" {
		t.Fatalf("unexpected income rows %+v", rows)
	}

	if err := NewSyncWorker(sink, nil).StartupSyncCheck(ctx); err != nil {
		t.Fatalf("nil loader: %v", err)
	}
}

func TestStartupSyncCheckRemovesStaleRows(t *testing.T) {
	ctx := context.Background()
	sink := memory.New()
	sink.Append(ctx, expense("gone", 1))
	sink.Append(ctx, expense("kept", 2))
	sink.Append(ctx, core.Transaction{Type: core.KindIncome, ID: "old-pay", Date: core.NewDate(2025, 1, 1), Party: "Salary"})

	snap := staticLoader{
		Expenses: []core.Expense{
			{ID: "kept", Date: core.NewDate(2025, 3, 14), Category: core.Food, Amount: core.Money{Cents: 2}},
			{ID: "new", Date: core.NewDate(2025, 3, 15), Category: core.Food, Amount: core.Money{Cents: 3}},
		},
	}
	if err := NewSyncWorker(sink, snap).StartupSyncCheck(ctx); err != nil {
		t.Fatalf("startup check: %v", err)
	}

	rows := sink.Rows(core.KindExpense)
	if len(rows) != 2 || rows[0].ID != "kept" || rows[1].ID != "new" {
		t.Fatalf("after reconcile expenses = %+v, want kept then new", rows)
	}
	if rows := sink.Rows(core.KindIncome); len(rows) != 0 {
		t.Fatalf("income missing from the snapshot must be removed, got %+v", rows)
	}
}
