package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"tracker/internal/amqp"
	"tracker/internal/core"
	"tracker/internal/csvfile"
	"tracker/internal/ledger"
	applog "tracker/internal/log"
)

// SnapshotStore persists the whole ledger after every mutation.
type SnapshotStore interface {
	Save(ctx context.Context, snap ledger.Snapshot) error
}

// EventPublisher forwards ledger mutations to the sync worker.
type EventPublisher interface {
	Publish(ctx context.Context, ev *amqp.LedgerEvent) error
}

// LedgerService validates input at the boundary, applies it to the ledger
// and then saves a snapshot and publishes an event. Snapshot and publish
// failures are logged, never returned: the in-memory ledger is the source of
// truth for the session.
type LedgerService struct {
	ledger    *ledger.Ledger
	store     SnapshotStore
	publisher EventPublisher

	// Serializes mutations so the record captured for an event is the one
	// that was removed.
	mu sync.Mutex
}

// NewLedgerService wires a service. store and publisher may be nil.
func NewLedgerService(l *ledger.Ledger, store SnapshotStore, publisher EventPublisher) *LedgerService {
	return &LedgerService{ledger: l, store: store, publisher: publisher}
}

// Ledger exposes the underlying ledger for reads.
func (s *LedgerService) Ledger() *ledger.Ledger {
	return s.ledger
}

// AddExpense validates e and appends it.
func (s *LedgerService) AddExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	added := s.ledger.AddExpense(e.Date, e.Category, e.Amount, e.Description)
	slog.InfoContext(ctx, "Expense added", applog.NewFields().
		WithComponent(applog.ComponentLedger).
		WithOperation(applog.OpCreate).
		WithTransaction(string(core.KindExpense), added.ID, string(added.Category), added.Amount.Cents).
		ToSlice()...)

	s.afterMutation(ctx, amqp.ActionAdded, added.Transaction())
	return added, nil
}

// AddIncome validates in and appends it.
func (s *LedgerService) AddIncome(ctx context.Context, in core.Income) (core.Income, error) {
	if err := in.Validate(); err != nil {
		return core.Income{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	added := s.ledger.AddIncome(in.Date, in.Source, in.Amount, in.Description)
	slog.InfoContext(ctx, "Income added", applog.NewFields().
		WithComponent(applog.ComponentLedger).
		WithOperation(applog.OpCreate).
		WithTransaction(string(core.KindIncome), added.ID, added.Source, added.Amount.Cents).
		ToSlice()...)

	s.afterMutation(ctx, amqp.ActionAdded, added.Transaction())
	return added, nil
}

// DeleteAt removes the record at index. Later records shift down.
func (s *LedgerService) DeleteAt(ctx context.Context, kind core.Kind, index int) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.at(kind, index)
	if err := s.ledger.DeleteAt(kind, index); err != nil {
		return core.Transaction{}, err
	}
	if !ok {
		return core.Transaction{}, ledger.ErrInvalidIndex
	}
	s.logDelete(ctx, tx)
	s.afterMutation(ctx, amqp.ActionDeleted, tx)
	return tx, nil
}

// DeleteByID removes the record with the given stable identifier.
func (s *LedgerService) DeleteByID(ctx context.Context, kind core.Kind, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, ok := s.byID(kind, id)
	if err := s.ledger.DeleteByID(kind, id); err != nil {
		return core.Transaction{}, err
	}
	if !ok {
		return core.Transaction{}, ledger.ErrNotFound
	}
	s.logDelete(ctx, tx)
	s.afterMutation(ctx, amqp.ActionDeleted, tx)
	return tx, nil
}

// ImportExpenses replaces every expense with rows. Nothing is merged.
func (s *LedgerService) ImportExpenses(ctx context.Context, rows []core.Expense) []core.Expense {
	s.mu.Lock()
	defer s.mu.Unlock()

	loaded := s.ledger.LoadExpenses(rows)
	slog.InfoContext(ctx, "Expenses replaced from import",
		applog.FieldComponent, applog.ComponentLedger,
		applog.FieldOperation, applog.OpLoad,
		applog.FieldCount, len(loaded))

	s.persist(ctx)
	version := s.ledger.Version()
	s.publish(ctx, amqp.NewReplacedEvent(core.KindExpense, version))
	for _, e := range loaded {
		s.publish(ctx, amqp.NewLedgerEvent(amqp.ActionAdded, e.Transaction(), version))
	}
	return loaded
}

// ImportFile loads expenses from a CSV file on disk. A malformed file leaves
// the ledger unchanged.
func (s *LedgerService) ImportFile(ctx context.Context, path string) ([]core.Expense, error) {
	rows, err := csvfile.OpenExpenses(path)
	if err != nil {
		return nil, err
	}
	return s.ImportExpenses(ctx, rows), nil
}

// SaveFile writes the combined export to path.
func (s *LedgerService) SaveFile(ctx context.Context, path string) (int, error) {
	txs := s.ledger.ExportCombined()
	if err := csvfile.SaveFile(path, txs); err != nil {
		return 0, fmt.Errorf("save transactions: %w", err)
	}
	slog.InfoContext(ctx, "Transactions saved",
		applog.FieldComponent, applog.ComponentLedger,
		applog.FieldOperation, applog.OpSave,
		applog.FieldFile, path,
		applog.FieldCount, len(txs))
	return len(txs), nil
}

func (s *LedgerService) at(kind core.Kind, index int) (core.Transaction, bool) {
	switch kind {
	case core.KindExpense:
		items := s.ledger.Expenses()
		if index >= 0 && index < len(items) {
			return items[index].Transaction(), true
		}
	case core.KindIncome:
		items := s.ledger.Incomes()
		if index >= 0 && index < len(items) {
			return items[index].Transaction(), true
		}
	}
	return core.Transaction{}, false
}

func (s *LedgerService) byID(kind core.Kind, id string) (core.Transaction, bool) {
	for _, tx := range s.ledger.ExportCombined() {
		if tx.Type == kind && tx.ID == id {
			return tx, true
		}
	}
	return core.Transaction{}, false
}

func (s *LedgerService) logDelete(ctx context.Context, tx core.Transaction) {
	slog.InfoContext(ctx, "Transaction deleted", applog.NewFields().
		WithComponent(applog.ComponentLedger).
		WithOperation(applog.OpDelete).
		WithTransaction(string(tx.Type), tx.ID, tx.Party, tx.Amount.Cents).
		ToSlice()...)
}

func (s *LedgerService) afterMutation(ctx context.Context, action amqp.Action, tx core.Transaction) {
	s.persist(ctx)
	s.publish(ctx, amqp.NewLedgerEvent(action, tx, s.ledger.Version()))
}

func (s *LedgerService) persist(ctx context.Context) {
	if s.store == nil {
		return
	}
	if err := s.store.Save(ctx, s.ledger.Snapshot()); err != nil {
		slog.ErrorContext(ctx, "Failed to save ledger snapshot",
			applog.FieldComponent, applog.ComponentStorage,
			applog.FieldError, err)
	}
}

func (s *LedgerService) publish(ctx context.Context, ev *amqp.LedgerEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		level := slog.LevelError
		if errors.Is(err, amqp.ErrCircuitOpen) {
			level = slog.LevelWarn
		}
		slog.Log(ctx, level, "Failed to publish ledger event",
			applog.FieldComponent, applog.ComponentAMQP,
			applog.FieldAction, ev.Action,
			applog.FieldID, ev.ID,
			applog.FieldError, err)
	}
}
