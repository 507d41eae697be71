package worker

import (
	"context"
	"fmt"
	"log/slog"

	"tracker/internal/amqp"
	"tracker/internal/core"
	"tracker/internal/ledger"
	applog "tracker/internal/log"
	"tracker/internal/sheets"
)

// SnapshotLoader reads the persisted ledger for startup reconciliation.
type SnapshotLoader interface {
	Load(ctx context.Context) (ledger.Snapshot, error)
}

// SyncWorker mirrors ledger events into a TransactionSink.
type SyncWorker struct {
	sink   sheets.TransactionSink
	loader SnapshotLoader
}

// NewSyncWorker returns a worker writing to sink. loader may be nil, in
// which case StartupSyncCheck does nothing.
func NewSyncWorker(sink sheets.TransactionSink, loader SnapshotLoader) *SyncWorker {
	return &SyncWorker{sink: sink, loader: loader}
}

// HandleEvent applies one ledger event to the sink. It is an amqp.Handler.
func (w *SyncWorker) HandleEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	slog.InfoContext(ctx, "Processing ledger event",
		applog.FieldComponent, applog.ComponentWorker,
		applog.FieldAction, ev.Action,
		applog.FieldType, ev.Type,
		applog.FieldID, ev.ID,
		applog.FieldVersion, ev.Version)

	switch ev.Action {
	case amqp.ActionAdded:
		tx, err := ev.Transaction()
		if err != nil {
			return err
		}
		if err := w.sink.Append(ctx, tx); err != nil {
			return fmt.Errorf("append %s: %w", ev.ID, err)
		}
	case amqp.ActionDeleted:
		if err := w.sink.Delete(ctx, ev.Type, ev.ID); err != nil {
			return fmt.Errorf("delete %s: %w", ev.ID, err)
		}
	case amqp.ActionReplaced:
		if err := w.sink.Clear(ctx, ev.Type); err != nil {
			return fmt.Errorf("clear %s: %w", ev.Type, err)
		}
	default:
		return fmt.Errorf("unknown action %q", ev.Action)
	}
	return nil
}

// StartupSyncCheck reconciles the sink with the persisted snapshot,
// recovering from events lost while the worker was down: rows missing from
// the snapshot are deleted, then missing rows are appended. Rows already
// mirrored are skipped by the sink.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	if w.loader == nil {
		return nil
	}
	snap, err := w.loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("load snapshot for startup check: %w", err)
	}

	wanted := map[core.Kind][]core.Transaction{}
	for _, e := range snap.Expenses {
		wanted[core.KindExpense] = append(wanted[core.KindExpense], e.Transaction())
	}
	for _, in := range snap.Incomes {
		wanted[core.KindIncome] = append(wanted[core.KindIncome], in.Transaction())
	}

	var synced, removed, failed int
	for _, kind := range []core.Kind{core.KindExpense, core.KindIncome} {
		keep := make(map[string]bool, len(wanted[kind]))
		for _, tx := range wanted[kind] {
			keep[tx.ID] = true
		}

		ids, err := w.sink.IDs(ctx, kind)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to list mirrored rows",
				applog.FieldComponent, applog.ComponentWorker,
				applog.FieldType, kind,
				applog.FieldError, err)
			failed++
		}
		for _, id := range ids {
			if keep[id] {
				continue
			}
			if err := w.sink.Delete(ctx, kind, id); err != nil {
				slog.ErrorContext(ctx, "Failed to remove stale row",
					applog.FieldComponent, applog.ComponentWorker,
					applog.FieldID, id,
					applog.FieldError, err)
				failed++
				continue
			}
			removed++
		}

		for _, tx := range wanted[kind] {
			if err := w.sink.Append(ctx, tx); err != nil {
				slog.ErrorContext(ctx, "Failed to sync row during startup",
					applog.FieldComponent, applog.ComponentWorker,
					applog.FieldID, tx.ID,
					applog.FieldError, err)
				failed++
				continue
			}
			synced++
		}
	}

	slog.InfoContext(ctx, "Startup sync completed",
		applog.FieldComponent, applog.ComponentWorker,
		applog.FieldCount, synced+removed+failed,
		"synced", synced,
		"removed", removed,
		"errors", failed)
	return nil
}
