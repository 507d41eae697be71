package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"tracker/internal/core"
	"tracker/internal/ledger"
	applog "tracker/internal/log"

	_ "modernc.org/sqlite"
)

// SQLiteRepository persists whole-ledger snapshots.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, queries: New(db)}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Load reads the stored snapshot. An empty database yields an empty snapshot.
func (r *SQLiteRepository) Load(ctx context.Context) (ledger.Snapshot, error) {
	var snap ledger.Snapshot

	expenses, err := r.queries.ListExpenses(ctx)
	if err != nil {
		return snap, fmt.Errorf("list expenses: %w", err)
	}
	for _, row := range expenses {
		date, err := core.ParseDate(row.Date)
		if err != nil {
			return snap, fmt.Errorf("expense %s: %w", row.ID, err)
		}
		snap.Expenses = append(snap.Expenses, core.Expense{
			ID:          row.ID,
			Date:        date,
			Category:    core.Category(row.Category),
			Amount:      core.Money{Cents: row.AmountCents},
			Description: row.Description,
		})
	}

	incomes, err := r.queries.ListIncomes(ctx)
	if err != nil {
		return snap, fmt.Errorf("list incomes: %w", err)
	}
	for _, row := range incomes {
		date, err := core.ParseDate(row.Date)
		if err != nil {
			return snap, fmt.Errorf("income %s: %w", row.ID, err)
		}
		snap.Incomes = append(snap.Incomes, core.Income{
			ID:          row.ID,
			Date:        date,
			Source:      row.Source,
			Amount:      core.Money{Cents: row.AmountCents},
			Description: row.Description,
		})
	}

	version, err := r.queries.GetVersion(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return snap, fmt.Errorf("get version: %w", err)
	}
	snap.Version = uint64(version)

	slog.InfoContext(ctx, "Ledger snapshot loaded",
		applog.FieldComponent, applog.ComponentStorage,
		"expenses", len(snap.Expenses),
		"incomes", len(snap.Incomes),
		applog.FieldVersion, snap.Version)
	return snap, nil
}

// Save replaces the stored ledger with snap in one transaction.
func (r *SQLiteRepository) Save(ctx context.Context, snap ledger.Snapshot) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	if err := q.DeleteAllExpenses(ctx); err != nil {
		return fmt.Errorf("clear expenses: %w", err)
	}
	if err := q.DeleteAllIncomes(ctx); err != nil {
		return fmt.Errorf("clear incomes: %w", err)
	}
	for i, e := range snap.Expenses {
		err := q.InsertExpense(ctx, ExpenseRow{
			ID:          e.ID,
			Position:    int64(i),
			Date:        e.Date.String(),
			Category:    string(e.Category),
			AmountCents: e.Amount.Cents,
			Description: e.Description,
		})
		if err != nil {
			return fmt.Errorf("insert expense %s: %w", e.ID, err)
		}
	}
	for i, in := range snap.Incomes {
		err := q.InsertIncome(ctx, IncomeRow{
			ID:          in.ID,
			Position:    int64(i),
			Date:        in.Date.String(),
			Source:      in.Source,
			AmountCents: in.Amount.Cents,
			Description: in.Description,
		})
		if err != nil {
			return fmt.Errorf("insert income %s: %w", in.ID, err)
		}
	}
	if err := q.UpsertMeta(ctx, int64(snap.Version), time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("update meta: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	slog.DebugContext(ctx, "Ledger snapshot saved",
		applog.FieldComponent, applog.ComponentStorage,
		applog.FieldVersion, snap.Version)
	return nil
}
