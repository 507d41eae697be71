package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type ExpenseRow struct {
	ID          string
	Position    int64
	Date        string
	Category    string
	AmountCents int64
	Description string
}

type IncomeRow struct {
	ID          string
	Position    int64
	Date        string
	Source      string
	AmountCents int64
	Description string
}

const listExpenses = `SELECT id, position, date, category, amount_cents, description
FROM expenses ORDER BY position`

func (q *Queries) ListExpenses(ctx context.Context) ([]ExpenseRow, error) {
	rows, err := q.db.QueryContext(ctx, listExpenses)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ExpenseRow
	for rows.Next() {
		var i ExpenseRow
		if err := rows.Scan(&i.ID, &i.Position, &i.Date, &i.Category, &i.AmountCents, &i.Description); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	return items, rows.Err()
}

const listIncomes = `SELECT id, position, date, source, amount_cents, description
FROM incomes ORDER BY position`

func (q *Queries) ListIncomes(ctx context.Context) ([]IncomeRow, error) {
	rows, err := q.db.QueryContext(ctx, listIncomes)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []IncomeRow
	for rows.Next() {
		var i IncomeRow
		if err := rows.Scan(&i.ID, &i.Position, &i.Date, &i.Source, &i.AmountCents, &i.Description); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	return items, rows.Err()
}

const deleteAllExpenses = `DELETE FROM expenses`

func (q *Queries) DeleteAllExpenses(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteAllExpenses)
	return err
}

const deleteAllIncomes = `DELETE FROM incomes`

func (q *Queries) DeleteAllIncomes(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteAllIncomes)
	return err
}

const insertExpense = `INSERT INTO expenses (id, position, date, category, amount_cents, description)
VALUES (?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertExpense(ctx context.Context, arg ExpenseRow) error {
	_, err := q.db.ExecContext(ctx, insertExpense, arg.ID, arg.Position, arg.Date, arg.Category, arg.AmountCents, arg.Description)
	return err
}

const insertIncome = `INSERT INTO incomes (id, position, date, source, amount_cents, description)
VALUES (?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertIncome(ctx context.Context, arg IncomeRow) error {
	_, err := q.db.ExecContext(ctx, insertIncome, arg.ID, arg.Position, arg.Date, arg.Source, arg.AmountCents, arg.Description)
	return err
}

const upsertMeta = `INSERT INTO ledger_meta (id, version, saved_at) VALUES (1, ?, ?)
ON CONFLICT(id) DO UPDATE SET version = excluded.version, saved_at = excluded.saved_at`

func (q *Queries) UpsertMeta(ctx context.Context, version int64, savedAt string) error {
	_, err := q.db.ExecContext(ctx, upsertMeta, version, savedAt)
	return err
}

const getVersion = `SELECT version FROM ledger_meta WHERE id = 1`

func (q *Queries) GetVersion(ctx context.Context) (int64, error) {
	var v int64
	err := q.db.QueryRowContext(ctx, getVersion).Scan(&v)
	return v, err
}
