// Package report renders the ledger as downloadable XLSX workbooks and PDF
// statements.
package report

import (
	"time"

	"tracker/internal/core"
)

// Options controls report presentation.
type Options struct {
	Title     string
	Formatter core.Formatter
	Generated time.Time
}

func (o Options) withDefaults() Options {
	if o.Title == "" {
		o.Title = "Transaction Ledger"
	}
	if o.Generated.IsZero() {
		o.Generated = time.Now()
	}
	return o
}

// Summary holds the headline figures of a statement.
type Summary struct {
	Income   core.Money
	Expenses core.Money
	Balance  core.Money
}

// Summarize totals txs by type. Balance is income minus expenses.
func Summarize(txs []core.Transaction) Summary {
	var s Summary
	for _, tx := range txs {
		switch tx.Type {
		case core.KindExpense:
			s.Expenses = s.Expenses.Add(tx.Amount)
		case core.KindIncome:
			s.Income = s.Income.Add(tx.Amount)
		}
	}
	s.Balance = s.Income.Sub(s.Expenses)
	return s
}
