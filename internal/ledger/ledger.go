// Package ledger holds the in-memory transaction ledger: two ordered
// sequences of expenses and incomes with positional and ID-based removal,
// category filtering, aggregates and a combined export.
package ledger

import (
	"errors"
	"iter"
	"slices"
	"sync"

	"github.com/google/uuid"

	"tracker/internal/core"
)

var (
	// ErrInvalidIndex is returned by DeleteAt for out-of-range positions.
	ErrInvalidIndex = errors.New("invalid index")
	// ErrEmptyLedger is returned by aggregates over an empty sequence.
	ErrEmptyLedger = errors.New("empty ledger")
	// ErrNotFound is returned by DeleteByID for unknown identifiers.
	ErrNotFound = errors.New("transaction not found")
)

// Ledger owns the Expenses and Income sequences. The zero value is not
// usable; construct it with New. Safe for concurrent use.
type Ledger struct {
	mu       sync.RWMutex
	expenses []core.Expense
	incomes  []core.Income
	version  uint64
	newID    func() string
}

// Option customizes a Ledger.
type Option func(*Ledger)

// WithIDGenerator replaces the UUID generator, mostly for tests.
func WithIDGenerator(gen func() string) Option {
	return func(l *Ledger) {
		l.newID = gen
	}
}

// New returns an empty ledger.
func New(opts ...Option) *Ledger {
	l := &Ledger{newID: uuid.NewString}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Version increases by one on every mutation.
func (l *Ledger) Version() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.version
}

// AddExpense appends an expense. Amount and category are not checked here;
// callers validate at the input boundary.
func (l *Ledger) AddExpense(date core.Date, category core.Category, amount core.Money, description string) core.Expense {
	l.mu.Lock()
	defer l.mu.Unlock()
	e := core.Expense{
		ID:          l.newID(),
		Date:        date,
		Category:    category,
		Amount:      amount,
		Description: description,
	}
	l.expenses = append(l.expenses, e)
	l.version++
	return e
}

// AddIncome appends an income.
func (l *Ledger) AddIncome(date core.Date, source string, amount core.Money, description string) core.Income {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := core.Income{
		ID:          l.newID(),
		Date:        date,
		Source:      source,
		Amount:      amount,
		Description: description,
	}
	l.incomes = append(l.incomes, i)
	l.version++
	return i
}

// DeleteAt removes the record at index from the selected sequence. Later
// records shift down by one, so an index names a different record after
// any deletion before it.
func (l *Ledger) DeleteAt(kind core.Kind, index int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch kind {
	case core.KindExpense:
		if index < 0 || index >= len(l.expenses) {
			return ErrInvalidIndex
		}
		l.expenses = slices.Delete(l.expenses, index, index+1)
	case core.KindIncome:
		if index < 0 || index >= len(l.incomes) {
			return ErrInvalidIndex
		}
		l.incomes = slices.Delete(l.incomes, index, index+1)
	default:
		return core.ErrUnknownKind
	}
	l.version++
	return nil
}

// DeleteByID removes the record with the given stable identifier.
func (l *Ledger) DeleteByID(kind core.Kind, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch kind {
	case core.KindExpense:
		i := slices.IndexFunc(l.expenses, func(e core.Expense) bool { return e.ID == id })
		if i < 0 {
			return ErrNotFound
		}
		l.expenses = slices.Delete(l.expenses, i, i+1)
	case core.KindIncome:
		i := slices.IndexFunc(l.incomes, func(in core.Income) bool { return in.ID == id })
		if i < 0 {
			return ErrNotFound
		}
		l.incomes = slices.Delete(l.incomes, i, i+1)
	default:
		return core.ErrUnknownKind
	}
	l.version++
	return nil
}

// FilterByCategory returns the expenses whose category equals category, in
// ledger order. The sequence is evaluated lazily over a copy taken now, so
// it can be ranged over any number of times. ok is false when there are no
// expenses at all, which callers report differently from "no matches".
func (l *Ledger) FilterByCategory(category core.Category) (seq iter.Seq[core.Expense], ok bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.expenses) == 0 {
		return nil, false
	}
	items := slices.Clone(l.expenses)
	return func(yield func(core.Expense) bool) {
		for _, e := range items {
			if e.Category != category {
				continue
			}
			if !yield(e) {
				return
			}
		}
	}, true
}

// Expenses returns a copy of the expense sequence.
func (l *Ledger) Expenses() []core.Expense {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.expenses)
}

// Incomes returns a copy of the income sequence.
func (l *Ledger) Incomes() []core.Income {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.incomes)
}

// Len returns the length of the selected sequence.
func (l *Ledger) Len(kind core.Kind) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if kind == core.KindIncome {
		return len(l.incomes)
	}
	return len(l.expenses)
}

// LoadExpenses replaces the whole expense sequence with rows. Nothing is
// merged: the previous expenses are dropped. Categories are not checked.
// Rows without an ID get a fresh one.
func (l *Ledger) LoadExpenses(rows []core.Expense) []core.Expense {
	l.mu.Lock()
	defer l.mu.Unlock()
	loaded := make([]core.Expense, len(rows))
	for i, e := range rows {
		if e.ID == "" {
			e.ID = l.newID()
		}
		loaded[i] = e
	}
	l.expenses = loaded
	l.version++
	return slices.Clone(loaded)
}

// ExportCombined returns every expense followed by every income, tagged
// with its type.
func (l *Ledger) ExportCombined() []core.Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]core.Transaction, 0, len(l.expenses)+len(l.incomes))
	for _, e := range l.expenses {
		out = append(out, e.Transaction())
	}
	for _, i := range l.incomes {
		out = append(out, i.Transaction())
	}
	return out
}
