package ledger

import (
	"slices"

	"tracker/internal/core"
)

// Snapshot is a point-in-time copy of both sequences.
type Snapshot struct {
	Expenses []core.Expense
	Incomes  []core.Income
	Version  uint64
}

// Snapshot copies the current state.
func (l *Ledger) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return Snapshot{
		Expenses: slices.Clone(l.expenses),
		Incomes:  slices.Clone(l.incomes),
		Version:  l.version,
	}
}

// Restore replaces both sequences with the snapshot contents. Records
// without an ID get a fresh one. The version moves past both the current
// and the snapshot version.
func (l *Ledger) Restore(s Snapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.expenses = make([]core.Expense, len(s.Expenses))
	for i, e := range s.Expenses {
		if e.ID == "" {
			e.ID = l.newID()
		}
		l.expenses[i] = e
	}
	l.incomes = make([]core.Income, len(s.Incomes))
	for i, in := range s.Incomes {
		if in.ID == "" {
			in.ID = l.newID()
		}
		l.incomes[i] = in
	}
	l.version = max(l.version, s.Version) + 1
}
