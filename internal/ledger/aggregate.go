package ledger

import (
	"cmp"
	"slices"

	"github.com/shopspring/decimal"

	"tracker/internal/core"
)

// ExpenseStatistics returns total, mean, max and min of expense amounts.
func (l *Ledger) ExpenseStatistics() (core.ExpenseStats, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.expenses) == 0 {
		return core.ExpenseStats{}, ErrEmptyLedger
	}
	amounts := make([]core.Money, len(l.expenses))
	for i, e := range l.expenses {
		amounts[i] = e.Amount
	}
	st := core.ExpenseStats{
		Stats: stats(amounts),
		Max:   amounts[0],
		Min:   amounts[0],
	}
	for _, a := range amounts[1:] {
		if a.Cents > st.Max.Cents {
			st.Max = a
		}
		if a.Cents < st.Min.Cents {
			st.Min = a
		}
	}
	return st, nil
}

// IncomeStatistics returns total and mean of income amounts.
func (l *Ledger) IncomeStatistics() (core.Stats, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.incomes) == 0 {
		return core.Stats{}, ErrEmptyLedger
	}
	amounts := make([]core.Money, len(l.incomes))
	for i, in := range l.incomes {
		amounts[i] = in.Amount
	}
	return stats(amounts), nil
}

func stats(amounts []core.Money) core.Stats {
	var total core.Money
	for _, a := range amounts {
		total = total.Add(a)
	}
	return core.Stats{
		Count: len(amounts),
		Total: total,
		Mean:  total.Decimal().Div(decimal.NewFromInt(int64(len(amounts)))),
	}
}

// RemainingBudget is total income minus total expenses. An empty sequence
// contributes zero, so this never fails.
func (l *Ledger) RemainingBudget() core.Money {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var budget core.Money
	for _, in := range l.incomes {
		budget = budget.Add(in.Amount)
	}
	for _, e := range l.expenses {
		budget = budget.Sub(e.Amount)
	}
	return budget
}

// CategoryTotals sums expense amounts per category present in the ledger.
func (l *Ledger) CategoryTotals() (map[core.Category]core.Money, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.expenses) == 0 {
		return nil, ErrEmptyLedger
	}
	totals := make(map[core.Category]core.Money)
	for _, e := range l.expenses {
		totals[e.Category] = totals[e.Category].Add(e.Amount)
	}
	return totals, nil
}

// SortedCategoryTotals is CategoryTotals ordered by amount descending, then
// by name, for chart rendering.
func (l *Ledger) SortedCategoryTotals() ([]core.CategoryAmount, error) {
	totals, err := l.CategoryTotals()
	if err != nil {
		return nil, err
	}
	return SortTotals(totals), nil
}

// SortTotals orders a category-totals map by amount descending, then by name.
func SortTotals(totals map[core.Category]core.Money) []core.CategoryAmount {
	out := make([]core.CategoryAmount, 0, len(totals))
	for c, m := range totals {
		out = append(out, core.CategoryAmount{Name: string(c), Amount: m})
	}
	slices.SortFunc(out, func(a, b core.CategoryAmount) int {
		if c := cmp.Compare(b.Amount.Cents, a.Amount.Cents); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return out
}
