package ledger

import (
	"errors"
	"reflect"
	"testing"

	"tracker/internal/core"
)

func TestExpenseStatistics(t *testing.T) {
	l := New()
	for _, c := range []int64{1000, 2000, 3000} {
		l.AddExpense(day(1), core.Food, cents(c), "")
	}
	st, err := l.ExpenseStatistics()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.Total.Cents != 6000 || st.Max.Cents != 3000 || st.Min.Cents != 1000 || st.Count != 3 {
		t.Fatalf("unexpected stats %+v", st)
	}
	if st.Mean.String() != "20" {
		t.Fatalf("expected mean 20, got %s", st.Mean)
	}
}

func TestStatisticsOnEmpty(t *testing.T) {
	l := New()
	if _, err := l.ExpenseStatistics(); !errors.Is(err, ErrEmptyLedger) {
		t.Fatalf("expected ErrEmptyLedger, got %v", err)
	}
	if _, err := l.IncomeStatistics(); !errors.Is(err, ErrEmptyLedger) {
		t.Fatalf("expected ErrEmptyLedger, got %v", err)
	}
}

func TestIncomeStatistics(t *testing.T) {
	l := New()
	l.AddIncome(day(1), "Salary", cents(100), "")
	l.AddIncome(day(2), "Gift", cents(50), "")
	st, err := l.IncomeStatistics()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.Total.Cents != 150 || st.Mean.String() != "0.75" {
		t.Fatalf("unexpected stats total=%d mean=%s", st.Total.Cents, st.Mean)
	}
}

func TestRemainingBudget(t *testing.T) {
	l := New()
	if got := l.RemainingBudget(); got.Cents != 0 {
		t.Fatalf("empty ledger budget should be 0, got %d", got.Cents)
	}
	l.AddExpense(day(1), core.Food, cents(5000), "")
	if got := l.RemainingBudget(); got.Cents != -5000 {
		t.Fatalf("expected -50.00, got %d cents", got.Cents)
	}
	l.AddIncome(day(1), "Salary", cents(12000), "")
	if got := l.RemainingBudget(); got.Cents != 7000 {
		t.Fatalf("expected 70.00, got %d cents", got.Cents)
	}
}

func TestCategoryTotals(t *testing.T) {
	l := New()
	if _, err := l.CategoryTotals(); !errors.Is(err, ErrEmptyLedger) {
		t.Fatalf("expected ErrEmptyLedger, got %v", err)
	}
	l.AddExpense(day(1), core.Food, cents(1000), "")
	l.AddExpense(day(2), core.Food, cents(500), "")
	l.AddExpense(day(3), core.Transport, cents(2000), "")

	got, err := l.CategoryTotals()
	if err != nil {
		t.Fatalf("totals: %v", err)
	}
	want := map[core.Category]core.Money{core.Food: cents(1500), core.Transport: cents(2000)}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	sorted, err := l.SortedCategoryTotals()
	if err != nil {
		t.Fatalf("sorted: %v", err)
	}
	if len(sorted) != 2 || sorted[0].Name != "Transport" || sorted[1].Name != "Food" {
		t.Fatalf("unexpected order %+v", sorted)
	}
}

func TestSortTotalsTiesByName(t *testing.T) {
	got := SortTotals(map[core.Category]core.Money{core.Shopping: cents(5), core.Medical: cents(5), core.Other: cents(9)})
	names := []string{got[0].Name, got[1].Name, got[2].Name}
	want := []string{"Other", "Medical", "Shopping"}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("expected %v, got %v", want, names)
	}
}
