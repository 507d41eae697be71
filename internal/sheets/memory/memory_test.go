package memory

import (
	"context"
	"testing"

	"tracker/internal/core"
)

func row(kind core.Kind, id string) core.Transaction {
	return core.Transaction{Type: kind, ID: id, Date: core.NewDate(2025, 1, 1), Party: "Food", Amount: core.Money{Cents: 100}}
}

func TestStoreAppendIsIdempotent(t *testing.T) {
	s := New()
	ctx := context.Background()
	for _, id := range []string{"a", "b", "a"} {
		if err := s.Append(ctx, row(core.KindExpense, id)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if got := s.Rows(core.KindExpense); len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
		t.Fatalf("unexpected rows %+v", got)
	}
	if len(s.Rows(core.KindIncome)) != 0 {
		t.Fatal("kinds must be kept apart")
	}
}

func TestStoreDeleteAndClear(t *testing.T) {
	s := New()
	ctx := context.Background()
	s.Append(ctx, row(core.KindExpense, "a"))
	s.Append(ctx, row(core.KindExpense, "b"))
	s.Append(ctx, row(core.KindIncome, "c"))

	if err := s.Delete(ctx, core.KindExpense, "a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(ctx, core.KindExpense, "missing"); err != nil {
		t.Fatalf("deleting an absent id should be a no-op: %v", err)
	}
	if got := s.Rows(core.KindExpense); len(got) != 1 || got[0].ID != "b" {
		t.Fatalf("unexpected rows %+v", got)
	}

	if err := s.Clear(ctx, core.KindExpense); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if len(s.Rows(core.KindExpense)) != 0 || len(s.Rows(core.KindIncome)) != 1 {
		t.Fatal("clear must only touch the selected kind")
	}
}

func TestStoreIDs(t *testing.T) {
	s := New()
	ctx := context.Background()
	s.Append(ctx, row(core.KindExpense, "a"))
	s.Append(ctx, row(core.KindExpense, "b"))
	s.Append(ctx, row(core.KindIncome, "c"))

	ids, err := s.IDs(ctx, core.KindExpense)
	if err != nil {
		t.Fatalf("ids: %v", err)
	}
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Fatalf("unexpected ids %v", ids)
	}
	if ids, _ := s.IDs(ctx, core.KindIncome); len(ids) != 1 || ids[0] != "c" {
		t.Fatalf("unexpected income ids %v", ids)
	}
}
