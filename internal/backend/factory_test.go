package backend

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"tracker/internal/config"
	"tracker/internal/core"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"memory", Config{Type: MemoryBackend}, ""},
		{"sqlite", Config{Type: SQLiteBackend, SQLiteDBPath: "x.db"}, ""},
		{"sqlite without path", Config{Type: SQLiteBackend}, "database path"},
		{"unknown", Config{Type: "sheets"}, "invalid backend type"},
		{"amqp without queue", Config{Type: MemoryBackend, AMQPURL: "amqp://x", AMQPExchange: "e"}, "AMQP exchange and queue"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
	cfg, err := FromAppConfig(&config.Config{DataBackend: "sqlite", SQLiteDBPath: "db.sqlite", AMQPURL: "amqp://h"})
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if cfg.Type != SQLiteBackend || cfg.SQLiteDBPath != "db.sqlite" || cfg.AMQPURL != "amqp://h" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "postgres"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestCreateMemoryBackend(t *testing.T) {
	res, err := NewFactory(nil).CreateBackend(context.Background(), Config{Type: MemoryBackend})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer res.Cleanup()
	if res.Publisher != nil {
		t.Fatal("publisher must be nil without AMQP URL")
	}
	if res.Ledger.Len(core.KindExpense) != 0 {
		t.Fatal("memory backend starts empty")
	}
}

func TestCreateSQLiteBackendRestoresLedger(t *testing.T) {
	ctx := context.Background()
	cfg := Config{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(t.TempDir(), "ledger.db")}

	first, err := NewFactory(nil).CreateBackend(ctx, cfg)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	first.Ledger.AddExpense(core.NewDate(2025, 2, 1), core.Food, core.Money{Cents: 420}, "pizza")
	if err := first.Store.Save(ctx, first.Ledger.Snapshot()); err != nil {
		t.Fatalf("save: %v", err)
	}
	version := first.Ledger.Version()
	if err := first.Cleanup(); err != nil {
		t.Fatalf("cleanup: %v", err)
	}

	second, err := NewFactory(nil).CreateBackend(ctx, cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Cleanup()
	got := second.Ledger.Expenses()
	if len(got) != 1 || got[0].Description != "pizza" || got[0].Amount.Cents != 420 {
		t.Fatalf("unexpected restored expenses %+v", got)
	}
	if second.Ledger.Version() <= version {
		t.Fatalf("restored version %d must move past %d", second.Ledger.Version(), version)
	}
}
