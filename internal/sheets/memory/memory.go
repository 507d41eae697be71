// Package memory is an in-process TransactionSink used when no remote
// spreadsheet is configured.
package memory

import (
	"context"
	"slices"
	"sync"

	"tracker/internal/core"
	ports "tracker/internal/sheets"
)

var _ ports.TransactionSink = (*Store)(nil)

type Store struct {
	mu   sync.Mutex
	rows map[core.Kind][]core.Transaction
}

func New() *Store {
	return &Store{rows: make(map[core.Kind][]core.Transaction)}
}

// Append stores tx unless a row with the same ID already exists.
func (s *Store) Append(_ context.Context, tx core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slices.ContainsFunc(s.rows[tx.Type], func(r core.Transaction) bool { return r.ID == tx.ID }) {
		return nil
	}
	s.rows[tx.Type] = append(s.rows[tx.Type], tx)
	return nil
}

func (s *Store) Delete(_ context.Context, kind core.Kind, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[kind] = slices.DeleteFunc(s.rows[kind], func(r core.Transaction) bool { return r.ID == id })
	return nil
}

func (s *Store) Clear(_ context.Context, kind core.Kind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, kind)
	return nil
}

func (s *Store) IDs(_ context.Context, kind core.Kind) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, len(s.rows[kind]))
	for i, r := range s.rows[kind] {
		ids[i] = r.ID
	}
	return ids, nil
}

// Rows returns a copy of the mirrored rows of one kind.
func (s *Store) Rows(kind core.Kind) []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.rows[kind])
}
