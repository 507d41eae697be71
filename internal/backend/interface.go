package backend

import (
	"context"

	"tracker/internal/ledger"
	"tracker/internal/services"
)

// Store persists whole-ledger snapshots.
type Store interface {
	Load(ctx context.Context) (ledger.Snapshot, error)
	Save(ctx context.Context, snap ledger.Snapshot) error
}

// CleanupFunc releases resources held by a backend.
type CleanupFunc func() error

// BackendResult bundles the store, the optional event publisher and the
// ledger restored from the store.
type BackendResult struct {
	Store     Store
	Publisher services.EventPublisher
	Ledger    *ledger.Ledger
	Cleanup   CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// AMQP is optional for every backend type.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
