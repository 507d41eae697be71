package backend

import (
	"context"
	"errors"
	"fmt"

	"tracker/internal/amqp"
	"tracker/internal/ledger"
	applog "tracker/internal/log"
	"tracker/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &DefaultFactory{logger: logger.WithComponent(applog.ComponentBackend)}
}

// CreateBackend opens the store, restores the ledger from it and connects
// the optional publisher.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		store   Store
		cleanup []func() error
	)
	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		store = repo
		cleanup = append(cleanup, repo.Close)
		f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	case MemoryBackend:
		store = MemoryStore{}
		f.logger.Info("Initialized memory backend")
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	snap, err := store.Load(ctx)
	if err != nil {
		closeAll(cleanup)
		return nil, fmt.Errorf("restore ledger: %w", err)
	}
	l := ledger.New()
	l.Restore(snap)
	f.logger.Info("Ledger restored",
		"expenses", len(snap.Expenses),
		"incomes", len(snap.Incomes),
		applog.FieldVersion, l.Version())

	result := &BackendResult{Store: store, Ledger: l}
	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without sync", applog.FieldError, err)
		} else {
			result.Publisher = client
			cleanup = append(cleanup, client.Close)
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}
	result.Cleanup = func() error { return closeAll(cleanup) }
	return result, nil
}

// closeAll runs cleanups in reverse order and joins their errors.
func closeAll(fns []func() error) error {
	var errs []error
	for i := len(fns) - 1; i >= 0; i-- {
		if err := fns[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// MemoryStore keeps nothing: the ledger lives only in process memory.
type MemoryStore struct{}

func (MemoryStore) Load(context.Context) (ledger.Snapshot, error) { return ledger.Snapshot{}, nil }

func (MemoryStore) Save(context.Context, ledger.Snapshot) error { return nil }
