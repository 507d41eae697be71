package sheets

import (
	"context"

	"tracker/internal/core"
)

// TransactionSink mirrors ledger rows to an external store, one table per
// transaction kind. Implementations must tolerate redelivery: appending an
// ID that is already present and deleting an absent ID are both no-ops.
type TransactionSink interface {
	Append(ctx context.Context, tx core.Transaction) error
	Delete(ctx context.Context, kind core.Kind, id string) error
	Clear(ctx context.Context, kind core.Kind) error
	// IDs lists the mirrored IDs of one kind in row order.
	IDs(ctx context.Context, kind core.Kind) ([]string, error)
}
