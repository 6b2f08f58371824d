package sheets

import (
	"context"

	"lifeledger/internal/core"
)

// TransactionMirror keeps an external copy of the ledger's transactions.
// Implementations must treat Upsert and Remove as idempotent since change
// messages may be delivered more than once.
type TransactionMirror interface {
	Upsert(ctx context.Context, tx core.Transaction) error
	Remove(ctx context.Context, id string) error
	// IDs lists the transaction ids currently mirrored.
	IDs(ctx context.Context) ([]string, error)
}
