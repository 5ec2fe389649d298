package transaction

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository manages ledger entry persistence. Entries are append-mostly:
// the only mutation is the lockstep status advance alongside the parent
// transfer; amount and balance fields are never edited.
type Repository interface {
	Create(ctx context.Context, txn *Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error)
	GetByAccountID(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*Transaction, error)
	CountByAccountID(ctx context.Context, accountID uuid.UUID) (int64, error)
	GetByTransferID(ctx context.Context, transferID uuid.UUID) ([]*Transaction, error)

	// CompleteDebitsByTransferID advances the sender-side entries
	// (WITHDRAWAL/DEBIT/PAYMENT/FEE) of a transfer to COMPLETED.
	CompleteDebitsByTransferID(ctx context.Context, transferID uuid.UUID) error
	WithTx(tx pgx.Tx) Repository
}

// ErrTransactionNotFound indicates missing ledger entry
type ErrTransactionNotFound struct {
	TransactionID uuid.UUID
}

func (e ErrTransactionNotFound) Error() string {
	return "transaction not found: " + e.TransactionID.String()
}

// Is matches any ErrTransactionNotFound when the target carries a nil ID
func (e ErrTransactionNotFound) Is(target error) bool {
	t, ok := target.(ErrTransactionNotFound)
	if !ok {
		return false
	}
	if t.TransactionID == uuid.Nil {
		return true
	}
	return e.TransactionID == t.TransactionID
}
