package transfer

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines transfer persistence operations
type Repository interface {
	Create(ctx context.Context, transfer *Transfer) error
	GetByID(ctx context.Context, id uuid.UUID) (*Transfer, error)
	GetByReference(ctx context.Context, reference string) (*Transfer, error)

	// LockForUpdate acquires a pessimistic row lock on the transfer. Both the
	// completion path and administrative paths take it before re-checking
	// status, which serializes their race.
	LockForUpdate(ctx context.Context, id uuid.UUID) (*Transfer, error)
	Update(ctx context.Context, transfer *Transfer) error
	WithTx(tx pgx.Tx) Repository
}

// ErrTransferNotFound indicates missing transfer
type ErrTransferNotFound struct {
	TransferID uuid.UUID
}

func (e ErrTransferNotFound) Error() string {
	return "transfer not found: " + e.TransferID.String()
}

// Is matches any ErrTransferNotFound when the target carries a nil ID
func (e ErrTransferNotFound) Is(target error) bool {
	t, ok := target.(ErrTransferNotFound)
	if !ok {
		return false
	}
	if t.TransferID == uuid.Nil {
		return true
	}
	return e.TransferID == t.TransferID
}

// ErrDuplicateReference indicates reference uniqueness violation. Reference
// collisions are expected to be vanishingly rare; the constraint exists to
// fail loudly rather than silently reuse a reference.
type ErrDuplicateReference struct {
	Reference string
}

func (e ErrDuplicateReference) Error() string {
	return "transfer reference already exists: " + e.Reference
}
