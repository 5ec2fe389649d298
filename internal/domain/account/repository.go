package account

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines account persistence operations
type Repository interface {
	Create(ctx context.Context, account *Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)
	GetByAccountNumber(ctx context.Context, accountNumber string) (*Account, error)

	// Update persists balance and status changes. Callers mutating balances
	// must have obtained the row through LockForUpdate in the same transaction.
	Update(ctx context.Context, account *Account) error

	// LockForUpdate acquires a pessimistic row lock and returns the account
	// as observed under the lock. Every balance mutation path goes through it.
	LockForUpdate(ctx context.Context, id uuid.UUID) (*Account, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrAccountNotFound indicates missing account
type ErrAccountNotFound struct {
	AccountID uuid.UUID
}

func (e ErrAccountNotFound) Error() string {
	return "account not found: " + e.AccountID.String()
}

// Is matches any ErrAccountNotFound when the target carries a nil ID
func (e ErrAccountNotFound) Is(target error) bool {
	t, ok := target.(ErrAccountNotFound)
	if !ok {
		return false
	}
	if t.AccountID == uuid.Nil {
		return true
	}
	return e.AccountID == t.AccountID
}

// ErrNotAccountOwner indicates the requester does not own the account
type ErrNotAccountOwner struct {
	AccountID uuid.UUID
	UserID    uuid.UUID
}

func (e ErrNotAccountOwner) Error() string {
	return "account " + e.AccountID.String() + " is not owned by user " + e.UserID.String()
}

// ErrDuplicateAccountNumber indicates account number uniqueness violation
type ErrDuplicateAccountNumber struct {
	AccountNumber string
}

func (e ErrDuplicateAccountNumber) Error() string {
	return "account with number already exists: " + e.AccountNumber
}
