// Package service implements the money-movement orchestration on top of the
// domain repositories: transfer initiation, administrative operations, and
// account upkeep. Every balance mutation runs inside one database transaction
// paired with its ledger entry.
package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/novabank/core-banking/internal/domain/account"
	"github.com/novabank/core-banking/internal/domain/transaction"
	"github.com/novabank/core-banking/internal/domain/transfer"
)

// PinVerifier gates transfer initiation. Satisfied by pinguard.Guard.
type PinVerifier interface {
	Verify(ctx context.Context, userID uuid.UUID, pin string) error
}

// InitiateCommand carries one transfer initiation request. Exactly one of
// ToAccountID (internal), ToAccountNumber (domestic), or Recipient
// (ACH/wire/international) identifies the destination, depending on Type.
type InitiateCommand struct {
	UserID          uuid.UUID
	FromAccountID   uuid.UUID
	Type            transfer.Type
	Amount          int64
	Pin             string
	ToAccountID     *uuid.UUID
	ToAccountNumber string
	Recipient       transfer.RecipientSnapshot
	Description     string
}

// EditCommand carries an administrative edit of a completed transfer. Nil
// fields mean "unchanged". The deltas are applied in a strict order: reverse
// the old recipient at the old amount, credit the new recipient at the new
// amount, and adjust the sender by the net difference only when the
// destination did not change.
type EditCommand struct {
	AdminID        uuid.UUID
	TransferID     uuid.UUID
	NewAmount      *int64
	NewToAccountID *uuid.UUID
}

// TransferService defines user-facing transfer operations
type TransferService interface {
	// Initiate runs the full initiation protocol: ownership and status
	// checks, recipient resolution, PIN verification, then the atomic
	// debit + transfer + ledger entry + completion job.
	Initiate(ctx context.Context, cmd InitiateCommand) (*transfer.Transfer, error)

	// GetTransferByID retrieves a transfer, enforcing that the requester
	// owns the originating account
	GetTransferByID(ctx context.Context, userID, id uuid.UUID) (*transfer.Transfer, error)

	// GetTransferByReference retrieves a transfer by its public reference
	GetTransferByReference(ctx context.Context, userID uuid.UUID, reference string) (*transfer.Transfer, error)
}

// AdminService defines the administrative transfer operations. Every
// operation writes one audit record keyed by the acting admin.
type AdminService interface {
	// Approve releases a held PENDING transfer and schedules its completion
	Approve(ctx context.Context, adminID, transferID uuid.UUID) (*transfer.Transfer, error)

	// Decline refunds a held transfer's total_amount to the sender and
	// marks it REJECTED
	Decline(ctx context.Context, adminID, transferID uuid.UUID, reason string) (*transfer.Transfer, error)

	// Reverse credits total_amount back to the sender, claws back the
	// recipient credit of a completed internal transfer, cancels any
	// pending completion job, and marks the transfer CANCELLED
	Reverse(ctx context.Context, adminID, transferID uuid.UUID) (*transfer.Transfer, error)

	// Edit changes the amount and/or destination of a COMPLETED transfer
	Edit(ctx context.Context, cmd EditCommand) (*transfer.Transfer, error)
}

// AccountService defines account operations
type AccountService interface {
	// CreateAccount opens a new active account for the user
	CreateAccount(ctx context.Context, userID uuid.UUID, currency string, initialBalance int64) (*account.Account, error)

	// GetAccountByID retrieves an account by its ID
	GetAccountByID(ctx context.Context, id uuid.UUID) (*account.Account, error)

	// Deposit credits the account and writes a DEPOSIT ledger entry in the
	// same atomic unit
	Deposit(ctx context.Context, accountID uuid.UUID, amount int64, description string) (*account.Account, error)

	// GetTransactionsByAccountID retrieves a paginated ledger history,
	// newest first. Returns entries, total count, and any error.
	GetTransactionsByAccountID(ctx context.Context, accountID uuid.UUID, page, perPage int) ([]*transaction.Transaction, int64, error)
}
