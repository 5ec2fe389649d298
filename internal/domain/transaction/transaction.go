package transaction

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/novabank/core-banking/internal/domain/shared"
)

// Common errors
var (
	ErrBalanceInconsistent = errors.New("balance_after does not match balance_before and signed amount")
	ErrInvalidType         = errors.New("unknown transaction type")
)

// Type defines the ledger entry kinds. Each type carries a fixed sign
// convention relative to the owning account's balance.
type Type string

const (
	TypeDebit      Type = "DEBIT"
	TypeCredit     Type = "CREDIT"
	TypeWithdrawal Type = "WITHDRAWAL"
	TypeDeposit    Type = "DEPOSIT"
	TypePayment    Type = "PAYMENT"
	TypeFee        Type = "FEE"
	TypeTransfer   Type = "TRANSFER"
	TypeLoan       Type = "LOAN"
	TypeInterest   Type = "INTEREST"
)

// Sign returns +1 for types that increase the account balance and -1 for
// types that decrease it.
func (t Type) Sign() int64 {
	switch t {
	case TypeCredit, TypeDeposit, TypeLoan, TypeInterest:
		return 1
	case TypeDebit, TypeWithdrawal, TypePayment, TypeFee, TypeTransfer:
		return -1
	}
	return 0
}

// Status defines the entry processing states
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
	StatusCancelled  Status = "CANCELLED"
	StatusReversed   Status = "REVERSED"
)

// Transaction is a ledger entry recording one balance mutation. Entries are
// written in the same database transaction as the mutation they describe,
// with BalanceBefore/BalanceAfter observed under the account's row lock.
// Completed entries are immutable; corrections are new offsetting entries.
type Transaction struct {
	ID            uuid.UUID  `json:"id"`
	Reference     string     `json:"reference"`
	AccountID     uuid.UUID  `json:"account_id"`
	TransferID    *uuid.UUID `json:"transfer_id,omitempty"`
	Type          Type       `json:"type"`
	Status        Status     `json:"status"`
	Amount        int64      `json:"amount"`
	BalanceBefore int64      `json:"balance_before"`
	BalanceAfter  int64      `json:"balance_after"`
	Description   string     `json:"description,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// New creates a ledger entry and verifies the conservation invariant:
// balance_after == balance_before + sign(type) * amount.
func New(accountID uuid.UUID, transferID *uuid.UUID, typ Type, status Status, amount, balanceBefore, balanceAfter int64, description string) (*Transaction, error) {
	sign := typ.Sign()
	if sign == 0 {
		return nil, ErrInvalidType
	}
	if balanceAfter != balanceBefore+sign*amount {
		return nil, ErrBalanceInconsistent
	}

	return &Transaction{
		ID:            uuid.New(),
		Reference:     shared.NewReference("TXN"),
		AccountID:     accountID,
		TransferID:    transferID,
		Type:          typ,
		Status:        status,
		Amount:        amount,
		BalanceBefore: balanceBefore,
		BalanceAfter:  balanceAfter,
		Description:   description,
		CreatedAt:     time.Now(),
	}, nil
}
