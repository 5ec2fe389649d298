package account

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrInsufficientFunds = errors.New("insufficient available funds")
	ErrAccountInactive   = errors.New("account is not active")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrCurrencyMismatch  = errors.New("account currencies do not match")
	ErrInvalidCurrency   = errors.New("currency must be a 3-letter code")
	ErrEmptyAccountNum   = errors.New("account number cannot be empty")
)

// Status defines the account lifecycle states. Balance mutations are
// rejected unless the account is ACTIVE.
type Status string

const (
	StatusActive  Status = "ACTIVE"
	StatusFrozen  Status = "FROZEN"
	StatusClosed  Status = "CLOSED"
	StatusPending Status = "PENDING"
)

// Account represents a bank account. Balance is the ledger total and
// AvailableBalance the spendable portion; both are stored in minor units.
type Account struct {
	ID               uuid.UUID `json:"id"`
	UserID           uuid.UUID `json:"user_id"`
	AccountNumber    string    `json:"account_number"`
	Currency         string    `json:"currency"`
	Status           Status    `json:"status"`
	Balance          int64     `json:"balance"`
	AvailableBalance int64     `json:"available_balance"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// NewAccount creates a new active account with the given parameters
func NewAccount(userID uuid.UUID, accountNumber string, currency string, initialBalance int64) (*Account, error) {
	if accountNumber == "" {
		return nil, ErrEmptyAccountNum
	}
	if len(currency) != 3 {
		return nil, ErrInvalidCurrency
	}
	if initialBalance < 0 {
		return nil, ErrInvalidAmount
	}

	now := time.Now()
	return &Account{
		ID:               uuid.New(),
		UserID:           userID,
		AccountNumber:    accountNumber,
		Currency:         currency,
		Status:           StatusActive,
		Balance:          initialBalance,
		AvailableBalance: initialBalance,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// IsActive reports whether the account accepts balance mutations
func (a *Account) IsActive() bool {
	return a.Status == StatusActive
}

// Credit adds the amount to both balance and available balance.
// The caller must hold the account's row lock.
func (a *Account) Credit(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if !a.IsActive() {
		return ErrAccountInactive
	}

	a.Balance += amount
	a.AvailableBalance += amount
	a.UpdatedAt = time.Now()
	return nil
}

// Debit subtracts the amount from both balance and available balance.
// Fails without mutation when the account is inactive or the available
// balance would go negative. The caller must hold the account's row lock.
func (a *Account) Debit(amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if !a.IsActive() {
		return ErrAccountInactive
	}
	if a.AvailableBalance < amount {
		return ErrInsufficientFunds
	}

	a.Balance -= amount
	a.AvailableBalance -= amount
	a.UpdatedAt = time.Now()
	return nil
}

// CanDebit checks if the account has sufficient available funds
func (a *Account) CanDebit(amount int64) bool {
	return a.AvailableBalance >= amount
}
