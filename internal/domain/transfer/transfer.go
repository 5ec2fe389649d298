package transfer

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrInvalidType        = errors.New("unknown transfer type")
	ErrRecipientNotFound  = errors.New("transfer recipient could not be resolved")
	ErrRecipientInactive  = errors.New("recipient account is not active")
	ErrSameAccount        = errors.New("cannot transfer to the originating account")
	ErrInvalidTransition  = errors.New("invalid transfer status transition")
	ErrNotReversible      = errors.New("transfer is in a terminal state and cannot be reversed")
	ErrNotEditable        = errors.New("only completed transfers can be edited")
	ErrInvalidForApproval = errors.New("only pending transfers can be approved")
	ErrNotDeclinable      = errors.New("only held transfers can be declined")
	ErrEmptyEdit          = errors.New("edit must change amount or destination")
)

// Type defines the transfer subtypes. Each subtype resolves its recipient
// differently and carries its own fee.
type Type string

const (
	TypeInternal      Type = "INTERNAL"
	TypeDomestic      Type = "DOMESTIC"
	TypeACH           Type = "ACH"
	TypeWire          Type = "WIRE"
	TypeInternational Type = "INTERNATIONAL"
)

// Valid reports whether t is a known transfer type
func (t Type) Valid() bool {
	switch t {
	case TypeInternal, TypeDomestic, TypeACH, TypeWire, TypeInternational:
		return true
	}
	return false
}

// Status defines the transfer lifecycle states
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusApproved   Status = "APPROVED"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
	StatusCancelled  Status = "CANCELLED"
	StatusRejected   Status = "REJECTED"
)

// IsTerminal reports whether no further transitions are allowed from s,
// other than administrative reversal of a completed transfer.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusFailed, StatusCancelled, StatusRejected:
		return true
	}
	return false
}

// CanTransitionTo enforces the state machine:
// PENDING -> APPROVED | PROCESSING | CANCELLED | REJECTED
// APPROVED -> PROCESSING | CANCELLED | REJECTED
// PROCESSING -> COMPLETED | FAILED | CANCELLED | REJECTED
// COMPLETED -> CANCELLED (administrative reversal only)
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusApproved || next == StatusProcessing || next == StatusCancelled || next == StatusRejected
	case StatusApproved:
		return next == StatusProcessing || next == StatusCancelled || next == StatusRejected
	case StatusProcessing:
		return next == StatusCompleted || next == StatusFailed || next == StatusCancelled || next == StatusRejected
	case StatusCompleted:
		return next == StatusCancelled
	case StatusFailed, StatusCancelled, StatusRejected:
		return false
	}
	return false
}

// RecipientSnapshot is an immutable capture of the external recipient taken at
// creation time, so reversal and display never reparse encoded description
// fields. Empty for internal transfers.
type RecipientSnapshot struct {
	Name         string `json:"name,omitempty"`
	BankName     string `json:"bank_name,omitempty"`
	AccountLast4 string `json:"account_last4,omitempty"`
}

// IsZero reports whether no snapshot was captured
func (r RecipientSnapshot) IsZero() bool {
	return r.Name == "" && r.BankName == "" && r.AccountLast4 == ""
}

// Transfer represents a money movement from one account toward exactly one of:
// an internal account (ToAccountID), an unresolved domestic account number
// (ToAccountNumber), or an external recipient snapshot.
type Transfer struct {
	ID              uuid.UUID         `json:"id"`
	Reference       string            `json:"reference"`
	Type            Type              `json:"type"`
	Status          Status            `json:"status"`
	FromAccountID   uuid.UUID         `json:"from_account_id"`
	ToAccountID     *uuid.UUID        `json:"to_account_id,omitempty"`
	ToAccountNumber string            `json:"to_account_number,omitempty"`
	Recipient       RecipientSnapshot `json:"recipient,omitempty"`
	Currency        string            `json:"currency"`
	Amount          int64             `json:"amount"`
	FeeAmount       int64             `json:"fee_amount"`
	TotalAmount     int64             `json:"total_amount"`
	FailureReason   string            `json:"failure_reason,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
	ProcessedAt     *time.Time        `json:"processed_at,omitempty"`
}

// MarkStatus transitions the transfer, enforcing the state machine
func (t *Transfer) MarkStatus(next Status) error {
	if !t.Status.CanTransitionTo(next) {
		return ErrInvalidTransition
	}
	t.Status = next
	t.UpdatedAt = time.Now()
	if next == StatusCompleted {
		now := time.Now()
		t.ProcessedAt = &now
	}
	return nil
}

// IsInternal reports whether the recipient is an account in this bank
func (t *Transfer) IsInternal() bool {
	return t.ToAccountID != nil
}
