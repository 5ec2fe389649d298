package handler

// CreateAccountRequest represents a request to open a new account
type CreateAccountRequest struct {
	InitialBalance int64  `json:"initial_balance" binding:"min=0"`
	Currency       string `json:"currency" binding:"required,len=3"`
}

// AccountResponse represents an account in API responses
type AccountResponse struct {
	ID               string `json:"id"`
	UserID           string `json:"user_id"`
	AccountNumber    string `json:"account_number"`
	Currency         string `json:"currency"`
	Status           string `json:"status"`
	Balance          int64  `json:"balance"`
	AvailableBalance int64  `json:"available_balance"`
	CreatedAt        string `json:"created_at"`
	UpdatedAt        string `json:"updated_at"`
}

// DepositRequest represents a request to credit an account
type DepositRequest struct {
	Amount      int64  `json:"amount" binding:"required,gt=0"`
	Description string `json:"description,omitempty"`
}

// RecipientPayload carries external recipient details on initiation
type RecipientPayload struct {
	Name         string `json:"name"`
	BankName     string `json:"bank_name,omitempty"`
	AccountLast4 string `json:"account_last4,omitempty"`
}

// InitiateTransferRequest represents a request to initiate a transfer.
// Destination fields are subtype-specific: to_account_id for INTERNAL,
// to_account_number for DOMESTIC, recipient for ACH/WIRE/INTERNATIONAL.
type InitiateTransferRequest struct {
	FromAccountID   string            `json:"from_account_id" binding:"required,uuid"`
	Type            string            `json:"type" binding:"required,oneof=INTERNAL DOMESTIC ACH WIRE INTERNATIONAL"`
	Amount          int64             `json:"amount" binding:"required,gt=0"`
	Pin             string            `json:"pin" binding:"required"`
	ToAccountID     string            `json:"to_account_id,omitempty" binding:"omitempty,uuid"`
	ToAccountNumber string            `json:"to_account_number,omitempty"`
	Recipient       *RecipientPayload `json:"recipient,omitempty"`
	Description     string            `json:"description,omitempty"`
}

// TransferResponse represents a transfer in API responses
type TransferResponse struct {
	ID              string            `json:"id"`
	Reference       string            `json:"reference"`
	Type            string            `json:"type"`
	Status          string            `json:"status"`
	FromAccountID   string            `json:"from_account_id"`
	ToAccountID     string            `json:"to_account_id,omitempty"`
	ToAccountNumber string            `json:"to_account_number,omitempty"`
	Recipient       *RecipientPayload `json:"recipient,omitempty"`
	Currency        string            `json:"currency"`
	Amount          int64             `json:"amount"`
	FeeAmount       int64             `json:"fee_amount"`
	TotalAmount     int64             `json:"total_amount"`
	FailureReason   string            `json:"failure_reason,omitempty"`
	CreatedAt       string            `json:"created_at"`
	ProcessedAt     string            `json:"processed_at,omitempty"`
}

// TransactionResponse represents a ledger entry in API responses
type TransactionResponse struct {
	ID            string `json:"id"`
	Reference     string `json:"reference"`
	AccountID     string `json:"account_id"`
	TransferID    string `json:"transfer_id,omitempty"`
	Type          string `json:"type"`
	Status        string `json:"status"`
	Amount        int64  `json:"amount"`
	BalanceBefore int64  `json:"balance_before"`
	BalanceAfter  int64  `json:"balance_after"`
	Description   string `json:"description,omitempty"`
	CreatedAt     string `json:"created_at"`
}

// SetPinRequest represents a request to set the transfer PIN
type SetPinRequest struct {
	Pin string `json:"pin" binding:"required"`
}

// DeclineTransferRequest carries the administrative decline reason
type DeclineTransferRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// EditTransferRequest represents an administrative edit. Omitted fields are
// unchanged; at least one must be present.
type EditTransferRequest struct {
	NewAmount      *int64  `json:"new_amount,omitempty" binding:"omitempty,gt=0"`
	NewToAccountID *string `json:"new_to_account_id,omitempty" binding:"omitempty,uuid"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=10" binding:"min=1,max=100"`
}
