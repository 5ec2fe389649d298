package handler

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/novabank/core-banking/internal/api/middleware"
	"github.com/novabank/core-banking/internal/domain/account"
	"github.com/novabank/core-banking/internal/domain/transaction"
	"github.com/novabank/core-banking/internal/service"
)

// AccountHandler handles HTTP requests for account operations
type AccountHandler struct {
	accountService service.AccountService
	logger         *slog.Logger
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(logger *slog.Logger, accountService service.AccountService) *AccountHandler {
	return &AccountHandler{
		accountService: accountService,
		logger:         logger,
	}
}

// Create opens a new account for the authenticated user
func (h *AccountHandler) Create(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		RespondUnauthorized(c, "")
		return
	}

	var req CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	acc, err := h.accountService.CreateAccount(c.Request.Context(), userID, req.Currency, req.InitialBalance)
	if err != nil {
		if errors.Is(err, account.ErrInvalidCurrency) {
			RespondBadRequest(c, "Currency must be a 3-letter code")
			return
		}
		h.logger.Error("Failed to create account", "error", err)
		RespondInternalError(c)
		return
	}

	RespondCreated(c, mapAccountToResponse(acc))
}

// GetByID retrieves one of the authenticated user's accounts
func (h *AccountHandler) GetByID(c *gin.Context) {
	acc, ok := h.ownedAccount(c)
	if !ok {
		return
	}
	RespondOK(c, mapAccountToResponse(acc))
}

// Deposit credits one of the authenticated user's accounts
func (h *AccountHandler) Deposit(c *gin.Context) {
	acc, ok := h.ownedAccount(c)
	if !ok {
		return
	}

	var req DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	updated, err := h.accountService.Deposit(c.Request.Context(), acc.ID, req.Amount, req.Description)
	if err != nil {
		switch {
		case errors.Is(err, account.ErrInvalidAmount):
			RespondBadRequest(c, "Amount must be positive")
		case errors.Is(err, account.ErrAccountInactive):
			RespondUnprocessable(c, "ACCOUNT_INACTIVE", "Account is not active")
		default:
			h.logger.Error("Failed to apply deposit", "account_id", acc.ID.String(), "error", err)
			RespondInternalError(c)
		}
		return
	}

	RespondOK(c, mapAccountToResponse(updated))
}

// GetTransactions lists the account's ledger history, newest first
func (h *AccountHandler) GetTransactions(c *gin.Context) {
	acc, ok := h.ownedAccount(c)
	if !ok {
		return
	}

	var params PaginationParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters: "+err.Error())
		return
	}

	entries, total, err := h.accountService.GetTransactionsByAccountID(c.Request.Context(), acc.ID, params.Page, params.PerPage)
	if err != nil {
		h.logger.Error("Failed to list transactions", "account_id", acc.ID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	responses := make([]TransactionResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, mapTransactionToResponse(entry))
	}

	RespondWithPaginatedData(c, 200, responses, params.Page, params.PerPage, int(total))
}

// ownedAccount resolves the :id path parameter to an account owned by the
// authenticated user, writing the error response itself on failure
func (h *AccountHandler) ownedAccount(c *gin.Context) (*account.Account, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		RespondUnauthorized(c, "")
		return nil, false
	}

	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		RespondBadRequest(c, "Invalid account ID")
		return nil, false
	}

	acc, err := h.accountService.GetAccountByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound{}) {
			RespondNotFound(c, "Account not found")
			return nil, false
		}
		h.logger.Error("Failed to get account", "id", idParam, "error", err)
		RespondInternalError(c)
		return nil, false
	}

	if acc.UserID != userID {
		RespondForbidden(c, "")
		return nil, false
	}
	return acc, true
}

// mapAccountToResponse maps an account entity to an account response DTO
func mapAccountToResponse(acc *account.Account) AccountResponse {
	return AccountResponse{
		ID:               acc.ID.String(),
		UserID:           acc.UserID.String(),
		AccountNumber:    acc.AccountNumber,
		Currency:         acc.Currency,
		Status:           string(acc.Status),
		Balance:          acc.Balance,
		AvailableBalance: acc.AvailableBalance,
		CreatedAt:        acc.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        acc.UpdatedAt.Format(time.RFC3339),
	}
}

// mapTransactionToResponse maps a ledger entry to a response DTO
func mapTransactionToResponse(entry *transaction.Transaction) TransactionResponse {
	resp := TransactionResponse{
		ID:            entry.ID.String(),
		Reference:     entry.Reference,
		AccountID:     entry.AccountID.String(),
		Type:          string(entry.Type),
		Status:        string(entry.Status),
		Amount:        entry.Amount,
		BalanceBefore: entry.BalanceBefore,
		BalanceAfter:  entry.BalanceAfter,
		Description:   entry.Description,
		CreatedAt:     entry.CreatedAt.Format(time.RFC3339),
	}
	if entry.TransferID != nil {
		resp.TransferID = entry.TransferID.String()
	}
	return resp
}
